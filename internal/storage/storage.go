// Package storage defines the persistence interface for teaching sessions and samples.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/teachable/internal/models"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = errors.New("not found")

// Storage persists teaching sessions so a trainer can be rebuilt after restart.
type Storage interface {
	// Session operations
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	ListSessions(ctx context.Context) ([]*models.Session, error)

	// Class operations
	AddClass(ctx context.Context, sessionID string, class models.ClassInfo) error
	ListClasses(ctx context.Context, sessionID string) ([]models.ClassInfo, error)

	// Sample operations. AddSample and ReplaceSamples also record the
	// sample's length as the session dimension; each is all-or-nothing.
	AddSample(ctx context.Context, sample *models.Sample) error
	// ReplaceSamples drops every stored sample of the session and stores
	// sample in their place. Classes are kept.
	ReplaceSamples(ctx context.Context, sample *models.Sample) error
	ListSamples(ctx context.Context, sessionID string) ([]*models.Sample, error)
	CountSamples(ctx context.Context, sessionID string) (int64, error)

	Close() error
}
