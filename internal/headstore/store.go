// Package headstore keeps a catalog of named classifier heads.
package headstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/hyperjump/teachable/internal/head"
)

// ErrNotFound is returned when no head is stored under a name.
var ErrNotFound = errors.New("head not found")

// ErrInvalidName is returned for names outside [A-Za-z0-9._-]+.
var ErrInvalidName = errors.New("invalid head name")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Store saves and loads heads by name.
type Store interface {
	Save(ctx context.Context, name string, h *head.Head) error
	Load(ctx context.Context, name string) (*head.Head, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// ValidateName rejects names that could escape the catalog or are not portable object keys.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

const extension = ".json"
