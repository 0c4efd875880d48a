// Package models defines records for teaching sessions, samples, and engine status.
package models

import "time"

// Session is a teaching session: an ordered class set and its samples.
type Session struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	// Dimensions is the established embedding dimension, 0 before the first sample.
	Dimensions int       `json:"dimensions" db:"dimensions"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ClassInfo is one class of a session. Index is the class identity.
type ClassInfo struct {
	Index   int    `json:"class_index" db:"class_index"`
	Label   string `json:"label" db:"label"`
	Samples uint32 `json:"samples" db:"-"`
}

// Sample is one stored training embedding.
type Sample struct {
	ID         string    `json:"id" db:"id"`
	SessionID  string    `json:"session_id" db:"session_id"`
	ClassIndex int       `json:"class_index" db:"class_index"`
	Embedding  []float32 `json:"embedding" db:"vector"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
