package head

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// wireHead is the on-disk JSON layout. Exactly one of Centroids and W is set,
// selected by Type.
type wireHead struct {
	Type      Kind        `json:"type"`
	Classes   []string    `json:"classes"`
	Centroids [][]float32 `json:"centroids,omitempty"`
	W         [][]float32 `json:"W,omitempty"`
}

// wireFields are the exact top-level keys of the persistence format.
var wireFields = []string{"type", "classes", "centroids", "W"}

// checkFieldNames rejects keys that differ from a wire field only by case;
// encoding/json would otherwise accept them silently.
func checkFieldNames(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse head: %w", err)
	}
	for key := range raw {
		for _, field := range wireFields {
			if key != field && strings.EqualFold(key, field) {
				return &HeadError{Reason: fmt.Sprintf("field %q must be spelled %q", key, field)}
			}
		}
	}
	return nil
}

// Marshal encodes a usable head to its JSON persistence format.
func Marshal(h *Head) ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	w := wireHead{Type: h.Kind, Classes: h.Classes}
	switch h.Kind {
	case KindCentroid:
		w.Centroids = h.Centroids
	case KindLinear:
		w.W = h.Weights
	}
	data, err := json.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal head: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a head and rejects it unless it is usable. Keys must match
// the format exactly, including case. A payload for the other head type, or a
// missing payload, is rejected rather than ignored.
func Unmarshal(data []byte) (*Head, error) {
	if err := checkFieldNames(data); err != nil {
		return nil, err
	}
	var w wireHead
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to parse head: %w", err)
	}
	h := &Head{Kind: w.Type, Classes: w.Classes}
	switch w.Type {
	case KindCentroid:
		if w.W != nil {
			return nil, &HeadError{Reason: "centroid head carries a W matrix"}
		}
		h.Centroids = w.Centroids
	case KindLinear:
		if w.Centroids != nil {
			return nil, &HeadError{Reason: "linear head carries centroids"}
		}
		h.Weights = w.W
	default:
		return nil, fmt.Errorf("%w: %w", ErrUnknownKind, &HeadError{Reason: fmt.Sprintf("type %q", w.Type)})
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// LoadFile reads and validates the head stored at path.
func LoadFile(path string) (*Head, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read head: %w", err)
	}
	h, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// SaveFile writes h to path through a temporary file and a rename, so that a
// watcher on the directory never observes a partially written head.
// Parent directories are created if needed.
func SaveFile(path string, h *Head) error {
	data, err := Marshal(h)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create head dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".head-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp head: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write head: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close head: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename head: %w", err)
	}
	return nil
}
