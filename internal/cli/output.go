// Package cli provides output writers for the teachable command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/teachable/internal/head"
	"github.com/hyperjump/teachable/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one short line per record.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to a format, defaulting "" to text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case "", OutputText:
		return OutputText, nil
	case OutputCompact, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, compact, json)", s)
	}
}

// PredictionRecord is one classified input line.
type PredictionRecord struct {
	Line       int     `json:"line"`
	Label      string  `json:"label,omitempty"`
	ClassIndex int     `json:"class_index"`
	Score      float32 `json:"score"`
	RawClass   int     `json:"raw_class_index"`
	Skipped    bool    `json:"skipped,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// WritePrediction writes one record. JSON output is one object per line.
func WritePrediction(w io.Writer, rec PredictionRecord, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return json.NewEncoder(w).Encode(rec)
	case OutputCompact:
		if rec.Skipped {
			_, err := fmt.Fprintf(w, "%d\t-\n", rec.Line)
			return err
		}
		_, err := fmt.Fprintf(w, "%d\t%s\t%.4f\n", rec.Line, rec.Label, rec.Score)
		return err
	default:
		if rec.Skipped {
			_, err := fmt.Fprintf(w, "line %d: skipped (%s)\n", rec.Line, rec.Reason)
			return err
		}
		raw := ""
		if rec.RawClass != rec.ClassIndex {
			raw = fmt.Sprintf(" (raw class %d)", rec.RawClass)
		}
		_, err := fmt.Fprintf(w, "line %d: %s [%d] score %.4f%s\n", rec.Line, rec.Label, rec.ClassIndex, rec.Score, raw)
		return err
	}
}

// HeadSummary describes a head without its numeric payload.
type HeadSummary struct {
	Name       string   `json:"name,omitempty"`
	Type       string   `json:"type"`
	Classes    []string `json:"classes"`
	Dimensions int      `json:"dimensions"`
	Usable     bool     `json:"usable"`
}

// SummarizeHead builds a summary of h.
func SummarizeHead(name string, h *head.Head) HeadSummary {
	return HeadSummary{
		Name:       name,
		Type:       string(h.Kind),
		Classes:    append([]string(nil), h.Classes...),
		Dimensions: h.Dimensions(),
		Usable:     h.Usable(),
	}
}

// WriteHeadSummary writes a head summary in the given format.
func WriteHeadSummary(w io.Writer, s HeadSummary, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case OutputCompact:
		_, err := fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", s.Name, s.Type, len(s.Classes), s.Dimensions)
		return err
	default:
		if s.Name != "" {
			fmt.Fprintf(w, "Name:       %s\n", s.Name)
		}
		fmt.Fprintf(w, "Type:       %s\n", s.Type)
		fmt.Fprintf(w, "Dimensions: %d\n", s.Dimensions)
		fmt.Fprintf(w, "Usable:     %t\n", s.Usable)
		_, err := fmt.Fprintf(w, "Classes:    %s\n", Truncate(strings.Join(s.Classes, ", "), 200))
		return err
	}
}

// WriteStatus writes an engine status in the given format.
func WriteStatus(w io.Writer, st *models.Status, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case OutputCompact:
		_, err := fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", st.State, len(st.Classes), st.Dimensions, st.HeadKind)
		return err
	default:
		fmt.Fprintf(w, "State:            %s\n", st.State)
		if st.SessionID != "" {
			fmt.Fprintf(w, "Session:          %s\n", st.SessionID)
		}
		fmt.Fprintf(w, "Dimensions:       %d\n", st.Dimensions)
		fmt.Fprintf(w, "Smoothing window: %d\n", st.SmoothingWindow)
		for _, c := range st.Classes {
			fmt.Fprintf(w, "  [%d] %s: %d samples\n", c.Index, c.Label, c.Samples)
		}
		if st.HeadKind != "" {
			name := st.ActiveHead
			if name == "" {
				name = "(unsaved)"
			}
			fmt.Fprintf(w, "Head:             %s %s, %d classes, %d dims\n", name, st.HeadKind, len(st.HeadClasses), st.HeadDimensions)
		}
		if st.LastLabel != "" {
			fmt.Fprintf(w, "Last prediction:  %s (%.4f)\n", st.LastLabel, st.LastScore)
		}
		if st.LastSkip != "" {
			fmt.Fprintf(w, "Last skip:        %s\n", st.LastSkip)
		}
		if st.StoredSamples > 0 {
			fmt.Fprintf(w, "Stored samples:   %d\n", st.StoredSamples)
		}
		if st.Disk != nil {
			fmt.Fprintf(w, "Disk usage:       %s (database %s, heads %s)\n",
				FormatBytes(st.Disk.TotalBytes), FormatBytes(st.Disk.DatabaseBytes), FormatBytes(st.Disk.HeadsBytes))
		}
		return nil
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
