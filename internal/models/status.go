package models

// Status summarizes the engine for the status endpoint and CLI.
type Status struct {
	SessionID       string      `json:"session_id,omitempty"`
	State           string      `json:"state"`
	Dimensions      int         `json:"dimensions"`
	Classes         []ClassInfo `json:"classes"`
	ActiveHead      string      `json:"active_head,omitempty"`
	HeadKind        string      `json:"head_type,omitempty"`
	HeadClasses     []string    `json:"head_classes,omitempty"`
	HeadDimensions  int         `json:"head_dimensions,omitempty"`
	SmoothingWindow int         `json:"smoothing_window"`
	LastLabel       string      `json:"last_label,omitempty"`
	LastScore       float32     `json:"last_score,omitempty"`
	LastSkip        string      `json:"last_skip,omitempty"`
	StoredSamples   int64       `json:"stored_samples,omitempty"`
	Disk            *DiskUsage  `json:"disk,omitempty"`
}

// DiskUsage is the on-disk footprint of the sample database and head catalog.
type DiskUsage struct {
	DatabaseBytes int64 `json:"database_bytes"`
	HeadsBytes    int64 `json:"heads_bytes"`
	TotalBytes    int64 `json:"total_bytes"`
}
