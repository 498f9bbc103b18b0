package models

import "time"

// IndexReport summarizes one indexing run over the photo folder.
type IndexReport struct {
	RunID       string    `json:"run_id"`
	Folder      string    `json:"folder"`
	Total       int       `json:"total"`
	Indexed     int       `json:"indexed"`
	Unchanged   int       `json:"unchanged"`
	Failed      int       `json:"failed"`
	Removed     int       `json:"removed,omitempty"`
	FailedFiles []string  `json:"failed_files,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
}
