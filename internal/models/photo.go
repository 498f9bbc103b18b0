// Package models defines core data structures for photos, queries, and search results.
package models

import "time"

// Photo represents an indexed image file. ID is the filename (unique within the
// photo folder); Path is the absolute location on disk.
type Photo struct {
	ID        string    `json:"id" db:"id"`
	Path      string    `json:"path" db:"path"`
	Embedding []float32 `json:"-" db:"-"`
	Width     int       `json:"width,omitempty" db:"width"`
	Height    int       `json:"height,omitempty" db:"height"`
	SizeBytes int64     `json:"size_bytes,omitempty" db:"size_bytes"`
	ModTimeNS int64     `json:"-" db:"mod_time_ns"`
	IndexedAt time.Time `json:"indexed_at" db:"indexed_at"`
}
