// Package cli provides CLI output utilities for SmartLens.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hyperjump/smartlens/internal/models"
	"github.com/hyperjump/smartlens/pkg/utils"
)

// SearchOutputFormat is the format for search result output.
type SearchOutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText SearchOutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON SearchOutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	if response.Hint != "" {
		fmt.Fprintf(w, "\n%s\n", response.Hint)
		return
	}
	fmt.Fprintf(w, "\nFound %d matching photos in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
		fmt.Fprintf(w, "Photo: %s\n", result.Photo.ID)
		fmt.Fprintf(w, "Path: %s\n", utils.Truncate(result.Photo.Path, 120))
		if result.Photo.Width > 0 && result.Photo.Height > 0 {
			fmt.Fprintf(w, "Size: %dx%d\n", result.Photo.Width, result.Photo.Height)
		}
		fmt.Fprintln(w)
	}
}

// WriteIndexReport writes an indexing run summary to w in the given format.
func WriteIndexReport(w io.Writer, report *models.IndexReport, format SearchOutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		fmt.Fprintf(w, "\nIndexed %s: %d indexed, %d unchanged, %d failed, %d removed (%dms)\n",
			report.Folder, report.Indexed, report.Unchanged, report.Failed, report.Removed, report.DurationMS)
		for _, f := range report.FailedFiles {
			fmt.Fprintf(w, "  failed: %s\n", f)
		}
		return nil
	}
}

// PrintSearchResults prints search results to stdout in text format.
func PrintSearchResults(response *models.SearchResponse) {
	_ = WriteSearchResults(os.Stdout, response, OutputText)
}
