package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/smartlens/internal/models"
)

func TestWriteSearchResults_JSON(t *testing.T) {
	response := &models.SearchResponse{
		Query:     "sunset over mountains",
		QueryTime: 42,
		Total:     1,
		Results: []*models.SearchResult{
			{
				Rank:         1,
				Score:        0.31,
				ThumbnailURL: "/photos/sunset.jpg",
				Photo: &models.Photo{
					ID:   "sunset.jpg",
					Path: "/photos/sunset.jpg",
				},
			},
		},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputJSON); err != nil {
		t.Fatalf("WriteSearchResults(json): %v", err)
	}
	var decoded models.SearchResponse
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Query != response.Query || decoded.QueryTime != response.QueryTime {
		t.Errorf("decoded query=%q query_time=%d, want query=%q query_time=%d",
			decoded.Query, decoded.QueryTime, response.Query, response.QueryTime)
	}
	if len(decoded.Results) != 1 || decoded.Results[0].Photo.ID != "sunset.jpg" {
		t.Errorf("decoded results: want one result with id sunset.jpg, got %+v", decoded.Results)
	}
}

func TestWriteSearchResults_Text(t *testing.T) {
	response := &models.SearchResponse{
		Query:     "beach",
		QueryTime: 7,
		Total:     1,
		Results: []*models.SearchResult{
			{
				Rank:  1,
				Score: 0.28,
				Photo: &models.Photo{ID: "beach.png", Path: "/photos/beach.png", Width: 640, Height: 480},
			},
		},
	}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatalf("WriteSearchResults(text): %v", err)
	}
	out := buf.String()
	for _, want := range []string{"beach.png", "/photos/beach.png", "640x480", "Rank: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteSearchResults_Hint(t *testing.T) {
	response := &models.SearchResponse{Hint: "Type a description to search your photos."}
	var buf bytes.Buffer
	if err := WriteSearchResults(&buf, response, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Type a description") {
		t.Errorf("expected hint in output, got %q", buf.String())
	}
}

func TestWriteIndexReport(t *testing.T) {
	report := &models.IndexReport{
		Folder:      "/photos",
		Indexed:     2,
		Unchanged:   1,
		Failed:      1,
		FailedFiles: []string{"broken.jpg"},
		DurationMS:  88,
	}
	var buf bytes.Buffer
	if err := WriteIndexReport(&buf, report, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"2 indexed", "1 unchanged", "1 failed", "broken.jpg"} {
		if !strings.Contains(out, want) {
			t.Errorf("report output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteIndexReport(&buf, report, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.IndexReport
	if err := json.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Indexed != 2 {
		t.Errorf("decoded indexed = %d, want 2", decoded.Indexed)
	}
}
