package models

// SearchResult is a single ranked photo hit.
type SearchResult struct {
	Photo        *Photo  `json:"photo"`
	Score        float64 `json:"score"`
	Rank         int     `json:"rank"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
}

// SearchResponse is the response for a search request.
// Results are ordered by non-increasing similarity; equal scores are ordered by id.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
	// Hint is set instead of results for empty or whitespace-only queries.
	Hint string `json:"hint,omitempty"`
}
