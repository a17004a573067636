package api

import (
	"github.com/starford/shelf/internal/activity"
	"github.com/starford/shelf/internal/bookservice"
	"github.com/starford/shelf/internal/catalog"
	"github.com/starford/shelf/internal/models"
)

// BookDetail is the single-book response (aliased from the domain layer).
type BookDetail = bookservice.BookDetail

// BookListResponse wraps a list of books.
type BookListResponse struct {
	Books []models.Book `json:"books"`
	Total int           `json:"total"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Query   string        `json:"query"`
	Mode    catalog.Mode  `json:"mode"`
	Results []models.Book `json:"results"`
}

// StatsResponse is the library summary.
type StatsResponse = catalog.Stats

// ActivityResponse wraps recent activity entries.
type ActivityResponse struct {
	Entries []activity.Entry `json:"entries"`
	Counts  map[string]int   `json:"counts"`
}

// KeysResponse lists the distinct keys of a title or author index.
type KeysResponse struct {
	Keys []string `json:"keys"`
}
