package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/shelf/internal/bookservice"
	"github.com/starford/shelf/internal/catalog"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *bookservice.Service, authEnabled bool, token string, defaultMode catalog.Mode, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, defaultMode)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/books", h.ListBooks)
	r.Post("/books", h.CreateBook)
	r.Get("/books/{isbn}", h.GetBook)
	r.Put("/books/{isbn}", h.UpdateBook)
	r.Delete("/books/{isbn}", h.DeleteBook)

	r.Get("/titles", h.Titles)
	r.Get("/titles/{title}", h.ByTitle)
	r.Get("/authors", h.Authors)
	r.Get("/authors/{author}", h.ByAuthor)

	r.Get("/search", h.Search)
	r.Get("/stats", h.Stats)
	r.Get("/activity", h.Activity)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
