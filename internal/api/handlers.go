package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/shelf/internal/bookservice"
	"github.com/starford/shelf/internal/catalog"
	"github.com/starford/shelf/internal/checksum"
	"github.com/starford/shelf/internal/models"
)

const maxBody = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc         *bookservice.Service
	defaultMode catalog.Mode
}

// NewHandler creates a new Handler.
func NewHandler(svc *bookservice.Service, defaultMode catalog.Mode) *Handler {
	if defaultMode == "" {
		defaultMode = catalog.ModeFuzzy
	}
	return &Handler{svc: svc, defaultMode: defaultMode}
}

// pathParam returns a decoded URL parameter. chi matches against RawPath
// when the request carries one (an escaped slash in a title or author), so
// only then is the parameter still escaped.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func decodeBook(w http.ResponseWriter, r *http.Request) (models.Book, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var b models.Book
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid book record: "+err.Error()))
		return models.Book{}, false
	}
	return b, true
}

func writeDetail(w http.ResponseWriter, status int, d BookDetail) {
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, status, d)
}

func writeBooks(w http.ResponseWriter, books []models.Book) {
	writeJSON(w, http.StatusOK, BookListResponse{Books: books, Total: len(books)})
}

// ListBooks handles GET /api/books. Optional title and author query
// parameters restrict the list to exact matches.
func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	books := h.svc.List(r.Context(), bookservice.ListFilter{
		Title:  q.Get("title"),
		Author: q.Get("author"),
	})
	writeBooks(w, books)
}

// GetBook handles GET /api/books/{isbn}.
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	isbn := pathParam(r, "isbn")
	d, err := h.svc.Get(r.Context(), isbn)
	if err != nil {
		writeError(w, "get book", err, slog.String("isbn", isbn))
		return
	}
	writeDetail(w, http.StatusOK, d)
}

// CreateBook handles POST /api/books.
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	b, ok := decodeBook(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Add(r.Context(), b)
	if err != nil {
		writeError(w, "create book", err, slog.String("isbn", b.ISBN))
		return
	}
	w.Header().Set("Location", "/api/books/"+url.PathEscape(d.Book.ISBN))
	writeDetail(w, http.StatusCreated, d)
}

// UpdateBook handles PUT /api/books/{isbn}. The body is the complete new
// record; its isbn may differ from the path to re-key the book. If-Match,
// when present, must carry the current checksum.
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	isbn := pathParam(r, "isbn")
	b, ok := decodeBook(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Update(r.Context(), isbn, b, r.Header.Get("If-Match"))
	if err != nil {
		writeError(w, "update book", err, slog.String("isbn", isbn))
		return
	}
	writeDetail(w, http.StatusOK, d)
}

// DeleteBook handles DELETE /api/books/{isbn}.
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	isbn := pathParam(r, "isbn")
	if _, err := h.svc.Remove(r.Context(), isbn); err != nil {
		writeError(w, "delete book", err, slog.String("isbn", isbn))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ByTitle handles GET /api/titles/{title}.
func (h *Handler) ByTitle(w http.ResponseWriter, r *http.Request) {
	writeBooks(w, h.svc.List(r.Context(), bookservice.ListFilter{Title: pathParam(r, "title")}))
}

// ByAuthor handles GET /api/authors/{author}.
func (h *Handler) ByAuthor(w http.ResponseWriter, r *http.Request) {
	writeBooks(w, h.svc.List(r.Context(), bookservice.ListFilter{Author: pathParam(r, "author")}))
}

// Search handles GET /api/search?q=&mode=&limit=.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	mode := h.defaultMode
	if m := q.Get("mode"); m != "" {
		parsed, err := catalog.ParseMode(m)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		mode = parsed
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	results := h.svc.Search(r.Context(), mode, query, limit)
	writeJSON(w, http.StatusOK, SearchResponse{Query: query, Mode: mode, Results: results})
}

// Stats handles GET /api/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats(r.Context()))
}

// Activity handles GET /api/activity?limit=&op=.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := h.svc.Activity(r.Context(), limit, q.Get("op"))
	if err != nil {
		writeError(w, "activity", err)
		return
	}
	counts, err := h.svc.ActivityCounts(r.Context())
	if err != nil {
		writeError(w, "activity", err)
		return
	}
	writeJSON(w, http.StatusOK, ActivityResponse{Entries: entries, Counts: counts})
}

// Titles handles GET /api/titles.
func (h *Handler) Titles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, KeysResponse{Keys: h.svc.Titles(r.Context())})
}

// Authors handles GET /api/authors.
func (h *Handler) Authors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, KeysResponse{Keys: h.svc.Authors(r.Context())})
}
