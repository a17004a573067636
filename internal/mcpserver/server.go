// Package mcpserver exposes the library as MCP (Model Context Protocol)
// tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/bookservice"
	"github.com/starford/shelf/internal/catalog"
	"github.com/starford/shelf/internal/models"
)

const recordFormatURI = "shelf://record-format"

// Server wraps the MCP server with the library tools.
type Server struct {
	mcp         *server.MCPServer
	svc         *bookservice.Service
	defaultMode catalog.Mode
}

// New creates an MCP server with every tool registered.
func New(svc *bookservice.Service, defaultMode catalog.Mode, version string) *Server {
	if defaultMode == "" {
		defaultMode = catalog.ModeFuzzy
	}
	s := &Server{svc: svc, defaultMode: defaultMode}

	s.mcp = server.NewMCPServer(
		"Shelf",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_books",
		mcp.WithDescription("Search books by title, author and ISBN. "+
			"Fuzzy mode matches the query letters in order with gaps and ranks tight matches first; "+
			"substring mode matches a case-insensitive literal substring."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithString("mode", mcp.Description("fuzzy (default) or substring"), mcp.Enum("fuzzy", "substring")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (0 for all)")),
	), s.searchBooks)

	s.mcp.AddTool(mcp.NewTool("get_book",
		mcp.WithDescription("Fetch one book record by ISBN."),
		mcp.WithString("isbn", mcp.Required(), mcp.Description("ISBN of the book")),
	), s.getBook)

	s.mcp.AddTool(mcp.NewTool("add_book",
		mcp.WithDescription("Add a book to the library. Read the record format first via "+
			"get_record_format or the "+recordFormatURI+" resource."),
		mcp.WithString("isbn", mcp.Required(), mcp.Description("Unique ISBN")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Book title")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Author name")),
		mcp.WithString("publisher", mcp.Description("Publisher")),
		mcp.WithString("cover", mcp.Description("Cover type, e.g. hardcover")),
		mcp.WithString("category", mcp.Description("Category")),
		mcp.WithString("edition", mcp.Description("Edition number")),
		mcp.WithString("year", mcp.Description("Publication year")),
		mcp.WithString("pages", mcp.Description("Page count")),
	), s.addBook)

	s.mcp.AddTool(mcp.NewTool("edit_book",
		mcp.WithDescription("Change fields of an existing book. Only the given fields change; "+
			"the edited book moves to the end of the library order."),
		mcp.WithString("isbn", mcp.Required(), mcp.Description("Current ISBN of the book")),
		mcp.WithString("new_isbn", mcp.Description("Replacement ISBN")),
		mcp.WithString("title", mcp.Description("Book title")),
		mcp.WithString("author", mcp.Description("Author name")),
		mcp.WithString("publisher", mcp.Description("Publisher")),
		mcp.WithString("cover", mcp.Description("Cover type, e.g. hardcover")),
		mcp.WithString("category", mcp.Description("Category")),
		mcp.WithString("edition", mcp.Description("Edition number")),
		mcp.WithString("year", mcp.Description("Publication year")),
		mcp.WithString("pages", mcp.Description("Page count")),
		mcp.WithString("checksum", mcp.Description("Reject the edit unless the book still has this checksum")),
	), s.editBook)

	s.mcp.AddTool(mcp.NewTool("remove_book",
		mcp.WithDescription("Remove the book with the given ISBN."),
		mcp.WithString("isbn", mcp.Required(), mcp.Description("ISBN of the book")),
	), s.removeBook)

	s.mcp.AddTool(mcp.NewTool("list_books",
		mcp.WithDescription("List books in library order, optionally only those with an exact title or author."),
		mcp.WithString("title", mcp.Description("Exact title")),
		mcp.WithString("author", mcp.Description("Exact author")),
	), s.listBooks)

	s.mcp.AddTool(mcp.NewTool("library_stats",
		mcp.WithDescription("Number of books, distinct titles and distinct authors."),
	), s.libraryStats)

	s.mcp.AddTool(mcp.NewTool("get_record_format",
		mcp.WithDescription("Returns the book record format. Call this before adding books."),
	), s.getRecordFormat)

	s.mcp.AddResource(
		mcp.NewResource(recordFormatURI, "Book Record Format",
			mcp.WithResourceDescription("Fields and rules of a library book record."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func optional(req mcp.CallToolRequest, name string) string {
	if v, err := req.RequireString(name); err == nil {
		return v
	}
	return ""
}

func (s *Server) searchBooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode := s.defaultMode
	if m := optional(req, "mode"); m != "" {
		if mode, err = catalog.ParseMode(m); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	limit := req.GetInt("limit", 20)
	results := s.svc.Search(ctx, mode, query, limit)
	if len(results) == 0 {
		return mcp.NewToolResultText("no books found"), nil
	}
	return jsonResult(results)
}

func (s *Server) getBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	isbn, err := req.RequireString("isbn")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.Get(ctx, isbn)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", isbn)), nil
	}
	return jsonResult(d.Book)
}

func (s *Server) addBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rec := models.Record{}
	for _, name := range []string{models.FieldISBN, models.FieldTitle, models.FieldAuthor} {
		v, err := req.RequireString(name)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		rec[name] = v
	}
	for _, name := range models.CanonicalFields()[3:] {
		if v := optional(req, name); v != "" {
			rec[name] = v
		}
	}
	b, err := models.FromRecord(rec)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.svc.Add(ctx, b); err != nil {
		if errors.Is(err, apperr.ErrDuplicateKey) {
			return mcp.NewToolResultError(fmt.Sprintf("isbn already exists: %s", b.ISBN)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s", b.ISBN)), nil
}

func (s *Server) editBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	isbn, err := req.RequireString("isbn")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	current, err := s.svc.Get(ctx, isbn)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", isbn)), nil
	}

	b := current.Book.Clone()
	changed := false
	if v := optional(req, "new_isbn"); v != "" {
		b.ISBN = v
		changed = true
	}
	for _, name := range models.CanonicalFields() {
		if name == models.FieldISBN {
			continue
		}
		if v := optional(req, name); v != "" {
			b.Set(name, v)
			changed = true
		}
	}
	if !changed {
		return mcp.NewToolResultError("no fields to change"), nil
	}

	d, err := s.svc.Update(ctx, isbn, b, optional(req, "checksum"))
	switch {
	case errors.Is(err, apperr.ErrDuplicateKey):
		return mcp.NewToolResultError(fmt.Sprintf("isbn already exists: %s", b.ISBN)), nil
	case errors.Is(err, apperr.ErrConflict):
		return mcp.NewToolResultError(fmt.Sprintf("book %s changed since it was read", isbn)), nil
	case err != nil:
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) removeBook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	isbn, err := req.RequireString("isbn")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	b, err := s.svc.Remove(ctx, isbn)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", isbn)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("removed: %s (%s)", b.ISBN, b.Title)), nil
}

func (s *Server) listBooks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	books := s.svc.List(ctx, bookservice.ListFilter{
		Title:  optional(req, "title"),
		Author: optional(req, "author"),
	})
	if len(books) == 0 {
		return mcp.NewToolResultText("no books found"), nil
	}
	return jsonResult(books)
}

func (s *Server) libraryStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Stats(ctx))
}

func (s *Server) getRecordFormat(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormat), nil
}

func (s *Server) readRecordFormatResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      recordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormat,
		},
	}, nil
}
