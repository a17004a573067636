package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/shelf/internal"
	"github.com/starford/shelf/internal/bookservice"
	"github.com/starford/shelf/internal/catalog"
	"github.com/starford/shelf/internal/convert"
	"github.com/starford/shelf/internal/models"
	"github.com/starford/shelf/internal/shell"
)

var optionalFields = []string{
	models.FieldPublisher, models.FieldCover, models.FieldCategory,
	models.FieldEdition, models.FieldYear, models.FieldPages,
}

func fieldFlags(names ...string) []cli.Flag {
	flags := make([]cli.Flag, 0, len(names))
	for _, n := range names {
		flags = append(flags, &cli.StringFlag{Name: n, Usage: "Set the " + n})
	}
	return flags
}

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "shell",
			Usage:  "Open the interactive menu (default)",
			Action: runShell,
		},
		{
			Name:      "add",
			Usage:     "Add a book",
			ArgsUsage: "ISBN TITLE AUTHOR",
			Flags:     fieldFlags(optionalFields...),
			Action:    addBook,
		},
		{
			Name:      "remove",
			Aliases:   []string{"rm"},
			Usage:     "Remove a book by ISBN",
			ArgsUsage: "ISBN",
			Action:    removeBook,
		},
		{
			Name:      "edit",
			Usage:     "Change fields of a book; the edited book moves to the end of the library",
			ArgsUsage: "ISBN",
			Flags:     fieldFlags(models.CanonicalFields()...),
			Action:    editBook,
		},
		{
			Name:      "show",
			Usage:     "Show every field of a book",
			ArgsUsage: "ISBN",
			Action:    showBook,
		},
		{
			Name:  "list",
			Usage: "List books in library order",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "title", Usage: "Only books with exactly this title"},
				&cli.StringFlag{Name: "author", Usage: "Only books by exactly this author"},
			},
			Action: listBooks,
		},
		{
			Name:      "search",
			Usage:     "Search titles and authors",
			ArgsUsage: "QUERY",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "fuzzy or substring (default from config)"},
				&cli.IntFlag{Name: "limit", Usage: "Maximum number of results, 0 for all"},
			},
			Action: searchBooks,
		},
		{
			Name:      "import",
			Usage:     "Add the books of a CSV, YAML or JSON file",
			ArgsUsage: "FILE",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "replace", Usage: "Replace the library with the file instead of merging"},
			},
			Action: importBooks,
		},
		{
			Name:      "export",
			Usage:     "Write the library file as CSV or YAML",
			ArgsUsage: "[DEST]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv or yaml", Value: "csv"},
				&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing destination"},
			},
			Action: exportBooks,
		},
		{
			Name:  "stats",
			Usage: "Count books, distinct titles and distinct authors",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "titles", Usage: "Also list the distinct titles"},
				&cli.BoolFlag{Name: "authors", Usage: "Also list the distinct authors"},
			},
			Action: showStats,
		},
		{
			Name:   "check",
			Usage:  "Load the library and verify its indexes",
			Action: checkLibrary,
		},
		{
			Name:  "history",
			Usage: "Show recent activity",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit", Usage: "Number of entries", Value: 20},
				&cli.StringFlag{Name: "op", Usage: "Only this operation (add, remove, edit, search, save, reload, import)"},
			},
			Action: showHistory,
		},
		{
			Name:   "serve",
			Usage:  "Serve the HTTP API",
			Action: serve,
		},
		{
			Name:   "mcp",
			Usage:  "Serve the library to MCP clients over stdio",
			Action: serveMCP,
		},
	}
}

// session is one exclusive load-modify-save cycle for a one-shot command.
type session struct {
	cfg    *internal.Config
	lib    *internal.Library
	svc    *bookservice.Service
	out    io.Writer
	styles shell.Styles
	wide   bool
}

func stderrLogger(cfg *internal.Config) *slog.Logger {
	level := slog.LevelWarn
	if cfg.App.LogLevel > level {
		level = cfg.App.LogLevel
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func stylesFor(cmd *cli.Command) shell.Styles {
	if cmd.Bool("no-color") {
		return shell.NoColorStyles()
	}
	return shell.StylesFor(os.Stdout)
}

func openSession(cmd *cli.Command) (*session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	lib, err := internal.OpenLibrary(cfg, stderrLogger(cfg), true)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:    cfg,
		lib:    lib,
		svc:    lib.Service,
		out:    output(cmd),
		styles: stylesFor(cmd),
		wide:   cmd.Bool("wide"),
	}, nil
}

func (s *session) close() {
	if err := s.lib.Close(); err != nil {
		slog.Warn("close library", slog.String("error", err.Error()))
	}
}

func (s *session) save(ctx context.Context) error {
	res, err := s.svc.Save(ctx)
	if err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	fmt.Fprintln(s.out, s.styles.Muted.Render(res.String()))
	return nil
}

func (s *session) success(format string, args ...any) {
	fmt.Fprintln(s.out, s.styles.Success.Render(fmt.Sprintf(format, args...)))
}

func (s *session) books(books []models.Book) {
	if len(books) == 0 {
		fmt.Fprintln(s.out, s.styles.Warning.Render("no books found"))
		return
	}
	fmt.Fprintln(s.out, shell.RenderBooks(s.styles, books, s.wide))
}

func wantArgs(cmd *cli.Command, n int) error {
	if cmd.NArg() != n {
		return fmt.Errorf("%s: expected %s, got %d arguments", cmd.Name, cmd.ArgsUsage, cmd.NArg())
	}
	return nil
}

func runShell(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	editor := shell.NewLineEditor(filepath.Join(cfg.Library.Dir(), ".shelf_history"))
	defer editor.Close()

	if err := shell.Prepare(cfg.Library.Path, editor, os.Stdout); err != nil {
		if errors.Is(err, shell.ErrDeclined) || errors.Is(err, shell.ErrAborted) {
			return nil
		}
		return err
	}
	lib, err := internal.OpenLibrary(cfg, stderrLogger(cfg), true)
	if err != nil {
		return err
	}
	defer lib.Close()

	sh := shell.New(lib.Service, editor, os.Stdout,
		shell.WithStyles(stylesFor(cmd)),
		shell.WithWide(cmd.Bool("wide")),
		shell.WithSearchMode(cfg.Search.Mode()),
		shell.WithLibraryPath(lib.Path),
	)
	return sh.Run(ctx)
}

func addBook(ctx context.Context, cmd *cli.Command) error {
	if err := wantArgs(cmd, 3); err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	rec := models.Record{
		models.FieldISBN:   cmd.Args().Get(0),
		models.FieldTitle:  cmd.Args().Get(1),
		models.FieldAuthor: cmd.Args().Get(2),
	}
	for _, name := range optionalFields {
		if cmd.IsSet(name) {
			rec[name] = cmd.String(name)
		}
	}
	b, err := models.FromRecord(rec)
	if err != nil {
		return err
	}
	if _, err := s.svc.Add(ctx, b); err != nil {
		return err
	}
	s.success("added %q by %s", b.Title, b.Author)
	return s.save(ctx)
}

func removeBook(ctx context.Context, cmd *cli.Command) error {
	if err := wantArgs(cmd, 1); err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	b, err := s.svc.Remove(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	s.success("removed %q by %s", b.Title, b.Author)
	return s.save(ctx)
}

func editBook(ctx context.Context, cmd *cli.Command) error {
	if err := wantArgs(cmd, 1); err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	isbn := cmd.Args().First()
	current, err := s.svc.Get(ctx, isbn)
	if err != nil {
		return err
	}
	b := current.Book.Clone()
	changed := false
	for _, name := range models.CanonicalFields() {
		if cmd.IsSet(name) {
			b.Set(name, cmd.String(name))
			changed = true
		}
	}
	if !changed {
		return fmt.Errorf("edit: no fields given")
	}
	d, err := s.svc.Update(ctx, isbn, b, "")
	if err != nil {
		return err
	}
	s.success("updated %q (%s), now at position %d", d.Book.Title, d.Book.ISBN, d.Position)
	return s.save(ctx)
}

func showBook(ctx context.Context, cmd *cli.Command) error {
	if err := wantArgs(cmd, 1); err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	d, err := s.svc.Get(ctx, cmd.Args().First())
	if err != nil {
		return err
	}
	for _, f := range d.Book.Fields() {
		fmt.Fprintf(s.out, "%s %s\n", s.styles.Label.Render(fmt.Sprintf("%-10s", f.Name)), f.Value)
	}
	fmt.Fprintf(s.out, "%s %d\n", s.styles.Label.Render(fmt.Sprintf("%-10s", "position")), d.Position)
	fmt.Fprintf(s.out, "%s %s\n", s.styles.Label.Render(fmt.Sprintf("%-10s", "checksum")), d.Checksum)
	return nil
}

func listBooks(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	s.books(s.svc.List(ctx, bookservice.ListFilter{
		Title:  cmd.String("title"),
		Author: cmd.String("author"),
	}))
	return nil
}

func searchBooks(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() == 0 {
		return fmt.Errorf("search: expected %s", cmd.ArgsUsage)
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	mode := s.cfg.Search.Mode()
	if cmd.IsSet("mode") {
		if mode, err = catalog.ParseMode(cmd.String("mode")); err != nil {
			return err
		}
	}
	query := strings.Join(cmd.Args().Slice(), " ")
	s.books(s.svc.Search(ctx, mode, query, int(cmd.Int("limit"))))
	return nil
}

func importBooks(ctx context.Context, cmd *cli.Command) error {
	if err := wantArgs(cmd, 1); err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	src := cmd.Args().First()
	if cmd.Bool("replace") {
		if err := convert.ImportFile(src, s.lib.Path, true); err != nil {
			return err
		}
		if _, err := s.svc.Reload(ctx); err != nil {
			return err
		}
		s.success("library replaced with %d books from %s", s.svc.Len(), src)
		return nil
	}

	books, err := convert.ReadFile(src)
	if err != nil {
		return err
	}
	added, skipped := s.svc.Import(ctx, books, src)
	s.success("imported %d books from %s, skipped %d", added, src, skipped)
	return s.save(ctx)
}

func exportBooks(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() > 1 {
		return fmt.Errorf("export: expected %s", cmd.ArgsUsage)
	}
	format, err := convert.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	dst := cmd.Args().First()
	switch {
	case dst == "":
		dst = strings.TrimSuffix(s.lib.Path, filepath.Ext(s.lib.Path)) + "." + string(format)
	case filepath.Ext(dst) == "":
		dst += "." + string(format)
	}
	if err := convert.ExportFile(s.lib.Path, dst, cmd.Bool("force")); err != nil {
		return err
	}
	s.success("exported %d books to %s", s.svc.Len(), dst)
	return nil
}

func showStats(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	st := s.svc.Stats(ctx)
	fmt.Fprintf(s.out, "%s %d\n", s.styles.Label.Render("books:  "), st.Books)
	fmt.Fprintf(s.out, "%s %d\n", s.styles.Label.Render("titles: "), st.Titles)
	fmt.Fprintf(s.out, "%s %d\n", s.styles.Label.Render("authors:"), st.Authors)
	if cmd.Bool("titles") {
		s.keys("titles", s.svc.Titles(ctx))
	}
	if cmd.Bool("authors") {
		s.keys("authors", s.svc.Authors(ctx))
	}
	return nil
}

func (s *session) keys(label string, keys []string) {
	fmt.Fprintln(s.out, s.styles.Header.Render(label))
	for _, k := range keys {
		fmt.Fprintln(s.out, "  "+k)
	}
}

func checkLibrary(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.svc.Verify(ctx); err != nil {
		return err
	}
	s.success("%s: %d books, indexes consistent", s.lib.Path, s.svc.Len())
	return nil
}

func showHistory(ctx context.Context, cmd *cli.Command) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if !s.cfg.SQLite.Enabled() {
		fmt.Fprintln(s.out, s.styles.Warning.Render("activity log is disabled (sqlite.path is empty)"))
		return nil
	}
	entries, err := s.svc.Activity(ctx, int(cmd.Int("limit")), cmd.String("op"))
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "%s  %-7s %-14s %s\n",
			s.styles.Muted.Render(e.At.Local().Format(time.DateTime)), e.Op, e.ISBN, e.Detail)
	}

	counts, err := s.svc.ActivityCounts(ctx)
	if err != nil {
		return err
	}
	totals := make([]string, 0, len(counts))
	for _, op := range slices.Sorted(maps.Keys(counts)) {
		totals = append(totals, fmt.Sprintf("%s %d", op, counts[op]))
	}
	if len(totals) > 0 {
		fmt.Fprintln(s.out, s.styles.Muted.Render("totals: "+strings.Join(totals, ", ")))
	}
	return nil
}
