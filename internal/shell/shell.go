// Package shell is the interactive, menu-driven front end to a library.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/shelf/internal/apperr"
	"github.com/starford/shelf/internal/bookservice"
	"github.com/starford/shelf/internal/catalog"
	"github.com/starford/shelf/internal/convert"
	"github.com/starford/shelf/internal/datafile"
	"github.com/starford/shelf/internal/models"
)

// ErrDeclined is returned by Prepare when the user chose not to create a
// missing library file.
var ErrDeclined = errors.New("library file not created")

// Shell runs the interactive menu over a book service.
type Shell struct {
	svc     *bookservice.Service
	in      Prompter
	out     io.Writer
	styles  Styles
	wide    bool
	mode    catalog.Mode
	libPath string

	status string
	kind   statusKind
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusErr
)

// Option configures a Shell.
type Option func(*Shell)

// WithStyles sets the theme. The default has no colour.
func WithStyles(st Styles) Option {
	return func(s *Shell) { s.styles = st }
}

// WithWide shows every field in book tables.
func WithWide(on bool) Option {
	return func(s *Shell) { s.wide = on }
}

// WithSearchMode sets the initial search mode.
func WithSearchMode(m catalog.Mode) Option {
	return func(s *Shell) { s.mode = m }
}

// WithLibraryPath names the library file; it seeds default export paths.
func WithLibraryPath(p string) Option {
	return func(s *Shell) { s.libPath = p }
}

// New returns a shell reading from in and writing to out.
func New(svc *bookservice.Service, in Prompter, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		svc:     svc,
		in:      in,
		out:     out,
		styles:  NoColorStyles(),
		mode:    catalog.ModeFuzzy,
		libPath: "library.json",
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Prepare checks the library file at path before a session opens it. A
// missing file asks whether to start a new library; an empty file is fine;
// an unreadable or malformed file is an error.
func Prepare(path string, in Prompter, out io.Writer) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		ok, err := confirm(in, fmt.Sprintf("Library file %s not found. Create a new one", path), true)
		if err != nil {
			return err
		}
		if !ok {
			return ErrDeclined
		}
		fmt.Fprintf(out, "Starting a new library at %s\n", path)
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := datafile.Decode(data); err != nil && !datafile.IsEmpty(err) {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Run shows the main menu until the user quits.
func (s *Shell) Run(ctx context.Context) error {
	for {
		s.screen("Main menu", "[a]dd  [e]dit  [r]emove  [l]ist  [s]earch  [c]onvert  [q]uit")
		choice, err := s.in.Prompt("> ")
		if errors.Is(err, ErrAborted) {
			return s.quit(ctx)
		}
		if err != nil {
			return err
		}
		switch menuKey(choice) {
		case "a":
			err = s.addMode(ctx)
		case "e":
			err = s.editMode(ctx)
		case "r":
			err = s.removeMode(ctx)
		case "l":
			err = s.listMode(ctx)
		case "s":
			err = s.searchMode(ctx)
		case "c":
			err = s.convertMode(ctx)
		case "q":
			return s.quit(ctx)
		case "":
			s.setStatus(statusInfo, "")
		default:
			s.setStatus(statusWarn, fmt.Sprintf("unknown option %q", strings.TrimSpace(choice)))
		}
		if errors.Is(err, ErrAborted) {
			return s.quit(ctx)
		}
		if err != nil {
			return err
		}
	}
}

func (s *Shell) addMode(ctx context.Context) error {
	s.setStatus(statusInfo, "")
	for {
		s.screen("Add a book", "enter q to go back")
		isbn, back, err := s.ask("ISBN")
		if err != nil || back {
			return err
		}
		if isbn == "" {
			s.setStatus(statusWarn, "isbn must not be blank")
			continue
		}
		if s.svc.Has(ctx, isbn) {
			s.setStatus(statusWarn, fmt.Sprintf("a book with ISBN %s already exists", isbn))
			continue
		}
		title, err := s.field("Title", "")
		if err != nil {
			return err
		}
		author, err := s.field("Author", "")
		if err != nil {
			return err
		}
		d, err := s.svc.Add(ctx, models.NewBook(title, author, isbn))
		if err != nil {
			s.setStatus(statusErr, describe(err))
			continue
		}
		s.setStatus(statusOK, fmt.Sprintf("added %q by %s", d.Book.Title, d.Book.Author))
	}
}

func (s *Shell) editMode(ctx context.Context) error {
	s.setStatus(statusInfo, "")
	for {
		s.screen("Edit a book", "enter q to go back, leave a field blank to keep it")
		isbn, back, err := s.ask("ISBN of the book to edit")
		if err != nil || back {
			return err
		}
		current, err := s.svc.Get(ctx, isbn)
		if err != nil {
			s.setStatus(statusWarn, describe(err))
			continue
		}
		b := current.Book.Clone()

		newISBN, err := s.field("New ISBN", b.ISBN)
		if err != nil {
			return err
		}
		if newISBN != b.ISBN {
			if s.svc.Has(ctx, newISBN) {
				s.setStatus(statusWarn, fmt.Sprintf("ISBN %s is already taken", newISBN))
				continue
			}
		}
		if b.Title, err = s.field("New title", b.Title); err != nil {
			return err
		}
		if b.Author, err = s.field("New author", b.Author); err != nil {
			return err
		}
		b.ISBN = newISBN

		if _, err := s.svc.Update(ctx, isbn, b, ""); err != nil {
			s.setStatus(statusErr, describe(err))
			continue
		}
		s.setStatus(statusOK, fmt.Sprintf("updated %q (%s)", b.Title, b.ISBN))
	}
}

func (s *Shell) removeMode(ctx context.Context) error {
	s.setStatus(statusInfo, "")
	for {
		s.screen("Remove a book", "enter q to go back")
		isbn, back, err := s.ask("ISBN")
		if err != nil || back {
			return err
		}
		b, err := s.svc.Remove(ctx, isbn)
		if err != nil {
			s.setStatus(statusWarn, describe(err))
			continue
		}
		s.setStatus(statusOK, fmt.Sprintf("removed %q by %s", b.Title, b.Author))
	}
}

func (s *Shell) listMode(ctx context.Context) error {
	s.setStatus(statusInfo, "")
	for {
		s.screen("List books", "[a]ll  by [t]itle  by a[u]thor  [q] back")
		choice, err := s.in.Prompt("> ")
		if err != nil {
			return err
		}
		var books []models.Book
		switch menuKey(choice) {
		case "a":
			books = s.svc.List(ctx, bookservice.ListFilter{})
		case "t":
			title, err := s.field("Title", "")
			if err != nil {
				return err
			}
			books = s.svc.List(ctx, bookservice.ListFilter{Title: title})
		case "u":
			author, err := s.field("Author", "")
			if err != nil {
				return err
			}
			books = s.svc.List(ctx, bookservice.ListFilter{Author: author})
		case "q":
			s.setStatus(statusInfo, "")
			return nil
		default:
			s.setStatus(statusWarn, "choose a, t, u or q")
			continue
		}
		s.showBooks(books)
	}
}

func (s *Shell) searchMode(ctx context.Context) error {
	s.setStatus(statusInfo, "")
	for {
		s.screen("Search", fmt.Sprintf("mode: %s  (:f fuzzy, :s substring, q back)", s.mode))
		query, back, err := s.ask("Query")
		if err != nil || back {
			return err
		}
		switch query {
		case ":f":
			s.mode = catalog.ModeFuzzy
			s.setStatus(statusInfo, "fuzzy search")
			continue
		case ":s":
			s.mode = catalog.ModeSubstring
			s.setStatus(statusInfo, "substring search")
			continue
		}
		s.showBooks(s.svc.Search(ctx, s.mode, query, 0))
	}
}

func (s *Shell) convertMode(ctx context.Context) error {
	s.setStatus(statusInfo, "")
	for {
		s.screen("Convert", "[i]mport a CSV or YAML file  [e]xport the library  [q] back")
		choice, err := s.in.Prompt("> ")
		if err != nil {
			return err
		}
		switch menuKey(choice) {
		case "i":
			src, err := s.field("File to import", "")
			if err != nil {
				return err
			}
			s.importFile(ctx, src)
		case "e":
			def := strings.TrimSuffix(s.libPath, filepath.Ext(s.libPath)) + ".csv"
			dst, err := s.field("Export to", def)
			if err != nil {
				return err
			}
			s.exportFile(ctx, dst)
		case "q":
			s.setStatus(statusInfo, "")
			return nil
		default:
			s.setStatus(statusWarn, "choose i, e or q")
		}
	}
}

func (s *Shell) importFile(ctx context.Context, src string) {
	books, err := convert.ReadFile(src)
	if err != nil {
		s.setStatus(statusErr, describe(err))
		return
	}
	added, skipped := s.svc.Import(ctx, books, src)
	s.setStatus(statusOK, fmt.Sprintf("imported %d books from %s, skipped %d", added, src, skipped))
}

func (s *Shell) exportFile(ctx context.Context, dst string) {
	books := s.svc.List(ctx, bookservice.ListFilter{})
	err := convert.WriteFile(dst, books, false)
	if errors.Is(err, convert.ErrDestinationExists) {
		ok, cerr := confirm(s.in, dst+" exists. Overwrite", false)
		if cerr != nil || !ok {
			s.setStatus(statusWarn, "export cancelled")
			return
		}
		err = convert.WriteFile(dst, books, true)
	}
	if err != nil {
		s.setStatus(statusErr, describe(err))
		return
	}
	s.setStatus(statusOK, fmt.Sprintf("exported %d books to %s", len(books), dst))
}

func (s *Shell) quit(ctx context.Context) error {
	save, err := confirm(s.in, "Save library", true)
	if errors.Is(err, ErrAborted) {
		fmt.Fprintln(s.out, s.styles.Warning.Render("exiting without saving"))
		return nil
	}
	if err != nil {
		return err
	}
	if !save {
		if s.svc.Dirty() {
			fmt.Fprintln(s.out, s.styles.Warning.Render("changes discarded"))
		}
		return nil
	}
	res, err := s.svc.Save(ctx)
	if err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	fmt.Fprintln(s.out, s.styles.Success.Render(res.String()))
	return nil
}

func (s *Shell) screen(title, hint string) {
	fmt.Fprintf(s.out, "%s %s\n", s.styles.Title.Render("shelf:"), s.styles.Title.Render(title))
	fmt.Fprintln(s.out, s.styles.Menu.Render(hint))
	fmt.Fprintln(s.out, s.styles.Muted.Render(fmt.Sprintf("%d books", s.svc.Len())))
	if s.status != "" {
		fmt.Fprintln(s.out, s.statusStyle().Render(s.status))
	}
}

func (s *Shell) statusStyle() lipgloss.Style {
	switch s.kind {
	case statusOK:
		return s.styles.Success
	case statusWarn:
		return s.styles.Warning
	case statusErr:
		return s.styles.Error
	}
	return s.styles.Label
}

func (s *Shell) setStatus(k statusKind, msg string) {
	s.kind = k
	s.status = msg
}

func (s *Shell) showBooks(books []models.Book) {
	if len(books) == 0 {
		s.setStatus(statusWarn, "no books found")
		return
	}
	fmt.Fprintln(s.out, RenderBooks(s.styles, books, s.wide))
	s.setStatus(statusInfo, fmt.Sprintf("%d books", len(books)))
}

// ask prompts for a value; back is true when the user entered q.
func (s *Shell) ask(label string) (value string, back bool, err error) {
	line, err := s.in.Prompt(s.styles.Label.Render(label+": "))
	if err != nil {
		return "", false, err
	}
	line = strings.TrimSpace(line)
	if strings.EqualFold(line, "q") {
		s.setStatus(statusInfo, "")
		return "", true, nil
	}
	return line, false, nil
}

// field prompts for a value, returning def when the answer is blank.
func (s *Shell) field(label, def string) (string, error) {
	if def != "" {
		label = fmt.Sprintf("%s [%s]", label, def)
	}
	line, err := s.in.Prompt(s.styles.Label.Render(label + ": "))
	if err != nil {
		return "", err
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return def, nil
}

func confirm(in Prompter, question string, def bool) (bool, error) {
	hint := " [y/N]: "
	if def {
		hint = " [Y/n]: "
	}
	for {
		line, err := in.Prompt(question + hint)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
	}
}

func menuKey(choice string) string {
	choice = strings.ToLower(strings.TrimSpace(choice))
	if choice == "" {
		return ""
	}
	return choice[:1]
}

func describe(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "no book with that ISBN"
	case errors.Is(err, apperr.ErrDuplicateKey):
		return "a book with that ISBN already exists"
	}
	return err.Error()
}
