package shell

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/starford/shelf/internal/models"
)

var (
	shortColumns = []string{models.FieldTitle, models.FieldAuthor, models.FieldISBN}
	columnNames  = map[string]string{
		models.FieldTitle:     "Title",
		models.FieldAuthor:    "Author",
		models.FieldISBN:      "ISBN",
		models.FieldPublisher: "Publisher",
		models.FieldCover:     "Cover",
		models.FieldCategory:  "Category",
		models.FieldEdition:   "Edition",
		models.FieldYear:      "Year",
		models.FieldPages:     "Pages",
	}
)

// RenderBooks renders books as a table. Wide tables show every canonical
// field, otherwise only title, author and ISBN.
func RenderBooks(st Styles, books []models.Book, wide bool) string {
	cols := shortColumns
	if wide {
		cols = models.CanonicalFields()
	}

	headers := make([]string, len(cols))
	for i, c := range cols {
		headers[i] = columnNames[c]
	}
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i], _ = b.Get(c)
		}
		rows = append(rows, row)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.Border).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.Header
			}
			return st.Cell
		})
	return t.String()
}
