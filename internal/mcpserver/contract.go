package mcpserver

// RecordFormat describes a library book record for LLM consumers.
const RecordFormat = `# Shelf Book Record Format

A library is a list of flat book records. Every value is a string.

## Fields

| Field     | Required | Default   | Notes                              |
|-----------|----------|-----------|------------------------------------|
| isbn      | yes      |           | Primary key, unique in the library |
| title     | yes      |           | Not blank                          |
| author    | yes      |           | Not blank                          |
| publisher | no       | not_set   |                                    |
| cover     | no       | not_set   | e.g. hardcover, paperback          |
| category  | no       | not_set   |                                    |
| edition   | no       | 0         | Digits, stored as text             |
| year      | no       | 0         | Digits, stored as text             |
| pages     | no       | 0         | Digits, stored as text             |

Additional flat attributes are kept as given. Nested objects and lists are rejected.

## Rules

1. **ISBN is the identity.** Adding a book whose ISBN is already present fails;
   remove the old record first or use a different ISBN.
2. **Titles and authors are matched exactly** by list_books. Use search_books for
   partial or approximate matches.
3. **Order matters.** Books are kept in the order they were added; an edited book
   moves to the end.

## Example

` + "```" + `json
{
    "title": "Dune",
    "author": "Frank Herbert",
    "isbn": "9780441013593",
    "publisher": "Ace",
    "cover": "paperback",
    "category": "science fiction",
    "edition": "1",
    "year": "1965",
    "pages": "896"
}
` + "```" + `
`
