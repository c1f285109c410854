// Package sheets lays a projection out as tables and defines the port the
// spreadsheet adapters implement.
package sheets

import "context"

// Table is a header row plus data rows. Cell values are strings, numbers or
// booleans so every adapter can write them without further conversion.
type Table struct {
	Header []string
	Rows   [][]any
}

// TableWriter replaces the contents of a named tab with a table.
type TableWriter interface {
	WriteTable(ctx context.Context, name string, t Table) error
}
