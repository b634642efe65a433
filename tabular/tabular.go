// Package tabular provides small column-labeled result tables.
//
// A Table owns its cells; rendering through go-pretty happens only in
// String. Column names are preserved verbatim, including unit suffixes
// like "distance [mm]", so downstream consumers can key on them.
package tabular

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/cwbudde/algo-mcg/errs"
)

// Table is an append-only table with labeled columns.
type Table struct {
	columns []string
	rows    [][]any
}

// New creates a table with the given column names.
func New(columns ...string) *Table {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols}
}

// Append adds one row. The cell count must match the column count.
func (t *Table) Append(row ...any) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("tabular: row has %d cells for %d columns: %w",
			len(row), len(t.columns), errs.ErrShape)
	}
	cells := make([]any, len(row))
	copy(cells, row)
	t.rows = append(t.rows, cells)
	return nil
}

// Columns returns a copy of the column names.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Rows returns a copy of all rows.
func (t *Table) Rows() [][]any {
	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		rows[i] = make([]any, len(r))
		copy(rows[i], r)
	}
	return rows
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]any, error) {
	idx := -1
	for i, c := range t.columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("tabular: no column %q: %w", name, errs.ErrNotFound)
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[idx]
	}
	return out, nil
}

// String renders the table in a fixed-width light style.
func (t *Table) String() string {
	w := table.NewWriter()
	w.SetStyle(table.StyleLight)

	header := make(table.Row, len(t.columns))
	for i, c := range t.columns {
		header[i] = c
	}
	w.AppendHeader(header)

	for _, r := range t.rows {
		row := make(table.Row, len(r))
		copy(row, r)
		w.AppendRow(row)
	}
	return w.Render()
}
