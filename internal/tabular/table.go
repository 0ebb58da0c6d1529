package tabular

import (
	"time"
)

// Table is an in-memory tabular slice of a source feed, limited to the
// columns a mapping asked for. Cells are kept as raw strings; columns that
// were declared as dates are additionally parsed into a per-column series.
type Table struct {
	Columns []string

	colIdx map[string]int
	rows   [][]string
	dates  map[string][]*time.Time
}

func newTable(columns []string) *Table {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c] = i
	}
	return &Table{
		Columns: columns,
		colIdx:  idx,
		dates:   make(map[string][]*time.Time),
	}
}

// Len returns the number of rows in the table.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns an accessor for row i.
func (t *Table) Row(i int) Row {
	return Row{table: t, index: i}
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.colIdx[name]
	return ok
}

func (t *Table) appendRow(cells []string) {
	t.rows = append(t.rows, cells)
}

// Row is a view over a single table row. All mappings extract their values
// through Row so that "column not configured", "column configured but empty"
// and "column configured but holds a known placeholder" are normalized the
// same way everywhere.
type Row struct {
	table *Table
	index int
}

// Lookup returns the raw cell for the named column, and whether the column
// exists in the table at all.
func (r Row) Lookup(column string) (string, bool) {
	i, ok := r.table.colIdx[column]
	if !ok {
		return "", false
	}
	return r.table.rows[r.index][i], true
}

// Value extracts a single cell with a three-tier fallback: an unset column
// reference yields the default, a column absent from the table yields the
// default, and an empty cell or a raw value that is a member of naValues
// yields the default. A configured column whose cell is empty behaves the
// same as a column that was never configured.
func (r Row) Value(column, def string, naValues []string) string {
	if column == "" {
		return def
	}
	raw, ok := r.Lookup(column)
	if !ok || raw == "" {
		return def
	}
	for _, na := range naValues {
		if raw == na {
			return def
		}
	}
	return raw
}

// Date returns the parsed date for a column that was declared in
// ParseDates, or nil when the value did not parse (or the column was not a
// date column).
func (r Row) Date(column string) *time.Time {
	series, ok := r.table.dates[column]
	if !ok {
		return nil
	}
	return series[r.index]
}

// IsEmpty reports whether every cell in the row is the empty string.
func (r Row) IsEmpty() bool {
	for _, cell := range r.table.rows[r.index] {
		if cell != "" {
			return false
		}
	}
	return true
}
