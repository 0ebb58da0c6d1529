// Package tabular streams delimited or fixed-width partner feeds into
// bounded-size chunks and concatenates the surviving rows into one in-memory
// table. The chunked path runs at every size so tests exercise the same code
// as production.
package tabular

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

// DefaultChunkSize bounds how many rows are held before the chunk is
// filtered and appended to the table.
const DefaultChunkSize = 1024

// ReadOptions controls a single table read.
type ReadOptions struct {
	// Columns is the set of columns to keep, in mapping order. A column
	// listed here but absent from the source is a read error.
	Columns []string

	// ParseDates lists the subset of Columns that hold dates.
	ParseDates []string

	// FilterColumn, when set, keeps only rows whose value in that column is
	// a member of FilterValues. If the source does not carry the column,
	// filtering is skipped rather than failing.
	FilterColumn string
	FilterValues map[string]struct{}

	// Separator for delimited reads. Defaults to ','.
	Separator rune

	// ChunkSize overrides DefaultChunkSize; tests use small sizes.
	ChunkSize int

	// FastDates defers date parsing to a single bulk pass after the table
	// is assembled. Fast mode never applies the year-2100 clamp;
	// out-of-range dates are dropped instead.
	FastDates bool
}

func (o *ReadOptions) chunkSize() int {
	if o.ChunkSize > 0 {
		return o.ChunkSize
	}
	return DefaultChunkSize
}

func (o *ReadOptions) separator() rune {
	if o.Separator != 0 {
		return o.Separator
	}
	return ','
}

// ReadDelimited parses raw delimited text with a header row into a table
// holding opts.Columns only. Rows are consumed in fixed-size chunks, each
// chunk is filtered, and chunks are concatenated in original row order.
// Cancellation is honored between chunks, not mid-chunk.
func ReadDelimited(ctx context.Context, contents string, opts ReadOptions) (*Table, error) {
	cr := csv.NewReader(strings.NewReader(contents))
	cr.Comma = opts.separator()
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	pick, err := columnPicker(header, opts.Columns)
	if err != nil {
		return nil, err
	}

	next := func() ([]string, error) {
		record, err := cr.Read()
		if err != nil {
			return nil, err
		}
		return pick(record), nil
	}
	return assemble(ctx, next, opts, headerHasColumn(header, opts.FilterColumn))
}

// ColumnWidth names one fixed-width field and its width in characters.
// Fixed-width feeds have no header row; column order supplies identity.
type ColumnWidth struct {
	Name  string
	Width int
}

// ReadFixedWidth parses headerless fixed-width text using an explicit
// column-width map, keeping opts.Columns only.
func ReadFixedWidth(ctx context.Context, contents string, widths []ColumnWidth, opts ReadOptions) (*Table, error) {
	all := make([]string, len(widths))
	for i, w := range widths {
		all[i] = w.Name
	}
	pick, err := columnPicker(all, opts.Columns)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimRight(contents, "\n"), "\n")
	lineNo := 0
	next := func() ([]string, error) {
		if lineNo >= len(lines) {
			return nil, io.EOF
		}
		line := strings.TrimRight(lines[lineNo], "\r")
		lineNo++
		record := make([]string, len(widths))
		pos := 0
		for i, w := range widths {
			end := pos + w.Width
			if end > len(line) {
				end = len(line)
			}
			if pos < len(line) {
				record[i] = strings.TrimSpace(line[pos:end])
			}
			pos += w.Width
		}
		return pick(record), nil
	}
	return assemble(ctx, next, opts, headerHasColumn(all, opts.FilterColumn))
}

// columnPicker validates that every wanted column exists in the source and
// returns a function projecting a raw record onto the wanted columns.
func columnPicker(header, wanted []string) (func([]string) []string, error) {
	indexes := make([]int, len(wanted))
	for i, name := range wanted {
		found := -1
		for j, h := range header {
			if h == name {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("column %q not found in source", name)
		}
		indexes[i] = found
	}
	return func(record []string) []string {
		cells := make([]string, len(indexes))
		for i, j := range indexes {
			if j < len(record) {
				cells[i] = record[j]
			}
		}
		return cells
	}, nil
}

func headerHasColumn(header []string, name string) bool {
	if name == "" {
		return false
	}
	for _, h := range header {
		if h == name {
			return true
		}
	}
	return false
}

// assemble drives the chunked read loop: pull up to ChunkSize rows, filter
// the chunk, concatenate. Date columns parse per-row in resilient mode and
// in one bulk pass afterward in fast mode.
func assemble(ctx context.Context, next func() ([]string, error), opts ReadOptions, canFilter bool) (*Table, error) {
	table := newTable(opts.Columns)

	filterIdx := -1
	if canFilter && len(opts.FilterValues) > 0 {
		for i, c := range opts.Columns {
			if c == opts.FilterColumn {
				filterIdx = i
			}
		}
	}

	chunk := make([][]string, 0, opts.chunkSize())
	flush := func() {
		for _, cells := range chunk {
			if filterIdx >= 0 {
				if _, ok := opts.FilterValues[cells[filterIdx]]; !ok {
					continue
				}
			}
			table.appendRow(cells)
		}
		chunk = chunk[:0]
	}

	for {
		cells, err := next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		chunk = append(chunk, cells)
		if len(chunk) >= opts.chunkSize() {
			flush()
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	flush()

	parse := ParseDate
	if opts.FastDates {
		parse = ParseDateFast
	}
	for _, col := range opts.ParseDates {
		if !table.HasColumn(col) {
			continue
		}
		series := make([]*time.Time, table.Len())
		for i := 0; i < table.Len(); i++ {
			raw, _ := table.Row(i).Lookup(col)
			series[i] = parse(raw)
		}
		table.dates[col] = series
	}

	return table, nil
}

// Header returns the trimmed header row of a delimited feed, for matching
// the file against the known mappings before the full read.
func Header(contents string, sep rune) ([]string, error) {
	cr := csv.NewReader(strings.NewReader(contents))
	if sep != 0 {
		cr.Comma = sep
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return header, nil
}

// ValuesFromColumn extracts the set of all values present in one column of a
// delimited feed. Used to build plan rosters from demographics files.
func ValuesFromColumn(ctx context.Context, contents, column string, sep rune) (map[string]struct{}, error) {
	table, err := ReadDelimited(ctx, contents, ReadOptions{
		Columns:   []string{column},
		Separator: sep,
	})
	if err != nil {
		return nil, err
	}
	values := make(map[string]struct{}, table.Len())
	for i := 0; i < table.Len(); i++ {
		raw, _ := table.Row(i).Lookup(column)
		values[raw] = struct{}{}
	}
	return values, nil
}
