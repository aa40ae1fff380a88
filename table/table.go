// Package table holds the in-memory tabular value that blocks are read into and
// written from: an ordered list of named columns of equal length.
//
// Row order is meaningful. Values are normalised to nil, bool, int64, float64,
// string or time.Time so that equality and join keys behave the same regardless
// of the codec that produced them.
package table

import (
	"fmt"
	"reflect"

	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
)

// Table is column-major. The zero value is an empty table with no columns.
type Table struct {
	names []string
	index map[string]int
	cols  [][]any
	rows  int
}

// New returns an empty table with the given columns.
func New(names ...string) (*Table, error) {
	cols := make([][]any, len(names))
	for i := range cols {
		cols[i] = []any{}
	}
	return FromColumns(names, cols)
}

// FromColumns builds a table from column slices. Values are normalised in place.
func FromColumns(names []string, cols [][]any) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("table: %d column names for %d columns", len(names), len(cols))
	}
	t := &Table{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
		cols:  cols,
	}
	for i, n := range names {
		if _, dup := t.index[n]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", n)
		}
		t.index[n] = i
	}
	for i, c := range cols {
		if i == 0 {
			t.rows = len(c)
		} else if len(c) != t.rows {
			return nil, fmt.Errorf("table: column %q has %d rows, expected %d", names[i], len(c), t.rows)
		}
		for j, v := range c {
			nv, err := Normalize(v)
			if err != nil {
				return nil, fmt.Errorf("table: column %q row %d: %w", names[i], j, err)
			}
			c[j] = nv
		}
	}
	return t, nil
}

// FromRows builds a table from row slices, each with one value per column.
func FromRows(names []string, rows [][]any) (*Table, error) {
	cols := make([][]any, len(names))
	for i := range cols {
		cols[i] = make([]any, len(rows))
	}
	for r, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("table: row %d has %d values, expected %d", r, len(row), len(names))
		}
		for c, v := range row {
			cols[c][r] = v
		}
	}
	return FromColumns(names, cols)
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.names...)
}

func (t *Table) NumColumns() int { return len(t.names) }

func (t *Table) NumRows() int { return t.rows }

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the values of column name. The slice is shared with the table.
func (t *Table) Column(name string) ([]any, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// ColumnAt returns the values of the i'th column. The slice is shared with the table.
func (t *Table) ColumnAt(i int) []any {
	return t.cols[i]
}

// Row returns a fresh copy of row r.
func (t *Table) Row(r int) []any {
	row := make([]any, len(t.cols))
	for c := range t.cols {
		row[c] = t.cols[c][r]
	}
	return row
}

// Project returns a table with only the named columns, in the order given.
// Column data is shared with t.
func (t *Table) Project(names ...string) (*Table, error) {
	cols := make([][]any, len(names))
	for i, n := range names {
		j, ok := t.index[n]
		if !ok {
			return nil, &blockerrs.ColumnProjectionError{Column: n}
		}
		cols[i] = t.cols[j]
	}
	p := &Table{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
		cols:  cols,
		rows:  t.rows,
	}
	for i, n := range names {
		if _, dup := p.index[n]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", n)
		}
		p.index[n] = i
	}
	return p, nil
}

// Slice returns rows [start, end) as a new table with its own column slices.
func (t *Table) Slice(start, end int) *Table {
	if start < 0 {
		start = 0
	}
	if end > t.rows {
		end = t.rows
	}
	if end < start {
		end = start
	}
	cols := make([][]any, len(t.cols))
	for i, c := range t.cols {
		cols[i] = append([]any{}, c[start:end]...)
	}
	return &Table{
		names: append([]string(nil), t.names...),
		index: t.cloneIndex(),
		cols:  cols,
		rows:  end - start,
	}
}

// Equal reports whether a and b have the same columns in the same order and
// identical values row by row.
func Equal(a, b *Table) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.rows != b.rows || !reflect.DeepEqual(a.names, b.names) {
		return false
	}
	for i := range a.cols {
		for r := 0; r < a.rows; r++ {
			if !valueEqual(a.cols[i][r], b.cols[i][r]) {
				return false
			}
		}
	}
	return true
}

func (t *Table) cloneIndex() map[string]int {
	idx := make(map[string]int, len(t.index))
	for k, v := range t.index {
		idx[k] = v
	}
	return idx
}
