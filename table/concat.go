package table

import (
	"sort"

	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
)

// Concat stacks tables row-wise in argument order. Every input must have the
// same set of columns; columns are emitted in the first table's order.
// No inputs yields an empty table with no columns.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return &Table{index: map[string]int{}}, nil
	}
	first := tables[0]
	total := 0
	for _, t := range tables {
		if !sameColumnSet(first, t) {
			return nil, &blockerrs.SchemaMismatchError{
				Expected: sorted(first.names),
				Got:      sorted(t.names),
			}
		}
		total += t.rows
	}

	cols := make([][]any, len(first.names))
	for i := range cols {
		cols[i] = make([]any, 0, total)
	}
	for _, t := range tables {
		for i, name := range first.names {
			cols[i] = append(cols[i], t.cols[t.index[name]]...)
		}
	}
	return &Table{
		names: append([]string(nil), first.names...),
		index: first.cloneIndex(),
		cols:  cols,
		rows:  total,
	}, nil
}

func sameColumnSet(a, b *Table) bool {
	if len(a.names) != len(b.names) {
		return false
	}
	for _, n := range a.names {
		if _, ok := b.index[n]; !ok {
			return false
		}
	}
	return true
}

func sorted(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}
