package table

import (
	"fmt"
	"strings"

	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
)

// JoinKind selects which unmatched rows survive a keyed join.
type JoinKind int

const (
	JoinLeft JoinKind = iota
	JoinInner
	JoinRight
	JoinOuter
)

func (k JoinKind) String() string {
	switch k {
	case JoinLeft:
		return "left"
	case JoinInner:
		return "inner"
	case JoinRight:
		return "right"
	case JoinOuter:
		return "outer"
	default:
		return fmt.Sprintf("JoinKind(%d)", int(k))
	}
}

// ParseJoin maps "left", "inner", "right" or "outer" to a JoinKind. Empty means left.
func ParseJoin(s string) (JoinKind, error) {
	switch strings.ToLower(s) {
	case "", "left":
		return JoinLeft, nil
	case "inner":
		return JoinInner, nil
	case "right":
		return JoinRight, nil
	case "outer":
		return JoinOuter, nil
	}
	return 0, blockerrs.Invalid("unknown join %q (want left, inner, right or outer)", s)
}

// SharedColumns returns the columns present in both tables, in left order.
func SharedColumns(left, right *Table) []string {
	var shared []string
	for _, n := range left.names {
		if _, ok := right.index[n]; ok {
			shared = append(shared, n)
		}
	}
	return shared
}

// Join merges right into left using every shared column name as the key.
//
// Output columns are left's columns followed by right's non-key columns. Rows
// follow left order (right order for JoinRight); a key that repeats on both
// sides produces one row per matching pair. Unmatched rows are kept according
// to how, with nil in the columns of the other side.
//
// When the tables share no columns the join is positional: rows are paired by
// index and the row counts must be equal.
func Join(left, right *Table, how JoinKind) (*Table, error) {
	keys := SharedColumns(left, right)

	var extra []int
	names := append([]string(nil), left.names...)
	for i, n := range right.names {
		if _, shared := left.index[n]; !shared {
			extra = append(extra, i)
			names = append(names, n)
		}
	}

	if len(keys) == 0 {
		if left.rows != right.rows {
			return nil, &blockerrs.RowCountMismatchError{Left: left.rows, Right: right.rows}
		}
		cols := make([][]any, 0, len(names))
		for _, c := range left.cols {
			cols = append(cols, append([]any{}, c...))
		}
		for _, i := range extra {
			cols = append(cols, append([]any{}, right.cols[i]...))
		}
		return FromColumns(names, cols)
	}

	leftKeys := make([]int, len(keys))
	rightKeys := make([]int, len(keys))
	for i, k := range keys {
		leftKeys[i] = left.index[k]
		rightKeys[i] = right.index[k]
	}

	out := &joinBuilder{cols: make([][]any, len(names))}
	emit := func(l, r int) {
		c := 0
		for li := range left.cols {
			if l >= 0 {
				out.cols[c] = append(out.cols[c], left.cols[li][l])
			} else {
				out.cols[c] = append(out.cols[c], nil)
			}
			c++
		}
		for _, ri := range extra {
			if r >= 0 {
				out.cols[c] = append(out.cols[c], right.cols[ri][r])
			} else {
				out.cols[c] = append(out.cols[c], nil)
			}
			c++
		}
		if l < 0 {
			// Right-only row: key values come from the right side.
			n := len(out.cols[0]) - 1
			for i, li := range leftKeys {
				out.cols[li][n] = right.cols[rightKeys[i]][r]
			}
		}
	}

	if how == JoinRight {
		leftIdx := buildIndex(left, leftKeys)
		for r := 0; r < right.rows; r++ {
			matches := leftIdx[keyOf(right.cols, rightKeys, r)]
			if len(matches) == 0 {
				emit(-1, r)
				continue
			}
			for _, l := range matches {
				emit(l, r)
			}
		}
		return FromColumns(names, out.finish(len(names)))
	}

	rightIdx := buildIndex(right, rightKeys)
	var matched []bool
	if how == JoinOuter {
		matched = make([]bool, right.rows)
	}
	for l := 0; l < left.rows; l++ {
		matches := rightIdx[keyOf(left.cols, leftKeys, l)]
		if len(matches) == 0 {
			if how != JoinInner {
				emit(l, -1)
			}
			continue
		}
		for _, r := range matches {
			emit(l, r)
			if matched != nil {
				matched[r] = true
			}
		}
	}
	for r, ok := range matched {
		if !ok {
			emit(-1, r)
		}
	}
	return FromColumns(names, out.finish(len(names)))
}

type joinBuilder struct {
	cols [][]any
}

func (b *joinBuilder) finish(n int) [][]any {
	for i := 0; i < n; i++ {
		if b.cols[i] == nil {
			b.cols[i] = []any{}
		}
	}
	return b.cols
}

func buildIndex(t *Table, keyCols []int) map[string][]int {
	idx := make(map[string][]int, t.rows)
	for r := 0; r < t.rows; r++ {
		k := keyOf(t.cols, keyCols, r)
		idx[k] = append(idx[k], r)
	}
	return idx
}
