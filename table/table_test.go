package table

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
)

func mustRows(t *testing.T, names []string, rows ...[]any) *Table {
	t.Helper()
	tbl, err := FromRows(names, rows)
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	return tbl
}

func rowsOf(t *Table) [][]any {
	out := make([][]any, t.NumRows())
	for r := range out {
		out[r] = t.Row(r)
	}
	return out
}

func TestFromColumnsValidates(t *testing.T) {
	if _, err := FromColumns([]string{"a", "b"}, [][]any{{1}, {1, 2}}); err == nil {
		t.Error("Expected error for unequal column lengths")
	}
	if _, err := FromColumns([]string{"a", "a"}, [][]any{{1}, {2}}); err == nil {
		t.Error("Expected error for duplicate column")
	}
	if _, err := FromColumns([]string{"a"}, [][]any{{map[string]int{}}}); err == nil {
		t.Error("Expected error for unsupported value type")
	}

	tbl, err := FromColumns([]string{"a"}, [][]any{{int32(7), uint8(3), float32(1.5)}})
	if err != nil {
		t.Fatalf("FromColumns: %v", err)
	}
	col, _ := tbl.Column("a")
	if diff := cmp.Diff([]any{int64(7), int64(3), float64(1.5)}, col); diff != "" {
		t.Errorf("normalised values mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectAndSlice(t *testing.T) {
	tbl := mustRows(t, []string{"id", "x", "y"},
		[]any{1, "a", 1.5},
		[]any{2, "b", 2.5},
		[]any{3, "c", 3.5},
	)

	p, err := tbl.Project("y", "id")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if diff := cmp.Diff([]string{"y", "id"}, p.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	_, err = tbl.Project("id", "missing")
	var projErr *blockerrs.ColumnProjectionError
	if !errors.As(err, &projErr) || projErr.Column != "missing" {
		t.Fatalf("Expected ColumnProjectionError for missing, got %v", err)
	}

	s := tbl.Slice(1, 10)
	if s.NumRows() != 2 {
		t.Fatalf("Expected 2 rows, got %d", s.NumRows())
	}
	if diff := cmp.Diff([]any{int64(2), "b", 2.5}, s.Row(0)); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if e := tbl.Slice(3, 3); e.NumRows() != 0 || e.NumColumns() != 3 {
		t.Errorf("Expected empty slice with 3 columns, got %d rows %d cols", e.NumRows(), e.NumColumns())
	}
}

func TestConcat(t *testing.T) {
	a := mustRows(t, []string{"id", "x"}, []any{1, 10}, []any{2, 20})
	b := mustRows(t, []string{"x", "id"}, []any{30, 3})

	out, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat: %v", err)
	}
	want := [][]any{{int64(1), int64(10)}, {int64(2), int64(20)}, {int64(3), int64(30)}}
	if diff := cmp.Diff(want, rowsOf(out)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	c := mustRows(t, []string{"id", "y"}, []any{4, 40})
	_, err = Concat(a, c)
	if !errors.Is(err, blockerrs.ErrSchemaMismatch) {
		t.Fatalf("Expected ErrSchemaMismatch, got %v", err)
	}
}

func TestJoinNaturalLeft(t *testing.T) {
	a := mustRows(t, []string{"id", "x"}, []any{1, 10}, []any{2, 20}, []any{5, 50})
	b := mustRows(t, []string{"id", "y"}, []any{2, 200}, []any{1, 100})

	out, err := Join(a, b, JoinLeft)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if diff := cmp.Diff([]string{"id", "x", "y"}, out.Columns()); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
	want := [][]any{
		{int64(1), int64(10), int64(100)},
		{int64(2), int64(20), int64(200)},
		{int64(5), int64(50), nil},
	}
	if diff := cmp.Diff(want, rowsOf(out)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

// Duplicate keys on both sides multiply rows.
func TestJoinDuplicateKeysMultiply(t *testing.T) {
	a := mustRows(t, []string{"id", "x"}, []any{1, "a1"}, []any{1, "a2"}, []any{2, "a3"})
	b := mustRows(t, []string{"id", "y"}, []any{1, "b1"}, []any{1, "b2"}, []any{2, "b3"})

	out, err := Join(a, b, JoinLeft)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if out.NumRows() != 5 {
		t.Fatalf("Expected 2*2+1 = 5 rows, got %d", out.NumRows())
	}
	want := [][]any{
		{int64(1), "a1", "b1"},
		{int64(1), "a1", "b2"},
		{int64(1), "a2", "b1"},
		{int64(1), "a2", "b2"},
		{int64(2), "a3", "b3"},
	}
	if diff := cmp.Diff(want, rowsOf(out)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestJoinKinds(t *testing.T) {
	a := mustRows(t, []string{"id", "x"}, []any{1, 10}, []any{2, 20})
	b := mustRows(t, []string{"id", "y"}, []any{2, 200}, []any{3, 300})

	tests := []struct {
		how  JoinKind
		want [][]any
	}{
		{JoinInner, [][]any{{int64(2), int64(20), int64(200)}}},
		{JoinLeft, [][]any{{int64(1), int64(10), nil}, {int64(2), int64(20), int64(200)}}},
		{JoinRight, [][]any{{int64(2), int64(20), int64(200)}, {int64(3), nil, int64(300)}}},
		{JoinOuter, [][]any{{int64(1), int64(10), nil}, {int64(2), int64(20), int64(200)}, {int64(3), nil, int64(300)}}},
	}
	for _, tt := range tests {
		t.Run(tt.how.String(), func(t *testing.T) {
			out, err := Join(a, b, tt.how)
			if err != nil {
				t.Fatalf("Join: %v", err)
			}
			if diff := cmp.Diff(tt.want, rowsOf(out)); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJoinIntegralFloatMatchesInt(t *testing.T) {
	a := mustRows(t, []string{"id", "x"}, []any{1, "a"})
	b := mustRows(t, []string{"id", "y"}, []any{1.0, "b"})

	out, err := Join(a, b, JoinInner)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if out.NumRows() != 1 {
		t.Errorf("Expected 1 row, got %d", out.NumRows())
	}
}

func TestJoinFloatKeyOutOfIntRange(t *testing.T) {
	// float64(math.MaxInt64) is 2^63, which has no int64 equivalent.
	a := mustRows(t, []string{"id", "x"}, []any{float64(math.MaxInt64), "a"})
	b := mustRows(t, []string{"id", "y"}, []any{int64(math.MinInt64), "b"})

	out, err := Join(a, b, JoinInner)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if out.NumRows() != 0 {
		t.Errorf("Expected no matches, got %v", rowsOf(out))
	}

	c := mustRows(t, []string{"id", "z"}, []any{float64(math.MinInt64), "c"})
	out, err = Join(b, c, JoinInner)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if out.NumRows() != 1 {
		t.Errorf("Expected -2^63 to match across types, got %d rows", out.NumRows())
	}
}

func TestJoinPositional(t *testing.T) {
	a := mustRows(t, []string{"x"}, []any{1}, []any{2})
	b := mustRows(t, []string{"y"}, []any{"p"}, []any{"q"})

	out, err := Join(a, b, JoinLeft)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	want := [][]any{{int64(1), "p"}, {int64(2), "q"}}
	if diff := cmp.Diff(want, rowsOf(out)); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	c := mustRows(t, []string{"z"}, []any{true})
	_, err = Join(a, c, JoinLeft)
	var rcErr *blockerrs.RowCountMismatchError
	if !errors.As(err, &rcErr) {
		t.Fatalf("Expected RowCountMismatchError, got %v", err)
	}
	if rcErr.Left != 2 || rcErr.Right != 1 {
		t.Errorf("Expected counts 2 vs 1, got %d vs %d", rcErr.Left, rcErr.Right)
	}
}

func TestParseJoin(t *testing.T) {
	for in, want := range map[string]JoinKind{"": JoinLeft, "LEFT": JoinLeft, "inner": JoinInner, "right": JoinRight, "outer": JoinOuter} {
		got, err := ParseJoin(in)
		if err != nil || got != want {
			t.Errorf("ParseJoin(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseJoin("cross"); !errors.Is(err, blockerrs.ErrInvalidOptions) {
		t.Errorf("Expected ErrInvalidOptions, got %v", err)
	}
}
