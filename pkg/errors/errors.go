package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every typed error below matches exactly one of these with errors.Is.
var (
	// ErrNoMatch is returned when a pattern matched zero files
	ErrNoMatch = errors.New("pattern matched no files")

	// ErrRaggedLayout is returned when the grid is not rectangular across cgroups/rgroups
	ErrRaggedLayout = errors.New("ragged block layout")

	// ErrAmbiguousLayout is returned when two paths map to the same grid cell
	ErrAmbiguousLayout = errors.New("ambiguous block layout")

	// ErrRowCountMismatch is returned by a keyless column merge with unequal row counts
	ErrRowCountMismatch = errors.New("row count mismatch")

	// ErrSchemaMismatch is returned when concatenated rgroups have differing column sets
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrColumnProjection is returned when a requested column is absent from a table
	ErrColumnProjection = errors.New("column projection failed")

	// ErrUnknownFormat is returned when no codec is registered for a file extension
	ErrUnknownFormat = errors.New("unknown table format")

	// ErrInvalidOptions is returned when an option record fails validation
	ErrInvalidOptions = errors.New("invalid options")

	// ErrInvalidAxis is returned for an iteration axis outside None/RGroup/CGroup
	ErrInvalidAxis = errors.New("invalid axis")
)

// NoMatchError names the pattern that matched nothing.
type NoMatchError struct {
	Pattern string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("did not find any files at the path: %s", e.Pattern)
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// RaggedLayoutError names the (cgroup, rgroup) combination missing from the grid.
type RaggedLayoutError struct {
	CGroup string
	RGroup string
}

func (e *RaggedLayoutError) Error() string {
	return fmt.Sprintf("ragged block layout: cgroup %q has no rgroup %q", e.CGroup, e.RGroup)
}

func (e *RaggedLayoutError) Is(target error) bool { return target == ErrRaggedLayout }

// AmbiguousLayoutError names the two paths that resolved to the same cell.
type AmbiguousLayoutError struct {
	CGroup string
	RGroup string
	Paths  [2]string
}

func (e *AmbiguousLayoutError) Error() string {
	return fmt.Sprintf("ambiguous block layout: %s and %s both resolve to cgroup %q rgroup %q",
		e.Paths[0], e.Paths[1], e.CGroup, e.RGroup)
}

func (e *AmbiguousLayoutError) Is(target error) bool { return target == ErrAmbiguousLayout }

// RowCountMismatchError is raised by a keyless (positional) column merge.
type RowCountMismatchError struct {
	RGroup string
	CGroup string
	Left   int
	Right  int
}

func (e *RowCountMismatchError) Error() string {
	where := ""
	if e.RGroup != "" || e.CGroup != "" {
		where = fmt.Sprintf(" (rgroup %q, cgroup %q)", e.RGroup, e.CGroup)
	}
	return fmt.Sprintf("cgroups share no columns and have different row counts: %d vs %d%s",
		e.Left, e.Right, where)
}

func (e *RowCountMismatchError) Is(target error) bool { return target == ErrRowCountMismatch }

// SchemaMismatchError is raised by a row concat whose inputs differ in column set.
// CGroup is set when every input came from one cgroup; Label names the
// first rgroup whose columns differ.
type SchemaMismatchError struct {
	CGroup   string
	Label    string
	Expected []string
	Got      []string
}

func (e *SchemaMismatchError) Error() string {
	where := ""
	if e.CGroup != "" {
		where = fmt.Sprintf(" in cgroup %q", e.CGroup)
	}
	if e.Label != "" {
		where += fmt.Sprintf(" at %q", e.Label)
	}
	return fmt.Sprintf("schema mismatch%s: expected columns [%s], got [%s]",
		where, strings.Join(e.Expected, ", "), strings.Join(e.Got, ", "))
}

func (e *SchemaMismatchError) Is(target error) bool { return target == ErrSchemaMismatch }

// ColumnProjectionError names the column missing from the source table.
type ColumnProjectionError struct {
	CGroup string
	Column string
}

func (e *ColumnProjectionError) Error() string {
	if e.CGroup == "" {
		return fmt.Sprintf("column %q not present in table", e.Column)
	}
	return fmt.Sprintf("cgroup %q requests column %q which is not present in table", e.CGroup, e.Column)
}

func (e *ColumnProjectionError) Is(target error) bool { return target == ErrColumnProjection }

// Invalid wraps a validation message in ErrInvalidOptions.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOptions, fmt.Sprintf(format, args...))
}
