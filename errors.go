package blocks

import blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"

type (
	NoMatchError          = blockerrs.NoMatchError
	RaggedLayoutError     = blockerrs.RaggedLayoutError
	AmbiguousLayoutError  = blockerrs.AmbiguousLayoutError
	RowCountMismatchError = blockerrs.RowCountMismatchError
	SchemaMismatchError   = blockerrs.SchemaMismatchError
	ColumnProjectionError = blockerrs.ColumnProjectionError
)

var (
	ErrNoMatch          = blockerrs.ErrNoMatch
	ErrRaggedLayout     = blockerrs.ErrRaggedLayout
	ErrAmbiguousLayout  = blockerrs.ErrAmbiguousLayout
	ErrRowCountMismatch = blockerrs.ErrRowCountMismatch
	ErrSchemaMismatch   = blockerrs.ErrSchemaMismatch
	ErrColumnProjection = blockerrs.ErrColumnProjection
	ErrUnknownFormat    = blockerrs.ErrUnknownFormat
	ErrInvalidOptions   = blockerrs.ErrInvalidOptions
	ErrInvalidAxis      = blockerrs.ErrInvalidAxis
)
