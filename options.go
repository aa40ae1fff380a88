package blocks

import (
	"log/slog"

	"github.com/kartikbazzad/bunbase/blocks/codec"
	"github.com/kartikbazzad/bunbase/blocks/pkg/logger"
	"github.com/kartikbazzad/bunbase/blocks/storage"
	"github.com/kartikbazzad/bunbase/blocks/table"
)

// DefaultExtension is the file extension Divide writes when none is given.
const DefaultExtension = ".cbor"

// ReadOptions configures Resolve, Assemble, Iterate and ReadBlock.
type ReadOptions struct {
	// FileSystem to read from. Nil means the local filesystem.
	FileSystem storage.FileSystem

	// CGroups restricts reading to these cgroups and merges them in this
	// order. Nil reads every cgroup in name order.
	CGroups []string
	// RGroups restricts reading to these rgroups. Nil reads all of them.
	RGroups []string

	// Read is passed to the codec for every file.
	Read codec.Options
	// CGroupRead overlays Read for the files of one cgroup.
	CGroupRead map[string]codec.Options

	// Join is how cgroups of one rgroup are merged. The zero value is a
	// natural left join.
	Join table.JoinKind

	Logger *slog.Logger
}

func (o *ReadOptions) withDefaults() *ReadOptions {
	out := ReadOptions{}
	if o != nil {
		out = *o
	}
	if out.FileSystem == nil {
		out.FileSystem = storage.NewLocal()
	}
	out.Logger = logger.Or(out.Logger)
	return &out
}

// codecOptions returns the codec options for files of cgroup.
func (o *ReadOptions) codecOptions(cgroup string) codec.Options {
	if overlay, ok := o.CGroupRead[cgroup]; ok {
		return codec.Merge(o.Read, overlay)
	}
	return o.Read
}

// DivideOptions configures Divide.
type DivideOptions struct {
	// FileSystem to write to. Nil means the local filesystem.
	FileSystem storage.FileSystem

	// NRGroup is the number of rgroups to write. Ignored when RowGroupSize
	// is set. Zero means one.
	NRGroup int
	// RowGroupSize is the number of rows per rgroup; the last one holds the
	// remainder.
	RowGroupSize int
	// RGroupOffset is the index of the first rgroup file, so repeated
	// divides into one destination can append without collisions.
	RGroupOffset int

	// CGroupColumns assigns columns to cgroups. Each cgroup is written to
	// its own subdirectory. Nil writes ungrouped files.
	CGroupColumns map[string][]string

	// Extension selects the output format, ".cbor" by default.
	Extension string
	// Write is passed to the codec for every file.
	Write codec.Options

	Logger *slog.Logger
}

func (o *DivideOptions) withDefaults() *DivideOptions {
	out := DivideOptions{}
	if o != nil {
		out = *o
	}
	if out.FileSystem == nil {
		out.FileSystem = storage.NewLocal()
	}
	if out.Extension == "" {
		out.Extension = DefaultExtension
	}
	out.Logger = logger.Or(out.Logger)
	return &out
}

// PlaceOptions configures Place.
type PlaceOptions struct {
	// FileSystem to write to. Nil means the local filesystem.
	FileSystem storage.FileSystem
	// Write is passed to the codec.
	Write codec.Options

	Logger *slog.Logger
}

func (o *PlaceOptions) withDefaults() *PlaceOptions {
	out := PlaceOptions{}
	if o != nil {
		out = *o
	}
	if out.FileSystem == nil {
		out.FileSystem = storage.NewLocal()
	}
	out.Logger = logger.Or(out.Logger)
	return &out
}
