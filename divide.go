package blocks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kartikbazzad/bunbase/blocks/codec"
	"github.com/kartikbazzad/bunbase/blocks/metrics"
	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
	"github.com/kartikbazzad/bunbase/blocks/storage"
	"github.com/kartikbazzad/bunbase/blocks/table"
)

// RGroupName is the file name of the rgroup with the given index.
func RGroupName(index int, ext string) string {
	return fmt.Sprintf("part_%05d%s", index, ext)
}

// Divide writes t under destination as a grid of files and returns the
// written paths, rgroup by rgroup.
//
// Rows are cut into contiguous slices in their original order. With
// RowGroupSize every slice has that many rows except the last; otherwise
// there are exactly NRGroup slices of ceil(rows/NRGroup) rows, the last
// holding the remainder (it may be empty). Slice i is named
// part_<RGroupOffset+i><Extension>.
//
// With CGroupColumns every slice is projected onto each cgroup's columns
// and written to destination/<cgroup>/. A cgroup naming a column t does not
// have is a ColumnProjectionError, reported before anything is written.
func Divide(ctx context.Context, t *table.Table, destination string, opts *DivideOptions) (paths []string, err error) {
	start := time.Now()
	defer func() { metrics.Observe("divide", start, err) }()

	o := opts.withDefaults()
	if err := o.validate(); err != nil {
		return nil, err
	}
	cgroups, err := projectCGroups(t, o.CGroupColumns)
	if err != nil {
		return nil, err
	}

	bounds := sliceBounds(t.NumRows(), o.NRGroup, o.RowGroupSize)

	dirs := []string{destination}
	if cgroups != nil {
		dirs = dirs[:0]
		for _, cg := range cgroups {
			dirs = append(dirs, storage.Join(destination, cg.name))
		}
	}
	for _, d := range dirs {
		if err := o.FileSystem.MkdirAll(ctx, d); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", d, err)
		}
	}

	for i, b := range bounds {
		slice := t.Slice(b[0], b[1])
		name := RGroupName(o.RGroupOffset+i, o.Extension)
		if cgroups == nil {
			p := storage.Join(destination, name)
			if err := writeFile(ctx, o.FileSystem, p, slice, o.Write); err != nil {
				return paths, err
			}
			o.Logger.Debug("wrote block", "path", p, "rows", slice.NumRows())
			paths = append(paths, p)
			continue
		}
		for _, cg := range cgroups {
			part, err := slice.Project(cg.columns...)
			if err != nil {
				return paths, err
			}
			p := storage.Join(destination, cg.name, name)
			if err := writeFile(ctx, o.FileSystem, p, part, o.Write); err != nil {
				return paths, err
			}
			o.Logger.Debug("wrote block", "path", p, "cgroup", cg.name, "rows", part.NumRows())
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (o *DivideOptions) validate() error {
	if o.NRGroup < 0 {
		return blockerrs.Invalid("n_rgroup must not be negative, got %d", o.NRGroup)
	}
	if o.RowGroupSize < 0 {
		return blockerrs.Invalid("row group size must not be negative, got %d", o.RowGroupSize)
	}
	if o.RGroupOffset < 0 {
		return blockerrs.Invalid("rgroup offset must not be negative, got %d", o.RGroupOffset)
	}
	if !strings.HasPrefix(o.Extension, ".") {
		return blockerrs.Invalid("extension must start with a dot, got %q", o.Extension)
	}
	if err := o.Write.Validate(); err != nil {
		return err
	}
	_, _, err := codec.Detect(RGroupName(0, o.Extension), o.Write)
	return err
}

// sliceBounds returns [start, end) row ranges for each rgroup.
func sliceBounds(rows, n, size int) [][2]int {
	if size > 0 {
		n = (rows + size - 1) / size
		if n < 1 {
			n = 1
		}
	} else {
		if n < 1 {
			n = 1
		}
		size = (rows + n - 1) / n
	}
	out := make([][2]int, n)
	for i := range out {
		start := min(i*size, rows)
		end := min(start+size, rows)
		if i == n-1 {
			end = rows
		}
		out[i] = [2]int{start, end}
	}
	return out
}

type cgroupColumns struct {
	name    string
	columns []string
}

// projectCGroups validates the cgroup assignment against t and returns it
// in name order. A nil assignment returns nil.
func projectCGroups(t *table.Table, assignment map[string][]string) ([]cgroupColumns, error) {
	if assignment == nil {
		return nil, nil
	}
	if len(assignment) == 0 {
		return nil, blockerrs.Invalid("cgroup columns must name at least one cgroup")
	}
	out := make([]cgroupColumns, 0, len(assignment))
	for name, cols := range assignment {
		if name == "" || name == "." || name == ".." || strings.Contains(name, "/") {
			return nil, blockerrs.Invalid("bad cgroup name %q", name)
		}
		if len(cols) == 0 {
			return nil, blockerrs.Invalid("cgroup %q has no columns", name)
		}
		seen := make(map[string]bool, len(cols))
		for _, c := range cols {
			if !t.HasColumn(c) {
				return nil, &blockerrs.ColumnProjectionError{CGroup: name, Column: c}
			}
			if seen[c] {
				return nil, blockerrs.Invalid("cgroup %q lists column %q twice", name, c)
			}
			seen[c] = true
		}
		out = append(out, cgroupColumns{name: name, columns: cols})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, nil
}

// Place writes t as a single file at p.
func Place(ctx context.Context, t *table.Table, p string, opts *PlaceOptions) (err error) {
	start := time.Now()
	defer func() { metrics.Observe("place", start, err) }()

	o := opts.withDefaults()
	if err := o.Write.Validate(); err != nil {
		return err
	}
	if _, _, err := codec.Detect(p, o.Write); err != nil {
		return err
	}
	if dir := storage.Dir(p); dir != "." && dir != "/" {
		if err := o.FileSystem.MkdirAll(ctx, dir); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	if err := writeFile(ctx, o.FileSystem, p, t, o.Write); err != nil {
		return err
	}
	o.Logger.Debug("placed table", "path", p, "rows", t.NumRows())
	return nil
}

// writeFile encodes t to p. A failed encode aborts the handle so no partial
// file is committed.
func writeFile(ctx context.Context, fs storage.FileSystem, p string, t *table.Table, opts codec.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, err := fs.Create(ctx, p)
	if err != nil {
		return fmt.Errorf("create %s: %w", p, err)
	}
	if err := codec.Write(w, t, p, opts); err != nil {
		storage.Abort(w)
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", p, err)
	}
	metrics.FilesWritten.WithLabelValues(codec.FormatName(p, opts)).Inc()
	metrics.RowsWritten.Add(float64(t.NumRows()))
	return nil
}
