package blocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kartikbazzad/bunbase/blocks/codec"
	"github.com/kartikbazzad/bunbase/blocks/layout"
	"github.com/kartikbazzad/bunbase/blocks/metrics"
	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
	"github.com/kartikbazzad/bunbase/blocks/storage"
	"github.com/kartikbazzad/bunbase/blocks/table"
)

// Resolve matches pattern and groups the files into a grid without reading
// any of them. Every file must have a codec; that is checked here so a bad
// layout fails before the first read.
func Resolve(ctx context.Context, pattern string, opts *ReadOptions) (*layout.Grid, error) {
	o := opts.withDefaults()
	return resolve(ctx, pattern, o)
}

func resolve(ctx context.Context, pattern string, o *ReadOptions) (*layout.Grid, error) {
	expanded, err := layout.Expand(ctx, o.FileSystem, pattern)
	if err != nil {
		return nil, err
	}
	paths, err := layout.Match(ctx, o.FileSystem, expanded)
	if err != nil {
		if errors.Is(err, blockerrs.ErrNoMatch) {
			return nil, &blockerrs.NoMatchError{Pattern: pattern}
		}
		return nil, err
	}

	grid, err := layout.Resolve(paths, layout.Base(expanded), o.CGroups, o.RGroups)
	if err != nil {
		return nil, err
	}
	if grid.Len() == 0 {
		return nil, &blockerrs.NoMatchError{Pattern: pattern}
	}
	for _, cell := range grid.Cells() {
		if _, _, err := codec.Detect(cell.Path, o.codecOptions(cell.CGroup)); err != nil {
			return nil, err
		}
	}

	o.Logger.Debug("resolved block layout",
		"pattern", pattern,
		"base", grid.Base(),
		"cgroups", len(grid.CGroups()),
		"rgroups", len(grid.RGroups()))
	return grid, nil
}

// Assemble reads every file matched by pattern into one table.
//
// The cgroups of each rgroup are joined on their shared columns (see
// table.Join). The per-rgroup results are then stacked in rgroup name order,
// keeping the row order of each file.
func Assemble(ctx context.Context, pattern string, opts *ReadOptions) (t *table.Table, err error) {
	start := time.Now()
	defer func() { metrics.Observe("assemble", start, err) }()

	o := opts.withDefaults()
	grid, err := resolve(ctx, pattern, o)
	if err != nil {
		return nil, err
	}

	rgroups := grid.RGroups()
	parts := make([]*table.Table, 0, len(rgroups))
	for _, r := range rgroups {
		part, err := mergeRGroup(ctx, grid, r, o)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	var cgroup string
	if cgroups := grid.CGroups(); len(cgroups) == 1 {
		cgroup = cgroups[0]
	}
	t, err = concatLabeled(parts, rgroups, cgroup)
	if err != nil {
		return nil, err
	}
	o.Logger.Debug("assembled table", "pattern", pattern, "rows", t.NumRows(), "columns", t.NumColumns())
	return t, nil
}

// ReadBlock reads the single file at (cgroup, rgroup) of grid.
func ReadBlock(ctx context.Context, grid *layout.Grid, cgroup, rgroup string, opts *ReadOptions) (*table.Table, error) {
	o := opts.withDefaults()
	return readCell(ctx, grid, cgroup, rgroup, o)
}

func readCell(ctx context.Context, grid *layout.Grid, cgroup, rgroup string, o *ReadOptions) (*table.Table, error) {
	p, ok := grid.Path(cgroup, rgroup)
	if !ok {
		return nil, fmt.Errorf("no block for cgroup %q rgroup %q", cgroup, rgroup)
	}
	return readFile(ctx, o.FileSystem, p, o.codecOptions(cgroup))
}

// readFile holds p open only for the duration of the decode.
func readFile(ctx context.Context, fs storage.FileSystem, p string, opts codec.Options) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := fs.Open(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", p, err)
	}
	defer r.Close()

	t, err := codec.Read(r, p, opts)
	if err != nil {
		return nil, err
	}
	metrics.FilesRead.WithLabelValues(codec.FormatName(p, opts)).Inc()
	metrics.RowsRead.Add(float64(t.NumRows()))
	return t, nil
}

// mergeRGroup joins the cgroups of one rgroup in grid order.
func mergeRGroup(ctx context.Context, grid *layout.Grid, rgroup string, o *ReadOptions) (*table.Table, error) {
	var acc *table.Table
	for _, c := range grid.CGroups() {
		next, err := readCell(ctx, grid, c, rgroup, o)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = next
			continue
		}
		acc, err = table.Join(acc, next, o.Join)
		if err != nil {
			var rc *blockerrs.RowCountMismatchError
			if errors.As(err, &rc) {
				rc.RGroup, rc.CGroup = rgroup, c
			}
			return nil, err
		}
	}
	return acc, nil
}

// concatCGroup stacks every rgroup of one cgroup in rgroup order.
func concatCGroup(ctx context.Context, grid *layout.Grid, cgroup string, o *ReadOptions) (*table.Table, error) {
	rgroups := grid.RGroups()
	parts := make([]*table.Table, 0, len(rgroups))
	for _, r := range rgroups {
		part, err := readCell(ctx, grid, cgroup, r, o)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return concatLabeled(parts, rgroups, cgroup)
}

// concatLabeled is table.Concat with schema errors naming the cgroup and the
// first rgroup whose columns differ.
func concatLabeled(parts []*table.Table, labels []string, cgroup string) (*table.Table, error) {
	t, err := table.Concat(parts...)
	if err == nil {
		return t, nil
	}
	var sm *blockerrs.SchemaMismatchError
	if errors.As(err, &sm) {
		sm.CGroup = cgroup
		want := columnSet(parts[0])
		for i, p := range parts {
			if columnSet(p) != want {
				sm.Label = labels[i]
				break
			}
		}
	}
	return nil, err
}

func columnSet(t *table.Table) string {
	names := t.Columns()
	sort.Strings(names)
	return strings.Join(names, "\x00")
}
