package blocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kartikbazzad/bunbase/blocks/layout"
	"github.com/kartikbazzad/bunbase/blocks/metrics"
	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
	"github.com/kartikbazzad/bunbase/blocks/table"
)

// Axis selects what one step of an Iterator yields.
type Axis int

const (
	// AxisNone yields every cell on its own.
	AxisNone Axis = iota
	// AxisRGroup yields one table per rgroup with its cgroups joined.
	AxisRGroup
	// AxisCGroup yields one table per cgroup with its rgroups stacked.
	AxisCGroup
)

func (a Axis) String() string {
	switch a {
	case AxisNone:
		return "none"
	case AxisRGroup:
		return "rgroup"
	case AxisCGroup:
		return "cgroup"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis accepts "none", "rgroup" or "cgroup", and the numeric forms
// "-1", "0" and "1" in the same order.
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "", "none", "-1":
		return AxisNone, nil
	case "rgroup", "0":
		return AxisRGroup, nil
	case "cgroup", "1":
		return AxisCGroup, nil
	default:
		return 0, fmt.Errorf("%w: %q", blockerrs.ErrInvalidAxis, s)
	}
}

// Block is one step of an Iterator. CGroup is empty on AxisRGroup and
// RGroup is empty on AxisCGroup.
type Block struct {
	CGroup string
	RGroup string
	Table  *table.Table
}

// Iterator walks a resolved grid. It follows the cursor pattern: Next
// advances, Value reads the current block from storage. Nothing is read
// before Value is called, and the files of one block are closed before
// Value returns.
//
// An Iterator is single use; call Iterate again to walk the layout again.
type Iterator struct {
	ctx   context.Context
	grid  *layout.Grid
	axis  Axis
	opts  *ReadOptions
	steps []Block

	currentIndex int
	current      *Block
	err          error

	start time.Time
	once  sync.Once
}

// Iterate resolves pattern and returns an iterator over its blocks.
// Layout errors are returned here, before any file is opened.
func Iterate(ctx context.Context, pattern string, axis Axis, opts *ReadOptions) (*Iterator, error) {
	if axis < AxisNone || axis > AxisCGroup {
		return nil, fmt.Errorf("%w: %d", blockerrs.ErrInvalidAxis, int(axis))
	}
	start := time.Now()
	o := opts.withDefaults()
	grid, err := resolve(ctx, pattern, o)
	if err != nil {
		metrics.Observe("iterate", start, err)
		return nil, err
	}
	return newIterator(ctx, grid, axis, o, start), nil
}

func newIterator(ctx context.Context, grid *layout.Grid, axis Axis, o *ReadOptions, start time.Time) *Iterator {
	var steps []Block
	switch axis {
	case AxisRGroup:
		for _, r := range grid.RGroups() {
			steps = append(steps, Block{RGroup: r})
		}
	case AxisCGroup:
		for _, c := range grid.CGroups() {
			steps = append(steps, Block{CGroup: c})
		}
	default:
		for _, cell := range grid.Cells() {
			steps = append(steps, Block{CGroup: cell.CGroup, RGroup: cell.RGroup})
		}
	}
	return &Iterator{
		ctx:          ctx,
		grid:         grid,
		axis:         axis,
		opts:         o,
		steps:        steps,
		currentIndex: -1,
		start:        start,
	}
}

// Grid is the layout being walked.
func (it *Iterator) Grid() *layout.Grid { return it.grid }

// Len is the number of blocks the iterator yields.
func (it *Iterator) Len() int { return len(it.steps) }

// Next advances to the next block. It returns false when the blocks are
// exhausted, after a failed Value, or once the context is done.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		it.finish()
		return false
	}
	it.currentIndex++
	it.current = nil
	if it.currentIndex >= len(it.steps) {
		it.finish()
		return false
	}
	return true
}

// Value reads the current block.
func (it *Iterator) Value() (Block, error) {
	if it.currentIndex < 0 || it.currentIndex >= len(it.steps) {
		return Block{}, fmt.Errorf("iterator out of bounds")
	}
	if it.current != nil {
		return *it.current, nil
	}
	if it.err != nil {
		return Block{}, it.err
	}

	b := it.steps[it.currentIndex]
	var err error
	switch it.axis {
	case AxisRGroup:
		b.Table, err = mergeRGroup(it.ctx, it.grid, b.RGroup, it.opts)
	case AxisCGroup:
		b.Table, err = concatCGroup(it.ctx, it.grid, b.CGroup, it.opts)
	default:
		b.Table, err = readCell(it.ctx, it.grid, b.CGroup, b.RGroup, it.opts)
	}
	if err != nil {
		it.err = err
		it.finish()
		return Block{}, err
	}
	it.current = &b
	return b, nil
}

// Err returns the error that stopped the iteration, if any.
func (it *Iterator) Err() error { return it.err }

// Close releases the iterator. Blocks already returned stay valid.
func (it *Iterator) Close() error {
	it.finish()
	it.currentIndex = len(it.steps)
	it.current = nil
	return nil
}

func (it *Iterator) finish() {
	it.once.Do(func() {
		metrics.Observe("iterate", it.start, it.err)
		it.opts.Logger.Debug("iteration finished",
			"axis", it.axis.String(),
			"blocks", len(it.steps),
			"error", it.err)
	})
}
