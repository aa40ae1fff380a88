package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"

	"github.com/kartikbazzad/bunbase/blocks"
	"github.com/kartikbazzad/bunbase/blocks/layout"
	"github.com/kartikbazzad/bunbase/blocks/pkg/logger"
	"github.com/kartikbazzad/bunbase/blocks/storage"
	"github.com/kartikbazzad/bunbase/blocks/table"
)

// readFlags are shared by every command that reads a layout.
type readFlags struct {
	cgroups  string
	rgroups  string
	join     string
	readOpts string
}

func (f *readFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.cgroups, "cgroups", "", "comma separated cgroups to read, in merge order")
	cmd.Flags().StringVar(&f.rgroups, "rgroups", "", "comma separated rgroups to read")
	cmd.Flags().StringVar(&f.join, "join", "left", "how cgroups are merged: left, inner, right or outer")
	cmd.Flags().StringVar(&f.readOpts, "read-opts", "", "codec read options as JSON")
}

func (f *readFlags) options() (*blocks.ReadOptions, error) {
	how, err := table.ParseJoin(f.join)
	if err != nil {
		return nil, err
	}
	read, err := parseOptions(f.readOpts)
	if err != nil {
		return nil, err
	}
	return &blocks.ReadOptions{
		FileSystem: fsys,
		CGroups:    splitList(f.cgroups),
		RGroups:    splitList(f.rgroups),
		Read:       read,
		Join:       how,
		Logger:     logger.Get(),
	}, nil
}

func assembleCmd() *cobra.Command {
	var (
		rf     readFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "assemble <pattern>",
		Short: "Merge every file matched by pattern into one table and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := rf.options()
			if err != nil {
				return err
			}
			t, err := blocks.Assemble(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			return printTable(cmd.OutOrStdout(), t, format)
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv, tsv, json")
	return cmd
}

func iterateCmd() *cobra.Command {
	var (
		rf   readFlags
		axis string
	)
	cmd := &cobra.Command{
		Use:   "iterate <pattern>",
		Short: "Walk the blocks of a layout and print one line per block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := blocks.ParseAxis(axis)
			if err != nil {
				return err
			}
			opts, err := rf.options()
			if err != nil {
				return err
			}
			it, err := blocks.Iterate(cmd.Context(), args[0], a, opts)
			if err != nil {
				return err
			}
			defer it.Close()

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CGROUP\tRGROUP\tROWS\tCOLUMNS")
			for it.Next() {
				b, err := it.Value()
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					label(b.CGroup), label(b.RGroup),
					humanize.Comma(int64(b.Table.NumRows())),
					strings.Join(b.Table.Columns(), ","))
			}
			if err := it.Err(); err != nil {
				return err
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			g := it.Grid()
			fmt.Fprintf(out, "%d blocks along %s over %d cgroups x %d rgroups\n",
				it.Len(), a, len(g.CGroups()), len(g.RGroups()))
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&axis, "axis", "none", "none/-1 (every cell), rgroup/0 or cgroup/1")
	return cmd
}

func label(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// byteCounter counts the bytes read from each opened path.
type byteCounter struct {
	storage.FileSystem
	sizes sync.Map // path -> *atomic.Int64
}

func (c *byteCounter) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	r, err := c.FileSystem.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	n, _ := c.sizes.LoadOrStore(p, new(atomic.Int64))
	return &countingReadCloser{ReadCloser: r, n: n.(*atomic.Int64)}, nil
}

func (c *byteCounter) size(p string) int64 {
	if n, ok := c.sizes.Load(p); ok {
		return n.(*atomic.Int64).Load()
	}
	return 0
}

type countingReadCloser struct {
	io.ReadCloser
	n *atomic.Int64
}

func (r *countingReadCloser) Read(p []byte) (int, error) {
	n, err := r.ReadCloser.Read(p)
	r.n.Add(int64(n))
	return n, err
}

type cellStat struct {
	cell layout.Cell
	rows int
	cols int
	err  error
}

func inspectCmd() *cobra.Command {
	var rf readFlags
	cmd := &cobra.Command{
		Use:   "inspect <pattern>",
		Short: "Resolve a layout and read every block in parallel to report its shape",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := rf.options()
			if err != nil {
				return err
			}
			counter := &byteCounter{FileSystem: opts.FileSystem}
			opts.FileSystem = counter

			ctx := cmd.Context()
			start := time.Now()
			grid, err := blocks.Resolve(ctx, args[0], opts)
			if err != nil {
				return err
			}

			size := cfg.Workers
			if size < 1 {
				size = 1
			}
			pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
				logger.Error("inspect worker panic", "panic", v)
			}))
			if err != nil {
				return err
			}
			defer pool.Release()

			cells := grid.Cells()
			stats := make([]cellStat, len(cells))
			var wg sync.WaitGroup
			for i, cell := range cells {
				i, cell := i, cell
				stats[i].cell = cell
				wg.Add(1)
				if err := pool.Submit(func() {
					defer wg.Done()
					t, err := blocks.ReadBlock(ctx, grid, cell.CGroup, cell.RGroup, opts)
					if err != nil {
						stats[i].err = err
						return
					}
					stats[i].rows = t.NumRows()
					stats[i].cols = t.NumColumns()
				}); err != nil {
					wg.Done()
					stats[i].err = err
				}
			}
			wg.Wait()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CGROUP\tRGROUP\tROWS\tCOLUMNS\tSIZE\tPATH")
			var (
				totalRows  int64
				totalBytes uint64
				firstErr   error
			)
			for _, s := range stats {
				if s.err != nil {
					if firstErr == nil {
						firstErr = s.err
					}
					fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t%s (%v)\n", label(s.cell.CGroup), s.cell.RGroup, s.cell.Path, s.err)
					continue
				}
				n := uint64(counter.size(s.cell.Path))
				totalRows += int64(s.rows)
				totalBytes += n
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					label(s.cell.CGroup), s.cell.RGroup,
					humanize.Comma(int64(s.rows)), s.cols, humanize.Bytes(n), s.cell.Path)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d cgroups x %d rgroups, %s rows in %d files, %s read in %s\n",
				len(grid.CGroups()), len(grid.RGroups()),
				humanize.Comma(totalRows), len(cells),
				humanize.Bytes(totalBytes), time.Since(start).Round(time.Millisecond))
			return firstErr
		},
	}
	rf.register(cmd)
	return cmd
}

func divideCmd() *cobra.Command {
	var (
		rf        readFlags
		nRGroup   int
		rowsPer   int
		offset    int
		ext       string
		cgroups   []string
		writeOpts string
	)
	cmd := &cobra.Command{
		Use:   "divide <source-pattern> <destination>",
		Short: "Assemble a source layout and write it out as a new grid of files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := rf.options()
			if err != nil {
				return err
			}
			write, err := parseOptions(writeOpts)
			if err != nil {
				return err
			}
			assignment, err := parseCGroups(cgroups)
			if err != nil {
				return err
			}

			t, err := blocks.Assemble(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			paths, err := blocks.Divide(cmd.Context(), t, args[1], &blocks.DivideOptions{
				FileSystem:    fsys,
				NRGroup:       nRGroup,
				RowGroupSize:  rowsPer,
				RGroupOffset:  offset,
				CGroupColumns: assignment,
				Extension:     ext,
				Write:         write,
				Logger:        logger.Get(),
			})
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			logger.Info("divided table", "rows", t.NumRows(), "files", len(paths), "destination", args[1])
			return nil
		},
	}
	rf.register(cmd)
	f := cmd.Flags()
	f.IntVarP(&nRGroup, "n-rgroup", "n", 1, "number of rgroups to write")
	f.IntVar(&rowsPer, "row-group-size", 0, "rows per rgroup; overrides --n-rgroup")
	f.IntVar(&offset, "rgroup-offset", 0, "index of the first rgroup file")
	f.StringVar(&ext, "ext", blocks.DefaultExtension, "output extension, e.g. .csv, .jsonl.gz, .cbor")
	f.StringArrayVar(&cgroups, "cgroup", nil, "cgroup assignment name=col1,col2 (repeatable)")
	f.StringVar(&writeOpts, "write-opts", "", "codec write options as JSON")
	return cmd
}

// parseCGroups turns name=col1,col2 flags into a cgroup assignment.
func parseCGroups(specs []string) (map[string][]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(specs))
	for _, s := range specs {
		name, cols, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("bad --cgroup %q, expected name=col1,col2", s)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("cgroup %q given twice", name)
		}
		out[name] = splitList(cols)
	}
	return out, nil
}

func placeCmd() *cobra.Command {
	var (
		rf        readFlags
		writeOpts string
	)
	cmd := &cobra.Command{
		Use:   "place <source-pattern> <path>",
		Short: "Assemble a source layout and write it as a single file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := rf.options()
			if err != nil {
				return err
			}
			write, err := parseOptions(writeOpts)
			if err != nil {
				return err
			}
			t, err := blocks.Assemble(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			if err := blocks.Place(cmd.Context(), t, args[1], &blocks.PlaceOptions{
				FileSystem: fsys,
				Write:      write,
				Logger:     logger.Get(),
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), args[1])
			return nil
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&writeOpts, "write-opts", "", "codec write options as JSON")
	return cmd
}
