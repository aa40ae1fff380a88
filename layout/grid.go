package layout

import "fmt"

// Ungrouped is the cgroup of files that sit directly in the base directory.
const Ungrouped = ""

// Cell is one file of a grid.
type Cell struct {
	CGroup string
	RGroup string
	Path   string
}

// Grid maps (cgroup, rgroup) to a file path. Every cgroup has the same
// rgroups. A Grid is never modified after Resolve returns it.
type Grid struct {
	base    string
	cgroups []string
	rgroups []string
	cells   map[string]map[string]string
}

// Base is the directory the grid was resolved against.
func (g *Grid) Base() string { return g.base }

// CGroups returns the cgroups in merge order.
func (g *Grid) CGroups() []string {
	return append([]string(nil), g.cgroups...)
}

// RGroups returns the rgroups in ascending name order.
func (g *Grid) RGroups() []string {
	return append([]string(nil), g.rgroups...)
}

// Path returns the file for one cell.
func (g *Grid) Path(cgroup, rgroup string) (string, bool) {
	p, ok := g.cells[cgroup][rgroup]
	return p, ok
}

// Len is the number of cells.
func (g *Grid) Len() int {
	return len(g.cgroups) * len(g.rgroups)
}

// Grouped reports whether the files live in cgroup subdirectories.
func (g *Grid) Grouped() bool {
	return len(g.cgroups) > 1 || (len(g.cgroups) == 1 && g.cgroups[0] != Ungrouped)
}

// Cells lists every cell, rgroup by rgroup and cgroups in merge order within each.
func (g *Grid) Cells() []Cell {
	out := make([]Cell, 0, g.Len())
	for _, r := range g.rgroups {
		for _, c := range g.cgroups {
			out = append(out, Cell{CGroup: c, RGroup: r, Path: g.cells[c][r]})
		}
	}
	return out
}

func (g *Grid) String() string {
	return fmt.Sprintf("grid %s: %d cgroups x %d rgroups", g.base, len(g.cgroups), len(g.rgroups))
}
