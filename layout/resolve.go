package layout

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/kartikbazzad/bunbase/blocks/codec"
	blockerrs "github.com/kartikbazzad/bunbase/blocks/pkg/errors"
)

// Label returns the (cgroup, rgroup) of p relative to base. The cgroup is
// the first directory below base, or Ungrouped when p sits directly in base.
// The rgroup is the file stem.
func Label(p, base string) (cgroup, rgroup string, err error) {
	rel, ok := relative(p, base)
	if !ok {
		return "", "", fmt.Errorf("path %s is not below %s", p, base)
	}
	cgroup = Ungrouped
	if first, rest, found := strings.Cut(rel, "/"); found && rest != "" {
		cgroup = first
	}
	return cgroup, codec.Stem(p), nil
}

func relative(p, base string) (string, bool) {
	p = path.Clean(p)
	base = path.Clean(base)
	switch base {
	case ".":
		if strings.HasPrefix(p, "/") || p == ".." || strings.HasPrefix(p, "../") {
			return "", false
		}
		return p, true
	case "/":
		return strings.TrimPrefix(p, "/"), strings.HasPrefix(p, "/")
	}
	if p == base {
		// A single literal file resolved against itself.
		return path.Base(p), true
	}
	rel, ok := strings.CutPrefix(p, base+"/")
	return rel, ok
}

// Resolve groups paths into a grid relative to base. A non-nil cgroups or
// rgroups restricts the grid to those groups; other paths are dropped. When
// cgroups is given it also fixes the merge order, otherwise cgroups are
// ordered by name.
//
// Two paths in one cell are an AmbiguousLayoutError; a cgroup missing an
// rgroup that another cgroup has is a RaggedLayoutError.
func Resolve(paths []string, base string, cgroups, rgroups []string) (*Grid, error) {
	wantC := toSet(cgroups)
	wantR := toSet(rgroups)

	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	cells := make(map[string]map[string]string)
	allR := make(map[string]bool)
	for _, p := range sorted {
		c, r, err := Label(p, base)
		if err != nil {
			return nil, err
		}
		if wantC != nil && !wantC[c] {
			continue
		}
		if wantR != nil && !wantR[r] {
			continue
		}
		row, ok := cells[c]
		if !ok {
			row = make(map[string]string)
			cells[c] = row
		}
		if prev, dup := row[r]; dup {
			if prev == p {
				continue
			}
			return nil, &blockerrs.AmbiguousLayoutError{CGroup: c, RGroup: r, Paths: [2]string{prev, p}}
		}
		row[r] = p
		allR[r] = true
	}

	g := &Grid{base: path.Clean(base), cells: cells}
	if cgroups != nil {
		for _, c := range cgroups {
			if _, ok := cells[c]; ok && !contains(g.cgroups, c) {
				g.cgroups = append(g.cgroups, c)
			}
		}
	} else {
		for c := range cells {
			g.cgroups = append(g.cgroups, c)
		}
		sort.Strings(g.cgroups)
	}
	for r := range allR {
		g.rgroups = append(g.rgroups, r)
	}
	sort.Strings(g.rgroups)

	checkOrder := append([]string(nil), g.cgroups...)
	sort.Strings(checkOrder)
	for _, c := range checkOrder {
		for _, r := range g.rgroups {
			if _, ok := cells[c][r]; !ok {
				return nil, &blockerrs.RaggedLayoutError{CGroup: c, RGroup: r}
			}
		}
	}
	return g, nil
}

func toSet(names []string) map[string]bool {
	if names == nil {
		return nil
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
