// Package mapper converts geometries into hierarchical grid cells.
package mapper

import (
	"slices"
	"sort"
	"strings"

	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
)

// Grid is a hierarchical cell system. Cells are strings whose ancestors can
// be derived from the cell alone.
type Grid interface {
	Name() string
	MinLevel() int
	MaxLevel() int
	// Cover returns sorted, distinct cells covering g. No cell is finer than
	// maxLevel and the grid coarsens until the cover fits maxCells where
	// the geometry allows it.
	Cover(g geom.T, maxLevel, maxCells int) ([]string, error)
	// Ancestors returns the strict ancestors of cell, coarsest first.
	Ancestors(cell string) ([]string, error)
}

// Widener is implemented by grids whose children are not contained by their
// parent. Query cells on such grids are widened so a document cell that
// overlaps a query cell without sharing its ancestry is still a candidate.
type Widener interface {
	// Widen returns cells plus their immediate neighbours at the same level,
	// sorted and distinct.
	Widen(cells []string) ([]string, error)
}

// DefaultMaxCells bounds the leaf cells emitted for one geometry.
const DefaultMaxCells = 64

// Registry resolves grids by name.
type Registry struct {
	grids map[string]Grid
}

func NewRegistry(grids ...Grid) *Registry {
	r := &Registry{grids: make(map[string]Grid, len(grids))}
	for _, g := range grids {
		r.grids[g.Name()] = g
	}
	return r
}

func (r *Registry) Lookup(name string) (Grid, error) {
	g, ok := r.grids[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, geoerr.Configf("unknown grid %q (supported: %s)", name, strings.Join(r.Names(), ", "))
	}
	return g, nil
}

func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.grids))
	for n := range r.grids {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ValidateLevel checks level against the grid's inclusive range.
func ValidateLevel(g Grid, level int) error {
	if level < g.MinLevel() || level > g.MaxLevel() {
		return geoerr.Configf("max levels for %s grid must be in [%d, %d], got %d",
			g.Name(), g.MinLevel(), g.MaxLevel(), level)
	}
	return nil
}

// SortedUnique sorts cells and drops duplicates in place.
func SortedUnique(cells []string) []string {
	slices.Sort(cells)
	return slices.Compact(cells)
}
