package index

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/geoshape-index/internal/mapper"
)

// PrefixTree emits the grid cells covering a geometry followed by every
// distinct ancestor of those cells, so a query can match at any level.
type PrefixTree struct {
	field     string
	grid      mapper.Grid
	maxLevels int
	maxCells  int
}

func NewPrefixTree(field string, grid mapper.Grid, maxLevels, maxCells int) (*PrefixTree, error) {
	if err := mapper.ValidateLevel(grid, maxLevels); err != nil {
		return nil, err
	}
	if maxCells <= 0 {
		maxCells = mapper.DefaultMaxCells
	}
	return &PrefixTree{field: field, grid: grid, maxLevels: maxLevels, maxCells: maxCells}, nil
}

func (p *PrefixTree) Grid() mapper.Grid { return p.grid }
func (p *PrefixTree) MaxLevels() int    { return p.maxLevels }
func (p *PrefixTree) MaxCells() int     { return p.maxCells }

// Cells returns the leaf cells of g and their ancestors, both sorted and
// without overlap.
func (p *PrefixTree) Cells(g geom.T) (leaves, ancestors []string, err error) {
	leaves, err = p.grid.Cover(g, p.maxLevels, p.maxCells)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "cover %s", p.field)
	}
	seen := make(map[string]struct{}, len(leaves))
	for _, c := range leaves {
		seen[c] = struct{}{}
	}
	for _, c := range leaves {
		up, err := p.grid.Ancestors(c)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "ancestors of %s", c)
		}
		for _, a := range up {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			ancestors = append(ancestors, a)
		}
	}
	slices.Sort(ancestors)
	return leaves, ancestors, nil
}

// QueryCells is Cells for the query side. On grids that implement
// mapper.Widener both leaves and ancestors gain their neighbours.
func (p *PrefixTree) QueryCells(g geom.T) (leaves, ancestors []string, err error) {
	leaves, ancestors, err = p.Cells(g)
	if err != nil {
		return nil, nil, err
	}
	w, ok := p.grid.(mapper.Widener)
	if !ok {
		return leaves, ancestors, nil
	}
	if leaves, err = w.Widen(leaves); err != nil {
		return nil, nil, errors.Wrapf(err, "widen %s", p.field)
	}
	wide, err := w.Widen(ancestors)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "widen %s", p.field)
	}
	ancestors = ancestors[:0]
	for _, a := range wide {
		if _, found := slices.BinarySearch(leaves, a); !found {
			ancestors = append(ancestors, a)
		}
	}
	return leaves, ancestors, nil
}

func (p *PrefixTree) CreateEntries(g geom.T) ([]Entry, error) {
	leaves, ancestors, err := p.Cells(g)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(leaves)+len(ancestors))
	for _, c := range leaves {
		out = append(out, Entry{Field: p.field, Kind: KindCell, Term: c, Leaf: true})
	}
	for _, c := range ancestors {
		out = append(out, Entry{Field: p.field, Kind: KindCell, Term: c})
	}
	return out, nil
}
