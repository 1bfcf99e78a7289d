// Package search answers intersection queries against the stored index:
// cell terms select candidates, the stored geometries decide.
package search

import (
	"context"
	"log/slog"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/core/observability"
	"github.com/mohammed-shakir/geoshape-index/internal/geo/sfkernel"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
	"github.com/mohammed-shakir/geoshape-index/internal/geoshape"
	"github.com/mohammed-shakir/geoshape-index/internal/index"
	"github.com/mohammed-shakir/geoshape-index/internal/store/cellindex"
	"github.com/mohammed-shakir/geoshape-index/internal/store/featurestore"
	"github.com/mohammed-shakir/geoshape-index/internal/store/keys"
)

type Result struct {
	IDs        []string `json:"ids"`
	Candidates int      `json:"candidates"`
}

type Searcher struct {
	schema *geoshape.GeoSchema
	kernel *sfkernel.Kernel
	cells  cellindex.CellIndex
	geoms  featurestore.GeometryStore
	log    *slog.Logger
}

func New(schema *geoshape.GeoSchema, k *sfkernel.Kernel, cells cellindex.CellIndex, geoms featurestore.GeometryStore, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	return &Searcher{schema: schema, kernel: k, cells: cells, geoms: geoms, log: log}
}

// Intersects returns the sorted ids of documents whose geometry in field
// intersects the query. A document is a candidate when one of its cells
// lies inside a query leaf or one of its leaf cells contains a query cell.
func (s *Searcher) Intersects(ctx context.Context, field, wkt string) (Result, error) {
	m, ok := s.schema.Mapper(field)
	if !ok {
		return Result{}, geoerr.Configf("field %q is not a geo shape field", field)
	}
	query, leaves, ancestors, err := m.QueryCells(wkt)
	if err != nil {
		return Result{}, err
	}

	inside, err := s.cells.Members(ctx, field, keys.Any, leaves)
	if err != nil {
		return Result{}, err
	}
	containing, err := s.cells.Members(ctx, field, keys.Leaf, ancestors)
	if err != nil {
		return Result{}, err
	}
	candidates := mergeSorted(inside, containing)
	if len(candidates) == 0 {
		observability.ObserveSearch(field, 0, 0)
		return Result{IDs: []string{}}, nil
	}

	stored, err := s.geoms.MGet(ctx, field, candidates)
	if err != nil {
		return Result{}, err
	}
	hits := make([]string, 0, len(candidates))
	for _, id := range candidates {
		raw, ok := stored[id]
		if !ok {
			s.log.WarnContext(ctx, "candidate without stored geometry", "field", field, "id", id)
			continue
		}
		t, err := index.DecodeGeometry(index.Entry{Field: field, Kind: index.KindGeometry, Value: raw})
		if err != nil {
			return Result{}, errors.Wrapf(err, "document %q", id)
		}
		g, err := sfkernel.FromGeomT(t)
		if err != nil {
			return Result{}, errors.Wrapf(err, "document %q", id)
		}
		if s.kernel.Intersects(query, g) {
			hits = append(hits, id)
		}
	}
	observability.ObserveSearch(field, len(candidates), len(hits))
	return Result{IDs: hits, Candidates: len(candidates)}, nil
}

func mergeSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sort.Strings(out)
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
