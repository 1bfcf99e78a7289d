// Package geoshape maps a WKT column to spatial index entries. Each document
// value is parsed, run through the configured transformation pipeline and
// expanded into grid cell terms plus the exact stored geometry.
package geoshape

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/twpayne/go-geom"

	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
	"github.com/mohammed-shakir/geoshape-index/internal/index"
	"github.com/mohammed-shakir/geoshape-index/internal/mapper"
	"github.com/mohammed-shakir/geoshape-index/internal/shape"
)

// Option configures a Mapper.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger logs mapper construction at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// Mapper indexes one column. All methods are safe for concurrent use; the
// mapper holds no mutable state after New returns.
type Mapper[G any] struct {
	cfg      Config
	kernel   shape.Kernel[G]
	convert  func(G) (geom.T, error)
	tree     *index.PrefixTree
	strategy *index.Adapter[G]
}

// New validates cfg and builds the two-tier index strategy on the grid named
// by cfg.Grid. convert turns kernel geometries into the form the index
// strategies read.
func New[G any](cfg Config, kernel shape.Kernel[G], grids *mapper.Registry, convert func(G) (geom.T, error), opts ...Option) (*Mapper[G], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(cfg.Field) == "" {
		return nil, geoerr.Configf("field name must not be blank")
	}
	if cfg.Column == "" {
		cfg.Column = cfg.Field
	} else if strings.TrimSpace(cfg.Column) == "" {
		return nil, geoerr.Configf("column for field %q must not be blank", cfg.Field)
	}
	if cfg.Grid == "" {
		cfg.Grid = DefaultGrid
	}
	if cfg.MaxCells < 0 {
		return nil, geoerr.Configf("max cells for field %q must not be negative, got %d", cfg.Field, cfg.MaxCells)
	}
	grid, err := grids.Lookup(cfg.Grid)
	if err != nil {
		return nil, errors.Wrapf(err, "field %q", cfg.Field)
	}
	tree, err := index.NewPrefixTree(cfg.Field, grid, cfg.MaxLevels, cfg.MaxCells)
	if err != nil {
		return nil, errors.Wrapf(err, "field %q", cfg.Field)
	}
	cfg.Transformations = slices.Clone(cfg.Transformations)
	for i, t := range cfg.Transformations {
		if err := shape.Validate(t, true); err != nil {
			return nil, errors.Wrapf(err, "field %q transformation %d", cfg.Field, i)
		}
	}

	m := &Mapper[G]{
		cfg:      cfg,
		kernel:   kernel,
		convert:  convert,
		tree:     tree,
		strategy: index.Adapt(index.NewTwoTier(tree), convert),
	}
	if o.log != nil {
		o.log.LogAttrs(context.Background(), slog.LevelDebug, "geo shape mapper ready",
			slog.String("field", cfg.Field),
			slog.String("column", cfg.Column),
			slog.String("grid", grid.Name()),
			slog.Int("max_levels", cfg.MaxLevels),
			slog.Int("transformations", len(cfg.Transformations)),
		)
	}
	return m, nil
}

func (m *Mapper[G]) Field() string     { return m.cfg.Field }
func (m *Mapper[G]) Column() string    { return m.cfg.Column }
func (m *Mapper[G]) Validated() bool   { return m.cfg.Validated }
func (m *Mapper[G]) MaxLevels() int    { return m.cfg.MaxLevels }
func (m *Mapper[G]) Grid() mapper.Grid { return m.tree.Grid() }

// Transformations returns a copy of the configured pipeline.
func (m *Mapper[G]) Transformations() []shape.Shape { return slices.Clone(m.cfg.Transformations) }

// Parse reads raw as WKT.
func (m *Mapper[G]) Parse(raw string) (G, error) {
	g, err := m.kernel.ParseWKT(raw)
	if err != nil {
		var zero G
		return zero, geoerr.Parse(raw, err)
	}
	return g, nil
}

// Transform parses raw and folds it through the pipeline, each step taking
// the previous result as its input.
func (m *Mapper[G]) Transform(raw string) (G, error) {
	g, err := m.Parse(raw)
	if err != nil {
		return g, err
	}
	for i, t := range m.cfg.Transformations {
		next, err := shape.Apply(m.kernel, t, g)
		if err != nil {
			return next, errors.Wrapf(err, "field %q transformation %d (%s)", m.cfg.Field, i, t.Kind())
		}
		g = next
	}
	return g, nil
}

// IndexableFields returns the entries for one document value: cell entries
// first, then the stored geometry.
func (m *Mapper[G]) IndexableFields(raw string) ([]index.Entry, error) {
	g, err := m.Transform(raw)
	if err != nil {
		return nil, err
	}
	entries, err := m.strategy.CreateEntries(g)
	if err != nil {
		return nil, geoerr.Operation("index", errors.Wrapf(err, "field %q", m.cfg.Field))
	}
	return entries, nil
}

// QueryCells covers a query geometry the same way documents are covered,
// widened by one ring on grids whose cells do not nest.
func (m *Mapper[G]) QueryCells(raw string) (query G, leaves, ancestors []string, err error) {
	query, err = m.Parse(raw)
	if err != nil {
		return query, nil, nil, err
	}
	t, err := m.convert(query)
	if err != nil {
		return query, nil, nil, geoerr.Operation("cover", err)
	}
	leaves, ancestors, err = m.tree.QueryCells(t)
	if err != nil {
		return query, nil, nil, geoerr.Operation("cover", err)
	}
	return query, leaves, ancestors, nil
}

// SortField always fails: ordering by a shape needs a reference point this
// mapper does not model.
func (m *Mapper[G]) SortField(name string, _ bool) error {
	return geoerr.Unsupportedf("geo shape mapper %q does not support simple sorting", name)
}
