// Package store writes index entries to the cell index and the geometry
// store, and removes them again.
package store

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/index"
	"github.com/mohammed-shakir/geoshape-index/internal/store/cellindex"
	"github.com/mohammed-shakir/geoshape-index/internal/store/featurestore"
	"github.com/mohammed-shakir/geoshape-index/internal/store/keys"
)

type Writer struct {
	cells cellindex.CellIndex
	geoms featurestore.GeometryStore
}

func NewWriter(cells cellindex.CellIndex, geoms featurestore.GeometryStore) *Writer {
	return &Writer{cells: cells, geoms: geoms}
}

type fieldEntries struct {
	all, leaves []string
	geometry    []byte
}

func group(entries []index.Entry) (map[string]*fieldEntries, []string) {
	by := map[string]*fieldEntries{}
	var fields []string
	for _, e := range entries {
		fe, ok := by[e.Field]
		if !ok {
			fe = &fieldEntries{}
			by[e.Field] = fe
			fields = append(fields, e.Field)
		}
		switch e.Kind {
		case index.KindCell:
			fe.all = append(fe.all, e.Term)
			if e.Leaf {
				fe.leaves = append(fe.leaves, e.Term)
			}
		case index.KindGeometry:
			fe.geometry = e.Value
		}
	}
	sort.Strings(fields)
	return by, fields
}

// Write records docID under every cell term of entries and stores its
// geometry. Every cell goes to the "any" set of its term, leaf cells also
// to the "leaf" set.
func (w *Writer) Write(ctx context.Context, docID string, entries []index.Entry) error {
	if docID == "" {
		return errors.New("document id must not be empty")
	}
	by, fields := group(entries)
	for _, f := range fields {
		fe := by[f]
		if err := w.cells.Add(ctx, f, keys.Any, fe.all, docID); err != nil {
			return err
		}
		if err := w.cells.Add(ctx, f, keys.Leaf, fe.leaves, docID); err != nil {
			return err
		}
		if fe.geometry != nil {
			if err := w.geoms.Put(ctx, f, docID, fe.geometry); err != nil {
				return err
			}
		}
	}
	return nil
}

// Delete undoes Write for the same entries.
func (w *Writer) Delete(ctx context.Context, docID string, entries []index.Entry) error {
	if docID == "" {
		return errors.New("document id must not be empty")
	}
	by, fields := group(entries)
	for _, f := range fields {
		fe := by[f]
		if err := w.cells.Remove(ctx, f, keys.Any, fe.all, docID); err != nil {
			return err
		}
		if err := w.cells.Remove(ctx, f, keys.Leaf, fe.leaves, docID); err != nil {
			return err
		}
		if err := w.geoms.Delete(ctx, f, docID); err != nil {
			return err
		}
	}
	return nil
}
