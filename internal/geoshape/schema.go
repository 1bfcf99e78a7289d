package geoshape

import (
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/core/model"
	"github.com/mohammed-shakir/geoshape-index/internal/core/observability"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
	"github.com/mohammed-shakir/geoshape-index/internal/index"
)

// Schema is the set of geo shape mappers of one table.
type Schema[G any] struct {
	byField map[string]*Mapper[G]
	fields  []string
}

func NewSchema[G any](mappers ...*Mapper[G]) (*Schema[G], error) {
	s := &Schema[G]{byField: make(map[string]*Mapper[G], len(mappers))}
	for _, m := range mappers {
		if _, dup := s.byField[m.Field()]; dup {
			return nil, geoerr.Configf("field %q is mapped twice", m.Field())
		}
		s.byField[m.Field()] = m
		s.fields = append(s.fields, m.Field())
	}
	sort.Strings(s.fields)
	return s, nil
}

func (s *Schema[G]) Mapper(field string) (*Mapper[G], bool) {
	m, ok := s.byField[field]
	return m, ok
}

// Fields returns the mapped field names in sorted order.
func (s *Schema[G]) Fields() []string { return append([]string(nil), s.fields...) }

// Validate parses the column of every validated mapper present in doc.
func (s *Schema[G]) Validate(doc model.Document) error {
	for _, f := range s.fields {
		m := s.byField[f]
		if !m.Validated() {
			continue
		}
		raw, ok := doc.Column(m.Column())
		if !ok {
			continue
		}
		if _, err := m.Parse(raw); err != nil {
			return errors.Wrapf(err, "field %q", f)
		}
	}
	return nil
}

// Index returns the entries of every mapped column present in doc, field by
// field in sorted order. The first failing field fails the document.
func (s *Schema[G]) Index(doc model.Document) ([]index.Entry, error) {
	var out []index.Entry
	for _, f := range s.fields {
		m := s.byField[f]
		raw, ok := doc.Column(m.Column())
		if !ok {
			continue
		}
		start := time.Now()
		entries, err := m.IndexableFields(raw)
		cells, geoms := index.Count(entries)
		observability.ObserveIndex(f, cells, geoms, err, time.Since(start).Seconds())
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", f)
		}
		out = append(out, entries...)
	}
	return out, nil
}
