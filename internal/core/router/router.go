// Package router maps the HTTP API onto the geo shape schema, the indexer
// and the searcher.
package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/geoshape-index/internal/core/model"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
	"github.com/mohammed-shakir/geoshape-index/internal/geoshape"
	"github.com/mohammed-shakir/geoshape-index/internal/index"
	mylog "github.com/mohammed-shakir/geoshape-index/internal/logger"
	"github.com/mohammed-shakir/geoshape-index/internal/search"
)

const (
	maxWKTBytes      = 1 << 20
	maxDocumentBytes = 4 << 20
)

var errStoreDisabled = errors.New("index store is not enabled")

// Indexer persists documents.
type Indexer interface {
	Upsert(ctx context.Context, doc model.Document) ([]index.Entry, error)
	Delete(ctx context.Context, doc model.Document) error
}

// Searcher answers intersection queries.
type Searcher interface {
	Intersects(ctx context.Context, field, wkt string) (search.Result, error)
}

type Handlers struct {
	schema   *geoshape.GeoSchema
	indexer  Indexer
	searcher Searcher
	logger   *slog.Logger
}

// New returns the API handlers. indexer and searcher may be nil when no
// store is configured; their routes then answer 503.
func New(schema *geoshape.GeoSchema, indexer Indexer, searcher Searcher, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{schema: schema, indexer: indexer, searcher: searcher, logger: logger}
}

// Mount registers the API routes on r.
func (h *Handlers) Mount(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/fields", h.fields)
		r.Post("/fields/{field}/entries", h.entries)
		r.Get("/fields/{field}/intersects", h.intersects)
		r.Get("/fields/{field}/sort", h.sort)
		r.Put("/documents/{id}", h.upsert)
		r.Delete("/documents/{id}", h.remove)
	})
}

func (h *Handlers) fields(w http.ResponseWriter, _ *http.Request) {
	type field struct {
		Field     string `json:"field"`
		Column    string `json:"column"`
		Grid      string `json:"grid"`
		MaxLevels int    `json:"max_levels"`
		Validated bool   `json:"validated"`
	}
	out := []field{}
	for _, name := range h.schema.Fields() {
		m, _ := h.schema.Mapper(name)
		out = append(out, field{
			Field:     m.Field(),
			Column:    m.Column(),
			Grid:      m.Grid().Name(),
			MaxLevels: m.MaxLevels(),
			Validated: m.Validated(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// entries previews the index entries of a raw WKT body.
func (h *Handlers) entries(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mapper(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWKTBytes))
	if err != nil {
		h.fail(w, r, errors.Mark(errors.Wrap(err, "read body"), geoerr.ErrConfiguration))
		return
	}
	entries, err := m.IndexableFields(string(body))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handlers) intersects(w http.ResponseWriter, r *http.Request) {
	if h.searcher == nil {
		h.fail(w, r, errStoreDisabled)
		return
	}
	field := chi.URLParam(r, "field")
	wkt := strings.TrimSpace(r.URL.Query().Get("wkt"))
	if wkt == "" {
		h.fail(w, r, geoerr.Configf("missing required parameter: wkt"))
		return
	}
	res, err := h.searcher.Intersects(mylog.WithField(r.Context(), field), field, wkt)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) sort(w http.ResponseWriter, r *http.Request) {
	m, ok := h.mapper(w, r)
	if !ok {
		return
	}
	h.fail(w, r, m.SortField(m.Field(), r.URL.Query().Get("reverse") == "true"))
}

func (h *Handlers) upsert(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil {
		h.fail(w, r, errStoreDisabled)
		return
	}
	doc, err := h.document(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.indexer.Upsert(mylog.WithDocID(r.Context(), doc.ID), doc)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cells, geoms := index.Count(entries)
	writeJSON(w, http.StatusOK, map[string]any{"id": doc.ID, "cells": cells, "geometries": geoms})
}

func (h *Handlers) remove(w http.ResponseWriter, r *http.Request) {
	if h.indexer == nil {
		h.fail(w, r, errStoreDisabled)
		return
	}
	doc, err := h.document(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.indexer.Delete(mylog.WithDocID(r.Context(), doc.ID), doc); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) document(w http.ResponseWriter, r *http.Request) (model.Document, error) {
	doc := model.Document{ID: chi.URLParam(r, "id")}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err := dec.Decode(&doc.Columns); err != nil {
		return doc, errors.Mark(errors.Wrap(err, "decode document columns"), geoerr.ErrConfiguration)
	}
	if err := h.schema.Validate(doc); err != nil {
		return doc, err
	}
	return doc, nil
}

func (h *Handlers) mapper(w http.ResponseWriter, r *http.Request) (*geoshape.GeoMapper, bool) {
	field := chi.URLParam(r, "field")
	m, ok := h.schema.Mapper(field)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown field "+field)
		return nil, false
	}
	return m, true
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, err.Error())
}

// StatusOf maps the error taxonomy onto HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, errStoreDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, geoerr.ErrGeometryParse),
		errors.Is(err, geoerr.ErrConfiguration),
		errors.Is(err, geoerr.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, geoerr.ErrGeometryOperation):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
