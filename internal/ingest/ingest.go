// Package ingest indexes documents in bulk and applies change feeds to the
// store.
package ingest

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/geoshape-index/internal/core/model"
	"github.com/mohammed-shakir/geoshape-index/internal/index"
	mylog "github.com/mohammed-shakir/geoshape-index/internal/logger"
)

// Schema turns a document into index entries.
type Schema interface {
	Index(doc model.Document) ([]index.Entry, error)
}

// Sink persists the entries of one document.
type Sink interface {
	Write(ctx context.Context, docID string, entries []index.Entry) error
	Delete(ctx context.Context, docID string, entries []index.Entry) error
}

// Result is the outcome of indexing one document.
type Result struct {
	ID      string        `json:"id"`
	Entries []index.Entry `json:"entries,omitempty"`
	Err     error         `json:"-"`
}

// IndexAll indexes docs on at most workers goroutines and returns one
// result per document in input order. A failing document does not stop the
// others; only cancellation of ctx does.
func IndexAll(ctx context.Context, schema Schema, docs []model.Document, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Result, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, doc := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, err := schema.Index(doc)
			out[i] = Result{ID: doc.ID, Entries: entries, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, errors.Wrap(err, "bulk index")
	}
	if err := ctx.Err(); err != nil {
		return out, errors.Wrap(err, "bulk index")
	}
	return out, nil
}

// Indexer indexes single documents and writes them to a sink.
type Indexer struct {
	schema Schema
	sink   Sink
	log    *slog.Logger
}

func NewIndexer(schema Schema, sink Sink, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{schema: schema, sink: sink, log: log}
}

// Upsert indexes doc and writes its entries. Cells of an earlier version
// that the new one no longer covers stay behind; they only add candidates
// that exact re-verification against the overwritten geometry rejects.
func (ix *Indexer) Upsert(ctx context.Context, doc model.Document) ([]index.Entry, error) {
	entries, err := ix.schema.Index(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "index document %q", doc.ID)
	}
	if err := ix.sink.Write(ctx, doc.ID, entries); err != nil {
		return nil, errors.Wrapf(err, "store document %q", doc.ID)
	}
	ix.log.DebugContext(mylog.WithDocID(ctx, doc.ID), "document indexed",
		"id", doc.ID, "entries", len(entries))
	return entries, nil
}

// Delete removes the entries doc produced from the sink.
func (ix *Indexer) Delete(ctx context.Context, doc model.Document) error {
	entries, err := ix.schema.Index(doc)
	if err != nil {
		return errors.Wrapf(err, "index document %q", doc.ID)
	}
	if err := ix.sink.Delete(ctx, doc.ID, entries); err != nil {
		return errors.Wrapf(err, "delete document %q", doc.ID)
	}
	ix.log.DebugContext(mylog.WithDocID(ctx, doc.ID), "document deleted", "id", doc.ID)
	return nil
}

// Apply dispatches a change by its op.
func (ix *Indexer) Apply(ctx context.Context, ch model.Change) error {
	switch ch.Op {
	case model.OpUpsert, "":
		_, err := ix.Upsert(ctx, ch.Document())
		return err
	case model.OpDelete:
		return ix.Delete(ctx, ch.Document())
	default:
		return errors.Newf("unknown change op %q", ch.Op)
	}
}
