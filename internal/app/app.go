// Package app assembles the geoshape service from its configuration.
package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/core/config"
	"github.com/mohammed-shakir/geoshape-index/internal/core/health"
	"github.com/mohammed-shakir/geoshape-index/internal/geo/sfkernel"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
	"github.com/mohammed-shakir/geoshape-index/internal/geoshape"
	"github.com/mohammed-shakir/geoshape-index/internal/ingest"
	"github.com/mohammed-shakir/geoshape-index/internal/ingest/kafkaconsumer"
	"github.com/mohammed-shakir/geoshape-index/internal/search"
	"github.com/mohammed-shakir/geoshape-index/internal/store"
	"github.com/mohammed-shakir/geoshape-index/internal/store/cellindex"
	"github.com/mohammed-shakir/geoshape-index/internal/store/featurestore"
	"github.com/mohammed-shakir/geoshape-index/internal/store/redisstore"
)

type App struct {
	Schema *geoshape.GeoSchema
	Kernel *sfkernel.Kernel
	// Indexer, Searcher and Consumer are nil without a store.
	Indexer  *ingest.Indexer
	Searcher *search.Searcher
	Consumer *kafkaconsumer.Consumer
	Checks   map[string]health.Check

	redis *redisstore.Client
}

// LoadSchema reads a JSON list of field specs from path.
func LoadSchema(path string, k *sfkernel.Kernel, logger *slog.Logger) (*geoshape.GeoSchema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "read schema %s", path), geoerr.ErrConfiguration)
	}
	cfgs, err := geoshape.ParseSchema(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "schema %s", path)
	}
	return geoshape.BuildSchema(cfgs, k, geoshape.WithLogger(logger))
}

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	k, err := sfkernel.New(sfkernel.WithParseCache(cfg.ParseCacheSize))
	if err != nil {
		return nil, err
	}
	schema, err := LoadSchema(cfg.SchemaFile, k, logger)
	if err != nil {
		return nil, err
	}
	a := &App{Schema: schema, Kernel: k, Checks: map[string]health.Check{}}
	logger.Info("schema loaded", "file", cfg.SchemaFile, "fields", schema.Fields())

	if !cfg.Store.Enabled {
		if cfg.Kafka.Enabled {
			return nil, geoerr.Configf("kafka ingest requires STORE_ENABLED")
		}
		return a, nil
	}

	rc, err := redisstore.New(ctx, cfg.Store.RedisAddr)
	if err != nil {
		return nil, errors.Wrap(err, "connect store")
	}
	a.redis = rc
	a.Checks["redis"] = rc.Ping

	cells := cellindex.NewRedisIndex(rc, cfg.Store.TTL)
	geoms := featurestore.NewRedisStore(rc, cfg.Store.TTL)
	a.Indexer = ingest.NewIndexer(schema, store.NewWriter(cells, geoms), logger)
	a.Searcher = search.New(schema, k, cells, geoms, logger)

	if cfg.Kafka.Enabled {
		kc, err := kafkaconsumer.FromSettings(cfg.Kafka)
		if err != nil {
			return nil, err
		}
		a.Consumer = kafkaconsumer.New(kc, logger, a.Indexer)
	}
	return a, nil
}

func (a *App) Close() error {
	if a.redis == nil {
		return nil
	}
	return a.redis.Close()
}
