package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"

	"github.com/mohammed-shakir/geoshape-index/internal/core/config"
	"github.com/mohammed-shakir/geoshape-index/internal/core/model"
	"github.com/mohammed-shakir/geoshape-index/internal/geoerr"
)

func schemaFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "schema.json")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return p
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestBuild_WithStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cfg := config.Config{
		SchemaFile:     schemaFile(t, `[{"field":"area","transformations":[{"type":"buffer","max_distance":"1km"}]}]`),
		ParseCacheSize: 16,
		Store:          config.StoreCfg{Enabled: true, RedisAddr: mr.Addr()},
	}
	ctx := context.Background()
	a, err := Build(ctx, cfg, quiet())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	if a.Indexer == nil || a.Searcher == nil || a.Consumer != nil {
		t.Fatalf("unexpected wiring %+v", a)
	}
	if err := a.Checks["redis"](ctx); err != nil {
		t.Fatalf("redis check: %v", err)
	}

	doc := model.Document{ID: "p1", Columns: map[string]string{"area": "POINT(10 10)"}}
	if _, err := a.Indexer.Upsert(ctx, doc); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	// about 550m east of the point, inside the 1km buffer
	res, err := a.Searcher.Intersects(ctx, "area", "POINT(10.005 10)")
	if err != nil {
		t.Fatalf("Intersects: %v", err)
	}
	if len(res.IDs) != 1 || res.IDs[0] != "p1" {
		t.Fatalf("res=%+v", res)
	}
}

func TestBuild_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := Build(ctx, config.Config{SchemaFile: filepath.Join(t.TempDir(), "missing.json")}, quiet()); !errors.Is(err, geoerr.ErrConfiguration) {
		t.Fatalf("missing schema: %v", err)
	}
	if _, err := Build(ctx, config.Config{SchemaFile: schemaFile(t, `[]`)}, quiet()); !errors.Is(err, geoerr.ErrConfiguration) {
		t.Fatalf("empty schema: %v", err)
	}
	cfg := config.Config{SchemaFile: schemaFile(t, `[{"field":"a"}]`), Kafka: config.KafkaCfg{Enabled: true}}
	if _, err := Build(ctx, cfg, quiet()); !errors.Is(err, geoerr.ErrConfiguration) {
		t.Fatalf("kafka without store: %v", err)
	}
	a, err := Build(ctx, config.Config{SchemaFile: schemaFile(t, `[{"field":"a"}]`)}, quiet())
	if err != nil || a.Indexer != nil {
		t.Fatalf("store-less build: %+v %v", a, err)
	}
}
