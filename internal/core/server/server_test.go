package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammed-shakir/geoshape-index/internal/core/health"
	"github.com/mohammed-shakir/geoshape-index/internal/core/router"
	"github.com/mohammed-shakir/geoshape-index/internal/geo/sfkernel"
	"github.com/mohammed-shakir/geoshape-index/internal/geoshape"
	"github.com/mohammed-shakir/geoshape-index/internal/metrics"
)

func TestNewHandler_Routes(t *testing.T) {
	k, err := sfkernel.New()
	if err != nil {
		t.Fatalf("kernel: %v", err)
	}
	schema, err := geoshape.BuildSchema([]geoshape.Config{geoshape.DefaultConfig("shape")}, k)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := metrics.Init(metrics.Config{})
	checks := map[string]health.Check{"schema": func(context.Context) error { return nil }}
	srv := httptest.NewServer(NewHandler(logger, router.New(schema, nil, nil, logger), p.Handler(), checks))
	defer srv.Close()

	for path, want := range map[string]int{
		"/healthz":              http.StatusOK,
		"/readyz":               http.StatusOK,
		"/metrics":              http.StatusOK,
		"/v1/fields":            http.StatusOK,
		"/v1/fields/shape/sort": http.StatusBadRequest,
		"/nope":                 http.StatusNotFound,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("GET %s status=%d want %d", path, resp.StatusCode, want)
		}
		if resp.Header.Get("X-Request-ID") == "" {
			t.Fatalf("GET %s: missing request id", path)
		}
	}
}
