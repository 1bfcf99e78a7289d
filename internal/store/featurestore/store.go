// Package featurestore keeps the exact geometry of each indexed document.
package featurestore

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammed-shakir/geoshape-index/internal/store/keys"
	"github.com/mohammed-shakir/geoshape-index/internal/store/redisstore"
)

type GeometryStore interface {
	Put(ctx context.Context, field, id string, ewkb []byte) error
	// MGet returns the stored geometries of ids; missing ids are absent.
	MGet(ctx context.Context, field string, ids []string) (map[string][]byte, error)
	Delete(ctx context.Context, field string, ids ...string) error
}

type redisGeometryStore struct {
	cli *redisstore.Client
	ttl time.Duration
}

func NewRedisStore(cli *redisstore.Client, ttl time.Duration) GeometryStore {
	return &redisGeometryStore{cli: cli, ttl: ttl}
}

func (s *redisGeometryStore) Put(ctx context.Context, field, id string, ewkb []byte) error {
	k := keys.Geometry(field, id)
	if err := s.cli.Set(ctx, k, ewkb, s.ttl); err != nil {
		return fmt.Errorf("featurestore put %q: %w", k, err)
	}
	return nil
}

func (s *redisGeometryStore) MGet(ctx context.Context, field string, ids []string) (map[string][]byte, error) {
	if len(ids) == 0 {
		return map[string][]byte{}, nil
	}
	ks := make([]string, len(ids))
	for i, id := range ids {
		ks[i] = keys.Geometry(field, id)
	}
	raw, err := s.cli.MGet(ctx, ks)
	if err != nil {
		return nil, fmt.Errorf("featurestore mget %d keys: %w", len(ks), err)
	}
	out := make(map[string][]byte, len(raw))
	for i, id := range ids {
		if v, ok := raw[ks[i]]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *redisGeometryStore) Delete(ctx context.Context, field string, ids ...string) error {
	ks := make([]string, len(ids))
	for i, id := range ids {
		ks[i] = keys.Geometry(field, id)
	}
	if err := s.cli.Del(ctx, ks...); err != nil {
		return fmt.Errorf("featurestore delete %d keys: %w", len(ks), err)
	}
	return nil
}
