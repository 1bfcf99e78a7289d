// Package cellindex keeps, per field and cell term, the set of documents
// indexed under that cell.
package cellindex

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mohammed-shakir/geoshape-index/internal/store/keys"
	"github.com/mohammed-shakir/geoshape-index/internal/store/redisstore"
)

type CellIndex interface {
	Add(ctx context.Context, field string, set keys.Set, terms []string, id string) error
	Remove(ctx context.Context, field string, set keys.Set, terms []string, id string) error
	// Members returns the sorted, distinct ids found under any of terms.
	Members(ctx context.Context, field string, set keys.Set, terms []string) ([]string, error)
}

type redisCellIndex struct {
	cli *redisstore.Client
	ttl time.Duration
}

// NewRedisIndex returns a CellIndex on Redis sets. A positive ttl is
// refreshed on every write.
func NewRedisIndex(cli *redisstore.Client, ttl time.Duration) CellIndex {
	return &redisCellIndex{cli: cli, ttl: ttl}
}

func (ci *redisCellIndex) Add(ctx context.Context, field string, set keys.Set, terms []string, id string) error {
	if err := ci.cli.SAddMany(ctx, keys.Cells(field, set, terms), id, ci.ttl); err != nil {
		return fmt.Errorf("cellindex add %s %s: %w", field, set, err)
	}
	return nil
}

func (ci *redisCellIndex) Remove(ctx context.Context, field string, set keys.Set, terms []string, id string) error {
	if err := ci.cli.SRemMany(ctx, keys.Cells(field, set, terms), id); err != nil {
		return fmt.Errorf("cellindex remove %s %s: %w", field, set, err)
	}
	return nil
}

func (ci *redisCellIndex) Members(ctx context.Context, field string, set keys.Set, terms []string) ([]string, error) {
	ids, err := ci.cli.SUnion(ctx, keys.Cells(field, set, terms))
	if err != nil {
		return nil, fmt.Errorf("cellindex members %s %s: %w", field, set, err)
	}
	sort.Strings(ids)
	return ids, nil
}
