package cache

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-social/lumen/internal/toggle"
	"github.com/lumen-social/lumen/pkg/logging"
)

// CountStore is the subset of Cache used to memoise counts.
type CountStore interface {
	GetInt(ctx context.Context, key string) (int64, error)
	SetInt(ctx context.Context, key string, value int64, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

var _ CountStore = (*Cache)(nil)

// epochSlots is the number of invalidation counters keys are spread over.
const epochSlots = 256

// CountingGateway caches CountByField results of the wrapped gateway and
// drops the cached count of a target whenever a record for it is inserted or
// deleted. Existence checks and writes always go to the wrapped gateway.
//
// A count read from the wrapped gateway is only cached when no invalidation
// of its key ran in this process while it was being read, and is dropped
// again if one lands while it is being written. Writes made by other
// processes can still leave a stale count cached for up to ttl.
type CountingGateway struct {
	next   toggle.Gateway
	store  CountStore
	ttl    time.Duration
	fields map[string]string
	logger *zap.Logger

	epochs [epochSlots]atomic.Uint64
}

var _ toggle.Gateway = (*CountingGateway)(nil)

// NewCountingGateway wraps next. schemas lists the relationships whose target
// counts are cached; counts for other tables pass straight through.
func NewCountingGateway(next toggle.Gateway, store CountStore, ttl time.Duration, schemas ...toggle.Schema) *CountingGateway {
	fields := make(map[string]string, len(schemas))
	for _, s := range schemas {
		fields[s.Table] = s.TargetField
	}
	return &CountingGateway{
		next:   next,
		store:  store,
		ttl:    ttl,
		fields: fields,
		logger: logging.WithComponent("cache"),
	}
}

func countKey(table, field string, value any) string {
	return "count:" + HashKey(table, field, fmt.Sprint(value))
}

func (g *CountingGateway) epoch(key string) *atomic.Uint64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &g.epochs[h.Sum32()%epochSlots]
}

// ExistsByKey implements toggle.Gateway.
func (g *CountingGateway) ExistsByKey(ctx context.Context, key toggle.Key) (bool, error) {
	return g.next.ExistsByKey(ctx, key)
}

// Insert implements toggle.Gateway. A conflict still invalidates: the count
// the caller holds is stale either way.
func (g *CountingGateway) Insert(ctx context.Context, table string, record any) error {
	err := g.next.Insert(ctx, table, record)
	if err == nil || toggle.IsConflict(err) {
		if target, ok := targetOf(record); ok {
			g.invalidate(ctx, table, target)
		}
	}
	return err
}

// DeleteByKey implements toggle.Gateway.
func (g *CountingGateway) DeleteByKey(ctx context.Context, key toggle.Key) error {
	err := g.next.DeleteByKey(ctx, key)
	if err == nil {
		g.invalidate(ctx, key.Table, key.TargetValue)
	}
	return err
}

// CountByField implements toggle.Gateway.
func (g *CountingGateway) CountByField(ctx context.Context, table, field string, value any) (int64, error) {
	if g.fields[table] != field {
		return g.next.CountByField(ctx, table, field, value)
	}
	k := countKey(table, field, value)
	if n, err := g.store.GetInt(ctx, k); err == nil {
		return n, nil
	} else if !errors.Is(err, ErrMiss) && !errors.Is(err, ErrCacheDisabled) {
		g.logger.Debug("count cache read failed", zap.String("table", table), zap.Error(err))
	}

	epoch := g.epoch(k)
	seen := epoch.Load()
	n, err := g.next.CountByField(ctx, table, field, value)
	if err != nil {
		return 0, err
	}
	if epoch.Load() != seen {
		return n, nil
	}
	if err := g.store.SetInt(ctx, k, n, g.ttl); err != nil && !errors.Is(err, ErrCacheDisabled) {
		g.logger.Debug("count cache write failed", zap.String("table", table), zap.Error(err))
		return n, nil
	}
	if epoch.Load() != seen {
		g.drop(ctx, table, k)
	}
	return n, nil
}

func (g *CountingGateway) invalidate(ctx context.Context, table string, target any) {
	field, ok := g.fields[table]
	if !ok {
		return
	}
	k := countKey(table, field, target)
	g.epoch(k).Add(1)
	g.drop(ctx, table, k)
}

func (g *CountingGateway) drop(ctx context.Context, table, key string) {
	if err := g.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrCacheDisabled) {
		g.logger.Warn("count cache invalidation failed", zap.String("table", table), zap.Error(err))
	}
}

// Targeted is implemented by relationship records that can name their target.
type Targeted interface {
	TargetValue() any
}

func targetOf(record any) (any, bool) {
	t, ok := record.(Targeted)
	if !ok {
		return nil, false
	}
	return t.TargetValue(), true
}
