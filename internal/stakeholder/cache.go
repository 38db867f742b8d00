package stakeholder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"domainflow/internal/domain"
	"domainflow/internal/platform/redis"
)

// CachedResolver is a read-through cache over the directory client. Role
// assignments change rarely, so a short TTL keeps renewal latency flat
// without serving stale holders for long. Misses are not cached: a
// department without an assigned role is exactly the case worth re-checking.
type CachedResolver struct {
	next   Resolver
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedResolver wraps next. A nil cache client turns it into a
// pass-through.
func NewCachedResolver(next Resolver, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (r *CachedResolver) ResolveRole(ctx context.Context, role domain.Role, department, centre string) (*Record, error) {
	if r.cache == nil {
		return r.next.ResolveRole(ctx, role, department, centre)
	}

	key := fmt.Sprintf("stakeholder:%s:%s:%s", role, department, centre)
	if raw, err := r.cache.Get(ctx, key).Bytes(); err == nil {
		var rec Record
		if err := json.Unmarshal(raw, &rec); err == nil {
			return &rec, nil
		}
		// A corrupt entry just falls through to the directory.
		r.cache.Del(ctx, key)
	} else if !errors.Is(err, goredis.Nil) {
		r.logger.Warn("stakeholder cache read failed", "key", key, "error", err)
	}

	rec, err := r.next.ResolveRole(ctx, role, department, centre)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(rec); err == nil {
		if err := r.cache.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			r.logger.Warn("stakeholder cache write failed", "key", key, "error", err)
		}
	}
	return rec, nil
}
