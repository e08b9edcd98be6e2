// Package cache stores search outcomes in Redis. Keys include the index
// generation, so a commit makes every earlier entry unreachable and no
// explicit invalidation is needed on write.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/resilience"
)

const (
	keyPrefix = "qbank:search:"

	// Cache calls past this bound are abandoned so a slow Redis never
	// slows a search down.
	backendTimeout = 250 * time.Millisecond
)

// Backend is the key-value store behind the cache. *pkg/redis.Client
// satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	backend Backend
	ttl     time.Duration
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	group   singleflight.Group
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

type Option func(*QueryCache)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *QueryCache) {
		c.metrics = m
	}
}

// WithBreaker replaces the default circuit breaker guarding the backend.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *QueryCache) {
		c.breaker = cb
	}
}

func New(backend Backend, ttl time.Duration, opts ...Option) *QueryCache {
	c := &QueryCache{
		backend: backend,
		ttl:     ttl,
		logger:  slog.Default().With("component", "query-cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			OnStateChange:    c.reportBreaker,
		})
	}
	return c
}

// Get looks up a cached outcome. Backend failures count as misses.
func (c *QueryCache) Get(ctx context.Context, query string, limit int, generation uint64) (searcher.Outcome, bool) {
	key := BuildKey(query, limit, generation)
	var data string
	var found bool
	err := c.guard(ctx, "cache-get", func(ctx context.Context) error {
		var err error
		data, found, err = c.backend.Get(ctx, key)
		return err
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return searcher.Outcome{}, false
	}
	if !found {
		c.miss()
		return searcher.Outcome{}, false
	}
	var out searcher.Outcome
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return searcher.Outcome{}, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", query, "key", key)
	return out, true
}

// Set stores out unless it is an error outcome.
func (c *QueryCache) Set(ctx context.Context, query string, limit int, out searcher.Outcome) {
	if out.Status == searcher.StatusError {
		return
	}
	key := BuildKey(query, limit, out.Generation)
	data, err := json.Marshal(out)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.guard(ctx, "cache-set", func(ctx context.Context) error {
		return c.backend.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached outcome or runs compute, collapsing
// concurrent misses for the same key into one computation.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	generation uint64,
	compute func() searcher.Outcome,
) (searcher.Outcome, bool) {
	if out, ok := c.Get(ctx, query, limit, generation); ok {
		return out, true
	}
	key := BuildKey(query, limit, generation)
	val, _, _ := c.group.Do(key, func() (interface{}, error) {
		out := compute()
		c.Set(ctx, query, limit, out)
		return out, nil
	})
	return val.(searcher.Outcome), false
}

func (c *QueryCache) Invalidate(ctx context.Context) error {
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.backend.FlushByPattern(ctx, keyPrefix+"*")
		return err
	})
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports whether the backend is currently bypassed.
func (c *QueryCache) BreakerState() resilience.State {
	return c.breaker.GetState()
}

// BreakerStats describes the breaker guarding the backend.
func (c *QueryCache) BreakerStats() resilience.BreakerStats {
	return c.breaker.Stats()
}

func (c *QueryCache) guard(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, backendTimeout, name, fn)
	})
}

func (c *QueryCache) reportBreaker(name string, to resilience.State) {
	if c.metrics != nil {
		c.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// BuildKey hashes the normalized query together with the limit and the
// index generation the outcome was computed against.
func BuildKey(query string, limit int, generation uint64) string {
	raw := fmt.Sprintf("%s|limit=%d|gen=%d", NormalizeQuery(query), limit, generation)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// NormalizeQuery collapses whitespace and case-folds plain words. Operators
// and anything carrying syntax (fields, quotes, fuzzy markers) are kept
// as written, since folding them could change what the query means.
func NormalizeQuery(query string) string {
	words := strings.Fields(query)
	for i, w := range words {
		switch w {
		case "AND", "OR", "NOT":
			continue
		}
		if isPlainWord(w) {
			words[i] = strings.ToLower(w)
		}
	}
	return strings.Join(words, " ")
}

func isPlainWord(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
