package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/resilience"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string]string
	err  error
	gets atomic.Int64
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string]string)}
}

func (b *memBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.gets.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return "", false, b.err
	}
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *memBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.data[key] = string(value)
	return nil
}

func (b *memBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range b.data {
		if strings.HasPrefix(k, prefix) {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

func hitsOutcome(gen uint64, ids ...string) searcher.Outcome {
	out := searcher.Outcome{Status: searcher.StatusHits, Tier: searcher.TierFuzzy, Generation: gen}
	for _, id := range ids {
		out.Hits = append(out.Hits, searcher.Hit{ID: id, Score: 1.5, Options: []string{"a", "b"}})
	}
	return out
}

func TestGetOrComputeCaches(t *testing.T) {
	c := New(newMemBackend(), time.Minute)
	ctx := context.Background()
	calls := 0
	compute := func() searcher.Outcome {
		calls++
		return hitsOutcome(3, "p1")
	}

	first, cached := c.GetOrCompute(ctx, "Glycolysis", 10, 3, compute)
	if cached || calls != 1 {
		t.Fatalf("first call cached=%v calls=%d", cached, calls)
	}
	second, cached := c.GetOrCompute(ctx, "glycolysis", 10, 3, compute)
	if !cached || calls != 1 {
		t.Fatalf("second call cached=%v calls=%d", cached, calls)
	}
	if second.Tier != first.Tier || second.Status != first.Status || len(second.Hits) != 1 || second.Hits[0].ID != "p1" {
		t.Errorf("cached outcome = %+v", second)
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("stats = %d/%d", hits, misses)
	}
}

func TestGenerationChangesKey(t *testing.T) {
	c := New(newMemBackend(), time.Minute)
	ctx := context.Background()
	c.Set(ctx, "entropy", 10, hitsOutcome(1, "a"))
	if _, ok := c.Get(ctx, "entropy", 10, 2); ok {
		t.Error("outcome from generation 1 served for generation 2")
	}
	if _, ok := c.Get(ctx, "entropy", 10, 1); !ok {
		t.Error("generation 1 entry missing")
	}
}

func TestErrorOutcomesNotCached(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute)
	c.Set(context.Background(), "(bad", 10, searcher.Outcome{Status: searcher.StatusError, Err: errors.New("parse")})
	if len(backend.data) != 0 {
		t.Errorf("error outcome stored: %v", backend.data)
	}
}

func TestInvalidate(t *testing.T) {
	backend := newMemBackend()
	backend.data["other:key"] = "keep"
	c := New(backend, time.Minute)
	ctx := context.Background()
	c.Set(ctx, "entropy", 10, hitsOutcome(1, "a"))
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(ctx, "entropy", 10, 1); ok {
		t.Error("entry survived invalidation")
	}
	if backend.data["other:key"] != "keep" {
		t.Error("invalidation removed foreign keys")
	}
}

func TestBreakerBypassesFailingBackend(t *testing.T) {
	backend := newMemBackend()
	backend.err = errors.New("connection refused")
	cb := resilience.NewCircuitBreaker("test-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 4,
		ResetTimeout:     time.Hour,
	})
	c := New(backend, time.Minute, WithBreaker(cb))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		out, cached := c.GetOrCompute(ctx, "entropy", 10, 1, func() searcher.Outcome {
			return hitsOutcome(1, "a")
		})
		if cached || len(out.Hits) != 1 {
			t.Fatalf("attempt %d: cached=%v out=%+v", i, cached, out)
		}
	}
	if c.BreakerState() != resilience.StateOpen {
		t.Errorf("breaker state = %v, want open", c.BreakerState())
	}
	if got := backend.gets.Load(); got != 2 {
		t.Errorf("backend Get called %d times, want 2 before the breaker opened", got)
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  Glycolysis   Pathway ", "glycolysis pathway"},
		{"laws AND Motion", "laws AND motion"},
		{"subject:Physics", "subject:Physics"},
		{`"Krebs Cycle"`, `"Krebs Cycle"`},
		{"Entropy~1", "Entropy~1"},
	}
	for _, tt := range tests {
		if got := NormalizeQuery(tt.in); got != tt.want {
			t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if BuildKey("a b", 10, 1) != BuildKey("A   b", 10, 1) {
		t.Error("equivalent queries produced different keys")
	}
	if BuildKey("a b", 10, 1) == BuildKey("a b", 5, 1) {
		t.Error("limit not part of the key")
	}
}
