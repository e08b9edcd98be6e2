package health

import (
	"context"
	"fmt"
)

// Pinger is anything with a connectivity check, such as the Redis and
// Postgres clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports p as up when Ping succeeds. A nil p, meaning the
// dependency is switched off, reports degraded rather than down, as does a
// failing optional dependency.
func PingCheck(p Pinger, optional bool) Check {
	return func(ctx context.Context) ComponentHealth {
		if p == nil {
			return ComponentHealth{Status: StatusDegraded, Message: "not configured"}
		}
		if err := p.Ping(ctx); err != nil {
			status := StatusDown
			if optional {
				status = StatusDegraded
			}
			return ComponentHealth{Status: status, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// IndexStats is what the index check needs to know about the store.
type IndexStats func() (generation uint64, documents int, segments int)

// IndexCheck is up once the index has a committed generation and degraded
// while it has never been written.
func IndexCheck(stats IndexStats) Check {
	return func(ctx context.Context) ComponentHealth {
		gen, docs, segs := stats()
		if gen == 0 {
			return ComponentHealth{Status: StatusDegraded, Message: "index not created yet"}
		}
		return ComponentHealth{
			Status:  StatusUp,
			Message: fmt.Sprintf("generation %d, %d documents in %d segments", gen, docs, segs),
		}
	}
}
