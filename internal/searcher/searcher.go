// Package searcher answers user queries in two tiers. The query is first run
// exactly as written; only when that finds nothing is it rewritten with
// fuzzy markers and run again.
package searcher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher/merger"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/metrics"
)

// Status tells a search that matched apart from one that failed.
type Status int

const (
	StatusEmpty Status = iota
	StatusHits
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusHits:
		return "hits"
	case StatusError:
		return "error"
	default:
		return "empty"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "hits":
		*s = StatusHits
	case "error":
		*s = StatusError
	case "empty":
		*s = StatusEmpty
	default:
		return errors.New("unknown status " + string(b))
	}
	return nil
}

// Tier identifies which pass produced an Outcome.
type Tier int

const (
	TierExact Tier = iota + 1
	TierFuzzy
)

func (t Tier) String() string {
	if t == TierFuzzy {
		return "fuzzy"
	}
	return "exact"
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	switch string(b) {
	case "exact":
		*t = TierExact
	case "fuzzy":
		*t = TierFuzzy
	default:
		return errors.New("unknown tier " + string(b))
	}
	return nil
}

// Hit is one ranked question with its stored fields.
type Hit struct {
	ID            string   `json:"id"`
	Score         float64  `json:"score"`
	Content       string   `json:"content"`
	Subject       string   `json:"subject,omitempty"`
	Year          string   `json:"year,omitempty"`
	Tags          string   `json:"tags,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correct_answer,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Outcome is the result of one Search. Err is set only with StatusError.
type Outcome struct {
	Status     Status `json:"status"`
	Tier       Tier   `json:"tier"`
	Hits       []Hit  `json:"hits"`
	Generation uint64 `json:"generation"`
	Err        error  `json:"-"`
}

// Snapshotter hands out pinned index snapshots.
type Snapshotter interface {
	Snapshot() *indexer.Snapshot
}

// Searcher runs the exact tier and, when it finds nothing, the fuzzy tier
// over one pinned snapshot.
type Searcher struct {
	store    Snapshotter
	parser   *parser.Parser
	executor *executor.Executor
	cfg      config.SearchConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// OnTier, if set, is called after each tier runs with the number of
	// documents it matched.
	OnTier func(tier Tier, matches int)
}

type Option func(*Searcher)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Searcher) {
		s.metrics = m
	}
}

func New(store Snapshotter, cfg config.SearchConfig, opts ...Option) *Searcher {
	s := &Searcher{
		store:    store,
		parser:   parser.New(index.SearchableFields),
		executor: executor.New(index.SearchableFields, cfg.MaxFuzzyExpansions),
		cfg:      cfg,
		logger:   slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Limit clamps a requested result count to the configured bounds.
func (s *Searcher) Limit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit <= 0 {
		limit = 10
	}
	if s.cfg.MaxResults > 0 && limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}
	return limit
}

// Generation is the index generation new searches would see.
func (s *Searcher) Generation() uint64 {
	snap := s.store.Snapshot()
	defer snap.Release()
	return snap.Generation()
}

// Search never returns a Go error: failures in either tier are logged and
// reported as StatusError once both tiers have had their chance.
func (s *Searcher) Search(ctx context.Context, query string, limit int) Outcome {
	start := time.Now()
	log := logger.FromContext(ctx).With("component", "searcher")
	limit = s.Limit(limit)

	snap := s.store.Snapshot()
	defer snap.Release()

	out := s.search(ctx, log, snap, query, limit)
	out.Generation = snap.Generation()
	if out.Hits == nil {
		out.Hits = []Hit{}
	}
	if s.metrics != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues(out.Tier.String(), out.Status.String()).Inc()
		s.metrics.SearchResultsCount.Observe(float64(len(out.Hits)))
	}
	log.Info("search completed",
		"query", query,
		"status", out.Status.String(),
		"tier", out.Tier.String(),
		"returned", len(out.Hits),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (s *Searcher) search(ctx context.Context, log *slog.Logger, snap *indexer.Snapshot, query string, limit int) Outcome {
	if strings.TrimSpace(query) == "" || snap.DocCount() == 0 {
		return Outcome{Status: StatusEmpty, Tier: TierExact}
	}

	hits, exactErr := s.runTier(ctx, snap, TierExact, query, limit)
	if exactErr != nil {
		log.Warn("exact tier failed", "query", query, "error", exactErr)
	}
	if len(hits) > 0 {
		return Outcome{Status: StatusHits, Tier: TierExact, Hits: hits}
	}
	if err := ctx.Err(); err != nil {
		return Outcome{Status: StatusError, Tier: TierExact, Err: err}
	}

	rewritten := parser.FuzzyRewriteMin(query, s.cfg.FuzzyMinTermLength)
	hits, fuzzyErr := s.runTier(ctx, snap, TierFuzzy, rewritten, limit)
	if fuzzyErr != nil {
		log.Warn("fuzzy tier failed", "query", rewritten, "error", fuzzyErr)
	}
	if len(hits) > 0 {
		return Outcome{Status: StatusHits, Tier: TierFuzzy, Hits: hits}
	}
	if exactErr != nil || fuzzyErr != nil {
		return Outcome{Status: StatusError, Tier: TierFuzzy, Err: errors.Join(exactErr, fuzzyErr)}
	}
	return Outcome{Status: StatusEmpty, Tier: TierFuzzy}
}

func (s *Searcher) runTier(ctx context.Context, snap *indexer.Snapshot, tier Tier, query string, limit int) ([]Hit, error) {
	node, err := s.parser.Parse(query)
	if err != nil {
		s.notify(tier, 0)
		return nil, err
	}
	res, err := s.executor.Execute(ctx, snap, node)
	if err != nil {
		s.notify(tier, 0)
		return nil, err
	}
	s.notify(tier, len(res.Scores))
	top := merger.TopK(res.Scores, limit)
	hits := make([]Hit, 0, len(top))
	for _, sd := range top {
		doc, ok := snap.Document(sd.DocID)
		if !ok {
			continue
		}
		hits = append(hits, Hit{
			ID:            doc.ID,
			Score:         sd.Score,
			Content:       doc.Content,
			Subject:       doc.Subject,
			Year:          doc.Year,
			Tags:          doc.Tags,
			Options:       doc.Options,
			CorrectAnswer: doc.CorrectAnswer,
			Explanation:   doc.Explanation,
		})
	}
	return hits, nil
}

func (s *Searcher) notify(tier Tier, matches int) {
	if s.OnTier != nil {
		s.OnTier(tier, matches)
	}
}
