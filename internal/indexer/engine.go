// Package indexer owns the on-disk question index: a fixed schema, immutable
// segments listed by a manifest, pinned read snapshots and compaction.
//
// One process writes a directory at a time. Any number of processes may
// read it; they pick up new commits through Refresh.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Question-Bank-Search/pkg/metrics"
)

type Store struct {
	cfg     config.IndexerConfig
	dir     string
	writer  *segment.Writer
	metrics *metrics.Metrics
	logger  *slog.Logger

	writeMu sync.Mutex
	mu      sync.RWMutex
	current *view
	handles map[string]*segmentHandle
	closed  bool
}

type Option func(*Store)

// WithMetrics reports commits, merges and segment counts to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Stats describes the current generation of a Store.
type Stats struct {
	Dir        string `json:"dir"`
	Generation uint64 `json:"generation"`
	Segments   int    `json:"segments"`
	Documents  int    `json:"documents"`
}

// Open loads the index in cfg.DataDir. A directory without a manifest opens
// as an empty index; nothing is created until the first write.
func Open(cfg config.IndexerConfig, opts ...Option) (*Store, error) {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return nil, fmt.Errorf("%w: empty index directory", apperrors.ErrInvalidInput)
	}
	s := &Store{
		cfg:     cfg,
		dir:     cfg.DataDir,
		writer:  segment.NewWriter(cfg.DataDir),
		logger:  slog.Default().With("component", "indexer"),
		handles: make(map[string]*segmentHandle),
	}
	for _, opt := range opts {
		opt(s)
	}

	schema, ok, err := readSchema(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIndexUnavailable, err)
	}
	if ok && !schema.Equal(QuestionSchema()) {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrSchemaMismatch, s.dir)
	}

	m, ok, err := readManifest(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIndexUnavailable, err)
	}
	if !ok {
		s.current = newView(0, nil)
		s.logger.Info("index not created yet", "dir", s.dir)
		return s, nil
	}
	segs, err := s.openSegments(m.Segments)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIndexUnavailable, err)
	}
	s.current = newView(m.Generation, segs)
	s.reportState()
	s.logger.Info("index opened",
		"dir", s.dir,
		"generation", m.Generation,
		"segments", len(segs),
		"documents", len(s.current.owner),
	)
	return s, nil
}

// openSegments returns handles for names, reusing open ones. On error every
// handle opened by this call is closed again.
func (s *Store) openSegments(names []string) ([]*segmentHandle, error) {
	segs := make([]*segmentHandle, 0, len(names))
	var opened []*segmentHandle
	for _, name := range names {
		s.mu.RLock()
		h, ok := s.handles[name]
		s.mu.RUnlock()
		if ok && !h.obsolete.Load() {
			segs = append(segs, h)
			continue
		}
		reader, err := segment.OpenReader(filepath.Join(s.dir, name))
		if err != nil {
			for _, o := range opened {
				o.reader.Close()
			}
			return nil, fmt.Errorf("opening segment %s: %w", name, err)
		}
		h = s.newHandle(name, reader)
		opened = append(opened, h)
		segs = append(segs, h)
	}
	s.mu.Lock()
	for _, h := range opened {
		s.handles[h.name] = h
	}
	s.mu.Unlock()
	return segs, nil
}

func (s *Store) newHandle(name string, reader *segment.Reader) *segmentHandle {
	return &segmentHandle{
		name:   name,
		reader: reader,
		onClose: func(h *segmentHandle) {
			s.mu.Lock()
			if cur, ok := s.handles[h.name]; ok && cur == h {
				delete(s.handles, h.name)
			}
			s.mu.Unlock()
		},
	}
}

// EnsureSchema creates the directory, schema and an empty manifest when they
// are absent. An existing schema that differs is ErrSchemaMismatch.
func (s *Store) EnsureSchema() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.ensureSchemaLocked()
}

func (s *Store) ensureSchemaLocked() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: creating index directory: %v", apperrors.ErrWriteFailed, err)
	}
	existing, ok, err := readSchema(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrWriteFailed, err)
	}
	want := QuestionSchema()
	if ok && !existing.Equal(want) {
		return fmt.Errorf("%w: %s", apperrors.ErrSchemaMismatch, s.dir)
	}
	if !ok {
		if err := writeSchema(s.dir, want); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrWriteFailed, err)
		}
		s.logger.Info("index schema created", "dir", s.dir)
	}
	if _, ok, err := readManifest(s.dir); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrWriteFailed, err)
	} else if !ok {
		if err := writeManifest(s.dir, Manifest{Generation: s.currentView().generation}); err != nil {
			return fmt.Errorf("%w: %v", apperrors.ErrWriteFailed, err)
		}
	}
	return nil
}

// Upsert commits docs as one new segment. A document id already in the index
// is replaced; within docs the last copy of an id wins. The batch is visible
// to new snapshots once Upsert returns nil and not before.
func (s *Store) Upsert(ctx context.Context, docs []index.Document) error {
	if len(docs) == 0 {
		return nil
	}
	for _, d := range docs {
		if d.ID == "" {
			return fmt.Errorf("%w: document without id", apperrors.ErrInvalidInput)
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrWriteFailed, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isClosed() {
		return fmt.Errorf("%w: store closed", apperrors.ErrIndexUnavailable)
	}
	if err := s.ensureSchemaLocked(); err != nil {
		return err
	}

	mem := index.NewMemoryIndex()
	for _, d := range docs {
		mem.AddDocument(d)
	}
	start := time.Now()
	if err := s.commitLocked(mem, false); err != nil {
		s.countCommit("error")
		return err
	}
	s.countCommit("ok")
	if s.metrics != nil {
		s.metrics.DocsCommittedTotal.Add(float64(mem.DocCount()))
	}
	s.logger.Debug("batch committed",
		"documents", mem.DocCount(),
		"generation", s.currentView().generation,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// commitLocked writes mem as a segment and publishes a manifest that either
// appends it to the live set or, with replaceAll, makes it the only segment.
func (s *Store) commitLocked(mem *index.MemoryIndex, replaceAll bool) error {
	cur := s.currentView()
	gen := cur.generation + 1
	name := segment.FileName(gen)

	if err := s.writer.Write(name, mem.Snapshot(), mem.Documents()); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrWriteFailed, err)
	}
	path := filepath.Join(s.dir, name)
	reader, err := segment.OpenReader(path)
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("%w: reopening segment: %v", apperrors.ErrWriteFailed, err)
	}
	h := s.newHandle(name, reader)

	var segs []*segmentHandle
	var retired []*segmentHandle
	if replaceAll {
		segs = []*segmentHandle{h}
		retired = cur.segments
	} else {
		segs = make([]*segmentHandle, 0, len(cur.segments)+1)
		segs = append(segs, cur.segments...)
		segs = append(segs, h)
	}
	names := make([]string, len(segs))
	for i, sh := range segs {
		names[i] = sh.name
	}

	if err := writeManifest(s.dir, Manifest{Generation: gen, Segments: names}); err != nil {
		reader.Close()
		os.Remove(path)
		return fmt.Errorf("%w: publishing manifest: %v", apperrors.ErrWriteFailed, err)
	}
	s.mu.Lock()
	s.handles[name] = h
	s.mu.Unlock()
	s.publish(gen, segs, retired, true)
	return nil
}

// publish swaps in the view for gen and retires segments no longer live.
func (s *Store) publish(gen uint64, segs, retired []*segmentHandle, removeFiles bool) {
	next := newView(gen, segs)
	s.mu.Lock()
	old := s.current
	s.current = next
	s.mu.Unlock()
	if old != nil {
		old.release()
	}
	for _, h := range retired {
		h.retire(removeFiles)
	}
	s.reportState()
}

func (s *Store) reportState() {
	if s.metrics == nil {
		return
	}
	v := s.currentView()
	s.metrics.LiveSegments.Set(float64(len(v.segments)))
	s.metrics.IndexGeneration.Set(float64(v.generation))
}

func (s *Store) countCommit(status string) {
	if s.metrics != nil {
		s.metrics.IndexCommitsTotal.WithLabelValues(status).Inc()
	}
}

func (s *Store) currentView() *view {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Exists reports whether a live document has id. It is false for an index
// that was never created.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.current.owner[id]
	return ok
}

// Document returns the stored fields of the live copy of id.
func (s *Store) Document(id string) (index.StoredDocument, bool) {
	snap := s.Snapshot()
	defer snap.Release()
	return snap.Document(id)
}

// Snapshot pins the current generation for reading.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.current.acquire()
	return &Snapshot{v: s.current}
}

// Refresh loads a manifest committed by another process. It is a no-op when
// the generation has not moved.
func (s *Store) Refresh() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.isClosed() {
		return fmt.Errorf("%w: store closed", apperrors.ErrIndexUnavailable)
	}
	m, ok, err := readManifest(s.dir)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrIndexUnavailable, err)
	}
	cur := s.currentView()
	if !ok || m.Generation == cur.generation {
		return nil
	}
	segs, err := s.openSegments(m.Segments)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrIndexUnavailable, err)
	}
	live := make(map[string]struct{}, len(segs))
	for _, h := range segs {
		live[h.name] = struct{}{}
	}
	var retired []*segmentHandle
	for _, h := range cur.segments {
		if _, ok := live[h.name]; !ok {
			retired = append(retired, h)
		}
	}
	s.publish(m.Generation, segs, retired, false)
	s.logger.Info("index refreshed",
		"generation", m.Generation,
		"segments", len(segs),
	)
	return nil
}

// Merge compacts the index when the live segment count exceeds
// MaxSegmentsBeforeMerge.
func (s *Store) Merge() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if len(s.currentView().segments) <= s.cfg.MaxSegmentsBeforeMerge {
		return nil
	}
	return s.compactLocked()
}

// Compact rewrites every live document into a single segment regardless of
// the segment count, then removes orphaned files from the directory.
func (s *Store) Compact() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if len(s.currentView().segments) <= 1 {
		s.removeOrphansLocked()
		return nil
	}
	return s.compactLocked()
}

func (s *Store) compactLocked() error {
	if s.isClosed() {
		return fmt.Errorf("%w: store closed", apperrors.ErrIndexUnavailable)
	}
	cur := s.currentView()
	before := len(cur.segments)
	start := time.Now()

	mem := index.NewMemoryIndex()
	for _, id := range cur.sortedIDs() {
		doc, _ := cur.document(id)
		mem.AddDocument(doc.Document)
	}
	if err := s.commitLocked(mem, true); err != nil {
		s.countMerge("error")
		return err
	}
	s.countMerge("ok")
	s.removeOrphansLocked()
	s.logger.Info("segments merged",
		"segments_before", before,
		"documents", mem.DocCount(),
		"generation", s.currentView().generation,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Store) countMerge(status string) {
	if s.metrics != nil {
		s.metrics.MergesTotal.WithLabelValues(status).Inc()
	}
}

// removeOrphansLocked deletes segment and temp files that neither the
// manifest nor an open reader refers to, such as leftovers of a crash.
func (s *Store) removeOrphansLocked() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	s.mu.RLock()
	inUse := make(map[string]struct{}, len(s.handles))
	for name := range s.handles {
		inUse[name] = struct{}{}
	}
	s.mu.RUnlock()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(name, segment.Extension) && !strings.HasSuffix(name, ".tmp") {
			continue
		}
		if _, ok := inUse[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn("removing orphaned file", "file", name, "error", err)
			continue
		}
		s.logger.Info("orphaned file removed", "file", name)
	}
}

// StartMergeLoop runs Merge every MergeInterval until ctx is cancelled.
func (s *Store) StartMergeLoop(ctx context.Context) {
	s.startLoop(ctx, s.cfg.MergeInterval, "merge", s.Merge)
}

// StartRefreshLoop runs Refresh every RefreshInterval until ctx is cancelled.
func (s *Store) StartRefreshLoop(ctx context.Context) {
	s.startLoop(ctx, s.cfg.RefreshInterval, "refresh", s.Refresh)
}

func (s *Store) startLoop(ctx context.Context, interval time.Duration, name string, fn func() error) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("index loop stopping", "loop", name)
				return
			case <-ticker.C:
				if err := fn(); err != nil {
					s.logger.Error("periodic index task failed", "loop", name, "error", err)
				}
			}
		}
	}()
}

func (s *Store) Stats() Stats {
	v := s.currentView()
	return Stats{
		Dir:        s.dir,
		Generation: v.generation,
		Segments:   len(v.segments),
		Documents:  len(v.owner),
	}
}

func (s *Store) Dir() string {
	return s.dir
}

// Close releases every segment reader. Snapshots still held keep their
// readers open until released.
func (s *Store) Close() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	old := s.current
	s.current = newView(old.generation, nil)
	handles := make([]*segmentHandle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	old.release()
	for _, h := range handles {
		h.retire(false)
	}
	s.logger.Info("index closed", "dir", s.dir)
	return nil
}
