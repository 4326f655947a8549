// Package audit maintains the append-only trail of every risk decision,
// alert and incident action. Entries always land in a bounded in-memory
// ring; when Postgres is configured they are also written durably, and the
// ring serves as the fallback read path if the database is unavailable.
package audit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/securebank/sentinel/internal/idgen"
	"github.com/securebank/sentinel/internal/logging"
	"github.com/securebank/sentinel/internal/metrics"
)

// Severity levels, ordered. Unknown levels are coerced to info.
const (
	LevelInfo     = "info"
	LevelWarn     = "warn"
	LevelError    = "error"
	LevelCritical = "critical"
)

var validLevels = map[string]bool{
	LevelInfo: true, LevelWarn: true, LevelError: true, LevelCritical: true,
}

// Entry is one immutable audit record.
type Entry struct {
	ID         string    `json:"id"`
	Level      string    `json:"level"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail"`
	SessionRef string    `json:"sessionRef,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	Level          string
	ActionContains string
	SessionRef     string
	Limit          int
}

// Store is the durable persistence behind the in-memory ring.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	Query(ctx context.Context, f Filter) ([]Entry, error)
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// Trail is the audit log. Safe for concurrent use. A nil durable store is
// valid; the trail then runs ring-only.
type Trail struct {
	mu       sync.RWMutex
	ring     []Entry
	capacity int

	store     Store
	retention time.Duration
	now       func() time.Time

	durableCh chan Entry
	writerWG  sync.WaitGroup
}

// New creates a trail with the given ring capacity and retention window.
// store may be nil.
func New(capacity int, retention time.Duration, store Store) *Trail {
	if capacity <= 0 {
		capacity = 1000
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}
	t := &Trail{
		capacity:  capacity,
		store:     store,
		retention: retention,
		now:       time.Now,
	}
	if store != nil {
		t.durableCh = make(chan Entry, 256)
		t.writerWG.Add(1)
		go t.durableWriter()
	}
	return t
}

// durableWriter drains queued entries into the store off the recording
// path. Failures are counted and logged, never surfaced.
func (t *Trail) durableWriter() {
	defer t.writerWG.Done()
	for e := range t.durableCh {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := t.store.Insert(ctx, e); err != nil {
			metrics.AuditWrites.WithLabelValues("durable", "error").Inc()
			logging.L(ctx).Warn("audit durable write failed", "error", err)
		} else {
			metrics.AuditWrites.WithLabelValues("durable", "ok").Inc()
		}
		cancel()
	}
}

// Close drains the durable write queue and stops the writer. Records made
// after Close land in the ring only.
func (t *Trail) Close() {
	t.mu.Lock()
	ch := t.durableCh
	t.durableCh = nil
	t.mu.Unlock()

	if ch == nil {
		return
	}
	close(ch)
	t.writerWG.Wait()
}

// Record appends an entry and returns without waiting on the database.
// The ring write always succeeds; the durable write is queued to the
// background writer, and a full queue drops the durable copy rather than
// stalling the caller.
func (t *Trail) Record(ctx context.Context, level, action, detail, sessionRef string) {
	if !validLevels[level] {
		level = LevelInfo
	}
	e := Entry{
		ID:         idgen.WithPrefix("adt_"),
		Level:      level,
		Action:     action,
		Detail:     detail,
		SessionRef: sessionRef,
		Timestamp:  t.now(),
	}

	t.mu.Lock()
	t.ring = append(t.ring, e)
	if len(t.ring) > t.capacity {
		t.ring = t.ring[len(t.ring)-t.capacity:]
	}
	ch := t.durableCh
	t.mu.Unlock()
	metrics.AuditWrites.WithLabelValues("ring", "ok").Inc()

	if ch != nil {
		select {
		case ch <- e:
		default:
			metrics.AuditWrites.WithLabelValues("durable", "dropped").Inc()
			logging.L(ctx).Warn("audit durable queue full, entry dropped", "action", action)
		}
	}
}

// Convenience recorders.

func (t *Trail) Info(ctx context.Context, action, detail, sessionRef string) {
	t.Record(ctx, LevelInfo, action, detail, sessionRef)
}

func (t *Trail) Warn(ctx context.Context, action, detail, sessionRef string) {
	t.Record(ctx, LevelWarn, action, detail, sessionRef)
}

func (t *Trail) Error(ctx context.Context, action, detail, sessionRef string) {
	t.Record(ctx, LevelError, action, detail, sessionRef)
}

func (t *Trail) Critical(ctx context.Context, action, detail, sessionRef string) {
	t.Record(ctx, LevelCritical, action, detail, sessionRef)
}

// Query returns matching entries, most recent first. The durable store is
// preferred; on error (or with no store) results come from the ring.
func (t *Trail) Query(ctx context.Context, f Filter) []Entry {
	if f.Limit <= 0 {
		f.Limit = 100
	}

	if t.store != nil {
		entries, err := t.store.Query(ctx, f)
		if err == nil {
			return entries
		}
		logging.L(ctx).Warn("audit durable query failed, serving ring", "error", err)
	}

	return t.queryRing(f)
}

func (t *Trail) queryRing(f Filter) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Entry
	for i := len(t.ring) - 1; i >= 0 && len(out) < f.Limit; i-- {
		e := t.ring[i]
		if f.Level != "" && e.Level != f.Level {
			continue
		}
		if f.ActionContains != "" && !strings.Contains(e.Action, f.ActionContains) {
			continue
		}
		if f.SessionRef != "" && e.SessionRef != f.SessionRef {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the current ring size.
func (t *Trail) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.ring)
}

// StartRetentionLoop purges expired durable entries every interval until
// ctx is cancelled. The ring is untouched: it evicts by capacity only.
func (t *Trail) StartRetentionLoop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.purge(ctx)
			}
		}
	}()
}

func (t *Trail) purge(ctx context.Context) {
	cutoff := t.now().Add(-t.retention)

	if t.store != nil {
		n, err := t.store.Purge(ctx, cutoff)
		if err != nil {
			logging.L(ctx).Warn("audit retention purge failed", "error", err)
			return
		}
		if n > 0 {
			logging.L(ctx).Info("audit retention purge", "deleted", n)
		}
	}
}
