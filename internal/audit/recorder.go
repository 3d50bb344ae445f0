package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/propertymesh/listing-governance/internal/governance"
	"github.com/propertymesh/listing-governance/internal/metrics"
)

// Entry is one immutable audit record: one per evaluated event.
type Entry struct {
	EventID        string                    `json:"event_id"`
	EventType      governance.EventType      `json:"event_type"`
	Timestamp      time.Time                 `json:"timestamp"`
	ActorID        string                    `json:"actor_id"`
	RulesEvaluated int                       `json:"rules_evaluated"`
	Results        []*governance.RuleResult  `json:"results"`
	Outcome        governance.Outcome        `json:"overall_outcome"`
}

// Store persists audit entries. Implementations are append-only from the
// recorder's point of view.
type Store interface {
	Insert(ctx context.Context, entry *Entry) error
	GetByEventID(ctx context.Context, eventID string) (*Entry, error)
	List(ctx context.Context) ([]*Entry, error)
}

// Recorder writes one audit entry per evaluation pass. Persistence is
// loud best-effort: a failed write is logged and swallowed, because
// auditing must never block the governance decision path.
type Recorder struct {
	store   Store
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewRecorder creates a recorder backed by the given store. collector may
// be nil.
func NewRecorder(store Store, logger *zap.Logger, collector *metrics.Collector) *Recorder {
	return &Recorder{store: store, logger: logger, metrics: collector}
}

// Record persists the outcome of one evaluation pass.
func (r *Recorder) Record(ctx context.Context, event *governance.Event, results []*governance.RuleResult) {
	entry := &Entry{
		EventID:        event.ID,
		EventType:      event.Type,
		Timestamp:      time.Now(),
		ActorID:        event.ActorID,
		RulesEvaluated: len(results),
		Results:        results,
		Outcome:        governance.OutcomeOf(results),
	}

	if err := r.store.Insert(ctx, entry); err != nil {
		r.metrics.ObserveAuditWriteFailure()
		r.logger.Error("Failed to persist audit entry",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return
	}

	r.logger.Debug("Audit entry recorded",
		zap.String("event_id", event.ID),
		zap.String("outcome", string(entry.Outcome)),
		zap.Int("rules_evaluated", entry.RulesEvaluated),
	)
}

// Trace returns the audit entry for a single event.
func (r *Recorder) Trace(ctx context.Context, eventID string) (*Entry, error) {
	return r.store.GetByEventID(ctx, eventID)
}

// List returns recorded entries, newest first.
func (r *Recorder) List(ctx context.Context) ([]*Entry, error) {
	return r.store.List(ctx)
}

// MemoryStore is an in-process Store used in tests and when the service
// runs without a database.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty in-memory audit store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

// Insert stores the entry, keyed by event ID.
func (s *MemoryStore) Insert(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.EventID] = entry
	return nil
}

// GetByEventID returns the entry for the given event, or nil when absent.
func (s *MemoryStore) GetByEventID(_ context.Context, eventID string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[eventID], nil
}

// List returns every entry, newest first.
func (s *MemoryStore) List(_ context.Context) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}
