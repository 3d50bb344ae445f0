package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/propertymesh/listing-governance/internal/audit"
	"github.com/propertymesh/listing-governance/internal/governance"
)

// AuditRepository is the postgres-backed audit store. Entries are
// append-only; the only deletion path is the scheduled retention sweep.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates an audit repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

type auditRow struct {
	EventID        string    `db:"event_id"`
	EventType      string    `db:"event_type"`
	Timestamp      time.Time `db:"timestamp"`
	ActorID        string    `db:"actor_id"`
	RulesEvaluated int       `db:"rules_evaluated"`
	Results        []byte    `db:"results"`
	Outcome        string    `db:"overall_outcome"`
}

func (r auditRow) toEntry() (*audit.Entry, error) {
	var results []*governance.RuleResult
	if len(r.Results) > 0 {
		if err := json.Unmarshal(r.Results, &results); err != nil {
			return nil, fmt.Errorf("decoding audit results for event %s: %w", r.EventID, err)
		}
	}
	return &audit.Entry{
		EventID:        r.EventID,
		EventType:      governance.EventType(r.EventType),
		Timestamp:      r.Timestamp,
		ActorID:        r.ActorID,
		RulesEvaluated: r.RulesEvaluated,
		Results:        results,
		Outcome:        governance.Outcome(r.Outcome),
	}, nil
}

// Insert stores one audit entry. Results are serialized as JSONB.
func (r *AuditRepository) Insert(ctx context.Context, entry *audit.Entry) error {
	results, err := json.Marshal(entry.Results)
	if err != nil {
		return fmt.Errorf("encoding audit results: %w", err)
	}

	query := `
		INSERT INTO audit_log (event_id, event_type, timestamp, actor_id, rules_evaluated, results, overall_outcome)
		VALUES (:event_id, :event_type, :timestamp, :actor_id, :rules_evaluated, :results, :overall_outcome)`

	_, err = r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"event_id":        entry.EventID,
		"event_type":      string(entry.EventType),
		"timestamp":       entry.Timestamp,
		"actor_id":        entry.ActorID,
		"rules_evaluated": entry.RulesEvaluated,
		"results":         results,
		"overall_outcome": string(entry.Outcome),
	})
	if err != nil {
		return fmt.Errorf("inserting audit entry for event %s: %w", entry.EventID, err)
	}
	return nil
}

// GetByEventID returns the entry for the given event, or nil when absent.
func (r *AuditRepository) GetByEventID(ctx context.Context, eventID string) (*audit.Entry, error) {
	var row auditRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM audit_log WHERE event_id = $1`, eventID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying audit entry for event %s: %w", eventID, err)
	}
	return row.toEntry()
}

// List returns the most recent entries, newest first.
func (r *AuditRepository) List(ctx context.Context) ([]*audit.Entry, error) {
	var rows []auditRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM audit_log ORDER BY timestamp DESC LIMIT 500`)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}

	entries := make([]*audit.Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DeleteOlderThan removes entries recorded before the cutoff and returns
// how many were deleted. Used by the retention sweep.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_log WHERE timestamp < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("deleting expired audit entries: %w", err)
	}
	return res.RowsAffected()
}
