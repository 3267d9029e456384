package obs

import (
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// Handoff is an append-only audit record of one brain invocation made on
// behalf of a routing decision. It is never read back by the routing logic
// itself; writers INSERT, never update or delete.
type Handoff struct {
	FromBrain   string
	ToDomain    string
	ToProvider  string
	ToModel     string
	Context     string
	Priority    string
	Status      string // completed or failed
	Result      string
	CompletedAt time.Time
}

const (
	HandoffCompleted = "completed"
	HandoffFailed    = "failed"
)

// StoreHandoff appends one handoff record. Failures are logged and
// discarded; a busy database never blocks the caller.
func (s *Store) StoreHandoff(h Handoff) {
	db, err := s.open()
	if err != nil {
		s.logger.Debug("handoff write failed", zap.String("to_domain", h.ToDomain), zap.Error(err))
		return
	}
	defer db.Close()

	priority := h.Priority
	if priority == "" {
		priority = "normal"
	}
	_, err = db.Exec(
		`INSERT INTO handoffs (from_brain, to_domain, to_provider, to_model, context, priority, status, result, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)`,
		h.FromBrain, h.ToDomain, h.ToProvider, h.ToModel, h.Context, priority, h.Status, h.Result,
	)
	if err != nil {
		s.logger.Debug("handoff write failed", zap.String("to_domain", h.ToDomain), zap.Error(err))
	}
}

// RecentHandoffs returns the newest handoff records, for the CLI.
func (s *Store) RecentHandoffs(limit int) ([]Handoff, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(
		`SELECT from_brain, to_domain, to_provider, to_model, context, priority, status, result, completed_at
		 FROM handoffs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Handoff
	for rows.Next() {
		var h Handoff
		var completedAt sql.NullTime
		if err := rows.Scan(&h.FromBrain, &h.ToDomain, &h.ToProvider, &h.ToModel,
			&h.Context, &h.Priority, &h.Status, &h.Result, &completedAt); err != nil {
			return nil, err
		}
		h.CompletedAt = completedAt.Time
		out = append(out, h)
	}
	return out, rows.Err()
}
