package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// History records dispatch attempts.
type History interface {
	Record(ctx context.Context, d Delivery) error
	Recent(ctx context.Context, limit int) ([]Delivery, error)
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

type noHistory struct{}

func (noHistory) Record(context.Context, Delivery) error { return nil }
func (noHistory) Recent(context.Context, int) ([]Delivery, error) { return nil, nil }
func (noHistory) Purge(context.Context, time.Duration) (int64, error) { return 0, nil }

// PGHistory stores deliveries in Postgres.
// Nil-safe: a nil *PGHistory records nothing and returns no rows.
type PGHistory struct {
	pool *pgxpool.Pool
}

// NewPGHistory wraps a pool. Returns nil when pool is nil (history disabled).
func NewPGHistory(pool *pgxpool.Pool) *PGHistory {
	if pool == nil {
		return nil
	}
	return &PGHistory{pool: pool}
}

// Record inserts one delivery row.
func (h *PGHistory) Record(ctx context.Context, d Delivery) error {
	if h == nil {
		return nil
	}
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return fmt.Errorf("delivery id: %w", err)
	}
	var cycleID *uuid.UUID
	if d.CycleID != "" {
		c, err := uuid.Parse(d.CycleID)
		if err != nil {
			return fmt.Errorf("cycle id: %w", err)
		}
		cycleID = &c
	}

	_, err = h.pool.Exec(ctx, "insert_delivery",
		id, cycleID, string(d.Kind), d.Channel, d.Title, d.Status, d.Error, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Recent returns the newest deliveries first.
func (h *PGHistory) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	if h == nil {
		return nil, nil
	}
	rows, err := h.pool.Query(ctx, "recent_deliveries", limit)
	if err != nil {
		return nil, fmt.Errorf("recent deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		var kind string
		if err := rows.Scan(&d.ID, &d.CycleID, &kind, &d.Channel, &d.Title, &d.Status, &d.Error, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.Kind = Kind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

// Purge removes deliveries older than the given age.
func (h *PGHistory) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	if h == nil {
		return 0, nil
	}
	tag, err := h.pool.Exec(ctx, "purge_deliveries", time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge deliveries: %w", err)
	}
	return tag.RowsAffected(), nil
}
