package limiter

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is a PostgreSQL-backed limiter with a fixed window per (actor, op).
type PG struct {
	pool    pgxQuerier
	window  time.Duration
	maxHits int
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(pool *pgxpool.Pool, window time.Duration, maxHits int) *PG {
	return &PG{pool: pool, window: window, maxHits: maxHits}
}

// NewPGWithQuerier constructs a PostgreSQL-backed limiter over any querier.
func NewPGWithQuerier(q pgxQuerier, window time.Duration, maxHits int) *PG {
	return &PG{pool: q, window: window, maxHits: maxHits}
}

// Take upserts the counter row, restarting the window when the previous one
// has elapsed, and reports whether the attempt stays under the cap.
func (l *PG) Take(ctx context.Context, actor, op string) (bool, time.Duration, error) {
	const q = `
INSERT INTO op_limiter (actor_id, op, hits, window_start)
VALUES ($1,$2,1,now())
ON CONFLICT (actor_id, op) DO UPDATE
SET
  hits = CASE WHEN now() - op_limiter.window_start > $3::interval THEN 1 ELSE op_limiter.hits + 1 END,
  window_start = CASE WHEN now() - op_limiter.window_start > $3::interval THEN now() ELSE op_limiter.window_start END
RETURNING hits, window_start`
	var hits int
	var windowStart time.Time
	if err := l.pool.QueryRow(ctx, q, actor, op, l.window).Scan(&hits, &windowStart); err != nil {
		return false, 0, err
	}
	if hits > l.maxHits {
		retry := time.Until(windowStart.Add(l.window))
		if retry < 0 {
			retry = 0
		}
		return false, retry, nil
	}
	return true, 0, nil
}
