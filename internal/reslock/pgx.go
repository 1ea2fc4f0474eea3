package reslock

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxManager struct {
	pool *pgxpool.Pool
}

// NewPgxManager returns a Manager backed by the shared Postgres lock table.
// Atomicity lives in the try_acquire_lock stored procedure, never in a
// read-then-write pair from this side.
func NewPgxManager(pool *pgxpool.Pool) Manager {
	return &pgxManager{pool: pool}
}

func (m *pgxManager) Acquire(ctx context.Context, key Key, holder string, ttl time.Duration) (bool, error) {
	var acquired bool
	err := m.pool.QueryRow(ctx,
		"SELECT public.try_acquire_lock($1, $2, $3, $4, $5)",
		key.Date, key.Start, key.End, holder, int(ttl.Seconds()),
	).Scan(&acquired)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s failed: %w", key, err)
	}
	return acquired, nil
}

func (m *pgxManager) Release(ctx context.Context, key Key) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Delete("public.reservation_locks").
		Where(squirrel.Eq{
			"slot_date":  key.Date,
			"start_time": key.Start,
			"end_time":   key.End,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build release lock query failed: %w", err)
	}

	// Zero rows affected is fine: the lock may have expired or never existed.
	if _, err := m.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("release lock %s failed: %w", key, err)
	}
	return nil
}
