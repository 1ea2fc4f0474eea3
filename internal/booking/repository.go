package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, b *Confirmed) error
	GetByID(ctx context.Context, id string) (*Confirmed, error)
	ListByDate(ctx context.Context, date string, page, pageSize int) ([]*Confirmed, int, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, b *Confirmed) error {
	slots, err := json.Marshal(b.Slots)
	if err != nil {
		return fmt.Errorf("marshal slot breakdown failed: %w", err)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.bookings").
		Columns(
			"requester_name", "requester_email", "requester_phone", "location",
			"slot_date", "start_time", "end_time", "slots",
			"total_minutes", "total_cost_cents", "event_id", "event_link",
			"status", "notes",
		).
		Values(
			b.Name, b.Email, b.Phone, b.Location,
			b.Date, b.StartTime, b.EndTime, slots,
			b.TotalMinutes, b.TotalCostCents, b.EventID, b.EventLink,
			b.Status, b.Notes,
		).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt); err != nil {
		// The unique index on (slot_date, start_time, end_time) is a second
		// line of defence behind the idempotency check.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDoubleBooked.WithErr(err)
		}
		return fmt.Errorf("create booking failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Confirmed, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "requester_name", "requester_email", "requester_phone", "location",
		"slot_date", "start_time", "end_time", "slots",
		"total_minutes", "total_cost_cents", "event_id", "event_link",
		"status", "notes", "created_at",
	).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) ListByDate(ctx context.Context, date string, page, pageSize int) ([]*Confirmed, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(
		"id", "requester_name", "requester_email", "requester_phone", "location",
		"slot_date", "start_time", "end_time", "slots",
		"total_minutes", "total_cost_cents", "event_id", "event_link",
		"status", "notes", "created_at",
		"count(*) OVER() as total_count",
	).
		From("public.bookings")

	if date != "" {
		query = query.Where(squirrel.Eq{"slot_date": date})
	}

	query = query.OrderBy("slot_date DESC", "start_time ASC").
		Limit(uint64(pageSize)).
		Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Confirmed
	var total int

	for rows.Next() {
		var b Confirmed
		var slots []byte
		if err := rows.Scan(
			&b.ID, &b.Name, &b.Email, &b.Phone, &b.Location,
			&b.Date, &b.StartTime, &b.EndTime, &slots,
			&b.TotalMinutes, &b.TotalCostCents, &b.EventID, &b.EventLink,
			&b.Status, &b.Notes, &b.CreatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		if err := json.Unmarshal(slots, &b.Slots); err != nil {
			return nil, 0, fmt.Errorf("unmarshal slot breakdown failed: %w", err)
		}
		bookings = append(bookings, &b)
	}

	return bookings, total, nil
}

func scanBooking(row pgx.Row) (*Confirmed, error) {
	var b Confirmed
	var slots []byte
	if err := row.Scan(
		&b.ID, &b.Name, &b.Email, &b.Phone, &b.Location,
		&b.Date, &b.StartTime, &b.EndTime, &slots,
		&b.TotalMinutes, &b.TotalCostCents, &b.EventID, &b.EventLink,
		&b.Status, &b.Notes, &b.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(slots, &b.Slots); err != nil {
		return nil, fmt.Errorf("unmarshal slot breakdown failed: %w", err)
	}
	return &b, nil
}
