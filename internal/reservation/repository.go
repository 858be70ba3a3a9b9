package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
)

type Repository interface {
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// ListLive returns live reservations of the vehicle whose range overlaps rng,
	// ordered by start date.
	ListLive(ctx context.Context, vehicleID string, rng dayrange.Range) ([]*Reservation, error)
}

var columns = []string{
	"id", "vehicle_id", "customer_id", "start_date", "end_date", "status",
	"total_amount", "deposit_amount", "coupon_code", "created_at", "updated_at",
}

// Columns is the select list matching Scan, for use in RETURNING clauses.
var Columns = strings.Join(columns, ", ")

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

// Scan reads one reservation row selected with Columns.
func Scan(row pgx.Row) (*Reservation, error) {
	var r Reservation
	var coupon *string
	if err := row.Scan(
		&r.ID, &r.VehicleID, &r.CustomerID, &r.StartDate, &r.EndDate, &r.Status,
		&r.TotalAmount, &r.DepositAmount, &coupon, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if coupon != nil {
		r.CouponCode = *coupon
	}
	return &r, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(columns...).
		From("public.reservations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get reservation query failed: %w", err)
	}

	res, err := Scan(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reservation failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) ListLive(ctx context.Context, vehicleID string, rng dayrange.Range) ([]*Reservation, error) {
	// Overlap: NOT (existing.end < requested.start OR existing.start > requested.end)
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(columns...).
		From("public.reservations").
		Where(squirrel.Eq{"vehicle_id": vehicleID}).
		Where(squirrel.Eq{"status": LiveStatuses}).
		Where(squirrel.Expr("NOT (end_date < ? OR start_date > ?)", rng.Start, rng.End)).
		OrderBy("start_date ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list live reservations query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list live reservations failed: %w", err)
	}
	defer rows.Close()

	var result []*Reservation
	for rows.Next() {
		res, err := Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation failed: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations failed: %w", err)
	}
	return result, nil
}
