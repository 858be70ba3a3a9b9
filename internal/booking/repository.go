package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	"github.com/nekogravitycat/car-rental-backend/internal/coupon"
	"github.com/nekogravitycat/car-rental-backend/internal/db"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
)

// Repository performs the transactional writes of the booking workflow.
type Repository interface {
	// Commit inserts the reservation, one block per day and the coupon usage
	// increment in a single transaction. A day that is already blocked for the
	// vehicle fails the whole commit with ErrDateConflict.
	Commit(ctx context.Context, c *Commit) error

	// Cancel moves a live reservation to CANCELLED and removes its blocks.
	Cancel(ctx context.Context, reservationID string, at time.Time) (*reservation.Reservation, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Commit(ctx context.Context, c *Commit) error {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	res := c.Reservation

	err := db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		var couponCode *string
		if c.CouponCode != "" {
			couponCode = &c.CouponCode
		}
		query, args, err := psql.Insert("public.reservations").
			Columns("id", "vehicle_id", "customer_id", "start_date", "end_date", "status",
				"total_amount", "deposit_amount", "coupon_code", "created_at", "updated_at").
			Values(res.ID, res.VehicleID, res.CustomerID, res.StartDate, res.EndDate, res.Status,
				res.TotalAmount, res.DepositAmount, couponCode, res.CreatedAt, res.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert reservation query failed: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert reservation failed: %w", err)
		}

		blocks := psql.Insert("public.availability_blocks").
			Columns("vehicle_id", "day", "reason", "reservation_id")
		for _, d := range c.Days {
			blocks = blocks.Values(res.VehicleID, d, availability.BlockReasonReservation, res.ID)
		}
		query, args, err = blocks.ToSql()
		if err != nil {
			return fmt.Errorf("build insert blocks query failed: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert blocks failed: %w", err)
		}

		if c.CouponCode == "" {
			return nil
		}
		query, args, err = psql.Update("public.coupons").
			Set("usage_count", squirrel.Expr("usage_count + 1")).
			Where(squirrel.Eq{"code": c.CouponCode}).
			Where(squirrel.Or{
				squirrel.Eq{"usage_limit": nil},
				squirrel.Expr("usage_count < usage_limit"),
			}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build consume coupon query failed: %w", err)
		}
		ct, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("consume coupon failed: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return coupon.ErrUsageLimitReached
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDateConflict.WithCause(err)
		}
		return err
	}
	return nil
}

func (r *pgxRepository) Cancel(ctx context.Context, reservationID string, at time.Time) (*reservation.Reservation, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	var cancelled *reservation.Reservation

	err := db.WithTx(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		query, args, err := psql.Select("status").
			From("public.reservations").
			Where(squirrel.Eq{"id": reservationID}).
			Suffix("FOR UPDATE").
			ToSql()
		if err != nil {
			return fmt.Errorf("build lock reservation query failed: %w", err)
		}
		var status reservation.Status
		if err := tx.QueryRow(ctx, query, args...).Scan(&status); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return reservation.ErrNotFound
			}
			return fmt.Errorf("lock reservation failed: %w", err)
		}
		if !status.Live() {
			return ErrNotCancellable
		}

		query, args, err = psql.Update("public.reservations").
			Set("status", reservation.StatusCancelled).
			Set("updated_at", at).
			Where(squirrel.Eq{"id": reservationID}).
			Suffix("RETURNING " + reservation.Columns).
			ToSql()
		if err != nil {
			return fmt.Errorf("build cancel reservation query failed: %w", err)
		}
		cancelled, err = reservation.Scan(tx.QueryRow(ctx, query, args...))
		if err != nil {
			return fmt.Errorf("cancel reservation failed: %w", err)
		}

		query, args, err = psql.Delete("public.availability_blocks").
			Where(squirrel.Eq{"reservation_id": reservationID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build release blocks query failed: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("release blocks failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}
