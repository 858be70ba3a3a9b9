package availability

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
)

type BlockRepository interface {
	// ListInRange returns the vehicle's blocks falling inside rng, ordered by day.
	ListInRange(ctx context.Context, vehicleID string, rng dayrange.Range) ([]*Block, error)
}

type pgxBlockRepository struct {
	pool *pgxpool.Pool
}

func NewPgxBlockRepository(pool *pgxpool.Pool) BlockRepository {
	return &pgxBlockRepository{pool: pool}
}

func (r *pgxBlockRepository) ListInRange(ctx context.Context, vehicleID string, rng dayrange.Range) ([]*Block, error) {
	if !rng.Valid() {
		return nil, nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "vehicle_id", "day", "reason", "reservation_id", "created_at").
		From("public.availability_blocks").
		Where(squirrel.Eq{"vehicle_id": vehicleID}).
		Where(squirrel.GtOrEq{"day": rng.Start}).
		Where(squirrel.LtOrEq{"day": rng.End}).
		OrderBy("day ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list blocks query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list blocks failed: %w", err)
	}

	blocks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Block, error) {
		var b Block
		err := row.Scan(&b.ID, &b.VehicleID, &b.Day, &b.Reason, &b.ReservationID, &b.CreatedAt)
		return &b, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan blocks failed: %w", err)
	}
	return blocks, nil
}
