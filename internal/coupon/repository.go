package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	// GetByCode looks up a coupon by its normalized code.
	GetByCode(ctx context.Context, code string) (*Coupon, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "code", "discount_type", "discount_value", "valid_from", "valid_until",
		"minimum_amount", "maximum_discount", "usage_count", "usage_limit", "is_active",
	).
		From("public.coupons").
		Where(squirrel.Eq{"code": NormalizeCode(code)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get coupon query failed: %w", err)
	}

	var c Coupon
	if err := r.pool.QueryRow(ctx, query, args...).Scan(
		&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.ValidFrom, &c.ValidUntil,
		&c.MinimumAmount, &c.MaximumDiscount, &c.UsageCount, &c.UsageLimit, &c.Active,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get coupon failed: %w", err)
	}
	return &c, nil
}
