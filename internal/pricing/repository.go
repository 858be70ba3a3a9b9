package pricing

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
)

type RuleRepository interface {
	// ListActiveRules returns the active rules of the vehicle whose validity
	// window covers every day of rng, with their seasonal rates loaded.
	ListActiveRules(ctx context.Context, vehicleID string, rng dayrange.Range) ([]*PriceRule, error)
}

type AddOnRepository interface {
	// ListActiveByIDs returns the active add-ons among ids. Unknown ids are omitted.
	ListActiveByIDs(ctx context.Context, ids []string) ([]*AddOn, error)
}

type pgxRuleRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRuleRepository(pool *pgxpool.Pool) RuleRepository {
	return &pgxRuleRepository{pool: pool}
}

func (r *pgxRuleRepository) ListActiveRules(ctx context.Context, vehicleID string, rng dayrange.Range) ([]*PriceRule, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(
		"id", "vehicle_id", "base_price_per_day", "weekend_multiplier",
		"weekly_discount_pct", "monthly_discount_pct", "minimum_days", "maximum_days",
		"included_km_per_day", "extra_km_price", "deposit_amount",
		"valid_from", "valid_until", "is_active",
	).
		From("public.price_rules").
		Where(squirrel.Eq{"vehicle_id": vehicleID, "is_active": true}).
		Where(squirrel.LtOrEq{"valid_from": rng.Start}).
		Where(squirrel.Or{
			squirrel.Eq{"valid_until": nil},
			squirrel.GtOrEq{"valid_until": rng.End},
		}).
		OrderBy("valid_from ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list price rules query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list price rules failed: %w", err)
	}
	defer rows.Close()

	var rules []*PriceRule
	byID := map[string]*PriceRule{}
	for rows.Next() {
		var p PriceRule
		if err := rows.Scan(
			&p.ID, &p.VehicleID, &p.BasePricePerDay, &p.WeekendMultiplier,
			&p.WeeklyDiscountPct, &p.MonthlyDiscountPct, &p.MinimumDays, &p.MaximumDays,
			&p.IncludedKmPerDay, &p.ExtraKmPrice, &p.DepositAmount,
			&p.ValidFrom, &p.ValidUntil, &p.Active,
		); err != nil {
			return nil, fmt.Errorf("scan price rule failed: %w", err)
		}
		rules = append(rules, &p)
		byID[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price rules failed: %w", err)
	}
	if len(rules) == 0 {
		return rules, nil
	}

	if err := r.loadSeasonalRates(ctx, byID); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *pgxRuleRepository) loadSeasonalRates(ctx context.Context, byID map[string]*PriceRule) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "price_rule_id", "name", "start_date", "end_date", "multiplier").
		From("public.seasonal_rates").
		Where(squirrel.Eq{"price_rule_id": ids}).
		OrderBy("start_date ASC", "id ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build list seasonal rates query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list seasonal rates failed: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s SeasonalRate
		if err := rows.Scan(&s.ID, &s.PriceRuleID, &s.Name, &s.StartDate, &s.EndDate, &s.Multiplier); err != nil {
			return fmt.Errorf("scan seasonal rate failed: %w", err)
		}
		if rule, ok := byID[s.PriceRuleID]; ok {
			rule.SeasonalRates = append(rule.SeasonalRates, s)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate seasonal rates failed: %w", err)
	}
	return nil
}

type pgxAddOnRepository struct {
	pool *pgxpool.Pool
}

func NewPgxAddOnRepository(pool *pgxpool.Pool) AddOnRepository {
	return &pgxAddOnRepository{pool: pool}
}

func (r *pgxAddOnRepository) ListActiveByIDs(ctx context.Context, ids []string) ([]*AddOn, error) {
	// Malformed ids cannot match a uuid column; drop them instead of failing the cast.
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("id", "name", "price", "pricing_mode", "is_active").
		From("public.add_ons").
		Where(squirrel.Eq{"id": valid, "is_active": true}).
		OrderBy("name ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list add-ons query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list add-ons failed: %w", err)
	}

	addOns, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*AddOn, error) {
		var a AddOn
		err := row.Scan(&a.ID, &a.Name, &a.Price, &a.Mode, &a.Active)
		return &a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan add-ons failed: %w", err)
	}
	return addOns, nil
}
