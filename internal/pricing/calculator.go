package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/nekogravitycat/car-rental-backend/internal/coupon"
	"github.com/nekogravitycat/car-rental-backend/internal/metrics"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Calculator produces itemized quotes. It holds no tax rate of its own; the
// rate comes from the injected TaxPolicy.
type Calculator struct {
	rules               RuleRepository
	addOns              AddOnRepository
	coupons             *coupon.Validator
	tax                 TaxPolicy
	defaultJurisdiction string
	metrics             *metrics.Recorder
}

func NewCalculator(
	rules RuleRepository,
	addOns AddOnRepository,
	coupons *coupon.Validator,
	tax TaxPolicy,
	defaultJurisdiction string,
) *Calculator {
	return &Calculator{
		rules:               rules,
		addOns:              addOns,
		coupons:             coupons,
		tax:                 tax,
		defaultJurisdiction: defaultJurisdiction,
	}
}

// ResolveRule returns the single active price rule covering rng.
func (c *Calculator) ResolveRule(ctx context.Context, vehicleID string, rng dayrange.Range) (*PriceRule, error) {
	rules, err := c.rules.ListActiveRules(ctx, vehicleID, rng)
	if err != nil {
		return nil, fmt.Errorf("resolve price rule failed: %w", err)
	}

	var match *PriceRule
	for _, r := range rules {
		if !r.Active || !r.Covers(rng) {
			continue
		}
		if match != nil {
			return nil, ErrAmbiguousPriceRule.WithCause(
				fmt.Errorf("vehicle %s: rules %s and %s both cover %s", vehicleID, match.ID, r.ID, rng))
		}
		match = r
	}
	if match == nil {
		return nil, ErrNoActivePriceRule
	}
	return match, nil
}

// WithMetrics makes the calculator count quotes by outcome.
func (c *Calculator) WithMetrics(rec *metrics.Recorder) *Calculator {
	c.metrics = rec
	return c
}

// Calculate prices a candidate booking. It either returns a complete breakdown
// or a typed error, never a partial result.
func (c *Calculator) Calculate(ctx context.Context, req QuoteRequest) (*Breakdown, error) {
	b, err := c.calculate(ctx, req)
	switch {
	case err == nil:
		c.metrics.ObserveQuote(metrics.OutcomeOK)
	case apperror.IsKind(err, apperror.KindValidation),
		apperror.IsKind(err, apperror.KindNotFound),
		apperror.IsKind(err, apperror.KindConfiguration):
		c.metrics.ObserveQuote(metrics.OutcomeRejected)
	default:
		c.metrics.ObserveQuote(metrics.OutcomeError)
	}
	return b, err
}

func (c *Calculator) calculate(ctx context.Context, req QuoteRequest) (*Breakdown, error) {
	rng := dayrange.New(req.Start, req.End)
	days := rng.Days()
	if days < 1 {
		return nil, ErrInvalidRange
	}

	rule, err := c.ResolveRule(ctx, req.VehicleID, rng)
	if err != nil {
		return nil, err
	}
	if days < rule.MinimumDays {
		return nil, ErrBelowMinimumDays.WithCause(fmt.Errorf("%d days, minimum %d", days, rule.MinimumDays))
	}
	if rule.MaximumDays != nil && days > *rule.MaximumDays {
		return nil, ErrAboveMaximumDays.WithCause(fmt.Errorf("%d days, maximum %d", days, *rule.MaximumDays))
	}

	n := decimal.NewFromInt(int64(days))
	base := rule.BasePricePerDay
	b := &Breakdown{
		VehicleID:           req.VehicleID,
		PriceRuleID:         rule.ID,
		StartDate:           rng.Start,
		EndDate:             rng.End,
		NumberOfDays:        days,
		BasePricePerDay:     base,
		BaseTotal:           base.Mul(n).Round(2),
		WeekendMultiplier:   rule.WeekendMultiplier,
		Deposit:             rule.DepositAmount,
		IncludedKilometers:  rule.IncludedKmPerDay * days,
		ExtraKilometerPrice: rule.ExtraKmPrice,
	}

	b.WeekendDays = rng.WeekendDays()
	b.WeekendSurcharge = surcharge(base, rule.WeekendMultiplier, b.WeekendDays)

	b.SeasonalSurcharge = decimal.Zero
	for _, s := range rule.SeasonalRates {
		overlap := rng.OverlapDays(s.Range())
		if overlap == 0 {
			continue
		}
		line := SeasonalLine{
			SeasonalRateID: s.ID,
			Name:           s.Name,
			Multiplier:     s.Multiplier,
			OverlapDays:    overlap,
			Amount:         surcharge(base, s.Multiplier, overlap),
		}
		b.SeasonalLines = append(b.SeasonalLines, line)
		b.SeasonalSurcharge = b.SeasonalSurcharge.Add(line.Amount)
	}

	// Monthly is checked first: a 30-day rental also qualifies as weekly.
	switch {
	case days >= MonthlyThresholdDays:
		b.LengthDiscountTier = TierMonthly
		b.LengthDiscountPct = rule.MonthlyDiscountPct
	case days >= WeeklyThresholdDays:
		b.LengthDiscountTier = TierWeekly
		b.LengthDiscountPct = rule.WeeklyDiscountPct
	default:
		b.LengthDiscountTier = TierNone
		b.LengthDiscountPct = decimal.Zero
	}
	b.LengthDiscount = b.BaseTotal.Mul(b.LengthDiscountPct).Div(hundred).Round(2)

	subtotal := b.BaseTotal.Add(b.WeekendSurcharge).Add(b.SeasonalSurcharge).Sub(b.LengthDiscount)

	b.AddOnsTotal = decimal.Zero
	if len(req.AddOnIDs) > 0 {
		addOns, err := c.addOns.ListActiveByIDs(ctx, req.AddOnIDs)
		if err != nil {
			return nil, fmt.Errorf("load add-ons failed: %w", err)
		}
		for _, a := range addOns {
			if !a.Active {
				continue
			}
			line := AddOnLine{AddOnID: a.ID, Name: a.Name, Mode: a.Mode, UnitPrice: a.Price, Quantity: 1}
			if a.Mode == AddOnPerDay {
				line.Quantity = days
			}
			line.Total = a.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
			b.AddOnLines = append(b.AddOnLines, line)
			b.AddOnsTotal = b.AddOnsTotal.Add(line.Total)
		}
	}
	subtotal = subtotal.Add(b.AddOnsTotal)

	b.CouponDiscount = decimal.Zero
	if strings.TrimSpace(req.CouponCode) != "" {
		res := c.coupons.Validate(ctx, req.CouponCode, subtotal)
		b.CouponCode = res.Code
		b.CouponApplied = res.Applied
		b.CouponReason = res.Reason
		b.CouponDiscount = res.Discount
	}
	b.Subtotal = subtotal.Sub(b.CouponDiscount)

	b.TaxJurisdiction = req.Jurisdiction
	if b.TaxJurisdiction == "" {
		b.TaxJurisdiction = c.defaultJurisdiction
	}
	b.TaxRate, err = c.tax.Rate(ctx, b.TaxJurisdiction)
	if err != nil {
		return nil, err
	}
	b.Taxes = b.Subtotal.Mul(b.TaxRate).Round(2)
	b.Total = b.Subtotal.Add(b.Taxes)

	return b, nil
}

// surcharge is base × (multiplier − 1) × days, rounded to cents.
func surcharge(base, multiplier decimal.Decimal, days int) decimal.Decimal {
	if days == 0 {
		return decimal.Zero
	}
	return base.Mul(multiplier.Sub(decimal.NewFromInt(1))).Mul(decimal.NewFromInt(int64(days))).Round(2)
}
