package pricing

import (
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRange           = apperror.Validation("end date must not be before start date")
	ErrBelowMinimumDays       = apperror.Validation("rental is shorter than the minimum duration")
	ErrAboveMaximumDays       = apperror.Validation("rental is longer than the maximum duration")
	ErrNoActivePriceRule      = apperror.NotFound("no active price rule covers the requested dates")
	ErrAmbiguousPriceRule     = apperror.Configuration("more than one active price rule covers the requested dates")
	ErrUnknownTaxJurisdiction = apperror.Configuration("no tax rate configured for jurisdiction")
)

// Length discount thresholds in days.
const (
	WeeklyThresholdDays  = 7
	MonthlyThresholdDays = 30
)

type DiscountTier string

const (
	TierNone    DiscountTier = "NONE"
	TierWeekly  DiscountTier = "WEEKLY"
	TierMonthly DiscountTier = "MONTHLY"
)

type AddOnMode string

const (
	AddOnFlat   AddOnMode = "FLAT"
	AddOnPerDay AddOnMode = "PER_DAY"
)

// PriceRule is the versioned pricing configuration of one vehicle over a validity window.
type PriceRule struct {
	ID                 string
	VehicleID          string
	BasePricePerDay    decimal.Decimal
	WeekendMultiplier  decimal.Decimal
	WeeklyDiscountPct  decimal.Decimal
	MonthlyDiscountPct decimal.Decimal
	MinimumDays        int
	MaximumDays        *int
	IncludedKmPerDay   int
	ExtraKmPrice       decimal.Decimal
	DepositAmount      decimal.Decimal
	ValidFrom          time.Time
	ValidUntil         *time.Time
	Active             bool
	SeasonalRates      []SeasonalRate
}

// Covers reports whether the rule's validity window contains every day of rng.
func (p *PriceRule) Covers(rng dayrange.Range) bool {
	if rng.Start.Before(dayrange.Normalize(p.ValidFrom)) {
		return false
	}
	if p.ValidUntil != nil && rng.End.After(dayrange.Normalize(*p.ValidUntil)) {
		return false
	}
	return true
}

// SeasonalRate is a time-boxed multiplier layered on a rule's base price.
type SeasonalRate struct {
	ID          string
	PriceRuleID string
	Name        string
	StartDate   time.Time
	EndDate     time.Time
	Multiplier  decimal.Decimal
}

func (s SeasonalRate) Range() dayrange.Range {
	return dayrange.New(s.StartDate, s.EndDate)
}

// AddOn is an optional extra (child seat, GPS, insurance) priced flat or per day.
type AddOn struct {
	ID     string
	Name   string
	Price  decimal.Decimal
	Mode   AddOnMode
	Active bool
}

// QuoteRequest is the input of Calculate.
type QuoteRequest struct {
	VehicleID    string
	Start        time.Time
	End          time.Time
	AddOnIDs     []string
	CouponCode   string
	Jurisdiction string // empty selects the calculator's default
}

type SeasonalLine struct {
	SeasonalRateID string
	Name           string
	Multiplier     decimal.Decimal
	OverlapDays    int
	Amount         decimal.Decimal
}

type AddOnLine struct {
	AddOnID   string
	Name      string
	Mode      AddOnMode
	UnitPrice decimal.Decimal
	Quantity  int
	Total     decimal.Decimal
}

// Breakdown is the itemized, non-persisted price of a candidate booking.
// Every figure is rounded to cents where it is computed, so
// Subtotal and Total can be rebuilt exactly from the stored lines.
type Breakdown struct {
	VehicleID   string
	PriceRuleID string
	StartDate   time.Time
	EndDate     time.Time

	NumberOfDays    int
	BasePricePerDay decimal.Decimal
	BaseTotal       decimal.Decimal

	WeekendDays       int
	WeekendMultiplier decimal.Decimal
	WeekendSurcharge  decimal.Decimal

	SeasonalLines     []SeasonalLine
	SeasonalSurcharge decimal.Decimal

	LengthDiscountTier DiscountTier
	LengthDiscountPct  decimal.Decimal
	LengthDiscount     decimal.Decimal

	AddOnLines  []AddOnLine
	AddOnsTotal decimal.Decimal

	CouponCode     string
	CouponApplied  bool
	CouponReason   string
	CouponDiscount decimal.Decimal

	Subtotal        decimal.Decimal
	TaxJurisdiction string
	TaxRate         decimal.Decimal
	Taxes           decimal.Decimal
	Total           decimal.Decimal

	Deposit             decimal.Decimal
	IncludedKilometers  int
	ExtraKilometerPrice decimal.Decimal
}

// ComputedSubtotal rebuilds the subtotal from its documented components.
func (b *Breakdown) ComputedSubtotal() decimal.Decimal {
	return b.BaseTotal.
		Add(b.WeekendSurcharge).
		Add(b.SeasonalSurcharge).
		Sub(b.LengthDiscount).
		Add(b.AddOnsTotal).
		Sub(b.CouponDiscount)
}

// Verify checks that the stored subtotal and total agree with their parts.
func (b *Breakdown) Verify() bool {
	var seasonal, addOns decimal.Decimal
	for _, l := range b.SeasonalLines {
		seasonal = seasonal.Add(l.Amount)
	}
	for _, l := range b.AddOnLines {
		addOns = addOns.Add(l.Total)
	}
	return seasonal.Equal(b.SeasonalSurcharge) &&
		addOns.Equal(b.AddOnsTotal) &&
		b.ComputedSubtotal().Equal(b.Subtotal) &&
		b.Subtotal.Add(b.Taxes).Equal(b.Total)
}
