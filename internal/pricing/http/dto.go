package http

import (
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
	"github.com/shopspring/decimal"
)

// QuoteRequest is the body of POST /quotes.
type QuoteRequest struct {
	VehicleID    string   `json:"vehicle_id" binding:"required,uuid"`
	StartDate    string   `json:"start_date" binding:"required"`
	EndDate      string   `json:"end_date" binding:"required"`
	AddOnIDs     []string `json:"add_on_ids" binding:"omitempty,dive,uuid"`
	CouponCode   string   `json:"coupon_code" binding:"omitempty,max=64"`
	Jurisdiction string   `json:"jurisdiction" binding:"omitempty,max=32"`
}

// Dates parses the start and end days.
func (r *QuoteRequest) Dates() (time.Time, time.Time, error) {
	start, err := dayrange.Parse(r.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := dayrange.Parse(r.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (r *QuoteRequest) ToQuote() (pricing.QuoteRequest, error) {
	start, end, err := r.Dates()
	if err != nil {
		return pricing.QuoteRequest{}, err
	}
	return pricing.QuoteRequest{
		VehicleID:    r.VehicleID,
		Start:        start,
		End:          end,
		AddOnIDs:     r.AddOnIDs,
		CouponCode:   r.CouponCode,
		Jurisdiction: r.Jurisdiction,
	}, nil
}

type SeasonalLineResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Multiplier  decimal.Decimal `json:"multiplier"`
	OverlapDays int             `json:"overlap_days"`
	Amount      string          `json:"amount"`
}

type AddOnLineResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Mode      string `json:"mode"`
	UnitPrice string `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total"`
}

type CouponResponse struct {
	Code     string `json:"code"`
	Applied  bool   `json:"applied"`
	Reason   string `json:"reason,omitempty"`
	Discount string `json:"discount"`
}

// BreakdownResponse mirrors pricing.Breakdown. Money values are serialized as
// JSON strings with two decimals.
type BreakdownResponse struct {
	VehicleID    string `json:"vehicle_id"`
	PriceRuleID  string `json:"price_rule_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	NumberOfDays int    `json:"number_of_days"`

	BasePricePerDay   string                 `json:"base_price_per_day"`
	BaseTotal         string                 `json:"base_total"`
	WeekendDays       int                    `json:"weekend_days"`
	WeekendSurcharge  string                 `json:"weekend_surcharge"`
	SeasonalLines     []SeasonalLineResponse `json:"seasonal_lines"`
	SeasonalSurcharge string                 `json:"seasonal_surcharge"`

	LengthDiscountTier string `json:"length_discount_tier"`
	LengthDiscountPct  string `json:"length_discount_pct"`
	LengthDiscount     string `json:"length_discount"`

	AddOns      []AddOnLineResponse `json:"add_ons"`
	AddOnsTotal string              `json:"add_ons_total"`

	Coupon *CouponResponse `json:"coupon,omitempty"`

	Subtotal        string `json:"subtotal"`
	TaxJurisdiction string `json:"tax_jurisdiction"`
	TaxRate         string `json:"tax_rate"`
	Taxes           string `json:"taxes"`
	Total           string `json:"total"`

	Deposit             string `json:"deposit"`
	IncludedKilometers  int    `json:"included_kilometers"`
	ExtraKilometerPrice string `json:"extra_kilometer_price"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func NewBreakdownResponse(b *pricing.Breakdown) BreakdownResponse {
	resp := BreakdownResponse{
		VehicleID:           b.VehicleID,
		PriceRuleID:         b.PriceRuleID,
		StartDate:           dayrange.Format(b.StartDate),
		EndDate:             dayrange.Format(b.EndDate),
		NumberOfDays:        b.NumberOfDays,
		BasePricePerDay:     money(b.BasePricePerDay),
		BaseTotal:           money(b.BaseTotal),
		WeekendDays:         b.WeekendDays,
		WeekendSurcharge:    money(b.WeekendSurcharge),
		SeasonalLines:       make([]SeasonalLineResponse, 0, len(b.SeasonalLines)),
		SeasonalSurcharge:   money(b.SeasonalSurcharge),
		LengthDiscountTier:  string(b.LengthDiscountTier),
		LengthDiscountPct:   b.LengthDiscountPct.String(),
		LengthDiscount:      money(b.LengthDiscount),
		AddOns:              make([]AddOnLineResponse, 0, len(b.AddOnLines)),
		AddOnsTotal:         money(b.AddOnsTotal),
		Subtotal:            money(b.Subtotal),
		TaxJurisdiction:     b.TaxJurisdiction,
		TaxRate:             b.TaxRate.String(),
		Taxes:               money(b.Taxes),
		Total:               money(b.Total),
		Deposit:             money(b.Deposit),
		IncludedKilometers:  b.IncludedKilometers,
		ExtraKilometerPrice: money(b.ExtraKilometerPrice),
	}
	for _, l := range b.SeasonalLines {
		resp.SeasonalLines = append(resp.SeasonalLines, SeasonalLineResponse{
			ID:          l.SeasonalRateID,
			Name:        l.Name,
			Multiplier:  l.Multiplier,
			OverlapDays: l.OverlapDays,
			Amount:      money(l.Amount),
		})
	}
	for _, l := range b.AddOnLines {
		resp.AddOns = append(resp.AddOns, AddOnLineResponse{
			ID:        l.AddOnID,
			Name:      l.Name,
			Mode:      string(l.Mode),
			UnitPrice: money(l.UnitPrice),
			Quantity:  l.Quantity,
			Total:     money(l.Total),
		})
	}
	if b.CouponCode != "" {
		resp.Coupon = &CouponResponse{
			Code:     b.CouponCode,
			Applied:  b.CouponApplied,
			Reason:   b.CouponReason,
			Discount: money(b.CouponDiscount),
		}
	}
	return resp
}
