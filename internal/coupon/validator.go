package coupon

import (
	"context"
	"errors"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/logger"
	"github.com/shopspring/decimal"
)

// Reasons a coupon yields no discount.
const (
	ReasonApplied        = "applied"
	ReasonEmptyCode      = "no coupon code"
	ReasonUnknown        = "unknown coupon code"
	ReasonInactive       = "coupon is inactive"
	ReasonNotYetValid    = "coupon is not yet valid"
	ReasonExpired        = "coupon has expired"
	ReasonBelowMinimum   = "subtotal is below the coupon minimum"
	ReasonUsageExhausted = "coupon usage limit reached"
	ReasonUnavailable    = "coupon could not be checked"
)

// Result is the outcome of a coupon validation. Discount is zero unless Applied.
type Result struct {
	Code     string
	Applied  bool
	Discount decimal.Decimal
	Reason   string
	Coupon   *Coupon
}

// Validator checks a coupon code against a subtotal. It never fails: inapplicable
// coupons produce a zero discount. It has no side effects on usage counters.
type Validator struct {
	repo Repository
	now  func() time.Time
}

func NewValidator(repo Repository) *Validator {
	return &Validator{repo: repo, now: time.Now}
}

// WithClock returns a copy of the validator reading time from now.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	cp := *v
	cp.now = now
	return &cp
}

func (v *Validator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) Result {
	code = NormalizeCode(code)
	res := Result{Code: code, Discount: decimal.Zero}
	if code == "" {
		res.Reason = ReasonEmptyCode
		return res
	}

	c, err := v.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			res.Reason = ReasonUnknown
			return res
		}
		l := logger.WithComponent("coupon")
		l.Warn().Err(err).Str("code", code).Msg("coupon lookup failed, applying no discount")
		res.Reason = ReasonUnavailable
		return res
	}
	res.Coupon = c

	now := v.now()
	switch {
	case !c.Active:
		res.Reason = ReasonInactive
	case now.Before(c.ValidFrom):
		res.Reason = ReasonNotYetValid
	case now.After(c.ValidUntil):
		res.Reason = ReasonExpired
	case c.MinimumAmount.Valid && subtotal.LessThan(c.MinimumAmount.Decimal):
		res.Reason = ReasonBelowMinimum
	case c.Exhausted():
		res.Reason = ReasonUsageExhausted
	default:
		res.Applied = true
		res.Reason = ReasonApplied
		res.Discount = discountFor(c, subtotal)
	}
	return res
}

// discountFor computes the capped discount. It never exceeds the subtotal.
func discountFor(c *Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		d = subtotal.Mul(c.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
	default:
		d = c.DiscountValue
	}

	if c.MaximumDiscount.Valid && d.GreaterThan(c.MaximumDiscount.Decimal) {
		d = c.MaximumDiscount.Decimal
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d
}
