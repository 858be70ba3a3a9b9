package coupon

import (
	"strings"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = apperror.NotFound("coupon not found")
	ErrUsageLimitReached = apperror.Conflict("coupon usage limit reached")
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Coupon is an administrator-authored discount code.
type Coupon struct {
	ID              string
	Code            string
	DiscountType    DiscountType
	DiscountValue   decimal.Decimal
	ValidFrom       time.Time
	ValidUntil      time.Time
	MinimumAmount   decimal.NullDecimal
	MaximumDiscount decimal.NullDecimal
	UsageCount      int
	UsageLimit      *int
	Active          bool
}

// NormalizeCode canonicalizes a user-entered code for lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Exhausted reports whether the coupon reached its usage limit.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit
}
