package availability

import (
	"strings"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRange       = apperror.Validation("end date must not be before start date")
	ErrInvalidPriceBounds = apperror.Validation("min_price and max_price must be non-negative decimals with min_price <= max_price")
)

// BlockReasonReservation marks blocks written by the booking workflow.
const BlockReasonReservation = "reservation"

// Block is a hold on a single day of a vehicle. At most one exists per (vehicle, day).
type Block struct {
	ID            string
	VehicleID     string
	Day           time.Time
	Reason        string
	ReservationID *string
	CreatedAt     time.Time
}

// ReasonCode is the machine-readable outcome of an availability check.
type ReasonCode string

const (
	ReasonAvailable           ReasonCode = "AVAILABLE"
	ReasonInvalidRange        ReasonCode = "INVALID_RANGE"
	ReasonVehicleNotFound     ReasonCode = "VEHICLE_NOT_FOUND"
	ReasonVehicleInactive     ReasonCode = "VEHICLE_INACTIVE"
	ReasonReservationConflict ReasonCode = "RESERVATION_CONFLICT"
	ReasonBlocked             ReasonCode = "BLOCKED"
)

// Conflict describes a live reservation overlapping the requested range.
type Conflict struct {
	ReservationID string
	Status        reservation.Status
	Start         time.Time
	End           time.Time
}

// Result is the outcome of Checker.Check.
type Result struct {
	VehicleID    string
	Start        time.Time
	End          time.Time
	Available    bool
	ReasonCode   ReasonCode
	Reason       string
	Conflicts    []Conflict
	BlockedDates []time.Time
}

type DayAvailability struct {
	Date      time.Time
	Available bool
}

// Calendar holds one entry per day of the requested range, in order.
type Calendar struct {
	VehicleID string
	Start     time.Time
	End       time.Time
	Days      []DayAvailability
}

// Filters narrows a fleet scan. Zero values mean "no constraint".
type Filters struct {
	Category string
	MinSeats int
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
}

// PriceFiltered reports whether the scan must resolve pricing per vehicle.
func (f Filters) PriceFiltered() bool {
	return f.MinPrice.Valid || f.MaxPrice.Valid
}

// PriceInBounds reports whether a daily price satisfies the bounds, inclusive.
func (f Filters) PriceInBounds(price decimal.Decimal) bool {
	if f.MinPrice.Valid && price.LessThan(f.MinPrice.Decimal) {
		return false
	}
	if f.MaxPrice.Valid && price.GreaterThan(f.MaxPrice.Decimal) {
		return false
	}
	return true
}

// SetPriceBounds parses optional decimal bounds into f. Empty strings leave a
// bound unset.
func (f *Filters) SetPriceBounds(minPrice, maxPrice string) error {
	lo, err := parseBound(minPrice)
	if err != nil {
		return err
	}
	hi, err := parseBound(maxPrice)
	if err != nil {
		return err
	}
	if lo.Valid && hi.Valid && lo.Decimal.GreaterThan(hi.Decimal) {
		return ErrInvalidPriceBounds
	}
	f.MinPrice, f.MaxPrice = lo, hi
	return nil
}

func parseBound(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.NullDecimal{}, ErrInvalidPriceBounds
	}
	return decimal.NewNullDecimal(d), nil
}
