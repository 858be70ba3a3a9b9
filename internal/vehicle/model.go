package vehicle

import (
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
)

var (
	ErrNotFound = apperror.NotFound("vehicle not found")
)

type Status string

const (
	StatusActive          Status = "ACTIVE"
	StatusMaintenance     Status = "MAINTENANCE"
	StatusRetired         Status = "RETIRED"
	StatusReservedForSale Status = "RESERVED_FOR_SALE"
)

// Bookable reports whether vehicles in this status may take reservations.
func (s Status) Bookable() bool {
	return s == StatusActive
}

// Vehicle represents a rentable unit of the fleet.
type Vehicle struct {
	ID        string
	Name      string
	Status    Status
	Category  string
	Seats     int
	CreatedAt time.Time
}

// Filter defines the static candidate filters for fleet queries.
// Zero values mean "no constraint".
type Filter struct {
	Status   Status
	Category string
	MinSeats int
}

// Matches applies the filter in memory with the same semantics as the SQL query.
func (f Filter) Matches(v *Vehicle) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.Category != "" && v.Category != f.Category {
		return false
	}
	if f.MinSeats > 0 && v.Seats < f.MinSeats {
		return false
	}
	return true
}
