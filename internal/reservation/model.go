package reservation

import (
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = apperror.NotFound("reservation not found")
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusNoShow     Status = "NO_SHOW"
)

// LiveStatuses are the statuses that occupy a vehicle.
var LiveStatuses = []Status{StatusPending, StatusConfirmed, StatusInProgress}

// Live reports whether a reservation in this status blocks its vehicle.
func (s Status) Live() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	default:
		return false
	}
}

// Reservation is a customer's hold on one vehicle for an inclusive range of days.
type Reservation struct {
	ID            string
	VehicleID     string
	CustomerID    string
	StartDate     time.Time
	EndDate       time.Time
	Status        Status
	TotalAmount   decimal.Decimal
	DepositAmount decimal.Decimal
	CouponCode    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Range returns the reservation's inclusive day range.
func (r *Reservation) Range() dayrange.Range {
	return dayrange.New(r.StartDate, r.EndDate)
}
