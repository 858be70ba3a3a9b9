package booking

import (
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
)

var (
	ErrDateConflict    = apperror.Conflict("vehicle is already reserved for the requested dates")
	ErrDayBlocked      = apperror.Conflict("vehicle is blocked on the requested dates")
	ErrVehicleInactive = apperror.Conflict("vehicle cannot be booked in its current status")
	ErrNotCancellable  = apperror.Conflict("reservation can no longer be cancelled")
	ErrMissingCustomer = apperror.Validation("customer id is required")
)

// CreateRequest asks for a new reservation of one vehicle.
type CreateRequest struct {
	CustomerID   string
	VehicleID    string
	Start        time.Time
	End          time.Time
	AddOnIDs     []string
	CouponCode   string
	Jurisdiction string
}

// Booking is a committed reservation with the quote it was priced at.
type Booking struct {
	Reservation *reservation.Reservation
	Breakdown   *pricing.Breakdown
}

// Commit is the unit of work persisted atomically by Repository.Commit.
type Commit struct {
	Reservation *reservation.Reservation
	// Days receive one availability block each, linked to the reservation.
	Days []time.Time
	// CouponCode, when set, has its usage counter incremented.
	CouponCode string
}
