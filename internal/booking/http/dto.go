package http

import (
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/booking"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	pricingHttp "github.com/nekogravitycat/car-rental-backend/internal/pricing/http"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
)

// CreateBookingRequest defines the body for creating a reservation.
// The customer is taken from the access token, never from the body.
type CreateBookingRequest struct {
	VehicleID    string   `json:"vehicle_id" binding:"required,uuid"`
	StartDate    string   `json:"start_date" binding:"required"`
	EndDate      string   `json:"end_date" binding:"required"`
	AddOnIDs     []string `json:"add_on_ids" binding:"omitempty,dive,uuid"`
	CouponCode   string   `json:"coupon_code" binding:"omitempty,max=64"`
	Jurisdiction string   `json:"jurisdiction" binding:"omitempty,max=32"`
}

func (r *CreateBookingRequest) ToCreate(customerID string) (booking.CreateRequest, error) {
	start, err := dayrange.Parse(r.StartDate)
	if err != nil {
		return booking.CreateRequest{}, err
	}
	end, err := dayrange.Parse(r.EndDate)
	if err != nil {
		return booking.CreateRequest{}, err
	}
	return booking.CreateRequest{
		CustomerID:   customerID,
		VehicleID:    r.VehicleID,
		Start:        start,
		End:          end,
		AddOnIDs:     r.AddOnIDs,
		CouponCode:   r.CouponCode,
		Jurisdiction: r.Jurisdiction,
	}, nil
}

type ReservationResponse struct {
	ID         string    `json:"id"`
	VehicleID  string    `json:"vehicle_id"`
	CustomerID string    `json:"customer_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Status     string    `json:"status"`
	Total      string    `json:"total_amount"`
	Deposit    string    `json:"deposit_amount"`
	CouponCode string    `json:"coupon_code,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewReservationResponse(r *reservation.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:         r.ID,
		VehicleID:  r.VehicleID,
		CustomerID: r.CustomerID,
		StartDate:  dayrange.Format(r.StartDate),
		EndDate:    dayrange.Format(r.EndDate),
		Status:     string(r.Status),
		Total:      r.TotalAmount.StringFixed(2),
		Deposit:    r.DepositAmount.StringFixed(2),
		CouponCode: r.CouponCode,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type BookingResponse struct {
	Reservation ReservationResponse           `json:"reservation"`
	Breakdown   pricingHttp.BreakdownResponse `json:"breakdown"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		Reservation: NewReservationResponse(b.Reservation),
		Breakdown:   pricingHttp.NewBreakdownResponse(b.Breakdown),
	}
}
