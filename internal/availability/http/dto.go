package http

import (
	"strings"

	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/request"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
)

type ConflictResponse struct {
	ReservationID string `json:"reservation_id"`
	Status        string `json:"status"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
}

type CheckResponse struct {
	VehicleID    string             `json:"vehicle_id"`
	StartDate    string             `json:"start_date"`
	EndDate      string             `json:"end_date"`
	Available    bool               `json:"available"`
	ReasonCode   string             `json:"reason_code"`
	Reason       string             `json:"reason,omitempty"`
	Conflicts    []ConflictResponse `json:"conflicts,omitempty"`
	BlockedDates []string           `json:"blocked_dates,omitempty"`
}

func NewCheckResponse(r *availability.Result) CheckResponse {
	resp := CheckResponse{
		VehicleID:  r.VehicleID,
		StartDate:  dayrange.Format(r.Start),
		EndDate:    dayrange.Format(r.End),
		Available:  r.Available,
		ReasonCode: string(r.ReasonCode),
		Reason:     r.Reason,
	}
	for _, c := range r.Conflicts {
		resp.Conflicts = append(resp.Conflicts, ConflictResponse{
			ReservationID: c.ReservationID,
			Status:        string(c.Status),
			StartDate:     dayrange.Format(c.Start),
			EndDate:       dayrange.Format(c.End),
		})
	}
	for _, d := range r.BlockedDates {
		resp.BlockedDates = append(resp.BlockedDates, dayrange.Format(d))
	}
	return resp
}

type DayResponse struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}

type CalendarResponse struct {
	VehicleID string        `json:"vehicle_id"`
	StartDate string        `json:"start_date"`
	EndDate   string        `json:"end_date"`
	Days      []DayResponse `json:"days"`
}

func NewCalendarResponse(cal *availability.Calendar) CalendarResponse {
	days := make([]DayResponse, len(cal.Days))
	for i, d := range cal.Days {
		days[i] = DayResponse{Date: dayrange.Format(d.Date), Available: d.Available}
	}
	return CalendarResponse{
		VehicleID: cal.VehicleID,
		StartDate: dayrange.Format(cal.Start),
		EndDate:   dayrange.Format(cal.End),
		Days:      days,
	}
}

// VehicleTag is the compact vehicle representation used in listings.
type VehicleTag struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Seats    int    `json:"seats"`
}

func NewVehicleTag(v *vehicle.Vehicle) VehicleTag {
	return VehicleTag{ID: v.ID, Name: v.Name, Category: v.Category, Seats: v.Seats}
}

// ListAvailableRequest defines query parameters for fleet search.
type ListAvailableRequest struct {
	request.DateRangeQuery
	request.ListParams
	Category string `form:"category"`
	MinSeats int    `form:"min_seats" binding:"omitempty,min=1"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
}

// Filters parses the price bounds and returns the fleet filters.
func (r *ListAvailableRequest) Filters() (availability.Filters, error) {
	f := availability.Filters{
		Category: strings.TrimSpace(r.Category),
		MinSeats: r.MinSeats,
	}
	err := f.SetPriceBounds(r.MinPrice, r.MaxPrice)
	return f, err
}
