package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
)

// CalendarBuilder renders per-day availability with the same rules as Checker,
// so a single-day Check always agrees with the calendar entry for that day.
type CalendarBuilder struct {
	vehicles     vehicle.Repository
	reservations reservation.Repository
	blocks       BlockRepository
}

func NewCalendarBuilder(vehicles vehicle.Repository, reservations reservation.Repository, blocks BlockRepository) *CalendarBuilder {
	return &CalendarBuilder{vehicles: vehicles, reservations: reservations, blocks: blocks}
}

// Build returns one entry per day of [start, end]. Every day of a vehicle that
// is not ACTIVE is unavailable.
func (b *CalendarBuilder) Build(ctx context.Context, vehicleID string, start, end time.Time) (*Calendar, error) {
	rng := dayrange.New(start, end)
	if !rng.Valid() {
		return nil, ErrInvalidRange
	}

	v, err := b.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	cal := &Calendar{VehicleID: vehicleID, Start: rng.Start, End: rng.End}
	days := rng.List()
	cal.Days = make([]DayAvailability, len(days))
	for i, d := range days {
		cal.Days[i] = DayAvailability{Date: d, Available: v.Status.Bookable()}
	}
	if !v.Status.Bookable() {
		return cal, nil
	}

	taken := make(map[time.Time]struct{})

	live, err := b.reservations.ListLive(ctx, vehicleID, rng)
	if err != nil {
		return nil, fmt.Errorf("list live reservations: %w", err)
	}
	for _, r := range live {
		if !r.Status.Live() {
			continue
		}
		in, ok := rng.Intersect(r.Range())
		if !ok {
			continue
		}
		in.Each(func(d time.Time) { taken[d] = struct{}{} })
	}

	blocked, err := blockedDays(ctx, b.blocks, vehicleID, rng)
	if err != nil {
		return nil, err
	}
	for _, d := range blocked {
		taken[d] = struct{}{}
	}

	for i := range cal.Days {
		if _, ok := taken[cal.Days[i].Date]; ok {
			cal.Days[i].Available = false
		}
	}
	return cal, nil
}
