package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/metrics"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
)

// Checker decides whether a vehicle can be booked for an inclusive range of days.
type Checker struct {
	vehicles     vehicle.Repository
	reservations reservation.Repository
	blocks       BlockRepository
	metrics      *metrics.Recorder
}

func NewChecker(
	vehicles vehicle.Repository,
	reservations reservation.Repository,
	blocks BlockRepository,
	rec *metrics.Recorder,
) *Checker {
	return &Checker{
		vehicles:     vehicles,
		reservations: reservations,
		blocks:       blocks,
		metrics:      rec,
	}
}

// Check fails closed: an inverted range, an unknown vehicle or a vehicle that is
// not ACTIVE all yield Available=false with a specific reason. Only store
// failures are returned as errors.
func (c *Checker) Check(ctx context.Context, vehicleID string, start, end time.Time) (*Result, error) {
	res, err := c.check(ctx, vehicleID, start, end)
	if err != nil {
		c.metrics.ObserveCheck("ERROR")
		return nil, err
	}
	c.metrics.ObserveCheck(string(res.ReasonCode))
	return res, nil
}

func (c *Checker) check(ctx context.Context, vehicleID string, start, end time.Time) (*Result, error) {
	rng := dayrange.New(start, end)
	res := &Result{VehicleID: vehicleID, Start: rng.Start, End: rng.End}
	if !rng.Valid() {
		return res.reject(ReasonInvalidRange, "end date must not be before start date"), nil
	}

	v, err := c.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, vehicle.ErrNotFound) {
			return res.reject(ReasonVehicleNotFound, "vehicle not found"), nil
		}
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if !v.Status.Bookable() {
		return res.reject(ReasonVehicleInactive, fmt.Sprintf("vehicle is %s and cannot be booked", describeStatus(v.Status))), nil
	}

	conflicts, err := c.conflicts(ctx, vehicleID, rng)
	if err != nil {
		return nil, err
	}
	blocked, err := blockedDays(ctx, c.blocks, vehicleID, rng)
	if err != nil {
		return nil, err
	}
	res.Conflicts = conflicts
	res.BlockedDates = blocked

	switch {
	case len(conflicts) > 0:
		first := conflicts[0]
		msg := fmt.Sprintf("vehicle is already reserved from %s to %s",
			dayrange.Format(first.Start), dayrange.Format(first.End))
		if len(conflicts) > 1 {
			msg += fmt.Sprintf(" (and %d more reservations)", len(conflicts)-1)
		}
		return res.reject(ReasonReservationConflict, msg), nil
	case len(blocked) > 0:
		dates := make([]string, len(blocked))
		for i, d := range blocked {
			dates[i] = dayrange.Format(d)
		}
		return res.reject(ReasonBlocked, "vehicle is blocked on "+strings.Join(dates, ", ")), nil
	}

	res.Available = true
	res.ReasonCode = ReasonAvailable
	return res, nil
}

func (c *Checker) conflicts(ctx context.Context, vehicleID string, rng dayrange.Range) ([]Conflict, error) {
	live, err := c.reservations.ListLive(ctx, vehicleID, rng)
	if err != nil {
		return nil, fmt.Errorf("list live reservations: %w", err)
	}

	var out []Conflict
	for _, r := range live {
		if !r.Status.Live() || !rng.Overlaps(r.Range()) {
			continue
		}
		out = append(out, Conflict{
			ReservationID: r.ID,
			Status:        r.Status,
			Start:         dayrange.Normalize(r.StartDate),
			End:           dayrange.Normalize(r.EndDate),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// blockedDays returns the distinct blocked days of the vehicle inside rng, ascending.
func blockedDays(ctx context.Context, blocks BlockRepository, vehicleID string, rng dayrange.Range) ([]time.Time, error) {
	found, err := blocks.ListInRange(ctx, vehicleID, rng)
	if err != nil {
		return nil, fmt.Errorf("list availability blocks: %w", err)
	}

	seen := make(map[time.Time]struct{}, len(found))
	var out []time.Time
	for _, b := range found {
		d := dayrange.Normalize(b.Day)
		if !rng.Contains(d) {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

func (r *Result) reject(code ReasonCode, reason string) *Result {
	r.Available = false
	r.ReasonCode = code
	r.Reason = reason
	return r
}

func describeStatus(s vehicle.Status) string {
	return strings.ToLower(strings.ReplaceAll(string(s), "_", " "))
}
