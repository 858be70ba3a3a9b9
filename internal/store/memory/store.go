// Package memory holds in-process implementations of every repository used by
// the rental core. All views share one mutex, so a booking commit is atomic
// with respect to concurrent readers and writers.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	"github.com/nekogravitycat/car-rental-backend/internal/booking"
	"github.com/nekogravitycat/car-rental-backend/internal/coupon"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
)

type blockKey struct {
	vehicleID string
	day       time.Time
}

type Store struct {
	mu           sync.RWMutex
	vehicles     map[string]*vehicle.Vehicle
	reservations map[string]*reservation.Reservation
	blocks       map[blockKey]*availability.Block
	rules        []*pricing.PriceRule
	addOns       map[string]*pricing.AddOn
	coupons      map[string]*coupon.Coupon
}

func New() *Store {
	return &Store{
		vehicles:     map[string]*vehicle.Vehicle{},
		reservations: map[string]*reservation.Reservation{},
		blocks:       map[blockKey]*availability.Block{},
		addOns:       map[string]*pricing.AddOn{},
		coupons:      map[string]*coupon.Coupon{},
	}
}

// Seeding

func (s *Store) AddVehicle(v *vehicle.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.vehicles[v.ID] = &cp
}

func (s *Store) AddReservation(r *reservation.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.StartDate = dayrange.Normalize(r.StartDate)
	cp.EndDate = dayrange.Normalize(r.EndDate)
	s.reservations[r.ID] = &cp
}

// AddBlock places a manual block. It fails with booking.ErrDateConflict when
// the day is already blocked for the vehicle.
func (s *Store) AddBlock(vehicleID string, day time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := blockKey{vehicleID: vehicleID, day: dayrange.Normalize(day)}
	if _, taken := s.blocks[key]; taken {
		return booking.ErrDateConflict
	}
	s.blocks[key] = &availability.Block{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		Day:       key.day,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *Store) AddPriceRule(p *pricing.PriceRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.SeasonalRates = append([]pricing.SeasonalRate(nil), p.SeasonalRates...)
	s.rules = append(s.rules, &cp)
}

func (s *Store) AddAddOn(a *pricing.AddOn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.addOns[a.ID] = &cp
}

func (s *Store) AddCoupon(c *coupon.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	cp.Code = coupon.NormalizeCode(c.Code)
	s.coupons[cp.Code] = &cp
}

// BlockCount returns how many blocks the vehicle holds.
func (s *Store) BlockCount(vehicleID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.blocks {
		if k.vehicleID == vehicleID {
			n++
		}
	}
	return n
}

// Repository views

func (s *Store) Vehicles() vehicle.Repository         { return vehicleRepo{s} }
func (s *Store) Reservations() reservation.Repository { return reservationRepo{s} }
func (s *Store) Blocks() availability.BlockRepository { return blockRepo{s} }
func (s *Store) PriceRules() pricing.RuleRepository   { return ruleRepo{s} }
func (s *Store) AddOns() pricing.AddOnRepository      { return addOnRepo{s} }
func (s *Store) Coupons() coupon.Repository           { return couponRepo{s} }
func (s *Store) Bookings() booking.Repository         { return bookingRepo{s} }

type vehicleRepo struct{ s *Store }

func (r vehicleRepo) GetByID(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, vehicle.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r vehicleRepo) List(ctx context.Context, filter vehicle.Filter) ([]*vehicle.Vehicle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*vehicle.Vehicle
	for _, v := range r.s.vehicles {
		if filter.Matches(v) {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type reservationRepo struct{ s *Store }

func (r reservationRepo) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r reservationRepo) ListLive(ctx context.Context, vehicleID string, rng dayrange.Range) ([]*reservation.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*reservation.Reservation
	for _, res := range r.s.reservations {
		if res.VehicleID != vehicleID || !res.Status.Live() || !rng.Overlaps(res.Range()) {
			continue
		}
		cp := *res
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type blockRepo struct{ s *Store }

func (r blockRepo) ListInRange(ctx context.Context, vehicleID string, rng dayrange.Range) ([]*availability.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*availability.Block
	for k, b := range r.s.blocks {
		if k.vehicleID == vehicleID && rng.Contains(k.day) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

type ruleRepo struct{ s *Store }

func (r ruleRepo) ListActiveRules(ctx context.Context, vehicleID string, rng dayrange.Range) ([]*pricing.PriceRule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*pricing.PriceRule
	for _, p := range r.s.rules {
		if p.VehicleID != vehicleID || !p.Active || !p.Covers(rng) {
			continue
		}
		cp := *p
		cp.SeasonalRates = append([]pricing.SeasonalRate(nil), p.SeasonalRates...)
		out = append(out, &cp)
	}
	return out, nil
}

type addOnRepo struct{ s *Store }

func (r addOnRepo) ListActiveByIDs(ctx context.Context, ids []string) ([]*pricing.AddOn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := map[string]bool{}
	var out []*pricing.AddOn
	for _, id := range ids {
		a, ok := r.s.addOns[id]
		if !ok || !a.Active || seen[id] {
			continue
		}
		seen[id] = true
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

type couponRepo struct{ s *Store }

func (r couponRepo) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.coupons[coupon.NormalizeCode(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type bookingRepo struct{ s *Store }

func (r bookingRepo) Commit(ctx context.Context, c *booking.Commit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res := c.Reservation
	keys := make([]blockKey, len(c.Days))
	for i, d := range c.Days {
		keys[i] = blockKey{vehicleID: res.VehicleID, day: dayrange.Normalize(d)}
		if _, taken := r.s.blocks[keys[i]]; taken {
			return booking.ErrDateConflict
		}
	}

	var cp *coupon.Coupon
	if c.CouponCode != "" {
		var ok bool
		cp, ok = r.s.coupons[coupon.NormalizeCode(c.CouponCode)]
		if !ok || cp.Exhausted() {
			return coupon.ErrUsageLimitReached
		}
	}

	// Nothing below can fail, so the writes are all-or-nothing.
	stored := *res
	r.s.reservations[res.ID] = &stored
	now := time.Now().UTC()
	for _, k := range keys {
		id := res.ID
		r.s.blocks[k] = &availability.Block{
			ID:            uuid.NewString(),
			VehicleID:     k.vehicleID,
			Day:           k.day,
			Reason:        availability.BlockReasonReservation,
			ReservationID: &id,
			CreatedAt:     now,
		}
	}
	if cp != nil {
		cp.UsageCount++
	}
	return nil
}

func (r bookingRepo) Cancel(ctx context.Context, reservationID string, at time.Time) (*reservation.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.reservations[reservationID]
	if !ok {
		return nil, reservation.ErrNotFound
	}
	if !res.Status.Live() {
		return nil, booking.ErrNotCancellable
	}
	res.Status = reservation.StatusCancelled
	res.UpdatedAt = at

	for k, b := range r.s.blocks {
		if b.ReservationID != nil && *b.ReservationID == reservationID {
			delete(r.s.blocks, k)
		}
	}
	cp := *res
	return &cp, nil
}
