package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/logger"
	"github.com/nekogravitycat/car-rental-backend/internal/metrics"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
	"golang.org/x/sync/errgroup"
)

// PriceResolver finds the single active price rule of a vehicle for a range.
type PriceResolver interface {
	ResolveRule(ctx context.Context, vehicleID string, rng dayrange.Range) (*pricing.PriceRule, error)
}

// FleetFilter lists the vehicles that can be booked for a range.
type FleetFilter struct {
	vehicles vehicle.Repository
	checker  *Checker
	prices   PriceResolver
	workers  int
	timeout  time.Duration
	metrics  *metrics.Recorder
}

type FleetOption func(*FleetFilter)

// WithWorkers bounds the number of vehicles checked concurrently.
func WithWorkers(n int) FleetOption {
	return func(f *FleetFilter) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithScanTimeout bounds the whole scan. Zero disables the bound.
func WithScanTimeout(d time.Duration) FleetOption {
	return func(f *FleetFilter) { f.timeout = d }
}

func WithMetrics(rec *metrics.Recorder) FleetOption {
	return func(f *FleetFilter) { f.metrics = rec }
}

func NewFleetFilter(vehicles vehicle.Repository, checker *Checker, prices PriceResolver, opts ...FleetOption) *FleetFilter {
	f := &FleetFilter{
		vehicles: vehicles,
		checker:  checker,
		prices:   prices,
		workers:  8,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ListAvailable returns the ACTIVE vehicles matching filters that are free for
// every day of [start, end], in candidate order (name, then id).
//
// A store failure for one vehicle excludes that vehicle and is logged; it does
// not abort the scan. Cancellation or timeout of ctx aborts the scan and
// returns the context error.
func (f *FleetFilter) ListAvailable(ctx context.Context, start, end time.Time, filters Filters) ([]*vehicle.Vehicle, error) {
	began := time.Now()
	out, err := f.listAvailable(ctx, start, end, filters)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	f.metrics.ObserveFleetScan(time.Since(began), outcome)
	return out, err
}

func (f *FleetFilter) listAvailable(ctx context.Context, start, end time.Time, filters Filters) ([]*vehicle.Vehicle, error) {
	rng := dayrange.New(start, end)
	if !rng.Valid() {
		return nil, ErrInvalidRange
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	candidates, err := f.vehicles.List(ctx, vehicle.Filter{
		Status:   vehicle.StatusActive,
		Category: filters.Category,
		MinSeats: filters.MinSeats,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("list candidate vehicles: %w", err)
	}

	l := logger.WithComponent("fleet")
	keep := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, v := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := f.admit(gctx, v, rng, filters)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				l.Warn().Err(err).Str("vehicle_id", v.ID).Msg("excluding vehicle from fleet scan")
				return nil
			}
			keep[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make([]*vehicle.Vehicle, 0, len(candidates))
	for i, v := range candidates {
		if keep[i] {
			result = append(result, v)
		}
	}
	return result, nil
}

func (f *FleetFilter) admit(ctx context.Context, v *vehicle.Vehicle, rng dayrange.Range, filters Filters) (bool, error) {
	if filters.PriceFiltered() {
		rule, err := f.prices.ResolveRule(ctx, v.ID, rng)
		if err != nil {
			// Vehicles without usable pricing cannot satisfy a price filter.
			if apperror.IsKind(err, apperror.KindNotFound) || apperror.IsKind(err, apperror.KindConfiguration) {
				return false, nil
			}
			return false, err
		}
		if !filters.PriceInBounds(rule.BasePricePerDay) {
			return false, nil
		}
	}

	res, err := f.checker.Check(ctx, v.ID, rng.Start, rng.End)
	if err != nil {
		return false, err
	}
	return res.Available, nil
}
