package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	"github.com/nekogravitycat/car-rental-backend/internal/coupon"
	"github.com/nekogravitycat/car-rental-backend/internal/logger"
	"github.com/nekogravitycat/car-rental-backend/internal/metrics"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
)

type Service interface {
	// Create checks availability, prices the rental and commits the
	// reservation with its day blocks atomically.
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id string) (*reservation.Reservation, error)
	Cancel(ctx context.Context, id string) (*reservation.Reservation, error)
}

type service struct {
	repo         Repository
	reservations reservation.Repository
	checker      *availability.Checker
	calculator   *pricing.Calculator
	metrics      *metrics.Recorder
	now          func() time.Time
}

func NewService(
	repo Repository,
	reservations reservation.Repository,
	checker *availability.Checker,
	calculator *pricing.Calculator,
	rec *metrics.Recorder,
) Service {
	return &service{
		repo:         repo,
		reservations: reservations,
		checker:      checker,
		calculator:   calculator,
		metrics:      rec,
		now:          time.Now,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	b, err := s.create(ctx, req)
	s.metrics.ObserveBooking("create", outcomeOf(err))
	return b, err
}

func (s *service) create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, ErrMissingCustomer
	}

	// 1. Availability
	res, err := s.checker.Check(ctx, req.VehicleID, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if !res.Available {
		return nil, unavailableError(res)
	}

	// 2. Price and commit. A coupon exhausted by a concurrent booking between
	// the quote and the commit is dropped: the rental is re-priced once, the
	// breakdown records why the coupon no longer applies, and the commit is retried.
	quote := pricing.QuoteRequest{
		VehicleID:    req.VehicleID,
		Start:        req.Start,
		End:          req.End,
		AddOnIDs:     req.AddOnIDs,
		CouponCode:   req.CouponCode,
		Jurisdiction: req.Jurisdiction,
	}
	r, bd, err := s.priceAndCommit(ctx, req, quote)
	if errors.Is(err, coupon.ErrUsageLimitReached) {
		l := logger.WithComponent("booking")
		l.Warn().
			Str("vehicle_id", req.VehicleID).
			Str("coupon", req.CouponCode).
			Msg("coupon exhausted at commit, re-pricing")
		r, bd, err = s.priceAndCommit(ctx, req, quote)
	}
	if err != nil {
		return nil, err
	}

	l := logger.WithComponent("booking")
	l.Info().
		Str("reservation_id", r.ID).
		Str("vehicle_id", r.VehicleID).
		Str("range", dayrange.New(r.StartDate, r.EndDate).String()).
		Str("total", r.TotalAmount.StringFixed(2)).
		Msg("reservation created")

	return &Booking{Reservation: r, Breakdown: bd}, nil
}

// priceAndCommit prices the rental and persists the reservation with one block
// per day. The per-day unique blocks settle races the availability check cannot see.
func (s *service) priceAndCommit(ctx context.Context, req CreateRequest, quote pricing.QuoteRequest) (*reservation.Reservation, *pricing.Breakdown, error) {
	bd, err := s.calculator.Calculate(ctx, quote)
	if err != nil {
		return nil, nil, err
	}

	now := s.now().UTC()
	r := &reservation.Reservation{
		ID:            uuid.NewString(),
		VehicleID:     req.VehicleID,
		CustomerID:    req.CustomerID,
		StartDate:     bd.StartDate,
		EndDate:       bd.EndDate,
		Status:        reservation.StatusPending,
		TotalAmount:   bd.Total,
		DepositAmount: bd.Deposit,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	commit := &Commit{Reservation: r, Days: dayrange.New(bd.StartDate, bd.EndDate).List()}
	if bd.CouponApplied {
		r.CouponCode = bd.CouponCode
		commit.CouponCode = bd.CouponCode
	}
	if err := s.repo.Commit(ctx, commit); err != nil {
		return nil, nil, err
	}
	return r, bd, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

func (s *service) Cancel(ctx context.Context, id string) (*reservation.Reservation, error) {
	r, err := s.repo.Cancel(ctx, id, s.now().UTC())
	s.metrics.ObserveBooking("cancel", outcomeOf(err))
	if err != nil {
		return nil, err
	}

	l := logger.WithComponent("booking")
	l.Info().Str("reservation_id", r.ID).Str("vehicle_id", r.VehicleID).Msg("reservation cancelled")
	return r, nil
}

// unavailableError turns a negative check into a typed error whose message is
// the checker's specific reason.
func unavailableError(res *availability.Result) error {
	switch res.ReasonCode {
	case availability.ReasonInvalidRange:
		return availability.ErrInvalidRange
	case availability.ReasonVehicleNotFound:
		return vehicle.ErrNotFound
	case availability.ReasonVehicleInactive:
		return apperror.Wrap(ErrVehicleInactive, http.StatusConflict, res.Reason)
	case availability.ReasonReservationConflict:
		return apperror.Wrap(ErrDateConflict, http.StatusConflict, res.Reason)
	case availability.ReasonBlocked:
		return apperror.Wrap(ErrDayBlocked, http.StatusConflict, res.Reason)
	default:
		return fmt.Errorf("unexpected availability outcome %q", res.ReasonCode)
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Kind != apperror.KindInternal {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeError
}
