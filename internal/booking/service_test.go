package booking_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	"github.com/nekogravitycat/car-rental-backend/internal/booking"
	"github.com/nekogravitycat/car-rental-backend/internal/coupon"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/nekogravitycat/car-rental-backend/internal/store/memory"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	carID    = "00000000-0000-4000-8000-0000000000c1"
	vanID    = "00000000-0000-4000-8000-0000000000c2"
	customer = "00000000-0000-4000-8000-0000000000aa"
)

func day(s string) time.Time {
	t, err := dayrange.Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func fixture() *memory.Store {
	s := memory.New()
	s.AddVehicle(&vehicle.Vehicle{ID: carID, Name: "Corolla", Status: vehicle.StatusActive, Category: "compact", Seats: 5})
	s.AddVehicle(&vehicle.Vehicle{ID: vanID, Name: "Sienna", Status: vehicle.StatusRetired, Category: "van", Seats: 8})
	s.AddPriceRule(&pricing.PriceRule{
		ID:                "rule-car",
		VehicleID:         carID,
		BasePricePerDay:   decimal.RequireFromString("100"),
		WeekendMultiplier: decimal.NewFromInt(1),
		MinimumDays:       1,
		DepositAmount:     decimal.RequireFromString("300"),
		ValidFrom:         day("2026-01-01"),
		Active:            true,
	})
	limit := 1
	s.AddCoupon(&coupon.Coupon{
		ID:            "c1",
		Code:          "ONCE",
		DiscountType:  coupon.DiscountFixed,
		DiscountValue: decimal.RequireFromString("20"),
		ValidFrom:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil:    time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
		UsageLimit:    &limit,
		Active:        true,
	})
	return s
}

func newService(s *memory.Store) booking.Service {
	checker := availability.NewChecker(s.Vehicles(), s.Reservations(), s.Blocks(), nil)
	calc := pricing.NewCalculator(s.PriceRules(), s.AddOns(), coupon.NewValidator(s.Coupons()),
		pricing.NewFlatTaxPolicy(decimal.RequireFromString("0.16")), "default")
	return booking.NewService(s.Bookings(), s.Reservations(), checker, calc, nil)
}

func createReq(start, end string) booking.CreateRequest {
	return booking.CreateRequest{CustomerID: customer, VehicleID: carID, Start: day(start), End: day(end)}
}

func TestCreate_CommitsReservationAndBlocks(t *testing.T) {
	s := fixture()
	svc := newService(s)

	b, err := svc.Create(context.Background(), createReq("2026-06-01", "2026-06-03"))
	require.NoError(t, err)

	r := b.Reservation
	assert.Equal(t, reservation.StatusPending, r.Status)
	assert.Equal(t, customer, r.CustomerID)
	assert.True(t, r.TotalAmount.Equal(decimal.RequireFromString("348")), r.TotalAmount.String())
	assert.True(t, r.DepositAmount.Equal(decimal.RequireFromString("300")))
	assert.True(t, b.Breakdown.Verify())
	assert.Equal(t, 3, s.BlockCount(carID))

	stored, err := svc.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, stored.ID)
}

func TestCreate_UnavailableIsTyped(t *testing.T) {
	s := fixture()
	svc := newService(s)
	ctx := context.Background()
	_, err := svc.Create(ctx, createReq("2026-06-10", "2026-06-12"))
	require.NoError(t, err)
	require.NoError(t, s.AddBlock(carID, day("2026-06-20"), "maintenance"))

	tests := []struct {
		name string
		req  booking.CreateRequest
		want error
		kind apperror.Kind
	}{
		{"inverted range", createReq("2026-06-05", "2026-06-01"), availability.ErrInvalidRange, apperror.KindValidation},
		{"unknown vehicle", booking.CreateRequest{CustomerID: customer, VehicleID: "nope", Start: day("2026-06-01"), End: day("2026-06-02")}, vehicle.ErrNotFound, apperror.KindNotFound},
		{"retired vehicle", booking.CreateRequest{CustomerID: customer, VehicleID: vanID, Start: day("2026-06-01"), End: day("2026-06-02")}, booking.ErrVehicleInactive, apperror.KindConflict},
		{"overlapping reservation", createReq("2026-06-12", "2026-06-14"), booking.ErrDateConflict, apperror.KindConflict},
		{"blocked day", createReq("2026-06-19", "2026-06-21"), booking.ErrDayBlocked, apperror.KindConflict},
		{"missing customer", booking.CreateRequest{VehicleID: carID, Start: day("2026-07-01"), End: day("2026-07-02")}, booking.ErrMissingCustomer, apperror.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := svc.Create(ctx, tt.req)
			assert.Nil(t, b)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, apperror.IsKind(err, tt.kind))
		})
	}
}

func TestCreate_ConflictCarriesSpecificReason(t *testing.T) {
	s := fixture()
	svc := newService(s)
	_, err := svc.Create(context.Background(), createReq("2026-06-10", "2026-06-12"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), createReq("2026-06-11", "2026-06-11"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2026-06-10")
	assert.Contains(t, err.Error(), "2026-06-12")
}

func TestCreate_PricingFailureCommitsNothing(t *testing.T) {
	s := fixture()
	s.AddVehicle(&vehicle.Vehicle{ID: vanID, Name: "Sienna", Status: vehicle.StatusActive, Category: "van", Seats: 8})
	svc := newService(s)

	_, err := svc.Create(context.Background(), booking.CreateRequest{
		CustomerID: customer, VehicleID: vanID, Start: day("2026-06-01"), End: day("2026-06-02"),
	})
	assert.ErrorIs(t, err, pricing.ErrNoActivePriceRule)
	assert.Zero(t, s.BlockCount(vanID))
}

func TestCreate_ConsumesCouponOnce(t *testing.T) {
	s := fixture()
	svc := newService(s)

	req := createReq("2026-06-01", "2026-06-02")
	req.CouponCode = "once"
	first, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, first.Breakdown.CouponApplied)
	assert.Equal(t, "ONCE", first.Reservation.CouponCode)
	assert.True(t, first.Breakdown.CouponDiscount.Equal(decimal.NewFromInt(20)))

	req = createReq("2026-07-01", "2026-07-02")
	req.CouponCode = "ONCE"
	second, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Breakdown.CouponApplied)
	assert.Equal(t, coupon.ReasonUsageExhausted, second.Breakdown.CouponReason)
	assert.Empty(t, second.Reservation.CouponCode)
}

// racingRepo lets a competing booking consume the coupon after the quote has
// been priced but before the first commit lands.
type racingRepo struct {
	booking.Repository
	raced bool
}

func (r *racingRepo) Commit(ctx context.Context, c *booking.Commit) error {
	if !r.raced && c.CouponCode != "" {
		r.raced = true
		rival := &reservation.Reservation{
			ID:         "rival",
			VehicleID:  carID,
			CustomerID: customer,
			StartDate:  day("2026-08-01"),
			EndDate:    day("2026-08-01"),
			Status:     reservation.StatusConfirmed,
		}
		if err := r.Repository.Commit(ctx, &booking.Commit{
			Reservation: rival,
			Days:        []time.Time{day("2026-08-01")},
			CouponCode:  c.CouponCode,
		}); err != nil {
			return err
		}
	}
	return r.Repository.Commit(ctx, c)
}

func TestCreate_CouponExhaustedAtCommitFallsBackToFullPrice(t *testing.T) {
	s := fixture()
	checker := availability.NewChecker(s.Vehicles(), s.Reservations(), s.Blocks(), nil)
	calc := pricing.NewCalculator(s.PriceRules(), s.AddOns(), coupon.NewValidator(s.Coupons()),
		pricing.NewFlatTaxPolicy(decimal.RequireFromString("0.16")), "default")
	repo := &racingRepo{Repository: s.Bookings()}
	svc := booking.NewService(repo, s.Reservations(), checker, calc, nil)

	req := createReq("2026-06-01", "2026-06-02")
	req.CouponCode = "ONCE"
	b, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, repo.raced)
	assert.False(t, b.Breakdown.CouponApplied)
	assert.Equal(t, coupon.ReasonUsageExhausted, b.Breakdown.CouponReason)
	assert.True(t, b.Breakdown.CouponDiscount.IsZero())
	assert.Empty(t, b.Reservation.CouponCode)
	// 2 days at 100 plus 16% tax, no discount.
	assert.True(t, b.Reservation.TotalAmount.Equal(decimal.RequireFromString("232")), b.Reservation.TotalAmount.String())
	assert.True(t, b.Breakdown.Verify())
	assert.Equal(t, 3, s.BlockCount(carID))
}

func TestCreate_ConcurrentRaceHasExactlyOneWinner(t *testing.T) {
	for round := 0; round < 20; round++ {
		s := fixture()
		svc := newService(s)

		const attempts = 2
		var wg sync.WaitGroup
		start := make(chan struct{})
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, errs[i] = svc.Create(context.Background(), createReq("2026-08-01", "2026-08-05"))
			}()
		}
		close(start)
		wg.Wait()

		succeeded, conflicted := 0, 0
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, booking.ErrDateConflict):
				conflicted++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		require.Equal(t, 1, succeeded, "round %d", round)
		require.Equal(t, 1, conflicted, "round %d", round)
		assert.Equal(t, 5, s.BlockCount(carID))
	}
}

func TestCancel(t *testing.T) {
	s := fixture()
	svc := newService(s)
	ctx := context.Background()

	b, err := svc.Create(ctx, createReq("2026-06-01", "2026-06-03"))
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, b.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, reservation.StatusCancelled, cancelled.Status)
	assert.Zero(t, s.BlockCount(carID))

	_, err = svc.Cancel(ctx, b.Reservation.ID)
	assert.ErrorIs(t, err, booking.ErrNotCancellable)

	_, err = svc.Cancel(ctx, "missing")
	assert.ErrorIs(t, err, reservation.ErrNotFound)

	// The released days can be booked again.
	_, err = svc.Create(ctx, createReq("2026-06-02", "2026-06-02"))
	assert.NoError(t, err)
}

func TestCancelKeepsManualBlocks(t *testing.T) {
	s := fixture()
	svc := newService(s)
	require.NoError(t, s.AddBlock(carID, day("2026-06-10"), "maintenance"))

	b, err := svc.Create(context.Background(), createReq("2026-06-01", "2026-06-03"))
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), b.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.BlockCount(carID))
}
