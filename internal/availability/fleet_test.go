package availability_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	"github.com/nekogravitycat/car-rental-backend/internal/coupon"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/nekogravitycat/car-rental-backend/internal/store/memory"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const carD = "00000000-0000-4000-8000-00000000000d"

func seedRule(s *memory.Store, vehicleID, price string) {
	s.AddPriceRule(&pricing.PriceRule{
		ID:                vehicleID + "-rule",
		VehicleID:         vehicleID,
		BasePricePerDay:   decimal.RequireFromString(price),
		WeekendMultiplier: decimal.NewFromInt(1),
		MinimumDays:       1,
		ValidFrom:         day("2026-01-01"),
		Active:            true,
	})
}

func newFleet(s *memory.Store, vehicles vehicle.Repository, opts ...availability.FleetOption) *availability.FleetFilter {
	checker := availability.NewChecker(vehicles, s.Reservations(), s.Blocks(), nil)
	calc := pricing.NewCalculator(s.PriceRules(), s.AddOns(), coupon.NewValidator(s.Coupons()),
		pricing.NewFlatTaxPolicy(decimal.Zero), "default")
	return availability.NewFleetFilter(vehicles, checker, calc, opts...)
}

func ids(vs []*vehicle.Vehicle) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.ID
	}
	return out
}

func fleetFixture() *memory.Store {
	s := memory.New()
	// Inserted out of name order on purpose.
	s.AddVehicle(&vehicle.Vehicle{ID: carC, Name: "Golf", Status: vehicle.StatusActive, Category: "compact", Seats: 5})
	s.AddVehicle(&vehicle.Vehicle{ID: carA, Name: "Corolla", Status: vehicle.StatusActive, Category: "compact", Seats: 5})
	s.AddVehicle(&vehicle.Vehicle{ID: carD, Name: "Sienna", Status: vehicle.StatusActive, Category: "van", Seats: 8})
	s.AddVehicle(&vehicle.Vehicle{ID: carB, Name: "Civic", Status: vehicle.StatusMaintenance, Category: "compact", Seats: 5})
	seedRule(s, carA, "45")
	seedRule(s, carC, "60")
	seedRule(s, carD, "110")
	return s
}

func TestListAvailable_OrderAndStaticFilters(t *testing.T) {
	s := fleetFixture()
	fleet := newFleet(s, s.Vehicles())
	ctx := context.Background()

	got, err := fleet.ListAvailable(ctx, day("2026-09-01"), day("2026-09-05"), availability.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{carA, carC, carD}, ids(got), "ordered by name, inactive excluded")

	got, err = fleet.ListAvailable(ctx, day("2026-09-01"), day("2026-09-05"), availability.Filters{Category: "compact"})
	require.NoError(t, err)
	assert.Equal(t, []string{carA, carC}, ids(got))

	got, err = fleet.ListAvailable(ctx, day("2026-09-01"), day("2026-09-05"), availability.Filters{MinSeats: 7})
	require.NoError(t, err)
	assert.Equal(t, []string{carD}, ids(got))
}

func TestListAvailable_ExcludesOccupiedVehicles(t *testing.T) {
	s := fleetFixture()
	seedReservation(s, "r1", carA, "2026-09-03", "2026-09-04", reservation.StatusConfirmed)
	require.NoError(t, s.AddBlock(carD, day("2026-09-05"), "service"))

	got, err := newFleet(s, s.Vehicles(), availability.WithWorkers(1)).
		ListAvailable(context.Background(), day("2026-09-01"), day("2026-09-05"), availability.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{carC}, ids(got))
}

func TestListAvailable_PriceFilter(t *testing.T) {
	s := fleetFixture()
	s.AddVehicle(&vehicle.Vehicle{ID: "unpriced", Name: "Aygo", Status: vehicle.StatusActive, Category: "compact", Seats: 4})
	fleet := newFleet(s, s.Vehicles())
	ctx := context.Background()

	got, err := fleet.ListAvailable(ctx, day("2026-09-01"), day("2026-09-05"), availability.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"unpriced", carA, carC, carD}, ids(got), "no price filter keeps unpriced vehicles")

	got, err = fleet.ListAvailable(ctx, day("2026-09-01"), day("2026-09-05"), availability.Filters{
		MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(50)),
		MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(110)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{carC, carD}, ids(got), "bounds are inclusive and unpriced vehicles drop out")

	got, err = fleet.ListAvailable(ctx, day("2026-09-01"), day("2026-09-05"), availability.Filters{
		MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(45)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{carA}, ids(got))
}

func TestListAvailable_InvalidRange(t *testing.T) {
	s := fleetFixture()
	_, err := newFleet(s, s.Vehicles()).
		ListAvailable(context.Background(), day("2026-09-05"), day("2026-09-01"), availability.Filters{})
	assert.ErrorIs(t, err, availability.ErrInvalidRange)
}

// flakyVehicles fails GetByID for selected ids and can stall until released.
type flakyVehicles struct {
	vehicle.Repository
	fail  map[string]error
	stall chan struct{}
	mu    sync.Mutex
	calls int
}

func (f *flakyVehicles) GetByID(ctx context.Context, id string) (*vehicle.Vehicle, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.stall != nil {
		select {
		case <-f.stall:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err, ok := f.fail[id]; ok {
		return nil, err
	}
	return f.Repository.GetByID(ctx, id)
}

func TestListAvailable_StoreFailureExcludesOnlyThatVehicle(t *testing.T) {
	s := fleetFixture()
	flaky := &flakyVehicles{
		Repository: s.Vehicles(),
		fail:       map[string]error{carC: errors.New("replica timeout")},
	}

	got, err := newFleet(s, flaky, availability.WithWorkers(2)).
		ListAvailable(context.Background(), day("2026-09-01"), day("2026-09-05"), availability.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{carA, carD}, ids(got))
}

func TestListAvailable_TimeoutAbortsScan(t *testing.T) {
	s := fleetFixture()
	flaky := &flakyVehicles{Repository: s.Vehicles(), stall: make(chan struct{})}
	defer close(flaky.stall)

	fleet := newFleet(s, flaky, availability.WithScanTimeout(50*time.Millisecond))
	got, err := fleet.ListAvailable(context.Background(), day("2026-09-01"), day("2026-09-05"), availability.Filters{})
	assert.Nil(t, got)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListAvailable_CancelledContext(t *testing.T) {
	s := fleetFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFleet(s, s.Vehicles()).ListAvailable(ctx, day("2026-09-01"), day("2026-09-05"), availability.Filters{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListAvailable_ConcurrentScanIsDeterministic(t *testing.T) {
	s := memory.New()
	var want []string
	for i := 0; i < 40; i++ {
		id := dayrange.Format(day("2026-01-01").AddDate(0, 0, i))
		s.AddVehicle(&vehicle.Vehicle{ID: id, Name: "Fleet " + id, Status: vehicle.StatusActive, Category: "compact", Seats: 5})
		if i%3 == 0 {
			seedReservation(s, "r-"+id, id, "2026-09-02", "2026-09-02", reservation.StatusPending)
			continue
		}
		want = append(want, id)
	}

	fleet := newFleet(s, s.Vehicles(), availability.WithWorkers(6))
	for i := 0; i < 10; i++ {
		got, err := fleet.ListAvailable(context.Background(), day("2026-09-01"), day("2026-09-03"), availability.Filters{})
		require.NoError(t, err)
		assert.Equal(t, want, ids(got))
	}
}
