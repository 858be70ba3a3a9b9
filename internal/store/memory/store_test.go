package memory

import (
	"context"
	"testing"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/booking"
	"github.com/nekogravitycat/car-rental-backend/internal/coupon"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(start, end string) []time.Time {
	s, _ := dayrange.Parse(start)
	e, _ := dayrange.Parse(end)
	return dayrange.New(s, e).List()
}

func commitFor(id, vehicleID, start, end string) *booking.Commit {
	d := days(start, end)
	return &booking.Commit{
		Reservation: &reservation.Reservation{
			ID: id, VehicleID: vehicleID, StartDate: d[0], EndDate: d[len(d)-1], Status: reservation.StatusPending,
		},
		Days: d,
	}
}

func TestCommitIsAllOrNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.AddBlock("v1", days("2026-05-03", "2026-05-03")[0], "manual"))

	err := s.Bookings().Commit(ctx, commitFor("r1", "v1", "2026-05-01", "2026-05-04"))
	assert.ErrorIs(t, err, booking.ErrDateConflict)
	assert.Equal(t, 1, s.BlockCount("v1"))
	_, err = s.Reservations().GetByID(ctx, "r1")
	assert.ErrorIs(t, err, reservation.ErrNotFound)

	require.NoError(t, s.Bookings().Commit(ctx, commitFor("r2", "v1", "2026-05-04", "2026-05-06")))
	assert.Equal(t, 4, s.BlockCount("v1"))
	require.NoError(t, s.Bookings().Commit(ctx, commitFor("r3", "v2", "2026-05-01", "2026-05-06")))
	assert.Equal(t, 6, s.BlockCount("v2"))
}

func TestCommitConsumesCoupon(t *testing.T) {
	s := New()
	ctx := context.Background()
	limit := 1
	s.AddCoupon(&coupon.Coupon{Code: "spring", UsageLimit: &limit, Active: true})

	c := commitFor("r1", "v1", "2026-05-01", "2026-05-01")
	c.CouponCode = "SPRING"
	require.NoError(t, s.Bookings().Commit(ctx, c))

	got, err := s.Coupons().GetByCode(ctx, "spring")
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)

	c = commitFor("r2", "v1", "2026-05-02", "2026-05-02")
	c.CouponCode = "SPRING"
	assert.ErrorIs(t, s.Bookings().Commit(ctx, c), coupon.ErrUsageLimitReached)
	assert.Equal(t, 1, s.BlockCount("v1"))
}

func TestListReturnsCopiesInNameOrder(t *testing.T) {
	s := New()
	s.AddVehicle(&vehicle.Vehicle{ID: "2", Name: "Beta", Status: vehicle.StatusActive})
	s.AddVehicle(&vehicle.Vehicle{ID: "1", Name: "Beta", Status: vehicle.StatusActive})
	s.AddVehicle(&vehicle.Vehicle{ID: "3", Name: "Alpha", Status: vehicle.StatusRetired})

	all, err := s.Vehicles().List(context.Background(), vehicle.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"3", "1", "2"}, []string{all[0].ID, all[1].ID, all[2].ID})

	all[0].Name = "mutated"
	again, err := s.Vehicles().GetByID(context.Background(), "3")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", again.Name)
}

func TestBlocksListInRange(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, d := range days("2026-05-01", "2026-05-05") {
		require.NoError(t, s.AddBlock("v1", d, "manual"))
	}
	require.NoError(t, s.AddBlock("v2", days("2026-05-03", "2026-05-03")[0], "manual"))

	got, err := s.Blocks().ListInRange(ctx, "v1", dayrange.New(days("2026-05-02", "2026-05-02")[0], days("2026-05-04", "2026-05-04")[0]))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2026-05-02", dayrange.Format(got[0].Day))
	assert.Equal(t, "2026-05-04", dayrange.Format(got[2].Day))

	wide := dayrange.New(days("0001-01-01", "0001-01-01")[0], days("9999-12-31", "9999-12-31")[0])
	got, err = s.Blocks().ListInRange(ctx, "v1", wide)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}
