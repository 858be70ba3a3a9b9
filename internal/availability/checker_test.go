package availability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/nekogravitycat/car-rental-backend/internal/store/memory"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	carA = "00000000-0000-4000-8000-00000000000a"
	carB = "00000000-0000-4000-8000-00000000000b"
	carC = "00000000-0000-4000-8000-00000000000c"
)

func day(s string) time.Time {
	t, err := dayrange.Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedVehicle(s *memory.Store, id, name string, status vehicle.Status) {
	s.AddVehicle(&vehicle.Vehicle{ID: id, Name: name, Status: status, Category: "compact", Seats: 5})
}

func seedReservation(s *memory.Store, id, vehicleID, start, end string, status reservation.Status) {
	s.AddReservation(&reservation.Reservation{
		ID: id, VehicleID: vehicleID, CustomerID: "cust", StartDate: day(start), EndDate: day(end), Status: status,
	})
}

func newChecker(s *memory.Store) *availability.Checker {
	return availability.NewChecker(s.Vehicles(), s.Reservations(), s.Blocks(), nil)
}

func TestCheck_FailsClosed(t *testing.T) {
	s := memory.New()
	seedVehicle(s, carA, "Corolla", vehicle.StatusActive)
	seedVehicle(s, carB, "Civic", vehicle.StatusMaintenance)
	seedVehicle(s, carC, "Golf", vehicle.StatusRetired)
	checker := newChecker(s)
	ctx := context.Background()

	t.Run("inverted range for every vehicle", func(t *testing.T) {
		for _, id := range []string{carA, carB, carC, "missing"} {
			res, err := checker.Check(ctx, id, day("2026-06-10"), day("2026-06-09"))
			require.NoError(t, err)
			assert.False(t, res.Available)
			assert.Equal(t, availability.ReasonInvalidRange, res.ReasonCode)
			assert.NotEmpty(t, res.Reason)
		}
	})

	t.Run("unknown vehicle", func(t *testing.T) {
		res, err := checker.Check(ctx, "missing", day("2026-06-10"), day("2026-06-12"))
		require.NoError(t, err)
		assert.False(t, res.Available)
		assert.Equal(t, availability.ReasonVehicleNotFound, res.ReasonCode)
	})

	t.Run("non active vehicles for any range", func(t *testing.T) {
		for _, id := range []string{carB, carC} {
			for _, rng := range [][2]string{{"2026-01-01", "2026-01-01"}, {"2027-03-01", "2027-04-30"}} {
				res, err := checker.Check(ctx, id, day(rng[0]), day(rng[1]))
				require.NoError(t, err)
				assert.False(t, res.Available)
				assert.Equal(t, availability.ReasonVehicleInactive, res.ReasonCode)
			}
		}
	})
}

func TestCheck_ReservationConflicts(t *testing.T) {
	s := memory.New()
	seedVehicle(s, carA, "Corolla", vehicle.StatusActive)
	seedReservation(s, "r-live", carA, "2026-06-10", "2026-06-14", reservation.StatusConfirmed)
	seedReservation(s, "r-cancelled", carA, "2026-06-20", "2026-06-25", reservation.StatusCancelled)
	seedReservation(s, "r-done", carA, "2026-06-01", "2026-06-03", reservation.StatusCompleted)
	checker := newChecker(s)

	tests := []struct {
		name      string
		start     string
		end       string
		available bool
	}{
		{"ends on first reserved day", "2026-06-08", "2026-06-10", false},
		{"starts on last reserved day", "2026-06-14", "2026-06-16", false},
		{"contained", "2026-06-11", "2026-06-12", false},
		{"contains", "2026-06-05", "2026-06-30", false},
		{"day before", "2026-06-09", "2026-06-09", true},
		{"day after", "2026-06-15", "2026-06-18", true},
		{"cancelled reservation ignored", "2026-06-20", "2026-06-25", true},
		{"completed reservation ignored", "2026-06-01", "2026-06-03", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := checker.Check(context.Background(), carA, day(tt.start), day(tt.end))
			require.NoError(t, err)
			assert.Equal(t, tt.available, res.Available, res.Reason)
			if !tt.available {
				assert.Equal(t, availability.ReasonReservationConflict, res.ReasonCode)
				require.Len(t, res.Conflicts, 1)
				assert.Equal(t, "r-live", res.Conflicts[0].ReservationID)
				assert.Contains(t, res.Reason, "2026-06-10")
			}
		})
	}
}

func TestCheck_IgnoresTimeOfDay(t *testing.T) {
	s := memory.New()
	seedVehicle(s, carA, "Corolla", vehicle.StatusActive)
	seedReservation(s, "r-live", carA, "2026-06-10", "2026-06-10", reservation.StatusPending)

	evening := time.Date(2026, 6, 10, 21, 45, 0, 0, time.UTC)
	res, err := newChecker(s).Check(context.Background(), carA, evening, evening.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, res.Available)
}

func TestCheck_Blocks(t *testing.T) {
	s := memory.New()
	seedVehicle(s, carA, "Corolla", vehicle.StatusActive)
	require.NoError(t, s.AddBlock(carA, day("2026-07-03"), "maintenance"))
	require.NoError(t, s.AddBlock(carA, day("2026-07-05"), "maintenance"))
	checker := newChecker(s)

	res, err := checker.Check(context.Background(), carA, day("2026-07-01"), day("2026-07-10"))
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, availability.ReasonBlocked, res.ReasonCode)
	assert.Equal(t, []time.Time{day("2026-07-03"), day("2026-07-05")}, res.BlockedDates)
	assert.Contains(t, res.Reason, "2026-07-03, 2026-07-05")

	res, err = checker.Check(context.Background(), carA, day("2026-07-06"), day("2026-07-10"))
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, availability.ReasonAvailable, res.ReasonCode)
}

func TestCheck_ReservationConflictTakesPrecedenceOverBlock(t *testing.T) {
	s := memory.New()
	seedVehicle(s, carA, "Corolla", vehicle.StatusActive)
	seedReservation(s, "r-live", carA, "2026-07-01", "2026-07-02", reservation.StatusInProgress)
	require.NoError(t, s.AddBlock(carA, day("2026-07-04"), "cleaning"))

	res, err := newChecker(s).Check(context.Background(), carA, day("2026-07-01"), day("2026-07-04"))
	require.NoError(t, err)
	assert.Equal(t, availability.ReasonReservationConflict, res.ReasonCode)
	assert.Len(t, res.Conflicts, 1)
	assert.Equal(t, []time.Time{day("2026-07-04")}, res.BlockedDates)
}

type failingVehicles struct {
	vehicle.Repository
	err error
}

func (f failingVehicles) GetByID(context.Context, string) (*vehicle.Vehicle, error) {
	return nil, f.err
}

func TestCheck_StoreFailureIsReturned(t *testing.T) {
	s := memory.New()
	boom := errors.New("connection refused")
	checker := availability.NewChecker(failingVehicles{err: boom}, s.Reservations(), s.Blocks(), nil)

	res, err := checker.Check(context.Background(), carA, day("2026-07-01"), day("2026-07-02"))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)
}
