package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/car-rental-backend/internal/app"
	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/request"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/nekogravitycat/car-rental-backend/internal/store/memory"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
)

const carID = "00000000-0000-4000-8000-0000000000c1"

func useMemoryStore(t *testing.T) {
	s := memory.New()
	s.AddVehicle(&vehicle.Vehicle{ID: carID, Name: "Corolla", Status: vehicle.StatusActive, Category: "compact", Seats: 5})
	s.AddReservation(&reservation.Reservation{
		ID:         "r1",
		VehicleID:  carID,
		CustomerID: "cust",
		StartDate:  time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		Status:     reservation.StatusConfirmed,
	})
	s.AddPriceRule(&pricing.PriceRule{
		ID:                "rule",
		VehicleID:         carID,
		BasePricePerDay:   decimal.RequireFromString("50"),
		WeekendMultiplier: decimal.NewFromInt(1),
		MinimumDays:       1,
		ValidFrom:         time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Active:            true,
	})

	prev := openContainer
	openContainer = func(ctx context.Context) (*app.Container, func(), error) {
		c, err := app.NewContainer(app.Config{
			Stores: app.Stores{
				Vehicles:     s.Vehicles(),
				Reservations: s.Reservations(),
				Blocks:       s.Blocks(),
				PriceRules:   s.PriceRules(),
				AddOns:       s.AddOns(),
				Coupons:      s.Coupons(),
				Bookings:     s.Bookings(),
			},
			JWTSecret:       "secret",
			JWTTTL:          time.Minute,
			TaxPolicy:       pricing.NewFlatTaxPolicy(decimal.RequireFromString("0.10")),
			TaxJurisdiction: "default",
		})
		return c, func() {}, err
	}
	t.Cleanup(func() { openContainer = prev })
}

func run(t *testing.T, args ...string) (map[string]any, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	var v map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	return v, nil
}

func TestCheckCommand(t *testing.T) {
	useMemoryStore(t)

	v, err := run(t, "check", carID, "--start", "2026-09-01", "--end", "2026-09-02")
	require.NoError(t, err)
	assert.Equal(t, false, v["available"])
	assert.Equal(t, "RESERVATION_CONFLICT", v["reason_code"])

	v, err = run(t, "check", carID, "--start", "2026-09-04", "--end", "2026-09-06")
	require.NoError(t, err)
	assert.Equal(t, true, v["available"])
}

func TestCalendarCommand(t *testing.T) {
	useMemoryStore(t)

	v, err := run(t, "calendar", carID, "--start", "2026-09-01", "--end", "2026-09-04")
	require.NoError(t, err)

	days, ok := v["days"].([]any)
	require.True(t, ok)
	require.Len(t, days, 4)
	got := make([]bool, len(days))
	for i, d := range days {
		got[i] = d.(map[string]any)["available"].(bool)
	}
	assert.Equal(t, []bool{true, false, false, true}, got)
}

func TestQuoteCommand(t *testing.T) {
	useMemoryStore(t)

	v, err := run(t, "quote", carID, "--start", "2026-09-07", "--end", "2026-09-09")
	require.NoError(t, err)
	assert.Equal(t, "150.00", v["subtotal"])
	assert.Equal(t, "15.00", v["taxes"])
	assert.Equal(t, "165.00", v["total"])
}

func TestCommandsRejectBadDates(t *testing.T) {
	useMemoryStore(t)

	_, err := run(t, "check", carID, "--start", "09/01/2026", "--end", "2026-09-02")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --start")

	_, err = run(t, "quote", carID, "--start", "0001-01-01", "--end", "9999-12-31")
	assert.ErrorIs(t, err, request.ErrRangeTooLong)
}

func runList(t *testing.T, args ...string) ([]map[string]any, error) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	var v []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &v))
	return v, nil
}

func TestAvailableCommandPriceBounds(t *testing.T) {
	useMemoryStore(t)

	tests := []struct {
		name     string
		minPrice string
		maxPrice string
		want     int
	}{
		{"no bounds", "", "", 1},
		{"inside bounds", "50", "50", 1},
		{"above max", "", "49.99", 0},
		{"below min", "60", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := runList(t, "available", "--start", "2026-09-10", "--end", "2026-09-11",
				"--min-price", tt.minPrice, "--max-price", tt.maxPrice)
			require.NoError(t, err)
			assert.Len(t, v, tt.want)
		})
	}

	_, err := runList(t, "available", "--start", "2026-09-10", "--end", "2026-09-11",
		"--min-price", "90", "--max-price", "10")
	assert.ErrorIs(t, err, availability.ErrInvalidPriceBounds)
}
