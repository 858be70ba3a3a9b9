package app

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nekogravitycat/car-rental-backend/internal/api"
	"github.com/nekogravitycat/car-rental-backend/internal/auth"
	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	"github.com/nekogravitycat/car-rental-backend/internal/booking"
	"github.com/nekogravitycat/car-rental-backend/internal/coupon"
	"github.com/nekogravitycat/car-rental-backend/internal/metrics"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
	"github.com/nekogravitycat/car-rental-backend/internal/reservation"
	"github.com/nekogravitycat/car-rental-backend/internal/vehicle"
)

// Stores groups the persistence ports the rental core reads and writes.
type Stores struct {
	Vehicles     vehicle.Repository
	Reservations reservation.Repository
	Blocks       availability.BlockRepository
	PriceRules   pricing.RuleRepository
	AddOns       pricing.AddOnRepository
	Coupons      coupon.Repository
	Bookings     booking.Repository
}

// NewPgxStores backs every store with the given pool.
func NewPgxStores(pool *pgxpool.Pool) Stores {
	return Stores{
		Vehicles:     vehicle.NewPgxRepository(pool),
		Reservations: reservation.NewPgxRepository(pool),
		Blocks:       availability.NewPgxBlockRepository(pool),
		PriceRules:   pricing.NewPgxRuleRepository(pool),
		AddOns:       pricing.NewPgxAddOnRepository(pool),
		Coupons:      coupon.NewPgxRepository(pool),
		Bookings:     booking.NewPgxRepository(pool),
	}
}

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Stores       Stores
	JWTSecret    string
	JWTTTL       time.Duration

	TaxPolicy       pricing.TaxPolicy
	TaxJurisdiction string

	FleetScanWorkers int
	FleetScanTimeout time.Duration

	// Registry receives the rental metrics. Nil disables metrics and /metrics.
	Registry *prometheus.Registry
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager

	Checker    *availability.Checker
	Calendar   *availability.CalendarBuilder
	Fleet      *availability.FleetFilter
	Calculator *pricing.Calculator
	Bookings   booking.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	var rec *metrics.Recorder
	if cfg.Registry != nil {
		var err error
		rec, err = metrics.NewRecorder(cfg.Registry)
		if err != nil {
			return nil, fmt.Errorf("init metrics: %w", err)
		}
	}

	tax := cfg.TaxPolicy
	if tax == nil {
		return nil, fmt.Errorf("tax policy is required")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	s := cfg.Stores

	// Pricing Module
	coupons := coupon.NewValidator(s.Coupons)
	calculator := pricing.NewCalculator(s.PriceRules, s.AddOns, coupons, tax, cfg.TaxJurisdiction).WithMetrics(rec)

	// Availability Module
	checker := availability.NewChecker(s.Vehicles, s.Reservations, s.Blocks, rec)
	calendar := availability.NewCalendarBuilder(s.Vehicles, s.Reservations, s.Blocks)
	fleetOpts := []availability.FleetOption{availability.WithMetrics(rec)}
	if cfg.FleetScanWorkers > 0 {
		fleetOpts = append(fleetOpts, availability.WithWorkers(cfg.FleetScanWorkers))
	}
	if cfg.FleetScanTimeout > 0 {
		fleetOpts = append(fleetOpts, availability.WithScanTimeout(cfg.FleetScanTimeout))
	}
	fleet := availability.NewFleetFilter(s.Vehicles, checker, calculator, fleetOpts...)

	// Booking Module
	bookingService := booking.NewService(s.Bookings, s.Reservations, checker, calculator, rec)

	// API Router Config
	routerParams := api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		Checker:        checker,
		Calendar:       calendar,
		Fleet:          fleet,
		Calculator:     calculator,
		BookingService: bookingService,
		JWTManager:     jwtManager,
	}
	if cfg.Registry != nil {
		routerParams.MetricsHandler = promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
		Checker:    checker,
		Calendar:   calendar,
		Fleet:      fleet,
		Calculator: calculator,
		Bookings:   bookingService,
	}, nil
}
