package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/car-rental-backend/internal/app"
	"github.com/nekogravitycat/car-rental-backend/internal/config"
	"github.com/nekogravitycat/car-rental-backend/internal/db"
	"github.com/nekogravitycat/car-rental-backend/internal/logger"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/dayrange"
	"github.com/nekogravitycat/car-rental-backend/internal/pkg/request"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
)

var (
	startFlag string
	endFlag   string
	timeout   time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "rentalctl",
	Short:        "Query vehicle availability and prices",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&startFlag, "start", "", "first rental day (YYYY-MM-DD)")
	rootCmd.PersistentFlags().StringVar(&endFlag, "end", "", "last rental day (YYYY-MM-DD)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall command timeout")
}

// openContainer builds the application against the configured database.
// The returned func releases the pool.
var openContainer = func(ctx context.Context) (*app.Container, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger.Initialize(cfg.LogLevel, "console")

	var tax pricing.TaxPolicy = pricing.NewFlatTaxPolicy(cfg.DefaultTaxRate)
	if cfg.TaxPolicyFile != "" {
		if tax, err = pricing.LoadTaxPolicyFile(cfg.TaxPolicyFile); err != nil {
			return nil, nil, err
		}
	}

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, nil, err
	}
	c, err := app.NewContainer(app.Config{
		Stores:           app.NewPgxStores(pool),
		JWTSecret:        cfg.JWTSecret,
		JWTTTL:           cfg.JWTAccessTokenTTL,
		TaxPolicy:        tax,
		TaxJurisdiction:  cfg.TaxJurisdiction,
		FleetScanWorkers: cfg.FleetScanWorkers,
		FleetScanTimeout: cfg.FleetScanTimeout,
	})
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return c, pool.Close, nil
}

// withContainer runs fn with a container and a context bounded by --timeout.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *app.Container) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c, closeFn, err := openContainer(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, c)
}

func parseDates() (time.Time, time.Time, error) {
	if startFlag == "" || endFlag == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("--start and --end are required")
	}
	start, err := dayrange.Parse(startFlag)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := dayrange.Parse(endFlag)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid --end: %w", err)
	}
	if err := request.CheckSpan(start, end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
