package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nekogravitycat/car-rental-backend/internal/app"
	"github.com/nekogravitycat/car-rental-backend/internal/availability"
	availabilityHttp "github.com/nekogravitycat/car-rental-backend/internal/availability/http"
	"github.com/nekogravitycat/car-rental-backend/internal/pricing"
	pricingHttp "github.com/nekogravitycat/car-rental-backend/internal/pricing/http"
)

var (
	addOnIDs     []string
	couponCode   string
	jurisdiction string
	category     string
	minSeats     int
	minPrice     string
	maxPrice     string
)

var checkCmd = &cobra.Command{
	Use:   "check VEHICLE_ID",
	Short: "Check whether a vehicle can be booked for a range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseDates()
		if err != nil {
			return err
		}
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			res, err := c.Checker.Check(ctx, args[0], start, end)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), availabilityHttp.NewCheckResponse(res))
		})
	},
}

var calendarCmd = &cobra.Command{
	Use:   "calendar VEHICLE_ID",
	Short: "Print the per-day availability of a vehicle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseDates()
		if err != nil {
			return err
		}
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			cal, err := c.Calendar.Build(ctx, args[0], start, end)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), availabilityHttp.NewCalendarResponse(cal))
		})
	},
}

var quoteCmd = &cobra.Command{
	Use:   "quote VEHICLE_ID",
	Short: "Price a rental without booking it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseDates()
		if err != nil {
			return err
		}
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			bd, err := c.Calculator.Calculate(ctx, pricing.QuoteRequest{
				VehicleID:    args[0],
				Start:        start,
				End:          end,
				AddOnIDs:     addOnIDs,
				CouponCode:   couponCode,
				Jurisdiction: jurisdiction,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), pricingHttp.NewBreakdownResponse(bd))
		})
	},
}

var availableCmd = &cobra.Command{
	Use:   "available",
	Short: "List vehicles free for the whole range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseDates()
		if err != nil {
			return err
		}
		filters := availability.Filters{Category: category, MinSeats: minSeats}
		if err := filters.SetPriceBounds(minPrice, maxPrice); err != nil {
			return err
		}
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			vehicles, err := c.Fleet.ListAvailable(ctx, start, end, filters)
			if err != nil {
				return err
			}
			tags := make([]availabilityHttp.VehicleTag, len(vehicles))
			for i, v := range vehicles {
				tags[i] = availabilityHttp.NewVehicleTag(v)
			}
			return printJSON(cmd.OutOrStdout(), tags)
		})
	},
}

func init() {
	quoteCmd.Flags().StringSliceVar(&addOnIDs, "add-on", nil, "add-on id (repeatable)")
	quoteCmd.Flags().StringVar(&couponCode, "coupon", "", "coupon code")
	quoteCmd.Flags().StringVar(&jurisdiction, "jurisdiction", "", "tax jurisdiction")

	availableCmd.Flags().StringVar(&category, "category", "", "vehicle category")
	availableCmd.Flags().IntVar(&minSeats, "min-seats", 0, "minimum seats")
	availableCmd.Flags().StringVar(&minPrice, "min-price", "", "minimum base price per day")
	availableCmd.Flags().StringVar(&maxPrice, "max-price", "", "maximum base price per day")

	rootCmd.AddCommand(checkCmd, calendarCmd, quoteCmd, availableCmd)
}
