package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosarica/deal-planner/internal/parsers"
	"github.com/kosarica/deal-planner/internal/types"
)

var (
	discountsLat     float64
	discountsLon     float64
	discountsRadius  float64
	discountsStart   string
	discountsRefresh bool
	discountsOutput  string
)

// discountsCmd represents the discounts command
var discountsCmd = &cobra.Command{
	Use:   "discounts",
	Short: "List the discounted offers near a location",
	Long: `Query the configured discount source through the cache and list the offers
within the radius that are still valid on the start day, nearest first. Use
--refresh to drop the cached entry and fetch again.`,
	Example: `  deal-planner discounts --lat 55.6761 --lon 12.5683
  deal-planner discounts --lat 55.6761 --lon 12.5683 --radius 2 --start 2026-10-16 --refresh`,
	RunE: runDiscounts,
}

func init() {
	rootCmd.AddCommand(discountsCmd)

	discountsCmd.Flags().Float64Var(&discountsLat, "lat", 0, "Latitude (required)")
	discountsCmd.Flags().Float64Var(&discountsLon, "lon", 0, "Longitude (required)")
	discountsCmd.Flags().Float64Var(&discountsRadius, "radius", 0, "Search radius in km (defaults to discounts.default_radius_km)")
	discountsCmd.Flags().StringVar(&discountsStart, "start", "", "First shopping day (YYYY-MM-DD, defaults to today)")
	discountsCmd.Flags().BoolVar(&discountsRefresh, "refresh", false, "Invalidate the cached result first")
	discountsCmd.Flags().StringVar(&discountsOutput, "output", "table", "Output format: table or json")
	discountsCmd.MarkFlagRequired("lat")
	discountsCmd.MarkFlagRequired("lon")
}

func runDiscounts(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	loc, err := types.NewLocation(discountsLat, discountsLon)
	if err != nil {
		return err
	}
	start := types.Day(time.Now())
	if discountsStart != "" {
		day, ok := parsers.ParseDate(discountsStart)
		if !ok {
			return fmt.Errorf("invalid --start date %q", discountsStart)
		}
		start = day
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	radius := discountsRadius
	if radius == 0 {
		radius = a.Planner.DefaultRadiusKm()
	}
	if discountsRefresh {
		if err := a.Discounts.Invalidate(ctx, loc, radius); err != nil {
			return fmt.Errorf("failed to invalidate cache: %w", err)
		}
	}

	res, err := a.Discounts.Find(ctx, loc, radius, types.ShoppingWindow{Start: start, End: start})
	if err != nil {
		return err
	}

	switch strings.ToLower(discountsOutput) {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(res)
	case "table":
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", discountsOutput)
	}

	fmt.Printf("%d offers within %.1f km of %s (cache hit: %t, stale: %t)\n\n",
		len(res.Items), radius, loc, res.CacheHit, res.Stale)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Distance\tStore\tProduct\tPrice\tWas\tExpires\n")
	fmt.Fprintf(w, "--------\t-----\t-------\t-----\t---\t-------\n")
	for _, item := range res.Items {
		fmt.Fprintf(w, "%.1f km\t%s\t%s\t%s\t%s\t%s\n",
			item.TravelDistanceKm, item.StoreName, item.ProductName,
			types.FormatCents(item.DiscountPrice), types.FormatCents(item.OriginalPrice),
			item.ExpirationDate.Format("2006-01-02"))
	}
	return w.Flush()
}
