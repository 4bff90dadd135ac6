package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kosarica/deal-planner/internal/optimizer"
	"github.com/kosarica/deal-planner/internal/planner"
	"github.com/kosarica/deal-planner/internal/types"
)

var optimizeOutput string

// planFile is the YAML input of the optimize command.
type planFile struct {
	Location    types.Location          `yaml:"location"`
	RadiusKm    float64                 `yaml:"radius_km"`
	Window      planWindow              `yaml:"window"`
	Preferences optimizer.Preferences   `yaml:"preferences"`
	Meals       []types.MealRequirement `yaml:"meals"`
}

type planWindow struct {
	Start time.Time `yaml:"start"`
	End   time.Time `yaml:"end"`
}

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize <plan.yaml>",
	Short: "Build a shopping plan for a week of meals",
	Long: `Read a meal plan from YAML and print the recommended discounted purchases,
the stores to visit, and the money and time saved. An omitted window end means
the shopping window is the start day only.`,
	Example: `  deal-planner optimize ./meals.yaml
  deal-planner optimize ./meals.yaml --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
	optimizeCmd.Flags().StringVar(&optimizeOutput, "output", "table", "Output format: table or json")
}

func readPlan(path string) (planner.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return planner.Request{}, fmt.Errorf("failed to read plan: %w", err)
	}
	var plan planFile
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return planner.Request{}, fmt.Errorf("failed to parse plan: %w", err)
	}
	if plan.Window.End.IsZero() {
		plan.Window.End = plan.Window.Start
	}
	return planner.Request{
		Location:    plan.Location,
		RadiusKm:    plan.RadiusKm,
		Meals:       plan.Meals,
		Preferences: plan.Preferences,
		Window:      types.ShoppingWindow{Start: types.Day(plan.Window.Start), End: types.Day(plan.Window.End)},
	}, nil
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req, err := readPlan(args[0])
	if err != nil {
		return err
	}

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.Planner.OptimizeRequest(ctx, req)
	if err != nil {
		return err
	}

	switch strings.ToLower(optimizeOutput) {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rec)
	case "table":
		printRecommendation(rec)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", optimizeOutput)
	}
}

func printRecommendation(rec *planner.ShoppingRecommendation) {
	fmt.Println(rec.Explanation)

	if len(rec.Purchases) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "Day\tStore\tProduct\tMeal\tPrice\tSaved\n")
		fmt.Fprintf(w, "---\t-----\t-------\t----\t-----\t-----\n")
		for _, p := range rec.Purchases {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				p.PurchaseDay.Format("Mon 02 Jan"), p.StoreName, p.ProductName, p.MealAssociation,
				types.FormatCents(p.Price), types.FormatCents(p.Savings))
		}
		w.Flush()

		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "Store\tAddress\tDistance\tItems\tSubtotal\n")
		fmt.Fprintf(w, "-----\t-------\t--------\t-----\t--------\n")
		for _, s := range rec.Stores {
			fmt.Fprintf(w, "%s\t%s\t%.1f km\t%d\t%s\n", s.Name, s.Address, s.DistanceKm, s.ItemCount, types.FormatCents(s.Subtotal))
		}
		w.Flush()
	}

	if len(rec.Notes) > 0 {
		fmt.Println()
		for _, note := range rec.Notes {
			fmt.Println("- " + note)
		}
	}
}
