package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/deal-planner/internal/discounts/filesource"
	"github.com/kosarica/deal-planner/internal/parsers"
	"github.com/kosarica/deal-planner/internal/types"
)

var (
	parseOutput   string
	parseEncoding string
	parseSheet    string
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a local offer feed without importing it",
	Long: `Parse a CSV or XLSX offer feed with the configured column mapping and show
row counts, row errors and a sample of the parsed offers.

Supported encodings: detect (default), utf-8, windows-1250, windows-1252,
iso-8859-1, iso-8859-2`,
	Example: `  deal-planner parse ./feeds/netto.csv
  deal-planner parse ./feeds/rema.csv --encoding windows-1252
  deal-planner parse ./feeds/foetex.xlsx --sheet Tilbud --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVar(&parseOutput, "output", "table", "Output format: table or json")
	parseCmd.Flags().StringVar(&parseEncoding, "encoding", "", "CSV encoding (default: detect)")
	parseCmd.Flags().StringVar(&parseSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
}

func runParse(cmd *cobra.Command, args []string) error {
	filePath := args[0]

	src, err := filesource.New(filesource.Config{
		Path:     filePath,
		Encoding: parseEncoding,
		Sheet:    parseSheet,
		Mapping:  cfg.Source.File.Mapping,
	}, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("file", filePath).Msg("Parsing file")
	result, err := src.ParseFile(filePath)
	if err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}

	switch strings.ToLower(parseOutput) {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "table":
		outputParseTable(filePath, result)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", parseOutput)
	}
}

func outputParseTable(path string, result *parsers.Result) {
	fmt.Printf("\nParse Results for %s\n", path)
	fmt.Println(strings.Repeat("-", 60))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintf(w, "Metric\tValue\n")
	fmt.Fprintf(w, "------\t-----\n")
	fmt.Fprintf(w, "Total Rows\t%d\n", result.TotalRows)
	fmt.Fprintf(w, "Valid Rows\t%d\n", len(result.Items))
	fmt.Fprintf(w, "Invalid Rows\t%d\n", len(result.Errors))
	w.Flush()

	if len(result.Errors) > 0 {
		fmt.Printf("\nFirst %d Errors:\n", min(len(result.Errors), 10))
		fmt.Println(strings.Repeat("-", 60))
		for i, rowErr := range result.Errors {
			if i >= 10 {
				fmt.Printf("... and %d more errors\n", len(result.Errors)-10)
				break
			}
			fmt.Println(rowErr.Error())
		}
	}

	if len(result.Items) > 0 {
		fmt.Printf("\nSample Rows (first %d):\n", min(len(result.Items), 5))
		fmt.Println(strings.Repeat("-", 60))
		for i, item := range result.Items[:min(len(result.Items), 5)] {
			fmt.Printf("%d. %s - %s (%s, was %s, until %s)\n", i+1, item.StoreName, item.ProductName,
				types.FormatCents(item.DiscountPrice), types.FormatCents(item.OriginalPrice),
				item.ExpirationDate.Format("2006-01-02"))
		}
	}
}
