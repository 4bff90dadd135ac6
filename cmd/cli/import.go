package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kosarica/deal-planner/internal/discounts/filesource"
	"github.com/kosarica/deal-planner/internal/discounts/pgsource"
	"github.com/kosarica/deal-planner/internal/types"
)

var (
	importEncoding string
	importSheet    string
	importPrune    bool
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file-or-directory>",
	Short: "Import offer feeds into Postgres",
	Long: `Parse CSV and XLSX offer feeds and insert the valid rows into the Postgres
offers table configured under source.postgres. Duplicate offers are skipped.
Use --prune to delete offers that expired before today.`,
	Example: `  deal-planner import ./feeds/netto.csv
  deal-planner import ./feeds --encoding windows-1252 --prune`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importEncoding, "encoding", "", "CSV encoding: utf-8, windows-1250, windows-1252, iso-8859-1, iso-8859-2 (default: detect)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	importCmd.Flags().BoolVar(&importPrune, "prune", false, "Delete expired offers after importing")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Source.Postgres.URL == "" {
		return fmt.Errorf("source.postgres.url (or DATABASE_URL) is required for import")
	}

	feeds, err := filesource.New(filesource.Config{
		Path:     args[0],
		Encoding: importEncoding,
		Sheet:    importSheet,
		Mapping:  cfg.Source.File.Mapping,
	}, logger)
	if err != nil {
		return err
	}
	parsed, err := feeds.Load(ctx)
	if err != nil {
		return err
	}

	pool, err := pgsource.Connect(ctx, cfg.Source.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := pgsource.New(pool, logger)
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	started := time.Now()
	inserted, err := store.Insert(ctx, parsed.Items)
	if err != nil {
		return err
	}
	logger.Info().
		Int("rows", parsed.TotalRows).
		Int("valid", len(parsed.Items)).
		Int("invalid", len(parsed.Errors)).
		Int64("inserted", inserted).
		Dur("duration", time.Since(started)).
		Msg("Import complete")

	if importPrune {
		deleted, err := store.DeleteExpired(ctx, types.Day(time.Now()))
		if err != nil {
			return err
		}
		logger.Info().Int64("deleted", deleted).Msg("Pruned expired offers")
	}
	return nil
}
