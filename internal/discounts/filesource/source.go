// Package filesource serves discount offers from CSV or XLSX feed files on
// disk, either a single file or every feed in a directory.
package filesource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kosarica/deal-planner/internal/parsers"
	"github.com/kosarica/deal-planner/internal/parsers/charset"
	"github.com/kosarica/deal-planner/internal/parsers/csv"
	"github.com/kosarica/deal-planner/internal/parsers/xlsx"
	"github.com/kosarica/deal-planner/internal/types"
)

// SourceName labels this source in errors and metrics.
const SourceName = "file"

// Config selects the feed path and how to read it.
type Config struct {
	Path     string                `mapstructure:"path"`
	Encoding string                `mapstructure:"encoding"`
	Sheet    string                `mapstructure:"sheet"`
	Mapping  parsers.ColumnMapping `mapstructure:"mapping"`
}

// Source reads feeds on every Fetch; the matcher cache absorbs the cost.
type Source struct {
	cfg    Config
	csv    *csv.Parser
	xlsx   *xlsx.Parser
	logger zerolog.Logger
}

// New validates cfg. The path must exist.
func New(cfg Config, logger *zerolog.Logger) (*Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("feed path is required")
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("feed path: %w", err)
	}
	enc, err := charset.Lookup(cfg.Encoding)
	if err != nil {
		return nil, err
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "file_source").Logger()
	}
	return &Source{
		cfg:    cfg,
		csv:    csv.NewParser(csv.Options{Encoding: enc, Mapping: cfg.Mapping}, logger),
		xlsx:   xlsx.NewParser(xlsx.Options{Sheet: cfg.Sheet, Mapping: cfg.Mapping}, logger),
		logger: l,
	}, nil
}

// Name implements discounts.Source.
func (s *Source) Name() string { return SourceName }

// Fetch implements discounts.Source. Row errors are logged and skipped; the
// matcher applies the radius.
func (s *Source) Fetch(ctx context.Context, _ types.Location, _ float64) ([]types.DiscountItem, error) {
	result, err := s.Load(ctx)
	if err != nil {
		return nil, &types.UpstreamError{Source: SourceName, Op: "fetch", Err: err}
	}
	return result.Items, nil
}

// HealthCheck implements discounts.Source.
func (s *Source) HealthCheck(context.Context) bool {
	_, err := os.Stat(s.cfg.Path)
	return err == nil
}

// Load parses every feed under the configured path and merges the results
// in file name order.
func (s *Source) Load(ctx context.Context) (*parsers.Result, error) {
	files, err := feedFiles(s.cfg.Path)
	if err != nil {
		return nil, err
	}

	merged := &parsers.Result{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		for _, rowErr := range result.Errors {
			s.logger.Warn().Str("file", filepath.Base(path)).Int("row", rowErr.Row).
				Str("field", rowErr.Field).Str("value", rowErr.Value).Msg(rowErr.Message)
		}
		merged.TotalRows += result.TotalRows
		merged.Items = append(merged.Items, result.Items...)
		merged.Errors = append(merged.Errors, result.Errors...)
	}

	s.logger.Debug().Int("files", len(files)).Int("items", len(merged.Items)).
		Int("rejected", len(merged.Errors)).Msg("Loaded offer feeds")
	return merged, nil
}

// ParseFile parses one feed, choosing the parser by extension.
func (s *Source) ParseFile(path string) (*parsers.Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return s.xlsx.Parse(content)
	case ".csv", ".tsv", ".txt":
		return s.csv.Parse(content)
	default:
		return nil, fmt.Errorf("unsupported feed format %q", filepath.Ext(path))
	}
}

func feedFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".tsv", ".txt", ".xlsx":
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
