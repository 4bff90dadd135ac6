// Package csv parses delimited offer feeds.
package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kosarica/deal-planner/internal/parsers"
	"github.com/kosarica/deal-planner/internal/parsers/charset"
)

// Options configures a Parser. Zero values mean detect or default.
type Options struct {
	Delimiter Delimiter
	Encoding  charset.Encoding
	Mapping   parsers.ColumnMapping
}

// Parser reads a CSV feed with a header row.
type Parser struct {
	opts   Options
	logger zerolog.Logger
}

// NewParser returns a parser. A nil logger disables logging.
func NewParser(opts Options, logger *zerolog.Logger) *Parser {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "csv_parser").Logger()
	}
	return &Parser{opts: opts, logger: l}
}

// Parse decodes content and maps every data row. Rows that fail mapping are
// reported in Result.Errors; only an unreadable file or header is an error.
func (p *Parser) Parse(content []byte) (*parsers.Result, error) {
	enc := charset.DetectEncoding(content, p.opts.Encoding)
	decoded, err := charset.Decode(content, enc)
	if err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	decoded = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(decoded)

	delim := p.opts.Delimiter
	if delim == 0 {
		delim = DetectDelimiter(decoded)
	}

	r := stdcsv.NewReader(strings.NewReader(decoded))
	r.Comma = rune(delim)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &parsers.Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := parsers.ResolveColumns(headers, p.opts.Mapping)
	if err != nil {
		return nil, err
	}

	result := &parsers.Result{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			row := 0
			var parseErr *stdcsv.ParseError
			if errors.As(err, &parseErr) {
				row = parseErr.StartLine
			}
			result.TotalRows++
			result.Errors = append(result.Errors, parsers.RowError{Row: row, Message: err.Error()})
			continue
		}
		if isEmptyRow(record) {
			continue
		}
		line, _ := r.FieldPos(0)
		result.TotalRows++
		item, rowErr := cols.Item(record, line)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		result.Items = append(result.Items, item)
	}

	p.logger.Debug().
		Str("encoding", string(enc)).
		Str("delimiter", string(rune(delim))).
		Int("rows", result.TotalRows).
		Int("valid", len(result.Items)).
		Msg("Parsed CSV feed")
	return result, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
