// Package xlsx parses Excel offer feeds.
package xlsx

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/kosarica/deal-planner/internal/parsers"
)

// Options configures a Parser.
type Options struct {
	// Sheet selects a worksheet by name. Empty means the first sheet.
	Sheet   string
	Mapping parsers.ColumnMapping
}

// Parser reads the first row of a worksheet as headers and every following
// row as an offer.
type Parser struct {
	opts   Options
	logger zerolog.Logger
}

// NewParser returns a parser. A nil logger disables logging.
func NewParser(opts Options, logger *zerolog.Logger) *Parser {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "xlsx_parser").Logger()
	}
	return &Parser{opts: opts, logger: l}
}

// Parse reads a workbook from memory.
func (p *Parser) Parse(content []byte) (*parsers.Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet, err := p.selectSheet(f)
	if err != nil {
		return nil, err
	}

	// Raw values keep dates as serial numbers instead of locale formatted text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return &parsers.Result{}, nil
	}

	cols, err := parsers.ResolveColumns(rows[0], p.opts.Mapping)
	if err != nil {
		return nil, err
	}
	expiresCol := cols[parsers.FieldExpiresOn]

	result := &parsers.Result{}
	for i, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		rowNumber := i + 2
		result.TotalRows++

		if expiresCol < len(row) {
			row[expiresCol] = excelDate(row[expiresCol])
		}
		item, rowErr := cols.Item(row, rowNumber)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		result.Items = append(result.Items, item)
	}

	p.logger.Debug().
		Str("sheet", sheet).
		Int("rows", result.TotalRows).
		Int("valid", len(result.Items)).
		Msg("Parsed XLSX feed")
	return result, nil
}

func (p *Parser) selectSheet(f *excelize.File) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if p.opts.Sheet == "" {
		return sheets[0], nil
	}
	for _, name := range sheets {
		if strings.EqualFold(name, p.opts.Sheet) {
			return name, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found, available: %s", p.opts.Sheet, strings.Join(sheets, ", "))
}

// excelDate converts a serial date cell to ISO text. Text cells pass through.
func excelDate(value string) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return value
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return value
	}
	return t.Format("2006-01-02")
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
