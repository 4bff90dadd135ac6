package xlsx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

var header = []any{"Product", "Store", "Latitude", "Longitude", "Price", "Sale Price", "Expires", "Organic"}

func TestParseWorkbook(t *testing.T) {
	expires := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	content := buildWorkbook(t, "Sheet1", [][]any{
		header,
		{"Skyr", "Netto", 55.6761, 12.5683, 19.95, 14.95, expires, "yes"},
		{},
		{"Ost", "Føtex", 55.67, 12.56, 40, 45, "2026-10-21", ""},
		{"Æbler", "Irma", 55.68, 12.57, "20,00", "15,00", "21.10.2026", ""},
	})

	result, err := NewParser(Options{}, nil).Parse(content)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRows)
	require.Len(t, result.Items, 2)

	skyr := result.Items[0]
	assert.Equal(t, "Skyr", skyr.ProductName)
	assert.Equal(t, int64(1995), skyr.OriginalPrice)
	assert.Equal(t, int64(1495), skyr.DiscountPrice)
	assert.Equal(t, expires, skyr.ExpirationDate)
	assert.True(t, skyr.IsOrganic)

	assert.Equal(t, "Æbler", result.Items[1].ProductName)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Row)
}

func TestParseNamedSheet(t *testing.T) {
	content := buildWorkbook(t, "Tilbud", [][]any{
		header,
		{"Skyr", "Netto", 55.6761, 12.5683, 19.95, 14.95, "2026-10-20", ""},
	})

	result, err := NewParser(Options{Sheet: "tilbud"}, nil).Parse(content)
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)

	_, err = NewParser(Options{Sheet: "missing"}, nil).Parse(content)
	assert.Error(t, err)
}

func TestParseInvalidWorkbook(t *testing.T) {
	_, err := NewParser(Options{}, nil).Parse([]byte("not a zip file"))
	assert.Error(t, err)
}

func TestExcelDate(t *testing.T) {
	assert.Equal(t, "2026-10-20", excelDate("46315"))
	assert.Equal(t, "20.10.2026", excelDate("20.10.2026"))
}
