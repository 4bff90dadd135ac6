package csv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/deal-planner/internal/parsers/charset"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Delimiter
	}{
		{"comma", "a,b,c\n1,2,3\n", DelimiterComma},
		{"semicolon with decimal commas", "a;b;c\n1,5;2,5;3\n4,5;5;6\n", DelimiterSemicolon},
		{"tab", "a\tb\tc\n1\t2\t3\n", DelimiterTab},
		{"empty", "", DelimiterComma},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDelimiter(tt.content))
		})
	}
}

func TestParseSemicolonFeed(t *testing.T) {
	feed := "Produkt;Butik;Adresse;Lat;Lon;Normalpris;Tilbudspris;Udløb;Økologisk\r\n" +
		"Letmælk;Netto;\"Nørrebrogade 1; st.\";55,6761;12,5683;12,95;9,95;20.10.2026;ja\r\n" +
		"\r\n" +
		"Rugbrød;Føtex;;55,6700;12,5600;25,00;25,00;20.10.2026;\r\n" +
		"Ost;Irma;;55,6800;12,5700;40,00;30,00;2026-10-21;nej\r\n"

	result, err := NewParser(Options{}, nil).Parse([]byte(feed))
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalRows, "blank lines are not rows")
	require.Len(t, result.Items, 2)
	assert.Equal(t, "Letmælk", result.Items[0].ProductName)
	assert.Equal(t, "Nørrebrogade 1; st.", result.Items[0].StoreAddress)
	assert.True(t, result.Items[0].IsOrganic)
	assert.Equal(t, int64(3000), result.Items[1].DiscountPrice)
	assert.False(t, result.Items[1].IsOrganic)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Row)
	assert.Equal(t, "discountPrice", result.Errors[0].Field)
}

func TestParseLegacyEncoding(t *testing.T) {
	// "Æbler" and "Løvbjerg" in Windows-1252.
	feed := []byte("product,store,lat,lon,price,sale price,expires\n" +
		"\xC6bler,L\xF8vbjerg,55.6,12.5,20.00,15.00,2026-10-20\n")

	result, err := NewParser(Options{Encoding: charset.EncodingWindows1252}, nil).Parse(feed)
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Æbler", result.Items[0].ProductName)
	assert.Equal(t, "Løvbjerg", result.Items[0].StoreName)
}

func TestParseMissingColumns(t *testing.T) {
	_, err := NewParser(Options{}, nil).Parse([]byte("product,store\nOst,Netto\n"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	result, err := NewParser(Options{}, nil).Parse(nil)
	require.NoError(t, err)
	assert.Zero(t, result.TotalRows)
	assert.Empty(t, result.Items)
}
