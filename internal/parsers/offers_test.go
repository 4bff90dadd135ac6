package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedHeaders = []string{"Produkt", "Butik", "Adresse", "Lat", "Lon", "Normalpris", "Tilbudspris", "Udløb", "Økologisk"}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "udlob", NormalizeHeader(" Udløb "))
	assert.Equal(t, "store name", NormalizeHeader("Store_Name"))
	assert.Equal(t, "akcijska cijena", NormalizeHeader("Akcijska-cijena"))
	assert.Equal(t, "okologisk", NormalizeHeader("Økologisk"))
}

func TestResolveColumns(t *testing.T) {
	cols, err := ResolveColumns(feedHeaders, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, cols[FieldProduct])
	assert.Equal(t, 7, cols[FieldExpiresOn])
	assert.Equal(t, 8, cols[FieldOrganic])
	_, ok := cols[FieldDiscountPercent]
	assert.False(t, ok, "optional column absent from the feed")

	_, err = ResolveColumns([]string{"Produkt", "Butik"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), FieldLatitude)
}

func TestResolveColumnsByPosition(t *testing.T) {
	mapping := DefaultMapping()
	mapping[FieldProduct] = []string{"2"}
	cols, err := ResolveColumns(append([]string{"x", "y", "z"}, feedHeaders[1:]...), mapping)
	require.NoError(t, err)
	assert.Equal(t, 2, cols[FieldProduct])
}

func TestColumnsItem(t *testing.T) {
	cols, err := ResolveColumns(feedHeaders, nil)
	require.NoError(t, err)

	item, rowErr := cols.Item([]string{"Letmælk", "Netto", "Nørrebrogade 1", "55,6761", "12.5683", "12,95", "9,95", "20.10.2026", "ja"}, 2)
	require.Nil(t, rowErr)
	assert.Equal(t, "Letmælk", item.ProductName)
	assert.Equal(t, int64(1295), item.OriginalPrice)
	assert.Equal(t, int64(995), item.DiscountPrice)
	assert.InDelta(t, 23.17, item.DiscountPercent, 0.01)
	assert.InDelta(t, 55.6761, item.StoreLocation.Latitude, 1e-9)
	assert.True(t, item.IsOrganic)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), item.ExpirationDate)
}

func TestColumnsItemErrors(t *testing.T) {
	cols, err := ResolveColumns(feedHeaders, nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		row   []string
		field string
	}{
		{"bad latitude", []string{"Ost", "Netto", "", "north", "12.5", "40", "30", "2026-10-20", ""}, FieldLatitude},
		{"bad price", []string{"Ost", "Netto", "", "55.6", "12.5", "free", "30", "2026-10-20", ""}, FieldOriginalPrice},
		{"bad date", []string{"Ost", "Netto", "", "55.6", "12.5", "40", "30", "soon", ""}, FieldExpiresOn},
		{"no discount", []string{"Ost", "Netto", "", "55.6", "12.5", "30", "30", "2026-10-20", ""}, "discountPrice"},
		{"empty product", []string{"", "Netto", "", "55.6", "12.5", "40", "30", "2026-10-20", ""}, "productName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rowErr := cols.Item(tt.row, 5)
			require.NotNil(t, rowErr)
			assert.Equal(t, tt.field, rowErr.Field)
			assert.Equal(t, 5, rowErr.Row)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2026-10-20", "20.10.2026", "20.10.2026.", "2026-10-20T18:30:00", "2026-10-20T23:59:00Z"} {
		got, ok := ParseDate(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseDate("")
	assert.False(t, ok)
}
