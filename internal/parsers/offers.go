// Package parsers turns tabular offer feeds into DiscountItems. The csv and
// xlsx subpackages read the rows; this package maps columns to fields.
package parsers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kosarica/deal-planner/internal/types"
)

// Offer fields a feed column can map to.
const (
	FieldProduct         = "product"
	FieldStore           = "store"
	FieldAddress         = "address"
	FieldLatitude        = "latitude"
	FieldLongitude       = "longitude"
	FieldOriginalPrice   = "original_price"
	FieldDiscountPrice   = "discount_price"
	FieldDiscountPercent = "discount_percent"
	FieldExpiresOn       = "expires_on"
	FieldOrganic         = "organic"
)

var requiredFields = []string{
	FieldProduct, FieldStore, FieldLatitude, FieldLongitude,
	FieldOriginalPrice, FieldDiscountPrice, FieldExpiresOn,
}

var optionalFields = []string{FieldAddress, FieldDiscountPercent, FieldOrganic}

// ColumnMapping lists, per field, the header names that may hold it. A
// numeric entry is a zero-based column position. Header comparison ignores
// case, diacritics and the space/underscore/dash difference.
type ColumnMapping map[string][]string

// DefaultMapping covers the English, Danish and Croatian headers seen in
// retailer exports.
func DefaultMapping() ColumnMapping {
	return ColumnMapping{
		FieldProduct:         {"product", "product name", "name", "produkt", "varenavn", "naziv"},
		FieldStore:           {"store", "store name", "butik", "trgovina"},
		FieldAddress:         {"address", "store address", "adresse", "adresa"},
		FieldLatitude:        {"lat", "latitude"},
		FieldLongitude:       {"lon", "lng", "longitude"},
		FieldOriginalPrice:   {"original price", "price", "regular price", "normalpris", "cijena"},
		FieldDiscountPrice:   {"discount price", "sale price", "tilbudspris", "akcijska cijena"},
		FieldDiscountPercent: {"discount percent", "percent", "rabat", "popust"},
		FieldExpiresOn:       {"expires on", "expires", "expiration date", "valid until", "udløb", "vrijedi do"},
		FieldOrganic:         {"organic", "økologisk", "eko"},
	}
}

// RowError describes a row that could not become a valid offer. Row is
// 1-based and counts the header.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
}

// Result is the outcome of parsing one feed.
type Result struct {
	Items     []types.DiscountItem `json:"items"`
	Errors    []RowError           `json:"errors,omitempty"`
	TotalRows int                  `json:"totalRows"`
}

// Columns maps fields to resolved column positions.
type Columns map[string]int

// ResolveColumns finds each mapped field in the header row. A missing
// required field is an error; missing optional fields are left out.
func ResolveColumns(headers []string, mapping ColumnMapping) (Columns, error) {
	if len(mapping) == 0 {
		mapping = DefaultMapping()
	}
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	cols := make(Columns)
	resolve := func(field string) bool {
		for _, candidate := range mapping[field] {
			if idx, err := strconv.Atoi(strings.TrimSpace(candidate)); err == nil {
				if idx >= 0 {
					cols[field] = idx
					return true
				}
				continue
			}
			want := NormalizeHeader(candidate)
			for i, h := range normalized {
				if h == want {
					cols[field] = i
					return true
				}
			}
		}
		return false
	}

	var missing []string
	for _, field := range requiredFields {
		if !resolve(field) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	for _, field := range optionalFields {
		resolve(field)
	}
	return cols, nil
}

// Item maps one data row to a validated DiscountItem.
func (c Columns) Item(row []string, rowNumber int) (types.DiscountItem, *RowError) {
	get := func(field string) string {
		idx, ok := c[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}
	fail := func(field, msg string) (types.DiscountItem, *RowError) {
		return types.DiscountItem{}, &RowError{Row: rowNumber, Field: field, Message: msg, Value: get(field)}
	}

	var raw types.DiscountItem
	raw.ProductName = get(FieldProduct)
	raw.StoreName = get(FieldStore)
	raw.StoreAddress = get(FieldAddress)

	lat, err := parseFloat(get(FieldLatitude))
	if err != nil {
		return fail(FieldLatitude, "invalid number")
	}
	lon, err := parseFloat(get(FieldLongitude))
	if err != nil {
		return fail(FieldLongitude, "invalid number")
	}
	raw.StoreLocation = types.Location{Latitude: lat, Longitude: lon}

	if raw.OriginalPrice, err = types.ParseCents(get(FieldOriginalPrice)); err != nil {
		return fail(FieldOriginalPrice, "invalid price")
	}
	if raw.DiscountPrice, err = types.ParseCents(get(FieldDiscountPrice)); err != nil {
		return fail(FieldDiscountPrice, "invalid price")
	}
	if v := strings.TrimSuffix(get(FieldDiscountPercent), "%"); v != "" {
		if raw.DiscountPercent, err = parseFloat(v); err != nil {
			return fail(FieldDiscountPercent, "invalid number")
		}
	}
	expires, ok := ParseDate(get(FieldExpiresOn))
	if !ok {
		return fail(FieldExpiresOn, "invalid date")
	}
	raw.ExpirationDate = expires
	raw.IsOrganic = parseBool(get(FieldOrganic))

	item, err := types.NewDiscountItem(raw)
	if err != nil {
		var ve types.ValidationError
		if errors.As(err, &ve) {
			return types.DiscountItem{}, &RowError{Row: rowNumber, Field: ve.Field, Message: ve.Reason}
		}
		return types.DiscountItem{}, &RowError{Row: rowNumber, Message: err.Error()}
	}
	return item, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
	"02.01.2006.",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseDate accepts ISO and day-first European dates.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return types.Day(t), true
		}
	}
	return time.Time{}, false
}

func parseFloat(value string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(value), ",", "."), 64)
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "x", "ja", "da":
		return true
	}
	return false
}

// NormalizeHeader lowercases, strips diacritics and collapses separators so
// "Udløb" matches "udlob" and "Store_Name" matches "store name".
func NormalizeHeader(h string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, strings.ToLower(strings.TrimSpace(h)))
	if err != nil {
		folded = strings.ToLower(strings.TrimSpace(h))
	}
	folded = strings.NewReplacer("ø", "o", "æ", "ae", "å", "a", "đ", "d", "ß", "ss").Replace(folded)
	return strings.Join(strings.FieldsFunc(folded, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '.'
	}), " ")
}
