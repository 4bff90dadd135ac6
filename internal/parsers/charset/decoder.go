// Package charset converts offer feed bytes to UTF-8.
package charset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Encoding names a supported feed encoding.
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1250 Encoding = "windows-1250"
	EncodingWindows1252 Encoding = "windows-1252"
	EncodingISO88591    Encoding = "iso-8859-1"
	EncodingISO88592    Encoding = "iso-8859-2"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Lookup resolves an encoding name, case-insensitively. The empty name
// resolves to UTF-8.
func Lookup(name string) (Encoding, error) {
	switch enc := Encoding(strings.ToLower(strings.TrimSpace(name))); enc {
	case "", "utf8":
		return EncodingUTF8, nil
	case EncodingUTF8, EncodingWindows1250, EncodingWindows1252, EncodingISO88591, EncodingISO88592:
		return enc, nil
	case "cp1250":
		return EncodingWindows1250, nil
	case "cp1252":
		return EncodingWindows1252, nil
	case "latin1":
		return EncodingISO88591, nil
	case "latin2":
		return EncodingISO88592, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", name)
	}
}

// DetectEncoding returns UTF-8 for valid UTF-8 input and fallback otherwise.
// Legacy single-byte encodings cannot be told apart reliably, so the feed
// configuration supplies the fallback.
func DetectEncoding(data []byte, fallback Encoding) Encoding {
	if bytes.HasPrefix(data, utf8BOM) || utf8.Valid(data) {
		return EncodingUTF8
	}
	if fallback == "" || fallback == EncodingUTF8 {
		return EncodingWindows1252
	}
	return fallback
}

// Decode converts data to UTF-8. Input that is already valid UTF-8 is
// returned as is, whatever enc says, so a misconfigured feed is not decoded
// twice.
func Decode(data []byte, enc Encoding) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return string(data), nil
	}

	var decoder encoding.Encoding
	switch enc {
	case EncodingWindows1250:
		decoder = charmap.Windows1250
	case EncodingWindows1252, EncodingUTF8, "":
		decoder = charmap.Windows1252
	case EncodingISO88591:
		decoder = charmap.ISO8859_1
	case EncodingISO88592:
		decoder = charmap.ISO8859_2
	default:
		return "", fmt.Errorf("unsupported encoding %q", enc)
	}

	out, err := decoder.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", enc, err)
	}
	return string(out), nil
}
