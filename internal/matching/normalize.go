package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Letters that Unicode decomposition leaves intact.
var letterFolds = strings.NewReplacer(
	"æ", "ae", "Æ", "Ae",
	"ø", "o", "Ø", "O",
	"đ", "dj", "Đ", "Dj",
	"ß", "ss",
	"ł", "l", "Ł", "L",
)

// RemoveDiacritics folds accented letters to ASCII: "Čokolada" becomes
// "Cokolada" and "Smørrebrød" becomes "Smorrebrod".
func RemoveDiacritics(s string) string {
	s = letterFolds.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// Normalize lowercases, strips diacritics and reduces punctuation to single
// spaces, so "Øko-Mælk, 1L" becomes "oko maelk 1l".
func Normalize(s string) string {
	folded := strings.ToLower(RemoveDiacritics(s))
	return strings.Join(strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

// Tokens splits a normalized string into words.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}
