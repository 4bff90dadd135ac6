package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Ratio is the normalized Levenshtein similarity of two strings in [0,1]:
// 1 - distance / max(len(a), len(b)), counted in runes. Two empty strings
// are identical.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// shortWord is the rune length below which a word is compared by prefix
// rather than edit distance. One edit on a three letter word is a different
// word ("mel" and "maelk", "ris" and "is").
const shortWord = 4

// wordRatio is Ratio for words of at least shortWord runes. When either word
// is shorter, it is Ratio if one is a prefix of the other and 0 otherwise.
func wordRatio(a, b string) float64 {
	if min(utf8.RuneCountInString(a), utf8.RuneCountInString(b)) < shortWord {
		if !strings.HasPrefix(a, b) && !strings.HasPrefix(b, a) {
			return 0
		}
	}
	return Ratio(a, b)
}

// Similarity scores how well product names an ingredient. Both arguments
// must already be normalized. The score is the better of the whole-string
// ratio and the token score: the mean, over the ingredient's words, of each
// word's best ratio against any product word. The token score lets "milk"
// match "arla milk 1l" without penalizing the brand and size. Short words
// only match by prefix, see wordRatio.
func Similarity(ingredient, product string) float64 {
	if ingredient == "" || product == "" {
		return 0
	}
	full := wordRatio(ingredient, product)

	queryTokens := Tokens(ingredient)
	productTokens := Tokens(product)
	if len(queryTokens) == 0 || len(productTokens) == 0 {
		return full
	}

	total := 0.0
	for _, q := range queryTokens {
		best := 0.0
		for _, p := range productTokens {
			if r := wordRatio(q, p); r > best {
				best = r
			}
		}
		total += best
	}
	return max(full, total/float64(len(queryTokens)))
}
