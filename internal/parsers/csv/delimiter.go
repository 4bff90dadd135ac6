package csv

import "strings"

// Delimiter is a supported field separator.
type Delimiter rune

const (
	DelimiterComma     Delimiter = ','
	DelimiterSemicolon Delimiter = ';'
	DelimiterTab       Delimiter = '\t'
)

// DetectDelimiter picks the separator whose count is highest and most
// consistent over the first five non-empty lines.
func DetectDelimiter(content string) Delimiter {
	sample := make([]string, 0, 5)
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			sample = append(sample, trimmed)
			if len(sample) == 5 {
				break
			}
		}
	}
	if len(sample) == 0 {
		return DelimiterComma
	}

	best := DelimiterComma
	bestScore := 0.0
	for _, delim := range []Delimiter{DelimiterComma, DelimiterSemicolon, DelimiterTab} {
		counts := make([]int, len(sample))
		sum := 0
		for i, line := range sample {
			counts[i] = strings.Count(line, string(rune(delim)))
			sum += counts[i]
		}
		avg := float64(sum) / float64(len(counts))
		if avg == 0 {
			continue
		}
		variance := 0.0
		for _, c := range counts {
			diff := float64(c) - avg
			variance += diff * diff
		}
		variance /= float64(len(counts))

		if score := avg / (1 + variance); score > bestScore {
			bestScore = score
			best = delim
		}
	}
	return best
}
