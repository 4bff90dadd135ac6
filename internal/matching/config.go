package matching

import "fmt"

// Config tunes the ingredient matcher.
type Config struct {
	// Threshold is the minimum similarity in [0,1] a product needs.
	Threshold float64 `mapstructure:"threshold" json:"threshold"`
	// MaxMatches caps the ranked candidates kept per ingredient.
	MaxMatches int `mapstructure:"max_matches" json:"maxMatches"`
	// Aliases groups names that refer to the same ingredient, keyed by a
	// canonical term. Any member of a group matches with the whole group.
	Aliases map[string][]string `mapstructure:"aliases" json:"aliases,omitempty"`
}

// Defaults returns threshold 0.6, five matches and the built-in alias table.
func Defaults() Config {
	return Config{
		Threshold:  0.6,
		MaxMatches: 5,
		Aliases:    DefaultAliases(),
	}
}

// Validate checks the ranges.
func (c Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return &ErrInvalidConfig{Field: "threshold", Reason: "must be in (0, 1]"}
	}
	if c.MaxMatches < 1 {
		return &ErrInvalidConfig{Field: "max_matches", Reason: "must be at least 1"}
	}
	return nil
}

// ErrInvalidConfig reports a bad matcher setting.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid matching config: %s %s", e.Field, e.Reason)
}

// DefaultAliases maps English ingredient names to the Danish and Croatian
// product terms used on shelf labels.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"milk":     {"mælk", "letmælk", "sødmælk", "minimælk", "mlijeko"},
		"egg":      {"eggs", "æg", "jaja", "jaje"},
		"bread":    {"brød", "rugbrød", "kruh"},
		"butter":   {"smør", "maslac"},
		"cheese":   {"ost", "sir"},
		"chicken":  {"kylling", "piletina"},
		"beef":     {"oksekød", "hakket oksekød", "govedina"},
		"pork":     {"svinekød", "svinjetina"},
		"potato":   {"potatoes", "kartofler", "krumpir"},
		"tomato":   {"tomatoes", "tomat", "tomater", "rajčica"},
		"onion":    {"onions", "løg", "luk"},
		"carrot":   {"carrots", "gulerod", "gulerødder", "mrkva"},
		"apple":    {"apples", "æble", "æbler", "jabuka"},
		"banana":   {"bananas", "banan"},
		"yogurt":   {"yoghurt", "skyr", "jogurt"},
		"rice":     {"ris", "riža"},
		"pasta":    {"tjestenina"},
		"salmon":   {"laks", "losos"},
		"cream":    {"fløde", "piskefløde", "vrhnje"},
		"flour":    {"mel", "hvedemel", "brašno"},
		"cucumber": {"agurk", "krastavac"},
	}
}
