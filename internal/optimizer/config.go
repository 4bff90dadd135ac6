package optimizer

import "math"

// Config holds the optimizer tuning that is not part of a request.
type Config struct {
	// ConsolidationBonus is added to a candidate's score once for every
	// purchase already selected at its store.
	ConsolidationBonus float64 `mapstructure:"consolidation_bonus" json:"consolidationBonus"`

	// DefaultWeights apply to the active boolean preferences before
	// normalization.
	DefaultWeights Weights `mapstructure:"default_weights" json:"defaultWeights"`

	// OrganicScore and ConventionalScore are the quality scores of organic
	// and non-organic products.
	OrganicScore      float64 `mapstructure:"organic_score" json:"organicScore"`
	ConventionalScore float64 `mapstructure:"conventional_score" json:"conventionalScore"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		ConsolidationBonus: 0.2,
		DefaultWeights:     Weights{Savings: 0.5, Time: 0.3, Quality: 0.2},
		OrganicScore:       1.0,
		ConventionalScore:  0.5,
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c Config) Validate() error {
	if c.ConsolidationBonus < 0 || !finite(c.ConsolidationBonus) {
		return ErrInvalidConfig{Field: "consolidation_bonus", Reason: "must be a non-negative number"}
	}
	if err := c.DefaultWeights.validate(); err != nil {
		return ErrInvalidConfig{Field: "default_weights", Reason: err.Error()}
	}
	if c.DefaultWeights.Savings == 0 || c.DefaultWeights.Time == 0 || c.DefaultWeights.Quality == 0 {
		return ErrInvalidConfig{Field: "default_weights", Reason: "every default weight must be positive"}
	}
	if c.OrganicScore < 0 || c.OrganicScore > 1 {
		return ErrInvalidConfig{Field: "organic_score", Reason: "must be between 0 and 1"}
	}
	if c.ConventionalScore < 0 || c.ConventionalScore > 1 {
		return ErrInvalidConfig{Field: "conventional_score", Reason: "must be between 0 and 1"}
	}
	return nil
}

// ErrInvalidConfig is returned when the configuration is invalid.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return e.Field + ": " + e.Reason
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
