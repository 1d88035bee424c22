package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Thresholds are the confidence bands for the normalization outcome.
// A result at or above High is normalized; at or above ReviewLow it is
// ambiguous; below ReviewLow it is queued for review.
type Thresholds struct {
	High      float64 `yaml:"high" json:"high"`
	ReviewLow float64 `yaml:"review_low" json:"review_low"`
}

// MatchingCfg tunes the fuzzy matcher that suggests state corrections.
type MatchingCfg struct {
	StateCutoff float64 `yaml:"state_cutoff" json:"state_cutoff"`
}

// ParserCfg is the deploy-tunable pipeline configuration.
type ParserCfg struct {
	Thresholds Thresholds  `yaml:"thresholds" json:"thresholds"`
	Matching   MatchingCfg `yaml:"matching" json:"matching"`
}

var C = Defaults()

// Defaults returns the built-in tuning. The service runs on these when no
// config file is present.
func Defaults() ParserCfg {
	return ParserCfg{
		Thresholds: Thresholds{High: 0.9, ReviewLow: 0.6},
		Matching:   MatchingCfg{StateCutoff: 0.8},
	}
}

// Load reads a yaml tuning file over the defaults.
func Load(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, &C); err != nil {
		return err
	}
	// ENV overrides
	if v := os.Getenv("THRESHOLD_HIGH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			C.Thresholds.High = f
		}
	}
	if v := os.Getenv("THRESHOLD_REVIEW_LOW"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			C.Thresholds.ReviewLow = f
		}
	}
	return nil
}
