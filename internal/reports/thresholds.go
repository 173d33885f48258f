// Package reports reduces already-fetched ISMS rows into summary figures:
// effectiveness reports, framework gap reports, coverage dashboards,
// evaluation statistics and crosswalk suggestions. Nothing here touches the
// store; every function is a pure computation over its arguments.
package reports

import (
	"math"

	"github.com/go-faster/errors"
)

// Thresholds is the single table of score boundaries shared by every report.
type Thresholds struct {
	// LowEffectiveness is the score below which a control counts as weak.
	LowEffectiveness float64 `mapstructure:"low_effectiveness" json:"low_effectiveness"`

	GapExcellent float64 `mapstructure:"gap_excellent" json:"gap_excellent"`
	GapGood      float64 `mapstructure:"gap_good" json:"gap_good"`
	GapFair      float64 `mapstructure:"gap_fair" json:"gap_fair"`
	GapPoor      float64 `mapstructure:"gap_poor" json:"gap_poor"`

	CoverageWarningBelow float64 `mapstructure:"coverage_warning_below" json:"coverage_warning_below"`
	CoverageSuccessAt    float64 `mapstructure:"coverage_success_at" json:"coverage_success_at"`
	CoverageTopN         int     `mapstructure:"coverage_top_n" json:"coverage_top_n"`
}

// DefaultThresholds returns the 70 / 90-75-50-25 / 50-80 table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowEffectiveness:     70,
		GapExcellent:         90,
		GapGood:              75,
		GapFair:              50,
		GapPoor:              25,
		CoverageWarningBelow: 50,
		CoverageSuccessAt:    80,
		CoverageTopN:         5,
	}
}

// Validate checks that every boundary is a percentage and the gap bands descend.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{
		"low_effectiveness":      t.LowEffectiveness,
		"gap_excellent":          t.GapExcellent,
		"gap_good":               t.GapGood,
		"gap_fair":               t.GapFair,
		"gap_poor":               t.GapPoor,
		"coverage_warning_below": t.CoverageWarningBelow,
		"coverage_success_at":    t.CoverageSuccessAt,
	} {
		if v < 0 || v > 100 || math.IsNaN(v) {
			return errors.Errorf("thresholds.%s must be within [0,100], got %v", name, v)
		}
	}
	if !(t.GapExcellent > t.GapGood && t.GapGood > t.GapFair && t.GapFair > t.GapPoor) {
		return errors.Errorf("gap thresholds must descend: %v > %v > %v > %v",
			t.GapExcellent, t.GapGood, t.GapFair, t.GapPoor)
	}
	if t.CoverageWarningBelow > t.CoverageSuccessAt {
		return errors.Errorf("coverage_warning_below (%v) exceeds coverage_success_at (%v)",
			t.CoverageWarningBelow, t.CoverageSuccessAt)
	}
	if t.CoverageTopN < 1 {
		return errors.Errorf("coverage_top_n must be at least 1, got %d", t.CoverageTopN)
	}
	return nil
}

// GapStatus is the five-level compliance band of a gap report.
type GapStatus string

const (
	GapStatusExcellent GapStatus = "excellent"
	GapStatusGood      GapStatus = "good"
	GapStatusFair      GapStatus = "fair"
	GapStatusPoor      GapStatus = "poor"
	GapStatusCritical  GapStatus = "critical"
)

// Classify maps a compliance percentage onto its band. Lower bounds are inclusive.
func (t Thresholds) Classify(compliance float64) GapStatus {
	switch {
	case compliance >= t.GapExcellent:
		return GapStatusExcellent
	case compliance >= t.GapGood:
		return GapStatusGood
	case compliance >= t.GapFair:
		return GapStatusFair
	case compliance >= t.GapPoor:
		return GapStatusPoor
	default:
		return GapStatusCritical
	}
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percent returns part/total*100 rounded to two decimals, or 0 for an empty total.
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}
