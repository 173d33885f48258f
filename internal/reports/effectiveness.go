package reports

import (
	"nciso/server/internal/db"
)

// EffectivenessReport summarises the implementation state of a control set.
type EffectivenessReport struct {
	TotalControls         int     `json:"total_controls"`
	ImplementedControls   int     `json:"implemented_controls"`
	OperationalControls   int     `json:"operational_controls"`
	ScoredControls        int     `json:"scored_controls"`
	AverageEffectiveness  float64 `json:"average_effectiveness"`
	LowEffectivenessCount int     `json:"low_effectiveness_count"`
	ImplementationRate    float64 `json:"implementation_rate"`
	OperationalRate       float64 `json:"operational_rate"`
	Threshold             float64 `json:"threshold"`
}

// Effectiveness reduces controls into an EffectivenessReport. Controls without
// a score do not enter the average nor the low-effectiveness count.
func Effectiveness(controls []db.Control, t Thresholds) EffectivenessReport {
	r := EffectivenessReport{
		TotalControls: len(controls),
		Threshold:     t.LowEffectiveness,
	}

	var sum float64
	for _, c := range controls {
		switch c.ImplementationStatus {
		case db.StatusImplemented:
			r.ImplementedControls++
		case db.StatusOperational:
			r.OperationalControls++
		}
		if c.EffectivenessScore == nil {
			continue
		}
		r.ScoredControls++
		sum += *c.EffectivenessScore
		if *c.EffectivenessScore < t.LowEffectiveness {
			r.LowEffectivenessCount++
		}
	}

	if r.ScoredControls > 0 {
		r.AverageEffectiveness = round2(sum / float64(r.ScoredControls))
	}
	r.ImplementationRate = percent(r.ImplementedControls, r.TotalControls)
	r.OperationalRate = percent(r.OperationalControls, r.TotalControls)
	return r
}
