package reports

import (
	"sort"

	"nciso/server/internal/db"
)

// ControlStats is the read-time average of every evaluation of one control.
type ControlStats struct {
	ControlID       string  `json:"control_id"`
	Evaluations     int     `json:"evaluations"`
	AverageScore    float64 `json:"average_score"`
	MinScore        float64 `json:"min_score"`
	MaxScore        float64 `json:"max_score"`
	LastEvaluatedAt string  `json:"last_evaluated_at,omitempty"`
}

// EvaluationStats summarises a tenant's evaluation history.
type EvaluationStats struct {
	TotalEvaluations      int            `json:"total_evaluations"`
	EvaluatedControls     int            `json:"evaluated_controls"`
	AverageScore          float64        `json:"average_score"`
	LowEffectivenessCount int            `json:"low_effectiveness_count"`
	Threshold             float64        `json:"threshold"`
	Controls              []ControlStats `json:"controls"`
}

// PerControl groups evaluations by control and averages them. The result is
// sorted by average ascending so the weakest controls come first.
func PerControl(evals []db.ControlEffectiveness) []ControlStats {
	idx := map[string]int{}
	out := []ControlStats{}
	sums := []float64{}
	for _, e := range evals {
		i, ok := idx[e.ControlID]
		if !ok {
			i = len(out)
			idx[e.ControlID] = i
			out = append(out, ControlStats{ControlID: e.ControlID, MinScore: e.Score, MaxScore: e.Score})
			sums = append(sums, 0)
		}
		s := &out[i]
		s.Evaluations++
		sums[i] += e.Score
		s.MinScore = min(s.MinScore, e.Score)
		s.MaxScore = max(s.MaxScore, e.Score)
		if d := e.EvaluationDate.UTC().Format("2006-01-02T15:04:05Z"); !e.EvaluationDate.IsZero() && d > s.LastEvaluatedAt {
			s.LastEvaluatedAt = d
		}
	}
	for i := range out {
		out[i].AverageScore = round2(sums[i] / float64(out[i].Evaluations))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore < out[j].AverageScore
		}
		return out[i].ControlID < out[j].ControlID
	})
	return out
}

// Evaluations computes EvaluationStats with the low-effectiveness threshold of t.
func Evaluations(evals []db.ControlEffectiveness, t Thresholds) EvaluationStats {
	st := EvaluationStats{
		TotalEvaluations: len(evals),
		Threshold:        t.LowEffectiveness,
		Controls:         PerControl(evals),
	}
	st.EvaluatedControls = len(st.Controls)

	var sum float64
	for _, e := range evals {
		sum += e.Score
	}
	if len(evals) > 0 {
		st.AverageScore = round2(sum / float64(len(evals)))
	}
	for _, c := range st.Controls {
		if c.AverageScore < t.LowEffectiveness {
			st.LowEffectivenessCount++
		}
	}
	return st
}

// LowEffectiveness returns the controls whose average score is below minScore.
func LowEffectiveness(evals []db.ControlEffectiveness, minScore float64) []ControlStats {
	out := []ControlStats{}
	for _, c := range PerControl(evals) {
		if c.AverageScore < minScore {
			out = append(out, c)
		}
	}
	return out
}
