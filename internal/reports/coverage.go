package reports

import (
	"fmt"
	"sort"

	"nciso/server/internal/db"
)

// FrameworkCoverage is the mapped/expected ratio of one framework.
type FrameworkCoverage struct {
	FrameworkID        string  `json:"framework_id"`
	FrameworkName      string  `json:"framework_name"`
	TotalControls      int     `json:"total_controls"`
	MappedControls     int     `json:"mapped_controls"`
	CoveragePercentage float64 `json:"coverage_percentage"`
}

// Insight is one templated observation on the dashboard.
type Insight struct {
	Type    string `json:"type"` // warning, success or info
	Message string `json:"message"`
}

// CoverageDashboard aggregates coverage across every framework of a tenant.
type CoverageDashboard struct {
	TotalFrameworks int                 `json:"total_frameworks"`
	TotalControls   int                 `json:"total_controls"`
	MappedControls  int                 `json:"mapped_controls"`
	OverallCoverage float64             `json:"overall_coverage"`
	AverageCoverage float64             `json:"average_coverage"`
	Frameworks      []FrameworkCoverage `json:"frameworks"`
	Top             []FrameworkCoverage `json:"top"`
	Bottom          []FrameworkCoverage `json:"bottom"`
	ZeroCoverage    []FrameworkCoverage `json:"zero_coverage"`
	FullCoverage    []FrameworkCoverage `json:"full_coverage"`
	Insights        []Insight           `json:"insights"`
}

// Coverage computes per-framework coverage from catalogs and mappings.
// catalogs and mappings are keyed by framework id.
func Coverage(frameworks []db.Framework, catalogs map[string][]db.FrameworkControl, mappings map[string][]db.ControlFramework, t Thresholds) CoverageDashboard {
	d := CoverageDashboard{
		TotalFrameworks: len(frameworks),
		Frameworks:      make([]FrameworkCoverage, 0, len(frameworks)),
		ZeroCoverage:    []FrameworkCoverage{},
		FullCoverage:    []FrameworkCoverage{},
		Insights:        []Insight{},
	}

	var sum float64
	for _, fw := range frameworks {
		expected := catalogs[fw.ID]
		mapped := make(map[string]struct{})
		for _, m := range mappings[fw.ID] {
			mapped[m.FrameworkControlID] = struct{}{}
		}
		fc := FrameworkCoverage{
			FrameworkID:   fw.ID,
			FrameworkName: fw.Name,
			TotalControls: len(expected),
		}
		for _, e := range expected {
			if _, ok := mapped[e.ID]; ok {
				fc.MappedControls++
			}
		}
		fc.CoveragePercentage = percent(fc.MappedControls, fc.TotalControls)

		d.TotalControls += fc.TotalControls
		d.MappedControls += fc.MappedControls
		sum += fc.CoveragePercentage
		d.Frameworks = append(d.Frameworks, fc)

		switch {
		case fc.CoveragePercentage == 0:
			d.ZeroCoverage = append(d.ZeroCoverage, fc)
		case fc.CoveragePercentage >= 100:
			d.FullCoverage = append(d.FullCoverage, fc)
		}
	}

	d.OverallCoverage = percent(d.MappedControls, d.TotalControls)
	if len(d.Frameworks) > 0 {
		d.AverageCoverage = round2(sum / float64(len(d.Frameworks)))
	}

	ranked := append([]FrameworkCoverage(nil), d.Frameworks...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].CoveragePercentage != ranked[j].CoveragePercentage {
			return ranked[i].CoveragePercentage > ranked[j].CoveragePercentage
		}
		return ranked[i].FrameworkName < ranked[j].FrameworkName
	})
	n := min(t.CoverageTopN, len(ranked))
	d.Top = append([]FrameworkCoverage{}, ranked[:n]...)
	d.Bottom = make([]FrameworkCoverage, 0, n)
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		d.Bottom = append(d.Bottom, ranked[i])
	}

	d.Insights = coverageInsights(d, t)
	return d
}

func coverageInsights(d CoverageDashboard, t Thresholds) []Insight {
	insights := []Insight{}
	if d.TotalFrameworks == 0 {
		return insights
	}
	switch {
	case d.OverallCoverage < t.CoverageWarningBelow:
		insights = append(insights, Insight{
			Type:    "warning",
			Message: fmt.Sprintf("Cobertura geral de %.2f%% está abaixo de %.0f%%: priorize o mapeamento de controles.", d.OverallCoverage, t.CoverageWarningBelow),
		})
	case d.OverallCoverage >= t.CoverageSuccessAt:
		insights = append(insights, Insight{
			Type:    "success",
			Message: fmt.Sprintf("Cobertura geral de %.2f%% atinge a meta de %.0f%%.", d.OverallCoverage, t.CoverageSuccessAt),
		})
	}
	if len(d.ZeroCoverage) > 0 {
		insights = append(insights, Insight{
			Type:    "info",
			Message: fmt.Sprintf("%d framework(s) sem nenhum controle mapeado.", len(d.ZeroCoverage)),
		})
	}
	return insights
}
