package reports

import (
	"fmt"
	"sort"

	"nciso/server/internal/db"
)

// Gap is one expected catalog entry with no mapped tenant control.
type Gap struct {
	FrameworkControlID string `json:"framework_control_id"`
	Code               string `json:"code"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	Priority           string `json:"priority"`
}

// GapReport is the outcome of comparing a framework catalog with the tenant's mappings.
type GapReport struct {
	FrameworkID          string    `json:"framework_id"`
	FrameworkName        string    `json:"framework_name"`
	TotalExpected        int       `json:"total_expected"`
	TotalMapped          int       `json:"total_mapped"`
	TotalGaps            int       `json:"total_gaps"`
	CriticalGaps         int       `json:"critical_gaps"`
	CompliancePercentage float64   `json:"compliance_percentage"`
	Status               GapStatus `json:"status"`
	Gaps                 []Gap     `json:"gaps"`
	Recommendations      []string  `json:"recommendations"`
}

var priorityRank = map[string]int{
	db.PriorityCritical: 0,
	db.PriorityHigh:     1,
	db.PriorityMedium:   2,
	db.PriorityLow:      3,
}

func rankOf(priority string) int {
	if r, ok := priorityRank[priority]; ok {
		return r
	}
	return len(priorityRank)
}

// SimulateGap computes expected − mapped over the framework catalog. Mappings
// pointing outside the catalog are ignored, so compliance never exceeds 100.
func SimulateGap(fw db.Framework, expected []db.FrameworkControl, mappings []db.ControlFramework, t Thresholds) GapReport {
	mapped := make(map[string]struct{}, len(mappings))
	for _, m := range mappings {
		mapped[m.FrameworkControlID] = struct{}{}
	}

	r := GapReport{
		FrameworkID:   fw.ID,
		FrameworkName: fw.Name,
		TotalExpected: len(expected),
		Gaps:          []Gap{},
	}
	for _, fc := range expected {
		if _, ok := mapped[fc.ID]; ok {
			r.TotalMapped++
			continue
		}
		r.Gaps = append(r.Gaps, Gap{
			FrameworkControlID: fc.ID,
			Code:               fc.Code,
			Title:              fc.Title,
			Description:        fc.Description,
			Priority:           fc.Priority,
		})
		if fc.Priority == db.PriorityCritical {
			r.CriticalGaps++
		}
	}
	sort.SliceStable(r.Gaps, func(i, j int) bool {
		ri, rj := rankOf(r.Gaps[i].Priority), rankOf(r.Gaps[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return r.Gaps[i].Code < r.Gaps[j].Code
	})

	r.TotalGaps = len(r.Gaps)
	r.CompliancePercentage = percent(r.TotalMapped, r.TotalExpected)
	r.Status = t.Classify(r.CompliancePercentage)
	r.Recommendations = gapRecommendations(r)
	return r
}

func gapRecommendations(r GapReport) []string {
	if r.TotalExpected == 0 {
		return []string{"Framework sem catálogo de controles: importe os controles esperados antes de simular o gap."}
	}

	var recs []string
	switch r.Status {
	case GapStatusExcellent:
		recs = append(recs, "Conformidade excelente: mantenha o ciclo de revisão e evidências atualizadas.")
	case GapStatusGood:
		recs = append(recs, "Boa conformidade: priorize os gaps restantes no próximo ciclo de melhoria.")
	case GapStatusFair:
		recs = append(recs, "Conformidade razoável: elabore um plano de ação com prazos para os gaps identificados.")
	case GapStatusPoor:
		recs = append(recs, "Conformidade baixa: defina responsáveis e recursos para tratar os gaps com urgência.")
	default:
		recs = append(recs, "Conformidade crítica: inicie um programa de implementação estruturado e envolva a alta direção.")
	}
	if r.CriticalGaps > 0 {
		recs = append(recs, fmt.Sprintf("Trate imediatamente os %d controles de prioridade crítica ainda não mapeados.", r.CriticalGaps))
	}
	if r.TotalGaps > 0 {
		recs = append(recs, fmt.Sprintf("Mapeie controles existentes para os %d requisitos pendentes antes de criar novos controles.", r.TotalGaps))
	}
	return recs
}
