package reports

import (
	"sort"
	"strings"
	"unicode"

	"nciso/server/internal/db"
)

// DefaultMinConfidence is the overlap below which no suggestion is emitted.
const DefaultMinConfidence = 0.3

// CrosswalkSuggestion is an unpersisted candidate crosswalk between two catalog entries.
type CrosswalkSuggestion struct {
	SourceControlID   string  `json:"source_control_id"`
	SourceCode        string  `json:"source_code"`
	TargetControlID   string  `json:"target_control_id"`
	TargetCode        string  `json:"target_code"`
	SourceFrameworkID string  `json:"source_framework_id"`
	TargetFrameworkID string  `json:"target_framework_id"`
	RelationType      string  `json:"relation_type"`
	ConfidenceScore   float64 `json:"confidence_score"`
	IsAIGenerated     bool    `json:"is_ai_generated"`
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "to": {}, "for": {}, "in": {}, "on": {}, "with": {},
	"o": {}, "e": {}, "de": {}, "da": {}, "do": {}, "das": {}, "dos": {}, "em": {}, "para": {}, "com": {},
}

func tokens(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) < 2 {
			continue
		}
		if _, stop := stopwords[f]; stop {
			continue
		}
		out[f] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// SuggestCrosswalks pairs each source entry with its best-overlapping target
// entry by title and description tokens. Pairs scoring below minConfidence are
// dropped. Results are sorted by confidence descending.
func SuggestCrosswalks(source, target []db.FrameworkControl, minConfidence float64) []CrosswalkSuggestion {
	targetTokens := make([]map[string]struct{}, len(target))
	for i, t := range target {
		targetTokens[i] = tokens(t.Title + " " + t.Description)
	}

	out := []CrosswalkSuggestion{}
	for _, s := range source {
		st := tokens(s.Title + " " + s.Description)
		best, bestScore := -1, 0.0
		for i := range target {
			if score := jaccard(st, targetTokens[i]); score > bestScore {
				best, bestScore = i, score
			}
		}
		if best < 0 || bestScore < minConfidence {
			continue
		}
		out = append(out, CrosswalkSuggestion{
			SourceControlID:   s.ID,
			SourceCode:        s.Code,
			TargetControlID:   target[best].ID,
			TargetCode:        target[best].Code,
			SourceFrameworkID: s.FrameworkID,
			TargetFrameworkID: target[best].FrameworkID,
			RelationType:      db.RelationSuggested,
			ConfidenceScore:   round2(bestScore),
			IsAIGenerated:     true,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ConfidenceScore > out[j].ConfidenceScore
	})
	return out
}
