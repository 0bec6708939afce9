package nlp

import (
	"math"
	"strings"
)

// CriterionResult is the outcome of scoring one text against one criterion's
// keyword list.
type CriterionResult struct {
	Valuation  float64  // 1..5
	Confidence float64  // 0..1
	Matched    []string // keywords found, in list order
}

// ClassifyCriterion matches the criterion's keywords as case-insensitive
// substrings of the cleaned text. Zero matches is an explicit "no signal"
// result (neutral 3.0, confidence 0), not an error. With matches, the
// sentiment compound for the same text is remapped linearly from [-1,1] to
// [1,5]; confidence grows 0.2 per matched keyword, capped at 1.
func ClassifyCriterion(s *Scorer, text string, keywords []string) CriterionResult {
	clean := Clean(text)
	matched := []string{}
	for _, kw := range keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" {
			continue
		}
		if strings.Contains(clean, k) {
			matched = append(matched, kw)
		}
	}

	if len(matched) == 0 {
		return CriterionResult{Valuation: 3.0, Confidence: 0.0, Matched: matched}
	}

	compound := s.Score(text).Compound
	valuation := ((compound+1)/2)*4 + 1
	valuation = math.Max(1.0, math.Min(5.0, valuation))

	return CriterionResult{
		Valuation:  round2(valuation),
		Confidence: round2(math.Min(float64(len(matched))*0.2, 1.0)),
		Matched:    matched,
	}
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }
