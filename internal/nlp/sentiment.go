// Package nlp scores review text: a lexicon-based sentiment analyzer and a
// keyword-driven criterion classifier. Both operate on cleaned text and are
// safe for concurrent use.
package nlp

import (
	"math"
	"regexp"
	"strings"

	"stayscore/internal/domain"
)

var (
	urlRe   = regexp.MustCompile(`https?://\S+|www\.\S+`)
	noiseRe = regexp.MustCompile(`[^\w\s.,;:!?áéíóúñü]`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Clean lowercases, strips URLs, drops non-word noise (keeping basic
// punctuation and accented Spanish letters) and collapses whitespace.
func Clean(s string) string {
	s = strings.ToLower(s)
	s = urlRe.ReplaceAllString(s, "")
	s = noiseRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Scores is the 4-tuple sentiment result. Positive, Negative and Neutral are
// proportions summing to ~1; Compound is the normalized polarity in [-1, 1].
type Scores struct {
	Positive float64
	Negative float64
	Neutral  float64
	Compound float64
}

// Thresholds turn a compound score into a discrete label. Both bounds are
// configuration, independently tunable.
type Thresholds struct {
	Positive float64 // compound >= Positive => POSITIVE
	Negative float64 // compound <= Negative => NEGATIVE
}

func DefaultThresholds() Thresholds { return Thresholds{Positive: 0.2, Negative: -0.2} }

func (t Thresholds) Label(compound float64) domain.SentimentLabel {
	switch {
	case compound >= t.Positive:
		return domain.SentimentPositive
	case compound <= t.Negative:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

// Confidence rises with the strength of the dominant polarity, saturating at 1.
func Confidence(sc Scores) float64 {
	return math.Min(1.5*math.Max(sc.Positive, sc.Negative), 1.0)
}

// Scorer holds the valence lexicon plus negation and intensity modifiers.
type Scorer struct {
	lexicon  map[string]float64
	negators map[string]struct{}
	boosters map[string]float64
}

func NewScorer() *Scorer {
	return &Scorer{lexicon: valenceLexicon, negators: negatorWords, boosters: boosterWords}
}

// normalization constant for the compound score; sum/sqrt(sum^2+alpha)
// keeps the result in (-1, 1) and saturates for long emphatic texts.
const compoundAlpha = 15.0

// Score analyzes text. Empty or entirely noise text yields (0, 0, 1, 0).
func (s *Scorer) Score(text string) Scores {
	clean := Clean(text)
	if clean == "" {
		return Scores{Neutral: 1.0}
	}

	tokens := strings.Fields(clean)
	var sum, posSum, negSum, neuCount float64

	for i, tok := range tokens {
		word := strings.Trim(tok, ".,;:!?")
		v, ok := s.lexicon[word]
		if !ok {
			neuCount++
			continue
		}
		if i > 0 {
			prev := strings.Trim(tokens[i-1], ".,;:!?")
			if b, ok := s.boosters[prev]; ok {
				if v > 0 {
					v += b
				} else {
					v -= b
				}
			}
			if s.negated(tokens, i) {
				v *= -0.74
			}
		}
		switch {
		case v > 0:
			posSum += v + 1
		case v < 0:
			negSum += v - 1
		default:
			neuCount++
		}
		sum += v
	}

	compound := sum / math.Sqrt(sum*sum+compoundAlpha)
	total := posSum + math.Abs(negSum) + neuCount
	if total == 0 {
		return Scores{Neutral: 1.0}
	}
	return Scores{
		Positive: posSum / total,
		Negative: math.Abs(negSum) / total,
		Neutral:  neuCount / total,
		Compound: compound,
	}
}

// negated checks the two tokens preceding position i for a negator.
func (s *Scorer) negated(tokens []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-2; j-- {
		w := strings.Trim(tokens[j], ".,;:!?")
		if _, ok := s.negators[w]; ok {
			return true
		}
	}
	return false
}
