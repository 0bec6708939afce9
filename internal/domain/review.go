package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform identifies the scraping source a review came from.
type Platform string

const (
	PlatformGoogle      Platform = "GOOGLE"
	PlatformBooking     Platform = "BOOKING"
	PlatformAirbnb      Platform = "AIRBNB"
	PlatformTripadvisor Platform = "TRIPADVISOR"
)

// Platforms lists every supported source, in stable order.
var Platforms = []Platform{PlatformGoogle, PlatformBooking, PlatformAirbnb, PlatformTripadvisor}

func (p Platform) Valid() bool {
	switch p {
	case PlatformGoogle, PlatformBooking, PlatformAirbnb, PlatformTripadvisor:
		return true
	}
	return false
}

type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "POSITIVE"
	SentimentNegative SentimentLabel = "NEGATIVE"
	SentimentNeutral  SentimentLabel = "NEUTRAL"
)

type HighlightType string

const (
	HighlightLatest       HighlightType = "LATEST"
	HighlightMostPositive HighlightType = "MOST_POSITIVE"
	HighlightMostNegative HighlightType = "MOST_NEGATIVE"
)

// Property is the establishment reviews attach to.
type Property struct {
	ID     uuid.UUID
	Name   string
	City   *string
	Active bool
}

// ReviewDraft is a normalized but unsaved review. The dedup gate turns it
// into a Review (or returns the pre-existing one with the same fingerprint).
type ReviewDraft struct {
	PropertyID     uuid.UUID
	Platform       Platform
	Author         *string
	AuthorLocation *string
	FullText       *string
	PositiveText   *string
	NegativeText   *string
	Score          *float64
	// ScoreEstimated marks a 3.0 that came from the no-valid-value fallback
	// rather than from the record itself.
	ScoreEstimated bool
	PublishedAt    *time.Time
	StayType       *string
}

// Review is the canonical, deduplicated record. Content is immutable after
// creation; only Processed/ProcessedAt are set later, exactly once.
type Review struct {
	ID             uuid.UUID
	PropertyID     uuid.UUID
	Platform       Platform
	Author         *string
	AuthorLocation *string
	FullText       *string
	PositiveText   *string
	NegativeText   *string
	Score          *float64
	ScoreEstimated bool
	PublishedAt    *time.Time
	StayType       *string
	Fingerprint    string
	Processed      bool
	ProcessedAt    *time.Time
}

// Text returns the text classification runs on: the combined field when
// populated, otherwise the positive and negative components joined.
func (r Review) Text() string {
	if r.FullText != nil && strings.TrimSpace(*r.FullText) != "" {
		return *r.FullText
	}
	var parts []string
	if r.PositiveText != nil && *r.PositiveText != "" {
		parts = append(parts, *r.PositiveText)
	}
	if r.NegativeText != nil && *r.NegativeText != "" {
		parts = append(parts, *r.NegativeText)
	}
	return strings.Join(parts, " ")
}

// SentimentResult holds the 4-tuple sentiment score for one review (1:1).
type SentimentResult struct {
	ID         uuid.UUID
	ReviewID   uuid.UUID
	Label      SentimentLabel
	Positive   float64
	Negative   float64
	Neutral    float64
	Compound   float64
	Confidence float64
}

// CriterionClassification scores one review against one criterion.
type CriterionClassification struct {
	ID              uuid.UUID
	ReviewID        uuid.UUID
	CriterionID     uuid.UUID
	Valuation       float64
	Confidence      float64
	MatchedKeywords []string
}

// Criterion is a keyword-driven evaluation axis. Externally managed; the
// pipeline only reads it.
type Criterion struct {
	ID       uuid.UUID
	Code     string
	Name     string
	Weight   float64
	Keywords []string
	Active   bool
}

// Window is a half-open interval [Start, End). A nil bound is unbounded.
type Window struct {
	Start *time.Time
	End   *time.Time
}

func (w Window) Contains(t time.Time) bool {
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && !t.Before(*w.End) {
		return false
	}
	return true
}

// AggregateIndicator is a cached windowed snapshot, upserted by
// (PropertyID, WindowStart, WindowEnd).
type AggregateIndicator struct {
	PropertyID        uuid.UUID
	WindowStart       time.Time
	WindowEnd         time.Time
	ReviewCount       int
	CriterionAverages map[string]float64
	OverallAverage    float64
	PositiveCount     int
	NegativeCount     int
	NeutralCount      int
}

// HighlightedReview points at the review selected for a highlight slot.
type HighlightedReview struct {
	PropertyID uuid.UUID
	Type       HighlightType
	ReviewID   uuid.UUID
}
