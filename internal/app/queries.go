package app

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stayscore/internal/domain"
)

// AggregationService computes read-side indicators over processed reviews.
// Results are cached per key with a short TTL; writes invalidate.
type AggregationService struct {
	repo   domain.ReviewRepository
	cache  domain.Cache
	ttlSec int
	now    func() time.Time
}

func NewAggregationService(repo domain.ReviewRepository, cache domain.Cache, ttl time.Duration) *AggregationService {
	ttlSec := int(ttl.Seconds())
	if ttlSec <= 0 {
		ttlSec = 300
	}
	return &AggregationService{repo: repo, cache: cache, ttlSec: ttlSec, now: time.Now}
}

// Summary is the per-property dashboard block.
type Summary struct {
	PropertyID        uuid.UUID          `json:"property_id"`
	ReviewCount       int                `json:"review_count"`
	OverallAverage    float64            `json:"overall_average"`
	CriterionAverages map[string]float64 `json:"criterion_averages"`
	PositiveCount     int                `json:"positive_count"`
	NegativeCount     int                `json:"negative_count"`
	NeutralCount      int                `json:"neutral_count"`
	PositivePct       float64            `json:"positive_pct"`
	NegativePct       float64            `json:"negative_pct"`
	NeutralPct        float64            `json:"neutral_pct"`
}

func (s *AggregationService) Summary(ctx context.Context, propertyID uuid.UUID, w domain.Window) (Summary, error) {
	key := fmt.Sprintf("summary:%s:%s", propertyID, windowKey(w))
	var out Summary
	if hit := s.cacheGet(ctx, key, &out); hit {
		return out, nil
	}
	out, err := s.computeSummary(ctx, propertyID, w)
	if err != nil {
		return Summary{}, err
	}
	s.cacheSet(ctx, key, out)
	return out, nil
}

func (s *AggregationService) computeSummary(ctx context.Context, propertyID uuid.UUID, w domain.Window) (Summary, error) {
	out := Summary{PropertyID: propertyID, CriterionAverages: map[string]float64{}}

	reviews, err := s.repo.ListProcessedReviews(ctx, propertyID, w)
	if err != nil {
		return Summary{}, fmt.Errorf("list reviews: %w", err)
	}
	out.ReviewCount = len(reviews)
	if len(reviews) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, 0, len(reviews))
	scoreSum, scored := 0.0, 0
	for _, rv := range reviews {
		ids = append(ids, rv.ID)
		if rv.Score != nil {
			scoreSum += *rv.Score
			scored++
		}
	}
	if scored > 0 {
		out.OverallAverage = round2(scoreSum / float64(scored))
	}

	sentiments, err := s.repo.SentimentsByReview(ctx, ids)
	if err != nil {
		return Summary{}, fmt.Errorf("load sentiments: %w", err)
	}
	for _, sr := range sentiments {
		switch sr.Label {
		case domain.SentimentPositive:
			out.PositiveCount++
		case domain.SentimentNegative:
			out.NegativeCount++
		default:
			out.NeutralCount++
		}
	}
	total := float64(len(reviews))
	out.PositivePct = round2(float64(out.PositiveCount) / total * 100)
	out.NegativePct = round2(float64(out.NegativeCount) / total * 100)
	out.NeutralPct = round2(float64(out.NeutralCount) / total * 100)

	classifications, err := s.repo.ClassificationsByReview(ctx, ids)
	if err != nil {
		return Summary{}, fmt.Errorf("load classifications: %w", err)
	}
	criteria, err := s.repo.ListActiveCriteria(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("list criteria: %w", err)
	}
	codeByID := make(map[uuid.UUID]string, len(criteria))
	for _, cr := range criteria {
		codeByID[cr.ID] = cr.Code
	}
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, cl := range classifications {
		code, ok := codeByID[cl.CriterionID]
		if !ok {
			continue // criterion deactivated since classification
		}
		sums[code] += cl.Valuation
		counts[code]++
	}
	for code, sum := range sums {
		out.CriterionAverages[code] = round2(sum / float64(counts[code]))
	}
	return out, nil
}

// TableFilter narrows the comparison table. MinCriteria keeps only
// properties whose average for each code meets the floor.
type TableFilter struct {
	Window      domain.Window
	MinCriteria map[string]float64
}

type TableRow struct {
	PropertyID        uuid.UUID           `json:"property_id"`
	PropertyName      string              `json:"property_name"`
	ReviewCount       int                 `json:"review_count"`
	OverallAverage    float64             `json:"overall_average"`
	CriterionAverages map[string]float64  `json:"criterion_averages"`
	DominantSentiment domain.SentimentLabel `json:"dominant_sentiment"`
	DominantPlatform  domain.Platform     `json:"dominant_platform"`
}

// Table builds one row per active property with processed reviews in the
// window, ordered by overall average descending then name.
func (s *AggregationService) Table(ctx context.Context, f TableFilter) ([]TableRow, error) {
	key := fmt.Sprintf("indicators:table:%s", windowKey(f.Window))
	cacheable := len(f.MinCriteria) == 0
	if cacheable {
		var out []TableRow
		if hit := s.cacheGet(ctx, key, &out); hit {
			return out, nil
		}
	}

	props, err := s.repo.ListActiveProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	rows := make([]TableRow, 0, len(props))
	for _, p := range props {
		row, ok, err := s.tableRow(ctx, p, f)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OverallAverage != rows[j].OverallAverage {
			return rows[i].OverallAverage > rows[j].OverallAverage
		}
		return rows[i].PropertyName < rows[j].PropertyName
	})

	if cacheable {
		s.cacheSet(ctx, key, rows)
	}
	return rows, nil
}

func (s *AggregationService) tableRow(ctx context.Context, p domain.Property, f TableFilter) (TableRow, bool, error) {
	sum, err := s.computeSummary(ctx, p.ID, f.Window)
	if err != nil {
		return TableRow{}, false, fmt.Errorf("property %s: %w", p.ID, err)
	}
	if sum.ReviewCount == 0 {
		return TableRow{}, false, nil
	}
	for code, min := range f.MinCriteria {
		if sum.CriterionAverages[code] < min {
			return TableRow{}, false, nil
		}
	}

	reviews, err := s.repo.ListProcessedReviews(ctx, p.ID, f.Window)
	if err != nil {
		return TableRow{}, false, fmt.Errorf("property %s reviews: %w", p.ID, err)
	}
	ids := make([]uuid.UUID, 0, len(reviews))
	platformCounts := map[domain.Platform]int{}
	for _, rv := range reviews {
		ids = append(ids, rv.ID)
		platformCounts[rv.Platform]++
	}
	sentiments, err := s.repo.SentimentsByReview(ctx, ids)
	if err != nil {
		return TableRow{}, false, fmt.Errorf("property %s sentiments: %w", p.ID, err)
	}
	labelCounts := map[domain.SentimentLabel]int{}
	for _, sr := range sentiments {
		labelCounts[sr.Label]++
	}
	// reviews can predate their sentiment rows; report neutral rather
	// than an empty label
	dominantLabel := domain.SentimentNeutral
	if len(labelCounts) > 0 {
		dominantLabel = dominant(labelCounts)
	}

	return TableRow{
		PropertyID:        p.ID,
		PropertyName:      p.Name,
		ReviewCount:       sum.ReviewCount,
		OverallAverage:    sum.OverallAverage,
		CriterionAverages: sum.CriterionAverages,
		DominantSentiment: dominantLabel,
		DominantPlatform:  dominant(platformCounts),
	}, true, nil
}

// dominant picks the key with the highest count; ties resolve to the
// lexicographically smallest key so results are stable across runs.
func dominant[K ~string](counts map[K]int) K {
	keys := make([]K, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	var best K
	bestN := -1
	for _, k := range keys {
		if counts[k] > bestN {
			best, bestN = k, counts[k]
		}
	}
	return best
}

// Highlights are the three showcase slots. Only reviews that completed
// sentiment scoring are eligible for any slot.
type Highlights struct {
	Latest       *ReviewWithSentiment `json:"latest"`
	MostPositive *ReviewWithSentiment `json:"most_positive"`
	MostNegative *ReviewWithSentiment `json:"most_negative"`
}

type ReviewWithSentiment struct {
	Review    domain.Review          `json:"review"`
	Sentiment domain.SentimentResult `json:"sentiment"`
}

func (s *AggregationService) Highlights(ctx context.Context, propertyID uuid.UUID, w domain.Window) (Highlights, error) {
	key := fmt.Sprintf("highlights:%s:%s", propertyID, windowKey(w))
	var out Highlights
	if hit := s.cacheGet(ctx, key, &out); hit {
		return out, nil
	}

	reviews, err := s.repo.ListProcessedReviews(ctx, propertyID, w)
	if err != nil {
		return Highlights{}, fmt.Errorf("list reviews: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(reviews))
	for _, rv := range reviews {
		ids = append(ids, rv.ID)
	}
	sentiments, err := s.repo.SentimentsByReview(ctx, ids)
	if err != nil {
		return Highlights{}, fmt.Errorf("load sentiments: %w", err)
	}

	for _, rv := range reviews {
		sr, ok := sentiments[rv.ID]
		if !ok {
			continue
		}
		cand := &ReviewWithSentiment{Review: rv, Sentiment: sr}
		if rv.PublishedAt != nil {
			if out.Latest == nil || out.Latest.Review.PublishedAt == nil ||
				rv.PublishedAt.After(*out.Latest.Review.PublishedAt) {
				out.Latest = cand
			}
		}
		if out.MostPositive == nil || sr.Compound > out.MostPositive.Sentiment.Compound {
			out.MostPositive = cand
		}
		if out.MostNegative == nil || sr.Compound < out.MostNegative.Sentiment.Compound {
			out.MostNegative = cand
		}
	}

	s.cacheSet(ctx, key, out)
	return out, nil
}

// TrendPoint is one calendar-month bucket.
type TrendPoint struct {
	Month       string  `json:"month"` // "2006-01"
	ReviewCount int     `json:"review_count"`
	AverageScore float64 `json:"average_score"`
}

// Trend buckets the last months*30 days of processed reviews by calendar
// month of publication, ascending.
func (s *AggregationService) Trend(ctx context.Context, propertyID uuid.UUID, months int) ([]TrendPoint, error) {
	if months <= 0 {
		months = 12
	}
	key := fmt.Sprintf("trend:%s:%d", propertyID, months)
	var out []TrendPoint
	if hit := s.cacheGet(ctx, key, &out); hit {
		return out, nil
	}

	end := s.now()
	start := end.Add(-time.Duration(months) * 30 * 24 * time.Hour)
	reviews, err := s.repo.ListProcessedReviews(ctx, propertyID, domain.Window{Start: &start, End: &end})
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	type bucket struct {
		count  int
		sum    float64
		scored int
	}
	buckets := map[string]*bucket{}
	for _, rv := range reviews {
		if rv.PublishedAt == nil {
			continue
		}
		month := rv.PublishedAt.Format("2006-01")
		b := buckets[month]
		if b == nil {
			b = &bucket{}
			buckets[month] = b
		}
		b.count++
		if rv.Score != nil {
			b.sum += *rv.Score
			b.scored++
		}
	}

	monthsSorted := make([]string, 0, len(buckets))
	for m := range buckets {
		monthsSorted = append(monthsSorted, m)
	}
	sort.Strings(monthsSorted)
	out = make([]TrendPoint, 0, len(monthsSorted))
	for _, m := range monthsSorted {
		b := buckets[m]
		pt := TrendPoint{Month: m, ReviewCount: b.count}
		if b.scored > 0 {
			pt.AverageScore = round2(b.sum / float64(b.scored))
		}
		out = append(out, pt)
	}

	s.cacheSet(ctx, key, out)
	return out, nil
}

type PlatformCount struct {
	Platform domain.Platform `json:"platform"`
	Count    int             `json:"count"`
}

// PlatformDistribution counts processed reviews per source platform,
// in the catalog's stable platform order.
func (s *AggregationService) PlatformDistribution(ctx context.Context, w domain.Window) ([]PlatformCount, error) {
	key := fmt.Sprintf("indicators:platforms:%s", windowKey(w))
	var out []PlatformCount
	if hit := s.cacheGet(ctx, key, &out); hit {
		return out, nil
	}

	counts, err := s.repo.PlatformCounts(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("platform counts: %w", err)
	}
	out = make([]PlatformCount, 0, len(counts))
	for _, p := range domain.Platforms {
		if n := counts[p]; n > 0 {
			out = append(out, PlatformCount{Platform: p, Count: n})
		}
	}

	s.cacheSet(ctx, key, out)
	return out, nil
}

// ComputeIndicator materializes and stores the windowed snapshot for one
// property, replacing any previous snapshot for the same window.
func (s *AggregationService) ComputeIndicator(ctx context.Context, propertyID uuid.UUID, start, end time.Time) (domain.AggregateIndicator, error) {
	if _, err := s.repo.GetProperty(ctx, propertyID); err != nil {
		return domain.AggregateIndicator{}, err
	}
	w := domain.Window{Start: &start, End: &end}
	sum, err := s.computeSummary(ctx, propertyID, w)
	if err != nil {
		return domain.AggregateIndicator{}, err
	}
	ind := domain.AggregateIndicator{
		PropertyID:        propertyID,
		WindowStart:       start,
		WindowEnd:         end,
		ReviewCount:       sum.ReviewCount,
		CriterionAverages: sum.CriterionAverages,
		OverallAverage:    sum.OverallAverage,
		PositiveCount:     sum.PositiveCount,
		NegativeCount:     sum.NegativeCount,
		NeutralCount:      sum.NeutralCount,
	}
	if err := s.repo.UpsertIndicator(ctx, ind); err != nil {
		return domain.AggregateIndicator{}, fmt.Errorf("upsert indicator: %w", err)
	}
	return ind, nil
}

func (s *AggregationService) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		log.Debug().Str("key", key).Err(err).Msg("cache read failed")
		return false
	}
	return hit
}

func (s *AggregationService) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, v, s.ttlSec); err != nil {
		log.Debug().Str("key", key).Err(err).Msg("cache write failed")
	}
}

// windowKey renders a window into a stable cache key fragment.
func windowKey(w domain.Window) string {
	if w.Start == nil && w.End == nil {
		return "all"
	}
	start, end := "min", "max"
	if w.Start != nil {
		start = fmt.Sprintf("%d", w.Start.Unix())
	}
	if w.End != nil {
		end = fmt.Sprintf("%d", w.End.Unix())
	}
	return start + "-" + end
}

// propertyCacheKeys lists the keys writes to one property invalidate.
// Windowed variants expire by TTL instead.
func propertyCacheKeys(propertyID string) []string {
	return []string{
		fmt.Sprintf("summary:%s:all", propertyID),
		fmt.Sprintf("highlights:%s:all", propertyID),
		fmt.Sprintf("trend:%s:12", propertyID),
	}
}

func globalCacheKeys() []string {
	return []string{
		"indicators:table:all",
		"indicators:platforms:all",
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
