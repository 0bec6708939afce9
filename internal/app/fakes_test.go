package app_test

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"stayscore/internal/domain"
)

// memRepo is an in-memory ReviewRepository for service tests.
type memRepo struct {
	mu sync.Mutex

	properties map[uuid.UUID]domain.Property
	criteria   []domain.Criterion

	reviews         map[uuid.UUID]domain.Review
	byFingerprint   map[string]uuid.UUID
	claims          map[uuid.UUID]string
	sentiments      map[uuid.UUID]domain.SentimentResult // by review ID
	classifications []domain.CriterionClassification
	indicators      []domain.AggregateIndicator

	// failure injection
	failCreateSentiment      func(reviewID uuid.UUID) error
	failCreateClassification func(reviewID uuid.UUID) error
}

func newMemRepo() *memRepo {
	return &memRepo{
		properties:    map[uuid.UUID]domain.Property{},
		reviews:       map[uuid.UUID]domain.Review{},
		byFingerprint: map[string]uuid.UUID{},
		claims:        map[uuid.UUID]string{},
		sentiments:    map[uuid.UUID]domain.SentimentResult{},
	}
}

func (r *memRepo) addProperty(name string) domain.Property {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := domain.Property{ID: uuid.New(), Name: name, Active: true}
	r.properties[p.ID] = p
	return p
}

func (r *memRepo) addCriterion(code string, keywords []string) domain.Criterion {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := domain.Criterion{ID: uuid.New(), Code: code, Name: code, Weight: 1, Keywords: keywords, Active: true}
	r.criteria = append(r.criteria, c)
	return c
}

func (r *memRepo) GetProperty(_ context.Context, id uuid.UUID) (domain.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.properties[id]
	if !ok {
		return domain.Property{}, domain.ErrNotFound
	}
	return p, nil
}

func (r *memRepo) FindPropertyByName(_ context.Context, name string) (domain.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.properties {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return domain.Property{}, domain.ErrNotFound
}

func (r *memRepo) ListActiveProperties(_ context.Context) ([]domain.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Property, 0, len(r.properties))
	for _, p := range r.properties {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRepo) ListActiveCriteria(_ context.Context) ([]domain.Criterion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Criterion, 0, len(r.criteria))
	for _, c := range r.criteria {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) GetCriterionByCode(_ context.Context, code string) (domain.Criterion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.criteria {
		if c.Code == code {
			return c, nil
		}
	}
	return domain.Criterion{}, domain.ErrNotFound
}

func (r *memRepo) CreateReview(_ context.Context, d domain.ReviewDraft, fingerprint string) (domain.Review, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byFingerprint[fingerprint]; ok {
		return r.reviews[id], false, nil
	}
	rv := domain.Review{
		ID:             uuid.New(),
		PropertyID:     d.PropertyID,
		Platform:       d.Platform,
		Author:         d.Author,
		AuthorLocation: d.AuthorLocation,
		FullText:       d.FullText,
		PositiveText:   d.PositiveText,
		NegativeText:   d.NegativeText,
		Score:          d.Score,
		ScoreEstimated: d.ScoreEstimated,
		PublishedAt:    d.PublishedAt,
		StayType:       d.StayType,
		Fingerprint:    fingerprint,
	}
	r.reviews[rv.ID] = rv
	r.byFingerprint[fingerprint] = rv.ID
	return rv, true, nil
}

func (r *memRepo) GetReviewByFingerprint(_ context.Context, fingerprint string) (domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byFingerprint[fingerprint]
	if !ok {
		return domain.Review{}, domain.ErrNotFound
	}
	return r.reviews[id], nil
}

func (r *memRepo) ClaimUnprocessed(_ context.Context, token string, limit int) ([]domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(r.reviews))
	for id, rv := range r.reviews {
		if !rv.Processed && r.claims[id] == "" {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]domain.Review, 0, len(ids))
	for _, id := range ids {
		r.claims[id] = token
		out = append(out, r.reviews[id])
	}
	return out, nil
}

func (r *memRepo) ReleaseClaim(_ context.Context, reviewID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.claims, reviewID)
	return nil
}

func (r *memRepo) MarkProcessed(_ context.Context, reviewID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[reviewID]
	if !ok {
		return domain.ErrNotFound
	}
	rv.Processed = true
	rv.ProcessedAt = &at
	r.reviews[reviewID] = rv
	delete(r.claims, reviewID)
	return nil
}

// CreateSentiment and CreateClassification mirror the store's replace
// semantics: one row per review (and criterion), reruns overwrite.
func (r *memRepo) CreateSentiment(_ context.Context, s domain.SentimentResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateSentiment != nil {
		if err := r.failCreateSentiment(s.ReviewID); err != nil {
			return err
		}
	}
	r.sentiments[s.ReviewID] = s
	return nil
}

func (r *memRepo) CreateClassification(_ context.Context, c domain.CriterionClassification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateClassification != nil {
		if err := r.failCreateClassification(c.ReviewID); err != nil {
			return err
		}
	}
	for i, old := range r.classifications {
		if old.ReviewID == c.ReviewID && old.CriterionID == c.CriterionID {
			r.classifications[i] = c
			return nil
		}
	}
	r.classifications = append(r.classifications, c)
	return nil
}

func (r *memRepo) ListProcessedReviews(_ context.Context, propertyID uuid.UUID, w domain.Window) ([]domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Review
	for _, rv := range r.reviews {
		if !rv.Processed || rv.PropertyID != propertyID {
			continue
		}
		if rv.PublishedAt != nil && !w.Contains(*rv.PublishedAt) {
			continue
		}
		out = append(out, rv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memRepo) SentimentsByReview(_ context.Context, reviewIDs []uuid.UUID) (map[uuid.UUID]domain.SentimentResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uuid.UUID]domain.SentimentResult{}
	for _, id := range reviewIDs {
		if s, ok := r.sentiments[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (r *memRepo) ClassificationsByReview(_ context.Context, reviewIDs []uuid.UUID) ([]domain.CriterionClassification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range reviewIDs {
		want[id] = true
	}
	var out []domain.CriterionClassification
	for _, c := range r.classifications {
		if want[c.ReviewID] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) PlatformCounts(_ context.Context, w domain.Window) (map[domain.Platform]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[domain.Platform]int{}
	for _, rv := range r.reviews {
		if !rv.Processed {
			continue
		}
		if rv.PublishedAt != nil && !w.Contains(*rv.PublishedAt) {
			continue
		}
		out[rv.Platform]++
	}
	return out, nil
}

func (r *memRepo) UpsertIndicator(_ context.Context, ind domain.AggregateIndicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, old := range r.indicators {
		if old.PropertyID == ind.PropertyID && old.WindowStart.Equal(ind.WindowStart) && old.WindowEnd.Equal(ind.WindowEnd) {
			r.indicators[i] = ind
			return nil
		}
	}
	r.indicators = append(r.indicators, ind)
	return nil
}

// fakeAgent serves canned records per platform.
type fakeAgent struct {
	records map[domain.Platform][]map[string]any
	err     error
}

func (a *fakeAgent) FetchRecords(_ context.Context, p domain.Platform, limit int) ([]map[string]any, error) {
	if a.err != nil {
		return nil, a.err
	}
	recs := a.records[p]
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// fakeCache is a JSON round-tripping in-memory cache.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
	dels int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	c.sets++
	return nil
}

func (c *fakeCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	c.dels++
	return nil
}

func ptr[T any](v T) *T { return &v }
