package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"stayscore/internal/adapters/observability"
	"stayscore/internal/domain"
	"stayscore/internal/nlp"
)

// ProcessingService drains unprocessed reviews through sentiment scoring
// and criterion classification.
type ProcessingService struct {
	repo   domain.ReviewRepository
	scorer *nlp.Scorer
	labels nlp.Thresholds
	// fallbackKeywords backs criteria whose keyword list is empty,
	// keyed by criterion code. Criteria with neither source are skipped.
	fallbackKeywords map[string][]string
	workers          int64
	cache            domain.Cache
	now              func() time.Time
}

func NewProcessingService(repo domain.ReviewRepository, scorer *nlp.Scorer, labels nlp.Thresholds, fallbackKeywords map[string][]string, workers int, cache domain.Cache) *ProcessingService {
	if workers <= 0 {
		workers = 4
	}
	return &ProcessingService{
		repo:             repo,
		scorer:           scorer,
		labels:           labels,
		fallbackKeywords: fallbackKeywords,
		workers:          int64(workers),
		cache:            cache,
		now:              time.Now,
	}
}

type ProcessReport struct {
	Claimed   int
	Processed int
	Failed    int
	Errors    []string
}

// ProcessPending claims up to limit unprocessed reviews under a fresh
// token and classifies them concurrently. A failing review is released
// back to the pool and does not stop the rest of the batch.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int) (ProcessReport, error) {
	var rep ProcessReport

	token := uuid.NewString()
	reviews, err := s.repo.ClaimUnprocessed(ctx, token, limit)
	if err != nil {
		return rep, fmt.Errorf("claim unprocessed: %w", err)
	}
	rep.Claimed = len(reviews)
	if len(reviews) == 0 {
		return rep, nil
	}

	criteria, err := s.repo.ListActiveCriteria(ctx)
	if err != nil {
		s.releaseAll(ctx, reviews)
		return rep, fmt.Errorf("list criteria: %w", err)
	}

	sem := semaphore.NewWeighted(s.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	touched := map[string]struct{}{}

	for _, rv := range reviews {
		rv := rv
		if err := sem.Acquire(ctx, 1); err != nil {
			_ = s.repo.ReleaseClaim(context.WithoutCancel(ctx), rv.ID)
			mu.Lock()
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Sprintf("review %s: %v", rv.ID, err))
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			if err := s.processOne(ctx, rv, criteria); err != nil {
				_ = s.repo.ReleaseClaim(context.WithoutCancel(ctx), rv.ID)
				mu.Lock()
				rep.Failed++
				rep.Errors = append(rep.Errors, fmt.Sprintf("review %s: %v", rv.ID, err))
				mu.Unlock()
				observability.ObserveProcessing("failed")
				log.Warn().Str("review_id", rv.ID.String()).Err(err).Msg("review processing failed")
				return
			}
			mu.Lock()
			rep.Processed++
			touched[rv.PropertyID.String()] = struct{}{}
			mu.Unlock()
			observability.ObserveProcessing("processed")
		}()
	}
	wg.Wait()

	if s.cache != nil && len(touched) > 0 {
		for id := range touched {
			for _, key := range propertyCacheKeys(id) {
				_ = s.cache.Del(ctx, key)
			}
		}
		for _, key := range globalCacheKeys() {
			_ = s.cache.Del(ctx, key)
		}
	}

	log.Info().
		Int("claimed", rep.Claimed).
		Int("processed", rep.Processed).
		Int("failed", rep.Failed).
		Msg("processing batch done")
	return rep, nil
}

func (s *ProcessingService) processOne(ctx context.Context, rv domain.Review, criteria []domain.Criterion) error {
	text := rv.Text()
	scores := s.scorer.Score(text)

	sent := domain.SentimentResult{
		ID:         uuid.New(),
		ReviewID:   rv.ID,
		Label:      s.labels.Label(scores.Compound),
		Positive:   scores.Positive,
		Negative:   scores.Negative,
		Neutral:    scores.Neutral,
		Compound:   scores.Compound,
		Confidence: nlp.Confidence(scores),
	}
	if err := s.repo.CreateSentiment(ctx, sent); err != nil {
		return fmt.Errorf("store sentiment: %w", err)
	}

	for _, cr := range criteria {
		keywords := cr.Keywords
		if len(keywords) == 0 {
			keywords = s.fallbackKeywords[cr.Code]
		}
		if len(keywords) == 0 {
			log.Debug().Str("criterion", cr.Code).Msg("criterion has no keywords, skipped")
			continue
		}
		res := nlp.ClassifyCriterion(s.scorer, text, keywords)
		cl := domain.CriterionClassification{
			ID:              uuid.New(),
			ReviewID:        rv.ID,
			CriterionID:     cr.ID,
			Valuation:       res.Valuation,
			Confidence:      res.Confidence,
			MatchedKeywords: res.Matched,
		}
		if err := s.repo.CreateClassification(ctx, cl); err != nil {
			return fmt.Errorf("store classification %s: %w", cr.Code, err)
		}
	}

	return s.repo.MarkProcessed(ctx, rv.ID, s.now())
}

func (s *ProcessingService) releaseAll(ctx context.Context, reviews []domain.Review) {
	for _, rv := range reviews {
		if err := s.repo.ReleaseClaim(context.WithoutCancel(ctx), rv.ID); err != nil {
			log.Warn().Str("review_id", rv.ID.String()).Err(err).Msg("claim release failed")
		}
	}
}
