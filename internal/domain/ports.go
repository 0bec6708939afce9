package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownProperty = errors.New("unknown property")
	ErrMalformedRecord = errors.New("malformed record")
)

type ReviewRepository interface {
	// Entities & configuration (read-only for the pipeline)
	GetProperty(ctx context.Context, id uuid.UUID) (Property, error)
	FindPropertyByName(ctx context.Context, name string) (Property, error)
	ListActiveProperties(ctx context.Context) ([]Property, error)
	ListActiveCriteria(ctx context.Context) ([]Criterion, error)
	GetCriterionByCode(ctx context.Context, code string) (Criterion, error)

	// Write path
	// CreateReview inserts the draft under the given fingerprint, or returns
	// the pre-existing review with that fingerprint. created reports which.
	CreateReview(ctx context.Context, d ReviewDraft, fingerprint string) (Review, bool, error)
	GetReviewByFingerprint(ctx context.Context, fingerprint string) (Review, error)
	// ClaimUnprocessed atomically tags up to limit unprocessed, unclaimed
	// reviews with token and returns them; two concurrent callers never
	// receive the same review.
	ClaimUnprocessed(ctx context.Context, token string, limit int) ([]Review, error)
	ReleaseClaim(ctx context.Context, reviewID uuid.UUID) error
	MarkProcessed(ctx context.Context, reviewID uuid.UUID, at time.Time) error
	// CreateSentiment and CreateClassification replace any earlier row for
	// the same review (and criterion), so re-running classification after a
	// partial failure never collides with rows the failed pass left behind.
	CreateSentiment(ctx context.Context, s SentimentResult) error
	CreateClassification(ctx context.Context, c CriterionClassification) error

	// Read path (aggregation)
	ListProcessedReviews(ctx context.Context, propertyID uuid.UUID, w Window) ([]Review, error)
	SentimentsByReview(ctx context.Context, reviewIDs []uuid.UUID) (map[uuid.UUID]SentimentResult, error)
	ClassificationsByReview(ctx context.Context, reviewIDs []uuid.UUID) ([]CriterionClassification, error)
	PlatformCounts(ctx context.Context, w Window) (map[Platform]int, error)
	UpsertIndicator(ctx context.Context, ind AggregateIndicator) error
}

// AgentClient pulls raw per-platform records from the scraper agents.
type AgentClient interface {
	FetchRecords(ctx context.Context, p Platform, limit int) ([]map[string]any, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
