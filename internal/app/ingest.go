package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"stayscore/internal/adapters/observability"
	"stayscore/internal/domain"
)

// Fingerprint derives the content hash a review is deduplicated on: the
// combined text when present, otherwise the positive and negative parts
// concatenated. Reviews with no text at all hash an identity tuple so two
// distinct empty reviews do not collapse into one.
func Fingerprint(d domain.ReviewDraft) string {
	text := ""
	if d.FullText != nil {
		text = *d.FullText
	}
	if strings.TrimSpace(text) == "" {
		text = deref(d.PositiveText) + deref(d.NegativeText)
	}
	if strings.TrimSpace(text) == "" {
		ts := ""
		if d.PublishedAt != nil {
			ts = d.PublishedAt.UTC().Format(time.RFC3339)
		}
		text = strings.Join([]string{deref(d.Author), d.PropertyID.String(), string(d.Platform), ts}, "|")
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IngestionService pulls raw records from the scraper agents, normalizes
// them and lands them behind the dedup gate.
type IngestionService struct {
	agent domain.AgentClient
	repo  domain.ReviewRepository
	cache domain.Cache
	now   func() time.Time
}

func NewIngestionService(agent domain.AgentClient, repo domain.ReviewRepository, cache domain.Cache) *IngestionService {
	return &IngestionService{agent: agent, repo: repo, cache: cache, now: time.Now}
}

// IngestReport summarizes one platform run. Errors carries one line per
// skipped record; skips never abort the batch.
type IngestReport struct {
	Platform   domain.Platform
	Fetched    int
	New        int
	Duplicates int
	Skipped    int
	Errors     []string
}

// IngestPlatform fetches up to limit records for one platform and lands
// them. Malformed records and unknown properties are skipped and reported;
// fetch and store failures abort the batch.
func (s *IngestionService) IngestPlatform(ctx context.Context, p domain.Platform, limit int) (IngestReport, error) {
	rep := IngestReport{Platform: p}

	records, err := s.agent.FetchRecords(ctx, p, limit)
	if err != nil {
		return rep, fmt.Errorf("fetch %s records: %w", p, err)
	}
	rep.Fetched = len(records)

	touched := map[string]struct{}{}
	for i, rec := range records {
		rv, created, err := s.ingestOne(ctx, p, rec)
		if err != nil {
			if errors.Is(err, domain.ErrMalformedRecord) || errors.Is(err, domain.ErrUnknownProperty) {
				rep.Skipped++
				rep.Errors = append(rep.Errors, fmt.Sprintf("record %d: %v", i, err))
				observability.ObserveIngest(string(p), "skipped")
				log.Warn().Str("platform", string(p)).Int("record", i).Err(err).Msg("record skipped")
				continue
			}
			return rep, fmt.Errorf("store record %d: %w", i, err)
		}
		if created {
			rep.New++
			observability.ObserveIngest(string(p), "new")
		} else {
			rep.Duplicates++
			observability.ObserveIngest(string(p), "duplicate")
		}
		touched[rv.PropertyID.String()] = struct{}{}
	}

	for id := range touched {
		s.invalidateProperty(ctx, id)
	}
	if len(touched) > 0 {
		s.invalidateGlobal(ctx)
	}

	log.Info().
		Str("platform", string(p)).
		Int("fetched", rep.Fetched).
		Int("new", rep.New).
		Int("duplicates", rep.Duplicates).
		Int("skipped", rep.Skipped).
		Msg("platform ingested")
	return rep, nil
}

func (s *IngestionService) ingestOne(ctx context.Context, p domain.Platform, rec map[string]any) (domain.Review, bool, error) {
	nr, err := NormalizeRecord(p, rec, s.now())
	if err != nil {
		return domain.Review{}, false, err
	}
	if nr.PropertyName == "" {
		return domain.Review{}, false, fmt.Errorf("%w: record names no property", domain.ErrUnknownProperty)
	}
	prop, err := s.repo.FindPropertyByName(ctx, nr.PropertyName)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Review{}, false, fmt.Errorf("%w: %q", domain.ErrUnknownProperty, nr.PropertyName)
	}
	if err != nil {
		return domain.Review{}, false, err
	}
	nr.Draft.PropertyID = prop.ID
	return s.repo.CreateReview(ctx, nr.Draft, Fingerprint(nr.Draft))
}

func (s *IngestionService) invalidateProperty(ctx context.Context, propertyID string) {
	if s.cache == nil {
		return
	}
	for _, key := range propertyCacheKeys(propertyID) {
		if err := s.cache.Del(ctx, key); err != nil {
			log.Debug().Str("key", key).Err(err).Msg("cache invalidation failed")
		}
	}
}

func (s *IngestionService) invalidateGlobal(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, key := range globalCacheKeys() {
		if err := s.cache.Del(ctx, key); err != nil {
			log.Debug().Str("key", key).Err(err).Msg("cache invalidation failed")
		}
	}
}
