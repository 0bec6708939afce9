package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"stayscore/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- catalog ----

func (r *Repo) GetProperty(ctx context.Context, id uuid.UUID) (domain.Property, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, city, active FROM properties WHERE id = ?`, id.String())
	return scanProperty(row)
}

func (r *Repo) FindPropertyByName(ctx context.Context, name string) (domain.Property, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, city, active FROM properties WHERE name = ?`, name)
	return scanProperty(row)
}

func scanProperty(row *sql.Row) (domain.Property, error) {
	var p domain.Property
	var id string
	var city sql.NullString
	if err := row.Scan(&id, &p.Name, &city, &p.Active); err != nil {
		if err == sql.ErrNoRows {
			return domain.Property{}, domain.ErrNotFound
		}
		return domain.Property{}, err
	}
	p.ID, _ = uuid.Parse(id)
	if city.Valid {
		c := city.String
		p.City = &c
	}
	return p, nil
}

func (r *Repo) ListActiveProperties(ctx context.Context) ([]domain.Property, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, city, active FROM properties WHERE active = 1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		var p domain.Property
		var id string
		var city sql.NullString
		if err := rows.Scan(&id, &p.Name, &city, &p.Active); err != nil {
			return nil, err
		}
		p.ID, _ = uuid.Parse(id)
		if city.Valid {
			c := city.String
			p.City = &c
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) ListActiveCriteria(ctx context.Context) ([]domain.Criterion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, code, name, weight, keywords, active FROM criteria WHERE active = 1 ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Criterion
	for rows.Next() {
		c, err := scanCriterion(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) GetCriterionByCode(ctx context.Context, code string) (domain.Criterion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, code, name, weight, keywords, active FROM criteria WHERE code = ?`, code)
	c, err := scanCriterion(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Criterion{}, domain.ErrNotFound
	}
	return c, err
}

func scanCriterion(scan func(...any) error) (domain.Criterion, error) {
	var c domain.Criterion
	var id string
	var keywordsJSON sql.NullString
	if err := scan(&id, &c.Code, &c.Name, &c.Weight, &keywordsJSON, &c.Active); err != nil {
		return domain.Criterion{}, err
	}
	c.ID, _ = uuid.Parse(id)
	if keywordsJSON.Valid && keywordsJSON.String != "" {
		_ = json.Unmarshal([]byte(keywordsJSON.String), &c.Keywords)
	}
	return c, nil
}

// ---- write path ----

func (r *Repo) CreateReview(ctx context.Context, d domain.ReviewDraft, fingerprint string) (domain.Review, bool, error) {
	id := uuid.New()
	_, err := r.db.ExecContext(ctx, insertReviewSQL,
		id.String(),
		d.PropertyID.String(),
		string(d.Platform),
		valStr(d.Author),
		valStr(d.AuthorLocation),
		valStr(d.FullText),
		valStr(d.PositiveText),
		valStr(d.NegativeText),
		valF64(d.Score),
		d.ScoreEstimated,
		valTime(d.PublishedAt),
		valStr(d.StayType),
		fingerprint,
	)
	if err != nil {
		// a concurrent writer may land the same fingerprint first; the
		// unique index is the arbiter, the loser returns the winner's row
		if isDuplicateKey(err) {
			existing, gerr := r.GetReviewByFingerprint(ctx, fingerprint)
			if gerr != nil {
				return domain.Review{}, false, gerr
			}
			return existing, false, nil
		}
		return domain.Review{}, false, err
	}

	rv := domain.Review{
		ID:             id,
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
	return rv, true, nil
}

func (r *Repo) GetReviewByFingerprint(ctx context.Context, fingerprint string) (domain.Review, error) {
	row := r.db.QueryRowContext(ctx, getReviewByFingerprintSQL, fingerprint)
	rv, err := scanReview(row.Scan)
	if err == sql.ErrNoRows {
		return domain.Review{}, domain.ErrNotFound
	}
	return rv, err
}

// claimStaleAfter is how long a claim may sit before another worker may
// take it over; the holder is presumed to have crashed between claim
// and release.
const claimStaleAfter = 15 * time.Minute

func (r *Repo) ClaimUnprocessed(ctx context.Context, token string, limit int) ([]domain.Review, error) {
	now := time.Now().UTC()
	if _, err := r.db.ExecContext(ctx, claimSQL, token, now, now.Add(-claimStaleAfter), limit); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, selectClaimedSQL, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repo) ReleaseClaim(ctx context.Context, reviewID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, releaseClaimSQL, reviewID.String())
	return err
}

func (r *Repo) MarkProcessed(ctx context.Context, reviewID uuid.UUID, at time.Time) error {
	_, err := r.db.ExecContext(ctx, markProcessedSQL, at.UTC(), reviewID.String())
	return err
}

func (r *Repo) CreateSentiment(ctx context.Context, s domain.SentimentResult) error {
	_, err := r.db.ExecContext(ctx, upsertSentimentSQL,
		s.ID.String(), s.ReviewID.String(), string(s.Label),
		s.Positive, s.Negative, s.Neutral, s.Compound, s.Confidence)
	return err
}

func (r *Repo) CreateClassification(ctx context.Context, c domain.CriterionClassification) error {
	matched, _ := json.Marshal(c.MatchedKeywords)
	_, err := r.db.ExecContext(ctx, upsertClassificationSQL,
		c.ID.String(), c.ReviewID.String(), c.CriterionID.String(),
		c.Valuation, c.Confidence, string(matched))
	return err
}

// ---- read path ----

func (r *Repo) ListProcessedReviews(ctx context.Context, propertyID uuid.UUID, w domain.Window) ([]domain.Review, error) {
	q := `SELECT ` + selectReviewCols + ` FROM reviews WHERE property_id = ? AND processed = 1`
	args := []any{propertyID.String()}
	q, args = appendWindow(q, args, w)
	q += ` ORDER BY published_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

func (r *Repo) SentimentsByReview(ctx context.Context, reviewIDs []uuid.UUID) (map[uuid.UUID]domain.SentimentResult, error) {
	out := map[uuid.UUID]domain.SentimentResult{}
	if len(reviewIDs) == 0 {
		return out, nil
	}
	q := `SELECT id, review_id, label, positive, negative, neutral, compound, confidence
FROM sentiments WHERE review_id IN (` + placeholders(len(reviewIDs)) + `)`
	rows, err := r.db.QueryContext(ctx, q, idArgs(reviewIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s domain.SentimentResult
		var id, reviewID, label string
		if err := rows.Scan(&id, &reviewID, &label, &s.Positive, &s.Negative, &s.Neutral, &s.Compound, &s.Confidence); err != nil {
			return nil, err
		}
		s.ID, _ = uuid.Parse(id)
		s.ReviewID, _ = uuid.Parse(reviewID)
		s.Label = domain.SentimentLabel(label)
		out[s.ReviewID] = s
	}
	return out, rows.Err()
}

func (r *Repo) ClassificationsByReview(ctx context.Context, reviewIDs []uuid.UUID) ([]domain.CriterionClassification, error) {
	if len(reviewIDs) == 0 {
		return nil, nil
	}
	q := `SELECT id, review_id, criterion_id, valuation, confidence, matched_keywords
FROM classifications WHERE review_id IN (` + placeholders(len(reviewIDs)) + `)`
	rows, err := r.db.QueryContext(ctx, q, idArgs(reviewIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CriterionClassification
	for rows.Next() {
		var c domain.CriterionClassification
		var id, reviewID, criterionID string
		var matched sql.NullString
		if err := rows.Scan(&id, &reviewID, &criterionID, &c.Valuation, &c.Confidence, &matched); err != nil {
			return nil, err
		}
		c.ID, _ = uuid.Parse(id)
		c.ReviewID, _ = uuid.Parse(reviewID)
		c.CriterionID, _ = uuid.Parse(criterionID)
		if matched.Valid && matched.String != "" {
			_ = json.Unmarshal([]byte(matched.String), &c.MatchedKeywords)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) PlatformCounts(ctx context.Context, w domain.Window) (map[domain.Platform]int, error) {
	q := `SELECT platform, COUNT(*) FROM reviews WHERE processed = 1`
	var args []any
	q, args = appendWindow(q, args, w)
	q += ` GROUP BY platform`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[domain.Platform]int{}
	for rows.Next() {
		var p string
		var n int
		if err := rows.Scan(&p, &n); err != nil {
			return nil, err
		}
		out[domain.Platform(p)] = n
	}
	return out, rows.Err()
}

func (r *Repo) UpsertIndicator(ctx context.Context, ind domain.AggregateIndicator) error {
	averages, _ := json.Marshal(ind.CriterionAverages)
	_, err := r.db.ExecContext(ctx, upsertIndicatorSQL,
		ind.PropertyID.String(),
		ind.WindowStart.UTC(), ind.WindowEnd.UTC(),
		ind.ReviewCount, string(averages), ind.OverallAverage,
		ind.PositiveCount, ind.NegativeCount, ind.NeutralCount)
	return err
}

// ---- seeding (catalog management lives outside the pipeline) ----

func (r *Repo) UpsertProperty(ctx context.Context, p domain.Property) error {
	_, err := r.db.ExecContext(ctx, upsertPropertySQL,
		p.ID.String(), p.Name, valStr(p.City), p.Active)
	return err
}

func (r *Repo) UpsertCriterion(ctx context.Context, c domain.Criterion) error {
	keywords, _ := json.Marshal(c.Keywords)
	_, err := r.db.ExecContext(ctx, upsertCriterionSQL,
		c.ID.String(), c.Code, c.Name, c.Weight, string(keywords), c.Active)
	return err
}

// ---- helpers ----

func scanReview(scan func(...any) error) (domain.Review, error) {
	var rv domain.Review
	var id, propertyID, platform string
	var author, location, fullText, positive, negative, stayType sql.NullString
	var score sql.NullFloat64
	var publishedAt, processedAt sql.NullTime
	if err := scan(
		&id, &propertyID, &platform,
		&author, &location, &fullText, &positive, &negative,
		&score, &rv.ScoreEstimated, &publishedAt, &stayType, &rv.Fingerprint,
		&rv.Processed, &processedAt,
	); err != nil {
		return domain.Review{}, err
	}
	rv.ID, _ = uuid.Parse(id)
	rv.PropertyID, _ = uuid.Parse(propertyID)
	rv.Platform = domain.Platform(platform)
	rv.Author = nullStr(author)
	rv.AuthorLocation = nullStr(location)
	rv.FullText = nullStr(fullText)
	rv.PositiveText = nullStr(positive)
	rv.NegativeText = nullStr(negative)
	rv.StayType = nullStr(stayType)
	if score.Valid {
		f := score.Float64
		rv.Score = &f
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		rv.PublishedAt = &t
	}
	if processedAt.Valid {
		t := processedAt.Time
		rv.ProcessedAt = &t
	}
	return rv, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func appendWindow(q string, args []any, w domain.Window) (string, []any) {
	if w.Start != nil {
		q += ` AND published_at >= ?`
		args = append(args, w.Start.UTC())
	}
	if w.End != nil {
		q += ` AND published_at < ?`
		args = append(args, w.End.UTC())
	}
	return q, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
