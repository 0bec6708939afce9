package mysql

const insertReviewSQL = `
INSERT INTO reviews
  (id, property_id, platform, author, author_location, full_text, positive_text,
   negative_text, score, score_estimated, published_at, stay_type, fingerprint)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectReviewCols = `
  id, property_id, platform, author, author_location, full_text, positive_text,
  negative_text, score, score_estimated, published_at, stay_type, fingerprint,
  processed, processed_at
`

const getReviewByFingerprintSQL = `
SELECT ` + selectReviewCols + `
FROM reviews
WHERE fingerprint = ?
`

// claimSQL tags a batch in one statement so two workers never share a
// review. Claims whose holder went away (claimed_at older than the
// staleness cutoff) are up for grabs again.
const claimSQL = `
UPDATE reviews
SET claim_token = ?, claimed_at = ?
WHERE processed = 0 AND (claim_token IS NULL OR claimed_at < ?)
ORDER BY created_at, id
LIMIT ?
`

const selectClaimedSQL = `
SELECT ` + selectReviewCols + `
FROM reviews
WHERE claim_token = ?
ORDER BY created_at, id
`

const releaseClaimSQL = `
UPDATE reviews SET claim_token = NULL, claimed_at = NULL WHERE id = ?
`

// processed flips exactly once; a second call is a no-op.
const markProcessedSQL = `
UPDATE reviews
SET processed = 1, processed_at = ?, claim_token = NULL, claimed_at = NULL
WHERE id = ? AND processed = 0
`

// A retried review re-runs its whole classification, so result writes
// replace any rows a failed earlier pass left behind instead of
// tripping the unique keys.
const upsertSentimentSQL = `
INSERT INTO sentiments
  (id, review_id, label, positive, negative, neutral, compound, confidence)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  label      = VALUES(label),
  positive   = VALUES(positive),
  negative   = VALUES(negative),
  neutral    = VALUES(neutral),
  compound   = VALUES(compound),
  confidence = VALUES(confidence)
`

const upsertClassificationSQL = `
INSERT INTO classifications
  (id, review_id, criterion_id, valuation, confidence, matched_keywords)
VALUES
  (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  valuation        = VALUES(valuation),
  confidence       = VALUES(confidence),
  matched_keywords = VALUES(matched_keywords)
`

const upsertIndicatorSQL = `
INSERT INTO indicators
  (property_id, window_start, window_end, review_count, criterion_averages,
   overall_average, positive_count, negative_count, neutral_count)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  review_count       = VALUES(review_count),
  criterion_averages = VALUES(criterion_averages),
  overall_average    = VALUES(overall_average),
  positive_count     = VALUES(positive_count),
  negative_count     = VALUES(negative_count),
  neutral_count      = VALUES(neutral_count),
  computed_at        = CURRENT_TIMESTAMP
`

const upsertPropertySQL = `
INSERT INTO properties (id, name, city, active)
VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  city   = VALUES(city),
  active = VALUES(active)
`

const upsertCriterionSQL = `
INSERT INTO criteria (id, code, name, weight, keywords, active)
VALUES (?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name     = VALUES(name),
  weight   = VALUES(weight),
  keywords = VALUES(keywords),
  active   = VALUES(active)
`
