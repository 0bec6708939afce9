package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"stayscore/internal/domain"
)

// NormalizedRecord is a raw agent record mapped into the canonical draft
// shape. PropertyID on the draft is unresolved here; ingestion resolves
// PropertyName against the catalog.
type NormalizedRecord struct {
	Draft        domain.ReviewDraft
	PropertyName string
	ListingID    string
}

// The agents emit loosely structured JSON whose field names drift per
// platform and per scraper revision, mixing Spanish and English. Each
// concept maps to an ordered alias list; first non-empty value wins.
var recordAliases = map[domain.Platform]map[string][]string{
	domain.PlatformGoogle: {
		"author":   {"usuario", "autor", "author", "reviewer"},
		"text":     {"texto", "comentario", "text", "review_text"},
		"score":    {"puntuacion", "puntuación", "calificacion", "rating", "score"},
		"date":     {"fecha", "date", "published_at"},
		"property": {"hotel", "nombre_hotel", "property", "hotel_name"},
	},
	domain.PlatformBooking: {
		"author":   {"usuario", "autor", "author"},
		"positive": {"positivo", "comentario_positivo", "positive", "pros"},
		"negative": {"negativo", "comentario_negativo", "negative", "cons"},
		"score":    {"puntuacion", "puntuación", "nota", "rating", "score"},
		"date":     {"registro", "fecha", "date"},
		"property": {"hotel", "nombre_hotel", "property", "hotel_name"},
	},
	domain.PlatformAirbnb: {
		"author":    {"nombre", "usuario", "author", "name"},
		"location":  {"ubicacion", "ubicación", "location"},
		"text":      {"comentario", "texto", "text", "comment"},
		"score":     {"puntuacion", "puntuación", "rating", "score"},
		"date":      {"fecha", "date"},
		"stay_type": {"tipo_estadia", "tipo_estancia", "stay_type"},
		"listing":   {"room_id", "listing_id"},
		"property":  {"titulo_alojamiento", "alojamiento", "listing_title", "property"},
	},
	domain.PlatformTripadvisor: {
		"author":   {"usuario", "autor", "author", "username"},
		"location": {"ubicacion", "ubicación", "location"},
		"text":     {"texto", "comentario", "text", "review"},
		"score":    {"puntuacion", "puntuación", "rating", "score", "bubbles"},
		"date":     {"fecha", "date", "published"},
		"property": {"hotel", "establecimiento", "property", "location_name"},
	},
}

// NormalizeRecord maps one raw record into the canonical draft. It returns
// ErrMalformedRecord when the platform is unsupported or a present score
// cannot be read on a platform with a known scale.
func NormalizeRecord(p domain.Platform, rec map[string]any, now time.Time) (NormalizedRecord, error) {
	aliases, ok := recordAliases[p]
	if !ok {
		return NormalizedRecord{}, fmt.Errorf("%w: unsupported platform %q", domain.ErrMalformedRecord, p)
	}

	nr := NormalizedRecord{Draft: domain.ReviewDraft{Platform: p}}
	nr.Draft.Author = strPtrField(rec, aliases["author"])
	nr.Draft.AuthorLocation = strPtrField(rec, aliases["location"])
	nr.Draft.StayType = strPtrField(rec, aliases["stay_type"])
	nr.PropertyName = strField(rec, aliases["property"])
	nr.ListingID = strField(rec, aliases["listing"])

	if p == domain.PlatformBooking {
		nr.Draft.PositiveText = strPtrField(rec, aliases["positive"])
		nr.Draft.NegativeText = strPtrField(rec, aliases["negative"])
	} else {
		nr.Draft.FullText = strPtrField(rec, aliases["text"])
	}

	if raw := anyField(rec, aliases["score"]); raw != nil {
		score, estimated, err := rescaleScore(p, raw)
		if err != nil {
			return NormalizedRecord{}, err
		}
		nr.Draft.Score = &score
		nr.Draft.ScoreEstimated = estimated
	}

	published := ResolveTimestamp(strField(rec, aliases["date"]), now)
	nr.Draft.PublishedAt = &published

	return nr, nil
}

// rescaleScore converts a platform-native score onto the 1-5 scale.
// Google reports "4/5" fractions, Booking a 0-10 score with a comma
// decimal separator, Airbnb is already 1-5. Platforms without a known
// scale fall back to the neutral 3.0 when the value is not numeric.
func rescaleScore(p domain.Platform, raw any) (float64, bool, error) {
	switch p {
	case domain.PlatformGoogle:
		s := anyToString(raw)
		if i := strings.IndexByte(s, '/'); i >= 0 {
			s = s[:i]
		}
		f, err := parseDecimal(s)
		if err != nil {
			return 0, false, fmt.Errorf("%w: google score %q", domain.ErrMalformedRecord, anyToString(raw))
		}
		return f, false, nil
	case domain.PlatformBooking:
		f, err := parseDecimal(anyToString(raw))
		if err != nil {
			return 0, false, fmt.Errorf("%w: booking score %q", domain.ErrMalformedRecord, anyToString(raw))
		}
		return f / 2, false, nil
	case domain.PlatformAirbnb:
		f, err := parseDecimal(anyToString(raw))
		if err != nil {
			return 0, false, fmt.Errorf("%w: airbnb score %q", domain.ErrMalformedRecord, anyToString(raw))
		}
		return f, false, nil
	default:
		if f, err := parseDecimal(anyToString(raw)); err == nil {
			return f, false, nil
		}
		return 3.0, true, nil
	}
}

// parseDecimal accepts both "4.5" and the Spanish "4,5".
func parseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	return strconv.ParseFloat(s, 64)
}

func anyToString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// anyField returns the first non-nil value among the aliases.
func anyField(rec map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// strField returns the first non-empty string value among the aliases.
// Literal "N/A" placeholders from the scrapers count as absent.
func strField(rec map[string]any, keys []string) string {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(anyToString(v))
		if s == "" || strings.EqualFold(s, "N/A") {
			continue
		}
		return s
	}
	return ""
}

func strPtrField(rec map[string]any, keys []string) *string {
	if s := strField(rec, keys); s != "" {
		return &s
	}
	return nil
}
