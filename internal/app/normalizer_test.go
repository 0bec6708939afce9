package app_test

import (
	"errors"
	"testing"
	"time"

	"stayscore/internal/app"
	"stayscore/internal/domain"
)

var testNow = time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

func TestNormalizeRecord_GoogleFraction(t *testing.T) {
	nr, err := app.NormalizeRecord(domain.PlatformGoogle, map[string]any{
		"usuario":    "Ana",
		"texto":      "Muy buen hotel",
		"puntuacion": "4/5",
		"fecha":      "hace 2 semanas",
		"hotel":      "Hotel Central",
	}, testNow)
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if nr.PropertyName != "Hotel Central" {
		t.Fatalf("property = %q", nr.PropertyName)
	}
	if nr.Draft.Score == nil || *nr.Draft.Score != 4.0 {
		t.Fatalf("score = %v, want 4.0", nr.Draft.Score)
	}
	if nr.Draft.ScoreEstimated {
		t.Fatal("score should not be flagged as estimated")
	}
	if want := testNow.AddDate(0, 0, -14); !nr.Draft.PublishedAt.Equal(want) {
		t.Fatalf("published_at = %v, want %v", nr.Draft.PublishedAt, want)
	}
	if nr.Draft.FullText == nil || *nr.Draft.FullText != "Muy buen hotel" {
		t.Fatalf("full text = %v", nr.Draft.FullText)
	}
}

func TestNormalizeRecord_BookingCommaDecimal(t *testing.T) {
	nr, err := app.NormalizeRecord(domain.PlatformBooking, map[string]any{
		"usuario":    "Luis",
		"positivo":   "Desayuno excelente",
		"negativo":   "Algo de ruido",
		"puntuacion": "8,0",
		"registro":   "Fecha del comentario: 18 de septiembre de 2025",
		"hotel":      "Hotel Central",
	}, testNow)
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if nr.Draft.Score == nil || *nr.Draft.Score != 4.0 {
		t.Fatalf("score = %v, want 4.0 (8,0 halved)", nr.Draft.Score)
	}
	if nr.Draft.FullText != nil {
		t.Fatalf("booking records carry split text, got full text %q", *nr.Draft.FullText)
	}
	if nr.Draft.PositiveText == nil || *nr.Draft.PositiveText != "Desayuno excelente" {
		t.Fatalf("positive = %v", nr.Draft.PositiveText)
	}
	if nr.Draft.NegativeText == nil || *nr.Draft.NegativeText != "Algo de ruido" {
		t.Fatalf("negative = %v", nr.Draft.NegativeText)
	}
	if want := time.Date(2025, 9, 18, 0, 0, 0, 0, time.UTC); !nr.Draft.PublishedAt.Equal(want) {
		t.Fatalf("published_at = %v, want %v", nr.Draft.PublishedAt, want)
	}
}

func TestNormalizeRecord_AirbnbPassthrough(t *testing.T) {
	nr, err := app.NormalizeRecord(domain.PlatformAirbnb, map[string]any{
		"nombre":             "Marta",
		"ubicacion":          "Sevilla, España",
		"comentario":         "Alojamiento precioso",
		"puntuacion":         4.5,
		"fecha":              "agosto de 2025",
		"tipo_estadia":       "Viaje en familia",
		"room_id":            "12345",
		"titulo_alojamiento": "Loft Ecológico",
	}, testNow)
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if nr.Draft.Score == nil || *nr.Draft.Score != 4.5 {
		t.Fatalf("score = %v, want 4.5", nr.Draft.Score)
	}
	if nr.PropertyName != "Loft Ecológico" || nr.ListingID != "12345" {
		t.Fatalf("property linkage = %q / %q", nr.PropertyName, nr.ListingID)
	}
	if nr.Draft.AuthorLocation == nil || *nr.Draft.AuthorLocation != "Sevilla, España" {
		t.Fatalf("author location = %v", nr.Draft.AuthorLocation)
	}
	if nr.Draft.StayType == nil || *nr.Draft.StayType != "Viaje en familia" {
		t.Fatalf("stay type = %v", nr.Draft.StayType)
	}
}

func TestNormalizeRecord_MalformedScore(t *testing.T) {
	_, err := app.NormalizeRecord(domain.PlatformGoogle, map[string]any{
		"usuario":    "X",
		"texto":      "ok",
		"puntuacion": "cinco estrellas",
		"hotel":      "Hotel Central",
	}, testNow)
	if !errors.Is(err, domain.ErrMalformedRecord) {
		t.Fatalf("err = %v, want ErrMalformedRecord", err)
	}
}

func TestNormalizeRecord_UnknownScaleFallsBackToNeutral(t *testing.T) {
	nr, err := app.NormalizeRecord(domain.PlatformTripadvisor, map[string]any{
		"usuario":    "Y",
		"texto":      "regular",
		"puntuacion": "Excelente",
		"hotel":      "Hotel Central",
	}, testNow)
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if nr.Draft.Score == nil || *nr.Draft.Score != 3.0 || !nr.Draft.ScoreEstimated {
		t.Fatalf("score = %v estimated=%v, want estimated 3.0", nr.Draft.Score, nr.Draft.ScoreEstimated)
	}
}

func TestNormalizeRecord_MissingScoreStaysUnscored(t *testing.T) {
	nr, err := app.NormalizeRecord(domain.PlatformGoogle, map[string]any{
		"usuario": "Z",
		"texto":   "sin nota",
		"hotel":   "Hotel Central",
	}, testNow)
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if nr.Draft.Score != nil {
		t.Fatalf("score = %v, want nil", *nr.Draft.Score)
	}
	if nr.Draft.ScoreEstimated {
		t.Fatal("missing score must not be flagged estimated")
	}
}

func TestNormalizeRecord_NAPlaceholderIsAbsent(t *testing.T) {
	nr, err := app.NormalizeRecord(domain.PlatformGoogle, map[string]any{
		"usuario": "N/A",
		"texto":   "N/A",
		"hotel":   "Hotel Central",
	}, testNow)
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if nr.Draft.Author != nil || nr.Draft.FullText != nil {
		t.Fatalf("N/A placeholders must map to nil, got author=%v text=%v", nr.Draft.Author, nr.Draft.FullText)
	}
}

func TestNormalizeRecord_UnsupportedPlatform(t *testing.T) {
	_, err := app.NormalizeRecord(domain.Platform("YELP"), map[string]any{}, testNow)
	if !errors.Is(err, domain.ErrMalformedRecord) {
		t.Fatalf("err = %v, want ErrMalformedRecord", err)
	}
}
