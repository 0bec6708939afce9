//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"stayscore/internal/adapters/http_server"
	"stayscore/internal/app"
	"stayscore/internal/domain"
	mysqlrepo "stayscore/internal/storage/mysql"
)

// ---------- helpers ----------
func pstr(s string) *string        { return &s }
func pfloat(f float64) *float64    { return &f }
func ptime(t time.Time) *time.Time { return &t }

func mustEnv(t *testing.T, k string) string {
	t.Helper()
	v := os.Getenv(k)
	if v == "" {
		t.Fatalf("%s not set; export it (e.g. MIGRATIONS_DIR=/path/to/sql)", k)
	}
	return v
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := mustEnv(t, "MIGRATIONS_DIR")

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// ---------- the test ----------
func TestHTTP_EndToEnd_Summary(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=stayscore",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "stayscore")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// Seed: one property, two processed reviews with sentiments
	prop := domain.Property{ID: uuid.New(), Name: "Hotel E2E", City: pstr("Granada"), Active: true}
	if err := repo.UpsertProperty(ctx, prop); err != nil {
		t.Fatalf("UpsertProperty: %v", err)
	}

	at := time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC)
	seed := []struct {
		text     string
		score    float64
		label    domain.SentimentLabel
		compound float64
	}{
		{"Hotel excelente, muy limpio", 5.0, domain.SentimentPositive, 0.7},
		{"Demasiado ruido por la noche", 2.0, domain.SentimentNegative, -0.5},
	}
	for i, s := range seed {
		rv, created, err := repo.CreateReview(ctx, domain.ReviewDraft{
			PropertyID:  prop.ID,
			Platform:    domain.PlatformGoogle,
			FullText:    pstr(s.text),
			Score:       pfloat(s.score),
			PublishedAt: ptime(at.AddDate(0, 0, i)),
		}, fmt.Sprintf("e2e-fp-%d", i))
		if err != nil || !created {
			t.Fatalf("seed review %d: created=%v err=%v", i, created, err)
		}
		if err := repo.CreateSentiment(ctx, domain.SentimentResult{
			ID: uuid.New(), ReviewID: rv.ID, Label: s.label, Compound: s.compound,
		}); err != nil {
			t.Fatalf("seed sentiment %d: %v", i, err)
		}
		if err := repo.MarkProcessed(ctx, rv.ID, time.Now().UTC()); err != nil {
			t.Fatalf("seed processed %d: %v", i, err)
		}
	}

	// Real router and handlers over the real repo; no cache
	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Agg: app.NewAggregationService(repo, nil, time.Minute)})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	res, err := http.Get(fmt.Sprintf("%s/v1/properties/%s/summary", ts.URL, prop.ID))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if etag := res.Header.Get("ETag"); etag == "" {
		t.Fatal("expected ETag header")
	}

	var body struct {
		ReviewCount    int     `json:"review_count"`
		OverallAverage float64 `json:"overall_average"`
		PositiveCount  int     `json:"positive_count"`
		NegativeCount  int     `json:"negative_count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ReviewCount != 2 || body.OverallAverage != 3.5 || body.PositiveCount != 1 || body.NegativeCount != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}
