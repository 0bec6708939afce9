package shared_test

import (
	"os"
	"path/filepath"
	"testing"

	"stayscore/internal/shared"
)

func TestLoad_Defaults(t *testing.T) {
	c := shared.Load()
	if c.HTTPAddr != ":8080" {
		t.Fatalf("http_addr = %q", c.HTTPAddr)
	}
	if c.PositiveThreshold != 0.2 || c.NegativeThreshold != -0.2 {
		t.Fatalf("thresholds = %v / %v", c.PositiveThreshold, c.NegativeThreshold)
	}
	if len(c.CriterionKeywords["SUSTAINABILITY"]) == 0 {
		t.Fatal("expected default sustainability keywords")
	}
	if c.CacheTTL().Seconds() != 900 {
		t.Fatalf("cache ttl = %v", c.CacheTTL())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("http_addr: \":9999\"\nworkers: 2\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("STAYSCORE_CONFIG", path)
	t.Setenv("STAYSCORE_WORKERS", "16")

	c := shared.Load()
	if c.HTTPAddr != ":9999" {
		t.Fatalf("http_addr = %q, want file value", c.HTTPAddr)
	}
	if c.Workers != 16 {
		t.Fatalf("workers = %d, want env override 16", c.Workers)
	}
	// untouched keys keep defaults
	if c.FetchLimit != 100 {
		t.Fatalf("fetch_limit = %d, want default 100", c.FetchLimit)
	}
}
