package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	e, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e.GeneratorAttempts != 2 || e.GeneratorDelay != time.Second || e.GeneratorTimeout != 15*time.Second {
		t.Fatalf("generator defaults: %+v", e)
	}
	if e.Store != "files" || !e.Offline() {
		t.Fatalf("store=%q offline=%v", e.Store, e.Offline())
	}
	if !e.AdminHTTP || e.PprofHTTP {
		t.Fatalf("admin=%v pprof=%v", e.AdminHTTP, e.PprofHTTP)
	}
	if e.MCPListen != "127.0.0.1:8090" || e.MCPMaxSessions != 256 {
		t.Fatalf("mcp defaults: %+v", e)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHRONICLE_GENERATOR_URL", "http://gen.local/adjudicate")
	t.Setenv("CHRONICLE_GENERATOR_DELAY", "250ms")
	t.Setenv("CHRONICLE_STORE", "sqlite")
	t.Setenv("CHRONICLE_STORE_PATH", "/tmp/saves.db")

	e, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if e.Offline() || e.GeneratorDelay != 250*time.Millisecond || e.Store != "sqlite" || e.StorePath != "/tmp/saves.db" {
		t.Fatalf("env=%+v", e)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("CHRONICLE_GENERATOR_ATTEMPTS", "many")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}

	t.Setenv("CHRONICLE_GENERATOR_ATTEMPTS", "2")
	t.Setenv("CHRONICLE_STORE", "redis")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "CHRONICLE_STORE") {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestLoadRequiresMCPSecret(t *testing.T) {
	t.Setenv("CHRONICLE_MCP_REQUIRE_HMAC", "true")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "CHRONICLE_MCP_HMAC_SECRET") {
		t.Fatalf("expected secret error, got %v", err)
	}
	t.Setenv("CHRONICLE_MCP_HMAC_SECRET", "s3cret")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with secret: %v", err)
	}
}

func TestLoadOffsiteNeedsCredentials(t *testing.T) {
	t.Setenv("CHRONICLE_OFFSITE_ENDPOINT", "https://acct.r2.cloudflarestorage.com")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "CHRONICLE_OFFSITE_ENDPOINT") {
		t.Fatalf("expected offsite error, got %v", err)
	}
	t.Setenv("CHRONICLE_OFFSITE_BUCKET", "chronicle")
	t.Setenv("CHRONICLE_OFFSITE_ACCESS_KEY_ID", "id")
	t.Setenv("CHRONICLE_OFFSITE_SECRET_ACCESS_KEY", "secret")
	e, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !e.Offsite() || e.OffsiteRegion != "auto" || e.OffsiteWorkers != 2 {
		t.Fatalf("offsite env=%+v", e)
	}
}
