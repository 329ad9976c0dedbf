// Package config reads endpoint and storage settings from the environment.
// Gameplay thresholds live in the tuning file, not here.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"chronicle.ai/internal/persistence/store"
)

type Env struct {
	GeneratorURL      string        `env:"CHRONICLE_GENERATOR_URL"`
	GeneratorToken    string        `env:"CHRONICLE_GENERATOR_TOKEN"`
	GeneratorAttempts int           `env:"CHRONICLE_GENERATOR_ATTEMPTS" envDefault:"2"`
	GeneratorDelay    time.Duration `env:"CHRONICLE_GENERATOR_DELAY" envDefault:"1s"`
	GeneratorTimeout  time.Duration `env:"CHRONICLE_GENERATOR_TIMEOUT" envDefault:"15s"`

	ModerationURL   string `env:"CHRONICLE_MODERATION_URL"`
	ModerationToken string `env:"CHRONICLE_MODERATION_TOKEN"`

	Store     string `env:"CHRONICLE_STORE" envDefault:"files"`
	StorePath string `env:"CHRONICLE_STORE_PATH" envDefault:"./data/saves"`

	TurnLogDir string `env:"CHRONICLE_TURN_LOG_DIR" envDefault:"./data/turns"`
	ArchiveDir string `env:"CHRONICLE_ARCHIVE_DIR" envDefault:"./data/archive"`
	ConfigDir  string `env:"CHRONICLE_CONFIG_DIR" envDefault:"./configs"`

	// Loopback-only save inspection endpoints.
	AdminHTTP bool `env:"CHRONICLE_ADMIN_HTTP" envDefault:"true"`
	PprofHTTP bool `env:"CHRONICLE_PPROF_HTTP" envDefault:"false"`

	// Agent tool endpoint. An empty listen address disables it.
	MCPListen      string `env:"CHRONICLE_MCP_LISTEN" envDefault:"127.0.0.1:8090"`
	MCPHMACSecret  string `env:"CHRONICLE_MCP_HMAC_SECRET"`
	MCPRequireHMAC bool   `env:"CHRONICLE_MCP_REQUIRE_HMAC" envDefault:"false"`
	MCPStateFile   string `env:"CHRONICLE_MCP_STATE_FILE" envDefault:"./data/mcp/agents.json"`
	MCPMaxSessions int    `env:"CHRONICLE_MCP_MAX_SESSIONS" envDefault:"256"`

	// S3-compatible bucket for archives and closed turn logs. An empty
	// endpoint disables the mirror.
	OffsiteEndpoint        string `env:"CHRONICLE_OFFSITE_ENDPOINT"`
	OffsiteBucket          string `env:"CHRONICLE_OFFSITE_BUCKET"`
	OffsiteRegion          string `env:"CHRONICLE_OFFSITE_REGION" envDefault:"auto"`
	OffsiteAccessKeyID     string `env:"CHRONICLE_OFFSITE_ACCESS_KEY_ID"`
	OffsiteSecretAccessKey string `env:"CHRONICLE_OFFSITE_SECRET_ACCESS_KEY"`
	OffsitePrefix          string `env:"CHRONICLE_OFFSITE_PREFIX"`
	OffsiteWorkers         int    `env:"CHRONICLE_OFFSITE_WORKERS" envDefault:"2"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Env and checks the values that would otherwise fail late.
func Load() (Env, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return Env{}, err
	}
	if err := e.Validate(); err != nil {
		return Env{}, err
	}
	return e, nil
}

func (e Env) Validate() error {
	switch e.Store {
	case store.KindMemory, store.KindFiles, store.KindSQLite:
	default:
		return fmt.Errorf("CHRONICLE_STORE: unknown kind %q", e.Store)
	}
	if e.Store != store.KindMemory && e.StorePath == "" {
		return fmt.Errorf("CHRONICLE_STORE_PATH required for %s store", e.Store)
	}
	if e.GeneratorAttempts < 1 {
		return fmt.Errorf("CHRONICLE_GENERATOR_ATTEMPTS must be >= 1")
	}
	if e.GeneratorTimeout <= 0 {
		return fmt.Errorf("CHRONICLE_GENERATOR_TIMEOUT must be > 0")
	}
	if e.MCPListen != "" && e.MCPRequireHMAC && e.MCPHMACSecret == "" {
		return fmt.Errorf("CHRONICLE_MCP_HMAC_SECRET required when CHRONICLE_MCP_REQUIRE_HMAC is set")
	}
	if e.Offsite() && (e.OffsiteBucket == "" || e.OffsiteAccessKeyID == "" || e.OffsiteSecretAccessKey == "") {
		return fmt.Errorf("CHRONICLE_OFFSITE_ENDPOINT needs bucket and access keys")
	}
	return nil
}

// Offsite reports whether archives are mirrored to a bucket.
func (e Env) Offsite() bool {
	return e.OffsiteEndpoint != ""
}

// Offline reports whether no generator endpoint is configured.
func (e Env) Offline() bool {
	return e.GeneratorURL == ""
}
