package config

import (
	_ "embed"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed policies.yaml
var policiesYAML []byte

type Config struct {
	Database  DatabaseConfig
	LegacyDB  LegacyDBConfig
	Vision    VisionConfig
	Embedding EmbeddingConfig
	Match     MatchConfig
	Web       WebConfig
	Policies  PoliciesConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type LegacyDBConfig struct {
	DSN string // MySQL DSN of the legacy attendance system (read-only, import only)
}

type VisionConfig struct {
	URL string // face detection/embedding service, defaults to http://localhost:8000
}

type EmbeddingConfig struct {
	Dim int // defaults to 512
}

type MatchConfig struct {
	Threshold         float64       // cosine similarity acceptance threshold (default 0.85)
	OptimizedTimeout  time.Duration // per-probe budget for the index-backed strategy (default 2s)
	OptimizedDisabled bool          // force fallback-only operation
}

type WebConfig struct {
	Addr      string // defaults to :8080
	AuthToken string // static bearer token; empty disables auth
}

type PoliciesConfig struct {
	Statuses map[string]StatusPolicy `yaml:"statuses"`
}

// StatusPolicy is the access decision attached to a member status.
type StatusPolicy struct {
	Admit    bool   `yaml:"admit"`
	Announce string `yaml:"announce"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a float in (0, 1].
// Returns the default value if the env var is unset, empty, or out of range.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 1 {
		return f
	}
	return defaultVal
}

// envDuration reads an environment variable as a positive duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envBool treats "1", "t", "true" (any case) as true, everything else as the default.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

func Load() *Config {
	var policies PoliciesConfig
	if err := yaml.Unmarshal(policiesYAML, &policies); err != nil {
		// Embedded file, so this can only fail if the build is broken.
		panic("failed to unmarshal embedded policies.yaml: " + err.Error())
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		LegacyDB: LegacyDBConfig{
			DSN: os.Getenv("LEGACY_MYSQL_DSN"),
		},
		Vision: VisionConfig{
			URL: envString("VISION_URL", "http://localhost:8000"),
		},
		Embedding: EmbeddingConfig{
			Dim: envInt("EMBEDDING_DIM", 512),
		},
		Match: MatchConfig{
			Threshold:         envFloat("MATCH_THRESHOLD", 0.85),
			OptimizedTimeout:  envDuration("MATCH_OPTIMIZED_TIMEOUT", 2*time.Second),
			OptimizedDisabled: envBool("MATCH_OPTIMIZED_DISABLED", false),
		},
		Web: WebConfig{
			Addr:      envString("WEB_ADDR", ":8080"),
			AuthToken: os.Getenv("WEB_AUTH_TOKEN"),
		},
		Policies: policies,
	}
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// PolicyFor returns the access policy for a member status. Unknown statuses
// deny access, so a misconfigured status can never open the door.
func (c *Config) PolicyFor(status string) StatusPolicy {
	if policy, ok := c.Policies.Statuses[status]; ok {
		return policy
	}
	return StatusPolicy{Admit: false, Announce: "access denied"}
}
