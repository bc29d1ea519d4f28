// Package config loads configuration for the end-to-end suite, which runs
// against real Postgres and Redis instances.
package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"

	"github.com/you/feedauth/internal/config"
)

// LoadTestConfig loads config/config.yml with the test environment applied.
// The test is skipped unless TEST_DATABASE_DSN and TEST_REDIS_ADDR are set,
// either in the environment or in .env.test at the project root.
func LoadTestConfig(t *testing.T) *config.Config {
	t.Helper()

	root := GetProjectRoot()
	if err := godotenv.Load(filepath.Join(root, ".env.test")); err != nil && !os.IsNotExist(err) {
		t.Logf("Warning: Could not load .env.test file: %v", err)
	}

	dsn := os.Getenv("TEST_DATABASE_DSN")
	redisAddr := os.Getenv("TEST_REDIS_ADDR")
	if dsn == "" || redisAddr == "" {
		t.Skip("TEST_DATABASE_DSN and TEST_REDIS_ADDR must be set for E2E tests")
	}

	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", dsn)
	t.Setenv("REDIS_ADDR", redisAddr)
	if os.Getenv("CHALLENGE_SECRET") == "" {
		t.Setenv("CHALLENGE_SECRET", GetTestChallengeSecret())
	}

	cfg, err := config.LoadFile(filepath.Join(root, "config", "config.yml"))
	if err != nil {
		t.Fatalf("Failed to load test configuration: %v", err)
	}

	// codes are read back from the log
	cfg.NotifyChannel = "log"
	cfg.RedisDB = GetTestRedisDB()
	cfg.GinMode = "test"

	t.Logf("Test config loaded - DB: %s, Redis: %s (DB %d)", maskDSN(cfg.DSN), cfg.RedisAddr, cfg.RedisDB)
	return cfg
}

// GetTestChallengeSecret returns a deterministic signing secret for tests
func GetTestChallengeSecret() string {
	return "test-challenge-secret-for-e2e-0123456789"
}

// GetTestRedisDB keeps test keys away from development data
func GetTestRedisDB() int {
	return 1
}

// GetProjectRoot returns the directory holding go.mod
func GetProjectRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}

	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd
		}

		parent := filepath.Dir(wd)
		if parent == wd {
			break
		}
		wd = parent
	}

	return "."
}

func maskDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<unparseable dsn>"
	}
	return u.Redacted()
}
