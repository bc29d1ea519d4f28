package services

import (
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/you/feedauth/domain"
	"github.com/you/feedauth/internal/mocks"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

// setupTestDB creates a file-backed SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "feedauth.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// testClock is a settable clock shared by services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock { return &testClock{now: now} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func createTestOTPConfig() OTPConfig {
	return OTPConfig{
		Length:       6,
		TTL:          5 * time.Minute,
		MaxAttempts:  3,
		ResendWindow: 0,
		Retention:    10 * time.Minute,
	}
}

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// lastCode pulls the most recently delivered code out of the notifier
func lastCode(t *testing.T, n *mocks.MockNotifier) string {
	t.Helper()

	msgs := n.Messages()
	require.NotEmpty(t, msgs, "no notification sent")
	code := codePattern.FindString(msgs[len(msgs)-1].Body)
	require.NotEmpty(t, code, "no code in notification body")
	return code
}

func desktopFingerprint() domain.DeviceFingerprint {
	return domain.DeviceFingerprint{Browser: "Chrome", OS: "Windows", Class: domain.DeviceDesktop, IP: "203.0.113.10"}
}

func mobileFingerprint() domain.DeviceFingerprint {
	return domain.DeviceFingerprint{Browser: "Safari", OS: "iOS", Class: domain.DeviceMobile, IP: "203.0.113.20"}
}
