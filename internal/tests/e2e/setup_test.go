package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/you/feedauth/internal/app"
	"github.com/you/feedauth/internal/infrastructure/repositories"
	testconfig "github.com/you/feedauth/internal/tests/config"
)

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	mobileUA  = "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
)

// lockedBuffer collects log output written from request goroutines
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// TestSuite holds the E2E test infrastructure
type TestSuite struct {
	Container  *app.Container
	Handler    http.Handler
	Logs       *lockedBuffer
	TestPrefix string
}

// SetupTestSuite starts the service against the configured Postgres and
// Redis. Accounts created under the suite prefix are removed afterwards.
func SetupTestSuite(t *testing.T) *TestSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testconfig.LoadTestConfig(t)

	logs := &lockedBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	container, err := app.NewContainer(ctx, cfg, logger)
	require.NoError(t, err)

	suite := &TestSuite{
		Container:  container,
		Handler:    container.Handler(),
		Logs:       logs,
		TestPrefix: fmt.Sprintf("e2e_%d", time.Now().UnixNano()),
	}

	t.Cleanup(func() {
		suite.TearDown(t)
		container.Close()
	})
	return suite
}

// TearDown removes the suite's accounts, their devices and their OTP keys
func (s *TestSuite) TearDown(t *testing.T) {
	t.Helper()

	db := s.Container.DB
	pattern := s.TestPrefix + "%"

	var ids []uint
	db.Model(&repositories.DBAccount{}).Where("email LIKE ?", pattern).Pluck("id", &ids)
	if len(ids) > 0 {
		db.Where("account_id IN ?", ids).Delete(&repositories.DBDevice{})
		db.Where("id IN ?", ids).Delete(&repositories.DBAccount{})
	}

	ctx := context.Background()
	rdb := s.Container.RedisClient
	for _, match := range []string{"otp:" + s.TestPrefix + "*", "otp:res:" + s.TestPrefix + "*"} {
		iter := rdb.Scan(ctx, 0, match, 100).Iterator()
		for iter.Next(ctx) {
			rdb.Del(ctx, iter.Val())
		}
	}
}

// Email returns a unique address under the suite prefix
func (s *TestSuite) Email(name string) string {
	return fmt.Sprintf("%s_%s@example.com", s.TestPrefix, name)
}

func (s *TestSuite) Post(t *testing.T, path, userAgent string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	w := httptest.NewRecorder()
	s.Handler.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

// LastCode reads the most recent code logged for email
func (s *TestSuite) LastCode(t *testing.T, email string) string {
	t.Helper()

	re := regexp.MustCompile(`"email":"` + regexp.QuoteMeta(email) + `".*?verification code is: (\d+)`)
	matches := re.FindAllStringSubmatch(s.Logs.String(), -1)
	require.NotEmpty(t, matches, "no code logged for %s", email)
	return matches[len(matches)-1][1]
}
