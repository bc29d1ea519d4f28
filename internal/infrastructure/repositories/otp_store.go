package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/feedauth/domain"
)

// consumeOTPLua checks and invalidates an OTP record in one step.
// KEYS[1] = record hash
// ARGV[1] = provided code hash
// ARGV[2] = now (unix ms)
// ARGV[3] = ttl (ms)
// ARGV[4] = max attempts
var consumeOTPLua = redis.NewScript(`
local stored = redis.call('HGET', KEYS[1], 'code_hash')
if not stored then
  return 'not_found'
end

local issued = tonumber(redis.call('HGET', KEYS[1], 'issued_at'))
local now = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
local maxAttempts = tonumber(ARGV[4])

if now > issued + ttl then
  redis.call('DEL', KEYS[1])
  return 'expired'
end

if stored ~= ARGV[1] then
  local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
  if attempts >= maxAttempts then
    redis.call('DEL', KEYS[1])
    return 'attempts_exceeded'
  end
  return 'mismatch'
end

redis.call('DEL', KEYS[1])
return 'ok'
`)

// discardOTPLua deletes the record only while it still holds ARGV[1].
var discardOTPLua = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'code_hash') == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// OTPStoreImpl implements domain.OTPStore using Redis hashes
type OTPStoreImpl struct {
	client redis.UniversalClient
	prefix string
}

// NewOTPStore creates a new Redis-backed OTP store
func NewOTPStore(client redis.UniversalClient) domain.OTPStore {
	return &OTPStoreImpl{
		client: client,
		prefix: "otp:",
	}
}

func (s *OTPStoreImpl) key(email string) string       { return s.prefix + email }
func (s *OTPStoreImpl) resendKey(email string) string { return s.prefix + "res:" + email }

// Save implements domain.OTPStore
func (s *OTPStoreImpl) Save(ctx context.Context, rec *domain.OTPRecord, keep time.Duration) error {
	key := s.key(rec.Email)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code_hash", rec.CodeHash,
			"issued_at", rec.IssuedAt.UnixMilli(),
			"attempts", 0,
		)
		pipe.PExpire(ctx, key, keep)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store OTP in Redis: %w", err)
	}
	return nil
}

// Consume implements domain.OTPStore
func (s *OTPStoreImpl) Consume(ctx context.Context, email, codeHash string, now time.Time, ttl time.Duration, maxAttempts int) error {
	status, err := consumeOTPLua.Run(ctx, s.client,
		[]string{s.key(email)},
		codeHash,
		now.UnixMilli(),
		ttl.Milliseconds(),
		maxAttempts,
	).Text()
	if err != nil {
		return fmt.Errorf("failed to consume OTP: %w", err)
	}

	switch status {
	case "ok":
		return nil
	case "not_found":
		return domain.ErrOTPNotFound
	case "expired":
		return domain.ErrOTPExpired
	case "mismatch":
		return domain.ErrOTPMismatch
	case "attempts_exceeded":
		return domain.ErrOTPMaxAttempts
	default:
		return fmt.Errorf("unexpected OTP consume status %q", status)
	}
}

// Discard implements domain.OTPStore
func (s *OTPStoreImpl) Discard(ctx context.Context, email, codeHash string) error {
	if err := discardOTPLua.Run(ctx, s.client, []string{s.key(email)}, codeHash).Err(); err != nil {
		return fmt.Errorf("failed to discard OTP: %w", err)
	}
	return nil
}

// AcquireResend implements domain.OTPStore. It reports false and the time
// left when a previous issuance still holds the window.
func (s *OTPStoreImpl) AcquireResend(ctx context.Context, email string, window time.Duration) (bool, time.Duration, error) {
	if window <= 0 {
		return true, 0, nil
	}
	key := s.resendKey(email)
	ok, err := s.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to set resend throttle: %w", err)
	}
	if ok {
		return true, 0, nil
	}

	ttl, err := s.client.PTTL(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, 0, fmt.Errorf("failed to check resend TTL: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return false, ttl, nil
}

// ReleaseResend implements domain.OTPStore
func (s *OTPStoreImpl) ReleaseResend(ctx context.Context, email string) error {
	return s.client.Del(ctx, s.resendKey(email)).Err()
}
