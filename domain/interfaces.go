package domain

import (
	"context"
	"time"
)

// AccountRepository defines account data access operations
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByEmail(ctx context.Context, email string) (*Account, error)
	// AddDevice appends fp to the account's devices unless already present.
	AddDevice(ctx context.Context, email string, fp DeviceFingerprint) error
}

// OTPStore persists one live OTP record per email
type OTPStore interface {
	// Save overwrites any record held for rec.Email. keep bounds how long the
	// record survives in storage, which must exceed the validity TTL.
	Save(ctx context.Context, rec *OTPRecord, keep time.Duration) error
	// Consume atomically checks and invalidates the record.
	Consume(ctx context.Context, email, codeHash string, now time.Time, ttl time.Duration, maxAttempts int) error
	// Discard removes the record only if it still holds codeHash.
	Discard(ctx context.Context, email, codeHash string) error
	AcquireResend(ctx context.Context, email string, window time.Duration) (bool, time.Duration, error)
	ReleaseResend(ctx context.Context, email string) error
}

// ChallengeStore persists pending login challenges
type ChallengeStore interface {
	Save(ctx context.Context, challenge *PendingChallenge) error
	Find(ctx context.Context, id string) (*PendingChallenge, error)
	Delete(ctx context.Context, id string) error
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// Notifier delivers a message out of band
type Notifier interface {
	Send(ctx context.Context, to Recipient, subject, body string) error
}

// CodeGenerator produces fixed-length numeric codes
type CodeGenerator interface {
	Generate(now time.Time) (string, error)
}

// ChallengeClaims is what a challenge token carries
type ChallengeClaims struct {
	ChallengeID string
	Email       string
	ExpiresAt   time.Time
}

// ChallengeTokenService signs and parses challenge tokens
type ChallengeTokenService interface {
	Issue(challenge *PendingChallenge) (string, error)
	Parse(token string) (*ChallengeClaims, error)
}

// CredentialService checks identity and secret against the account record
type CredentialService interface {
	Verify(ctx context.Context, email, secret string) (*Account, error)
	Register(ctx context.Context, email, secret, name, phone string) (*Account, error)
}

// DeviceRegistry tracks recognised devices per account
type DeviceRegistry interface {
	IsTrusted(account *Account, fp DeviceFingerprint) bool
	Trust(ctx context.Context, account *Account, fp DeviceFingerprint) error
}

// OTPService defines OTP operations
type OTPService interface {
	Issue(ctx context.Context, to Recipient) (*OTPIssue, error)
	Verify(ctx context.Context, email, code string) error
}

// AccessPolicy applies restrictions to trusted devices
type AccessPolicy interface {
	Check(fp DeviceFingerprint, now time.Time) error
}

// LoginService composes the login decision
type LoginService interface {
	Login(ctx context.Context, email, secret string, fp DeviceFingerprint) (*LoginResult, error)
	CompleteChallenge(ctx context.Context, token, email, code string) (*LoginResult, error)
}
