package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/you/feedauth/domain"
)

// OTPServiceImpl implements domain.OTPService over an OTPStore
type OTPServiceImpl struct {
	store     domain.OTPStore
	notifier  domain.Notifier
	generator domain.CodeGenerator
	audit     domain.AuditLogger
	config    OTPConfig
	now       func() time.Time
}

type OTPConfig struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
	// Retention keeps an expired record around so late submissions are
	// reported as expired rather than unknown.
	Retention time.Duration
}

// NewOTPService creates a new OTP service
func NewOTPService(store domain.OTPStore, notifier domain.Notifier, generator domain.CodeGenerator, audit domain.AuditLogger, config OTPConfig) *OTPServiceImpl {
	if audit == nil {
		audit = domain.NopAuditLogger{}
	}
	return &OTPServiceImpl{
		store:     store,
		notifier:  notifier,
		generator: generator,
		audit:     audit,
		config:    config,
		now:       time.Now,
	}
}

// Issue implements domain.OTPService. A new code replaces any outstanding
// one for the same email. When delivery fails nothing is left behind.
func (s *OTPServiceImpl) Issue(ctx context.Context, to domain.Recipient) (*domain.OTPIssue, error) {
	to.Email = domain.NormalizeEmail(to.Email)
	email := to.Email

	ok, wait, err := s.store.AcquireResend(ctx, email, s.config.ResendWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to check resend throttle: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: retry in %ds", domain.ErrOTPResendLimit, int(math.Ceil(wait.Seconds())))
	}

	now := s.now()
	code, err := s.generator.Generate(now)
	if err != nil {
		s.releaseResend(ctx, email)
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}

	codeHash := hashCode(email, code)
	rec := &domain.OTPRecord{
		Email:    email,
		CodeHash: codeHash,
		IssuedAt: now,
	}
	if err := s.store.Save(ctx, rec, s.config.TTL+s.config.Retention); err != nil {
		s.releaseResend(ctx, email)
		return nil, fmt.Errorf("failed to store OTP: %w", err)
	}

	subject := "Your login verification code"
	message := fmt.Sprintf("Your verification code is: %s. Valid for %d minutes.", code, int(math.Ceil(s.config.TTL.Minutes())))
	if err := s.notifier.Send(ctx, to, subject, message); err != nil {
		if derr := s.store.Discard(ctx, email, codeHash); derr != nil {
			err = errors.Join(err, derr)
		}
		s.releaseResend(ctx, email)
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.OTPDispatchFailedEvent, email).WithError(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.OTPIssuedEvent, email))
	return &domain.OTPIssue{
		Email:     email,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.config.TTL),
	}, nil
}

// Verify implements domain.OTPService. A successful check consumes the code.
func (s *OTPServiceImpl) Verify(ctx context.Context, email, code string) error {
	email = domain.NormalizeEmail(email)
	code = strings.TrimSpace(code)

	err := s.store.Consume(ctx, email, hashCode(email, code), s.now(), s.config.TTL, s.config.MaxAttempts)
	switch {
	case err == nil:
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.OTPVerifiedEvent, email))
		return nil
	case errors.Is(err, domain.ErrOTPNotFound),
		errors.Is(err, domain.ErrOTPExpired),
		errors.Is(err, domain.ErrOTPMismatch),
		errors.Is(err, domain.ErrOTPMaxAttempts):
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.OTPRejectedEvent, email).WithError(err))
		return err
	default:
		return fmt.Errorf("failed to verify OTP: %w", err)
	}
}

func (s *OTPServiceImpl) releaseResend(ctx context.Context, email string) {
	_ = s.store.ReleaseResend(ctx, email)
}

// hashCode binds the code to its email so equal codes never share a hash
func hashCode(email, code string) string {
	sum := sha256.Sum256([]byte(email + ":" + code))
	return hex.EncodeToString(sum[:])
}

var _ domain.OTPService = (*OTPServiceImpl)(nil)
