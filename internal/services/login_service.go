package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/you/feedauth/domain"
	"github.com/you/feedauth/internal/logging"
)

// LoginServiceImpl implements domain.LoginService. A login from a trusted
// device goes through the access policy; any other device gets an OTP
// challenge bound to its fingerprint, and only a resolved challenge makes
// that device trusted.
type LoginServiceImpl struct {
	accounts    domain.AccountRepository
	credentials domain.CredentialService
	devices     domain.DeviceRegistry
	otpSvc      domain.OTPService
	policy      domain.AccessPolicy
	challenges  domain.ChallengeStore
	tokens      domain.ChallengeTokenService
	audit       domain.AuditLogger
	now         func() time.Time
}

// NewLoginService creates a new login orchestrator
func NewLoginService(
	accounts domain.AccountRepository,
	credentials domain.CredentialService,
	devices domain.DeviceRegistry,
	otpSvc domain.OTPService,
	policy domain.AccessPolicy,
	challenges domain.ChallengeStore,
	tokens domain.ChallengeTokenService,
	audit domain.AuditLogger,
) *LoginServiceImpl {
	if audit == nil {
		audit = domain.NopAuditLogger{}
	}
	return &LoginServiceImpl{
		accounts:    accounts,
		credentials: credentials,
		devices:     devices,
		otpSvc:      otpSvc,
		policy:      policy,
		challenges:  challenges,
		tokens:      tokens,
		audit:       audit,
		now:         time.Now,
	}
}

// Login implements domain.LoginService
func (s *LoginServiceImpl) Login(ctx context.Context, email, secret string, fp domain.DeviceFingerprint) (*domain.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	fp.Class = domain.ParseDeviceClass(string(fp.Class))

	account, err := s.credentials.Verify(ctx, email, secret)
	if err != nil {
		s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.LoginFailedEvent, email).WithDevice(fp).WithError(err))
		return nil, err
	}

	if !s.devices.IsTrusted(account, fp) {
		return s.issueChallenge(ctx, account, fp)
	}

	if err := s.policy.Check(fp, s.now()); err != nil {
		if errors.Is(err, domain.ErrOutsideWindow) {
			s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.AccessDeniedEvent, email).WithDevice(fp).WithError(err))
		}
		return nil, err
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.LoginSucceededEvent, email).WithDevice(fp))
	return &domain.LoginResult{
		Outcome: domain.OutcomeAuthenticated,
		Account: account,
	}, nil
}

func (s *LoginServiceImpl) issueChallenge(ctx context.Context, account *domain.Account, fp domain.DeviceFingerprint) (*domain.LoginResult, error) {
	issued, err := s.otpSvc.Issue(ctx, domain.Recipient{Email: account.Email, Phone: account.Phone})
	if err != nil {
		return nil, err
	}

	challenge := &domain.PendingChallenge{
		ID:          uuid.NewString(),
		Email:       account.Email,
		Fingerprint: fp,
		CreatedAt:   issued.IssuedAt,
		ExpiresAt:   issued.ExpiresAt,
	}
	// If this fails the code already sent simply expires unused.
	if err := s.challenges.Save(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store login challenge: %w", err)
	}

	token, err := s.tokens.Issue(challenge)
	if err != nil {
		s.dropChallenge(ctx, challenge.ID)
		return nil, fmt.Errorf("failed to sign login challenge: %w", err)
	}

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.ChallengeIssuedEvent, account.Email).
		WithDevice(fp).
		WithMetadata("challenge_id", challenge.ID))

	return &domain.LoginResult{
		Outcome:            domain.OutcomeChallengeIssued,
		Account:            account,
		ChallengeToken:     token,
		ChallengeExpiresAt: challenge.ExpiresAt,
	}, nil
}

// CompleteChallenge implements domain.LoginService. The device promoted is
// the one recorded when the challenge was issued.
func (s *LoginServiceImpl) CompleteChallenge(ctx context.Context, token, email, code string) (*domain.LoginResult, error) {
	email = domain.NormalizeEmail(email)

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if domain.NormalizeEmail(claims.Email) != email {
		return nil, domain.ErrChallengeInvalid
	}

	challenge, err := s.challenges.Find(ctx, claims.ChallengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Email != email {
		return nil, domain.ErrChallengeInvalid
	}

	if err := s.otpSvc.Verify(ctx, email, code); err != nil {
		// Once the code is gone the challenge can never resolve.
		if errors.Is(err, domain.ErrOTPMaxAttempts) ||
			errors.Is(err, domain.ErrOTPExpired) ||
			errors.Is(err, domain.ErrOTPNotFound) {
			s.dropChallenge(ctx, challenge.ID)
		}
		return nil, err
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	if err := s.devices.Trust(ctx, account, challenge.Fingerprint); err != nil {
		return nil, err
	}
	s.dropChallenge(ctx, challenge.ID)

	s.audit.LogEvent(ctx, domain.NewAuditEvent(domain.LoginSucceededEvent, email).
		WithDevice(challenge.Fingerprint).
		WithMetadata("challenge_id", challenge.ID))

	return &domain.LoginResult{
		Outcome: domain.OutcomeAuthenticated,
		Account: account,
	}, nil
}

func (s *LoginServiceImpl) dropChallenge(ctx context.Context, id string) {
	if err := s.challenges.Delete(ctx, id); err != nil {
		logging.FromContext(ctx).WarnContext(ctx, "failed to delete login challenge", "challenge_id", id, "error", err)
	}
}

var _ domain.LoginService = (*LoginServiceImpl)(nil)
