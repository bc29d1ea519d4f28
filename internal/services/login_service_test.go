package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/feedauth/domain"
	"github.com/you/feedauth/internal/infrastructure/auth"
	"github.com/you/feedauth/internal/infrastructure/repositories"
	"github.com/you/feedauth/internal/mocks"
	"golang.org/x/crypto/bcrypt"
)

const testChallengeSecret = "test-challenge-secret-0123456789abcdef"

// loginStack is the full login flow over sqlite and miniredis
type loginStack struct {
	svc        *LoginServiceImpl
	otp        *OTPServiceImpl
	creds      *CredentialServiceImpl
	accounts   domain.AccountRepository
	challenges domain.ChallengeStore
	notifier   *mocks.MockNotifier
	clock      *testClock
	otpClock   *testClock
}

func newLoginStack(t *testing.T) *loginStack {
	t.Helper()

	db := setupTestDB(t)
	require.NoError(t, db.AutoMigrate(&repositories.DBAccount{}, &repositories.DBDevice{}))
	accounts := repositories.NewAccountRepository(db)

	rdb := setupTestRedis(t)
	otpStore := repositories.NewOTPStore(rdb)
	challenges := repositories.NewChallengeStore(rdb)

	notifier := mocks.NewMockNotifier()
	gen, err := NewCodeGenerator("random", 6, 0)
	require.NoError(t, err)

	creds := NewCredentialService(accounts, auth.NewPasswordService(bcrypt.MinCost), nil)
	devices := NewDeviceService(accounts, nil)
	otpSvc := NewOTPService(otpStore, notifier, gen, nil, createTestOTPConfig())
	otpClock := newTestClock(time.Now())
	otpSvc.now = otpClock.Now

	policy := newTestPolicy(t, time.UTC, WindowRule{Class: "mobile", Start: "06:00", End: "18:00"})
	tokens := auth.NewChallengeTokenService(testChallengeSecret, "feedauth")

	svc := NewLoginService(accounts, creds, devices, otpSvc, policy, challenges, tokens, nil)
	clock := newTestClock(at(12, 0))
	svc.now = clock.Now

	return &loginStack{
		svc:        svc,
		otp:        otpSvc,
		creds:      creds,
		accounts:   accounts,
		challenges: challenges,
		notifier:   notifier,
		clock:      clock,
		otpClock:   otpClock,
	}
}

func (s *loginStack) register(t *testing.T, email, secret string) {
	t.Helper()
	_, err := s.creds.Register(context.Background(), email, secret, "Test User", "")
	require.NoError(t, err)
}

func (s *loginStack) trust(t *testing.T, email string, fp domain.DeviceFingerprint) {
	t.Helper()
	require.NoError(t, s.accounts.AddDevice(context.Background(), email, fp))
}

func TestLoginScenarioA_UnknownAccount(t *testing.T) {
	s := newLoginStack(t)

	result, err := s.svc.Login(context.Background(), "ghost@example.com", "anything", desktopFingerprint())
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Nil(t, result)
	assert.Empty(t, s.notifier.Messages())
}

func TestLoginScenarioB_WrongSecret(t *testing.T) {
	s := newLoginStack(t)
	s.register(t, "user@example.com", "right-secret")

	result, err := s.svc.Login(context.Background(), "user@example.com", "wrong-secret", desktopFingerprint())
	assert.ErrorIs(t, err, domain.ErrInvalidSecret)
	assert.Nil(t, result)
	assert.Empty(t, s.notifier.Messages())
}

func TestLoginScenarioC_ChallengePromotesDevice(t *testing.T) {
	s := newLoginStack(t)
	ctx := context.Background()
	s.register(t, "user@example.com", "right-secret")
	fp := mobileFingerprint()

	result, err := s.svc.Login(ctx, "user@example.com", "right-secret", fp)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeChallengeIssued, result.Outcome)
	assert.NotEmpty(t, result.ChallengeToken)
	assert.False(t, result.ChallengeExpiresAt.IsZero())

	msgs := s.notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "user@example.com", msgs[0].To.Email)
	code := lastCode(t, s.notifier)

	completed, err := s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAuthenticated, completed.Outcome)

	account, err := s.accounts.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	require.Len(t, account.Devices, 1)
	assert.True(t, account.Devices[0].Equal(fp))

	// the device is now known: no further code is sent
	again, err := s.svc.Login(ctx, "user@example.com", "right-secret", fp)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAuthenticated, again.Outcome)
	assert.Len(t, s.notifier.Messages(), 1)

	// and the challenge cannot be replayed
	_, err = s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", code)
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)
}

func TestLoginScenarioD_MobileOutsideWindow(t *testing.T) {
	s := newLoginStack(t)
	ctx := context.Background()
	s.register(t, "user@example.com", "right-secret")
	s.trust(t, "user@example.com", mobileFingerprint())
	s.trust(t, "user@example.com", desktopFingerprint())

	s.clock = newTestClock(at(20, 0))
	s.svc.now = s.clock.Now

	_, err := s.svc.Login(ctx, "user@example.com", "right-secret", mobileFingerprint())
	assert.ErrorIs(t, err, domain.ErrOutsideWindow)

	result, err := s.svc.Login(ctx, "user@example.com", "right-secret", desktopFingerprint())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAuthenticated, result.Outcome)
	assert.Empty(t, s.notifier.Messages())
}

func TestLoginScenarioE_DispatchFailure(t *testing.T) {
	s := newLoginStack(t)
	ctx := context.Background()
	s.register(t, "user@example.com", "right-secret")

	var sentCode string
	s.notifier.SendFunc = func(ctx context.Context, to domain.Recipient, subject, body string) error {
		sentCode = codePattern.FindString(body)
		return errors.New("relay refused")
	}

	result, err := s.svc.Login(ctx, "user@example.com", "right-secret", desktopFingerprint())
	assert.ErrorIs(t, err, domain.ErrDispatchFailed)
	assert.Nil(t, result)

	require.NotEmpty(t, sentCode)
	assert.ErrorIs(t, s.otp.Verify(ctx, "user@example.com", sentCode), domain.ErrOTPNotFound)
}

func TestLoginServiceImpl_MismatchThenRetry(t *testing.T) {
	s := newLoginStack(t)
	ctx := context.Background()
	s.register(t, "user@example.com", "right-secret")

	result, err := s.svc.Login(ctx, "user@example.com", "right-secret", desktopFingerprint())
	require.NoError(t, err)
	code := lastCode(t, s.notifier)

	_, err = s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", wrongCode(code))
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)

	completed, err := s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", code)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAuthenticated, completed.Outcome)
}

func TestLoginServiceImpl_MaxAttemptsEndsChallenge(t *testing.T) {
	s := newLoginStack(t)
	ctx := context.Background()
	s.register(t, "user@example.com", "right-secret")

	result, err := s.svc.Login(ctx, "user@example.com", "right-secret", desktopFingerprint())
	require.NoError(t, err)
	code := lastCode(t, s.notifier)
	wrong := wrongCode(code)

	for i := 0; i < createTestOTPConfig().MaxAttempts-1; i++ {
		_, err = s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", wrong)
		assert.ErrorIs(t, err, domain.ErrOTPMismatch)
	}
	_, err = s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", wrong)
	assert.ErrorIs(t, err, domain.ErrOTPMaxAttempts)

	_, err = s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", code)
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)

	account, err := s.accounts.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Empty(t, account.Devices)
}

func TestLoginServiceImpl_ExpiredCode(t *testing.T) {
	s := newLoginStack(t)
	ctx := context.Background()
	s.register(t, "user@example.com", "right-secret")

	result, err := s.svc.Login(ctx, "user@example.com", "right-secret", desktopFingerprint())
	require.NoError(t, err)
	code := lastCode(t, s.notifier)

	s.otpClock.Advance(6 * time.Minute)
	_, err = s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", code)
	assert.ErrorIs(t, err, domain.ErrOTPExpired)

	account, err := s.accounts.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Empty(t, account.Devices)
}

func TestLoginServiceImpl_ChallengeBoundToEmail(t *testing.T) {
	s := newLoginStack(t)
	ctx := context.Background()
	s.register(t, "alice@example.com", "alice-secret")
	s.register(t, "mallory@example.com", "mallory-secret")

	aliceResult, err := s.svc.Login(ctx, "alice@example.com", "alice-secret", desktopFingerprint())
	require.NoError(t, err)

	_, err = s.svc.Login(ctx, "mallory@example.com", "mallory-secret", mobileFingerprint())
	require.NoError(t, err)
	malloryCode := lastCode(t, s.notifier)

	_, err = s.svc.CompleteChallenge(ctx, aliceResult.ChallengeToken, "mallory@example.com", malloryCode)
	assert.ErrorIs(t, err, domain.ErrChallengeInvalid)

	_, err = s.svc.CompleteChallenge(ctx, "garbage", "alice@example.com", "000000")
	assert.ErrorIs(t, err, domain.ErrChallengeInvalid)
}

func TestLoginServiceImpl_LatestChallengeCodeWins(t *testing.T) {
	s := newLoginStack(t)
	ctx := context.Background()
	s.register(t, "user@example.com", "right-secret")

	first, err := s.svc.Login(ctx, "user@example.com", "right-secret", desktopFingerprint())
	require.NoError(t, err)
	firstCode := lastCode(t, s.notifier)

	second, err := s.svc.Login(ctx, "user@example.com", "right-secret", mobileFingerprint())
	require.NoError(t, err)
	secondCode := lastCode(t, s.notifier)

	if firstCode != secondCode {
		_, err = s.svc.CompleteChallenge(ctx, first.ChallengeToken, "user@example.com", firstCode)
		assert.ErrorIs(t, err, domain.ErrOTPMismatch)
	}

	_, err = s.svc.CompleteChallenge(ctx, second.ChallengeToken, "user@example.com", secondCode)
	require.NoError(t, err)

	account, err := s.accounts.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	require.Len(t, account.Devices, 1)
	assert.True(t, account.Devices[0].Equal(mobileFingerprint()))
}

// deviceWriteFailure fails every AddDevice on top of a working repository
type deviceWriteFailure struct {
	domain.AccountRepository
}

func (deviceWriteFailure) AddDevice(context.Context, string, domain.DeviceFingerprint) error {
	return errors.New("disk full")
}

func TestLoginServiceImpl_DeviceWriteFailureFailsClosed(t *testing.T) {
	s := newLoginStack(t)
	ctx := context.Background()
	s.register(t, "user@example.com", "right-secret")
	s.svc.devices = NewDeviceService(deviceWriteFailure{s.accounts}, nil)

	result, err := s.svc.Login(ctx, "user@example.com", "right-secret", desktopFingerprint())
	require.NoError(t, err)
	code := lastCode(t, s.notifier)

	completed, err := s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", code)
	require.Error(t, err)
	assert.Nil(t, completed)
	assert.NotErrorIs(t, err, domain.ErrOTPMismatch)

	// the code was spent, so a retry ends the challenge rather than authenticating
	_, err = s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", code)
	assert.ErrorIs(t, err, domain.ErrOTPNotFound)
	_, err = s.svc.CompleteChallenge(ctx, result.ChallengeToken, "user@example.com", code)
	assert.ErrorIs(t, err, domain.ErrChallengeNotFound)

	account, err := s.accounts.FindByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Empty(t, account.Devices)
}

func TestLoginServiceImpl_ChallengeStoreFailure(t *testing.T) {
	creds := mocks.NewMockCredentialService()
	creds.VerifyFunc = func(ctx context.Context, email, secret string) (*domain.Account, error) {
		return &domain.Account{ID: 1, Email: email}, nil
	}
	challenges := mocks.NewMockChallengeStore()
	challenges.SaveFunc = func(ctx context.Context, challenge *domain.PendingChallenge) error {
		return errors.New("redis down")
	}

	svc := NewLoginService(mocks.NewMockAccountRepository(), creds, NewDeviceService(mocks.NewMockAccountRepository(), nil),
		mocks.NewMockOTPService(), mocks.NewMockAccessPolicy(), challenges, mocks.NewMockChallengeTokenService(), nil)

	_, err := svc.Login(context.Background(), "user@example.com", "pw", desktopFingerprint())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDispatchFailed)
}

func TestLoginServiceImpl_TokenFailureDropsChallenge(t *testing.T) {
	creds := mocks.NewMockCredentialService()
	creds.VerifyFunc = func(ctx context.Context, email, secret string) (*domain.Account, error) {
		return &domain.Account{ID: 1, Email: email}, nil
	}
	challenges := mocks.NewMockChallengeStore()
	tokens := mocks.NewMockChallengeTokenService()
	tokens.IssueFunc = func(challenge *domain.PendingChallenge) (string, error) {
		return "", errors.New("signing failed")
	}

	svc := NewLoginService(mocks.NewMockAccountRepository(), creds, NewDeviceService(mocks.NewMockAccountRepository(), nil),
		mocks.NewMockOTPService(), mocks.NewMockAccessPolicy(), challenges, tokens, nil)

	_, err := svc.Login(context.Background(), "user@example.com", "pw", desktopFingerprint())
	require.Error(t, err)
	assert.Zero(t, challenges.Len())
}

func TestLoginServiceImpl_PolicyNotAppliedToNewDevice(t *testing.T) {
	creds := mocks.NewMockCredentialService()
	creds.VerifyFunc = func(ctx context.Context, email, secret string) (*domain.Account, error) {
		return &domain.Account{ID: 1, Email: email}, nil
	}
	policy := mocks.NewMockAccessPolicy()
	policy.CheckFunc = func(fp domain.DeviceFingerprint, now time.Time) error {
		t.Fatal("policy consulted for an untrusted device")
		return nil
	}

	svc := NewLoginService(mocks.NewMockAccountRepository(), creds, NewDeviceService(mocks.NewMockAccountRepository(), nil),
		mocks.NewMockOTPService(), policy, mocks.NewMockChallengeStore(), mocks.NewMockChallengeTokenService(), nil)

	result, err := svc.Login(context.Background(), "user@example.com", "pw", mobileFingerprint())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeChallengeIssued, result.Outcome)
}
