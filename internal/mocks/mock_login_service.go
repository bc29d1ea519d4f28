package mocks

import (
	"context"

	"github.com/you/feedauth/domain"
)

// MockLoginService implements domain.LoginService interface for testing
type MockLoginService struct {
	LoginFunc             func(ctx context.Context, email, secret string, fp domain.DeviceFingerprint) (*domain.LoginResult, error)
	CompleteChallengeFunc func(ctx context.Context, token, email, code string) (*domain.LoginResult, error)
}

// NewMockLoginService creates a new MockLoginService with default behaviors
func NewMockLoginService() *MockLoginService {
	return &MockLoginService{}
}

// Login runs a login attempt
func (m *MockLoginService) Login(ctx context.Context, email, secret string, fp domain.DeviceFingerprint) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, secret, fp)
	}
	// Default behavior: authenticated
	return &domain.LoginResult{
		Outcome: domain.OutcomeAuthenticated,
		Account: &domain.Account{Email: email},
	}, nil
}

// CompleteChallenge resolves a pending challenge
func (m *MockLoginService) CompleteChallenge(ctx context.Context, token, email, code string) (*domain.LoginResult, error) {
	if m.CompleteChallengeFunc != nil {
		return m.CompleteChallengeFunc(ctx, token, email, code)
	}
	// Default behavior: authenticated
	return &domain.LoginResult{
		Outcome: domain.OutcomeAuthenticated,
		Account: &domain.Account{Email: email},
	}, nil
}

// Compile-time interface compliance verification
var _ domain.LoginService = (*MockLoginService)(nil)
