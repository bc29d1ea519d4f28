package mocks

import (
	"strings"

	"github.com/you/feedauth/domain"
)

// MockChallengeTokenService implements domain.ChallengeTokenService interface for testing
type MockChallengeTokenService struct {
	IssueFunc func(challenge *domain.PendingChallenge) (string, error)
	ParseFunc func(token string) (*domain.ChallengeClaims, error)
}

// NewMockChallengeTokenService creates a new MockChallengeTokenService with default behaviors
func NewMockChallengeTokenService() *MockChallengeTokenService {
	return &MockChallengeTokenService{}
}

// Issue signs a challenge token
func (m *MockChallengeTokenService) Issue(challenge *domain.PendingChallenge) (string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(challenge)
	}
	// Default behavior: readable "challenge:<id>:<email>" token
	return "challenge:" + challenge.ID + ":" + challenge.Email, nil
}

// Parse validates a challenge token
func (m *MockChallengeTokenService) Parse(token string) (*domain.ChallengeClaims, error) {
	if m.ParseFunc != nil {
		return m.ParseFunc(token)
	}
	parts := strings.SplitN(token, ":", 3)
	if len(parts) != 3 || parts[0] != "challenge" {
		return nil, domain.ErrChallengeInvalid
	}
	return &domain.ChallengeClaims{ChallengeID: parts[1], Email: parts[2]}, nil
}

// Compile-time interface compliance verification
var _ domain.ChallengeTokenService = (*MockChallengeTokenService)(nil)
