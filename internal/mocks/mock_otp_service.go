package mocks

import (
	"context"
	"time"

	"github.com/you/feedauth/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	IssueFunc  func(ctx context.Context, to domain.Recipient) (*domain.OTPIssue, error)
	VerifyFunc func(ctx context.Context, email, code string) error
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// Issue issues a new OTP for the recipient
func (m *MockOTPService) Issue(ctx context.Context, to domain.Recipient) (*domain.OTPIssue, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, to)
	}
	// Default behavior: return a fixed code
	now := time.Now()
	return &domain.OTPIssue{
		Email:     to.Email,
		Code:      "123456",
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}, nil
}

// Verify verifies an OTP code for the given email
func (m *MockOTPService) Verify(ctx context.Context, email, code string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, email, code)
	}
	// Default behavior: accept "123456" as valid OTP
	if code == "123456" {
		return nil
	}
	return domain.ErrOTPMismatch
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
