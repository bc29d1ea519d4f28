package mocks

import (
	"context"

	"github.com/you/feedauth/domain"
)

// MockCredentialService implements domain.CredentialService interface for testing
type MockCredentialService struct {
	VerifyFunc   func(ctx context.Context, email, secret string) (*domain.Account, error)
	RegisterFunc func(ctx context.Context, email, secret, name, phone string) (*domain.Account, error)
}

// NewMockCredentialService creates a new MockCredentialService with default behaviors
func NewMockCredentialService() *MockCredentialService {
	return &MockCredentialService{}
}

// Verify checks the secret
func (m *MockCredentialService) Verify(ctx context.Context, email, secret string) (*domain.Account, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, email, secret)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// Register creates an account
func (m *MockCredentialService) Register(ctx context.Context, email, secret, name, phone string) (*domain.Account, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, secret, name, phone)
	}
	// Default behavior: success
	return &domain.Account{ID: 1, Email: email, Name: name, Phone: phone}, nil
}

// Compile-time interface compliance verification
var _ domain.CredentialService = (*MockCredentialService)(nil)
