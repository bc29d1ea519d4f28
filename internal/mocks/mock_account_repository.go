package mocks

import (
	"context"

	"github.com/you/feedauth/domain"
)

// MockAccountRepository implements domain.AccountRepository interface for testing
type MockAccountRepository struct {
	CreateFunc      func(ctx context.Context, account *domain.Account) error
	FindByEmailFunc func(ctx context.Context, email string) (*domain.Account, error)
	AddDeviceFunc   func(ctx context.Context, email string, fp domain.DeviceFingerprint) error
}

// NewMockAccountRepository creates a new MockAccountRepository with default behaviors
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{}
}

// Create creates a new account
func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	// Default behavior: success
	return nil
}

// FindByEmail finds an account by email
func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// AddDevice records a trusted device
func (m *MockAccountRepository) AddDevice(ctx context.Context, email string, fp domain.DeviceFingerprint) error {
	if m.AddDeviceFunc != nil {
		return m.AddDeviceFunc(ctx, email, fp)
	}
	// Default behavior: success
	return nil
}

// Compile-time interface compliance verification
var _ domain.AccountRepository = (*MockAccountRepository)(nil)
