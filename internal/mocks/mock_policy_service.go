package mocks

import (
	"time"

	"github.com/you/feedauth/domain"
)

// MockAccessPolicy implements domain.AccessPolicy interface for testing
type MockAccessPolicy struct {
	CheckFunc func(fp domain.DeviceFingerprint, now time.Time) error
}

// NewMockAccessPolicy creates a new MockAccessPolicy with default behaviors
func NewMockAccessPolicy() *MockAccessPolicy {
	return &MockAccessPolicy{}
}

// Check applies the access window
func (m *MockAccessPolicy) Check(fp domain.DeviceFingerprint, now time.Time) error {
	if m.CheckFunc != nil {
		return m.CheckFunc(fp, now)
	}
	// Default behavior: allow
	return nil
}

// Compile-time interface compliance verification
var _ domain.AccessPolicy = (*MockAccessPolicy)(nil)
