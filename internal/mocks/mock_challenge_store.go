package mocks

import (
	"context"
	"sync"

	"github.com/you/feedauth/domain"
)

// MockChallengeStore implements domain.ChallengeStore interface for testing.
// Without overrides it behaves as an in-memory store.
type MockChallengeStore struct {
	SaveFunc   func(ctx context.Context, challenge *domain.PendingChallenge) error
	FindFunc   func(ctx context.Context, id string) (*domain.PendingChallenge, error)
	DeleteFunc func(ctx context.Context, id string) error

	mu         sync.Mutex
	challenges map[string]domain.PendingChallenge
}

// NewMockChallengeStore creates a new MockChallengeStore with default behaviors
func NewMockChallengeStore() *MockChallengeStore {
	return &MockChallengeStore{challenges: make(map[string]domain.PendingChallenge)}
}

// Save stores a challenge
func (m *MockChallengeStore) Save(ctx context.Context, challenge *domain.PendingChallenge) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, challenge)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.challenges[challenge.ID] = *challenge
	return nil
}

// Find loads a challenge by ID
func (m *MockChallengeStore) Find(ctx context.Context, id string) (*domain.PendingChallenge, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok {
		return nil, domain.ErrChallengeNotFound
	}
	return &c, nil
}

// Delete removes a challenge
func (m *MockChallengeStore) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.challenges, id)
	return nil
}

// Len reports how many challenges are stored
func (m *MockChallengeStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.challenges)
}

// Compile-time interface compliance verification
var _ domain.ChallengeStore = (*MockChallengeStore)(nil)
