package mocks

import (
	"context"
	"sync"

	"github.com/you/feedauth/domain"
)

// SentMessage is one captured notification
type SentMessage struct {
	To      domain.Recipient
	Subject string
	Body    string
}

// MockNotifier implements domain.Notifier interface for testing
type MockNotifier struct {
	SendFunc func(ctx context.Context, to domain.Recipient, subject, body string) error

	mu   sync.Mutex
	Sent []SentMessage
}

// NewMockNotifier creates a new MockNotifier with default behaviors
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// Send records the message and delegates to SendFunc when set
func (m *MockNotifier) Send(ctx context.Context, to domain.Recipient, subject, body string) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, to, subject, body); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.Sent = append(m.Sent, SentMessage{To: to, Subject: subject, Body: body})
	m.mu.Unlock()
	return nil
}

// Messages returns a copy of everything sent so far
func (m *MockNotifier) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.Sent...)
}

// Compile-time interface compliance verification
var _ domain.Notifier = (*MockNotifier)(nil)
