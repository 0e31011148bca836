package mocks

import (
	"context"
	"sync"

	"github.com/richblaalid/chuckbox/internal/ports"
)

var _ ports.EmailSender = (*MockEmailSender)(nil)

// MockEmailSender records messages instead of sending them
type MockEmailSender struct {
	mu       sync.Mutex
	Messages []ports.Message
	Err      error
}

func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{}
}

func (m *MockEmailSender) Send(ctx context.Context, msg ports.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

// Sent returns a copy of the recorded messages
func (m *MockEmailSender) Sent() []ports.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.Message(nil), m.Messages...)
}

// SentTo returns messages addressed to one recipient
func (m *MockEmailSender) SentTo(to string) []ports.Message {
	var out []ports.Message
	for _, msg := range m.Sent() {
		if msg.To == to {
			out = append(out, msg)
		}
	}
	return out
}
