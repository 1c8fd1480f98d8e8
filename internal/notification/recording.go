package notification

import (
	"context"
	"sync"
)

// RecordingMailer keeps delivered messages in memory. Set Err to make
// deliveries fail.
type RecordingMailer struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

func (m *RecordingMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *RecordingMailer) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *RecordingMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// SentTo returns the templates delivered to one address, in order.
func (m *RecordingMailer) SentTo(to string) []Template {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Template
	for _, msg := range m.sent {
		if msg.To == to {
			out = append(out, msg.Template)
		}
	}
	return out
}
