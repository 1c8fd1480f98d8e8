// Package notification renders applicant emails and hands them to a Mailer.
// Failed deliveries wait in an outbox until RetryAll is called.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"uk-eta-backend/internal/metrics"
)

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer logs messages instead of delivering them. Only the recipient and
// template are logged; rendered content can carry resume links.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "sending email",
		"to", msg.To,
		"template", string(msg.Template),
	)
	return nil
}

type pending struct {
	msg      Message
	attempts int
	lastErr  string
}

// PendingMessage is an outbox entry.
type PendingMessage struct {
	Message
	Attempts  int    `json:"attempts"`
	LastError string `json:"last_error"`
}

type Service struct {
	mailer  Mailer
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	outbox []pending
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(mailer Mailer, opts ...Option) *Service {
	s := &Service{mailer: mailer, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Send renders and delivers one email. A delivery failure keeps the message in
// the outbox and is returned to the caller.
func (s *Service) Send(ctx context.Context, to string, name Template, data Data) error {
	if to == "" {
		return fmt.Errorf("email %s has no recipient", name)
	}
	msg, err := Render(to, name, data)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.metrics.IncEmail(string(name), "failed")
		s.logger.WarnContext(ctx, "email delivery failed, queued for retry", "template", string(name), "error", err)
		s.mu.Lock()
		s.outbox = append(s.outbox, pending{msg: msg, attempts: 1, lastErr: err.Error()})
		s.mu.Unlock()
		return fmt.Errorf("failed to send %s email: %w", name, err)
	}
	s.metrics.IncEmail(string(name), "sent")
	return nil
}

// RetryAll attempts every queued message once. Messages that fail again stay
// queued; the joined errors are returned alongside the number delivered.
func (s *Service) RetryAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	queued := s.outbox
	s.outbox = nil
	s.mu.Unlock()

	var (
		sent   int
		failed []pending
		errs   []error
	)
	for _, p := range queued {
		if err := ctx.Err(); err != nil {
			failed = append(failed, p)
			continue
		}
		if err := s.mailer.Send(ctx, p.msg); err != nil {
			p.attempts++
			p.lastErr = err.Error()
			failed = append(failed, p)
			errs = append(errs, fmt.Errorf("%s to %s: %w", p.msg.Template, p.msg.To, err))
			s.metrics.IncEmail(string(p.msg.Template), "failed")
			continue
		}
		sent++
		s.metrics.IncEmail(string(p.msg.Template), "retried")
	}

	if len(failed) > 0 {
		s.mu.Lock()
		s.outbox = append(failed, s.outbox...)
		s.mu.Unlock()
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return sent, errors.Join(errs...)
}

func (s *Service) Pending() []PendingMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PendingMessage, 0, len(s.outbox))
	for _, p := range s.outbox {
		out = append(out, PendingMessage{Message: p.msg, Attempts: p.attempts, LastError: p.lastErr})
	}
	return out
}

func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outbox = nil
}
