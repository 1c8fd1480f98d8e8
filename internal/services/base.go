package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"uk-eta-backend/internal/metrics"
	"uk-eta-backend/internal/models"
	"uk-eta-backend/internal/notification"
	"uk-eta-backend/internal/store"
)

// base carries the collaborators every service shares.
type base struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*base)

func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

func newBase(opts []Option) base {
	b := base{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&b)
		}
	}
	return b
}

// notify sends one email. Delivery failures are already queued for retry by
// the notification service, so they are only logged here.
func (b base) notify(ctx context.Context, n *notification.Service, to string, tpl notification.Template, data notification.Data) {
	if n == nil || to == "" {
		return
	}
	if err := n.Send(ctx, to, tpl, data); err != nil {
		b.logger.WarnContext(ctx, "email not delivered", "template", string(tpl), "error", err)
	}
}

func audit(ctx context.Context, st store.AuditStore, applicationID uuid.UUID, actor, action string, details models.JSONMap) error {
	entry := &models.AuditLog{
		ApplicationID: &applicationID,
		Actor:         actor,
		Action:        action,
		Details:       details,
	}
	if err := st.CreateAuditLog(ctx, entry); err != nil {
		return fmt.Errorf("failed to write %s audit log: %w", action, err)
	}
	return nil
}

func applicantName(a models.Applicant) string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
