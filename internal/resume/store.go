// Package resume persists save-for-later snapshots so a session can be resumed
// from any device until the link expires.
package resume

import (
	"context"
	"time"

	"uk-eta-backend/internal/models"
)

// Grace keeps an expired snapshot readable long enough for the resume flow to
// report the expiry instead of a missing link.
const Grace = 7 * 24 * time.Hour

// Store returns store.ErrNotFound from Get when the token is unknown.
type Store interface {
	Save(ctx context.Context, snap *models.ResumeSnapshot) error
	Get(ctx context.Context, token string) (*models.ResumeSnapshot, error)
	Delete(ctx context.Context, token string) error
}
