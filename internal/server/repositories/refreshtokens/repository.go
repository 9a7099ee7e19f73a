// Package refreshtokens stores the server side of refresh token rotation.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/server/models"
)

// Repository keeps refresh tokens keyed by their opaque string.
type Repository interface {
	// Create stores token for userID, valid for validity from now.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	// Find returns common.ErrorNotFound for an unknown token.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)
	// Delete is a no-op for an unknown token.
	Delete(ctx context.Context, token string) error
	// DeleteExpired reports how many tokens expired before now were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

var _ Repository = (*PostgresRepository)(nil)
