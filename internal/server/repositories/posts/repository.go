// Package posts declares and implements the server-side storage of
// submitted posts.
package posts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/server/models"
)

type Repository interface {
	// Upsert inserts the post or replaces a not yet published one with the
	// same (user, local id). A published post is left untouched and
	// common.ErrorAlreadyExists is returned.
	Upsert(ctx context.Context, p *models.Post) (*models.Post, error)

	// FindByLocalIDs returns the user's posts among localIDs. Unknown ids are
	// simply absent from the result.
	FindByLocalIDs(ctx context.Context, userID string, localIDs []string) ([]models.Post, error)

	// SelectDue returns up to limit pending posts scheduled at or before now,
	// locking them for the surrounding transaction.
	SelectDue(ctx context.Context, now time.Time, limit int) ([]models.Post, error)

	MarkPublished(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}
