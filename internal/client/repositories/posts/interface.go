package posts

import (
	"context"

	"github.com/dmitrijs2005/postkeeper/internal/client/models"
)

// Repository stores posts keyed by their local id.
type Repository interface {
	// GetAll returns every stored post, ordered by local id.
	GetAll(ctx context.Context) ([]models.Post, error)

	// GetByID returns one post or common.ErrorNotFound.
	GetByID(ctx context.Context, localID string) (*models.Post, error)

	// Upsert inserts p or replaces the stored record as a whole.
	Upsert(ctx context.Context, p models.Post) error

	// DeleteByID removes a post. Missing posts yield common.ErrorNotFound.
	DeleteByID(ctx context.Context, localID string) error
}
