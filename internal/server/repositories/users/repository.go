package users

import (
	"context"

	"github.com/dmitrijs2005/postkeeper/internal/server/models"
)

// Repository stores accounts. Post owners are referenced by User.ID.
type Repository interface {
	// Create returns the stored user with its generated ID, or
	// common.ErrorAlreadyExists when the user name is taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin returns common.ErrorNotFound for an unknown user name.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}

var _ Repository = (*PostgresRepository)(nil)
