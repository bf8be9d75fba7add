// Package users provides the account stores behind the session core:
// PostgreSQL, MongoDB and an in-process map. All of them enforce email
// uniqueness themselves and report a clash as common.ErrorAlreadyExists.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// Repository is the user store contract. Lookups return common.ErrorNotFound
// when no record matches.
type Repository interface {
	// Create inserts user and fills in ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
