package repository

import (
	"context"

	"access-code-service/internal/domain/model"
)

// UserRepository is the port for user accounts.
type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// UpdateRole sets the user's role; callers must have checked the grant
	// allow-list first.
	UpdateRole(ctx context.Context, tx Tx, userID, role string) error
}
