package interfaces

import (
	"context"

	"bookmarker/internal/domain/models"
)

type UserLister interface {
	Users(ctx context.Context) ([]models.User, error)
}

type UserRemover interface {
	// DeleteUser removes the user together with its pending verification tokens
	DeleteUser(ctx context.Context, userID string) (*models.User, error)
}

// RoleController provides manipulation with user's roles, allow assigns and revokes role groups
type RoleController interface {
	// AssignRole replaces a role of the same name
	AssignRole(ctx context.Context, userID string, role models.Role) (*models.User, error)
	RevokeRole(ctx context.Context, userID string, role string) (*models.User, error)
}
