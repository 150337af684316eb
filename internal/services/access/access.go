package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/services"
	"bookmarker/internal/services/access/interfaces"
	"bookmarker/internal/storage"
)

// Access holds operations reserved for admins
type Access struct {
	log            *slog.Logger
	userLister     interfaces.UserLister
	userRemover    interfaces.UserRemover
	roleController interfaces.RoleController
}

func New(
	log *slog.Logger,
	userLister interfaces.UserLister,
	userRemover interfaces.UserRemover,
	roleController interfaces.RoleController,
) *Access {
	return &Access{
		log:            log,
		userLister:     userLister,
		userRemover:    userRemover,
		roleController: roleController,
	}
}

func (a *Access) Users(ctx context.Context, caller models.Caller) ([]models.User, error) {
	const op = "access.Users"

	if err := a.requireAdmin(op, caller); err != nil {
		return nil, err
	}
	users, err := a.userLister.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

// RemoveUser deletes the account and returns the removed record
func (a *Access) RemoveUser(ctx context.Context, caller models.Caller, userID string) (*models.User, error) {
	const op = "access.RemoveUser"

	if err := a.requireAdmin(op, caller); err != nil {
		return nil, err
	}
	user, err := a.userRemover.DeleteUser(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, services.ErrNotFound)
		}
		a.log.Error("failed to delete user", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.log.Info("user removed", slog.String("op", op), slog.String("user_id", userID), slog.String("admin_id", caller.UserID))
	return user, nil
}

// AssignRoleToUser grants a role, scoped to associatedIDs when given
func (a *Access) AssignRoleToUser(
	ctx context.Context,
	caller models.Caller,
	userID string,
	role string,
	associatedIDs []string,
) (*models.User, error) {
	const op = "access.AssignRoleToUser"

	if err := a.requireAdmin(op, caller); err != nil {
		return nil, err
	}
	role = strings.TrimSpace(role)
	if role == "" {
		return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidInput)
	}
	if associatedIDs == nil {
		associatedIDs = []string{}
	}

	user, err := a.roleController.AssignRole(ctx, userID, models.Role{Role: role, AssociatedIDs: associatedIDs})
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, services.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.log.Info("role assigned", slog.String("op", op), slog.String("user_id", userID), slog.String("role", role))
	return user, nil
}

func (a *Access) RevokeRoleFromUser(ctx context.Context, caller models.Caller, userID string, role string) (*models.User, error) {
	const op = "access.RevokeRoleFromUser"

	if err := a.requireAdmin(op, caller); err != nil {
		return nil, err
	}
	user, err := a.roleController.RevokeRole(ctx, userID, role)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, fmt.Errorf("%s: %w", op, services.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.log.Info("role revoked", slog.String("op", op), slog.String("user_id", userID), slog.String("role", role))
	return user, nil
}

func (a *Access) requireAdmin(op string, caller models.Caller) error {
	if !caller.Authenticated() || !caller.IsAdmin() {
		a.log.Info("user has no admin permissions", slog.String("op", op), slog.String("caller", caller.Key()))
		return fmt.Errorf("%s: %w", op, services.ErrUnauthorized)
	}
	return nil
}
