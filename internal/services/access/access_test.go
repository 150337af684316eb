package access

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/services"
	"bookmarker/internal/storage/inmemory"
)

var admin = models.Caller{UserID: "admin-1", Username: "admin", Roles: []string{models.RoleUser, models.RoleAdmin}}

func newAccess(t *testing.T) (*Access, *inmemory.Storage) {
	t.Helper()

	store := inmemory.New()
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), store, store, store), store
}

func seed(t *testing.T, store *inmemory.Storage) *models.User {
	t.Helper()

	u, err := store.SaveUser(context.Background(), &models.User{
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		Roles:    []models.Role{{Role: models.RoleUser, AssociatedIDs: []string{}}},
	})
	require.NoError(t, err)
	return u
}

func TestAccess_RequiresAdmin(t *testing.T) {
	svc, store := newAccess(t)
	ctx := context.Background()
	u := seed(t, store)
	plain := models.Caller{UserID: u.ID, Roles: []string{models.RoleUser}}

	_, err := svc.Users(ctx, plain)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
	_, err = svc.RemoveUser(ctx, plain, u.ID)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
	_, err = svc.AssignRoleToUser(ctx, models.Caller{}, u.ID, models.RoleAdmin, nil)
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestAccess_UsersAndRemove(t *testing.T) {
	svc, store := newAccess(t)
	ctx := context.Background()
	u := seed(t, store)
	seed(t, store)

	users, err := svc.Users(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	removed, err := svc.RemoveUser(ctx, admin, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, removed.ID)

	_, err = svc.RemoveUser(ctx, admin, u.ID)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestAccess_Roles(t *testing.T) {
	svc, store := newAccess(t)
	ctx := context.Background()
	u := seed(t, store)

	user, err := svc.AssignRoleToUser(ctx, admin, u.ID, "moderator", []string{"subject-1"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{models.RoleUser, "moderator"}, user.RoleNames())

	user, err = svc.AssignRoleToUser(ctx, admin, u.ID, "moderator", []string{"subject-2"})
	require.NoError(t, err)
	require.Len(t, user.Roles, 2)
	assert.Equal(t, []string{"subject-2"}, user.Roles[1].AssociatedIDs)

	user, err = svc.RevokeRoleFromUser(ctx, admin, u.ID, "moderator")
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleUser}, user.RoleNames())

	_, err = svc.AssignRoleToUser(ctx, admin, "missing", "moderator", nil)
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = svc.AssignRoleToUser(ctx, admin, u.ID, " ", nil)
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}
