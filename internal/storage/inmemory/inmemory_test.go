package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/storage"
)

func newUser() *models.User {
	return &models.User{
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
		PassHash: []byte("hash"),
		Roles:    []models.Role{{Role: models.RoleUser}},
	}
}

func TestStorage_SaveUserUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()

	saved, err := s.SaveUser(ctx, &models.User{Username: "reader", Email: "reader@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	_, err = s.SaveUser(ctx, &models.User{Username: "other", Email: "READER@example.com"})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	_, err = s.SaveUser(ctx, &models.User{Username: "reader", Email: "other@example.com"})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	found, err := s.UserByEmailOrUsername(ctx, "nobody@example.com", "reader")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)

	_, err = s.UserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestStorage_UsernameIgnoresCase(t *testing.T) {
	s := New()
	ctx := context.Background()

	saved, err := s.SaveUser(ctx, &models.User{Username: "reader", Email: "reader@example.com"})
	require.NoError(t, err)

	_, err = s.SaveUser(ctx, &models.User{Username: "READER", Email: "other@example.com"})
	assert.ErrorIs(t, err, storage.ErrUserExists)

	found, err := s.UserByEmailOrUsername(ctx, "nobody@example.com", "Reader")
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)
	assert.Equal(t, "reader", found.Username)
}

func TestStorage_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	saved, err := s.SaveUser(ctx, newUser())
	require.NoError(t, err)

	saved.Username = "mutated"
	again, err := s.UserByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again.Username)
}

func TestStorage_Bookmarks(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, err := s.SaveUser(ctx, newUser())
	require.NoError(t, err)

	b := models.Bookmark{CategoryID: "c1", Name: "Algebra", Type: "subject", Path: "/subjects/algebra"}
	u, err = s.AddBookmark(ctx, u.ID, b)
	require.NoError(t, err)
	require.Len(t, u.Bookmarks, 1)

	u, err = s.AddBookmark(ctx, u.ID, b)
	require.NoError(t, err)
	require.Len(t, u.Bookmarks, 1)

	id := u.Bookmarks[0].ID
	u, err = s.SetBookmarkArchived(ctx, u.ID, id, true)
	require.NoError(t, err)
	assert.True(t, u.Bookmarks[0].Archived)
	assert.Empty(t, u.ActiveBookmarks())

	u, err = s.SetBookmarkArchived(ctx, u.ID, id, false)
	require.NoError(t, err)
	assert.False(t, u.Bookmarks[0].Archived)

	_, err = s.SetBookmarkArchived(ctx, u.ID, "missing", true)
	assert.ErrorIs(t, err, storage.ErrBookmarkNotFound)
	_, err = s.SetBookmarkArchived(ctx, "missing", id, true)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestStorage_Books(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, err := s.SaveUser(ctx, newUser())
	require.NoError(t, err)

	book := models.Book{BookID: "b1", Title: "Dune", Authors: []string{"Frank Herbert"}}
	_, err = s.AddBook(ctx, u.ID, book)
	require.NoError(t, err)
	u, err = s.AddBook(ctx, u.ID, book)
	require.NoError(t, err)
	require.Len(t, u.SavedBooks, 1)

	u, err = s.RemoveBook(ctx, u.ID, "b1")
	require.NoError(t, err)
	assert.Empty(t, u.SavedBooks)
}

func TestStorage_EmailTokens(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, s.SaveEmailToken(ctx, &models.EmailToken{Token: "t1", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, s.SaveEmailToken(ctx, &models.EmailToken{Token: "t2", UserID: "u2", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))

	got, err := s.EmailToken(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)

	now = now.Add(2 * time.Minute)
	n, err := s.DeleteExpiredEmailTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	_, err = s.EmailToken(ctx, "t2")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)

	now = now.Add(time.Hour)
	_, err = s.EmailToken(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
}

func TestStorage_Subjects(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return now })
	ctx := context.Background()

	_, err := s.SaveSubject(ctx, &models.Subject{Name: "Biology"})
	require.NoError(t, err)
	now = now.Add(time.Minute)
	_, err = s.SaveSubject(ctx, &models.Subject{Name: "Art"})
	require.NoError(t, err)

	_, err = s.SaveSubject(ctx, &models.Subject{Name: "art"})
	assert.ErrorIs(t, err, storage.ErrSubjectExists)

	byName, err := s.Subjects(ctx, models.SubjectSort{Field: "name", Order: models.SortAsc})
	require.NoError(t, err)
	require.Len(t, byName, 2)
	assert.Equal(t, "Art", byName[0].Name)

	newest, err := s.Subjects(ctx, models.SubjectSort{Field: "createdAt", Order: models.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, "Art", newest[0].Name)

	got, err := s.Subject(ctx, newest[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Biology", got.Name)

	_, err = s.Subject(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrSubjectNotFound)
}

func TestStorage_DeleteUserDropsTokens(t *testing.T) {
	s := New()
	ctx := context.Background()
	u, err := s.SaveUser(ctx, newUser())
	require.NoError(t, err)
	require.NoError(t, s.SaveEmailToken(ctx, &models.EmailToken{Token: "t1", UserID: u.ID, ExpiresAt: time.Now().Add(time.Hour)}))

	_, err = s.DeleteUser(ctx, u.ID)
	require.NoError(t, err)

	_, err = s.EmailToken(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrTokenNotFound)
	_, err = s.DeleteUser(ctx, u.ID)
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestStorage_Feedback(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return now })
	ctx := context.Background()

	first, err := s.SaveFeedback(ctx, &models.Feedback{Username: "reader", Category: "idea", Message: "dark mode", Archived: true})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Archived)

	now = now.Add(time.Minute)
	second, err := s.SaveFeedback(ctx, &models.Feedback{Username: "writer", Category: "bug", Message: "search is slow"})
	require.NoError(t, err)

	items, err := s.Feedback(ctx, models.SubjectSort{Field: "createdAt", Order: models.SortDesc})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.ID, items[0].ID)

	items, err = s.Feedback(ctx, models.SubjectSort{Field: "category", Order: models.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, "bug", items[0].Category)

	archived, err := s.ArchiveFeedback(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	items, err = s.Feedback(ctx, models.SubjectSort{Field: "createdAt", Order: models.SortAsc})
	require.NoError(t, err)
	assert.True(t, items[0].Archived)

	_, err = s.ArchiveFeedback(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrFeedbackNotFound)
}
