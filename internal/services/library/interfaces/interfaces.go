package interfaces

import (
	"context"

	"bookmarker/internal/domain/models"
)

type UserProvider interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// LibraryStorage applies single conditional updates to a user's library
type LibraryStorage interface {
	// AddBookmark is a no-op when a bookmark with the same target exists
	AddBookmark(ctx context.Context, userID string, bookmark models.Bookmark) (*models.User, error)
	// SetBookmarkArchived returns storage.ErrBookmarkNotFound when the user has no such bookmark
	SetBookmarkArchived(ctx context.Context, userID string, bookmarkID string, archived bool) (*models.User, error)
	AddBook(ctx context.Context, userID string, book models.Book) (*models.User, error)
	RemoveBook(ctx context.Context, userID string, bookID string) (*models.User, error)
	UpdateProfilePic(ctx context.Context, userID string, pic string) (*models.User, error)
}

type SubjectStorage interface {
	SaveSubject(ctx context.Context, subject *models.Subject) (*models.Subject, error)
	Subject(ctx context.Context, id string) (*models.Subject, error)
	Subjects(ctx context.Context, sort models.SubjectSort) ([]models.Subject, error)
}

// UploadSigner hands out presigned upload URLs
type UploadSigner interface {
	PresignedPutURL(ctx context.Context) (key string, url string, err error)
}
