package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/services"
	"bookmarker/internal/services/library/interfaces"
	"bookmarker/internal/storage"
)

var subjectSortFields = map[string]bool{"name": true, "createdAt": true}

// Upload is a presigned URL the client PUTs a file to
type Upload struct {
	Key string
	URL string
}

type Library struct {
	log          *slog.Logger
	usrProvider  interfaces.UserProvider
	libStorage   interfaces.LibraryStorage
	subjStorage  interfaces.SubjectStorage
	uploadSigner interfaces.UploadSigner
}

// New returns a new instance of the Library service
func New(
	log *slog.Logger,
	userProvider interfaces.UserProvider,
	libStorage interfaces.LibraryStorage,
	subjStorage interfaces.SubjectStorage,
	uploadSigner interfaces.UploadSigner,
) *Library {
	return &Library{
		log:          log,
		usrProvider:  userProvider,
		libStorage:   libStorage,
		subjStorage:  subjStorage,
		uploadSigner: uploadSigner,
	}
}

// Me returns the caller's own record, nil for anonymous callers
func (l *Library) Me(ctx context.Context, caller models.Caller) (*models.User, error) {
	const op = "library.Me"

	if !caller.Authenticated() {
		return nil, nil
	}
	user, err := l.usrProvider.UserByID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

func (l *Library) User(ctx context.Context, caller models.Caller, userID string) (*models.User, error) {
	const op = "library.User"

	if err := owner(caller, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := l.usrProvider.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}
	return user, nil
}

// Bookmarks lists the user's bookmarks that are not archived
func (l *Library) Bookmarks(ctx context.Context, caller models.Caller, userID string) ([]models.Bookmark, error) {
	const op = "library.Bookmarks"

	user, err := l.User(ctx, caller, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user.ActiveBookmarks(), nil
}

func (l *Library) AddBookmark(ctx context.Context, caller models.Caller, userID string, bookmark models.Bookmark) (*models.User, error) {
	const op = "library.AddBookmark"
	log := l.log.With(slog.String("op", op), slog.String("user_id", userID))

	if err := owner(caller, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if bookmark.CategoryID == "" || bookmark.Name == "" || bookmark.Path == "" {
		return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidInput)
	}

	user, err := l.libStorage.AddBookmark(ctx, userID, bookmark)
	if err != nil {
		log.Error("failed to add bookmark", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}
	log.Info("bookmark added")
	return user, nil
}

func (l *Library) ArchiveBookmark(ctx context.Context, caller models.Caller, userID string, bookmarkID string) (*models.User, error) {
	return l.setArchived(ctx, "library.ArchiveBookmark", caller, userID, bookmarkID, true)
}

func (l *Library) UnarchiveBookmark(ctx context.Context, caller models.Caller, userID string, bookmarkID string) (*models.User, error) {
	return l.setArchived(ctx, "library.UnarchiveBookmark", caller, userID, bookmarkID, false)
}

func (l *Library) setArchived(
	ctx context.Context,
	op string,
	caller models.Caller,
	userID string,
	bookmarkID string,
	archived bool,
) (*models.User, error) {
	log := l.log.With(slog.String("op", op), slog.String("user_id", userID), slog.String("bookmark_id", bookmarkID))

	if err := owner(caller, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := l.libStorage.SetBookmarkArchived(ctx, userID, bookmarkID, archived)
	if err != nil {
		log.Info("failed to update bookmark", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}
	log.Info("bookmark updated", slog.Bool("archived", archived))
	return user, nil
}

func (l *Library) AddBook(ctx context.Context, caller models.Caller, userID string, book models.Book) (*models.User, error) {
	const op = "library.AddBook"
	log := l.log.With(slog.String("op", op), slog.String("user_id", userID))

	if err := owner(caller, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if book.BookID == "" || book.Title == "" {
		return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidInput)
	}
	if book.Authors == nil {
		book.Authors = []string{}
	}

	user, err := l.libStorage.AddBook(ctx, userID, book)
	if err != nil {
		log.Error("failed to add book", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}
	return user, nil
}

func (l *Library) RemoveBook(ctx context.Context, caller models.Caller, userID string, bookID string) (*models.User, error) {
	const op = "library.RemoveBook"

	if err := owner(caller, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	user, err := l.libStorage.RemoveBook(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}
	return user, nil
}

func (l *Library) UpdateProfilePic(ctx context.Context, caller models.Caller, userID string, pic string) (*models.User, error) {
	const op = "library.UpdateProfilePic"

	if err := owner(caller, userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if strings.TrimSpace(pic) == "" {
		return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidInput)
	}
	user, err := l.libStorage.UpdateProfilePic(ctx, userID, pic)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapStorageErr(err))
	}
	return user, nil
}

// UploadURL presigns an upload for the caller's profile picture
func (l *Library) UploadURL(ctx context.Context, caller models.Caller) (*Upload, error) {
	const op = "library.UploadURL"

	if !caller.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, services.ErrUnauthorized)
	}
	key, url, err := l.uploadSigner.PresignedPutURL(ctx)
	if err != nil {
		l.log.Error("failed to presign upload", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Upload{Key: key, URL: url}, nil
}

// AddSubject creates a subject owned by the caller, the path is derived from the name
func (l *Library) AddSubject(ctx context.Context, caller models.Caller, subject models.Subject) (*models.Subject, error) {
	const op = "library.AddSubject"
	log := l.log.With(slog.String("op", op))

	if !caller.Authenticated() {
		return nil, fmt.Errorf("%s: %w", op, services.ErrUnauthorized)
	}
	subject.Name = strings.TrimSpace(subject.Name)
	if subject.Name == "" {
		return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidInput)
	}
	subject.CreatedBy = caller.Username
	subject.Path = models.SubjectPath(subject.Name)

	saved, err := l.subjStorage.SaveSubject(ctx, &subject)
	if err != nil {
		if errors.Is(err, storage.ErrSubjectExists) {
			return nil, fmt.Errorf("%s: %w: %w", op, services.ErrDuplicateIdentity, err)
		}
		log.Error("failed to save subject", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("subject added", slog.String("subject_id", saved.ID))
	return saved, nil
}

func (l *Library) Subject(ctx context.Context, id string) (*models.Subject, error) {
	const op = "library.Subject"

	subject, err := l.subjStorage.Subject(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrSubjectNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subject, nil
}

// Subjects lists subjects sorted by name or createdAt, newest first by default
func (l *Library) Subjects(ctx context.Context, sort *models.SubjectSort) ([]models.Subject, error) {
	const op = "library.Subjects"

	order := models.SubjectSort{Field: "createdAt", Order: models.SortDesc}
	if sort != nil {
		if !subjectSortFields[sort.Field] || (sort.Order != models.SortAsc && sort.Order != models.SortDesc) {
			return nil, fmt.Errorf("%s: %w", op, services.ErrInvalidInput)
		}
		order = *sort
	}

	subjects, err := l.subjStorage.Subjects(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return subjects, nil
}

func owner(caller models.Caller, userID string) error {
	if !caller.Owns(userID) {
		return services.ErrUnauthorized
	}
	return nil
}

func mapStorageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrUserNotFound), errors.Is(err, storage.ErrBookmarkNotFound):
		return fmt.Errorf("%w: %w", services.ErrNotFound, err)
	default:
		return err
	}
}
