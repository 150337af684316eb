package gateway

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/services/auth"
	"bookmarker/internal/services/library"
)

type Auth interface {
	Signup(ctx context.Context, username string, email string, password string) (*auth.Session, error)
	Login(ctx context.Context, email string, password string) (*auth.Session, error)
	ForgotPassword(ctx context.Context, caller models.Caller, email string) (string, error)
	UpdatePassword(ctx context.Context, caller models.Caller, email string, oldPassword string, newPassword string) (*models.User, error)
	RequestVerification(ctx context.Context, caller models.Caller, userID string) (string, error)
	VerifyEmail(ctx context.Context, email string, token string) (*models.User, error)
}

type Library interface {
	Me(ctx context.Context, caller models.Caller) (*models.User, error)
	User(ctx context.Context, caller models.Caller, userID string) (*models.User, error)
	Bookmarks(ctx context.Context, caller models.Caller, userID string) ([]models.Bookmark, error)
	AddBookmark(ctx context.Context, caller models.Caller, userID string, bookmark models.Bookmark) (*models.User, error)
	ArchiveBookmark(ctx context.Context, caller models.Caller, userID string, bookmarkID string) (*models.User, error)
	UnarchiveBookmark(ctx context.Context, caller models.Caller, userID string, bookmarkID string) (*models.User, error)
	AddBook(ctx context.Context, caller models.Caller, userID string, book models.Book) (*models.User, error)
	RemoveBook(ctx context.Context, caller models.Caller, userID string, bookID string) (*models.User, error)
	UpdateProfilePic(ctx context.Context, caller models.Caller, userID string, pic string) (*models.User, error)
	UploadURL(ctx context.Context, caller models.Caller) (*library.Upload, error)
	AddSubject(ctx context.Context, caller models.Caller, subject models.Subject) (*models.Subject, error)
	Subject(ctx context.Context, id string) (*models.Subject, error)
	Subjects(ctx context.Context, sort *models.SubjectSort) ([]models.Subject, error)
}

type Access interface {
	Users(ctx context.Context, caller models.Caller) ([]models.User, error)
	RemoveUser(ctx context.Context, caller models.Caller, userID string) (*models.User, error)
	AssignRoleToUser(ctx context.Context, caller models.Caller, userID string, role string, associatedIDs []string) (*models.User, error)
	RevokeRoleFromUser(ctx context.Context, caller models.Caller, userID string, role string) (*models.User, error)
}

type Feedback interface {
	Add(ctx context.Context, caller models.Caller, report models.Feedback) (*models.Feedback, error)
	List(ctx context.Context, caller models.Caller, sort *models.SubjectSort) ([]models.Feedback, error)
	Archive(ctx context.Context, caller models.Caller, id string) (*models.Feedback, error)
}

// Observer is notified once per resolved operation
type Observer interface {
	ObserveOperation(operation string, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveOperation(string, error) {}

// Resolver is the root GraphQL resolver
type Resolver struct {
	log      *slog.Logger
	auth     Auth
	library  Library
	access   Access
	feedback Feedback
	observer Observer
}

func New(
	log *slog.Logger,
	authService Auth,
	libraryService Library,
	accessService Access,
	feedbackService Feedback,
	observer Observer,
) *Resolver {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Resolver{
		log:      log,
		auth:     authService,
		library:  libraryService,
		access:   accessService,
		feedback: feedbackService,
		observer: observer,
	}
}

// ParseSchema binds the resolver to Schema
func (r *Resolver) ParseSchema() (*graphql.Schema, error) {
	return graphql.ParseSchema(Schema, r, graphql.MaxDepth(12))
}

// Handler serves GraphQL over HTTP. The caller must already be in the request context.
func (r *Resolver) Handler() (http.Handler, error) {
	schema, err := r.ParseSchema()
	if err != nil {
		return nil, err
	}
	return &relay.Handler{Schema: schema}, nil
}

// done records the outcome of operation and converts err to its public form.
// Errors outside the domain taxonomy are logged here and never returned as is.
func (r *Resolver) done(operation string, err error) error {
	r.observer.ObserveOperation(operation, err)
	if err == nil {
		return nil
	}

	public, known := toPublic(err)
	log := r.log.With(slog.String("op", "gateway."+operation))
	if known {
		log.Debug("operation rejected", slog.String("code", public.code), slog.String("error", err.Error()))
	} else {
		log.Error("operation failed", slog.String("error", err.Error()))
	}
	return public
}
