package gateway

import (
	"context"

	"github.com/graph-gophers/graphql-go"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/lib/utilities"
	"bookmarker/internal/services/auth"
)

func (r *Resolver) AddUser(ctx context.Context, args struct{ Username, Email, Password string }) (*authResolver, error) {
	session, err := r.auth.Signup(ctx, args.Username, args.Email, args.Password)
	if err := r.done("addUser", err); err != nil {
		return nil, err
	}
	return &authResolver{session: session}, nil
}

func (r *Resolver) Login(ctx context.Context, args struct{ Email, Password string }) (*authResolver, error) {
	session, err := r.auth.Login(ctx, args.Email, args.Password)
	if err := r.done("login", err); err != nil {
		return nil, err
	}
	return &authResolver{session: session}, nil
}

func (r *Resolver) ForgotPassword(ctx context.Context, args struct{ Email string }) (*messageResolver, error) {
	msg, err := r.auth.ForgotPassword(ctx, utilities.CallerFromContext(ctx), args.Email)
	if err := r.done("forgotPassword", err); err != nil {
		return nil, err
	}
	return &messageResolver{message: msg}, nil
}

func (r *Resolver) UpdatePassword(ctx context.Context, args struct{ Email, OldPassword, NewPassword string }) (*userResolver, error) {
	user, err := r.auth.UpdatePassword(ctx, utilities.CallerFromContext(ctx), args.Email, args.OldPassword, args.NewPassword)
	if err := r.done("updatePassword", err); err != nil {
		return nil, err
	}
	return newUserResolver(user), nil
}

func (r *Resolver) AddEmailVerificationToken(ctx context.Context, args struct{ UserID graphql.ID }) (*messageResolver, error) {
	msg, err := r.auth.RequestVerification(ctx, utilities.CallerFromContext(ctx), string(args.UserID))
	if err := r.done("addEmailVerificationToken", err); err != nil {
		return nil, err
	}
	return &messageResolver{message: msg}, nil
}

func (r *Resolver) VerifyEmail(ctx context.Context, args struct{ Email, Token string }) (*verifyEmailResolver, error) {
	user, err := r.auth.VerifyEmail(ctx, args.Email, args.Token)
	if err := r.done("verifyEmail", err); err != nil {
		return nil, err
	}
	return &verifyEmailResolver{user: user}, nil
}

func (r *Resolver) AddSubject(ctx context.Context, args struct {
	Name        string
	Description string
	BgColor     string
	Image       *string
}) (*subjectResolver, error) {
	subject := models.Subject{
		Name:        args.Name,
		Description: args.Description,
		BgColor:     args.BgColor,
	}
	if args.Image != nil {
		subject.Image = *args.Image
	}

	saved, err := r.library.AddSubject(ctx, utilities.CallerFromContext(ctx), subject)
	if err := r.done("addSubject", err); err != nil {
		return nil, err
	}
	return &subjectResolver{s: *saved}, nil
}

func (r *Resolver) AddBetaFeedback(ctx context.Context, args struct {
	Username *string
	Email    *string
	Category string
	Message  string
	Image    *string
}) (*feedbackResolver, error) {
	report := models.Feedback{
		Category: args.Category,
		Message:  args.Message,
	}
	if args.Username != nil {
		report.Username = *args.Username
	}
	if args.Email != nil {
		report.Email = *args.Email
	}
	if args.Image != nil {
		report.Image = *args.Image
	}

	saved, err := r.feedback.Add(ctx, utilities.CallerFromContext(ctx), report)
	if err := r.done("addBetaFeedback", err); err != nil {
		return nil, err
	}
	return &feedbackResolver{f: *saved}, nil
}

func (r *Resolver) ArchiveBetaFeedback(ctx context.Context, args struct{ FeedbackID graphql.ID }) (*feedbackResolver, error) {
	archived, err := r.feedback.Archive(ctx, utilities.CallerFromContext(ctx), string(args.FeedbackID))
	if err := r.done("archiveBetaFeedback", err); err != nil {
		return nil, err
	}
	return &feedbackResolver{f: *archived}, nil
}

func (r *Resolver) AddBookmark(ctx context.Context, args struct {
	UserID     graphql.ID
	CategoryID graphql.ID
	Name       string
	Type       string
	Path       string
}) (*userResolver, error) {
	user, err := r.library.AddBookmark(ctx, utilities.CallerFromContext(ctx), string(args.UserID), models.Bookmark{
		CategoryID: string(args.CategoryID),
		Name:       args.Name,
		Type:       args.Type,
		Path:       args.Path,
	})
	return r.userResult("addBookmark", user, err)
}

type bookmarkArgs struct {
	UserID     graphql.ID
	BookmarkID graphql.ID
}

func (r *Resolver) ArchiveBookmark(ctx context.Context, args bookmarkArgs) (*userResolver, error) {
	user, err := r.library.ArchiveBookmark(ctx, utilities.CallerFromContext(ctx), string(args.UserID), string(args.BookmarkID))
	return r.userResult("archiveBookmark", user, err)
}

func (r *Resolver) UnarchiveBookmark(ctx context.Context, args bookmarkArgs) (*userResolver, error) {
	user, err := r.library.UnarchiveBookmark(ctx, utilities.CallerFromContext(ctx), string(args.UserID), string(args.BookmarkID))
	return r.userResult("unarchiveBookmark", user, err)
}

func (r *Resolver) AddBook(ctx context.Context, args struct {
	UserID      graphql.ID
	BookID      string
	Authors     []string
	Description string
	Image       string
	Link        string
	Title       string
}) (*userResolver, error) {
	user, err := r.library.AddBook(ctx, utilities.CallerFromContext(ctx), string(args.UserID), models.Book{
		BookID:      args.BookID,
		Authors:     args.Authors,
		Description: args.Description,
		Image:       args.Image,
		Link:        args.Link,
		Title:       args.Title,
	})
	return r.userResult("addBook", user, err)
}

func (r *Resolver) RemoveBook(ctx context.Context, args struct {
	UserID graphql.ID
	BookID string
}) (*userResolver, error) {
	user, err := r.library.RemoveBook(ctx, utilities.CallerFromContext(ctx), string(args.UserID), args.BookID)
	return r.userResult("removeBook", user, err)
}

func (r *Resolver) UpdateProfilePic(ctx context.Context, args struct {
	UserID     graphql.ID
	ProfilePic string
}) (*userResolver, error) {
	user, err := r.library.UpdateProfilePic(ctx, utilities.CallerFromContext(ctx), string(args.UserID), args.ProfilePic)
	return r.userResult("updateProfilePic", user, err)
}

func (r *Resolver) GetS3Url(ctx context.Context) (*uploadResolver, error) {
	upload, err := r.library.UploadURL(ctx, utilities.CallerFromContext(ctx))
	if err := r.done("getS3Url", err); err != nil {
		return nil, err
	}
	return &uploadResolver{key: upload.Key, url: upload.URL}, nil
}

func (r *Resolver) RemoveUser(ctx context.Context, args struct{ UserID graphql.ID }) (*userResolver, error) {
	user, err := r.access.RemoveUser(ctx, utilities.CallerFromContext(ctx), string(args.UserID))
	return r.userResult("removeUser", user, err)
}

func (r *Resolver) AssignRole(ctx context.Context, args struct {
	UserID        graphql.ID
	Role          string
	AssociatedIDs *[]string
}) (*userResolver, error) {
	var ids []string
	if args.AssociatedIDs != nil {
		ids = *args.AssociatedIDs
	}
	user, err := r.access.AssignRoleToUser(ctx, utilities.CallerFromContext(ctx), string(args.UserID), args.Role, ids)
	return r.userResult("assignRole", user, err)
}

func (r *Resolver) RevokeRole(ctx context.Context, args struct {
	UserID graphql.ID
	Role   string
}) (*userResolver, error) {
	user, err := r.access.RevokeRoleFromUser(ctx, utilities.CallerFromContext(ctx), string(args.UserID), args.Role)
	return r.userResult("revokeRole", user, err)
}

func (r *Resolver) userResult(operation string, user *models.User, err error) (*userResolver, error) {
	if err := r.done(operation, err); err != nil {
		return nil, err
	}
	return newUserResolver(user), nil
}

type authResolver struct {
	session *auth.Session
}

func (r *authResolver) Token() graphql.ID {
	return graphql.ID(r.session.Token)
}

func (r *authResolver) User() *userResolver {
	return newUserResolver(r.session.User)
}

type verifyEmailResolver struct {
	user *models.User
}

func (r *verifyEmailResolver) User() *userResolver {
	return newUserResolver(r.user)
}

type messageResolver struct {
	message string
}

func (r *messageResolver) Message() string {
	return r.message
}

type uploadResolver struct {
	key string
	url string
}

func (r *uploadResolver) Key() string {
	return r.key
}

func (r *uploadResolver) URL() string {
	return r.url
}
