package gateway

import (
	"context"
	"strings"

	"github.com/graph-gophers/graphql-go"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/lib/utilities"
)

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	user, err := r.library.Me(ctx, utilities.CallerFromContext(ctx))
	if err := r.done("me", err); err != nil {
		return nil, err
	}
	return newUserResolver(user), nil
}

func (r *Resolver) Users(ctx context.Context) ([]*userResolver, error) {
	users, err := r.access.Users(ctx, utilities.CallerFromContext(ctx))
	if err := r.done("users", err); err != nil {
		return nil, err
	}
	return utilities.Map(users, func(u models.User) *userResolver { return &userResolver{u: &u} }), nil
}

func (r *Resolver) User(ctx context.Context, args struct{ UserID graphql.ID }) (*userResolver, error) {
	user, err := r.library.User(ctx, utilities.CallerFromContext(ctx), string(args.UserID))
	if err := r.done("user", err); err != nil {
		return nil, err
	}
	return newUserResolver(user), nil
}

func (r *Resolver) Bookmarks(ctx context.Context, args struct{ UserID graphql.ID }) ([]*bookmarkResolver, error) {
	bookmarks, err := r.library.Bookmarks(ctx, utilities.CallerFromContext(ctx), string(args.UserID))
	if err := r.done("bookmarks", err); err != nil {
		return nil, err
	}
	return utilities.Map(bookmarks, func(b models.Bookmark) *bookmarkResolver { return &bookmarkResolver{b: b} }), nil
}

type sortByInput struct {
	Field string
	Order *string
}

// toSort defaults a missing order to ascending
func (in *sortByInput) toSort() *models.SubjectSort {
	if in == nil {
		return nil
	}
	sort := &models.SubjectSort{Field: in.Field, Order: models.SortAsc}
	if in.Order != nil {
		sort.Order = strings.ToUpper(*in.Order)
	}
	return sort
}

func (r *Resolver) Subjects(ctx context.Context, args struct{ SortBy *sortByInput }) ([]*subjectResolver, error) {
	subjects, err := r.library.Subjects(ctx, args.SortBy.toSort())
	if err := r.done("subjects", err); err != nil {
		return nil, err
	}
	return utilities.Map(subjects, func(s models.Subject) *subjectResolver { return &subjectResolver{s: s} }), nil
}

func (r *Resolver) Subject(ctx context.Context, args struct{ SubjectID graphql.ID }) (*subjectResolver, error) {
	subject, err := r.library.Subject(ctx, string(args.SubjectID))
	if err := r.done("subject", err); err != nil {
		return nil, err
	}
	if subject == nil {
		return nil, nil
	}
	return &subjectResolver{s: *subject}, nil
}

func (r *Resolver) BetaFeedback(ctx context.Context, args struct{ SortBy *sortByInput }) ([]*feedbackResolver, error) {
	items, err := r.feedback.List(ctx, utilities.CallerFromContext(ctx), args.SortBy.toSort())
	if err := r.done("betaFeedback", err); err != nil {
		return nil, err
	}
	return utilities.Map(items, func(f models.Feedback) *feedbackResolver { return &feedbackResolver{f: f} }), nil
}
