package gateway

import (
	"github.com/graph-gophers/graphql-go"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/lib/utilities"
)

type userResolver struct {
	u *models.User
}

// newUserResolver returns nil for a nil user so nullable fields resolve to null
func newUserResolver(u *models.User) *userResolver {
	if u == nil {
		return nil
	}
	return &userResolver{u: u}
}

func (r *userResolver) ID() graphql.ID {
	return graphql.ID(r.u.ID)
}

func (r *userResolver) Username() string {
	return r.u.Username
}

func (r *userResolver) Email() string {
	return r.u.Email
}

func (r *userResolver) IsVerified() bool {
	return r.u.IsVerified
}

func (r *userResolver) ProfilePic() string {
	return r.u.ProfilePic
}

func (r *userResolver) Roles() []*roleResolver {
	return utilities.Map(r.u.Roles, func(role models.Role) *roleResolver { return &roleResolver{r: role} })
}

func (r *userResolver) Bookmarks() []*bookmarkResolver {
	return utilities.Map(r.u.Bookmarks, func(b models.Bookmark) *bookmarkResolver { return &bookmarkResolver{b: b} })
}

func (r *userResolver) SavedBooks() []*bookResolver {
	return utilities.Map(r.u.SavedBooks, func(b models.Book) *bookResolver { return &bookResolver{b: b} })
}

func (r *userResolver) CreatedAt() graphql.Time {
	return graphql.Time{Time: r.u.CreatedAt}
}

type roleResolver struct {
	r models.Role
}

func (r *roleResolver) Role() string {
	return r.r.Role
}

func (r *roleResolver) AssociatedIDs() []string {
	if r.r.AssociatedIDs == nil {
		return []string{}
	}
	return r.r.AssociatedIDs
}

type bookmarkResolver struct {
	b models.Bookmark
}

func (r *bookmarkResolver) ID() graphql.ID         { return graphql.ID(r.b.ID) }
func (r *bookmarkResolver) CategoryID() graphql.ID { return graphql.ID(r.b.CategoryID) }
func (r *bookmarkResolver) Name() string           { return r.b.Name }
func (r *bookmarkResolver) Type() string           { return r.b.Type }
func (r *bookmarkResolver) Path() string           { return r.b.Path }
func (r *bookmarkResolver) Archived() bool         { return r.b.Archived }

type bookResolver struct {
	b models.Book
}

func (r *bookResolver) BookID() string { return r.b.BookID }

func (r *bookResolver) Authors() []string {
	if r.b.Authors == nil {
		return []string{}
	}
	return r.b.Authors
}

func (r *bookResolver) Description() string { return r.b.Description }
func (r *bookResolver) Image() string       { return r.b.Image }
func (r *bookResolver) Link() string        { return r.b.Link }
func (r *bookResolver) Title() string       { return r.b.Title }

type subjectResolver struct {
	s models.Subject
}

func (r *subjectResolver) ID() graphql.ID          { return graphql.ID(r.s.ID) }
func (r *subjectResolver) Name() string            { return r.s.Name }
func (r *subjectResolver) Description() string     { return r.s.Description }
func (r *subjectResolver) Image() string           { return r.s.Image }
func (r *subjectResolver) BgColor() string         { return r.s.BgColor }
func (r *subjectResolver) CreatedBy() string       { return r.s.CreatedBy }
func (r *subjectResolver) Path() string            { return r.s.Path }
func (r *subjectResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.s.CreatedAt} }

type feedbackResolver struct {
	f models.Feedback
}

func (r *feedbackResolver) ID() graphql.ID          { return graphql.ID(r.f.ID) }
func (r *feedbackResolver) Username() string        { return r.f.Username }
func (r *feedbackResolver) Email() string           { return r.f.Email }
func (r *feedbackResolver) Category() string        { return r.f.Category }
func (r *feedbackResolver) Message() string         { return r.f.Message }
func (r *feedbackResolver) Image() string           { return r.f.Image }
func (r *feedbackResolver) Archived() bool          { return r.f.Archived }
func (r *feedbackResolver) CreatedAt() graphql.Time { return graphql.Time{Time: r.f.CreatedAt} }
