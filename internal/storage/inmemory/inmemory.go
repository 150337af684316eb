// Package inmemory keeps all records in process memory.
// It backs local runs without a database and the service tests.
package inmemory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/storage"
)

type Storage struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	tokens   map[string]models.EmailToken
	subjects map[string]*models.Subject
	feedback map[string]*models.Feedback
	now      func() time.Time
}

func New() *Storage {
	return &Storage{
		users:    make(map[string]*models.User),
		tokens:   make(map[string]models.EmailToken),
		subjects: make(map[string]*models.Subject),
		feedback: make(map[string]*models.Feedback),
		now:      time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (s *Storage) WithClock(now func() time.Time) *Storage {
	s.now = now
	return s
}

// SaveUser stores a new user and assigns its id
func (s *Storage) SaveUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) || strings.EqualFold(u.Username, user.Username) {
			return nil, storage.ErrUserExists
		}
	}

	saved := cloneUser(user)
	saved.ID = uuid.NewString()
	saved.CreatedAt = s.now()
	saved.UpdatedAt = saved.CreatedAt
	if saved.Bookmarks == nil {
		saved.Bookmarks = []models.Bookmark{}
	}
	if saved.SavedBooks == nil {
		saved.SavedBooks = []models.Book{}
	}
	s.users[saved.ID] = saved

	return cloneUser(saved), nil
}

func (s *Storage) UserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *Storage) UserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.findByEmail(email)
	if u == nil {
		return nil, storage.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *Storage) UserByEmailOrUsername(_ context.Context, email string, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) || strings.EqualFold(u.Username, username) {
			return cloneUser(u), nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *Storage) Users(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *cloneUser(u))
	}
	slices.SortFunc(users, func(a, b models.User) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return users, nil
}

func (s *Storage) SetPassword(_ context.Context, userID string, passHash []byte) error {
	return s.update(userID, func(u *models.User) error {
		u.PassHash = slices.Clone(passHash)
		return nil
	}, nil)
}

func (s *Storage) SetPasswordByEmail(_ context.Context, email string, passHash []byte) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.findByEmail(email)
	if u == nil {
		return nil, storage.ErrUserNotFound
	}
	u.PassHash = slices.Clone(passHash)
	u.UpdatedAt = s.now()
	return cloneUser(u), nil
}

func (s *Storage) SetVerified(_ context.Context, userID string) (*models.User, error) {
	var out *models.User
	err := s.update(userID, func(u *models.User) error {
		u.IsVerified = true
		return nil
	}, &out)
	return out, err
}

func (s *Storage) UpdateProfilePic(_ context.Context, userID string, pic string) (*models.User, error) {
	var out *models.User
	err := s.update(userID, func(u *models.User) error {
		u.ProfilePic = pic
		return nil
	}, &out)
	return out, err
}

// AddBookmark appends the bookmark unless one with the same target exists
func (s *Storage) AddBookmark(_ context.Context, userID string, bookmark models.Bookmark) (*models.User, error) {
	var out *models.User
	err := s.update(userID, func(u *models.User) error {
		if slices.ContainsFunc(u.Bookmarks, bookmark.SameTarget) {
			return nil
		}
		bookmark.ID = uuid.NewString()
		bookmark.Archived = false
		u.Bookmarks = append(u.Bookmarks, bookmark)
		return nil
	}, &out)
	return out, err
}

func (s *Storage) SetBookmarkArchived(_ context.Context, userID string, bookmarkID string, archived bool) (*models.User, error) {
	var out *models.User
	err := s.update(userID, func(u *models.User) error {
		i := slices.IndexFunc(u.Bookmarks, func(b models.Bookmark) bool { return b.ID == bookmarkID })
		if i < 0 {
			return storage.ErrBookmarkNotFound
		}
		u.Bookmarks[i].Archived = archived
		return nil
	}, &out)
	return out, err
}

// AddBook appends the book unless one with the same BookID is saved
func (s *Storage) AddBook(_ context.Context, userID string, book models.Book) (*models.User, error) {
	var out *models.User
	err := s.update(userID, func(u *models.User) error {
		if slices.ContainsFunc(u.SavedBooks, func(b models.Book) bool { return b.BookID == book.BookID }) {
			return nil
		}
		book.Authors = slices.Clone(book.Authors)
		u.SavedBooks = append(u.SavedBooks, book)
		return nil
	}, &out)
	return out, err
}

func (s *Storage) RemoveBook(_ context.Context, userID string, bookID string) (*models.User, error) {
	var out *models.User
	err := s.update(userID, func(u *models.User) error {
		u.SavedBooks = slices.DeleteFunc(u.SavedBooks, func(b models.Book) bool { return b.BookID == bookID })
		return nil
	}, &out)
	return out, err
}

// AssignRole replaces a role of the same name or appends it
func (s *Storage) AssignRole(_ context.Context, userID string, role models.Role) (*models.User, error) {
	var out *models.User
	err := s.update(userID, func(u *models.User) error {
		role.AssociatedIDs = slices.Clone(role.AssociatedIDs)
		i := slices.IndexFunc(u.Roles, func(r models.Role) bool { return r.Role == role.Role })
		if i >= 0 {
			u.Roles[i] = role
			return nil
		}
		u.Roles = append(u.Roles, role)
		return nil
	}, &out)
	return out, err
}

func (s *Storage) RevokeRole(_ context.Context, userID string, role string) (*models.User, error) {
	var out *models.User
	err := s.update(userID, func(u *models.User) error {
		u.Roles = slices.DeleteFunc(u.Roles, func(r models.Role) bool { return r.Role == role })
		return nil
	}, &out)
	return out, err
}

func (s *Storage) DeleteUser(_ context.Context, userID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	delete(s.users, userID)
	for key, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, key)
		}
	}
	return cloneUser(u), nil
}

func (s *Storage) SaveEmailToken(_ context.Context, token *models.EmailToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token.Token] = *token
	return nil
}

// EmailToken treats tokens past their expiry as already purged
func (s *Storage) EmailToken(_ context.Context, token string) (*models.EmailToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}
	if !s.now().Before(t.ExpiresAt) {
		delete(s.tokens, token)
		return nil, storage.ErrTokenNotFound
	}
	return &t, nil
}

func (s *Storage) DeleteUserEmailTokens(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, t := range s.tokens {
		if t.UserID == userID {
			delete(s.tokens, key)
		}
	}
	return nil
}

func (s *Storage) DeleteExpiredEmailTokens(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for key, t := range s.tokens {
		if !now.Before(t.ExpiresAt) {
			delete(s.tokens, key)
			n++
		}
	}
	return n, nil
}

func (s *Storage) SaveSubject(_ context.Context, subject *models.Subject) (*models.Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.subjects {
		if strings.EqualFold(existing.Name, subject.Name) {
			return nil, storage.ErrSubjectExists
		}
	}
	saved := *subject
	saved.ID = uuid.NewString()
	saved.CreatedAt = s.now()
	s.subjects[saved.ID] = &saved

	out := saved
	return &out, nil
}

func (s *Storage) Subject(_ context.Context, id string) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subject, ok := s.subjects[id]
	if !ok {
		return nil, storage.ErrSubjectNotFound
	}
	out := *subject
	return &out, nil
}

func (s *Storage) Subjects(_ context.Context, sort models.SubjectSort) ([]models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	subjects := make([]models.Subject, 0, len(s.subjects))
	for _, subject := range s.subjects {
		subjects = append(subjects, *subject)
	}

	slices.SortFunc(subjects, func(a, b models.Subject) int {
		var c int
		switch sort.Field {
		case "name":
			c = cmp.Compare(a.Name, b.Name)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if sort.Order == models.SortDesc {
			return -c
		}
		return c
	})
	return subjects, nil
}

func (s *Storage) SaveFeedback(_ context.Context, feedback *models.Feedback) (*models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *feedback
	saved.ID = uuid.NewString()
	saved.Archived = false
	saved.CreatedAt = s.now()
	s.feedback[saved.ID] = &saved

	out := saved
	return &out, nil
}

func (s *Storage) Feedback(_ context.Context, sort models.SubjectSort) ([]models.Feedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]models.Feedback, 0, len(s.feedback))
	for _, f := range s.feedback {
		items = append(items, *f)
	}

	slices.SortFunc(items, func(a, b models.Feedback) int {
		var c int
		switch sort.Field {
		case "category":
			c = cmp.Compare(a.Category, b.Category)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if sort.Order == models.SortDesc {
			return -c
		}
		return c
	})
	return items, nil
}

func (s *Storage) ArchiveFeedback(_ context.Context, id string) (*models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feedback[id]
	if !ok {
		return nil, storage.ErrFeedbackNotFound
	}
	f.Archived = true

	out := *f
	return &out, nil
}

// update applies fn to the user under the write lock and optionally returns a copy
func (s *Storage) update(userID string, fn func(u *models.User) error, out **models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	if err := fn(u); err != nil {
		return err
	}
	u.UpdatedAt = s.now()
	if out != nil {
		*out = cloneUser(u)
	}
	return nil
}

func (s *Storage) findByEmail(email string) *models.User {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u
		}
	}
	return nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.PassHash = slices.Clone(u.PassHash)
	c.Roles = make([]models.Role, len(u.Roles))
	for i, r := range u.Roles {
		c.Roles[i] = models.Role{Role: r.Role, AssociatedIDs: slices.Clone(r.AssociatedIDs)}
	}
	c.Bookmarks = slices.Clone(u.Bookmarks)
	c.SavedBooks = make([]models.Book, len(u.SavedBooks))
	for i, b := range u.SavedBooks {
		b.Authors = slices.Clone(b.Authors)
		c.SavedBooks[i] = b
	}
	if c.Bookmarks == nil {
		c.Bookmarks = []models.Bookmark{}
	}
	return &c
}
