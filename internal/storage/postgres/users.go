package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/storage"
)

// SaveUser saves user in data table 'users' together with its roles
func (s *Storage) SaveUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage.postgres.SaveUser"

	id := uuid.NewString()
	now := s.now().UTC()

	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, username, email, password_hash, is_verified, profile_pic, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
			id, user.Username, user.Email, user.PassHash, user.IsVerified, user.ProfilePic, now,
		); err != nil {
			return err
		}
		for _, r := range user.Roles {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_roles (user_id, role, associated_ids, assigned_at) VALUES ($1, $2, $3, $4)`,
				id, r.Role, associatedIDs(r), now,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if pgErrCode(err) == codeUniqueViolation {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	saved := *user
	saved.ID = id
	saved.CreatedAt = now
	saved.UpdatedAt = now
	saved.Roles = append([]models.Role(nil), user.Roles...)
	saved.Bookmarks = []models.Bookmark{}
	saved.SavedBooks = []models.Book{}
	return &saved, nil
}

// UserByID searches user in database by his ID
func (s *Storage) UserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return s.queryUser(ctx, op, userColumns+` WHERE u.id = $1`, id)
}

func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.queryUser(ctx, "storage.postgres.UserByEmail", userColumns+` WHERE lower(u.email) = lower($1)`, email)
}

func (s *Storage) UserByEmailOrUsername(ctx context.Context, email string, username string) (*models.User, error) {
	return s.queryUser(ctx, "storage.postgres.UserByEmailOrUsername",
		userColumns+` WHERE lower(u.email) = lower($1) OR lower(u.username) = lower($2) LIMIT 1`, email, username)
}

func (s *Storage) Users(ctx context.Context) ([]models.User, error) {
	const op = "storage.postgres.Users"

	rows, err := s.db.Query(ctx, userColumns+` ORDER BY u.created_at`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return users, nil
}

func (s *Storage) SetPassword(ctx context.Context, userID string, passHash []byte) error {
	const op = "storage.postgres.SetPassword"

	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		userID, passHash, s.now().UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return nil
}

func (s *Storage) SetPasswordByEmail(ctx context.Context, email string, passHash []byte) (*models.User, error) {
	const op = "storage.postgres.SetPasswordByEmail"

	var id string
	err := s.db.QueryRow(ctx,
		`UPDATE users SET password_hash = $2, updated_at = $3 WHERE lower(email) = lower($1) RETURNING id::text`,
		email, passHash, s.now().UTC()).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.UserByID(ctx, id)
}

func (s *Storage) SetVerified(ctx context.Context, userID string) (*models.User, error) {
	return s.updateUser(ctx, "storage.postgres.SetVerified", userID,
		`UPDATE users SET is_verified = TRUE, updated_at = $2 WHERE id = $1`, s.now().UTC())
}

func (s *Storage) UpdateProfilePic(ctx context.Context, userID string, pic string) (*models.User, error) {
	return s.updateUser(ctx, "storage.postgres.UpdateProfilePic", userID,
		`UPDATE users SET profile_pic = $2, updated_at = $3 WHERE id = $1`, pic, s.now().UTC())
}

// AddBookmark relies on the unique target constraint to keep bookmarks a set
func (s *Storage) AddBookmark(ctx context.Context, userID string, bookmark models.Bookmark) (*models.User, error) {
	return s.insertForUser(ctx, "storage.postgres.AddBookmark", userID,
		`INSERT INTO bookmarks (id, user_id, category_id, name, type, path, archived, created_at)
		VALUES ($2, $1, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (user_id, category_id, name, type, path) DO NOTHING`,
		uuid.NewString(), bookmark.CategoryID, bookmark.Name, bookmark.Type, bookmark.Path, s.now().UTC())
}

func (s *Storage) SetBookmarkArchived(ctx context.Context, userID string, bookmarkID string, archived bool) (*models.User, error) {
	const op = "storage.postgres.SetBookmarkArchived"

	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if _, err := uuid.Parse(bookmarkID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrBookmarkNotFound)
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE bookmarks SET archived = $3 WHERE id = $2 AND user_id = $1`,
		userID, bookmarkID, archived)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrBookmarkNotFound)
	}
	return user, nil
}

func (s *Storage) AddBook(ctx context.Context, userID string, book models.Book) (*models.User, error) {
	authors := book.Authors
	if authors == nil {
		authors = []string{}
	}
	return s.insertForUser(ctx, "storage.postgres.AddBook", userID,
		`INSERT INTO saved_books (user_id, book_id, authors, description, image, link, title, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, book_id) DO NOTHING`,
		book.BookID, authors, book.Description, book.Image, book.Link, book.Title, s.now().UTC())
}

func (s *Storage) RemoveBook(ctx context.Context, userID string, bookID string) (*models.User, error) {
	const op = "storage.postgres.RemoveBook"

	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM saved_books WHERE user_id = $1 AND book_id = $2`, userID, bookID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.UserByID(ctx, userID)
}

// AssignRole replaces the associated ids of a role the user already has
func (s *Storage) AssignRole(ctx context.Context, userID string, role models.Role) (*models.User, error) {
	return s.insertForUser(ctx, "storage.postgres.AssignRole", userID,
		`INSERT INTO user_roles (user_id, role, associated_ids, assigned_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, role) DO UPDATE SET associated_ids = EXCLUDED.associated_ids`,
		role.Role, associatedIDs(role), s.now().UTC())
}

func (s *Storage) RevokeRole(ctx context.Context, userID string, role string) (*models.User, error) {
	const op = "storage.postgres.RevokeRole"

	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.UserByID(ctx, userID)
}

// DeleteUser removes the user, cascading to its library and verification tokens
func (s *Storage) DeleteUser(ctx context.Context, userID string) (*models.User, error) {
	const op = "storage.postgres.DeleteUser"

	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	tag, err := s.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return user, nil
}

func (s *Storage) queryUser(ctx context.Context, op string, query string, args ...any) (*models.User, error) {
	user, err := scanUser(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// updateUser runs an update keyed by $1 = userID and reloads the user
func (s *Storage) updateUser(ctx context.Context, op string, userID string, query string, args ...any) (*models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	tag, err := s.db.Exec(ctx, query, append([]any{userID}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	return s.UserByID(ctx, userID)
}

// insertForUser runs an insert keyed by $1 = userID and reloads the user.
// A foreign key violation means the user does not exist.
func (s *Storage) insertForUser(ctx context.Context, op string, userID string, query string, args ...any) (*models.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	if _, err := s.db.Exec(ctx, query, append([]any{userID}, args...)...); err != nil {
		if pgErrCode(err) == codeForeignKeyViolation {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.UserByID(ctx, userID)
}

func associatedIDs(r models.Role) []string {
	if r.AssociatedIDs == nil {
		return []string{}
	}
	return r.AssociatedIDs
}
