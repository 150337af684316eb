package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarker/internal/domain/models"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// DB is the subset of pgxpool.Pool used by the storage
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Storage instance for processing sql queries
type Storage struct {
	db   DB
	pool *pgxpool.Pool
	now  func() time.Time
}

// New opens a connection pool and checks it
func New(ctx context.Context, connString string) (*Storage, error) {
	const op = "storage.postgres.New"

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s := NewFromDB(pool)
	s.pool = pool
	return s, nil
}

func NewFromDB(db DB) *Storage {
	return &Storage{db: db, now: time.Now}
}

func (s *Storage) WithClock(now func() time.Time) *Storage {
	s.now = now
	return s
}

// Close ends database pool connection
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// userColumns selects a user with its roles, bookmarks and saved books aggregated as json
const userColumns = `
SELECT u.id::text, u.username, u.email, u.password_hash, u.is_verified, u.profile_pic, u.created_at, u.updated_at,
	COALESCE((SELECT json_agg(json_build_object('role', r.role, 'associatedIds', r.associated_ids) ORDER BY r.assigned_at)
		FROM user_roles r WHERE r.user_id = u.id), '[]'),
	COALESCE((SELECT json_agg(json_build_object('_id', b.id::text, 'categoryId', b.category_id, 'name', b.name,
			'type', b.type, 'path', b.path, 'archived', b.archived) ORDER BY b.created_at)
		FROM bookmarks b WHERE b.user_id = u.id), '[]'),
	COALESCE((SELECT json_agg(json_build_object('bookId', sb.book_id, 'authors', sb.authors, 'description', sb.description,
			'image', sb.image, 'link', sb.link, 'title', sb.title) ORDER BY sb.created_at)
		FROM saved_books sb WHERE sb.user_id = u.id), '[]')
FROM users u`

func scanUser(row pgx.Row) (*models.User, error) {
	var (
		u                       models.User
		roles, bookmarks, books []byte
	)
	if err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PassHash, &u.IsVerified, &u.ProfilePic, &u.CreatedAt, &u.UpdatedAt,
		&roles, &bookmarks, &books,
	); err != nil {
		return nil, err
	}

	u.Roles = []models.Role{}
	u.Bookmarks = []models.Bookmark{}
	u.SavedBooks = []models.Book{}
	if err := json.Unmarshal(roles, &u.Roles); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	if err := json.Unmarshal(bookmarks, &u.Bookmarks); err != nil {
		return nil, fmt.Errorf("decode bookmarks: %w", err)
	}
	if err := json.Unmarshal(books, &u.SavedBooks); err != nil {
		return nil, fmt.Errorf("decode saved books: %w", err)
	}
	return &u, nil
}
