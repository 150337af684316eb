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

func (s *Storage) SaveEmailToken(ctx context.Context, token *models.EmailToken) error {
	const op = "storage.postgres.SaveEmailToken"

	if _, err := uuid.Parse(token.UserID); err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO email_verification_tokens (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		token.Token, token.UserID, token.CreatedAt.UTC(), token.ExpiresAt.UTC())
	if err != nil {
		if pgErrCode(err) == codeForeignKeyViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EmailToken only returns tokens whose expiry is still ahead
func (s *Storage) EmailToken(ctx context.Context, token string) (*models.EmailToken, error) {
	const op = "storage.postgres.EmailToken"

	var t models.EmailToken
	err := s.db.QueryRow(ctx,
		`SELECT token, user_id::text, created_at, expires_at FROM email_verification_tokens
		WHERE token = $1 AND expires_at > $2`,
		token, s.now().UTC()).Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

// Removes all user tokens in db
func (s *Storage) DeleteUserEmailTokens(ctx context.Context, userID string) error {
	const op = "storage.postgres.DeleteUserEmailTokens"

	if _, err := uuid.Parse(userID); err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrUserNotFound)
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM email_verification_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) DeleteExpiredEmailTokens(ctx context.Context) (int64, error) {
	const op = "storage.postgres.DeleteExpiredEmailTokens"

	tag, err := s.db.Exec(ctx, `DELETE FROM email_verification_tokens WHERE expires_at <= $1`, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return tag.RowsAffected(), nil
}
