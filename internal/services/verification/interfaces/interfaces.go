package interfaces

import (
	"context"

	"bookmarker/internal/domain/models"
)

// EmailTokenStorage writes, reads and invalidates verification tokens
type EmailTokenStorage interface {
	SaveEmailToken(ctx context.Context, token *models.EmailToken) error
	// EmailToken returns storage.ErrTokenNotFound when the token is unknown or already purged
	EmailToken(ctx context.Context, token string) (*models.EmailToken, error)
	DeleteUserEmailTokens(ctx context.Context, userID string) error
}
