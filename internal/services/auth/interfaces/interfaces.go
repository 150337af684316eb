package interfaces

import (
	"context"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/lib/ratelimit"
)

type UserSaver interface {
	// SaveUser returns storage.ErrUserExists when the email or username is taken
	SaveUser(ctx context.Context, user *models.User) (*models.User, error)
}

type UserProvider interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByEmailOrUsername(ctx context.Context, email string, username string) (*models.User, error)
}

// CredentialUpdater changes stored credentials in single atomic updates
type CredentialUpdater interface {
	SetPassword(ctx context.Context, userID string, passHash []byte) error
	SetPasswordByEmail(ctx context.Context, email string, passHash []byte) (*models.User, error)
	SetVerified(ctx context.Context, userID string) (*models.User, error)
}

// EmailVerifier issues and validates verification tokens
type EmailVerifier interface {
	Issue(ctx context.Context, userID string) (*models.EmailToken, error)
	Validate(ctx context.Context, token string) (userID string, err error)
}

type RateLimiter interface {
	Allow(ctx context.Context, rule ratelimit.Rule, identity string) error
}

type Mailer interface {
	SendVerificationMail(ctx context.Context, to string, username string, link string) error
	SendPasswordResetMail(ctx context.Context, to string, username string, password string) error
}

// TokenIssuer signs session credentials
type TokenIssuer interface {
	NewSessionToken(user *models.User) (string, error)
}
