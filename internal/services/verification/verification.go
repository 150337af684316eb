package verification

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bookmarker/internal/domain/models"
	"bookmarker/internal/services/verification/interfaces"
	"bookmarker/internal/storage"
)

// MaxTokenAge bounds how long a verification token is honoured,
// independently of when the store purges it.
const MaxTokenAge = 24 * time.Hour

const tokenBytes = 32

type Verification struct {
	log          *slog.Logger
	tokenStorage interfaces.EmailTokenStorage
	tokenTTL     time.Duration
	now          func() time.Time
}

// New creates an instance of Verification service
func New(
	logger *slog.Logger,
	tokenStorage interfaces.EmailTokenStorage,
	tokenTTL time.Duration,
) *Verification {
	return &Verification{
		log:          logger,
		tokenStorage: tokenStorage,
		tokenTTL:     tokenTTL,
		now:          time.Now,
	}
}

// WithClock replaces the time source, used by tests
func (v *Verification) WithClock(now func() time.Time) *Verification {
	v.now = now
	return v
}

// Issue creates a verification token for the user.
// Tokens issued earlier for the same user stop working.
func (v *Verification) Issue(ctx context.Context, userID string) (*models.EmailToken, error) {
	const op = "verification.Issue"
	logger := v.log.With(slog.String("op", op), slog.String("user_id", userID))

	raw, err := NewVerifyingToken()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := v.tokenStorage.DeleteUserEmailTokens(ctx, userID); err != nil {
		logger.Error("error invalidating previous tokens", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	now := v.now()
	token := &models.EmailToken{
		Token:     raw,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(v.tokenTTL),
	}
	if err := v.tokenStorage.SaveEmailToken(ctx, token); err != nil {
		logger.Error("error saving email token", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("token successfully saved")
	return token, nil
}

// Validate returns the user a token was issued for.
//
// Fails with storage.ErrTokenNotFound for unknown tokens
// and storage.ErrTokenExpired for tokens past their TTL or older than MaxTokenAge.
func (v *Verification) Validate(ctx context.Context, token string) (string, error) {
	const op = "verification.Validate"
	logger := v.log.With(slog.String("op", op))

	eToken, err := v.tokenStorage.EmailToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			logger.Info("token not found")
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	now := v.now()
	if !now.Before(eToken.ExpiresAt) || now.Sub(eToken.CreatedAt) > MaxTokenAge {
		logger.Info("token expired", slog.String("user_id", eToken.UserID))
		return "", fmt.Errorf("%s: %w", op, storage.ErrTokenExpired)
	}

	return eToken.UserID, nil
}

// NewVerifyingToken returns a random url safe token
func NewVerifyingToken() (string, error) {
	token := make([]byte, tokenBytes)
	if _, err := rand.Read(token); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(token), nil
}
