package models

import "time"

// EmailToken links a pending email verification to its user.
type EmailToken struct {
	Token     string    `json:"token" db:"token"`
	UserID    string    `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	ExpiresAt time.Time `json:"expiresAt" db:"expires_at"`
}
