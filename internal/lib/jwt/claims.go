package jwt

import (
	"github.com/golang-jwt/jwt/v5"

	"bookmarker/internal/domain/models"
)

// SessionClaims holds identity data about authenticated user
type SessionClaims struct {
	UserID     string   `json:"uid"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	IsVerified bool     `json:"is_verified"`
	Roles      []string `json:"roles"`
	jwt.RegisteredClaims
}

// Validate checks that identity claims are present, called by the parser
func (c *SessionClaims) Validate() error {
	if c.UserID == "" || c.Email == "" {
		return ErrTokenClaimsIncorrect
	}
	return nil
}

// Caller converts claims to the request caller
func (c *SessionClaims) Caller(addr string) models.Caller {
	return models.Caller{
		UserID:     c.UserID,
		Username:   c.Username,
		Email:      c.Email,
		IsVerified: c.IsVerified,
		Roles:      c.Roles,
		Addr:       addr,
	}
}
