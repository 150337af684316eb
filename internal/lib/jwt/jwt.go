package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bookmarker/internal/domain/models"
)

var (
	ErrTokenInvalid         = errors.New("token is invalid")
	ErrTokenExpired         = errors.New("token is expired")
	ErrTokenClaimsIncorrect = errors.New("token claims are incorrect")
	ErrNoPublicKey          = errors.New("issuer has no public key")
)

// Issuer signs and verifies session credentials
type Issuer struct {
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	keyID     string
	ttl       time.Duration
	now       func() time.Time
}

// NewHMACIssuer creates an issuer signing with a shared secret (HS256)
func NewHMACIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{
		method:    jwt.SigningMethodHS256,
		signKey:   secret,
		verifyKey: secret,
		ttl:       ttl,
		now:       time.Now,
	}
}

// NewRSAIssuer creates an issuer signing with a private key (RS256)
func NewRSAIssuer(key *rsa.PrivateKey, keyID string, ttl time.Duration) *Issuer {
	return &Issuer{
		method:    jwt.SigningMethodRS256,
		signKey:   key,
		verifyKey: &key.PublicKey,
		keyID:     keyID,
		ttl:       ttl,
		now:       time.Now,
	}
}

// NewRSAIssuerFromFile reads a PEM encoded RSA private key
func NewRSAIssuerFromFile(path string, keyID string, ttl time.Duration) (*Issuer, error) {
	const op = "jwt.NewRSAIssuerFromFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return NewRSAIssuer(key, keyID, ttl), nil
}

// WithClock replaces the time source, used by tests
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) Algorithm() string {
	return i.method.Alg()
}

// NewSessionToken creates a signed credential carrying the user's identity
//
// Returns ttl session token in string format
func (i *Issuer) NewSessionToken(user *models.User) (string, error) {
	now := i.now()
	claims := SessionClaims{
		UserID:     user.ID,
		Username:   user.Username,
		Email:      user.Email,
		IsVerified: user.IsVerified,
		Roles:      user.RoleNames(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(i.method, claims)
	if i.keyID != "" {
		token.Header["kid"] = i.keyID
	}

	signed, err := token.SignedString(i.signKey)
	if err != nil {
		return "", fmt.Errorf("jwt.NewSessionToken: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the claims
func (i *Issuer) Parse(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			return i.verifyKey, nil
		},
		jwt.WithValidMethods([]string{i.method.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
