package jwt

import (
	"fmt"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jwk"
)

// JWKS publishes the verification key so other services can check session credentials
func (i *Issuer) JWKS() (jwk.Set, error) {
	const op = "jwt.JWKS"

	if i.method.Alg() != jwa.RS256.String() {
		return nil, fmt.Errorf("%s: %w", op, ErrNoPublicKey)
	}

	key, err := jwk.New(i.verifyKey)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create JWK: %w", op, err)
	}
	_ = key.Set(jwk.KeyIDKey, i.keyID)
	_ = key.Set(jwk.AlgorithmKey, jwa.RS256)
	_ = key.Set(jwk.KeyUsageKey, jwk.ForSignature)

	set := jwk.NewSet()
	set.Add(key)
	return set, nil
}
