package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoToken     = errors.New("auth: missing bearer token")
	ErrBadToken    = errors.New("auth: invalid token")
	ErrUnknownRole = errors.New("auth: unknown role")
)

// siteClaims is the token payload: the registered claim set plus the
// credential's role.
type siteClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens issued for this site.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a token verifier.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty signing secret")
	}
	return &Verifier{secret: secret}, nil
}

// Verify parses and validates a token and returns the identity it
// carries. Tokens must be HS256-signed and carry an expiry.
func (v *Verifier) Verify(token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrNoToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	claims := &siteClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if !parsed.Valid {
		return Identity{}, ErrBadToken
	}

	role, ok := ParseRole(claims.Role)
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnknownRole, claims.Role)
	}
	return Identity{Subject: claims.Subject, Role: role}, nil
}
