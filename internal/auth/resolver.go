package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kailas-cloud/verseapi/internal/domain"
)

// Claims are the JWT claims carried by an access token.
type Claims struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Resolver turns an optional bearer credential into an optional principal.
// It is a pure function of the credential and the configured secret; it never
// errors — a missing, malformed, expired, or badly signed token all resolve
// to nil (guest). Callers cannot distinguish "bad token" from "no token".
type Resolver struct {
	secret      []byte
	tokenExpiry time.Duration
}

// NewResolver creates a Resolver with an HS256 signing secret.
func NewResolver(secret string, tokenExpiry time.Duration) *Resolver {
	return &Resolver{secret: []byte(secret), tokenExpiry: tokenExpiry}
}

// Resolve parses the Authorization header value and returns the principal,
// or nil for guest access.
func (r *Resolver) Resolve(authorizationHeader string) *domain.Principal {
	if authorizationHeader == "" {
		return nil
	}

	parts := strings.SplitN(authorizationHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil
	}

	return &domain.Principal{
		ID:       claims.ID,
		Email:    claims.Email,
		Username: claims.Username,
	}
}

// Issue mints a signed access token for the given principal fields.
func (r *Resolver) Issue(id, email, username string) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:       id,
		Email:    email,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.tokenExpiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}
