package webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Permission is a named capability a webhook credential may be granted.
type Permission string

const (
	PermissionDigs Permission = "digs"
	PermissionLink Permission = "link"
)

// Permissions lists every grantable scope.
var Permissions = []Permission{PermissionDigs, PermissionLink}

var ErrInvalidCredential = errors.New("invalid bearer credential")

// TokenClaims is the payload of a bearer credential. The embedded token ID
// points at the stored secret used for the HMAC check; the claims alone
// never authenticate a request.
type TokenClaims struct {
	TokenID     string   `json:"id"`
	UserID      string   `json:"user"`
	Permissions []string `json:"permissions"`
	Name        string   `json:"name"`
	jwt.RegisteredClaims
}

// HasAll reports whether the credential grants every required permission.
// The check is a strict superset: all required scopes must be present.
func (c *TokenClaims) HasAll(required []Permission) bool {
	granted := make(map[string]struct{}, len(c.Permissions))
	for _, p := range c.Permissions {
		granted[p] = struct{}{}
	}

	for _, p := range required {
		if _, ok := granted[string(p)]; !ok {
			return false
		}
	}

	return true
}

// SignClaims produces an HS256 bearer credential for an issued token.
func SignClaims(signingKey []byte, claims *TokenClaims) (string, error) {
	claims.IssuedAt = jwt.NewNumericDate(time.Now())

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign claims: %w", err)
	}

	return signed, nil
}

// ParseClaims verifies a bearer credential's integrity and expiry against
// the shared signing key.
func ParseClaims(signingKey []byte, credential string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(credential, &TokenClaims{},
		func(*jwt.Token) (any, error) { return signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredential
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok {
		return nil, ErrInvalidCredential
	}

	return claims, nil
}
