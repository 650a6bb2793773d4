package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthenticationFailed is returned for any credential the identity
// provider does not vouch for. Callers must refuse the connection; there
// is no retry path, the client reconnects with a fresh token.
var ErrAuthenticationFailed = errors.New("authentication failed")

// Identity is the projection of the platform's identity record that the
// realtime layer needs. Immutable for the lifetime of a connection.
type Identity struct {
	UserID    string
	FirstName string
	LastName  string
}

// Verifier validates a bearer credential and resolves it to an Identity.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}

// JWKSVerifier validates JWTs issued by the platform's hosted identity
// provider using its published JWKS.
type JWKSVerifier struct {
	issuer string
	jwks   keyfunc.Keyfunc
}

func NewJWKSVerifier(issuerURL string) (*JWKSVerifier, error) {
	if issuerURL == "" {
		return nil, fmt.Errorf("auth issuer URL is required")
	}

	jwksURL := strings.TrimSuffix(issuerURL, "/") + "/.well-known/jwks.json"
	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS from %s: %w", jwksURL, err)
	}

	return &JWKSVerifier{
		issuer: issuerURL,
		jwks:   jwks,
	}, nil
}

func (v *JWKSVerifier) Verify(ctx context.Context, credential string) (Identity, error) {
	token, err := jwt.Parse(credential, v.jwks.KeyfuncCtx(ctx),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, ErrAuthenticationFailed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrAuthenticationFailed
	}

	return identityFromClaims(claims)
}

func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, ErrAuthenticationFailed
	}

	id := Identity{
		UserID:    sub,
		FirstName: claimStr(claims, "first_name"),
		LastName:  claimStr(claims, "last_name"),
	}

	// Some issuers only carry a combined display name.
	if id.FirstName == "" && id.LastName == "" {
		if name := claimStr(claims, "name"); name != "" {
			parts := strings.SplitN(name, " ", 2)
			id.FirstName = parts[0]
			if len(parts) == 2 {
				id.LastName = parts[1]
			}
		}
	}

	return id, nil
}

func claimStr(claims jwt.MapClaims, key string) string {
	v, _ := claims[key].(string)
	return v
}
