package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// User is the identity carried by an access token.
type User struct {
	ID   string
	Name string
}

type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Authenticate resolves the user from a bearer Authorization header or, failing that, the access token cookie.
func (a *Authenticator) Authenticate(_ context.Context, authHeader, cookieHeader string) (*User, error) {
	token := extractBearerToken(authHeader)
	if token == "" {
		token = extractCookieToken(cookieHeader)
	}
	if token == "" {
		return nil, ErrUnauthenticated
	}
	return a.parse(token)
}

func (a *Authenticator) parse(tokenString string) (*User, error) {
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if kid, ok := t.Header["kid"].(string); !ok || kid != KeyID {
			return nil, errors.Errorf("unexpected kid: %v", t.Header["kid"])
		}
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(AccessTokenAudienceName),
	)
	if err != nil {
		return nil, errors.Wrap(ErrUnauthenticated, err.Error())
	}
	if claims.Subject == "" {
		return nil, errors.Wrap(ErrUnauthenticated, "token has no subject")
	}
	return &User{ID: claims.Subject, Name: claims.Name}, nil
}

func extractBearerToken(authHeader string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authHeader), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func extractCookieToken(cookieHeader string) string {
	if cookieHeader == "" {
		return ""
	}
	cookies, err := http.ParseCookie(cookieHeader)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == AccessTokenCookieName {
			return c.Value
		}
	}
	return ""
}
