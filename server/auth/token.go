// Package auth issues and checks the access tokens that identify chat users.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	Issuer = "flightdesk"
	// KeyID is the current signing key version.
	KeyID                   = "v1"
	AccessTokenAudienceName = "user.access-token"
	AccessTokenCookieName   = "flightdesk.access-token"
	AccessTokenDuration     = 7 * 24 * time.Hour
)

type ClaimsMessage struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs an HS256 token for the user. A zero expirationTime never expires.
func GenerateAccessToken(userID, userName string, expirationTime time.Time, secret []byte) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	registeredClaims := jwt.RegisteredClaims{
		Issuer:   Issuer,
		Audience: jwt.ClaimStrings{AccessTokenAudienceName},
		IssuedAt: jwt.NewNumericDate(time.Now()),
		Subject:  userID,
	}
	if !expirationTime.IsZero() {
		registeredClaims.ExpiresAt = jwt.NewNumericDate(expirationTime)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &ClaimsMessage{
		Name:             userName,
		RegisteredClaims: registeredClaims,
	})
	token.Header["kid"] = KeyID

	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return tokenString, nil
}
