package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	authenticator := NewAuthenticator(testSecret)
	token, err := GenerateAccessToken("user-a", "Ada Lovelace", time.Now().Add(time.Hour), []byte(testSecret))
	require.NoError(t, err)

	user, err := authenticator.Authenticate(ctx, "Bearer "+token, "")
	require.NoError(t, err)
	require.Equal(t, &User{ID: "user-a", Name: "Ada Lovelace"}, user)

	user, err = authenticator.Authenticate(ctx, "", "theme=dark; "+AccessTokenCookieName+"="+token)
	require.NoError(t, err)
	require.Equal(t, "user-a", user.ID)
}

func TestAuthenticateRejects(t *testing.T) {
	ctx := context.Background()
	authenticator := NewAuthenticator(testSecret)

	expired, err := GenerateAccessToken("user-a", "Ada", time.Now().Add(-time.Minute), []byte(testSecret))
	require.NoError(t, err)
	foreign, err := GenerateAccessToken("user-a", "Ada", time.Time{}, []byte("another-secret"))
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":        "",
		"basic scheme":   "Basic dXNlcjpwYXNz",
		"garbage":        "Bearer not-a-jwt",
		"expired":        "Bearer " + expired,
		"foreign secret": "Bearer " + foreign,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := authenticator.Authenticate(ctx, header, "")
			require.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestGenerateAccessTokenRequiresUser(t *testing.T) {
	_, err := GenerateAccessToken("", "nobody", time.Time{}, []byte(testSecret))
	require.Error(t, err)
}
