package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sooksun/tablebooking/internal/auth"
	"github.com/sooksun/tablebooking/internal/config"
)

func testAuthenticator(t *testing.T) *auth.Authenticator {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("gala-2026"), bcrypt.MinCost)
	require.NoError(t, err)

	return auth.NewAuthenticator(config.AuthConfig{
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
		JWTSecret:         "test-secret",
		TokenTTL:          time.Hour,
	})
}

func TestLoginAndVerify(t *testing.T) {
	a := testAuthenticator(t)

	token, err := a.Login("admin", "gala-2026")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", subject)
}

func TestLogin_WrongPassword(t *testing.T) {
	a := testAuthenticator(t)

	_, err := a.Login("admin", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_WrongUsername(t *testing.T) {
	a := testAuthenticator(t)

	_, err := a.Login("root", "gala-2026")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_Unconfigured(t *testing.T) {
	a := auth.NewAuthenticator(config.AuthConfig{})

	_, err := a.Login("admin", "anything")
	assert.Error(t, err)
}

func TestVerify_GarbageToken(t *testing.T) {
	a := testAuthenticator(t)

	_, err := a.Verify("not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_WrongSecret(t *testing.T) {
	a := testAuthenticator(t)

	token, err := a.Login("admin", "gala-2026")
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("gala-2026"), bcrypt.MinCost)
	require.NoError(t, err)
	other := auth.NewAuthenticator(config.AuthConfig{
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
		JWTSecret:         "different-secret",
		TokenTTL:          time.Hour,
	})

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_UnconfiguredSecret(t *testing.T) {
	// With no JWT_SECRET set, a token HMAC-signed with the empty key must
	// not grant access.
	unconfigured := auth.NewAuthenticator(config.AuthConfig{
		AdminUsername: "admin",
		TokenTTL:      time.Hour,
	})

	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(""))
	require.NoError(t, err)

	_, err = unconfigured.Verify(forged)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerify_ExpiredToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("gala-2026"), bcrypt.MinCost)
	require.NoError(t, err)

	short := auth.NewAuthenticator(config.AuthConfig{
		AdminUsername:     "admin",
		AdminPasswordHash: string(hash),
		JWTSecret:         "test-secret",
		TokenTTL:          -time.Minute, // already expired when issued
	})

	token, err := short.Login("admin", "gala-2026")
	require.NoError(t, err)

	_, err = short.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	a := testAuthenticator(t)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := auth.UserFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, "admin", user)
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.Middleware(a)(next)

	// No credential.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/bookings", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage credential.
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token.
	token, err := a.Login("admin", "gala-2026")
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
