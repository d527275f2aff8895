package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sooksun/tablebooking/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Authenticator verifies the admin credential server-side and issues signed
// tokens. The password is compared against a bcrypt hash from configuration;
// the plaintext never lives in the binary.
type Authenticator struct {
	username     string
	passwordHash string
	secret       []byte
	tokenTTL     time.Duration

	now func() time.Time
}

func NewAuthenticator(cfg config.AuthConfig) *Authenticator {
	return &Authenticator{
		username:     cfg.AdminUsername,
		passwordHash: cfg.AdminPasswordHash,
		secret:       []byte(cfg.JWTSecret),
		tokenTTL:     cfg.TokenTTL,
		now:          time.Now,
	}
}

// Login checks the credential pair and returns a signed HS256 token.
func (a *Authenticator) Login(username, password string) (string, error) {
	if a.passwordHash == "" || len(a.secret) == 0 {
		return "", errors.New("authentication is not configured")
	}
	if username != a.username {
		// Burn a bcrypt comparison anyway so the two failure paths take
		// comparable time.
		_ = bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password))
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify validates a token and returns the subject it was issued to.
// An unconfigured secret rejects everything; otherwise a token HMAC-signed
// with the empty key would pass.
func (a *Authenticator) Verify(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// TokenTTL exposes the configured lifetime for login responses.
func (a *Authenticator) TokenTTL() time.Duration {
	return a.tokenTTL
}
