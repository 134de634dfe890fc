// Package auth issues and verifies the HS256 session tokens behind the
// lexxi_session cookie, and hashes user passwords.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "lexxi"

var (
	jwtSecret     string
	jwtSecretOnce sync.Once
	jwtSecretErr  error
)

// Claims is the token payload. UserID doubles as the registered
// subject; the email is carried so log lines and the session endpoint
// can show who a token belongs to without a lookup.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// devMode is read straight from the environment rather than from
// config.Config; the secret check has to run before config loading can
// be trusted to have happened.
func devMode() bool {
	switch {
	case os.Getenv("DEV_MODE") == "true", os.Getenv("DEV_MODE") == "1":
		return true
	case os.Getenv("GIN_MODE") == "debug":
		return true
	}
	return false
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// ValidateJWTSecret resolves the signing secret once, at startup.
// Production requires LXI_JWT_SECRET; development generates a random
// per-process secret, which means sessions die with the process.
func ValidateJWTSecret() error {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv("LXI_JWT_SECRET")

		if secret == "" {
			if !devMode() {
				jwtSecretErr = errors.New("LXI_JWT_SECRET environment variable is required in production; " +
					"generate one with: openssl rand -hex 32")
				return
			}
			jwtSecret = randomSecret()
			slog.Warn("LXI_JWT_SECRET not set, using auto-generated development secret")
			slog.Warn("sessions will not survive a restart; set LXI_JWT_SECRET to keep them")
			return
		}

		if len(secret) < 32 {
			slog.Warn("LXI_JWT_SECRET is shorter than the recommended 32 characters")
		}
		jwtSecret = secret
	})

	return jwtSecretErr
}

// GetJWTSecret returns the resolved secret, running the startup check
// if it has not happened yet. Panics when the secret is unusable since
// signing sessions without one is not an option.
func GetJWTSecret() string {
	if jwtSecret == "" {
		if err := ValidateJWTSecret(); err != nil {
			panic(err)
		}
	}
	return jwtSecret
}

// GenerateJWT signs a session token for the user. A zero expiresIn
// gets the default 24 hour session lifetime.
func GenerateJWT(userID, email string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = 24 * time.Hour
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(GetJWTSecret()))
}

// ValidateJWT parses a session token and returns its claims. Expired
// or tampered tokens, and tokens signed with anything other than HMAC,
// are rejected.
func ValidateJWT(tokenString string) (*Claims, error) {
	secret := GetJWTSecret()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims type")
	}
	return claims, nil
}
