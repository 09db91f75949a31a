package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrExpired = errors.New("api token is expired")

// Inspect checks the configured API token before it is sent anywhere. The
// client has no signing secret, so a JWT is decoded without verification
// purely to fail fast on an expired token instead of surfacing a mid-job
// 401. Opaque (non-JWT) tokens pass through untouched.
func Inspect(raw string) error {
	if raw == "" || strings.Count(raw, ".") != 2 {
		return nil
	}

	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, &claims); err != nil {
		// Looked like a JWT but is not one; let the backend decide.
		return nil
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return fmt.Errorf("%w (expired at %s)", ErrExpired, claims.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
