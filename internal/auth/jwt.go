// Package auth validates staff session tokens and exposes the caller
// identity they carry.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/waddythomson/buwa-crm/internal/identity"
)

const (
	claimSubject = "sub"
	claimUserID  = "user_id"
	claimRole    = "role"
	contextKey   = "user"
)

// JWTMiddleware returns a JWT auth middleware configured for HS256 tokens.
func JWTMiddleware(secret string, skipper middleware.Skipper) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(secret),
		SigningMethod: "HS256",
		ContextKey:    contextKey,
		TokenLookup:   "header:Authorization:Bearer ,cookie:session",
		Skipper:       skipper,
		NewClaimsFunc: func(c echo.Context) jwt.Claims {
			return jwt.MapClaims{}
		},
	})
}

// StaffFromContext extracts the staff identity from JWT claims.
func StaffFromContext(c echo.Context) (identity.Staff, error) {
	token, ok := c.Get(contextKey).(*jwt.Token)
	if !ok || token == nil || !token.Valid {
		return identity.Staff{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return identity.Staff{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	userID := claimString(claims, claimUserID)
	if userID == "" {
		userID = claimString(claims, claimSubject)
	}
	staff := identity.Staff{UserID: userID, Role: identity.NormalizeRole(claimString(claims, claimRole))}
	if err := staff.Validate(); err != nil {
		return identity.Staff{}, echo.NewHTTPError(http.StatusUnauthorized, "user id missing")
	}
	return staff, nil
}

// GenerateToken creates a signed JWT for a staff user.
func GenerateToken(staff identity.Staff, secret string, expiresIn time.Duration) (string, time.Time, error) {
	if err := staff.Validate(); err != nil {
		return "", time.Time{}, err
	}
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, fmt.Errorf("jwt secret is required")
	}
	if expiresIn <= 0 {
		return "", time.Time{}, fmt.Errorf("jwt expires in must be positive")
	}

	now := time.Now().UTC()
	expiresAt := now.Add(expiresIn)
	claims := jwt.MapClaims{
		claimSubject: staff.UserID,
		claimUserID:  staff.UserID,
		claimRole:    identity.NormalizeRole(staff.Role),
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	raw, ok := claims[key]
	if !ok || raw == nil {
		return ""
	}
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(raw)
	}
}
