package analytics

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const tokenIssuer = "antlia-analytics"

// ReportClaims are carried by report read tokens.
type ReportClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

const scopeReports = "reports:read"

// TokenAuth issues and verifies HS256 bearer tokens for the report API.
type TokenAuth struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenAuth returns a TokenAuth. An empty secret disables token access.
func NewTokenAuth(secret string, ttl time.Duration) *TokenAuth {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenAuth{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Enabled reports whether a signing secret is configured.
func (a *TokenAuth) Enabled() bool {
	return a != nil && len(a.secret) > 0
}

// Issue signs a report-read token for subject.
func (a *TokenAuth) Issue(subject string) (string, error) {
	if !a.Enabled() {
		return "", errors.New("analytics: report token secret not configured")
	}
	now := a.now()
	claims := ReportClaims{
		Scope: scopeReports,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and checks its signature, issuer, expiry and scope.
func (a *TokenAuth) Verify(token string) (*ReportClaims, error) {
	if !a.Enabled() {
		return nil, errors.New("analytics: report token secret not configured")
	}
	claims := &ReportClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Scope != scopeReports {
		return nil, errors.New("invalid token: missing reports scope")
	}
	return claims, nil
}

// RequireReader admits requests carrying a valid bearer token or for which
// allow returns true (for example an authenticated admin session).
func RequireReader(auth *TokenAuth, allow func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if allow != nil && allow(c) {
				return next(c)
			}
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			if token, ok := strings.CutPrefix(h, "Bearer "); ok && auth.Enabled() {
				if _, err := auth.Verify(strings.TrimSpace(token)); err == nil {
					return next(c)
				}
			}
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}
	}
}
