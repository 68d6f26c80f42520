package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const sessionKey contextKey = "session"

// Role is a console user role.
type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RoleHospitalAdmin Role = "hospital_admin"
	RoleDoctor        Role = "doctor"
	RolePatient       Role = "patient"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleHospitalAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// Claims are the token claims the referral backend issues at login.
type Claims struct {
	jwt.RegisteredClaims
	Role       Role   `json:"role"`
	HospitalID string `json:"hospitalId,omitempty"`
	Name       string `json:"name,omitempty"`
}

// Session identifies the signed-in console user. Token is the raw bearer
// token, forwarded to the backend on every call made for the session.
type Session struct {
	UserID     string
	Role       Role
	HospitalID string
	Name       string
	Token      string
}

type JWTConfig struct {
	// SigningKey verifies HS256 signatures. When empty, tokens are decoded
	// without verification and the backend remains the authority.
	SigningKey []byte
	Issuer     string
}

// ParseToken decodes tokenStr into a Session.
func ParseToken(tokenStr string, cfg JWTConfig) (Session, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	if len(cfg.SigningKey) > 0 {
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return cfg.SigningKey, nil
		}, opts...)
		if err != nil || !token.Valid {
			return Session{}, fmt.Errorf("invalid token")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
			return Session{}, fmt.Errorf("malformed token: %w", err)
		}
		if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
			return Session{}, fmt.Errorf("token expired")
		}
	}

	if claims.Subject == "" {
		return Session{}, fmt.Errorf("token has no subject")
	}
	if !claims.Role.Valid() {
		return Session{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return Session{
		UserID:     claims.Subject,
		Role:       claims.Role,
		HospitalID: claims.HospitalID,
		Name:       claims.Name,
		Token:      tokenStr,
	}, nil
}

// SignToken issues an HS256 token for s valid for ttl. Used for local
// development against a backend that shares the signing key.
func SignToken(s Session, key []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:       s.Role,
		HospitalID: s.HospitalID,
		Name:       s.Name,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter for WebSocket upgrades where browsers cannot set headers.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if t := c.QueryParam("token"); t != "" {
			return t, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}
	return strings.TrimSpace(parts[1]), nil
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return err
			}
			s, err := ParseToken(tokenStr, cfg)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			c.Set(string(sessionKey), s)
			c.SetRequest(c.Request().WithContext(ContextWithSession(c.Request().Context(), s)))
			return next(c)
		}
	}
}

func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
