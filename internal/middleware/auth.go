package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/Arg39/backend-tanamin-sub001/internal/models"
)

// Claims is the authenticated-user handle supplied by the external identity
// provider: a user id and a role, nothing more. This service never issues
// tokens itself.
type Claims struct {
	UserID uint        `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth verifies the Bearer token and exposes the handle to downstream
// handlers via the request context.
func RequireAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			tokenStr := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set("userID", claims.UserID)
			c.Set("userRole", claims.Role)
			return next(c)
		}
	}
}

// Authorizer is the capability check consumed as an external collaborator.
// Role gating stays out of the pricing and state-machine logic.
type Authorizer interface {
	Authorize(role models.Role, action string) bool
}

// RoleAuthorizer maps actions to the roles allowed to perform them
type RoleAuthorizer struct {
	rules map[string][]models.Role
}

// NewRoleAuthorizer returns the default capability table
func NewRoleAuthorizer() *RoleAuthorizer {
	return &RoleAuthorizer{rules: map[string][]models.Role{
		"coupon:manage":   {models.RoleAdmin},
		"course:checkout": {models.RoleStudent, models.RoleAdmin},
	}}
}

func (a *RoleAuthorizer) Authorize(role models.Role, action string) bool {
	allowed, ok := a.rules[action]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// RequireAction rejects requests whose role lacks the capability
func RequireAction(authz Authorizer, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("userRole").(models.Role)
			if !authz.Authorize(role, action) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}

// UserID extracts the authenticated user id set by RequireAuth
func UserID(c echo.Context) uint {
	id, _ := c.Get("userID").(uint)
	return id
}
