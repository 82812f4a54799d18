package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/salud-digital/anthro/internal/shared/config"
	apperrors "github.com/salud-digital/anthro/internal/shared/errors"
	"github.com/salud-digital/anthro/internal/shared/types"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

// User represents the authenticated clinician from JWT claims
type User struct {
	ID         types.ID `json:"sub"`
	Name       string   `json:"name"`
	FacilityID string   `json:"facility_id"`
	Roles      []string `json:"roles"`
}

// Claims extends JWT claims with clinician data
type Claims struct {
	jwt.RegisteredClaims
	Name       string   `json:"name"`
	FacilityID string   `json:"facility_id,omitempty"`
	Roles      []string `json:"roles"`
}

// Middleware creates JWT authentication middleware. Verification uses a
// symmetric key; the token is issued by the facility's identity provider.
func Middleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, apperrors.Unauthorized("missing authorization header"))
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				writeError(w, apperrors.Unauthorized("invalid authorization header format"))
				return
			}

			token, err := jwt.ParseWithClaims(parts[1], &Claims{}, func(token *jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil {
				writeError(w, apperrors.Unauthorized("invalid token"))
				return
			}

			claims, ok := token.Claims.(*Claims)
			if !ok || !token.Valid {
				writeError(w, apperrors.Unauthorized("invalid token claims"))
				return
			}

			user := &User{
				ID:         types.ID(claims.Subject),
				Name:       claims.Name,
				FacilityID: claims.FacilityID,
				Roles:      claims.Roles,
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser extracts the user from request context
func GetUser(ctx context.Context) *User {
	user, ok := ctx.Value(UserContextKey).(*User)
	if !ok {
		return nil
	}
	return user
}

// RequireRoles creates middleware that requires specific roles
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r.Context())
			if user == nil {
				writeError(w, apperrors.Unauthorized("authentication required"))
				return
			}

			if !hasAnyRole(user.Roles, roles) {
				writeError(w, apperrors.Forbidden("insufficient permissions"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// HasRole checks if user has a specific role
func (u *User) HasRole(role string) bool {
	return hasAnyRole(u.Roles, []string{role})
}

func hasAnyRole(userRoles, requiredRoles []string) bool {
	for _, required := range requiredRoles {
		for _, role := range userRoles {
			if role == required {
				return true
			}
		}
	}
	return false
}

func writeError(w http.ResponseWriter, err *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Message,
		"code":  err.Code,
	})
}
