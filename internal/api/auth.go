package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/medisched/elastic-clinic-scheduling/internal/scheduling"
)

const identityKey contextKey = "identity"

// Identity is the authenticated caller, taken from the bearer token's
// sub and role claims.
type Identity struct {
	UserID uuid.UUID
	Role   scheduling.ActorRole
}

type identityClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the HMAC-signed bearer token and puts the
// caller's Identity on the request context.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "missing_token", "Authorization header with bearer token is required")
				return
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := &identityClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid_token", "bearer token is invalid or expired")
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid_token", "sub claim must be a valid UUID")
				return
			}

			role := scheduling.ActorRole(claims.Role)
			if role != scheduling.RoleDoctor && role != scheduling.RolePatient {
				writeError(w, http.StatusUnauthorized, "invalid_token", "role claim must be doctor or patient")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, Identity{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
