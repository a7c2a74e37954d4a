package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcq-practice/backend/internal/models"
)

// AuthMiddleware validates the bearer token and stores "user_id" (int64)
// and "role" (models.Role) in the request context.
func AuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authorization header required"})
				return
			}

			userID, role, err := parseToken(tokenString, secret)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid or expired token"})
				return
			}

			ctx := context.WithValue(r.Context(), "user_id", userID)
			ctx = context.WithValue(ctx, "role", role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests whose token does not carry the admin role.
// It must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ := r.Context().Value("role").(models.Role)
		if role != models.RoleAdmin {
			writeJSON(w, http.StatusForbidden, models.ErrorResponse{Error: "Admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func parseToken(tokenString string, secret []byte) (int64, models.Role, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return 0, "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	// numbers decode from JSON as float64
	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return 0, "", fmt.Errorf("missing user_id claim")
	}

	role := models.RoleStudent
	if s, ok := claims["role"].(string); ok && s != "" {
		role = models.Role(s)
	}
	return int64(rawID), role, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
