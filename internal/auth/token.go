package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcq-practice/backend/internal/models"
)

// IssueToken signs an HS256 token carrying the user's id and role.
func IssueToken(secret []byte, ttl time.Duration, u models.User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": u.ID,
		"role":    string(u.Role),
		"exp":     now.Add(ttl).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
