package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcq-practice/backend/internal/auth"
	"github.com/mcq-practice/backend/internal/models"
)

var secret = []byte("middleware-secret")

func echoIdentity(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := r.Context().Value("user_id").(int64)
		require.True(t, ok, "user_id missing from context")
		role, _ := r.Context().Value("role").(models.Role)
		w.Header().Set("X-User", models.UserKey(userID))
		w.Header().Set("X-Role", string(role))
		w.WriteHeader(http.StatusOK)
	})
}

func request(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, key []byte, u models.User, ttl time.Duration) string {
	t.Helper()
	s, err := auth.IssueToken(key, ttl, u, time.Now())
	require.NoError(t, err)
	return s
}

func TestAuthMiddleware(t *testing.T) {
	h := AuthMiddleware(secret)(echoIdentity(t))

	rec := request(h, "Bearer "+token(t, secret, models.User{ID: 42, Role: models.RoleStudent}, time.Hour))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("X-User"))
	assert.Equal(t, "student", rec.Header().Get("X-Role"))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not.a.token"},
		{"wrong key", "Bearer " + token(t, []byte("other"), models.User{ID: 42}, time.Hour)},
		{"expired", "Bearer " + token(t, secret, models.User{ID: 42}, -time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, request(h, tt.header).Code)
		})
	}
}

func TestAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	h := AuthMiddleware(secret)(echoIdentity(t))

	claims := jwt.MapClaims{"user_id": 1, "exp": time.Now().Add(time.Hour).Unix()}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(secret)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, request(h, "Bearer "+s).Code)
}

func TestRequireAdmin(t *testing.T) {
	h := AuthMiddleware(secret)(RequireAdmin(echoIdentity(t)))

	rec := request(h, "Bearer "+token(t, secret, models.User{ID: 1, Role: models.RoleStudent}, time.Hour))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = request(h, "Bearer "+token(t, secret, models.User{ID: 2, Role: models.RoleAdmin}, time.Hour))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Header().Get("X-Role"))
}
