package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unistay/internal/auth"
	"unistay/internal/models"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestParseTokenRoundTrip(t *testing.T) {
	raw := signToken(t, jwt.MapClaims{
		"sub":       "user-42",
		"user_type": "owner",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	identity, err := auth.ParseToken(raw, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", identity.ID)
	assert.Equal(t, models.UserTypeOwner, identity.UserType)
}

func TestParseTokenRejections(t *testing.T) {
	valid := jwt.MapClaims{
		"sub":       "user-42",
		"user_type": "student",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.token"},
		{"wrong secret", signToken(t, valid, "other-secret")},
		{"expired", signToken(t, jwt.MapClaims{
			"sub": "user-42", "user_type": "student",
			"exp": time.Now().Add(-time.Hour).Unix(),
		}, testSecret)},
		{"missing sub", signToken(t, jwt.MapClaims{
			"user_type": "student",
			"exp":       time.Now().Add(time.Hour).Unix(),
		}, testSecret)},
		{"missing user_type", signToken(t, jwt.MapClaims{
			"sub": "user-42",
			"exp": time.Now().Add(time.Hour).Unix(),
		}, testSecret)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.ParseToken(tt.token, testSecret)
			assert.Error(t, err)
		})
	}
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/apartments", nil)
	_, err := auth.ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "Token abc")
	_, err = auth.ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r.Header.Set("Authorization", "Bearer abc")
	token, err := auth.ExtractTokenFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestMiddleware(t *testing.T) {
	var captured *auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.Middleware(testSecret)(next)

	// No header.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/bookings", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Bad token.
	rec = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/bookings", nil)
	r.Header.Set("Authorization", "Bearer junk")
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token reaches the handler with the identity attached.
	raw := signToken(t, jwt.MapClaims{
		"sub":       "user-7",
		"user_type": "student",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}, testSecret)
	rec = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/bookings", nil)
	r.Header.Set("Authorization", "Bearer "+raw)
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-7", captured.ID)
	assert.Equal(t, models.UserTypeStudent, captured.UserType)
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := auth.RequireAdmin()(next)

	// No identity on the context.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/admin/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong role.
	rec = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/admin/dashboard", nil)
	r = r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{ID: "u-1", UserType: models.UserTypeStudent}))
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin passes.
	rec = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/admin/dashboard", nil)
	r = r.WithContext(auth.WithIdentity(r.Context(), &auth.Identity{ID: "a-1", UserType: models.UserTypeAdmin}))
	handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusOK, rec.Code)
}
