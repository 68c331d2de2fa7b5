package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	// Minimum cost keeps the test fast.
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewService(string(hash), "test-secret")
}

func TestLoginAndValidate(t *testing.T) {
	s := newTestService(t)

	_, err := s.Login("wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err := s.Login("hunter22")
	require.NoError(t, err)
	sub, err := s.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, OperatorID, sub)
}

func TestTokenExpires(t *testing.T) {
	s := newTestService(t)
	res, err := s.Login("hunter22")
	require.NoError(t, err)

	s.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err = s.ValidateToken(res.Token)
	assert.Error(t, err)
}

func TestTokenFromOtherSecret(t *testing.T) {
	s := newTestService(t)
	res, err := s.Login("hunter22")
	require.NoError(t, err)

	other := NewService(string(s.passwordHash), "other-secret")
	_, err = other.ValidateToken(res.Token)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	s := newTestService(t)
	res, err := s.Login("hunter22")
	require.NoError(t, err)

	var seen string
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SubjectFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer", "Bearer " + res.Token, "", http.StatusOK},
		{"query token", "", "?token=" + res.Token, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"bad scheme", "Basic abc", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/layouts"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, OperatorID, seen)
			}
		})
	}
}

func TestDisabled(t *testing.T) {
	s := NewService("", "secret")
	assert.False(t, s.Enabled())

	_, err := s.Login("anything")
	assert.ErrorIs(t, err, ErrDisabled)

	var seen string
	h := s.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SubjectFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, OperatorID, seen)
}

func TestLoginHandler(t *testing.T) {
	h := NewHandler(newTestService(t))

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"password":"hunter22"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw")))
}
