package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/rapidrate/internal/rbac"
)

func newService(t *testing.T) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService("test-key", "admin", string(hash))
}

func TestLogin(t *testing.T) {
	a := newService(t)
	h := LoginHandler(a)

	cases := []struct {
		body string
		code int
	}{
		{`{"username":"admin","password":"s3cret"}`, http.StatusOK},
		{`{"username":"admin","password":"s3cret","role":"observer"}`, http.StatusOK},
		{`{"username":"admin","password":"wrong"}`, http.StatusUnauthorized},
		{`{"username":"bob","password":"s3cret"}`, http.StatusUnauthorized},
		{`{"username":"admin","password":"s3cret","role":"root"}`, http.StatusBadRequest},
		{`{`, http.StatusBadRequest},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(c.body)))
		assert.Equal(t, c.code, rec.Code, c.body)
	}
}

func TestJWTMiddlewareSetsRole(t *testing.T) {
	a := newService(t)
	tok, err := a.IssueJWT("admin", "experimenter")
	require.NoError(t, err)

	var role, sub string
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = rbac.RoleFromContext(r.Context())
		sub = rbac.SubjectFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "experimenter", role)
	assert.Equal(t, "admin", sub)

	for _, hdr := range []string{"", "Bearer nonsense", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/results", nil)
		req.Header.Set("Authorization", hdr)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, hdr)
	}
}

func TestParseRejectsForeignKey(t *testing.T) {
	a := newService(t)
	other := NewAuthService("other-key", "admin", "")
	tok, err := other.IssueJWT("admin", "admin")
	require.NoError(t, err)
	_, err = a.Parse(tok)
	assert.Error(t, err)
}
