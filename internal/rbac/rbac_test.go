package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckerHas(t *testing.T) {
	c := NewChecker(nil)
	assert.True(t, c.Has("experimenter", "results:export"))
	assert.True(t, c.Has("experimenter", "trial:create"))
	assert.False(t, c.Has("observer", "trial:create"))
	assert.True(t, c.Has("admin", "anything:at-all"))
	assert.False(t, c.Has("participant", "results:view"))
	assert.True(t, c.Any("observer", "trial:create", "results:view"))
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require("trial:create")(ok)

	for role, want := range map[string]int{
		"":             http.StatusForbidden,
		"observer":     http.StatusForbidden,
		"experimenter": http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodPost, "/trials", nil)
		req = req.WithContext(WithRole(context.Background(), role))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "role %q", role)
	}
}

func TestSubjectInContext(t *testing.T) {
	ctx := WithSubject(context.Background(), "alice")
	assert.Equal(t, "alice", SubjectFromContext(ctx))
	assert.Equal(t, "", RoleFromContext(ctx))
}
