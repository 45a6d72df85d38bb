package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminAuthMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	handler := AdminAuthMiddleware(string(hash))(next)

	tests := []struct {
		name   string
		target string
		status int
		passes bool
	}{
		{"no secret", "/admin/setup", http.StatusUnauthorized, false},
		{"wrong secret", "/admin/setup?secret=guess", http.StatusUnauthorized, false},
		{"correct secret", "/admin/setup?secret=letmein", http.StatusOK, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called = false
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tc.target, nil))
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.passes, called)
		})
	}
}
