package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"duplicate user name", ErrUserNameTaken, http.StatusUnprocessableEntity, "USER_NAME_TAKEN"},
		{"missing parameters", ErrMissingParameters, http.StatusUnauthorized, CodeMissingParameters},
		{"missing credentials", ErrMissingCredentials, http.StatusUnauthorized, CodeMissingParameters},
		{"revoked session", ErrSessionRevoked, http.StatusUnauthorized, "SESSION_REVOKED"},
		{"forbidden", ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"user not found", ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
		{"storage timeout", Persistence("find user", context.DeadlineExceeded), http.StatusServiceUnavailable, CodePersistence},
		{"wrapped domain error", fmt.Errorf("signup: %w", ErrRoleNameTaken), http.StatusUnprocessableEntity, "ROLE_NAME_TAKEN"},
		{"foreign error", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.wantStatus, httpErr.StatusCode)
			assert.Equal(t, tt.wantCode, httpErr.Code)
		})
	}
}

func TestPersistenceHidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.3:3306: connection refused")
	err := Persistence("find user", cause)

	httpErr := MapErrorToHTTP(err)
	assert.NotContains(t, httpErr.Message, "10.0.0.3")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindPersistence, KindOf(err))
}

func TestWithErrKeepsIdentity(t *testing.T) {
	cause := errors.New("duplicate entry")
	err := ErrUserNameTaken.WithErr(cause)

	assert.ErrorIs(t, err, ErrUserNameTaken)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrRoleNameTaken)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAuthentication, KindOf(fmt.Errorf("gate: %w", ErrInvalidToken)))
	assert.Equal(t, KindAuthorization, KindOf(ErrForbidden))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.Equal(t, "persistence", KindPersistence.String())
}
