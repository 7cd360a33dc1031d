package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_DisplayRedactsSecrets(t *testing.T) {
	roleID := uuid.New()
	user := &User{
		ID:           uuid.New(),
		UserName:     "alice",
		PasswordHash: "$2a$10$hash",
		RoleID:       &roleID,
		Role:         &Role{ID: roleID, Name: "admin"},
		Sessions:     []Session{{Token: "secret-token"}},
	}

	payload, err := json.Marshal(user.Display())
	require.NoError(t, err)

	body := string(payload)
	assert.NotContains(t, body, "$2a$10$hash")
	assert.NotContains(t, body, "secret-token")
	assert.Contains(t, body, `"userName":"alice"`)
	assert.Contains(t, body, `"roleName":"admin"`)
	assert.Contains(t, body, `"authorize":false`)
}

func TestUser_HasRole(t *testing.T) {
	assert.False(t, (&User{}).HasRole("admin"))
	assert.True(t, (&User{Role: &Role{Name: "admin"}}).HasRole("admin"))
	assert.False(t, (&User{Role: &Role{Name: "editor"}}).HasRole("admin"))
}

func TestParseAuthFilter(t *testing.T) {
	tests := []struct {
		in       string
		want     AuthFilter
		ok       bool
		matchOn  bool
		matchOff bool
	}{
		{"true", AuthFilterTrue, true, true, false},
		{"false", AuthFilterFalse, true, false, true},
		{"all", AuthFilterAll, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f, ok := ParseAuthFilter(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, f)
			assert.Equal(t, tt.matchOn, f.Matches(true))
			assert.Equal(t, tt.matchOff, f.Matches(false))
		})
	}

	_, ok := ParseAuthFilter("TRUE ")
	assert.False(t, ok)
	_, ok = ParseAuthFilter("")
	assert.False(t, ok)
}
