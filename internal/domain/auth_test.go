package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignUpRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SignUpRequest
		wantErr bool
	}{
		{name: "valid", req: SignUpRequest{Email: "ana@example.com", Name: "Ana", Password: "correct-horse"}},
		{name: "bad email", req: SignUpRequest{Email: "ana", Name: "Ana", Password: "correct-horse"}, wantErr: true},
		{name: "short password", req: SignUpRequest{Email: "ana@example.com", Name: "Ana", Password: "short"}, wantErr: true},
		{name: "password over bcrypt limit", req: SignUpRequest{Email: "ana@example.com", Name: "Ana", Password: strings.Repeat("p", 73)}, wantErr: true},
		{name: "password at bcrypt limit", req: SignUpRequest{Email: "ana@example.com", Name: "Ana", Password: strings.Repeat("p", 72)}},
		{name: "multi-byte password over bcrypt limit", req: SignUpRequest{Email: "ana@example.com", Name: "Ana", Password: strings.Repeat("密", 40)}, wantErr: true},
		{name: "multi-byte password within limit", req: SignUpRequest{Email: "ana@example.com", Name: "Ana", Password: strings.Repeat("密", 24)}},
		{name: "missing name", req: SignUpRequest{Email: "ana@example.com", Password: "correct-horse"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.True(t, IsValidationError(err), "got %v", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSignUpRequestNormalize(t *testing.T) {
	req := SignUpRequest{Email: "  Ana@Example.COM ", Name: " Ana "}
	req.Normalize()
	assert.Equal(t, "ana@example.com", req.Email)
	assert.Equal(t, "Ana", req.Name)
}

func TestSignInResponse(t *testing.T) {
	user := &User{ID: "u1", Email: "ana@example.com", Name: "Ana", PasswordHash: "secret-hash", Role: RoleUser}
	resp := NewSignInResponse("tok", 3600, user)

	// Later changes to the user do not leak into the response
	user.Role = RoleAdmin

	assert.Equal(t, "tok", resp.Token())
	assert.Equal(t, int64(3600), resp.ExpiresIn())
	assert.Equal(t, RoleUser, resp.User().Role)

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.Equal(t, "tok", wire["token"])
	assert.EqualValues(t, 3600, wire["expires_in"])
	assert.Equal(t, "user", wire["user"].(map[string]interface{})["role"])
	assert.NotContains(t, string(data), "secret-hash")
}
