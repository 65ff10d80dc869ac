package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input   string
		want    Role
		wantErr bool
	}{
		{input: "admin", want: RoleAdmin},
		{input: "user", want: RoleUser},
		{input: "ADMIN", wantErr: true},
		{input: "super_admin", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRole(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range Roles() {
		assert.True(t, r.Valid(), r.String())
	}
	assert.False(t, Role(0).Valid())
	assert.False(t, Role(99).Valid())
	assert.Equal(t, "Role(99)", Role(99).String())
}

func TestRoleJSON(t *testing.T) {
	data, err := json.Marshal(UserSummary{ID: "u1", Role: RoleAdmin})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role":"admin"`)

	var decoded UserSummary
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, RoleAdmin, decoded.Role)

	err = json.Unmarshal([]byte(`{"role":"owner"}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = json.Marshal(UserSummary{Role: Role(0)})
	assert.Error(t, err, "zero role must not serialize")
}

func TestRoleBSON(t *testing.T) {
	data, err := bson.Marshal(User{Email: "a@b.co", Role: RoleUser})
	require.NoError(t, err)

	var raw bson.M
	require.NoError(t, bson.Unmarshal(data, &raw))
	assert.Equal(t, "user", raw["role"])

	var decoded User
	require.NoError(t, bson.Unmarshal(data, &decoded))
	assert.Equal(t, RoleUser, decoded.Role)
}
