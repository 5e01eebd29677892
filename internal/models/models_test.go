package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The serialized user must never expose the password hash, the token
// list or the raw avatar blob.
func TestUserJSONHidesSensitiveFields(t *testing.T) {
	user := User{
		ID:       1,
		Name:     "nayan",
		Email:    "nayan123@gmail.com",
		Password: "$2a$10$somebcrypthash",
		Tokens:   []string{"token-one", "token-two"},
		Avatar:   []byte{0xff, 0xd8},
	}

	body, err := json.Marshal(user)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))

	assert.Equal(t, "nayan", out["name"])
	assert.Equal(t, "nayan123@gmail.com", out["email"])
	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "tokens")
	assert.NotContains(t, out, "avatar")
	assert.NotContains(t, string(body), "bcrypt")
	assert.NotContains(t, string(body), "token-one")
}
