package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := Hash("principal123")
	require.NoError(t, err)

	assert.NotContains(t, hash, "principal123")
	assert.True(t, Verify("principal123", hash))
	assert.False(t, Verify("principal124", hash))

	other, err := Hash("principal123")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ per hash")
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("superadmin123"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, IsBcrypt(string(legacy)))
	assert.True(t, Verify("superadmin123", string(legacy)))
	assert.False(t, Verify("wrong", string(legacy)))
}

func TestVerifyRejectsMalformed(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=x,t=1,p=4$abc$def",
		"$argon2id$v=18$m=65536,t=1,p=4$abc$def",
	} {
		assert.False(t, Verify("anything", encoded), encoded)
	}
}
