package domain

import (
	"testing"

	"github.com/smallbiznis/dealflow/internal/principal"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail("  Jane@Northside.com ")
	assert.NoError(t, err)
	assert.Equal(t, "jane@northside.com", email)

	for _, bad := range []string{"", "jane", "Jane <jane@x.com>", "a@"} {
		_, err := NormalizeEmail(bad)
		assert.ErrorIs(t, err, ErrInvalidEmail, bad)
	}
}

func TestDealershipRole(t *testing.T) {
	role, err := DealershipRole("Admin")
	assert.NoError(t, err)
	assert.Equal(t, principal.RoleAdmin, role)

	_, err = DealershipRole("super_admin")
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = DealershipRole("owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("pw123456"))
	assert.ErrorIs(t, ValidatePassword("short"), ErrInvalidPassword)
}
