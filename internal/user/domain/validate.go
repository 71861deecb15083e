package domain

import (
	"net/mail"
	"strings"

	"github.com/smallbiznis/dealflow/internal/auth/password"
	"github.com/smallbiznis/dealflow/internal/principal"
)

// NormalizeEmail trims, lowercases and syntax-checks an address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrInvalidEmail
	}
	parsed, err := mail.ParseAddress(email)
	if err != nil || parsed.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func ValidatePassword(raw string) error {
	if len(strings.TrimSpace(raw)) < password.MinLength {
		return ErrInvalidPassword
	}
	return nil
}

// DealershipRole parses a role a principal may assign inside a dealership.
func DealershipRole(raw string) (principal.Role, error) {
	role := principal.Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case principal.RolePrincipal, principal.RoleAdmin, principal.RoleUser:
		return role, nil
	default:
		return "", ErrInvalidRole
	}
}
