// Package token issues and verifies the signed session tokens that carry a
// principal's role and tenant scope.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/dealflow/internal/clock"
	"github.com/smallbiznis/dealflow/internal/config"
	"github.com/smallbiznis/dealflow/internal/principal"
)

const (
	DefaultTTL = 24 * time.Hour
	issuer     = "dealflow"
)

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
)

// Claims is the wire form of a principal.
type Claims struct {
	UserID       string   `json:"userId"`
	Role         string   `json:"role"`
	DealershipID string   `json:"dealershipId,omitempty"`
	LocationIDs  []string `json:"locationIds"`
	jwt.RegisteredClaims
}

type Issuer interface {
	Issue(p principal.Principal) (string, time.Time, error)
}

type Verifier interface {
	Verify(raw string) (principal.Principal, error)
}

// Manager both issues and verifies tokens.
type Manager interface {
	Issuer
	Verifier
}

type hmacManager struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func New(cfg config.Config, clk clock.Clock) Manager {
	return NewHMAC([]byte(cfg.AuthJWTSecret), cfg.AuthTokenTTL, clk)
}

func NewHMAC(secret []byte, ttl time.Duration, clk clock.Clock) Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.System()
	}
	return &hmacManager{secret: secret, ttl: ttl, clock: clk}
}

func (m *hmacManager) Issue(p principal.Principal) (string, time.Time, error) {
	now := m.clock.Now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		UserID:      p.UserID.String(),
		Role:        p.Role.String(),
		LocationIDs: make([]string, 0, len(p.LocationIDs)),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if id, ok := p.Dealership(); ok {
		claims.DealershipID = id.String()
	}
	for _, id := range p.LocationIDs {
		claims.LocationIDs = append(claims.LocationIDs, id.String())
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *hmacManager) Verify(raw string) (principal.Principal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return principal.Principal{}, ErrMissingToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		return principal.Principal{}, ErrInvalidToken
	}
	return claims.principal()
}

func (c Claims) principal() (principal.Principal, error) {
	userID, err := snowflake.ParseString(c.UserID)
	if err != nil || userID == 0 {
		return principal.Principal{}, ErrInvalidToken
	}
	role := principal.Role(c.Role)
	if !role.Valid() {
		return principal.Principal{}, ErrInvalidToken
	}

	p := principal.Principal{
		UserID:      userID,
		Role:        role,
		LocationIDs: make([]snowflake.ID, 0, len(c.LocationIDs)),
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	if c.DealershipID != "" {
		dealershipID, err := snowflake.ParseString(c.DealershipID)
		if err != nil || dealershipID == 0 {
			return principal.Principal{}, ErrInvalidToken
		}
		p.DealershipID = &dealershipID
	}
	if role != principal.RoleSuperAdmin && p.DealershipID == nil {
		return principal.Principal{}, ErrInvalidToken
	}
	for _, raw := range c.LocationIDs {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return principal.Principal{}, ErrInvalidToken
		}
		p.LocationIDs = append(p.LocationIDs, id)
	}
	return p, nil
}

// FromHeader extracts a bearer token from an Authorization header value.
func FromHeader(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
