package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of an issued token. Tokens are not refreshable.
const DefaultTokenTTL = time.Hour

// Claims is the JWT payload: the identity plus registered expiry claims.
type Claims struct {
	UserID         string `json:"id"`
	Role           Role   `json:"role"`
	AssignedMosque string `json:"assignedMosque,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the identity carried by the claims.
func (c *Claims) Identity() Identity {
	return Identity{ID: c.UserID, Role: c.Role, AssignedMosque: c.AssignedMosque}
}

// TokenService issues and verifies HS256 identity tokens with a single immutable secret.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures TokenService.
type TokenOption func(*TokenService)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService builds a token service. An empty secret still yields a service so
// the HTTP layer can answer 500 on protected routes; Ready reports the fault.
func NewTokenService(secret string, opts ...TokenOption) *TokenService {
	s := &TokenService{
		ttl: DefaultTokenTTL,
		now: time.Now,
	}
	if trimmed := strings.TrimSpace(secret); trimmed != "" {
		s.secret = []byte(trimmed)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready returns ErrNotConfigured when no signing secret is available.
func (s *TokenService) Ready() error {
	if s == nil || len(s.secret) == 0 {
		return ErrNotConfigured
	}
	return nil
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for id. The expiry is fixed here and never extended.
func (s *TokenService) Issue(id Identity) (string, time.Time, error) {
	if err := s.Ready(); err != nil {
		return "", time.Time{}, err
	}
	id.ID = strings.TrimSpace(id.ID)
	if id.ID == "" {
		return "", time.Time{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if !id.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, id.Role)
	}

	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		UserID:         id.ID,
		Role:           id.Role,
		AssignedMosque: id.AssignedMosque,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature and expiry and returns the carried identity. Every failure
// other than a missing secret collapses to ErrTokenInvalid.
func (s *TokenService) Verify(token string) (Identity, error) {
	if err := s.Ready(); err != nil {
		return Identity{}, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrTokenInvalid
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, ErrTokenInvalid
	}
	if err := validateClaims(claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return claims.Identity(), nil
}

func validateClaims(c *Claims) error {
	if strings.TrimSpace(c.UserID) == "" {
		return errors.New("id missing")
	}
	if !c.Role.Valid() {
		return fmt.Errorf("unknown role %q", c.Role)
	}
	return nil
}
