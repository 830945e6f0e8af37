package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"jamaat.org/internal/ids"
)

// Service implements registration and login on top of a UserStore.
type Service struct {
	users  UserStore
	hasher *PasswordHasher
	tokens *TokenService
}

// NewService wires the auth service.
func NewService(users UserStore, hasher *PasswordHasher, tokens *TokenService) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if hasher == nil {
		return nil, errors.New("auth: password hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	return &Service{users: users, hasher: hasher, tokens: tokens}, nil
}

// Tokens exposes the token service used by this Service.
func (s *Service) Tokens() *TokenService { return s.tokens }

// NormalizeEmail is the canonical form used for lookups and the unique index.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a user with role user. The store's unique indexes are the final
// word on duplicates; the pre-check only gives a friendlier error earlier.
func (s *Service) Register(ctx context.Context, reg Registration) (*User, error) {
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = NormalizeEmail(reg.Email)
	if reg.FirstName == "" || reg.LastName == "" || reg.Username == "" || reg.Email == "" || reg.Password == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrInvalidInput)
	}

	existing, err := s.users.FindUserByEmailOrUsername(ctx, reg.Email, reg.Username)
	switch {
	case err == nil && existing != nil:
		return nil, ErrConflict
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		ID:           ids.New(),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		Role:         RoleUser,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and issues a token. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	u, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}
	token, exp, err := s.tokens.Issue(u.Identity())
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}

// Me loads the stored user behind an identity.
func (s *Service) Me(ctx context.Context, id Identity) (*User, error) {
	return s.users.FindUserByID(ctx, id.ID)
}

// AssignRole changes a user's role. A mosque admin must be bound to a mosque; the
// other roles carry no tenant.
func (s *Service) AssignRole(ctx context.Context, userID string, role Role, mosqueID string) (*User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	mosqueID = strings.TrimSpace(mosqueID)
	switch {
	case role == RoleMosqueAdmin && mosqueID == "":
		return nil, fmt.Errorf("%w: mosque admin requires an assigned mosque", ErrInvalidInput)
	case role != RoleMosqueAdmin:
		mosqueID = ""
	}
	if err := s.users.SetRole(ctx, userID, role, mosqueID); err != nil {
		return nil, err
	}
	return s.users.FindUserByID(ctx, userID)
}

// PromoteSuperAdmin grants super_admin to the user registered under email. It is
// used to bootstrap the first administrator.
func (s *Service) PromoteSuperAdmin(ctx context.Context, email string) (*User, error) {
	u, err := s.users.FindUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u.Role == RoleSuperAdmin {
		return u, nil
	}
	return s.AssignRole(ctx, u.ID, RoleSuperAdmin, "")
}
