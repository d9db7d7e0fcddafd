package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/civicalert/civicalert-server/internal/realtime"
	"github.com/civicalert/civicalert-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when email/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when registering an already-used email.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidName is returned when the display name doesn't meet constraints.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidEmail is returned when the email doesn't meet constraints.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrInvalidPassword is returned when the password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
)

// Service provides authentication operations.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
	}
}

// Register creates a citizen account and returns a signed token.
func (s *Service) Register(ctx context.Context, name, email, password string) (string, error) {
	user, err := s.createUser(ctx, name, email, password, store.RoleCitizen)
	if err != nil {
		return "", err
	}
	return s.tokenFor(user)
}

// CreateAdmin creates an admin account. Used by the CLI, not exposed over HTTP.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*store.User, error) {
	return s.createUser(ctx, name, email, password, store.RoleAdmin)
}

// Login validates credentials and returns a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return "", ErrInvalidCredentials
	}

	return s.tokenFor(user)
}

// ValidateToken validates a token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// Verify implements realtime.CredentialVerifier so the hub can classify
// post-connect authentication messages.
func (s *Service) Verify(token string) (realtime.Identity, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return realtime.Identity{}, err
	}
	return realtime.Identity{
		UserID: claims.UserID,
		Name:   claims.Name,
		Role:   claims.Role,
	}, nil
}

func (s *Service) createUser(ctx context.Context, name, email, password, role string) (*store.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(name) < 2 || len(name) > 64 {
		return nil, ErrInvalidName
	}
	if !strings.Contains(email, "@") || len(email) > 254 {
		return nil, ErrInvalidEmail
	}
	if len(password) < 6 {
		return nil, ErrInvalidPassword
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrUserExists
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, name, email, hashedPassword, role)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *Service) tokenFor(user *store.User) (string, error) {
	token, err := GenerateToken(s.jwtConfig, user.ID, user.Name, user.Role)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}
