package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"medibook/backend/internal/auth"
	"medibook/backend/internal/domain"
	"medibook/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type Service struct {
	users store.UserRepository
	cfg   Config
}

func NewService(users store.UserRepository, cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 15 * time.Minute
	}
	return &Service{users: users, cfg: cfg}
}

type RegisterInput struct {
	Email      string
	Password   string
	FullName   string
	Mobile     string
	Role       string
	DivisionID *uuid.UUID
	DistrictID *uuid.UUID
	ThanaID    *uuid.UUID
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, validationError("a valid email is required")
	}
	if len(in.Password) < 8 {
		return domain.User{}, validationError("password must be at least 8 characters")
	}
	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return domain.User{}, validationError("full_name is required")
	}

	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return domain.User{}, validationError("role must be doctor or patient")
	}
	// Admins are provisioned out of band, never self-registered.
	if role == domain.RoleAdmin {
		return domain.User{}, validationError("role must be doctor or patient")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}

	return s.users.Create(ctx, domain.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Mobile:       strings.TrimSpace(in.Mobile),
		Role:         role,
		DivisionID:   in.DivisionID,
		DistrictID:   in.DistrictID,
		ThanaID:      in.ThanaID,
	})
}

// Authenticate verifies the credentials and mints an access token carrying
// the user id and role.
func (s *Service) Authenticate(ctx context.Context, email, password string) (domain.User, string, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, "", validationError("invalid email or password")
		}
		return domain.User{}, "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return domain.User{}, "", validationError("invalid email or password")
	}

	token, err := auth.MakeToken(user.ID.String(), user.Role, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return domain.User{}, "", err
	}
	return user, token, nil
}

// GetUser is the identity-store contract: id in, id plus role out.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (domain.User, error) {
	if id == uuid.Nil {
		return domain.User{}, validationError("user_id is required")
	}
	return s.users.GetByID(ctx, id)
}
