package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("user account is inactive")
	ErrIncorrectPassword  = errors.New("current password is incorrect")
	ErrCannotDeleteSelf   = errors.New("cannot delete your own account")
	ErrInvalidRole        = errors.New("invalid role")
)

type Service interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	Authenticate(ctx context.Context, email, password string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error)
	ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error
	ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error)
	AdminUpdateUser(ctx context.Context, id uuid.UUID, update AdminUpdate) (*User, error)
	DeleteUser(ctx context.Context, actorID, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// CreateUser expects the plain password in PasswordHash and replaces it with its bcrypt hash.
func (s *service) CreateUser(ctx context.Context, user *User) (*User, error) {
	if user.PasswordHash == "" {
		return nil, errors.New("password cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(user.PasswordHash), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: internal error hashing password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	if user.Role == "" {
		user.Role = authz.RoleUser
	}
	user.IsActive = true

	createdID, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("service: failed to save user: %w", err)
	}
	user.ID = createdID

	log.Info().Stringer("user_id", user.ID).Msg("service: user registered")
	return user, nil
}

func (s *service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to load user for authentication")
		return nil, fmt.Errorf("service: failed to authenticate: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !u.IsActive {
		log.Warn().Stringer("user_id", u.ID).Msg("service: inactive user attempted to log in")
		return nil, ErrInactive
	}

	return u, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to get user by id")
		return nil, fmt.Errorf("service: failed to get user by id '%s': %w", id, err)
	}

	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*User, error) {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	u.Name = update.Name
	u.Phone = update.Phone
	u.Address = update.Address

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to update profile")
		return nil, fmt.Errorf("service: failed to update profile: %w", err)
	}

	return u, nil
}

func (s *service) ChangePassword(ctx context.Context, id uuid.UUID, currentPassword, newPassword string) error {
	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrIncorrectPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("service: failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, id, string(hash)); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to update password")
		return fmt.Errorf("service: failed to update password: %w", err)
	}

	log.Info().Stringer("user_id", id).Msg("service: password changed")
	return nil
}

func (s *service) ListUsers(ctx context.Context, filter ListFilter) ([]User, int, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list users")
		return nil, 0, fmt.Errorf("service: failed to list users: %w", err)
	}

	return users, total, nil
}

func (s *service) AdminUpdateUser(ctx context.Context, id uuid.UUID, update AdminUpdate) (*User, error) {
	if update.Role != nil && !update.Role.Valid() {
		return nil, ErrInvalidRole
	}

	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Role != nil {
		u.Role = *update.Role
	}
	if update.IsActive != nil {
		u.IsActive = *update.IsActive
	}

	if err := s.repo.Update(ctx, u); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to update user")
		return nil, fmt.Errorf("service: failed to update user: %w", err)
	}

	log.Info().Stringer("user_id", id).Stringer("role", u.Role).Bool("is_active", u.IsActive).Msg("service: user updated by admin")
	return u, nil
}

func (s *service) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to delete user")
		return fmt.Errorf("service: failed to delete user by id '%s': %w", id, err)
	}

	return nil
}
