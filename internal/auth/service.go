package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/user"
)

const TokenType = "Bearer"

type Session struct {
	Token     string     `json:"token"`
	TokenType string     `json:"token_type"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *user.User `json:"user"`
}

type Service interface {
	Register(ctx context.Context, u *user.User) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Logout(ctx context.Context, actor *authz.Actor) error
	Authenticate(ctx context.Context, rawToken string) (*authz.Actor, error)
	ChangePassword(ctx context.Context, actor *authz.Actor, currentPassword, newPassword string) error
}

type service struct {
	users  user.Service
	tokens TokenRepository
	issuer *TokenManager
}

func NewService(users user.Service, tokens TokenRepository, issuer *TokenManager) Service {
	return &service{
		users:  users,
		tokens: tokens,
		issuer: issuer,
	}
}

func (s *service) Register(ctx context.Context, u *user.User) (*Session, error) {
	u.Role = authz.RoleUser

	created, err := s.users.CreateUser(ctx, u)
	if err != nil {
		return nil, err
	}

	return s.openSession(ctx, created)
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	return s.openSession(ctx, u)
}

func (s *service) openSession(ctx context.Context, u *user.User) (*Session, error) {
	token, err := s.issuer.Issue(u.ID, u.Role)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to issue token")
		return nil, fmt.Errorf("service: failed to issue token: %w", err)
	}

	if err := s.tokens.Save(ctx, token.ID, u.ID, token.ExpiresAt); err != nil {
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to persist token")
		return nil, fmt.Errorf("service: failed to persist token: %w", err)
	}

	return &Session{
		Token:     token.Value,
		TokenType: TokenType,
		ExpiresAt: token.ExpiresAt,
		User:      u,
	}, nil
}

func (s *service) Logout(ctx context.Context, actor *authz.Actor) error {
	if err := s.tokens.Delete(ctx, actor.TokenID); err != nil {
		log.Error().Err(err).Stringer("user_id", actor.UserID).Msg("service: failed to revoke token")
		return fmt.Errorf("service: failed to revoke token: %w", err)
	}

	log.Info().Stringer("user_id", actor.UserID).Msg("service: user logged out")
	return nil
}

// Authenticate resolves a bearer token to an actor. The role comes from the user row, not the token.
func (s *service) Authenticate(ctx context.Context, rawToken string) (*authz.Actor, error) {
	userID, tokenID, err := s.issuer.Parse(rawToken)
	if err != nil {
		return nil, err
	}

	owner, err := s.tokens.Touch(ctx, tokenID)
	if err != nil {
		if errors.Is(err, ErrTokenRevoked) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("service: failed to verify token: %w", err)
	}

	if owner.UserID != userID {
		log.Warn().Stringer("token_id", tokenID).Msg("service: token subject does not match stored owner")
		return nil, ErrInvalidToken
	}
	if !owner.IsActive {
		return nil, user.ErrInactive
	}

	return &authz.Actor{UserID: owner.UserID, Role: owner.Role, TokenID: tokenID}, nil
}

func (s *service) ChangePassword(ctx context.Context, actor *authz.Actor, currentPassword, newPassword string) error {
	if err := s.users.ChangePassword(ctx, actor.UserID, currentPassword, newPassword); err != nil {
		return err
	}

	if err := s.tokens.DeleteAllForUserExcept(ctx, actor.UserID, actor.TokenID); err != nil {
		log.Error().Err(err).Stringer("user_id", actor.UserID).Msg("service: failed to revoke other sessions")
		return fmt.Errorf("service: failed to revoke other sessions: %w", err)
	}

	return nil
}
