package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/authz"
)

var ErrTokenRevoked = errors.New("token has been revoked")

// TokenOwner is the live state of the user a stored token belongs to.
type TokenOwner struct {
	UserID   uuid.UUID
	Role     authz.Role
	IsActive bool
}

type TokenRepository interface {
	Save(ctx context.Context, tokenID, userID uuid.UUID, expiresAt time.Time) error
	Touch(ctx context.Context, tokenID uuid.UUID) (*TokenOwner, error)
	Delete(ctx context.Context, tokenID uuid.UUID) error
	DeleteAllForUserExcept(ctx context.Context, userID, keepTokenID uuid.UUID) error
}

type postgresTokenRepository struct {
	db *pgxpool.Pool
}

func NewTokenRepository(db *pgxpool.Pool) TokenRepository {
	return &postgresTokenRepository{db: db}
}

func (r *postgresTokenRepository) Save(ctx context.Context, tokenID, userID uuid.UUID, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		"INSERT INTO access_tokens (jti, user_id, expires_at) VALUES ($1, $2, $3)",
		tokenID, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("repository: failed to store access token: %w", err)
	}
	return nil
}

// Touch marks the token as used and returns its owner. Missing or expired tokens yield ErrTokenRevoked.
func (r *postgresTokenRepository) Touch(ctx context.Context, tokenID uuid.UUID) (*TokenOwner, error) {
	query := `
		UPDATE access_tokens t
		SET last_used_at = NOW()
		FROM users u
		WHERE t.jti = $1 AND t.expires_at > NOW() AND u.id = t.user_id
		RETURNING u.id, u.role, u.is_active
	`

	var owner TokenOwner
	err := r.db.QueryRow(ctx, query, tokenID).Scan(&owner.UserID, &owner.Role, &owner.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("repository: failed to look up access token: %w", err)
	}

	return &owner, nil
}

func (r *postgresTokenRepository) Delete(ctx context.Context, tokenID uuid.UUID) error {
	_, err := r.db.Exec(ctx, "DELETE FROM access_tokens WHERE jti = $1", tokenID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete access token: %w", err)
	}
	return nil
}

func (r *postgresTokenRepository) DeleteAllForUserExcept(ctx context.Context, userID, keepTokenID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		"DELETE FROM access_tokens WHERE user_id = $1 AND jti <> $2",
		userID, keepTokenID)
	if err != nil {
		return fmt.Errorf("repository: failed to revoke access tokens for user %s: %w", userID, err)
	}
	return nil
}
