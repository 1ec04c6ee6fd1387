package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/shop-service/internal/db"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("user with this email already exists")
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const userColumns = "id, name, email, password_hash, role, phone, address, is_active, created_at, updated_at"

type Repository interface {
	Create(ctx context.Context, user *User) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Phone,
		&u.Address,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *postgresRepository) Create(ctx context.Context, user *User) (uuid.UUID, error) {
	if user.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate user id: %w", err)
		}
		user.ID = id
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, name, email, password_hash, role, phone, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role.String(),
		user.Phone,
		user.Address,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return uuid.Nil, ErrEmailExists
		}
		return uuid.Nil, fmt.Errorf("repository: failed to insert user: %w", err)
	}

	return user.ID, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = $1"

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user by id %s: %w", id, err)
	}

	return u, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE LOWER(email) = LOWER($1)"

	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select user by email: %w", err)
	}

	return u, nil
}

func (r *postgresRepository) Update(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET name = $1, phone = $2, address = $3, role = $4, is_active = $5, updated_at = $6
		WHERE id = $7
	`
	cmdTag, err := r.db.Exec(ctx, query,
		user.Name,
		user.Phone,
		user.Address,
		user.Role.String(),
		user.IsActive,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update user %s: %w", user.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	cmdTag, err := r.db.Exec(ctx,
		"UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3",
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update password for user %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", id).Msg("repository: failed to delete user")
		return fmt.Errorf("repository: failed to delete user %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	where := sq.And{}
	if filter.Search != "" {
		pattern := db.ContainsPattern(filter.Search)
		where = append(where, sq.Or{sq.ILike{"name": pattern}, sq.ILike{"email": pattern}})
	}
	if filter.Role != "" {
		where = append(where, sq.Eq{"role": filter.Role.String()})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("users").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to build users count query: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count users: %w", err)
	}

	listSQL, listArgs, err := psql.Select(userColumns).From("users").Where(where).
		OrderBy("created_at DESC").
		Limit(filter.Page.Limit()).
		Offset(filter.Page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to build users list query: %w", err)
	}

	rows, err := r.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: failed iterating users: %w", err)
	}

	return users, total, nil
}
