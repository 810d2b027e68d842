package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/account-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, username, password_hash, status, role,
		          reset_permit_until, created_at, updated_at`

const (
	pgUniqueViolation  = "23505"
	pgInvalidTextInput = "22P02"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (name, email, username, password_hash, status, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.Status,
		user.Role,
	)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}
	return created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

func (r *UserRepository) ListPending(ctx context.Context, limit int) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE status = 'pending'
		ORDER BY created_at ASC, id ASC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	return users, nil
}

func (r *UserRepository) Approve(ctx context.Context, id string) (*domain.User, error) {
	query := `
		UPDATE users
		SET    status = 'approved', updated_at = NOW()
		WHERE  id = $1
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) SetResetPermit(ctx context.Context, id string, untilMS int64) (*domain.User, error) {
	query := `
		UPDATE users
		SET    reset_permit_until = $2, updated_at = NOW()
		WHERE  id = $1
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query, id, untilMS))
}

func (r *UserRepository) ConsumeResetPermit(ctx context.Context, email string, now time.Time) (*domain.User, error) {
	// Check and clear happen in one statement; of two racing callers only
	// one can observe the live permit.
	query := `
		UPDATE users
		SET    reset_permit_until = 0, updated_at = NOW()
		WHERE  email = $1
		  AND  reset_permit_until > $2
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query, email, now.UnixMilli()))
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("consume reset permit: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return nil, domain.ErrUserNotFound
	}
	return nil, domain.ErrConfirmationRequired
}

func (r *UserRepository) ReplacePassword(ctx context.Context, id, currentHash, newHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		SET    password_hash = $3, updated_at = NOW()
		WHERE  id = $1 AND password_hash = $2`,
		id, currentHash, newHash,
	)
	if err != nil {
		if isInvalidID(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("replace password: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return domain.ErrUserNotFound
	}
	return domain.ErrPasswordChanged
}

func (r *UserRepository) ClearExpiredPermits(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		SET    reset_permit_until = 0, updated_at = NOW()
		WHERE  reset_permit_until <> 0
		  AND  reset_permit_until <= $1`,
		now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("clear expired permits: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Status,
		&u.Role,
		&u.ResetPermitUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidID(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// isInvalidID reports a malformed UUID, which can never match a row.
func isInvalidID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextInput
}
