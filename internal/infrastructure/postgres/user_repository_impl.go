package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techblog/backend/internal/domain/entity"
	"github.com/techblog/backend/internal/domain/repository"
)

const userColumns = `id, first_name, last_name, email, password_hash, role, is_active,
		bio, occupation, photo_url, instagram, linkedin, github, facebook,
		reset_password_code, reset_password_expires_at, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Password, &u.Role, &u.IsActive,
		&u.Bio, &u.Occupation, &u.PhotoURL, &u.Instagram, &u.LinkedIn, &u.GitHub, &u.Facebook,
		&u.ResetPasswordCode, &u.ResetPasswordExpiresAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, u.FirstName, u.LastName, u.Email, u.Password, u.Role, u.IsActive)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		// 23505 unique_violation on the email index
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET first_name = $1, last_name = $2, email = $3, password_hash = $4, role = $5,
		    is_active = $6, bio = $7, occupation = $8, photo_url = $9, instagram = $10,
		    linkedin = $11, github = $12, facebook = $13, updated_at = $14
		WHERE id = $15
	`, u.FirstName, u.LastName, u.Email, u.Password, u.Role,
		u.IsActive, u.Bio, u.Occupation, u.PhotoURL, u.Instagram,
		u.LinkedIn, u.GitHub, u.Facebook, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, f repository.ListFilter) ([]*entity.User, int, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	offset := (f.Page - 1) * f.Limit
	pattern := "%" + f.Search + "%"

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM users
		WHERE $1 = '' OR first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2
	`, f.Search, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE $1 = '' OR first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, f.Search, pattern, f.Limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *UserRepository) CountPrivileged(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE role IN ('admin', 'superadmin')`).Scan(&n)
	return n, err
}

func (r *UserRepository) SetResetCode(ctx context.Context, id, codeHash string, expiresAt time.Time) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET reset_password_code = $1, reset_password_expires_at = $2, updated_at = now()
		WHERE id = $3
	`, codeHash, expiresAt, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ConsumeResetCode relies on the single-statement conditional UPDATE for
// atomicity: of two concurrent resets against the same pending code, only one
// can match the non-null code before it is cleared.
func (r *UserRepository) ConsumeResetCode(ctx context.Context, id, codeHash, newPasswordHash string, now time.Time) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, reset_password_code = NULL, reset_password_expires_at = NULL, updated_at = now()
		WHERE id = $2 AND reset_password_code = $3 AND reset_password_expires_at > $4
	`, newPasswordHash, id, codeHash, now)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
