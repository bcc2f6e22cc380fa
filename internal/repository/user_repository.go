package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/tumortrace/classification-service/internal/models"
)

const userColumns = `id, username, email, password_hash, age, google_sub, created_at, updated_at`

type UserRepository struct {
	db      *sql.DB
	timeout time.Duration
}

func NewUserRepository(db *sql.DB, timeout time.Duration) *UserRepository {
	return &UserRepository{db: db, timeout: timeout}
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, age, google_sub, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Age, u.GoogleSub, u.CreatedAt, u.UpdatedAt)
	return translate(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) GetByGoogleSub(ctx context.Context, sub string) (*models.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE google_sub = $1`, sub)
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET username = $2, email = $3, password_hash = $4, age = $5, updated_at = $6
		WHERE id = $1
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.Age, u.UpdatedAt)
	return affectedOne(res, err)
}

func (r *UserRepository) LinkGoogle(ctx context.Context, id, sub string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET google_sub = $2, updated_at = NOW() WHERE id = $1`, id, sub)
	return affectedOne(res, err)
}

// Delete removes the user; images cascade. Ledger rows are kept for audit.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return affectedOne(res, err)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var (
		u   models.User
		sub sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Age, &sub, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	if sub.Valid {
		u.GoogleSub = &sub.String
	}
	return &u, nil
}

func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
