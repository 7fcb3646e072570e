package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-gig-auth/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-gig-auth/pkg/database"
)

// Constraint names used by EnsureTable; unique violations are classified by them.
const (
	ConstraintEmail = "uq_users_email"
	ConstraintPhone = "uq_users_phone"
)

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicatePhone = errors.New("phone number already registered")
)

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id VARCHAR(32) PRIMARY KEY,
  full_name TEXT NOT NULL,
  email CITEXT NOT NULL,
  phone VARCHAR(16) NOT NULL,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL CHECK (role IN ('organizer','worker')),
  is_active BOOLEAN NOT NULL DEFAULT true,
  is_email_verified BOOLEAN NOT NULL DEFAULT false,
  kyc_status TEXT NOT NULL DEFAULT 'unverified',
  profile_picture TEXT,
  token_version BIGINT NOT NULL DEFAULT 1,
  last_login_at TIMESTAMPTZ,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  CONSTRAINT uq_users_email UNIQUE (email),
  CONSTRAINT uq_users_phone UNIQUE (phone)
);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const userColumns = `id, full_name, email, phone, password_hash, role, is_active,
	is_email_verified, kyc_status, profile_picture, token_version, last_login_at,
	created_at, updated_at`

// Create inserts a new user row. The unique constraints are authoritative: a
// concurrent insert that slipped past any pre-check surfaces as ErrDuplicateEmail
// or ErrDuplicatePhone.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, full_name, email, phone, password_hash, role, is_active,
		is_email_verified, kyc_status, token_version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = u.CreatedAt
	_, err := r.db.ExecContext(ctx, q,
		u.ID, u.FullName, u.Email, u.Phone, u.PasswordHash, string(u.Role), u.IsActive,
		u.IsEmailVerified, u.KYCStatus, u.TokenVersion, u.CreatedAt, u.UpdatedAt,
	)
	return classify(err)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case ConstraintEmail:
			return ErrDuplicateEmail
		case ConstraintPhone:
			return ErrDuplicatePhone
		}
	}
	return err
}

// GetByEmail returns a user matched by email (case-insensitive due to citext) or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailExists is the cheap pre-check run before hashing a password.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, email)
}

func (r *UserRepo) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE phone=$1)`, phone)
}

func (r *UserRepo) exists(ctx context.Context, q string, arg any) (bool, error) {
	var ok bool
	if err := r.db.GetContext(ctx, &ok, q, arg); err != nil {
		return false, err
	}
	return ok, nil
}

// TouchLastLogin records a successful authentication.
func (r *UserRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE users SET last_login_at=$2, updated_at=NOW() WHERE id=$1`
	return r.execOne(ctx, q, id, at)
}

// UpdatePasswordHash replaces the stored digest (used for cost upgrades).
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const q = `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`
	return r.execOne(ctx, q, id, hash)
}

// SetActive toggles the active flag and bumps token_version so tokens issued
// before the change stop resolving.
func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	const q = `UPDATE users SET is_active=$2, token_version=token_version+1, updated_at=NOW() WHERE id=$1`
	return r.execOne(ctx, q, id, active)
}

// Delete removes a user row. It only exists to compensate a failed registration.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id=$1`, id)
}

func (r *UserRepo) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
