package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuthAccount is a set of sign-in credentials and the metadata captured at sign-up.
type AuthAccount struct {
	ID           string
	Email        string
	PasswordHash string
	FullName     string
	Role         string
	ConfirmedAt  *time.Time
	CreatedAt    time.Time
}

// Confirmed reports whether the account's email has been confirmed.
func (a *AuthAccount) Confirmed() bool {
	return a.ConfirmedAt != nil
}

const authColumns = `id, email, password_hash, full_name, role, confirmed_at, created_at`

// AuthRepository handles database operations for auth accounts
type AuthRepository struct {
	db *pgxpool.Pool
}

// NewAuthRepository creates a new auth repository
func NewAuthRepository(db *pgxpool.Pool) *AuthRepository {
	return &AuthRepository{db: db}
}

// Create inserts a new account; the id is generated by the database
func (r *AuthRepository) Create(ctx context.Context, acc *AuthAccount) (*AuthAccount, error) {
	query := `
		INSERT INTO auth_accounts (email, password_hash, full_name, role, confirmed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + authColumns
	created, err := scanAccount(r.db.QueryRow(ctx, query,
		acc.Email, acc.PasswordHash, acc.FullName, acc.Role, acc.ConfirmedAt, acc.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("account %s: %w", acc.Email, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return created, nil
}

// GetByEmail retrieves an account by email, case-insensitively
func (r *AuthRepository) GetByEmail(ctx context.Context, email string) (*AuthAccount, error) {
	query := `SELECT ` + authColumns + ` FROM auth_accounts WHERE lower(email) = lower($1)`
	acc, err := scanAccount(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("account %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	return acc, nil
}

// GetByID retrieves an account by ID
func (r *AuthRepository) GetByID(ctx context.Context, id string) (*AuthAccount, error) {
	query := `SELECT ` + authColumns + ` FROM auth_accounts WHERE id = $1`
	acc, err := scanAccount(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acc, nil
}

// Confirm marks the account's email as confirmed. Confirming twice keeps the
// first timestamp.
func (r *AuthRepository) Confirm(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE auth_accounts SET confirmed_at = COALESCE(confirmed_at, $2) WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to confirm account: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanAccount(row pgx.Row) (*AuthAccount, error) {
	var acc AuthAccount
	err := row.Scan(
		&acc.ID, &acc.Email, &acc.PasswordHash, &acc.FullName, &acc.Role, &acc.ConfirmedAt, &acc.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}
