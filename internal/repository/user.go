package repository

import (
	"context"
	"fmt"
	"time"

	"food-rescue-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, full_name, role, phone_number, address, avatar_url, push_token, created_at, updated_at`

// UserRepository handles database operations for user profiles
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new profile and returns the stored row
func (r *UserRepository) Create(ctx context.Context, user *models.UserProfile) (*models.UserProfile, error) {
	query := `
		INSERT INTO users (id, email, full_name, role, phone_number, address, avatar_url, push_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + userColumns
	created, err := scanUser(r.db.QueryRow(ctx, query,
		user.ID, user.Email, user.FullName, user.Role, user.PhoneNumber, user.Address,
		user.AvatarURL, user.PushToken, user.CreatedAt, user.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user %s: %w", user.ID, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

// GetByID retrieves a profile by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Update merges the provided fields into the stored profile and stamps updated_at
func (r *UserRepository) Update(ctx context.Context, id string, upd models.ProfileUpdate, at time.Time) (*models.UserProfile, error) {
	var role *string
	if upd.Role != nil {
		v := upd.Role.String()
		role = &v
	}

	query := `
		UPDATE users SET
			full_name    = COALESCE($2, full_name),
			role         = COALESCE($3, role),
			phone_number = COALESCE($4, phone_number),
			address      = COALESCE($5, address),
			avatar_url   = COALESCE($6, avatar_url),
			push_token   = COALESCE($7, push_token),
			updated_at   = $8
		WHERE id = $1
		RETURNING ` + userColumns
	user, err := scanUser(r.db.QueryRow(ctx, query,
		id, upd.FullName, role, upd.PhoneNumber, upd.Address, upd.AvatarURL, upd.PushToken, at,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// CountByRole returns the number of profiles per role
func (r *UserRepository) CountByRole(ctx context.Context) (map[models.Role]int, error) {
	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("failed to count users by role: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Role]int)
	for rows.Next() {
		var (
			role  string
			count int
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, fmt.Errorf("failed to scan role count: %w", err)
		}
		counts[models.Role(role)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating role counts: %w", err)
	}
	return counts, nil
}

func scanUser(row pgx.Row) (*models.UserProfile, error) {
	var (
		user models.UserProfile
		role string
	)
	err := row.Scan(
		&user.ID, &user.Email, &user.FullName, &role, &user.PhoneNumber, &user.Address,
		&user.AvatarURL, &user.PushToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	user.DisplayName = user.FullName
	return &user, nil
}
