package repository

import (
	"context"
	"fmt"

	"food-rescue-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const donationColumns = `
	id, title, description, food_type, food_quantity, food_weight, expiration_date, pickup_date_time,
	donor_id, donor_name, status, volunteer_id, volunteer_name, recipient_id, recipient_name,
	location_lat, location_lng, location_address, created_at, updated_at`

// DonationRepository handles database operations for donations
type DonationRepository struct {
	db *pgxpool.Pool
}

// NewDonationRepository creates a new donation repository
func NewDonationRepository(db *pgxpool.Pool) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create inserts a donation; id and timestamps are assigned by the database
func (r *DonationRepository) Create(ctx context.Context, d *models.Donation) (*models.Donation, error) {
	query := `
		INSERT INTO donations (
			title, description, food_type, food_quantity, food_weight, expiration_date, pickup_date_time,
			donor_id, donor_name, status, location_lat, location_lng, location_address
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + donationColumns
	created, err := scanDonation(r.db.QueryRow(ctx, query,
		d.Title, d.Description, d.FoodType, d.FoodQuantity, d.FoodWeight, d.ExpirationDate, d.PickupDateTime,
		d.DonorID, d.DonorName, d.Status.String(), d.LocationLat, d.LocationLng, d.LocationAddress,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create donation: %w", err)
	}
	return created, nil
}

// GetByID retrieves a donation by ID
func (r *DonationRepository) GetByID(ctx context.Context, id string) (*models.Donation, error) {
	if !validID(id) {
		return nil, fmt.Errorf("donation %s: %w", id, ErrNotFound)
	}
	query := `SELECT ` + donationColumns + ` FROM donations WHERE id = $1`
	d, err := scanDonation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("donation %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}
	return d, nil
}

// List retrieves all donations, newest first
func (r *DonationRepository) List(ctx context.Context) ([]*models.Donation, error) {
	query := `SELECT ` + donationColumns + ` FROM donations ORDER BY created_at DESC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	defer rows.Close()

	var donations []*models.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation: %w", err)
		}
		donations = append(donations, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donations: %w", err)
	}
	return donations, nil
}

// UpdateStatus applies a partial status/assignment update and stamps
// updated_at with the database clock. Assignment fields are only ever set,
// never cleared. When the patch carries ExpectStatus the row must currently
// be in that status. It returns nil and no error when no row was updated.
func (r *DonationRepository) UpdateStatus(ctx context.Context, id string, patch models.StatusPatch) (*models.Donation, error) {
	if !validID(id) {
		return nil, nil
	}
	query := `
		UPDATE donations SET
			status         = COALESCE($2, status),
			volunteer_id   = COALESCE(volunteer_id, $3::uuid),
			volunteer_name = COALESCE(volunteer_name, $4),
			recipient_id   = COALESCE(recipient_id, $5::uuid),
			recipient_name = COALESCE(recipient_name, $6),
			updated_at     = clock_timestamp()
		WHERE id = $1 AND ($7::text IS NULL OR status = $7)
		RETURNING ` + donationColumns
	d, err := scanDonation(r.db.QueryRow(ctx, query,
		id, statusArg(patch.Status), patch.VolunteerID, patch.VolunteerName,
		patch.RecipientID, patch.RecipientName, statusArg(patch.ExpectStatus),
	))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update donation: %w", err)
	}
	return d, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func statusArg(s *models.Status) *string {
	if s == nil {
		return nil
	}
	v := s.String()
	return &v
}

func scanDonation(row pgx.Row) (*models.Donation, error) {
	var (
		d      models.Donation
		status string
	)
	err := row.Scan(
		&d.ID, &d.Title, &d.Description, &d.FoodType, &d.FoodQuantity, &d.FoodWeight,
		&d.ExpirationDate, &d.PickupDateTime, &d.DonorID, &d.DonorName, &status,
		&d.VolunteerID, &d.VolunteerName, &d.RecipientID, &d.RecipientName,
		&d.LocationLat, &d.LocationLng, &d.LocationAddress, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Status = models.Status(status)
	return &d, nil
}
