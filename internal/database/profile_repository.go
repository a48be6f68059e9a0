package database

import (
	"database/sql"
	"fmt"

	"github.com/careride/facility-backend/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ProfileRepository handles database operations for the profiles table
type ProfileRepository struct {
	db DB
}

// NewProfileRepository creates a new ProfileRepository
func NewProfileRepository(db DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(profileID uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT id, facility_id, first_name, last_name, email, phone,
			   roles, status, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	return r.scanProfile(r.db.QueryRow(query, profileID))
}

// ListClientsByFacility retrieves all client profiles attached to a facility
func (r *ProfileRepository) ListClientsByFacility(facilityID string) ([]models.Profile, error) {
	query := `
		SELECT id, facility_id, first_name, last_name, email, phone,
			   roles, status, created_at, updated_at
		FROM profiles
		WHERE facility_id = $1 AND 'client' = ANY(roles)
		ORDER BY last_name, first_name
	`

	rows, err := r.db.Query(query, facilityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		var facID sql.NullString

		err := rows.Scan(
			&p.ID, &facID, &p.FirstName, &p.LastName, &p.Email, &p.Phone,
			pq.Array(&p.Roles), &p.Status, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		if facID.Valid {
			p.FacilityID = &facID.String
		}

		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// UpdateProfile updates the mutable profile fields
func (r *ProfileRepository) UpdateProfile(profileID uuid.UUID, firstName, lastName, email, phone string) error {
	query := `
		UPDATE profiles
		SET first_name = $1, last_name = $2, email = $3, phone = $4, updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.db.Exec(query, firstName, lastName, email, phone, profileID)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("profile not found")
	}

	return nil
}

// scanProfile scans a single profile
func (r *ProfileRepository) scanProfile(row *sql.Row) (*models.Profile, error) {
	profile := &models.Profile{}
	var facilityID sql.NullString

	err := row.Scan(
		&profile.ID, &facilityID, &profile.FirstName, &profile.LastName,
		&profile.Email, &profile.Phone, pq.Array(&profile.Roles),
		&profile.Status, &profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	if facilityID.Valid {
		profile.FacilityID = &facilityID.String
	}

	return profile, nil
}
