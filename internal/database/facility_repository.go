package database

import (
	"database/sql"
	"fmt"

	"github.com/careride/facility-backend/internal/models"
)

// FacilityRepository handles database operations for the facilities table
type FacilityRepository struct {
	db DB
}

// NewFacilityRepository creates a new FacilityRepository
func NewFacilityRepository(db DB) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// GetByID retrieves a facility by ID
func (r *FacilityRepository) GetByID(facilityID string) (*models.Facility, error) {
	query := `
		SELECT id, name, billing_email, stripe_customer_id, phone, address,
			   created_at, updated_at
		FROM facilities
		WHERE id = $1
	`

	facility := &models.Facility{}
	var billingEmail, stripeCustomerID, phone, address sql.NullString

	err := r.db.QueryRow(query, facilityID).Scan(
		&facility.ID, &facility.Name, &billingEmail, &stripeCustomerID,
		&phone, &address, &facility.CreatedAt, &facility.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("facility not found")
		}
		return nil, fmt.Errorf("failed to fetch facility: %w", err)
	}

	if billingEmail.Valid {
		facility.BillingEmail = &billingEmail.String
	}
	if stripeCustomerID.Valid {
		facility.StripeCustomerID = &stripeCustomerID.String
	}
	if phone.Valid {
		facility.Phone = &phone.String
	}
	if address.Valid {
		facility.Address = &address.String
	}

	return facility, nil
}

// UpdateBillingEmail updates the facility's billing email
func (r *FacilityRepository) UpdateBillingEmail(facilityID, email string) error {
	query := `
		UPDATE facilities
		SET billing_email = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, facilityID, email)
	if err != nil {
		return fmt.Errorf("failed to update billing email: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("facility not found")
	}

	return nil
}

// SetStripeCustomerID stores the processor customer id for a facility
func (r *FacilityRepository) SetStripeCustomerID(facilityID, customerID string) error {
	query := `
		UPDATE facilities
		SET stripe_customer_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.Exec(query, facilityID, customerID)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer id: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("facility not found")
	}

	return nil
}
