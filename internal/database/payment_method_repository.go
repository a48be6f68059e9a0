package database

import (
	"database/sql"
	"fmt"

	"github.com/careride/facility-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// PaymentMethodRepository handles the facility_payment_methods table.
// The single-default invariant is enforced here, in the application,
// inside one transaction. There is no database trigger.
type PaymentMethodRepository struct {
	db *sqlx.DB
}

// NewPaymentMethodRepository creates a new PaymentMethodRepository
func NewPaymentMethodRepository(db *sqlx.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

// ListByFacility retrieves all stored payment methods for a facility
func (r *PaymentMethodRepository) ListByFacility(facilityID string) ([]models.PaymentMethod, error) {
	query := `
		SELECT id, facility_id, stripe_payment_method_id, brand, last4,
			   exp_month, exp_year, is_default, created_at
		FROM facility_payment_methods
		WHERE facility_id = $1
		ORDER BY is_default DESC, created_at DESC
	`

	rows, err := r.db.Query(query, facilityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	methods := []models.PaymentMethod{}
	for rows.Next() {
		var m models.PaymentMethod
		var brand, last4 sql.NullString
		var expMonth, expYear sql.NullInt64

		err := rows.Scan(
			&m.ID, &m.FacilityID, &m.StripePaymentMethodID, &brand, &last4,
			&expMonth, &expYear, &m.IsDefault, &m.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if brand.Valid {
			m.Brand = &brand.String
		}
		if last4.Valid {
			m.Last4 = &last4.String
		}
		if expMonth.Valid {
			v := int(expMonth.Int64)
			m.ExpMonth = &v
		}
		if expYear.Valid {
			v := int(expYear.Int64)
			m.ExpYear = &v
		}

		methods = append(methods, m)
	}

	return methods, rows.Err()
}

// GetByID retrieves a payment method scoped to a facility
func (r *PaymentMethodRepository) GetByID(facilityID, methodID string) (*models.PaymentMethod, error) {
	query := `
		SELECT id, facility_id, stripe_payment_method_id, brand, last4,
			   exp_month, exp_year, is_default, created_at
		FROM facility_payment_methods
		WHERE id = $1 AND facility_id = $2
	`

	m := &models.PaymentMethod{}
	var brand, last4 sql.NullString
	var expMonth, expYear sql.NullInt64

	err := r.db.QueryRow(query, methodID, facilityID).Scan(
		&m.ID, &m.FacilityID, &m.StripePaymentMethodID, &brand, &last4,
		&expMonth, &expYear, &m.IsDefault, &m.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("payment method not found")
		}
		return nil, fmt.Errorf("failed to fetch payment method: %w", err)
	}

	if brand.Valid {
		m.Brand = &brand.String
	}
	if last4.Valid {
		m.Last4 = &last4.String
	}
	if expMonth.Valid {
		v := int(expMonth.Int64)
		m.ExpMonth = &v
	}
	if expYear.Valid {
		v := int(expYear.Int64)
		m.ExpYear = &v
	}

	return m, nil
}

// Add stores a new payment method. When setDefault is true, or the
// facility has no methods yet, the new card becomes the default; any
// previous default is cleared in the same transaction.
func (r *PaymentMethodRepository) Add(method *models.PaymentMethod, setDefault bool) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if method.ID == "" {
		method.ID = uuid.New().String()
	}

	var count int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM facility_payment_methods WHERE facility_id = $1`,
		method.FacilityID,
	).Scan(&count); err != nil {
		return fmt.Errorf("failed to count payment methods: %w", err)
	}

	method.IsDefault = setDefault || count == 0

	if method.IsDefault {
		_, err = tx.Exec(
			`UPDATE facility_payment_methods SET is_default = FALSE WHERE facility_id = $1 AND is_default`,
			method.FacilityID,
		)
		if err != nil {
			return fmt.Errorf("failed to clear previous default: %w", err)
		}
	}

	err = tx.QueryRow(`
		INSERT INTO facility_payment_methods (
			id, facility_id, stripe_payment_method_id, brand, last4,
			exp_month, exp_year, is_default
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`,
		method.ID, method.FacilityID, method.StripePaymentMethodID,
		method.Brand, method.Last4, method.ExpMonth, method.ExpYear,
		method.IsDefault,
	).Scan(&method.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment method: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment method: %w", err)
	}

	return nil
}

// SetDefault makes the given method the facility's default, clearing the
// previous default in the same transaction
func (r *PaymentMethodRepository) SetDefault(facilityID, methodID string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`UPDATE facility_payment_methods SET is_default = FALSE WHERE facility_id = $1 AND is_default`,
		facilityID,
	)
	if err != nil {
		return fmt.Errorf("failed to clear previous default: %w", err)
	}

	result, err := tx.Exec(
		`UPDATE facility_payment_methods SET is_default = TRUE WHERE id = $1 AND facility_id = $2`,
		methodID, facilityID,
	)
	if err != nil {
		return fmt.Errorf("failed to set default: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("payment method not found")
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit default change: %w", err)
	}

	return nil
}

// Remove deletes a stored payment method
func (r *PaymentMethodRepository) Remove(facilityID, methodID string) error {
	result, err := r.db.Exec(
		`DELETE FROM facility_payment_methods WHERE id = $1 AND facility_id = $2`,
		methodID, facilityID,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("payment method not found")
	}

	return nil
}
