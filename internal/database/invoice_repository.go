package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/careride/facility-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// InvoiceRepository handles the facility_invoices and
// facility_invoice_payments tables. One invoice row per facility+month
// carries both the billable aggregate and the payment state, and every
// multi-table write runs inside a single transaction.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// GetByMonth retrieves the invoice for a facility+month.
// Returns (nil, nil) when no invoice exists yet: an absent row means
// unpaid with nothing recorded, not an error.
func (r *InvoiceRepository) GetByMonth(facilityID, month string) (*models.Invoice, error) {
	query := `
		SELECT id, facility_id, month, total_amount, status, amount_paid,
			   paid_at, payment_method, payment_reference, created_at, updated_at
		FROM facility_invoices
		WHERE facility_id = $1 AND month = $2
	`

	invoice := &models.Invoice{}
	var paidAt sql.NullTime
	var paymentMethod, paymentReference sql.NullString

	err := r.db.QueryRow(query, facilityID, month).Scan(
		&invoice.ID, &invoice.FacilityID, &invoice.Month, &invoice.TotalAmount,
		&invoice.Status, &invoice.AmountPaid, &paidAt, &paymentMethod,
		&paymentReference, &invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}

	if paidAt.Valid {
		invoice.PaidAt = &paidAt.Time
	}
	if paymentMethod.Valid {
		invoice.PaymentMethod = &paymentMethod.String
	}
	if paymentReference.Valid {
		invoice.PaymentReference = &paymentReference.String
	}

	return invoice, nil
}

// UpsertTotal creates or refreshes the invoice row's billable aggregate
// without touching the payment state
func (r *InvoiceRepository) UpsertTotal(facilityID, month string, total float64) error {
	query := `
		INSERT INTO facility_invoices (id, facility_id, month, total_amount, status, amount_paid)
		VALUES ($1, $2, $3, $4, 'unpaid', 0)
		ON CONFLICT (facility_id, month)
		DO UPDATE SET total_amount = EXCLUDED.total_amount, updated_at = NOW()
	`

	_, err := r.db.Exec(query, uuid.New().String(), facilityID, month, total)
	if err != nil {
		return fmt.Errorf("failed to upsert invoice total: %w", err)
	}

	return nil
}

// RecordPayment inserts a payment row and settles the invoice row in one
// transaction. The original system wrote these as independent round trips
// and drifted on partial failure.
func (r *InvoiceRepository) RecordPayment(facilityID, month string, payment *models.InvoicePayment) (*models.Invoice, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}

	now := time.Now()

	// Ensure the invoice row exists, then settle it.
	invoiceQuery := `
		INSERT INTO facility_invoices (
			id, facility_id, month, total_amount, status, amount_paid,
			paid_at, payment_method, payment_reference
		) VALUES ($1, $2, $3, $4, 'paid', $4, $5, $6, $7)
		ON CONFLICT (facility_id, month)
		DO UPDATE SET
			status = 'paid',
			amount_paid = facility_invoices.amount_paid + EXCLUDED.amount_paid,
			paid_at = EXCLUDED.paid_at,
			payment_method = EXCLUDED.payment_method,
			payment_reference = EXCLUDED.payment_reference,
			updated_at = NOW()
		RETURNING id
	`

	var invoiceID string
	err = tx.QueryRow(
		invoiceQuery,
		uuid.New().String(), facilityID, month, payment.Amount,
		now, string(payment.Method), payment.Reference,
	).Scan(&invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to settle invoice: %w", err)
	}

	paymentQuery := `
		INSERT INTO facility_invoice_payments (
			id, invoice_id, amount, method, reference, notes, recorded_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	payment.InvoiceID = invoiceID
	err = tx.QueryRow(
		paymentQuery,
		payment.ID, invoiceID, payment.Amount, payment.Method,
		payment.Reference, payment.Notes, payment.RecordedBy,
	).Scan(&payment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}

	return r.GetByMonth(facilityID, month)
}

// MarkPaid manually marks a month's invoice as paid
func (r *InvoiceRepository) MarkPaid(facilityID, month string) error {
	query := `
		INSERT INTO facility_invoices (id, facility_id, month, total_amount, status, amount_paid, paid_at)
		VALUES ($1, $2, $3, 0, 'paid', 0, NOW())
		ON CONFLICT (facility_id, month)
		DO UPDATE SET status = 'paid', paid_at = NOW(), updated_at = NOW()
	`

	_, err := r.db.Exec(query, uuid.New().String(), facilityID, month)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}

	return nil
}

// MarkUnpaid manually reverts a month's invoice to unpaid
func (r *InvoiceRepository) MarkUnpaid(facilityID, month string) error {
	query := `
		UPDATE facility_invoices
		SET status = 'unpaid', paid_at = NULL, updated_at = NOW()
		WHERE facility_id = $1 AND month = $2
	`

	result, err := r.db.Exec(query, facilityID, month)
	if err != nil {
		return fmt.Errorf("failed to mark invoice unpaid: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return fmt.Errorf("invoice not found")
	}

	return nil
}

// Reset wipes the payment state for a facility+month in one transaction:
// payment rows are deleted and the invoice row is cleared back to unpaid.
// No residual state survives a failure.
func (r *InvoiceRepository) Reset(facilityID, month string) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		DELETE FROM facility_invoice_payments
		WHERE invoice_id IN (
			SELECT id FROM facility_invoices WHERE facility_id = $1 AND month = $2
		)
	`, facilityID, month)
	if err != nil {
		return fmt.Errorf("failed to delete invoice payments: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE facility_invoices
		SET status = 'unpaid', amount_paid = 0, paid_at = NULL,
			payment_method = NULL, payment_reference = NULL, updated_at = NOW()
		WHERE facility_id = $1 AND month = $2
	`, facilityID, month)
	if err != nil {
		return fmt.Errorf("failed to reset invoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	return nil
}

// ListPayments retrieves the recorded payments for a facility+month
func (r *InvoiceRepository) ListPayments(facilityID, month string) ([]models.InvoicePayment, error) {
	query := `
		SELECT p.id, p.invoice_id, p.amount, p.method, p.reference,
			   p.notes, p.recorded_by, p.created_at
		FROM facility_invoice_payments p
		JOIN facility_invoices i ON i.id = p.invoice_id
		WHERE i.facility_id = $1 AND i.month = $2
		ORDER BY p.created_at
	`

	rows, err := r.db.Query(query, facilityID, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []models.InvoicePayment{}
	for rows.Next() {
		var p models.InvoicePayment
		var reference, notes, recordedBy sql.NullString

		err := rows.Scan(
			&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &reference,
			&notes, &recordedBy, &p.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if reference.Valid {
			p.Reference = &reference.String
		}
		if notes.Valid {
			p.Notes = &notes.String
		}
		if recordedBy.Valid {
			p.RecordedBy = &recordedBy.String
		}

		payments = append(payments, p)
	}

	return payments, rows.Err()
}
