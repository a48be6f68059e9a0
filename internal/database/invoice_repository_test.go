package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careride/facility-backend/internal/models"
)

func newInvoiceRepo(t *testing.T) (*InvoiceRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewInvoiceRepository(sqlxDB), mock, func() { db.Close() }
}

var invoiceColumns = []string{
	"id", "facility_id", "month", "total_amount", "status", "amount_paid",
	"paid_at", "payment_method", "payment_reference", "created_at", "updated_at",
}

func TestGetInvoiceByMonth(t *testing.T) {
	repo, mock, closeDB := newInvoiceRepo(t)
	defer closeDB()

	t.Run("Existing invoice", func(t *testing.T) {
		now := time.Now()

		mock.ExpectQuery(`SELECT id, facility_id, month`).
			WithArgs("fac-1", "2025-06").
			WillReturnRows(sqlmock.NewRows(invoiceColumns).AddRow(
				"inv-1", "fac-1", "2025-06", 45.50, "paid", 45.50,
				now, "check", nil, now, now,
			))

		invoice, err := repo.GetByMonth("fac-1", "2025-06")
		require.NoError(t, err)
		require.NotNil(t, invoice)
		assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)
		assert.InDelta(t, 45.50, invoice.AmountPaid, 0.001)
		require.NotNil(t, invoice.PaymentMethod)
		assert.Equal(t, "check", *invoice.PaymentMethod)
		assert.Nil(t, invoice.PaymentReference)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Absent invoice means unpaid, not an error", func(t *testing.T) {
		mock.ExpectQuery(`SELECT id, facility_id, month`).
			WithArgs("fac-1", "2025-01").
			WillReturnError(sql.ErrNoRows)

		invoice, err := repo.GetByMonth("fac-1", "2025-01")
		require.NoError(t, err)
		assert.Nil(t, invoice)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRecordPayment(t *testing.T) {
	repo, mock, closeDB := newInvoiceRepo(t)
	defer closeDB()

	t.Run("Settles invoice and records payment in one transaction", func(t *testing.T) {
		now := time.Now()
		ref := "check #1042"

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO facility_invoices`).
			WithArgs(sqlmock.AnyArg(), "fac-1", "2025-06", 45.50, sqlmock.AnyArg(), "check", &ref).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("inv-1"))
		mock.ExpectQuery(`INSERT INTO facility_invoice_payments`).
			WithArgs(sqlmock.AnyArg(), "inv-1", 45.50, models.PaymentMethodCheck, &ref, nil, nil).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		// Reload after commit.
		mock.ExpectQuery(`SELECT id, facility_id, month`).
			WithArgs("fac-1", "2025-06").
			WillReturnRows(sqlmock.NewRows(invoiceColumns).AddRow(
				"inv-1", "fac-1", "2025-06", 45.50, "paid", 45.50,
				now, "check", ref, now, now,
			))

		payment := &models.InvoicePayment{
			Amount:    45.50,
			Method:    models.PaymentMethodCheck,
			Reference: &ref,
		}

		invoice, err := repo.RecordPayment("fac-1", "2025-06", payment)
		require.NoError(t, err)
		require.NotNil(t, invoice)
		assert.Equal(t, models.InvoiceStatusPaid, invoice.Status)
		assert.Equal(t, "inv-1", payment.InvoiceID)
		assert.NotEmpty(t, payment.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Payment insert failure rolls everything back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO facility_invoices`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("inv-1"))
		mock.ExpectQuery(`INSERT INTO facility_invoice_payments`).
			WillReturnError(fmt.Errorf("constraint violation"))
		mock.ExpectRollback()

		payment := &models.InvoicePayment{Amount: 10, Method: models.PaymentMethodCheck}

		invoice, err := repo.RecordPayment("fac-1", "2025-06", payment)
		assert.Error(t, err)
		assert.Nil(t, invoice)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkPaidAndUnpaid(t *testing.T) {
	repo, mock, closeDB := newInvoiceRepo(t)
	defer closeDB()

	t.Run("MarkPaid upserts", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO facility_invoices`).
			WithArgs(sqlmock.AnyArg(), "fac-1", "2025-06").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.MarkPaid("fac-1", "2025-06"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("MarkUnpaid requires an existing row", func(t *testing.T) {
		mock.ExpectExec(`UPDATE facility_invoices`).
			WithArgs("fac-1", "2025-06").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.MarkUnpaid("fac-1", "2025-06")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestResetInvoice(t *testing.T) {
	repo, mock, closeDB := newInvoiceRepo(t)
	defer closeDB()

	t.Run("Deletes payments and clears the invoice atomically", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM facility_invoice_payments`).
			WithArgs("fac-1", "2025-06").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`UPDATE facility_invoices`).
			WithArgs("fac-1", "2025-06").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Reset("fac-1", "2025-06"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Failure mid-transaction rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM facility_invoice_payments`).
			WithArgs("fac-1", "2025-06").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE facility_invoices`).
			WithArgs("fac-1", "2025-06").
			WillReturnError(fmt.Errorf("disk full"))
		mock.ExpectRollback()

		assert.Error(t, repo.Reset("fac-1", "2025-06"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
