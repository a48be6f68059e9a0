package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careride/facility-backend/internal/models"
)

func newPaymentMethodRepo(t *testing.T) (*PaymentMethodRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewPaymentMethodRepository(sqlxDB), mock, func() { db.Close() }
}

func TestAddPaymentMethod(t *testing.T) {
	repo, mock, closeDB := newPaymentMethodRepo(t)
	defer closeDB()

	t.Run("First card becomes the default", func(t *testing.T) {
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT`).
			WithArgs("fac-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(`UPDATE facility_payment_methods SET is_default = FALSE`).
			WithArgs("fac-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO facility_payment_methods`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		method := &models.PaymentMethod{
			FacilityID:            "fac-1",
			StripePaymentMethodID: "pm_123",
		}

		err := repo.Add(method, false)
		require.NoError(t, err)
		assert.True(t, method.IsDefault)
		assert.NotEmpty(t, method.ID)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Later card stays non-default unless requested", func(t *testing.T) {
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT`).
			WithArgs("fac-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery(`INSERT INTO facility_payment_methods`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		method := &models.PaymentMethod{
			FacilityID:            "fac-1",
			StripePaymentMethodID: "pm_456",
		}

		err := repo.Add(method, false)
		require.NoError(t, err)
		assert.False(t, method.IsDefault)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Explicit default clears the previous one", func(t *testing.T) {
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT COUNT`).
			WithArgs("fac-1").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectExec(`UPDATE facility_payment_methods SET is_default = FALSE`).
			WithArgs("fac-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO facility_payment_methods`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()

		method := &models.PaymentMethod{
			FacilityID:            "fac-1",
			StripePaymentMethodID: "pm_789",
		}

		err := repo.Add(method, true)
		require.NoError(t, err)
		assert.True(t, method.IsDefault)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSetDefaultPaymentMethod(t *testing.T) {
	repo, mock, closeDB := newPaymentMethodRepo(t)
	defer closeDB()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE facility_payment_methods SET is_default = FALSE`).
			WithArgs("fac-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE facility_payment_methods SET is_default = TRUE`).
			WithArgs("pm-row-2", "fac-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.SetDefault("fac-1", "pm-row-2"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unknown method rolls back", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE facility_payment_methods SET is_default = FALSE`).
			WithArgs("fac-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE facility_payment_methods SET is_default = TRUE`).
			WithArgs("missing", "fac-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.SetDefault("fac-1", "missing")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemovePaymentMethod(t *testing.T) {
	repo, mock, closeDB := newPaymentMethodRepo(t)
	defer closeDB()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM facility_payment_methods`).
			WithArgs("pm-row-1", "fac-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Remove("fac-1", "pm-row-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM facility_payment_methods`).
			WithArgs("missing", "fac-1").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Remove("fac-1", "missing")
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
