package handlers

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/middleware"
	"github.com/careride/facility-backend/internal/services"
	"github.com/careride/facility-backend/pkg/mailer"
)

type noopMailer struct{}

func (noopMailer) Send(msg mailer.Message) error { return nil }

// injectUser stands in for AuthMiddleware in handler tests
func injectUser(userCtx middleware.UserContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, userCtx)
		c.Next()
	}
}

func testUser() middleware.UserContext {
	return middleware.UserContext{
		UserID:     uuid.New(),
		FacilityID: "fac-1",
		Email:      "staff@sunrise.test",
		Roles:      []string{"facility_staff"},
	}
}

func newBillingHandler(t *testing.T, resetTokenHash string) (*BillingHandler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	pg := &database.PostgresDB{DB: sqlxDB}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tripRepo := database.NewTripRepository(pg)
	facilityRepo := database.NewFacilityRepository(pg)
	invoiceRepo := database.NewInvoiceRepository(sqlxDB)
	auditRepo := database.NewPaymentAuditRepository(sqlxDB, logger)

	billingService := services.NewBillingService(tripRepo, invoiceRepo, services.NewNameResolver(), logger)
	paymentService := services.NewPaymentService(invoiceRepo, auditRepo, logger)
	notifyService := services.NewNotifyService(noopMailer{}, "dispatch@careride.test", logger)

	return NewBillingHandler(billingService, paymentService, notifyService, facilityRepo, resetTokenHash), mock
}

func TestGetTripsBilling(t *testing.T) {
	gin.SetMode(gin.TestMode)

	joinedColumns := []string{
		"id", "facility_id", "rider_kind", "rider_id",
		"pickup_address", "destination_address", "pickup_time",
		"status", "price", "distance_miles", "wheelchair", "notes",
		"cancelled_at", "cancellation_reason", "created_at", "updated_at",
		"first_name", "last_name", "managed_name",
	}

	t.Run("Returns monthly totals", func(t *testing.T) {
		handler, mock := newBillingHandler(t, "")

		router := gin.New()
		router.GET("/trips-billing", injectUser(testUser()), handler.GetTripsBilling)

		now := time.Now()
		pickup := time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)
		rows := sqlmock.NewRows(joinedColumns).
			AddRow("trip-1", "fac-1", "account", "c7d9e2a1-0000-0000-0000-000000000001",
				"12 Oak St", "Dialysis Center", pickup,
				"completed", 25.50, 4.2, false, nil,
				nil, nil, now, now,
				"Mary", "Johnson", nil).
			AddRow("trip-2", "fac-1", "managed", "mc-1",
				"44 Elm Ave", "Cardiology Clinic", pickup.Add(time.Hour),
				"pending", nil, nil, false, nil,
				nil, nil, now, now,
				nil, nil, "Robert Lee")

		mock.ExpectQuery(`SELECT t.id, t.facility_id`).
			WithArgs("fac-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(rows)
		mock.ExpectQuery(`SELECT id, facility_id, month`).
			WithArgs("fac-1", "2025-06").
			WillReturnError(sql.ErrNoRows)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/trips-billing?month=2025-06", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "2025-06", body["month"])
		assert.Equal(t, float64(2), body["trip_count"])
		assert.Equal(t, float64(1), body["pending_count"])
		assert.InDelta(t, 25.50, body["billable_total"], 0.001)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Invalid month", func(t *testing.T) {
		handler, _ := newBillingHandler(t, "")

		router := gin.New()
		router.GET("/trips-billing", injectUser(testUser()), handler.GetTripsBilling)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/trips-billing?month=June-2025", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_month")
	})

	t.Run("Missing user context", func(t *testing.T) {
		handler, _ := newBillingHandler(t, "")

		router := gin.New()
		router.GET("/trips-billing", handler.GetTripsBilling)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/trips-billing?month=2025-06", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRecordPaymentEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	invoiceColumns := []string{
		"id", "facility_id", "month", "total_amount", "status", "amount_paid",
		"paid_at", "payment_method", "payment_reference", "created_at", "updated_at",
	}

	t.Run("Records a check payment", func(t *testing.T) {
		handler, mock := newBillingHandler(t, "")

		router := gin.New()
		router.POST("/billing/record-payment", injectUser(testUser()), handler.RecordPayment)

		now := time.Now()
		invoiceID := uuid.New().String()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO facility_invoices`).
			WithArgs(sqlmock.AnyArg(), "fac-1", "2025-06", 45.50, sqlmock.AnyArg(), "check", nil).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(invoiceID))
		mock.ExpectQuery(`INSERT INTO facility_invoice_payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()
		mock.ExpectQuery(`SELECT id, facility_id, month`).
			WithArgs("fac-1", "2025-06").
			WillReturnRows(sqlmock.NewRows(invoiceColumns).
				AddRow(invoiceID, "fac-1", "2025-06", 45.50, "paid", 45.50, now, "check", nil, now, now))
		mock.ExpectExec(`INSERT INTO payment_audits`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		// Facility lookup for the receipt email; no billing inbox configured.
		mock.ExpectQuery(`SELECT id, name`).
			WithArgs("fac-1").
			WillReturnError(sql.ErrNoRows)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/billing/record-payment",
			strings.NewReader(`{"month":"2025-06","amount":45.50,"method":"check"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Payment recorded")
		assert.Contains(t, w.Body.String(), `"status":"paid"`)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Rejects unknown method", func(t *testing.T) {
		handler, _ := newBillingHandler(t, "")

		router := gin.New()
		router.POST("/billing/record-payment", injectUser(testUser()), handler.RecordPayment)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/billing/record-payment",
			strings.NewReader(`{"month":"2025-06","amount":45.50,"method":"crypto"}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "record_payment_failed")
	})
}

func TestResetPaymentStatusEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("super-secret-reset"), bcrypt.MinCost)
	require.NoError(t, err)

	newRouter := func(handler *BillingHandler) *gin.Engine {
		router := gin.New()
		router.POST("/billing/reset-payment-status", injectUser(testUser()), handler.ResetPaymentStatus)
		return router
	}

	post := func(router *gin.Engine, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/billing/reset-payment-status", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("Correct token resets the month", func(t *testing.T) {
		handler, mock := newBillingHandler(t, string(hash))

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM facility_invoice_payments`).
			WithArgs("fac-1", "2025-06").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`UPDATE facility_invoices`).
			WithArgs("fac-1", "2025-06").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		mock.ExpectExec(`INSERT INTO payment_audits`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := post(newRouter(handler), `{"month":"2025-06","admin_token":"super-secret-reset"}`)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Payment state reset")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Wrong token", func(t *testing.T) {
		handler, _ := newBillingHandler(t, string(hash))

		w := post(newRouter(handler), `{"month":"2025-06","admin_token":"guess"}`)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_admin_token")
	})

	t.Run("Reset disabled when no hash configured", func(t *testing.T) {
		handler, _ := newBillingHandler(t, "")

		w := post(newRouter(handler), `{"month":"2025-06","admin_token":"super-secret-reset"}`)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "reset_disabled")
	})
}

func TestMarkPaidEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)

	invoiceColumns := []string{
		"id", "facility_id", "month", "total_amount", "status", "amount_paid",
		"paid_at", "payment_method", "payment_reference", "created_at", "updated_at",
	}

	handler, mock := newBillingHandler(t, "")

	router := gin.New()
	router.POST("/billing/mark-paid", injectUser(testUser()), handler.MarkPaid)

	now := time.Now()
	mock.ExpectExec(`INSERT INTO facility_invoices`).
		WithArgs(sqlmock.AnyArg(), "fac-1", "2025-06").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO payment_audits`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT id, facility_id, month`).
		WithArgs("fac-1", "2025-06").
		WillReturnRows(sqlmock.NewRows(invoiceColumns).
			AddRow(uuid.New().String(), "fac-1", "2025-06", 120.00, "paid", 0.0, now, nil, nil, now, now))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/billing/mark-paid",
		strings.NewReader(`{"month":"2025-06"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"paid"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
