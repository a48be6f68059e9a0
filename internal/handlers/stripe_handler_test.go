package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
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

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/services"
	"github.com/careride/facility-backend/pkg/stripe"
)

const webhookTestSecret = "whsec_test"

func newStripeHandler(t *testing.T) (*StripeHandler, sqlmock.Sqlmock) {
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
	stripeClient := stripe.NewClient(stripe.Config{WebhookSecret: webhookTestSecret})

	return NewStripeHandler(billingService, paymentService, facilityRepo, stripeClient, logger), mock
}

func signWebhookPayload(secret string, payload []byte) string {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postWebhook(router *gin.Engine, payload, sigHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if sigHeader != "" {
		req.Header.Set("Stripe-Signature", sigHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestWebhook(t *testing.T) {
	gin.SetMode(gin.TestMode)

	invoiceColumns := []string{
		"id", "facility_id", "month", "total_amount", "status", "amount_paid",
		"paid_at", "payment_method", "payment_reference", "created_at", "updated_at",
	}

	succeededPayload := `{
		"id": "evt_1",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_1",
			"amount": 4550,
			"metadata": {"facility_id": "fac-1", "month": "2025-06"}
		}}
	}`

	newRouter := func(handler *StripeHandler) *gin.Engine {
		router := gin.New()
		router.POST("/stripe/webhook", handler.Webhook)
		return router
	}

	t.Run("Settles the invoice on payment_intent.succeeded", func(t *testing.T) {
		handler, mock := newStripeHandler(t)

		now := time.Now()
		invoiceID := uuid.New().String()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO facility_invoices`).
			WithArgs(sqlmock.AnyArg(), "fac-1", "2025-06", 45.50, sqlmock.AnyArg(), "card", "pi_1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(invoiceID))
		mock.ExpectQuery(`INSERT INTO facility_invoice_payments`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
		mock.ExpectCommit()
		mock.ExpectQuery(`SELECT id, facility_id, month`).
			WithArgs("fac-1", "2025-06").
			WillReturnRows(sqlmock.NewRows(invoiceColumns).
				AddRow(invoiceID, "fac-1", "2025-06", 45.50, "paid", 45.50, now, "card", "pi_1", now, now))
		mock.ExpectExec(`INSERT INTO payment_audits`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := postWebhook(newRouter(handler), succeededPayload,
			signWebhookPayload(webhookTestSecret, []byte(succeededPayload)))

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"received":true`)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Bad signature leaves no trace", func(t *testing.T) {
		handler, mock := newStripeHandler(t)

		w := postWebhook(newRouter(handler), succeededPayload,
			signWebhookPayload("whsec_other", []byte(succeededPayload)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_signature")
		// No expectations were registered: any database write would fail the test.
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing signature header", func(t *testing.T) {
		handler, mock := newStripeHandler(t)

		w := postWebhook(newRouter(handler), succeededPayload, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Unrelated events are acknowledged and ignored", func(t *testing.T) {
		handler, mock := newStripeHandler(t)

		payload := `{"id":"evt_2","type":"customer.created","data":{"object":{"id":"cus_1"}}}`
		w := postWebhook(newRouter(handler), payload,
			signWebhookPayload(webhookTestSecret, []byte(payload)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"received":true`)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing metadata is acknowledged without settling", func(t *testing.T) {
		handler, mock := newStripeHandler(t)

		payload := `{"id":"evt_3","type":"payment_intent.succeeded","data":{"object":{"id":"pi_2","amount":1000,"metadata":{}}}}`
		w := postWebhook(newRouter(handler), payload,
			signWebhookPayload(webhookTestSecret, []byte(payload)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
