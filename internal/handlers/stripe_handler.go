package handlers

import (
	"encoding/json"
	"io"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/middleware"
	"github.com/careride/facility-backend/internal/models"
	"github.com/careride/facility-backend/internal/services"
	"github.com/careride/facility-backend/pkg/stripe"
	"github.com/careride/facility-backend/pkg/validator"
)

// StripeHandler handles payment processor HTTP requests
type StripeHandler struct {
	billingService *services.BillingService
	paymentService *services.PaymentService
	facilityRepo   *database.FacilityRepository
	stripeClient   *stripe.Client
	monthValidator *validator.MonthValidator
	logger         *logrus.Logger
}

// NewStripeHandler creates a new StripeHandler
func NewStripeHandler(
	billingService *services.BillingService,
	paymentService *services.PaymentService,
	facilityRepo *database.FacilityRepository,
	stripeClient *stripe.Client,
	logger *logrus.Logger,
) *StripeHandler {
	return &StripeHandler{
		billingService: billingService,
		paymentService: paymentService,
		facilityRepo:   facilityRepo,
		stripeClient:   stripeClient,
		monthValidator: validator.NewMonthValidator(),
		logger:         logger,
	}
}

// ensureStripeCustomer returns the facility's processor customer ID,
// creating the customer on first use
func ensureStripeCustomer(facilityRepo *database.FacilityRepository, stripeClient *stripe.Client, facilityID string) (string, error) {
	facility, err := facilityRepo.GetByID(facilityID)
	if err != nil {
		return "", err
	}

	if facility.StripeCustomerID != nil && *facility.StripeCustomerID != "" {
		return *facility.StripeCustomerID, nil
	}

	email := ""
	if facility.BillingEmail != nil {
		email = *facility.BillingEmail
	}

	customer, err := stripeClient.CreateCustomer(facility.Name, email, facility.ID)
	if err != nil {
		return "", err
	}

	if err := facilityRepo.SetStripeCustomerID(facility.ID, customer.ID); err != nil {
		return "", err
	}

	return customer.ID, nil
}

// PaymentIntentRequest represents the request to start a card payment for
// a monthly invoice
type PaymentIntentRequest struct {
	Month string `json:"month" binding:"required"`
}

// CreatePaymentIntent creates a payment intent for the month's outstanding
// balance
// POST /api/v1/stripe/payment-intent
func (h *StripeHandler) CreatePaymentIntent(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	if _, err := h.monthValidator.Validate(req.Month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_month",
			"message": err.Error(),
		})
		return
	}

	amountCents, err := h.outstandingCents(userCtx.FacilityID, req.Month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "billing_failed",
			"message": "Failed to compute the month's balance",
		})
		return
	}
	if amountCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "nothing_due",
			"message": "No outstanding balance for " + req.Month,
		})
		return
	}

	customerID, err := ensureStripeCustomer(h.facilityRepo, h.stripeClient, userCtx.FacilityID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve processor customer")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "stripe_error",
			"message": "Failed to reach the payment processor",
		})
		return
	}

	intent, err := h.stripeClient.CreatePaymentIntent(amountCents, customerID, userCtx.FacilityID, req.Month)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create payment intent")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "stripe_error",
			"message": "Failed to create payment intent",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_secret": intent.ClientSecret,
		"amount":        intent.Amount,
		"currency":      intent.Currency,
	})
}

// CreateSetupIntent creates a setup intent so the facility can save a card
// POST /api/v1/stripe/setup-intent
func (h *StripeHandler) CreateSetupIntent(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	customerID, err := ensureStripeCustomer(h.facilityRepo, h.stripeClient, userCtx.FacilityID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve processor customer")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "stripe_error",
			"message": "Failed to reach the payment processor",
		})
		return
	}

	intent, err := h.stripeClient.CreateSetupIntent(customerID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create setup intent")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "stripe_error",
			"message": "Failed to create setup intent",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"client_secret": intent.ClientSecret,
	})
}

// CheckoutSessionRequest represents the request for a hosted checkout page
type CheckoutSessionRequest struct {
	Month      string `json:"month" binding:"required"`
	SuccessURL string `json:"success_url" binding:"required"`
	CancelURL  string `json:"cancel_url" binding:"required"`
}

// CreateCheckoutSession creates a hosted checkout session for the month
// POST /api/v1/stripe/checkout-session
func (h *StripeHandler) CreateCheckoutSession(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	if _, err := h.monthValidator.Validate(req.Month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_month",
			"message": err.Error(),
		})
		return
	}

	amountCents, err := h.outstandingCents(userCtx.FacilityID, req.Month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "billing_failed",
			"message": "Failed to compute the month's balance",
		})
		return
	}
	if amountCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "nothing_due",
			"message": "No outstanding balance for " + req.Month,
		})
		return
	}

	customerID, err := ensureStripeCustomer(h.facilityRepo, h.stripeClient, userCtx.FacilityID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve processor customer")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "stripe_error",
			"message": "Failed to reach the payment processor",
		})
		return
	}

	session, err := h.stripeClient.CreateCheckoutSession(
		amountCents, customerID, userCtx.FacilityID, req.Month,
		"Transportation services for "+req.Month,
		req.SuccessURL, req.CancelURL,
	)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create checkout session")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "stripe_error",
			"message": "Failed to create checkout session",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": session.ID,
		"url":        session.URL,
	})
}

// EphemeralKeyRequest carries the processor API version the client SDK
// was built against
type EphemeralKeyRequest struct {
	APIVersion string `json:"api_version" binding:"required"`
}

// CreateEphemeralKey issues a short-lived key for client-side SDK access
// POST /api/v1/stripe/ephemeral-key
func (h *StripeHandler) CreateEphemeralKey(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req EphemeralKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	customerID, err := ensureStripeCustomer(h.facilityRepo, h.stripeClient, userCtx.FacilityID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve processor customer")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "stripe_error",
			"message": "Failed to reach the payment processor",
		})
		return
	}

	key, err := h.stripeClient.CreateEphemeralKey(customerID, req.APIVersion)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create ephemeral key")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "stripe_error",
			"message": "Failed to create ephemeral key",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ephemeral_key": key.Secret,
		"customer_id":   customerID,
	})
}

// webhookPaymentIntent is the slice of a payment_intent object the
// webhook needs
type webhookPaymentIntent struct {
	ID       string            `json:"id"`
	Amount   int64             `json:"amount"`
	Metadata map[string]string `json:"metadata"`
}

// Webhook receives signed processor events and settles invoices on
// payment_intent.succeeded
// POST /api/v1/stripe/webhook
func (h *StripeHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "read_failed",
			"message": "Failed to read webhook payload",
		})
		return
	}

	event, err := h.stripeClient.VerifyWebhookSignature(payload, c.GetHeader("Stripe-Signature"), stripe.DefaultWebhookTolerance)
	if err != nil {
		h.logger.WithError(err).Warn("Webhook signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_signature",
			"message": "Webhook signature verification failed",
		})
		return
	}

	if event.Type != "payment_intent.succeeded" {
		// Acknowledged but ignored; the processor stops retrying.
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var intent webhookPaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_payload",
			"message": "Failed to parse payment intent",
		})
		return
	}

	facilityID := intent.Metadata["facility_id"]
	month := intent.Metadata["month"]
	if facilityID == "" || month == "" {
		h.logger.WithField("event_id", event.ID).Warn("Payment intent missing facility metadata")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	reference := intent.ID
	req := &models.RecordPaymentRequest{
		Month:     month,
		Amount:    float64(intent.Amount) / 100,
		Method:    models.PaymentMethodCard,
		Reference: &reference,
	}

	actor := services.PaymentActor{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}

	if _, err := h.paymentService.RecordPayment(c.Request.Context(), facilityID, req, actor); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"facility_id": facilityID,
			"month":       month,
		}).Error("Failed to settle invoice from webhook")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "settle_failed",
			"message": "Failed to record webhook payment",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// outstandingCents computes the month's unpaid balance in cents
func (h *StripeHandler) outstandingCents(facilityID, month string) (int64, error) {
	billing, err := h.billingService.AggregateMonth(facilityID, month)
	if err != nil {
		return 0, err
	}

	outstanding := billing.BillableTotal
	if billing.Invoice != nil {
		outstanding -= billing.Invoice.AmountPaid
	}

	return int64(math.Round(outstanding * 100)), nil
}
