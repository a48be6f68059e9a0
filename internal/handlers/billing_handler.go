package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/middleware"
	"github.com/careride/facility-backend/internal/models"
	"github.com/careride/facility-backend/internal/services"
	"github.com/careride/facility-backend/pkg/validator"
)

// BillingHandler handles monthly billing HTTP requests
type BillingHandler struct {
	billingService *services.BillingService
	paymentService *services.PaymentService
	notifyService  *services.NotifyService
	facilityRepo   *database.FacilityRepository
	monthValidator *validator.MonthValidator
	resetTokenHash string
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(
	billingService *services.BillingService,
	paymentService *services.PaymentService,
	notifyService *services.NotifyService,
	facilityRepo *database.FacilityRepository,
	resetTokenHash string,
) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		paymentService: paymentService,
		notifyService:  notifyService,
		facilityRepo:   facilityRepo,
		monthValidator: validator.NewMonthValidator(),
		resetTokenHash: resetTokenHash,
	}
}

// GetTripsBilling returns the monthly billing view for the facility
// GET /api/v1/facility/trips-billing?month=YYYY-MM
func (h *BillingHandler) GetTripsBilling(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	month := c.Query("month")
	if month == "" {
		month = h.monthValidator.Current()
	}

	if _, err := h.monthValidator.Validate(month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_month",
			"message": err.Error(),
		})
		return
	}

	billing, err := h.billingService.AggregateMonth(userCtx.FacilityID, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "billing_failed",
			"message": "Failed to load monthly billing",
		})
		return
	}

	c.JSON(http.StatusOK, billing)
}

// RecordPayment records a payment against the facility's monthly invoice
// POST /api/v1/facility/billing/record-payment
func (h *BillingHandler) RecordPayment(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req models.RecordPaymentRequest
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

	invoice, err := h.paymentService.RecordPayment(c.Request.Context(), userCtx.FacilityID, &req, h.actor(c))
	if err != nil {
		status := http.StatusBadRequest
		if !isValidationError(err) {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{
			"error":   "record_payment_failed",
			"message": err.Error(),
		})
		return
	}

	// Receipt failures never fail the payment.
	if facility, ferr := h.facilityRepo.GetByID(userCtx.FacilityID); ferr == nil && facility.BillingEmail != nil {
		_ = h.notifyService.SendPaymentReceipt(*facility.BillingEmail, facility.Name, req.Month, req.Amount)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment recorded",
		"invoice": invoice,
	})
}

// MarkPaid manually marks the facility's month paid
// POST /api/v1/facility/billing/mark-paid
func (h *BillingHandler) MarkPaid(c *gin.Context) {
	h.markStatus(c, true)
}

// MarkUnpaid manually reverts the facility's month to unpaid
// POST /api/v1/facility/billing/mark-unpaid
func (h *BillingHandler) MarkUnpaid(c *gin.Context) {
	h.markStatus(c, false)
}

func (h *BillingHandler) markStatus(c *gin.Context, paid bool) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req models.MarkPaidRequest
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

	var err error
	if paid {
		err = h.paymentService.MarkPaid(c.Request.Context(), userCtx.FacilityID, req.Month, h.actor(c))
	} else {
		err = h.paymentService.MarkUnpaid(c.Request.Context(), userCtx.FacilityID, req.Month, h.actor(c))
	}

	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "invoice_not_found",
				"message": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to update payment status",
		})
		return
	}

	invoice, err := h.paymentService.Status(userCtx.FacilityID, req.Month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "status_failed",
			"message": "Payment status updated but could not be reloaded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment status updated",
		"invoice": invoice,
	})
}

// ResetPaymentStatus wipes the month's payment state. Requires the
// out-of-band admin token; the server stores only its bcrypt hash.
// POST /api/v1/facility/billing/reset-payment-status
func (h *BillingHandler) ResetPaymentStatus(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req models.ResetPaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	if h.resetTokenHash == "" {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "reset_disabled",
			"message": "Payment status reset is not enabled on this server",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.resetTokenHash), []byte(req.AdminToken)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "invalid_admin_token",
			"message": "Admin token is incorrect",
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

	if err := h.paymentService.Reset(c.Request.Context(), userCtx.FacilityID, req.Month, h.actor(c)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "reset_failed",
			"message": "Failed to reset payment state",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment state reset",
		"month":   req.Month,
	})
}

// GetPaymentAudit returns the month's payment audit trail
// GET /api/v1/facility/billing/audit?month=YYYY-MM
func (h *BillingHandler) GetPaymentAudit(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	month := c.Query("month")
	if _, err := h.monthValidator.Validate(month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_month",
			"message": err.Error(),
		})
		return
	}

	entries, err := h.paymentService.AuditTrail(c.Request.Context(), userCtx.FacilityID, month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "audit_failed",
			"message": "Failed to load payment audit trail",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// actor builds the audit actor from the request
func (h *BillingHandler) actor(c *gin.Context) services.PaymentActor {
	actor := services.PaymentActor{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
	if userCtx, exists := middleware.GetUserContext(c); exists {
		id := userCtx.UserID
		actor.ProfileID = &id
	}
	return actor
}

// isValidationError distinguishes request errors from storage failures
func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "must be") ||
		strings.Contains(msg, "require") ||
		strings.Contains(msg, "cannot be")
}
