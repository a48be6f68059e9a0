package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/middleware"
	"github.com/careride/facility-backend/internal/models"
	"github.com/careride/facility-backend/pkg/stripe"
)

// PaymentMethodHandler handles stored card HTTP requests
type PaymentMethodHandler struct {
	paymentMethodRepo *database.PaymentMethodRepository
	facilityRepo      *database.FacilityRepository
	stripeClient      *stripe.Client
	logger            *logrus.Logger
}

// NewPaymentMethodHandler creates a new PaymentMethodHandler
func NewPaymentMethodHandler(
	paymentMethodRepo *database.PaymentMethodRepository,
	facilityRepo *database.FacilityRepository,
	stripeClient *stripe.Client,
	logger *logrus.Logger,
) *PaymentMethodHandler {
	return &PaymentMethodHandler{
		paymentMethodRepo: paymentMethodRepo,
		facilityRepo:      facilityRepo,
		stripeClient:      stripeClient,
		logger:            logger,
	}
}

// ListPaymentMethods lists the facility's stored cards
// GET /api/v1/facility/payment-methods
func (h *PaymentMethodHandler) ListPaymentMethods(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	methods, err := h.paymentMethodRepo.ListByFacility(userCtx.FacilityID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list payment methods")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to load payment methods",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_methods": methods,
		"count":           len(methods),
	})
}

// AddPaymentMethod attaches a processor card to the facility's customer and
// stores its summary. The first stored card becomes the default.
// POST /api/v1/facility/payment-methods
func (h *PaymentMethodHandler) AddPaymentMethod(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req models.AddPaymentMethodRequest
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

	attached, err := h.stripeClient.AttachPaymentMethod(req.StripePaymentMethodID, customerID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to attach payment method")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "stripe_error",
			"message": "Failed to attach card with the payment processor",
		})
		return
	}

	method := &models.PaymentMethod{
		FacilityID:            userCtx.FacilityID,
		StripePaymentMethodID: attached.ID,
	}
	if attached.Card != nil {
		brand := attached.Card.Brand
		last4 := attached.Card.Last4
		expMonth := attached.Card.ExpMonth
		expYear := attached.Card.ExpYear
		method.Brand = &brand
		method.Last4 = &last4
		method.ExpMonth = &expMonth
		method.ExpYear = &expYear
	}

	if err := h.paymentMethodRepo.Add(method, req.SetDefault); err != nil {
		h.logger.WithError(err).Error("Failed to store payment method")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "add_failed",
			"message": "Failed to store payment method",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":        "Payment method added",
		"payment_method": method,
	})
}

// SetDefaultPaymentMethod makes one stored card the facility default
// PUT /api/v1/facility/payment-methods/:id/default
func (h *PaymentMethodHandler) SetDefaultPaymentMethod(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	if err := h.paymentMethodRepo.SetDefault(userCtx.FacilityID, c.Param("id")); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "method_not_found",
				"message": "Payment method not found",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to set default payment method")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to set default payment method",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Default payment method updated",
	})
}

// RemovePaymentMethod detaches a card from the processor and deletes it
// DELETE /api/v1/facility/payment-methods/:id
func (h *PaymentMethodHandler) RemovePaymentMethod(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	method, err := h.paymentMethodRepo.GetByID(userCtx.FacilityID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "method_not_found",
			"message": "Payment method not found",
		})
		return
	}

	if err := h.stripeClient.DetachPaymentMethod(method.StripePaymentMethodID); err != nil {
		// Detach failure is logged but local removal proceeds; a card left
		// attached at the processor is harmless without a local row.
		h.logger.WithError(err).Warn("Failed to detach payment method at processor")
	}

	if err := h.paymentMethodRepo.Remove(userCtx.FacilityID, method.ID); err != nil {
		h.logger.WithError(err).Error("Failed to remove payment method")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "delete_failed",
			"message": "Failed to remove payment method",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment method removed",
	})
}
