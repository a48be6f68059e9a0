package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/middleware"
	"github.com/careride/facility-backend/internal/models"
)

// FacilityHandler handles facility profile HTTP requests
type FacilityHandler struct {
	facilityRepo *database.FacilityRepository
	logger       *logrus.Logger
}

// NewFacilityHandler creates a new FacilityHandler
func NewFacilityHandler(facilityRepo *database.FacilityRepository, logger *logrus.Logger) *FacilityHandler {
	return &FacilityHandler{
		facilityRepo: facilityRepo,
		logger:       logger,
	}
}

// GetFacility returns the authenticated user's facility
// GET /api/v1/facility/profile
func (h *FacilityHandler) GetFacility(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	facility, err := h.facilityRepo.GetByID(userCtx.FacilityID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "facility_not_found",
			"message": "Facility not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"facility": facility})
}

// UpdateBillingEmail updates where monthly receipts are sent
// PUT /api/v1/facility/billing-email
func (h *FacilityHandler) UpdateBillingEmail(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req models.UpdateFacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	if req.BillingEmail == nil || !strings.Contains(*req.BillingEmail, "@") {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "a valid billing_email is required",
		})
		return
	}

	if err := h.facilityRepo.UpdateBillingEmail(userCtx.FacilityID, *req.BillingEmail); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "facility_not_found",
				"message": "Facility not found",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to update billing email")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to update billing email",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Billing email updated",
	})
}
