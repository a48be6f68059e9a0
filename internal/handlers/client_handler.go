package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/middleware"
	"github.com/careride/facility-backend/pkg/validator"
)

// ClientHandler handles account-holding rider HTTP requests
type ClientHandler struct {
	profileRepo    *database.ProfileRepository
	phoneValidator *validator.PhoneValidator
	logger         *logrus.Logger
}

// NewClientHandler creates a new ClientHandler
func NewClientHandler(profileRepo *database.ProfileRepository, logger *logrus.Logger) *ClientHandler {
	return &ClientHandler{
		profileRepo:    profileRepo,
		phoneValidator: validator.NewPhoneValidator(),
		logger:         logger,
	}
}

// ListClients lists the facility's account-holding riders
// GET /api/v1/facility/clients
func (h *ClientHandler) ListClients(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	clients, err := h.profileRepo.ListClientsByFacility(userCtx.FacilityID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list clients")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to load clients",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clients": clients,
		"count":   len(clients),
	})
}

// UpdateProfileRequest represents the request to update the caller's profile
type UpdateProfileRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
}

// UpdateProfile updates the authenticated user's own profile
// PUT /api/v1/facility/me
func (h *ClientHandler) UpdateProfile(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	phone, err := h.phoneValidator.Validate(req.Phone)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_phone",
			"message": err.Error(),
		})
		return
	}

	if err := h.profileRepo.UpdateProfile(userCtx.UserID, req.FirstName, req.LastName, req.Email, phone); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "profile_not_found",
				"message": "Profile not found",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to update profile")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to update profile",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated",
	})
}
