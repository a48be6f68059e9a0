package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/middleware"
	"github.com/careride/facility-backend/internal/models"
	"github.com/careride/facility-backend/pkg/validator"
)

// ManagedClientHandler handles managed client HTTP requests
type ManagedClientHandler struct {
	managedClientRepo *database.ManagedClientRepository
	phoneValidator    *validator.PhoneValidator
	logger            *logrus.Logger
}

// NewManagedClientHandler creates a new ManagedClientHandler
func NewManagedClientHandler(managedClientRepo *database.ManagedClientRepository, logger *logrus.Logger) *ManagedClientHandler {
	return &ManagedClientHandler{
		managedClientRepo: managedClientRepo,
		phoneValidator:    validator.NewPhoneValidator(),
		logger:            logger,
	}
}

// CreateManagedClient creates a facility-administered rider
// POST /api/v1/facility/managed-clients
func (h *ManagedClientHandler) CreateManagedClient(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req models.CreateManagedClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	if req.Phone != nil && *req.Phone != "" {
		sanitized, err := h.phoneValidator.Validate(*req.Phone)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_phone",
				"message": err.Error(),
			})
			return
		}
		req.Phone = &sanitized
	}

	client := &models.ManagedClient{
		FacilityID: userCtx.FacilityID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Email:      req.Email,
		Address:    req.Address,
		Notes:      req.Notes,
	}

	if err := h.managedClientRepo.Create(client); err != nil {
		h.logger.WithError(err).Error("Failed to create managed client")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "create_failed",
			"message": "Failed to create managed client",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Managed client created",
		"client":  client,
	})
}

// ListManagedClients lists the facility's managed clients
// GET /api/v1/facility/managed-clients
func (h *ManagedClientHandler) ListManagedClients(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	clients, err := h.managedClientRepo.ListByFacility(userCtx.FacilityID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list managed clients")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_failed",
			"message": "Failed to load managed clients",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clients": clients,
		"count":   len(clients),
	})
}

// GetManagedClient returns a single managed client
// GET /api/v1/facility/managed-clients/:id
func (h *ManagedClientHandler) GetManagedClient(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	client, err := h.managedClientRepo.GetByID(userCtx.FacilityID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "client_not_found",
			"message": "Managed client not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"client": client})
}

// UpdateManagedClient updates a managed client's details
// PUT /api/v1/facility/managed-clients/:id
func (h *ManagedClientHandler) UpdateManagedClient(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req models.UpdateManagedClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	client, err := h.managedClientRepo.GetByID(userCtx.FacilityID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "client_not_found",
			"message": "Managed client not found",
		})
		return
	}

	if req.FirstName != nil {
		client.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		client.LastName = *req.LastName
	}
	if req.Phone != nil {
		if *req.Phone != "" {
			sanitized, err := h.phoneValidator.Validate(*req.Phone)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":   "invalid_phone",
					"message": err.Error(),
				})
				return
			}
			req.Phone = &sanitized
		}
		client.Phone = req.Phone
	}
	if req.Email != nil {
		client.Email = req.Email
	}
	if req.Address != nil {
		client.Address = req.Address
	}
	if req.Notes != nil {
		client.Notes = req.Notes
	}

	if client.FirstName == "" && client.LastName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "a name is required",
		})
		return
	}

	if err := h.managedClientRepo.Update(client); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "client_not_found",
				"message": "Managed client not found",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to update managed client")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to update managed client",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Managed client updated",
		"client":  client,
	})
}

// DeleteManagedClient soft-deletes a managed client. Historical trips keep
// their reference; billing falls back to the heuristic name.
// DELETE /api/v1/facility/managed-clients/:id
func (h *ManagedClientHandler) DeleteManagedClient(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	if err := h.managedClientRepo.SoftDelete(userCtx.FacilityID, c.Param("id")); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "client_not_found",
				"message": "Managed client not found",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to delete managed client")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "delete_failed",
			"message": "Failed to delete managed client",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Managed client deleted",
	})
}
