package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/careride/facility-backend/internal/database"
	"github.com/careride/facility-backend/internal/middleware"
	"github.com/careride/facility-backend/internal/models"
	"github.com/careride/facility-backend/internal/services"
)

// TripHandler handles trip booking HTTP requests
type TripHandler struct {
	tripRepo          *database.TripRepository
	profileRepo       *database.ProfileRepository
	managedClientRepo *database.ManagedClientRepository
	notifyService     *services.NotifyService
	logger            *logrus.Logger
}

// NewTripHandler creates a new TripHandler
func NewTripHandler(
	tripRepo *database.TripRepository,
	profileRepo *database.ProfileRepository,
	managedClientRepo *database.ManagedClientRepository,
	notifyService *services.NotifyService,
	logger *logrus.Logger,
) *TripHandler {
	return &TripHandler{
		tripRepo:          tripRepo,
		profileRepo:       profileRepo,
		managedClientRepo: managedClientRepo,
		notifyService:     notifyService,
		logger:            logger,
	}
}

// CreateTrip books a trip for a rider
// POST /api/v1/facility/trips
func (h *TripHandler) CreateTrip(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req models.CreateTripRequest
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

	riderName, err := h.resolveRiderName(userCtx.FacilityID, req.RiderKind, req.RiderID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_rider",
			"message": err.Error(),
		})
		return
	}

	trip := &models.Trip{
		FacilityID:         userCtx.FacilityID,
		RiderKind:          req.RiderKind,
		RiderID:            req.RiderID,
		PickupAddress:      req.PickupAddress,
		DestinationAddress: req.DestinationAddress,
		PickupTime:         req.PickupTime,
		Status:             models.TripStatusPending,
		Price:              req.Price,
		DistanceMiles:      req.DistanceMiles,
		Wheelchair:         req.Wheelchair,
		Notes:              req.Notes,
	}

	if err := h.tripRepo.Create(trip); err != nil {
		h.logger.WithError(err).Error("Failed to create trip")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "create_trip_failed",
			"message": "Failed to book trip",
		})
		return
	}

	// Booking never waits on the dispatcher inbox beyond the notify timeout.
	if err := h.notifyService.NotifyDispatcher(trip, riderName); err != nil {
		h.logger.WithError(err).WithField("trip_id", trip.ID).Warn("Dispatcher notification failed")
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Trip booked",
		"trip":    trip,
	})
}

// ListTrips returns the facility's trips, newest first
// GET /api/v1/facility/trips?limit=&offset=
func (h *TripHandler) ListTrips(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > 200 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	trips, err := h.tripRepo.ListByFacility(userCtx.FacilityID, limit, offset)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list trips")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "list_trips_failed",
			"message": "Failed to load trips",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trips":  trips,
		"count":  len(trips),
		"limit":  limit,
		"offset": offset,
	})
}

// GetTrip returns a single trip
// GET /api/v1/facility/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	trip, err := h.tripRepo.GetByID(userCtx.FacilityID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "trip_not_found",
			"message": "Trip not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"trip": trip})
}

// UpdateTripStatus transitions a trip through its lifecycle
// PATCH /api/v1/facility/trips/:id/status
func (h *TripHandler) UpdateTripStatus(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req models.UpdateTripStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	if req.Status == models.TripStatusCancelled {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "use_cancel_endpoint",
			"message": "Use the cancel endpoint to cancel a trip",
		})
		return
	}

	if req.Price != nil && *req.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "price cannot be negative",
		})
		return
	}

	tripID := c.Param("id")
	trip, err := h.tripRepo.GetByID(userCtx.FacilityID, tripID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "trip_not_found",
			"message": "Trip not found",
		})
		return
	}

	if !trip.CanTransitionTo(req.Status) {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "invalid_transition",
			"message": "Trip cannot move from " + string(trip.Status) + " to " + string(req.Status),
		})
		return
	}

	if req.Price != nil {
		if err := h.tripRepo.UpdatePrice(userCtx.FacilityID, tripID, *req.Price); err != nil {
			h.logger.WithError(err).Error("Failed to update trip price")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "update_failed",
				"message": "Failed to update trip",
			})
			return
		}
	}

	if err := h.tripRepo.UpdateStatus(userCtx.FacilityID, tripID, req.Status); err != nil {
		h.logger.WithError(err).Error("Failed to update trip status")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Failed to update trip",
		})
		return
	}

	updated, err := h.tripRepo.GetByID(userCtx.FacilityID, tripID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "update_failed",
			"message": "Trip updated but could not be reloaded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Trip updated",
		"trip":    updated,
	})
}

// CancelTrip cancels a trip, or records the cancellation reason on an
// already-cancelled trip that has none
// POST /api/v1/facility/trips/:id/cancel
func (h *TripHandler) CancelTrip(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User not authenticated",
		})
		return
	}

	var req models.CancelTripRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	tripID := c.Param("id")
	if err := h.tripRepo.Cancel(userCtx.FacilityID, tripID, req.CancellationReason); err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "cancel_failed",
				"message": "Trip not found or cannot be cancelled",
			})
			return
		}
		h.logger.WithError(err).Error("Failed to cancel trip")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "cancel_failed",
			"message": "Failed to cancel trip",
		})
		return
	}

	trip, err := h.tripRepo.GetByID(userCtx.FacilityID, tripID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "cancel_failed",
			"message": "Trip cancelled but could not be reloaded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Trip cancelled",
		"trip":    trip,
	})
}

// resolveRiderName checks the rider reference and returns a display name
// for the dispatcher notification
func (h *TripHandler) resolveRiderName(facilityID string, kind models.RiderKind, riderID string) (string, error) {
	switch kind {
	case models.RiderKindAccount:
		profileID, err := uuid.Parse(riderID)
		if err != nil {
			return "", err
		}
		profile, err := h.profileRepo.GetByID(profileID)
		if err != nil {
			return "", err
		}
		if profile.FacilityID == nil || *profile.FacilityID != facilityID {
			return "", errors.New("rider does not belong to this facility")
		}
		return profile.FullName(), nil
	case models.RiderKindManaged:
		client, err := h.managedClientRepo.GetByID(facilityID, riderID)
		if err != nil {
			return "", err
		}
		return client.FullName(), nil
	}
	return "", nil
}
