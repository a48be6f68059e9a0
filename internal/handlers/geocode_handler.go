package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careride/facility-backend/pkg/geocode"
)

// GeocodeHandler proxies forward-geocoding lookups for the booking form
type GeocodeHandler struct {
	geocodeClient *geocode.Client
	logger        *logrus.Logger
}

// NewGeocodeHandler creates a new GeocodeHandler
func NewGeocodeHandler(geocodeClient *geocode.Client, logger *logrus.Logger) *GeocodeHandler {
	return &GeocodeHandler{
		geocodeClient: geocodeClient,
		logger:        logger,
	}
}

// Forward resolves a free-text address to coordinates
// GET /api/v1/geocode/forward?address=
func (h *GeocodeHandler) Forward(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "address query parameter is required",
		})
		return
	}

	results, err := h.geocodeClient.Forward(address)
	if err != nil {
		h.logger.WithError(err).Warn("Geocode lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "geocode_failed",
			"message": "Failed to geocode address",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}
