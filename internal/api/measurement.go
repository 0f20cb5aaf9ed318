package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pwoszkowski/macrospy/internal/middleware"
	"github.com/pwoszkowski/macrospy/internal/models"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// MeasurementHandler handles body-measurement requests.
type MeasurementHandler struct {
	measurementService *service.MeasurementService
}

func NewMeasurementHandler(measurementService *service.MeasurementService) *MeasurementHandler {
	return &MeasurementHandler{measurementService: measurementService}
}

type createMeasurementRequest struct {
	WeightKg   float64    `json:"weight_kg" binding:"required,gt=0"`
	BodyFatPct *float64   `json:"body_fat_pct"`
	WaistCm    *float64   `json:"waist_cm"`
	MeasuredAt *time.Time `json:"measured_at"`
}

func (h *MeasurementHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	measurements, err := h.measurementService.ListMeasurements(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list measurements"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"measurements": measurements})
}

func (h *MeasurementHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	measurement := &models.Measurement{
		UserID:     userID,
		WeightKg:   req.WeightKg,
		BodyFatPct: req.BodyFatPct,
		WaistCm:    req.WaistCm,
	}
	if req.MeasuredAt != nil {
		measurement.MeasuredAt = *req.MeasuredAt
	}

	created, err := h.measurementService.CreateMeasurement(c.Request.Context(), measurement)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create measurement"})
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *MeasurementHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid measurement id"})
		return
	}

	deleted, err := h.measurementService.DeleteMeasurement(c.Request.Context(), id, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete measurement"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "measurement not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
