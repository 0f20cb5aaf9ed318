package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pwoszkowski/macrospy/internal/middleware"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// ProfileHandler handles profile and onboarding requests.
type ProfileHandler struct {
	profileService    *service.ProfileService
	onboardingService *service.OnboardingService
}

func NewProfileHandler(profileService *service.ProfileService, onboardingService *service.OnboardingService) *ProfileHandler {
	return &ProfileHandler{
		profileService:    profileService,
		onboardingService: onboardingService,
	}
}

type updateProfileRequest struct {
	Gender        *string  `json:"gender"`
	HeightCm      *float64 `json:"height_cm"`
	BirthYear     *int     `json:"birth_year"`
	ActivityLevel *string  `json:"activity_level"`
}

func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	profile, err := h.profileService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Gender != nil {
		updates["gender"] = *req.Gender
	}
	if req.HeightCm != nil {
		updates["height_cm"] = *req.HeightCm
	}
	if req.BirthYear != nil {
		updates["birth_year"] = *req.BirthYear
	}
	if req.ActivityLevel != nil {
		updates["activity_level"] = *req.ActivityLevel
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no editable fields in request"})
		return
	}

	profile, err := h.profileService.UpdateProfile(c.Request.Context(), userID, updates)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// Onboard runs the first-run flow: profile, TDEE-derived goal, and first
// measurement in one transactional write.
func (h *ProfileHandler) Onboard(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req service.OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.onboardingService.Complete(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}
