package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pwoszkowski/macrospy/internal/middleware"
	"github.com/pwoszkowski/macrospy/internal/models"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// MealHandler handles meal CRUD requests.
type MealHandler struct {
	mealService *service.MealService
}

func NewMealHandler(mealService *service.MealService) *MealHandler {
	return &MealHandler{mealService: mealService}
}

type createMealRequest struct {
	Name       string     `json:"name" binding:"required"`
	Calories   float64    `json:"calories" binding:"gte=0"`
	Protein    float64    `json:"protein" binding:"gte=0"`
	Fat        float64    `json:"fat" binding:"gte=0"`
	Carbs      float64    `json:"carbs" binding:"gte=0"`
	Fiber      float64    `json:"fiber" binding:"gte=0"`
	ConsumedAt *time.Time `json:"consumed_at"`
}

// List returns the day's meals plus the aggregate summary. The day defaults
// to today and is selected with ?date=YYYY-MM-DD.
func (h *MealHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	day := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		// Same location as the default so the day window never shifts
		// between explicit dates and "today".
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	meals, summary, err := h.mealService.ListMealsByDay(c.Request.Context(), userID, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list meals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"meals": meals, "summary": summary})
}

func (h *MealHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}

	meal, err := h.mealService.GetMeal(c.Request.Context(), id, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get meal"})
		return
	}
	if meal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "meal not found"})
		return
	}

	c.JSON(http.StatusOK, meal)
}

// Create logs a meal directly, without going through the composer.
func (h *MealHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createMealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meal := &models.Meal{
		UserID:   userID,
		Name:     req.Name,
		Calories: req.Calories,
		Protein:  req.Protein,
		Fat:      req.Fat,
		Carbs:    req.Carbs,
		Fiber:    req.Fiber,
	}
	if req.ConsumedAt != nil {
		meal.ConsumedAt = *req.ConsumedAt
	}

	created, err := h.mealService.CreateMeal(c.Request.Context(), meal)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create meal"})
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *MealHandler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}

	var updates map[string]interface{}
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Only user-editable columns pass through
	allowed := map[string]bool{
		"name": true, "calories": true, "protein": true,
		"fat": true, "carbs": true, "fiber": true, "consumed_at": true,
	}
	for key := range updates {
		if !allowed[key] {
			delete(updates, key)
		}
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no editable fields in request"})
		return
	}

	meal, err := h.mealService.UpdateMeal(c.Request.Context(), id, userID, updates)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update meal"})
		return
	}
	if meal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "meal not found"})
		return
	}

	c.JSON(http.StatusOK, meal)
}

func (h *MealHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid meal id"})
		return
	}

	deleted, err := h.mealService.DeleteMeal(c.Request.Context(), id, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete meal"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "meal not found"})
		return
	}

	c.Status(http.StatusNoContent)
}
