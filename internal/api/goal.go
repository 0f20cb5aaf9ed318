package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pwoszkowski/macrospy/internal/middleware"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// GoalHandler handles macro-goal requests.
type GoalHandler struct {
	goalService *service.GoalService
}

func NewGoalHandler(goalService *service.GoalService) *GoalHandler {
	return &GoalHandler{goalService: goalService}
}

type upsertGoalRequest struct {
	Calories float64 `json:"calories" binding:"required,gt=0"`
	Protein  float64 `json:"protein" binding:"gte=0"`
	Fat      float64 `json:"fat" binding:"gte=0"`
	Carbs    float64 `json:"carbs" binding:"gte=0"`
	Fiber    float64 `json:"fiber" binding:"gte=0"`
}

func (h *GoalHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	goal, err := h.goalService.GetGoal(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get goal"})
		return
	}
	if goal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no goal set"})
		return
	}

	c.JSON(http.StatusOK, goal)
}

func (h *GoalHandler) Upsert(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req upsertGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	goal, err := h.goalService.UpsertGoal(c.Request.Context(), userID, service.MacroTargets{
		Calories: req.Calories,
		Protein:  req.Protein,
		Fat:      req.Fat,
		Carbs:    req.Carbs,
		Fiber:    req.Fiber,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save goal"})
		return
	}

	c.JSON(http.StatusOK, goal)
}

func (h *GoalHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	deleted, err := h.goalService.DeleteGoal(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete goal"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "no goal set"})
		return
	}

	c.Status(http.StatusNoContent)
}
