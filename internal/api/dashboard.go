package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pwoszkowski/macrospy/internal/middleware"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// DashboardHandler assembles the day view: meals, aggregate summary, active
// goal, and remaining-vs-target numbers.
type DashboardHandler struct {
	mealService *service.MealService
	goalService *service.GoalService
}

func NewDashboardHandler(mealService *service.MealService, goalService *service.GoalService) *DashboardHandler {
	return &DashboardHandler{
		mealService: mealService,
		goalService: goalService,
	}
}

type remainingTargets struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
	Fiber    float64 `json:"fiber"`
}

// Get returns the dashboard for ?date=YYYY-MM-DD, defaulting to today.
func (h *DashboardHandler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	day := time.Now()
	if dateStr := c.Query("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		day = parsed
	}

	meals, summary, err := h.mealService.ListMealsByDay(c.Request.Context(), userID, day)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}

	goal, err := h.goalService.GetGoal(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}

	response := gin.H{
		"meals":   meals,
		"summary": summary,
		"goal":    goal,
	}
	if goal != nil {
		response["remaining"] = remainingTargets{
			Calories: goal.Calories - summary.Calories,
			Protein:  goal.Protein - summary.Protein,
			Fat:      goal.Fat - summary.Fat,
			Carbs:    goal.Carbs - summary.Carbs,
			Fiber:    goal.Fiber - summary.Fiber,
		}
	}

	c.JSON(http.StatusOK, response)
}
