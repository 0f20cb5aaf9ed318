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

// FavoriteHandler handles favorite-meal requests.
type FavoriteHandler struct {
	favoriteService *service.FavoriteService
}

func NewFavoriteHandler(favoriteService *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favoriteService: favoriteService}
}

type createFavoriteRequest struct {
	Name     string  `json:"name" binding:"required"`
	Calories float64 `json:"calories" binding:"gte=0"`
	Protein  float64 `json:"protein" binding:"gte=0"`
	Fat      float64 `json:"fat" binding:"gte=0"`
	Carbs    float64 `json:"carbs" binding:"gte=0"`
	Fiber    float64 `json:"fiber" binding:"gte=0"`
}

type logFavoriteRequest struct {
	ConsumedAt *time.Time `json:"consumed_at"`
}

func (h *FavoriteHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	favorites, err := h.favoriteService.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list favorites"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorites": favorites})
}

func (h *FavoriteHandler) Create(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	favorite := &models.FavoriteMeal{
		UserID:   userID,
		Name:     req.Name,
		Calories: req.Calories,
		Protein:  req.Protein,
		Fat:      req.Fat,
		Carbs:    req.Carbs,
		Fiber:    req.Fiber,
	}

	created, err := h.favoriteService.CreateFavorite(c.Request.Context(), favorite)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *FavoriteHandler) Delete(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid favorite id"})
		return
	}

	deleted, err := h.favoriteService.DeleteFavorite(c.Request.Context(), id, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete favorite"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "favorite not found"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Log copies a favorite into a new meal record for today (or the given time).
func (h *FavoriteHandler) Log(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid favorite id"})
		return
	}

	var req logFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	consumedAt := time.Time{}
	if req.ConsumedAt != nil {
		consumedAt = *req.ConsumedAt
	}

	meal, err := h.favoriteService.LogFavorite(c.Request.Context(), id, userID, consumedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log favorite"})
		return
	}
	if meal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "favorite not found"})
		return
	}

	c.JSON(http.StatusCreated, meal)
}
