package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pwoszkowski/macrospy/internal/service"
)

// TDEEHandler exposes the TDEE/macro-target calculation.
type TDEEHandler struct {
	tdeeService *service.TDEEService
}

func NewTDEEHandler(tdeeService *service.TDEEService) *TDEEHandler {
	return &TDEEHandler{tdeeService: tdeeService}
}

// Calculate runs the BMR → TDEE → macro-target chain. The calculation never
// fails: when the AI suggestion is unavailable the deterministic split is
// returned instead.
func (h *TDEEHandler) Calculate(c *gin.Context) {
	var req service.TDEERequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.tdeeService.Calculate(c.Request.Context(), req)
	c.JSON(http.StatusOK, result)
}
