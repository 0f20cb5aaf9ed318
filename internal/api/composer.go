package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pwoszkowski/macrospy/internal/composer"
	"github.com/pwoszkowski/macrospy/internal/middleware"
	"github.com/pwoszkowski/macrospy/internal/service"
)

// ComposerHandler exposes the meal-composition sessions over HTTP.
type ComposerHandler struct {
	sessions *composer.Manager
}

func NewComposerHandler(sessions *composer.Manager) *ComposerHandler {
	return &ComposerHandler{sessions: sessions}
}

type analyzeRequest struct {
	TextPrompt string   `json:"text_prompt"`
	Images     []string `json:"images"`
}

type manualRequest struct {
	Name       string     `json:"name" binding:"required"`
	ConsumedAt *time.Time `json:"consumed_at"`
}

type refineRequest struct {
	CorrectionPrompt string `json:"correction_prompt" binding:"required"`
}

// Open creates a new idle session for the caller.
func (h *ComposerHandler) Open(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	session := h.sessions.Open(userID)
	c.JSON(http.StatusCreated, session.Snapshot())
}

// Get returns the current session snapshot.
func (h *ComposerHandler) Get(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// Analyze submits text/photos for AI analysis.
func (h *ComposerHandler) Analyze(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := session.Analyze(c.Request.Context(), req.TextPrompt, req.Images); err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// Manual builds a candidate locally without calling the provider.
func (h *ComposerHandler) Manual(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}

	var req manualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := session.SubmitManual(req.Name, req.ConsumedAt); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// Refine sends a correction turn for the current candidate.
func (h *ComposerHandler) Refine(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}

	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := session.Refine(c.Request.Context(), req.CorrectionPrompt); err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// UpdateCandidate applies manual field edits during review.
func (h *ComposerHandler) UpdateCandidate(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}

	var update composer.CandidateUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := session.UpdateCandidate(update); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// Save validates and persists the candidate.
func (h *ComposerHandler) Save(c *gin.Context) {
	session := h.session(c)
	if session == nil {
		return
	}

	if err := session.Save(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

// Close cancels a session. Pass ?force=true to discard an unsaved candidate.
func (h *ComposerHandler) Close(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	force := c.Query("force") == "true"
	found, err := h.sessions.Close(id, userID, force)
	if err != nil {
		respondError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// session resolves the :id session for the caller, writing the error response
// itself when resolution fails.
func (h *ComposerHandler) session(c *gin.Context) *composer.Session {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil
	}

	session := h.sessions.Get(id, userID)
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil
	}
	return session
}

// respondGatewayError treats unrecognized analyze/refine failures as provider
// outages rather than internal errors, so clients can message them as
// transient.
func respondGatewayError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidInput) ||
		errors.Is(err, service.ErrMalformedAIResponse) ||
		errors.Is(err, composer.ErrInvalidState) ||
		errors.Is(err, composer.ErrNoCandidate) ||
		errors.Is(err, composer.ErrSessionClosed) {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "analysis provider unavailable", "kind": "provider"})
}
