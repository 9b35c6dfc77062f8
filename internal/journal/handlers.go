package journal

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/mindsupport/internal/ratelimit"
	"github.com/mbd888/mindsupport/internal/validation"
)

// Handler provides HTTP endpoints for the mood journal.
type Handler struct {
	service *Service
}

// NewHandler creates a new journal handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up journal routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/journal", h.CreateEntry)
	r.GET("/journal", h.ListEntries)
	r.GET("/journal/stats", h.GetStats)
	r.GET("/journal/:id", h.GetEntry)
	r.DELETE("/journal/:id", h.DeleteEntry)
}

type createEntryRequest struct {
	MoodScore int      `json:"moodScore" binding:"required"`
	Content   string   `json:"content" binding:"required"`
	Tags      []string `json:"tags"`
}

// CreateEntry handles POST /journal
func (h *Handler) CreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "moodScore and content are required",
		})
		return
	}

	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	entry, err := h.service.Create(c.Request.Context(), sessionID, req.MoodScore, req.Content, req.Tags)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

// ListEntries handles GET /journal
func (h *Handler) ListEntries(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	opts := ListOptions{Limit: 20}
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			opts.Limit = parsed
		}
	}
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed > 0 {
			opts.Offset = parsed
		}
	}
	if s := c.Query("start"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			opts.Start = &t
		}
	}
	if e := c.Query("end"); e != "" {
		if t, err := time.Parse(time.RFC3339, e); err == nil {
			opts.End = &t
		}
	}

	entries, err := h.service.Entries(c.Request.Context(), sessionID, opts)
	if err != nil {
		h.renderError(c, err)
		return
	}

	if entries == nil {
		entries = []*Entry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetStats handles GET /journal/stats
func (h *Handler) GetStats(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	days := 30
	if d := c.Query("days"); d != "" {
		if parsed, err := strconv.Atoi(d); err == nil && parsed > 0 && parsed <= 365 {
			days = parsed
		}
	}

	stats, err := h.service.Stats(c.Request.Context(), sessionID, days)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetEntry handles GET /journal/:id
func (h *Handler) GetEntry(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	entry, err := h.service.Get(c.Request.Context(), sessionID, c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entry": entry})
}

// DeleteEntry handles DELETE /journal/:id
func (h *Handler) DeleteEntry(c *gin.Context) {
	sessionID, ok := h.sessionID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), sessionID, c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Journal entry deleted"})
}

// sessionID pulls and validates the session header, writing the error
// response itself when the header is missing or malformed.
func (h *Handler) sessionID(c *gin.Context) (string, bool) {
	sessionID := c.GetHeader(ratelimit.SessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "session_required",
			"message": "Session ID required for journal access",
		})
		return "", false
	}
	if !validation.IsValidSessionID(sessionID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_session_id",
			"message": "session id must be a UUID",
		})
		return "", false
	}
	return sessionID, true
}

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidMood):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_mood_score",
			"message": "mood score must be between 1 and 10",
		})
	case errors.Is(err, ErrContentEmpty):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "empty_content",
			"message": "journal content cannot be empty",
		})
	case errors.Is(err, ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "entry_not_found",
			"message": "Journal entry not found",
		})
	case errors.Is(err, ErrSessionRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "session_required",
			"message": "Session ID required for journal access",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Error accessing journal",
		})
	}
}
