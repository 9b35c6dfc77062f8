package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/mindsupport/internal/validation"
)

// Handler provides HTTP endpoints for session management.
type Handler struct {
	service *Service
}

// NewHandler creates a new session handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up session routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/sessions", h.CreateSession)

	sess := r.Group("/sessions/:id", validation.SessionIDParamMiddleware())
	sess.GET("", h.GetSession)
	sess.GET("/stats", h.GetStats)
	sess.POST("/activity", h.UpdateActivity)
}

type createSessionRequest struct {
	UserAgent string `json:"userAgent"`
	IPAddress string `json:"ipAddress"`
}

// CreateSession handles POST /sessions
func (h *Handler) CreateSession(c *gin.Context) {
	// Body is optional; fall back to the transport-level values.
	var req createSessionRequest
	_ = c.ShouldBindJSON(&req)
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}
	if req.IPAddress == "" {
		req.IPAddress = c.ClientIP()
	}

	sess, err := h.service.Create(c.Request.Context(), req.UserAgent, req.IPAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "session_create_failed",
			"message": "Error creating session",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"sessionId": sess.ID,
		"createdAt": sess.CreatedAt,
		"message":   "Session created successfully",
	})
}

// GetSession handles GET /sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	sess, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// GetStats handles GET /sessions/:id/stats
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// UpdateActivity handles POST /sessions/:id/activity
func (h *Handler) UpdateActivity(c *gin.Context) {
	if err := h.service.Touch(c.Request.Context(), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session activity updated"})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	if errors.Is(err, ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "session_not_found",
			"message": "Session not found",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "internal_error",
		"message": "Error retrieving session",
	})
}
