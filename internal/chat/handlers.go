package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/mindsupport/internal/ratelimit"
	"github.com/mbd888/mindsupport/internal/validation"
)

// Handler provides HTTP endpoints for chat.
type Handler struct {
	service *Service
}

// NewHandler creates a new chat handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up chat routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/chat/message", h.SendMessage)
	r.GET("/chat/history", h.GetHistory)
	r.DELETE("/chat/history", h.ClearHistory)
}

type sendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// SendMessage handles POST /chat/message
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "message is required",
		})
		return
	}

	sessionID := c.GetHeader(ratelimit.SessionHeader)
	if sessionID != "" && !validation.IsValidSessionID(sessionID) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_session_id",
			"message": "session id must be a UUID",
		})
		return
	}

	exchange, err := h.service.Send(c.Request.Context(), sessionID, req.Message)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "empty_message",
				"message": "message cannot be empty",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Error processing message",
		})
		return
	}

	c.JSON(http.StatusOK, exchange)
}

// GetHistory handles GET /chat/history
func (h *Handler) GetHistory(c *gin.Context) {
	sessionID := c.GetHeader(ratelimit.SessionHeader)

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	msgs, next, hasMore, err := h.service.History(c.Request.Context(), sessionID, c.Query("cursor"), limit)
	if err != nil {
		h.renderHistoryError(c, err)
		return
	}

	if msgs == nil {
		msgs = []*Message{}
	}
	c.JSON(http.StatusOK, gin.H{
		"messages":   msgs,
		"nextCursor": next,
		"hasMore":    hasMore,
	})
}

// ClearHistory handles DELETE /chat/history
func (h *Handler) ClearHistory(c *gin.Context) {
	sessionID := c.GetHeader(ratelimit.SessionHeader)

	deleted, err := h.service.Clear(c.Request.Context(), sessionID)
	if err != nil {
		h.renderHistoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Chat history cleared",
		"deleted": deleted,
	})
}

func (h *Handler) renderHistoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSessionRequired):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "session_required",
			"message": "Session ID required to access chat history",
		})
	case err.Error() == "invalid cursor":
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "cursor is malformed",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Error accessing chat history",
		})
	}
}
