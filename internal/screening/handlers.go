package screening

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/mindsupport/internal/ratelimit"
)

// Handler provides HTTP endpoints for screenings.
type Handler struct {
	service *Service
}

// NewHandler creates a new screening handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up screening routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/screening/phq9", h.submit(InstrumentPHQ9))
	r.POST("/screening/gad7", h.submit(InstrumentGAD7))
	r.GET("/screening/history", h.GetHistory)
	r.GET("/screening/latest", h.GetLatest)
}

type submitRequest struct {
	Responses []Answer `json:"responses" binding:"required"`
}

func (h *Handler) submit(instrument string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req submitRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_request",
				"message": "responses are required",
			})
			return
		}

		sessionID := c.GetHeader(ratelimit.SessionHeader)
		result, resources, err := h.service.Submit(c.Request.Context(), sessionID, instrument, req.Responses)
		if err != nil {
			h.renderError(c, err)
			return
		}

		resp := gin.H{"result": result}
		if resources != nil {
			resp["crisisResources"] = resources
		}
		c.JSON(http.StatusOK, resp)
	}
}

// GetHistory handles GET /screening/history
func (h *Handler) GetHistory(c *gin.Context) {
	sessionID := c.GetHeader(ratelimit.SessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "session_required",
			"message": "Session ID required to retrieve screening history",
		})
		return
	}

	limit := 10
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	results, err := h.service.History(c.Request.Context(), sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Error retrieving screening history",
		})
		return
	}

	if results == nil {
		results = []*Result{}
	}
	c.JSON(http.StatusOK, gin.H{"screenings": results})
}

// GetLatest handles GET /screening/latest
func (h *Handler) GetLatest(c *gin.Context) {
	sessionID := c.GetHeader(ratelimit.SessionHeader)
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "session_required",
			"message": "Session ID required to retrieve latest screening",
		})
		return
	}

	result, err := h.service.Latest(c.Request.Context(), sessionID, c.Query("type"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"result": nil})
			return
		}
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrWrongAnswerCount):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "wrong_answer_count",
			"message": "PHQ-9 requires 9 responses and GAD-7 requires 7",
		})
	case errors.Is(err, ErrAnswerOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "answer_out_of_range",
			"message": "Scores must be between 0 and 3",
		})
	case errors.Is(err, ErrInvalidQuestions):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_questions",
			"message": "Each question must be answered exactly once",
		})
	case errors.Is(err, ErrInvalidInstrument):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_instrument",
			"message": "Screening type must be 'phq9' or 'gad7'",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Error processing screening",
		})
	}
}
