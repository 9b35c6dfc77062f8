package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/mindsupport/internal/counselors"
	"github.com/mbd888/mindsupport/internal/ratelimit"
)

// SessionCounter reports session totals.
type SessionCounter interface {
	Counts(ctx context.Context) (total, withCrisis int, err error)
}

// MessageCounter reports the total number of chat messages.
type MessageCounter interface {
	Count(ctx context.Context) (int, error)
}

// ScreeningCounter reports the total number of completed screenings.
type ScreeningCounter interface {
	Count(ctx context.Context) (int, error)
}

// JournalReporter reports journal totals and the platform average mood.
type JournalReporter interface {
	Count(ctx context.Context) (int, error)
	AverageMood(ctx context.Context) (float64, error)
}

// CounselorAdmin abstracts the directory operations admins need.
type CounselorAdmin interface {
	Pending(ctx context.Context, limit int) ([]*counselors.Counselor, error)
	Verify(ctx context.Context, id string) error
	Reject(ctx context.Context, id string) error
	Counts(ctx context.Context) (verified, pending int, err error)
}

// RateLimitAdmin exposes per-identity limiter state.
type RateLimitAdmin interface {
	Stats(identity string) []ratelimit.UsageStat
	Reset(identity string)
}

// Handler provides admin HTTP endpoints.
type Handler struct {
	sessions   SessionCounter
	messages   MessageCounter
	screenings ScreeningCounter
	journal    JournalReporter
	counselors CounselorAdmin
	limiter    RateLimitAdmin
}

// NewHandler creates a new admin handler.
func NewHandler() *Handler {
	return &Handler{}
}

// WithSessions sets the session counter for stats.
func (h *Handler) WithSessions(s SessionCounter) *Handler {
	h.sessions = s
	return h
}

// WithMessages sets the chat message counter for stats.
func (h *Handler) WithMessages(m MessageCounter) *Handler {
	h.messages = m
	return h
}

// WithScreenings sets the screening counter for stats.
func (h *Handler) WithScreenings(s ScreeningCounter) *Handler {
	h.screenings = s
	return h
}

// WithJournal sets the journal reporter for stats.
func (h *Handler) WithJournal(j JournalReporter) *Handler {
	h.journal = j
	return h
}

// WithCounselors sets the counselor directory for application review.
func (h *Handler) WithCounselors(c CounselorAdmin) *Handler {
	h.counselors = c
	return h
}

// WithRateLimiter sets the limiter for inspection and reset endpoints.
func (h *Handler) WithRateLimiter(l RateLimitAdmin) *Handler {
	h.limiter = l
	return h
}

// RegisterRoutes sets up admin routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/admin/stats", h.getStats)
	r.GET("/admin/counselors/pending", h.listPendingCounselors)
	r.POST("/admin/counselors/:id/verify", h.verifyCounselor)
	r.POST("/admin/counselors/:id/reject", h.rejectCounselor)
	r.GET("/admin/ratelimits/:identity", h.getRateLimits)
	r.POST("/admin/ratelimits/:identity/reset", h.resetRateLimits)
}

// getStats returns the platform-wide usage roll-up.
func (h *Handler) getStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := PlatformStats{GeneratedAt: time.Now().UTC()}

	if h.sessions != nil {
		total, withCrisis, err := h.sessions.Counts(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect stats", "message": err.Error()})
			return
		}
		stats.TotalSessions = total
		stats.SessionsWithCrisis = withCrisis
	}

	if h.messages != nil {
		n, err := h.messages.Count(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect stats", "message": err.Error()})
			return
		}
		stats.TotalMessages = n
	}

	if h.screenings != nil {
		n, err := h.screenings.Count(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect stats", "message": err.Error()})
			return
		}
		stats.ScreeningsCompleted = n
	}

	if h.journal != nil {
		n, err := h.journal.Count(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect stats", "message": err.Error()})
			return
		}
		stats.TotalJournalEntries = n

		avg, err := h.journal.AverageMood(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect stats", "message": err.Error()})
			return
		}
		stats.AverageMood = avg
	}

	if h.counselors != nil {
		verified, pending, err := h.counselors.Counts(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to collect stats", "message": err.Error()})
			return
		}
		stats.VerifiedCounselors = verified
		stats.PendingCounselors = pending
	}

	c.JSON(http.StatusOK, stats)
}

// listPendingCounselors returns unverified applications.
func (h *Handler) listPendingCounselors(c *gin.Context) {
	if h.counselors == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "counselor directory not configured"})
		return
	}

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	pending, err := h.counselors.Pending(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list applications", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"counselors": pending, "count": len(pending)})
}

// verifyCounselor approves an application.
func (h *Handler) verifyCounselor(c *gin.Context) {
	if h.counselors == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "counselor directory not configured"})
		return
	}

	id := c.Param("id")
	if err := h.counselors.Verify(c.Request.Context(), id); err != nil {
		if errors.Is(err, counselors.ErrCounselorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "counselor_not_found", "message": "Counselor not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify counselor", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true, "counselorId": id})
}

// rejectCounselor removes an unverified application.
func (h *Handler) rejectCounselor(c *gin.Context) {
	if h.counselors == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "counselor directory not configured"})
		return
	}

	id := c.Param("id")
	if err := h.counselors.Reject(c.Request.Context(), id); err != nil {
		if errors.Is(err, counselors.ErrCounselorNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "counselor_not_found", "message": "Counselor not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to reject counselor", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rejected": true, "counselorId": id})
}

// getRateLimits returns per-category usage for an identity.
func (h *Handler) getRateLimits(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter not configured"})
		return
	}

	identity := c.Param("identity")
	stats := h.limiter.Stats(identity)
	c.JSON(http.StatusOK, gin.H{"identity": identity, "categories": stats})
}

// resetRateLimits clears all limiter state for an identity.
func (h *Handler) resetRateLimits(c *gin.Context) {
	if h.limiter == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rate limiter not configured"})
		return
	}

	identity := c.Param("identity")
	h.limiter.Reset(identity)
	c.JSON(http.StatusOK, gin.H{"reset": true, "identity": identity})
}
