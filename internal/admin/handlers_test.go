package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mbd888/mindsupport/internal/chat"
	"github.com/mbd888/mindsupport/internal/counselors"
	"github.com/mbd888/mindsupport/internal/journal"
	"github.com/mbd888/mindsupport/internal/ratelimit"
	"github.com/mbd888/mindsupport/internal/screening"
	"github.com/mbd888/mindsupport/internal/session"
)

type adminFixture struct {
	router     *gin.Engine
	sessions   *session.Service
	journal    *journal.Service
	counselors *counselors.Service
	limiter    *ratelimit.Limiter
}

func setupAdminRouter(t *testing.T) *adminFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sessions := session.NewService(session.NewMemoryStore())
	journalSvc := journal.NewService(journal.NewMemoryStore(), sessions)
	screeningSvc := screening.NewService(screening.NewMemoryStore(), sessions)
	counselorSvc := counselors.NewService(counselors.NewMemoryStore())
	limiter := ratelimit.New(ratelimit.DefaultConfig())

	chatStore := chat.NewMemoryStore()
	handler := NewHandler().
		WithSessions(sessions).
		WithMessages(chat.NewService(chatStore, sessions, nil, nil)).
		WithScreenings(screeningSvc).
		WithJournal(journalSvc).
		WithCounselors(counselorSvc).
		WithRateLimiter(limiter)

	r := gin.New()
	v1 := r.Group("/v1")
	handler.RegisterRoutes(v1)

	return &adminFixture{
		router:     r,
		sessions:   sessions,
		journal:    journalSvc,
		counselors: counselorSvc,
		limiter:    limiter,
	}
}

func TestGetStats(t *testing.T) {
	f := setupAdminRouter(t)
	ctx := context.Background()

	sess, _ := f.sessions.Create(ctx, "", "")
	f.journal.Create(ctx, sess.ID, 6, "entry one", nil)
	f.journal.Create(ctx, sess.ID, 8, "entry two", nil)
	f.counselors.Apply(ctx, counselors.Application{
		Name: "Dr. A", Email: "a@example.com", Specialties: []string{"anxiety"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/stats", nil)
	f.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var stats PlatformStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to parse stats: %v", err)
	}
	if stats.TotalSessions != 1 {
		t.Errorf("Expected 1 session, got %d", stats.TotalSessions)
	}
	if stats.TotalJournalEntries != 2 {
		t.Errorf("Expected 2 journal entries, got %d", stats.TotalJournalEntries)
	}
	if stats.AverageMood != 7.0 {
		t.Errorf("Expected average mood 7.0, got %v", stats.AverageMood)
	}
	if stats.PendingCounselors != 1 {
		t.Errorf("Expected 1 pending counselor, got %d", stats.PendingCounselors)
	}
	if stats.GeneratedAt.IsZero() {
		t.Error("Expected generatedAt to be set")
	}
}

func TestPendingAndVerifyCounselor(t *testing.T) {
	f := setupAdminRouter(t)
	ctx := context.Background()

	c, _ := f.counselors.Apply(ctx, counselors.Application{
		Name: "Dr. B", Email: "b@example.com", Specialties: []string{"trauma"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/counselors/pending", nil)
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var pendingResp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(w.Body.Bytes(), &pendingResp)
	if pendingResp.Count != 1 {
		t.Fatalf("Expected 1 pending, got %d", pendingResp.Count)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/admin/counselors/"+c.ID+"/verify", nil)
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on verify, got %d: %s", w.Code, w.Body.String())
	}

	got, err := f.counselors.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Counselor should be visible after verify: %v", err)
	}
	if !got.IsVerified || !got.IsAvailable {
		t.Errorf("Expected verified and available, got %+v", got)
	}
}

func TestRejectCounselor(t *testing.T) {
	f := setupAdminRouter(t)
	ctx := context.Background()

	c, _ := f.counselors.Apply(ctx, counselors.Application{
		Name: "Dr. C", Email: "c@example.com", Specialties: []string{"grief"},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/admin/counselors/"+c.ID+"/reject", nil)
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on reject, got %d", w.Code)
	}

	_, pending, _ := f.counselors.Counts(ctx)
	if pending != 0 {
		t.Errorf("Expected no pending after reject, got %d", pending)
	}
}

func TestVerifyCounselor_NotFound(t *testing.T) {
	f := setupAdminRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/admin/counselors/cns_missing/verify", nil)
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestRateLimitInspectAndReset(t *testing.T) {
	f := setupAdminRouter(t)

	// Consume some chat budget for an identity.
	for i := 0; i < 3; i++ {
		f.limiter.Check("sess-1", "chat")
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/ratelimits/sess-1", nil)
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Identity   string                `json:"identity"`
		Categories []ratelimit.UsageStat `json:"categories"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Categories) != 1 || resp.Categories[0].Used != 3 {
		t.Errorf("Expected chat usage 3, got %+v", resp.Categories)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/v1/admin/ratelimits/sess-1/reset", nil)
	f.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 on reset, got %d", w.Code)
	}

	if stats := f.limiter.Stats("sess-1"); len(stats) != 0 {
		t.Errorf("Expected empty stats after reset, got %+v", stats)
	}
}
