package journal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mbd888/mindsupport/internal/session"
)

func newTestService(t *testing.T) (*Service, *session.Service, *MemoryStore) {
	t.Helper()
	sessions := session.NewService(session.NewMemoryStore())
	store := NewMemoryStore()
	return NewService(store, sessions), sessions, store
}

func seedEntry(t *testing.T, store *MemoryStore, sessionID string, mood int, createdAt time.Time) *Entry {
	t.Helper()
	e := &Entry{
		ID:        fmt.Sprintf("jrn_%d_%d", mood, createdAt.UnixNano()),
		SessionID: sessionID,
		MoodScore: mood,
		Content:   "seeded entry",
		Tags:      []string{},
		CreatedAt: createdAt,
	}
	if err := store.CreateEntry(context.Background(), e); err != nil {
		t.Fatalf("Failed to seed entry: %v", err)
	}
	return e
}

func TestCreate_StoresEntry(t *testing.T) {
	svc, sessions, _ := newTestService(t)
	sess, _ := sessions.Create(context.Background(), "", "")

	entry, err := svc.Create(context.Background(), sess.ID, 7, "Had a good day", []string{"gratitude"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if entry.ID == "" || entry.MoodScore != 7 || entry.Content != "Had a good day" {
		t.Errorf("Unexpected entry: %+v", entry)
	}

	got, err := svc.Get(context.Background(), sess.ID, entry.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.MoodScore != 7 {
		t.Errorf("Expected mood 7, got %d", got.MoodScore)
	}

	updated, _ := sessions.Get(context.Background(), sess.ID)
	if updated.JournalEntriesCount != 1 {
		t.Errorf("Expected journal count 1, got %d", updated.JournalEntriesCount)
	}
	if updated.LastJournalEntry == nil {
		t.Error("Expected lastJournalEntry to be set")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, sessions, _ := newTestService(t)
	sess, _ := sessions.Create(context.Background(), "", "")

	if _, err := svc.Create(context.Background(), sess.ID, 0, "text", nil); err != ErrInvalidMood {
		t.Errorf("Expected ErrInvalidMood for score 0, got %v", err)
	}
	if _, err := svc.Create(context.Background(), sess.ID, 11, "text", nil); err != ErrInvalidMood {
		t.Errorf("Expected ErrInvalidMood for score 11, got %v", err)
	}
	if _, err := svc.Create(context.Background(), sess.ID, 5, "   ", nil); err != ErrContentEmpty {
		t.Errorf("Expected ErrContentEmpty, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "", 5, "text", nil); err != ErrSessionRequired {
		t.Errorf("Expected ErrSessionRequired, got %v", err)
	}
}

func TestGet_ScopedToSession(t *testing.T) {
	svc, sessions, _ := newTestService(t)
	owner, _ := sessions.Create(context.Background(), "", "")
	other, _ := sessions.Create(context.Background(), "", "")

	entry, err := svc.Create(context.Background(), owner.ID, 5, "private thoughts", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := svc.Get(context.Background(), other.ID, entry.ID); err != ErrEntryNotFound {
		t.Errorf("Expected ErrEntryNotFound for foreign session, got %v", err)
	}
}

func TestDelete_RemovesEntryAndDecrementsCounter(t *testing.T) {
	svc, sessions, _ := newTestService(t)
	sess, _ := sessions.Create(context.Background(), "", "")

	entry, _ := svc.Create(context.Background(), sess.ID, 6, "to be deleted", nil)

	if err := svc.Delete(context.Background(), sess.ID, entry.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), sess.ID, entry.ID); err != ErrEntryNotFound {
		t.Errorf("Expected ErrEntryNotFound after delete, got %v", err)
	}

	updated, _ := sessions.Get(context.Background(), sess.ID)
	if updated.JournalEntriesCount != 0 {
		t.Errorf("Expected journal count 0 after delete, got %d", updated.JournalEntriesCount)
	}
}

func TestDelete_ForeignSession(t *testing.T) {
	svc, sessions, _ := newTestService(t)
	owner, _ := sessions.Create(context.Background(), "", "")
	other, _ := sessions.Create(context.Background(), "", "")

	entry, _ := svc.Create(context.Background(), owner.ID, 6, "mine", nil)

	if err := svc.Delete(context.Background(), other.ID, entry.ID); err != ErrEntryNotFound {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}
}

func TestEntries_NewestFirstWithLimit(t *testing.T) {
	svc, sessions, store := newTestService(t)
	sess, _ := sessions.Create(context.Background(), "", "")

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedEntry(t, store, sess.ID, i+1, now.Add(time.Duration(i)*time.Minute))
	}

	entries, err := svc.Entries(context.Background(), sess.ID, ListOptions{Limit: 3})
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].MoodScore != 5 || entries[2].MoodScore != 3 {
		t.Errorf("Expected newest-first ordering, got %d then %d", entries[0].MoodScore, entries[2].MoodScore)
	}
}

func TestStats_AverageAndMostCommon(t *testing.T) {
	svc, sessions, store := newTestService(t)
	sess, _ := sessions.Create(context.Background(), "", "")

	now := time.Now().UTC()
	for i, mood := range []int{7, 7, 4} {
		seedEntry(t, store, sess.ID, mood, now.Add(time.Duration(i-3)*time.Hour))
	}

	stats, err := svc.Stats(context.Background(), sess.ID, 30)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.AverageMood != 6.0 {
		t.Errorf("Expected average 6.0, got %v", stats.AverageMood)
	}
	if stats.MostCommonMood != 7 {
		t.Errorf("Expected most common mood 7, got %d", stats.MostCommonMood)
	}
	if stats.TotalEntries != 3 {
		t.Errorf("Expected 3 entries, got %d", stats.TotalEntries)
	}
	// Fewer than 4 entries never produces a trend.
	if stats.MoodTrend != TrendStable {
		t.Errorf("Expected stable trend with 3 entries, got %s", stats.MoodTrend)
	}
}

func TestStats_AverageRounding(t *testing.T) {
	svc, sessions, store := newTestService(t)
	sess, _ := sessions.Create(context.Background(), "", "")

	now := time.Now().UTC()
	for i, mood := range []int{5, 5, 6} {
		seedEntry(t, store, sess.ID, mood, now.Add(time.Duration(i-3)*time.Hour))
	}

	stats, err := svc.Stats(context.Background(), sess.ID, 30)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	// 16/3 = 5.333... rounds to one decimal place.
	if stats.AverageMood != 5.3 {
		t.Errorf("Expected average 5.3, got %v", stats.AverageMood)
	}
}

func TestStats_Trend(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   string
	}{
		{"improving", []int{3, 3, 5, 5}, TrendImproving},
		{"declining", []int{7, 7, 4, 4}, TrendDeclining},
		{"stable", []int{5, 5, 5, 5}, TrendStable},
		{"within delta", []int{5, 5, 5, 6}, TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sessions, store := newTestService(t)
			sess, _ := sessions.Create(context.Background(), "", "")

			now := time.Now().UTC()
			for i, mood := range tt.scores {
				seedEntry(t, store, sess.ID, mood, now.Add(time.Duration(i-len(tt.scores))*time.Hour))
			}

			stats, err := svc.Stats(context.Background(), sess.ID, 30)
			if err != nil {
				t.Fatalf("Stats failed: %v", err)
			}
			if stats.MoodTrend != tt.want {
				t.Errorf("Expected trend %s, got %s", tt.want, stats.MoodTrend)
			}
		})
	}
}

func TestStats_Streak(t *testing.T) {
	svc, sessions, store := newTestService(t)
	sess, _ := sessions.Create(context.Background(), "", "")

	now := time.Now().UTC()
	// Entries today, yesterday, and two days ago; gap before the fourth.
	seedEntry(t, store, sess.ID, 5, now)
	seedEntry(t, store, sess.ID, 6, now.AddDate(0, 0, -1))
	seedEntry(t, store, sess.ID, 6, now.AddDate(0, 0, -2))
	seedEntry(t, store, sess.ID, 4, now.AddDate(0, 0, -5))

	stats, err := svc.Stats(context.Background(), sess.ID, 30)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.StreakDays != 3 {
		t.Errorf("Expected streak of 3 days, got %d", stats.StreakDays)
	}
}

func TestStats_StreakStartsYesterday(t *testing.T) {
	svc, sessions, store := newTestService(t)
	sess, _ := sessions.Create(context.Background(), "", "")

	now := time.Now().UTC()
	seedEntry(t, store, sess.ID, 5, now.AddDate(0, 0, -1))
	seedEntry(t, store, sess.ID, 6, now.AddDate(0, 0, -2))

	stats, err := svc.Stats(context.Background(), sess.ID, 30)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.StreakDays != 2 {
		t.Errorf("Expected streak of 2 days ending yesterday, got %d", stats.StreakDays)
	}
}

func TestStats_Empty(t *testing.T) {
	svc, sessions, _ := newTestService(t)
	sess, _ := sessions.Create(context.Background(), "", "")

	stats, err := svc.Stats(context.Background(), sess.ID, 30)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 0 || stats.AverageMood != 0 || stats.StreakDays != 0 {
		t.Errorf("Expected zeroed stats, got %+v", stats)
	}
	if stats.MoodTrend != TrendStable {
		t.Errorf("Expected stable trend for empty journal, got %s", stats.MoodTrend)
	}
}

func TestStats_WindowExcludesOldEntries(t *testing.T) {
	svc, sessions, store := newTestService(t)
	sess, _ := sessions.Create(context.Background(), "", "")

	now := time.Now().UTC()
	seedEntry(t, store, sess.ID, 2, now.AddDate(0, 0, -40))
	seedEntry(t, store, sess.ID, 8, now.Add(-time.Hour))

	stats, err := svc.Stats(context.Background(), sess.ID, 30)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 1 {
		t.Errorf("Expected 1 entry in 30-day window, got %d", stats.TotalEntries)
	}
	if stats.AverageMood != 8.0 {
		t.Errorf("Expected average 8.0, got %v", stats.AverageMood)
	}
}
