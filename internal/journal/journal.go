// Package journal provides mood journaling with aggregate statistics.
//
// Entries carry a 1-10 mood score, free text, and tags, keyed on the
// anonymous session. The stats endpoint derives the average mood, a
// first-half versus second-half trend, the consecutive-day streak, and the
// most common score over a lookback window.
package journal

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/mbd888/mindsupport/internal/idgen"
	"github.com/mbd888/mindsupport/internal/logging"
	"github.com/mbd888/mindsupport/internal/session"
	"github.com/mbd888/mindsupport/internal/validation"
)

var (
	ErrEntryNotFound   = errors.New("journal entry not found")
	ErrInvalidMood     = errors.New("mood score must be between 1 and 10")
	ErrContentEmpty    = errors.New("journal content cannot be empty")
	ErrSessionRequired = errors.New("session ID required")
)

// Mood trends.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// trendDelta is how far the second-half average must move to count as a
// trend.
const trendDelta = 0.5

// streakScanLimit caps how many recent entries feed the streak
// calculation.
const streakScanLimit = 100

// Entry is one journal entry.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	MoodScore int       `json:"moodScore"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
}

// MoodStats is the aggregate view over a lookback window.
type MoodStats struct {
	AverageMood    float64 `json:"averageMood"`
	MoodTrend      string  `json:"moodTrend"`
	TotalEntries   int     `json:"totalEntries"`
	StreakDays     int     `json:"streakDays"`
	MostCommonMood int     `json:"mostCommonMood"`
}

// ListOptions filters entry listings.
type ListOptions struct {
	Limit  int
	Offset int
	Start  *time.Time
	End    *time.Time
}

// Store persists journal entries.
type Store interface {
	CreateEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, sessionID, id string) (*Entry, error)

	// ListBySession returns entries newest-first.
	ListBySession(ctx context.Context, sessionID string, opts ListOptions) ([]*Entry, error)

	// ListSince returns entries at or after since in chronological order.
	ListSince(ctx context.Context, sessionID string, since time.Time) ([]*Entry, error)

	DeleteEntry(ctx context.Context, sessionID, id string) error
	Count(ctx context.Context) (int, error)

	// AverageMood returns the platform-wide mean mood score, 0 when no
	// entries exist.
	AverageMood(ctx context.Context) (float64, error)
}

// Service provides journal operations.
type Service struct {
	store    Store
	sessions *session.Service
}

// NewService creates a journal service.
func NewService(store Store, sessions *session.Service) *Service {
	return &Service{store: store, sessions: sessions}
}

// Create validates and stores a new entry.
func (s *Service) Create(ctx context.Context, sessionID string, moodScore int, content string, tags []string) (*Entry, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if moodScore < 1 || moodScore > 10 {
		return nil, ErrInvalidMood
	}
	content = validation.SanitizeString(content, validation.MaxStringLength)
	if content == "" {
		return nil, ErrContentEmpty
	}
	if tags == nil {
		tags = []string{}
	}

	entry := &Entry{
		ID:        idgen.WithPrefix("jrn_"),
		SessionID: sessionID,
		MoodScore: moodScore,
		Content:   content,
		Tags:      tags,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	if err := s.sessions.RecordJournalEntry(ctx, sessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		logging.L(ctx).Warn("journal: session counter update failed", "error", err, "session", sessionID)
	}
	return entry, nil
}

// Entries lists a session's entries, newest first.
func (s *Service) Entries(ctx context.Context, sessionID string, opts ListOptions) ([]*Entry, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if opts.Limit <= 0 || opts.Limit > 100 {
		opts.Limit = 20
	}
	return s.store.ListBySession(ctx, sessionID, opts)
}

// Get retrieves one entry, scoped to the session.
func (s *Service) Get(ctx context.Context, sessionID, id string) (*Entry, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	return s.store.GetEntry(ctx, sessionID, id)
}

// Delete removes an entry and backs out the session counter.
func (s *Service) Delete(ctx context.Context, sessionID, id string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}
	if err := s.store.DeleteEntry(ctx, sessionID, id); err != nil {
		return err
	}
	if err := s.sessions.RemoveJournalEntry(ctx, sessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		logging.L(ctx).Warn("journal: session counter update failed", "error", err, "session", sessionID)
	}
	return nil
}

// Stats aggregates mood over the last days of entries.
func (s *Service) Stats(ctx context.Context, sessionID string, days int) (*MoodStats, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}
	if days <= 0 || days > 365 {
		days = 30
	}

	now := time.Now().UTC()
	entries, err := s.store.ListSince(ctx, sessionID, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return &MoodStats{MoodTrend: TrendStable}, nil
	}

	scores := make([]int, len(entries))
	sum := 0
	for i, e := range entries {
		scores[i] = e.MoodScore
		sum += e.MoodScore
	}
	avg := math.Round(float64(sum)/float64(len(scores))*10) / 10

	streak, err := s.streak(ctx, sessionID, now)
	if err != nil {
		return nil, err
	}

	return &MoodStats{
		AverageMood:    avg,
		MoodTrend:      trend(scores),
		TotalEntries:   len(entries),
		StreakDays:     streak,
		MostCommonMood: mostCommon(scores),
	}, nil
}

// trend compares the first and second half averages of chronological
// scores. Needs at least 4 entries to call anything but stable.
func trend(scores []int) string {
	if len(scores) < 4 {
		return TrendStable
	}

	mid := len(scores) / 2
	firstSum, secondSum := 0, 0
	for _, v := range scores[:mid] {
		firstSum += v
	}
	for _, v := range scores[mid:] {
		secondSum += v
	}
	first := float64(firstSum) / float64(mid)
	second := float64(secondSum) / float64(len(scores)-mid)

	switch {
	case second > first+trendDelta:
		return TrendImproving
	case second < first-trendDelta:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// streak counts consecutive days with at least one entry, walking back
// from today. A streak may start yesterday.
func (s *Service) streak(ctx context.Context, sessionID string, now time.Time) (int, error) {
	recent, err := s.store.ListBySession(ctx, sessionID, ListOptions{Limit: streakScanLimit})
	if err != nil {
		return 0, err
	}
	if len(recent) == 0 {
		return 0, nil
	}

	seen := make(map[string]bool, len(recent))
	var days []time.Time
	for _, e := range recent {
		d := e.CreatedAt.UTC().Truncate(24 * time.Hour)
		key := d.Format("2006-01-02")
		if !seen[key] {
			seen[key] = true
			days = append(days, d)
		}
	}
	// recent is newest-first, so days is already descending.

	streak := 0
	current := now.Truncate(24 * time.Hour)
	for _, d := range days {
		switch {
		case d.Equal(current):
			streak++
			current = current.AddDate(0, 0, -1)
		case d.Equal(current.AddDate(0, 0, -1)) && streak == 0:
			// Most recent entry was yesterday; the streak still counts.
			streak++
			current = d.AddDate(0, 0, -1)
		default:
			return streak, nil
		}
	}
	return streak, nil
}

// mostCommon returns the most frequent score, breaking ties toward the
// earliest seen.
func mostCommon(scores []int) int {
	counts := make(map[int]int)
	best, bestCount := 0, 0
	for _, v := range scores {
		counts[v]++
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// Count returns the platform-wide number of journal entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

// AverageMood returns the platform-wide mean mood score rounded to one
// decimal place.
func (s *Service) AverageMood(ctx context.Context) (float64, error) {
	avg, err := s.store.AverageMood(ctx)
	if err != nil {
		return 0, err
	}
	return math.Round(avg*10) / 10, nil
}
