// Package admin provides admin-only endpoints for platform oversight:
// usage statistics, counselor application review, and rate limit
// inspection. Everything here sits behind an admin API key.
package admin

import "time"

// PlatformStats is the roll-up reported by GET /admin/stats.
type PlatformStats struct {
	TotalSessions       int       `json:"totalSessions"`
	SessionsWithCrisis  int       `json:"sessionsWithCrisis"`
	TotalMessages       int       `json:"totalMessages"`
	ScreeningsCompleted int       `json:"screeningsCompleted"`
	TotalJournalEntries int       `json:"totalJournalEntries"`
	AverageMood         float64   `json:"averageMood"`
	VerifiedCounselors  int       `json:"verifiedCounselors"`
	PendingCounselors   int       `json:"pendingCounselors"`
	GeneratedAt         time.Time `json:"generatedAt"`
}
