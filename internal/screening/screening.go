// Package screening implements standardized mental-health self-assessments.
//
// Two instruments are supported: PHQ-9 (depression, 9 items) and GAD-7
// (anxiety, 7 items). Both take item scores of 0-3, sum them, and map the
// total onto clinical severity bands with an interpretation and
// recommendations. PHQ-9 item 9 asks about self-harm; any positive answer
// flags a crisis regardless of the total.
package screening

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/mindsupport/internal/crisis"
	"github.com/mbd888/mindsupport/internal/idgen"
	"github.com/mbd888/mindsupport/internal/logging"
	"github.com/mbd888/mindsupport/internal/metrics"
	"github.com/mbd888/mindsupport/internal/session"
	"github.com/mbd888/mindsupport/internal/traces"
)

var (
	ErrWrongAnswerCount  = errors.New("wrong number of answers for instrument")
	ErrAnswerOutOfRange  = errors.New("answer scores must be between 0 and 3")
	ErrInvalidQuestions  = errors.New("answers must cover each question exactly once")
	ErrInvalidInstrument = errors.New("invalid screening instrument")
	ErrNotFound          = errors.New("screening not found")
)

// Instruments.
const (
	InstrumentPHQ9 = "phq9"
	InstrumentGAD7 = "gad7"
)

// Severity bands.
const (
	SeverityMinimal          = "minimal"
	SeverityMild             = "mild"
	SeverityModerate         = "moderate"
	SeverityModeratelySevere = "moderately_severe"
	SeveritySevere           = "severe"
)

// gad7CrisisThreshold flags severe anxiety totals even though GAD-7 has no
// self-harm item.
const gad7CrisisThreshold = 15

// Answer is one item response.
type Answer struct {
	Question int `json:"question"`
	Score    int `json:"score"`
}

// Result is a completed screening.
type Result struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"sessionId,omitempty"`
	Instrument      string    `json:"instrument"`
	TotalScore      int       `json:"totalScore"`
	Severity        string    `json:"severity"`
	Interpretation  string    `json:"interpretation"`
	Recommendations []string  `json:"recommendations"`
	CrisisDetected  bool      `json:"crisisDetected"`
	Answers         []Answer  `json:"answers"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Store persists screening results.
type Store interface {
	SaveResult(ctx context.Context, r *Result) error

	// ListBySession returns results newest-first, optionally filtered by
	// instrument.
	ListBySession(ctx context.Context, sessionID, instrument string, limit int) ([]*Result, error)

	Count(ctx context.Context) (int, error)
}

// EventEmitter publishes completed screenings to live subscribers.
// Implementations must not block.
type EventEmitter interface {
	ScreeningCompleted(sessionID, instrument, severity string, score int)
}

// Service provides screening operations.
type Service struct {
	store     Store
	sessions  *session.Service
	events    EventEmitter
	resources crisis.Resources
}

// NewService creates a screening service.
func NewService(store Store, sessions *session.Service) *Service {
	return &Service{
		store:     store,
		sessions:  sessions,
		resources: crisis.DefaultResources(),
	}
}

// WithEvents attaches an event emitter. Optional.
func (s *Service) WithEvents(events EventEmitter) *Service {
	s.events = events
	return s
}

// Submit scores and stores a completed screening. Persistence failures are
// logged but never fail the submission; the caller always gets the scored
// result.
func (s *Service) Submit(ctx context.Context, sessionID, instrument string, answers []Answer) (*Result, *crisis.Resources, error) {
	ctx, span := traces.StartSpan(ctx, "screening.Submit",
		traces.SessionID(sessionID), traces.Instrument(instrument))
	defer span.End()

	var wantItems int
	switch instrument {
	case InstrumentPHQ9:
		wantItems = 9
	case InstrumentGAD7:
		wantItems = 7
	default:
		return nil, nil, ErrInvalidInstrument
	}

	if len(answers) != wantItems {
		return nil, nil, ErrWrongAnswerCount
	}
	// Answers may arrive in any order; each question 1..N must appear
	// exactly once.
	seen := make([]bool, wantItems)
	total := 0
	selfHarmScore := 0
	for _, a := range answers {
		if a.Question < 1 || a.Question > wantItems || seen[a.Question-1] {
			return nil, nil, ErrInvalidQuestions
		}
		seen[a.Question-1] = true
		if a.Score < 0 || a.Score > 3 {
			return nil, nil, ErrAnswerOutOfRange
		}
		total += a.Score
		if a.Question == 9 {
			selfHarmScore = a.Score
		}
	}

	var severity, interpretation string
	var recommendations []string
	var crisisDetected bool
	if instrument == InstrumentPHQ9 {
		severity, interpretation, recommendations = interpretPHQ9(total)
		// Question 9 is the self-harm item; any positive answer is a
		// crisis regardless of the total.
		crisisDetected = selfHarmScore >= 1
	} else {
		severity, interpretation, recommendations = interpretGAD7(total)
		crisisDetected = total >= gad7CrisisThreshold
	}

	now := time.Now().UTC()
	result := &Result{
		ID:              idgen.WithPrefix("scr_"),
		SessionID:       sessionID,
		Instrument:      instrument,
		TotalScore:      total,
		Severity:        severity,
		Interpretation:  interpretation,
		Recommendations: recommendations,
		CrisisDetected:  crisisDetected,
		Answers:         answers,
		CreatedAt:       now,
	}

	metrics.ScreeningsTotal.WithLabelValues(instrument, severity).Inc()
	if s.events != nil {
		s.events.ScreeningCompleted(sessionID, instrument, severity, total)
	}

	log := logging.L(ctx)
	if err := s.store.SaveResult(ctx, result); err != nil {
		log.Error("screening: storing result failed", "error", err, "instrument", instrument)
	} else if sessionID != "" {
		err := s.sessions.RecordScreening(ctx, sessionID, session.ScreeningSummary{
			ID:          result.ID,
			Instrument:  instrument,
			Score:       total,
			Severity:    severity,
			CompletedAt: now,
		})
		if err != nil && !errors.Is(err, session.ErrSessionNotFound) {
			log.Warn("screening: session history update failed", "error", err, "session", sessionID)
		}
	}

	var res *crisis.Resources
	if crisisDetected {
		r := s.resources
		res = &r
	}
	return result, res, nil
}

// History returns the session's screenings, newest first.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]*Result, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return s.store.ListBySession(ctx, sessionID, "", limit)
}

// Latest returns the most recent screening, optionally for one instrument.
func (s *Service) Latest(ctx context.Context, sessionID, instrument string) (*Result, error) {
	if instrument != "" && instrument != InstrumentPHQ9 && instrument != InstrumentGAD7 {
		return nil, ErrInvalidInstrument
	}
	results, err := s.store.ListBySession(ctx, sessionID, instrument, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return results[0], nil
}

// Count returns the platform-wide number of completed screenings.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func interpretPHQ9(total int) (severity, interpretation string, recommendations []string) {
	switch {
	case total <= 4:
		return SeverityMinimal, "Minimal depression symptoms", []string{
			"Continue with healthy lifestyle habits",
			"Stay connected with friends and family",
			"Regular exercise and good sleep hygiene",
		}
	case total <= 9:
		return SeverityMild, "Mild depression symptoms", []string{
			"Consider talking to a counselor or therapist",
			"Practice stress management techniques",
			"Maintain regular social activities",
			"Monitor your mood and symptoms",
		}
	case total <= 14:
		return SeverityModerate, "Moderate depression symptoms", []string{
			"Strongly consider professional mental health support",
			"Talk to your primary care doctor",
			"Consider therapy or counseling",
			"Reach out to trusted friends or family",
		}
	case total <= 19:
		return SeverityModeratelySevere, "Moderately severe depression symptoms", []string{
			"Seek professional help from a mental health provider",
			"Consider both therapy and medication evaluation",
			"Create a safety plan if needed",
			"Involve trusted support persons in your care",
		}
	default:
		return SeveritySevere, "Severe depression symptoms", []string{
			"Seek immediate professional mental health care",
			"Contact your doctor or mental health provider today",
			"Consider crisis resources if having thoughts of self-harm",
			"Call 988 if experiencing suicidal thoughts",
		}
	}
}

func interpretGAD7(total int) (severity, interpretation string, recommendations []string) {
	switch {
	case total <= 4:
		return SeverityMinimal, "Minimal anxiety symptoms", []string{
			"Continue with healthy stress management",
			"Practice relaxation techniques",
			"Maintain regular exercise and sleep",
		}
	case total <= 9:
		return SeverityMild, "Mild anxiety symptoms", []string{
			"Practice deep breathing and mindfulness",
			"Consider stress reduction techniques",
			"Monitor anxiety triggers",
			"Consider talking to a counselor if symptoms persist",
		}
	case total <= 14:
		return SeverityModerate, "Moderate anxiety symptoms", []string{
			"Consider professional mental health support",
			"Practice anxiety management techniques",
			"Talk to your primary care doctor",
			"Consider therapy or counseling",
		}
	default:
		return SeveritySevere, "Severe anxiety symptoms", []string{
			"Seek professional mental health care",
			"Consider both therapy and medication evaluation",
			"Practice immediate anxiety relief techniques",
			"Reach out to trusted support persons",
		}
	}
}
