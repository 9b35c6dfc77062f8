package screening

import (
	"context"
	"errors"
	"testing"

	"github.com/mbd888/mindsupport/internal/session"
)

func newTestService(t *testing.T) (*Service, *session.Service) {
	t.Helper()
	sessions := session.NewService(session.NewMemoryStore())
	return NewService(NewMemoryStore(), sessions), sessions
}

func answers(scores ...int) []Answer {
	out := make([]Answer, len(scores))
	for i, s := range scores {
		out[i] = Answer{Question: i + 1, Score: s}
	}
	return out
}

func TestSubmitPHQ9_SeverityBands(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		scores   []int
		severity string
	}{
		{[]int{0, 0, 0, 1, 1, 0, 0, 0, 0}, SeverityMinimal},           // 2
		{[]int{1, 1, 1, 1, 1, 1, 1, 0, 0}, SeverityMild},              // 7
		{[]int{2, 2, 2, 2, 2, 1, 1, 0, 0}, SeverityModerate},          // 12
		{[]int{2, 2, 2, 2, 2, 2, 2, 2, 0}, SeverityModeratelySevere},  // 16
		{[]int{3, 3, 3, 3, 3, 3, 2, 2, 0}, SeveritySevere},            // 23
	}

	for _, tt := range tests {
		result, _, err := svc.Submit(ctx, "", InstrumentPHQ9, answers(tt.scores...))
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if result.Severity != tt.severity {
			t.Errorf("Scores %v: severity = %s, want %s (total %d)",
				tt.scores, result.Severity, tt.severity, result.TotalScore)
		}
		if len(result.Recommendations) == 0 {
			t.Error("Expected recommendations")
		}
	}
}

func TestSubmitPHQ9_Item9Crisis(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Minimal total but a positive self-harm answer is still a crisis.
	result, resources, err := svc.Submit(ctx, "", InstrumentPHQ9,
		answers(0, 0, 0, 0, 0, 0, 0, 0, 1))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !result.CrisisDetected {
		t.Error("Positive item 9 must flag a crisis")
	}
	if resources == nil {
		t.Error("Expected crisis resources attached")
	}

	// High total but zero on item 9 is not a crisis.
	result, resources, _ = svc.Submit(ctx, "", InstrumentPHQ9,
		answers(3, 3, 3, 3, 3, 3, 3, 3, 0))
	if result.CrisisDetected {
		t.Error("Zero item 9 must not flag a crisis")
	}
	if resources != nil {
		t.Error("No crisis resources expected")
	}
}

func TestSubmitPHQ9_ShuffledAnswers(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// The self-harm flag must key off the question number, not the slice
	// position. Question 9 listed first, scored 3, everything else zero.
	shuffled := []Answer{
		{Question: 9, Score: 3},
		{Question: 1, Score: 0},
		{Question: 2, Score: 0},
		{Question: 3, Score: 0},
		{Question: 4, Score: 0},
		{Question: 5, Score: 0},
		{Question: 6, Score: 0},
		{Question: 7, Score: 0},
		{Question: 8, Score: 0},
	}
	result, resources, err := svc.Submit(ctx, "", InstrumentPHQ9, shuffled)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !result.CrisisDetected {
		t.Error("Positive question 9 must flag a crisis regardless of answer order")
	}
	if resources == nil {
		t.Error("Expected crisis resources attached")
	}
	if result.TotalScore != 3 {
		t.Errorf("TotalScore = %d, want 3", result.TotalScore)
	}

	// Reverse order with question 9 zeroed: high total, no crisis.
	var reversed []Answer
	for q := 9; q >= 1; q-- {
		score := 3
		if q == 9 {
			score = 0
		}
		reversed = append(reversed, Answer{Question: q, Score: score})
	}
	result, _, err = svc.Submit(ctx, "", InstrumentPHQ9, reversed)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.CrisisDetected {
		t.Error("Zero question 9 must not flag a crisis regardless of answer order")
	}
}

func TestSubmitGAD7_SeverityAndCrisis(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		scores   []int
		severity string
		crisis   bool
	}{
		{[]int{0, 0, 1, 1, 0, 0, 0}, SeverityMinimal, false},  // 2
		{[]int{1, 1, 1, 1, 1, 1, 1}, SeverityMild, false},     // 7
		{[]int{2, 2, 2, 2, 2, 1, 1}, SeverityModerate, false}, // 12
		{[]int{3, 3, 2, 2, 2, 2, 1}, SeveritySevere, true},    // 15
		{[]int{3, 3, 3, 3, 3, 3, 3}, SeveritySevere, true},    // 21
	}

	for _, tt := range tests {
		result, _, err := svc.Submit(ctx, "", InstrumentGAD7, answers(tt.scores...))
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if result.Severity != tt.severity {
			t.Errorf("Scores %v: severity = %s, want %s", tt.scores, result.Severity, tt.severity)
		}
		if result.CrisisDetected != tt.crisis {
			t.Errorf("Scores %v: crisis = %v, want %v (total %d)",
				tt.scores, result.CrisisDetected, tt.crisis, result.TotalScore)
		}
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Submit(ctx, "", InstrumentPHQ9, answers(1, 1, 1))
	if !errors.Is(err, ErrWrongAnswerCount) {
		t.Errorf("Expected ErrWrongAnswerCount, got %v", err)
	}

	_, _, err = svc.Submit(ctx, "", InstrumentGAD7, answers(1, 1, 1, 1, 1, 1, 4))
	if !errors.Is(err, ErrAnswerOutOfRange) {
		t.Errorf("Expected ErrAnswerOutOfRange, got %v", err)
	}

	_, _, err = svc.Submit(ctx, "", "mmpi", answers(1))
	if !errors.Is(err, ErrInvalidInstrument) {
		t.Errorf("Expected ErrInvalidInstrument, got %v", err)
	}

	// Question 2 answered twice, question 9 missing.
	dup := answers(0, 0, 0, 0, 0, 0, 0, 0, 0)
	dup[8].Question = 2
	_, _, err = svc.Submit(ctx, "", InstrumentPHQ9, dup)
	if !errors.Is(err, ErrInvalidQuestions) {
		t.Errorf("Expected ErrInvalidQuestions for duplicate question, got %v", err)
	}

	// Question number outside the instrument's range.
	bad := answers(0, 0, 0, 0, 0, 0, 0)
	bad[6].Question = 12
	_, _, err = svc.Submit(ctx, "", InstrumentGAD7, bad)
	if !errors.Is(err, ErrInvalidQuestions) {
		t.Errorf("Expected ErrInvalidQuestions for out-of-range question, got %v", err)
	}
}

func TestSubmit_RecordsSessionHistory(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()

	sess, _ := sessions.Create(ctx, "", "")
	result, _, err := svc.Submit(ctx, sess.ID, InstrumentPHQ9,
		answers(2, 2, 2, 2, 2, 1, 1, 0, 0))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	got, _ := sessions.Get(ctx, sess.ID)
	if len(got.ScreeningHistory) != 1 {
		t.Fatalf("Expected 1 screening in session history, got %d", len(got.ScreeningHistory))
	}
	entry := got.ScreeningHistory[0]
	if entry.ID != result.ID || entry.Instrument != InstrumentPHQ9 {
		t.Errorf("Unexpected history entry: %+v", entry)
	}
	if entry.Score != 12 || entry.Severity != SeverityModerate {
		t.Errorf("Unexpected score/severity: %+v", entry)
	}
}

func TestHistoryAndLatest(t *testing.T) {
	svc, sessions := newTestService(t)
	ctx := context.Background()
	sess, _ := sessions.Create(ctx, "", "")

	svc.Submit(ctx, sess.ID, InstrumentPHQ9, answers(1, 1, 1, 1, 1, 1, 1, 0, 0))
	svc.Submit(ctx, sess.ID, InstrumentGAD7, answers(2, 2, 2, 2, 2, 1, 1))

	history, err := svc.History(ctx, sess.ID, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 screenings, got %d", len(history))
	}
	// Newest first.
	if history[0].Instrument != InstrumentGAD7 {
		t.Errorf("Expected newest first, got %s", history[0].Instrument)
	}

	latest, err := svc.Latest(ctx, sess.ID, "")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Instrument != InstrumentGAD7 {
		t.Errorf("Expected latest gad7, got %s", latest.Instrument)
	}

	latestPHQ, err := svc.Latest(ctx, sess.ID, InstrumentPHQ9)
	if err != nil {
		t.Fatalf("Latest phq9 failed: %v", err)
	}
	if latestPHQ.Instrument != InstrumentPHQ9 {
		t.Errorf("Expected phq9, got %s", latestPHQ.Instrument)
	}
}

func TestLatest_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Latest(context.Background(), "no-such-session", "")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLatest_InvalidInstrument(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Latest(context.Background(), "any", "bdi")
	if !errors.Is(err, ErrInvalidInstrument) {
		t.Errorf("Expected ErrInvalidInstrument, got %v", err)
	}
}
