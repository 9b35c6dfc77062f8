// Package assistant generates supportive chat replies.
//
// The primary generator is the Gemini REST API. Generation is wrapped in a
// circuit breaker and retry so upstream trouble degrades to canned
// supportive responses instead of failing the chat request. Reply never
// returns an error; callers always get usable text.
package assistant

import (
	"context"
	"strings"
	"time"

	"github.com/mbd888/mindsupport/internal/circuitbreaker"
	"github.com/mbd888/mindsupport/internal/logging"
	"github.com/mbd888/mindsupport/internal/metrics"
	"github.com/mbd888/mindsupport/internal/retry"
)

// Turn is one message of conversation history, oldest first.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Generator produces a reply from conversation history.
type Generator interface {
	Generate(ctx context.Context, history []Turn, crisisDetected bool) (string, error)
}

const breakerKey = "gemini"

// DegradedResponse is returned by the chat pipeline when persistence is
// unavailable and no history can be loaded.
const DegradedResponse = "I'm here to listen and support you. If you're experiencing a crisis, please reach out to 988 or your local emergency services immediately."

const crisisFallback = `I'm concerned about what you've shared. You don't have to go through this alone. Please reach out for immediate support:
• Call 988 (Suicide & Crisis Lifeline)
• Text HOME to 741741 (Crisis Text Line)
• Call 911 if you're in immediate danger

Professional counselors are available 24/7 and want to help.`

// Service wraps a Generator with resilience and fallback responses.
type Service struct {
	gen     Generator
	breaker *circuitbreaker.Breaker
}

// NewService creates an assistant service. gen may be nil, in which case
// every reply is a fallback.
func NewService(gen Generator) *Service {
	return &Service{
		gen:     gen,
		breaker: circuitbreaker.New(5, 30*time.Second),
	}
}

// Reply generates a supportive response for the conversation. The last
// entry of history is the user message being answered.
func (s *Service) Reply(ctx context.Context, history []Turn, crisisDetected bool) string {
	lastUser := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "user" {
			lastUser = history[i].Content
			break
		}
	}

	if s.gen == nil || !s.breaker.Allow(breakerKey) {
		metrics.AssistantRepliesTotal.WithLabelValues("fallback").Inc()
		return Fallback(lastUser, crisisDetected)
	}

	var text string
	err := retry.Do(ctx, 2, 200*time.Millisecond, func() error {
		var genErr error
		text, genErr = s.gen.Generate(ctx, history, crisisDetected)
		return genErr
	})
	if err != nil {
		s.breaker.RecordFailure(breakerKey)
		logging.L(ctx).Warn("assistant generation failed, using fallback", "error", err)
		metrics.AssistantRepliesTotal.WithLabelValues("fallback").Inc()
		return Fallback(lastUser, crisisDetected)
	}

	s.breaker.RecordSuccess(breakerKey)
	metrics.AssistantRepliesTotal.WithLabelValues("generated").Inc()
	return strings.TrimSpace(text)
}

// Fallback returns a canned supportive response keyed off the user's
// message. Crisis messages always get the crisis resources text.
func Fallback(userMessage string, crisisDetected bool) string {
	if crisisDetected {
		return crisisFallback
	}

	lower := strings.ToLower(userMessage)
	switch {
	case containsAny(lower, "anxious", "anxiety", "worried", "nervous"):
		return "I hear that you're feeling anxious. Anxiety is very common and manageable. " +
			"Try this grounding technique: Name 5 things you can see, 4 things you can touch, " +
			"3 things you can hear, 2 things you can smell, and 1 thing you can taste. " +
			"Would you like to tell me more about what's causing your anxiety?"
	case containsAny(lower, "sad", "depressed", "down", "hopeless"):
		return "I'm sorry you're feeling this way. Your feelings are valid, and it's okay to not be okay sometimes. " +
			"Depression can make everything feel harder, but with support and time, things can improve. " +
			"Have you been able to talk to anyone about how you're feeling?"
	case containsAny(lower, "stressed", "overwhelmed", "too much"):
		return "Feeling overwhelmed is really difficult. Let's try to break things down into smaller pieces. " +
			"What feels most urgent or important right now? Sometimes focusing on just one thing at a time " +
			"can help make everything feel more manageable."
	default:
		return "I'm here to listen and support you. It sounds like you're going through something difficult. " +
			"Would you like to share more about what's on your mind? Sometimes talking about our feelings " +
			"can help us process them better."
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
