// Package chat implements the supportive chat pipeline.
//
// Every inbound message runs through the same mediation sequence: persist
// the user message, score it and the recent conversation for crisis risk,
// record an alert on the session when risk crosses the crisis line, then
// generate a supportive reply. Persistence trouble degrades the response
// rather than failing the exchange; someone mid-crisis never sees a 500.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/mindsupport/internal/assistant"
	"github.com/mbd888/mindsupport/internal/crisis"
	"github.com/mbd888/mindsupport/internal/idgen"
	"github.com/mbd888/mindsupport/internal/logging"
	"github.com/mbd888/mindsupport/internal/metrics"
	"github.com/mbd888/mindsupport/internal/pagination"
	"github.com/mbd888/mindsupport/internal/session"
	"github.com/mbd888/mindsupport/internal/traces"
	"github.com/mbd888/mindsupport/internal/validation"
)

var (
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrSessionRequired = errors.New("session ID required")
)

// historyWindow is how many recent messages feed scoring and generation.
const historyWindow = 20

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one chat message.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Exchange is the result of one mediated chat round trip.
type Exchange struct {
	UserMessage     *Message          `json:"userMessage"`
	AIMessage       *Message          `json:"aiMessage"`
	CrisisDetected  bool              `json:"crisisDetected"`
	CrisisResources *crisis.Resources `json:"crisisResources,omitempty"`
	ConversationID  string            `json:"conversationId"`
	Degraded        bool              `json:"degraded,omitempty"`
}

// Store persists chat messages.
type Store interface {
	AppendMessage(ctx context.Context, m *Message) error

	// ListRecent returns the most recent limit messages in chronological
	// order.
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*Message, error)

	// ListAfter returns up to limit messages after the cursor position in
	// chronological order.
	ListAfter(ctx context.Context, sessionID string, after *pagination.Cursor, limit int) ([]*Message, error)

	// DeleteBySession removes all messages for a session and reports how
	// many were deleted.
	DeleteBySession(ctx context.Context, sessionID string) (int, error)

	// CountMessages returns the total number of stored messages.
	CountMessages(ctx context.Context) (int, error)
}

// EventEmitter publishes chat events to live subscribers. Implementations
// must not block.
type EventEmitter interface {
	CrisisAlert(sessionID string, alert crisis.Alert)
	ChatActivity(sessionID string, riskLevel crisis.RiskLevel)
}

// Service runs the chat mediation pipeline.
type Service struct {
	store     Store
	sessions  *session.Service
	detector  *crisis.Detector
	replies   *assistant.Service
	resources crisis.Resources
	events    EventEmitter
}

// NewService creates a chat service.
func NewService(store Store, sessions *session.Service, detector *crisis.Detector, replies *assistant.Service) *Service {
	return &Service{
		store:     store,
		sessions:  sessions,
		detector:  detector,
		replies:   replies,
		resources: crisis.DefaultResources(),
	}
}

// WithEvents attaches a live event emitter.
func (s *Service) WithEvents(events EventEmitter) *Service {
	s.events = events
	return s
}

// Send runs one message through the mediation pipeline. sessionID may be
// empty for anonymous one-off messages; session bookkeeping is skipped.
func (s *Service) Send(ctx context.Context, sessionID, text string) (*Exchange, error) {
	text = validation.SanitizeString(text, validation.MaxStringLength)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	ctx, span := traces.StartSpan(ctx, "chat.Send", traces.SessionID(sessionID))
	defer span.End()

	log := logging.L(ctx)
	now := time.Now().UTC()
	userMsg := &Message{
		ID:        idgen.New(),
		SessionID: sessionID,
		Role:      RoleUser,
		Content:   text,
		Timestamp: now,
	}

	if err := s.store.AppendMessage(ctx, userMsg); err != nil {
		log.Error("chat: storing user message failed", "error", err)
		return s.degraded(userMsg, sessionID), nil
	}
	metrics.ChatMessagesTotal.WithLabelValues(RoleUser).Inc()

	history, err := s.store.ListRecent(ctx, sessionID, historyWindow)
	if err != nil {
		log.Error("chat: loading history failed", "error", err)
		return s.degraded(userMsg, sessionID), nil
	}

	// Score the message on its own and in conversation context; either
	// crossing the crisis line counts.
	msgRisk := s.detector.ScoreMessage(text)
	convRisk := s.detector.ScoreConversation(userContents(history))
	crisisDetected := msgRisk.CrisisDetected || convRisk.CrisisDetected

	if crisisDetected && sessionID != "" {
		alert := buildAlert(msgRisk, convRisk, now)
		span.SetAttributes(traces.RiskLevel(string(alert.RiskLevel)))
		metrics.CrisisDetectionsTotal.WithLabelValues(string(alert.RiskLevel), alert.Source).Inc()
		if err := s.sessions.RecordCrisisAlert(ctx, sessionID, alert); err != nil {
			log.Error("chat: recording crisis alert failed", "error", err, "session", sessionID)
		}
		if s.events != nil {
			s.events.CrisisAlert(sessionID, alert)
		}
	}

	reply := s.replies.Reply(ctx, toTurns(history), crisisDetected)

	aiMsg := &Message{
		ID:        idgen.New(),
		SessionID: sessionID,
		Role:      RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, aiMsg); err != nil {
		log.Error("chat: storing assistant message failed", "error", err)
	}
	metrics.ChatMessagesTotal.WithLabelValues(RoleAssistant).Inc()

	if sessionID != "" {
		if err := s.sessions.RecordMessages(ctx, sessionID, 2); err != nil {
			log.Warn("chat: session counter update failed", "error", err, "session", sessionID)
		}
		if s.events != nil {
			level := msgRisk.RiskLevel
			if convRisk.CrisisDetected && !msgRisk.CrisisDetected {
				level = convRisk.RiskLevel
			}
			s.events.ChatActivity(sessionID, level)
		}
	}

	ex := &Exchange{
		UserMessage:    userMsg,
		AIMessage:      aiMsg,
		CrisisDetected: crisisDetected,
		ConversationID: sessionID,
	}
	if crisisDetected {
		res := s.resources
		ex.CrisisResources = &res
	}
	return ex, nil
}

// degraded builds the response used when persistence is unavailable. The
// caller still gets supportive text and crisis pointers.
func (s *Service) degraded(userMsg *Message, sessionID string) *Exchange {
	return &Exchange{
		UserMessage: userMsg,
		AIMessage: &Message{
			ID:        idgen.New(),
			SessionID: sessionID,
			Role:      RoleAssistant,
			Content:   assistant.DegradedResponse,
			Timestamp: time.Now().UTC(),
		},
		ConversationID: sessionID,
		Degraded:       true,
	}
}

// History returns a page of the session's messages in chronological order.
func (s *Service) History(ctx context.Context, sessionID, cursor string, limit int) ([]*Message, string, bool, error) {
	if sessionID == "" {
		return nil, "", false, ErrSessionRequired
	}
	if limit <= 0 {
		limit = 50
	}

	after, err := pagination.Decode(cursor)
	if err != nil {
		return nil, "", false, err
	}

	msgs, err := s.store.ListAfter(ctx, sessionID, after, limit+1)
	if err != nil {
		return nil, "", false, err
	}

	page, next, hasMore := pagination.ComputePage(msgs, limit, func(m *Message) (time.Time, string) {
		return m.Timestamp, m.ID
	})
	return page, next, hasMore, nil
}

// Clear deletes the session's chat history and resets its message counter.
func (s *Service) Clear(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, ErrSessionRequired
	}

	deleted, err := s.store.DeleteBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	if err := s.sessions.ResetMessages(ctx, sessionID); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		logging.L(ctx).Warn("chat: resetting session counter failed", "error", err, "session", sessionID)
	}
	return deleted, nil
}

// Count returns the platform-wide number of stored messages.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.CountMessages(ctx)
}

// buildAlert derives the session alert from whichever assessment crossed
// the crisis line, preferring the single-message one.
func buildAlert(msg crisis.Assessment, conv crisis.ConversationAssessment, at time.Time) crisis.Alert {
	if msg.CrisisDetected {
		return crisis.Alert{
			RiskLevel:  msg.RiskLevel,
			Confidence: msg.Confidence,
			Triggers:   msg.Triggers,
			Source:     "message",
			Timestamp:  at.Unix(),
		}
	}
	return crisis.Alert{
		RiskLevel:  conv.RiskLevel,
		Confidence: conv.Confidence,
		Triggers:   conv.Triggers,
		Source:     "conversation",
		Timestamp:  at.Unix(),
	}
}

func userContents(history []*Message) []string {
	var out []string
	for _, m := range history {
		if m.Role == RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}

func toTurns(history []*Message) []assistant.Turn {
	turns := make([]assistant.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, assistant.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
