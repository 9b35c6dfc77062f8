package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mbd888/mindsupport/internal/crisis"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

// ---------------------------------------------------------------------------
// shouldSend tests
// ---------------------------------------------------------------------------

func TestShouldSend_AllEvents(t *testing.T) {
	h := testHub()
	client := &Client{sub: Subscription{AllEvents: true}}

	event := &Event{Type: EventCrisisAlert, Timestamp: time.Now()}
	if !h.shouldSend(client, event) {
		t.Error("AllEvents client should receive all events")
	}
}

func TestShouldSend_EventTypeFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		EventTypes: []EventType{EventCrisisAlert, EventScreeningCompleted},
	}}

	alertEvent := &Event{Type: EventCrisisAlert}
	screeningEvent := &Event{Type: EventScreeningCompleted}
	chatEvent := &Event{Type: EventChatActivity}

	if !h.shouldSend(client, alertEvent) {
		t.Error("Should receive crisis_alert events")
	}
	if !h.shouldSend(client, screeningEvent) {
		t.Error("Should receive screening_completed events")
	}
	if h.shouldSend(client, chatEvent) {
		t.Error("Should NOT receive chat_activity events")
	}
}

func TestShouldSend_SessionFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		SessionIDs: []string{"sess-1"},
	}}

	matching := &Event{
		Type: EventChatActivity,
		Data: map[string]interface{}{"sessionId": "sess-1"},
	}
	notMatching := &Event{
		Type: EventChatActivity,
		Data: map[string]interface{}{"sessionId": "sess-2"},
	}

	if !h.shouldSend(client, matching) {
		t.Error("Should match watched session")
	}
	if h.shouldSend(client, notMatching) {
		t.Error("Should NOT match unrelated session")
	}
}

func TestShouldSend_MinRiskFilter(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		MinRisk: crisis.LevelMedium,
	}}

	high := &Event{
		Type: EventCrisisAlert,
		Data: map[string]interface{}{"riskLevel": "high"},
	}
	medium := &Event{
		Type: EventCrisisAlert,
		Data: map[string]interface{}{"riskLevel": "medium"},
	}
	low := &Event{
		Type: EventChatActivity,
		Data: map[string]interface{}{"riskLevel": "low"},
	}
	noRisk := &Event{
		Type: EventScreeningCompleted,
		Data: map[string]interface{}{"instrument": "phq9"},
	}

	if !h.shouldSend(client, high) {
		t.Error("Should receive high risk event")
	}
	if !h.shouldSend(client, medium) {
		t.Error("Should receive medium risk event")
	}
	if h.shouldSend(client, low) {
		t.Error("Should NOT receive low risk event")
	}
	if h.shouldSend(client, noRisk) {
		t.Error("Should NOT receive events without a risk level when MinRisk set")
	}
}

func TestShouldSend_EmptySubscription(t *testing.T) {
	h := testHub()

	// No filters, not AllEvents
	client := &Client{sub: Subscription{}}

	event := &Event{Type: EventCrisisAlert}
	if !h.shouldSend(client, event) {
		t.Error("Empty subscription (no filters) should receive events")
	}
}

func TestShouldSend_NonMapData(t *testing.T) {
	h := testHub()

	client := &Client{sub: Subscription{
		SessionIDs: []string{"sess-1"},
	}}

	// Event with non-map data should not crash
	event := &Event{
		Type: EventChatActivity,
		Data: "string data not a map",
	}

	if h.shouldSend(client, event) {
		t.Error("Session filter should reject events it cannot extract a session from")
	}
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalEvents"].(int64) != 0 {
		t.Errorf("Expected 0 total events, got %v", stats["totalEvents"])
	}
}

func TestHub_BroadcastAndStats(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	h.Broadcast(&Event{Type: EventChatActivity, Timestamp: time.Now()})
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["totalEvents"].(int64) != 1 {
		t.Errorf("Expected 1 total event, got %v", stats["totalEvents"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_CrisisAlertReachesClient(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{AllEvents: true},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.CrisisAlert("sess-1", crisis.Alert{
		RiskLevel:  crisis.LevelHigh,
		Confidence: 0.9,
		Source:     "message",
	})

	select {
	case msg := <-client.send:
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("Failed to parse event: %v", err)
		}
		if event.Type != EventCrisisAlert {
			t.Errorf("Expected crisis_alert, got %s", event.Type)
		}
		if !strings.Contains(string(msg), `"sessionId":"sess-1"`) {
			t.Errorf("Expected sessionId in payload: %s", msg)
		}
		if !strings.Contains(string(msg), `"riskLevel":"high"`) {
			t.Errorf("Expected riskLevel in payload: %s", msg)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for crisis alert")
	}
}

func TestHub_ScreeningCompletedBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Should not panic even with no clients
	h.ScreeningCompleted("sess-1", "phq9", "moderate", 12)
	h.ChatActivity("sess-1", crisis.LevelNone)
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}

func TestHub_FilteredBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	// Client only wants crisis alerts
	client := &Client{
		hub:  h,
		send: make(chan []byte, 256),
		sub:  Subscription{EventTypes: []EventType{EventCrisisAlert}},
	}

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	// Chat activity should be filtered out
	h.ChatActivity("sess-1", crisis.LevelLow)
	time.Sleep(100 * time.Millisecond)

	select {
	case <-client.send:
		t.Error("Client should NOT receive chat_activity event")
	default:
		// Good - filtered out
	}

	// Crisis alert should be received
	h.CrisisAlert("sess-1", crisis.Alert{RiskLevel: crisis.LevelMedium, Source: "message"})

	select {
	case msg := <-client.send:
		if len(msg) == 0 {
			t.Error("Expected non-empty message")
		}
	case <-time.After(time.Second):
		t.Error("Client should receive crisis alert")
	}
}
