// Package crisis implements lexical crisis-risk detection for chat messages.
//
// Every user message is scored against tiered keyword catalogs plus a set of
// crisis-phrase regexes, producing a weighted risk score, a discrete risk
// level, and an auditable trigger list. Conversations are additionally scored
// over a rolling window of recent user messages with escalation and
// persistent-negative-mood pattern detection. Scoring is deterministic and
// side-effect-free; detection never blocks a request.
package crisis

// RiskLevel is the discrete classification of a risk score.
type RiskLevel string

const (
	LevelNone   RiskLevel = "none"
	LevelLow    RiskLevel = "low"
	LevelMedium RiskLevel = "medium"
	LevelHigh   RiskLevel = "high"
)

// Trigger tiers.
const (
	TierHigh   = "high_risk"
	TierPhrase = "crisis_phrase"
	TierMedium = "medium_risk"
	TierLow    = "low_risk"
)

// Single-message classification thresholds. The spacing is uneven on
// purpose; these values are tuned and must not be rebalanced.
const (
	messageHighThreshold   = 10
	messageMediumThreshold = 7
	messageLowThreshold    = 4
)

// Conversation-level thresholds, applied after pattern multipliers.
const (
	conversationHighThreshold   = 12.0
	conversationMediumThreshold = 8.0
	conversationLowThreshold    = 4.0
)

// Pattern multipliers compound when both apply.
const (
	escalationMultiplier = 1.5
	persistentMultiplier = 1.2
)

// conversationWindow is the number of recent user messages considered.
const conversationWindow = 5

// Trigger records a single catalog match.
type Trigger struct {
	Tier    string `json:"tier"`
	Pattern string `json:"pattern"`
}

// Assessment is the result of scoring a single message.
type Assessment struct {
	RiskScore      int       `json:"riskScore"`
	RiskLevel      RiskLevel `json:"riskLevel"`
	CrisisDetected bool      `json:"crisisDetected"`
	Confidence     float64   `json:"confidence"`
	Triggers       []Trigger `json:"triggers"`
}

// ConversationAssessment aggregates per-message scores over the recent
// window and adds pattern flags.
type ConversationAssessment struct {
	RiskScore      float64   `json:"riskScore"` // adjusted average
	RiskLevel      RiskLevel `json:"riskLevel"`
	CrisisDetected bool      `json:"crisisDetected"`
	Confidence     float64   `json:"confidence"`
	Escalating     bool      `json:"escalatingPattern"`
	Persistent     bool      `json:"persistentNegativeMood"`
	MessageCount   int       `json:"messageCount"`
	Triggers       []Trigger `json:"triggers"`
}

// Alert is the record appended to a session when a crisis is detected.
type Alert struct {
	RiskLevel  RiskLevel `json:"riskLevel"`
	Confidence float64   `json:"confidence"`
	Triggers   []Trigger `json:"triggers"`
	Source     string    `json:"source"` // "message" or "conversation"
	Timestamp  int64     `json:"timestamp"`
}
