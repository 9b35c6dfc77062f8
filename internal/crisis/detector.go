package crisis

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// keyword pairs the catalog spelling (reported in triggers) with the
// punctuation-normalized form used for substring matching.
type keyword struct {
	pattern    string
	normalized string
}

// phrase pairs a crisis-phrase source with its compiled regex.
type phrase struct {
	pattern string
	re      *regexp.Regexp
}

// Detector scores messages against a compiled catalog. It holds no mutable
// state after construction and is safe for concurrent use without locks.
type Detector struct {
	high     []keyword
	medium   []keyword
	low      []keyword
	phrases  []phrase
	negative []string
	weights  Weights
}

// NewDetector compiles a catalog into a detector. Returns an error if any
// crisis-phrase regex fails to compile.
func NewDetector(cat Catalog) (*Detector, error) {
	w := cat.Weights
	if w == (Weights{}) {
		w = DefaultWeights()
	}

	d := &Detector{
		high:     compileKeywords(cat.HighRisk),
		medium:   compileKeywords(cat.MediumRisk),
		low:      compileKeywords(cat.LowRisk),
		negative: lowerAll(cat.NegativeMood),
		weights:  w,
	}

	for _, src := range cat.CrisisPhrases {
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, fmt.Errorf("compile crisis phrase %q: %w", src, err)
		}
		d.phrases = append(d.phrases, phrase{pattern: src, re: re})
	}

	return d, nil
}

// MustNewDetector is NewDetector panicking on a bad catalog. For use with
// static catalogs validated by tests.
func MustNewDetector(cat Catalog) *Detector {
	d, err := NewDetector(cat)
	if err != nil {
		panic(err)
	}
	return d
}

// ScoreMessage evaluates a single message. Empty or whitespace-only input
// yields the zero assessment; this never fails.
//
// Keywords are matched as substrings against the punctuation-normalized
// lowercase text, once per keyword regardless of occurrence count. Crisis
// phrases are matched as regexes against the lowercase original so that
// word boundaries survive.
func (d *Detector) ScoreMessage(text string) Assessment {
	if strings.TrimSpace(text) == "" {
		return Assessment{RiskLevel: LevelNone, Triggers: []Trigger{}}
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	normalized := normalizeText(lower)

	triggers := []Trigger{}
	score := 0

	for _, kw := range d.high {
		if strings.Contains(normalized, kw.normalized) {
			triggers = append(triggers, Trigger{Tier: TierHigh, Pattern: kw.pattern})
			score += d.weights.High
		}
	}
	for _, p := range d.phrases {
		if p.re.MatchString(lower) {
			triggers = append(triggers, Trigger{Tier: TierPhrase, Pattern: p.pattern})
			score += d.weights.Phrase
		}
	}
	for _, kw := range d.medium {
		if strings.Contains(normalized, kw.normalized) {
			triggers = append(triggers, Trigger{Tier: TierMedium, Pattern: kw.pattern})
			score += d.weights.Medium
		}
	}
	for _, kw := range d.low {
		if strings.Contains(normalized, kw.normalized) {
			triggers = append(triggers, Trigger{Tier: TierLow, Pattern: kw.pattern})
			score += d.weights.Low
		}
	}

	level, detected := classifyMessage(score)

	return Assessment{
		RiskScore:      score,
		RiskLevel:      level,
		CrisisDetected: detected,
		Confidence:     confidence(float64(score)),
		Triggers:       triggers,
	}
}

// ScoreConversation evaluates the most recent user messages of a
// conversation, most-recent-last. At most the last 5 are considered.
func (d *Detector) ScoreConversation(userMessages []string) ConversationAssessment {
	if len(userMessages) > conversationWindow {
		userMessages = userMessages[len(userMessages)-conversationWindow:]
	}
	if len(userMessages) == 0 {
		return ConversationAssessment{RiskLevel: LevelNone, Triggers: []Trigger{}}
	}

	scores := make([]int, len(userMessages))
	total := 0
	triggers := []Trigger{}
	seen := make(map[Trigger]bool)

	for i, msg := range userMessages {
		a := d.ScoreMessage(msg)
		scores[i] = a.RiskScore
		total += a.RiskScore
		for _, t := range a.Triggers {
			if !seen[t] {
				seen[t] = true
				triggers = append(triggers, t)
			}
		}
	}

	escalating := detectEscalation(scores)
	persistent := d.detectPersistentNegative(userMessages)

	adjusted := float64(total) / float64(len(userMessages))
	if escalating {
		adjusted *= escalationMultiplier
	}
	if persistent {
		adjusted *= persistentMultiplier
	}

	level, detected := classifyConversation(adjusted)

	return ConversationAssessment{
		RiskScore:      adjusted,
		RiskLevel:      level,
		CrisisDetected: detected,
		Confidence:     confidence(adjusted),
		Escalating:     escalating,
		Persistent:     persistent,
		MessageCount:   len(userMessages),
		Triggers:       triggers,
	}
}

// detectEscalation reports whether the last two message scores average more
// than 1.3x the average of the earlier ones. Needs at least 3 messages.
func detectEscalation(scores []int) bool {
	if len(scores) < 3 {
		return false
	}
	recent := float64(scores[len(scores)-2]+scores[len(scores)-1]) / 2.0

	earlier := 0
	for _, s := range scores[:len(scores)-2] {
		earlier += s
	}
	earlierAvg := float64(earlier) / float64(len(scores)-2)

	return recent > earlierAvg*1.3
}

// detectPersistentNegative reports whether more than 60% of the messages
// contain a negative-mood indicator. Needs at least 3 messages.
func (d *Detector) detectPersistentNegative(messages []string) bool {
	if len(messages) < 3 {
		return false
	}

	count := 0
	for _, msg := range messages {
		lower := strings.ToLower(msg)
		for _, word := range d.negative {
			if strings.Contains(lower, word) {
				count++
				break
			}
		}
	}

	return float64(count)/float64(len(messages)) > 0.6
}

func classifyMessage(score int) (RiskLevel, bool) {
	switch {
	case score >= messageHighThreshold:
		return LevelHigh, true
	case score >= messageMediumThreshold:
		return LevelMedium, true
	case score >= messageLowThreshold:
		return LevelLow, false
	default:
		return LevelNone, false
	}
}

func classifyConversation(score float64) (RiskLevel, bool) {
	switch {
	case score >= conversationHighThreshold:
		return LevelHigh, true
	case score >= conversationMediumThreshold:
		return LevelMedium, true
	case score >= conversationLowThreshold:
		return LevelLow, false
	default:
		return LevelNone, false
	}
}

func confidence(score float64) float64 {
	c := score / 20.0
	if c > 1.0 {
		return 1.0
	}
	if c < 0 {
		return 0
	}
	return c
}

// normalizeText replaces every rune that is not a letter, digit,
// underscore, or whitespace with a single space. Whitespace is not
// collapsed, so catalog keywords normalized the same way line up.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func compileKeywords(words []string) []keyword {
	out := make([]keyword, 0, len(words))
	for _, w := range words {
		lower := strings.ToLower(w)
		out = append(out, keyword{pattern: w, normalized: normalizeText(lower)})
	}
	return out
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, strings.ToLower(w))
	}
	return out
}
