package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// historyWindow is how many recent turns are sent upstream.
const historyWindow = 10

const systemPrompt = `You are a supportive mental health companion. Your role is to:

1. Provide empathetic, non-judgmental support
2. Offer evidence-based coping strategies
3. Encourage professional help when appropriate
4. NEVER provide medical diagnosis or treatment advice
5. Always include crisis resources if someone expresses suicidal thoughts

Guidelines:
- Be warm, understanding, and validating
- Ask open-ended questions to encourage sharing
- Suggest grounding techniques, breathing exercises, or mindfulness when helpful
- Keep responses concise but meaningful (under 200 words)
- If someone mentions self-harm or suicide, express concern and provide crisis resources
- Encourage professional help for persistent or severe symptoms

Remember: You are not a replacement for professional mental health care.`

const crisisInstruction = "[CRISIS DETECTED - Please provide immediate support and crisis resources]"

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

var _ Generator = (*GeminiClient)(nil)

// NewGeminiClient creates a Gemini REST client.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint. For tests.
func (g *GeminiClient) WithBaseURL(u string) *GeminiClient {
	g.baseURL = strings.TrimRight(u, "/")
	return g
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate produces a reply via the Gemini API.
func (g *GeminiClient) Generate(ctx context.Context, history []Turn, crisisDetected bool) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("gemini: no API key configured")
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: buildPrompt(history, crisisDetected)}}},
		},
		GenerationConfig: geminiGenConfig{
			MaxOutputTokens: 300,
			Temperature:     0.7,
			TopP:            0.9,
			TopK:            40,
		},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: empty response")
	}

	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

// buildPrompt flattens the system prompt and recent history into a single
// text prompt.
func buildPrompt(history []Turn, crisisDetected bool) string {
	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")

	for _, t := range recent {
		switch t.Role {
		case "user":
			b.WriteString("User: " + t.Content + "\n")
		case "assistant":
			b.WriteString("Assistant: " + t.Content + "\n")
		}
	}

	if crisisDetected {
		b.WriteString("\n" + crisisInstruction)
	}
	return b.String()
}
