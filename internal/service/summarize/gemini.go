package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

const geminiPrompt = `Summarize the following transcript excerpt in English.
Write plain prose between %d and %d words. Do not add headings, lists or commentary.

Transcript:
---
%s
---`

// Gemini summarizes through the Gemini API, rotating API keys on quota errors.
type Gemini struct {
	model string
	keys  []string

	mu      sync.Mutex
	current int
}

// NewGemini creates a Gemini model. At least one API key is required.
func NewGemini(model string, keys []string) (*Gemini, error) {
	if len(keys) == 0 {
		return nil, errors.New("gemini: at least one api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{model: model, keys: keys}, nil
}

// Name implements Model.
func (g *Gemini) Name() string { return g.model }

// Summarize implements Model.
func (g *Gemini) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	prompt := fmt.Sprintf(geminiPrompt, minLen, maxLen, text)

	var lastErr error
	for range len(g.keys) {
		key := g.key()

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			g.rotate()
			continue
		}

		result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
		if err != nil {
			if isQuotaError(err) {
				g.rotate()
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generate content: %w", err)
		}
		return responseText(result)
	}
	return "", fmt.Errorf("all API keys exhausted: %w", lastErr)
}

func (g *Gemini) key() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.keys[g.current]
}

func (g *Gemini) rotate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = (g.current + 1) % len(g.keys)
}

func isQuotaError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", errors.New("empty response from Gemini")
	}
	return sb.String(), nil
}
