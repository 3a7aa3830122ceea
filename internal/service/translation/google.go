package translation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultGoogleURL is the public web translation endpoint.
const DefaultGoogleURL = "https://translate.googleapis.com/translate_a/single"

// GoogleEngine translates through the Google Translate web endpoint.
type GoogleEngine struct {
	BaseURL string
	Client  *http.Client
}

// NewGoogleEngine creates the secondary engine. An empty baseURL uses DefaultGoogleURL.
func NewGoogleEngine(baseURL string, client *http.Client) *GoogleEngine {
	if baseURL == "" {
		baseURL = DefaultGoogleURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &GoogleEngine{BaseURL: baseURL, Client: client}
}

// Translate implements Engine.
func (g *GoogleEngine) Translate(ctx context.Context, text, source, target string) (string, error) {
	if source == "" {
		source = "auto"
	}
	q := url.Values{}
	q.Set("client", "gtx")
	q.Set("sl", source)
	q.Set("tl", target)
	q.Set("dt", "t")
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("google translate: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google translate returned status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("google translate returned malformed reply")
	}

	// [[["translated","original",...],...],null,"en"]
	var sb strings.Builder
	for _, segment := range gjson.GetBytes(body, "0").Array() {
		sb.WriteString(segment.Get("0").String())
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("google translate returned no text")
	}
	return out, nil
}
