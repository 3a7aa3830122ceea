package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Hugging Face Inference API defaults.
const (
	DefaultHFBaseURL = "https://api-inference.huggingface.co/models"
	DefaultHFModel   = "facebook/bart-large-cnn"
)

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

// HuggingFace calls a hosted summarization model.
type HuggingFace struct {
	BaseURL string
	Model   string
	Token   string
	Client  *http.Client
}

// NewHuggingFace creates the model client.
func NewHuggingFace(baseURL, model, token string, timeout time.Duration) *HuggingFace {
	if baseURL == "" {
		baseURL = DefaultHFBaseURL
	}
	if model == "" {
		model = DefaultHFModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HuggingFace{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Token:   token,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Name implements Model.
func (h *HuggingFace) Name() string { return h.Model }

// Summarize implements Model.
func (h *HuggingFace) Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs:     text,
		Parameters: hfParameters{MaxLength: maxLen, MinLength: minLen, DoSample: false},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/"+h.Model, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.Token != "" {
		req.Header.Set("Authorization", "Bearer "+h.Token)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarize request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if msg := gjson.GetBytes(raw, "error").String(); msg != "" {
			return "", fmt.Errorf("summarize: %s (status %d)", msg, resp.StatusCode)
		}
		return "", fmt.Errorf("summarize: status %d", resp.StatusCode)
	}

	// [{"summary_text": "..."}]
	summary := gjson.GetBytes(raw, "0.summary_text").String()
	if strings.TrimSpace(summary) == "" {
		return "", fmt.Errorf("summarize: empty summary")
	}
	return summary, nil
}
