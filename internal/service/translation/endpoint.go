package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"video-digest-service/internal/resilience"
)

// maxReplyBytes bounds how much of an endpoint reply is read.
const maxReplyBytes = 4 << 20

type pipelineRequest struct {
	PipelineTasks []pipelineTask `json:"pipelineTasks"`
	InputData     inputData      `json:"inputData"`
}

type pipelineTask struct {
	TaskType string     `json:"taskType"`
	Config   taskConfig `json:"config"`
}

type taskConfig struct {
	Language languagePair `json:"language"`
}

type languagePair struct {
	SourceLanguage string `json:"sourceLanguage"`
	TargetLanguage string `json:"targetLanguage"`
}

type inputData struct {
	Input []inputItem `json:"input"`
}

type inputItem struct {
	Source string `json:"source"`
}

// endpoint is one remote translation service in the ladder.
type endpoint struct {
	url     string
	name    string
	apiKey  string
	client  *http.Client
	breaker *resilience.Breaker
}

func newEndpoint(rawURL, apiKey string, client *http.Client, breaker *resilience.Breaker) *endpoint {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		name = u.Host
	}
	return &endpoint{
		url:     rawURL,
		name:    name,
		apiKey:  apiKey,
		client:  client,
		breaker: breaker,
	}
}

// call sends one translation request and returns the parsed reply text.
func (e *endpoint) call(ctx context.Context, text, source, target string) (string, error) {
	payload := pipelineRequest{
		PipelineTasks: []pipelineTask{{
			TaskType: "translation",
			Config: taskConfig{Language: languagePair{
				SourceLanguage: source,
				TargetLanguage: target,
			}},
		}},
		InputData: inputData{Input: []inputItem{{Source: text}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request %s: %w", e.name, err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("read reply from %s: %w", e.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d", e.name, resp.StatusCode)
	}
	return ParseReply(reply), nil
}
