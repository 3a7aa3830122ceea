// Package whisper provides an OpenAI-compatible transcription engine.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-digest-service/internal/service/stt"
)

// Defaults for the hosted OpenAI API.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "whisper-1"
	DefaultTimeout = 10 * time.Minute
)

// Config holds engine settings.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string // optional ISO-639-1 hint
	Timeout  time.Duration
}

// Engine implements stt.Engine against /audio/transcriptions.
type Engine struct {
	cfg    Config
	client *http.Client
}

type transcriptionResponse struct {
	Text     string `json:"text"`
	Segments []struct {
		Text       string  `json:"text"`
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// New creates a whisper engine.
func New(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Engine{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Name implements stt.Engine.
func (e *Engine) Name() string { return "whisper" }

// Transcribe uploads the audio file and returns the verbose_json segments.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) ([]stt.Segment, error) {
	if strings.TrimSpace(e.cfg.APIKey) == "" {
		return nil, errors.New("whisper: api key is required")
	}
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: read audio: %w", err)
	}

	body, contentType, err := buildForm(e.cfg, filepath.Base(audioPath), audio)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(e.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisper: request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("whisper: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("whisper: %s (status %d)", apiErr.Error.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("whisper: status %d", resp.StatusCode)
	}

	var parsed transcriptionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("whisper: decode response: %w", err)
	}
	return toSegments(parsed), nil
}

func buildForm(cfg Config, filename string, audio []byte) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("model", cfg.Model); err != nil {
		return nil, "", fmt.Errorf("whisper: write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, "", fmt.Errorf("whisper: write response_format field: %w", err)
	}
	if lang := strings.TrimSpace(cfg.Language); lang != "" {
		if err := writer.WriteField("language", lang); err != nil {
			return nil, "", fmt.Errorf("whisper: write language field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("whisper: create file form field: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("whisper: write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func toSegments(resp transcriptionResponse) []stt.Segment {
	if len(resp.Segments) == 0 {
		if strings.TrimSpace(resp.Text) == "" {
			return nil
		}
		return []stt.Segment{{Text: resp.Text}}
	}
	segments := make([]stt.Segment, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		segments = append(segments, stt.Segment{
			Text:  s.Text,
			Start: s.Start,
			End:   s.End,
		})
	}
	return segments
}
