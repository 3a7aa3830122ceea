package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	apperrors "video-digest-service/internal/errors"
	"video-digest-service/internal/models"
	"video-digest-service/internal/observability/metrics"
	"video-digest-service/internal/service/pipeline"
)

type fakeProcessor struct {
	mu       sync.Mutex
	requests []pipeline.Request
	uploads  []string
	err      error
}

func (f *fakeProcessor) Process(_ context.Context, req pipeline.Request) (*models.DigestResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Upload != nil {
		data, _ := io.ReadAll(req.Upload)
		f.uploads = append(f.uploads, string(data))
	}
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if strings.Contains(req.SourceURL, "private") {
		return nil, apperrors.New(apperrors.CodeAcquisitionFailed, "Video is private.")
	}
	return &models.DigestResult{
		RequestID:      "r-" + req.SourceURL,
		Status:         models.StatusSuccess,
		EnglishSummary: "summary",
		Summary:        "summary",
		TargetLanguage: req.TargetLanguage,
	}, nil
}

func newTestRouter(p Processor) http.Handler {
	acc := metrics.NewAccumulator()
	acc.RecordStart()
	acc.RecordSuccess(4, time.Unix(0, 0))
	return newRouter(&Handlers{
		Processor:      p,
		Accumulator:    acc,
		Models:         func() map[string]string { return map[string]string{"summarization": "extractive"} },
		Uptime:         func() time.Duration { return 90 * time.Minute },
		Ready:          func() bool { return true },
		MaxUploadBytes: 1 << 20,
	})
}

func multipartBody(t *testing.T, fields map[string]string, file string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != "" {
		fw, err := mw.CreateFormFile("file", "talk.mp4")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(file))
	}
	mw.Close()
	return buf, mw.FormDataContentType()
}

func TestSummarize_URL(t *testing.T) {
	p := &fakeProcessor{}
	router := newTestRouter(p)

	body, ct := multipartBody(t, map[string]string{"video_url": "https://youtu.be/x", "language": "hi"}, "")
	req := httptest.NewRequest(http.MethodPost, "/summarize", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(p.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(p.requests))
	}
	got := p.requests[0]
	if got.SourceURL != "https://youtu.be/x" || got.TargetLanguage != "hi" {
		t.Errorf("unexpected request %+v", got)
	}
	if got.RequestID == "" {
		t.Error("expected generated request id")
	}

	var res models.DigestResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != models.StatusSuccess {
		t.Errorf("expected success, got %s", res.Status)
	}
}

func TestSummarize_IgnoresClientRequestID(t *testing.T) {
	p := &fakeProcessor{}
	router := newTestRouter(p)

	body, ct := multipartBody(t, map[string]string{"transcript": "ok thanks."}, "")
	req := httptest.NewRequest(http.MethodPost, "/summarize", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("X-Request-Id", "../victim")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	id := p.requests[0].RequestID
	if id == "../victim" {
		t.Fatal("expected client request id to be ignored")
	}
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected uuid request id, got %q", id)
	}
}

func TestSummarize_Upload(t *testing.T) {
	p := &fakeProcessor{}
	router := newTestRouter(p)

	body, ct := multipartBody(t, map[string]string{"language": "en"}, "video-bytes")
	req := httptest.NewRequest(http.MethodPost, "/summarize", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if p.requests[0].UploadName != "talk.mp4" {
		t.Errorf("expected upload name talk.mp4, got %q", p.requests[0].UploadName)
	}
	if len(p.uploads) != 1 || p.uploads[0] != "video-bytes" {
		t.Errorf("expected upload content to reach processor, got %v", p.uploads)
	}
}

func TestSummarize_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", apperrors.New(apperrors.CodeInvalidRequest, "No video URL, file or transcript provided"), http.StatusBadRequest, "INVALID_REQUEST"},
		{"acquisition", apperrors.New(apperrors.CodeAcquisitionFailed, "Video is private."), http.StatusBadRequest, "ACQUISITION_FAILED"},
		{"transcription", apperrors.New(apperrors.CodeTranscriptionFailed, "transcription failed"), http.StatusInternalServerError, "TRANSCRIPTION_FAILED"},
		{"plain", io.ErrUnexpectedEOF, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeProcessor{err: tt.err})
			body, ct := multipartBody(t, map[string]string{"url": "https://youtu.be/x"}, "")
			req := httptest.NewRequest(http.MethodPost, "/summarize", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			var res models.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if res.Status != "error" || res.Code != tt.code {
				t.Errorf("expected error code %s, got %+v", tt.code, res)
			}
		})
	}
}

func TestSummarize_UploadTooLarge(t *testing.T) {
	p := &fakeProcessor{}
	router := newRouter(&Handlers{Processor: p, Accumulator: metrics.NewAccumulator(), MaxUploadBytes: 64})

	body, ct := multipartBody(t, nil, strings.Repeat("x", 1024))
	req := httptest.NewRequest(http.MethodPost, "/summarize", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
	if len(p.requests) != 0 {
		t.Error("expected processor not to run")
	}
}

func TestBatchSummarize(t *testing.T) {
	p := &fakeProcessor{}
	router := newTestRouter(p)

	payload := `{"language":"ta","videos":[{"url":"https://youtu.be/a"},{"url":"https://youtu.be/private","language":"hi"}]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/batch-summarize", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var res struct {
		Status         string        `json:"status"`
		ProcessedCount int           `json:"processed_count"`
		Results        []batchResult `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.ProcessedCount != 2 {
		t.Fatalf("expected 2 results, got %d", res.ProcessedCount)
	}
	if res.Results[0].Status != "processed" || res.Results[0].TargetLanguage != "ta" {
		t.Errorf("unexpected first result %+v", res.Results[0])
	}
	if res.Results[1].Status != "error" || res.Results[1].Code != "ACQUISITION_FAILED" {
		t.Errorf("unexpected second result %+v", res.Results[1])
	}
	if p.requests[1].TargetLanguage != "hi" {
		t.Errorf("expected per-video language to win, got %s", p.requests[1].TargetLanguage)
	}
	if p.requests[0].RequestID == "" || p.requests[0].RequestID == p.requests[1].RequestID {
		t.Errorf("expected distinct request ids, got %q and %q", p.requests[0].RequestID, p.requests[1].RequestID)
	}
}

func TestBatchSummarize_Empty(t *testing.T) {
	router := newTestRouter(&fakeProcessor{})

	for _, body := range []string{`{"videos":[]}`, `not json`} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/batch-summarize", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestInfoEndpoints(t *testing.T) {
	router := newTestRouter(&fakeProcessor{})

	tests := []struct {
		path string
		want string
	}{
		{"/health", `"status":"healthy"`},
		{"/api/models", `"current_model":{"summarization":"extractive"}`},
		{"/api/metrics", `"uptime_hours":1.5`},
		{"/api/metrics", `"total_requests":1`},
		{"/v1/liveness", "ok"},
		{"/v1/readiness", "ready"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("expected 200, got %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("expected body to contain %s, got %s", tt.want, rec.Body.String())
			}
		})
	}
}

func TestWriteJSON_EncodeFailureIsLogged(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]any{"bad": make(chan int)})

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %s", ct)
	}
}
