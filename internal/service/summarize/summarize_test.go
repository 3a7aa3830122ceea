package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"google.golang.org/genai"

	"video-digest-service/internal/observability/metrics"
)

type fakeModel struct {
	calls  [][2]int
	fn     func(text string) (string, error)
	panics bool
}

func (f *fakeModel) Name() string { return "fake" }

func (f *fakeModel) Summarize(_ context.Context, text string, maxLen, minLen int) (string, error) {
	f.calls = append(f.calls, [2]int{maxLen, minLen})
	if f.panics {
		panic("model crashed")
	}
	return f.fn(text)
}

func TestBounds(t *testing.T) {
	tests := []struct {
		words   int
		wantMax int
		wantMin int
	}{
		{0, 80, 40},
		{100, 80, 40},
		{200, 80, 40},
		{300, 120, 60},
		{500, 200, 100},
		{1000, 250, 125},
	}
	for _, tt := range tests {
		maxLen, minLen := Bounds(tt.words)
		if maxLen != tt.wantMax || minLen != tt.wantMin {
			t.Errorf("Bounds(%d) = (%d, %d), want (%d, %d)", tt.words, maxLen, minLen, tt.wantMax, tt.wantMin)
		}
	}
}

func TestSummarize_ChunksInOrder(t *testing.T) {
	model := &fakeModel{fn: func(text string) (string, error) { return "[" + text[:1] + "]", nil }}
	o := NewOrchestrator(model, 5, metrics.NewMetrics(prometheus.NewRegistry()))

	got := o.Summarize(context.Background(), "aaaaabbbbbcc")
	if got != "[a] [b] [c]" {
		t.Errorf("unexpected summary %q", got)
	}
	if len(model.calls) != 3 {
		t.Errorf("expected 3 model calls, got %d", len(model.calls))
	}
}

func TestSummarize_ModelFailureUsesLeadSentences(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	model := &fakeModel{fn: func(string) (string, error) { return "", errors.New("oom") }}
	o := NewOrchestrator(model, 0, m)

	got := o.Summarize(context.Background(), "One. Two. Three. Four. Five.")
	if got != "One.  Two.  Three." {
		t.Errorf("unexpected summary %q", got)
	}
	if v := testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("summarize", "extractive")); v != 1 {
		t.Errorf("expected 1 extractive fallback, got %v", v)
	}
}

func TestSummarize_BlankModelOutputUsesLeadSentences(t *testing.T) {
	model := &fakeModel{fn: func(string) (string, error) { return "   ", nil }}
	o := NewOrchestrator(model, 0, metrics.NewMetrics(prometheus.NewRegistry()))

	if got := o.Summarize(context.Background(), "Alpha. Beta"); got != "Alpha.  Beta." {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestSummarize_PanicUsesLeadSentences(t *testing.T) {
	o := NewOrchestrator(&fakeModel{panics: true}, 0, metrics.NewMetrics(prometheus.NewRegistry()))
	if got := o.Summarize(context.Background(), "Alpha. Beta"); got != "Alpha.  Beta." {
		t.Errorf("unexpected summary %q", got)
	}
}

func TestSummarize_PassesBounds(t *testing.T) {
	model := &fakeModel{fn: func(string) (string, error) { return "ok", nil }}
	o := NewOrchestrator(model, 100000, metrics.NewMetrics(prometheus.NewRegistry()))

	o.Summarize(context.Background(), strings.Repeat("word ", 500))
	if len(model.calls) != 1 || model.calls[0] != [2]int{200, 100} {
		t.Errorf("unexpected bounds %v", model.calls)
	}
}

func TestSummarize_EmptyText(t *testing.T) {
	model := &fakeModel{fn: func(string) (string, error) { return "x", nil }}
	o := NewOrchestrator(model, 0, metrics.NewMetrics(prometheus.NewRegistry()))
	if got := o.Summarize(context.Background(), ""); got != "" {
		t.Errorf("expected empty summary, got %q", got)
	}
	if len(model.calls) != 0 {
		t.Errorf("expected no model calls, got %d", len(model.calls))
	}
}

func TestNilModelIsExtractive(t *testing.T) {
	o := NewOrchestrator(nil, 0, metrics.NewMetrics(prometheus.NewRegistry()))
	if o.ModelName() != "extractive" {
		t.Errorf("expected extractive, got %s", o.ModelName())
	}
}

func TestHuggingFace(t *testing.T) {
	var got hfRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/facebook/bart-large-cnn" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("unexpected auth %q", r.Header.Get("Authorization"))
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`[{"summary_text":"A short summary."}]`))
	}))
	defer srv.Close()

	h := NewHuggingFace(srv.URL, "", "tok", time.Second)
	out, err := h.Summarize(context.Background(), "long text", 80, 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "A short summary." {
		t.Errorf("unexpected summary %q", out)
	}
	if got.Parameters.MaxLength != 80 || got.Parameters.MinLength != 40 || got.Parameters.DoSample {
		t.Errorf("unexpected parameters %+v", got.Parameters)
	}
}

func TestHuggingFace_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"loading", http.StatusServiceUnavailable, `{"error":"Model is currently loading"}`},
		{"empty", http.StatusOK, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			if _, err := NewHuggingFace(srv.URL, "m", "", time.Second).Summarize(context.Background(), "x", 80, 40); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewGemini_RequiresKey(t *testing.T) {
	if _, err := NewGemini("", nil); err == nil {
		t.Error("expected error without keys")
	}
}

func TestGemini_RotatesKeys(t *testing.T) {
	g, _ := NewGemini("", []string{"k1", "k2"})
	if g.Name() != DefaultGeminiModel {
		t.Errorf("expected default model, got %s", g.Name())
	}
	g.rotate()
	if g.key() != "k2" {
		t.Errorf("expected k2 after rotation, got %s", g.key())
	}
	g.rotate()
	if g.key() != "k1" {
		t.Errorf("expected wrap to k1, got %s", g.key())
	}
}

func TestResponseText(t *testing.T) {
	result := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "Hello "}, {Text: "world"}}},
		}},
	}
	got, err := responseText(result)
	if err != nil || got != "Hello world" {
		t.Errorf("expected 'Hello world', got %q (%v)", got, err)
	}
	if _, err := responseText(&genai.GenerateContentResponse{}); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestIsQuotaError(t *testing.T) {
	if !isQuotaError(errors.New("Error 429: RESOURCE_EXHAUSTED")) {
		t.Error("expected quota error")
	}
	if isQuotaError(errors.New("invalid argument")) {
		t.Error("expected non-quota error")
	}
}
