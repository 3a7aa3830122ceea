package translation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"video-digest-service/internal/observability/metrics"
	"video-digest-service/internal/resilience"
)

type fakeEngine struct {
	calls int32
	fn    func(text string) (string, error)
}

func (f *fakeEngine) Translate(_ context.Context, text, _, _ string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.fn(text)
}

func testConfig(endpoints ...string) Config {
	return Config{
		APIKey:     "secret",
		Endpoints:  endpoints,
		ChunkChars: 1500,
		Timeout:    time.Second,
		Retry: resilience.RetryConfig{
			Attempts:  3,
			BaseDelay: time.Millisecond,
			MaxDelay:  5 * time.Millisecond,
		},
		Breaker: resilience.BreakerConfig{Threshold: 5, ResetTimeout: time.Minute},
	}
}

func TestTranslate_FastPath(t *testing.T) {
	secondary := &fakeEngine{fn: func(string) (string, error) { return "should not run", nil }}
	tr := New(testConfig(), secondary, metrics.NewMetrics(prometheus.NewRegistry()))

	if got := tr.Translate(context.Background(), "hello", "EN", "en"); got != "hello" {
		t.Errorf("expected unchanged text, got %q", got)
	}
	if got := tr.Translate(context.Background(), "   ", "en", "hi"); got != "   " {
		t.Errorf("expected blank text unchanged, got %q", got)
	}
	if secondary.calls != 0 {
		t.Errorf("expected no engine calls, got %d", secondary.calls)
	}
}

func TestTranslate_EndpointSuccess(t *testing.T) {
	var gotAuth string
	var gotBody pipelineRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"pipelineResponse":[{"output":[{"target":"नमस्ते दुनिया, आप कैसे हैं"}]}]}`))
	}))
	defer srv.Close()

	tr := New(testConfig(srv.URL), nil, metrics.NewMetrics(prometheus.NewRegistry()))
	got := tr.Translate(context.Background(), "Hello world, how are you", "en", "hi")

	if got != "नमस्ते दुनिया, आप कैसे हैं" {
		t.Errorf("unexpected translation %q", got)
	}
	if gotAuth != "secret" {
		t.Errorf("expected Authorization secret, got %q", gotAuth)
	}
	if len(gotBody.PipelineTasks) != 1 || gotBody.PipelineTasks[0].TaskType != "translation" {
		t.Errorf("unexpected pipeline tasks: %+v", gotBody.PipelineTasks)
	}
	lang := gotBody.PipelineTasks[0].Config.Language
	if lang.SourceLanguage != "en" || lang.TargetLanguage != "hi" {
		t.Errorf("unexpected language pair: %+v", lang)
	}
	if gotBody.InputData.Input[0].Source != "Hello world, how are you" {
		t.Errorf("unexpected source %q", gotBody.InputData.Input[0].Source)
	}
}

func TestTranslate_ShortReplyFallsToSecondary(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(`{"translatedText":"short"}`))
	}))
	defer srv.Close()

	m := metrics.NewMetrics(prometheus.NewRegistry())
	secondary := &fakeEngine{fn: func(text string) (string, error) { return "secondary:" + text, nil }}
	tr := New(testConfig(srv.URL), secondary, m)

	got := tr.Translate(context.Background(), "some english text", "en", "ta")
	if got != "secondary:some english text" {
		t.Errorf("unexpected translation %q", got)
	}
	if hits != 3 {
		t.Errorf("expected 3 endpoint attempts, got %d", hits)
	}
	if v := testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("translation", "secondary")); v != 1 {
		t.Errorf("expected 1 secondary fallback, got %v", v)
	}
}

func TestTranslate_IdentityDegradationReturnsTextExactly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.ChunkChars = 10
	m := metrics.NewMetrics(prometheus.NewRegistry())
	secondary := &fakeEngine{fn: func(string) (string, error) { return "", errors.New("down") }}
	tr := New(cfg, secondary, m)

	text := " Solar panels convert sunlight "
	got := tr.Translate(context.Background(), text, "en", "hi")
	if got != text {
		t.Errorf("expected %q unchanged, got %q", text, got)
	}
	if v := testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("translation", "identity")); v != 4 {
		t.Errorf("expected 4 identity fallbacks, got %v", v)
	}
}

func TestTranslate_PartialDegradationKeepsChunkOrder(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = ""
	cfg.ChunkChars = 10
	m := metrics.NewMetrics(prometheus.NewRegistry())
	secondary := &fakeEngine{fn: func(text string) (string, error) {
		if text == "bbbbbbbbbb" {
			return "B", nil
		}
		return "", errors.New("down")
	}}
	tr := New(cfg, secondary, m)

	got := tr.Translate(context.Background(), "aaaaaaaaaabbbbbbbbbbcccc", "en", "hi")
	if got != "aaaaaaaaaa B cccc" {
		t.Errorf("unexpected result %q", got)
	}
	if v := testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("translation", "identity")); v != 2 {
		t.Errorf("expected 2 identity fallbacks, got %v", v)
	}
}

func TestTranslate_NoAPIKeySkipsEndpoints(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""
	secondary := &fakeEngine{fn: func(string) (string, error) { return "hola", nil }}
	tr := New(cfg, secondary, metrics.NewMetrics(prometheus.NewRegistry()))

	if got := tr.Translate(context.Background(), "hello", "en", "es"); got != "hola" {
		t.Errorf("expected hola, got %q", got)
	}
	if hits != 0 {
		t.Errorf("expected endpoint not to be called, got %d hits", hits)
	}
}

func TestTranslate_OpenBreakerSkipsEndpoint(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.ChunkChars = 5
	cfg.Breaker = resilience.BreakerConfig{Threshold: 1, ResetTimeout: time.Hour}
	tr := New(cfg, nil, metrics.NewMetrics(prometheus.NewRegistry()))

	got := tr.Translate(context.Background(), "aaaaabbbbbccccc", "en", "hi")
	if got != "aaaaabbbbbccccc" {
		t.Errorf("unexpected result %q", got)
	}
	// First chunk exhausts the ladder and opens the breaker; later chunks skip it.
	if hits != 3 {
		t.Errorf("expected 3 endpoint hits, got %d", hits)
	}
}

func TestTranslate_CancelledContextDegradesToIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"translatedText":"this should never be seen"}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	secondary := &fakeEngine{fn: func(string) (string, error) { return "nope", nil }}
	tr := New(testConfig(srv.URL), secondary, metrics.NewMetrics(prometheus.NewRegistry()))

	if got := tr.Translate(ctx, "hello there", "en", "hi"); got != "hello there" {
		t.Errorf("expected identity, got %q", got)
	}
	if secondary.calls != 0 {
		t.Errorf("expected secondary not to run, got %d calls", secondary.calls)
	}
}

func TestTranslate_PanicReturnsInput(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = ""
	secondary := &fakeEngine{fn: func(string) (string, error) { panic("boom") }}
	tr := New(cfg, secondary, metrics.NewMetrics(prometheus.NewRegistry()))

	if got := tr.Translate(context.Background(), "hello", "en", "hi"); got != "hello" {
		t.Errorf("expected input back, got %q", got)
	}
}

func TestGoogleEngine(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("client") != "gtx" || q.Get("tl") != "es" || q.Get("sl") != "auto" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`[[["Hola ","Hello ",null,null,10],["mundo","world",null,null,10]],null,"en"]`))
	}))
	defer srv.Close()

	g := NewGoogleEngine(srv.URL, srv.Client())
	got, err := g.Translate(context.Background(), "Hello world", "", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hola mundo" {
		t.Errorf("expected 'Hola mundo', got %q", got)
	}
}

func TestGoogleEngine_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"bad status", http.StatusTooManyRequests, ``},
		{"malformed", http.StatusOK, `<html>`},
		{"empty", http.StatusOK, `[[],null,"en"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			if _, err := NewGoogleEngine(srv.URL, srv.Client()).Translate(context.Background(), "x", "en", "hi"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"pipeline target", `{"pipelineResponse":[{"output":[{"target":"a"},{"target":"b"}]}]}`, "a b"},
		{"pipeline translatedText", `{"pipelineResponse":[{"output":[{"translatedText":"x"}]}]}`, "x"},
		{"output list", `{"output":[{"target":" y "}]}`, "y"},
		{"top level", `{"translatedText":"z"}`, "z"},
		{"empty pipeline falls through", `{"pipelineResponse":[],"translatedText":"w"}`, "w"},
		{"unknown shape", `{"foo":"bar"}`, ""},
		{"array root", `["a"]`, ""},
		{"not json", `oops`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseReply([]byte(tt.body)); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.ChunkChars != 1500 {
		t.Errorf("expected chunk size 1500, got %d", cfg.ChunkChars)
	}
	if len(cfg.Endpoints) != 2 || !strings.Contains(cfg.Endpoints[0], "dhruva") {
		t.Errorf("unexpected endpoints %v", cfg.Endpoints)
	}
}
