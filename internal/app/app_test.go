package app

import (
	"context"
	"testing"

	"video-digest-service/internal/config"
	"video-digest-service/internal/service/pipeline"
)

func newTestConfig(t *testing.T) *config.Configuration {
	t.Helper()
	cfg := config.Defaults()
	cfg.Service.WorkDir = t.TempDir()
	cfg.Translation.GoogleFallback = false
	cfg.TTS.BaseURL = "http://127.0.0.1:1/translate_tts"
	return cfg
}

func TestStart_WiresPipeline(t *testing.T) {
	a := New(newTestConfig(t))
	if a.Ready() {
		t.Fatal("expected application not ready before Start")
	}

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer a.Shutdown()

	if !a.Ready() {
		t.Error("expected application ready after Start")
	}
	if a.Coordinator == nil || a.Publisher == nil {
		t.Fatal("expected coordinator and publisher to be built")
	}
	if a.Publisher.Enabled() {
		t.Error("expected kafka publisher disabled by default")
	}

	models := a.Models()
	if models["transcription"] != "mock" || models["summarization"] != "extractive" {
		t.Errorf("unexpected models %v", models)
	}
	if models["translation"] != "none" {
		t.Errorf("expected translation none without key or fallback, got %s", models["translation"])
	}
}

func TestStart_ProcessesTranscriptOffline(t *testing.T) {
	a := New(newTestConfig(t))
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer a.Shutdown()

	transcript := "Solar panels convert sunlight into electricity. Wind turbines turn moving air into power. " +
		"Both are getting cheaper every year. Storage is still the main challenge for the grid."

	res, err := a.Coordinator.Process(context.Background(), pipeline.Request{Transcript: transcript})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.EnglishSummary == "" || res.Summary != res.EnglishSummary {
		t.Errorf("expected english summary passed through, got %q / %q", res.EnglishSummary, res.Summary)
	}
	if !res.Metrics.SilentAudio {
		t.Error("expected silent audio when speech synthesis is unreachable")
	}
	if snap := a.Accumulator.Snapshot(); snap.SuccessfulRequests != 1 {
		t.Errorf("expected 1 successful request, got %d", snap.SuccessfulRequests)
	}
}

func TestStart_InvalidConfig(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.STT.Provider = "unknown"

	a := New(cfg)
	if err := a.Start(context.Background()); err == nil {
		t.Error("expected invalid configuration error")
	}
	if a.Ready() {
		t.Error("expected application not ready")
	}
}
