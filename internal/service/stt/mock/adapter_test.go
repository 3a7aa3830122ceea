package mock

import (
	"context"
	"errors"
	"testing"

	"video-digest-service/internal/service/stt"
)

func TestEngine_DefaultSegments(t *testing.T) {
	e := New()
	segments, err := e.Transcribe(context.Background(), "a.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != len(DefaultSegments) {
		t.Errorf("expected %d segments, got %d", len(DefaultSegments), len(segments))
	}
	if calls := e.Calls(); len(calls) != 1 || calls[0] != "a.wav" {
		t.Errorf("unexpected calls %v", calls)
	}
}

func TestEngine_WithText(t *testing.T) {
	segments, _ := New().WithText("ok thanks.").Transcribe(context.Background(), "a.wav")
	if stt.JoinSegments(segments) != "ok thanks." {
		t.Errorf("unexpected text %q", stt.JoinSegments(segments))
	}
}

func TestEngine_WithError(t *testing.T) {
	want := errors.New("model crashed")
	if _, err := New().WithError(want).Transcribe(context.Background(), "a.wav"); !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Transcribe(ctx, "a.wav"); err == nil {
		t.Error("expected context error")
	}
}
