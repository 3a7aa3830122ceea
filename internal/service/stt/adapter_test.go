package stt_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	apperrors "video-digest-service/internal/errors"
	"video-digest-service/internal/service/stt"
	"video-digest-service/internal/service/stt/mock"
)

func TestTranscriber_WritesTranscript(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.wav")
	if err := os.WriteFile(audio, []byte("wav"), 0o644); err != nil {
		t.Fatal(err)
	}

	engine := mock.New().WithSegments(
		stt.Segment{Text: " hello "},
		stt.Segment{Text: ""},
		stt.Segment{Text: "world"},
	)
	text, err := stt.NewTranscriber(engine).Transcribe(context.Background(), audio, dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("expected 'hello world', got %q", text)
	}

	saved, err := os.ReadFile(filepath.Join(dir, stt.TranscriptFile))
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	if string(saved) != text {
		t.Errorf("expected saved transcript %q, got %q", text, saved)
	}
}

func TestTranscriber_MissingAudio(t *testing.T) {
	engine := mock.New()
	_, err := stt.NewTranscriber(engine).Transcribe(context.Background(), "/nonexistent/audio.wav", t.TempDir())

	if !apperrors.IsCode(err, apperrors.CodeTranscriptionFailed) {
		t.Errorf("expected TRANSCRIPTION_FAILED, got %v", err)
	}
	if len(engine.Calls()) != 0 {
		t.Error("expected engine not to be called")
	}
}

func TestTranscriber_EngineFailure(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "audio.wav")
	os.WriteFile(audio, []byte("wav"), 0o644)

	cause := errors.New("out of memory")
	_, err := stt.NewTranscriber(mock.New().WithError(cause)).Transcribe(context.Background(), audio, dir)

	if !apperrors.IsCode(err, apperrors.CodeTranscriptionFailed) {
		t.Errorf("expected TRANSCRIPTION_FAILED, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected cause to be wrapped, got %v", err)
	}
}
