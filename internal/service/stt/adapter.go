// Package stt defines the speech-to-text engine contract and the transcriber
// that turns an audio file into a persisted transcript.
package stt

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	apperrors "video-digest-service/internal/errors"
	"video-digest-service/internal/observability/logging"
)

// TranscriptFile is the name of the transcript written into the artifact directory.
const TranscriptFile = "transcript.txt"

// Segment is one recognized span of speech.
type Segment struct {
	Text       string
	Start      float64 // seconds
	End        float64 // seconds
	Confidence float64
}

// Engine recognizes speech in an audio file (Google, Whisper, etc.).
type Engine interface {
	// Name identifies the engine in logs and the models endpoint.
	Name() string

	// Transcribe returns the recognized segments in order.
	Transcribe(ctx context.Context, audioPath string) ([]Segment, error)
}

// Transcriber wraps an Engine and persists its output.
type Transcriber struct {
	engine Engine
	logger zerolog.Logger
}

// NewTranscriber creates a transcriber backed by engine.
func NewTranscriber(engine Engine) *Transcriber {
	return &Transcriber{
		engine: engine,
		logger: logging.WithComponent("stt"),
	}
}

// Engine returns the underlying engine.
func (t *Transcriber) Engine() Engine {
	return t.engine
}

// Transcribe recognizes audioPath and writes the joined text to
// <artifactDir>/transcript.txt. Failures are TRANSCRIPTION_FAILED errors.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, artifactDir string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", apperrors.Wrapf(err, apperrors.CodeTranscriptionFailed, "audio file not found: %s", filepath.Base(audioPath))
	}

	segments, err := t.engine.Transcribe(ctx, audioPath)
	if err != nil {
		return "", apperrors.Wrapf(err, apperrors.CodeTranscriptionFailed, "transcription failed (%s)", t.engine.Name())
	}

	text := JoinSegments(segments)
	if artifactDir != "" {
		path := filepath.Join(artifactDir, TranscriptFile)
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return "", apperrors.Wrap(err, apperrors.CodeTranscriptionFailed, "failed to write transcript")
		}
	}

	t.logger.Info().
		Str("engine", t.engine.Name()).
		Int("segments", len(segments)).
		Int("chars", len(text)).
		Msg("transcription complete")
	return text, nil
}

// JoinSegments joins segment texts with single spaces.
func JoinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if text := strings.TrimSpace(s.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
