// Package mock provides a speech-to-text engine for development and tests
// without cloud credentials.
package mock

import (
	"context"
	"sync"

	"video-digest-service/internal/service/stt"
)

// DefaultSegments is a short lecture-style transcript.
var DefaultSegments = []stt.Segment{
	{Text: "Welcome to this short lecture on renewable energy.", Start: 0, End: 4, Confidence: 0.94},
	{Text: "Solar panels convert sunlight directly into electricity using photovoltaic cells.", Start: 4, End: 10, Confidence: 0.91},
	{Text: "Wind turbines capture kinetic energy from moving air and turn a generator.", Start: 10, End: 16, Confidence: 0.92},
	{Text: "Both sources are becoming cheaper every year and now compete with fossil fuels.", Start: 16, End: 22, Confidence: 0.89},
	{Text: "Storage remains the main challenge because demand does not follow the weather.", Start: 22, End: 28, Confidence: 0.9},
}

// Engine implements stt.Engine with fixed segments.
type Engine struct {
	mu       sync.Mutex
	segments []stt.Segment
	err      error
	calls    []string
}

// New creates a mock engine returning DefaultSegments.
func New() *Engine {
	return &Engine{segments: DefaultSegments}
}

// WithSegments replaces the segments returned by Transcribe.
func (e *Engine) WithSegments(segments ...stt.Segment) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.segments = segments
	return e
}

// WithText makes Transcribe return a single segment holding text.
func (e *Engine) WithText(text string) *Engine {
	return e.WithSegments(stt.Segment{Text: text})
}

// WithError makes Transcribe fail with err.
func (e *Engine) WithError(err error) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
	return e
}

// Name implements stt.Engine.
func (e *Engine) Name() string { return "mock" }

// Transcribe returns the configured segments.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) ([]stt.Segment, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, audioPath)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.err != nil {
		return nil, e.err
	}
	return append([]stt.Segment(nil), e.segments...), nil
}

// Calls returns the audio paths passed to Transcribe.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}
