// Package summarize condenses English text chunk by chunk with a pluggable
// model and an extractive fallback.
package summarize

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"video-digest-service/internal/observability/logging"
	"video-digest-service/internal/observability/metrics"
	"video-digest-service/internal/service/textutil"
)

// Chunking and length bounds.
const (
	DefaultChunkChars = 2000
	minMaxLength      = 80
	maxMaxLength      = 250
	minMinLength      = 30
	lengthRatio       = 0.4
	leadSentences     = 3
)

// Model produces an abstractive summary within word-length bounds.
type Model interface {
	Name() string
	Summarize(ctx context.Context, text string, maxLen, minLen int) (string, error)
}

// Orchestrator summarizes text of any length.
type Orchestrator struct {
	model      Model
	chunkChars int
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// NewOrchestrator creates an orchestrator. A nil model summarizes extractively.
func NewOrchestrator(model Model, chunkChars int, m *metrics.Metrics) *Orchestrator {
	if model == nil {
		model = Extractive{}
	}
	if chunkChars <= 0 {
		chunkChars = DefaultChunkChars
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Orchestrator{
		model:      model,
		chunkChars: chunkChars,
		metrics:    m,
		logger:     logging.WithComponent("summarize"),
	}
}

// ModelName returns the configured model's name.
func (o *Orchestrator) ModelName() string {
	return o.model.Name()
}

// Summarize returns the per-chunk summaries joined by a space. It never fails.
func (o *Orchestrator) Summarize(ctx context.Context, text string) string {
	chunks := textutil.Chunk(text, o.chunkChars)
	summaries := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		summaries = append(summaries, o.summarizeChunk(ctx, i, chunk))
	}
	return strings.TrimSpace(strings.Join(summaries, " "))
}

func (o *Orchestrator) summarizeChunk(ctx context.Context, index int, chunk string) (summary string) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Int("chunk", index).Interface("panic", r).Msg("summary model panicked")
			summary = o.extract(chunk)
		}
	}()

	maxLen, minLen := Bounds(textutil.WordCount(chunk))
	out, err := o.model.Summarize(ctx, chunk, maxLen, minLen)
	if err != nil || strings.TrimSpace(out) == "" {
		o.logger.Warn().
			Int("chunk", index).
			Str("model", o.model.Name()).
			Err(err).
			Msg("model summary unavailable, using lead sentences")
		return o.extract(chunk)
	}

	o.metrics.RecordSummaryChunk(o.model.Name())
	return strings.TrimSpace(out)
}

func (o *Orchestrator) extract(chunk string) string {
	o.metrics.RecordSummaryChunk("extractive")
	o.metrics.RecordFallback("summarize", "extractive")
	return textutil.LeadSentences(chunk, leadSentences)
}

// Bounds returns the maximum and minimum summary lengths for a chunk of
// words words.
func Bounds(words int) (maxLen, minLen int) {
	maxLen = int(float64(words) * lengthRatio)
	if maxLen < minMaxLength {
		maxLen = minMaxLength
	}
	if maxLen > maxMaxLength {
		maxLen = maxMaxLength
	}
	minLen = maxLen / 2
	if minLen < minMinLength {
		minLen = minMinLength
	}
	return maxLen, minLen
}

// Extractive summarizes by taking the lead sentences.
type Extractive struct{}

// Name implements Model.
func (Extractive) Name() string { return "extractive" }

// Summarize implements Model.
func (Extractive) Summarize(_ context.Context, text string, _, _ int) (string, error) {
	return textutil.LeadSentences(text, leadSentences), nil
}
