// Package translation translates text through a ladder of remote services.
// Translate never fails: when every service is unavailable the input text is
// returned unchanged.
package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"video-digest-service/internal/observability/logging"
	"video-digest-service/internal/observability/metrics"
	"video-digest-service/internal/resilience"
	"video-digest-service/internal/service/textutil"
)

// Default translation settings.
const (
	DefaultChunkChars       = 1500
	DefaultMinAcceptedChars = 10
	DefaultTimeout          = 30 * time.Second
)

// DefaultEndpoints are tried in order for every chunk.
var DefaultEndpoints = []string{
	"https://dhruva-api.bhashini.gov.in/services/inference/pipeline",
	"https://bhashini-api.mapmyindia.com/translation",
}

var errShortReply = errors.New("reply too short")

// Engine is a single translation backend.
type Engine interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Config holds translator settings.
type Config struct {
	APIKey           string
	Endpoints        []string
	ChunkChars       int
	MinAcceptedChars int
	Timeout          time.Duration
	Retry            resilience.RetryConfig
	Breaker          resilience.BreakerConfig
}

// DefaultConfig returns the production translator settings without an API key.
func DefaultConfig() Config {
	return Config{
		Endpoints:        DefaultEndpoints,
		ChunkChars:       DefaultChunkChars,
		MinAcceptedChars: DefaultMinAcceptedChars,
		Timeout:          DefaultTimeout,
		Retry:            resilience.DefaultRetryConfig(),
		Breaker:          resilience.DefaultBreakerConfig(),
	}
}

// Translator runs the endpoint ladder chunk by chunk.
type Translator struct {
	cfg       Config
	endpoints []*endpoint
	secondary Engine
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// New creates a translator. secondary may be nil, in which case chunks that
// no endpoint could translate are passed through unchanged.
func New(cfg Config, secondary Engine, m *metrics.Metrics) *Translator {
	if cfg.ChunkChars <= 0 {
		cfg.ChunkChars = DefaultChunkChars
	}
	if cfg.MinAcceptedChars <= 0 {
		cfg.MinAcceptedChars = DefaultMinAcceptedChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}

	client := &http.Client{Timeout: cfg.Timeout}
	t := &Translator{
		cfg:       cfg,
		secondary: secondary,
		metrics:   m,
		logger:    logging.WithComponent("translation"),
	}
	for _, u := range cfg.Endpoints {
		ep := newEndpoint(u, cfg.APIKey, client, nil)
		ep.breaker = resilience.NewBreaker(ep.name, cfg.Breaker).
			WithHook(func(name string, _, to resilience.State) {
				m.RecordBreakerTransition(name, to.String())
			})
		t.endpoints = append(t.endpoints, ep)
	}
	return t
}

// Translate translates text from source to target language. It always
// returns a string and never panics.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (out string) {
	if strings.TrimSpace(text) == "" || strings.EqualFold(source, target) {
		return text
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error().Interface("panic", r).Msg("translation panicked, returning input")
			t.metrics.RecordFallback("translation", "identity")
			out = text
		}
	}()

	chunks := textutil.Chunk(text, t.cfg.ChunkChars)
	translated := make([]string, 0, len(chunks))
	var translatedAny bool
	for i, chunk := range chunks {
		out, ok := t.translateChunk(ctx, i, chunk, source, target)
		translatedAny = translatedAny || ok
		translated = append(translated, out)
	}
	if !translatedAny {
		return text
	}
	return strings.TrimSpace(strings.Join(translated, " "))
}

// translateChunk reports false when no engine translated chunk and it is
// returned unchanged.
func (t *Translator) translateChunk(ctx context.Context, index int, chunk, source, target string) (string, bool) {
	logger := t.logger.With().
		Int("chunk", index).
		Str("source", source).
		Str("target", target).
		Logger()

	if t.cfg.APIKey != "" {
		for _, ep := range t.endpoints {
			if out, ok := t.tryEndpoint(ctx, ep, chunk, source, target, logger); ok {
				return out, true
			}
		}
	}

	if t.secondary != nil && ctx.Err() == nil {
		out, err := t.secondary.Translate(ctx, chunk, source, target)
		if err == nil && strings.TrimSpace(out) != "" {
			t.metrics.RecordFallback("translation", "secondary")
			logger.Info().Msg("chunk translated by secondary engine")
			return strings.TrimSpace(out), true
		}
		logger.Warn().Err(err).Msg("secondary engine failed")
	}

	t.metrics.RecordFallback("translation", "identity")
	logger.Warn().Msg("all translation engines failed, keeping original chunk")
	return chunk, false
}

func (t *Translator) tryEndpoint(ctx context.Context, ep *endpoint, chunk, source, target string, logger zerolog.Logger) (string, bool) {
	if err := ep.breaker.Allow(); err != nil {
		logger.Debug().Str("endpoint", ep.name).Msg("endpoint breaker open, skipping")
		return "", false
	}

	var result string
	err := resilience.Retry(ctx, t.cfg.Retry, func(attempt int) error {
		out, err := ep.call(ctx, chunk, source, target)
		if err == nil && utf8.RuneCountInString(strings.TrimSpace(out)) <= t.cfg.MinAcceptedChars {
			err = fmt.Errorf("%s: %w", ep.name, errShortReply)
		}
		t.metrics.RecordTranslationAttempt(ep.name, err == nil)
		if err != nil {
			logger.Debug().Str("endpoint", ep.name).Int("attempt", attempt).Err(err).Msg("translation attempt failed")
			return err
		}
		result = strings.TrimSpace(out)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", false
		}
		ep.breaker.Failure()
		logger.Warn().Str("endpoint", ep.name).Err(err).Msg("endpoint exhausted")
		return "", false
	}
	ep.breaker.Success()
	return result, true
}
