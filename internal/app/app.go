package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"video-digest-service/internal/config"
	"video-digest-service/internal/events"
	"video-digest-service/internal/observability/logging"
	"video-digest-service/internal/observability/metrics"
	"video-digest-service/internal/resilience"
	"video-digest-service/internal/service/acquire"
	"video-digest-service/internal/service/fallback"
	"video-digest-service/internal/service/langdetect"
	"video-digest-service/internal/service/pipeline"
	"video-digest-service/internal/service/stt"
	"video-digest-service/internal/service/stt/google"
	"video-digest-service/internal/service/stt/mock"
	"video-digest-service/internal/service/stt/whisper"
	"video-digest-service/internal/service/summarize"
	"video-digest-service/internal/service/translation"
	"video-digest-service/internal/service/tts"
	"video-digest-service/pkg/executor"
)

const serviceName = "video-digest-service"

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Metrics     *metrics.Metrics
	Accumulator *metrics.Accumulator
	Publisher   *events.Publisher
	Coordinator *pipeline.Coordinator

	sttEngine  string
	summarizer string
	closers    []io.Closer
	ready      bool
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Configuration) *Application {
	a := &Application{
		Cfg:         cfg,
		Metrics:     metrics.DefaultMetrics,
		Accumulator: metrics.NewAccumulator(),
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("component", "application").
		Str("method", "New").
		Logger()

	appLogger.Info().Msg("Video digest service application created")
	return a
}

// setupLogger configures zerolog for the service. ZEROLOG_LOG_LEVEL wins over
// the configured level; ENV=dev switches to console output.
func (a *Application) setupLogger() {
	level := "info"
	format := "json"
	if a.Cfg != nil {
		level = a.Cfg.Observability.LogLevel
		format = a.Cfg.Observability.LogFormat
	}
	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		level = strings.ToLower(envLevel)
	}
	if os.Getenv("ENV") == "dev" {
		format = "console"
	}

	logging.Init(logging.Config{Level: level, Format: format, TimeFormat: time.RFC3339})

	if format == "console" {
		a.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Str("service", serviceName).
			Str("component", "application").
			Logger()
	} else {
		a.Logger = zerolog.New(os.Stdout).With().
			Timestamp().
			Str("service", serviceName).
			Str("component", "application").
			Logger()
	}

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", os.Getenv("ENV")).
		Msg("Logger setup completed")
}

// Start builds the pipeline and performs any startup work required before
// serving traffic.
func (a *Application) Start(ctx context.Context) error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	a.StartupTime = time.Now().UTC()
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Video digest service starting")

	if err := a.Cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := os.MkdirAll(a.Cfg.Service.WorkDir, 0o755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}

	engine, err := a.buildSTT(ctx)
	if err != nil {
		return err
	}
	model, err := a.buildSummaryModel()
	if err != nil {
		return err
	}

	acq := acquire.New(acquire.Config{
		YtDlpPath:    a.Cfg.Acquisition.YtDlpPath,
		FFmpegPath:   a.Cfg.Acquisition.FFmpegPath,
		SampleRateHz: a.Cfg.Acquisition.SampleRateHz,
		Timeout:      a.Cfg.Acquisition.Timeout,
		UserAgent:    a.Cfg.Acquisition.UserAgent,
	}, executor.New())

	a.Publisher = events.New(&events.Config{
		Enabled:        a.Cfg.Kafka.Enabled,
		Brokers:        a.Cfg.Kafka.Brokers,
		TopicCompleted: a.Cfg.Kafka.TopicCompleted,
		TopicFailed:    a.Cfg.Kafka.TopicFailed,
		Principal:      a.Cfg.Kafka.Principal,
	}, a.Metrics)
	a.closers = append(a.closers, a.Publisher)

	a.Coordinator = pipeline.NewCoordinator(pipeline.Config{
		WorkDir:       a.Cfg.Service.WorkDir,
		KeepArtifacts: a.Cfg.Service.KeepArtifacts,
	}, pipeline.Dependencies{
		Audio:       acq,
		Transcriber: stt.NewTranscriber(engine),
		Resolver:    fallback.NewResolver(acq, a.Cfg.Acquisition.MinTranscriptChars, a.Metrics),
		Detector:    langdetect.New(langdetect.DefaultLanguage),
		Translator:  translation.New(a.translationConfig(), a.secondaryTranslator(), a.Metrics),
		Summarizer:  summarize.NewOrchestrator(model, a.Cfg.Summarizer.ChunkChars, a.Metrics),
		Synthesizer: tts.NewSynthesizer(tts.NewGTTS(a.Cfg.TTS.BaseURL, a.Cfg.TTS.Timeout), a.Metrics),
		Publisher:   a.Publisher,
		Metrics:     a.Metrics,
		Accumulator: a.Accumulator,
	})

	a.sttEngine = engine.Name()
	a.summarizer = model.Name()
	a.ready = true

	startLogger.Info().
		Str("sttEngine", a.sttEngine).
		Str("summaryModel", a.summarizer).
		Bool("kafkaEnabled", a.Publisher.Enabled()).
		Msg("Pipeline ready")
	return nil
}

// Ready reports whether Start completed.
func (a *Application) Ready() bool {
	return a.ready
}

// Models describes the engines in use, keyed by pipeline role.
func (a *Application) Models() map[string]string {
	translator := "bhashini"
	if a.Cfg.Translation.APIKey == "" {
		translator = "none"
	}
	if a.Cfg.Translation.GoogleFallback {
		translator += "+google"
	}
	return map[string]string{
		"transcription": a.sttEngine,
		"summarization": a.summarizer,
		"translation":   translator,
		"tts":           "gtts",
		"language":      "whatlanggo",
	}
}

// Uptime returns the time since Start.
func (a *Application) Uptime() time.Duration {
	if a.StartupTime.IsZero() {
		return 0
	}
	return time.Since(a.StartupTime)
}

func (a *Application) buildSTT(ctx context.Context) (stt.Engine, error) {
	c := a.Cfg.STT
	switch c.Provider {
	case "google":
		engine, err := google.New(ctx, google.Config{
			LanguageCode:  c.LanguageCode,
			SampleRateHz:  int32(c.SampleRateHz),
			AudioEncoding: c.AudioEncoding,
			Punctuation:   c.Punctuation,
		})
		if err != nil {
			return nil, fmt.Errorf("google speech client: %w", err)
		}
		a.closers = append(a.closers, engine)
		return engine, nil
	case "whisper":
		return whisper.New(whisper.Config{
			BaseURL: c.WhisperBaseURL,
			APIKey:  c.WhisperAPIKey,
			Model:   c.WhisperModel,
		}), nil
	default:
		a.Logger.Warn().Msg("Using mock transcription engine")
		return mock.New(), nil
	}
}

func (a *Application) buildSummaryModel() (summarize.Model, error) {
	c := a.Cfg.Summarizer
	switch c.Provider {
	case "huggingface":
		return summarize.NewHuggingFace(c.HFBaseURL, c.HFModel, c.HFToken, c.Timeout), nil
	case "gemini":
		model, err := summarize.NewGemini(c.GeminiModel, c.GeminiAPIKeys)
		if err != nil {
			return nil, err
		}
		return model, nil
	default:
		return summarize.Extractive{}, nil
	}
}

func (a *Application) translationConfig() translation.Config {
	c := a.Cfg.Translation
	cfg := translation.DefaultConfig()
	cfg.APIKey = c.APIKey
	if len(c.Endpoints) > 0 {
		cfg.Endpoints = c.Endpoints
	}
	cfg.ChunkChars = c.ChunkChars
	cfg.MinAcceptedChars = c.MinAcceptedChars
	cfg.Timeout = c.Timeout
	cfg.Retry = resilience.RetryConfig{
		Attempts:    c.RetryAttempts,
		BaseDelay:   c.RetryBaseDelay,
		MaxDelay:    resilience.DefaultMaxDelay,
		IsRetryable: resilience.AlwaysRetry,
	}
	cfg.Breaker = resilience.BreakerConfig{
		Threshold:         c.BreakerThreshold,
		ResetTimeout:      c.BreakerResetTimeout,
		HalfOpenSuccesses: resilience.DefaultHalfOpenSuccesses,
	}
	return cfg
}

func (a *Application) secondaryTranslator() translation.Engine {
	if !a.Cfg.Translation.GoogleFallback {
		return nil
	}
	return translation.NewGoogleEngine(a.Cfg.Translation.GoogleBaseURL, &http.Client{Timeout: a.Cfg.Translation.Timeout})
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	a.ready = false
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("close failed")
		}
	}
	shutdownLogger.Info().Msg("Video digest service shutting down")
}
