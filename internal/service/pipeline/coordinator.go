// Package pipeline coordinates one digest request from source media to the
// assembled result. Only validation, acquisition and transcription can fail a
// request; every later stage degrades.
package pipeline

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "video-digest-service/internal/errors"
	"video-digest-service/internal/models"
	"video-digest-service/internal/observability/logging"
	"video-digest-service/internal/observability/metrics"
	"video-digest-service/internal/schema"
	"video-digest-service/internal/service/acquire"
	"video-digest-service/internal/service/fallback"
	"video-digest-service/internal/service/tts"
)

// maxRequestIDLen bounds caller-supplied request ids.
const maxRequestIDLen = 128

// Stage names used for timings, metrics and logs.
const (
	StageValidate          = "validate"
	StageAcquire           = "acquire"
	StageTranscribe        = "transcribe"
	StageContentCheck      = "content_check"
	StageLanguageDetect    = "language_detect"
	StageTranslateToEN     = "translate_to_en"
	StageSummarize         = "summarize"
	StageTranslateToTarget = "translate_to_target"
	StageSynthesize        = "synthesize"
)

const (
	englishLanguage   = "en"
	timestampLayout   = "2006-01-02 15:04:05"
	providedTitle     = "Provided Transcript"
	notAvailable      = "N/A"
	defaultWorkDirDir = "work"
)

// AudioSource obtains normalized audio for a request.
type AudioSource interface {
	FromURL(ctx context.Context, url, dir string) (*acquire.Source, error)
	FromUpload(ctx context.Context, filename string, r io.Reader, dir string) (*acquire.Source, error)
	FromFile(ctx context.Context, path, dir string) (*acquire.Source, error)
}

// Transcriber turns audio into text persisted in dir.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, dir string) (string, error)
}

// ContentResolver decides what text to summarize.
type ContentResolver interface {
	Resolve(ctx context.Context, transcript, sourceURL, description string) fallback.Resolution
}

// LanguageDetector identifies a text's language.
type LanguageDetector interface {
	Detect(text string) string
}

// Translator translates text, never failing.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) string
}

// Summarizer condenses English text, never failing.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// SpeechSynthesizer renders text as audio, never failing.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, lang, dir string) tts.Artifact
}

// EventPublisher announces request outcomes.
type EventPublisher interface {
	PublishCompleted(ctx context.Context, event *models.DigestCompleted) error
	PublishFailed(ctx context.Context, event *models.DigestFailed) error
}

// Request is one digest job. Exactly one of SourceURL, Upload, UploadPath or
// Transcript is normally set; a Transcript skips acquisition and transcription.
type Request struct {
	RequestID      string
	SourceURL      string
	Upload         io.Reader
	UploadName     string
	UploadPath     string
	Transcript     string
	TargetLanguage string
}

// Config holds coordinator settings.
type Config struct {
	WorkDir       string
	KeepArtifacts bool
}

// Dependencies are the stage implementations used by the coordinator.
type Dependencies struct {
	Audio       AudioSource
	Transcriber Transcriber
	Resolver    ContentResolver
	Detector    LanguageDetector
	Translator  Translator
	Summarizer  Summarizer
	Synthesizer SpeechSynthesizer
	Publisher   EventPublisher
	Validator   *schema.Validator
	Metrics     *metrics.Metrics
	Accumulator *metrics.Accumulator
}

// Coordinator runs the pipeline synchronously on the caller's goroutine.
type Coordinator struct {
	cfg  Config
	deps Dependencies
	now  func() time.Time
}

// NewCoordinator creates a coordinator. Publisher, Validator, Metrics and
// Accumulator are optional.
func NewCoordinator(cfg Config, deps Dependencies) *Coordinator {
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "video-digest", defaultWorkDirDir)
	}
	if deps.Validator == nil {
		deps.Validator = schema.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.DefaultMetrics
	}
	if deps.Accumulator == nil {
		deps.Accumulator = metrics.NewAccumulator()
	}
	return &Coordinator{cfg: cfg, deps: deps, now: time.Now}
}

// Accumulator returns the aggregates updated by Process.
func (c *Coordinator) Accumulator() *metrics.Accumulator {
	return c.deps.Accumulator
}

// run tracks one request in flight.
type run struct {
	req        Request
	lc         *Lifecycle
	logger     zerolog.Logger
	dir        string
	start      time.Time
	stage      string
	timings    map[string]float64
	transcript string
	meta       acquire.Metadata
}

// Process executes the pipeline for req.
func (c *Coordinator) Process(ctx context.Context, req Request) (result *models.DigestResult, err error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	req.TargetLanguage = schema.NormalizeLanguage(req.TargetLanguage)

	r := &run{
		req:     req,
		lc:      NewLifecycle(req.RequestID),
		logger:  logging.WithRequest(req.RequestID),
		start:   c.now(),
		stage:   StageValidate,
		timings: make(map[string]float64),
		meta:    acquire.Metadata{Title: notAvailable, Duration: notAvailable},
	}

	c.deps.Accumulator.RecordStart()
	c.deps.Metrics.RecordRequestStart()

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().Interface("panic", p).Str("stage", r.stage).Msg("pipeline panicked")
			result, err = nil, c.fail(ctx, r, apperrors.Newf(apperrors.CodeInternal, "unexpected failure in %s", r.stage))
		}
	}()

	r.logger.Info().
		Str("source", req.SourceURL).
		Str("upload", req.UploadName).
		Bool("transcriptProvided", strings.TrimSpace(req.Transcript) != "").
		Str("targetLanguage", req.TargetLanguage).
		Msg("digest request received")

	if err := c.deps.Validator.ValidateRequest(schema.Input{
		SourceURL:      req.SourceURL,
		HasUpload:      req.Upload != nil || req.UploadPath != "",
		Transcript:     req.Transcript,
		TargetLanguage: req.TargetLanguage,
	}); err != nil {
		return nil, c.fail(ctx, r, err)
	}
	if !validRequestID(req.RequestID) {
		return nil, c.fail(ctx, r, apperrors.Newf(apperrors.CodeInvalidRequest, "invalid request id %q", req.RequestID))
	}

	if err := os.MkdirAll(c.cfg.WorkDir, 0o755); err != nil {
		return nil, c.fail(ctx, r, apperrors.Wrap(err, apperrors.CodeInternal, "failed to create work directory"))
	}
	r.dir = filepath.Join(c.cfg.WorkDir, req.RequestID)
	if err := os.Mkdir(r.dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, c.fail(ctx, r, apperrors.Newf(apperrors.CodeInvalidRequest, "request id %q is already in use", req.RequestID))
		}
		return nil, c.fail(ctx, r, apperrors.Wrap(err, apperrors.CodeInternal, "failed to create work directory"))
	}
	if !c.cfg.KeepArtifacts {
		defer os.RemoveAll(r.dir)
	}

	if err := c.obtainTranscript(ctx, r); err != nil {
		return nil, c.fail(ctx, r, err)
	}

	result = c.digest(ctx, r)
	c.succeed(ctx, r, result)
	return result, nil
}

// validRequestID reports whether id can name a directory directly under the
// work dir.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, `/\`) && filepath.Base(id) == id && filepath.IsLocal(id)
}

// obtainTranscript runs acquisition and transcription unless a transcript was supplied.
func (c *Coordinator) obtainTranscript(ctx context.Context, r *run) error {
	if text := strings.TrimSpace(r.req.Transcript); text != "" {
		r.transcript = text
		r.meta.Title = providedTitle
		if err := r.lc.Advance(StateAudioAcquired); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "state error")
		}
		if err := r.lc.Advance(StateTranscribed); err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "state error")
		}
		return nil
	}

	var src *acquire.Source
	err := c.timed(r, StageAcquire, func() error {
		var err error
		switch {
		case r.req.SourceURL != "":
			src, err = c.deps.Audio.FromURL(ctx, r.req.SourceURL, r.dir)
		case r.req.Upload != nil:
			src, err = c.deps.Audio.FromUpload(ctx, r.req.UploadName, r.req.Upload, r.dir)
		default:
			src, err = c.deps.Audio.FromFile(ctx, r.req.UploadPath, r.dir)
		}
		return err
	})
	if err != nil {
		return asAppError(err, apperrors.CodeAcquisitionFailed, "audio acquisition failed")
	}
	r.meta = src.Metadata
	if err := r.lc.Advance(StateAudioAcquired); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "state error")
	}

	err = c.timed(r, StageTranscribe, func() error {
		var err error
		r.transcript, err = c.deps.Transcriber.Transcribe(ctx, src.AudioPath, r.dir)
		return err
	})
	if err != nil {
		return asAppError(err, apperrors.CodeTranscriptionFailed, "transcription failed")
	}
	if err := r.lc.Advance(StateTranscribed); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "state error")
	}
	return nil
}

// digest runs the stages that cannot fail and assembles the result.
func (c *Coordinator) digest(ctx context.Context, r *run) *models.DigestResult {
	target := r.req.TargetLanguage

	var res fallback.Resolution
	c.timed(r, StageContentCheck, func() error {
		res = c.deps.Resolver.Resolve(ctx, r.transcript, r.req.SourceURL, r.meta.Description)
		return nil
	})
	c.advance(r, StateContentValidated)

	sourceLang := englishLanguage
	var english, final string

	if !res.Usable {
		english = res.Message
		c.advance(r, StateSummarized)
		final = c.translate(ctx, r, StageTranslateToTarget, english, englishLanguage, target)
	} else {
		c.timed(r, StageLanguageDetect, func() error {
			sourceLang = c.deps.Detector.Detect(res.Text)
			return nil
		})

		englishText := res.Text
		if sourceLang != englishLanguage {
			englishText = c.translate(ctx, r, StageTranslateToEN, res.Text, sourceLang, englishLanguage)
		}

		c.timed(r, StageSummarize, func() error {
			english = c.deps.Summarizer.Summarize(ctx, englishText)
			return nil
		})
		c.advance(r, StateSummarized)

		final = english
		if target != englishLanguage {
			final = c.translate(ctx, r, StageTranslateToTarget, english, englishLanguage, target)
		}
	}
	c.advance(r, StateTranslated)

	var artifact tts.Artifact
	c.timed(r, StageSynthesize, func() error {
		artifact = c.deps.Synthesizer.Synthesize(ctx, final, target, r.dir)
		return nil
	})
	c.advance(r, StateSynthesized)

	total := c.now().Sub(r.start).Seconds()
	result := &models.DigestResult{
		RequestID:      r.req.RequestID,
		Status:         models.StatusSuccess,
		Transcript:     r.transcript,
		EnglishSummary: english,
		Summary:        final,
		SourceLanguage: sourceLang,
		TargetLanguage: target,
		ContentSource:  string(res.Source),
		Metrics: models.DigestMetrics{
			VideoTitle:           r.meta.Title,
			VideoDuration:        r.meta.Duration,
			TranscriptLength:     len([]rune(r.transcript)),
			EnglishSummaryLength: len([]rune(english)),
			FinalSummaryLength:   len([]rune(final)),
			TargetLanguage:       target,
			StageTimings:         r.timings,
			SilentAudio:          artifact.Silent,
		},
		ConfidenceScores: ComputeConfidence(r.transcript, english, total),
		ProcessingMetrics: models.ProcessingMetrics{
			TotalTimeSeconds: round2(total),
			Timestamp:        c.now().Format(timestampLayout),
		},
	}
	if len(artifact.Data) > 0 {
		encoded := base64.StdEncoding.EncodeToString(artifact.Data)
		result.SummaryAudio = &encoded
		result.AudioFormat = artifact.Format
	}
	c.advance(r, StateDone)
	return result
}

func (c *Coordinator) translate(ctx context.Context, r *run, stage, text, source, target string) string {
	var out string
	c.timed(r, stage, func() error {
		out = c.deps.Translator.Translate(ctx, text, source, target)
		return nil
	})
	return out
}

// timed runs fn as stage, recording its wall-clock duration.
func (c *Coordinator) timed(r *run, stage string, fn func() error) error {
	r.stage = stage
	logger := logging.WithStage(r.req.RequestID, stage)
	logger.Debug().Msg("stage started")

	started := c.now()
	err := fn()
	elapsed := c.now().Sub(started).Seconds()

	r.timings[stage] += round3(elapsed)
	c.deps.Metrics.RecordStage(stage, elapsed)

	if err != nil {
		logger.Warn().Err(err).Float64("seconds", elapsed).Msg("stage failed")
	} else {
		logger.Debug().Float64("seconds", elapsed).Msg("stage finished")
	}
	return err
}

// advance moves the lifecycle forward after a stage that cannot fail.
func (c *Coordinator) advance(r *run, next State) {
	if err := r.lc.Advance(next); err != nil {
		panic(fmt.Sprintf("pipeline state: %v", err))
	}
}

func (c *Coordinator) succeed(ctx context.Context, r *run, result *models.DigestResult) {
	elapsed := c.now().Sub(r.start)
	c.deps.Accumulator.RecordSuccess(elapsed.Seconds(), c.now())
	c.deps.Metrics.RecordRequestEnd(true, elapsed.Seconds())

	r.logger.Info().
		Str("contentSource", result.ContentSource).
		Str("sourceLanguage", result.SourceLanguage).
		Bool("silentAudio", result.Metrics.SilentAudio).
		Dur("duration", elapsed).
		Msg("digest completed")

	if c.deps.Publisher == nil {
		return
	}
	event := &models.DigestCompleted{
		EventType:      models.EventDigestCompleted,
		RequestID:      result.RequestID,
		Timestamp:      c.now().UnixMilli(),
		SourceURL:      r.req.SourceURL,
		Title:          result.Metrics.VideoTitle,
		SourceLanguage: result.SourceLanguage,
		TargetLanguage: result.TargetLanguage,
		ContentSource:  result.ContentSource,
		EnglishSummary: result.EnglishSummary,
		Summary:        result.Summary,
		SilentAudio:    result.Metrics.SilentAudio,
		DurationMs:     elapsed.Milliseconds(),
		StageTimings:   result.Metrics.StageTimings,
	}
	if err := c.deps.Publisher.PublishCompleted(ctx, event); err != nil {
		r.logger.Warn().Err(err).Msg("failed to publish completed event")
	}
}

// fail records err as the request outcome and returns it as an AppError.
func (c *Coordinator) fail(ctx context.Context, r *run, err error) error {
	appErr := asAppError(err, apperrors.CodeInternal, "unexpected failure")
	if lcErr := r.lc.Fail(appErr); lcErr != nil {
		r.logger.Error().Err(lcErr).Msg("failure recorded after content validation")
	}

	elapsed := c.now().Sub(r.start)
	c.deps.Accumulator.RecordFailure()
	c.deps.Metrics.RecordRequestEnd(false, elapsed.Seconds())

	r.logger.Error().
		Err(appErr).
		Str("stage", r.stage).
		Str("code", string(appErr.Code)).
		Msg("digest failed")

	if c.deps.Publisher != nil {
		event := &models.DigestFailed{
			EventType:  models.EventDigestFailed,
			RequestID:  r.req.RequestID,
			Timestamp:  c.now().UnixMilli(),
			SourceURL:  r.req.SourceURL,
			Stage:      r.stage,
			Code:       string(appErr.Code),
			Error:      appErr.Message,
			DurationMs: elapsed.Milliseconds(),
		}
		if pubErr := c.deps.Publisher.PublishFailed(ctx, event); pubErr != nil {
			r.logger.Warn().Err(pubErr).Msg("failed to publish failed event")
		}
	}
	return appErr
}

// asAppError keeps an existing AppError or wraps err with code.
func asAppError(err error, code apperrors.Code, msg string) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	return apperrors.Wrap(err, code, msg)
}

func round3(v float64) float64 {
	return float64(int64(v*1000+0.5)) / 1000
}
