// Package tts renders summaries as speech. Synthesize always yields an
// artifact: the requested voice, an English voice, or a silent WAV.
package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog"

	"video-digest-service/internal/observability/logging"
	"video-digest-service/internal/observability/metrics"
	"video-digest-service/internal/service/textutil"
)

// Synthesis limits and silent audio format.
const (
	DefaultLanguage = "en"
	MaxWords        = 300
	MaxFallbackRune = 300

	silentSampleRate = 16000
	silentBitDepth   = 16
	silentChannels   = 1
	wavPCMFormat     = 1
)

// Engine converts text to encoded audio.
type Engine interface {
	Name() string
	Format() string
	SupportsLanguage(lang string) bool
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// Artifact is synthesized audio stored in the request directory.
type Artifact struct {
	Path     string
	Format   string // mp3 or wav
	Language string
	Silent   bool
	Data     []byte
}

// Synthesizer applies the synthesis ladder.
type Synthesizer struct {
	engine      Engine
	defaultLang string
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewSynthesizer creates a synthesizer. A nil engine always produces silence.
func NewSynthesizer(engine Engine, m *metrics.Metrics) *Synthesizer {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Synthesizer{
		engine:      engine,
		defaultLang: DefaultLanguage,
		metrics:     m,
		logger:      logging.WithComponent("tts"),
	}
}

// Synthesize renders text in lang and stores the audio in dir.
func (s *Synthesizer) Synthesize(ctx context.Context, text, lang, dir string) Artifact {
	if s.engine != nil && strings.TrimSpace(text) != "" {
		art, err := s.attempt(ctx, textutil.TruncateWords(text, MaxWords), lang, dir)
		if err == nil {
			return art
		}
		s.logger.Warn().Str("lang", lang).Err(err).Msg("synthesis failed, retrying with default voice")

		art, err = s.attempt(ctx, textutil.TruncateRunes(text, MaxFallbackRune), s.defaultLang, dir)
		if err == nil {
			s.metrics.RecordFallback("tts", "default_language")
			return art
		}
		s.logger.Warn().Err(err).Msg("default voice failed, writing silent audio")
	}

	s.metrics.RecordFallback("tts", "silent")
	return s.silent(lang, dir)
}

func (s *Synthesizer) attempt(ctx context.Context, text, lang, dir string) (Artifact, error) {
	if !s.engine.SupportsLanguage(lang) {
		return Artifact{}, fmt.Errorf("%s does not support language %q", s.engine.Name(), lang)
	}
	data, err := s.engine.Synthesize(ctx, text, lang)
	if err != nil {
		return Artifact{}, err
	}
	if len(data) == 0 {
		return Artifact{}, fmt.Errorf("%s returned no audio", s.engine.Name())
	}

	format := s.engine.Format()
	path := filepath.Join(dir, fmt.Sprintf("summary_%s.%s", lang, format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Artifact{}, fmt.Errorf("write audio: %w", err)
	}
	return Artifact{Path: path, Format: format, Language: lang, Data: data}, nil
}

func (s *Synthesizer) silent(lang, dir string) Artifact {
	art := Artifact{Format: "wav", Language: lang, Silent: true}
	path := filepath.Join(dir, "summary_silent.wav")
	if err := WriteSilentWAV(path); err != nil {
		s.logger.Error().Err(err).Msg("failed to write silent audio")
		return art
	}
	data, err := os.ReadFile(path)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read silent audio")
		return art
	}
	art.Path = path
	art.Data = data
	return art
}

// WriteSilentWAV writes a zero-length 16 kHz mono 16-bit PCM WAV file.
func WriteSilentWAV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, silentSampleRate, silentBitDepth, silentChannels, wavPCMFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: silentChannels, SampleRate: silentSampleRate},
		Data:           []int{},
		SourceBitDepth: silentBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}
	return f.Close()
}
