// Package acquire obtains normalized audio for a request from a video URL or
// an uploaded media file.
package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	apperrors "video-digest-service/internal/errors"
	"video-digest-service/internal/observability/logging"
	"video-digest-service/pkg/executor"
)

// AudioFile is the normalized audio written into the request directory.
const AudioFile = "audio.wav"

const (
	sourceBase   = "source"
	uploadBase   = "upload"
	defaultAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config holds external tool settings.
type Config struct {
	YtDlpPath    string
	FFmpegPath   string
	SampleRateHz int
	Timeout      time.Duration
	UserAgent    string
}

// DefaultConfig returns settings that expect yt-dlp and ffmpeg on PATH.
func DefaultConfig() Config {
	return Config{
		YtDlpPath:    "yt-dlp",
		FFmpegPath:   "ffmpeg",
		SampleRateHz: 16000,
		Timeout:      10 * time.Minute,
		UserAgent:    defaultAgent,
	}
}

// Metadata describes the source video. Fields are best effort.
type Metadata struct {
	ID              string  `json:"id,omitempty"`
	Title           string  `json:"title"`
	Description     string  `json:"-"`
	DurationSeconds float64 `json:"duration_seconds"`
	Duration        string  `json:"duration"`
}

// Source is acquired audio ready for transcription.
type Source struct {
	AudioPath string
	Metadata  Metadata
}

// Acquirer downloads and normalizes audio with yt-dlp and ffmpeg.
type Acquirer struct {
	cfg    Config
	exec   executor.Executor
	logger zerolog.Logger
}

// New creates an Acquirer. A nil exec uses the process executor.
func New(cfg Config, exec executor.Executor) *Acquirer {
	def := DefaultConfig()
	if cfg.YtDlpPath == "" {
		cfg.YtDlpPath = def.YtDlpPath
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = def.FFmpegPath
	}
	if cfg.SampleRateHz <= 0 {
		cfg.SampleRateHz = def.SampleRateHz
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if exec == nil {
		exec = executor.New()
	}
	return &Acquirer{
		cfg:    cfg,
		exec:   exec,
		logger: logging.WithComponent("acquire"),
	}
}

// FromURL downloads the audio track of url into dir and normalizes it.
func (a *Acquirer) FromURL(ctx context.Context, url, dir string) (*Source, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	template := filepath.Join(dir, sourceBase+".%(ext)s")
	args := []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"-x", "--audio-format", "wav",
		"--write-info-json",
		"--no-check-certificate",
		"--retries", "5",
		"--socket-timeout", "30",
		"--user-agent", a.cfg.UserAgent,
		"--extractor-args", "youtube:player_client=android,web",
		"-o", template,
		url,
	}
	if _, err := a.exec.Execute(ctx, a.cfg.YtDlpPath, args...); err != nil {
		return nil, downloadError(err)
	}

	downloaded := filepath.Join(dir, sourceBase+".wav")
	if _, err := os.Stat(downloaded); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAcquisitionFailed, "audio file not found after download")
	}

	meta := a.readInfo(filepath.Join(dir, sourceBase+".info.json"))

	audio, err := a.normalize(ctx, downloaded, dir)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Str("title", meta.Title).
		Str("duration", meta.Duration).
		Msg("video audio acquired")
	return &Source{AudioPath: audio, Metadata: meta}, nil
}

// FromUpload stores an uploaded media stream in dir and normalizes it.
func (a *Acquirer) FromUpload(ctx context.Context, filename string, r io.Reader, dir string) (*Source, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if ext == "" || len(ext) > 6 {
		ext = ".bin"
	}
	saved := filepath.Join(dir, uploadBase+ext)

	f, err := os.Create(saved)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAcquisitionFailed, "failed to store upload")
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, apperrors.Wrap(err, apperrors.CodeAcquisitionFailed, "failed to store upload")
	}
	if err := f.Close(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAcquisitionFailed, "failed to store upload")
	}

	src, err := a.FromFile(ctx, saved, dir)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(filename)
	src.Metadata.Title = strings.TrimSuffix(base, filepath.Ext(base))
	return src, nil
}

// FromFile normalizes a local media file into dir.
func (a *Acquirer) FromFile(ctx context.Context, path, dir string) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAcquisitionFailed, "media file not found")
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	audio, err := a.normalize(ctx, path, dir)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return &Source{AudioPath: audio, Metadata: Metadata{Title: title, Duration: "N/A"}}, nil
}

// FetchAlternateText returns the description of the video at url, or "" when
// it cannot be obtained.
func (a *Acquirer) FetchAlternateText(ctx context.Context, url string) string {
	out, err := a.exec.Execute(ctx, a.cfg.YtDlpPath, "--dump-json", "--skip-download", "--no-playlist", url)
	if err != nil {
		a.logger.Warn().Err(err).Msg("failed to fetch video description")
		return ""
	}
	if !gjson.Valid(out) {
		return ""
	}
	return gjson.Get(out, "description").String()
}

// normalize converts input into 16-bit mono PCM at the configured rate.
func (a *Acquirer) normalize(ctx context.Context, input, dir string) (string, error) {
	out := filepath.Join(dir, AudioFile)
	args := []string{
		"-y",
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", fmt.Sprint(a.cfg.SampleRateHz),
		"-acodec", "pcm_s16le",
		out,
	}
	if _, err := a.exec.Execute(ctx, a.cfg.FFmpegPath, args...); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeAcquisitionFailed, "audio conversion failed")
	}
	if _, err := os.Stat(out); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeAcquisitionFailed, "normalized audio missing")
	}
	return out, nil
}

func (a *Acquirer) readInfo(path string) Metadata {
	meta := Metadata{Title: "N/A", Duration: "N/A"}
	raw, err := os.ReadFile(path)
	if err != nil || !gjson.ValidBytes(raw) {
		a.logger.Debug().Err(err).Msg("video info unavailable")
		return meta
	}

	info := gjson.ParseBytes(raw)
	meta.ID = info.Get("id").String()
	if title := info.Get("title").String(); title != "" {
		meta.Title = title
	}
	meta.Description = info.Get("description").String()
	if d := info.Get("duration"); d.Exists() {
		meta.DurationSeconds = d.Float()
		meta.Duration = FormatDuration(meta.DurationSeconds)
	}
	return meta
}

// FormatDuration renders seconds as "N minutes S seconds".
func FormatDuration(seconds float64) string {
	if seconds <= 0 {
		return "N/A"
	}
	minutes, rest := int(seconds)/60, int(seconds)%60
	switch {
	case minutes == 0:
		return fmt.Sprintf("%d seconds", rest)
	case rest == 0:
		return fmt.Sprintf("%d minutes", minutes)
	default:
		return fmt.Sprintf("%d minutes %d seconds", minutes, rest)
	}
}

// downloadError maps yt-dlp failures to user-facing messages.
func downloadError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Sign in to confirm you're not a bot"):
		return apperrors.Wrap(err, apperrors.CodeAcquisitionFailed,
			"YouTube bot detection triggered. Please try again in a few minutes or use a different video.")
	case strings.Contains(msg, "Private video"):
		return apperrors.Wrap(err, apperrors.CodeAcquisitionFailed,
			"This is a private video and cannot be downloaded.")
	case strings.Contains(msg, "Video unavailable"):
		return apperrors.Wrap(err, apperrors.CodeAcquisitionFailed,
			"Video is unavailable or has been removed.")
	default:
		return apperrors.Wrap(err, apperrors.CodeAcquisitionFailed, "YouTube download failed")
	}
}
