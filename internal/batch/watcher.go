// Package batch processes media files dropped into a watched folder through
// the digest pipeline and writes a JSON result and a .docx report per file.
package batch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"video-digest-service/internal/models"
	"video-digest-service/internal/observability/logging"
	"video-digest-service/internal/observability/metrics"
	"video-digest-service/internal/service/pipeline"
)

// defaultSettleDelay gives writers time to finish a file after CREATE.
const defaultSettleDelay = 500 * time.Millisecond

var mediaExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true, ".m4v": true, ".flv": true,
	".mp3": true, ".wav": true, ".m4a": true, ".flac": true, ".ogg": true,
}

// Processor runs one digest request.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*models.DigestResult, error)
}

type Config struct {
	InputDir       string
	OutputDir      string
	MaxConcurrent  int
	TargetLanguage string
}

// Watcher monitors InputDir and digests new media files with bounded concurrency.
type Watcher struct {
	cfg         Config
	processor   Processor
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	watcher     *fsnotify.Watcher
	semaphore   chan struct{}
	wg          sync.WaitGroup
	settleDelay time.Duration
}

// New creates a watcher on cfg.InputDir.
func New(cfg Config, p Processor, m *metrics.Metrics) (*Watcher, error) {
	if m == nil {
		m = metrics.DefaultMetrics
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 2
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(cfg.InputDir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &Watcher{
		cfg:         cfg,
		processor:   p,
		metrics:     m,
		logger:      logging.WithComponent("batch"),
		watcher:     fw,
		semaphore:   make(chan struct{}, cfg.MaxConcurrent),
		settleDelay: defaultSettleDelay,
	}, nil
}

// Start blocks handling CREATE events until ctx is done, then waits for files
// in progress.
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info().
		Str("inputDir", w.cfg.InputDir).
		Int("maxConcurrent", w.cfg.MaxConcurrent).
		Msg("Batch watcher started")

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			w.logger.Info().Msg("Batch watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				w.wg.Wait()
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !isMediaFile(event.Name) {
				w.logger.Debug().Str("file", event.Name).Msg("Ignoring non-media file")
				continue
			}

			w.logger.Info().Str("file", event.Name).Msg("New media file detected")
			select {
			case <-time.After(w.settleDelay):
			case <-ctx.Done():
				w.wg.Wait()
				return ctx.Err()
			}

			select {
			case w.semaphore <- struct{}{}:
				w.wg.Add(1)
				go func(path string) {
					defer w.wg.Done()
					defer func() { <-w.semaphore }()

					if err := w.HandleFile(ctx, path); err != nil {
						w.logger.Error().Err(err).Str("file", path).Msg("Failed to write batch output")
					}
				}(event.Name)
			case <-ctx.Done():
				w.wg.Wait()
				return ctx.Err()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.wg.Wait()
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// Stop closes the file watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// HandleFile digests path and writes its outputs, named after the full file
// name so talk.mp4 and talk.mov do not collide. Pipeline failures are
// recorded in the result file; only output errors are returned.
func (w *Watcher) HandleFile(ctx context.Context, path string) error {
	name := filepath.Base(path)
	title := strings.TrimSuffix(name, filepath.Ext(name))

	result, err := w.processor.Process(ctx, pipeline.Request{
		UploadPath:     path,
		UploadName:     filepath.Base(path),
		TargetLanguage: w.cfg.TargetLanguage,
	})
	w.metrics.RecordBatchFile(err == nil)

	if err != nil {
		w.logger.Warn().Err(err).Str("file", path).Msg("Digest failed")
		return writeFailure(w.cfg.OutputDir, name, path, err)
	}

	if err := writeResult(w.cfg.OutputDir, name, result); err != nil {
		return err
	}
	if err := writeReport(filepath.Join(w.cfg.OutputDir, name+".docx"), title, result); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	w.logger.Info().Str("file", path).Str("requestId", result.RequestID).Msg("Digest written")
	return nil
}

func isMediaFile(path string) bool {
	return mediaExtensions[strings.ToLower(filepath.Ext(path))]
}
