// Package google provides a Google Cloud Speech-to-Text engine.
package google

import (
	"context"
	"fmt"
	"io"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/go-audio/wav"

	"video-digest-service/internal/service/stt"
)

// maxInlineBytes keeps each request below the 10 MB inline content limit.
const maxInlineBytes = 9 << 20

// Config holds recognition settings.
type Config struct {
	LanguageCode  string
	SampleRateHz  int32
	AudioEncoding string
	Punctuation   bool
}

// DefaultConfig matches the normalized audio produced by acquisition.
func DefaultConfig() Config {
	return Config{
		LanguageCode:  "en-US",
		SampleRateHz:  16000,
		AudioEncoding: "LINEAR16",
		Punctuation:   true,
	}
}

// Engine implements stt.Engine using Google Cloud Speech-to-Text.
type Engine struct {
	client *speech.Client
	cfg    Config
}

// New creates a new Google STT engine.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Engine{client: c, cfg: cfg}, nil
}

// Name implements stt.Engine.
func (e *Engine) Name() string { return "google" }

// Transcribe recognizes the file in windows small enough to send inline and
// joins the results. Segment times are relative to the start of the file.
func (e *Engine) Transcribe(ctx context.Context, audioPath string) ([]stt.Segment, error) {
	pcm, err := readPCM(audioPath)
	if err != nil {
		return nil, err
	}

	cfg := e.cfg
	if pcm.sampleRate > 0 {
		cfg.SampleRateHz = int32(pcm.sampleRate)
	}

	var segments []stt.Segment
	for i, window := range splitPCM(pcm.data, maxInlineBytes, pcm.blockAlign) {
		op, err := e.client.LongRunningRecognize(ctx, buildRequest(cfg, window))
		if err != nil {
			return nil, fmt.Errorf("start recognition of window %d: %w", i, err)
		}
		resp, err := op.Wait(ctx)
		if err != nil {
			return nil, fmt.Errorf("recognition of window %d: %w", i, err)
		}
		offset := pcm.seconds(i * windowBytes(maxInlineBytes, pcm.blockAlign))
		segments = append(segments, toSegments(resp.Results, offset)...)
	}
	return segments, nil
}

type pcmAudio struct {
	data       []byte
	sampleRate int
	blockAlign int
}

// seconds converts a byte offset into the PCM data to a time offset.
func (p pcmAudio) seconds(offset int) float64 {
	if p.sampleRate <= 0 || p.blockAlign <= 0 {
		return 0
	}
	return float64(offset) / float64(p.sampleRate*p.blockAlign)
}

// readPCM returns the raw samples of a WAV file. Other files are returned
// whole and must already fit in one inline request.
func readPCM(path string) (pcmAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return pcmAudio{}, fmt.Errorf("read audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if err := dec.FwdToPCM(); err == nil && dec.Err() == nil && dec.PCMChunk != nil && dec.NumChans > 0 {
		data := make([]byte, dec.PCMLen())
		if _, err := io.ReadFull(dec.PCMChunk.R, data); err != nil {
			return pcmAudio{}, fmt.Errorf("read audio samples: %w", err)
		}
		return pcmAudio{
			data:       data,
			sampleRate: int(dec.SampleRate),
			blockAlign: int(dec.NumChans) * int(dec.BitDepth) / 8,
		}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return pcmAudio{}, fmt.Errorf("read audio: %w", err)
	}
	if len(data) > maxInlineBytes {
		return pcmAudio{}, fmt.Errorf("audio is %d bytes, only WAV input can be split below the inline limit", len(data))
	}
	return pcmAudio{data: data}, nil
}

// windowBytes rounds limit down to a whole number of sample frames.
func windowBytes(limit, blockAlign int) int {
	if blockAlign <= 1 {
		return limit
	}
	return limit - limit%blockAlign
}

// splitPCM cuts data into windows of at most limit bytes on frame boundaries.
func splitPCM(data []byte, limit, blockAlign int) [][]byte {
	size := windowBytes(limit, blockAlign)
	if len(data) <= size {
		return [][]byte{data}
	}
	var windows [][]byte
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		windows = append(windows, data[start:end])
	}
	return windows
}

// Close releases the client connection.
func (e *Engine) Close() error {
	return e.client.Close()
}

func buildRequest(cfg Config, audio []byte) *speechpb.LongRunningRecognizeRequest {
	return &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   parseAudioEncoding(cfg.AudioEncoding),
			SampleRateHertz:            cfg.SampleRateHz,
			AudioChannelCount:          1,
			LanguageCode:               cfg.LanguageCode,
			EnableAutomaticPunctuation: cfg.Punctuation,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

// toSegments converts results whose end times are relative to a window that
// starts offset seconds into the file.
func toSegments(results []*speechpb.SpeechRecognitionResult, offset float64) []stt.Segment {
	segments := make([]stt.Segment, 0, len(results))
	start := offset
	for _, r := range results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		end := start
		if r.ResultEndTime != nil {
			end = offset + r.ResultEndTime.AsDuration().Seconds()
		}
		segments = append(segments, stt.Segment{
			Text:       alt.Transcript,
			Start:      start,
			End:        end,
			Confidence: float64(alt.Confidence),
		})
		start = end
	}
	return segments
}

// parseAudioEncoding maps an encoding name to the API enum, defaulting to LINEAR16.
func parseAudioEncoding(name string) speechpb.RecognitionConfig_AudioEncoding {
	switch name {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	case "MP3":
		return speechpb.RecognitionConfig_MP3
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
