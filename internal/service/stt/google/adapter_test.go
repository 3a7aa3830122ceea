package google

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.LanguageCode)
	}
	if cfg.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.SampleRateHz)
	}
	if cfg.AudioEncoding != "LINEAR16" {
		t.Errorf("expected default encoding 'LINEAR16', got %s", cfg.AudioEncoding)
	}
}

func TestParseAudioEncoding(t *testing.T) {
	tests := []struct {
		input    string
		expected speechpb.RecognitionConfig_AudioEncoding
	}{
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16},
		{"FLAC", speechpb.RecognitionConfig_FLAC},
		{"MULAW", speechpb.RecognitionConfig_MULAW},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS},
		{"WEBM_OPUS", speechpb.RecognitionConfig_WEBM_OPUS},
		{"MP3", speechpb.RecognitionConfig_MP3},
		{"linear16", speechpb.RecognitionConfig_LINEAR16}, // fallback
		{"", speechpb.RecognitionConfig_LINEAR16},         // fallback
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseAudioEncoding(tt.input)
			if got != tt.expected {
				t.Errorf("parseAudioEncoding(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBuildRequest(t *testing.T) {
	req := buildRequest(DefaultConfig(), []byte{1, 2, 3})

	if req.Config.SampleRateHertz != 16000 {
		t.Errorf("expected sample rate 16000, got %d", req.Config.SampleRateHertz)
	}
	if !req.Config.EnableAutomaticPunctuation {
		t.Error("expected punctuation enabled")
	}
	content, ok := req.Audio.AudioSource.(*speechpb.RecognitionAudio_Content)
	if !ok || len(content.Content) != 3 {
		t.Errorf("expected inline audio content, got %T", req.Audio.AudioSource)
	}
}

func TestToSegments(t *testing.T) {
	results := []*speechpb.SpeechRecognitionResult{
		{
			Alternatives:  []*speechpb.SpeechRecognitionAlternative{{Transcript: "hello there", Confidence: 0.9}},
			ResultEndTime: durationpb.New(2 * time.Second),
		},
		{Alternatives: nil},
		{
			Alternatives:  []*speechpb.SpeechRecognitionAlternative{{Transcript: "general kenobi", Confidence: 0.8}},
			ResultEndTime: durationpb.New(5 * time.Second),
		},
	}

	segments := toSegments(results, 0)
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[1].Start != 2 || segments[1].End != 5 {
		t.Errorf("unexpected timing: %+v", segments[1])
	}
	if segments[0].Text != "hello there" {
		t.Errorf("unexpected text %q", segments[0].Text)
	}
}

func TestToSegments_WindowOffset(t *testing.T) {
	results := []*speechpb.SpeechRecognitionResult{{
		Alternatives:  []*speechpb.SpeechRecognitionAlternative{{Transcript: "later on"}},
		ResultEndTime: durationpb.New(3 * time.Second),
	}}

	segments := toSegments(results, 300)
	if segments[0].Start != 300 || segments[0].End != 303 {
		t.Errorf("expected 300-303, got %+v", segments[0])
	}
}

func TestSplitPCM(t *testing.T) {
	data := make([]byte, 25)
	windows := splitPCM(data, 10, 4)

	if len(windows) != 4 {
		t.Fatalf("expected 4 windows, got %d", len(windows))
	}
	for i, w := range windows[:3] {
		if len(w) != 8 {
			t.Errorf("window %d: expected 8 bytes, got %d", i, len(w))
		}
	}
	if len(windows[3]) != 1 {
		t.Errorf("expected 1 trailing byte, got %d", len(windows[3]))
	}
	if got := splitPCM(data, 100, 2); len(got) != 1 || len(got[0]) != 25 {
		t.Errorf("expected single window, got %d", len(got))
	}
}

func TestReadPCM_WAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audio.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := wav.NewEncoder(f, 16000, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 16000},
		SourceBitDepth: 16,
		Data:           make([]int, 16000),
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	pcm, err := readPCM(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pcm.data) != 32000 {
		t.Errorf("expected 32000 sample bytes, got %d", len(pcm.data))
	}
	if pcm.sampleRate != 16000 || pcm.blockAlign != 2 {
		t.Errorf("unexpected format %d Hz block %d", pcm.sampleRate, pcm.blockAlign)
	}
	if got := pcm.seconds(16000); got != 0.5 {
		t.Errorf("expected 0.5s, got %v", got)
	}
}

func TestReadPCM_OtherFormats(t *testing.T) {
	dir := t.TempDir()
	small := filepath.Join(dir, "clip.flac")
	os.WriteFile(small, []byte("flac-bytes"), 0o644)

	pcm, err := readPCM(small)
	if err != nil || string(pcm.data) != "flac-bytes" {
		t.Errorf("expected raw content, got %q %v", pcm.data, err)
	}

	large := filepath.Join(dir, "long.flac")
	os.WriteFile(large, make([]byte, maxInlineBytes+1), 0o644)
	if _, err := readPCM(large); err == nil {
		t.Error("expected error for oversized non-WAV input")
	}
}
