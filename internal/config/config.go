// Package config loads service configuration from defaults, an optional YAML
// file and environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration is the complete service configuration.
type Configuration struct {
	Service       ServiceConfig       `yaml:"service"`
	STT           STTConfig           `yaml:"stt"`
	Summarizer    SummarizerConfig    `yaml:"summarizer"`
	Translation   TranslationConfig   `yaml:"translation"`
	TTS           TTSConfig           `yaml:"tts"`
	Acquisition   AcquisitionConfig   `yaml:"acquisition"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Batch         BatchConfig         `yaml:"batch"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServiceConfig struct {
	Principal      string        `yaml:"principal"`
	HTTPPort       string        `yaml:"http_port"`
	GRPCPort       string        `yaml:"grpc_port"`
	MetricsPort    string        `yaml:"metrics_port"`
	WorkDir        string        `yaml:"work_dir"`
	KeepArtifacts  bool          `yaml:"keep_artifacts"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// STTConfig selects and configures the transcription engine.
// Provider is one of mock, google, whisper.
type STTConfig struct {
	Provider       string `yaml:"provider"`
	LanguageCode   string `yaml:"language_code"`
	SampleRateHz   int    `yaml:"sample_rate_hz"`
	AudioEncoding  string `yaml:"audio_encoding"`
	Punctuation    bool   `yaml:"punctuation"`
	WhisperBaseURL string `yaml:"whisper_base_url"`
	WhisperAPIKey  string `yaml:"whisper_api_key"`
	WhisperModel   string `yaml:"whisper_model"`
}

// SummarizerConfig selects the summarization model.
// Provider is one of extractive, huggingface, gemini.
type SummarizerConfig struct {
	Provider      string        `yaml:"provider"`
	ChunkChars    int           `yaml:"chunk_chars"`
	HFBaseURL     string        `yaml:"hf_base_url"`
	HFModel       string        `yaml:"hf_model"`
	HFToken       string        `yaml:"hf_token"`
	GeminiModel   string        `yaml:"gemini_model"`
	GeminiAPIKeys []string      `yaml:"gemini_api_keys"`
	Timeout       time.Duration `yaml:"timeout"`
}

type TranslationConfig struct {
	APIKey              string        `yaml:"api_key"`
	Endpoints           []string      `yaml:"endpoints"`
	ChunkChars          int           `yaml:"chunk_chars"`
	MinAcceptedChars    int           `yaml:"min_accepted_chars"`
	Timeout             time.Duration `yaml:"timeout"`
	RetryAttempts       int           `yaml:"retry_attempts"`
	RetryBaseDelay      time.Duration `yaml:"retry_base_delay"`
	BreakerThreshold    int           `yaml:"breaker_threshold"`
	BreakerResetTimeout time.Duration `yaml:"breaker_reset_timeout"`
	GoogleFallback      bool          `yaml:"google_fallback"`
	GoogleBaseURL       string        `yaml:"google_base_url"`
}

type TTSConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type AcquisitionConfig struct {
	YtDlpPath          string        `yaml:"yt_dlp_path"`
	FFmpegPath         string        `yaml:"ffmpeg_path"`
	SampleRateHz       int           `yaml:"sample_rate_hz"`
	Timeout            time.Duration `yaml:"timeout"`
	UserAgent          string        `yaml:"user_agent"`
	MinTranscriptChars int           `yaml:"min_transcript_chars"`
}

type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	TopicCompleted string   `yaml:"topic_completed"`
	TopicFailed    string   `yaml:"topic_failed"`
	Principal      string   `yaml:"principal"`
}

type BatchConfig struct {
	Enabled        bool   `yaml:"enabled"`
	InputDir       string `yaml:"input_dir"`
	OutputDir      string `yaml:"output_dir"`
	MaxConcurrent  int    `yaml:"max_concurrent"`
	TargetLanguage string `yaml:"target_language"`
}

type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Defaults returns the built-in configuration.
func Defaults() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal:      "svc-video-digest",
			HTTPPort:       "8000",
			GRPCPort:       "50051",
			MetricsPort:    "9090",
			WorkDir:        "data/work",
			MaxUploadBytes: 500 << 20,
			RequestTimeout: 30 * time.Minute,
		},
		STT: STTConfig{
			Provider:       "mock",
			LanguageCode:   "en-US",
			SampleRateHz:   16000,
			AudioEncoding:  "LINEAR16",
			Punctuation:    true,
			WhisperBaseURL: "https://api.openai.com/v1",
			WhisperModel:   "whisper-1",
		},
		Summarizer: SummarizerConfig{
			Provider:    "extractive",
			ChunkChars:  2000,
			HFBaseURL:   "https://api-inference.huggingface.co/models",
			HFModel:     "facebook/bart-large-cnn",
			GeminiModel: "gemini-2.0-flash",
			Timeout:     2 * time.Minute,
		},
		Translation: TranslationConfig{
			Endpoints: []string{
				"https://dhruva-api.bhashini.gov.in/services/inference/pipeline",
				"https://bhashini-api.mapmyindia.com/translation",
			},
			ChunkChars:          1500,
			MinAcceptedChars:    10,
			Timeout:             30 * time.Second,
			RetryAttempts:       3,
			RetryBaseDelay:      1500 * time.Millisecond,
			BreakerThreshold:    5,
			BreakerResetTimeout: 30 * time.Second,
			GoogleFallback:      true,
			GoogleBaseURL:       "https://translate.googleapis.com/translate_a/single",
		},
		TTS: TTSConfig{
			BaseURL: "https://translate.google.com/translate_tts",
			Timeout: 30 * time.Second,
		},
		Acquisition: AcquisitionConfig{
			YtDlpPath:          "yt-dlp",
			FFmpegPath:         "ffmpeg",
			SampleRateHz:       16000,
			Timeout:            10 * time.Minute,
			MinTranscriptChars: 50,
		},
		Kafka: KafkaConfig{
			TopicCompleted: "digest.completed",
			TopicFailed:    "digest.failed",
		},
		Batch: BatchConfig{
			InputDir:       "data/input",
			OutputDir:      "data/output",
			MaxConcurrent:  2,
			TargetLanguage: "en",
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load builds the configuration. A file named by CONFIG_FILE is applied over
// the defaults; environment variables override both. Unparseable values keep
// the previous value.
func Load() *Configuration {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "config: ignoring %s: %v\n", path, err)
		}
	}
	cfg.applyEnv()
	return cfg
}

func (c *Configuration) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Configuration) applyEnv() {
	s := &c.Service
	s.Principal = envOrDefault("SERVICE_PRINCIPAL", s.Principal)
	s.HTTPPort = envOrDefault("HTTP_PORT", s.HTTPPort)
	s.GRPCPort = envOrDefault("GRPC_PORT", s.GRPCPort)
	s.MetricsPort = envOrDefault("METRICS_PORT", s.MetricsPort)
	s.WorkDir = envOrDefault("WORK_DIR", s.WorkDir)
	s.KeepArtifacts = envOrDefaultBool("KEEP_ARTIFACTS", s.KeepArtifacts)
	s.MaxUploadBytes = envOrDefaultInt64("MAX_UPLOAD_BYTES", s.MaxUploadBytes)
	s.RequestTimeout = envOrDefaultDuration("REQUEST_TIMEOUT", s.RequestTimeout)

	stt := &c.STT
	stt.Provider = envOrDefault("STT_PROVIDER", stt.Provider)
	stt.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", stt.LanguageCode)
	stt.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", stt.SampleRateHz)
	stt.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", stt.AudioEncoding)
	stt.Punctuation = envOrDefaultBool("STT_PUNCTUATION", stt.Punctuation)
	stt.WhisperBaseURL = envOrDefault("WHISPER_BASE_URL", stt.WhisperBaseURL)
	stt.WhisperAPIKey = envOrDefault("WHISPER_API_KEY", stt.WhisperAPIKey)
	stt.WhisperModel = envOrDefault("WHISPER_MODEL", stt.WhisperModel)

	sum := &c.Summarizer
	sum.Provider = envOrDefault("SUMMARIZER_PROVIDER", sum.Provider)
	sum.ChunkChars = envOrDefaultInt("SUMMARIZER_CHUNK_CHARS", sum.ChunkChars)
	sum.HFBaseURL = envOrDefault("HF_BASE_URL", sum.HFBaseURL)
	sum.HFModel = envOrDefault("HF_MODEL", sum.HFModel)
	sum.HFToken = envOrDefault("HF_TOKEN", sum.HFToken)
	sum.GeminiModel = envOrDefault("GEMINI_MODEL", sum.GeminiModel)
	sum.GeminiAPIKeys = envOrDefaultList("GEMINI_API_KEYS", sum.GeminiAPIKeys)
	sum.Timeout = envOrDefaultDuration("SUMMARIZER_TIMEOUT", sum.Timeout)

	tr := &c.Translation
	tr.APIKey = envOrDefault("TRANSLATION_API_KEY", tr.APIKey)
	tr.Endpoints = envOrDefaultList("TRANSLATION_ENDPOINTS", tr.Endpoints)
	tr.ChunkChars = envOrDefaultInt("TRANSLATION_CHUNK_CHARS", tr.ChunkChars)
	tr.MinAcceptedChars = envOrDefaultInt("TRANSLATION_MIN_ACCEPTED_CHARS", tr.MinAcceptedChars)
	tr.Timeout = envOrDefaultDuration("TRANSLATION_TIMEOUT", tr.Timeout)
	tr.RetryAttempts = envOrDefaultInt("TRANSLATION_RETRY_ATTEMPTS", tr.RetryAttempts)
	tr.RetryBaseDelay = envOrDefaultDuration("TRANSLATION_RETRY_BASE_DELAY", tr.RetryBaseDelay)
	tr.BreakerThreshold = envOrDefaultInt("TRANSLATION_BREAKER_THRESHOLD", tr.BreakerThreshold)
	tr.BreakerResetTimeout = envOrDefaultDuration("TRANSLATION_BREAKER_RESET", tr.BreakerResetTimeout)
	tr.GoogleFallback = envOrDefaultBool("TRANSLATION_GOOGLE_FALLBACK", tr.GoogleFallback)
	tr.GoogleBaseURL = envOrDefault("TRANSLATION_GOOGLE_URL", tr.GoogleBaseURL)

	c.TTS.BaseURL = envOrDefault("TTS_BASE_URL", c.TTS.BaseURL)
	c.TTS.Timeout = envOrDefaultDuration("TTS_TIMEOUT", c.TTS.Timeout)

	acq := &c.Acquisition
	acq.YtDlpPath = envOrDefault("YTDLP_PATH", acq.YtDlpPath)
	acq.FFmpegPath = envOrDefault("FFMPEG_PATH", acq.FFmpegPath)
	acq.SampleRateHz = envOrDefaultInt("ACQUIRE_SAMPLE_RATE_HZ", acq.SampleRateHz)
	acq.Timeout = envOrDefaultDuration("ACQUIRE_TIMEOUT", acq.Timeout)
	acq.UserAgent = envOrDefault("ACQUIRE_USER_AGENT", acq.UserAgent)
	acq.MinTranscriptChars = envOrDefaultInt("MIN_TRANSCRIPT_CHARS", acq.MinTranscriptChars)

	k := &c.Kafka
	k.Enabled = envOrDefaultBool("KAFKA_ENABLED", k.Enabled)
	k.Brokers = envOrDefaultList("KAFKA_BROKERS", k.Brokers)
	k.TopicCompleted = envOrDefault("KAFKA_TOPIC_COMPLETED", k.TopicCompleted)
	k.TopicFailed = envOrDefault("KAFKA_TOPIC_FAILED", k.TopicFailed)
	k.Principal = envOrDefault("KAFKA_PRINCIPAL", k.Principal)
	if k.Principal == "" {
		k.Principal = s.Principal
	}

	b := &c.Batch
	b.Enabled = envOrDefaultBool("BATCH_ENABLED", b.Enabled)
	b.InputDir = envOrDefault("BATCH_INPUT_DIR", b.InputDir)
	b.OutputDir = envOrDefault("BATCH_OUTPUT_DIR", b.OutputDir)
	b.MaxConcurrent = envOrDefaultInt("BATCH_MAX_CONCURRENT", b.MaxConcurrent)
	b.TargetLanguage = envOrDefault("BATCH_TARGET_LANGUAGE", b.TargetLanguage)

	c.Observability.LogLevel = envOrDefault("LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
}

// Validate reports settings the service cannot start with.
func (c *Configuration) Validate() error {
	switch c.STT.Provider {
	case "mock", "google":
	case "whisper":
		if c.STT.WhisperAPIKey == "" {
			return fmt.Errorf("stt.whisper_api_key is required for the whisper provider")
		}
	default:
		return fmt.Errorf("unknown stt.provider %q", c.STT.Provider)
	}

	switch c.Summarizer.Provider {
	case "extractive", "huggingface":
	case "gemini":
		if len(c.Summarizer.GeminiAPIKeys) == 0 {
			return fmt.Errorf("summarizer.gemini_api_keys is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unknown summarizer.provider %q", c.Summarizer.Provider)
	}

	if c.Service.WorkDir == "" {
		return fmt.Errorf("service.work_dir is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	if c.Batch.Enabled {
		if c.Batch.InputDir == "" || c.Batch.OutputDir == "" {
			return fmt.Errorf("batch.input_dir and batch.output_dir are required when batch is enabled")
		}
		if c.Batch.MaxConcurrent < 1 {
			c.Batch.MaxConcurrent = 1
		}
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// envOrDefaultList splits a comma-separated value, dropping blanks.
func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
