package models

// Event types published after each request.
const (
	EventDigestCompleted = "digest.completed"
	EventDigestFailed    = "digest.failed"
)

// DigestCompleted is published when a request produced a digest.
type DigestCompleted struct {
	EventType      string             `json:"eventType"`
	RequestID      string             `json:"requestId"`
	Timestamp      int64              `json:"timestamp"`
	SourceURL      string             `json:"sourceUrl,omitempty"`
	Title          string             `json:"title"`
	SourceLanguage string             `json:"sourceLanguage"`
	TargetLanguage string             `json:"targetLanguage"`
	ContentSource  string             `json:"contentSource"`
	EnglishSummary string             `json:"englishSummary"`
	Summary        string             `json:"summary"`
	SilentAudio    bool               `json:"silentAudio"`
	DurationMs     int64              `json:"durationMs"`
	StageTimings   map[string]float64 `json:"stageTimings"`
}

// DigestFailed is published when a request ended with an error.
type DigestFailed struct {
	EventType  string `json:"eventType"`
	RequestID  string `json:"requestId"`
	Timestamp  int64  `json:"timestamp"`
	SourceURL  string `json:"sourceUrl,omitempty"`
	Stage      string `json:"stage"`
	Code       string `json:"code"`
	Error      string `json:"error"`
	DurationMs int64  `json:"durationMs"`
}
