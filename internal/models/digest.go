// Package models defines the data structures returned by the API and
// published as events.
package models

// StatusSuccess marks a completed digest, including degraded ones.
const StatusSuccess = "success"

// DigestResult is the response for one processed request.
type DigestResult struct {
	RequestID         string            `json:"request_id"`
	Status            string            `json:"status"`
	Transcript        string            `json:"transcript"`
	EnglishSummary    string            `json:"english_summary"`
	Summary           string            `json:"summary"`
	SummaryAudio      *string           `json:"summary_audio"`
	AudioFormat       string            `json:"audio_format,omitempty"`
	SourceLanguage    string            `json:"source_language"`
	TargetLanguage    string            `json:"target_language"`
	ContentSource     string            `json:"content_source"`
	Metrics           DigestMetrics     `json:"metrics"`
	ConfidenceScores  ConfidenceScores  `json:"confidence_scores"`
	ProcessingMetrics ProcessingMetrics `json:"processing_metrics"`
}

// DigestMetrics describes the source and the produced texts.
type DigestMetrics struct {
	VideoTitle           string             `json:"video_title"`
	VideoDuration        string             `json:"video_duration"`
	TranscriptLength     int                `json:"transcript_length"`
	EnglishSummaryLength int                `json:"english_summary_length"`
	FinalSummaryLength   int                `json:"final_summary_length"`
	TargetLanguage       string             `json:"target_language"`
	StageTimings         map[string]float64 `json:"stage_timings"`
	SilentAudio          bool               `json:"silent_audio"`
}

// ConfidenceScores are heuristic quality indicators in [0.7, 0.98].
type ConfidenceScores struct {
	TranscriptionAccuracy float64 `json:"transcription_accuracy"`
	SummaryCoherence      float64 `json:"summary_coherence"`
	ContentRetention      float64 `json:"content_retention"`
	LexicalDiversity      float64 `json:"lexical_diversity"`
	CompressionRatio      float64 `json:"compression_ratio"`
	ProcessingTimeSeconds float64 `json:"processing_time_seconds"`
}

// ProcessingMetrics records the request's wall-clock cost.
type ProcessingMetrics struct {
	TotalTimeSeconds float64 `json:"total_time_seconds"`
	Timestamp        string  `json:"timestamp"`
}

// ErrorResponse is the body returned for failed requests.
type ErrorResponse struct {
	Status    string `json:"status"`
	Code      string `json:"code"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// NewErrorResponse builds an error body.
func NewErrorResponse(code, message, requestID string) ErrorResponse {
	return ErrorResponse{Status: "error", Code: code, Error: message, RequestID: requestID}
}
