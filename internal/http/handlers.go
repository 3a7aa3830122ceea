package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "video-digest-service/internal/errors"
	"video-digest-service/internal/models"
	"video-digest-service/internal/observability/logging"
	"video-digest-service/internal/observability/metrics"
	"video-digest-service/internal/service/pipeline"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// Processor runs one digest request.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*models.DigestResult, error)
}

// Handlers serves the digest HTTP API.
type Handlers struct {
	Processor      Processor
	Accumulator    *metrics.Accumulator
	Models         func() map[string]string
	Uptime         func() time.Duration
	Ready          func() bool
	MaxUploadBytes int64
	RequestTimeout time.Duration

	logger zerolog.Logger
}

// supportedModels lists the model families the service can be configured with.
var supportedModels = map[string][]string{
	"summarization": {"extractive", "facebook/bart-large-cnn", "gemini-2.0-flash"},
	"transcription": {"mock", "google-speech", "whisper-1"},
	"translation":   {"bhashini", "google"},
}

// newRequestID returns a server-side id for a digest. The client's
// X-Request-Id is only logged for correlation since the id names the
// request's work directory.
func (h *Handlers) newRequestID(r *http.Request) string {
	id := uuid.NewString()
	if clientID := middleware.GetReqID(r.Context()); clientID != "" {
		h.logger.Debug().Str("requestId", id).Str("correlationId", clientID).Msg("request id assigned")
	}
	return id
}

func (h *Handlers) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if h.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), h.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

// Summarize handles POST /summarize with a multipart form carrying url (or
// video_url), language, an optional file and an optional transcript.
func (h *Handlers) Summarize(w http.ResponseWriter, r *http.Request) {
	requestID := h.newRequestID(r)
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, models.NewErrorResponse(string(apperrors.CodeInvalidRequest), "Upload exceeds the maximum allowed size", requestID))
			return
		}
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(string(apperrors.CodeInvalidRequest), "Malformed form data", requestID))
		return
	}

	req := pipeline.Request{
		RequestID:      requestID,
		SourceURL:      strings.TrimSpace(firstNonEmpty(r.FormValue("url"), r.FormValue("video_url"))),
		Transcript:     r.FormValue("transcript"),
		TargetLanguage: r.FormValue("language"),
	}

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		req.Upload = file
		req.UploadName = header.Filename
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	result, err := h.Processor.Process(ctx, req)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type batchItem struct {
	URL      string `json:"url"`
	Language string `json:"language"`
}

type batchRequest struct {
	Videos   []batchItem `json:"videos"`
	Language string      `json:"language"`
}

type batchResult struct {
	VideoURL         string                   `json:"video_url"`
	Status           string                   `json:"status"`
	RequestID        string                   `json:"request_id,omitempty"`
	Summary          string                   `json:"summary,omitempty"`
	EnglishSummary   string                   `json:"english_summary,omitempty"`
	TargetLanguage   string                   `json:"target_language,omitempty"`
	ConfidenceScores *models.ConfidenceScores `json:"confidence_scores,omitempty"`
	Code             string                   `json:"code,omitempty"`
	Error            string                   `json:"error,omitempty"`
}

// BatchSummarize handles POST /api/batch-summarize. Videos are processed one
// after another and each gets its own status.
func (h *Handlers) BatchSummarize(w http.ResponseWriter, r *http.Request) {
	requestID := h.newRequestID(r)

	var body batchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(string(apperrors.CodeInvalidRequest), "Malformed JSON body", requestID))
		return
	}
	if len(body.Videos) == 0 {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(string(apperrors.CodeInvalidRequest), "No videos provided", requestID))
		return
	}

	ctx, cancel := h.requestContext(r)
	defer cancel()

	results := make([]batchResult, 0, len(body.Videos))
	for _, video := range body.Videos {
		lang := firstNonEmpty(video.Language, body.Language)
		res, err := h.Processor.Process(ctx, pipeline.Request{RequestID: uuid.NewString(), SourceURL: video.URL, TargetLanguage: lang})
		if err != nil {
			appErr, _ := apperrors.As(err)
			item := batchResult{VideoURL: video.URL, Status: "error", Error: err.Error()}
			if appErr != nil {
				item.Code = string(appErr.Code)
				item.Error = appErr.UserMessage()
			}
			results = append(results, item)
			continue
		}
		scores := res.ConfidenceScores
		results = append(results, batchResult{
			VideoURL:         video.URL,
			Status:           "processed",
			RequestID:        res.RequestID,
			Summary:          res.Summary,
			EnglishSummary:   res.EnglishSummary,
			TargetLanguage:   res.TargetLanguage,
			ConfidenceScores: &scores,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":          models.StatusSuccess,
		"processed_count": len(results),
		"results":         results,
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	ready := h.Ready == nil || h.Ready()
	status, message := "healthy", "Backend is running"
	code := http.StatusOK
	if !ready {
		status, message = "starting", "Pipeline is not ready"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":        status,
		"message":       message,
		"models_loaded": ready,
	})
}

// ListModels handles GET /api/models.
func (h *Handlers) ListModels(w http.ResponseWriter, _ *http.Request) {
	current := map[string]string{}
	if h.Models != nil {
		current = h.Models()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        models.StatusSuccess,
		"models":        supportedModels,
		"current_model": current,
	})
}

// Metrics handles GET /api/metrics.
func (h *Handlers) Metrics(w http.ResponseWriter, _ *http.Request) {
	var uptime time.Duration
	if h.Uptime != nil {
		uptime = h.Uptime()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       models.StatusSuccess,
		"metrics":      h.Accumulator.Snapshot(),
		"uptime_hours": float64(int64(uptime.Hours()*100+0.5)) / 100,
	})
}

func (h *Handlers) writeError(w http.ResponseWriter, requestID string, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(err, apperrors.CodeInternal, "Unexpected error")
	}
	if appErr.HTTPStatus() >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("requestId", requestID).Msg("request failed")
	}
	writeJSON(w, appErr.HTTPStatus(), models.NewErrorResponse(string(appErr.Code), appErr.UserMessage(), requestID))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger := logging.WithComponent("http")
		logger.Warn().Err(err).Msg("failed to write response")
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
