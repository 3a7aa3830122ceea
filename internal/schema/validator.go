// Package schema validates inbound requests and outbound events.
package schema

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "video-digest-service/internal/errors"
	"video-digest-service/internal/models"
)

var languagePattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z]{2,4})?$`)

var youtubeHosts = []string{"youtube.com", "youtu.be"}

// Input is the request surface checked before any work starts.
type Input struct {
	SourceURL      string
	HasUpload      bool
	Transcript     string
	TargetLanguage string
}

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateRequest returns an INVALID_REQUEST error for malformed input.
func (v *Validator) ValidateRequest(in Input) error {
	if strings.TrimSpace(in.SourceURL) == "" && !in.HasUpload && strings.TrimSpace(in.Transcript) == "" {
		return apperrors.New(apperrors.CodeInvalidRequest, "No video URL, file or transcript provided")
	}
	if in.SourceURL != "" && !IsYouTubeURL(in.SourceURL) {
		return apperrors.New(apperrors.CodeInvalidRequest, "Only YouTube URLs supported. Use YouTube links or file upload.").
			WithMetadata("url", in.SourceURL)
	}
	if !languagePattern.MatchString(in.TargetLanguage) {
		return apperrors.Newf(apperrors.CodeInvalidRequest, "invalid language code %q", in.TargetLanguage)
	}
	return nil
}

// NormalizeLanguage lowercases and trims a language code, defaulting to "en".
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "en"
	}
	return lang
}

// IsYouTubeURL reports whether raw is an http(s) URL on a YouTube host.
func IsYouTubeURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range youtubeHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// ValidateEvent checks the fields consumers rely on before publishing.
func (v *Validator) ValidateEvent(event any) error {
	var eventType, requestID string
	switch e := event.(type) {
	case *models.DigestCompleted:
		eventType, requestID = e.EventType, e.RequestID
	case *models.DigestFailed:
		eventType, requestID = e.EventType, e.RequestID
		if e.Code == "" {
			return apperrors.New(apperrors.CodeInternal, "failed event without error code")
		}
	default:
		return apperrors.Newf(apperrors.CodeInternal, "unknown event type %T", event)
	}

	if eventType == "" || requestID == "" {
		return apperrors.New(apperrors.CodeInternal, "event missing eventType or requestId")
	}
	log.Debug().Str("eventType", eventType).Str("requestId", requestID).Msg("event validated")
	return nil
}
