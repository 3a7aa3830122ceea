// Package fallback decides whether a transcript carries enough content to
// summarize and, when it does not, substitutes the video description.
package fallback

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"video-digest-service/internal/observability/logging"
	"video-digest-service/internal/observability/metrics"
)

// Diagnostic messages returned when no usable content exists.
const (
	NoiseVideoMessage = "This video contains primarily noise or non-speech content. A meaningful summary cannot be generated."
	NoiseAudioMessage = "The audio content is too short or contains primarily noise. A meaningful summary cannot be generated."
)

// Defaults for the content check.
const (
	DefaultMinTranscriptChars = 50
	DefaultMaxDescriptionWord = 100
	minDescriptionLineChars   = 10
)

// Source identifies where the summarizable text came from.
type Source string

const (
	SourceTranscript  Source = "transcript"
	SourceDescription Source = "description"
	SourceNone        Source = "none"
)

// Resolution is the outcome of the content check.
type Resolution struct {
	Text    string
	Usable  bool
	Source  Source
	Message string
}

// AlternateSource supplies secondary text for a video URL, such as its
// description. It returns "" when nothing is available.
type AlternateSource interface {
	FetchAlternateText(ctx context.Context, url string) string
}

// Resolver applies the short-transcript rule.
type Resolver struct {
	alt      AlternateSource
	minChars int
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewResolver creates a resolver. alt may be nil.
func NewResolver(alt AlternateSource, minChars int, m *metrics.Metrics) *Resolver {
	if minChars <= 0 {
		minChars = DefaultMinTranscriptChars
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Resolver{
		alt:      alt,
		minChars: minChars,
		metrics:  m,
		logger:   logging.WithComponent("fallback"),
	}
}

// Resolve returns the text to summarize for transcript. description is the
// video description read during acquisition; when empty it is fetched from
// the alternate source.
func (r *Resolver) Resolve(ctx context.Context, transcript, sourceURL, description string) Resolution {
	text := strings.TrimSpace(transcript)
	if utf8.RuneCountInString(text) >= r.minChars {
		return Resolution{Text: text, Usable: true, Source: SourceTranscript}
	}

	r.logger.Info().Int("chars", utf8.RuneCountInString(text)).Msg("transcript too short, looking for alternate content")

	if sourceURL == "" {
		r.metrics.RecordFallback("content", "noise")
		return Resolution{Source: SourceNone, Message: NoiseAudioMessage}
	}

	if description == "" && r.alt != nil {
		description = r.alt.FetchAlternateText(ctx, sourceURL)
	}
	if description != "" {
		desc := CleanDescription(description)
		if utf8.RuneCountInString(desc) > r.minChars {
			r.metrics.RecordFallback("content", "description")
			r.logger.Info().Msg("using video description as content")
			return Resolution{Text: desc, Usable: true, Source: SourceDescription}
		}
	}

	r.metrics.RecordFallback("content", "noise")
	return Resolution{Source: SourceNone, Message: NoiseVideoMessage}
}

var promoMarkers = []string{"subscribe", "follow", "http", "instagram", "facebook", "twitter"}

// CleanDescription strips promotional lines, hashtags and handles from a
// video description and keeps the first 100 words.
func CleanDescription(description string) string {
	var kept []string
	for _, line := range strings.Split(description, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || isPromo(line) {
			continue
		}

		var words []string
		for _, w := range strings.Fields(line) {
			if strings.HasPrefix(w, "#") || strings.HasPrefix(w, "@") {
				continue
			}
			words = append(words, w)
		}
		cleaned := strings.Join(words, " ")
		if utf8.RuneCountInString(cleaned) > minDescriptionLineChars {
			kept = append(kept, cleaned)
		}
	}

	words := strings.Fields(strings.Join(kept, " "))
	if len(words) > DefaultMaxDescriptionWord {
		words = words[:DefaultMaxDescriptionWord]
	}
	return strings.Join(words, " ")
}

func isPromo(line string) bool {
	lower := strings.ToLower(line)
	for _, marker := range promoMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
