package pipeline

import (
	"math"
	"strings"
	"unicode"

	"video-digest-service/internal/models"
)

// Confidence scores are reported within this range.
const (
	minConfidence = 0.7
	maxConfidence = 0.98
)

// idealCompression is the summary-to-source word ratio scored highest.
const idealCompression = 0.25

// ComputeConfidence derives heuristic quality scores from the produced texts.
// It never fails; empty inputs yield the minimum scores.
func ComputeConfidence(transcript, englishSummary string, processingSeconds float64) models.ConfidenceScores {
	sourceWords := normalizedWords(transcript)
	summaryWords := normalizedWords(englishSummary)

	diversity := lexicalDiversity(sourceWords)
	compression := 0.0
	if len(sourceWords) > 0 {
		compression = float64(len(summaryWords)) / float64(len(sourceWords))
	}
	retention := contentRetention(sourceWords, summaryWords)

	// Longer, more varied transcripts indicate cleaner recognition.
	lengthFactor := math.Min(float64(len(sourceWords))/300, 1)
	accuracy := minConfidence + 0.15*lengthFactor + 0.13*diversity

	coherence := minConfidence
	if compression > 0 && compression <= 1 {
		distance := math.Abs(compression-idealCompression) / (1 - idealCompression)
		coherence = minConfidence + 0.28*(1-math.Min(distance, 1))
	}

	return models.ConfidenceScores{
		TranscriptionAccuracy: round2(clamp(accuracy)),
		SummaryCoherence:      round2(clamp(coherence)),
		ContentRetention:      round2(clamp(minConfidence + 0.28*retention)),
		LexicalDiversity:      round2(diversity),
		CompressionRatio:      round2(compression),
		ProcessingTimeSeconds: round2(processingSeconds),
	}
}

func normalizedWords(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	return fields
}

func lexicalDiversity(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	return float64(len(unique)) / float64(len(words))
}

// contentRetention is the share of the summary's content words found in the source.
func contentRetention(source, summary []string) float64 {
	vocab := make(map[string]struct{}, len(source))
	for _, w := range source {
		vocab[w] = struct{}{}
	}

	var content, retained int
	for _, w := range summary {
		if len([]rune(w)) <= 3 {
			continue
		}
		content++
		if _, ok := vocab[w]; ok {
			retained++
		}
	}
	if content == 0 {
		return 0
	}
	return float64(retained) / float64(content)
}

func clamp(v float64) float64 {
	return math.Max(minConfidence, math.Min(maxConfidence, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
