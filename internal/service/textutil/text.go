// Package textutil holds the text slicing helpers shared by the length-limited
// pipeline stages (translation, summarization, speech synthesis).
package textutil

import (
	"strings"
	"unicode/utf8"
)

// Chunk splits text into contiguous pieces of at most maxChars characters.
// Joining the result with "" reproduces text exactly. Empty text yields nil.
func Chunk(text string, maxChars int) []string {
	if text == "" {
		return nil
	}
	if maxChars < 1 {
		maxChars = 1
	}

	chunks := make([]string, 0, utf8.RuneCountInString(text)/maxChars+1)
	start, count := 0, 0
	for i := range text {
		if count == maxChars {
			chunks = append(chunks, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(chunks, text[start:])
}

// Words splits text on whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// TruncateWords keeps the first n words, re-joined with single spaces.
func TruncateWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// TruncateRunes keeps the first n characters of text.
func TruncateRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}

// LeadSentences is the naive extractive summary: the first n pieces of text
// split on '.', joined back with ". " and terminated with a period.
func LeadSentences(text string, n int) string {
	sentences := strings.Split(text, ".")
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return strings.Join(sentences, ". ") + "."
}

// SplitForSpeech breaks text into pieces of at most maxChars characters on word
// boundaries. A single word longer than maxChars is hard-split.
func SplitForSpeech(text string, maxChars int) []string {
	if maxChars < 1 {
		maxChars = 1
	}

	var (
		pieces  []string
		current strings.Builder
		curLen  int
	)
	flush := func() {
		if curLen > 0 {
			pieces = append(pieces, current.String())
			current.Reset()
			curLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)
		if wordLen > maxChars {
			flush()
			pieces = append(pieces, Chunk(word, maxChars)...)
			continue
		}
		if curLen > 0 && curLen+1+wordLen > maxChars {
			flush()
		}
		if curLen > 0 {
			current.WriteByte(' ')
			curLen++
		}
		current.WriteString(word)
		curLen += wordLen
	}
	flush()
	return pieces
}
