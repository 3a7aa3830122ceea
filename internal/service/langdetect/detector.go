// Package langdetect identifies the language of free text.
package langdetect

import (
	"errors"
	"strings"

	"github.com/abadojack/whatlanggo"
)

// DefaultLanguage is returned whenever detection is not possible.
const DefaultLanguage = "en"

var (
	errEmptyText  = errors.New("no text to detect")
	errUnreliable = errors.New("detection unreliable")
	errUnmapped   = errors.New("language has no ISO-639-1 code")
)

// Detector detects the language of a text.
type Detector struct {
	defaultLang string
}

// New creates a detector that falls back to defaultLang ("en" when empty).
func New(defaultLang string) *Detector {
	if defaultLang == "" {
		defaultLang = DefaultLanguage
	}
	return &Detector{defaultLang: defaultLang}
}

// Detect returns an ISO-639-1 code for text. It never fails.
func (d *Detector) Detect(text string) string {
	lang, err := detect(text)
	if err != nil {
		return d.defaultLang
	}
	return lang
}

func detect(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errEmptyText
	}

	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", errUnreliable
	}

	code := info.Lang.Iso6391()
	if code == "" {
		return "", errUnmapped
	}
	return code, nil
}
