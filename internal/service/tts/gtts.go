package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"video-digest-service/internal/service/textutil"
)

// DefaultGTTSURL is the Google Translate speech endpoint.
const DefaultGTTSURL = "https://translate.google.com/translate_tts"

// gttsMaxChars is the longest text accepted per request.
const gttsMaxChars = 100

var gttsLanguages = map[string]bool{
	"en": true, "hi": true, "bn": true, "ta": true, "te": true, "mr": true,
	"gu": true, "kn": true, "ml": true, "pa": true, "ur": true, "ne": true,
	"si": true, "es": true, "fr": true, "de": true, "it": true, "pt": true,
	"ru": true, "ja": true, "ko": true, "zh": true, "ar": true, "id": true,
	"nl": true, "tr": true, "vi": true, "th": true, "pl": true, "uk": true,
}

// GTTS synthesizes MP3 speech through the Google Translate web voice.
type GTTS struct {
	BaseURL string
	Client  *http.Client
}

// NewGTTS creates the engine. An empty baseURL uses DefaultGTTSURL.
func NewGTTS(baseURL string, timeout time.Duration) *GTTS {
	if baseURL == "" {
		baseURL = DefaultGTTSURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GTTS{BaseURL: baseURL, Client: &http.Client{Timeout: timeout}}
}

// Name implements Engine.
func (g *GTTS) Name() string { return "gtts" }

// Format implements Engine.
func (g *GTTS) Format() string { return "mp3" }

// SupportsLanguage implements Engine.
func (g *GTTS) SupportsLanguage(lang string) bool {
	return gttsLanguages[strings.ToLower(lang)]
}

// Languages returns the supported language codes.
func (g *GTTS) Languages() []string {
	langs := make([]string, 0, len(gttsLanguages))
	for l := range gttsLanguages {
		langs = append(langs, l)
	}
	return langs
}

// Synthesize implements Engine. Long text is requested piecewise and the MP3
// frames are concatenated.
func (g *GTTS) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	if !g.SupportsLanguage(lang) {
		return nil, fmt.Errorf("gtts: unsupported language %q", lang)
	}
	pieces := textutil.SplitForSpeech(text, gttsMaxChars)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("gtts: no text")
	}

	var out bytes.Buffer
	for i, piece := range pieces {
		data, err := g.fetch(ctx, piece, lang, i, len(pieces))
		if err != nil {
			return nil, err
		}
		out.Write(data)
	}
	return out.Bytes(), nil
}

func (g *GTTS) fetch(ctx context.Context, text, lang string, idx, total int) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", text)
	q.Set("tl", lang)
	q.Set("client", "tw-ob")
	q.Set("idx", fmt.Sprint(idx))
	q.Set("total", fmt.Sprint(total))
	q.Set("textlen", fmt.Sprint(len([]rune(text))))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("gtts: create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gtts: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gtts: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gtts: read audio: %w", err)
	}
	return data, nil
}
