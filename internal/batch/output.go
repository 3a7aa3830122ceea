package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	apperrors "video-digest-service/internal/errors"
	"video-digest-service/internal/models"
)

const (
	fontName = "Times New Roman"
	fontSize = 13
)

func writeResult(dir, name string, result *models.DigestResult) error {
	return writeJSON(filepath.Join(dir, name+".json"), result)
}

func writeFailure(dir, name, source string, err error) error {
	body := models.NewErrorResponse(string(apperrors.CodeOf(err)), err.Error(), "")
	if appErr, ok := apperrors.As(err); ok {
		body.Error = appErr.UserMessage()
	}
	return writeJSON(filepath.Join(dir, name+".error.json"), map[string]any{
		"source": source,
		"error":  body,
	})
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

// writeReport renders the digest as a Word document.
func writeReport(path, title string, result *models.DigestResult) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return err
	}

	addRun(doc.AddParagraph(""), title, true, 16)
	addRun(doc.AddParagraph(""), fmt.Sprintf("Duration: %s    Language: %s    Source: %s",
		result.Metrics.VideoDuration, result.TargetLanguage, result.ContentSource), false, 11)

	section(doc, "Summary", result.Summary)
	if result.TargetLanguage != "en" {
		section(doc, "English summary", result.EnglishSummary)
	}
	section(doc, "Transcript", result.Transcript)

	return doc.SaveTo(path)
}

func section(doc *docx.RootDoc, heading, body string) {
	if body == "" {
		return
	}
	doc.AddParagraph("")
	addRun(doc.AddParagraph(""), heading, true, 14)
	addRun(doc.AddParagraph(""), body, false, fontSize)
}

func addRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
