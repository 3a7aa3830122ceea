package translation

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ParseReply extracts the translated text from a translation endpoint reply.
// Known layouts are tried in order:
//
//	{"pipelineResponse":[{"output":[{"target":...}]}]}
//	{"output":[{"target":...}]}
//	{"translatedText":...}
//
// Each output item may carry "translatedText" instead of "target". Multiple
// outputs are joined with a space. Unknown or malformed replies yield "".
func ParseReply(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return ""
	}

	if responses := root.Get("pipelineResponse"); responses.IsArray() {
		var outputs []string
		responses.ForEach(func(_, response gjson.Result) bool {
			outputs = append(outputs, collectOutputs(response.Get("output"))...)
			return true
		})
		if len(outputs) > 0 {
			return strings.TrimSpace(strings.Join(outputs, " "))
		}
	}

	if outputs := collectOutputs(root.Get("output")); len(outputs) > 0 {
		return strings.TrimSpace(strings.Join(outputs, " "))
	}

	if text := root.Get("translatedText"); text.Type == gjson.String {
		return text.String()
	}
	return ""
}

func collectOutputs(list gjson.Result) []string {
	if !list.IsArray() {
		return nil
	}
	var outputs []string
	list.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		if target := item.Get("target"); target.Exists() {
			outputs = append(outputs, target.String())
		} else if text := item.Get("translatedText"); text.Exists() {
			outputs = append(outputs, text.String())
		}
		return true
	})
	return outputs
}
