// Package grok applies xAI's restrictions on top of the chat-completions
// schema. The wire format is OpenAI's; xAI rejects frequency_penalty and
// presence_penalty, so those are stripped from the encoded request.
package grok

import (
	"github.com/tidwall/sjson"

	"aiproxy/internal/translator/openai"
)

func EncodeGrokRequest(rawJSON []byte, model string, stream bool) ([]byte, error) {
	out, err := openai.EncodeOpenAIRequest(rawJSON, model, stream)
	if err != nil {
		return nil, err
	}
	out, _ = sjson.DeleteBytes(out, "frequency_penalty")
	out, _ = sjson.DeleteBytes(out, "presence_penalty")
	return out, nil
}
