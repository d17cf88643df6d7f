package openai

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// MapFinishReason translates an OpenAI finish_reason to an Anthropic
// stop_reason.
func MapFinishReason(reason string) string {
	switch reason {
	case "length":
		return "max_tokens"
	case "tool_calls", "function_call":
		return "tool_use"
	case "stop", "":
		return "end_turn"
	default:
		return "end_turn"
	}
}

// ConvertOpenAIResponseToClaude rewrites a non-streaming chat-completions
// response into an Anthropic Messages response.
func ConvertOpenAIResponseToClaude(rawJSON []byte) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)

	choice := root.Get("choices.0")
	if !choice.Exists() {
		return nil, fmt.Errorf("upstream response has no choices")
	}

	out := `{"id":"","type":"message","role":"assistant","model":"","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":0,"output_tokens":0}}`
	out, _ = sjson.Set(out, "id", root.Get("id").String())
	out, _ = sjson.Set(out, "model", root.Get("model").String())

	message := choice.Get("message")
	if text := message.Get("content"); text.Exists() && text.String() != "" {
		block := `{"type":"text","text":""}`
		block, _ = sjson.Set(block, "text", text.String())
		out, _ = sjson.SetRaw(out, "content.-1", block)
	}

	hasToolCall := false
	if calls := message.Get("tool_calls"); calls.IsArray() {
		for _, call := range calls.Array() {
			hasToolCall = true
			block := `{"type":"tool_use","id":"","name":"","input":{}}`
			block, _ = sjson.Set(block, "id", call.Get("id").String())
			block, _ = sjson.Set(block, "name", call.Get("function.name").String())
			args := call.Get("function.arguments").String()
			if args != "" && gjson.Valid(args) {
				block, _ = sjson.SetRaw(block, "input", args)
			}
			out, _ = sjson.SetRaw(out, "content.-1", block)
		}
	}

	stopReason := MapFinishReason(choice.Get("finish_reason").String())
	if hasToolCall {
		stopReason = "tool_use"
	}
	out, _ = sjson.Set(out, "stop_reason", stopReason)

	out, _ = sjson.Set(out, "usage.input_tokens", root.Get("usage.prompt_tokens").Int())
	out, _ = sjson.Set(out, "usage.output_tokens", root.Get("usage.completion_tokens").Int())

	return []byte(out), nil
}
