// Package openai converts between the Anthropic Messages schema and the
// OpenAI chat-completions schema. Requests are rewritten field by field on
// the raw JSON; streaming responses go through a state machine that emits
// Anthropic-compatible SSE events.
package openai

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// EncodeOpenAIRequest rewrites an Anthropic Messages request into an OpenAI
// chat-completions request for the given upstream model.
func EncodeOpenAIRequest(rawJSON []byte, model string, stream bool) ([]byte, error) {
	root := gjson.ParseBytes(rawJSON)

	out := `{"model":"","messages":[]}`
	out, _ = sjson.Set(out, "model", model)

	// System prompt becomes the leading system message. Anthropic allows
	// either a plain string or an array of text blocks.
	if system := root.Get("system"); system.Exists() {
		text := systemText(system)
		if text != "" {
			msg := `{"role":"system","content":""}`
			msg, _ = sjson.Set(msg, "content", text)
			out, _ = sjson.SetRaw(out, "messages.-1", msg)
		}
	}

	for _, msg := range root.Get("messages").Array() {
		converted, err := convertMessage(msg)
		if err != nil {
			return nil, err
		}
		for _, m := range converted {
			out, _ = sjson.SetRaw(out, "messages.-1", m)
		}
	}

	if tools := root.Get("tools"); tools.IsArray() {
		for _, tool := range tools.Array() {
			t := `{"type":"function","function":{"name":"","parameters":{}}}`
			t, _ = sjson.Set(t, "function.name", tool.Get("name").String())
			if desc := tool.Get("description"); desc.Exists() {
				t, _ = sjson.Set(t, "function.description", desc.String())
			}
			if schema := tool.Get("input_schema"); schema.IsObject() {
				t, _ = sjson.SetRaw(t, "function.parameters", schema.Raw)
			}
			out, _ = sjson.SetRaw(out, "tools.-1", t)
		}
	}

	if choice := root.Get("tool_choice"); choice.Exists() {
		switch choice.Get("type").String() {
		case "auto":
			out, _ = sjson.Set(out, "tool_choice", "auto")
		case "any":
			out, _ = sjson.Set(out, "tool_choice", "required")
		case "tool":
			tc := `{"type":"function","function":{"name":""}}`
			tc, _ = sjson.Set(tc, "function.name", choice.Get("name").String())
			out, _ = sjson.SetRaw(out, "tool_choice", tc)
		}
	}

	if v := root.Get("max_tokens"); v.Exists() {
		out, _ = sjson.Set(out, "max_tokens", v.Int())
	}
	if v := root.Get("temperature"); v.Exists() {
		out, _ = sjson.Set(out, "temperature", v.Float())
	}
	if v := root.Get("top_p"); v.Exists() {
		out, _ = sjson.Set(out, "top_p", v.Float())
	}
	if v := root.Get("stop_sequences"); v.IsArray() {
		out, _ = sjson.SetRaw(out, "stop", v.Raw)
	}
	// Pass through chat-completions extensions some clients attach.
	if v := root.Get("frequency_penalty"); v.Exists() {
		out, _ = sjson.Set(out, "frequency_penalty", v.Float())
	}
	if v := root.Get("presence_penalty"); v.Exists() {
		out, _ = sjson.Set(out, "presence_penalty", v.Float())
	}

	out, _ = sjson.Set(out, "stream", stream)
	if stream {
		// Ask for the usage block on the final chunk.
		out, _ = sjson.Set(out, "stream_options.include_usage", true)
	}

	return []byte(out), nil
}

func systemText(system gjson.Result) string {
	if system.Type == gjson.String {
		return system.String()
	}
	if system.IsArray() {
		text := ""
		for _, block := range system.Array() {
			if block.Get("type").String() == "text" {
				text += block.Get("text").String()
			}
		}
		return text
	}
	return ""
}

// convertMessage maps one Anthropic message to one or more OpenAI messages.
// tool_result blocks split off into separate role:"tool" messages because
// the chat-completions schema carries tool output at the message level.
func convertMessage(msg gjson.Result) ([]string, error) {
	role := msg.Get("role").String()
	content := msg.Get("content")

	// Plain string content needs no block handling.
	if content.Type == gjson.String {
		m := `{"role":"","content":""}`
		m, _ = sjson.Set(m, "role", role)
		m, _ = sjson.Set(m, "content", content.String())
		return []string{m}, nil
	}
	if !content.IsArray() {
		return nil, fmt.Errorf("message content must be a string or array, got %s", content.Type)
	}

	var out []string
	text := ""
	toolCalls := ""

	for _, block := range content.Array() {
		switch block.Get("type").String() {
		case "text":
			text += block.Get("text").String()
		case "tool_use":
			call := `{"id":"","type":"function","function":{"name":"","arguments":""}}`
			call, _ = sjson.Set(call, "id", block.Get("id").String())
			call, _ = sjson.Set(call, "function.name", block.Get("name").String())
			args := "{}"
			if input := block.Get("input"); input.IsObject() {
				args = input.Raw
			}
			call, _ = sjson.Set(call, "function.arguments", args)
			if toolCalls == "" {
				toolCalls = "[]"
			}
			toolCalls, _ = sjson.SetRaw(toolCalls, "-1", call)
		case "tool_result":
			m := `{"role":"tool","tool_call_id":"","content":""}`
			m, _ = sjson.Set(m, "tool_call_id", block.Get("tool_use_id").String())
			m, _ = sjson.Set(m, "content", toolResultText(block.Get("content")))
			out = append(out, m)
		case "image":
			// Base64 images travel as data URIs in the chat schema.
			if block.Get("source.type").String() == "base64" {
				m := `{"role":"user","content":[{"type":"image_url","image_url":{"url":""}}]}`
				uri := fmt.Sprintf("data:%s;base64,%s",
					block.Get("source.media_type").String(),
					block.Get("source.data").String())
				m, _ = sjson.Set(m, "content.0.image_url.url", uri)
				out = append(out, m)
			}
		}
	}

	if text != "" || toolCalls != "" {
		m := `{"role":""}`
		m, _ = sjson.Set(m, "role", role)
		m, _ = sjson.Set(m, "content", text)
		if toolCalls != "" {
			m, _ = sjson.SetRaw(m, "tool_calls", toolCalls)
		}
		out = append(out, m)
	}
	return out, nil
}

func toolResultText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.String()
	}
	if content.IsArray() {
		text := ""
		for _, block := range content.Array() {
			if block.Get("type").String() == "text" {
				text += block.Get("text").String()
			}
		}
		return text
	}
	return content.Raw
}
