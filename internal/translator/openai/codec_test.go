package openai

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestEncodeRequestBasics(t *testing.T) {
	in := []byte(`{
		"model": "claude-sonnet-4",
		"system": "You are terse.",
		"messages": [{"role":"user","content":"hello"}],
		"max_tokens": 512,
		"temperature": 0.7,
		"top_p": 0.9,
		"stop_sequences": ["END"]
	}`)

	out, err := EncodeOpenAIRequest(in, "gpt-4o", false)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	root := gjson.ParseBytes(out)

	if root.Get("model").String() != "gpt-4o" {
		t.Errorf("model = %q, want gpt-4o", root.Get("model").String())
	}
	if root.Get("messages.0.role").String() != "system" || root.Get("messages.0.content").String() != "You are terse." {
		t.Errorf("system prompt should lead messages: %s", root.Get("messages").Raw)
	}
	if root.Get("messages.1.content").String() != "hello" {
		t.Errorf("user message lost: %s", root.Get("messages").Raw)
	}
	if root.Get("max_tokens").Int() != 512 || root.Get("temperature").Float() != 0.7 || root.Get("top_p").Float() != 0.9 {
		t.Error("sampling parameters not carried over")
	}
	if root.Get("stop.0").String() != "END" {
		t.Errorf("stop_sequences should map to stop: %s", root.Get("stop").Raw)
	}
	if root.Get("stream").Bool() {
		t.Error("stream should be false")
	}
	if root.Get("stream_options").Exists() {
		t.Error("stream_options only belongs on streaming requests")
	}
}

func TestEncodeRequestStreamOptions(t *testing.T) {
	out, err := EncodeOpenAIRequest([]byte(`{"messages":[{"role":"user","content":"hi"}]}`), "gpt-4o-mini", true)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	root := gjson.ParseBytes(out)
	if !root.Get("stream").Bool() || !root.Get("stream_options.include_usage").Bool() {
		t.Errorf("streaming request should set stream and include_usage: %s", out)
	}
}

func TestEncodeRequestSystemBlockArray(t *testing.T) {
	in := []byte(`{"system":[{"type":"text","text":"part one. "},{"type":"text","text":"part two."}],"messages":[]}`)
	out, err := EncodeOpenAIRequest(in, "gpt-4o", false)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	got := gjson.GetBytes(out, "messages.0.content").String()
	if got != "part one. part two." {
		t.Errorf("system blocks should concatenate, got %q", got)
	}
}

func TestEncodeRequestToolsAndToolChoice(t *testing.T) {
	in := []byte(`{
		"messages": [{"role":"user","content":"weather?"}],
		"tools": [{"name":"get_weather","description":"Look up weather","input_schema":{"type":"object","properties":{"city":{"type":"string"}}}}],
		"tool_choice": {"type":"tool","name":"get_weather"}
	}`)

	out, err := EncodeOpenAIRequest(in, "gpt-4o", false)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	root := gjson.ParseBytes(out)

	fn := root.Get("tools.0.function")
	if fn.Get("name").String() != "get_weather" || fn.Get("description").String() != "Look up weather" {
		t.Errorf("tool definition mangled: %s", root.Get("tools").Raw)
	}
	if fn.Get("parameters.properties.city.type").String() != "string" {
		t.Errorf("input_schema should map to parameters: %s", fn.Raw)
	}
	if root.Get("tool_choice.function.name").String() != "get_weather" {
		t.Errorf("forced tool choice mangled: %s", root.Get("tool_choice").Raw)
	}
}

func TestEncodeRequestToolChoiceAny(t *testing.T) {
	in := []byte(`{"messages":[],"tool_choice":{"type":"any"}}`)
	out, err := EncodeOpenAIRequest(in, "gpt-4o", false)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if got := gjson.GetBytes(out, "tool_choice").String(); got != "required" {
		t.Errorf("tool_choice any should become required, got %q", got)
	}
}

func TestEncodeRequestToolUseAndResult(t *testing.T) {
	in := []byte(`{
		"messages": [
			{"role":"assistant","content":[
				{"type":"text","text":"checking"},
				{"type":"tool_use","id":"call_1","name":"get_weather","input":{"city":"Paris"}}
			]},
			{"role":"user","content":[
				{"type":"tool_result","tool_use_id":"call_1","content":[{"type":"text","text":"18C"}]}
			]}
		]
	}`)

	out, err := EncodeOpenAIRequest(in, "gpt-4o", false)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	root := gjson.ParseBytes(out)

	asst := root.Get("messages.0")
	if asst.Get("role").String() != "assistant" || asst.Get("content").String() != "checking" {
		t.Errorf("assistant text lost: %s", asst.Raw)
	}
	call := asst.Get("tool_calls.0")
	if call.Get("id").String() != "call_1" || call.Get("function.name").String() != "get_weather" {
		t.Errorf("tool call mangled: %s", asst.Raw)
	}
	args := call.Get("function.arguments").String()
	if gjson.Get(args, "city").String() != "Paris" {
		t.Errorf("arguments should be a JSON string, got %q", args)
	}

	toolMsg := root.Get("messages.1")
	if toolMsg.Get("role").String() != "tool" || toolMsg.Get("tool_call_id").String() != "call_1" || toolMsg.Get("content").String() != "18C" {
		t.Errorf("tool_result should become a tool message: %s", toolMsg.Raw)
	}
}

func TestEncodeRequestBase64Image(t *testing.T) {
	in := []byte(`{
		"messages": [{"role":"user","content":[
			{"type":"image","source":{"type":"base64","media_type":"image/png","data":"QUJD"}},
			{"type":"text","text":"what is this?"}
		]}]
	}`)

	out, err := EncodeOpenAIRequest(in, "gpt-4o", false)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	url := gjson.GetBytes(out, "messages.0.content.0.image_url.url").String()
	if url != "data:image/png;base64,QUJD" {
		t.Errorf("image should become a data URI, got %q", url)
	}
}

func TestEncodeRequestRejectsBadContent(t *testing.T) {
	if _, err := EncodeOpenAIRequest([]byte(`{"messages":[{"role":"user","content":42}]}`), "gpt-4o", false); err == nil {
		t.Fatal("numeric content should be rejected")
	}
}

func TestConvertResponseText(t *testing.T) {
	in := []byte(`{
		"id": "chatcmpl-9",
		"model": "gpt-4o",
		"choices": [{"index":0,"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}],
		"usage": {"prompt_tokens": 20, "completion_tokens": 5}
	}`)

	out, err := ConvertOpenAIResponseToClaude(in)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	root := gjson.ParseBytes(out)

	if root.Get("id").String() != "chatcmpl-9" || root.Get("type").String() != "message" || root.Get("role").String() != "assistant" {
		t.Errorf("envelope wrong: %s", out)
	}
	if root.Get("content.0.type").String() != "text" || root.Get("content.0.text").String() != "hello there" {
		t.Errorf("text block wrong: %s", root.Get("content").Raw)
	}
	if root.Get("stop_reason").String() != "end_turn" {
		t.Errorf("stop_reason = %q, want end_turn", root.Get("stop_reason").String())
	}
	if root.Get("usage.input_tokens").Int() != 20 || root.Get("usage.output_tokens").Int() != 5 {
		t.Errorf("usage wrong: %s", root.Get("usage").Raw)
	}
}

func TestConvertResponseToolCalls(t *testing.T) {
	in := []byte(`{
		"id": "chatcmpl-9",
		"model": "gpt-4o",
		"choices": [{"index":0,"message":{"role":"assistant","content":"","tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"city\":\"Paris\"}"}}
		]},"finish_reason":"tool_calls"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 3}
	}`)

	out, err := ConvertOpenAIResponseToClaude(in)
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	root := gjson.ParseBytes(out)

	block := root.Get("content.0")
	if block.Get("type").String() != "tool_use" || block.Get("name").String() != "get_weather" {
		t.Errorf("tool block wrong: %s", root.Get("content").Raw)
	}
	if block.Get("input.city").String() != "Paris" {
		t.Errorf("arguments should parse back into input: %s", block.Raw)
	}
	if root.Get("stop_reason").String() != "tool_use" {
		t.Errorf("stop_reason = %q, want tool_use", root.Get("stop_reason").String())
	}
}

func TestConvertResponseNoChoices(t *testing.T) {
	if _, err := ConvertOpenAIResponseToClaude([]byte(`{"id":"x","choices":[]}`)); err == nil {
		t.Fatal("empty choices should be rejected")
	}
}

func TestMapFinishReason(t *testing.T) {
	cases := map[string]string{
		"stop":           "end_turn",
		"length":         "max_tokens",
		"tool_calls":     "tool_use",
		"function_call":  "tool_use",
		"content_filter": "end_turn",
		"":               "end_turn",
	}
	for in, want := range cases {
		if got := MapFinishReason(in); got != want {
			t.Errorf("MapFinishReason(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEncodeRequestDropsEmptySystem(t *testing.T) {
	out, err := EncodeOpenAIRequest([]byte(`{"system":"","messages":[{"role":"user","content":"hi"}]}`), "gpt-4o", false)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if gjson.GetBytes(out, "messages.0.role").String() == "system" {
		t.Error("empty system prompt should not produce a system message")
	}
	if !strings.Contains(string(out), `"content":"hi"`) {
		t.Errorf("user message lost: %s", out)
	}
}
