package openai

import (
	"bytes"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"aiproxy/internal/translator/util"
)

// Block type states: 0=none, 1=text, 2=thinking, 3=tool_use
const (
	blockNone = iota
	blockText
	blockThinking
	blockTool
)

// maxMalformedChunks bounds how many unparseable upstream chunks are
// skipped before the stream is treated as a protocol failure.
const maxMalformedChunks = 5

// StreamState carries the conversion state across chunks of one response.
// The chat-completions stream interleaves text, reasoning and tool-call
// deltas; Anthropic requires them as strictly bracketed content blocks, so
// the converter tracks which block is open and closes it on transitions.
type StreamState struct {
	HasFirstResponse bool
	BlockType        int
	BlockIndex       int
	CurrentToolIndex int
	PendingStop      string
	// SawDone is set only when the upstream sent its [DONE] terminator;
	// Finalized is also set when the stream is closed out forcibly.
	SawDone        bool
	Finalized      bool
	MalformedCount int
	InputTokens    int64
	OutputTokens   int64
}

func NewStreamState() *StreamState {
	return &StreamState{CurrentToolIndex: -1}
}

func event(name, data string) string {
	return fmt.Sprintf("event: %s\ndata: %s\n\n", name, data)
}

// closeBlock emits content_block_stop for the open block, if any.
func closeBlock(st *StreamState) string {
	if st.BlockType == blockNone {
		return ""
	}
	out := event("content_block_stop", fmt.Sprintf(`{"type":"content_block_stop","index":%d}`, st.BlockIndex))
	st.BlockIndex++
	st.BlockType = blockNone
	st.CurrentToolIndex = -1
	return out
}

// ConvertOpenAIChunkToClaude consumes one upstream SSE event and returns
// zero or more Anthropic SSE events. A non-nil error means the upstream
// stream is unrecoverably malformed.
func ConvertOpenAIChunkToClaude(rawEvent []byte, st *StreamState) ([]string, error) {
	if st.Finalized {
		return nil, nil
	}

	data := util.ExtractSSEData(rawEvent)
	if len(data) == 0 {
		return nil, nil
	}

	if bytes.Equal(data, []byte("[DONE]")) {
		st.SawDone = true
		return FinalizeOpenAIStream(st), nil
	}

	if !gjson.ValidBytes(data) {
		st.MalformedCount++
		log.Debugf("openai->claude stream: skipping malformed chunk %d", st.MalformedCount)
		if st.MalformedCount > maxMalformedChunks {
			return nil, fmt.Errorf("upstream stream malformed: %d unparseable chunks", st.MalformedCount)
		}
		return nil, nil
	}

	root := gjson.ParseBytes(data)
	output := ""

	// Upstream errors can arrive mid-stream as a bare error object.
	if errObj := root.Get("error"); errObj.Exists() {
		return nil, fmt.Errorf("upstream stream error: %s", errObj.Get("message").String())
	}

	if usage := root.Get("usage"); usage.Exists() {
		if v := usage.Get("prompt_tokens"); v.Exists() {
			st.InputTokens = v.Int()
		}
		if v := usage.Get("completion_tokens"); v.Exists() {
			st.OutputTokens = v.Int()
		}
	}

	if !st.HasFirstResponse {
		start := `{"type":"message_start","message":{"id":"","type":"message","role":"assistant","content":[],"model":"","stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":0,"output_tokens":0}}}`
		start, _ = sjson.Set(start, "message.id", root.Get("id").String())
		start, _ = sjson.Set(start, "message.model", root.Get("model").String())
		output += event("message_start", start)
		output += event("ping", `{"type":"ping"}`)
		st.HasFirstResponse = true
	}

	delta := root.Get("choices.0.delta")

	if text := delta.Get("content"); text.Exists() && text.String() != "" {
		if st.BlockType != blockText {
			output += closeBlock(st)
			output += event("content_block_start", fmt.Sprintf(`{"type":"content_block_start","index":%d,"content_block":{"type":"text","text":""}}`, st.BlockIndex))
			st.BlockType = blockText
		}
		d, _ := sjson.Set(fmt.Sprintf(`{"type":"content_block_delta","index":%d,"delta":{"type":"text_delta","text":""}}`, st.BlockIndex), "delta.text", text.String())
		output += event("content_block_delta", d)
	}

	if thinking := delta.Get("reasoning_content"); thinking.Exists() && thinking.String() != "" {
		if st.BlockType != blockThinking {
			output += closeBlock(st)
			output += event("content_block_start", fmt.Sprintf(`{"type":"content_block_start","index":%d,"content_block":{"type":"thinking","thinking":""}}`, st.BlockIndex))
			st.BlockType = blockThinking
		}
		d, _ := sjson.Set(fmt.Sprintf(`{"type":"content_block_delta","index":%d,"delta":{"type":"thinking_delta","thinking":""}}`, st.BlockIndex), "delta.thinking", thinking.String())
		output += event("content_block_delta", d)
	}

	if calls := delta.Get("tool_calls"); calls.IsArray() {
		for _, call := range calls.Array() {
			idx := int(call.Get("index").Int())
			name := call.Get("function.name").String()

			// A new tool index or a named call opens a fresh tool_use block.
			if st.BlockType != blockTool || idx != st.CurrentToolIndex {
				output += closeBlock(st)
				start := fmt.Sprintf(`{"type":"content_block_start","index":%d,"content_block":{"type":"tool_use","id":"","name":"","input":{}}}`, st.BlockIndex)
				start, _ = sjson.Set(start, "content_block.id", call.Get("id").String())
				start, _ = sjson.Set(start, "content_block.name", name)
				output += event("content_block_start", start)
				st.BlockType = blockTool
				st.CurrentToolIndex = idx
			}

			if args := call.Get("function.arguments"); args.Exists() && args.String() != "" {
				d, _ := sjson.Set(fmt.Sprintf(`{"type":"content_block_delta","index":%d,"delta":{"type":"input_json_delta","partial_json":""}}`, st.BlockIndex), "delta.partial_json", args.String())
				output += event("content_block_delta", d)
			}
		}
	}

	// finish_reason closes the open block; the terminating message_delta
	// and message_stop wait for [DONE] so a trailing usage-only chunk can
	// still be folded in.
	if finish := root.Get("choices.0.finish_reason"); finish.Exists() && finish.String() != "" {
		output += closeBlock(st)
		st.PendingStop = MapFinishReason(finish.String())
	}

	if output == "" {
		return nil, nil
	}
	return []string{output}, nil
}

// FinalizeOpenAIStream emits the terminating events. Safe to call when the
// upstream ends without [DONE]; calling twice is a no-op.
func FinalizeOpenAIStream(st *StreamState) []string {
	if st.Finalized || !st.HasFirstResponse {
		st.Finalized = true
		return nil
	}

	output := closeBlock(st)

	stopReason := st.PendingStop
	if stopReason == "" {
		stopReason = "end_turn"
	}
	d := `{"type":"message_delta","delta":{"stop_reason":"","stop_sequence":null},"usage":{"output_tokens":0}}`
	d, _ = sjson.Set(d, "delta.stop_reason", stopReason)
	d, _ = sjson.Set(d, "usage.output_tokens", st.OutputTokens)
	output += event("message_delta", d)
	output += event("message_stop", `{"type":"message_stop"}`)

	st.Finalized = true
	return []string{output}
}
