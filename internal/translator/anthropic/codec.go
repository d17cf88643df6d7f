// Package anthropic handles providers that speak the Messages API natively.
// Requests pass through with only the model and stream flag rewritten;
// streamed responses are re-framed so the client always sees canonical
// Anthropic SSE framing regardless of upstream quirks.
package anthropic

import (
	"bytes"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"aiproxy/internal/translator/util"
)

const maxMalformedChunks = 5

// EncodeClaudeRequest rewrites only the routing fields of a Messages
// request, leaving the body otherwise untouched.
func EncodeClaudeRequest(rawJSON []byte, model string, stream bool) ([]byte, error) {
	out, err := sjson.SetBytes(rawJSON, "model", model)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(out, "stream", stream)
}

// ValidateClaudeResponse checks a non-streaming upstream body and returns
// it unchanged.
func ValidateClaudeResponse(rawJSON []byte) ([]byte, error) {
	if !gjson.ValidBytes(rawJSON) {
		return nil, fmt.Errorf("upstream response is not valid JSON")
	}
	root := gjson.ParseBytes(rawJSON)
	if root.Get("type").String() == "error" {
		return nil, fmt.Errorf("upstream error: %s", root.Get("error.message").String())
	}
	return rawJSON, nil
}

// StreamState tracks re-framing of a native Anthropic stream.
type StreamState struct {
	// SawStop is set only when the upstream delivered message_stop itself;
	// Finalized is also set when the stream is closed out forcibly.
	SawStop        bool
	Finalized      bool
	MalformedCount int
	InputTokens    int64
	OutputTokens   int64
}

func NewStreamState() *StreamState {
	return &StreamState{}
}

// ReframeClaudeStreamEvent validates one upstream SSE event and re-emits it
// with canonical framing. Usage is captured from message_start and
// message_delta along the way.
func ReframeClaudeStreamEvent(rawEvent []byte, st *StreamState) ([]string, error) {
	if st.Finalized {
		return nil, nil
	}

	data := util.ExtractSSEData(rawEvent)
	if len(data) == 0 {
		return nil, nil
	}
	if bytes.Equal(data, []byte("[DONE]")) {
		return nil, nil
	}

	if !gjson.ValidBytes(data) {
		st.MalformedCount++
		log.Debugf("claude stream reframe: skipping malformed chunk %d", st.MalformedCount)
		if st.MalformedCount > maxMalformedChunks {
			return nil, fmt.Errorf("upstream stream malformed: %d unparseable chunks", st.MalformedCount)
		}
		return nil, nil
	}

	root := gjson.ParseBytes(data)
	eventType := root.Get("type").String()
	if eventType == "" {
		// Fall back to the SSE event name when the payload omits type.
		eventType = util.ExtractSSEEventName(rawEvent)
		if eventType == "" {
			st.MalformedCount++
			if st.MalformedCount > maxMalformedChunks {
				return nil, fmt.Errorf("upstream stream malformed: %d unparseable chunks", st.MalformedCount)
			}
			return nil, nil
		}
	}

	switch eventType {
	case "error":
		return nil, fmt.Errorf("upstream stream error: %s", root.Get("error.message").String())
	case "message_start":
		st.InputTokens = root.Get("message.usage.input_tokens").Int()
	case "message_delta":
		if v := root.Get("usage.output_tokens"); v.Exists() {
			st.OutputTokens = v.Int()
		}
	case "message_stop":
		st.SawStop = true
		st.Finalized = true
	}

	return []string{fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, data)}, nil
}

// FinalizeClaudeStream closes a stream the upstream dropped before
// message_stop.
func FinalizeClaudeStream(st *StreamState) []string {
	if st.Finalized {
		return nil
	}
	st.Finalized = true
	return []string{"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n"}
}
