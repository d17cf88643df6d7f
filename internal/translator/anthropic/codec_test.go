package anthropic

import (
	"strings"
	"testing"

	"github.com/tidwall/gjson"
)

func TestEncodeRewritesRoutingFieldsOnly(t *testing.T) {
	in := []byte(`{"model":"claude-sonnet-4","max_tokens":1024,"messages":[{"role":"user","content":"hi"}],"temperature":0.2}`)
	out, err := EncodeClaudeRequest(in, "glm-4.6", true)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	root := gjson.ParseBytes(out)
	if root.Get("model").String() != "glm-4.6" {
		t.Errorf("model = %q, want glm-4.6", root.Get("model").String())
	}
	if !root.Get("stream").Bool() {
		t.Error("stream flag not set")
	}
	if root.Get("temperature").Float() != 0.2 || root.Get("max_tokens").Int() != 1024 {
		t.Error("unrelated fields should pass through untouched")
	}
}

func TestValidateRejectsErrorEnvelope(t *testing.T) {
	_, err := ValidateClaudeResponse([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"overloaded"}}`))
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected upstream error, got %v", err)
	}

	body := []byte(`{"id":"msg_1","type":"message","content":[{"type":"text","text":"hi"}]}`)
	out, err := ValidateClaudeResponse(body)
	if err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}
	if string(out) != string(body) {
		t.Error("valid body should be returned unchanged")
	}
}

func TestReframeCapturesUsageAndTerminates(t *testing.T) {
	st := NewStreamState()

	events := []string{
		"event: message_start\ndata: {\"type\":\"message_start\",\"message\":{\"id\":\"msg_1\",\"usage\":{\"input_tokens\":9,\"output_tokens\":1}}}\n\n",
		"event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"hi\"}}\n\n",
		"event: message_delta\ndata: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\"},\"usage\":{\"output_tokens\":4}}\n\n",
		"event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n",
	}

	var out strings.Builder
	for _, ev := range events {
		chunks, err := ReframeClaudeStreamEvent([]byte(ev), st)
		if err != nil {
			t.Fatalf("reframe failed on %q: %v", ev, err)
		}
		for _, c := range chunks {
			out.WriteString(c)
		}
	}

	if st.InputTokens != 9 || st.OutputTokens != 4 {
		t.Errorf("usage = (%d, %d), want (9, 4)", st.InputTokens, st.OutputTokens)
	}
	if !st.Finalized || !st.SawStop {
		t.Error("message_stop should finalize the stream")
	}
	if !strings.Contains(out.String(), "event: content_block_delta\ndata: {\"type\":\"content_block_delta\"") {
		t.Errorf("event framing lost:\n%s", out.String())
	}
	// Nothing more after message_stop.
	if chunks, _ := ReframeClaudeStreamEvent([]byte(events[1]), st); len(chunks) != 0 {
		t.Error("events after finalization should be dropped")
	}
}

func TestReframeEventNameFallback(t *testing.T) {
	st := NewStreamState()
	chunks, err := ReframeClaudeStreamEvent([]byte("event: ping\ndata: {}\n\n"), st)
	if err != nil {
		t.Fatalf("reframe failed: %v", err)
	}
	if len(chunks) != 1 || !strings.HasPrefix(chunks[0], "event: ping\n") {
		t.Fatalf("expected ping re-framed from event name, got %v", chunks)
	}
}

func TestReframeMalformedBound(t *testing.T) {
	st := NewStreamState()
	for i := 0; i < maxMalformedChunks; i++ {
		if _, err := ReframeClaudeStreamEvent([]byte("data: <garbage>\n\n"), st); err != nil {
			t.Fatalf("chunk %d should be skipped, got %v", i+1, err)
		}
	}
	if _, err := ReframeClaudeStreamEvent([]byte("data: <garbage>\n\n"), st); err == nil {
		t.Fatal("expected protocol error after exceeding malformed bound")
	}
}

func TestFinalizeDroppedStream(t *testing.T) {
	st := NewStreamState()
	chunks := FinalizeClaudeStream(st)
	if len(chunks) != 1 || !strings.Contains(chunks[0], "message_stop") {
		t.Fatalf("expected synthesized message_stop, got %v", chunks)
	}
	if st.SawStop {
		t.Error("synthesized stop must not count as an upstream terminator")
	}
	if again := FinalizeClaudeStream(st); len(again) != 0 {
		t.Error("finalize must be idempotent")
	}
}
