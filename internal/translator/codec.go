// Package translator converts between the gateway's Anthropic-shaped wire
// format and the schema each provider dialect speaks. Codecs operate on raw
// JSON so unknown fields survive the round trip.
package translator

import (
	"errors"

	"aiproxy/internal/translator/anthropic"
	"aiproxy/internal/translator/grok"
	"aiproxy/internal/translator/openai"
)

var ErrUnknownDialect = errors.New("unknown provider dialect")

// Codec converts one provider dialect.
type Codec interface {
	// EncodeRequest rewrites an incoming Messages request into the
	// provider's schema with the mapped model applied.
	EncodeRequest(rawJSON []byte, model string, stream bool) ([]byte, error)
	// RequestPath returns the path appended to the provider endpoint.
	RequestPath() string
	// DecodeResponse rewrites a non-streaming upstream body into an
	// Anthropic Messages response.
	DecodeResponse(rawJSON []byte) ([]byte, error)
	// NewStreamDecoder returns a fresh per-request stream converter.
	NewStreamDecoder() StreamDecoder
}

// StreamDecoder converts one streaming response, one upstream SSE event at
// a time, into Anthropic SSE events ready to write to the client.
type StreamDecoder interface {
	Decode(event []byte) ([]string, error)
	// Finalize closes the client stream when the upstream ended without a
	// terminator. Idempotent.
	Finalize() []string
	Done() bool
	Usage() (inputTokens, outputTokens int64)
}

// ForDialect returns the codec for a dialect.
func ForDialect(d Dialect) (Codec, error) {
	switch d {
	case DialectAnthropic:
		return anthropicCodec{}, nil
	case DialectOpenAI:
		return openaiCodec{}, nil
	case DialectGrok:
		return grokCodec{}, nil
	}
	return nil, ErrUnknownDialect
}

type anthropicCodec struct{}

func (anthropicCodec) EncodeRequest(rawJSON []byte, model string, stream bool) ([]byte, error) {
	return anthropic.EncodeClaudeRequest(rawJSON, model, stream)
}

func (anthropicCodec) RequestPath() string { return "/messages" }

func (anthropicCodec) DecodeResponse(rawJSON []byte) ([]byte, error) {
	return anthropic.ValidateClaudeResponse(rawJSON)
}

func (anthropicCodec) NewStreamDecoder() StreamDecoder {
	return &anthropicStreamDecoder{st: anthropic.NewStreamState()}
}

type anthropicStreamDecoder struct {
	st *anthropic.StreamState
}

func (d *anthropicStreamDecoder) Decode(event []byte) ([]string, error) {
	return anthropic.ReframeClaudeStreamEvent(event, d.st)
}

func (d *anthropicStreamDecoder) Finalize() []string {
	return anthropic.FinalizeClaudeStream(d.st)
}

func (d *anthropicStreamDecoder) Done() bool { return d.st.SawStop }

func (d *anthropicStreamDecoder) Usage() (int64, int64) {
	return d.st.InputTokens, d.st.OutputTokens
}

type openaiCodec struct{}

func (openaiCodec) EncodeRequest(rawJSON []byte, model string, stream bool) ([]byte, error) {
	return openai.EncodeOpenAIRequest(rawJSON, model, stream)
}

func (openaiCodec) RequestPath() string { return "/chat/completions" }

func (openaiCodec) DecodeResponse(rawJSON []byte) ([]byte, error) {
	return openai.ConvertOpenAIResponseToClaude(rawJSON)
}

func (openaiCodec) NewStreamDecoder() StreamDecoder {
	return &openaiStreamDecoder{st: openai.NewStreamState()}
}

type openaiStreamDecoder struct {
	st *openai.StreamState
}

func (d *openaiStreamDecoder) Decode(event []byte) ([]string, error) {
	return openai.ConvertOpenAIChunkToClaude(event, d.st)
}

func (d *openaiStreamDecoder) Finalize() []string {
	return openai.FinalizeOpenAIStream(d.st)
}

func (d *openaiStreamDecoder) Done() bool { return d.st.SawDone }

func (d *openaiStreamDecoder) Usage() (int64, int64) {
	return d.st.InputTokens, d.st.OutputTokens
}

type grokCodec struct {
	openaiCodec
}

func (grokCodec) EncodeRequest(rawJSON []byte, model string, stream bool) ([]byte, error) {
	return grok.EncodeGrokRequest(rawJSON, model, stream)
}
