package gateway

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"aiproxy/internal/model"
	"aiproxy/internal/registry"
	"aiproxy/internal/repository"
	"aiproxy/internal/translator"
)

const (
	// streamEventBuffer bounds the relay channel. A slow client applies
	// backpressure to the upstream read loop instead of buffering without
	// limit.
	streamEventBuffer = 64

	// maxLoggedPayload caps stored request/response bodies.
	maxLoggedPayload = 64 * 1024

	anthropicVersion = "2023-06-01"
)

// StreamEvent is one unit of the relayed stream: either SSE-framed text
// ready to write, or a terminal error.
type StreamEvent struct {
	Data string
	Err  *GatewayError
}

// DispatchResult holds either a buffered response body or a live event
// channel, depending on the caller's streaming flag.
type DispatchResult struct {
	Streaming bool
	Body      []byte
	Events    <-chan StreamEvent
}

// Dispatcher runs the request pipeline: resolve, admit, map, compose,
// encode, call upstream, relay.
type Dispatcher struct {
	registry     *registry.Registry
	promptRepo   repository.PromptConfigRepositoryInterface
	settingsRepo repository.SettingsRepositoryInterface
	limiter      *FixedWindowLimiter
	logWriter    *LogWriter
	client       *http.Client
}

func NewDispatcher(
	reg *registry.Registry,
	promptRepo repository.PromptConfigRepositoryInterface,
	settingsRepo repository.SettingsRepositoryInterface,
	limiter *FixedWindowLimiter,
	logWriter *LogWriter,
) *Dispatcher {
	return &Dispatcher{
		registry:     reg,
		promptRepo:   promptRepo,
		settingsRepo: settingsRepo,
		limiter:      limiter,
		logWriter:    logWriter,
		// Per-request deadlines come from settings; the client itself has
		// no timeout so streams can outlive slow starts.
		client: &http.Client{},
	}
}

// Dispatch processes one gateway request. A non-nil error is terminal and
// already classified; the trace is logged in every outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, trace *RequestTrace, rawBody []byte, identity string) (*DispatchResult, *GatewayError) {
	result, gerr := d.dispatch(ctx, trace, rawBody, identity)
	if gerr != nil {
		trace.SetState(StateFailed)
		trace.SetError(gerr.Kind)
		trace.StatusCode = gerr.HTTPStatus()
		d.writeLog(trace)
		return nil, gerr
	}
	if !result.Streaming {
		// Streaming outcomes are logged by the relay goroutine.
		d.writeLog(trace)
	}
	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, trace *RequestTrace, rawBody []byte, identity string) (*DispatchResult, *GatewayError) {
	settings, err := d.settingsRepo.Get()
	if err != nil {
		return nil, WrapGatewayError(ErrKindInternal, "cannot load settings", err)
	}

	// Admission happens before any expensive work; a rejected request
	// never reaches the upstream.
	if settings.RateLimitEnabled {
		decision := d.limiter.Admit(identity, settings.RateLimitRequests,
			time.Duration(settings.RateLimitWindowSecs)*time.Second)
		if !decision.Allowed {
			gerr := NewGatewayError(ErrKindRateLimited, "rate limit exceeded, retry later")
			gerr.RetryAfter = int(decision.RetryAfter.Seconds())
			return nil, gerr
		}
	}

	res, rerr := d.registry.Resolve(trace.Alias)
	if rerr != nil {
		switch {
		case errors.Is(rerr, registry.ErrUnknownAlias):
			return nil, NewGatewayError(ErrKindUnknownAlias, "unknown command alias \""+trace.Alias+"\"")
		case errors.Is(rerr, registry.ErrNoActiveProvider):
			return nil, NewGatewayError(ErrKindNoActiveProvider, "no active provider configured")
		default:
			return nil, WrapGatewayError(ErrKindInternal, "alias resolution failed", rerr)
		}
	}
	provider := res.Provider

	if !gjson.ValidBytes(rawBody) {
		return nil, NewGatewayError(ErrKindInvalidRequest, "request body is not valid JSON")
	}
	root := gjson.ParseBytes(rawBody)
	if gerr := validateInbound(root); gerr != nil {
		return nil, gerr
	}

	requestedModel := root.Get("model").String()
	streaming := root.Get("stream").Bool()
	trace.IsStreaming = streaming

	mappedModel, merr := MapModel(provider, requestedModel)
	if merr != nil {
		return nil, merr
	}
	trace.SetRouting(provider.Name, requestedModel, mappedModel, string(provider.Dialect))

	body, gerr := d.applyPrompt(rawBody, res.PromptVariant, requestedModel)
	if gerr != nil {
		return nil, gerr
	}

	codec, cerr := translator.ForDialect(translator.FromString(string(provider.Dialect)))
	if cerr != nil {
		return nil, WrapGatewayError(ErrKindInternal, "provider has unsupported dialect "+string(provider.Dialect), cerr)
	}

	encoded, eerr := codec.EncodeRequest(body, mappedModel, streaming)
	if eerr != nil {
		return nil, WrapGatewayError(ErrKindInvalidRequest, "cannot encode request: "+eerr.Error(), eerr)
	}

	if settings.EnableFullLogging {
		trace.RequestJSON = truncatePayload(string(rawBody))
	}

	trace.SetState(StateDispatched)

	if streaming {
		return d.dispatchStream(ctx, trace, provider, codec, encoded, settings)
	}
	return d.dispatchBuffered(ctx, trace, provider, codec, encoded, settings)
}

// validateInbound checks the request shape before any translation work.
func validateInbound(root gjson.Result) *GatewayError {
	if root.Get("model").String() == "" {
		return NewGatewayError(ErrKindInvalidRequest, "model is required")
	}
	messages := root.Get("messages")
	if !messages.IsArray() || len(messages.Array()) == 0 {
		return NewGatewayError(ErrKindInvalidRequest, "messages must be a non-empty array")
	}
	for _, m := range messages.Array() {
		role := m.Get("role").String()
		if role != "user" && role != "assistant" {
			return NewGatewayError(ErrKindInvalidRequest, "unsupported message role \""+role+"\"")
		}
	}
	if mt := root.Get("max_tokens"); mt.Exists() && mt.Int() <= 0 {
		return NewGatewayError(ErrKindInvalidRequest, "max_tokens must be a positive integer")
	}
	return nil
}

// applyPrompt composes the effective system prompt and writes it back into
// the request body when it changed.
func (d *Dispatcher) applyPrompt(rawBody []byte, variant model.PromptVariant, requestedModel string) ([]byte, *GatewayError) {
	cfg, err := d.promptRepo.Get()
	if err != nil {
		return nil, WrapGatewayError(ErrKindInternal, "cannot load prompt config", err)
	}

	root := gjson.ParseBytes(rawBody)
	callerPrompt := extractSystemText(root.Get("system"))
	pctx := PromptContext{
		ModelName:       requestedModel,
		EnvironmentInfo: root.Get("metadata.environment_info").String(),
		ModelInfo:       root.Get("metadata.model_info").String(),
		ToolingInfo:     root.Get("metadata.tooling_instructions").String(),
	}

	composed := ComposeSystemPrompt(cfg, variant, callerPrompt, pctx)
	if composed == callerPrompt {
		return rawBody, nil
	}

	out, serr := sjson.SetBytes(rawBody, "system", composed)
	if serr != nil {
		return nil, WrapGatewayError(ErrKindInternal, "cannot rewrite system prompt", serr)
	}
	return out, nil
}

func extractSystemText(system gjson.Result) string {
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

// buildUpstreamRequest creates the HTTP request with the provider's auth
// scheme and extra headers applied.
func (d *Dispatcher) buildUpstreamRequest(ctx context.Context, provider *model.Provider, codec translator.Codec, encoded []byte) (*http.Request, *GatewayError) {
	url := strings.TrimRight(provider.APIEndpoint, "/") + codec.RequestPath()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, WrapGatewayError(ErrKindInternal, "cannot build upstream request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	switch provider.AuthMethod {
	case model.AuthBearerToken, "":
		req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	case model.AuthBasic:
		user, pass, _ := strings.Cut(provider.APIKey, ":")
		req.SetBasicAuth(user, pass)
	case model.AuthCustomHeader:
		// Key placement comes from the header list below.
	}

	if provider.Dialect == model.DialectAnthropic {
		req.Header.Set("x-api-key", provider.APIKey)
		req.Header.Set("anthropic-version", anthropicVersion)
	}

	// Extra headers, with {api_key} substituted so custom-header auth can
	// place the key wherever the provider wants it.
	if provider.HeadersJSON != "" {
		for _, h := range gjson.Parse(provider.HeadersJSON).Array() {
			name := h.Get("name").String()
			value := strings.ReplaceAll(h.Get("value").String(), "{api_key}", provider.APIKey)
			if name != "" {
				req.Header.Set(name, value)
			}
		}
	}

	return req, nil
}

func classifyTransportError(err error) *GatewayError {
	if errors.Is(err, context.DeadlineExceeded) {
		return WrapGatewayError(ErrKindUpstreamTimeout, "upstream request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return WrapGatewayError(ErrKindStreamAborted, "request canceled", err)
	}
	return WrapGatewayError(ErrKindUpstreamConnection, "upstream connection failed: "+SanitizeErrorMessage(err.Error()), err)
}

func (d *Dispatcher) dispatchBuffered(ctx context.Context, trace *RequestTrace, provider *model.Provider, codec translator.Codec, encoded []byte, settings *model.AppSettings) (*DispatchResult, *GatewayError) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(settings.RequestTimeoutSecs)*time.Second)
	defer cancel()

	req, gerr := d.buildUpstreamRequest(ctx, provider, codec, encoded)
	if gerr != nil {
		return nil, gerr
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	upstreamBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		kind := ClassifyUpstreamStatus(resp.StatusCode)
		msg := SanitizeErrorMessage(upstreamErrorMessage(upstreamBody, resp.StatusCode))
		return nil, NewGatewayError(kind, msg)
	}

	decoded, derr := codec.DecodeResponse(upstreamBody)
	if derr != nil {
		return nil, WrapGatewayError(ErrKindUpstreamProtocol, "cannot decode upstream response: "+SanitizeErrorMessage(derr.Error()), derr)
	}

	trace.SetUsage(
		gjson.GetBytes(decoded, "usage.input_tokens").Int(),
		gjson.GetBytes(decoded, "usage.output_tokens").Int(),
	)
	trace.StatusCode = http.StatusOK
	trace.SetState(StateCompleted)
	if settings.EnableFullLogging {
		trace.ResponseJSON = truncatePayload(string(decoded))
	}

	return &DispatchResult{Body: decoded}, nil
}

func (d *Dispatcher) dispatchStream(ctx context.Context, trace *RequestTrace, provider *model.Provider, codec translator.Codec, encoded []byte, settings *model.AppSettings) (*DispatchResult, *GatewayError) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, gerr := d.buildUpstreamRequest(streamCtx, provider, codec, encoded)
	if gerr != nil {
		cancel()
		return nil, gerr
	}

	resp, err := d.client.Do(req)
	if err != nil {
		cancel()
		return nil, classifyTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		upstreamBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedPayload))
		resp.Body.Close()
		cancel()
		kind := ClassifyUpstreamStatus(resp.StatusCode)
		return nil, NewGatewayError(kind, SanitizeErrorMessage(upstreamErrorMessage(upstreamBody, resp.StatusCode)))
	}

	trace.SetState(StateStreaming)
	trace.StatusCode = http.StatusOK

	events := make(chan StreamEvent, streamEventBuffer)
	go d.relayStream(streamCtx, cancel, trace, resp.Body, codec.NewStreamDecoder(), events,
		time.Duration(settings.StreamIdleTimeoutSecs)*time.Second)

	return &DispatchResult{Streaming: true, Events: events}, nil
}

type frameResult struct {
	frame []byte
	err   error
}

// relayStream pumps upstream SSE frames through the decoder into the
// bounded event channel. An idle watchdog aborts streams that stall
// between chunks; client cancellation tears down the upstream read.
func (d *Dispatcher) relayStream(ctx context.Context, cancel context.CancelFunc, trace *RequestTrace, upstream io.ReadCloser, decoder translator.StreamDecoder, events chan<- StreamEvent, idleTimeout time.Duration) {
	defer close(events)
	defer cancel()
	defer upstream.Close()

	frames := make(chan frameResult)
	go func() {
		fr := NewSSEFrameReader(upstream)
		for {
			frame, err := fr.Next()
			select {
			case frames <- frameResult{frame: frame, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	idle := time.NewTimer(idleTimeout)
	defer idle.Stop()

	finish := func(state RequestState, gerr *GatewayError) {
		if gerr != nil {
			trace.SetError(gerr.Kind)
			select {
			case events <- StreamEvent{Err: gerr}:
			case <-ctx.Done():
			}
		}
		trace.SetState(state)
		in, out := decoder.Usage()
		trace.SetUsage(in, out)
		d.writeLog(trace)
	}

	emit := func(chunks []string) bool {
		for _, chunk := range chunks {
			select {
			case events <- StreamEvent{Data: chunk}:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			finish(StateAborted, nil)
			return

		case <-idle.C:
			log.Warnf("dispatcher: stream %s idle for %s, aborting", trace.RequestID, idleTimeout)
			finish(StateAborted, NewGatewayError(ErrKindStreamAborted, "upstream stream stalled"))
			return

		case fres := <-frames:
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(idleTimeout)

			if len(fres.frame) > 0 {
				chunks, derr := decoder.Decode(fres.frame)
				if derr != nil {
					finish(StateAborted, WrapGatewayError(ErrKindUpstreamProtocol, SanitizeErrorMessage(derr.Error()), derr))
					return
				}
				if !emit(chunks) {
					finish(StateAborted, nil)
					return
				}
			}

			if fres.err != nil {
				if fres.err != io.EOF {
					finish(StateAborted, WrapGatewayError(ErrKindStreamAborted, "upstream connection dropped", fres.err))
					return
				}
				// Natural end of stream. Close out the Anthropic event
				// sequence if the upstream skipped its terminator.
				if !emit(decoder.Finalize()) {
					finish(StateAborted, nil)
					return
				}
				if decoder.Done() {
					finish(StateCompleted, nil)
				} else {
					finish(StateAborted, NewGatewayError(ErrKindStreamAborted, "upstream ended before message completion"))
				}
				return
			}
		}
	}
}

func upstreamErrorMessage(body []byte, status int) string {
	root := gjson.ParseBytes(body)
	if msg := root.Get("error.message"); msg.Exists() && msg.String() != "" {
		return msg.String()
	}
	if len(body) > 0 && len(body) < 512 {
		return strings.TrimSpace(string(body))
	}
	return "upstream returned status " + http.StatusText(status)
}

func truncatePayload(s string) string {
	if len(s) > maxLoggedPayload {
		return s[:maxLoggedPayload]
	}
	return s
}

func (d *Dispatcher) writeLog(trace *RequestTrace) {
	if d.logWriter == nil {
		return
	}
	d.logWriter.Write(trace.Entry())
}
