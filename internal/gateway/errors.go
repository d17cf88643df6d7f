package gateway

import (
	"encoding/json"
	"net/http"
	"regexp"
)

// ErrorKind classifies every failure the gateway can surface.
type ErrorKind string

const (
	ErrKindUnknownAlias       ErrorKind = "unknown_alias"
	ErrKindNoActiveProvider   ErrorKind = "no_active_provider"
	ErrKindUnresolvedModel    ErrorKind = "unresolved_model"
	ErrKindRateLimited        ErrorKind = "rate_limited"
	ErrKindInvalidRequest     ErrorKind = "invalid_request"
	ErrKindUpstreamTimeout    ErrorKind = "upstream_timeout"
	ErrKindUpstreamConnection ErrorKind = "upstream_connection"
	ErrKindUpstreamProtocol   ErrorKind = "upstream_protocol"
	ErrKindUpstreamAuth       ErrorKind = "upstream_auth"
	ErrKindStreamAborted      ErrorKind = "stream_aborted"
	ErrKindInternal           ErrorKind = "internal"
)

// GatewayError carries the classification alongside the message so the
// handler layer can pick the HTTP status and the log writer the error tag.
type GatewayError struct {
	Kind       ErrorKind
	Message    string
	RetryAfter int // seconds, only for rate_limited
	cause      error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *GatewayError) Unwrap() error { return e.cause }

func NewGatewayError(kind ErrorKind, message string) *GatewayError {
	return &GatewayError{Kind: kind, Message: message}
}

func WrapGatewayError(kind ErrorKind, message string, cause error) *GatewayError {
	return &GatewayError{Kind: kind, Message: message, cause: cause}
}

// HTTPStatus maps an error kind to the status code returned to the caller.
func (e *GatewayError) HTTPStatus() int {
	switch e.Kind {
	case ErrKindUnknownAlias:
		return http.StatusNotFound
	case ErrKindNoActiveProvider, ErrKindUnresolvedModel, ErrKindInvalidRequest:
		return http.StatusBadRequest
	case ErrKindRateLimited:
		return http.StatusTooManyRequests
	case ErrKindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case ErrKindUpstreamConnection, ErrKindUpstreamProtocol, ErrKindStreamAborted:
		return http.StatusBadGateway
	case ErrKindUpstreamAuth:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// anthropicErrorType maps an error kind to the error.type field of the
// Anthropic error envelope.
func (e *GatewayError) anthropicErrorType() string {
	switch e.Kind {
	case ErrKindUnknownAlias, ErrKindNoActiveProvider, ErrKindUnresolvedModel, ErrKindInvalidRequest:
		return "invalid_request_error"
	case ErrKindRateLimited:
		return "rate_limit_error"
	case ErrKindUpstreamAuth:
		return "authentication_error"
	case ErrKindUpstreamTimeout, ErrKindUpstreamConnection, ErrKindUpstreamProtocol, ErrKindStreamAborted:
		return "api_error"
	default:
		return "api_error"
	}
}

type errorEnvelope struct {
	Type  string      `json:"type"`
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Envelope renders the Anthropic error envelope for this error.
func (e *GatewayError) Envelope() []byte {
	payload, err := json.Marshal(errorEnvelope{
		Type: "error",
		Error: errorDetail{
			Type:    e.anthropicErrorType(),
			Message: SanitizeErrorMessage(e.Error()),
		},
	})
	if err != nil {
		return []byte(`{"type":"error","error":{"type":"api_error","message":"internal error"}}`)
	}
	return payload
}

// SSEEvent renders the error as a terminal SSE event in the Anthropic
// streaming grammar.
func (e *GatewayError) SSEEvent() string {
	return "event: error\ndata: " + string(e.Envelope()) + "\n\n"
}

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)key=[^&\s]+`),
	regexp.MustCompile(`(?i)api_key=[^&\s]+`),
	regexp.MustCompile(`(?i)token=[^&\s]+`),
	regexp.MustCompile(`(?i)Bearer\s+[^\s]+`),
	regexp.MustCompile(`(?i)x-api-key:\s*[^\s]+`),
	regexp.MustCompile(`(?i)authorization:\s*[^\s]+`),
	regexp.MustCompile(`sk-[a-zA-Z0-9-_]+`),
	regexp.MustCompile(`xai-[a-zA-Z0-9-_]+`),
	regexp.MustCompile(`(?i)password=[^&\s]+`),
	regexp.MustCompile(`(?i)secret=[^&\s]+`),
}

// SanitizeErrorMessage redacts credentials that upstream errors sometimes
// echo back.
func SanitizeErrorMessage(msg string) string {
	for _, pattern := range sensitivePatterns {
		msg = pattern.ReplaceAllString(msg, "[REDACTED]")
	}
	return msg
}

// ClassifyUpstreamStatus maps an upstream HTTP status to an error kind.
func ClassifyUpstreamStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrKindUpstreamAuth
	case http.StatusGatewayTimeout:
		return ErrKindUpstreamTimeout
	default:
		return ErrKindUpstreamConnection
	}
}
