package gateway

import (
	"sync"
	"time"

	"aiproxy/internal/model"
)

// Request lifecycle states.
type RequestState string

const (
	StatePending    RequestState = "pending"
	StateDispatched RequestState = "dispatched"
	StateStreaming  RequestState = "streaming"
	StateCompleted  RequestState = "completed"
	StateAborted    RequestState = "aborted"
	StateFailed     RequestState = "failed"
)

// RequestTrace accumulates per-request metadata for the request log.
// Mutated from both the handler goroutine and the stream relay goroutine,
// hence the mutex.
type RequestTrace struct {
	mu sync.Mutex

	RequestID     string
	Alias         string
	ProviderName  string
	OriginalModel string
	MappedModel   string
	Dialect       string
	StartTime     time.Time
	State         RequestState
	StatusCode    int
	IsStreaming   bool
	ErrorType     string
	InputTokens   int64
	OutputTokens  int64
	RequestJSON   string
	ResponseJSON  string
}

func NewRequestTrace(requestID, alias string) *RequestTrace {
	return &RequestTrace{
		RequestID: requestID,
		Alias:     alias,
		StartTime: time.Now(),
		State:     StatePending,
	}
}

func (t *RequestTrace) SetState(s RequestState) {
	t.mu.Lock()
	t.State = s
	t.mu.Unlock()
}

func (t *RequestTrace) SetRouting(providerName, originalModel, mappedModel, dialect string) {
	t.mu.Lock()
	t.ProviderName = providerName
	t.OriginalModel = originalModel
	t.MappedModel = mappedModel
	t.Dialect = dialect
	t.mu.Unlock()
}

func (t *RequestTrace) SetError(kind ErrorKind) {
	t.mu.Lock()
	t.ErrorType = string(kind)
	t.mu.Unlock()
}

func (t *RequestTrace) SetUsage(inputTokens, outputTokens int64) {
	t.mu.Lock()
	t.InputTokens = inputTokens
	t.OutputTokens = outputTokens
	t.mu.Unlock()
}

// Entry snapshots the trace into a log record.
func (t *RequestTrace) Entry() *model.RequestLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &model.RequestLog{
		CreatedAt:     t.StartTime,
		RequestID:     t.RequestID,
		Alias:         t.Alias,
		ProviderName:  t.ProviderName,
		OriginalModel: t.OriginalModel,
		MappedModel:   t.MappedModel,
		Dialect:       t.Dialect,
		StatusCode:    t.StatusCode,
		DurationMs:    time.Since(t.StartTime).Milliseconds(),
		IsStreaming:   t.IsStreaming,
		ErrorType:     t.ErrorType,
		InputTokens:   t.InputTokens,
		OutputTokens:  t.OutputTokens,
		RequestJSON:   t.RequestJSON,
		ResponseJSON:  t.ResponseJSON,
	}
}
