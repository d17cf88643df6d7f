package model

import "time"

type RequestLog struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	RequestID     string    `json:"requestId"`
	Alias         string    `json:"alias"`
	ProviderName  string    `json:"providerName"`
	OriginalModel string    `json:"originalModel"`
	MappedModel   string    `json:"mappedModel"`
	Dialect       string    `json:"dialect"`
	StatusCode    int       `json:"statusCode"`
	DurationMs    int64     `json:"durationMs"`
	IsStreaming   bool      `json:"isStreaming"`
	ErrorType     string    `json:"errorType,omitempty"`
	InputTokens   int64     `json:"inputTokens"`
	OutputTokens  int64     `json:"outputTokens"`
	RequestJSON   string    `json:"requestJson,omitempty"`
	ResponseJSON  string    `json:"responseJson,omitempty"`
}

type RequestLogQuery struct {
	ProviderName string
	Model        string
	ErrorsOnly   bool
	Since        time.Time
	Limit        int
	Offset       int
}

type UsageSummaryRow struct {
	ProviderName  string `json:"providerName"`
	Model         string `json:"model"`
	RequestCount  int64  `json:"requestCount"`
	ErrorCount    int64  `json:"errorCount"`
	InputTokens   int64  `json:"inputTokens"`
	OutputTokens  int64  `json:"outputTokens"`
	AvgDurationMs int64  `json:"avgDurationMs"`
	EstimatedCost string `json:"estimatedCost"`
}
