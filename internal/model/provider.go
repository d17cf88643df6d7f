package model

import "time"

type Dialect string

const (
	DialectAnthropic Dialect = "anthropic"
	DialectOpenAI    Dialect = "openai"
	DialectGrok      Dialect = "grok"
)

type AuthMethod string

const (
	AuthBearerToken  AuthMethod = "bearer_token"
	AuthBasic        AuthMethod = "basic_auth"
	AuthCustomHeader AuthMethod = "custom_header"
)

type HeaderPair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Provider struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	APIEndpoint       string     `json:"apiEndpoint"`
	APIKey            string     `json:"-"`
	AuthMethod        AuthMethod `json:"authMethod"`
	Dialect           Dialect    `json:"dialect"`
	DefaultModel      string     `json:"defaultModel"`
	TierMappingJSON   string     `json:"-"`
	ModelOverrideJSON string     `json:"-"`
	HeadersJSON       string     `json:"-"`
	IsActive          bool       `json:"isActive"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type ProviderRequest struct {
	Name          string            `json:"name" binding:"required,min=1,max=64"`
	APIEndpoint   string            `json:"apiEndpoint" binding:"required,url"`
	APIKey        string            `json:"apiKey,omitempty"`
	AuthMethod    AuthMethod        `json:"authMethod" binding:"omitempty,oneof=bearer_token basic_auth custom_header"`
	Dialect       Dialect           `json:"dialect" binding:"required,oneof=anthropic openai grok"`
	DefaultModel  string            `json:"defaultModel" binding:"required,min=1"`
	TierMapping   map[string]string `json:"tierMapping,omitempty"`
	ModelOverride map[string]string `json:"modelOverride,omitempty"`
	Headers       []HeaderPair      `json:"headers,omitempty"`
}

type ProviderResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	APIEndpoint   string            `json:"apiEndpoint"`
	APIKeySet     bool              `json:"apiKeySet"`
	AuthMethod    AuthMethod        `json:"authMethod"`
	Dialect       Dialect           `json:"dialect"`
	DefaultModel  string            `json:"defaultModel"`
	TierMapping   map[string]string `json:"tierMapping"`
	ModelOverride map[string]string `json:"modelOverride"`
	Headers       []HeaderPair      `json:"headers"`
	IsActive      bool              `json:"isActive"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

type TestProviderResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	LatencyMs int64  `json:"latencyMs,omitempty"`
}
