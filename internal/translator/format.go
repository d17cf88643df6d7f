package translator

// Dialect identifies the request/response schema a provider speaks.
type Dialect string

const (
	// DialectAnthropic covers providers exposing the Messages API natively,
	// including Grok's direct Anthropic-compatible endpoint.
	DialectAnthropic Dialect = "anthropic"
	// DialectOpenAI covers chat-completions providers such as OpenRouter.
	DialectOpenAI Dialect = "openai"
	// DialectGrok is the chat-completions schema with xAI's restrictions
	// applied (no frequency or presence penalties).
	DialectGrok Dialect = "grok"
)

// FromString converts an arbitrary identifier to a dialect.
func FromString(v string) Dialect {
	return Dialect(v)
}

// String returns the raw dialect identifier.
func (d Dialect) String() string {
	return string(d)
}

// Valid reports whether the dialect is one of the supported schemas.
func (d Dialect) Valid() bool {
	switch d {
	case DialectAnthropic, DialectOpenAI, DialectGrok:
		return true
	}
	return false
}
