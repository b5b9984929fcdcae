// Package llm normalizes heterogeneous chat-completion backends into one
// provider contract with three call shapes: plain, search-augmented, and
// schema-constrained.
package llm

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-cli/internal/config"
)

// Message represents a single conversational message.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Response is the normalized result of one completion call.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	Raw          any    `json:"-"`
}

// Provider is the uniform interface over chat-completion backends.
//
// CompleteWithSearch may consult live web search before answering; backends
// without native search degrade to a plain completion with a prompt hint and
// never fail for lack of the capability. CompleteStructured constrains the
// reply to a field schema and returns a parse-error sentinel mapping (see
// ExtractJSON) rather than an error when the reply cannot be parsed.
type Provider interface {
	Name() string
	Complete(ctx context.Context, messages []Message, system, model string) (*Response, error)
	CompleteWithSearch(ctx context.Context, messages []Message, system, model string) (*Response, error)
	CompleteStructured(ctx context.Context, messages []Message, system string, schema Schema, model string) (map[string]any, error)
}

// FieldSpec describes a single schema field.
type FieldSpec struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Schema declares the field set a structured completion must return.
// Keys() preserves declaration order so prompts render deterministically.
type Schema struct {
	Properties map[string]FieldSpec
	Order      []string
	Required   []string
}

// Keys returns the field names in declaration order, falling back to map
// iteration when no order was declared.
func (s Schema) Keys() []string {
	if len(s.Order) > 0 {
		return s.Order
	}
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	return keys
}

// MarshalJSON renders the schema as a JSON Schema object.
func (s Schema) MarshalJSON() ([]byte, error) {
	props := make(map[string]FieldSpec, len(s.Properties))
	for k, v := range s.Properties {
		props[k] = v
	}
	return json.Marshal(map[string]any{
		"type":       "object",
		"properties": props,
		"required":   s.Required,
	})
}

// New resolves a logical provider name to a concrete implementation,
// injecting the credential from configuration. Unknown names and missing
// credentials are configuration errors.
func New(name string, cfg config.ProvidersConfig) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropic(cfg.Anthropic)
	case "openai":
		return NewOpenAI(cfg.OpenAI)
	default:
		return nil, eris.Errorf("llm: unknown provider: %s", name)
	}
}
