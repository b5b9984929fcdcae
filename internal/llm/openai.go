package llm

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sells-group/agent-cli/internal/config"
)

// searchFallbackHint is appended to the system prompt when a backend has no
// native web search. The model is asked to qualify uncertain answers so the
// confidence filter downstream can do its job.
const searchFallbackHint = `

Note: Use your training knowledge to provide the most accurate and up-to-date
information available. If you are uncertain about specific details, indicate
your confidence level.`

// openaiProvider implements Provider using go-openai.
type openaiProvider struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAI creates the OpenAI provider. A missing credential is a
// construction-time failure.
func NewOpenAI(cfg config.OpenAIConfig) (Provider, error) {
	if cfg.Key == "" {
		return nil, eris.New("llm: openai API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.Key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openaiProvider{
		client:       openai.NewClientWithConfig(clientCfg),
		defaultModel: cfg.Model,
	}, nil
}

func (p *openaiProvider) Name() string { return "openai" }

func (p *openaiProvider) Complete(ctx context.Context, messages []Message, system, model string) (*Response, error) {
	return p.createCompletion(ctx, messages, system, model, nil)
}

// CompleteWithSearch degrades to a plain completion with a prompt hint; the
// backend has no native search and this must never fail because of that.
func (p *openaiProvider) CompleteWithSearch(ctx context.Context, messages []Message, system, model string) (*Response, error) {
	return p.createCompletion(ctx, messages, system+searchFallbackHint, model, nil)
}

func (p *openaiProvider) CompleteStructured(ctx context.Context, messages []Message, system string, schema Schema, model string) (map[string]any, error) {
	schemaJSON, merr := json.MarshalIndent(schema, "", "  ")
	if merr != nil {
		return nil, eris.Wrap(merr, "llm: openai: marshal schema")
	}

	jsonSystem := system + "\n\nYou must respond with ONLY valid JSON matching this schema:\n" + string(schemaJSON)

	format := &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	resp, err := p.createCompletion(ctx, messages, jsonSystem, model, format)
	if err != nil {
		return nil, err
	}
	return ExtractJSON(resp.Content), nil
}

func (p *openaiProvider) createCompletion(ctx context.Context, messages []Message, system, model string, format *openai.ChatCompletionResponseFormat) (*Response, error) {
	if model == "" {
		model = p.defaultModel
	}

	req := openai.ChatCompletionRequest{
		Model:          model,
		MaxTokens:      defaultMaxTokens,
		Messages:       toOpenAIMessages(messages, system),
		ResponseFormat: format,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "llm: openai: create chat completion")
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	return &Response{
		Content:      content,
		Model:        resp.Model,
		InputTokens:  int64(resp.Usage.PromptTokens),
		OutputTokens: int64(resp.Usage.CompletionTokens),
		Raw:          resp,
	}, nil
}

// toOpenAIMessages prepends the system prompt; OpenAI carries it in the
// messages array rather than a dedicated field.
func toOpenAIMessages(msgs []Message, system string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}
	return out
}
