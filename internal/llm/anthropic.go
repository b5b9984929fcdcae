package llm

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-cli/internal/config"
)

const (
	defaultMaxTokens    = 4096
	webSearchMaxUses    = 5
	structuredPromptTag = "IMPORTANT: You must respond with ONLY valid JSON matching this schema:"
)

// anthropicProvider implements Provider using the official anthropic-sdk-go.
type anthropicProvider struct {
	client       sdk.Client
	defaultModel string
}

// NewAnthropic creates the Anthropic provider. A missing credential is a
// construction-time failure.
func NewAnthropic(cfg config.AnthropicConfig) (Provider, error) {
	if cfg.Key == "" {
		return nil, eris.New("llm: anthropic API key is required")
	}
	return &anthropicProvider{
		client:       sdk.NewClient(option.WithAPIKey(cfg.Key)),
		defaultModel: cfg.Model,
	}, nil
}

func (p *anthropicProvider) Name() string { return "anthropic" }

func (p *anthropicProvider) Complete(ctx context.Context, messages []Message, system, model string) (*Response, error) {
	return p.createMessage(ctx, messages, system, model, nil)
}

func (p *anthropicProvider) CompleteWithSearch(ctx context.Context, messages []Message, system, model string) (*Response, error) {
	tools := []sdk.ToolUnionParam{{
		OfWebSearchTool20250305: &sdk.WebSearchTool20250305Param{
			MaxUses: sdk.Int(webSearchMaxUses),
		},
	}}
	return p.createMessage(ctx, messages, system, model, tools)
}

func (p *anthropicProvider) CompleteStructured(ctx context.Context, messages []Message, system string, schema Schema, model string) (map[string]any, error) {
	schemaJSON, merr := json.MarshalIndent(schema, "", "  ")
	if merr != nil {
		return nil, eris.Wrap(merr, "llm: anthropic: marshal schema")
	}

	jsonSystem := system + "\n\n" + structuredPromptTag + "\n" + string(schemaJSON) +
		"\n\nDo not include any text before or after the JSON. Do not use markdown code blocks."

	resp, err := p.createMessage(ctx, messages, jsonSystem, model, nil)
	if err != nil {
		return nil, err
	}
	return ExtractJSON(resp.Content), nil
}

func (p *anthropicProvider) createMessage(ctx context.Context, messages []Message, system, model string, tools []sdk.ToolUnionParam) (*Response, error) {
	if model == "" {
		model = p.defaultModel
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages:  toSDKMessages(messages),
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = tools
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrap(err, "llm: anthropic: create message")
	}

	return &Response{
		Content:      extractText(msg),
		Model:        string(msg.Model),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
		Raw:          msg,
	}, nil
}

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

// extractText joins the text blocks of a response, skipping tool-use and
// search-result blocks.
func extractText(msg *sdk.Message) string {
	var parts []string
	for _, b := range msg.Content {
		if b.Type == "text" && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
