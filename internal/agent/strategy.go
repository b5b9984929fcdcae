package agent

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/agent-cli/internal/llm"
)

// Strategy is one pipeline shape for turning an entity name into a flat
// field mapping, optionally with per-field confidences. The historical
// variants of the pipeline — two-call search-then-extract, single
// schema-constrained call, and single call with confidence scoring — are
// swappable implementations of this interface.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, r *run, entityName string) (map[string]any, map[string]float64, error)
}

// confidenceSuffix pairs a numeric confidence property with each schema
// field in the confidence-scored strategy.
const confidenceSuffix = "_confidence"

// TwoStepSearch researches with a search-augmented call, then extracts
// structured data with a second, plain completion. Exactly two llm_call
// entries per successful run.
type TwoStepSearch struct{}

// Name implements Strategy.
func (TwoStepSearch) Name() string { return "two_step" }

// Extract implements Strategy.
func (TwoStepSearch) Extract(ctx context.Context, r *run, entityName string) (map[string]any, map[string]float64, error) {
	spec := r.agent.spec

	r.log(EventDecision, map[string]any{
		"action":      "research_start",
		"entity_name": entityName,
	}, 0)

	research, err := r.callLLM(ctx, []llm.Message{{
		Role:    "user",
		Content: spec.ResearchQuestion(entityName),
	}}, spec.ResearchSystemPrompt, true)
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(research.Content) == "" {
		return nil, nil, eris.New("research step returned no findings")
	}

	r.log(EventDecision, map[string]any{
		"action":          "research_complete",
		"response_length": len(research.Content),
	}, 0)

	r.log(EventDecision, map[string]any{"action": "extraction_start"}, 0)

	extraction, err := r.callLLM(ctx, []llm.Message{{
		Role:    "user",
		Content: "Extract structured data from these research findings:\n\n" + research.Content,
	}}, spec.ExtractionSystemPrompt, false)
	if err != nil {
		return nil, nil, err
	}

	parsed := llm.ExtractJSON(extraction.Content)
	if llm.IsParseError(parsed) {
		return nil, nil, asParseError(parsed)
	}
	return parsed, nil, nil
}

// StructuredSingle folds research and extraction into one schema-constrained
// call. Exactly one llm_call entry per successful run; no confidence
// filtering.
type StructuredSingle struct{}

// Name implements Strategy.
func (StructuredSingle) Name() string { return "structured" }

// Extract implements Strategy.
func (StructuredSingle) Extract(ctx context.Context, r *run, entityName string) (map[string]any, map[string]float64, error) {
	spec := r.agent.spec

	parsed, err := r.callStructured(ctx, []llm.Message{{
		Role:    "user",
		Content: spec.ResearchQuestion(entityName),
	}}, spec.ResearchSystemPrompt, spec.Schema)
	if err != nil {
		return nil, nil, err
	}
	if llm.IsParseError(parsed) {
		return nil, nil, asParseError(parsed)
	}
	return parsed, nil, nil
}

// StructuredWithConfidence is StructuredSingle plus an explicit per-field
// confidence score requested alongside each value, enabling the confidence
// filter stage.
type StructuredWithConfidence struct{}

// Name implements Strategy.
func (StructuredWithConfidence) Name() string { return "structured_confidence" }

// Extract implements Strategy.
func (StructuredWithConfidence) Extract(ctx context.Context, r *run, entityName string) (map[string]any, map[string]float64, error) {
	spec := r.agent.spec

	parsed, err := r.callStructured(ctx, []llm.Message{{
		Role:    "user",
		Content: spec.ResearchQuestion(entityName),
	}}, spec.ResearchSystemPrompt, withConfidenceFields(spec.Schema))
	if err != nil {
		return nil, nil, err
	}
	if llm.IsParseError(parsed) {
		return nil, nil, asParseError(parsed)
	}

	draft := make(map[string]any)
	confidences := make(map[string]float64)
	for key, value := range parsed {
		if field, ok := strings.CutSuffix(key, confidenceSuffix); ok {
			if conf, numeric := toFloat64(value); numeric {
				confidences[field] = conf
			}
			continue
		}
		draft[key] = value
	}
	return draft, confidences, nil
}

// withConfidenceFields extends a schema with a paired numeric confidence
// property per field.
func withConfidenceFields(schema llm.Schema) llm.Schema {
	props := make(map[string]llm.FieldSpec, len(schema.Properties)*2)
	order := make([]string, 0, len(schema.Properties)*2)
	for _, key := range schema.Keys() {
		props[key] = schema.Properties[key]
		order = append(order, key)

		confKey := key + confidenceSuffix
		props[confKey] = llm.FieldSpec{
			Type:        "number",
			Description: "Confidence from 0 to 1 that the value of " + key + " is accurate and current",
		}
		order = append(order, confKey)
	}
	return llm.Schema{
		Properties: props,
		Order:      order,
		Required:   schema.Required,
	}
}

func asParseError(sentinel map[string]any) *ParseError {
	detail, _ := sentinel[llm.ParseErrorKey].(string)
	excerpt, _ := sentinel[llm.RawContentKey].(string)
	return &ParseError{Detail: detail, Excerpt: excerpt}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
