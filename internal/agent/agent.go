package agent

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/agent-cli/internal/audit"
	"github.com/sells-group/agent-cli/internal/llm"
	"github.com/sells-group/agent-cli/internal/tools"
)

// defaultThreshold applies when no threshold source is configured.
const defaultThreshold = 0.7

// promptPreviewLen bounds the prompt excerpt recorded in llm_call entries.
const promptPreviewLen = 200

// Spec configures one concrete agent: its entity schema, prompts, and the
// extraction strategy that shapes the pipeline.
type Spec struct {
	// Type identifies the agent (e.g. "agency") in logs and audit entries.
	Type string
	// Schema declares the entity field set for structured extraction.
	Schema llm.Schema
	// ResearchSystemPrompt steers the search-augmented research call.
	ResearchSystemPrompt string
	// ExtractionSystemPrompt steers the plain extraction call (two-step
	// strategy only).
	ExtractionSystemPrompt string
	// ResearchQuestion builds the user message from the entity name.
	ResearchQuestion func(entityName string) string
	// Strategy selects the pipeline shape.
	Strategy Strategy
}

// Agent executes the research pipeline for one entity type. It is immutable
// after construction; all per-run state lives on a run value created inside
// Execute, so concurrent invocations never share a log buffer.
type Agent struct {
	spec      Spec
	provider  llm.Provider
	model     string
	registry  *tools.Registry
	store     audit.Store
	threshold func() float64
}

// Options carries the collaborators an Agent needs.
type Options struct {
	Provider llm.Provider
	Model    string
	Registry *tools.Registry
	Store    audit.Store
	// Threshold is read at decision time, not cached per run.
	Threshold func() float64
}

// New creates an Agent from a spec and its collaborators.
func New(spec Spec, opts Options) *Agent {
	threshold := opts.Threshold
	if threshold == nil {
		threshold = func() float64 { return defaultThreshold }
	}
	store := opts.Store
	if store == nil {
		store = audit.Nop{}
	}
	return &Agent{
		spec:      spec,
		provider:  opts.Provider,
		model:     opts.Model,
		registry:  opts.Registry,
		store:     store,
		threshold: threshold,
	}
}

// Type returns the agent type identifier.
func (a *Agent) Type() string { return a.spec.Type }

// Execute runs the pipeline once: research, extraction, optional confidence
// filtering, optional image fetch, optional diff against an existing record,
// and an audit append. The returned Result is a draft for review; nothing is
// committed. A blank entity name fails fast with no provider calls.
func (a *Agent) Execute(ctx context.Context, input map[string]any, existing map[string]any) *Result {
	r := a.newRun()

	entityName, _ := input["name"].(string)
	entityName = strings.TrimSpace(entityName)
	if entityName == "" {
		return r.failed("entity name is required")
	}

	r.log(EventDecision, map[string]any{
		"action":      "start",
		"entity_name": entityName,
		"run_id":      r.id,
	}, 0)

	draft, confidences, err := a.spec.Strategy.Extract(ctx, r, entityName)
	if err != nil {
		r.log(EventError, map[string]any{
			"stage": "execution",
			"error": err.Error(),
		}, 0)

		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			return r.failed("Failed to parse response: " + parseErr.Detail)
		}
		return r.failed(err.Error())
	}

	skipped := map[string]SkippedField{}
	if confidences != nil {
		draft, skipped = r.filterByConfidence(draft, confidences)
	}

	if website, _ := draft["website"].(string); website != "" {
		r.fetchImages(ctx, draft, entityName, website)
	}

	var diff map[string]FieldChange
	isUpdate := existing != nil
	if isUpdate {
		diff = computeDiff(existing, draft)
		r.log(EventDecision, map[string]any{
			"action":         "computed_diff",
			"changed_fields": mapKeys(diff),
		}, 0)
	}

	result := r.succeeded(draft, skipped, diff, isUpdate)
	r.writeAudit(ctx, result, input)

	return result
}

// run owns all mutable state of one Execute call.
type run struct {
	agent *Agent
	id    string
	logs  []LogEntry
}

func (a *Agent) newRun() *run {
	return &run{
		agent: a,
		id:    uuid.NewString(),
	}
}

func (r *run) log(eventType string, details map[string]any, duration time.Duration) {
	r.logs = append(r.logs, LogEntry{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Details:    details,
		DurationMS: duration.Milliseconds(),
	})
}

// callLLM makes one provider call with timing and exactly one llm_call log
// entry. Credentials never appear in the logged details.
func (r *run) callLLM(ctx context.Context, messages []llm.Message, system string, useSearch bool) (*llm.Response, error) {
	a := r.agent
	start := time.Now()

	var resp *llm.Response
	var err error
	if useSearch {
		resp, err = a.provider.CompleteWithSearch(ctx, messages, system, a.model)
	} else {
		resp, err = a.provider.Complete(ctx, messages, system, a.model)
	}
	elapsed := time.Since(start)

	if err != nil {
		r.log(EventError, map[string]any{
			"stage": "llm_call",
			"error": err.Error(),
		}, elapsed)
		return nil, err
	}

	r.log(EventLLMCall, map[string]any{
		"provider":       a.provider.Name(),
		"model":          resp.Model,
		"use_search":     useSearch,
		"input_tokens":   resp.InputTokens,
		"output_tokens":  resp.OutputTokens,
		"prompt_preview": promptPreview(messages),
	}, elapsed)

	return resp, nil
}

// callStructured makes one schema-constrained provider call with timing and
// exactly one llm_call log entry.
func (r *run) callStructured(ctx context.Context, messages []llm.Message, system string, schema llm.Schema) (map[string]any, error) {
	a := r.agent
	start := time.Now()

	result, err := a.provider.CompleteStructured(ctx, messages, system, schema, a.model)
	elapsed := time.Since(start)

	if err != nil {
		r.log(EventError, map[string]any{
			"stage": "llm_structured_call",
			"error": err.Error(),
		}, elapsed)
		return nil, err
	}

	r.log(EventLLMCall, map[string]any{
		"provider":        a.provider.Name(),
		"model":           a.model,
		"structured":      true,
		"schema_keys":     schema.Keys(),
		"has_parse_error": llm.IsParseError(result),
	}, elapsed)

	return result, nil
}

// callTool executes a registered tool with timing and exactly one tool_call
// log entry.
func (r *run) callTool(ctx context.Context, name string, params map[string]any) tools.Result {
	a := r.agent
	start := time.Now()

	result := a.registry.Execute(ctx, name, tools.Context{
		Params:       params,
		ProviderName: a.provider.Name(),
		Model:        a.model,
	})
	elapsed := time.Since(start)

	logged := make(map[string]any, len(params))
	for k, v := range params {
		if k == "api_key" {
			continue
		}
		logged[k] = v
	}

	r.log(EventToolCall, map[string]any{
		"tool":       name,
		"params":     logged,
		"success":    result.Success,
		"confidence": result.Confidence,
		"error":      result.Error,
	}, elapsed)

	return result
}

// filterByConfidence splits extracted fields into the draft and
// skipped_fields by the configured threshold. Fields without a confidence
// figure default to full confidence.
func (r *run) filterByConfidence(data map[string]any, confidences map[string]float64) (map[string]any, map[string]SkippedField) {
	threshold := r.agent.threshold()
	kept := make(map[string]any, len(data))
	skipped := make(map[string]SkippedField)

	for key, value := range data {
		conf, ok := confidences[key]
		if !ok {
			conf = 1.0
		}
		if conf >= threshold {
			kept[key] = value
		} else {
			skipped[key] = SkippedField{
				Value:      value,
				Confidence: conf,
				Reason:     fmt.Sprintf("Below threshold (%.2f < %.2f)", conf, threshold),
			}
		}
	}

	r.log(EventDecision, map[string]any{
		"action":         "confidence_filter",
		"kept_fields":    mapKeys(kept),
		"skipped_fields": mapKeys(skipped),
		"threshold":      threshold,
	}, 0)

	return kept, skipped
}

// fetchImages invokes the image discovery tool for both image classes and
// annotates the draft with reserved outcome markers. Tool failures degrade
// the draft without failing the run.
func (r *run) fetchImages(ctx context.Context, draft map[string]any, entityName, website string) {
	shortName, _ := draft["short_name"].(string)
	if shortName == "" {
		shortName, _ = draft["name"].(string)
	}

	for _, imageType := range []string{"logo", "header"} {
		result := r.callTool(ctx, "image_fetch", map[string]any{
			"entity_type": r.agent.spec.Type,
			"entity_name": entityName,
			"short_name":  shortName,
			"website_url": website,
			"image_type":  imageType,
		})
		if result.Success {
			draft[MetadataPrefix+imageType+"_fetched"] = true
			draft[MetadataPrefix+imageType+"_path"] = result.Data["filepath"]
		}
	}
}

// computeDiff compares an existing record to the proposed draft. A field
// appears in the diff only if the proposed value differs and is non-nil;
// reserved metadata markers never appear. Values come from decoded JSON and
// may be slices or maps, so comparison must be deep.
func computeDiff(existing, proposed map[string]any) map[string]FieldChange {
	diff := make(map[string]FieldChange)
	for key, newVal := range proposed {
		if strings.HasPrefix(key, MetadataPrefix) || newVal == nil {
			continue
		}
		if oldVal := existing[key]; !reflect.DeepEqual(oldVal, newVal) {
			diff[key] = FieldChange{Old: oldVal, New: newVal}
		}
	}
	return diff
}

func (r *run) succeeded(draft map[string]any, skipped map[string]SkippedField, diff map[string]FieldChange, isUpdate bool) *Result {
	return r.result(true, draft, skipped, diff, isUpdate, "")
}

func (r *run) failed(errMsg string) *Result {
	return r.result(false, nil, nil, nil, false, errMsg)
}

func (r *run) result(success bool, draft map[string]any, skipped map[string]SkippedField, diff map[string]FieldChange, isUpdate bool, errMsg string) *Result {
	if draft == nil {
		draft = map[string]any{}
	}
	if skipped == nil {
		skipped = map[string]SkippedField{}
	}
	return &Result{
		Success:       success,
		Draft:         draft,
		SkippedFields: skipped,
		Diff:          diff,
		Logs:          r.logs,
		ProviderUsed:  r.agent.provider.Name(),
		ModelUsed:     r.agent.model,
		IsUpdate:      isUpdate,
		Error:         errMsg,
	}
}

// writeAudit appends one line to the audit store. This step is strictly
// auxiliary: a failure here is logged and swallowed, never surfaced as the
// run's error.
func (r *run) writeAudit(ctx context.Context, result *Result, input map[string]any) {
	entry := map[string]any{
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"run_id":     r.id,
		"agent_type": r.agent.spec.Type,
		"actor":      ActorFromContext(ctx),
		"input":      input,
		"result_summary": map[string]any{
			"success":        result.Success,
			"is_update":      result.IsUpdate,
			"fields_set":     mapKeys(result.Draft),
			"fields_skipped": mapKeys(result.SkippedFields),
			"error":          result.Error,
		},
		"provider":  result.ProviderUsed,
		"model":     result.ModelUsed,
		"log_count": len(result.Logs),
	}

	if err := r.agent.store.Append(entry); err != nil {
		zap.L().Warn("agent: audit append failed",
			zap.String("agent_type", r.agent.spec.Type),
			zap.String("run_id", r.id),
			zap.Error(err),
		)
	}
}

func promptPreview(messages []llm.Message) string {
	if len(messages) == 0 {
		return ""
	}
	content := messages[0].Content
	if len(content) > promptPreviewLen {
		return content[:promptPreviewLen]
	}
	return content
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
