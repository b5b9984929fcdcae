// Package agent implements the base agent execution pipeline: it sequences
// provider calls, tool calls, confidence filtering, and diff computation
// into one run per entity-research request, and emits a reviewable draft
// plus a structured trace of every stage.
package agent

import (
	"context"
	"strings"
	"time"
)

// Log entry event types.
const (
	EventLLMCall  = "llm_call"
	EventToolCall = "tool_call"
	EventDecision = "decision"
	EventError    = "error"
)

// MetadataPrefix marks draft keys that are pipeline metadata (image-fetch
// outcome markers, parse-error sentinels) rather than entity data. Such
// keys must be excluded when a draft is applied to a persisted record.
const MetadataPrefix = "_"

// LogEntry is an immutable record of one pipeline step. Entries accumulate
// in arrival order for a single run and are never mutated after append.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	EventType  string         `json:"event_type"`
	Details    map[string]any `json:"details"`
	DurationMS int64          `json:"duration_ms,omitempty"`
}

// SkippedField records a proposed value withheld from the draft for falling
// below the confidence threshold.
type SkippedField struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// FieldChange is one entry of a diff against an existing record.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Result is the externally visible artifact of one pipeline run: the unit
// handed to a human reviewer and, separately, to the commit step.
type Result struct {
	Success       bool                    `json:"success"`
	Draft         map[string]any          `json:"draft"`
	SkippedFields map[string]SkippedField `json:"skipped_fields"`
	Diff          map[string]FieldChange  `json:"diff,omitempty"`
	Logs          []LogEntry              `json:"logs"`
	ProviderUsed  string                  `json:"provider_used"`
	ModelUsed     string                  `json:"model_used"`
	IsUpdate      bool                    `json:"is_update"`
	Error         string                  `json:"error,omitempty"`
}

// EntityFields returns a copy of the draft without reserved metadata
// markers, suitable for applying to a persisted record.
func EntityFields(draft map[string]any) map[string]any {
	fields := make(map[string]any, len(draft))
	for k, v := range draft {
		if strings.HasPrefix(k, MetadataPrefix) {
			continue
		}
		fields[k] = v
	}
	return fields
}

// ParseError reports that extraction could not recover structured data from
// the completion output. It carries a bounded raw-text excerpt for
// diagnosis and is never conflated with a provider error.
type ParseError struct {
	Detail  string
	Excerpt string
}

func (e *ParseError) Error() string {
	return "parse error: " + e.Detail
}

type actorKey struct{}

// WithActor attaches the acting principal to the context for audit
// attribution.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the acting principal, defaulting to "anonymous".
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey{}).(string); ok && actor != "" {
		return actor
	}
	return "anonymous"
}
