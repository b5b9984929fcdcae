package llm

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// Sentinel keys carried by the mapping returned when structured output could
// not be parsed. They share the reserved metadata prefix so a failed parse
// can never masquerade as real entity fields.
const (
	ParseErrorKey = "_parse_error"
	RawContentKey = "_raw_content"
)

// rawExcerptLimit bounds the raw-text excerpt kept for diagnosis.
const rawExcerptLimit = 500

// ExtractJSON recovers a JSON object from LLM output, handling clean JSON,
// fenced code blocks, and JSON embedded in surrounding prose, in that
// priority order. On irrecoverable failure it returns a sentinel mapping
// with ParseErrorKey set and a bounded excerpt under RawContentKey; it never
// partially populates real fields from a failed parse.
func ExtractJSON(content string) map[string]any {
	content = strings.TrimSpace(content)

	// Ideal case: the whole reply is the object.
	var result map[string]any
	if err := json.Unmarshal([]byte(content), &result); err == nil {
		return result
	}

	// Fenced code block.
	if inner, ok := fencedBlock(content); ok {
		if err := json.Unmarshal([]byte(inner), &result); err == nil {
			return result
		}
	}

	// Substring between the first { and the last }.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		candidate := content[start : end+1]
		err := json.Unmarshal([]byte(candidate), &result)
		if err == nil {
			return result
		}
		return map[string]any{
			ParseErrorKey: "found JSON-like content but failed to parse: " + err.Error(),
			RawContentKey: excerpt(candidate),
		}
	}

	return map[string]any{
		ParseErrorKey: "could not find valid JSON in response",
		RawContentKey: excerpt(content),
	}
}

// IsParseError reports whether a structured-completion result is the
// parse-error sentinel.
func IsParseError(m map[string]any) bool {
	_, ok := m[ParseErrorKey]
	return ok
}

// fencedBlock returns the body of the first ``` fence, if any.
func fencedBlock(content string) (string, bool) {
	open := strings.Index(content, "```")
	if open < 0 {
		return "", false
	}
	rest := content[open+3:]
	// Drop an optional language tag up to the first newline.
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	}
	closing := strings.Index(rest, "```")
	if closing < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:closing]), true
}

// excerpt truncates at the limit without splitting a multi-byte rune; the
// result must stay valid UTF-8 for JSON marshaling downstream.
func excerpt(s string) string {
	if len(s) <= rawExcerptLimit {
		return s
	}
	end := rawExcerptLimit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}
