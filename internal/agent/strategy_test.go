package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/agent-cli/internal/llm"
)

func TestWithConfidenceFields(t *testing.T) {
	t.Parallel()

	schema := llm.Schema{
		Properties: map[string]llm.FieldSpec{
			"name":    {Type: "string"},
			"website": {Type: "string"},
		},
		Order:    []string{"name", "website"},
		Required: []string{"name"},
	}

	extended := withConfidenceFields(schema)

	assert.Len(t, extended.Properties, 4)
	assert.Equal(t, []string{"name", "name_confidence", "website", "website_confidence"}, extended.Order)
	assert.Equal(t, []string{"name"}, extended.Required)
	assert.Equal(t, "number", extended.Properties["name_confidence"].Type)
}

func TestToFloat64(t *testing.T) {
	t.Parallel()

	for _, v := range []any{float64(0.5), float32(0.5)} {
		got, ok := toFloat64(v)
		assert.True(t, ok)
		assert.InDelta(t, 0.5, got, 0.001)
	}

	got, ok := toFloat64(3)
	assert.True(t, ok)
	assert.Equal(t, 3.0, got)

	_, ok = toFloat64("0.5")
	assert.False(t, ok)
}
