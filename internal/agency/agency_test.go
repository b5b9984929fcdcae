package agency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/agent-cli/internal/config"
	"github.com/sells-group/agent-cli/internal/tools"
)

func TestSchemaCoversRecordFields(t *testing.T) {
	t.Parallel()

	assert.Equal(t, len(RecordFields), len(Schema.Properties))
	for _, field := range RecordFields {
		assert.Contains(t, Schema.Properties, field)
	}
	assert.Equal(t, RecordFields, Schema.Order)
	assert.Equal(t, []string{"name"}, Schema.Required)
}

func TestStrategyByName(t *testing.T) {
	t.Parallel()

	s, err := StrategyByName("")
	require.NoError(t, err)
	assert.Equal(t, "two_step", s.Name())

	s, err = StrategyByName("two_step")
	require.NoError(t, err)
	assert.Equal(t, "two_step", s.Name())

	s, err = StrategyByName("structured")
	require.NoError(t, err)
	assert.Equal(t, "structured", s.Name())

	s, err = StrategyByName("structured_confidence")
	require.NoError(t, err)
	assert.Equal(t, "structured_confidence", s.Name())

	_, err = StrategyByName("guess")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown strategy")
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	_, err := New(nil, tools.NewRegistry(), nil, config.AgentConfig{Strategy: "bogus"})
	require.Error(t, err)
}

func TestNewBuildsAgent(t *testing.T) {
	t.Parallel()

	a, err := New(nil, tools.NewRegistry(), nil, config.AgentConfig{
		Strategy:            "structured",
		ConfidenceThreshold: 0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, AgentType, a.Type())
}

func TestFlattenRecord(t *testing.T) {
	t.Parallel()

	record := map[string]any{
		"id":         "rec_123",
		"name":       "TriMet",
		"website":    "https://trimet.org",
		"ceo":        nil,
		"created_at": "2020-01-01",
	}

	flat := FlattenRecord(record)
	assert.Equal(t, map[string]any{
		"name":    "TriMet",
		"website": "https://trimet.org",
	}, flat)
}

func TestResearchQuestionQuotesName(t *testing.T) {
	t.Parallel()

	q := researchQuestion(`Metro "Transit"`)
	assert.Contains(t, q, `"Metro \"Transit\""`)
}
