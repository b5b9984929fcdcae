package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct{}

func (echoTool) Name() string { return "echo" }

func (echoTool) Execute(_ context.Context, tc Context) Result {
	return Result{
		Success:    true,
		Data:       map[string]any{"params": tc.Params},
		Confidence: 1.0,
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.Nil(t, r.Get("echo"))

	r.Register(echoTool{})
	require.NotNil(t, r.Get("echo"))
	assert.Equal(t, "echo", r.Get("echo").Name())
}

func TestRegistryExecute(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(echoTool{})

	result := r.Execute(context.Background(), "echo", Context{Params: map[string]any{"k": "v"}})
	require.True(t, result.Success)
	assert.Equal(t, map[string]any{"k": "v"}, result.Data["params"])
}

func TestRegistryExecuteUnknownTool(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	result := r.Execute(context.Background(), "nonexistent", Context{})

	assert.False(t, result.Success)
	assert.Equal(t, "Tool not found: nonexistent", result.Error)
}
