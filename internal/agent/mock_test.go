package agent

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/agent-cli/internal/llm"
	"github.com/sells-group/agent-cli/internal/tools"
)

// --- Provider Mock ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Complete(ctx context.Context, messages []llm.Message, system, model string) (*llm.Response, error) {
	args := m.Called(ctx, messages, system, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

func (m *mockProvider) CompleteWithSearch(ctx context.Context, messages []llm.Message, system, model string) (*llm.Response, error) {
	args := m.Called(ctx, messages, system, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Response), args.Error(1)
}

func (m *mockProvider) CompleteStructured(ctx context.Context, messages []llm.Message, system string, schema llm.Schema, model string) (map[string]any, error) {
	args := m.Called(ctx, messages, system, schema, model)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]any), args.Error(1)
}

// --- Tool Stub ---

type stubTool struct {
	name   string
	result tools.Result
	calls  []tools.Context
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) Execute(_ context.Context, tc tools.Context) tools.Result {
	s.calls = append(s.calls, tc)
	return s.result
}

// --- Audit Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Append(entry map[string]any) error {
	args := m.Called(entry)
	return args.Error(0)
}
