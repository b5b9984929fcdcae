package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")
	store := NewFileStore(path)

	require.NoError(t, store.Append(map[string]any{"run_id": "r1", "actor": "alice"}))
	require.NoError(t, store.Append(map[string]any{"run_id": "r2", "actor": "bob"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "r1", first["run_id"])
	assert.Equal(t, "alice", first["actor"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "r2", second["run_id"])
}

func TestFileStoreAppendUnmarshalable(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "audit.jsonl"))
	err := store.Append(map[string]any{"bad": make(chan int)})
	require.Error(t, err)
}

func TestNop(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Nop{}.Append(map[string]any{"anything": true}))
}
