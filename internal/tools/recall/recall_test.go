package recall

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMemory struct {
	items     []string
	err       error
	lastLimit int
}

func (s *stubMemory) Add(context.Context, string, map[string]string) (string, error) {
	return "", nil
}

func (s *stubMemory) RetrieveRelevant(_ context.Context, _ string, limit int) ([]string, error) {
	s.lastLimit = limit
	return s.items, s.err
}

func TestRecall(t *testing.T) {
	mem := &stubMemory{items: []string{"Result: 15", "Objective: add numbers"}}
	tool := NewTool(mem)

	out, err := tool.Invoke(context.Background(), map[string]any{"query": "add", "limit": "5"})
	require.NoError(t, err)
	assert.Equal(t, "- Result: 15\n- Objective: add numbers", out)
	assert.Equal(t, 5, mem.lastLimit)

	mem.items = nil
	out, err = tool.Invoke(context.Background(), map[string]any{"query": "add"})
	require.NoError(t, err)
	assert.Equal(t, "No memories found.", out)
	assert.Equal(t, defaultLimit, mem.lastLimit)
}

func TestRecall_Error(t *testing.T) {
	tool := NewTool(&stubMemory{err: errors.New("db closed")})

	_, err := tool.Invoke(context.Background(), map[string]any{"query": "x"})
	assert.ErrorContains(t, err, "db closed")
}
