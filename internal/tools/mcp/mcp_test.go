package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_Tools(t *testing.T) {
	a := FromConfig(map[string]string{
		"wiki": "http://localhost:9001",
		"docs": "http://localhost:9002",
	})

	tools := a.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, "docs_search", tools[0].Name())
	assert.Equal(t, "wiki_search", tools[1].Name())
	assert.Equal(t, "Search capability provided by wiki", tools[1].Description())

	// each tool reports its own server
	out, err := tools[0].Invoke(context.Background(), map[string]any{"query": "go modules"})
	require.NoError(t, err)
	assert.Equal(t, "Result from docs for query: go modules", out)
}

func TestAdapter_ConnectReplaces(t *testing.T) {
	a := NewAdapter()
	a.Connect("wiki", "http://a")
	a.Connect("wiki", "http://b")

	servers := a.Servers()
	require.Len(t, servers, 1)
	assert.Equal(t, "http://b", servers[0].URL)
}
