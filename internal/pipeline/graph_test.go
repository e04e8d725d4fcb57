package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-router/internal/model"
)

func node(name string) Stage {
	return StageFunc{StageName: name, Fn: func(context.Context, *model.Lead) {}}
}

func TestGraph_Validate(t *testing.T) {
	pick := func(*model.Lead) string { return "b" }

	tests := []struct {
		name    string
		build   func(g *Graph)
		wantErr string
	}{
		{
			name: "valid linear",
			build: func(g *Graph) {
				g.AddNode(node("a"))
				g.AddNode(node("b"))
				g.SetEntry("a")
				g.AddEdge("a", "b")
				g.SetTerminal("b")
			},
		},
		{
			name:    "no entry",
			build:   func(g *Graph) { g.AddNode(node("a")); g.SetTerminal("a") },
			wantErr: "no entry node",
		},
		{
			name:    "unknown entry",
			build:   func(g *Graph) { g.AddNode(node("a")); g.SetEntry("x"); g.SetTerminal("a") },
			wantErr: `entry "x" is not a node`,
		},
		{
			name:    "no terminals",
			build:   func(g *Graph) { g.AddNode(node("a")); g.SetEntry("a") },
			wantErr: "no terminal nodes",
		},
		{
			name: "duplicate node",
			build: func(g *Graph) {
				g.AddNode(node("a"))
				g.AddNode(node("a"))
				g.SetEntry("a")
				g.SetTerminal("a")
			},
			wantErr: `duplicate node "a"`,
		},
		{
			name: "edge to unknown",
			build: func(g *Graph) {
				g.AddNode(node("a"))
				g.AddNode(node("b"))
				g.SetEntry("a")
				g.AddEdge("a", "zzz")
				g.SetTerminal("b")
			},
			wantErr: "targets unknown node",
		},
		{
			name: "dead end",
			build: func(g *Graph) {
				g.AddNode(node("a"))
				g.AddNode(node("b"))
				g.SetEntry("a")
				g.SetTerminal("b")
			},
			wantErr: `node "a" has no outgoing edge and is not terminal`,
		},
		{
			name: "terminal with edge",
			build: func(g *Graph) {
				g.AddNode(node("a"))
				g.AddNode(node("b"))
				g.SetEntry("a")
				g.AddEdge("a", "b")
				g.AddEdge("b", "a")
				g.SetTerminal("b")
			},
			wantErr: `terminal "b" has an outgoing edge`,
		},
		{
			name: "edge and conditional",
			build: func(g *Graph) {
				g.AddNode(node("a"))
				g.AddNode(node("b"))
				g.SetEntry("a")
				g.AddEdge("a", "b")
				g.AddConditionalEdge("a", pick, "b")
				g.SetTerminal("b")
			},
			wantErr: `node "a" already has an edge`,
		},
		{
			name: "conditional without targets",
			build: func(g *Graph) {
				g.AddNode(node("a"))
				g.SetEntry("a")
				g.AddConditionalEdge("a", pick)
				g.SetTerminal("a")
			},
			wantErr: "has no targets",
		},
		{
			name: "unreachable terminal",
			build: func(g *Graph) {
				g.AddNode(node("a"))
				g.AddNode(node("b"))
				g.AddNode(node("c"))
				g.SetEntry("a")
				g.AddEdge("a", "b")
				g.AddEdge("b", "a")
				g.SetTerminal("c")
			},
			wantErr: "no terminal reachable from entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph()
			tt.build(g)
			err := g.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStandardGraph(t *testing.T) {
	g, err := Standard(newMocks().deps())
	require.NoError(t, err)
	require.NoError(t, g.Validate())
	assert.Equal(t, []string{NodeCapture, NodeEnrich, NodeScore, NodeRoute, NodeSummarize, NodeNurture}, g.Nodes())
}

func TestRun_CycleIsPipelineError(t *testing.T) {
	g := NewGraph()
	g.AddNode(node("a"))
	g.AddNode(node("b"))
	g.AddNode(node("end"))
	g.SetEntry("a")
	g.AddConditionalEdge("a", func(*model.Lead) string { return "b" }, "b", "end")
	g.AddEdge("b", "a")
	g.SetTerminal("end")

	p, err := FromGraph(g)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), model.NewLead(nil))
	var pe *PipelineError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "a", pe.Node)
	assert.Contains(t, err.Error(), "cycle detected")
}
