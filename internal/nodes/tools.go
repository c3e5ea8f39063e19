package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"dsagent/internal/core"
	"dsagent/internal/sandbox"
	"dsagent/pkg"
)

// ToolsNode executes every tool call on the most recent worker message
// against the sandbox bridge. Calls run sequentially in request order; a
// failing call becomes an error-content tool result and never aborts its
// siblings. The node carries no routing logic: the graph returns control to
// the worker that requested the tools.
type ToolsNode struct {
	sb           sandbox.Sandbox
	shellTimeout time.Duration
	artifactDir  string
	log          zerolog.Logger
}

// NewToolsNode creates the tool-execution node.
func NewToolsNode(sb sandbox.Sandbox, shellTimeout time.Duration, artifactDir string, log zerolog.Logger) *ToolsNode {
	return &ToolsNode{
		sb:           sb,
		shellTimeout: shellTimeout,
		artifactDir:  artifactDir,
		log:          log,
	}
}

func (t *ToolsNode) Name() string { return core.NodeTools }

func (t *ToolsNode) Execute(ctx context.Context, state *core.State) (*core.Delta, error) {
	last := state.LastMessage()
	if last == nil || len(last.ToolCalls) == 0 {
		t.log.Warn().Msg("Tools node invoked but last message has no tool calls")
		return &core.Delta{}, nil
	}

	var cells []pkg.NotebookCell
	registry := NewToolRegistry(t.sb, t.shellTimeout, t.artifactDir, func(cell pkg.NotebookCell) {
		cells = append(cells, cell)
	})

	results := make([]*schema.Message, 0, len(last.ToolCalls))
	for _, call := range last.ToolCalls {
		name := call.Function.Name
		t.log.Info().Str("tool", name).Str("call_id", call.ID).Msg("Executing tool")

		var content string
		if invokable, ok := registry.Lookup(name); ok {
			out, err := invokable.InvokableRun(ctx, call.Function.Arguments)
			if err != nil {
				t.log.Error().Err(err).Str("tool", name).Msg("Tool execution failed")
				content = fmt.Sprintf("Error executing tool %s: %v", name, err)
			} else {
				content = out
			}
		} else {
			content = fmt.Sprintf("Error: tool '%s' not found", name)
		}

		results = append(results, schema.ToolMessage(content, call.ID, schema.WithToolName(name)))
	}

	return &core.Delta{Messages: results, Cells: cells}, nil
}
