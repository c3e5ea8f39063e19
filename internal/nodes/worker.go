package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"dsagent/internal/core"
)

// Worker is the generic specialist executor. All five roles share this
// implementation and differ only in name, system prompt, and bound model.
// A worker only appends its model reply to the message log; the sandbox and
// the notebook are touched exclusively by the tools node when the worker's
// tool calls are executed.
type Worker struct {
	name       string
	prompt     string
	cm         model.ToolCallingChatModel
	visitLimit int
	log        zerolog.Logger
}

// NewWorker creates a specialist node for one role.
func NewWorker(name, prompt string, cm model.ToolCallingChatModel, tools []*schema.ToolInfo, visitLimit int, log zerolog.Logger) (*Worker, error) {
	bound, err := cm.WithTools(tools)
	if err != nil {
		return nil, fmt.Errorf("failed to bind tools for %s: %w", name, err)
	}
	return &Worker{
		name:       name,
		prompt:     prompt,
		cm:         bound,
		visitLimit: visitLimit,
		log:        log,
	}, nil
}

func (w *Worker) Name() string { return w.name }

func (w *Worker) Execute(ctx context.Context, state *core.State) (*core.Delta, error) {
	log := w.log.With().Str("node", w.name).Str("session_id", state.SessionID).Logger()

	if state.Visits(w.name) > w.visitLimit {
		log.Warn().Int("limit", w.visitLimit).Msg("Worker exceeded visit limit, routing to reporter")
		return &core.Delta{
			Next: core.NodeReporter,
			Messages: []*schema.Message{schema.SystemMessage(fmt.Sprintf(
				"System: agent %s reached its visit limit (%d). Terminating the workflow.", w.name, w.visitLimit))},
		}, nil
	}

	systemPrompt := w.prompt
	if state.SupervisorInstructions != "" {
		systemPrompt = fmt.Sprintf("%s\n\n### MANAGER INSTRUCTIONS ###\n%s", systemPrompt, state.SupervisorInstructions)
	}

	messages := append([]*schema.Message{schema.SystemMessage(systemPrompt)}, state.Messages...)

	log.Info().Int("history", len(state.Messages)).Msg("Worker invoking model")
	reply, err := w.cm.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%s model call failed: %w", w.name, err)
	}

	log.Info().Int("tool_calls", len(reply.ToolCalls)).Msg("Worker reply received")
	return &core.Delta{Messages: []*schema.Message{reply}}, nil
}
