package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"dsagent/internal/core"
	"dsagent/internal/llm"
)

// allowedDestinations are the routing targets a supervisor decision may name.
var allowedDestinations = []string{
	core.NodeCleaner, core.NodeEDA, core.NodeFeatureEngineer,
	core.NodeTrainer, core.NodeStoryteller, core.NodeReporter, core.Finish,
}

// Supervisor reviews the conversation and produces the next routing decision
// with instructions for the chosen specialist.
type Supervisor struct {
	prompt     string
	cm         model.BaseChatModel
	visitLimit int
	log        zerolog.Logger
}

// NewSupervisor creates the supervisor node.
func NewSupervisor(prompt string, cm model.BaseChatModel, visitLimit int, log zerolog.Logger) *Supervisor {
	return &Supervisor{
		prompt:     prompt,
		cm:         cm,
		visitLimit: visitLimit,
		log:        log,
	}
}

func (s *Supervisor) Name() string { return core.NodeSupervisor }

func (s *Supervisor) Execute(ctx context.Context, state *core.State) (*core.Delta, error) {
	log := s.log.With().Str("node", core.NodeSupervisor).Str("session_id", state.SessionID).Logger()

	// The routing decision is delegated to a model with no guaranteed
	// termination; the visit ceiling is the backstop against delegation loops.
	if state.Visits(core.NodeSupervisor) > s.visitLimit {
		log.Warn().Int("limit", s.visitLimit).Msg("Supervisor exceeded visit limit, routing to reporter")
		return &core.Delta{
			Next: core.NodeReporter,
			Messages: []*schema.Message{schema.SystemMessage(fmt.Sprintf(
				"System: the supervisor reached its visit limit (%d). Terminating the workflow.", s.visitLimit))},
		}, nil
	}

	prompt := append([]*schema.Message{schema.SystemMessage(s.prompt)}, state.Messages...)

	decision, tier, err := llm.DecideWithRecovery(ctx, s.cm, prompt, allowedDestinations, log)
	if err != nil {
		return nil, fmt.Errorf("supervisor decision failed: %w", err)
	}

	log.Info().
		Str("next", decision.NextAgent).
		Str("tier", tier.String()).
		Msg("Supervisor routed")
	if tier != llm.TierNative {
		log.Info().Str("tier", tier.String()).Msg("Supervisor output recovered via escalation")
	}

	// The decision summary goes into the log so the routed worker sees the
	// same instructions that routed it.
	summary := fmt.Sprintf("**Supervisor decision:**\n*Reasoning:* %s\n*Instructions:* %s",
		decision.Reasoning, decision.Instructions)

	instructions := decision.Instructions
	return &core.Delta{
		Next:         decision.NextAgent,
		Instructions: &instructions,
		Messages:     []*schema.Message{schema.UserMessage(summary)},
	}, nil
}
