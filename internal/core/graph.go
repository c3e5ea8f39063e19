package core

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
)

// Node is a single processing unit of the workflow graph. Execute receives
// the current state read-only and returns the update to apply.
type Node interface {
	Name() string
	Execute(ctx context.Context, state *State) (*Delta, error)
}

// EventHandler receives (node name, applied delta) after every graph step.
// The chat front end consumes these for rendering.
type EventHandler func(node string, delta *Delta)

// Workflow wires the nodes into a directed, conditionally routed control flow:
// supervisor -> worker -> tools -> worker -> supervisor ... -> reporter.
type Workflow struct {
	nodes    map[string]Node
	maxSteps int
	log      zerolog.Logger
}

// RunOption configures one workflow run.
type RunOption func(*runOptions)

type runOptions struct {
	events EventHandler
}

// WithEvents registers a per-step event handler for the run.
func WithEvents(h EventHandler) RunOption {
	return func(o *runOptions) { o.events = h }
}

// NewWorkflow creates a workflow over the given nodes. maxSteps is the hard
// ceiling on total graph steps per turn; it backstops the per-node visit
// guards against a worker<->tools loop that never returns to the supervisor.
func NewWorkflow(nodes []Node, maxSteps int, log zerolog.Logger) (*Workflow, error) {
	if maxSteps <= 0 {
		maxSteps = 1000
	}
	w := &Workflow{
		nodes:    make(map[string]Node, len(nodes)),
		maxSteps: maxSteps,
		log:      log,
	}
	for _, n := range nodes {
		if n == nil || n.Name() == "" {
			return nil, fmt.Errorf("node cannot be nil or unnamed")
		}
		if _, dup := w.nodes[n.Name()]; dup {
			return nil, fmt.Errorf("duplicate node: %s", n.Name())
		}
		w.nodes[n.Name()] = n
	}
	for _, required := range append([]string{NodeSupervisor, NodeTools, NodeReporter}, WorkerNames...) {
		if _, ok := w.nodes[required]; !ok {
			return nil, fmt.Errorf("missing required node: %s", required)
		}
	}
	return w, nil
}

// Run executes one turn: from the supervisor through workers and tools until
// the reporter finishes. Every node failure is contained at the node boundary
// and converted into a forced route to the reporter, so a turn always ends
// with a terminal message rather than an escaped error.
func (w *Workflow) Run(ctx context.Context, state *State, opts ...RunOption) error {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	current := NodeSupervisor
	steps := 0

	for current != End {
		if err := ctx.Err(); err != nil {
			return err
		}

		steps++
		// The ceiling never blocks the reporter itself: the forced terminal
		// pass must still run so the turn ends with a summary and an export.
		if steps > w.maxSteps && current != NodeReporter {
			w.log.Warn().Int("max_steps", w.maxSteps).Msg("Global step ceiling reached, forcing reporter")
			delta := &Delta{
				Messages: []*schema.Message{schema.SystemMessage(
					fmt.Sprintf("System: workflow exceeded the global step ceiling (%d). Terminating.", w.maxSteps))},
			}
			state.Apply(delta)
			w.emit(o.events, "system", delta)
			current = NodeReporter
			continue
		}

		node := w.nodes[current]
		if node == nil {
			// Routing closure: an unknown destination degrades to the reporter.
			w.log.Error().Str("node", current).Msg("Route to undefined node, redirecting to reporter")
			current = NodeReporter
			continue
		}

		state.NodeVisits[current]++
		w.log.Debug().Str("node", current).Int("visit", state.NodeVisits[current]).Msg("Executing node")

		delta, err := w.executeGuarded(ctx, node, state)
		if err != nil {
			w.log.Error().Err(err).Str("node", current).Msg("Node failed")
			if current == NodeReporter {
				// Terminal node failed; emit what we can and stop.
				delta = &Delta{Messages: []*schema.Message{schema.SystemMessage(
					fmt.Sprintf("System: the reporter failed while finalizing: %v", err))}}
				state.Apply(delta)
				w.emit(o.events, current, delta)
				return nil
			}
			delta = &Delta{
				Messages: []*schema.Message{schema.SystemMessage(
					fmt.Sprintf("System: node %s hit a critical error: %v. Terminating the workflow.", current, err))},
				Next: NodeReporter,
			}
		}

		state.Apply(delta)
		w.emit(o.events, current, delta)

		current = w.route(current, state)
	}

	return nil
}

// executeGuarded runs a node with a panic boundary; a panic is reported as an
// ordinary node error.
func (w *Workflow) executeGuarded(ctx context.Context, node Node, state *State) (delta *Delta, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Str("node", node.Name()).Bytes("stack", debug.Stack()).Msgf("Node panicked: %v", r)
			delta = nil
			err = fmt.Errorf("panic in node %s: %v", node.Name(), r)
		}
	}()
	return node.Execute(ctx, state)
}

// route maps the node just executed to the next graph state.
func (w *Workflow) route(from string, state *State) string {
	switch {
	case from == NodeSupervisor:
		next := state.Next
		if next == Finish {
			return NodeReporter
		}
		if next == NodeReporter || IsWorker(next) {
			return next
		}
		w.log.Warn().Str("next", next).Msg("Supervisor produced unknown destination, routing to reporter")
		return NodeReporter

	case IsWorker(from):
		if last := state.LastMessage(); last != nil && len(last.ToolCalls) > 0 {
			return NodeTools
		}
		if state.Next == NodeReporter {
			// Worker guard or failure path forced termination.
			return NodeReporter
		}
		return NodeSupervisor

	case from == NodeTools:
		if state.Next == NodeReporter {
			// Containment forced termination after a tools failure.
			return NodeReporter
		}
		// Hand control back to whichever worker requested the tools; the
		// supervisor's routing target still names it.
		if IsWorker(state.Next) {
			return state.Next
		}
		return NodeSupervisor

	case from == NodeReporter:
		return End
	}

	return NodeReporter
}

func (w *Workflow) emit(h EventHandler, node string, delta *Delta) {
	if h != nil && delta != nil {
		h(node, delta)
	}
}
