package core

import (
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"dsagent/pkg"
)

// Node names. FINISH is a routing sentinel the supervisor may emit; the graph
// redirects it to the reporter, it is never a destination itself.
const (
	NodeSupervisor      = "supervisor"
	NodeCleaner         = "cleaner"
	NodeEDA             = "eda"
	NodeFeatureEngineer = "feature_engineer"
	NodeTrainer         = "trainer"
	NodeStoryteller     = "storyteller"
	NodeTools           = "tools"
	NodeReporter        = "reporter"

	Finish = "FINISH"
	End    = "END"
)

// WorkerNames lists the specialist roles in routing order.
var WorkerNames = []string{
	NodeCleaner, NodeEDA, NodeFeatureEngineer, NodeTrainer, NodeStoryteller,
}

// IsWorker reports whether name is one of the specialist roles.
func IsWorker(name string) bool {
	for _, w := range WorkerNames {
		if w == name {
			return true
		}
	}
	return false
}

// State is the shared record passed between every node of a conversation.
// The message and notebook-cell logs are append-only for the lifetime of the
// session; cwd, next, and supervisor instructions are overwritten in place.
type State struct {
	SessionID              string             `json:"session_id"`
	Messages               []*schema.Message  `json:"messages"`
	NotebookCells          []pkg.NotebookCell `json:"notebook_cells"`
	Cwd                    string             `json:"cwd"`
	Next                   string             `json:"next"`
	SupervisorInstructions string             `json:"supervisor_instructions"`
	NodeVisits             map[string]int     `json:"node_visits"`
}

// NewState creates the state for a fresh conversation.
func NewState(cwd string) *State {
	return &State{
		SessionID:  uuid.NewString(),
		Cwd:        cwd,
		Next:       NodeSupervisor,
		NodeVisits: make(map[string]int),
	}
}

// Delta is the state update a node produces. The driver applies deltas;
// nodes never mutate the State they receive. Messages and Cells are appended,
// the scalar fields overwrite when non-empty.
type Delta struct {
	Messages     []*schema.Message
	Cells        []pkg.NotebookCell
	Next         string
	Instructions *string
	Cwd          string
}

// Apply merges a delta into the state, preserving append-only semantics for
// the two logs.
func (s *State) Apply(d *Delta) {
	if d == nil {
		return
	}
	s.Messages = append(s.Messages, d.Messages...)
	s.NotebookCells = append(s.NotebookCells, d.Cells...)
	if d.Next != "" {
		s.Next = d.Next
	}
	if d.Instructions != nil {
		s.SupervisorInstructions = *d.Instructions
	}
	if d.Cwd != "" {
		s.Cwd = d.Cwd
	}
}

// LastMessage returns the most recent message, or nil for an empty log.
func (s *State) LastMessage() *schema.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// AddUserMessage appends a human turn to the message log.
func (s *State) AddUserMessage(content string) {
	s.Messages = append(s.Messages, schema.UserMessage(content))
}

// Visits returns the visit count for a node.
func (s *State) Visits(node string) int {
	return s.NodeVisits[node]
}
