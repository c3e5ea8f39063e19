package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"dsagent/internal/config"
	"dsagent/internal/core"
	"dsagent/internal/display"
	"dsagent/internal/llm"
	"dsagent/internal/logger"
	"dsagent/internal/nodes"
	"dsagent/internal/notebook"
	"dsagent/internal/prompts"
	"dsagent/internal/sandbox"
	"dsagent/internal/storage"
	"dsagent/pkg"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, relying on environment")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	log := logger.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("Initializing data science agent")

	// The sandbox session is acquired once for the whole conversation and
	// torn down exactly once on every exit path.
	sb, err := sandbox.NewHTTPSandbox(ctx, cfg.Sandbox.BaseURL, cfg.Sandbox.APIKey,
		time.Duration(cfg.Sandbox.TimeoutSeconds)*time.Second)
	if err != nil {
		return fmt.Errorf("failed to initialize sandbox: %w", err)
	}
	defer func() {
		if err := sb.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close sandbox session")
		} else {
			log.Info().Msg("Sandbox session closed")
		}
	}()

	state, store := restoreOrCreateState(ctx, cfg, log)
	if store != nil {
		defer store.Close()
	}
	sessionLog := logger.WithSession(state.SessionID)

	wf, err := buildWorkflow(ctx, cfg, sb, sessionLog)
	if err != nil {
		return err
	}

	// Final-export safety net: whatever happens, a non-empty cell log is
	// written out before the process ends.
	defer func() {
		if len(state.NotebookCells) == 0 {
			return
		}
		if err := notebook.Export(state.NotebookCells, cfg.Workflow.NotebookPath); err != nil {
			sessionLog.Error().Err(err).Msg("Failed to save notebook on exit")
			return
		}
		fmt.Printf("\nNotebook exported to %s\n", cfg.Workflow.NotebookPath)
	}()

	fmt.Println("\nAgent ready. Type 'exit' or 'quit' to stop.")
	fmt.Println("Commands: /upload <path> to upload a file.")
	fmt.Printf("Session: %s\n\n", state.SessionID)

	cache := display.NewCache()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for {
		fmt.Print("User: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch {
		case input == "":
			continue
		case input == "exit" || input == "quit":
			return nil
		case strings.HasPrefix(input, "/upload "):
			uploadFile(ctx, sb, state, strings.TrimSpace(strings.TrimPrefix(input, "/upload ")), sessionLog)
			continue
		}

		state.AddUserMessage(input)
		cache.Reset()

		err := wf.Run(ctx, state, core.WithEvents(func(node string, delta *core.Delta) {
			renderDelta(node, delta, cache)
		}))
		if err != nil {
			if ctx.Err() != nil {
				sessionLog.Warn().Msg("Turn cancelled")
				return nil
			}
			sessionLog.Error().Err(err).Msg("An error occurred during turn")
			continue
		}

		if store != nil {
			if err := store.Save(ctx, state); err != nil {
				sessionLog.Warn().Err(err).Msg("Failed to persist session snapshot")
			}
		}
	}

	return nil
}

func loadConfig() (*config.Config, error) {
	if _, err := os.Stat("config.yaml"); err == nil {
		return config.Load("config.yaml")
	}
	cfg := config.Default()
	cfg.ApplyEnv()
	return cfg, nil
}

// restoreOrCreateState resumes a stored session when SESSION_ID is set and a
// snapshot store is configured, and starts fresh otherwise.
func restoreOrCreateState(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*core.State, *storage.SessionStore) {
	var store *storage.SessionStore
	if cfg.Redis.URL != "" {
		s, err := storage.NewSessionStore(ctx, cfg.Redis.URL, cfg.RedisTTL())
		if err != nil {
			log.Warn().Err(err).Msg("Session store unavailable, snapshots disabled")
		} else {
			store = s
		}
	}

	if sessionID := os.Getenv("SESSION_ID"); sessionID != "" && store != nil {
		if state, err := store.Load(ctx, sessionID); err == nil {
			log.Info().Str("session_id", sessionID).Msg("Resumed session from snapshot")
			return state, store
		} else {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("Could not resume session, starting fresh")
		}
	}

	return core.NewState(cfg.Workflow.Cwd), store
}

func buildWorkflow(ctx context.Context, cfg *config.Config, sb sandbox.Sandbox, log zerolog.Logger) (*core.Workflow, error) {
	factory := llm.NewFactory(cfg.Model)

	supervisorModel, err := factory.Create(ctx, cfg.RoleModel(core.NodeSupervisor))
	if err != nil {
		return nil, err
	}

	toolInfos, err := nodes.NewToolRegistry(nil, cfg.ShellTimeout(), cfg.Workflow.ArtifactDir, nil).Infos(ctx)
	if err != nil {
		return nil, err
	}

	graphNodes := []core.Node{
		nodes.NewSupervisor(prompts.Supervisor, supervisorModel, cfg.Workflow.NodeVisitLimit, log),
		nodes.NewToolsNode(sb, cfg.ShellTimeout(), cfg.Workflow.ArtifactDir, log),
		nodes.NewReporter(sb, cfg.Workflow.ArtifactExtensions, cfg.Workflow.ArtifactDir, cfg.Workflow.NotebookPath, log),
	}

	for _, role := range core.WorkerNames {
		prompt, ok := prompts.ForRole(role)
		if !ok {
			return nil, fmt.Errorf("no prompt defined for role %s", role)
		}
		cm, err := factory.Create(ctx, cfg.RoleModel(role))
		if err != nil {
			return nil, err
		}
		worker, err := nodes.NewWorker(role, prompt, cm, toolInfos, cfg.Workflow.NodeVisitLimit, log)
		if err != nil {
			return nil, err
		}
		graphNodes = append(graphNodes, worker)
	}

	return core.NewWorkflow(graphNodes, cfg.Workflow.MaxSteps, log)
}

func uploadFile(ctx context.Context, sb sandbox.Sandbox, state *core.State, path string, log zerolog.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error: file '%s' not found.\n", path)
		return
	}

	filename := filepath.Base(path)
	fmt.Printf("Uploading %s to sandbox...\n", filename)
	if err := sb.WriteFile(ctx, filename, data); err != nil {
		log.Error().Err(err).Str("file", filename).Msg("Upload failed")
		fmt.Printf("Error: upload of '%s' failed: %v\n", filename, err)
		return
	}

	fmt.Printf("System: uploaded %s to the sandbox working directory.\n", filename)
	state.AddUserMessage(fmt.Sprintf("[System: User uploaded file '%s']", filename))
}

// renderDelta prints the user-visible portion of a graph step: assistant and
// system text, tool statuses, and newly produced images (deduplicated per
// turn through the display cache).
func renderDelta(node string, delta *core.Delta, cache *display.Cache) {
	for _, msg := range delta.Messages {
		switch msg.Role {
		case schema.Assistant:
			if msg.Content != "" {
				fmt.Printf("\n[%s] %s\n", node, msg.Content)
			}
			for _, call := range msg.ToolCalls {
				fmt.Printf("[%s] -> tool call: %s\n", node, call.Function.Name)
			}
		case schema.System:
			fmt.Printf("\n%s\n", msg.Content)
		case schema.User:
			// Supervisor decision summaries are logged as user-role entries.
			if node == core.NodeSupervisor {
				fmt.Printf("\n%s\n", msg.Content)
			}
		case schema.Tool:
			first, _, _ := strings.Cut(msg.Content, "\n")
			fmt.Printf("[%s] %s\n", node, first)
		}
	}

	for _, cell := range delta.Cells {
		for _, out := range cell.Outputs {
			if out.Type != pkg.OutputTypeDisplayData {
				continue
			}
			if cache.MarkShown(out.Data) {
				continue
			}
			fmt.Printf("[%s] rendered image (%s)\n", node, out.MimeType)
		}
	}
}
