package nodes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"dsagent/internal/core"
	"dsagent/internal/notebook"
	"dsagent/internal/sandbox"
)

// Reporter is the terminal node: it harvests artifact files from the sandbox
// working directory, exports the notebook-cell log, and emits the final
// summary. Every step degrades gracefully — the run must always end with a
// message to the user.
type Reporter struct {
	sb           sandbox.Sandbox
	artifactExts []string
	artifactDir  string
	notebookPath string
	log          zerolog.Logger
}

// NewReporter creates the reporter node.
func NewReporter(sb sandbox.Sandbox, artifactExts []string, artifactDir, notebookPath string, log zerolog.Logger) *Reporter {
	return &Reporter{
		sb:           sb,
		artifactExts: artifactExts,
		artifactDir:  artifactDir,
		notebookPath: notebookPath,
		log:          log,
	}
}

func (r *Reporter) Name() string { return core.NodeReporter }

func (r *Reporter) Execute(ctx context.Context, state *core.State) (*core.Delta, error) {
	log := r.log.With().Str("node", core.NodeReporter).Str("session_id", state.SessionID).Logger()
	log.Info().Msg("Finalizing results and downloading artifacts")

	downloaded := r.harvestArtifacts(ctx, state.Cwd, log)

	notebookPath := r.notebookPath
	if err := notebook.Export(state.NotebookCells, notebookPath); err != nil {
		log.Error().Err(err).Msg("Error exporting notebook")
		notebookPath = "Error exporting notebook"
	}

	files := "None"
	if len(downloaded) > 0 {
		quoted := make([]string, len(downloaded))
		for i, name := range downloaded {
			quoted[i] = "`" + name + "`"
		}
		files = strings.Join(quoted, ", ")
	}

	summary := fmt.Sprintf(
		"### Workflow Completed ###\n\n"+
			"**1. Notebook Exported:** `%s`\n"+
			"**2. Files Downloaded:** %s\n\n"+
			"All variables and files are preserved in the shared sandbox for this session.",
		notebookPath, files)

	return &core.Delta{
		Next:     core.End,
		Messages: []*schema.Message{schema.AssistantMessage(summary, nil)},
	}, nil
}

// harvestArtifacts downloads every file in the working directory whose
// extension is in the artifact set. Individual failures are logged and
// skipped, never fatal.
func (r *Reporter) harvestArtifacts(ctx context.Context, cwd string, log zerolog.Logger) []string {
	files, err := r.sb.ListFiles(ctx, cwd)
	if err != nil {
		log.Error().Err(err).Msg("Error listing artifacts")
		return nil
	}

	var downloaded []string
	for _, file := range files {
		if file.IsDir || !r.isArtifact(file.Name) {
			continue
		}

		log.Info().Str("file", file.Name).Msg("Downloading artifact")
		data, err := r.sb.Download(ctx, filepath.Join(cwd, file.Name))
		if err != nil {
			log.Error().Err(err).Str("file", file.Name).Msg("Failed to download artifact")
			continue
		}
		if err := os.MkdirAll(r.artifactDir, 0755); err != nil {
			log.Error().Err(err).Msg("Failed to create artifact dir")
			return downloaded
		}
		localPath := filepath.Join(r.artifactDir, file.Name)
		if err := os.WriteFile(localPath, data, 0644); err != nil {
			log.Error().Err(err).Str("file", file.Name).Msg("Failed to write artifact")
			continue
		}
		downloaded = append(downloaded, file.Name)
	}
	return downloaded
}

func (r *Reporter) isArtifact(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range r.artifactExts {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
