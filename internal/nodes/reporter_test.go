package nodes

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsagent/internal/core"
	"dsagent/pkg"
)

var testArtifactExts = []string{".csv", ".png", ".pkl"}

func TestReporterHarvestsArtifactsAndExports(t *testing.T) {
	sb := newFakeSandbox()
	sb.files = []pkg.FileInfo{
		{Name: "clean.csv"},
		{Name: "plot.PNG"},
		{Name: "script.py"},
		{Name: "checkpoints", IsDir: true},
	}
	sb.content["/home/user/clean.csv"] = []byte("a,b\n1,2\n")
	sb.content["/home/user/plot.PNG"] = []byte{0x89, 0x50, 0x4e, 0x47}

	dir := t.TempDir()
	artifactDir := filepath.Join(dir, "artifacts")
	notebookPath := filepath.Join(dir, "final_analysis.ipynb")
	reporter := NewReporter(sb, testArtifactExts, artifactDir, notebookPath, zerolog.Nop())
	assert.Equal(t, core.NodeReporter, reporter.Name())

	state := core.NewState("/home/user")
	state.NotebookCells = []pkg.NotebookCell{
		{Type: pkg.CellTypeMarkdown, Source: "# Analysis"},
		{Type: pkg.CellTypeCode, Source: "1+1", Outputs: []pkg.CellOutput{{
			Type: pkg.OutputTypeExecuteResult, ResultData: map[string]string{"text/plain": "2"},
		}}},
	}

	delta, err := reporter.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, core.End, delta.Next)

	// Extension filter is case-insensitive; directories and .py skipped.
	data, err := os.ReadFile(filepath.Join(artifactDir, "clean.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
	_, err = os.Stat(filepath.Join(artifactDir, "plot.PNG"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(artifactDir, "script.py"))
	assert.True(t, os.IsNotExist(err))

	// The notebook was written and round-trips as nbformat 4.5.
	raw, err := os.ReadFile(notebookPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, sonic.Unmarshal(raw, &doc))
	assert.EqualValues(t, 4, doc["nbformat"])
	assert.EqualValues(t, 5, doc["nbformat_minor"])
	cells, ok := doc["cells"].([]any)
	require.True(t, ok)
	assert.Len(t, cells, 2)

	// Terminal summary names both downloads.
	require.Len(t, delta.Messages, 1)
	msg := delta.Messages[0]
	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Contains(t, msg.Content, "### Workflow Completed ###")
	assert.Contains(t, msg.Content, "`clean.csv`")
	assert.Contains(t, msg.Content, "`plot.PNG`")
}

func TestReporterDegradesWhenListingFails(t *testing.T) {
	sb := newFakeSandbox()
	sb.listErr = assert.AnError

	dir := t.TempDir()
	reporter := NewReporter(sb, testArtifactExts, filepath.Join(dir, "artifacts"),
		filepath.Join(dir, "out.ipynb"), zerolog.Nop())

	state := core.NewState("/home/user")
	delta, err := reporter.Execute(context.Background(), state)
	require.NoError(t, err, "artifact failures must not block the terminal summary")

	assert.Equal(t, core.End, delta.Next)
	assert.Contains(t, delta.Messages[0].Content, "**2. Files Downloaded:** None")
}

func TestReporterDegradesWhenExportFails(t *testing.T) {
	sb := newFakeSandbox()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	// Notebook path nested under a regular file cannot be created.
	badPath := filepath.Join(blocker, "out.ipynb")

	reporter := NewReporter(sb, testArtifactExts, filepath.Join(dir, "artifacts"), badPath, zerolog.Nop())

	state := core.NewState("/home/user")
	state.NotebookCells = []pkg.NotebookCell{{Type: pkg.CellTypeMarkdown, Source: "# x"}}

	delta, err := reporter.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Contains(t, delta.Messages[0].Content, "Error exporting notebook")
}

func TestReporterSkipsUndownloadableFiles(t *testing.T) {
	sb := newFakeSandbox()
	sb.files = []pkg.FileInfo{
		{Name: "good.csv"},
		{Name: "gone.pkl"}, // listed but not downloadable
	}
	sb.content["/home/user/good.csv"] = []byte("x")

	dir := t.TempDir()
	reporter := NewReporter(sb, testArtifactExts, filepath.Join(dir, "artifacts"),
		filepath.Join(dir, "out.ipynb"), zerolog.Nop())

	state := core.NewState("/home/user")
	delta, err := reporter.Execute(context.Background(), state)
	require.NoError(t, err)

	assert.Contains(t, delta.Messages[0].Content, "`good.csv`")
	assert.NotContains(t, delta.Messages[0].Content, "gone.pkl")
}
