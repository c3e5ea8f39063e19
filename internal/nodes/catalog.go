package nodes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"dsagent/internal/sandbox"
	"dsagent/pkg"
)

// Tool names of the catalog bound to every worker.
const (
	ToolRunPython      = "run_python"
	ToolRunShell       = "run_shell"
	ToolCreateMarkdown = "create_markdown"
	ToolDownloadFile   = "download_file"
)

type runPythonInput struct {
	Code string `json:"code" jsonschema:"description=The Python code to execute."`
}

type runShellInput struct {
	Command string `json:"command" jsonschema:"description=The shell command to execute."`
}

type createMarkdownInput struct {
	Text string `json:"text" jsonschema:"description=Markdown text to append to the notebook."`
}

type downloadFileInput struct {
	RemotePath string `json:"remote_path" jsonschema:"description=Path of the file inside the sandbox to download."`
}

// CellCollector receives each notebook cell a tool produces.
type CellCollector func(cell pkg.NotebookCell)

// ToolRegistry builds and holds the sandbox tool catalog. A registry created
// without a sandbox still serves tool definitions for model binding; only
// execution requires the live bridge.
type ToolRegistry struct {
	sb           sandbox.Sandbox
	shellTimeout time.Duration
	artifactDir  string
	collect      CellCollector
	tools        map[string]tool.InvokableTool
}

// NewToolRegistry creates the catalog. collect may be nil when cells are not
// being recorded (definition-only use).
func NewToolRegistry(sb sandbox.Sandbox, shellTimeout time.Duration, artifactDir string, collect CellCollector) *ToolRegistry {
	r := &ToolRegistry{
		sb:           sb,
		shellTimeout: shellTimeout,
		artifactDir:  artifactDir,
		collect:      collect,
		tools:        make(map[string]tool.InvokableTool),
	}

	runPython, _ := utils.InferTool(ToolRunPython,
		"Executes Python code in a persistent Jupyter kernel. Use this for data analysis, visualization, and variable definition.",
		r.runPython)
	runShell, _ := utils.InferTool(ToolRunShell,
		"Executes a shell command (e.g. pip install, ls, unzip). Use this for system operations.",
		r.runShell)
	createMarkdown, _ := utils.InferTool(ToolCreateMarkdown,
		"Appends a markdown documentation cell to the notebook.",
		r.createMarkdown)
	downloadFile, _ := utils.InferTool(ToolDownloadFile,
		"Downloads a file from the sandbox to local storage so the user receives it.",
		r.downloadFile)

	r.tools[ToolRunPython] = runPython
	r.tools[ToolRunShell] = runShell
	r.tools[ToolCreateMarkdown] = createMarkdown
	r.tools[ToolDownloadFile] = downloadFile
	return r
}

// Lookup returns the tool registered under name.
func (r *ToolRegistry) Lookup(name string) (tool.InvokableTool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Infos returns the tool definitions for binding to a chat model.
func (r *ToolRegistry) Infos(ctx context.Context) ([]*schema.ToolInfo, error) {
	names := []string{ToolRunPython, ToolRunShell, ToolCreateMarkdown, ToolDownloadFile}
	infos := make([]*schema.ToolInfo, 0, len(names))
	for _, name := range names {
		info, err := r.tools[name].Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe tool %s: %w", name, err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (r *ToolRegistry) runPython(ctx context.Context, in runPythonInput) (string, error) {
	if r.sb == nil {
		return "Status: Error\nOutput: no sandbox session is attached", nil
	}

	exec, err := r.sb.RunCode(ctx, in.Code)
	if err != nil {
		return fmt.Sprintf("Status: Error\nOutput: System Error - %v", err), nil
	}

	cell := pkg.NotebookCell{Type: pkg.CellTypeCode, Source: in.Code}
	var logs []string
	var artifacts []string

	if len(exec.Stdout) > 0 {
		text := strings.Join(exec.Stdout, "\n")
		logs = append(logs, "stdout: "+text)
		cell.Outputs = append(cell.Outputs, pkg.CellOutput{
			Type: pkg.OutputTypeStream, StreamName: "stdout", Text: text,
		})
	}
	if len(exec.Stderr) > 0 {
		text := strings.Join(exec.Stderr, "\n")
		logs = append(logs, "stderr: "+text)
		cell.Outputs = append(cell.Outputs, pkg.CellOutput{
			Type: pkg.OutputTypeStream, StreamName: "stderr", Text: text,
		})
	}

	for _, result := range exec.Results {
		if result.IsImage() {
			artifacts = append(artifacts, artifactNameFor(result.MimeType))
			cell.Outputs = append(cell.Outputs, pkg.CellOutput{
				Type:     pkg.OutputTypeDisplayData,
				MimeType: result.MimeType,
				Data:     result.Data,
			})
			continue
		}
		if result.Text != "" {
			cell.Outputs = append(cell.Outputs, pkg.CellOutput{
				Type:       pkg.OutputTypeExecuteResult,
				ResultData: map[string]string{"text/plain": result.Text},
			})
		}
	}

	if exec.Error != nil {
		logs = append(logs, fmt.Sprintf("Error: %s: %s", exec.Error.Name, exec.Error.Value))
		cell.Outputs = append(cell.Outputs, pkg.CellOutput{
			Type:       pkg.OutputTypeError,
			ErrorName:  exec.Error.Name,
			ErrorValue: exec.Error.Value,
			Traceback:  exec.Error.Traceback,
		})
	}

	if r.collect != nil {
		r.collect(cell)
	}

	if exec.Error != nil {
		return fmt.Sprintf("Status: Error\nOutput: %s", strings.Join(logs, "\n")), nil
	}
	return fmt.Sprintf("Status: Success\nOutput: %s\nArtifacts: %v", strings.Join(logs, "\n"), artifacts), nil
}

func (r *ToolRegistry) runShell(ctx context.Context, in runShellInput) (string, error) {
	if r.sb == nil {
		return "Status: Error\nOutput: no sandbox session is attached", nil
	}

	result, err := r.sb.RunShell(ctx, in.Command, r.shellTimeout)
	if err != nil {
		return fmt.Sprintf("Status: Error\nOutput: System Error - %v", err), nil
	}

	output := fmt.Sprintf("stdout: %s\nstderr: %s", result.Stdout, result.Stderr)
	if result.Error != "" {
		output += "\nError: " + result.Error
	}
	return fmt.Sprintf("Status: Success\nOutput: %s", output), nil
}

func (r *ToolRegistry) createMarkdown(ctx context.Context, in createMarkdownInput) (string, error) {
	if r.collect != nil {
		r.collect(pkg.NotebookCell{Type: pkg.CellTypeMarkdown, Source: in.Text})
	}
	return "Status: Success\nOutput: markdown cell recorded", nil
}

func (r *ToolRegistry) downloadFile(ctx context.Context, in downloadFileInput) (string, error) {
	if r.sb == nil {
		return "Status: Error\nOutput: no sandbox session is attached", nil
	}

	data, err := r.sb.Download(ctx, in.RemotePath)
	if err != nil {
		return fmt.Sprintf("Status: Error\nOutput: download failed - %v", err), nil
	}

	localPath := filepath.Join(r.artifactDir, filepath.Base(in.RemotePath))
	if err := os.MkdirAll(r.artifactDir, 0755); err != nil {
		return fmt.Sprintf("Status: Error\nOutput: failed to create artifact dir - %v", err), nil
	}
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return fmt.Sprintf("Status: Error\nOutput: failed to write local file - %v", err), nil
	}
	return fmt.Sprintf("Status: Success\nOutput: saved to %s", localPath), nil
}

func artifactNameFor(mimeType string) string {
	switch mimeType {
	case "image/png":
		return "image.png"
	case "image/jpeg":
		return "image.jpeg"
	case "image/svg+xml":
		return "image.svg"
	}
	return "image.bin"
}
