package pkg

import "time"

// CellType identifies the kind of a notebook cell.
type CellType string

const (
	CellTypeMarkdown CellType = "markdown"
	CellTypeCode     CellType = "code"
)

// OutputType identifies the kind of a code-cell output record.
type OutputType string

const (
	OutputTypeStream        OutputType = "stream"
	OutputTypeDisplayData   OutputType = "display_data"
	OutputTypeError         OutputType = "error"
	OutputTypeExecuteResult OutputType = "execute_result"
)

// NotebookCell is one unit of the exported notebook document. Cells are
// append-only once recorded: the cell log is the document of record for
// the session.
type NotebookCell struct {
	Type    CellType     `json:"cell_type"`
	Source  string       `json:"source"`
	Outputs []CellOutput `json:"outputs,omitempty"`
}

// CellOutput is a tagged union over the four nbformat output kinds.
// Exactly the fields for the given Type are populated.
type CellOutput struct {
	Type OutputType `json:"type"`

	// stream
	StreamName string `json:"stream_name,omitempty"` // stdout or stderr
	Text       string `json:"text,omitempty"`

	// display_data
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"` // base64 for binary mime types

	// error
	ErrorName  string   `json:"ename,omitempty"`
	ErrorValue string   `json:"evalue,omitempty"`
	Traceback  []string `json:"traceback,omitempty"`

	// execute_result
	ResultData map[string]string `json:"result_data,omitempty"` // mime type -> value
}

// Execution is the structured result of running code in the persistent
// interpreter session.
type Execution struct {
	Stdout  []string      `json:"stdout"`
	Stderr  []string      `json:"stderr"`
	Results []CodeResult  `json:"results"`
	Error   *ExecError    `json:"error,omitempty"`
	Elapsed time.Duration `json:"-"`
}

// CodeResult is one captured "last expression" result: either plain text
// or rendered media tagged by mime type.
type CodeResult struct {
	Text     string `json:"text,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"` // base64-encoded media payload
}

// IsImage reports whether the result carries rendered media rather than text.
func (r CodeResult) IsImage() bool {
	return r.MimeType != "" && r.Data != ""
}

// ExecError describes a declared interpreter error (e.g. a raised exception),
// kept structured so notebook export can reconstruct a standard error output.
type ExecError struct {
	Name      string   `json:"name"`
	Value     string   `json:"value"`
	Traceback []string `json:"traceback"`
}

// ShellResult is the outcome of an OS-level command run in the sandbox.
type ShellResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

// FileInfo describes one entry of a sandbox directory listing.
type FileInfo struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}
