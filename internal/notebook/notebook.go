// Package notebook serializes the session's cell log to a standards-conformant
// Jupyter notebook (nbformat 4.5) document.
package notebook

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"dsagent/pkg"
)

// Document is the top-level notebook structure.
type Document struct {
	Cells         []map[string]any `json:"cells"`
	Metadata      map[string]any   `json:"metadata"`
	Nbformat      int              `json:"nbformat"`
	NbformatMinor int              `json:"nbformat_minor"`
}

// Build converts the cell log into an nbformat v4.5 document. Execution
// counts are not tracked during the session and serialize as null.
func Build(cells []pkg.NotebookCell) *Document {
	doc := &Document{
		Cells:         make([]map[string]any, 0, len(cells)),
		Metadata:      map[string]any{},
		Nbformat:      4,
		NbformatMinor: 5,
	}

	for _, cell := range cells {
		switch cell.Type {
		case pkg.CellTypeMarkdown:
			doc.Cells = append(doc.Cells, map[string]any{
				"id":        cellID(),
				"cell_type": "markdown",
				"metadata":  map[string]any{},
				"source":    cell.Source,
			})

		case pkg.CellTypeCode:
			outputs := make([]map[string]any, 0, len(cell.Outputs))
			for _, out := range cell.Outputs {
				if converted := convertOutput(out); converted != nil {
					outputs = append(outputs, converted)
				}
			}
			doc.Cells = append(doc.Cells, map[string]any{
				"id":              cellID(),
				"cell_type":       "code",
				"execution_count": nil,
				"metadata":        map[string]any{},
				"outputs":         outputs,
				"source":          cell.Source,
			})
		}
	}

	return doc
}

// Export writes the cell log as a notebook file at path.
func Export(cells []pkg.NotebookCell, path string) error {
	doc := Build(cells)

	data, err := sonic.MarshalIndent(doc, "", " ")
	if err != nil {
		return fmt.Errorf("failed to serialize notebook: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create notebook directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write notebook: %w", err)
	}
	return nil
}

func convertOutput(out pkg.CellOutput) map[string]any {
	switch out.Type {
	case pkg.OutputTypeStream:
		name := out.StreamName
		if name == "" {
			name = "stdout"
		}
		return map[string]any{
			"output_type": "stream",
			"name":        name,
			"text":        out.Text,
		}

	case pkg.OutputTypeDisplayData:
		mime := out.MimeType
		if mime == "" {
			mime = "image/png"
		}
		return map[string]any{
			"output_type": "display_data",
			"data":        map[string]any{mime: out.Data},
			"metadata":    map[string]any{},
		}

	case pkg.OutputTypeError:
		return map[string]any{
			"output_type": "error",
			"ename":       out.ErrorName,
			"evalue":      out.ErrorValue,
			"traceback":   out.Traceback,
		}

	case pkg.OutputTypeExecuteResult:
		data := make(map[string]any, len(out.ResultData))
		for mime, value := range out.ResultData {
			data[mime] = value
		}
		return map[string]any{
			"output_type":     "execute_result",
			"execution_count": nil,
			"data":            data,
			"metadata":        map[string]any{},
		}
	}
	return nil
}

func cellID() string {
	return uuid.NewString()[:8]
}
