package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"dsagent/pkg"
)

// scriptedModel replays canned replies and records every prompt it receives.
type scriptedModel struct {
	replies  []*schema.Message
	errs     []error
	calls    int
	received [][]*schema.Message
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.received = append(m.received, input)
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return nil, errors.New("no scripted reply")
}

func (m *scriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func (m *scriptedModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// fakeSandbox is an in-memory execution bridge for node tests.
type fakeSandbox struct {
	execs     []*pkg.Execution
	execErr   error
	ranCode   []string
	shellRes  *pkg.ShellResult
	shellErr  error
	ranShell  []string
	files     []pkg.FileInfo
	listErr   error
	content   map[string][]byte
	written   map[string][]byte
	closed    bool
}

func newFakeSandbox() *fakeSandbox {
	return &fakeSandbox{
		content: make(map[string][]byte),
		written: make(map[string][]byte),
	}
}

func (f *fakeSandbox) RunCode(ctx context.Context, source string) (*pkg.Execution, error) {
	f.ranCode = append(f.ranCode, source)
	if f.execErr != nil {
		return nil, f.execErr
	}
	if len(f.execs) == 0 {
		return &pkg.Execution{}, nil
	}
	exec := f.execs[0]
	if len(f.execs) > 1 {
		f.execs = f.execs[1:]
	}
	return exec, nil
}

func (f *fakeSandbox) RunShell(ctx context.Context, command string, timeout time.Duration) (*pkg.ShellResult, error) {
	f.ranShell = append(f.ranShell, command)
	if f.shellErr != nil {
		return nil, f.shellErr
	}
	if f.shellRes != nil {
		return f.shellRes, nil
	}
	return &pkg.ShellResult{Stdout: "ok"}, nil
}

func (f *fakeSandbox) WriteFile(ctx context.Context, path string, data []byte) error {
	f.written[path] = data
	return nil
}

func (f *fakeSandbox) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return f.Download(ctx, path)
}

func (f *fakeSandbox) ListFiles(ctx context.Context, dir string) ([]pkg.FileInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files, nil
}

func (f *fakeSandbox) Download(ctx context.Context, remotePath string) ([]byte, error) {
	data, ok := f.content[remotePath]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", remotePath)
	}
	return data, nil
}

func (f *fakeSandbox) Close() error {
	f.closed = true
	return nil
}
