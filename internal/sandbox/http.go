package sandbox

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"dsagent/pkg"
)

// HTTPSandbox talks JSON over HTTP to an interpreter gateway that owns a
// persistent kernel session. One HTTPSandbox maps to one kernel session;
// Close deletes the session on the gateway.
type HTTPSandbox struct {
	baseURL   string
	apiKey    string
	sessionID string
	client    *http.Client
}

type executeRequest struct {
	Code string `json:"code"`
}

type shellRequest struct {
	Command        string `json:"command"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type writeFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"` // base64
}

type fileContentResponse struct {
	Content string `json:"content"` // base64
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type apiError struct {
	Message string `json:"message"`
}

// NewHTTPSandbox creates a new kernel session on the gateway.
func NewHTTPSandbox(ctx context.Context, baseURL, apiKey string, sessionTimeout time.Duration) (*HTTPSandbox, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("sandbox base URL is required")
	}

	s := &HTTPSandbox{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{},
	}

	body := map[string]any{"timeout_seconds": int(sessionTimeout.Seconds())}
	var resp createSessionResponse
	if err := s.do(ctx, http.MethodPost, "/sessions", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to create sandbox session: %w", err)
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("gateway returned empty session id")
	}
	s.sessionID = resp.SessionID
	return s, nil
}

func (s *HTTPSandbox) RunCode(ctx context.Context, source string) (*pkg.Execution, error) {
	start := time.Now()
	var exec pkg.Execution
	err := s.do(ctx, http.MethodPost, s.sessionPath("/execute"), executeRequest{Code: source}, &exec)
	if err != nil {
		return nil, fmt.Errorf("code execution failed: %w", err)
	}
	exec.Elapsed = time.Since(start)
	return &exec, nil
}

func (s *HTTPSandbox) RunShell(ctx context.Context, command string, timeout time.Duration) (*pkg.ShellResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()

	req := shellRequest{Command: command, TimeoutSeconds: int(timeout.Seconds())}
	var result pkg.ShellResult
	if err := s.do(ctx, http.MethodPost, s.sessionPath("/shell"), req, &result); err != nil {
		return nil, fmt.Errorf("shell command failed: %w", err)
	}
	return &result, nil
}

func (s *HTTPSandbox) WriteFile(ctx context.Context, path string, data []byte) error {
	req := writeFileRequest{
		Path:    path,
		Content: base64.StdEncoding.EncodeToString(data),
	}
	if err := s.do(ctx, http.MethodPost, s.sessionPath("/files/write"), req, nil); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

func (s *HTTPSandbox) ReadFile(ctx context.Context, path string) ([]byte, error) {
	endpoint := s.sessionPath("/files/read") + "?path=" + url.QueryEscape(path)
	var resp fileContentResponse
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	data, err := base64.StdEncoding.DecodeString(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file content: %w", err)
	}
	return data, nil
}

func (s *HTTPSandbox) ListFiles(ctx context.Context, dir string) ([]pkg.FileInfo, error) {
	endpoint := s.sessionPath("/files/list") + "?dir=" + url.QueryEscape(dir)
	var files []pkg.FileInfo
	if err := s.do(ctx, http.MethodGet, endpoint, nil, &files); err != nil {
		return nil, fmt.Errorf("failed to list files in %s: %w", dir, err)
	}
	return files, nil
}

func (s *HTTPSandbox) Download(ctx context.Context, remotePath string) ([]byte, error) {
	return s.ReadFile(ctx, remotePath)
}

// Close deletes the kernel session. The gateway kills the interpreter and
// releases its resources.
func (s *HTTPSandbox) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.do(ctx, http.MethodDelete, s.sessionPath(""), nil, nil); err != nil {
		return fmt.Errorf("failed to close sandbox session: %w", err)
	}
	return nil
}

func (s *HTTPSandbox) sessionPath(suffix string) string {
	return "/sessions/" + s.sessionID + suffix
}

func (s *HTTPSandbox) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := sonic.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("gateway error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("gateway error (%d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out != nil && len(data) > 0 {
		if err := sonic.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
