package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/dataconfessional/confessional/internal/engine"
	"github.com/dataconfessional/confessional/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"interaction not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

// useTestServer points the CLI at ts and isolates settings in temp dirs.
func useTestServer(t *testing.T, ts *testServer) {
	t.Helper()
	isolateSettings(t)
	old := newAPIClient
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }
	t.Cleanup(func() { newAPIClient = old })
}

func isolateSettings(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("CONFESSIONAL_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("CONFESSIONAL_ENGINE_CONFIG", filepath.Join(dir, "engine.json"))
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	oldNoColor := noColor
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		noColor = oldNoColor
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

var ctx = context.Background()

func TestHistoryList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /v1/history": `[{"id":"0123456789abcdef","kind":"chat","created_at":"2026-03-01T12:00:00Z","prompt":"Why is churn up?","status":"completed"}]`,
	})
	useTestServer(t, ts)

	out, err := execute(t, "--no-color", "history", "list", "--kind", "chat", "--limit", "5")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "01234567") || strings.Contains(out, "0123456789") {
		t.Errorf("output should show the short id: %q", out)
	}
	if !strings.Contains(out, "Why is churn up?") {
		t.Errorf("output missing prompt: %q", out)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Path != "/v1/history?kind=chat&limit=5" {
		t.Errorf("path = %q", r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
}

func TestHistoryShow_NotFound(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	useTestServer(t, ts)

	_, err := execute(t, "history", "show", "missing")
	if err == nil {
		t.Fatal("expected error for missing interaction")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "interaction not found") {
		t.Errorf("error = %q, want status and server message", err.Error())
	}
}

func TestHistoryDelete(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /v1/history/abc": `{"status":"deleted"}`,
	})
	useTestServer(t, ts)

	if _, err := execute(t, "history", "delete", "abc"); err != nil {
		t.Fatalf("history delete: %v", err)
	}
	if len(ts.requests) != 1 || ts.requests[0].Method != http.MethodDelete {
		t.Errorf("requests = %+v", ts.requests)
	}
}

func TestChatCommand_MissingQuestion(t *testing.T) {
	isolateSettings(t)

	_, err := execute(t, "chat", "--project", "Acme")
	if err == nil {
		t.Fatal("expected error for missing question")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestCheckChatRequest(t *testing.T) {
	valid := engine.ChatRequest{
		Role:        engine.RoleGossip,
		Question:    "q",
		ProjectMeta: engine.ProjectMeta{Name: "Acme", Audience: "exec"},
	}
	if err := checkChatRequest(valid); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*engine.ChatRequest)
	}{
		{"no question", func(r *engine.ChatRequest) { r.Question = "" }},
		{"no project", func(r *engine.ChatRequest) { r.ProjectMeta.Name = "" }},
		{"bad role", func(r *engine.ChatRequest) { r.Role = "poet" }},
		{"bad audience", func(r *engine.ChatRequest) { r.ProjectMeta.Audience = "board" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			if err := checkChatRequest(r); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSummaryFromFlags(t *testing.T) {
	newCmd := func() *cobra.Command {
		c := &cobra.Command{}
		c.Flags().String("data", "", "")
		c.Flags().String("data-file", "", "")
		return c
	}

	path := filepath.Join(t.TempDir(), "summary.txt")
	if err := os.WriteFile(path, []byte("rows: 12\nrevenue: 10k"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := newCmd()
	c.Flags().Set("data-file", path)
	got, err := summaryFromFlags(c, "data", "data-file")
	if err != nil {
		t.Fatalf("summaryFromFlags: %v", err)
	}
	if got != "rows: 12\nrevenue: 10k" {
		t.Errorf("summary = %q", got)
	}

	c = newCmd()
	c.Flags().Set("data", "inline")
	if got, _ := summaryFromFlags(c, "data", "data-file"); got != "inline" {
		t.Errorf("inline summary = %q", got)
	}

	c = newCmd()
	c.Flags().Set("data", "inline")
	c.Flags().Set("data-file", path)
	if _, err := summaryFromFlags(c, "data", "data-file"); err == nil {
		t.Error("expected error when both flags are set")
	}
}

func TestFormatInteraction(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	line := formatInteraction(storage.Interaction{
		ID:        "abcdefgh-1234",
		Kind:      storage.KindReport,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Status:    storage.StatusFailed,
		Prompt:    "  monthly\n review  " + strings.Repeat("x", 100),
	})
	if !strings.HasPrefix(line, "abcdefgh  ") {
		t.Errorf("line = %q, want short id prefix", line)
	}
	if !strings.Contains(line, "report") || !strings.Contains(line, "failed") {
		t.Errorf("line = %q, missing kind or status", line)
	}
	if !strings.Contains(line, "monthly review x") || !strings.HasSuffix(line, "...") {
		t.Errorf("line = %q, want collapsed and truncated prompt", line)
	}
}

func TestClient_ServerStopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := ts.client().get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestPIDFile(t *testing.T) {
	path := pidFilePath(filepath.Join(t.TempDir(), "nested"))
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}
	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("PID file still present after remove")
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestSetupLogging(t *testing.T) {
	old := slog.Default()
	defer slog.SetDefault(old)

	setupLogging("debug")
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		t.Error("debug level not enabled")
	}
	setupLogging("nonsense")
	if slog.Default().Enabled(ctx, slog.LevelDebug) || !slog.Default().Enabled(ctx, slog.LevelInfo) {
		t.Error("unknown level should fall back to info")
	}
}
