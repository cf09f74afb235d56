package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/mockserver"
	"github.com/jasperwreed/guidera-chat/internal/models"
)

type testEnv struct {
	dir  string
	base []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ts := httptest.NewServer(mockserver.New(map[string]string{"demo@guidera.ai": "demo"}))
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	config := "logging:\n  level: error\n  outputPath: stderr\naudit:\n  dir: " + filepath.Join(dir, "audit") + "\n"
	if err := os.WriteFile(cfgFile, []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	return &testEnv{
		dir: dir,
		base: []string{
			"--config", cfgFile,
			"--db", filepath.Join(dir, "guidera.db"),
			"--api-url", ts.URL,
		},
	}
}

// run executes one command line with stdin and returns combined output.
func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, e.base...))
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	if err != nil {
		t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	out := e.mustRun(t, "login", "--email", "demo@guidera.ai", "--password", "demo")
	if !strings.Contains(out, "Logged in as demo@guidera.ai") {
		t.Fatalf("unexpected login output: %s", out)
	}
}

func TestNewRootCommand(t *testing.T) {
	root := NewRootCommand()

	want := []string{"login", "logout", "status", "ask", "chat", "suggest", "policy", "analytics", "stats", "history", "clear", "export", "audit"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}

	for _, flag := range []string{"config", "db", "api-url"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("persistent flag %q not defined", flag)
		}
	}
}

func TestNewHistoryCommand(t *testing.T) {
	cmd := NewHistoryCommand()

	if cmd.Use != "history" {
		t.Errorf("Command.Use = %v, want %v", cmd.Use, "history")
	}

	flags := []string{"limit", "offset", "search", "role", "model", "status"}
	for _, flag := range flags {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("Flag %q not defined", flag)
		}
	}

	if got := cmd.Flags().Lookup("limit").DefValue; got != "20" {
		t.Errorf("Default limit = %v, want 20", got)
	}
}

func TestAskRequiresLogin(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "ask", "hello")
	if !errors.Is(err, client.ErrNotAuthenticated) {
		t.Fatalf("ask without login error = %v, want ErrNotAuthenticated", err)
	}

	out := env.mustRun(t, "status")
	if !strings.Contains(out, "not logged in") {
		t.Errorf("status output = %q, want not logged in", out)
	}
}

func TestLoginRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "", "login", "--email", "demo@guidera.ai", "--password", "wrong")
	var authErr *client.AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("login error = %v, want AuthenticationError", err)
	}
	if authErr.Status != 401 {
		t.Errorf("status = %d, want 401", authErr.Status)
	}

	_, err = env.run(t, "", "login", "--email", "nope", "--password", "x")
	if err == nil || !strings.Contains(err.Error(), "invalid email") {
		t.Errorf("login with bad email error = %v", err)
	}
}

func TestLoginPromptsFromStdin(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "demo@guidera.ai\ndemo\n", "login")
	if err != nil {
		t.Fatalf("login failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Email: ") || !strings.Contains(out, "Password: ") {
		t.Errorf("prompts missing from output: %q", out)
	}

	out = env.mustRun(t, "status")
	if !strings.Contains(out, "active") {
		t.Errorf("status output = %q, want active session", out)
	}

	env.mustRun(t, "logout")
	out = env.mustRun(t, "status")
	if !strings.Contains(out, "not logged in") {
		t.Errorf("status after logout = %q", out)
	}
}

func TestAskRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out := env.mustRun(t, "ask", "hello there")
	for _, want := range []string{
		"Model: GPT-4-Compliance-v2.1",
		"Compliance: passed",
		"Cost saved: $0.43",
		"[success] " + "Content passed all compliance checks",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ask output missing %q:\n%s", want, out)
		}
	}

	out = env.mustRun(t, "ask", "--no-compliance", "--tradeoff", "0.9", "please fail")
	if strings.Contains(out, "Compliance:") {
		t.Errorf("compliance shown with --no-compliance:\n%s", out)
	}

	if _, err := env.run(t, "", "ask", "--tradeoff", "3", "x"); err == nil {
		t.Error("ask with tradeoff 3 should fail")
	}

	out = env.mustRun(t, "history")
	if strings.Count(out, "id: ") != 4 {
		t.Errorf("history should list 4 messages:\n%s", out)
	}
	if !strings.Contains(out, "hello there") {
		t.Errorf("history missing prompt:\n%s", out)
	}

	out = env.mustRun(t, "history", "--role", "user")
	if strings.Count(out, "id: ") != 2 {
		t.Errorf("history --role user should list 2 messages:\n%s", out)
	}

	out = env.mustRun(t, "history", "--search", "hello")
	if !strings.Contains(out, "Found 1 messages") {
		t.Errorf("search output:\n%s", out)
	}

	out = env.mustRun(t, "history", "--search", "zebra")
	if !strings.Contains(out, "No messages found") {
		t.Errorf("search for missing term:\n%s", out)
	}

	out = env.mustRun(t, "stats", "--timeline")
	for _, want := range []string{
		"Total Messages: 4 (2 prompts, 2 responses)",
		"Total Requests: 2",
		"Compliance Checks: 1 (50% of requests)",
		"GPT-4-Compliance-v2.1: 2 (100%)",
		"Request 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestExportAndClear(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)
	env.mustRun(t, "ask", "warn me")

	out := env.mustRun(t, "export")
	var doc exportDocument
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("export is not JSON: %v\n%s", err, out)
	}
	if len(doc.Messages) != 2 {
		t.Fatalf("exported %d messages, want 2", len(doc.Messages))
	}
	if doc.Messages[1].Kind != models.KindWarning {
		t.Errorf("exported kind = %v, want warning", doc.Messages[1].Kind)
	}
	if doc.Analytics.TotalRequests != 1 {
		t.Errorf("exported analytics requests = %d, want 1", doc.Analytics.TotalRequests)
	}

	mdPath := filepath.Join(env.dir, "history.md")
	env.mustRun(t, "export", "--format", "markdown", "--output", mdPath)
	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(md), "Compliance: **warning**") {
		t.Errorf("markdown export:\n%s", md)
	}

	if _, err := env.run(t, "", "export", "--format", "csv"); err == nil {
		t.Error("export --format csv should fail")
	}

	out, err = env.run(t, "n\n", "clear")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Cancelled.") {
		t.Errorf("clear without confirmation:\n%s", out)
	}

	out = env.mustRun(t, "clear", "--yes")
	if !strings.Contains(out, "Deleted 2 messages") {
		t.Errorf("clear output:\n%s", out)
	}

	out = env.mustRun(t, "status")
	if !strings.Contains(out, "active") {
		t.Errorf("clear should keep the session:\n%s", out)
	}
}

func TestPolicyCommands(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out := env.mustRun(t, "policy", "list")
	if !strings.Contains(out, "No policies configured") {
		t.Errorf("empty policy list:\n%s", out)
	}

	out = env.mustRun(t, "policy", "add", "--direction", "Input", "no", "pii")
	if !strings.Contains(out, "Input policies:") || !strings.Contains(out, "[input-0] no pii") {
		t.Errorf("policy add output:\n%s", out)
	}

	out = env.mustRun(t, "ask", "this has no pii in it")
	if !strings.Contains(out, "policy_violation") {
		t.Errorf("input policy should be violated:\n%s", out)
	}

	out = env.mustRun(t, "policy", "remove", "-d", "input", "no pii")
	if !strings.Contains(out, "No policies configured") {
		t.Errorf("policy remove output:\n%s", out)
	}

	if _, err := env.run(t, "", "policy", "add", "--direction", "sideways", "x"); err == nil {
		t.Error("policy add with bad direction should fail")
	}
}

func TestSuggestAndAnalytics(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	out := env.mustRun(t, "suggest", "a", "launch", "email")
	if !strings.Contains(out, "1. ") || !strings.Contains(out, "3. ") {
		t.Errorf("suggest output:\n%s", out)
	}
	if strings.Contains(out, "Here are") {
		t.Errorf("boilerplate not filtered:\n%s", out)
	}

	env.mustRun(t, "ask", "hello")
	out = env.mustRun(t, "analytics")
	if !strings.Contains(out, "total requests: 1") {
		t.Errorf("analytics output:\n%s", out)
	}

	out = env.mustRun(t, "analytics", "--json")
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("analytics --json is not JSON: %v\n%s", err, out)
	}
}

func TestPrintAnalyticsSortsKeys(t *testing.T) {
	var buf bytes.Buffer
	printAnalytics(&buf, map[string]any{
		"zeta":        float64(2),
		"alpha_count": float64(1.5),
		"nested":      map[string]any{"inner": "x"},
	}, "")

	want := "alpha count: 1.5\nnested:\n  inner: x\nzeta: 2\n"
	if buf.String() != want {
		t.Errorf("printAnalytics() = %q, want %q", buf.String(), want)
	}
}

func TestAuditTrail(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "audit")
	if !strings.Contains(out, "No audit events found") {
		t.Errorf("empty audit output:\n%s", out)
	}

	env.login(t)
	env.mustRun(t, "ask", "hello")
	env.mustRun(t, "ask", "please fail")

	out = env.mustRun(t, "audit")
	if strings.Count(out, "prompt: ") != 2 {
		t.Errorf("audit should list 2 events:\n%s", out)
	}
	if !strings.Contains(out, "GPT-4-Compliance-v2.1") {
		t.Errorf("audit output missing model:\n%s", out)
	}

	out = env.mustRun(t, "audit", "--status", "failed", "--json")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 {
		t.Fatalf("audit --status failed returned %d lines:\n%s", len(lines), out)
	}
	var event map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("audit --json line is not JSON: %v", err)
	}
	if event["prompt"] != "please fail" || event["raw"] == nil {
		t.Errorf("audit event = %v", event)
	}

	out = env.mustRun(t, "audit", "--limit", "1")
	if !strings.Contains(out, "please fail") || strings.Contains(out, "prompt: hello") {
		t.Errorf("audit --limit 1 should keep the latest event:\n%s", out)
	}

	out = env.mustRun(t, "audit", "shards")
	if !strings.Contains(out, "shard_") {
		t.Errorf("audit shards output:\n%s", out)
	}

	if _, err := env.run(t, "", "audit", "--status", "bogus"); err == nil {
		t.Error("audit with bad status should fail")
	}
}
