package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasperwreed/guidera-chat/internal/chat"
	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/models"
)

const passedPayload = `{"model":"m1","content":"ok","complianceCheck":{"status":"passed","details":[]},"performanceMetrics":{"costSaved":0.4}}`

type stubGenerator struct {
	raw any
	err error
}

func (g stubGenerator) Generate(ctx context.Context, req client.GenerateRequest) (any, error) {
	return g.raw, g.err
}

type fakeService struct {
	suggestions []string
	loggedOut   bool
}

func (f *fakeService) GetSuggestions(ctx context.Context, prompt string) ([]string, error) {
	return f.suggestions, nil
}

func (f *fakeService) Logout() error {
	f.loggedOut = true
	return nil
}

type fakePolicies []models.CompliancePolicy

func (f fakePolicies) List(ctx context.Context) ([]models.CompliancePolicy, error) {
	return f, nil
}

func newTestModel(t *testing.T, gen chat.Generator) (model, *fakeService) {
	t.Helper()
	queue := NewNoticeQueue()
	svc := &fakeService{suggestions: []string{"first idea", "second idea"}}
	m := newModel(Config{
		Controller: chat.New(gen, chat.WithNotifier(queue)),
		Notices:    queue,
		Service:    svc,
		Policies: fakePolicies{
			{ID: "input-0", Direction: models.DirectionInput, Description: "no pii"},
		},
		Options:  chat.DefaultOptions(),
		Endpoint: "http://localhost",
	})
	t.Cleanup(m.cancel)
	m, _ = step(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	return m, svc
}

func step(m model, msg tea.Msg) (model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

// collect runs cmd and any batched commands, returning the messages that
// match keep.
func collect(cmd tea.Cmd, keep func(tea.Msg) bool) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c, keep)...)
		}
		return out
	}
	if keep(msg) {
		return []tea.Msg{msg}
	}
	return nil
}

func isCycleDone(msg tea.Msg) bool {
	_, ok := msg.(cycleDoneMsg)
	return ok
}

func TestSendResolvesPlaceholder(t *testing.T) {
	m, _ := newTestModel(t, stubGenerator{raw: passedPayload})
	assert.Contains(t, m.View(), "Guidera")

	m.input.SetValue("hello")
	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	history := m.ctrl.History()
	require.Len(t, history, 2)
	assert.True(t, history[1].Pending)
	assert.Empty(t, m.input.Value())

	done := collect(cmd, isCycleDone)
	require.Len(t, done, 1)
	m, _ = step(m, done[0])

	history = m.ctrl.History()
	require.Len(t, history, 2)
	assert.False(t, history[1].Pending)
	assert.Equal(t, "m1", history[1].Model)
	require.NotNil(t, m.notice)
	assert.Equal(t, chat.TextCompliancePassed, m.notice.Text)
	assert.Contains(t, m.statusLine(), chat.TextCompliancePassed)
}

func TestSendDisabledWhileOutstanding(t *testing.T) {
	m, _ := newTestModel(t, stubGenerator{raw: passedPayload})

	m.input.SetValue("first")
	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	m.input.SetValue("second")
	m, cmd = step(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "Waiting for the current response...", m.status)
	assert.Equal(t, "second", m.input.Value())
	assert.Len(t, m.ctrl.History(), 2)
}

func TestSendEmptyInput(t *testing.T) {
	m, _ := newTestModel(t, stubGenerator{raw: passedPayload})

	m.input.SetValue("   ")
	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "Type a message first", m.status)
	assert.Empty(t, m.ctrl.History())
}

func TestSendFailureShowsSessionHint(t *testing.T) {
	m, _ := newTestModel(t, stubGenerator{err: client.ErrSessionExpired})

	m.input.SetValue("hello")
	m, cmd := step(m, tea.KeyMsg{Type: tea.KeyEnter})
	done := collect(cmd, isCycleDone)
	require.Len(t, done, 1)
	m, _ = step(m, done[0])

	assert.Len(t, m.ctrl.History(), 1, "placeholder should be removed")
	assert.Contains(t, m.status, "guidera login")
	require.NotNil(t, m.notice)
	assert.Equal(t, chat.TextRequestFailed, m.notice.Text)
}

func TestCommandModeToggle(t *testing.T) {
	m, _ := newTestModel(t, stubGenerator{})

	m, _ = step(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{':'}})
	assert.Equal(t, modeCommand, m.mode)

	m, _ = step(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeNormal, m.mode)

	m.input.SetValue("ratio 3")
	m, _ = step(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{':'}})
	assert.Equal(t, modeNormal, m.mode, "colon inside text is literal")
}

func TestTabTogglesDashboard(t *testing.T) {
	m, _ := newTestModel(t, stubGenerator{})

	m, _ = step(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, sideDashboard, m.side)
	assert.Contains(t, m.info, "Analytics")
	assert.Less(t, m.viewport.Width, 118)

	m, _ = step(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, sideNone, m.side)
}

func TestExecuteSettings(t *testing.T) {
	m, _ := newTestModel(t, stubGenerator{})

	tests := []struct {
		line       string
		status     string
		tradeoff   float64
		compliance bool
	}{
		{line: "cp 0.8", status: "Cost/performance tradeoff set to 0.80", tradeoff: 0.8, compliance: true},
		{line: "cp 2", status: "Usage: :cp <0-1>", tradeoff: 0.8, compliance: true},
		{line: "compliance off", status: "Compliance checks off", tradeoff: 0.8, compliance: false},
		{line: "compliance maybe", status: "Usage: :compliance on|off", tradeoff: 0.8, compliance: false},
		{line: "compliance on", status: "Compliance checks on", tradeoff: 0.8, compliance: true},
		{line: "bogus", status: "Unknown command: bogus", tradeoff: 0.8, compliance: true},
	}
	for _, tt := range tests {
		m, _ = m.execute(tt.line)
		assert.Equal(t, tt.status, m.status, tt.line)
		assert.InDelta(t, tt.tradeoff, m.opts.Tradeoff, 1e-9, tt.line)
		assert.Equal(t, tt.compliance, m.opts.ComplianceEnabled, tt.line)
	}
}

func TestExecuteClear(t *testing.T) {
	m, _ := newTestModel(t, stubGenerator{raw: "plain answer"})
	_, err := m.ctrl.Submit(context.Background(), "hello", m.opts)
	require.NoError(t, err)

	m, _ = m.execute("clear")
	m, _ = step(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Empty(t, m.ctrl.History())
	require.NotNil(t, m.notice)
	assert.Equal(t, chat.TextHistoryCleared, m.notice.Text)
}

func TestExecuteSuggestAndUse(t *testing.T) {
	m, _ := newTestModel(t, stubGenerator{})

	m, cmd := m.execute("suggest")
	assert.Nil(t, cmd)
	assert.Equal(t, "Usage: :suggest <prompt>", m.status)

	m, cmd = m.execute("suggest write a memo")
	require.NotNil(t, cmd)
	m, _ = step(m, cmd())
	assert.Equal(t, sideInfo, m.side)
	assert.Contains(t, m.info, "second idea")

	m, _ = m.execute("use 2")
	assert.Equal(t, "second idea", m.input.Value())

	m, _ = m.execute("use 9")
	assert.Equal(t, "Usage: :use <1-2>", m.status)
}

func TestExecutePoliciesAndHelp(t *testing.T) {
	m, _ := newTestModel(t, stubGenerator{})

	m, cmd := m.execute("policies")
	require.NotNil(t, cmd)
	m, _ = step(m, cmd())
	assert.Contains(t, m.info, "no pii")

	m, _ = m.execute("help")
	assert.Contains(t, m.info, ":compliance on|off")
}

func TestExecuteLogoutQuits(t *testing.T) {
	m, svc := newTestModel(t, stubGenerator{})

	_, cmd := m.execute("logout")
	require.NotNil(t, cmd)
	assert.True(t, svc.loggedOut)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.ErrorIs(t, m.ctx.Err(), context.Canceled)
}

func TestErrorStatus(t *testing.T) {
	assert.Contains(t, errorStatus(client.ErrNotAuthenticated), "guidera login")
	assert.Equal(t, "Request failed: bad gateway",
		errorStatus(&client.RequestError{Status: 502, Message: "bad gateway"}))
	assert.Equal(t, "Request cancelled", errorStatus(context.Canceled))
	assert.Equal(t, "Error: boom", errorStatus(errors.New("boom")))
}

func TestRenderHistory(t *testing.T) {
	out := renderHistory(nil, 80, "*")
	assert.Contains(t, out, "No messages yet")

	out = renderHistory([]models.Message{
		{Role: models.RoleUser, Content: "check this"},
		{Role: models.RoleAssistant, Pending: true},
		{
			Role:               models.RoleAssistant,
			Content:            "looks fine",
			Model:              "m1",
			ComplianceCheck:    &models.ComplianceCheck{Status: models.ComplianceWarning},
			PerformanceMetrics: &models.PerformanceMetrics{CostSaved: 0.28, TokensUsed: 1950, ProcessingTimeMs: 1340},
		},
	}, 80, "*")
	assert.Contains(t, out, "check this")
	assert.Contains(t, out, "* Analyzing content...")
	assert.Contains(t, out, "warning")
	assert.Contains(t, out, "saved $0.28")
	assert.Contains(t, out, "1,950 tokens")
}
