package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jasperwreed/guidera-chat/internal/chat"
	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/models"
)

type inputMode int

const (
	modeNormal inputMode = iota
	modeCommand
)

type sidePanel int

const (
	sideNone sidePanel = iota
	sideDashboard
	sideInfo
)

// Service is the part of the API client the chat screen calls directly.
type Service interface {
	GetSuggestions(ctx context.Context, prompt string) ([]string, error)
	Logout() error
}

type PolicyLister interface {
	List(ctx context.Context) ([]models.CompliancePolicy, error)
}

type Config struct {
	Controller *chat.Controller
	Notices    *NoticeQueue
	Service    Service
	Policies   PolicyLister
	Options    chat.Options
	// Endpoint is shown in the title bar.
	Endpoint string
}

type cycleDoneMsg struct {
	msg models.Message
	err error
}

type suggestionsMsg struct {
	prompt string
	items  []string
	err    error
}

type policiesMsg struct {
	items []models.CompliancePolicy
	err   error
}

type model struct {
	ctrl     *chat.Controller
	notices  *NoticeQueue
	service  Service
	policies PolicyLister
	opts     chat.Options
	endpoint string

	ctx    context.Context
	cancel context.CancelFunc

	viewport     viewport.Model
	input        textinput.Model
	commandInput textinput.Model
	spinner      spinner.Model

	mode        inputMode
	side        sidePanel
	info        string
	suggestions []string
	notice      *chat.Notice
	status      string

	width    int
	height   int
	ready    bool
	rendered int
}

func newModel(cfg Config) model {
	ctx, cancel := context.WithCancel(context.Background())

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Enter content to check for compliance..."
	input.CharLimit = 4000
	input.Focus()

	cmdInput := textinput.New()
	cmdInput.Prompt = ":"
	cmdInput.CharLimit = 256

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accent)

	notices := cfg.Notices
	if notices == nil {
		notices = NewNoticeQueue()
	}

	m := model{
		ctrl:         cfg.Controller,
		notices:      notices,
		service:      cfg.Service,
		policies:     cfg.Policies,
		opts:         cfg.Options,
		endpoint:     cfg.Endpoint,
		ctx:          ctx,
		cancel:       cancel,
		viewport:     viewport.New(80, 20),
		input:        input,
		commandInput: cmdInput,
		spinner:      s,
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	for _, n := range next.notices.drain() {
		next.notice = &n
	}
	return next, cmd
}

func (m model) update(msg tea.Msg) (model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		m.refresh()
		return m, nil

	case cycleDoneMsg:
		if msg.err != nil {
			m.status = errorStatus(msg.err)
		} else {
			m.status = ""
		}
		m.refresh()
		return m, nil

	case suggestionsMsg:
		if msg.err != nil {
			m.status = errorStatus(msg.err)
			return m, nil
		}
		m.suggestions = msg.items
		m.showInfo(renderSuggestions(msg.prompt, msg.items))
		return m, nil

	case policiesMsg:
		if msg.err != nil {
			m.status = errorStatus(msg.err)
			return m, nil
		}
		m.showInfo(renderPolicies(msg.items))
		return m, nil

	case spinner.TickMsg:
		if m.ctrl.Outstanding() == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
			return m, tea.Quit
		}

		switch m.mode {
		case modeCommand:
			switch msg.Type {
			case tea.KeyEnter:
				line := m.commandInput.Value()
				m.leaveCommandMode()
				return m.execute(line)
			case tea.KeyEsc:
				m.leaveCommandMode()
				return m, nil
			}
			var cmd tea.Cmd
			m.commandInput, cmd = m.commandInput.Update(msg)
			return m, cmd

		case modeNormal:
			switch msg.Type {
			case tea.KeyEnter:
				return m.send()
			case tea.KeyTab:
				if m.side == sideDashboard {
					m.side = sideNone
				} else {
					m.side = sideDashboard
				}
				m.layout()
				m.refresh()
				return m, nil
			case tea.KeyEsc:
				m.side = sideNone
				m.status = ""
				m.notice = nil
				m.layout()
				m.refresh()
				return m, nil
			case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
				var cmd tea.Cmd
				m.viewport, cmd = m.viewport.Update(msg)
				return m, cmd
			}
			if msg.String() == ":" && m.input.Value() == "" {
				m.mode = modeCommand
				m.input.Blur()
				m.commandInput.SetValue("")
				return m, m.commandInput.Focus()
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	// Keys belong to the input line; the viewport only scrolls on mouse
	// events and the explicit keys above.
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// send starts a cycle for the input line. Only one request is in flight at
// a time from this screen.
func (m model) send() (model, tea.Cmd) {
	if m.ctrl.Outstanding() > 0 {
		m.status = "Waiting for the current response..."
		return m, nil
	}

	cycle, err := m.ctrl.Start(m.input.Value(), m.opts)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyInput) {
			m.status = "Type a message first"
			return m, nil
		}
		m.status = errorStatus(err)
		return m, nil
	}

	m.input.SetValue("")
	m.status = ""
	m.notice = nil
	m.refresh()

	ctx := m.ctx
	run := func() tea.Msg {
		msg, err := cycle.Run(ctx)
		return cycleDoneMsg{msg: msg, err: err}
	}
	return m, tea.Batch(run, m.spinner.Tick)
}

func (m *model) leaveCommandMode() {
	m.mode = modeNormal
	m.commandInput.Blur()
	m.commandInput.SetValue("")
	m.input.Focus()
}

func (m *model) showInfo(content string) {
	m.info = content
	m.side = sideInfo
	m.layout()
	m.refresh()
}

func (m *model) layout() {
	if !m.ready {
		return
	}
	chatWidth := m.width - 2
	if m.side != sideNone {
		chatWidth = m.width - m.width/3 - 2
	}
	m.viewport.Width = max(chatWidth-2, 10)
	m.viewport.Height = max(m.height-6, 3)
	m.input.Width = max(m.width-6, 10)
	m.commandInput.Width = max(m.width-6, 10)
}

// refresh re-renders the history into the viewport, following the bottom
// when messages were added or removed.
func (m *model) refresh() {
	msgs := m.ctrl.History()
	m.viewport.SetContent(renderHistory(msgs, m.viewport.Width, m.spinner.View()))
	if len(msgs) != m.rendered {
		m.viewport.GotoBottom()
		m.rendered = len(msgs)
	}
	if m.side == sideDashboard {
		m.info = renderDashboard(msgs, m.width/3-4)
	}
}

func (m model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	mode := fmt.Sprintf("compliance %s · cp %.2f", onOff(m.opts.ComplianceEnabled), m.opts.Tradeoff)
	topBar := lipgloss.JoinHorizontal(
		lipgloss.Left,
		titleStyle.Render("Guidera"),
		helpStyle.Render("  "+m.endpoint+"  "+mode),
	)

	chatPane := paneStyle.
		Width(m.viewport.Width + 2).
		Height(m.viewport.Height).
		Render(m.viewport.View())

	body := chatPane
	if m.side != sideNone {
		sidePane := paneStyle.
			Width(m.width/3 - 2).
			Height(m.viewport.Height).
			Render(m.info)
		body = lipgloss.JoinHorizontal(lipgloss.Top, chatPane, sidePane)
	}

	inputLine := m.input.View()
	if m.mode == modeCommand {
		inputLine = m.commandInput.View()
	}

	return topBar + "\n" + body + "\n" + inputLine + "\n" + m.statusLine()
}

func (m model) statusLine() string {
	switch {
	case m.status != "":
		return helpStyle.Render("  " + m.status)
	case m.notice != nil:
		return noticeStyle(m.notice.Level).Render("  " + m.notice.Text)
	case m.ctrl.Outstanding() > 0:
		return helpStyle.Render("  " + m.spinner.View() + " waiting for response")
	}
	return helpStyle.Render("  enter: send • tab: dashboard • :: command • :help • ctrl+c: quit")
}

func errorStatus(err error) string {
	if client.IsAuthError(err) {
		return "Session expired. Run 'guidera login' and restart."
	}
	var reqErr *client.RequestError
	if errors.As(err, &reqErr) && reqErr.Message != "" {
		return "Request failed: " + reqErr.Message
	}
	if errors.Is(err, context.Canceled) {
		return "Request cancelled"
	}
	return "Error: " + strings.TrimSpace(err.Error())
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
