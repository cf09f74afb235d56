package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/models"
	"github.com/jasperwreed/guidera-chat/internal/normalize"
)

type State int

const (
	Idle State = iota
	AwaitingResponse
	Resolved
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingResponse:
		return "awaiting-response"
	case Resolved:
		return "resolved"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Cycle is one submission. Resolved and Failed are terminal.
type Cycle struct {
	ctrl   *Controller
	id     string
	prompt string
	opts   Options

	mu      sync.Mutex
	state   State
	running bool
}

// ID is the id shared by the placeholder and the eventual response.
func (c *Cycle) ID() string {
	return c.id
}

func (c *Cycle) Prompt() string {
	return c.prompt
}

func (c *Cycle) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Run issues the generate request and settles the placeholder. It returns
// the resolved assistant message, or the request error after the
// placeholder has been removed.
func (c *Cycle) Run(ctx context.Context) (models.Message, error) {
	c.mu.Lock()
	if c.state != AwaitingResponse || c.running {
		c.mu.Unlock()
		return models.Message{}, ErrCycleFinished
	}
	c.running = true
	c.mu.Unlock()

	ctrl := c.ctrl
	raw, err := ctrl.gen.Generate(ctx, client.GenerateRequest{
		Prompt:            c.prompt,
		Preferences:       c.opts.Preferences,
		Tradeoff:          c.opts.Tradeoff,
		ComplianceEnabled: c.opts.ComplianceEnabled,
	})
	if err != nil {
		ctrl.log.Error("generate failed", zap.String("id", c.id), zap.Error(err))
		ctrl.fail(c.id)
		c.settle(Failed)
		return models.Message{}, err
	}

	result := normalize.Normalize(raw)
	msg := models.Message{
		ID:        c.id,
		Role:      models.RoleAssistant,
		Timestamp: ctrl.now(),
	}
	result.Apply(&msg)

	kept := ctrl.resolve(c.id, msg)
	c.settle(Resolved)
	if !kept {
		ctrl.log.Debug("response arrived after its placeholder was removed", zap.String("id", c.id))
		return msg, nil
	}

	if c.opts.ComplianceEnabled {
		if n, ok := complianceNotice(result.ComplianceStatus()); ok {
			ctrl.notifier.Notify(n)
		}
	}
	return msg, nil
}

func (c *Cycle) settle(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
