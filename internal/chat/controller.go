// Package chat runs submit/response cycles against the generate endpoint and
// owns the ordered message history.
//
// Each submission appends the user's message and a pending assistant
// placeholder. When the response arrives the placeholder is replaced in
// place by id; when the request fails it is removed. Cycles may overlap.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/models"
)

var (
	ErrEmptyInput    = errors.New("message is empty")
	ErrCycleFinished = errors.New("cycle already run")
)

// Generator is the part of the API client the controller needs.
type Generator interface {
	Generate(ctx context.Context, req client.GenerateRequest) (any, error)
}

type Options struct {
	Preferences       map[string]any
	Tradeoff          float64
	ComplianceEnabled bool
}

// DefaultOptions matches the interactive defaults: balanced tradeoff with
// compliance checks on.
func DefaultOptions() Options {
	return Options{Tradeoff: 0.5, ComplianceEnabled: true}
}

type Controller struct {
	gen      Generator
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	history   []models.Message
	pending   map[string]struct{}
	listeners []func([]models.Message)
}

type Option func(*Controller)

func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		c.log = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func New(gen Generator, opts ...Option) *Controller {
	c := &Controller{
		gen:      gen,
		notifier: discard{},
		log:      zap.NewNop(),
		now:      time.Now,
		pending:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers fn to receive a copy of the history after every
// mutation. Listeners run outside the controller's lock.
func (c *Controller) OnChange(fn func([]models.Message)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Controller) History() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Outstanding is the number of cycles still awaiting a response.
func (c *Controller) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Start validates input and records the user message and placeholder. The
// returned cycle must be Run to issue the request.
func (c *Controller) Start(input string, opts Options) (*Cycle, error) {
	prompt := strings.TrimSpace(input)
	if prompt == "" {
		return nil, ErrEmptyInput
	}

	now := c.now()
	user := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleUser,
		Content:   prompt,
		Timestamp: now,
	}
	placeholder := models.Message{
		ID:        uuid.NewString(),
		Role:      models.RoleAssistant,
		Timestamp: now,
		Pending:   true,
	}

	c.mu.Lock()
	c.history = append(c.history, user, placeholder)
	c.pending[placeholder.ID] = struct{}{}
	c.mu.Unlock()
	c.changed()

	return &Cycle{
		ctrl:   c,
		id:     placeholder.ID,
		prompt: prompt,
		opts:   opts,
		state:  AwaitingResponse,
	}, nil
}

// Submit runs one complete cycle.
func (c *Controller) Submit(ctx context.Context, input string, opts Options) (models.Message, error) {
	cycle, err := c.Start(input, opts)
	if err != nil {
		return models.Message{}, err
	}
	return cycle.Run(ctx)
}

// Clear empties the history. Responses still in flight are dropped when
// they arrive.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
	c.changed()
	c.notifier.Notify(Notice{Level: LevelSuccess, Text: TextHistoryCleared})
}

// Restore replaces the history with previously saved messages. Pending
// placeholders are skipped since nothing will resolve them.
func (c *Controller) Restore(msgs []models.Message) {
	restored := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Pending {
			continue
		}
		restored = append(restored, m)
	}

	c.mu.Lock()
	c.history = restored
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) resolve(id string, msg models.Message) bool {
	c.mu.Lock()
	delete(c.pending, id)
	idx := c.indexOf(id)
	if idx >= 0 {
		c.history[idx] = msg
	}
	c.mu.Unlock()

	if idx < 0 {
		return false
	}
	c.changed()
	return true
}

func (c *Controller) fail(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	idx := c.indexOf(id)
	if idx >= 0 {
		c.history = append(c.history[:idx], c.history[idx+1:]...)
	}
	c.mu.Unlock()

	if idx >= 0 {
		c.changed()
	}
	c.notifier.Notify(Notice{Level: LevelError, Text: TextRequestFailed})
}

func (c *Controller) indexOf(id string) int {
	for i := range c.history {
		if c.history[i].ID == id {
			return i
		}
	}
	return -1
}

// snapshot must be called with mu held.
func (c *Controller) snapshot() []models.Message {
	out := make([]models.Message, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Controller) changed() {
	c.mu.Lock()
	msgs := c.snapshot()
	listeners := append([]func([]models.Message){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(msgs)
	}
}
