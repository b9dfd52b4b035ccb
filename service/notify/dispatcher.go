package notify

import (
	"context"
	"strings"

	"github.com/viant/fingov/model/types"
	"github.com/viant/fingov/service/event"
	"github.com/viant/fingov/service/messaging/memory"
	"go.uber.org/zap"
)

// Config configures notification dispatch.
type Config struct {
	BaseURL   string               `json:"baseURL" yaml:"baseURL" mapstructure:"baseURL"`
	Queue     memory.Config        `json:"queue" yaml:"queue" mapstructure:"queue"`
	Templates map[string][2]string `json:"templates,omitempty" yaml:"templates,omitempty" mapstructure:"templates"`
}

// DefaultConfig returns the default notification configuration.
func DefaultConfig() Config {
	return Config{Queue: memory.DefaultConfig()}
}

// Dispatcher queues notifications and delivers them from a background listener.
type Dispatcher struct {
	config    Config
	sender    Sender
	renderer  *Renderer
	queue     *memory.Queue[event.Event[Notification]]
	publisher *event.Publisher[Notification]
	listener  *event.Listener[Notification]
	logger    *zap.Logger
}

// NewDispatcher creates a dispatcher; call Start to begin delivery.
func NewDispatcher(config Config, sender Sender, logger *zap.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sender == nil {
		sender = &LogSender{Logger: logger}
	}
	renderer, err := NewRenderer(config.Templates)
	if err != nil {
		return nil, types.NewConfigurationError("notification", "%v", err)
	}
	queue := memory.NewQueue[event.Event[Notification]](config.Queue)
	ret := &Dispatcher{
		config:    config,
		sender:    sender,
		renderer:  renderer,
		queue:     queue,
		publisher: event.NewPublisher[Notification](queue),
		logger:    logger,
	}
	ret.listener = event.NewListener[Notification](queue, ret.handle, logger)
	return ret, nil
}

// Start launches background delivery.
func (d *Dispatcher) Start(ctx context.Context) { d.listener.Start(ctx) }

// Stop halts background delivery.
func (d *Dispatcher) Stop() { d.listener.Stop() }

// Drain waits until every queued notification was delivered or dead-lettered.
func (d *Dispatcher) Drain() { d.queue.Drain() }

// Pending returns the number of notifications waiting for delivery.
func (d *Dispatcher) Pending() int { return d.queue.Size() }

// Failed returns notifications that exhausted their retries.
func (d *Dispatcher) Failed() []*Notification {
	var ret []*Notification
	for _, msg := range d.queue.DeadLetters() {
		n := msg.T().Data
		ret = append(ret, &n)
	}
	return ret
}

// Link returns the reference link of an entity path.
func (d *Dispatcher) Link(path string) string {
	if d.config.BaseURL == "" {
		return ""
	}
	return strings.TrimRight(d.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Notify queues n. Failures are logged and never returned.
func (d *Dispatcher) Notify(ctx context.Context, n *Notification) {
	if n == nil {
		return
	}
	if n.Link == "" && n.EntityID != "" {
		n.Link = d.Link(n.Path())
	}
	if err := d.publisher.Publish(ctx, event.NewEvent(n.Kind, *n)); err != nil {
		d.logger.Warn("notification not queued",
			zap.String("entity_id", n.EntityID),
			zap.String("action", n.Kind),
			zap.Error(&types.TransientError{Op: "notify", Err: err}))
	}
}

func (d *Dispatcher) handle(ctx context.Context, e *event.Event[Notification]) error {
	message, err := d.renderer.Render(&e.Data)
	if err != nil {
		return &types.TransientError{Op: "render " + e.Type, Err: err}
	}
	if err = d.sender.Send(ctx, message); err != nil {
		return &types.TransientError{Op: "send " + e.Type, Err: err}
	}
	return nil
}
