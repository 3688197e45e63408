// Package assist runs the automatic path: a poll loop that samples the host
// page and feeds new counterparty messages to the controller.
package assist

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jnickzlim/wa-chrome-assistance/internal/logging"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/controller"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/ports"
)

// DefaultInterval is the poll period of the loop.
const DefaultInterval = time.Second

// Loop polls the host page while assist mode is enabled.
type Loop struct {
	host       ports.HostPage
	controller *controller.Controller
	interval   time.Duration
	enabled    atomic.Bool

	mu      sync.Mutex
	current string

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

// Option configures the Loop.
type Option func(*Loop)

// WithInterval overrides the poll period.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithEnabled sets the initial assist mode.
func WithEnabled(enabled bool) Option {
	return func(l *Loop) {
		l.enabled.Store(enabled)
	}
}

// WithLifecycleHooks registers hooks. The loop fires OnChatSwitch.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(l *Loop) {
		l.hooks = hooks
	}
}

// WithLogger sets the loop logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// NewLoop creates a loop. Assist mode starts disabled.
func NewLoop(host ports.HostPage, ctrl *controller.Controller, opts ...Option) *Loop {
	l := &Loop{
		host:       host,
		controller: ctrl,
		interval:   DefaultInterval,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetEnabled toggles assist mode. Disabling only stops the polling; states are kept.
func (l *Loop) SetEnabled(enabled bool) {
	if l.enabled.Swap(enabled) != enabled {
		l.logger.Info("Assist mode changed", "enabled", enabled)
	}
}

// Enabled reports whether assist mode is on.
func (l *Loop) Enabled() bool {
	return l.enabled.Load()
}

// Current returns the conversation the loop is tracking ("" before the first sample).
func (l *Loop) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Run ticks until ctx is done. Tick failures are logged and never stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Debug("Assist loop started", "interval", l.interval)
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("Assist loop stopped")
			return nil
		case <-ticker.C:
			if err := l.Tick(ctx); err != nil {
				l.logger.Warn("Assist tick failed", "conversation", l.Current(), "err", err)
			}
		}
	}
}

// Tick runs one poll. A conversation switch consumes the tick: the new
// conversation gets a table entry (never a flow) and its messages are only
// looked at on the next tick.
func (l *Loop) Tick(ctx context.Context) error {
	if !l.Enabled() {
		return nil
	}

	sample, err := l.host.Sample(ctx)
	if err != nil {
		return err
	}
	if sample.Title == "" {
		return nil
	}

	if l.switchTo(sample.Title) {
		if _, err := l.controller.State(ctx, sample.Title); err != nil {
			return err
		}
		if l.hooks.OnChatSwitch != nil {
			l.hooks.OnChatSwitch(ctx, &domain.EventBase{
				Timestamp:      time.Now(),
				Type:           domain.EventChatSwitch,
				ConversationID: sample.Title,
			})
		}
		l.logger.Debug("Switched conversation", "conversation", sample.Title)
		return nil
	}

	if sample.LatestIncoming == "" {
		return nil
	}
	_, err = l.controller.Observe(ctx, sample.Title, sample.LatestIncoming)
	return err
}

func (l *Loop) switchTo(title string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == title {
		return false
	}
	l.current = title
	return true
}
