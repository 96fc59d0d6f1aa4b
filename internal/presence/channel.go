package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/models"
)

// DefaultReconnectDelay is used when no delay is configured.
const DefaultReconnectDelay = 3 * time.Second

// Handler receives presence events of one kind.
type Handler func(models.PresenceEvent)

// Channel keeps one transport connected to a room, re-joins after a drop and
// fans events out to registered handlers. Connection problems are logged at
// debug level only.
type Channel struct {
	dial           Dialer
	reconnectDelay time.Duration
	logger         *zap.Logger

	mu        sync.Mutex
	handlers  map[models.PresenceKind]map[int]Handler
	nextID    int
	transport Transport
	running   bool
}

// ChannelOption customises a Channel.
type ChannelOption func(*Channel)

// WithReconnectDelay sets the pause between reconnect attempts.
func WithReconnectDelay(d time.Duration) ChannelOption {
	return func(c *Channel) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithLogger sets the channel logger.
func WithLogger(l *zap.Logger) ChannelOption {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewChannel creates a channel that dials through dial.
func NewChannel(dial Dialer, opts ...ChannelOption) *Channel {
	c := &Channel{
		dial:           dial,
		reconnectDelay: DefaultReconnectDelay,
		logger:         zap.NewNop(),
		handlers:       make(map[models.PresenceKind]map[int]Handler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// On registers h for kind and returns a function removing it.
func (c *Channel) On(kind models.PresenceKind, h Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	if c.handlers[kind] == nil {
		c.handlers[kind] = make(map[int]Handler)
	}
	c.handlers[kind][id] = h

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers[kind], id)
			c.mu.Unlock()
		})
	}
}

// handlerCount returns how many handlers are registered for kind.
func (c *Channel) handlerCount(kind models.PresenceKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers[kind])
}

// connected reports whether a transport is currently joined.
func (c *Channel) connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport != nil
}

// Run connects to room and delivers events until ctx is done. Only one Run may
// be active per channel.
func (c *Channel) Run(ctx context.Context, room string) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("presence channel already running")
	}
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	for {
		err := c.session(ctx, room)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Debug("presence connection dropped", zap.String("room", room), zap.Error(err))

		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Channel) session(ctx context.Context, room string) error {
	t, err := c.dial(ctx)
	if err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = t.Close()
		case <-done:
		}
	}()
	defer t.Close()

	if err := t.Join(ctx, room); err != nil {
		return err
	}
	c.mu.Lock()
	c.transport = t
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.transport = nil
		c.mu.Unlock()
	}()

	if err := t.RequestSnapshot(ctx); err != nil {
		return err
	}
	c.logger.Debug("presence channel joined", zap.String("room", room))

	for {
		ev, err := t.Receive(ctx)
		if err != nil {
			return err
		}
		c.dispatch(ev)
	}
}

func (c *Channel) dispatch(ev models.PresenceEvent) {
	c.mu.Lock()
	hs := make([]Handler, 0, len(c.handlers[ev.Kind]))
	for _, h := range c.handlers[ev.Kind] {
		hs = append(hs, h)
	}
	c.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}
