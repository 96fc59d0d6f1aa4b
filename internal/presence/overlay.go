package presence

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-console/internal/models"
)

// GaugeObserver is told how many users are online after every change.
type GaugeObserver interface {
	SetOnlineUsers(n int)
}

// Overlay tracks online users for a screen while it is mounted.
type Overlay struct {
	channel *Channel
	set     *Set
	gauge   GaugeObserver
	logger  *zap.Logger

	mu     sync.Mutex
	unsubs []func()
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOverlay binds an overlay to ch. gauge may be nil.
func NewOverlay(ch *Channel, gauge GaugeObserver, logger *zap.Logger) *Overlay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Overlay{channel: ch, set: NewSet(), gauge: gauge, logger: logger}
}

// Mount subscribes to presence events and connects the channel to room.
// Mounting twice without Unmount is a no-op.
func (o *Overlay) Mount(ctx context.Context, room string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		return
	}

	apply := func(ev models.PresenceEvent) {
		if o.set.Apply(ev) && o.gauge != nil {
			o.gauge.SetOnlineUsers(o.set.Len())
		}
	}
	o.unsubs = []func(){
		o.channel.On(models.PresenceSnapshot, apply),
		o.channel.On(models.PresenceConnected, apply),
		o.channel.On(models.PresenceDisconnected, apply),
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.cancel = cancel
	o.done = done
	go func() {
		defer close(done)
		if err := o.channel.Run(runCtx, room); err != nil && runCtx.Err() == nil {
			o.logger.Debug("presence channel stopped", zap.Error(err))
		}
	}()
}

// Unmount removes every handler Mount added and disconnects the channel.
func (o *Overlay) Unmount() {
	o.mu.Lock()
	unsubs := o.unsubs
	cancel := o.cancel
	done := o.done
	o.unsubs = nil
	o.cancel = nil
	o.done = nil
	o.mu.Unlock()

	for _, fn := range unsubs {
		fn()
	}
	if cancel != nil {
		cancel()
		<-done
	}
	o.set.Reset()
	if o.gauge != nil {
		o.gauge.SetOnlineUsers(0)
	}
}

// Online reports whether id is currently connected.
func (o *Overlay) Online(id string) bool {
	return o.set.Contains(id)
}

// OnlineIDs returns every connected ID.
func (o *Overlay) OnlineIDs() []string {
	return o.set.IDs()
}
