package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/gate"
	"go.uber.org/zap"
)

// Transport opens the live event stream of a channel. Cancelling ctx
// unsubscribes.
type Transport interface {
	Subscribe(ctx context.Context, channelID string) (<-chan chat.Event, error)
}

// Persistence loads the conversations visible to a user.
type Persistence interface {
	LoadSnapshot(ctx context.Context, userID string) ([]*chat.Conversation, error)
}

// Settings tunes the reconcilers created by a Controller.
type Settings struct {
	SeenRetention time.Duration
	SeenBuffer    int
}

// Controller owns the live subscription of one client. It opens a fresh
// reconciler when the gate enters authenticated and tears it down when the
// gate leaves it.
type Controller struct {
	transport   Transport
	persistence Persistence
	publisher   chat.SeenPublisher
	creator     chat.DirectCreator
	settings    Settings
	bus         *bus.Bus
	logger      *zap.Logger

	mu       gosync.Mutex
	gate     *gate.Gate
	current  *Reconciler
	resolver *chat.Resolver
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewController creates a controller. Call Attach to bind it to a gate.
func NewController(t Transport, p Persistence, pub chat.SeenPublisher, creator chat.DirectCreator, settings Settings, b *bus.Bus, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		transport:   t,
		persistence: p,
		publisher:   pub,
		creator:     creator,
		settings:    settings,
		bus:         b,
		logger:      logger,
	}
}

// Attach makes the controller follow g's transitions.
func (c *Controller) Attach(g *gate.Gate) {
	c.mu.Lock()
	c.gate = g
	c.mu.Unlock()
	g.OnTransition(c.handle)
}

func (c *Controller) handle(tr gate.Transition) {
	switch {
	case tr.Entered(gate.Authenticated):
		c.open(tr.Session)
	case tr.Left(gate.Authenticated):
		c.Close()
	}
}

func (c *Controller) open(s *chat.Session) {
	c.Close()

	r := New(Options{
		UserID:        s.UserID,
		SeenRetention: c.settings.SeenRetention,
		SeenBuffer:    c.settings.SeenBuffer,
		Publisher:     c.publisher,
		Bus:           c.bus,
		Logger:        c.logger.With(zap.String("user_id", s.UserID)),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.current = r
	c.resolver = chat.NewResolver(r, c.creator, c.logger)
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.run(ctx, r)
	}()
}

func (c *Controller) run(ctx context.Context, r *Reconciler) {
	stream, err := c.transport.Subscribe(ctx, r.UserID())
	if err != nil {
		c.fail(r, err)
		return
	}
	c.logger.Info("live stream opened", zap.String("channel", r.UserID()))

	load := func(ctx context.Context) ([]*chat.Conversation, error) {
		return c.persistence.LoadSnapshot(ctx, r.UserID())
	}
	if err := r.Run(ctx, stream, load); err != nil && !errors.Is(err, context.Canceled) {
		c.fail(r, err)
	}
}

// fail reports why the live session of r ended. A session the daemon no
// longer accepts signs the gate out; anything else is a transport notice.
func (c *Controller) fail(r *Reconciler, err error) {
	var rejected *chat.AuthFailure
	if !errors.As(err, &rejected) {
		c.unavailable(err)
		return
	}
	c.mu.Lock()
	g := c.gate
	c.mu.Unlock()
	if g == nil {
		c.unavailable(err)
		return
	}
	c.logger.Warn("session rejected by daemon", zap.Error(err))
	// Signing out closes this controller, which waits for the running loop,
	// so it happens off the loop goroutine.
	go func() {
		c.mu.Lock()
		stale := c.current != r
		c.mu.Unlock()
		if stale {
			return
		}
		if err := g.OnSessionChange(gate.Unauthenticated, nil); err != nil {
			c.logger.Debug("session change ignored", zap.Error(err))
		}
	}()
}

func (c *Controller) unavailable(err error) {
	c.logger.Warn("transport unavailable", zap.Error(err))
	if c.bus != nil {
		c.bus.Publish(bus.NewEvent(bus.KindTransportUnavailable, err))
	}
}

// Close cancels the live stream and waits for the reconciliation loop to
// exit. The index is discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.current, c.resolver, c.cancel, c.done = nil, nil, nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.logger.Info("live stream closed")
}

// Reconciler returns the reconciler of the open session, or nil.
func (c *Controller) Reconciler() *Reconciler {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Resolver returns the direct conversation resolver of the open session, or nil.
func (c *Controller) Resolver() *chat.Resolver {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolver
}

// Open reports whether a live subscription exists.
func (c *Controller) Open() bool {
	return c.Reconciler() != nil
}
