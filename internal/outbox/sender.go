// Package outbox delivers a client's outbound writes in the background.
package outbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"go.uber.org/zap"
)

// ErrQueueFull is returned when a write is offered while the queue is full.
var ErrQueueFull = errors.New("outbox: queue full")

// ErrStopped is returned when a write is offered after Stop.
var ErrStopped = errors.New("outbox: stopped")

const (
	DefaultQueueSize = 64
	sendTimeout      = 10 * time.Second
)

// Publisher performs the writes against the daemon.
type Publisher interface {
	SendMessage(ctx context.Context, conversationID, body, image string) (*chat.Message, error)
	MarkSeen(ctx context.Context, conversationID string) error
}

// SendFailure is the payload of a message.send_failed bus event.
type SendFailure struct {
	ConversationID string
	Body           string
	Image          string
	Err            error
}

type jobKind int

const (
	jobSend jobKind = iota
	jobSeen
)

type job struct {
	kind           jobKind
	conversationID string
	body, image    string
}

// Sender drains a bounded queue of outbound writes on one goroutine. Writes
// are attempted once; failures are logged and published on the bus.
type Sender struct {
	pub    Publisher
	bus    *bus.Bus
	logger *zap.Logger
	queue  chan job

	mu      sync.RWMutex
	onSent  func(*chat.Message)
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSender creates a sender. size <= 0 uses DefaultQueueSize.
func NewSender(pub Publisher, b *bus.Bus, logger *zap.Logger, size int) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Sender{pub: pub, bus: b, logger: logger, queue: make(chan job, size)}
}

// OnSent registers fn to receive every message the daemon accepted, so the
// caller can echo it locally before the live stream delivers it.
func (s *Sender) OnSent(fn func(*chat.Message)) {
	s.mu.Lock()
	s.onSent = fn
	s.mu.Unlock()
}

// Start begins draining the queue.
func (s *Sender) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()
	go s.loop(ctx, s.done)
}

// Stop stops the loop and waits for it. Queued writes are dropped.
func (s *Sender) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.stopped = true
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	if n := len(s.queue); n > 0 {
		s.logger.Warn("outbox stopped with queued writes", zap.Int("dropped", n))
	}
}

// SendMessage queues a message for delivery.
func (s *Sender) SendMessage(_ context.Context, conversationID, body, image string) error {
	return s.offer(job{kind: jobSend, conversationID: conversationID, body: body, image: image})
}

// PublishSeen queues a mark-seen for the latest message of a conversation.
func (s *Sender) PublishSeen(_ context.Context, conversationID string) error {
	return s.offer(job{kind: jobSeen, conversationID: conversationID})
}

func (s *Sender) offer(j job) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return ErrStopped
	}
	select {
	case s.queue <- j:
		return nil
	default:
		s.logger.Warn("outbox full", zap.String("conversation_id", j.conversationID))
		return ErrQueueFull
	}
}

// Pending returns the number of queued writes.
func (s *Sender) Pending() int {
	return len(s.queue)
}

func (s *Sender) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case j := <-s.queue:
			s.process(ctx, j)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Sender) process(ctx context.Context, j job) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	switch j.kind {
	case jobSend:
		m, err := s.pub.SendMessage(ctx, j.conversationID, j.body, j.image)
		if err != nil {
			s.logger.Error("failed to send message", zap.Error(err), zap.String("conversation_id", j.conversationID))
			s.publish(bus.KindSendFailed, SendFailure{ConversationID: j.conversationID, Body: j.body, Image: j.image, Err: err})
			return
		}
		s.logger.Info("message sent", zap.String("conversation_id", j.conversationID), zap.String("message_id", m.ID))
		s.mu.RLock()
		onSent := s.onSent
		s.mu.RUnlock()
		if onSent != nil {
			onSent(m)
		}

	case jobSeen:
		if err := s.pub.MarkSeen(ctx, j.conversationID); err != nil {
			s.logger.Warn("failed to mark seen", zap.Error(err), zap.String("conversation_id", j.conversationID))
			s.publish(bus.KindTransportUnavailable, err)
			return
		}
		s.logger.Debug("seen mark delivered", zap.String("conversation_id", j.conversationID))
	}
}

func (s *Sender) publish(kind string, payload any) {
	if s.bus != nil {
		s.bus.Publish(bus.NewEvent(kind, payload))
	}
}
