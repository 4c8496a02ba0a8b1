package sync

import (
	"container/list"
	"slices"
	"time"

	"go.uber.org/zap"
)

type pendingSeen struct {
	messageID string
	seenBy    []string
	at        time.Time
}

// Pending holds seen updates for messages that have not arrived yet. It is
// bounded by size and by a retention window; anything dropped is logged, a
// later snapshot corrects it.
type Pending struct {
	max       int
	retention time.Duration
	order     *list.List
	byID      map[string]*list.Element
	now       func() time.Time
	logger    *zap.Logger
}

// NewPending creates a pending buffer holding at most size entries for at
// most retention each.
func NewPending(size int, retention time.Duration, logger *zap.Logger) *Pending {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 1
	}
	return &Pending{
		max:       size,
		retention: retention,
		order:     list.New(),
		byID:      make(map[string]*list.Element),
		now:       time.Now,
		logger:    logger,
	}
}

// Add buffers seenBy for messageID, merging with an existing entry.
func (p *Pending) Add(messageID string, seenBy []string) {
	p.Expire()
	if el, ok := p.byID[messageID]; ok {
		e := el.Value.(*pendingSeen)
		for _, id := range seenBy {
			if !slices.Contains(e.seenBy, id) {
				e.seenBy = append(e.seenBy, id)
			}
		}
		return
	}
	for p.order.Len() >= p.max {
		p.drop(p.order.Front(), "buffer full")
	}
	el := p.order.PushBack(&pendingSeen{
		messageID: messageID,
		seenBy:    slices.Clone(seenBy),
		at:        p.now(),
	})
	p.byID[messageID] = el
}

// Take removes and returns the buffered seen list of messageID.
func (p *Pending) Take(messageID string) ([]string, bool) {
	el, ok := p.byID[messageID]
	if !ok {
		return nil, false
	}
	p.order.Remove(el)
	delete(p.byID, messageID)
	return el.Value.(*pendingSeen).seenBy, true
}

// Expire drops entries older than the retention window and returns how many.
func (p *Pending) Expire() int {
	if p.retention <= 0 {
		return 0
	}
	cutoff := p.now().Add(-p.retention)
	n := 0
	for el := p.order.Front(); el != nil; el = p.order.Front() {
		if el.Value.(*pendingSeen).at.After(cutoff) {
			break
		}
		p.drop(el, "retention elapsed")
		n++
	}
	return n
}

// Len returns the number of buffered entries.
func (p *Pending) Len() int { return p.order.Len() }

func (p *Pending) drop(el *list.Element, reason string) {
	e := el.Value.(*pendingSeen)
	p.order.Remove(el)
	delete(p.byID, e.messageID)
	p.logger.Warn("dropping seen update for unknown message",
		zap.String("message_id", e.messageID),
		zap.String("reason", reason))
}
