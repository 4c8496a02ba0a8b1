package api

import (
	"github.com/google/uuid"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"go.uber.org/zap"
)

// fanout publishes evt on the channel of every recipient.
func fanout(b *bus.Bus, logger *zap.Logger, evt chat.Event, recipients []string) {
	if b == nil {
		return
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	delivered := 0
	for _, uid := range recipients {
		delivered += b.Publish(bus.NewEvent(bus.UserKind(uid, string(evt.Type)), evt))
	}
	logger.Debug("event fanned out",
		zap.String("event_id", evt.ID),
		zap.String("type", string(evt.Type)),
		zap.Int("recipients", len(recipients)),
		zap.Int("delivered", delivered))
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
