package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Subscribe opens the live event stream of channelID. It returns once the
// daemon has subscribed the channel, so every change made afterwards reaches
// the returned channel. The channel is closed when ctx ends or the stream
// breaks.
func (c *Client) Subscribe(ctx context.Context, channelID string) (<-chan chat.Event, error) {
	stream, err := c.events.Watch(c.authed(ctx), &rpc.WatchRequest{ChannelID: channelID})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	if err := awaitSubscribed(stream); err != nil {
		return nil, err
	}

	out := make(chan chat.Event, DefaultStreamBuffer)
	go func() {
		defer close(out)
		for {
			evt, err := stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					c.logger.Warn("event stream broken", zap.String("channel", channelID), zap.Error(rpc.FromStatus(err)))
				}
				return
			}
			select {
			case out <- *evt:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// awaitSubscribed blocks until Watch confirms the subscription. A stream that
// ends without the ready header carries its status in Recv.
func awaitSubscribed(stream grpc.ServerStreamingClient[chat.Event]) error {
	md, err := stream.Header()
	if err != nil {
		return rpc.FromStatus(err)
	}
	if len(md.Get(rpc.WatchReadyKey)) > 0 {
		return nil
	}
	if _, err := stream.Recv(); err != nil && !errors.Is(err, io.EOF) {
		return rpc.FromStatus(err)
	}
	return fmt.Errorf("%w: event stream ended before subscribing", chat.ErrTransportUnavailable)
}
