package output

import (
	"context"
	"errors"

	"github.com/modoterra/agentlog/pkg/core"
)

// Fanout emits every event to all of its sinks in order.
type Fanout []core.Sink

// Emit delivers e to each sink and joins their errors.
func (f Fanout) Emit(e core.Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Emit(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Channel sends events on a channel until its context is cancelled.
type Channel struct {
	ctx context.Context
	ch  chan<- core.Event
}

// NewChannel creates a channel sink.
func NewChannel(ctx context.Context, ch chan<- core.Event) *Channel {
	return &Channel{ctx: ctx, ch: ch}
}

// Emit blocks until the event is received or the context ends.
func (c *Channel) Emit(e core.Event) error {
	select {
	case c.ch <- e:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}
