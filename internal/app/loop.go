package app

import (
	"context"
	"errors"
)

var ErrLoopStopped = errors.New("event loop stopped")

// Loop runs controller events one at a time on a single goroutine.
type Loop struct {
	c       *Controller
	events  chan func(*Controller)
	stopped chan struct{}
}

func NewLoop(c *Controller) *Loop {
	return &Loop{
		c:       c,
		events:  make(chan func(*Controller)),
		stopped: make(chan struct{}),
	}
}

// Run processes events until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.stopped)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.events:
			fn(l.c)
		}
	}
}

// Do runs fn on the loop goroutine and waits for it to finish. ctx only
// bounds the hand-off: once the loop accepts fn, Do waits for it and
// returns nil.
func (l *Loop) Do(ctx context.Context, fn func(*Controller)) error {
	done := make(chan struct{})
	event := func(c *Controller) {
		defer close(done)
		fn(c)
	}
	select {
	case l.events <- event:
	case <-l.stopped:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Call runs fn on l and returns its results.
func Call[T any](ctx context.Context, l *Loop, fn func(*Controller) (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if doErr := l.Do(ctx, func(c *Controller) { out, err = fn(c) }); doErr != nil {
		var zero T
		return zero, doErr
	}
	return out, err
}
