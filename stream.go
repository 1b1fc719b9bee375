package texter

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// stream is the handle of one live subscription. stop cancels the
// subscription and waits until its goroutine has drained, so no callback can
// run after stop returns. That ordering is what lets callers clear state
// right after stopping without a stale update racing the clear.
type stream struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func newStream(parent context.Context, run func(ctx context.Context, s *stream)) *stream {
	ctx, cancel := context.WithCancel(parent)
	s := &stream{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		run(ctx, s)
	}()
	return s
}

// stop is idempotent and safe on a nil stream.
func (s *stream) stop() {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// isCanceled distinguishes an ordinary subscription shutdown from a real
// transport failure on a snapshot iterator.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled
}
