package search

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultRecallTimeout bounds the embed+search sequence of an auto-recall
// lookup.
const DefaultRecallTimeout = 3 * time.Second

// AutoRecall runs a time-budgeted search for proactive memory injection. On
// timeout it returns an empty response immediately; the in-flight query is
// cancelled and its result, should the network calls still resolve, is
// discarded. A timeout is an expected outcome, not an error.
func (e *Engine) AutoRecall(ctx context.Context, query string, opts Options) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.RecallTimeout)
	defer cancel()

	type outcome struct {
		resp *Response
		err  error
	}

	// Buffered so a late result is dropped instead of leaking the goroutine.
	done := make(chan outcome, 1)
	go func() {
		resp, err := e.Search(ctx, query, opts)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		return out.resp, out.err
	case <-ctx.Done():
		e.config.Logger.Debug("auto-recall timed out",
			zap.Duration("timeout", e.config.RecallTimeout),
		)
		return &Response{}, nil
	}
}
