package core

import "context"

// CallLimiter bounds the number of concurrent outbound service calls so that
// independent read-only queries never overwhelm the vector index or the
// invocation service. The zero-size limiter is unbounded.
type CallLimiter struct {
	sem chan struct{}
}

// NewCallLimiter creates a limiter allowing max concurrent calls.
// If max == 0, unlimited concurrency is allowed.
func NewCallLimiter(max int) *CallLimiter {
	l := &CallLimiter{}
	if max > 0 {
		l.sem = make(chan struct{}, max)
	}
	return l
}

// Acquire blocks until a slot is available or the context is cancelled.
func (l *CallLimiter) Acquire(ctx context.Context) error {
	if l.sem == nil {
		return nil
	}
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (l *CallLimiter) Release() {
	if l.sem == nil {
		return
	}
	<-l.sem
}

// InFlight returns the number of currently held slots.
func (l *CallLimiter) InFlight() int {
	if l.sem == nil {
		return 0
	}
	return len(l.sem)
}
