// Package errgroup provides a bounded group of goroutines with a blocking
// join, panic recovery and first-error propagation.
package errgroup

import (
	"context"
	"errors"
	"fmt"
	"sync"

	logpkg "github.com/anil-trigital/GST/pkg/log"
)

// ErrPanicRecovered is returned when a goroutine in the group panics.
var ErrPanicRecovered = errors.New("errgroup: panic recovered")

// Group manages a set of goroutines that share a cancellation context.
// The first error returned by any goroutine cancels the group's context
// and is returned by Wait. Subsequent errors are discarded.
//
// SetLimit bounds the number of goroutines running at once, turning the
// group into a fixed-size worker pool with a blocking Wait instead of a
// busy-poll on completion.
type Group struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sem     chan struct{}
	errOnce sync.Once
	err     error
	logger  logpkg.Logger
}

// WithContext returns a new Group and a derived context.Context.
// The derived context is canceled when the first goroutine in the Group
// returns a non-nil error or when Wait returns, whichever occurs first.
func WithContext(ctx context.Context) (*Group, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{ctx: ctx, cancel: cancel}, ctx
}

// SetLimit bounds the number of concurrently running goroutines to n.
// It must be called before the first Go. A non-positive n removes the bound.
func (grp *Group) SetLimit(n int) {
	if n <= 0 {
		grp.sem = nil
		return
	}

	grp.sem = make(chan struct{}, n)
}

// SetLogger sets an optional logger for panic recovery observability.
func (grp *Group) SetLogger(logger logpkg.Logger) {
	if grp == nil {
		return
	}

	grp.logger = logger
}

// effectiveCtx returns the group's context, falling back to
// context.Background() for zero-value Groups not created via WithContext.
func (grp *Group) effectiveCtx() context.Context {
	if grp.ctx != nil {
		return grp.ctx
	}

	return context.Background()
}

// Go starts a new goroutine in the Group, blocking first if the concurrency
// limit has been reached. The first non-nil error returned by a goroutine is
// recorded and triggers cancellation of the group context.
func (grp *Group) Go(fn func() error) {
	if grp.sem != nil {
		grp.sem <- struct{}{}
	}

	grp.wg.Add(1)

	go func() {
		defer grp.wg.Done()
		defer func() {
			if grp.sem != nil {
				<-grp.sem
			}
		}()
		defer func() {
			if recovered := recover(); recovered != nil {
				if grp.logger != nil {
					grp.logger.Log(grp.effectiveCtx(), logpkg.LevelError,
						"errgroup goroutine panicked",
						logpkg.Any("panic", recovered),
					)
				}

				grp.setErr(fmt.Errorf("%w: %v", ErrPanicRecovered, recovered))
			}
		}()

		if err := fn(); err != nil {
			grp.setErr(err)
		}
	}()
}

// Wait blocks until all goroutines in the Group have completed. It cancels
// the group context after all goroutines finish and returns the first error
// observed, if any.
func (grp *Group) Wait() error {
	grp.wg.Wait()

	if grp.cancel != nil {
		grp.cancel()
	}

	return grp.err
}

func (grp *Group) setErr(err error) {
	grp.errOnce.Do(func() {
		grp.err = err
		if grp.cancel != nil {
			grp.cancel()
		}
	})
}
