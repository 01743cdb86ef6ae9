package gamedata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Readiness errors.
var (
	ErrNotInitialized = errors.New("game data not initialized")
	ErrInitTimeout    = errors.New("game data initialization timed out")
)

// Cell holds a value published once by a single initializer. Readers see
// ErrNotInitialized until then. Set replaces the value atomically; readers
// holding the old pointer keep using it.
type Cell[T any] struct {
	flight singleflight.Group
	value  atomic.Pointer[T]

	once   sync.Once
	ready  chan struct{}
	closed sync.Once
}

func (c *Cell[T]) readyCh() chan struct{} {
	c.once.Do(func() { c.ready = make(chan struct{}) })

	return c.ready
}

// Get returns the published value.
func (c *Cell[T]) Get() (*T, error) {
	if v := c.value.Load(); v != nil {
		return v, nil
	}

	return nil, ErrNotInitialized
}

// Ready reports whether a value has been published.
func (c *Cell[T]) Ready() bool { return c.value.Load() != nil }

// GetOrInit returns the published value, running fn to produce it if there
// is none. Concurrent callers share one run of fn. A failed run publishes
// nothing; the next caller tries again.
func (c *Cell[T]) GetOrInit(fn func() (*T, error)) (*T, error) {
	if v := c.value.Load(); v != nil {
		return v, nil
	}

	v, err, _ := c.flight.Do("init", func() (any, error) {
		if v := c.value.Load(); v != nil {
			return v, nil
		}

		v, err := fn()
		if err != nil {
			return nil, err
		}

		c.Set(v)

		return v, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*T), nil //nolint:forcetypeassert // the flight only returns *T
}

// Set publishes v, replacing any earlier value.
func (c *Cell[T]) Set(v *T) {
	c.value.Store(v)
	c.closed.Do(func() { close(c.readyCh()) })
}

// WaitReady blocks until a value is published or ctx ends. A passed
// deadline is reported as ErrInitTimeout.
func (c *Cell[T]) WaitReady(ctx context.Context) (*T, error) {
	if v := c.value.Load(); v != nil {
		return v, nil
	}

	select {
	case <-c.readyCh():
		return c.value.Load(), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %w", ErrInitTimeout, ctx.Err())
		}

		return nil, ctx.Err()
	}
}
