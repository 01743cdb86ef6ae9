package gamedata_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/cw/gamedata"
)

func TestCell(t *testing.T) {
	t.Parallel()

	t.Run("not initialized", func(t *testing.T) {
		t.Parallel()

		var c gamedata.Cell[int]

		_, err := c.Get()
		require.ErrorIs(t, err, gamedata.ErrNotInitialized)
		assert.False(t, c.Ready())
	})

	t.Run("init once", func(t *testing.T) {
		t.Parallel()

		var (
			c     gamedata.Cell[int]
			calls atomic.Int32
			wg    sync.WaitGroup
		)

		start := make(chan struct{})

		for range 8 {
			wg.Add(1)

			go func() {
				defer wg.Done()
				<-start

				v, err := c.GetOrInit(func() (*int, error) {
					calls.Add(1)
					time.Sleep(10 * time.Millisecond)

					n := 42

					return &n, nil
				})
				assert.NoError(t, err)
				assert.Equal(t, 42, *v)
			}()
		}

		close(start)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		assert.True(t, c.Ready())
	})

	t.Run("failed init retries", func(t *testing.T) {
		t.Parallel()

		var c gamedata.Cell[string]

		boom := errors.New("boom")

		_, err := c.GetOrInit(func() (*string, error) { return nil, boom })
		require.ErrorIs(t, err, boom)

		_, err = c.Get()
		require.ErrorIs(t, err, gamedata.ErrNotInitialized)

		v, err := c.GetOrInit(func() (*string, error) {
			s := "ok"

			return &s, nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", *v)
	})

	t.Run("wait ready", func(t *testing.T) {
		t.Parallel()

		var c gamedata.Cell[int]

		go func() {
			time.Sleep(10 * time.Millisecond)

			n := 7
			c.Set(&n)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		v, err := c.WaitReady(ctx)
		require.NoError(t, err)
		assert.Equal(t, 7, *v)
	})

	t.Run("wait timeout", func(t *testing.T) {
		t.Parallel()

		var c gamedata.Cell[int]

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := c.WaitReady(ctx)
		require.ErrorIs(t, err, gamedata.ErrInitTimeout)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("set replaces", func(t *testing.T) {
		t.Parallel()

		var c gamedata.Cell[int]

		a, b := 1, 2
		c.Set(&a)

		old, err := c.Get()
		require.NoError(t, err)

		c.Set(&b)

		cur, err := c.Get()
		require.NoError(t, err)
		assert.Equal(t, 1, *old)
		assert.Equal(t, 2, *cur)
	})
}
