package keylock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pagboka/cis485-patfutbol/internal/keylock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLock_SerializesSameKey(t *testing.T) {
	ctx := t.Context()
	l := keylock.New()

	const workers = 50

	var (
		wg      sync.WaitGroup
		counter int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock, err := l.Lock(ctx, "owner")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			// unsynchronized read-modify-write, safe only under the lock
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
	assert.Equal(t, 0, l.Len())
}

func TestLock_DifferentKeysDoNotContend(t *testing.T) {
	ctx := t.Context()
	l := keylock.New()

	unlockA, err := l.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	timeoutCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	unlockB, err := l.Lock(timeoutCtx, "b")
	require.NoError(t, err)
	unlockB()

	assert.Equal(t, 1, l.Len())
}

func TestLock_ContextDone(t *testing.T) {
	ctx := t.Context()
	l := keylock.New()

	unlock, err := l.Lock(ctx, "owner")
	require.NoError(t, err)

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()

	_, err = l.Lock(timeoutCtx, "owner")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the waiter gave up, only the holder remains
	assert.Equal(t, 1, l.Len())

	unlock()
	assert.Equal(t, 0, l.Len())
}

func TestLock_UnlockIsIdempotent(t *testing.T) {
	ctx := t.Context()
	l := keylock.New()

	unlock, err := l.Lock(ctx, "owner")
	require.NoError(t, err)

	unlock()
	unlock()

	unlock, err = l.Lock(ctx, "owner")
	require.NoError(t, err)
	unlock()

	assert.Equal(t, 0, l.Len())
}
