package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermits_AcquireRelease(t *testing.T) {
	p := NewPermits(2)
	assert.Equal(t, 2, p.Capacity())

	require.True(t, p.TryAcquire())
	require.True(t, p.TryAcquire())
	assert.False(t, p.TryAcquire(), "no third permit")
	assert.Equal(t, 0, p.Available())
	assert.Equal(t, 2, p.InUse())

	require.NoError(t, p.Release())
	assert.Equal(t, 1, p.Available())
	assert.True(t, p.TryAcquire())
}

func TestPermits_OverRelease(t *testing.T) {
	p := NewPermits(1)
	assert.ErrorIs(t, p.Release(), ErrPermitOverRelease)
	assert.Equal(t, 1, p.Available(), "failed release must not add capacity")
}

func TestPermits_NegativeCapacity(t *testing.T) {
	p := NewPermits(-3)
	assert.Equal(t, 0, p.Capacity())
	assert.False(t, p.TryAcquire())
}

func TestPermits_ConcurrentNeverExceedsCapacity(t *testing.T) {
	const capacity = 3
	p := NewPermits(capacity)
	var current, peak atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if !p.TryAcquire() {
					continue
				}
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				current.Add(-1)
				assert.NoError(t, p.Release())
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(capacity))
	assert.Equal(t, capacity, p.Available())
}
