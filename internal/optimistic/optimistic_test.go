package optimistic

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInFlightSuppressesSecondAcquire(t *testing.T) {
	f := NewInFlight()

	require.True(t, f.Acquire("diet"))
	assert.False(t, f.Acquire("diet"))
	assert.True(t, f.Acquire("water"))
	assert.Equal(t, 2, f.Len())

	f.Release("diet")
	assert.True(t, f.Acquire("diet"))
}

func TestInFlightConcurrentAcquireHasOneWinner(t *testing.T) {
	f := NewInFlight()
	var wins int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.Acquire("reading") {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestMutationConfirm(t *testing.T) {
	m := Begin(false, true)
	assert.Equal(t, Pending, m.State())
	assert.True(t, m.Current())

	require.NoError(t, m.Confirm(true))
	assert.Equal(t, Confirmed, m.State())
	assert.True(t, m.Current())

	_, err := m.Rollback()
	assert.ErrorIs(t, err, ErrSettled)
}

func TestMutationRollback(t *testing.T) {
	m := Begin(3, 4)

	prev, err := m.Rollback()
	require.NoError(t, err)
	assert.Equal(t, 3, prev)
	assert.Equal(t, RolledBack, m.State())
	assert.Equal(t, 3, m.Current())

	assert.ErrorIs(t, m.Confirm(4), ErrSettled)
}
