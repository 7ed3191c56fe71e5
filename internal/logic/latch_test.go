package logic

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFanLatchStartsInGivenState(t *testing.T) {
	assert.True(t, NewFanLatch(true).Enabled())
	assert.False(t, NewFanLatch(false).Enabled())
}

func TestFanLatchToggleIsItsOwnInverse(t *testing.T) {
	for _, start := range []bool{true, false} {
		l := NewFanLatch(start)

		assert.Equal(t, !start, l.Toggle())
		assert.Equal(t, start, l.Toggle())
		assert.Equal(t, start, l.Enabled())
	}
}

func TestFanLatchSet(t *testing.T) {
	l := NewFanLatch(true)
	l.Set(false)
	assert.False(t, l.Enabled())
	l.Set(true)
	assert.True(t, l.Enabled())
}

func TestFanLatchConcurrentToggles(t *testing.T) {
	l := NewFanLatch(true)
	var wg sync.WaitGroup

	// An even number of toggles leaves the latch where it started.
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				l.Toggle()
				_ = l.Enabled()
			}
		}()
	}
	wg.Wait()

	assert.True(t, l.Enabled())
}
