package singleflight

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo(t *testing.T) {
	var g Group
	v, err, shared := g.Do("key", func() (any, error) {
		return "bar", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "bar", v)
	assert.False(t, shared)
}

func TestDoErr(t *testing.T) {
	var g Group
	someErr := errors.New("some error")
	v, err, _ := g.Do("key", func() (any, error) {
		return nil, someErr
	})
	assert.ErrorIs(t, err, someErr)
	assert.Nil(t, v)
}

func TestDoDedup(t *testing.T) {
	var g Group
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	fn := func() (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "snapshot", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 8)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _, _ = g.Do("rt", fn)
	}()
	<-started

	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, _ = g.Do("rt", fn)
		}(i)
	}

	// give the waiters time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	got := calls.Load()
	assert.Greater(t, got, int32(0))
	assert.Less(t, got, int32(len(results)))
	for _, r := range results {
		assert.Equal(t, "snapshot", r)
	}
}
