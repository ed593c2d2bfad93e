package workerpool

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestPoolRunsTasks(t *testing.T) {
	p := NewPool(Option{WorkerNum: 4})
	p.Start()

	var count atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			count.Inc()
		})
		require.NoError(t, err)
	}
	wg.Wait()

	p.Stop()
	p.Join()
	assert.Equal(t, int32(100), count.Load())
}

func TestPoolSubmitAfterStop(t *testing.T) {
	p := NewPool(Option{WorkerNum: 1})
	p.Start()
	p.Stop()
	p.Join()

	err := p.Submit(func() {})
	assert.Equal(t, ErrPoolStopped, err)
}

func TestPoolStopDrainsQueuedTasks(t *testing.T) {
	p := NewPool(Option{WorkerNum: 1, QueueSize: 16})
	p.Start()

	var done atomic.Int32
	for i := 0; i < 8; i++ {
		require.NoError(t, p.Submit(func() {
			time.Sleep(time.Millisecond)
			done.Inc()
		}))
	}
	p.Stop()
	p.Join()
	assert.Equal(t, int32(8), done.Load())
}

func TestPoolStopIsIdempotent(t *testing.T) {
	p := NewPool(Option{WorkerNum: 2})
	p.Start()
	p.Stop()
	p.Stop()
	p.Join()
}
