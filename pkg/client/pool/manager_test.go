package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(dialer *testDialer) *Manager {
	return NewManager(Option{
		MaxSize:       8,
		NumShardGroup: 4,
		UserName:      "root",
		Password:      "123456",
		Dial:          dialer.dial,
	})
}

func TestManagerGetReturnsSamePool(t *testing.T) {
	m := newTestManager(&testDialer{})

	addr := NodeAddr{IP: "127.0.0.1", Port: 3306}
	p1 := m.Get(addr)
	p2 := m.Get(addr)
	assert.Same(t, p1, p2)

	other := m.Get(NodeAddr{IP: "127.0.0.1", Port: 3307})
	assert.NotSame(t, p1, other)
}

func TestManagerGetConcurrent(t *testing.T) {
	m := newTestManager(&testDialer{})
	addr := NodeAddr{IP: "10.0.0.1", Port: 3306}

	pools := make([]*Pool, 32)
	var wg sync.WaitGroup
	for i := range pools {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pools[i] = m.Get(addr)
		}(i)
	}
	wg.Wait()

	for _, p := range pools {
		assert.Same(t, pools[0], p)
	}
}

func TestManagerStopAndDestroy(t *testing.T) {
	dialer := &testDialer{}
	m := newTestManager(dialer)
	addr := NodeAddr{IP: "127.0.0.1", Port: 3306}

	p := m.Get(addr)
	e := p.GetExecutor()
	p.Reclaim(0, e)
	require.Equal(t, 1, p.IdleCount())

	m.Stop()
	assert.False(t, e.IsConnected())

	m.Destroy()
	assert.Equal(t, 0, p.IdleCount())

	// After Destroy the endpoint maps to a fresh pool.
	assert.NotSame(t, p, m.Get(addr))
}

func TestManagerStats(t *testing.T) {
	dialer := &testDialer{}
	m := newTestManager(dialer)

	p := m.Get(NodeAddr{IP: "127.0.0.1", Port: 3306})
	p.Reclaim(0, p.GetExecutor())

	stats := m.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "127.0.0.1:3306", stats[0].Endpoint)
	assert.Equal(t, int64(1), stats[0].Live)
	assert.Equal(t, 1, stats[0].Idle)
}
