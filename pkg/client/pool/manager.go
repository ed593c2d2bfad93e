package pool

import (
	"sync"
)

// Manager maps endpoint strings to their pools. Lookups are lock-free on
// the hot path; the insert race is resolved by LoadOrStore, with the loser
// discarding its candidate.
type Manager struct {
	option Option
	pools  sync.Map // endpoint string -> *Pool

	destroyMu      sync.Mutex
	poolsToDestroy map[string]*Pool
}

func NewManager(option Option) *Manager {
	return &Manager{
		option:         option,
		poolsToDestroy: make(map[string]*Pool),
	}
}

// Get returns the pool of the endpoint, creating it on first use.
func (m *Manager) Get(addr NodeAddr) *Pool {
	endpoint := addr.String()

	if v, ok := m.pools.Load(endpoint); ok {
		return v.(*Pool)
	}

	candidate := NewPool(m.option, addr)
	actual, loaded := m.pools.LoadOrStore(endpoint, candidate)
	if loaded {
		// Lost the race; the candidate holds no connections yet.
		return actual.(*Pool)
	}
	return candidate
}

// Stop snapshots the pools into the destruction staging map and stops each
// one. Destroy completes the teardown.
func (m *Manager) Stop() {
	m.destroyMu.Lock()
	defer m.destroyMu.Unlock()

	m.pools.Range(func(key, value interface{}) bool {
		m.poolsToDestroy[key.(string)] = value.(*Pool)
		return true
	})
	for _, p := range m.poolsToDestroy {
		p.Stop()
	}
}

// Destroy tears down every staged pool and clears the map.
func (m *Manager) Destroy() {
	m.destroyMu.Lock()
	defer m.destroyMu.Unlock()

	for endpoint, p := range m.poolsToDestroy {
		p.Destroy()
		m.pools.Delete(endpoint)
	}
	m.poolsToDestroy = make(map[string]*Pool)
}

// PoolStat is one endpoint's occupancy snapshot for the admin surface.
type PoolStat struct {
	Endpoint string `json:"endpoint"`
	Live     int64  `json:"live"`
	Idle     int    `json:"idle"`
}

// Stats snapshots every pool's occupancy.
func (m *Manager) Stats() []PoolStat {
	var stats []PoolStat
	m.pools.Range(func(key, value interface{}) bool {
		p := value.(*Pool)
		stats = append(stats, PoolStat{
			Endpoint: key.(string),
			Live:     p.LiveCount(),
			Idle:     p.IdleCount(),
		})
		return true
	})
	return stats
}
