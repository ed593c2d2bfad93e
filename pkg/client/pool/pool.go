// Package pool recycles MySQL executors per endpoint. A pool is striped
// into shard groups so concurrent acquisition does not contend on one lock.
package pool

import (
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/tidb-incubator/ferry/pkg/client/executor"
	"github.com/tidb-incubator/ferry/pkg/metrics"
	"github.com/tidb-incubator/ferry/pkg/util/logutil"
)

// acquireRetryNum bounds how many stale pooled executors one acquisition
// will discard before creating a fresh connection.
const acquireRetryNum = 3

// NodeAddr identifies one MySQL endpoint.
type NodeAddr struct {
	IP   string
	Port uint16
}

func (a NodeAddr) String() string {
	return net.JoinHostPort(a.IP, strconv.Itoa(int(a.Port)))
}

// Option configures every pool built by a manager.
type Option struct {
	// MaxSize bounds the live executors one endpoint pool keeps: Reclaim
	// closes instead of parking once the live count exceeds it. Acquisition
	// is not limited by it.
	MaxSize uint32
	// MaxIdleTime evicts executors idle longer than this; 0 disables.
	MaxIdleTime time.Duration
	// NumShardGroup is the lock-stripe count.
	NumShardGroup uint32

	UserName string
	Password string
	DBName   string
	CharSet  string

	// Dial overrides the executor connection factory; tests use it.
	Dial executor.DialFunc
}

type shard struct {
	mu        sync.Mutex
	executors []*executor.Executor
}

// Pool is the sharded free-list of executors for one endpoint.
type Pool struct {
	option Option
	target NodeAddr

	shards         []shard
	maxNumPerShard uint32

	executorNum   atomic.Int64
	shardIDGen    atomic.Uint32
	executorIDGen atomic.Uint32
}

func NewPool(option Option, target NodeAddr) *Pool {
	if option.NumShardGroup == 0 {
		option.NumShardGroup = 1
	}
	maxPerShard := (option.MaxSize + option.NumShardGroup - 1) / option.NumShardGroup
	return &Pool{
		option:         option,
		target:         target,
		shards:         make([]shard, option.NumShardGroup),
		maxNumPerShard: maxPerShard,
	}
}

// GetExecutor returns a pooled or freshly connected executor. It never
// returns nil: when the fresh connect fails, the disconnected executor is
// returned so the caller can read the error pair. Callers must check
// IsConnected before issuing queries.
func (p *Pool) GetExecutor() *executor.Executor {
	shardID := p.shardIDGen.Inc() % p.option.NumShardGroup

	for retry := 0; retry < acquireRetryNum; retry++ {
		s := &p.shards[shardID]

		var stale *executor.Executor
		s.mu.Lock()
		if len(s.executors) == 0 {
			s.mu.Unlock()
			break
		}
		e := s.executors[len(s.executors)-1]
		s.executors = s.executors[:len(s.executors)-1]
		if e.CheckAlive() && !p.isIdleExpired(e) {
			s.mu.Unlock()
			p.recordIdle()
			return e
		}
		stale = e
		s.mu.Unlock()

		// Close outside the shard lock.
		p.closeExecutor(stale)
		p.recordIdle()
	}

	e := p.createExecutor(shardID)
	if err := e.Connect(); err == nil {
		p.executorNum.Inc()
		p.recordLive()
	} else {
		logutil.BgLogger().Error("connect mysql endpoint failed",
			zap.String("endpoint", p.target.String()),
			zap.Int("errno", e.ErrorNumber()),
			zap.String("error", e.ErrorMessage()))
	}
	return e
}

// Reclaim parks an executor back into its origin shard when ret is zero and
// the bounds allow; otherwise the executor is closed.
func (p *Pool) Reclaim(ret int, e *executor.Executor) {
	if e == nil {
		return
	}

	if ret == 0 {
		shardID := uint32(e.ExecutorID()>>32) % p.option.NumShardGroup
		s := &p.shards[shardID]

		s.mu.Lock()
		if uint32(len(s.executors)) <= p.maxNumPerShard &&
			p.executorNum.Load() <= int64(p.option.MaxSize) {
			e.RefreshAliveTime()
			s.executors = append(s.executors, e)
			s.mu.Unlock()
			p.recordIdle()
			return
		}
		s.mu.Unlock()
	}

	p.closeExecutor(e)
}

// Stop closes every idle executor but keeps the pool usable; stale entries
// are discarded by later acquisitions.
func (p *Pool) Stop() {
	for i := range p.shards {
		s := &p.shards[i]

		s.mu.Lock()
		idle := make([]*executor.Executor, len(s.executors))
		copy(idle, s.executors)
		s.mu.Unlock()

		for _, e := range idle {
			e.Close()
		}
	}
}

// Destroy empties every shard, closing whatever is still parked.
func (p *Pool) Destroy() {
	for i := range p.shards {
		s := &p.shards[i]

		s.mu.Lock()
		idle := s.executors
		s.executors = nil
		s.mu.Unlock()

		for _, e := range idle {
			p.closeExecutor(e)
		}
	}
	p.recordIdle()
}

// IdleCount is the number of executors currently parked across shards.
func (p *Pool) IdleCount() int {
	total := 0
	for i := range p.shards {
		s := &p.shards[i]
		s.mu.Lock()
		total += len(s.executors)
		s.mu.Unlock()
	}
	return total
}

// LiveCount is the number of executors this pool has accounted for.
func (p *Pool) LiveCount() int64 {
	n := p.executorNum.Load()
	if n < 0 {
		return 0
	}
	return n
}

func (p *Pool) Target() NodeAddr {
	return p.target
}

func (p *Pool) createExecutor(shardID uint32) *executor.Executor {
	executorID := uint64(shardID)<<32 | uint64(p.executorIDGen.Inc())

	connOption := executor.ConnOption{
		Host:     p.target.IP,
		Port:     p.target.Port,
		UserName: p.option.UserName,
		Password: p.option.Password,
		DBName:   p.option.DBName,
		CharSet:  p.option.CharSet,
	}

	var opts []executor.Option
	if p.option.Dial != nil {
		opts = append(opts, executor.WithDialFunc(p.option.Dial))
	}
	e := executor.NewExecutor(connOption, opts...)
	e.SetExecutorID(executorID)
	return e
}

func (p *Pool) isIdleExpired(e *executor.Executor) bool {
	if p.option.MaxIdleTime == 0 {
		return false
	}
	return e.AliveTime() >= p.option.MaxIdleTime
}

// closeExecutor closes a pool-accounted executor and keeps the live count
// in step. May transiently undershoot when racing acquisitions; LiveCount
// floors at zero.
func (p *Pool) closeExecutor(e *executor.Executor) {
	e.Close()
	p.executorNum.Dec()
	p.recordLive()
}

func (p *Pool) recordLive() {
	metrics.ExecutorLiveGauge.WithLabelValues(p.target.String()).Set(float64(p.LiveCount()))
}

func (p *Pool) recordIdle() {
	metrics.ExecutorIdleGauge.WithLabelValues(p.target.String()).Set(float64(p.IdleCount()))
}
