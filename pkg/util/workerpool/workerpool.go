// Package workerpool runs blocking tasks on a fixed set of worker
// goroutines. Each worker may lock its OS thread and bind it to a CPU core
// set, which keeps blocking driver calls off the caller's goroutine.
package workerpool

import (
	"runtime"
	"sync"

	"github.com/pingcap/errors"
	"go.uber.org/zap"

	"github.com/tidb-incubator/ferry/pkg/util/bindcore"
	"github.com/tidb-incubator/ferry/pkg/util/logutil"
)

var ErrPoolStopped = errors.New("worker pool is stopped")

const defaultQueueSize = 1024

// Option configures a Pool.
type Option struct {
	WorkerNum int
	// BindCores pins every worker thread to this core set when non-empty.
	BindCores []int
	QueueSize int
}

type Pool struct {
	opt   Option
	tasks chan func()

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

func NewPool(opt Option) *Pool {
	if opt.WorkerNum <= 0 {
		opt.WorkerNum = 1
	}
	if opt.QueueSize <= 0 {
		opt.QueueSize = defaultQueueSize
	}
	return &Pool{
		opt:   opt,
		tasks: make(chan func(), opt.QueueSize),
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.opt.WorkerNum; i++ {
		p.wg.Add(1)
		go p.workerLoop(i)
	}
}

func (p *Pool) workerLoop(id int) {
	defer p.wg.Done()

	if len(p.opt.BindCores) > 0 {
		runtime.LockOSThread()
		if err := bindcore.BindCurrentThread(p.opt.BindCores); err != nil {
			logutil.BgLogger().Warn("bind worker thread to cores failed",
				zap.Int("worker", id), zap.Ints("cores", p.opt.BindCores), zap.Error(err))
		}
	}

	for task := range p.tasks {
		task()
	}
}

// Submit enqueues a task, blocking when the queue is full. Returns
// ErrPoolStopped after Stop.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return ErrPoolStopped
	}

	// Holding the lock while enqueueing keeps Stop from closing the channel
	// under a blocked sender.
	p.tasks <- task
	return nil
}

// Stop closes the queue. Queued tasks still run; Join waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.tasks)
}

// Join blocks until all workers exit.
func (p *Pool) Join() {
	p.wg.Wait()
}
