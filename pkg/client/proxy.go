package client

import (
	"fmt"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pingcap/errors"
	"go.uber.org/zap"

	"github.com/tidb-incubator/ferry/pkg/client/errno"
	"github.com/tidb-incubator/ferry/pkg/client/executor"
	"github.com/tidb-incubator/ferry/pkg/client/pool"
	"github.com/tidb-incubator/ferry/pkg/config"
	"github.com/tidb-incubator/ferry/pkg/metrics"
	"github.com/tidb-incubator/ferry/pkg/util/bindcore"
	"github.com/tidb-incubator/ferry/pkg/util/logutil"
	"github.com/tidb-incubator/ferry/pkg/util/workerpool"
)

// Selector resolves an endpoint for contexts that do not name one. The host
// RPC framework registers its naming service here.
type Selector interface {
	Select(ctx *ClientContext) (pool.NodeAddr, error)
}

// Options is the surrounding service-proxy option block.
type Options struct {
	ServiceName string

	// Target is the fallback endpoint when a context carries none and no
	// selector is registered; direct-target testing uses it too.
	Target pool.NodeAddr

	// MaxConnNum and IdleTime bound each endpoint pool.
	MaxConnNum uint32
	IdleTime   time.Duration

	// Timeout is the default per-call deadline; 0 disables.
	Timeout time.Duration

	Filters  []Filter
	Selector Selector

	// PoolDial overrides the executor connection factory (tests).
	PoolDial executor.DialFunc
}

// ServiceProxy is the typed MySQL access point: Query/Execute and the
// transaction operations, in blocking and future-returning shapes. Statement
// execution runs on the proxy's worker pool. Begin acquires its session, and
// TxQuery pings the pinned session, on the calling goroutine.
type ServiceProxy struct {
	opts    Options
	conf    config.Client
	filters filterChain

	workers *workerpool.Pool
	poolMgr *pool.Manager
}

// NewServiceProxy validates the config and brings up the worker pool and
// the pool manager. InitPlugin must have run once before the first proxy is
// built.
func NewServiceProxy(conf config.Client, opts Options) (*ServiceProxy, error) {
	conf.FillDefault()
	if err := conf.Check(); err != nil {
		return nil, err
	}

	s := &ServiceProxy{
		opts:    opts,
		conf:    conf,
		filters: filterChain{filters: opts.Filters},
	}
	if err := s.initWorkerPool(); err != nil {
		return nil, err
	}
	s.initPoolManager()
	return s, nil
}

func (s *ServiceProxy) initWorkerPool() error {
	cores, err := bindcore.ParseCoreGroup(s.conf.WorkerBindCore)
	if err != nil {
		return errors.WithMessage(err, "parse thread_bind_core")
	}
	s.workers = workerpool.NewPool(workerpool.Option{
		WorkerNum: s.conf.WorkerNum,
		BindCores: cores,
	})
	s.workers.Start()
	return nil
}

func (s *ServiceProxy) initPoolManager() {
	s.poolMgr = pool.NewManager(pool.Option{
		MaxSize:       s.opts.MaxConnNum,
		MaxIdleTime:   s.opts.IdleTime,
		NumShardGroup: uint32(s.conf.NumShardGroup),
		UserName:      s.conf.UserName,
		Password:      s.conf.Password,
		DBName:        s.conf.DBName,
		CharSet:       s.conf.CharSet,
		Dial:          s.opts.PoolDial,
	})
}

// Stop quiesces the proxy: no new work, idle connections closed. Destroy
// completes the teardown; callers stop and destroy in LIFO order against
// InitPlugin.
func (s *ServiceProxy) Stop() {
	s.workers.Stop()
	s.poolMgr.Stop()
}

func (s *ServiceProxy) Destroy() {
	s.workers.Join()
	s.poolMgr.Destroy()
}

// SetConfig replaces the client config at runtime, rebuilding the worker
// pool and the pool manager.
func (s *ServiceProxy) SetConfig(conf config.Client) error {
	conf.FillDefault()
	if err := conf.Check(); err != nil {
		return err
	}

	s.Stop()
	s.Destroy()

	s.conf = conf
	if err := s.initWorkerPool(); err != nil {
		return err
	}
	s.initPoolManager()
	return nil
}

// PoolManager exposes the endpoint pools for the admin surface.
func (s *ServiceProxy) PoolManager() *pool.Manager {
	return s.poolMgr
}

// Query executes sql against the context's endpoint and fills rs (raw or
// typed rows, or exec-only). The returned status mirrors ctx.Status().
func (s *ServiceProxy) Query(ctx *ClientContext, rs *executor.Results, sql string, args ...interface{}) Status {
	s.fillClientContext(ctx)

	if s.filters.Run(PointPreRPCInvoke, ctx) == FilterReject {
		logutil.BgLogger().Error("pre rpc filter rejected request",
			zap.String("service", s.opts.ServiceName))
	} else {
		s.unaryInvoke(ctx, nil, rs, sql, args)
	}

	s.filters.Run(PointPostRPCInvoke, ctx)
	return ctx.Status()
}

// Execute is the Query path restricted to statements without a result set.
func (s *ServiceProxy) Execute(ctx *ClientContext, rs *executor.Results, sql string, args ...interface{}) Status {
	return s.Query(ctx, rs, sql, args...)
}

// TxQuery runs sql on the session pinned by handle, which must be in the
// Started state and alive.
func (s *ServiceProxy) TxQuery(ctx *ClientContext, handle *TransactionHandle, rs *executor.Results, sql string, args ...interface{}) Status {
	s.fillClientContext(ctx)

	if s.filters.Run(PointPreRPCInvoke, ctx) == FilterReject {
		logutil.BgLogger().Error("pre rpc filter rejected request",
			zap.String("service", s.opts.ServiceName))
	} else if handle == nil || handle.State() != TxStateStarted {
		state := TxStateInvalid
		if handle != nil {
			state = handle.State()
		}
		logutil.BgLogger().Error("query in an invalid transaction",
			zap.String("service", s.opts.ServiceName), zap.Int("state", int(state)))
		ctx.SetStatus(NewStatus(errno.RetInvalidHandle,
			fmt.Sprintf("invalid transaction state code: %d", int(state))))
	} else if e := handle.Executor(); e == nil || !e.CheckAlive() {
		// The server rolls a broken transaction back on its own; mirror that
		// in the handle state and release the dead session right away.
		logutil.BgLogger().Error("transaction connection lost",
			zap.String("service", s.opts.ServiceName))
		handle.SetState(TxStateRolledBack)
		if dead := handle.TransferExecutor(); dead != nil {
			pl := s.poolMgr.Get(pool.NodeAddr{IP: dead.Host(), Port: dead.Port()})
			pl.Reclaim(1, dead)
		}
		ctx.SetStatus(NewStatus(errno.RetClientConnectErr, "connect error, transaction rolled back"))
	} else {
		s.unaryInvoke(ctx, e, rs, sql, args)
	}

	s.filters.Run(PointPostRPCInvoke, ctx)
	return ctx.Status()
}

// TxExecute is TxQuery for statements without a result set.
func (s *ServiceProxy) TxExecute(ctx *ClientContext, handle *TransactionHandle, rs *executor.Results, sql string, args ...interface{}) Status {
	return s.TxQuery(ctx, handle, rs, sql, args...)
}

// Begin opens a transaction: it pins a freshly acquired session, runs
// "begin" on it and hands back a Started handle.
func (s *ServiceProxy) Begin(ctx *ClientContext) (*TransactionHandle, Status) {
	s.fillClientContext(ctx)

	if s.filters.Run(PointPreRPCInvoke, ctx) == FilterReject {
		logutil.BgLogger().Error("pre rpc filter rejected request",
			zap.String("service", s.opts.ServiceName))
		s.filters.Run(PointPostRPCInvoke, ctx)
		return nil, ctx.Status()
	}

	var handle *TransactionHandle

	addr, err := s.selectNodeAddr(ctx)
	if err != nil {
		ctx.SetStatus(NewStatus(errno.RetClientConnectErr, err.Error()))
	} else {
		pl := s.poolMgr.Get(addr)
		conn := pl.GetExecutor()
		if !conn.IsConnected() {
			ctx.SetStatus(NewStatus(conn.ErrorNumber(), s.connectFailureMessage(conn)))
		} else {
			rs := executor.NewExecResults()
			s.unaryInvoke(ctx, conn, rs, "begin", nil)
			if ctx.Status().OK() {
				handle = NewTransactionHandle()
				handle.SetExecutor(conn)
				handle.SetState(TxStateStarted)
			} else {
				pl.Reclaim(1, conn)
			}
		}
	}

	s.filters.Run(PointPostRPCInvoke, ctx)
	return handle, ctx.Status()
}

// Commit terminates the transaction and reclaims its session.
func (s *ServiceProxy) Commit(ctx *ClientContext, handle *TransactionHandle) Status {
	rs := executor.NewExecResults()
	s.TxExecute(ctx, handle, rs, "commit")
	if ctx.Status().OK() {
		s.endTransaction(handle, false)
	}
	return ctx.Status()
}

// Rollback terminates the transaction and reclaims its session.
func (s *ServiceProxy) Rollback(ctx *ClientContext, handle *TransactionHandle) Status {
	rs := executor.NewExecResults()
	s.TxExecute(ctx, handle, rs, "rollback")
	if ctx.Status().OK() {
		s.endTransaction(handle, true)
	}
	return ctx.Status()
}

// AsyncQuery is Query in future shape; completion and the filter chain run
// off the calling goroutine. The future fails with *Error carrying the
// Results error code and message.
func (s *ServiceProxy) AsyncQuery(ctx *ClientContext, rs *executor.Results, sql string, args ...interface{}) *ResultFuture {
	fut := newResultFuture()
	go func() {
		status := s.Query(ctx, rs, sql, args...)
		finishResultFuture(fut, rs, status)
	}()
	return fut
}

func (s *ServiceProxy) AsyncExecute(ctx *ClientContext, rs *executor.Results, sql string, args ...interface{}) *ResultFuture {
	return s.AsyncQuery(ctx, rs, sql, args...)
}

func (s *ServiceProxy) AsyncTxQuery(ctx *ClientContext, handle *TransactionHandle, rs *executor.Results, sql string, args ...interface{}) *ResultFuture {
	fut := newResultFuture()
	go func() {
		status := s.TxQuery(ctx, handle, rs, sql, args...)
		finishResultFuture(fut, rs, status)
	}()
	return fut
}

func (s *ServiceProxy) AsyncTxExecute(ctx *ClientContext, handle *TransactionHandle, rs *executor.Results, sql string, args ...interface{}) *ResultFuture {
	return s.AsyncTxQuery(ctx, handle, rs, sql, args...)
}

// AsyncBegin resolves to a Started transaction handle.
func (s *ServiceProxy) AsyncBegin(ctx *ClientContext) *TxFuture {
	fut := newTxFuture()
	go func() {
		handle, status := s.Begin(ctx)
		if status.OK() {
			fut.resolve(handle)
		} else {
			fut.fail(statusError(status))
		}
	}()
	return fut
}

func (s *ServiceProxy) AsyncCommit(ctx *ClientContext, handle *TransactionHandle) *ResultFuture {
	fut := newResultFuture()
	go func() {
		status := s.Commit(ctx, handle)
		if status.OK() {
			fut.resolve(nil)
		} else {
			fut.fail(statusError(status))
		}
	}()
	return fut
}

func (s *ServiceProxy) AsyncRollback(ctx *ClientContext, handle *TransactionHandle) *ResultFuture {
	fut := newResultFuture()
	go func() {
		status := s.Rollback(ctx, handle)
		if status.OK() {
			fut.resolve(nil)
		} else {
			fut.fail(statusError(status))
		}
	}()
	return fut
}

func finishResultFuture(fut *ResultFuture, rs *executor.Results, status Status) {
	if status.OK() {
		fut.resolve(rs)
		return
	}
	fut.fail(statusError(status))
}

// unaryInvoke runs one statement on the worker pool and blocks the calling
// goroutine until the completion signal. When pinned is nil a session is
// acquired from (and reclaimed to) the endpoint pool; a pinned session is
// left alone.
func (s *ServiceProxy) unaryInvoke(ctx *ClientContext, pinned *executor.Executor, rs *executor.Results, sql string, args []interface{}) {
	if s.checkTimeout(ctx) {
		return
	}

	if s.filters.Run(PointPreSendMsg, ctx) == FilterReject {
		s.filters.Run(PointPostRecvMsg, ctx)
		return
	}

	var addr pool.NodeAddr
	if pinned == nil {
		var err error
		addr, err = s.selectNodeAddr(ctx)
		if err != nil {
			ctx.SetStatus(NewStatus(errno.RetClientConnectErr, err.Error()))
			s.filters.Run(PointPostRecvMsg, ctx)
			return
		}
	}

	span := opentracing.StartSpan("mysql_unary_invoke")
	span.SetTag("service.name", s.opts.ServiceName)
	start := time.Now()

	done := make(chan struct{})
	submitErr := s.workers.Submit(func() {
		defer close(done)

		var pl *pool.Pool
		conn := pinned
		if conn == nil {
			pl = s.poolMgr.Get(addr)
			conn = pl.GetExecutor()
		}

		if !conn.IsConnected() {
			msg := s.connectFailureMessage(conn)
			logutil.BgLogger().Error("mysql connection unavailable",
				zap.String("service", s.opts.ServiceName), zap.String("error", msg))
			ctx.SetStatus(NewStatus(conn.ErrorNumber(), msg))
			return
		}

		if rs.Mode() == executor.ModeExec {
			_ = conn.Execute(rs, sql, args...)
		} else {
			_ = conn.QueryAll(rs, sql, args...)
		}

		if pl != nil {
			pl.Reclaim(0, conn)
		}
	})
	if submitErr != nil {
		ctx.SetStatus(NewStatus(errno.RetConnectionErr, "proxy worker pool is stopped"))
		span.Finish()
		s.filters.Run(PointPostRecvMsg, ctx)
		return
	}

	// The completion signal parks only this goroutine; carrier threads stay
	// free.
	<-done

	if !rs.OK() {
		ctx.SetStatus(NewStatus(rs.ErrorNumber(), rs.ErrorMessage()))
	}

	span.SetTag("status.code", ctx.Status().Code())
	span.Finish()
	s.observe(rs, ctx.Status(), start)

	s.filters.Run(PointPostRecvMsg, ctx)
}

func (s *ServiceProxy) observe(rs *executor.Results, status Status, start time.Time) {
	opType := "query"
	if rs.Mode() == executor.ModeExec {
		opType = "exec"
	}
	result := metrics.RetLabel(nil)
	if !status.OK() {
		result = metrics.RetLabel(errors.New(status.Message()))
	}
	metrics.QueryTotalCounter.WithLabelValues(s.opts.ServiceName, opType, result).Inc()
	metrics.QueryDurationHistogram.WithLabelValues(s.opts.ServiceName, opType).
		Observe(time.Since(start).Seconds())
}

func (s *ServiceProxy) endTransaction(handle *TransactionHandle, rollback bool) {
	if rollback {
		handle.SetState(TxStateRolledBack)
	} else {
		handle.SetState(TxStateCommitted)
	}

	e := handle.TransferExecutor()
	if e == nil {
		return
	}
	// The origin pool is re-derived from the executor's endpoint; handles
	// hold no pool back-pointer.
	pl := s.poolMgr.Get(pool.NodeAddr{IP: e.Host(), Port: e.Port()})
	pl.Reclaim(0, e)
}

func (s *ServiceProxy) fillClientContext(ctx *ClientContext) {
	// Every operation starts from OK so a reused context reports only the
	// outcome of its latest operation.
	ctx.SetStatus(StatusOK)
	if ctx.ServiceName == "" {
		ctx.ServiceName = s.opts.ServiceName
	}
	if ctx.Timeout == 0 {
		ctx.Timeout = s.opts.Timeout
	}
	if ctx.Deadline().IsZero() && ctx.Timeout > 0 {
		ctx.SetDeadline(time.Now().Add(ctx.Timeout))
	}
}

// selectNodeAddr picks the endpoint: the context target when set (selector
// bypass for direct-target testing), otherwise the registered selector,
// otherwise the configured fallback target.
func (s *ServiceProxy) selectNodeAddr(ctx *ClientContext) (pool.NodeAddr, error) {
	if ctx.IP != "" {
		return pool.NodeAddr{IP: ctx.IP, Port: ctx.Port}, nil
	}

	if s.opts.Selector != nil {
		// A scratch context keeps selector state off the caller's context.
		tmp := NewClientContext()
		s.fillClientContext(tmp)
		addr, err := s.opts.Selector.Select(tmp)
		if err != nil {
			logutil.BgLogger().Error("select target failed",
				zap.String("service", s.opts.ServiceName), zap.Error(err))
			return pool.NodeAddr{}, errors.WithMessage(err, "select target")
		}
		return addr, nil
	}

	if s.opts.Target.IP != "" {
		return s.opts.Target, nil
	}
	return pool.NodeAddr{}, errors.New("no target endpoint: context ip empty and no selector registered")
}

func (s *ServiceProxy) checkTimeout(ctx *ClientContext) bool {
	if ctx.DeadlineExceeded() {
		ctx.SetStatus(NewStatus(errno.RetClientTimeout, "request deadline exceeded"))
		return true
	}
	return false
}

func (s *ServiceProxy) connectFailureMessage(e *executor.Executor) string {
	return fmt.Sprintf("service name:%s, connection failed. %s", s.opts.ServiceName, e.ErrorMessage())
}
