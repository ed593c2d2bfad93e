package executor

import (
	"fmt"
	"time"

	"github.com/pingcap/errors"
	"go.uber.org/zap"

	"github.com/tidb-incubator/ferry/pkg/client/errno"
	"github.com/tidb-incubator/ferry/pkg/metrics"
	"github.com/tidb-incubator/ferry/pkg/util/logutil"
)

const reconnectMaxRetries = 5

// Overridable in tests to avoid multi-second backoff sleeps.
var (
	reconnectInitInterval = 100 * time.Millisecond
	reconnectMaxInterval  = 3 * time.Second
)

// Executor owns one MySQL connection plus its per-call bookkeeping. It is
// single-owner: at any instant it is either parked in a pool shard or held
// by exactly one caller. Concurrent use is a bug.
type Executor struct {
	option ConnOption
	dial   DialFunc

	conn        Conn
	isConnected bool
	autoCommit  bool

	aliveTimestamp time.Time
	executorID     uint64

	errNumber  int
	errMessage string
}

// Option customises executor construction.
type Option func(*Executor)

// WithDialFunc swaps the connection factory; tests use it to avoid real
// dials.
func WithDialFunc(dial DialFunc) Option {
	return func(e *Executor) {
		e.dial = dial
	}
}

// NewExecutor builds a disconnected executor; Connect establishes the
// session.
func NewExecutor(option ConnOption, opts ...Option) *Executor {
	e := &Executor{
		option:     option,
		dial:       Dial,
		autoCommit: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Connect establishes the connection; it is a no-op when already connected.
// On failure the executor stays disconnected with the error recorded.
func (e *Executor) Connect() error {
	if e.isConnected {
		return nil
	}

	conn, err := e.dial(e.option)
	if err != nil {
		e.recordError(err)
		return err
	}
	e.conn = conn
	e.isConnected = true
	e.clearError()
	return nil
}

// Close drops the connection. Idempotent. The socket is released even when
// a failed ping already flagged the session as disconnected.
func (e *Executor) Close() {
	if e.conn != nil {
		if err := e.conn.Close(); err != nil {
			logutil.BgLogger().Warn("close mysql connection error",
				zap.String("endpoint", e.option.Addr()), zap.Error(err))
		}
	}
	e.conn = nil
	e.isConnected = false
}

// CheckAlive pings the server. A failed ping flips the executor to the
// disconnected state.
func (e *Executor) CheckAlive() bool {
	if !e.isConnected {
		return false
	}
	if err := e.conn.Ping(); err != nil {
		e.recordError(err)
		e.isConnected = false
		return false
	}
	return true
}

func (e *Executor) Reconnect() error {
	return e.Connect()
}

// StartReconnect retries Connect with capped exponential backoff. It is
// invoked at the head of every statement execution when the liveness check
// fails.
func (e *Executor) StartReconnect() bool {
	interval := reconnectInitInterval
	for i := 0; i < reconnectMaxRetries; i++ {
		if err := e.Reconnect(); err == nil {
			metrics.ExecutorReconnectCounter.WithLabelValues(e.option.Addr(), metrics.RetLabel(nil)).Inc()
			return true
		}
		time.Sleep(interval)
		interval *= 2
		if interval > reconnectMaxInterval {
			interval = reconnectMaxInterval
		}
	}
	metrics.ExecutorReconnectCounter.WithLabelValues(e.option.Addr(), metrics.RetLabel(errors.New("reconnect failed"))).Inc()
	return false
}

// AutoCommit toggles server-side auto-commit and mirrors it locally. The
// mirror is informational; transactions run explicit begin/commit/rollback.
func (e *Executor) AutoCommit(mode bool) error {
	if !e.isConnected {
		return errors.New("executor is not connected")
	}
	stmt := "SET autocommit = 0"
	if mode {
		stmt = "SET autocommit = 1"
	}
	if _, err := e.conn.Execute(stmt); err != nil {
		e.recordError(err)
		return err
	}
	e.autoCommit = mode
	return nil
}

func (e *Executor) IsAutoCommit() bool {
	return e.autoCommit
}

// QueryAll executes sql and materialises every row into rs, which must be a
// raw or typed Results. Failures land in rs's error fields and are also
// returned.
func (e *Executor) QueryAll(rs *Results, sql string, args ...interface{}) error {
	if rs.Mode() == ModeExec {
		return errors.New("QueryAll requires a raw or typed Results; use Execute")
	}
	rs.Clear()

	if err := e.ensureAlive(rs); err != nil {
		return err
	}

	var err error
	if rs.Mode() == ModeRaw {
		err = e.queryRaw(rs, sql, args)
	} else {
		err = e.queryTyped(rs, sql, args)
	}
	if err == nil {
		rs.hasValue = true
	}
	return err
}

// Execute runs a statement with no result set and fills the affected-row
// count. Statements with bound inputs go through the prepared path; bare
// statements use a direct text query.
func (e *Executor) Execute(rs *Results, sql string, args ...interface{}) error {
	if rs.Mode() != ModeExec {
		return errors.New("Execute requires an exec Results; use QueryAll")
	}
	rs.Clear()

	if err := e.ensureAlive(rs); err != nil {
		return err
	}

	if len(args) == 0 {
		set, err := e.conn.Execute(sql)
		if err != nil {
			e.recordError(err)
			rs.setError(MysqlError(err))
			return err
		}
		rs.affectedRows = set.AffectedRows()
		return nil
	}

	stmt := NewStatement(e.conn)
	defer func() {
		if err := stmt.Close(); err != nil {
			logutil.BgLogger().Warn("close statement error", zap.Error(err))
		}
	}()

	if err := stmt.Init(sql); err != nil {
		rs.setError(stmt.ErrorNumber(), stmt.ErrorMessage())
		return err
	}

	binds, driverArgs, err := BindInputArgs(args)
	if err != nil {
		rs.setError(errno.RetStmtParamsErr, err.Error())
		return err
	}
	if err := stmt.BindParams(binds, driverArgs); err != nil {
		rs.setError(stmt.ErrorNumber(), stmt.ErrorMessage())
		return err
	}

	if err := stmt.Execute(); err != nil {
		rs.setError(stmt.ErrorNumber(), stmt.ErrorMessage())
		return err
	}

	rs.affectedRows = stmt.ResultSet().AffectedRows()
	return nil
}

func (e *Executor) queryTyped(rs *Results, sql string, args []interface{}) error {
	stmt := NewStatement(e.conn)
	defer func() {
		if err := stmt.Close(); err != nil {
			logutil.BgLogger().Warn("close statement error", zap.Error(err))
		}
	}()

	if err := stmt.Init(sql); err != nil {
		rs.setError(stmt.ErrorNumber(), stmt.ErrorMessage())
		return err
	}

	// Arity can be validated from the prepare response, before anything
	// executes.
	if stmt.FieldCount() != len(rs.Schema()) {
		msg := fmt.Sprintf("the query returns %d fields, but the schema declares %d",
			stmt.FieldCount(), len(rs.Schema()))
		rs.setError(errno.RetStmtParamsErr, msg)
		return errors.New(msg)
	}

	binds, driverArgs, err := BindInputArgs(args)
	if err != nil {
		rs.setError(errno.RetStmtParamsErr, err.Error())
		return err
	}
	if err := stmt.BindParams(binds, driverArgs); err != nil {
		rs.setError(stmt.ErrorNumber(), stmt.ErrorMessage())
		return err
	}

	if err := stmt.Execute(); err != nil {
		rs.setError(stmt.ErrorNumber(), stmt.ErrorMessage())
		return err
	}

	set := stmt.ResultSet()
	if msg := CheckFieldsSchema(rs.Schema(), set); msg != "" {
		rs.setError(errno.RetStmtParamsErr, msg)
		return errors.New(msg)
	}

	handle := newQueryHandle(rs.Schema(), set, rs.Option().DynamicBufferInitSize)
	stmt.BindResult(handle)

	if err := e.fetchAll(rs, stmt, handle); err != nil {
		return err
	}

	rs.affectedRows = set.AffectedRows()
	rs.setFieldNames(set)
	return nil
}

// fetchAll drains the result row by row, regrowing truncated dynamic
// buffers and refetching only their tails before decoding.
func (e *Executor) fetchAll(rs *Results, stmt *Statement, handle *queryHandle) error {
	for {
		status, err := stmt.Fetch()
		if status == fetchErr {
			rs.setError(stmt.ErrorNumber(), stmt.ErrorMessage())
			return err
		}
		if status == fetchNoData {
			return nil
		}

		if status == fetchTruncated {
			if err := e.fetchTruncatedColumns(stmt, handle); err != nil {
				rs.setError(stmt.ErrorNumber(), stmt.ErrorMessage())
				return err
			}
		}

		row, nulls, err := handle.decodeRow()
		if err != nil {
			rs.setError(errno.RetStmtParamsErr, err.Error())
			return err
		}
		rs.rows = append(rs.rows, row)
		rs.nullFlags = append(rs.nullFlags, nulls)
	}
}

func (e *Executor) fetchTruncatedColumns(stmt *Statement, handle *queryHandle) error {
	for _, col := range handle.dynamicIndex {
		realSize := handle.binds[col].length
		oldSize := len(handle.binds[col].buffer)
		if realSize <= oldSize {
			continue
		}

		handle.growColumn(col, realSize)
		if err := stmt.FetchColumn(col, oldSize); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) queryRaw(rs *Results, sql string, args []interface{}) error {
	text, err := FormatQuery(sql, args)
	if err != nil {
		rs.setError(errno.RetStmtParamsErr, err.Error())
		return err
	}

	set, err := e.conn.Execute(text)
	if err != nil {
		e.recordError(err)
		rs.setError(MysqlError(err))
		return err
	}

	fieldCount := set.FieldCount()
	for i := 0; i < set.RowCount(); i++ {
		row := make([][]byte, 0, fieldCount)
		nulls := make([]bool, fieldCount)
		for j := 0; j < fieldCount; j++ {
			value, err := set.Value(i, j)
			if err != nil {
				rs.setError(MysqlError(err))
				return err
			}
			if value == nil {
				nulls[j] = true
				row = append(row, []byte{})
				continue
			}
			view, err := valueToBytes(value)
			if err != nil {
				rs.setError(errno.RetStmtParamsErr, err.Error())
				return err
			}
			row = append(row, view)
		}
		rs.rawRows = append(rs.rawRows, row)
		rs.nullFlags = append(rs.nullFlags, nulls)
	}

	// The views above alias the stored row set; Results keeps it alive.
	rs.rawSet = set
	rs.affectedRows = set.AffectedRows()
	rs.setFieldNames(set)
	return nil
}

func (e *Executor) ensureAlive(rs *Results) error {
	if e.CheckAlive() {
		return nil
	}
	if e.StartReconnect() {
		return nil
	}
	msg := "mysql server is unavailable"
	if e.errMessage != "" {
		msg = msg + ": " + e.errMessage
	}
	rs.setError(errno.RetConnectionErr, msg)
	return errors.New(msg)
}

// RefreshAliveTime stamps the executor as just used; pools call it on
// reclaim.
func (e *Executor) RefreshAliveTime() {
	e.aliveTimestamp = time.Now()
}

// AliveTime is the wall-clock age since the last reclaim.
func (e *Executor) AliveTime() time.Duration {
	return time.Since(e.aliveTimestamp)
}

func (e *Executor) SetExecutorID(id uint64) {
	e.executorID = id
}

func (e *Executor) ExecutorID() uint64 {
	return e.executorID
}

func (e *Executor) IsConnected() bool {
	return e.isConnected
}

func (e *Executor) Host() string {
	return e.option.Host
}

func (e *Executor) Port() uint16 {
	return e.option.Port
}

func (e *Executor) Endpoint() string {
	return e.option.Addr()
}

func (e *Executor) ErrorNumber() int {
	return e.errNumber
}

func (e *Executor) ErrorMessage() string {
	return e.errMessage
}

func (e *Executor) recordError(err error) {
	e.errNumber, e.errMessage = MysqlError(err)
}

func (e *Executor) clearError() {
	e.errNumber = 0
	e.errMessage = ""
}
