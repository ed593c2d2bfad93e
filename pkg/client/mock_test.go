package client

import (
	"sync"

	"github.com/pingcap/errors"

	"github.com/tidb-incubator/ferry/pkg/client/executor"
)

type stubField struct {
	name string
	typ  uint8
}

type stubRowSet struct {
	affected uint64
	fields   []stubField
	rows     [][]interface{}
}

func (f *stubRowSet) AffectedRows() uint64 { return f.affected }
func (f *stubRowSet) RowCount() int        { return len(f.rows) }
func (f *stubRowSet) FieldCount() int      { return len(f.fields) }

func (f *stubRowSet) FieldName(col int) string {
	return f.fields[col].name
}

func (f *stubRowSet) FieldType(col int) uint8 {
	return f.fields[col].typ
}

func (f *stubRowSet) Value(row, col int) (interface{}, error) {
	return f.rows[row][col], nil
}

type stubStmt struct {
	paramNum  int
	columnNum int
	executeFn func(args ...interface{}) (executor.RowSet, error)
}

func (s *stubStmt) ParamNum() int  { return s.paramNum }
func (s *stubStmt) ColumnNum() int { return s.columnNum }

func (s *stubStmt) Execute(args ...interface{}) (executor.RowSet, error) {
	if s.executeFn != nil {
		return s.executeFn(args...)
	}
	return &stubRowSet{}, nil
}

func (s *stubStmt) Close() error { return nil }

type stubConn struct {
	mu         sync.Mutex
	pingErr    error
	executeFn  func(command string, args ...interface{}) (executor.RowSet, error)
	prepareFn  func(query string) (executor.Stmt, error)
	commands   []string
	closeCount int
}

func (c *stubConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *stubConn) setPingErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

func (c *stubConn) Execute(command string, args ...interface{}) (executor.RowSet, error) {
	c.mu.Lock()
	c.commands = append(c.commands, command)
	fn := c.executeFn
	c.mu.Unlock()
	if fn != nil {
		return fn(command, args...)
	}
	return &stubRowSet{}, nil
}

func (c *stubConn) executedCommands() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.commands))
	copy(out, c.commands)
	return out
}

func (c *stubConn) Prepare(query string) (executor.Stmt, error) {
	if c.prepareFn != nil {
		return c.prepareFn(query)
	}
	return nil, errors.New("prepare not stubbed")
}

func (c *stubConn) SetCharset(charset string) error { return nil }
func (c *stubConn) GetConnectionID() uint32         { return 0 }

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeCount++
	return nil
}

type stubDialer struct {
	mu       sync.Mutex
	dials    int
	failDial bool
	makeConn func() *stubConn
	conns    []*stubConn
}

func (d *stubDialer) dial(opt executor.ConnOption) (executor.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failDial {
		return nil, errors.Errorf("dial %s refused", opt.Addr())
	}
	var conn *stubConn
	if d.makeConn != nil {
		conn = d.makeConn()
	} else {
		conn = &stubConn{}
	}
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *stubDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *stubDialer) lastConn() *stubConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}
