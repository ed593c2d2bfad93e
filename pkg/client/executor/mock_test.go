package executor

import (
	"github.com/pingcap/errors"
)

// Test doubles for the driver capability surface. Function fields default to
// benign behaviour so tests only wire what they care about.

type fakeField struct {
	name string
	typ  uint8
}

type fakeRowSet struct {
	affected uint64
	fields   []fakeField
	rows     [][]interface{}
}

func (f *fakeRowSet) AffectedRows() uint64 { return f.affected }
func (f *fakeRowSet) RowCount() int        { return len(f.rows) }
func (f *fakeRowSet) FieldCount() int      { return len(f.fields) }

func (f *fakeRowSet) FieldName(col int) string {
	return f.fields[col].name
}

func (f *fakeRowSet) FieldType(col int) uint8 {
	return f.fields[col].typ
}

func (f *fakeRowSet) Value(row, col int) (interface{}, error) {
	if row >= len(f.rows) || col >= len(f.rows[row]) {
		return nil, errors.Errorf("value index (%d, %d) out of range", row, col)
	}
	return f.rows[row][col], nil
}

type fakeStmt struct {
	paramNum  int
	columnNum int
	executeFn func(args ...interface{}) (RowSet, error)

	executedArgs []interface{}
	closeCount   int
}

func (f *fakeStmt) ParamNum() int  { return f.paramNum }
func (f *fakeStmt) ColumnNum() int { return f.columnNum }

func (f *fakeStmt) Execute(args ...interface{}) (RowSet, error) {
	f.executedArgs = args
	if f.executeFn != nil {
		return f.executeFn(args...)
	}
	return &fakeRowSet{}, nil
}

func (f *fakeStmt) Close() error {
	f.closeCount++
	return nil
}

type fakeConn struct {
	pingErr   error
	executeFn func(command string, args ...interface{}) (RowSet, error)
	prepareFn func(query string) (Stmt, error)

	executedCommands []string
	closeCount       int
}

func (f *fakeConn) Ping() error {
	return f.pingErr
}

func (f *fakeConn) Execute(command string, args ...interface{}) (RowSet, error) {
	f.executedCommands = append(f.executedCommands, command)
	if f.executeFn != nil {
		return f.executeFn(command, args...)
	}
	return &fakeRowSet{}, nil
}

func (f *fakeConn) Prepare(query string) (Stmt, error) {
	if f.prepareFn != nil {
		return f.prepareFn(query)
	}
	return &fakeStmt{}, nil
}

func (f *fakeConn) SetCharset(charset string) error { return nil }
func (f *fakeConn) GetConnectionID() uint32         { return 1 }

func (f *fakeConn) Close() error {
	f.closeCount++
	return nil
}

// fakeDialer hands out fakeConns, optionally failing the first failCount
// dials.
type fakeDialer struct {
	failCount int
	dials     int
	conns     []*fakeConn
	makeConn  func() *fakeConn
}

func (d *fakeDialer) dial(opt ConnOption) (Conn, error) {
	d.dials++
	if d.dials <= d.failCount {
		return nil, errors.Errorf("dial %s refused", opt.Addr())
	}
	var conn *fakeConn
	if d.makeConn != nil {
		conn = d.makeConn()
	} else {
		conn = &fakeConn{}
	}
	d.conns = append(d.conns, conn)
	return conn, nil
}
