package executor

import (
	"net"
	"strconv"
	"time"

	"github.com/pingcap/errors"
	"github.com/siddontang/go-mysql/client"
	gomysql "github.com/siddontang/go-mysql/mysql"
	"github.com/siddontang/go/hack"
)

// The executor drives MySQL through the narrow capability surface below.
// The production implementation wraps the go-mysql client; tests substitute
// mocks, so nothing above this file touches the wire protocol.

// Conn is one live MySQL connection.
type Conn interface {
	Ping() error
	Execute(command string, args ...interface{}) (RowSet, error)
	Prepare(query string) (Stmt, error)
	SetCharset(charset string) error
	GetConnectionID() uint32
	Close() error
}

// Stmt is a server-side prepared statement.
type Stmt interface {
	ParamNum() int
	ColumnNum() int
	Execute(args ...interface{}) (RowSet, error)
	Close() error
}

// RowSet is a fully materialised query result: metadata plus row values.
// Values come back as nil (NULL), int64, uint64, float64, string or []byte.
type RowSet interface {
	AffectedRows() uint64
	RowCount() int
	FieldCount() int
	FieldName(col int) string
	FieldType(col int) uint8
	Value(row, col int) (interface{}, error)
}

// ConnOption identifies and authenticates one endpoint connection.
type ConnOption struct {
	Host     string
	Port     uint16
	UserName string
	Password string
	DBName   string
	CharSet  string

	// ConnectTimeout bounds the blocking dial; DefaultDriverTimeout when 0.
	ConnectTimeout time.Duration
}

// DefaultDriverTimeout is the connect timeout applied when the option leaves
// it unset. No read or write timeout is set on the connection.
const DefaultDriverTimeout = 5 * time.Second

func (o ConnOption) Addr() string {
	return net.JoinHostPort(o.Host, strconv.Itoa(int(o.Port)))
}

// DialFunc opens a connection for an executor. Swappable for tests.
type DialFunc func(opt ConnOption) (Conn, error)

// Dial is the production DialFunc.
func Dial(opt ConnOption) (Conn, error) {
	type dialResult struct {
		conn *client.Conn
		err  error
	}

	timeout := opt.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultDriverTimeout
	}

	// client.Connect has no dial deadline of its own, so the blocking dial
	// runs aside and is abandoned on timeout.
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := client.Connect(opt.Addr(), opt.UserName, opt.Password, opt.DBName)
		ch <- dialResult{conn: conn, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		if opt.CharSet != "" {
			if err := r.conn.SetCharset(opt.CharSet); err != nil {
				_ = r.conn.Close()
				return nil, errors.WithMessage(err, "set charset")
			}
		}
		return &mysqlConn{conn: r.conn}, nil
	case <-timer.C:
		go func() {
			if r := <-ch; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, errors.Errorf("connect %s timeout after %s", opt.Addr(), timeout)
	}
}

type mysqlConn struct {
	conn *client.Conn
}

func (c *mysqlConn) Ping() error {
	return c.conn.Ping()
}

func (c *mysqlConn) Execute(command string, args ...interface{}) (RowSet, error) {
	result, err := c.conn.Execute(command, args...)
	if err != nil {
		return nil, err
	}
	return &mysqlRowSet{result: result}, nil
}

func (c *mysqlConn) Prepare(query string) (Stmt, error) {
	stmt, err := c.conn.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &mysqlStmt{stmt: stmt}, nil
}

func (c *mysqlConn) SetCharset(charset string) error {
	return c.conn.SetCharset(charset)
}

func (c *mysqlConn) GetConnectionID() uint32 {
	return c.conn.GetConnectionID()
}

func (c *mysqlConn) Close() error {
	return c.conn.Close()
}

type mysqlStmt struct {
	stmt *client.Stmt
}

func (s *mysqlStmt) ParamNum() int {
	return s.stmt.ParamNum()
}

func (s *mysqlStmt) ColumnNum() int {
	return s.stmt.ColumnNum()
}

func (s *mysqlStmt) Execute(args ...interface{}) (RowSet, error) {
	result, err := s.stmt.Execute(args...)
	if err != nil {
		return nil, err
	}
	return &mysqlRowSet{result: result}, nil
}

func (s *mysqlStmt) Close() error {
	return s.stmt.Close()
}

type mysqlRowSet struct {
	result *gomysql.Result
}

func (r *mysqlRowSet) AffectedRows() uint64 {
	return r.result.AffectedRows
}

func (r *mysqlRowSet) RowCount() int {
	if r.result.Resultset == nil {
		return 0
	}
	return r.result.Resultset.RowNumber()
}

func (r *mysqlRowSet) FieldCount() int {
	if r.result.Resultset == nil {
		return 0
	}
	return len(r.result.Resultset.Fields)
}

func (r *mysqlRowSet) FieldName(col int) string {
	return hack.String(r.result.Resultset.Fields[col].Name)
}

func (r *mysqlRowSet) FieldType(col int) uint8 {
	return r.result.Resultset.Fields[col].Type
}

func (r *mysqlRowSet) Value(row, col int) (interface{}, error) {
	return r.result.Resultset.GetValue(row, col)
}
