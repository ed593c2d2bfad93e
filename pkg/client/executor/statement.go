package executor

import (
	"github.com/pingcap/errors"
	gomysql "github.com/siddontang/go-mysql/mysql"

	"github.com/tidb-incubator/ferry/pkg/client/errno"
)

// fetchStatus is the outcome of one row fetch.
type fetchStatus int

const (
	fetchOK fetchStatus = iota
	// fetchTruncated means at least one variable-length column did not fit
	// its buffer; the caller regrows and refetches the tails before decoding.
	fetchTruncated
	fetchNoData
	fetchErr
)

// Statement is the short-lived prepared-statement handle of one execution.
// Lifecycle: Init -> BindParams -> Execute -> fetch -> Close. Close must run
// before the statement is dropped.
type Statement struct {
	conn Conn
	stmt Stmt

	fieldCount  int
	paramsCount int

	binds  []InputBind
	args   []interface{}
	set    RowSet
	cursor int
	handle *queryHandle

	errNumber  int
	errMessage string
}

func NewStatement(conn Conn) *Statement {
	return &Statement{conn: conn}
}

// Init prepares the SQL and captures the field and parameter counts.
func (s *Statement) Init(sql string) error {
	stmt, err := s.conn.Prepare(sql)
	if err != nil {
		s.recordError(err)
		return err
	}
	s.stmt = stmt
	s.fieldCount = stmt.ColumnNum()
	s.paramsCount = stmt.ParamNum()
	return nil
}

// BindParams stores the input descriptors and normalised driver arguments
// for Execute. The count must equal ParamsCount.
func (s *Statement) BindParams(binds []InputBind, args []interface{}) error {
	if len(binds) != len(args) || len(args) != s.paramsCount {
		err := errors.Errorf("statement expects %d parameters, got %d", s.paramsCount, len(args))
		s.errNumber = errno.RetStmtParamsErr
		s.errMessage = err.Error()
		return err
	}
	s.binds = binds
	s.args = args
	return nil
}

// Execute runs the prepared statement and stores the full result.
func (s *Statement) Execute() error {
	set, err := s.stmt.Execute(s.args...)
	if err != nil {
		s.recordError(err)
		return err
	}
	s.set = set
	s.cursor = 0
	return nil
}

// ResultSet exposes the stored result (metadata included); valid after
// Execute.
func (s *Statement) ResultSet() RowSet {
	return s.set
}

// BindResult attaches the output handle rows are fetched into.
func (s *Statement) BindResult(handle *queryHandle) {
	s.handle = handle
}

// Fetch copies the next row into the bound output buffers. A truncated
// status still consumes the row; FetchColumn re-reads its tail.
func (s *Statement) Fetch() (fetchStatus, error) {
	if s.set == nil || s.handle == nil {
		return fetchErr, errors.New("statement has no executed result bound")
	}
	if s.cursor >= s.set.RowCount() {
		return fetchNoData, nil
	}

	truncated := false
	for col := 0; col < s.fieldCount; col++ {
		value, err := s.set.Value(s.cursor, col)
		if err != nil {
			s.recordError(err)
			return fetchErr, err
		}
		colTruncated, err := s.handle.setColumn(col, value)
		if err != nil {
			s.recordError(err)
			return fetchErr, err
		}
		truncated = truncated || colTruncated
	}

	s.cursor++
	if truncated {
		return fetchTruncated, nil
	}
	return fetchOK, nil
}

// FetchColumn refetches the bytes of one column of the row Fetch just
// consumed, starting at offset, into the regrown buffer.
func (s *Statement) FetchColumn(col, offset int) error {
	if s.cursor == 0 {
		return errors.New("FetchColumn before any Fetch")
	}
	value, err := s.set.Value(s.cursor-1, col)
	if err != nil {
		s.recordError(err)
		return err
	}
	if err := s.handle.setColumnTail(col, offset, value); err != nil {
		s.recordError(err)
		return err
	}
	return nil
}

// InputBinds exposes the stored input descriptors.
func (s *Statement) InputBinds() []InputBind {
	return s.binds
}

func (s *Statement) FieldCount() int {
	return s.fieldCount
}

func (s *Statement) ParamsCount() int {
	return s.paramsCount
}

func (s *Statement) ErrorNumber() int {
	return s.errNumber
}

func (s *Statement) ErrorMessage() string {
	return s.errMessage
}

// Close releases the server-side statement and the stored result. Safe to
// call when Init failed or more than once.
func (s *Statement) Close() error {
	s.set = nil
	s.handle = nil
	if s.stmt == nil {
		return nil
	}
	err := s.stmt.Close()
	s.stmt = nil
	if err != nil {
		s.recordError(err)
		return err
	}
	return nil
}

func (s *Statement) recordError(err error) {
	s.errNumber, s.errMessage = MysqlError(err)
}

// MysqlError extracts the numeric MySQL error code and message from an
// error chain. Non-MySQL failures (network, protocol) map to
// errno.RetConnectionErr.
func MysqlError(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	cause := errors.Cause(err)
	if myErr, ok := cause.(*gomysql.MyError); ok {
		return int(myErr.Code), myErr.Message
	}
	return errno.RetConnectionErr, err.Error()
}
