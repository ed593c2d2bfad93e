package client

import (
	"fmt"

	"github.com/tidb-incubator/ferry/pkg/client/errno"
)

// Status is the framework-level outcome of one proxy operation. It is
// independent of the MySQL error pair carried inside a Results: a query can
// fail at the MySQL layer while the dispatch itself was fine, and vice
// versa.
type Status struct {
	code    int
	message string
}

var StatusOK = Status{}

func NewStatus(code int, message string) Status {
	return Status{code: code, message: message}
}

func (s Status) OK() bool {
	return s.code == errno.RetOK
}

func (s Status) Code() int {
	return s.code
}

func (s Status) Message() string {
	return s.message
}

func (s Status) String() string {
	if s.OK() {
		return "OK"
	}
	return fmt.Sprintf("code: %d, message: %s", s.code, s.message)
}

// Error is the failure surfaced by the future-returning operations. It
// preserves the numeric code so the async path loses nothing the sync path
// reports.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mysql client error %d: %s", e.Code, e.Message)
}

func statusError(s Status) *Error {
	return &Error{Code: s.Code(), Message: s.Message()}
}

func resultsError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}
