package client

import (
	"github.com/tidb-incubator/ferry/pkg/client/executor"
)

// The futures below substitute the source runtime's promise type with a
// channel-backed value: Get blocks the calling goroutine, Then schedules a
// continuation. Failures carry *Error so the numeric code survives the
// async hop.

// ResultFuture resolves to a filled Results or fails with *Error.
type ResultFuture struct {
	done chan struct{}
	res  *executor.Results
	err  *Error
}

func newResultFuture() *ResultFuture {
	return &ResultFuture{done: make(chan struct{})}
}

func failedResultFuture(err *Error) *ResultFuture {
	f := newResultFuture()
	f.fail(err)
	return f
}

func (f *ResultFuture) resolve(res *executor.Results) {
	f.res = res
	close(f.done)
}

func (f *ResultFuture) fail(err *Error) {
	f.err = err
	close(f.done)
}

// Get blocks until completion.
func (f *ResultFuture) Get() (*executor.Results, error) {
	<-f.done
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

// Then runs fn asynchronously once the future completes. It returns the
// receiver so chains read naturally; fn's error (nil on success) is the
// future's *Error.
func (f *ResultFuture) Then(fn func(res *executor.Results, err error)) *ResultFuture {
	go func() {
		res, err := f.Get()
		fn(res, err)
	}()
	return f
}

// TxFuture resolves to a started TransactionHandle or fails with *Error.
type TxFuture struct {
	done   chan struct{}
	handle *TransactionHandle
	err    *Error
}

func newTxFuture() *TxFuture {
	return &TxFuture{done: make(chan struct{})}
}

func failedTxFuture(err *Error) *TxFuture {
	f := newTxFuture()
	f.fail(err)
	return f
}

func (f *TxFuture) resolve(handle *TransactionHandle) {
	f.handle = handle
	close(f.done)
}

func (f *TxFuture) fail(err *Error) {
	f.err = err
	close(f.done)
}

func (f *TxFuture) Get() (*TransactionHandle, error) {
	<-f.done
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

func (f *TxFuture) Then(fn func(handle *TransactionHandle, err error)) *TxFuture {
	go func() {
		handle, err := f.Get()
		fn(handle, err)
	}()
	return f
}
