package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidb-incubator/ferry/pkg/client/executor"
)

func TestResultFutureResolve(t *testing.T) {
	fut := newResultFuture()
	rs := executor.NewExecResults()

	go func() {
		time.Sleep(time.Millisecond)
		fut.resolve(rs)
	}()

	res, err := fut.Get()
	require.NoError(t, err)
	assert.Equal(t, rs, res)

	// Get is repeatable after completion.
	res, err = fut.Get()
	require.NoError(t, err)
	assert.Equal(t, rs, res)
}

func TestResultFutureFail(t *testing.T) {
	fut := failedResultFuture(&Error{Code: 1146, Message: "no such table"})
	_, err := fut.Get()
	require.Error(t, err)
	cerr := err.(*Error)
	assert.Equal(t, 1146, cerr.Code)
}

func TestResultFutureThen(t *testing.T) {
	fut := newResultFuture()
	done := make(chan error, 1)
	fut.Then(func(res *executor.Results, err error) {
		done <- err
	})

	fut.fail(&Error{Code: 7, Message: "boom"})
	err := <-done
	require.Error(t, err)
	assert.Equal(t, 7, err.(*Error).Code)
}

func TestTxFuture(t *testing.T) {
	fut := newTxFuture()
	handle := NewTransactionHandle()

	go fut.resolve(handle)
	got, err := fut.Get()
	require.NoError(t, err)
	assert.Equal(t, handle, got)

	failed := failedTxFuture(&Error{Code: 3502, Message: "invalid handle"})
	_, err = failed.Get()
	assert.Error(t, err)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "OK", StatusOK.String())
	s := NewStatus(3502, "invalid handle")
	assert.False(t, s.OK())
	assert.Contains(t, s.String(), "3502")
	assert.Contains(t, statusError(s).Error(), "invalid handle")
	assert.Equal(t, 3502, resultsError(3502, "x").Code)
}
