package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidb-incubator/ferry/pkg/client/executor"
)

func newDetachedExecutor() *executor.Executor {
	return executor.NewExecutor(executor.ConnOption{Host: "127.0.0.1", Port: 3306})
}

func TestTransactionHandleStateMachine(t *testing.T) {
	h := NewTransactionHandle()
	assert.Equal(t, TxStateNotInited, h.State())

	h.SetState(TxStateStarted)
	assert.Equal(t, TxStateStarted, h.State())

	h.SetState(TxStateCommitted)
	assert.Equal(t, TxStateCommitted, h.State())
}

func TestTransactionHandlePinning(t *testing.T) {
	h := NewTransactionHandle()
	e := newDetachedExecutor()

	require.True(t, h.SetExecutor(e))
	assert.Equal(t, e, h.Executor())

	// A second pin is refused while the first is held.
	assert.False(t, h.SetExecutor(newDetachedExecutor()))

	got := h.TransferExecutor()
	assert.Equal(t, e, got)
	assert.Nil(t, h.Executor())

	// Once empty the handle accepts a pin again.
	assert.True(t, h.SetExecutor(e))
}

func TestTransactionHandleInvalidate(t *testing.T) {
	h := NewTransactionHandle()
	e := newDetachedExecutor()
	require.True(t, h.SetExecutor(e))
	h.SetState(TxStateStarted)

	got := h.Invalidate()
	assert.Equal(t, e, got)
	assert.Equal(t, TxStateInvalid, h.State())
	assert.Nil(t, h.Executor())
}

func TestFinalizerClosesLeakedExecutor(t *testing.T) {
	h := NewTransactionHandle()
	e := newDetachedExecutor()
	require.True(t, h.SetExecutor(e))

	// Run the fallback directly; relying on GC timing makes the test flaky.
	finalizeTransactionHandle(h)
	assert.Nil(t, h.executor)
	assert.Equal(t, TxStateInvalid, h.state)
	assert.False(t, e.IsConnected())
}
