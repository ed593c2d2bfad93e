package client

import (
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/tidb-incubator/ferry/pkg/client/executor"
	"github.com/tidb-incubator/ferry/pkg/util/logutil"
)

// TxState is the transaction handle's lifecycle position.
type TxState int

const (
	TxStateNotInited TxState = iota
	TxStateStarted
	TxStateRolledBack
	TxStateCommitted
	TxStateInvalid
)

// TransactionHandle pins one executor across a begin ... commit|rollback
// span. The executor goes back to its pool exactly once, through the
// proxy's end-of-transaction path. A handle that is garbage collected while
// still holding its executor is a caller bug: the fallback logs and closes
// the connection so it cannot leak.
type TransactionHandle struct {
	mu       sync.Mutex
	state    TxState
	executor *executor.Executor
}

func NewTransactionHandle() *TransactionHandle {
	h := &TransactionHandle{state: TxStateNotInited}
	runtime.SetFinalizer(h, finalizeTransactionHandle)
	return h
}

func finalizeTransactionHandle(h *TransactionHandle) {
	if h.executor != nil {
		logutil.BgLogger().Error("transaction handle dropped with an unreclaimed connection, closing it",
			zap.Uint64("executor_id", h.executor.ExecutorID()),
			zap.String("endpoint", h.executor.Endpoint()))
		h.executor.Close()
		h.executor = nil
	}
	h.state = TxStateInvalid
}

func (h *TransactionHandle) SetState(state TxState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = state
}

func (h *TransactionHandle) State() TxState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// SetExecutor pins the executor; it refuses to overwrite an existing pin.
func (h *TransactionHandle) SetExecutor(e *executor.Executor) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.executor != nil {
		return false
	}
	h.executor = e
	return true
}

func (h *TransactionHandle) Executor() *executor.Executor {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.executor
}

// TransferExecutor moves the pinned executor out, leaving the handle empty.
func (h *TransactionHandle) TransferExecutor() *executor.Executor {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.executor
	h.executor = nil
	return e
}

// Invalidate is the move-equivalent: the handle forgets its executor and
// becomes unusable. The caller takes over the returned executor.
func (h *TransactionHandle) Invalidate() *executor.Executor {
	h.mu.Lock()
	defer h.mu.Unlock()
	e := h.executor
	h.executor = nil
	h.state = TxStateInvalid
	return e
}
