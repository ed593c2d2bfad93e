// Package errno defines the framework return codes used by the ferry client.
//
// MySQL server and statement errors keep their native numeric codes
// (https://dev.mysql.com/doc/mysql-errors/8.0/en/). The codes below live in
// ranges that do not overlap with them.
package errno

const (
	// RetOK means no error.
	RetOK = 0

	// RetClientTimeout is set when the context deadline has already passed
	// before a statement is dispatched. The deadline is not checked again
	// after the statement completes.
	RetClientTimeout = 101

	// RetClientConnectErr is set when a pinned transaction connection fails
	// its liveness check.
	RetClientConnectErr = 111

	// RetConnectionErr is set when connect or reconnect fails.
	RetConnectionErr = 3501

	// RetInvalidHandle is set when a transaction operation is issued on a
	// handle that is not in the Started state.
	RetInvalidHandle = 3502

	// RetStmtParamsErr is set when the declared output schema does not match
	// the prepared-statement result metadata.
	RetStmtParamsErr = 3503
)
