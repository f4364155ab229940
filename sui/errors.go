package sui

import "errors"

var (
	// ErrLedgerQuery is returned when a ledger object cannot be fetched.
	ErrLedgerQuery = errors.New("ledger query failed")
	// ErrDecode is returned when a ledger object does not have the
	// expected shape.
	ErrDecode = errors.New("cannot decode ledger object")
	// ErrCapacityExceeded is returned when a group has more members than
	// the circuit has slots.
	ErrCapacityExceeded = errors.New("group capacity exceeded")
	// ErrNoFeeResource is returned when the sender owns no gas coin.
	ErrNoFeeResource = errors.New("no gas coin owned by sender")
	// ErrAssembly is returned when the transaction data cannot be encoded.
	ErrAssembly = errors.New("cannot assemble transaction")
	// ErrSigning is returned when the transaction cannot be signed.
	ErrSigning = errors.New("cannot sign transaction")
	// ErrSubmission is returned when the node rejects the transaction or it
	// fails on execution.
	ErrSubmission = errors.New("transaction submission failed")
)
