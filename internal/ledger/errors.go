package ledger

import (
	"errors"
	"fmt"
)

// ErrTailConflict is returned by Store.AppendIfTailMatches when the chain's
// tail moved between the appender's read and its write: a concurrent append
// won the race. Retryable — re-read the tail and recompute.
var ErrTailConflict = errors.New("ledger: chain tail moved during append")

// ErrRetriesExhausted is returned by Appender.Append when the bounded retry
// loop gives up. The event is not lost from the caller's perspective; the
// caller resubmits.
var ErrRetriesExhausted = errors.New("ledger: append retries exhausted")

// StoreError wraps a transient ChainStore I/O failure. An append that fails
// with a StoreError may or may not have been applied; the appender re-reads
// the tail before retrying so a write that did land is detected rather than
// duplicated.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ledger store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
