package attest

import "fmt"

// ImportError reports an attested fact that failed native verification. It
// is recoverable: the circuit is untouched, re-fetch the fact and retry.
type ImportError struct {
	Number uint64
	Reason string
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot import header %d: %s: %v", e.Number, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot import header %d: %s", e.Number, e.Reason)
}

func (e *ImportError) Unwrap() error { return e.Err }
