package driver

import "fmt"

// ProofError wraps any backend failure. There is no structured recovery
// path; callers log it and decide out of band.
type ProofError struct {
	Driver string
	Err    error
}

func (e *ProofError) Error() string {
	return fmt.Sprintf("proving failed (%s): %v", e.Driver, e.Err)
}

func (e *ProofError) Unwrap() error { return e.Err }
