package provider

import "fmt"

// FetchError reports a failure to obtain chain data from a remote endpoint.
// It is transient: retry, or switch endpoints.
type FetchError struct {
	Op     string
	Number uint64
	Err    error
}

func (e *FetchError) Error() string {
	if e.Op == "dial" {
		return fmt.Sprintf("cannot reach endpoint: %v", e.Err)
	}
	return fmt.Sprintf("fetching %s %d: %v", e.Op, e.Number, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
