package builder

import "fmt"

// BuilderStateError reports a construction call made in a state that forbids
// it, typically any mutation after Finalize. It indicates misuse of the
// construction API and is never retried.
type BuilderStateError struct {
	Op    string
	State string
}

func (e *BuilderStateError) Error() string {
	return fmt.Sprintf("builder is %s: cannot %s", e.State, e.Op)
}
