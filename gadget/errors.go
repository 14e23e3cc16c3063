package gadget

import "fmt"

// GadgetError reports a gadget invoked with inputs it cannot accept: wrong
// arity, an unknown cell, or a width outside the gadget's declared range. It
// is a programmer error, raised at build time and never retried.
type GadgetError struct {
	Gadget string
	Err    error
}

func (e *GadgetError) Error() string {
	return fmt.Sprintf("gadget %s: %v", e.Gadget, e.Err)
}

func (e *GadgetError) Unwrap() error {
	return e.Err
}

func errArity(nbCoeffs, nbCells int) error {
	return fmt.Errorf("%d coefficients over %d cells", nbCoeffs, nbCells)
}

func errWidth(w, maxW int) error {
	return fmt.Errorf("width %d outside 1..%d", w, maxW)
}
