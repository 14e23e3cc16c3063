package layout

import "fmt"

// CapacityError reports that the circuit does not fit the requested degree.
// It is recoverable: rebuild with a higher degree.
type CapacityError struct {
	Degree int
	Needed int
	Usable int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("circuit needs %d rows but degree %d provides %d: raise the degree and rebuild", e.Needed, e.Degree, e.Usable)
}
