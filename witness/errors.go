package witness

import (
	"fmt"

	"github.com/verity-zk/chainscaffold/ir"
)

// MismatchError reports a constraint the replayed witness does not satisfy.
// It always indicates a defect in a gadget: the constraint emitter and the
// evaluator disagree. There is no recovery; fix the gadget.
type MismatchError struct {
	Region ir.RegionID
	Kind   string
	Index  int
	Detail string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("witness does not satisfy %s %d of region %d (%s): gadget defect", e.Kind, e.Index, e.Region, e.Detail)
}
