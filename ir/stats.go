package ir

// Stats summarizes a circuit's size for compile-time reporting.
type Stats struct {
	NbCells   int
	NbGates   int
	NbLookups int
	NbRegions int
	NbPublic  int
	// Rows is the total row demand over all regions, before packing.
	Rows int
	// Levels is the depth of the replay wave order.
	Levels int
	// OpCounts counts ops per kind.
	OpCounts map[Kind]int
}

func (c *Circuit) GetStats() Stats {
	r := Stats{
		NbCells:   c.NbCells,
		NbGates:   len(c.Gates),
		NbLookups: len(c.Lookups),
		NbRegions: len(c.Regions),
		NbPublic:  len(c.Public),
		OpCounts:  make(map[Kind]int),
	}
	for _, reg := range c.Regions {
		r.Rows += reg.Rows
		if reg.Level+1 > r.Levels {
			r.Levels = reg.Level + 1
		}
	}
	for _, op := range c.Ops {
		r.OpCounts[op.Kind]++
	}
	return r
}
