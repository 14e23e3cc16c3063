// Package chainscaffold assembles circuits that prove statements about
// historical chain data. A scaffold wires a fact source to a circuit
// builder: headers are imported through attested facts, predicates over
// their fields are built from the gadget catalog, and the finalized circuit
// is laid out, assigned and handed to a proof driver.
//
// The usual flow:
//
//	s := chainscaffold.New(cfg, source)
//	hdr, err := s.ImportHeader(number)
//	ok, err := s.TimestampAfter(hdr, threshold)
//	err = s.MarkPublic(ok)
//	compiled, err := s.Compile()
//	proof, err := compiled.Prove(ctx, driver.Mock{})
package chainscaffold

import (
	"context"
	"fmt"
	"time"

	"github.com/consensys/gnark/logger"

	"github.com/verity-zk/chainscaffold/attest"
	"github.com/verity-zk/chainscaffold/builder"
	"github.com/verity-zk/chainscaffold/driver"
	"github.com/verity-zk/chainscaffold/field"
	"github.com/verity-zk/chainscaffold/gadget"
	"github.com/verity-zk/chainscaffold/ir"
	"github.com/verity-zk/chainscaffold/layout"
	"github.com/verity-zk/chainscaffold/provider"
	"github.com/verity-zk/chainscaffold/witness"
)

// Config sizes and labels a scaffold. The zero value is usable: degree
// defaults to layout.DefaultDegree.
type Config struct {
	// Degree fixes the row capacity at 2^Degree.
	Degree int

	// Network tags logs and artifacts; it does not affect circuits.
	Network string
}

// Scaffold builds one circuit instance over facts from one source.
type Scaffold struct {
	cfg      Config
	fld      *field.Context
	src      provider.Source
	importer *attest.Importer
	b        *builder.Builder
}

// New returns a scaffold whose imports are verified against the source's
// commitment.
func New(cfg Config, src provider.Source) *Scaffold {
	if cfg.Degree == 0 {
		cfg.Degree = layout.DefaultDegree
	}
	fld := field.BN254()
	return &Scaffold{
		cfg:      cfg,
		fld:      fld,
		src:      src,
		importer: attest.NewImporter(src.Commitment()),
		b:        builder.New(fld),
	}
}

// Builder exposes the underlying circuit builder for direct gadget calls.
func (s *Scaffold) Builder() *builder.Builder { return s.b }

// Field returns the scalar field context of this scaffold.
func (s *Scaffold) Field() *field.Context { return s.fld }

// ImportHeader fetches the fact for a block and binds it into the circuit.
// Failures of the fact or its verification are recoverable; the circuit is
// left untouched and the import can be retried.
func (s *Scaffold) ImportHeader(number uint64) (*attest.Header, error) {
	fact, err := s.src.FactByNumber(number)
	if err != nil {
		return nil, err
	}
	return s.importer.ImportHeader(s.b, fact)
}

// TimestampAfter emits the strict comparison "header timestamp > threshold"
// and returns its boolean result cell.
func (s *Scaffold) TimestampAfter(h *attest.Header, threshold uint64) (ir.CellID, error) {
	w := attest.FieldTime.Width()
	if threshold>>uint(8*w) != 0 {
		return 0, fmt.Errorf("threshold %d does not fit the %d-byte timestamp", threshold, w)
	}
	th, err := s.b.Constant(s.fld.FromUint64(threshold))
	if err != nil {
		return 0, err
	}
	return gadget.IsLess(s.b, th, h.TimestampCell(), w)
}

// MarkPublic exposes a cell in the public instance. Exposure order is
// instance order.
func (s *Scaffold) MarkPublic(c ir.CellID) error { return s.b.MarkPublic(c) }

// Compiled is a finalized circuit with its column geometry. It can be
// assigned and proven any number of times.
type Compiled struct {
	fld     *field.Context
	circuit *ir.Circuit
	geo     *layout.Geometry
}

// Compile finalizes the circuit and computes its geometry at the configured
// degree. After Compile the scaffold accepts no further construction calls.
func (s *Scaffold) Compile() (*Compiled, error) {
	start := time.Now()
	c, err := s.b.Finalize()
	if err != nil {
		return nil, err
	}
	geo, err := layout.Configure(c, layout.Params{Degree: s.cfg.Degree})
	if err != nil {
		return nil, err
	}

	stats := c.GetStats()
	log := logger.Logger()
	log.Info().
		Str("network", s.cfg.Network).
		Int("nbCells", stats.NbCells).
		Int("nbGates", stats.NbGates).
		Int("nbLookups", stats.NbLookups).
		Int("nbRegions", stats.NbRegions).
		Int("nbPublic", stats.NbPublic).
		Int("nbAdvice", geo.NbAdvice).
		Int("degree", geo.Degree).
		Dur("took", time.Since(start)).
		Msg("compiled")
	return &Compiled{fld: s.fld, circuit: c, geo: geo}, nil
}

// Circuit returns the finalized constraint system.
func (c *Compiled) Circuit() *ir.Circuit { return c.circuit }

// Geometry returns the column layout.
func (c *Compiled) Geometry() *layout.Geometry { return c.geo }

// Stats returns the circuit statistics.
func (c *Compiled) Stats() ir.Stats { return c.circuit.GetStats() }

// Assign replays the operation log into a witness and packs the proving
// bundle.
func (c *Compiled) Assign() (*driver.Bundle, error) {
	t, err := witness.Assign(c.fld, c.circuit)
	if err != nil {
		return nil, err
	}
	return &driver.Bundle{
		Circuit:  c.circuit,
		Geometry: c.geo,
		Witness:  t,
		Public:   t.Public(c.circuit),
	}, nil
}

// Prove assigns the witness and hands the bundle to the driver.
func (c *Compiled) Prove(ctx context.Context, d driver.Driver) (*driver.Proof, error) {
	bundle, err := c.Assign()
	if err != nil {
		return nil, err
	}
	return d.Prove(ctx, bundle)
}

// Mock proves with the mock driver: the bundle is fully re-checked but no
// real proof is produced.
func (c *Compiled) Mock(ctx context.Context) (*driver.Proof, error) {
	return c.Prove(ctx, driver.Mock{})
}

// Prove is the one-shot path: finalize, lay out, assign and prove.
func (s *Scaffold) Prove(ctx context.Context, d driver.Driver) (*driver.Proof, error) {
	compiled, err := s.Compile()
	if err != nil {
		return nil, err
	}
	return compiled.Prove(ctx, d)
}
