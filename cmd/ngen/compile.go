package main

import (
	"github.com/hramberg-labs/ngen/src/cgen"
	"github.com/hramberg-labs/ngen/src/target"
)

// Listing pairs a compiled procedure's name with its rendered assembly
// text, the shape newCompileCmd prints one per sample procedure.
type Listing struct {
	Name string
	Asm  string
}

// compileSamples runs every built-in sample procedure through cgen.New(t,
// proc).Compile() and collects each one's rendered instruction stream.
func compileSamples(t *target.Target) ([]Listing, error) {
	var out []Listing
	for _, proc := range sampleProcedures() {
		cg := cgen.New(t, proc)
		if err := cg.Compile(); err != nil {
			return nil, err
		}
		out = append(out, Listing{Name: proc.Sym.Name, Asm: cg.Buf.String()})
	}
	return out, nil
}
