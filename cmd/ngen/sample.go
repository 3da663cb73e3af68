package main

import (
	"github.com/hramberg-labs/ngen/src/ir"
)

// ---------------------
// ----- Synthetic procedures -----
// ---------------------
//
// cmd/ngen has no front end to parse source into an ir.Node tree, so it
// builds a couple of small procedures by hand -- enough to drive every
// lowering family this back end implements (spec.md §8's testable
// properties) without pulling in a parser. Grounded on vslc/src/main.go's
// `run` staging, minus the lex/parse/optimise stages this module doesn't
// own.

var int64Type = &ir.Type{Kind: ir.KindInt64, Width: 8, Align: 8}

// sampleAdd builds `func add(a, b int64) int64 { return a + b }`: the
// smallest procedure that exercises argument fetch, evaluation order and
// a plain return.
func sampleAdd() *ir.Procedure {
	aSym := &ir.Symbol{Name: "a", Type: int64Type, Class: ir.ClassParam, Offset: 0, Width: 8}
	bSym := &ir.Symbol{Name: "b", Type: int64Type, Class: ir.ClassParam, Offset: 8, Width: 8}

	aNode := &ir.Node{Op: ir.OpName, Type: int64Type, Class: ir.ClassParam, Sym: aSym, Addable: true}
	bNode := &ir.Node{Op: ir.OpName, Type: int64Type, Class: ir.ClassParam, Sym: bSym, Addable: true}

	sum := &ir.Node{Op: ir.OpAdd, Type: int64Type, Left: aNode, Right: bNode, Ullman: 1}
	ret := &ir.Node{Op: ir.OpReturn, Aux: []*ir.Node{sum}}

	sig := &ir.Signature{
		Params:  []ir.Field{{Name: "a", Type: int64Type, Offset: 0}, {Name: "b", Type: int64Type, Offset: 8}},
		Results: []ir.Field{{Name: "", Type: int64Type, Offset: 16}},
		ArgSize: 24,
	}
	sym := &ir.Symbol{Name: "add", Class: ir.ClassFunc, Sig: sig, External: true}

	return &ir.Procedure{
		Sym:      sym,
		Body:     ret,
		Sig:      sig,
		ArgSize:  sig.ArgSize,
		External: true,
		File:     "sample.vsl",
		Files:    []string{"sample.vsl"},
	}
}

// sampleQuotient builds `func quotient(a, b int64) int64 { return a / b }`,
// the smallest procedure that exercises the general hardware-divide
// lowering path (spec.md §4.4) rather than the division-by-constant
// shortcuts.
func sampleQuotient() *ir.Procedure {
	aSym := &ir.Symbol{Name: "a", Type: int64Type, Class: ir.ClassParam, Offset: 0, Width: 8}
	bSym := &ir.Symbol{Name: "b", Type: int64Type, Class: ir.ClassParam, Offset: 8, Width: 8}

	aNode := &ir.Node{Op: ir.OpName, Type: int64Type, Class: ir.ClassParam, Sym: aSym, Addable: true}
	bNode := &ir.Node{Op: ir.OpName, Type: int64Type, Class: ir.ClassParam, Sym: bSym, Addable: true}

	quot := &ir.Node{Op: ir.OpDiv, Type: int64Type, Left: aNode, Right: bNode, Ullman: 1}
	ret := &ir.Node{Op: ir.OpReturn, Aux: []*ir.Node{quot}}

	sig := &ir.Signature{
		Params:  []ir.Field{{Name: "a", Type: int64Type, Offset: 0}, {Name: "b", Type: int64Type, Offset: 8}},
		Results: []ir.Field{{Name: "", Type: int64Type, Offset: 16}},
		ArgSize: 24,
	}
	sym := &ir.Symbol{Name: "quotient", Class: ir.ClassFunc, Sig: sig, External: true}

	return &ir.Procedure{
		Sym:      sym,
		Body:     ret,
		Sig:      sig,
		ArgSize:  sig.ArgSize,
		External: true,
		File:     "sample.vsl",
		Files:    []string{"sample.vsl"},
	}
}

// sampleProcedures returns every synthetic procedure the driver exercises.
func sampleProcedures() []*ir.Procedure {
	return []*ir.Procedure{sampleAdd(), sampleQuotient()}
}
