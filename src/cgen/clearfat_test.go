package cgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hramberg-labs/ngen/src/ir"
	"github.com/hramberg-labs/ngen/src/target"
)

// newClearProc builds a procedure that declares one local automatic of
// width bytes and clears it in a single CLEAR statement, the shape
// cgenClearStmt lowers (spec.md §C, ggen.c's clearfat).
func newClearProc(width int64) *ir.Procedure {
	aggType := &ir.Type{Kind: ir.KindStruct, Width: width}
	sym := &ir.Symbol{Name: "big", Type: aggType, Class: ir.ClassAuto, Width: width, Used: true}
	bigNode := nameNode(sym, aggType, ir.ClassAuto)

	clear := &ir.Node{Op: ir.OpClear, Left: bigNode}
	ret := &ir.Node{Op: ir.OpReturn}
	body := &ir.Node{Aux: []*ir.Node{clear, ret}}

	procSym := &ir.Symbol{Name: "clearer", Class: ir.ClassFunc, Sig: &ir.Signature{}, External: true}
	return &ir.Procedure{
		Sym: procSym, Body: body, Sig: procSym.Sig, External: true, File: "t.vsl",
		Auto: []*ir.Symbol{sym},
	}
}

// TestClearFatSmallObjectUnrollsStores covers the width <= 4*word branch:
// a two-word aggregate is zeroed with unrolled MOVQ stores, not the
// REP STOSQ loop.
func TestClearFatSmallObjectUnrollsStores(t *testing.T) {
	proc := newClearProc(16)
	asmText := compileOne(t, target.AMD64, proc)
	assert.Equal(t, 2, strings.Count(asmText, "MOVQ"))
	assert.NotContains(t, asmText, "REP STOSQ")
}

// TestClearFatLargeObjectUsesRepStosqWithDistinctRegisters is the
// regression test for the clearfat fix: an aggregate larger than 4 words
// must zero a genuinely separate accumulator register, load the quad
// count into the shift-count register (not the high-multiply/divide
// register), and leave both restored afterward -- the bug this guards
// against zeroed the count register immediately after loading it,
// turning the clear into a silent no-op.
func TestClearFatLargeObjectUsesRepStosqWithDistinctRegisters(t *testing.T) {
	proc := newClearProc(40) // 5 words on amd64 (pointer width 8): > 4*word.
	cg := New(target.AMD64, proc)
	require.NoError(t, cg.Compile())
	asmText := cg.Buf.String()

	require.Contains(t, asmText, "REP STOSQ")
	require.Contains(t, asmText, "XOR")

	lines := strings.Split(asmText, "\n")
	var xorLine, movCountLine, repLine string
	for _, l := range lines {
		switch {
		case strings.Contains(l, "XOR"):
			xorLine = l
		case strings.Contains(l, "MOV") && strings.Contains(l, "$5"):
			movCountLine = l
		case strings.Contains(l, "REP STOSQ"):
			repLine = l
		}
	}
	require.NotEmpty(t, xorLine)
	require.NotEmpty(t, movCountLine)
	require.NotEmpty(t, repLine)

	accReg := cg.T.RegName(cg.T.Accumulator, false)
	cntReg := cg.T.RegName(cg.T.ShiftCount, false)
	assert.Contains(t, xorLine, accReg, "the zero value must live in the accumulator, not the count register")
	assert.Contains(t, movCountLine, cntReg, "the quad count must load into the shift-count register for REP STOSQ")
	assert.NotContains(t, xorLine, cntReg, "zeroing must not clobber the just-loaded count register")
}

// TestClearFatRegisterDisciplineAcrossTargets asserts a fat clear leaves
// the register file exactly as it found it on both targets, the
// save/restore protocol cgenClearStmt's accumulator/count pairing must
// honor (spec.md §5, "Shared resources").
func TestClearFatRegisterDisciplineAcrossTargets(t *testing.T) {
	for _, tgt := range []*target.Target{target.AMD64, target.X86} {
		proc := newClearProc(64)
		cg := New(tgt, proc)
		require.NoError(t, cg.Compile(), "target %s", tgt.Name)
	}
}
