package cgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
	"github.com/hramberg-labs/ngen/src/target"
)

// TestNewTempSurvivesFrameCompaction is the regression test for the
// compactFrame/newTemp interaction: a stack temporary allocated mid-walk
// (here, CgenSlice's three-word header destination) must be accounted
// for by compactFrame exactly like a named local, and its final frame
// size must cover both, not just the named locals compactFrame iterates
// over spec.md §4.8's own terms.
func TestNewTempSurvivesFrameCompaction(t *testing.T) {
	i32 := &ir.Type{Kind: ir.KindInt32, Width: 4, Align: 4}
	namedSym := &ir.Symbol{Name: "keep", Type: i32, Class: ir.ClassAuto, Width: 4}
	named := nameNode(namedSym, i32, ir.ClassAuto)

	proc := newSliceProc(i32, 0, 2)
	proc.Auto = append(proc.Auto, namedSym)
	// Reference the named local so markUsed keeps it, exercising
	// compactFrame with one pre-existing named local plus whatever
	// newTemp allocates during CgenSlice's lowering.
	keepStmt := &ir.Node{Op: ir.OpAssign, Left: named, Right: named}
	proc.Body = &ir.Node{Aux: []*ir.Node{keepStmt, proc.Body}}

	cg := New(target.AMD64, proc)
	require.NoError(t, cg.Compile())

	// compactFrame must have kept both the named local and the
	// newTemp-allocated slice header (24 bytes): FrameSize can't have
	// shrunk to account for only one of them.
	assert.GreaterOrEqual(t, cg.Proc.FrameSize, int64(4+24))

	// Every surviving Auto symbol's final offset must be unique and
	// within [-FrameSize, 0): no two distinct symbols may alias the same
	// slot, the exact corruption compactFrame discarding newTemp's
	// contribution would cause.
	offsets := map[int64]*ir.Symbol{}
	for _, sym := range cg.Proc.Auto {
		require.LessOrEqual(t, -cg.Proc.FrameSize, sym.Offset)
		require.Less(t, sym.Offset, int64(0))
		if other, ok := offsets[sym.Offset]; ok {
			t.Fatalf("symbols %q and %q alias offset %d", other.Name, sym.Name, sym.Offset)
		}
		offsets[sym.Offset] = sym
	}
}

// TestNewTempOffsetsFixedUpInInstructionStream asserts the fix-up pass
// rewrites a newTemp-backed operand's offset after compaction rather
// than leaving the pre-compaction offset newTemp originally assigned:
// every ModeAuto operand referencing the slice temp must agree with its
// symbol's final, post-compaction Offset.
func TestNewTempOffsetsFixedUpInInstructionStream(t *testing.T) {
	i32 := &ir.Type{Kind: ir.KindInt32, Width: 4, Align: 4}
	proc := newSliceProc(i32, 0, 2)

	cg := New(target.AMD64, proc)
	require.NoError(t, cg.Compile())

	for p := cg.Buf.First(); p != nil; p = p.Next() {
		assertOperandMatchesSymbol(t, p.From)
		assertOperandMatchesSymbol(t, p.To)
	}
}

func assertOperandMatchesSymbol(t *testing.T, a asm.Addr) {
	t.Helper()
	if a.Mode != asm.ModeAuto || a.Node == nil || a.Node.Sym == nil {
		return
	}
	sym := a.Node.Sym
	// The operand's offset must fall within the symbol's final width,
	// i.e. sym.Offset <= a.Offset < sym.Offset+sym.Width: a multi-field
	// temporary (array/len/cap) stamps sub-offsets at +0/+8/+16 relative
	// to the same symbol, so exact equality is too strict, but the
	// post-fixup offset must still land inside the symbol's own slot.
	assert.GreaterOrEqual(t, a.Offset, sym.Offset)
	assert.Less(t, a.Offset, sym.Offset+sym.Width)
}
