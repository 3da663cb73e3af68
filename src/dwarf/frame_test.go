package dwarf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
	"github.com/hramberg-labs/ngen/src/objfile"
)

func frameCompiled(spAdjusting bool) *Compiled {
	buf := &asm.Buffer{}
	sub := buf.Emit("SUB", asm.NewConstAddr(32, 8), asm.Addr{}, 1)
	if spAdjusting {
		sub.SPAdj = 32
	}
	buf.Emit("MOV", asm.NewConstAddr(1, 8), asm.Addr{Mode: asm.ModeReg}, 2)
	add := buf.Emit("ADD", asm.NewConstAddr(32, 8), asm.Addr{}, 3)
	if spAdjusting {
		add.SPAdj = -32
	}
	buf.Emit("RET", asm.Addr{}, asm.Addr{}, 3)

	proc := &ir.Procedure{Sym: &ir.Symbol{Name: "main.f", Class: ir.ClassFunc, Offset: 0}}
	return &Compiled{Proc: proc, Buf: buf}
}

// TestWriteFramesCoversEveryProcedure covers spec.md §8 property #10
// (frame-section coverage): the .debug_frame section this produces holds
// one CIE plus exactly one FDE per input procedure, and is never empty.
func TestWriteFramesCoversEveryProcedure(t *testing.T) {
	sink := objfile.NewBuffer()
	procs := []*Compiled{frameCompiled(true), frameCompiled(true)}

	require.NoError(t, WriteFrames(sink, 8, procs))
	out := sink.Raw()
	require.NotEmpty(t, out)

	// The CIE reserves cieReserve+4 bytes (its own length prefix plus the
	// padded body); everything after that is per-FDE data.
	assert.Greater(t, len(out), cieReserve+4)
}

// TestWriteFramesSPAdjCarriesCFAProgram asserts a procedure whose Progs
// carry non-zero SPAdj produces a strictly larger FDE than one whose
// Progs never adjust the stack pointer: the CFA program is only emitted
// when putPCCFADelta actually runs.
func TestWriteFramesSPAdjCarriesCFAProgram(t *testing.T) {
	flat := objfile.NewBuffer()
	require.NoError(t, WriteFrames(flat, 8, []*Compiled{frameCompiled(false)}))

	adjusted := objfile.NewBuffer()
	require.NoError(t, WriteFrames(adjusted, 8, []*Compiled{frameCompiled(true)}))

	assert.Greater(t, len(adjusted.Raw()), len(flat.Raw()))
}

// TestWriteFramesEmptyProcsStillEmitsCIE documents the zero-procedure
// edge case: the shared CIE is emitted regardless of how many (if any)
// procedures follow it.
func TestWriteFramesEmptyProcsStillEmitsCIE(t *testing.T) {
	sink := objfile.NewBuffer()
	require.NoError(t, WriteFrames(sink, 8, nil))
	assert.Equal(t, cieReserve+4, len(sink.Raw()))
}
