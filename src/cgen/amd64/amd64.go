// Package amd64 holds the 64-bit half of the opcode-selection table
// Design Notes' "Dual targets" calls for: mnemonic width suffixes and the
// stack-frame prologue/epilogue sequence, kept apart from src/cgen's
// target-independent lowerings the way vslc/src/backend/riscv and
// vslc/src/backend/arm each own their architecture's instruction text
// while sharing src/cgen's expression/statement walk (DESIGN.md).
package amd64

import (
	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/target"
)

// Suffix returns the AT&T-style width suffix for a generic mnemonic
// operating on an operand of the given byte width.
func Suffix(width int64) string {
	switch width {
	case 1:
		return "B"
	case 2:
		return "W"
	case 4:
		return "L"
	default:
		return "Q"
	}
}

// Select appends the width suffix for width to the generic mnemonic op,
// e.g. Select("MOV", 8) == "MOVQ".
func Select(op string, width int64) string {
	return op + Suffix(width)
}

// Prologue emits the frame setup: push the caller's frame pointer, point
// the new frame pointer at the stack top, then reserve frameSize bytes.
// The SUB's immediate is a placeholder; it is patched once the frame has
// been through compactframe, since the final local-variable footprint
// isn't known until then (spec.md §4.8). The returned Prog is that
// placeholder instruction.
func Prologue(buf *asm.Buffer, t *target.Target, line int) *asm.Prog {
	sp := asm.NewRegAddr(t, t.SP, false, t.PointerWidth)
	fp := asm.NewRegAddr(t, t.FP, false, t.PointerWidth)
	push := buf.Emit("PUSH", fp, asm.Addr{}, line)
	push.SPAdj = t.PointerWidth
	buf.Emit("MOV", sp, fp, line)
	return buf.Emit("SUB", asm.NewConstAddr(0, t.PointerWidth), sp, line)
}

// Epilogue emits the mirror-image frame teardown ahead of a RET: restore
// the stack pointer, pop the saved frame pointer. Like Prologue, the
// ADD's immediate is a placeholder patched after compaction.
func Epilogue(buf *asm.Buffer, t *target.Target, line int) *asm.Prog {
	sp := asm.NewRegAddr(t, t.SP, false, t.PointerWidth)
	fp := asm.NewRegAddr(t, t.FP, false, t.PointerWidth)
	p := buf.Emit("ADD", asm.NewConstAddr(0, t.PointerWidth), sp, line)
	pop := buf.Emit("POP", asm.Addr{}, fp, line)
	pop.SPAdj = -t.PointerWidth
	return p
}

// AlignFrame rounds size up to the target's required stack alignment
// (16 bytes on amd64, the System V / Plan 9 ABI's call-boundary
// requirement).
func AlignFrame(t *target.Target, size int64) int64 {
	a := t.StackAlign
	if a <= 0 {
		return size
	}
	return (size + a - 1) / a * a
}
