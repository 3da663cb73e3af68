// Package x86 holds the 32-bit half of the opcode-selection table Design
// Notes' "Dual targets" calls for. It mirrors src/cgen/amd64 exactly
// except that no operand is ever wider than a 32-bit long word: there is
// no Q suffix, and DivHi/DivLo pair through DX:AX instead of RDX:RAX
// (spec.md §1, the 8-general-register machine).
package x86

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
	default:
		return "L"
	}
}

// Select appends the width suffix for width to the generic mnemonic op,
// e.g. Select("MOV", 4) == "MOVL".
func Select(op string, width int64) string {
	return op + Suffix(width)
}

// Prologue emits the 386 frame setup. Identical in shape to amd64's but
// every operand is pinned to the 32-bit pointer width.
func Prologue(buf *asm.Buffer, t *target.Target, line int) *asm.Prog {
	sp := asm.NewRegAddr(t, t.SP, false, t.PointerWidth)
	fp := asm.NewRegAddr(t, t.FP, false, t.PointerWidth)
	push := buf.Emit("PUSH", fp, asm.Addr{}, line)
	push.SPAdj = t.PointerWidth
	buf.Emit("MOV", sp, fp, line)
	return buf.Emit("SUB", asm.NewConstAddr(0, t.PointerWidth), sp, line)
}

// Epilogue emits the 386 frame teardown.
func Epilogue(buf *asm.Buffer, t *target.Target, line int) *asm.Prog {
	sp := asm.NewRegAddr(t, t.SP, false, t.PointerWidth)
	fp := asm.NewRegAddr(t, t.FP, false, t.PointerWidth)
	p := buf.Emit("ADD", asm.NewConstAddr(0, t.PointerWidth), sp, line)
	pop := buf.Emit("POP", asm.Addr{}, fp, line)
	pop.SPAdj = -t.PointerWidth
	return p
}

// AlignFrame rounds size up to the target's required stack alignment (4
// bytes on the 386 Plan 9 ABI this back end's stack-frame layout follows).
func AlignFrame(t *target.Target, size int64) int64 {
	a := t.StackAlign
	if a <= 0 {
		return size
	}
	return (size + a - 1) / a * a
}
