// Package target is the table-driven target description Design Notes'
// "Dual targets" calls for: pointer width, register-bank sizes, the
// special-purpose register identifiers the division/shift/call lowerings
// in src/cgen need by name, and the handful of other parameters that
// differ between the two machines spec.md §1 describes (a 64-bit 16
// general-register machine and a 32-bit 8 general-register machine)
// instead of the teacher's two separate hand-written register-alias
// blocks (DESIGN.md; grounded on vslc/src/backend/riscv/riscv.go's
// register-alias-block + name-table pattern).
package target

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// Reg is a bank-local register identifier: an index into the owning
// Target's integer or floating-point register file (src/asm.RegFile
// sizes its reference-count slices by NumIntReg/NumFloatReg, so Reg is
// always in [0, NumIntReg) or [0, NumFloatReg), never a raw hardware
// encoding).
type Reg int

// Target collects everything src/asm and src/cgen need to differ between
// amd64 and 386: pointer width, register-bank sizes, the special-purpose
// register identifiers the division/shift/call lowerings reference by
// name, and the stack/paging constants spec.md §9's Open Questions leave
// host-defined.
type Target struct {
	Name string

	PointerWidth int64
	NumIntReg    int
	NumFloatReg  int

	// Special-purpose registers, spec.md §4.1 "The special-register
	// save/restore protocol" and §4.4/§4.5's division and shift
	// lowerings.
	SP          Reg // Stack pointer.
	FP          Reg // Frame pointer.
	Accumulator Reg // Dividend in, quotient out of DIV/IDIV.
	DivHi       Reg // Remainder register (DX); also the widened high half of a 2-register product.
	DivLo       Reg // Low half of a 2-register product; equal to Accumulator on both targets here.
	ShiftCount  Reg // The register a variable shift count must occupy (CX).

	StackAlign       int64 // Required stack-pointer alignment at a call boundary.
	UnmappedPage     int64 // spec.md §9's "unmappedzero" threshold, host-page-size-derived.
	MinHWDivideWidth int64 // Bit width below which operands are widened before DIV/IDIV (spec.md §4.4).

	intRegs []x86asm.Reg
	fltRegs []x86asm.Reg
}

// RegName renders r's assembler mnemonic. Per DESIGN.md, the integer bank
// deliberately resolves through x86asm's 16-bit register-constant block
// (AX, CX, ... R15W) regardless of the operand width the caller is
// moving, matching the Plan 9/6g assembler convention that a register's
// display name does not vary with access width.
func (t *Target) RegName(r Reg, float bool) string {
	bank := t.intRegs
	if float {
		bank = t.fltRegs
	}
	if int(r) < 0 || int(r) >= len(bank) {
		return fmt.Sprintf("R%d", r)
	}
	return bank[r].String()
}

// amd64IntRegs is the 16-bit-constant block (not the 64-bit RAX.../R15
// block) so RegName always prints "AX", never "RAX" (src/asm/addr_test.go
// TestAddrStringModes pins this).
var amd64IntRegs = []x86asm.Reg{
	x86asm.AX, x86asm.CX, x86asm.DX, x86asm.BX,
	x86asm.SP, x86asm.BP, x86asm.SI, x86asm.DI,
	x86asm.R8W, x86asm.R9W, x86asm.R10W, x86asm.R11W,
	x86asm.R12W, x86asm.R13W, x86asm.R14W, x86asm.R15W,
}

var amd64FltRegs = []x86asm.Reg{
	x86asm.X0, x86asm.X1, x86asm.X2, x86asm.X3,
	x86asm.X4, x86asm.X5, x86asm.X6, x86asm.X7,
	x86asm.X8, x86asm.X9, x86asm.X10, x86asm.X11,
	x86asm.X12, x86asm.X13, x86asm.X14, x86asm.X15,
}

var x86IntRegs = []x86asm.Reg{
	x86asm.AX, x86asm.CX, x86asm.DX, x86asm.BX,
	x86asm.SP, x86asm.BP, x86asm.SI, x86asm.DI,
}

var x86FltRegs = []x86asm.Reg{
	x86asm.X0, x86asm.X1, x86asm.X2, x86asm.X3,
	x86asm.X4, x86asm.X5, x86asm.X6, x86asm.X7,
}

// Register indices common to both targets: AX, CX, DX, BX, SP, BP, SI, DI
// occupy the same low eight slots on both banks (amd64 just has eight
// more above them), so the special-purpose identifiers below are shared.
const (
	regAX Reg = iota
	regCX
	regDX
	regBX
	regSP
	regBP
	regSI
	regDI
)

// AMD64 is the 64-bit, 16-general-register target (spec.md §1).
var AMD64 = &Target{
	Name:         "amd64",
	PointerWidth: 8,
	NumIntReg:    16,
	NumFloatReg:  16,

	SP:          regSP,
	FP:          regBP,
	Accumulator: regAX,
	DivHi:       regDX,
	DivLo:       regAX,
	ShiftCount:  regCX,

	StackAlign:       16,
	UnmappedPage:     4096,
	MinHWDivideWidth: 32,

	intRegs: amd64IntRegs,
	fltRegs: amd64FltRegs,
}

// X86 is the 32-bit, 8-general-register target (spec.md §1).
var X86 = &Target{
	Name:         "386",
	PointerWidth: 4,
	NumIntReg:    8,
	NumFloatReg:  8,

	SP:          regSP,
	FP:          regBP,
	Accumulator: regAX,
	DivHi:       regDX,
	DivLo:       regAX,
	ShiftCount:  regCX,

	StackAlign:       4,
	UnmappedPage:     4096,
	MinHWDivideWidth: 32,

	intRegs: x86IntRegs,
	fltRegs: x86FltRegs,
}
