package cgen

import (
	"github.com/pkg/errors"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
)

// ---------------------
// ----- Slice inline expansion (spec.md §4.6) -----
// ---------------------

// SliceHeader is the three-word run-time slice representation spec.md's
// glossary defines, exposed so tests can compare the inline expansion's
// output against a straight-line reference implementation (spec.md §8.6).
type SliceHeader struct {
	Array int64
	Len   int64
	Cap   int64
}

// SliceArray computes the header slicearray(ptr, nel, lb, hb, width)
// would build: an array sliced to [lb:hb]. Returns an error if the
// bounds are out of range, the same condition the inline expansion
// routes to a shared panicslice call at compile time.
func SliceArray(ptr, nel, lb, hb, width int64) (SliceHeader, error) {
	if !(0 <= lb && lb <= hb && hb <= nel) {
		return SliceHeader{}, boundsError(lb, hb, nel)
	}
	return SliceHeader{Array: ptr + lb*width, Len: hb - lb, Cap: nel - lb}, nil
}

// SliceSlice computes the header sliceslice(old, lb, hb, width) would
// build: re-slicing an existing slice to [lb:hb].
func SliceSlice(old SliceHeader, lb, hb, width int64) (SliceHeader, error) {
	if !(0 <= lb && lb <= hb && hb <= old.Cap) {
		return SliceHeader{}, boundsError(lb, hb, old.Cap)
	}
	return SliceHeader{Array: old.Array + lb*width, Len: hb - lb, Cap: old.Cap - lb}, nil
}

// SliceSlice1 computes the header sliceslice1(old, lb, width) would
// build: re-slicing to [lb:len(old)], the degenerate one-bound form.
func SliceSlice1(old SliceHeader, lb, width int64) (SliceHeader, error) {
	if !(0 <= lb && lb <= old.Len) {
		return SliceHeader{}, boundsError(lb, old.Len, old.Cap)
	}
	return SliceHeader{Array: old.Array + lb*width, Len: old.Len - lb, Cap: old.Cap - lb}, nil
}

func boundsError(lb, hb, bound int64) error {
	return &sliceBoundsError{lb: lb, hb: hb, bound: bound}
}

type sliceBoundsError struct {
	lb, hb, bound int64
}

func (e *sliceBoundsError) Error() string {
	return "panicslice: slice bounds out of range"
}

// CgenSlice lowers an OpSlice/OpSlice3 node inline, per spec.md §4.6:
// emits bounds checks sharing a single throw target per procedure (the
// first check emits the call to panicslice; later checks branch to the
// existing target), computes len/cap/array, and writes the three-word
// header to a stack-temporary destination (the caller copies it onward
// with an ordinary three-word move, the way a real procedure would
// assign the slice expression to its destination variable).
func (cg *CodeGen) CgenSlice(n *ir.Node) (asm.Addr, error) {
	old, err := cg.Cgen(n.Left)
	if err != nil {
		return asm.Addr{}, err
	}

	lbNode := n.Aux[0]
	hbNode := n.Aux[1]
	width := n.Type.Elem.Width

	lb, err := cg.Cgen(lbNode)
	if err != nil {
		return asm.Addr{}, err
	}
	hb, err := cg.Cgen(hbNode)
	if err != nil {
		return asm.Addr{}, err
	}
	lb, hb = cg.promoteToPointerWidth(lb, hb)

	capAddr := asm.Addr{Mode: asm.ModeIndir, Base: old.Reg, Offset: 2 * cg.T.PointerWidth, Width: cg.T.PointerWidth}

	if err := cg.emitBoundsCheck(lb, hb, n.Line); err != nil {
		return asm.Addr{}, err
	}
	if err := cg.emitBoundsCheckReg(hb, capAddr, n.Line); err != nil {
		return asm.Addr{}, err
	}

	dst := cg.newTemp(&ir.Type{Width: 3 * cg.T.PointerWidth})
	arraySlot, lenSlot, capSlot := sliceSlots(dst, cg.T.PointerWidth)

	array, err := cg.Regs.RegAlloc(false, cg.T.PointerWidth, nil)
	if err != nil {
		return asm.Addr{}, err
	}
	arrayBase := asm.Addr{Mode: asm.ModeIndir, Base: old.Reg, Offset: 0, Width: cg.T.PointerWidth}
	cg.Gins("MOV", arrayBase, array)
	cg.Gins("IMUL", asm.NewConstAddr(width, cg.T.PointerWidth), lb)
	cg.Gins("ADD", lb, array)
	cg.Gins("MOV", array, arraySlot)

	length, err := cg.Regs.RegAlloc(false, cg.T.PointerWidth, nil)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gins("MOV", hb, length)
	cg.Gins("SUB", lb, length)
	cg.Gins("MOV", length, lenSlot)

	newCap, err := cg.Regs.RegAlloc(false, cg.T.PointerWidth, nil)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gins("MOV", capAddr, newCap)
	cg.Gins("SUB", lb, newCap)
	cg.Gins("MOV", newCap, capSlot)

	if width > cg.T.UnmappedPage {
		// Nil-dereference test: a byte load at offset 0 faults if the
		// element type is large enough to cross the unmapped low page
		// (spec.md §4.6, an Open Question-bound threshold).
		cg.Gins("TESTB", asm.Addr{Mode: asm.ModeIndir, Base: old.Reg, Offset: 0, Width: 1}, asm.Addr{})
	}

	for _, r := range []asm.Addr{array, length, newCap, lb, hb, old} {
		if r.Mode == asm.ModeReg {
			if err := cg.Regs.RegFree(r); err != nil {
				return asm.Addr{}, err
			}
		}
	}
	return dst, nil
}

// sliceSlots splits a three-word slice-header temporary into its
// array/len/cap sub-addresses.
func sliceSlots(base asm.Addr, ptrWidth int64) (array, length, cap_ asm.Addr) {
	array = base
	array.Width = ptrWidth
	length = base
	length.Offset += ptrWidth
	length.Width = ptrWidth
	cap_ = base
	cap_.Offset += 2 * ptrWidth
	cap_.Width = ptrWidth
	return
}

// promoteToPointerWidth widens a or b to pointer width when the two
// differ, the "narrower-than-pointer operands are promoted" rule of
// spec.md §4.6.
func (cg *CodeGen) promoteToPointerWidth(a, b asm.Addr) (asm.Addr, asm.Addr) {
	if a.Width == b.Width {
		return a, b
	}
	if a.Width < cg.T.PointerWidth {
		a.Width = cg.T.PointerWidth
	}
	if b.Width < cg.T.PointerWidth {
		b.Width = cg.T.PointerWidth
	}
	return a, b
}

// emitBoundsCheck emits `CMP lb, hb` and a conditional branch to the
// procedure's shared throw target, creating that target (a call to
// panicslice) on the first check and reusing it with a reversed
// condition on every subsequent check (spec.md §4.6).
func (cg *CodeGen) emitBoundsCheck(lb, hb asm.Addr, line int) error {
	cg.Gins("CMP", hb, lb)
	return cg.branchToThrow("JGT", line)
}

// emitBoundsCheckReg is emitBoundsCheck specialised for comparing a
// register operand against a memory operand (hb against cap).
func (cg *CodeGen) emitBoundsCheckReg(hb, bound asm.Addr, line int) error {
	cg.Gins("CMP", bound, hb)
	return cg.branchToThrow("JGT", line)
}

// branchToThrow implements the "shared throw target" pattern (spec.md
// §4.6, Design Notes): the first bounds check in a procedure emits the
// trap block (a call to panicslice) and remembers its entry Prog in
// cg.throwPC; every subsequent check simply branches straight there
// instead of emitting a second call, which is the code-size win the
// pattern exists for.
func (cg *CodeGen) branchToThrow(cond string, line int) error {
	br := cg.Buf.Branch(cond, asm.Addr{}, line)
	if cg.throwPC == nil {
		trap := cg.Gins("CALL", asm.Addr{Mode: asm.ModeSym, Sym: panicSliceSym}, asm.Addr{})
		cg.throwPC = trap
	}
	return br.Patch(cg.throwPC)
}

var panicSliceSym = &ir.Symbol{Name: "panicslice", Class: ir.ClassFunc}

// cgenClearStmt lowers the ClearFat zeroing sequence spec.md §C (from
// original_source/cmd/6g/ggen.c's clearfat) adds: zero an aggregate
// larger than one machine word.
func (cg *CodeGen) cgenClearStmt(n *ir.Node) error {
	dst, ok := cg.Naddr(n.Left, true)
	if !ok {
		return errors.Errorf("cgen: clear target %s is not addressable", n.Left)
	}
	width := n.Left.Type.Width
	word := cg.T.PointerWidth

	if width <= 4*word {
		// Small enough: unrolled stores of zero.
		for off := int64(0); off < width; off += word {
			slot := dst
			slot.Offset += off
			cg.Gins("MOVQ", asm.NewConstAddr(0, word), slot)
		}
		return nil
	}

	// Large fat object: REP STOSQ-style loop over the destination
	// pointer and element count, matching clearfat's fallback. The zero
	// value lives in the accumulator and the element count in the
	// shift-count register (ggen.c's D_AX/D_CX pairing) -- two distinct
	// fixed registers, each saved and restored via the special-register
	// protocol like a division or shift lowering.
	ptr, err := cg.Regs.RegAlloc(false, cg.T.PointerWidth, nil)
	if err != nil {
		return err
	}
	cg.Gins("LEA", dst, ptr)

	saveAcc, err := cg.Regs.SaveX(cg.T.Accumulator, false, nil)
	if err != nil {
		return err
	}
	acc := asm.NewRegAddr(cg.T, cg.T.Accumulator, false, cg.T.PointerWidth)
	cg.Gins("XOR", acc, acc)

	saveCnt, err := cg.Regs.SaveX(cg.T.ShiftCount, false, nil)
	if err != nil {
		return err
	}
	cnt := asm.NewRegAddr(cg.T, cg.T.ShiftCount, false, cg.T.PointerWidth)
	cg.Gins("MOV", asm.NewConstAddr(width/word, word), cnt)

	cg.Gins("REP STOSQ", asm.Addr{}, asm.Addr{})

	if err := cg.Regs.RestX(saveCnt); err != nil {
		return err
	}
	if err := cg.Regs.RestX(saveAcc); err != nil {
		return err
	}
	return cg.Regs.RegFree(ptr)
}
