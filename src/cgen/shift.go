package cgen

import (
	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
)

// ---------------------
// ----- Shifts (spec.md §4.5) -----
// ---------------------

// CgenShift lowers x << n or x >> n.
func (cg *CodeGen) CgenShift(n *ir.Node) (asm.Addr, error) {
	op := shiftOp(n.Op, n.Type.IsSigned())

	if n.Right.Op == ir.OpConst {
		return cg.cgenShiftConst(n, op)
	}
	return cg.cgenShiftVar(n, op)
}

func shiftOp(op ir.Op, signed bool) string {
	if op == ir.OpLsh {
		return "SHL"
	}
	if signed {
		return "SAR"
	}
	return "SHR"
}

// cgenShiftConst implements spec.md §4.5's literal-count case: counts at
// or beyond the operand width are emitted as two shifts of width-1
// (simulating saturation) rather than one shift of the literal count,
// which on x86 would silently wrap the count modulo the operand width.
func (cg *CodeGen) cgenShiftConst(n *ir.Node, op string) (asm.Addr, error) {
	width := n.Type.Width * 8
	count := n.Right.IntVal

	v, err := cg.Cgen(n.Left)
	if err != nil {
		return asm.Addr{}, err
	}
	dst, err := cg.Regs.RegAlloc(false, n.Type.Width, &v)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gmove(n.Left.Type, n.Type, v, dst)

	if count >= width {
		cg.Gins(op, asm.NewConstAddr(width-1, n.Type.Width), dst)
		cg.Gins(op, asm.NewConstAddr(width-1, n.Type.Width), dst)
	} else {
		cg.Gins(op, asm.NewConstAddr(count, n.Type.Width), dst)
	}
	return dst, nil
}

// cgenShiftVar implements spec.md §4.5's variable-count case: the count
// must occupy the architecture's shift-count register, so it is saved if
// busy, both operands are materialised respecting evaluation order, the
// count is compared against the operand width to pre-empt the hardware's
// modulo-width wraparound, and finally the shift is emitted.
func (cg *CodeGen) cgenShiftVar(n *ir.Node, op string) (asm.Addr, error) {
	width := n.Type.Width * 8

	countTarget := asm.NewRegAddr(cg.T, cg.T.ShiftCount, false, 4)
	saved, err := cg.Regs.SaveX(cg.T.ShiftCount, false, nil)
	if err != nil {
		return asm.Addr{}, err
	}

	first, second, _ := order(n)
	var value, count asm.Addr
	if first == n.Left {
		value, err = cg.Cgen(n.Left)
		if err != nil {
			return asm.Addr{}, err
		}
		count, err = cg.Cgen(n.Right)
		if err != nil {
			return asm.Addr{}, err
		}
	} else {
		count, err = cg.Cgen(n.Right)
		if err != nil {
			return asm.Addr{}, err
		}
		value, err = cg.Cgen(n.Left)
		if err != nil {
			return asm.Addr{}, err
		}
	}

	// Count is moved into the shift-count register as a 32-bit value,
	// zero-extended if narrower. A 64-bit count is narrowed to its low
	// word by this move; its high word is not tested for zero, on either
	// target, so only the low word takes part in the saturation check.
	cg.Gmove(n.Right.Type, &ir.Type{Kind: ir.KindUint32, Width: 4}, count, countTarget)
	if count.Mode == asm.ModeReg {
		if err := cg.Regs.RegFree(count); err != nil {
			return asm.Addr{}, err
		}
	}

	dst, err := cg.Regs.RegAlloc(false, n.Type.Width, &value)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gmove(n.Left.Type, n.Type, value, dst)

	cg.Gins("CMP", asm.NewConstAddr(width, 4), countTarget)
	tooWide := cg.Buf.Branch("JLT", asm.Addr{}, n.Line)

	if n.Op == ir.OpRsh && n.Type.IsSigned() {
		// Arithmetic right shift by >= width saturates to the
		// all-sign-bits broadcast of the operand (spec.md §4.5, §8.5).
		cg.Gins("SAR", asm.NewConstAddr(width-1, n.Type.Width), dst)
	} else {
		cg.Gins("XOR", dst, dst)
	}
	done := cg.Buf.Branch("JMP", asm.Addr{}, n.Line)

	normal := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
	if err := tooWide.Patch(normal); err != nil {
		return asm.Addr{}, err
	}
	cg.Gins(op, countTarget, dst)

	end := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
	if err := done.Patch(end); err != nil {
		return asm.Addr{}, err
	}

	if err := cg.Regs.RestX(saved); err != nil {
		return asm.Addr{}, err
	}
	return dst, nil
}
