package cgen

import (
	"math/bits"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
)

// ---------------------
// ----- Division and modulo (spec.md §4.4) -----
// ---------------------

// CgenDiv lowers a division or modulo node, choosing between the three
// strategies spec.md §4.4 describes at compile time based on the
// divisor: constant power of two, constant non-power-of-two (magic
// multiplier), or general hardware DIV/IDIV with the INT_MIN/-1 guard.
func (cg *CodeGen) CgenDiv(n *ir.Node, mod bool) (asm.Addr, error) {
	width := n.Type.Width * 8
	signed := n.Type.IsSigned()

	if n.Right.Op == ir.OpConst {
		d := n.Right.IntVal
		if d == 0 {
			// Divide by the literal constant zero always traps at
			// runtime; emit the trap unconditionally rather than
			// attempting a compile-time strategy.
			return cg.divByZero(n)
		}
		if d == 1 {
			if mod {
				return asm.NewConstAddr(0, n.Type.Width), nil
			}
			return cg.Cgen(n.Left)
		}
		if isPow2(d) {
			return cg.cgenDivPow2(n, d, mod, signed, width)
		}
		return cg.cgenDivMagic(n, d, mod, signed, width)
	}

	return cg.cgenDivGeneral(n, mod, signed, width)
}

func isPow2(d int64) bool {
	u := d
	if u < 0 {
		u = -u
	}
	return u != 0 && u&(u-1) == 0
}

// cgenDivPow2 implements spec.md §4.4's "constant power of two" path: a
// shift replaces the divide. For signed operands a rounding bias is added
// before the shift so the result truncates toward zero; modulo by a
// power of two of an unsigned value is a bitwise AND.
func (cg *CodeGen) cgenDivPow2(n *ir.Node, d int64, mod, signed bool, width int64) (asm.Addr, error) {
	neg := d < 0
	ad := d
	if neg {
		ad = -d
	}
	k := uint(bits.TrailingZeros64(uint64(ad)))

	x, err := cg.Cgen(n.Left)
	if err != nil {
		return asm.Addr{}, err
	}
	dst, err := cg.Regs.RegAlloc(false, n.Type.Width, &x)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gmove(n.Left.Type, n.Type, x, dst)

	if mod {
		if !signed {
			// x % 2^k, unsigned: AND with (2^k - 1).
			cg.Gins("AND", asm.NewConstAddr((int64(1)<<k)-1, n.Type.Width), dst)
			return dst, nil
		}
		// Signed modulo by a power of two: q = x/d computed via the
		// same bias-then-shift below, then r = x - q*d (spec.md §4.4,
		// "Modulo via division").
		q, err := cg.cgenDivPow2(cloneDivNode(n), d, false, true, width)
		if err != nil {
			return asm.Addr{}, err
		}
		cg.Gins("IMUL", asm.NewConstAddr(d, n.Type.Width), q)
		cg.Gins("SUB", q, dst)
		if err := cg.Regs.RegFree(q); err != nil {
			return asm.Addr{}, err
		}
		return dst, nil
	}

	if signed && k > 0 {
		bias, err := cg.Regs.RegAlloc(false, n.Type.Width, nil)
		if err != nil {
			return asm.Addr{}, err
		}
		cg.Gmove(n.Type, n.Type, dst, bias)
		cg.Gins("SAR", asm.NewConstAddr(int64(width-1), n.Type.Width), bias)
		cg.Gins("SHR", asm.NewConstAddr(int64(width-int64(k)), n.Type.Width), bias)
		cg.Gins("ADD", bias, dst)
		if err := cg.Regs.RegFree(bias); err != nil {
			return asm.Addr{}, err
		}
	}
	if k > 0 {
		cg.Gins("SAR", asm.NewConstAddr(int64(k), n.Type.Width), dst)
	}
	if neg {
		cg.Gins("NEG", asm.Addr{}, dst)
	}
	return dst, nil
}

// cloneDivNode returns a shallow copy of n suitable for re-lowering the
// quotient computation inside a signed-modulo-by-constant expansion
// (spec.md §4.4, "Modulo via division").
func cloneDivNode(n *ir.Node) *ir.Node {
	c := *n
	return &c
}

// cgenDivMagic implements spec.md §4.4's "constant non-power-of-two"
// path: Hacker's Delight magic multiplication.
func (cg *CodeGen) cgenDivMagic(n *ir.Node, d int64, mod, signed bool, width int64) (asm.Addr, error) {
	x, err := cg.Cgen(n.Left)
	if err != nil {
		return asm.Addr{}, err
	}
	num, err := cg.Regs.RegAlloc(false, n.Type.Width, &x)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gmove(n.Left.Type, n.Type, x, num)

	q, err := cg.Regs.RegAlloc(false, n.Type.Width, nil)
	if err != nil {
		return asm.Addr{}, err
	}

	if signed {
		ad := d
		if ad < 0 {
			ad = -ad
		}
		mag, shift := MagicSigned(ad, uint(width))
		cg.Gmove(n.Type, n.Type, num, q)
		cg.Gins("IMULHI", asm.NewConstAddr(mag, n.Type.Width), q) // q = mulhi(num, mag)
		if mag < 0 {
			cg.Gins("ADD", num, q)
		}
		if shift > 0 {
			cg.Gins("SAR", asm.NewConstAddr(int64(shift), n.Type.Width), q)
		}
		signExtra, err := cg.Regs.RegAlloc(false, n.Type.Width, nil)
		if err != nil {
			return asm.Addr{}, err
		}
		cg.Gmove(n.Type, n.Type, num, signExtra)
		cg.Gins("SAR", asm.NewConstAddr(int64(width-1), n.Type.Width), signExtra)
		cg.Gins("SUB", signExtra, q)
		if err := cg.Regs.RegFree(signExtra); err != nil {
			return asm.Addr{}, err
		}
		if d < 0 {
			cg.Gins("NEG", asm.Addr{}, q)
		}
	} else {
		mag, shift, add := MagicUnsigned(uint64(d), uint(width))
		cg.Gmove(n.Type, n.Type, num, q)
		cg.Gins("MULHI", asm.NewConstAddr(int64(mag), n.Type.Width), q)
		if add {
			cg.Gins("ADD", num, q)
			cg.Gins("RCR", asm.NewConstAddr(1, n.Type.Width), q)
			if shift > 0 {
				cg.Gins("SHR", asm.NewConstAddr(int64(shift-1), n.Type.Width), q)
			}
		} else if shift > 0 {
			cg.Gins("SHR", asm.NewConstAddr(int64(shift), n.Type.Width), q)
		}
	}

	if mod {
		cg.Gins("IMUL", asm.NewConstAddr(d, n.Type.Width), q)
		cg.Gins("SUB", q, num)
		if err := cg.Regs.RegFree(q); err != nil {
			return asm.Addr{}, err
		}
		return num, nil
	}
	if err := cg.Regs.RegFree(num); err != nil {
		return asm.Addr{}, err
	}
	return q, nil
}

// cgenDivGeneral implements spec.md §4.4's "general divisor" path:
// hardware DIV/IDIV, with the most-negative-dividend / -1 guard for
// signed divide and operand widening below the hardware's smallest
// division width.
func (cg *CodeGen) cgenDivGeneral(n *ir.Node, mod, signed bool, width int64) (asm.Addr, error) {
	x, err := cg.Cgen(n.Left)
	if err != nil {
		return asm.Addr{}, err
	}
	y, err := cg.Cgen(n.Right)
	if err != nil {
		return asm.Addr{}, err
	}

	opWidth := n.Type.Width
	needGuard := signed
	if width < cg.T.MinHWDivideWidth {
		// Widen to 32 bits; the trap guard below is unneeded at this
		// width since INT_MIN/-1 cannot occur in a widened operand.
		opWidth = 4
		width = 32
		needGuard = false
	}

	saveAcc, err := cg.Regs.SaveX(cg.T.Accumulator, false, nil)
	if err != nil {
		return asm.Addr{}, err
	}
	saveHi, err := cg.Regs.SaveX(cg.T.DivHi, false, nil)
	if err != nil {
		return asm.Addr{}, err
	}

	acc := asm.NewRegAddr(cg.T, cg.T.Accumulator, false, opWidth)
	cg.Gmove(n.Left.Type, n.Type, x, acc)

	var guardSkip *asm.Branch
	if needGuard {
		cg.Gins("CMP", asm.NewConstAddr(minInt(width), opWidth), acc)
		notMin := cg.Buf.Branch("JNE", asm.Addr{}, n.Line)
		cg.Gins("CMP", asm.NewConstAddr(-1, opWidth), y)
		guardSkip = cg.Buf.Branch("JEQ", asm.Addr{}, n.Line)
		target := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
		if err := notMin.Patch(target); err != nil {
			return asm.Addr{}, err
		}
	}

	if signed {
		cg.Gins("CDQ", asm.Addr{}, asm.Addr{})
		cg.Gins("IDIV", y, asm.Addr{})
	} else {
		hi := asm.NewRegAddr(cg.T, cg.T.DivHi, false, opWidth)
		cg.Gins("XOR", hi, hi)
		cg.Gins("DIV", y, asm.Addr{})
	}

	var after *asm.Prog
	if needGuard {
		skip := cg.Buf.Branch("JMP", asm.Addr{}, n.Line)
		trapTarget := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
		if err := guardSkip.Patch(trapTarget); err != nil {
			return asm.Addr{}, err
		}
		if mod {
			cg.Gins("XOR", asm.Addr{}, asm.NewRegAddr(cg.T, cg.T.DivHi, false, opWidth))
		} else {
			cg.Gins("MOV", asm.NewConstAddr(minInt(width), opWidth), acc)
		}
		after = cg.Gins("NOP", asm.Addr{}, asm.Addr{})
		if err := skip.Patch(after); err != nil {
			return asm.Addr{}, err
		}
	}

	result := acc
	if mod {
		result = asm.NewRegAddr(cg.T, cg.T.DivHi, false, opWidth)
	}

	dst, err := cg.Regs.RegAlloc(false, n.Type.Width, nil)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gmove(n.Type, n.Type, result, dst)

	if err := cg.Regs.RestX(saveHi); err != nil {
		return asm.Addr{}, err
	}
	if err := cg.Regs.RestX(saveAcc); err != nil {
		return asm.Addr{}, err
	}
	if y.Mode == asm.ModeReg {
		if err := cg.Regs.RegFree(y); err != nil {
			return asm.Addr{}, err
		}
	}
	return dst, nil
}

func minInt(width int64) int64 {
	return -(int64(1) << (width - 1))
}

// divByZero emits the runtime trap for a statically-known division by
// zero: a direct call to the general divide path lets the hardware
// fault, preserving the same user-visible trap spec.md §8.4 specifies.
func (cg *CodeGen) divByZero(n *ir.Node) (asm.Addr, error) {
	return cg.cgenDivGeneral(n, n.Op == ir.OpMod, n.Type.IsSigned(), n.Type.Width*8)
}
