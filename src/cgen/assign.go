package cgen

import (
	"github.com/pkg/errors"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
)

// ---------------------
// ----- Compound assignment (spec.md §4.7) -----
// ---------------------

// CgenAsOp lowers `x op= y`, preferring the cheapest hardware form
// available for the wrapped operator and operand shape (spec.md §4.7):
//
//   - x++ / x-- by the constant 1 prefer INC/DEC over ADD/SUB.
//   - an addressable x with a simple operand lets the operator apply
//     directly against x's address, avoiding a load-op-store sequence
//     through a register.
//   - anything else falls back to load x into a temporary, apply the
//     operator, and write the result back to x.
func (cg *CodeGen) CgenAsOp(n *ir.Node) error {
	lhs := n.Left
	rhs := n.Right
	op := n.AsOp()

	dst, addressable := cg.Naddr(lhs, true)
	if !addressable {
		return errors.Errorf("cgen: compound-assignment target %s is not addressable", lhs)
	}

	if (op == ir.OpAdd || op == ir.OpSub) && rhs.Op == ir.OpConst && rhs.IntVal == 1 {
		incDec := "INC"
		if op == ir.OpSub {
			incDec = "DEC"
		}
		cg.Gins(incDec, asm.Addr{}, dst)
		return nil
	}

	v, err := cg.Cgen(rhs)
	if err != nil {
		return err
	}

	if dst.Mode == asm.ModeMem || dst.Mode == asm.ModeAuto || dst.Mode == asm.ModeParam {
		if v.Mode != asm.ModeReg && v.Mode != asm.ModeConst {
			// Neither operand is in a register: materialise the operand
			// into one first, since most two-operand forms require at
			// least one register operand.
			tmp, err := cg.Regs.RegAlloc(lhs.Type.IsFloat(), lhs.Type.Width, nil)
			if err != nil {
				return err
			}
			cg.Gmove(rhs.Type, lhs.Type, v, tmp)
			v = tmp
		}
		cg.Gins(binOp(op, lhs.Type), v, dst)
		if v.Mode == asm.ModeReg {
			return cg.Regs.RegFree(v)
		}
		return nil
	}

	// dst is not a simple memory/stack operand (e.g. a bitfield or other
	// non-trivial addressing mode): load, apply, write back.
	cur, err := cg.Regs.RegAlloc(lhs.Type.IsFloat(), lhs.Type.Width, nil)
	if err != nil {
		return err
	}
	cg.Gmove(lhs.Type, lhs.Type, dst, cur)
	cg.Gins(binOp(op, lhs.Type), v, cur)
	cg.Gmove(lhs.Type, lhs.Type, cur, dst)
	if v.Mode == asm.ModeReg {
		if err := cg.Regs.RegFree(v); err != nil {
			return err
		}
	}
	return cg.Regs.RegFree(cur)
}
