package cgen

import (
	"github.com/pkg/errors"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
)

// ---------------------
// ----- Statement walk -----
// ---------------------

// walkStmt lowers one statement node, recursing into its children. It is
// intentionally small: the front end guarantees a typed, validated tree,
// so this is the classic per-operator switch (spec.md §4), not a
// validating pass.
func (cg *CodeGen) walkStmt(n *ir.Node) error {
	if n == nil {
		return nil
	}
	cg.line = n.Line

	switch n.Op {
	case ir.OpAssign:
		return cg.cgenAssign(n)
	case ir.OpAsOp:
		return cg.CgenAsOp(n)
	case ir.OpReturn:
		return cg.cgenReturn(n)
	case ir.OpIf:
		return cg.cgenIf(n)
	case ir.OpFor:
		return cg.cgenFor(n)
	case ir.OpClear:
		return cg.cgenClearStmt(n)
	case ir.OpCall, ir.OpCallInter, ir.OpCallDefer, ir.OpCallGo:
		_, err := cg.cgenCallStmt(n)
		return err
	default:
		// A STATEMENT_LIST-equivalent: walk Aux in order, then Left;
		// Right is not walked.
		for _, c := range n.Aux {
			if err := cg.walkStmt(c); err != nil {
				return err
			}
		}
		if n.Left != nil {
			return cg.walkStmt(n.Left)
		}
		return nil
	}
}

func (cg *CodeGen) cgenCallStmt(n *ir.Node) (asm.Addr, error) {
	switch n.Op {
	case ir.OpCallDefer:
		return cg.CgenCall(n, CallDeferred)
	case ir.OpCallGo:
		return cg.CgenCall(n, CallAsync)
	case ir.OpCallInter:
		return cg.CgenCallInter(n)
	default:
		return cg.CgenCall(n, CallNormal)
	}
}

// cgenAssign lowers `x = y`. If x is addressable the value is computed
// straight to x's address; otherwise it is computed into a register and
// stored.
func (cg *CodeGen) cgenAssign(n *ir.Node) error {
	lhs := n.Left
	rhs := n.Right

	dst, ok := cg.Naddr(lhs, true)
	if !ok {
		return errors.Errorf("cgen: assignment target %s is not addressable", lhs)
	}

	v, err := cg.Cgen(rhs)
	if err != nil {
		return err
	}
	cg.Gmove(rhs.Type, lhs.Type, v, dst)
	if v.Mode == asm.ModeReg {
		return cg.Regs.RegFree(v)
	}
	return nil
}

// cgenReturn lowers `return e0, e1, ...`, copying each result into the
// corresponding slot of the outgoing result area.
func (cg *CodeGen) cgenReturn(n *ir.Node) error {
	base := cg.Proc.Sig.FirstResultOffset()
	for i, e := range n.Aux {
		v, err := cg.Cgen(e)
		if err != nil {
			return err
		}
		off := base
		if i < len(cg.Proc.Sig.Results) {
			off = cg.Proc.Sig.Results[i].Offset
		}
		dst := asm.Addr{Mode: asm.ModeParam, Offset: off, Width: e.Type.Width}
		cg.Gmove(e.Type, cg.Proc.Sig.Results[i].Type, v, dst)
		if v.Mode == asm.ModeReg {
			if err := cg.Regs.RegFree(v); err != nil {
				return err
			}
		}
	}
	cg.retBranches = append(cg.retBranches, cg.Buf.Branch("JMP", asm.Addr{}, n.Line))
	return nil
}

// cgenIf lowers `if cond { then } else { els }` with the classic
// compare-and-branch pattern: evaluate cond, branch over then on false,
// jump past els at the end of then if els is present.
func (cg *CodeGen) cgenIf(n *ir.Node) error {
	cond, err := cg.Cgen(n.Left)
	if err != nil {
		return err
	}
	els := n.Aux
	var elseBody *ir.Node
	if len(els) > 0 {
		elseBody = els[0]
	}

	toElse := cg.Buf.Branch("JEQ", cond, n.Line)
	if cond.Mode == asm.ModeReg {
		if err := cg.Regs.RegFree(cond); err != nil {
			return err
		}
	}

	if err := cg.walkStmt(n.Right); err != nil {
		return err
	}

	if elseBody == nil {
		target := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
		return toElse.Patch(target)
	}

	toEnd := cg.Buf.Branch("JMP", asm.Addr{}, n.Line)
	elseTarget := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
	if err := toElse.Patch(elseTarget); err != nil {
		return err
	}
	if err := cg.walkStmt(elseBody); err != nil {
		return err
	}
	endTarget := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
	return toEnd.Patch(endTarget)
}

// cgenFor lowers `for cond { body }`.
func (cg *CodeGen) cgenFor(n *ir.Node) error {
	top := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
	cond, err := cg.Cgen(n.Left)
	if err != nil {
		return err
	}
	toEnd := cg.Buf.Branch("JEQ", cond, n.Line)
	if cond.Mode == asm.ModeReg {
		if err := cg.Regs.RegFree(cond); err != nil {
			return err
		}
	}
	if err := cg.walkStmt(n.Right); err != nil {
		return err
	}
	cg.Gins("JMP", asm.Addr{}, asm.Addr{Mode: asm.ModePC, Offset: top.PC})
	end := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
	return toEnd.Patch(end)
}
