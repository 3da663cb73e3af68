package cgen

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
)

// ---------------------
// ----- Expression evaluation (spec.md §4.2) -----
// ---------------------

// Cgen evaluates expression node n into a register and returns its Addr.
// Addressing-mode leaves (n.Addable) are passed through directly: no
// instruction is emitted to "fetch" them (spec.md §4.2).
func (cg *CodeGen) Cgen(n *ir.Node) (asm.Addr, error) {
	if n == nil {
		return asm.Addr{}, errors.New("cgen: nil expression node")
	}
	cg.line = n.Line

	if n.Addable {
		if a, ok := cg.Naddr(n, true); ok {
			return a, nil
		}
	}

	switch n.Op {
	case ir.OpConst, ir.OpName:
		a, ok := cg.Naddr(n, false)
		if !ok {
			return asm.Addr{}, errors.Errorf("cgen: cannot address %s", n)
		}
		return a, nil

	case ir.OpAdd, ir.OpSub, ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpMul:
		return cg.cgenBinary(n)

	case ir.OpDiv:
		return cg.CgenDiv(n, false)
	case ir.OpMod:
		return cg.CgenDiv(n, true)

	case ir.OpLsh, ir.OpRsh:
		return cg.CgenShift(n)

	case ir.OpNeg:
		src, err := cg.Cgen(n.Left)
		if err != nil {
			return asm.Addr{}, err
		}
		dst, err := cg.Regs.RegAlloc(n.Type.IsFloat(), n.Type.Width, &src)
		if err != nil {
			return asm.Addr{}, err
		}
		cg.Gmove(n.Left.Type, n.Type, src, dst)
		cg.Gins(negOp(n.Type), asm.Addr{}, dst)
		return dst, nil

	case ir.OpAddr:
		a, ok := cg.Naddr(n.Left, false)
		if !ok {
			return asm.Addr{}, errors.Errorf("cgen: cannot take address of %s", n.Left)
		}
		dst, err := cg.Regs.RegAlloc(false, cg.T.PointerWidth, nil)
		if err != nil {
			return asm.Addr{}, err
		}
		cg.Gins("LEA", a, dst)
		return dst, nil

	case ir.OpCall:
		return cg.CgenCall(n, CallNormal)
	case ir.OpCallInter:
		return cg.CgenCallInter(n)

	case ir.OpSlice, ir.OpSlice3:
		return cg.CgenSlice(n)
	}
	return asm.Addr{}, errors.Errorf("cgen: unhandled expression operator %s", n.Op)
}

// cgenBinary implements the general binary-operator path: pick evaluation
// order per spec.md §4.2, hold the first operand in a register across the
// evaluation of the second, then emit the operator.
func (cg *CodeGen) cgenBinary(n *ir.Node) (asm.Addr, error) {
	first, second, forced := order(n)

	var firstAddr asm.Addr
	var err error
	if forced {
		// Both subtrees may call; force the first through a stack
		// temporary so its value survives the second subtree's call.
		firstAddr, err = cg.cgenToTemp(first)
	} else {
		firstAddr, err = cg.Cgen(first)
	}
	if err != nil {
		return asm.Addr{}, err
	}

	// Hold the first operand's register live across the second's
	// evaluation: a first operand already in a register becomes the
	// result register; otherwise it is moved into a freshly allocated one.
	var dst asm.Addr
	if firstAddr.Mode == asm.ModeReg {
		dst = firstAddr
	} else {
		dst, err = cg.Regs.RegAlloc(n.Type.IsFloat(), n.Type.Width, nil)
		if err != nil {
			return asm.Addr{}, err
		}
		cg.Gmove(first.Type, n.Type, firstAddr, dst)
	}

	secondAddr, err := cg.Cgen(second)
	if err != nil {
		return asm.Addr{}, err
	}

	op := binOp(n.Op, n.Type)
	if second == n.Left {
		// Evaluation order swapped operands relative to source order;
		// commutative ops don't care, non-commutative ops must reverse.
		if !commutative(n.Op) {
			tmp, err := cg.Regs.RegAlloc(n.Type.IsFloat(), n.Type.Width, nil)
			if err != nil {
				return asm.Addr{}, err
			}
			cg.Gmove(n.Type, n.Type, secondAddr, tmp)
			cg.Gins(op, dst, tmp)
			if err := cg.Regs.RegFree(dst); err != nil {
				return asm.Addr{}, err
			}
			return tmp, nil
		}
	}
	cg.Gins(op, secondAddr, dst)
	if secondAddr.Mode == asm.ModeReg {
		if err := cg.Regs.RegFree(secondAddr); err != nil {
			return asm.Addr{}, err
		}
	}
	return dst, nil
}

// cgenToTemp evaluates n and forces the result into a stack temporary
// rather than a register, the one case spec.md §4.2 requires it.
func (cg *CodeGen) cgenToTemp(n *ir.Node) (asm.Addr, error) {
	v, err := cg.Cgen(n)
	if err != nil {
		return asm.Addr{}, err
	}
	if v.Mode != asm.ModeReg {
		return v, nil
	}
	tmp := cg.newTemp(n.Type)
	cg.Gmove(n.Type, n.Type, v, tmp)
	if err := cg.Regs.RegFree(v); err != nil {
		return asm.Addr{}, err
	}
	return tmp, nil
}

// newTemp allocates a frame-pointer-relative stack temporary of the given
// type from the procedure's per-procedure arena (spec.md §5: "Stack
// temporaries are allocated from a per-procedure arena"). The temporary
// gets a real backing Symbol registered in proc.Auto, marked used up
// front, so compactFrame (spec.md §4.8) accounts for it exactly like a
// named local and fixAutoUsed can correct every operand that addresses
// it -- including a multi-field aggregate like a slice header, whose
// array/len/cap sub-addresses all share this one symbol at different
// relative offsets (see sliceSlots).
func (cg *CodeGen) newTemp(t *ir.Type) asm.Addr {
	cg.tempSeq++
	sym := &ir.Symbol{
		Name:  fmt.Sprintf("autotmp_%d", cg.tempSeq),
		Type:  t,
		Class: ir.ClassAuto,
		Width: t.Width,
		Used:  true,
	}
	cg.Proc.FrameSize += t.Width
	sym.Offset = -cg.Proc.FrameSize
	cg.Proc.Auto = append(cg.Proc.Auto, sym)

	n := &ir.Node{Op: ir.OpName, Type: t, Class: ir.ClassAuto, Sym: sym}
	return asm.NewAutoAddr(n, sym.Offset, t.Width)
}

func binOp(op ir.Op, t *ir.Type) string {
	f := t.IsFloat()
	switch op {
	case ir.OpAdd:
		if f {
			return "ADDSD"
		}
		return "ADD"
	case ir.OpSub:
		if f {
			return "SUBSD"
		}
		return "SUB"
	case ir.OpMul:
		if f {
			return "MULSD"
		}
		return "IMUL"
	case ir.OpAnd:
		return "AND"
	case ir.OpOr:
		return "OR"
	case ir.OpXor:
		return "XOR"
	}
	return "???"
}

func commutative(op ir.Op) bool {
	switch op {
	case ir.OpAdd, ir.OpMul, ir.OpAnd, ir.OpOr, ir.OpXor:
		return true
	}
	return false
}

func negOp(t *ir.Type) string {
	if t.IsFloat() {
		return "NEGSD"
	}
	return "NEG"
}
