package cgen

import (
	"github.com/pkg/errors"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
)

// ---------------------
// ----- Calls (spec.md §4.3) -----
// ---------------------

// CallKind selects the three call-site shapes spec.md §4.3 describes: an
// ordinary synchronous call, a deferred call queued via newproc's sibling
// deferproc, and an asynchronous "go" call lowered through newproc.
type CallKind int

const (
	CallNormal CallKind = iota
	CallDeferred
	CallAsync
)

func (k CallKind) String() string {
	switch k {
	case CallDeferred:
		return "deferred"
	case CallAsync:
		return "async"
	default:
		return "normal"
	}
}

// CgenCall lowers a direct or deferred/async call: arguments are pushed to
// the outgoing argument area in declaration order, then CALL, deferproc or
// newproc is emitted depending on kind. A normal call's result is moved
// from the start of the callee's result area into one register and
// returned to the caller; further results of a multi-result call are not
// collected.
func (cg *CodeGen) CgenCall(n *ir.Node, kind CallKind) (asm.Addr, error) {
	fn, ok := cg.Naddr(n.Left, true)
	if !ok {
		return asm.Addr{}, errors.Errorf("cgen: call target %s is not addressable", n.Left)
	}

	argOff := int64(0)
	for _, arg := range n.Aux {
		v, err := cg.Cgen(arg)
		if err != nil {
			return asm.Addr{}, err
		}
		slot := asm.Addr{Mode: asm.ModeParam, Offset: argOff, Width: arg.Type.Width}
		cg.Gmove(arg.Type, arg.Type, v, slot)
		if v.Mode == asm.ModeReg {
			if err := cg.Regs.RegFree(v); err != nil {
				return asm.Addr{}, err
			}
		}
		argOff += arg.Type.Width
	}

	switch kind {
	case CallDeferred:
		return asm.Addr{}, cg.cgenDeferproc(n, fn, argOff)
	case CallAsync:
		return asm.Addr{}, cg.cgenNewproc(fn, argOff)
	}

	cg.Gins("CALL", fn, asm.Addr{})

	if n.Type == nil {
		return asm.Addr{}, nil
	}
	resAddr := asm.Addr{Mode: asm.ModeParam, Offset: argOff, Width: n.Type.Width}
	dst, err := cg.Regs.RegAlloc(n.Type.IsFloat(), n.Type.Width, nil)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gmove(n.Type, n.Type, resAddr, dst)
	return dst, nil
}

// CgenCallInter lowers a call through an interface value: the method
// address is fetched from the interface's type-descriptor's method table
// rather than known at compile time (spec.md §4.3, "Interface dispatch").
func (cg *CodeGen) CgenCallInter(n *ir.Node) (asm.Addr, error) {
	recv, err := cg.Cgen(n.Left.Left)
	if err != nil {
		return asm.Addr{}, err
	}

	itab, err := cg.Regs.RegAlloc(false, cg.T.PointerWidth, nil)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gins("MOV", asm.Addr{Mode: asm.ModeIndir, Base: recv.Reg, Offset: 0, Width: cg.T.PointerWidth}, itab)

	methodOff := 3*cg.T.PointerWidth + 8 + n.Left.Offset
	fnReg, err := cg.Regs.RegAlloc(false, cg.T.PointerWidth, nil)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gins("MOV", asm.Addr{Mode: asm.ModeIndir, Base: itab.Reg, Offset: methodOff, Width: cg.T.PointerWidth}, fnReg)
	if err := cg.Regs.RegFree(itab); err != nil {
		return asm.Addr{}, err
	}

	argOff := int64(0)
	dataPtr := asm.Addr{Mode: asm.ModeIndir, Base: recv.Reg, Offset: cg.T.PointerWidth, Width: cg.T.PointerWidth}
	recvSlot := asm.Addr{Mode: asm.ModeParam, Offset: 0, Width: cg.T.PointerWidth}
	cg.Gmove(&ir.Type{Width: cg.T.PointerWidth}, &ir.Type{Width: cg.T.PointerWidth}, dataPtr, recvSlot)
	argOff += cg.T.PointerWidth
	if err := cg.Regs.RegFree(recv); err != nil {
		return asm.Addr{}, err
	}

	for _, arg := range n.Aux {
		v, err := cg.Cgen(arg)
		if err != nil {
			return asm.Addr{}, err
		}
		slot := asm.Addr{Mode: asm.ModeParam, Offset: argOff, Width: arg.Type.Width}
		cg.Gmove(arg.Type, arg.Type, v, slot)
		if v.Mode == asm.ModeReg {
			if err := cg.Regs.RegFree(v); err != nil {
				return asm.Addr{}, err
			}
		}
		argOff += arg.Type.Width
	}

	cg.Gins("CALL", fnReg, asm.Addr{})
	if err := cg.Regs.RegFree(fnReg); err != nil {
		return asm.Addr{}, err
	}

	if n.Type == nil {
		return asm.Addr{}, nil
	}
	resAddr := asm.Addr{Mode: asm.ModeParam, Offset: argOff, Width: n.Type.Width}
	dst, err := cg.Regs.RegAlloc(n.Type.IsFloat(), n.Type.Width, nil)
	if err != nil {
		return asm.Addr{}, err
	}
	cg.Gmove(n.Type, n.Type, resAddr, dst)
	return dst, nil
}

var (
	deferprocSym   = &ir.Symbol{Name: "deferproc", Class: ir.ClassFunc}
	deferreturnSym = &ir.Symbol{Name: "deferreturn", Class: ir.ClassFunc}
	newprocSym     = &ir.Symbol{Name: "newproc", Class: ir.ClassFunc}
)

// cgenDeferproc implements spec.md §4.3's "deferred" call mode: the
// callee and its packed argument size are pushed, runtime deferproc is
// called, the two pushed words are popped, and deferproc's return value
// is tested -- a non-zero return means a panic is unwinding through this
// defer and control must jump straight to the procedure epilogue rather
// than falling through to the statement after the defer (spec.md §8 S6).
// Marks the procedure as needing a deferreturn call in its epilogue.
func (cg *CodeGen) cgenDeferproc(n *ir.Node, fn asm.Addr, argsize int64) error {
	cg.hasDefer = true

	word := cg.T.PointerWidth
	cg.Gins("PUSH", asm.NewConstAddr(argsize, word), asm.Addr{})
	cg.Gins("PUSH", fn, asm.Addr{})
	cg.Gins("CALL", asm.Addr{Mode: asm.ModeSym, Sym: deferprocSym}, asm.Addr{})
	cg.Gins("ADD", asm.NewConstAddr(2*word, word), asm.NewRegAddr(cg.T, cg.T.SP, false, word))

	acc := asm.NewRegAddr(cg.T, cg.T.Accumulator, false, word)
	cg.Gins("CMP", asm.NewConstAddr(0, word), acc)
	noPanic := cg.Buf.Branch("JEQ", asm.Addr{}, n.Line)
	cg.retBranches = append(cg.retBranches, cg.Buf.Branch("JMP", asm.Addr{}, n.Line))
	target := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
	return noPanic.Patch(target)
}

// cgenNewproc implements spec.md §4.3's "asynchronous" call mode:
// identical in shape to cgenDeferproc's push/call/pop sequence but
// through newproc, with no return-value test.
func (cg *CodeGen) cgenNewproc(fn asm.Addr, argsize int64) error {
	word := cg.T.PointerWidth
	cg.Gins("PUSH", asm.NewConstAddr(argsize, word), asm.Addr{})
	cg.Gins("PUSH", fn, asm.Addr{})
	cg.Gins("CALL", asm.Addr{Mode: asm.ModeSym, Sym: newprocSym}, asm.Addr{})
	cg.Gins("ADD", asm.NewConstAddr(2*word, word), asm.NewRegAddr(cg.T, cg.T.SP, false, word))
	return nil
}
