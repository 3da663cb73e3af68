// Package cgen implements the code generator (spec.md §4.1-§4.8): operand
// selection, register allocation, evaluation order, and the special-case
// lowerings for calls, division, shifts, slices and compound assignment.
//
// Per Design Notes ("Global emitter state"), every lowering here takes a
// *CodeGen explicitly instead of reading package-level globals; tests can
// therefore instantiate independent generators.
package cgen

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/cgen/amd64"
	"github.com/hramberg-labs/ngen/src/cgen/x86"
	"github.com/hramberg-labs/ngen/src/ir"
	"github.com/hramberg-labs/ngen/src/target"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// CodeGen is the per-procedure compilation context (Design Notes). It
// owns the instruction buffer, the register file, the current procedure
// descriptor and the shared bounds-check throw target (spec.md §5,
// "Shared resources").
type CodeGen struct {
	T    *target.Target
	Buf  asm.Buffer
	Regs *asm.RegFile
	Proc *ir.Procedure
	Log  *logrus.Logger

	throwPC   *asm.Prog // Shared bounds-check throw target's entry Prog (spec.md §4.6).
	line      int
	localUsed map[string]bool // Diagnostic dedup for the "local used" user error (spec.md §7 kind 2).
	tempSeq   int // Counter backing newTemp's synthesized autotmp_N symbol names.

	framePatch []*asm.Prog // Placeholder prologue/epilogue SUB/ADD Progs awaiting the final frame size (spec.md §4.8).

	// hasDefer and retBranches implement the "goto ret" pattern Design
	// Notes calls for refactoring into an explicit shared target: every
	// `return` statement, and the panic-in-defer path out of a deferred
	// call, jump here instead of each emitting its own epilogue+RET
	// (spec.md §8 S6). The target is resolved once, at the end of
	// Compile, after the whole body has been walked.
	hasDefer    bool
	retBranches []*asm.Branch
}

// New returns a fresh CodeGen for compiling proc on target t.
func New(t *target.Target, proc *ir.Procedure) *CodeGen {
	return &CodeGen{
		T:         t,
		Regs:      asm.NewRegFile(t),
		Proc:      proc,
		Log:       logrus.StandardLogger(),
		localUsed: map[string]bool{},
	}
}

// Compile lowers cg.Proc's Node tree to a complete instruction stream.
// This is the back end's one exported entry point (spec.md §6).
func (cg *CodeGen) Compile() error {
	entryInts, entryFloats := cg.Regs.Snapshot()

	cg.checkLocalCollisions()

	cg.emitPrologue()
	if err := cg.walkStmt(cg.Proc.Body); err != nil {
		return err
	}

	if err := cg.emitRet(); err != nil {
		return err
	}

	if err := cg.Buf.Close(); err != nil {
		return errors.Wrap(err, "cgen: compile")
	}

	MarkAutoUsed(cg.Proc, &cg.Buf)
	cg.patchFrame()

	exitInts, exitFloats := cg.Regs.Snapshot()
	if !intSliceEqual(entryInts, exitInts) || !intSliceEqual(entryFloats, exitFloats) {
		return errors.Errorf("cgen: register discipline violated compiling %s: entry=%v/%v exit=%v/%v",
			cg.Proc.Sym.Name, entryInts, entryFloats, exitInts, exitFloats)
	}
	return nil
}

// emitPrologue dispatches to the owning target's frame-setup sequence
// (src/cgen/amd64 or src/cgen/x86) and remembers the placeholder
// reservation instruction for patchFrame.
func (cg *CodeGen) emitPrologue() {
	var p *asm.Prog
	if cg.T.Name == "amd64" {
		p = amd64.Prologue(&cg.Buf, cg.T, cg.line)
	} else {
		p = x86.Prologue(&cg.Buf, cg.T, cg.line)
	}
	cg.framePatch = append(cg.framePatch, p)
}

// emitEpilogue dispatches to the owning target's frame-teardown sequence,
// called by emitRet ahead of the procedure's single RET (spec.md §4.8).
func (cg *CodeGen) emitEpilogue() {
	var p *asm.Prog
	if cg.T.Name == "amd64" {
		p = amd64.Epilogue(&cg.Buf, cg.T, cg.line)
	} else {
		p = x86.Epilogue(&cg.Buf, cg.T, cg.line)
	}
	cg.framePatch = append(cg.framePatch, p)
}

// emitRet resolves the shared "ret:" target every `return` statement and
// every deferred call's panic path jump to (spec.md §4.3, §8 S6),
// emitting the real epilogue and RET exactly once regardless of how many
// return statements the body contained. A procedure that declared any
// deferred call gets a call to the runtime's deferreturn ahead of the
// epilogue, matching S6's "the epilogue contains a call to deferreturn".
func (cg *CodeGen) emitRet() error {
	target := cg.Gins("NOP", asm.Addr{}, asm.Addr{})
	for _, br := range cg.retBranches {
		if err := br.Patch(target); err != nil {
			return errors.Wrap(err, "cgen: compile: patching return branch")
		}
	}
	if cg.hasDefer {
		cg.Gins("CALL", asm.Addr{Mode: asm.ModeSym, Sym: deferreturnSym}, asm.Addr{})
	}
	cg.emitEpilogue()
	cg.Gins("RET", asm.Addr{}, asm.Addr{})
	return nil
}

// patchFrame rewrites every placeholder prologue/epilogue reservation
// instruction's immediate to the final, alignment-rounded frame size, now
// that compactframe has run (spec.md §4.8): the footprint isn't known
// until dead locals have been dropped.
func (cg *CodeGen) patchFrame() {
	size := cg.Proc.FrameSize
	if cg.T.Name == "amd64" {
		size = amd64.AlignFrame(cg.T, size)
	} else {
		size = x86.AlignFrame(cg.T, size)
	}
	for _, p := range cg.framePatch {
		p.From = asm.NewConstAddr(size, cg.T.PointerWidth)
		if p.Op == "SUB" {
			p.SPAdj = size
		} else if p.Op == "ADD" {
			p.SPAdj = -size
		}
	}
}

// checkLocalCollisions implements spec.md §7 kind 2: a user-source error
// surfaced during lowering that does not halt further code generation
// within the procedure, unlike an internal invariant violation. Two
// automatics sharing a name is exactly this back end's analogue of the
// front end's "local used" diagnostic (the front end is expected to catch
// most redeclarations itself; this is the back end's own backstop for
// whatever slips through, since compactframe's offset assignment would
// otherwise silently alias two locals at the same slot). Each distinct
// colliding name is reported once per procedure.
func (cg *CodeGen) checkLocalCollisions() {
	seen := map[string]bool{}
	for _, sym := range cg.Proc.Auto {
		if sym.Name == "" {
			continue
		}
		if seen[sym.Name] {
			if !cg.localUsed[sym.Name] {
				cg.localUsed[sym.Name] = true
				cg.Log.WithFields(logrus.Fields{
					"procedure": cg.Proc.Sym.Name,
					"local":     sym.Name,
				}).Warn("cgen: local used: redeclared automatic shares a name with an earlier one")
			}
			continue
		}
		seen[sym.Name] = true
	}
}

func intSliceEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---------------------
// ----- Operand canonicalisation (spec.md §4.1) -----
// ---------------------

// Naddr projects a Node onto an Addr. canfail indicates the node may not
// have a simple addressing-mode representation, in which case Naddr
// returns (Addr{}, false) instead of an error; the caller is expected to
// fall back to evaluating the node into a register.
func (cg *CodeGen) Naddr(n *ir.Node, canfail bool) (Addr asm.Addr, ok bool) {
	if n == nil {
		return asm.Addr{}, false
	}
	width := int64(0)
	if n.Type != nil {
		width = n.Type.Width
	}
	switch n.Op {
	case ir.OpConst:
		if n.Type != nil && n.Type.IsFloat() {
			return asm.Addr{Mode: asm.ModeFConst, FloatVal: n.FloatVal, Width: width}, true
		}
		return asm.NewConstAddr(n.IntVal, width), true
	case ir.OpName:
		if n.Sym == nil {
			if canfail {
				return asm.Addr{}, false
			}
			return asm.Addr{}, false
		}
		switch n.Class {
		case ir.ClassAuto:
			return asm.NewAutoAddr(n, n.Sym.Offset, width), true
		case ir.ClassParam:
			return asm.Addr{Mode: asm.ModeParam, Node: n, Offset: n.Sym.Offset, Width: width}, true
		case ir.ClassGlobal, ir.ClassFunc:
			return asm.Addr{Mode: asm.ModeMem, Sym: n.Sym, Width: width}, true
		}
	}
	if canfail {
		return asm.Addr{}, false
	}
	return asm.Addr{}, false
}

// Gins appends one instruction using the chosen operand descriptors.
func (cg *CodeGen) Gins(op string, from, to asm.Addr) *asm.Prog {
	return cg.Buf.Emit(op, from, to, cg.line)
}

// Gmove emits a typed move from src to dst, inserting width extension or
// float/integer conversion as required by the two operand types
// (spec.md §4.1's gmove).
func (cg *CodeGen) Gmove(srcType, dstType *ir.Type, src, dst asm.Addr) {
	op := "MOV"
	switch {
	case srcType.IsFloat() && dstType.IsFloat():
		op = "MOVSS"
		if dstType.Width == 8 {
			op = "MOVSD"
		}
	case srcType.IsFloat() && !dstType.IsFloat():
		op = "CVTTSD2SI"
	case !srcType.IsFloat() && dstType.IsFloat():
		op = "CVTSI2SD"
	case dstType.Width > srcType.Width:
		if srcType.IsSigned() {
			op = "MOVSX"
		} else {
			op = "MOVZX"
		}
	}
	cg.Gins(op, src, dst)
}

// ---------------------
// ----- Evaluation order (spec.md §4.2) -----
// ---------------------

// order decides, for a binary node, which child to evaluate first. If
// both children have Ullman number ir.Infinity, the left child is forced
// through a stack temporary first (the one case a temporary is forced);
// otherwise the subtree with the larger Ullman number goes first so its
// result can be held in a register while the cheaper subtree evaluates.
func order(n *ir.Node) (first, second *ir.Node, forcedTemp bool) {
	if n.Left.Ullman >= ir.Infinity && n.Right.Ullman >= ir.Infinity {
		return n.Left, n.Right, true
	}
	if n.Left.Ullman >= n.Right.Ullman {
		return n.Left, n.Right, false
	}
	return n.Right, n.Left, false
}
