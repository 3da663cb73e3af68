package asm

import (
	"github.com/pkg/errors"
	"github.com/hramberg-labs/ngen/src/target"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// RegFile is the fixed-size reference-count register bank spec.md §2/§3
// describes: a register is "busy" iff its count is >= 1. Generalised from
// vslc/src/backend/regfile.RegisterFile's named-getter interface to the
// ref-counted allocate/free discipline the spec requires (DESIGN.md).
type RegFile struct {
	t       *target.Target
	intRef  []int
	fltRef  []int
}

// NewRegFile returns a RegFile sized for target t, all registers free.
func NewRegFile(t *target.Target) *RegFile {
	return &RegFile{
		t:      t,
		intRef: make([]int, t.NumIntReg),
		fltRef: make([]int, t.NumFloatReg),
	}
}

// ---------------------
// ----- Functions -----
// ---------------------

// Snapshot returns a copy of the current reference-count vectors, for the
// register-discipline property test (spec.md §8.1): at the final
// instruction of a compiled procedure this must equal the snapshot taken
// at entry.
func (rf *RegFile) Snapshot() (ints, floats []int) {
	ints = append([]int(nil), rf.intRef...)
	floats = append([]int(nil), rf.fltRef...)
	return
}

// bank returns the reference-count slice for the requested register class.
func (rf *RegFile) bank(float bool) []int {
	if float {
		return rf.fltRef
	}
	return rf.intRef
}

// Busy reports whether register r of the given bank is currently
// allocated (ref count >= 1).
func (rf *RegFile) Busy(r target.Reg, float bool) bool {
	return rf.bank(float)[r] > 0
}

// RegAlloc implements spec.md §4.1's regalloc: it picks a free register of
// the bank matching typeIsFloat, preferring hint if hint is itself a free
// register of a compatible bank, and returns a register-class Addr bound
// to it. The caller must later call RegFree. Allocations within a single
// expression must be freed in the reverse order they were acquired
// (spec.md §3 invariants); RegFile does not itself enforce the ordering —
// src/cgen's evaluation-order walk is responsible for that discipline,
// the same split of concerns vslc/src/backend/lir/regalloc.go makes
// between register-file bookkeeping and the expression walker that drives it.
func (rf *RegFile) RegAlloc(typeIsFloat bool, width int64, hint *Addr) (Addr, error) {
	bank := rf.bank(typeIsFloat)

	if hint != nil && hint.Mode == ModeReg && hint.Float == typeIsFloat && bank[hint.Reg] == 0 {
		bank[hint.Reg]++
		return NewRegAddr(rf.t, hint.Reg, typeIsFloat, width), nil
	}

	for i, ref := range bank {
		if ref == 0 {
			bank[i]++
			return NewRegAddr(rf.t, target.Reg(i), typeIsFloat, width), nil
		}
	}
	return Addr{}, errors.Errorf("asm: regalloc: no free %s register available", bankName(typeIsFloat))
}

// RegFree decrements a.Reg's reference count. It is an internal invariant
// violation to free a register that is not currently allocated, or to
// free a non-register Addr.
func (rf *RegFile) RegFree(a Addr) error {
	if a.Mode != ModeReg {
		return errors.New("asm: regfree: operand is not a register")
	}
	bank := rf.bank(a.Float)
	if bank[a.Reg] == 0 {
		return errors.Errorf("asm: regfree: register %s already free", a)
	}
	bank[a.Reg]--
	return nil
}

// hold forces the reference count of register r in the given bank to n,
// used by the special-register save/restore protocol (SaveX/RestX) to
// mark a displaced register as temporarily unavailable or to re-mark a
// restored one as free.
func (rf *RegFile) hold(r target.Reg, float bool, n int) {
	rf.bank(float)[r] = n
}

func bankName(float bool) string {
	if float {
		return "floating-point"
	}
	return "integer"
}

// Saved records the displacement SaveX performs so RestX can undo it.
type Saved struct {
	reg       target.Reg
	float     bool
	wasBusy   bool
	moved     Addr // Where the displaced value was relocated to, if wasBusy.
	haveMoved bool
}

// SaveX implements spec.md §4.1's savex: if the requested special-purpose
// register reg is currently busy, it is spilled to a fresh allocation of
// any register of the same bank (the caller may choose to spill to a
// stack temporary instead by ignoring the returned register and emitting
// its own move — RegFile only handles the register-bank bookkeeping).
// If result equals reg the displacement is skipped, because the caller
// has declared reg dead on entry (spec.md §4.1).
func (rf *RegFile) SaveX(reg target.Reg, float bool, result *Addr) (Saved, error) {
	if result != nil && result.Mode == ModeReg && result.Reg == reg && result.Float == float {
		return Saved{reg: reg, float: float}, nil
	}
	if !rf.Busy(reg, float) {
		rf.hold(reg, float, 1)
		return Saved{reg: reg, float: float}, nil
	}

	scratch, err := rf.RegAlloc(float, 0, nil)
	if err != nil {
		return Saved{}, errors.Wrap(err, "asm: savex: no scratch register to spill into")
	}
	return Saved{reg: reg, float: float, wasBusy: true, moved: scratch, haveMoved: true}, nil
}

// RestX undoes a prior SaveX: it frees the scratch register the displaced
// value was moved into (the caller is responsible for having already
// emitted the move instructions restoring reg's original occupant), and
// marks reg itself free again if SaveX had marked it held.
func (rf *RegFile) RestX(s Saved) error {
	if s.haveMoved {
		return rf.RegFree(s.moved)
	}
	rf.hold(s.reg, s.float, 0)
	return nil
}
