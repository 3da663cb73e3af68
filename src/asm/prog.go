package asm

import (
	"fmt"

	"github.com/pkg/errors"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Prog is one emitted machine instruction (spec.md §3, "Instruction").
// Created by Buffer.Emit, appended to the current procedure's list,
// immutable thereafter except for branch-target patching and the
// automatic-offset fix-up compactframe/fixautoused perform after stack
// layout (spec.md §4.8).
type Prog struct {
	Op    string // Opcode mnemonic.
	PC    int64  // Program-counter offset within the procedure.
	Line  int    // Source line, for the DWARF line program.
	From  Addr
	To    Addr
	SPAdj int64 // Stack-pointer adjustment this instruction performs, for the DWARF frame builder (spec.md §4.12).

	next *Prog
	back *Prog // Back-pointer used by the register allocator's reverse walk.
}

// Next returns the instruction following p in program order, or nil at
// the end of the list.
func (p *Prog) Next() *Prog { return p.next }

// Back returns the instruction preceding p, used by the register
// allocator's reverse liveness walk (spec.md §3, the Node.Used union).
func (p *Prog) Back() *Prog { return p.back }

// Branch is the handle a gbranch-equivalent (Buffer.Branch) returns: a
// forward reference to the Prog a later Patch call must resolve. Exactly
// one Branch instruction per handle must be patched before the buffer is
// closed; an unpatched handle is a fatal error (spec.md §3 invariants, §5).
type Branch struct {
	prog    *Prog
	patched bool
}

// Buffer is the append-only instruction list with a PC cursor (spec.md
// §2, "Instruction buffer"). One Buffer exists per procedure being
// compiled; Design Notes asks that this not be process-wide state, so it
// is a plain value owned by the CodeGen context in src/cgen.
type Buffer struct {
	first   *Prog
	last    *Prog
	pc      int64
	pending []*Branch // Open branch handles not yet patched.
}

// ---------------------
// ----- Functions -----
// ---------------------

// Emit appends one instruction with the given opcode and operands,
// returning it so the caller can use it as a branch target.
func (b *Buffer) Emit(op string, from, to Addr, line int) *Prog {
	p := &Prog{Op: op, From: from, To: to, Line: line, PC: b.pc, back: b.last}
	b.pc++
	if b.last == nil {
		b.first = p
	} else {
		b.last.next = p
	}
	b.last = p
	return p
}

// Branch emits a placeholder branch instruction with the given opcode and
// condition operand, returning a handle that a later call to Patch must
// resolve to a target Prog.
func (b *Buffer) Branch(op string, cond Addr, line int) *Branch {
	p := b.Emit(op, cond, Addr{Mode: ModeBranch}, line)
	br := &Branch{prog: p}
	b.pending = append(b.pending, br)
	return br
}

// Patch resolves a branch handle to its target instruction. Patching the
// same handle twice, or patching a nil handle, is an internal invariant
// violation (spec.md §7 kind 1).
func (b *Branch) Patch(target *Prog) error {
	if b == nil {
		return errors.New("asm: patch of nil branch handle")
	}
	if b.patched {
		return errors.Errorf("asm: branch already patched at pc=%d", b.prog.PC)
	}
	b.prog.To = Addr{Mode: ModeBranch, Branch: &Branch{prog: target}}
	b.patched = true
	return nil
}

// First returns the first instruction in the buffer, or nil if empty.
func (b *Buffer) First() *Prog { return b.first }

// Last returns the most recently emitted instruction, or nil if empty.
func (b *Buffer) Last() *Prog { return b.last }

// Close finalises the buffer. It is a fatal error (spec.md §3, §5) for any
// branch handle obtained from this Buffer to remain unpatched.
func (b *Buffer) Close() error {
	for _, br := range b.pending {
		if !br.patched {
			return errors.Errorf("asm: unpatched branch at pc=%d", br.prog.PC)
		}
	}
	return nil
}

// String renders the buffer as a flat assembly listing, for tests and the
// cmd/ngen driver.
func (b *Buffer) String() string {
	s := ""
	for p := b.first; p != nil; p = p.next {
		s += fmt.Sprintf("%4d\t%s\t%s, %s\n", p.PC, p.Op, p.From, p.To)
	}
	return s
}
