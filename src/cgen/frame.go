package cgen

import (
	"sort"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
)

// ---------------------
// ----- Stack-frame finalisation (spec.md §4.8) -----
// ---------------------

// MarkAutoUsed walks the emitted instruction stream and marks every local
// (ClassAuto) symbol actually referenced by a Prog as used, then compacts
// the frame so unreferenced locals don't reserve stack space -- the
// markautoused/compactframe/fixautoused sequence spec.md §4.8 describes.
func MarkAutoUsed(proc *ir.Procedure, buf *asm.Buffer) {
	markUsed(proc, buf)
	shift := compactFrame(proc)
	fixAutoUsed(buf, shift)
}

// markUsed sets Sym.Used on every Auto local whose Addr.Node a Prog's From
// or To operand references.
func markUsed(proc *ir.Procedure, buf *asm.Buffer) {
	used := map[*ir.Symbol]bool{}
	for p := buf.First(); p != nil; p = p.Next() {
		markOperand(used, p.From)
		markOperand(used, p.To)
	}
	for _, sym := range proc.Auto {
		if used[sym] {
			sym.Used = true
		}
	}
}

func markOperand(used map[*ir.Symbol]bool, a asm.Addr) {
	if a.Mode != asm.ModeAuto || a.Node == nil {
		return
	}
	if a.Node.Sym != nil {
		used[a.Node.Sym] = true
	}
}

// compactFrame reassigns frame offsets to the used locals only, smallest
// offset first, and shrinks FrameSize to fit -- locals the statement walk
// allocated but that later proved dead (e.g. a temporary whose consumer
// was constant-folded away) no longer cost stack space.
//
// It returns each surviving symbol's offset shift (final minus
// preliminary): fixAutoUsed adds this to every stamped operand's offset
// rather than overwriting it outright, so a multi-word temporary (e.g. a
// slice header) whose three field addresses were stamped at
// sym.Offset+0/+8/+16 keep that relative spacing instead of collapsing
// onto one final offset.
func compactFrame(proc *ir.Procedure) map[*ir.Symbol]int64 {
	var used []*ir.Symbol
	for _, sym := range proc.Auto {
		if sym.Used {
			used = append(used, sym)
		}
	}
	sort.Slice(used, func(i, j int) bool {
		return used[i].Offset < used[j].Offset
	})

	shift := make(map[*ir.Symbol]int64, len(used))
	off := int64(0)
	for _, sym := range used {
		off += sym.Width
		final := -off
		shift[sym] = final - sym.Offset
		sym.Offset = final
	}
	proc.FrameSize = off
	proc.Auto = used
	return shift
}

// fixAutoUsed rewrites every ModeAuto operand's Offset field by its node
// symbol's post-compaction shift. Operands were stamped with an offset at
// emission time, before compaction could know the final frame layout, so
// this is a required second pass over the same stream markUsed walked.
func fixAutoUsed(buf *asm.Buffer, shift map[*ir.Symbol]int64) {
	for p := buf.First(); p != nil; p = p.Next() {
		fixOperand(&p.From, shift)
		fixOperand(&p.To, shift)
	}
}

func fixOperand(a *asm.Addr, shift map[*ir.Symbol]int64) {
	if a.Mode != asm.ModeAuto || a.Node == nil || a.Node.Sym == nil {
		return
	}
	a.Offset += shift[a.Node.Sym]
}
