package dwarf

import (
	"sort"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
	"github.com/hramberg-labs/ngen/src/objfile"
)

// ---------------------
// ----- Line-number program (spec.md §4.11) -----
// ---------------------
//
// Ported from original_source/cmd/ld/dwarf.c's writelines/flushunit/
// putpclcdelta. Parameters per DWARF §6.2: minimum instruction length 1,
// default-is-statement 1, line base -1, line range 4, opcode base 5.

const (
	lineVersion   = 3
	lineBase      = -1
	lineRange     = 4
	opcodeBase    = 5
	minInstrLen   = 1
	defaultIsStmt = 1

	// DW_LNS_* standard opcodes this emitter uses.
	lnsCopy      = 1
	lnsAdvancePC = 2
	lnsAdvanceLn = 3
	lnsSetFile   = 4
	// DW_LNE_* extended opcodes.
	lneEndSequence = 1
	lneSetAddress  = 2
)

// Compiled pairs a procedure's IR descriptor with its finished
// instruction buffer -- the two inputs the DWARF line program and frame
// section both need (spec.md §4.11, §4.12). Prog.PC is treated as the
// procedure-relative instruction address directly; assigning a real link
// address is the external object-file writer's job (spec.md §1).
type Compiled struct {
	Proc *ir.Procedure
	Buf  *asm.Buffer
}

// WriteLines emits one line-number program per compilation unit (spec.md
// §4.11) and creates the matching DW_TAG_compile_unit / DW_TAG_subprogram
// DIEs under root, grouping procs into units by Proc.Files[0] -- the
// primary source file, dwarf.c's histfile[1] equivalent, whose first
// appearance in a procedure's History chain resets the line-number state
// and starts a new unit (spec.md §4.11, "File-history reconstruction").
func WriteLines(sink objfile.Sink, a *Arena, root Handle, procs []*Compiled, synth *Synthesizer) error {
	for _, g := range groupByFile(procs) {
		if err := writeUnit(sink, a, root, g, synth); err != nil {
			return err
		}
	}
	// Type DIEs synthesized so far hang off the types root, which
	// WriteInfo and the pub writers never walk: move them under the last
	// compile unit so they are serialized with it (dwarf.c's movetomodule).
	if units := a.Get(root).Children; synth != nil && len(units) > 0 {
		last := units[len(units)-1]
		for _, t := range a.Get(synth.types).Children {
			a.Get(t).Parent = last
		}
		a.Get(last).Children = append(a.Get(last).Children, a.Get(synth.types).Children...)
		a.Get(synth.types).Children = nil
	}
	return nil
}

// typeOfAuto returns the synthesized type DIE for a procedure-local
// symbol, or NoDie if synth is nil (e.g. a test that doesn't exercise
// type synthesis) or the symbol carries no resolved type.
func typeOfAuto(synth *Synthesizer, sym *ir.Symbol) Handle {
	if synth == nil || sym == nil || sym.Type == nil {
		return NoDie
	}
	return synth.TypeDieFromIR(sym.Type)
}

func groupByFile(procs []*Compiled) [][]*Compiled {
	byFile := map[string][]*Compiled{}
	var order []string
	for _, c := range procs {
		file := "<unknown>"
		if len(c.Proc.Files) > 0 {
			file = c.Proc.Files[0]
		}
		if _, ok := byFile[file]; !ok {
			order = append(order, file)
		}
		byFile[file] = append(byFile[file], c)
	}
	sort.Strings(order) // Deterministic unit order; map iteration isn't.
	groups := make([][]*Compiled, 0, len(order))
	for _, f := range order {
		groups = append(groups, byFile[f])
	}
	return groups
}

func writeUnit(sink objfile.Sink, a *Arena, root Handle, procs []*Compiled, synth *Synthesizer) error {
	if len(procs) == 0 {
		return nil
	}
	primary := procs[0]
	files := primary.Proc.Files
	if len(files) == 0 {
		files = []string{"<unknown>"}
	}

	unitStart := sink.Pos()
	sink.Long(0) // unit_length placeholder.
	sink.Word(lineVersion)
	sink.Long(0) // header_length placeholder.
	headerFieldsStart := sink.Pos()

	sink.Byte(minInstrLen)
	sink.Byte(defaultIsStmt)
	sink.Byte(byte(int8(lineBase)))
	sink.Byte(lineRange)
	sink.Byte(opcodeBase)
	// standard_opcode_lengths[1..4]: DW_LNS_copy takes 0 operands,
	// advance_pc/advance_line/set_file each take 1.
	sink.Byte(0)
	sink.Byte(1)
	sink.Byte(1)
	sink.Byte(1)
	sink.Byte(0) // include_directories, empty.
	for _, f := range files {
		sink.String(f, len(f)+4) // NUL terminator plus the three LEB128 fields, all zero.
	}
	sink.Byte(0) // terminate file_names.

	headerLen := sink.Pos() - headerFieldsStart

	cu := a.New(root, AbbrevCompUnit, files[0])
	a.AddAttr(cu, AttrLanguage, ClassConstant, 0, "", NoDie)
	a.AddAttr(cu, AttrStmtList, ClassPtr, unitStart, "", NoDie)

	pc := int64(0)
	lc := int64(1)
	currFile := 1
	haveLow := false
	highPC := int64(0)

	sink.Byte(0) // Extended opcode: DW_LNE_set_address.
	writeULEB(sink, 1+8)
	sink.Byte(lneSetAddress)
	sink.Vlong(0, 8)

	for _, c := range procs {
		lh := BuildLineHistory(c.Proc)
		fn := a.New(cu, AbbrevFunction, c.Proc.Sym.Name)
		a.AddAttr(fn, AttrLowPC, ClassAddress, c.Proc.Sym.Offset, "", NoDie)
		end := c.Proc.Sym.Offset + procSize(c.Buf)
		a.AddAttr(fn, AttrHighPC, ClassAddress, end, "", NoDie)
		if c.Proc.External {
			a.AddAttr(fn, AttrExternal, ClassFlag, 1, "", NoDie)
		}
		if !haveLow {
			haveLow = true
		}
		if end > highPC {
			highPC = end
		}

		for p := c.Buf.First(); p != nil; p = p.Next() {
			lm, ok := lh.Search(int64(p.Line))
			if !ok {
				continue
			}
			if int64(p.Line) == lc {
				continue
			}
			if currFile != lm.File {
				currFile = lm.File
				sink.Byte(lnsSetFile)
				writeULEB(sink, uint64(currFile))
			}
			putPCLCDelta(sink, p.PC-pc, int64(lm.Line)-lc)
			pc = p.PC
			lc = int64(p.Line)
		}

		for _, auto := range c.Proc.Auto {
			abbrev := AbbrevAuto
			if auto.Class == ir.ClassParam {
				abbrev = AbbrevParam
			}
			v := a.New(fn, abbrev, auto.Name)
			a.AddAttr(v, AttrType, ClassReference, 0, "", typeOfAuto(synth, auto))
			a.AddAttr(v, AttrLocation, ClassConstant, auto.Offset, "", NoDie)
		}
	}

	// End-of-sequence marker (dwarf.c's flushunit).
	sink.Byte(0)
	writeULEB(sink, 1)
	sink.Byte(lneEndSequence)

	if haveLow {
		a.AddAttr(cu, AttrLowPC, ClassAddress, 0, "", NoDie)
	}
	a.AddAttr(cu, AttrHighPC, ClassAddress, highPC+1, "", NoDie)

	here := sink.Pos()
	sink.Seek(unitStart)
	sink.Long(uint32(here - unitStart - 4))
	sink.Word(lineVersion)
	sink.Long(uint32(headerLen))
	sink.Seek(here)
	return nil
}

// procSize returns the instruction count of a compiled procedure's
// buffer, used as its high_pc-relative extent (PC is treated as a flat
// per-instruction counter, spec.md §1's abstraction over real machine
// code length).
func procSize(buf *asm.Buffer) int64 {
	n := int64(0)
	for p := buf.First(); p != nil; p = p.Next() {
		n = p.PC + 1
	}
	return n
}

// putPCLCDelta emits the shortest encoding of one (pc, line) advance:
// a single special opcode when the delta pair maps into the opcode
// range, otherwise advance_pc + advance_line + copy (spec.md §4.11,
// dwarf.c's putpclcdelta).
func putPCLCDelta(sink objfile.Sink, deltaPC, deltaLC int64) {
	if lineBase <= deltaLC && deltaLC < lineBase+lineRange {
		opcode := opcodeBase + (deltaLC - lineBase) + lineRange*deltaPC
		if opcodeBase <= opcode && opcode < 256 {
			sink.Byte(byte(opcode))
			return
		}
	}
	if deltaPC != 0 {
		sink.Byte(lnsAdvancePC)
		writeSLEB(sink, deltaPC)
	}
	sink.Byte(lnsAdvanceLn)
	writeSLEB(sink, deltaLC)
	sink.Byte(lnsCopy)
}

// writeULEB and writeSLEB stream AppendUleb128/AppendSleb128's encoding
// directly through a Sink's Byte writer, one byte at a time, rather than
// building an intermediate slice.
func writeULEB(sink objfile.Sink, v uint64) {
	for _, b := range AppendUleb128(nil, v) {
		sink.Byte(b)
	}
}

func writeSLEB(sink objfile.Sink, v int64) {
	for _, b := range AppendSleb128(nil, v) {
		sink.Byte(b)
	}
}
