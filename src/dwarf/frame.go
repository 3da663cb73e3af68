package dwarf

import "github.com/hramberg-labs/ngen/src/objfile"

// ---------------------
// ----- Frame section (spec.md §4.12) -----
// ---------------------
//
// Ported from original_source/cmd/ld/dwarf.c's writeframes/putpccfadelta:
// one CIE shared by every function, followed by one FDE per function
// whose PC-to-CFA-offset deltas come from the per-instruction
// stack-pointer-adjustment annotations asm.Prog.SPAdj carries.

const (
	cieReserve          = 16
	dataAlignmentFactor = -4
	fakeReturnColumn    = 16 // spec.md §9 Open Questions: arbitrary but fixed within a CIE.

	dwCFAAdvanceLoc       = 0x40
	dwCFAOffset           = 0x80
	dwCFAAdvanceLoc1      = 0x02
	dwCFAAdvanceLoc2      = 0x03
	dwCFAAdvanceLoc4      = 0x04
	dwCFADefCFA           = 0x0c
	dwCFADefCFAOffsetSF   = 0x13
)

// dwarfRegSP is the DWARF register-number column dwarf.c's DWARFREGSP
// assigns the hardware stack pointer to, ABI-dependent in the original;
// this back end fixes it at 7 (the AMD64 System V ABI's DW_OP_reg7,
// generalized across both targets since neither needs a second value).
const dwarfRegSP = 7

// WriteFrames emits the .debug_frame section (spec.md §4.12): a single
// CIE followed by one FDE per procedure in procs, in order.
func WriteFrames(sink objfile.Sink, pointerWidth int64, procs []*Compiled) error {
	frameStart := sink.Pos()

	sink.Long(cieReserve)
	sink.Long(0xffffffff) // CIE id.
	sink.Byte(3)           // DWARF version (appendix F).
	sink.Byte(0)           // augmentation: empty string's NUL.
	writeULEB(sink, 1)     // code_alignment_factor.
	writeSLEB(sink, dataAlignmentFactor)
	writeULEB(sink, fakeReturnColumn)

	sink.Byte(dwCFADefCFA)
	writeULEB(sink, dwarfRegSP)
	writeULEB(sink, uint64(pointerWidth))

	sink.Byte(dwCFAOffset + fakeReturnColumn)
	writeULEB(sink, uint64(-pointerWidth/dataAlignmentFactor))

	pad := cieReserve + frameStart + 4 - sink.Pos()
	if pad < 0 {
		return errCIETooSmall(pad)
	}
	sink.String("", int(pad))

	for _, c := range procs {
		if err := writeFDE(sink, pointerWidth, c); err != nil {
			return err
		}
	}
	return sink.Flush()
}

func writeFDE(sink objfile.Sink, pointerWidth int64, c *Compiled) error {
	fdeStart := sink.Pos()
	sink.Long(0) // length placeholder.
	sink.Long(0) // CIE pointer: offset 0, the one CIE this section emits.
	sink.Vlong(uint64(c.Proc.Sym.Offset), int(pointerWidth))
	sink.Vlong(uint64(procSize(c.Buf)), int(pointerWidth))

	cfa := int64(0) // Relative to the CIE's initial cfa = sp + pointerWidth.
	pc := int64(0)
	if first := c.Buf.First(); first != nil {
		pc = first.PC
	}
	for p := c.Buf.First(); p != nil; p = p.Next() {
		if p.SPAdj == 0 {
			continue
		}
		cfa += p.SPAdj
		putPCCFADelta(sink, p.PC-pc, cfa)
		pc = p.PC
	}

	fdeSize := sink.Pos() - fdeStart - 4
	pad := roundUp(fdeSize, pointerWidth) - fdeSize
	sink.String("", int(pad))
	fdeSize += pad

	here := sink.Pos()
	sink.Seek(fdeStart)
	sink.Long(uint32(fdeSize))
	sink.Long(0)
	sink.Seek(here)
	return nil
}

// putPCCFADelta emits one PC-advance plus a signed-factored CFA-offset
// change, dwarf.c's putpccfadelta.
func putPCCFADelta(sink objfile.Sink, deltaPC, cfa int64) {
	switch {
	case deltaPC < 0x40:
		sink.Byte(byte(dwCFAAdvanceLoc + deltaPC))
	case deltaPC < 0x100:
		sink.Byte(dwCFAAdvanceLoc1)
		sink.Byte(byte(deltaPC))
	case deltaPC < 0x10000:
		sink.Byte(dwCFAAdvanceLoc2)
		sink.Word(uint16(deltaPC))
	default:
		sink.Byte(dwCFAAdvanceLoc4)
		sink.Long(uint32(deltaPC))
	}
	sink.Byte(dwCFADefCFAOffsetSF)
	writeSLEB(sink, cfa/dataAlignmentFactor)
}

func roundUp(v, align int64) int64 {
	return (v + align - 1) / align * align
}

type cieTooSmallError struct{ shortBy int64 }

func (e *cieTooSmallError) Error() string {
	return "dwarf: CIERESERVE too small"
}

func errCIETooSmall(pad int64) error {
	return &cieTooSmallError{shortBy: -pad}
}
