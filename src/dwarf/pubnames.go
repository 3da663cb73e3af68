package dwarf

import "github.com/hramberg-labs/ngen/src/objfile"

// ---------------------
// ----- Public indices and address ranges (spec.md §4.13) -----
// ---------------------
//
// Ported from original_source/cmd/ld/dwarf.c's writepub/ispubname/
// ispubtype/writearanges/writegdbscript. Each compilation unit DIE
// created by WriteLines becomes one entry in every one of these sections;
// the offsets they reference are only valid once WriteInfo has assigned
// every Die its Offset, so these writers must run after WriteInfo.

// isPubName reports whether d is an externally-visible function or
// variable, dwarf.c's ispubname.
func isPubName(a *Arena, h Handle) bool {
	d := a.Get(h)
	if d.Abbrev != AbbrevFunction && d.Abbrev != AbbrevVariable {
		return false
	}
	at, ok := a.Attr(h, AttrExternal)
	return ok && at.Value != 0
}

// isPubType reports whether d is a named type worth listing in
// .debug_pubtypes, dwarf.c's ispubtype: any DIE using one of the type
// abbreviations with a non-empty name.
func isPubType(a *Arena, h Handle) bool {
	return a.Get(h).Abbrev.IsPubType() && a.Name(h) != ""
}

// WritePubNames emits .debug_pubnames: one (offset, name) pair per
// external function or variable in each compilation unit.
func WritePubNames(sink objfile.Sink, a *Arena, root Handle) error {
	return writePub(sink, a, root, isPubName)
}

// WritePubTypes emits .debug_pubtypes: one (offset, name) pair per named
// type DIE in each compilation unit.
func WritePubTypes(sink objfile.Sink, a *Arena, root Handle) error {
	return writePub(sink, a, root, isPubType)
}

func writePub(sink objfile.Sink, a *Arena, root Handle, match func(*Arena, Handle) bool) error {
	for _, cu := range a.Get(root).Children {
		unitStart := a.Get(cu).Offset - compUnitHeaderSize
		unitEnd := unitEndOf(a, root, cu)

		sectStart := sink.Pos()
		sink.Long(0) // unit_length placeholder.
		sink.Word(2) // DWARF §6.1.1, .debug_pubnames/.debug_pubtypes are version 2 regardless of .debug_info's version.
		sink.Long(uint32(unitStart))
		sink.Long(uint32(unitEnd - unitStart))

		walkPub(sink, a, cu, match)

		sink.Long(0) // terminating offset.

		here := sink.Pos()
		sink.Seek(sectStart)
		sink.Long(uint32(here - sectStart - 4))
		sink.Seek(here)
	}
	return sink.Flush()
}

func walkPub(sink objfile.Sink, a *Arena, h Handle, match func(*Arena, Handle) bool) {
	if match(a, h) {
		sink.Long(uint32(a.Get(h).Offset))
		name := a.Name(h)
		sink.String(name, len(name)+1)
	}
	for _, c := range a.Get(h).Children {
		walkPub(sink, a, c, match)
	}
}

// unitEndOf returns the .debug_info-relative end offset of compilation
// unit cu: the next sibling compile unit's header start, or the end of
// the arena's last-assigned offset range if cu is the last unit.
func unitEndOf(a *Arena, root, cu Handle) int64 {
	sibs := a.Get(root).Children
	for i, c := range sibs {
		if c == cu && i+1 < len(sibs) {
			return a.Get(sibs[i+1]).Offset - compUnitHeaderSize
		}
	}
	return maxOffset(a)
}

func maxOffset(a *Arena) int64 {
	max := int64(0)
	for i := range a.dies {
		if a.dies[i].Offset > max {
			max = a.dies[i].Offset
		}
	}
	return max + 1
}

// WriteAranges emits .debug_aranges: one header plus a single
// (address, length) pair per compilation unit, terminated by a zero
// pair, dwarf.c's writearanges.
func WriteAranges(sink objfile.Sink, a *Arena, root Handle, pointerWidth int64) error {
	headerSize := roundUp(4+2+4+1+1, pointerWidth)
	for _, cu := range a.Get(root).Children {
		low, _ := a.Attr(cu, AttrLowPC)
		high, ok := a.Attr(cu, AttrHighPC)
		if !ok {
			continue
		}

		start := sink.Pos()
		sink.Long(uint32(headerSize + 4*pointerWidth - 4))
		sink.Word(2)
		sink.Long(uint32(a.Get(cu).Offset - compUnitHeaderSize))
		sink.Byte(byte(pointerWidth))
		sink.Byte(0) // segment_size.
		pad := headerSize - (sink.Pos() - start)
		sink.String("", int(pad))

		sink.Vlong(uint64(low.Value), int(pointerWidth))
		sink.Vlong(uint64(high.Value-low.Value), int(pointerWidth))
		sink.Vlong(0, int(pointerWidth))
		sink.Vlong(0, int(pointerWidth))
	}
	return sink.Flush()
}

// WriteGDBScripts emits .debug_gdb_scripts: a single magic byte followed
// by the NUL-terminated path to a GDB pretty-printer script, or an empty
// section when script is "" (dwarf.c's writegdbscript, which this back
// end's caller can skip entirely since there is no pretty-printer to
// ship alongside a teaching exercise's output).
func WriteGDBScripts(sink objfile.Sink, script string) error {
	if script == "" {
		return sink.Flush()
	}
	sink.Byte(1) // GDB_SCRIPT_SECTION python magic.
	sink.String(script, len(script)+1)
	return sink.Flush()
}
