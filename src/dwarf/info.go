package dwarf

import (
	"github.com/pkg/errors"

	"github.com/hramberg-labs/ngen/src/objfile"
)

// ---------------------
// ----- .debug_info serialization (spec.md §4.9-§4.10) -----
// ---------------------
//
// Ported from original_source/cmd/ld/dwarf.c's writeinfo/putdie, with the
// two-pass forward-reference loop re-modeled per Design Notes: rather
// than re-serializing the whole section from scratch when a reference
// attribute's target offset isn't known yet, this writer records the
// byte position of each such reference (a "reserved byte arena that can
// be seek-written") and patches it directly once every DIE in the tree
// has been visited and therefore has a known Offset.

const compUnitHeaderSize = 4 + 2 + 4 + 1

// refFixup is one unresolved DW_AT_type-family reference recorded during
// the depth-first write, to be patched once its target's Offset is known.
type refFixup struct {
	pos    int64
	target Handle
}

// WriteInfo serializes every compilation unit hung off root's children:
// a CU header (DWARF §7.5.1) followed by its DIE subtree in depth-first,
// abbreviation-coded form.
func WriteInfo(sink objfile.Sink, a *Arena, root Handle, pointerWidth int64, abbrevOffset int64) error {
	var fixups []refFixup

	for _, cu := range a.Get(root).Children {
		unitStart := sink.Pos()
		sink.Long(0) // unit_length placeholder.
		sink.Word(lineVersion)
		sink.Long(uint32(abbrevOffset))
		sink.Byte(byte(pointerWidth))

		putdie(sink, a, cu, pointerWidth, &fixups)

		here := sink.Pos()
		sink.Seek(unitStart)
		sink.Long(uint32(here - unitStart - 4))
		sink.Seek(here)
	}

	sectionEnd := sink.Pos()
	for _, fx := range fixups {
		target := a.Get(fx.target).Offset
		if target < 0 {
			return errors.New("dwarf: forward reference unresolved after two passes")
		}
		sink.Seek(fx.pos)
		sink.Long(uint32(target))
	}
	sink.Seek(sectionEnd)
	return sink.Flush()
}

// putdie writes DIE h and its children depth-first, dwarf.c's putdie.
// Every DW_TAG's child list is terminated by a null abbreviation code
// byte when the abbreviation declares children (DWARF §7.5.2).
func putdie(sink objfile.Sink, a *Arena, h Handle, pointerWidth int64, fixups *[]refFixup) {
	d := a.Get(h)
	d.Offset = sink.Pos()

	entry := AbbrevTable[d.Abbrev]
	writeULEB(sink, uint64(d.Abbrev))

	for _, spec := range entry.Attrs {
		at, _ := a.Attr(h, spec.Attr)
		switch spec.Class {
		case ClassAddress:
			sink.Vlong(uint64(at.Value), int(pointerWidth))
		case ClassConstant:
			writeULEB(sink, uint64(at.Value))
		case ClassString:
			sink.String(at.Str, len(at.Str)+1)
		case ClassFlag:
			if at.Value != 0 {
				sink.Byte(1)
			} else {
				sink.Byte(0)
			}
		case ClassPtr:
			sink.Long(uint32(at.Value))
		case ClassReference:
			writeReference(sink, a, at.Ref, fixups)
		}
	}

	if entry.Children {
		for _, c := range d.Children {
			putdie(sink, a, c, pointerWidth, fixups)
		}
		sink.Byte(0)
	}
}

// writeReference emits a DW_FORM_ref4-equivalent .debug_info-relative
// offset for ref, resolving immediately if ref's Offset is already known
// (it was visited earlier in this same depth-first walk) or recording a
// fixup otherwise -- the forward-reference case spec.md §4.10 names (a
// struct field's type pointing back to the enclosing struct, or a
// synthesized composite type whose prototype hasn't been copied yet).
func writeReference(sink objfile.Sink, a *Arena, ref Handle, fixups *[]refFixup) {
	if ref == NoDie {
		sink.Long(0)
		return
	}
	if off := a.Get(ref).Offset; off >= 0 {
		sink.Long(uint32(off))
		return
	}
	*fixups = append(*fixups, refFixup{pos: sink.Pos(), target: ref})
	sink.Long(0)
}
