// Package rtype decodes the runtime type-descriptor byte layout spec.md
// §6 ("To the runtime") describes: fixed-offset reads into a type
// symbol's data blob, feeding src/dwarf's generic composite-type
// synthesizer the same way the original linker's decodetype_* family
// feeds synthesizemaptypes/synthesizechantypes/synthesizeslicetypes
// (original_source/cmd/ld/dwarf.c).
package rtype

import "encoding/binary"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Reloc is one relocation entry in a type symbol's data blob: at byte
// offset Off there is a pointer-width reference to another type symbol,
// named Target, plus an additional byte offset Add within it (mirroring
// dwarf.c's Reloc.sym/Reloc.add).
type Reloc struct {
	Off    int64
	Target string
	Add    int64
}

// Blob is a type symbol's raw byte content plus its relocation table, the
// generalized form of dwarf.c's `Sym*` (a symbol's bytes plus its
// relocation list) this package decodes.
type Blob struct {
	Bytes        []byte
	Relocs       []Reloc
	PointerWidth int64
}

// KindNoPointersBit mirrors runtime's KindNoPointers flag bit, masked off
// decodeKind's result the same way dwarf.c's decodetype_kind does.
const KindNoPointersBit = 1 << 7

// ---------------------
// ----- Functions -----
// ---------------------

func (b *Blob) reloc(off int64) (Reloc, bool) {
	for _, r := range b.Relocs {
		if r.Off == off {
			return r, true
		}
	}
	return Reloc{}, false
}

func (b *Blob) relocTarget(off int64) string {
	if r, ok := b.reloc(off); ok {
		return r.Target
	}
	return ""
}

func (b *Blob) uint(off, width int64) uint64 {
	if off < 0 || off+width > int64(len(b.Bytes)) {
		return 0
	}
	switch width {
	case 4:
		return uint64(binary.LittleEndian.Uint32(b.Bytes[off:]))
	case 8:
		return binary.LittleEndian.Uint64(b.Bytes[off:])
	default:
		return 0
	}
}

// commonSize is the width of the runtime commonType header preceding the
// kind-specific fields, three pointer-widths plus eight bytes (the
// original's fixed 3*PtrSize+8 constant); kept here as
// a method so it scales with Blob.PointerWidth (spec.md §1, both 32- and
// 64-bit targets decode the same layout at different widths).
func (b *Blob) commonSize() int64 {
	return 3*b.PointerWidth + 8
}

// Kind returns the commonType.kind byte with the "has no pointers" flag
// masked off (decodetype_kind).
func (b *Blob) Kind() uint8 {
	off := 3*b.PointerWidth + 7
	if off >= int64(len(b.Bytes)) {
		return 0
	}
	return b.Bytes[off] &^ KindNoPointersBit
}

// Size returns the commonType.size field (decodetype_size).
func (b *Blob) Size() int64 {
	return int64(b.uint(2*b.PointerWidth, b.PointerWidth))
}

// ArrayElem returns the element type symbol of an array or slice type
// descriptor (decodetype_arrayelem).
func (b *Blob) ArrayElem() string {
	return b.relocTarget(b.commonSize())
}

// ArrayLen returns an array type's compile-time element count
// (decodetype_arraylen).
func (b *Blob) ArrayLen() int64 {
	return int64(b.uint(b.commonSize()+b.PointerWidth, b.PointerWidth))
}

// PtrElem returns a pointer type's pointed-to element (decodetype_ptrelem).
func (b *Blob) PtrElem() string {
	return b.relocTarget(b.commonSize())
}

// MapKey returns a map type's key type (decodetype_mapkey).
func (b *Blob) MapKey() string {
	return b.relocTarget(b.commonSize())
}

// MapValue returns a map type's value type (decodetype_mapvalue).
func (b *Blob) MapValue() string {
	return b.relocTarget(b.commonSize() + b.PointerWidth)
}

// ChanElem returns a channel type's element type (decodetype_chanelem).
func (b *Blob) ChanElem() string {
	return b.relocTarget(b.commonSize())
}

// FuncDotDotDot reports whether a function type's last parameter is
// variadic (decodetype_funcdotdotdot).
func (b *Blob) FuncDotDotDot() bool {
	off := b.commonSize()
	if off >= int64(len(b.Bytes)) {
		return false
	}
	return b.Bytes[off] != 0
}

// FuncInCount returns a function type's parameter count
// (decodetype_funcincount).
func (b *Blob) FuncInCount() int {
	return int(b.uint(b.commonSize()+2*b.PointerWidth, 4))
}

// FuncOutCount returns a function type's result count
// (decodetype_funcoutcount).
func (b *Blob) FuncOutCount() int {
	return int(b.uint(b.commonSize()+3*b.PointerWidth+8, 4))
}

// StructFieldCount returns a struct type's field count
// (decodetype_structfieldcount).
func (b *Blob) StructFieldCount() int {
	return int(b.uint(b.commonSize()+b.PointerWidth, 4))
}
