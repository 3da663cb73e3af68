package dwarf

// ---------------------
// ----- Abbreviation table (spec.md §4.9) -----
// ---------------------
//
// This is dwarf.c's hardcoded `abbrevs[]` (lines ~132-360 of the
// original), ported entry for entry. The DWARF spec places no
// restriction on attribute order within an abbreviation, so this module
// keeps the original's declaration order.

// AttrSpec is one (attribute, form-class) pair inside an abbreviation,
// dwarf.c's inline `{DW_AT_..., DW_CLS_...}` pairs.
type AttrSpec struct {
	Attr  AttrKind
	Class Class
}

// AbbrevEntry is one row of the abbreviation table: the tag it renders,
// whether it has children, and its attribute list.
type AbbrevEntry struct {
	Tag      Tag
	Children bool
	Attrs    []AttrSpec
}

// AbbrevTable is indexed by AbbrevKind, mirroring dwarf.c's abbrevs[]
// array exactly in shape (tag, children flag, attribute list).
var AbbrevTable = [...]AbbrevEntry{
	AbbrevNull: {},
	AbbrevCompUnit: {
		Tag: TagCompileUnit, Children: true,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrLanguage, ClassConstant}, {AttrLowPC, ClassAddress}, {AttrHighPC, ClassAddress}, {AttrStmtList, ClassPtr}},
	},
	AbbrevFunction: {
		Tag: TagSubprogram, Children: true,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrLowPC, ClassAddress}, {AttrHighPC, ClassAddress}, {AttrExternal, ClassFlag}},
	},
	AbbrevVariable: {
		Tag: TagVariable, Children: false,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrType, ClassReference}, {AttrExternal, ClassFlag}},
	},
	AbbrevAuto: {
		Tag: TagVariable, Children: false,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrType, ClassReference}, {AttrLocation, ClassConstant}},
	},
	AbbrevParam: {
		Tag: TagFormalParameter, Children: false,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrType, ClassReference}, {AttrLocation, ClassConstant}},
	},
	AbbrevStructField: {
		Tag: TagMember, Children: false,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrType, ClassReference}, {AttrDataMemberLocation, ClassConstant}},
	},
	AbbrevFuncTypeParam: {
		Tag: TagFormalParameter, Children: false,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrType, ClassReference}},
	},
	AbbrevDotDotDot: {
		Tag: TagUnspecifiedParameters, Children: false,
	},
	AbbrevArrayRange: {
		Tag: TagSubrangeType, Children: false,
		Attrs: []AttrSpec{{AttrType, ClassReference}, {AttrCount, ClassConstant}},
	},
	AbbrevNullType: {
		Tag: TagBaseType, Children: false,
	},
	AbbrevBaseType: {
		Tag: TagBaseType, Children: false,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrByteSize, ClassConstant}},
	},
	AbbrevArrayType: {
		Tag: TagArrayType, Children: true,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrType, ClassReference}, {AttrByteSize, ClassConstant}},
	},
	AbbrevChanType: {
		Tag: TagChanType, Children: false,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrType, ClassReference}},
	},
	AbbrevFuncType: {
		Tag: TagSubroutineType, Children: true,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrByteSize, ClassConstant}},
	},
	AbbrevMapType: {
		Tag: TagStructType, Children: false, // Synthesized as a pointer-to-struct (spec.md §4.10).
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrType, ClassReference}},
	},
	AbbrevPtrType: {
		Tag: TagPointerType, Children: false,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrType, ClassReference}},
	},
	AbbrevSliceType: {
		Tag: TagSliceType, Children: true,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrByteSize, ClassConstant}},
	},
	AbbrevStringType: {
		Tag: TagStringType, Children: true,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrByteSize, ClassConstant}},
	},
	AbbrevStructType: {
		Tag: TagStructType, Children: true,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrByteSize, ClassConstant}},
	},
	AbbrevTypeDecl: {
		Tag: TagTypedef, Children: false,
		Attrs: []AttrSpec{{AttrName, ClassString}, {AttrType, ClassReference}},
	},
}

// IsPubType reports whether abbrev k is in the "considered public by
// ispubtype" range dwarf.c keeps in sync via a source comment
// ("everything from AbbrevNullType on"): any type abbreviation, as
// opposed to the compile-unit/function/variable/field family before it
// in the table.
func (k AbbrevKind) IsPubType() bool {
	return k >= AbbrevNullType
}

// Encode appends the abbreviation table's .debug_abbrev bytes to dst: one
// (abbrev code, tag, children flag, attr/form pairs, null terminator) run
// per non-null entry, terminated by a zero abbrev code (DWARF §7.5.3).
func Encode(dst []byte) []byte {
	for i, e := range AbbrevTable {
		if i == int(AbbrevNull) {
			continue
		}
		dst = AppendUleb128(dst, uint64(i))
		dst = AppendUleb128(dst, uint64(e.Tag))
		if e.Children {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
		for _, at := range e.Attrs {
			dst = AppendUleb128(dst, uint64(at.Attr))
			dst = AppendUleb128(dst, uint64(at.Class))
		}
		dst = AppendUleb128(dst, 0)
		dst = AppendUleb128(dst, 0)
	}
	dst = append(dst, 0)
	return dst
}
