// Package dwarf builds the DWARF v3 debug-information sections spec.md
// §4.9-§4.13 describe: a DIE tree, its abbreviation table, generic
// composite-type synthesis, the line-number program, the frame section,
// and the pubnames/pubtypes/aranges/gdb-scripts indexes. Every function
// here is ported from original_source/cmd/ld/dwarf.c, the literal C this
// spec was distilled from, re-expressed in the teacher's idiom: a handle-
// indexed arena instead of `DWDie*` pointers (Design Notes), and
// `error`-returning functions instead of `diag`/`errorexit` fatal macros.
package dwarf

import "github.com/pkg/errors"

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Tag is a DWARF DW_TAG_ constant, kept narrow to the ones this back end
// emits (spec.md §4.9).
type Tag uint8

const (
	TagNone Tag = iota
	TagCompileUnit
	TagSubprogram
	TagVariable
	TagFormalParameter
	TagMember
	TagUnspecifiedParameters
	TagSubrangeType
	TagBaseType
	TagArrayType
	TagChanType
	TagSubroutineType
	TagStructType
	TagPointerType
	TagSliceType
	TagStringType
	TagMapType
	TagTypedef
)

// AbbrevKind selects an entry of the fixed, hand-written abbreviation
// table (abbrev.go), dwarf.c's DW_ABRV_ constants: several distinct
// abbreviations can share one DW_TAG (e.g. AbbrevAuto and AbbrevParam
// both render as DW_TAG_variable-family entries but list different
// attributes), so a Die records its abbreviation directly rather than a
// bare Tag the way dwarf.c's newdie(parent, abbrev, name) does.
type AbbrevKind uint8

const (
	AbbrevNull AbbrevKind = iota
	AbbrevCompUnit
	AbbrevFunction
	AbbrevVariable
	AbbrevAuto
	AbbrevParam
	AbbrevStructField
	AbbrevFuncTypeParam
	AbbrevDotDotDot
	AbbrevArrayRange
	AbbrevNullType // Marks the start of the "considered public by ispubtype" range (dwarf.c comment, line ~131).
	AbbrevBaseType
	AbbrevArrayType
	AbbrevChanType
	AbbrevFuncType
	AbbrevMapType
	AbbrevPtrType
	AbbrevSliceType
	AbbrevStringType
	AbbrevStructType
	AbbrevTypeDecl
)

// AttrKind is a DWARF DW_AT_ constant, narrowed to the ones this back end
// needs.
type AttrKind uint8

const (
	AttrName AttrKind = iota
	AttrType
	AttrByteSize
	AttrLowPC
	AttrHighPC
	AttrExternal
	AttrLanguage
	AttrStmtList
	AttrDataMemberLocation
	AttrConstValue
	AttrLocation // DW_OP_fbreg cfa-offset encoding, spec.md's newcfaoffsetattr.
	AttrCount    // Array/slice element count (DW_AT_upper_bound's sibling, kept simple per spec.md Open Questions).
)

// Class is the attribute value's DWARF form class (dwarf.c's DW_CLS_*).
type Class uint8

const (
	ClassAddress Class = iota
	ClassConstant
	ClassString
	ClassReference
	ClassFlag
	ClassPtr // DW_CLS_PTR: a section-relative offset (e.g. DW_AT_stmt_list).
)

// Attr is one attribute on a Die, dwarf.c's DWAttr generalized from a
// linked list node to a plain slice element (Design Notes).
type Attr struct {
	Kind  AttrKind
	Class Class
	Value int64
	Str   string
	Ref   Handle
}

// Handle is an opaque reference to a Die stored in an Arena; Design Notes
// asks for a handle-indexed value instead of raw `*DWDie` pointers so the
// arena can be copied, serialized, or walked without pointer aliasing
// concerns.
type Handle int

// NoDie is the zero-value sentinel meaning "no such DIE" (dwarf.c's nil
// DWDie*).
const NoDie Handle = -1

// Die is one debug-information entry: a tag, its attributes, and its
// children, dwarf.c's DWDie minus the child-indexing hash table (Design
// Notes: omit the O(1)-lookup optimisation absent a profiling reason to
// keep it).
type Die struct {
	Abbrev   AbbrevKind
	Attrs    []Attr
	Children []Handle
	Parent   Handle
	Offset   int64 // -1 until laid out by the info-section writer (WriteInfo).
}

// Tag returns the DW_TAG this Die renders as, looked up from its
// abbreviation (AbbrevTable).
func (d *Die) Tag() Tag { return AbbrevTable[d.Abbrev].Tag }

// Arena owns every Die created for one compilation, addressed by Handle
// (Design Notes, "no global emitter state": one Arena per compile run,
// not a process-wide tree like dwarf.c's static dwroot/dwtypes/dwglobals).
type Arena struct {
	dies []Die
}

// NewArena returns an empty Arena with its three roots (compile-unit
// tree, type tree, global-variable tree) pre-created, mirroring dwarf.c's
// dwroot/dwtypes/dwglobals statics.
func NewArena() (*Arena, Handle, Handle, Handle) {
	a := &Arena{}
	root := a.newRaw(AbbrevNull, NoDie)
	types := a.newRaw(AbbrevNull, NoDie)
	globals := a.newRaw(AbbrevNull, NoDie)
	return a, root, types, globals
}

func (a *Arena) newRaw(abbrev AbbrevKind, parent Handle) Handle {
	h := Handle(len(a.dies))
	a.dies = append(a.dies, Die{Abbrev: abbrev, Parent: parent, Offset: -1})
	return h
}

// New creates a child DIE under parent with the given abbreviation and
// name, mirroring dwarf.c's newdie: every DIE (other than the three
// roots) gets a DW_AT_name attribute as its first attribute.
func (a *Arena) New(parent Handle, abbrev AbbrevKind, name string) Handle {
	h := a.newRaw(abbrev, parent)
	a.Get(parent).Children = append(a.Get(parent).Children, h)
	a.AddAttr(h, AttrName, ClassString, int64(len(name)), name, NoDie)
	return h
}

// Get returns a pointer to the Die h names, for direct field access by
// the rest of the package.
func (a *Arena) Get(h Handle) *Die {
	return &a.dies[h]
}

// AddAttr appends an attribute to die h (dwarf.c's newattr, minus the
// move-to-front-on-lookup optimisation getattr performs: Find below does
// a plain linear scan, the cost a small, mostly-static DIE count doesn't
// need to avoid).
func (a *Arena) AddAttr(h Handle, kind AttrKind, class Class, value int64, str string, ref Handle) {
	d := a.Get(h)
	d.Attrs = append(d.Attrs, Attr{Kind: kind, Class: class, Value: value, Str: str, Ref: ref})
}

// Attr returns die h's attribute of the given kind, if present
// (dwarf.c's getattr).
func (a *Arena) Attr(h Handle, kind AttrKind) (Attr, bool) {
	for _, at := range a.Get(h).Attrs {
		if at.Kind == kind {
			return at, true
		}
	}
	return Attr{}, false
}

// Name returns die h's DW_AT_name string.
func (a *Arena) Name(h Handle) string {
	at, _ := a.Attr(h, AttrName)
	return at.Str
}

// Find looks up a named child of parent by linear scan (dwarf.c's find,
// without the optional per-parent hash index mkindex sets up for large
// children lists such as the type tree).
func (a *Arena) Find(parent Handle, name string) (Handle, bool) {
	for _, c := range a.Get(parent).Children {
		if a.Name(c) == name {
			return c, true
		}
	}
	return NoDie, false
}

// FindOrError is Find with a fatal error instead of an ok bool, for sites
// that cannot proceed without the referenced DIE (dwarf.c's
// find_or_diag/lookup_or_diag).
func (a *Arena) FindOrError(parent Handle, name string) (Handle, error) {
	h, ok := a.Find(parent, name)
	if !ok {
		return NoDie, errors.Errorf("dwarf: no such DIE %q", name)
	}
	return h, nil
}

// CopyChildren appends copies of src's children onto dst, dwarf.c's
// copychildren: used when synthesizing a generic composite type from a
// known prototype (spec.md §4.10).
func (a *Arena) CopyChildren(dst, src Handle) {
	for _, c := range a.Get(src).Children {
		abbrev := a.Get(c).Abbrev
		nh := a.newRaw(abbrev, dst)
		*a.Get(nh) = Die{Abbrev: abbrev, Attrs: append([]Attr(nil), a.Get(c).Attrs...), Parent: dst, Offset: -1}
		a.Get(dst).Children = append(a.Get(dst).Children, nh)
	}
}

// SubstituteType rewrites the DW_AT_type reference of dst's child named
// name to point at newType instead, dwarf.c's substitutetype: used after
// CopyChildren to retarget a prototype's generic field at the concrete
// type being synthesized.
func (a *Arena) SubstituteType(dst Handle, name string, newType Handle) error {
	child, ok := a.Find(dst, name)
	if !ok {
		return errors.Errorf("dwarf: substitutetype: no field %q", name)
	}
	d := a.Get(child)
	for i := range d.Attrs {
		if d.Attrs[i].Kind == AttrType {
			d.Attrs[i].Ref = newType
			return nil
		}
	}
	return errors.Errorf("dwarf: substitutetype: field %q has no DW_AT_type", name)
}
