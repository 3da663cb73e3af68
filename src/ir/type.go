package ir

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Kind enumerates the runtime-type kinds the back end and the DWARF
// builder both need to discriminate on. Values mirror the kind byte
// decoded from a running program's commonType (spec.md §6).
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindUintptr
	KindFloat32
	KindFloat64
	KindComplex64
	KindComplex128
	KindArray
	KindChan
	KindFunc
	KindInterface
	KindMap
	KindPtr
	KindSlice
	KindString
	KindStruct
	KindUnsafePointer
)

// Type describes a resolved front-end type well enough for the back end
// to choose operand widths and for the DWARF builder to reconstruct a DIE.
type Type struct {
	Kind  Kind
	Name  string // Empty for unnamed/composite types.
	Width int64  // Size in bytes.
	Align int64

	Elem *Type // Element type: array/slice/chan/ptr.
	Key  *Type // Map key type.
	Val  *Type // Map value type.

	NumElem int64 // Array length; unused for slice/chan.

	Fields []Field // Struct fields, in declaration order.

	External bool // True if this type's symbol is externally visible.
}

// Field is one member of a struct type, or one parameter/result of a
// Signature.
type Field struct {
	Name   string
	Type   *Type
	Offset int64 // Byte offset within the enclosing struct or argument area.
}

// Signature describes a callable's argument/result layout, the piece
// original_source/cmd/6g/gg.h carries as a linked list of Type nodes that
// this module makes an explicit slice-backed struct (DESIGN.md).
type Signature struct {
	Params     []Field
	Results    []Field
	ArgSize    int64 // Total size, in bytes, of the outgoing argument area.
	Receiver   *Field
	IsVariadic bool
}

// FirstResultOffset returns the byte offset, within the outgoing argument
// area, of the first result. Lowerings that pick up or take the address
// of a call's return value (spec.md §4.3 cgen_callret/cgen_aret) use this
// instead of re-deriving it.
func (s *Signature) FirstResultOffset() int64 {
	if len(s.Results) == 0 {
		return s.ArgSize
	}
	return s.Results[0].Offset
}

// IsFloat reports whether values of type t live in the floating-point
// register bank.
func (t *Type) IsFloat() bool {
	if t == nil {
		return false
	}
	return t.Kind == KindFloat32 || t.Kind == KindFloat64 || t.Kind == KindComplex64 || t.Kind == KindComplex128
}

// IsSigned reports whether t is a signed integer kind.
func (t *Type) IsSigned() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindInt, KindInt8, KindInt16, KindInt32, KindInt64:
		return true
	}
	return false
}

// IsUnsigned reports whether t is an unsigned integer kind.
func (t *Type) IsUnsigned() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindUint, KindUint8, KindUint16, KindUint32, KindUint64, KindUintptr:
		return true
	}
	return false
}

// KindNoPointersBit is the high bit of the kind byte at commonType+3*P+7
// (spec.md §6): when set, the type contains no pointers and the GC/DWARF
// builder can skip pointer scanning for it.
const KindNoPointersBit = 1 << 7
