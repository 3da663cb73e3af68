package dwarf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hramberg-labs/ngen/src/ir"
)

func newTestSynthesizer() (*Arena, Handle, *Synthesizer) {
	a, _, types, _ := NewArena()
	return a, types, NewSynthesizer(a, types, nil)
}

// attrRef returns the DW_AT_type reference of h, or NoDie if h has none.
func attrRef(a *Arena, h Handle) Handle {
	at, ok := a.Attr(h, AttrType)
	if !ok {
		return NoDie
	}
	return at.Ref
}

// TestTypeDieFromIRBaseType covers the simplest round-trip property
// (spec.md §8 property #7): a scalar kind becomes a named base type DIE
// carrying its byte width.
func TestTypeDieFromIRBaseType(t *testing.T) {
	_, _, synth := newTestSynthesizer()
	i32 := &ir.Type{Kind: ir.KindInt32, Name: "int32", Width: 4}

	h := synth.TypeDieFromIR(i32)
	require.NotEqual(t, NoDie, h)
	assert.Equal(t, AbbrevBaseType, synth.a.Get(h).Abbrev)
	assert.Equal(t, "int32", synth.a.Name(h))
	sz, ok := synth.a.Attr(h, AttrByteSize)
	require.True(t, ok)
	assert.EqualValues(t, 4, sz.Value)
}

// TestTypeDieFromIRIsMemoized asserts a type referenced twice (e.g. as a
// slice element and again as a map value) synthesizes exactly one DIE,
// the property src/dwarf's irCache exists to guarantee.
func TestTypeDieFromIRIsMemoized(t *testing.T) {
	_, _, synth := newTestSynthesizer()
	i64 := &ir.Type{Kind: ir.KindInt64, Name: "int64", Width: 8}

	first := synth.TypeDieFromIR(i64)
	second := synth.TypeDieFromIR(i64)
	assert.Equal(t, first, second)
}

// TestTypeDieFromIRSlice exercises the CopyChildren/SubstituteType
// composite-synthesis path for slice, spec.md §8 scenario's sibling: the
// slice DIE's "array" field must resolve to a pointer to the element
// type, not the element type directly.
func TestTypeDieFromIRSlice(t *testing.T) {
	a, _, synth := newTestSynthesizer()
	elem := &ir.Type{Kind: ir.KindInt32, Name: "int32", Width: 4}
	sl := &ir.Type{Kind: ir.KindSlice, Name: "[]int32", Width: 24, Elem: elem}

	h := synth.TypeDieFromIR(sl)
	require.Equal(t, AbbrevSliceType, a.Get(h).Abbrev)

	arrayField, ok := a.Find(h, "array")
	require.True(t, ok)
	ptr := attrRef(a, arrayField)
	require.NotEqual(t, NoDie, ptr)
	assert.Equal(t, AbbrevPtrType, a.Get(ptr).Abbrev)
	assert.Equal(t, synth.TypeDieFromIR(elem), attrRef(a, ptr))

	_, ok = a.Find(h, "len")
	assert.True(t, ok)
	_, ok = a.Find(h, "cap")
	assert.True(t, ok)
}

// TestTypeDieFromIRMap is the regression test for the bug the map/chan
// synthesis fix addresses (spec.md §4.10 point 4, scenario S5): a map's
// DW_AT_type must chain MAPTYPE -> PTRTYPE -> STRUCTTYPE "hash<K,V>",
// with a substituted "st" field pointing at a per-(K,V) hash_subtable,
// which itself points at a per-(K,V) hash_entry whose "key"/"val" fields
// resolve to the map's actual key and value types -- not one shared
// opaque struct regardless of K/V.
func TestTypeDieFromIRMap(t *testing.T) {
	a, _, synth := newTestSynthesizer()
	key := &ir.Type{Kind: ir.KindString, Name: "string", Width: 16}
	val := &ir.Type{Kind: ir.KindInt, Name: "int", Width: 8}
	m := &ir.Type{Kind: ir.KindMap, Name: "map[string]int", Width: 8, Key: key, Val: val}

	mapDie := synth.TypeDieFromIR(m)
	require.Equal(t, AbbrevMapType, a.Get(mapDie).Abbrev)

	ptrToHash := attrRef(a, mapDie)
	require.NotEqual(t, NoDie, ptrToHash)
	require.Equal(t, AbbrevPtrType, a.Get(ptrToHash).Abbrev)

	hash := attrRef(a, ptrToHash)
	require.NotEqual(t, NoDie, hash)
	assert.Equal(t, AbbrevStructType, a.Get(hash).Abbrev)
	assert.Equal(t, "hash<string,int>", a.Name(hash))

	stField, ok := a.Find(hash, "st")
	require.True(t, ok)
	ptrToSubtable := attrRef(a, stField)
	require.NotEqual(t, NoDie, ptrToSubtable)
	require.Equal(t, AbbrevPtrType, a.Get(ptrToSubtable).Abbrev)

	subtable := attrRef(a, ptrToSubtable)
	require.NotEqual(t, NoDie, subtable)
	assert.Equal(t, "hash_subtable<string,int>", a.Name(subtable))

	entryField, ok := a.Find(subtable, "entry")
	require.True(t, ok)
	ptrToEntry := attrRef(a, entryField)
	require.NotEqual(t, NoDie, ptrToEntry)

	entry := attrRef(a, ptrToEntry)
	require.NotEqual(t, NoDie, entry)
	assert.Equal(t, "hash_entry<string,int>", a.Name(entry))

	keyField, ok := a.Find(entry, "key")
	require.True(t, ok)
	assert.Equal(t, synth.TypeDieFromIR(key), attrRef(a, keyField))

	valField, ok := a.Find(entry, "val")
	require.True(t, ok)
	assert.Equal(t, synth.TypeDieFromIR(val), attrRef(a, valField))
}

// TestTypeDieFromIRMapDistinguishesKeyValuePairs guards against the
// single-shared-struct regression directly: two maps with different
// (K,V) pairs must synthesize two distinct hash<K,V> structs, not share
// one DIE the way the broken hmapStruct shortcut did.
func TestTypeDieFromIRMapDistinguishesKeyValuePairs(t *testing.T) {
	a, _, synth := newTestSynthesizer()
	stringT := &ir.Type{Kind: ir.KindString, Name: "string", Width: 16}
	intT := &ir.Type{Kind: ir.KindInt, Name: "int", Width: 8}
	boolT := &ir.Type{Kind: ir.KindBool, Name: "bool", Width: 1}

	m1 := &ir.Type{Kind: ir.KindMap, Name: "map[string]int", Width: 8, Key: stringT, Val: intT}
	m2 := &ir.Type{Kind: ir.KindMap, Name: "map[string]bool", Width: 8, Key: stringT, Val: boolT}

	hash1 := attrRef(a, attrRef(a, synth.TypeDieFromIR(m1)))
	hash2 := attrRef(a, attrRef(a, synth.TypeDieFromIR(m2)))
	assert.NotEqual(t, hash1, hash2)
	assert.NotEqual(t, a.Name(hash1), a.Name(hash2))
}

// TestTypeDieFromIRChan is chan's analogue of TestTypeDieFromIRMap:
// CHANTYPE -> PTRTYPE -> STRUCTTYPE "hchan<T>", with "elem" substituted
// directly and "recvq"/"sendq" substituted to a pointer-to-waitq whose
// "first"/"last" fields resolve to a pointer-to-sudog carrying the same
// element type.
func TestTypeDieFromIRChan(t *testing.T) {
	a, _, synth := newTestSynthesizer()
	elem := &ir.Type{Kind: ir.KindInt32, Name: "int32", Width: 4}
	ch := &ir.Type{Kind: ir.KindChan, Name: "chan int32", Width: 8, Elem: elem}

	chanDie := synth.TypeDieFromIR(ch)
	require.Equal(t, AbbrevChanType, a.Get(chanDie).Abbrev)

	ptrToHchan := attrRef(a, chanDie)
	require.NotEqual(t, NoDie, ptrToHchan)
	require.Equal(t, AbbrevPtrType, a.Get(ptrToHchan).Abbrev)

	hchan := attrRef(a, ptrToHchan)
	require.NotEqual(t, NoDie, hchan)
	assert.Equal(t, "hchan<int32>", a.Name(hchan))

	elemField, ok := a.Find(hchan, "elem")
	require.True(t, ok)
	assert.Equal(t, synth.TypeDieFromIR(elem), attrRef(a, elemField))

	recvqField, ok := a.Find(hchan, "recvq")
	require.True(t, ok)
	ptrToWaitq := attrRef(a, recvqField)
	require.NotEqual(t, NoDie, ptrToWaitq)
	waitq := attrRef(a, ptrToWaitq)
	require.NotEqual(t, NoDie, waitq)
	assert.Equal(t, "waitq<int32>", a.Name(waitq))

	sendqField, ok := a.Find(hchan, "sendq")
	require.True(t, ok)
	assert.Equal(t, ptrToWaitq, attrRef(a, sendqField), "recvq and sendq share the same waitq prototype instantiation")

	firstField, ok := a.Find(waitq, "first")
	require.True(t, ok)
	ptrToSudog := attrRef(a, firstField)
	require.NotEqual(t, NoDie, ptrToSudog)
	sudog := attrRef(a, ptrToSudog)
	require.NotEqual(t, NoDie, sudog)
	assert.Equal(t, "sudog<int32>", a.Name(sudog))

	sudogElemField, ok := a.Find(sudog, "elem")
	require.True(t, ok)
	assert.Equal(t, synth.TypeDieFromIR(elem), attrRef(a, sudogElemField))
}

// TestTypeDieFromIRStructWrapsTypedef covers the typedef-wiring fix
// (SPEC_FULL.md §C): a named struct gets dwarf.c's defgotype two-DIE
// shape, an anonymous structure DIE wrapped in a typedef DIE carrying the
// declared name, while an anonymous struct (e.g. a field's own type) does
// not.
func TestTypeDieFromIRStructWrapsTypedef(t *testing.T) {
	a, _, synth := newTestSynthesizer()
	i32 := &ir.Type{Kind: ir.KindInt32, Name: "int32", Width: 4}
	point := &ir.Type{
		Kind: ir.KindStruct, Name: "Point", Width: 8,
		Fields: []ir.Field{{Name: "X", Type: i32, Offset: 0}, {Name: "Y", Type: i32, Offset: 4}},
	}

	h := synth.TypeDieFromIR(point)
	require.Equal(t, AbbrevTypeDecl, a.Get(h).Abbrev)
	assert.Equal(t, "Point", a.Name(h))

	inner := attrRef(a, h)
	require.NotEqual(t, NoDie, inner)
	assert.Equal(t, AbbrevStructType, a.Get(inner).Abbrev)
	assert.Equal(t, "", a.Name(inner))

	xField, ok := a.Find(inner, "X")
	require.True(t, ok)
	assert.Equal(t, synth.TypeDieFromIR(i32), attrRef(a, xField))
}

// TestTypeDieFromIRAnonymousStructHasNoTypedef is the negative case of
// the above: an unnamed struct (e.g. a literal embedded only as a field's
// type) stays a single structure DIE, since there is no declared name to
// hang a typedef off of.
func TestTypeDieFromIRAnonymousStructHasNoTypedef(t *testing.T) {
	a, _, synth := newTestSynthesizer()
	anon := &ir.Type{Kind: ir.KindStruct, Name: "", Width: 0}

	h := synth.TypeDieFromIR(anon)
	assert.Equal(t, AbbrevStructType, a.Get(h).Abbrev)
}
