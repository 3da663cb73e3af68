package cgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hramberg-labs/ngen/src/ir"
	"github.com/hramberg-labs/ngen/src/target"
)

var voidType = &ir.Type{Kind: ir.KindInvalid}

func callNode(op ir.Op, fnSym *ir.Symbol, args ...*ir.Node) *ir.Node {
	fn := &ir.Node{Op: ir.OpName, Class: ir.ClassFunc, Sym: fnSym}
	return &ir.Node{Op: op, Left: fn, Aux: args}
}

// TestMultipleReturnsShareOneEpilogue exercises the "goto ret" pattern: a
// procedure with two `return` statements on different branches of an if
// must still emit exactly one RET, with both return sites' jumps patched
// to the same epilogue.
func TestMultipleReturnsShareOneEpilogue(t *testing.T) {
	i64 := &ir.Type{Kind: ir.KindInt64, Width: 8, Align: 8}
	aSym := &ir.Symbol{Name: "a", Type: i64, Class: ir.ClassParam, Offset: 0, Width: 8}
	cond := nameNode(aSym, i64, ir.ClassParam)

	retOne := &ir.Node{Op: ir.OpReturn, Aux: []*ir.Node{constNode(1, i64)}}
	retTwo := &ir.Node{Op: ir.OpReturn, Aux: []*ir.Node{constNode(2, i64)}}
	ifNode := &ir.Node{Op: ir.OpIf, Left: cond, Right: retOne, Aux: []*ir.Node{retTwo}}

	sig := &ir.Signature{
		Params:  []ir.Field{{Name: "a", Type: i64, Offset: 0}},
		Results: []ir.Field{{Name: "", Type: i64, Offset: 8}},
		ArgSize: 16,
	}
	sym := &ir.Symbol{Name: "tworets", Class: ir.ClassFunc, Sig: sig, External: true}
	proc := &ir.Procedure{Sym: sym, Body: ifNode, Sig: sig, ArgSize: sig.ArgSize, External: true, File: "t.vsl"}

	cg := New(target.AMD64, proc)
	require.NoError(t, cg.Compile())
	asmText := cg.Buf.String()
	assert.Equal(t, 1, strings.Count(asmText, "RET"), "expected exactly one RET regardless of return-statement count")
}

// TestDeferredCallMarksDeferReturnAndEpilogueJump exercises spec.md §8
// S6: a deferred call sets hasDefer, emits deferproc around the call, and
// the panic-path branch out of cgenDeferproc joins the same shared
// epilogue as an ordinary return.
func TestDeferredCallMarksDeferReturnAndEpilogueJump(t *testing.T) {
	i64 := &ir.Type{Kind: ir.KindInt64, Width: 8, Align: 8}
	deferCall := callNode(ir.OpCallDefer, &ir.Symbol{Name: "cleanup", Class: ir.ClassFunc})
	ret := &ir.Node{Op: ir.OpReturn, Aux: []*ir.Node{constNode(0, i64)}}
	body := &ir.Node{Aux: []*ir.Node{deferCall, ret}}

	sig := &ir.Signature{Results: []ir.Field{{Name: "", Type: i64, Offset: 0}}, ArgSize: 8}
	sym := &ir.Symbol{Name: "withdefer", Class: ir.ClassFunc, Sig: sig, External: true}
	proc := &ir.Procedure{Sym: sym, Body: body, Sig: sig, ArgSize: sig.ArgSize, External: true, File: "t.vsl"}

	cg := New(target.AMD64, proc)
	require.NoError(t, cg.Compile())
	asmText := cg.Buf.String()
	assert.True(t, cg.hasDefer)
	assert.Contains(t, asmText, "deferproc")
	assert.Contains(t, asmText, "deferreturn")
	assert.Equal(t, 1, strings.Count(asmText, "RET"))
}

func TestAsyncCallEmitsNewprocNoReturnTest(t *testing.T) {
	asyncCall := callNode(ir.OpCallGo, &ir.Symbol{Name: "worker", Class: ir.ClassFunc})
	voidRet := &ir.Node{Op: ir.OpReturn}
	body := &ir.Node{Aux: []*ir.Node{asyncCall, voidRet}}

	sym := &ir.Symbol{Name: "spawner", Class: ir.ClassFunc, Sig: &ir.Signature{}, External: true}
	proc := &ir.Procedure{Sym: sym, Body: body, Sig: sym.Sig, External: true, File: "t.vsl"}

	cg := New(target.AMD64, proc)
	require.NoError(t, cg.Compile())
	asmText := cg.Buf.String()
	assert.Contains(t, asmText, "newproc")
	assert.False(t, cg.hasDefer)
}

func TestCallWithArgumentsAndResultRegisterDiscipline(t *testing.T) {
	i64 := &ir.Type{Kind: ir.KindInt64, Width: 8, Align: 8}
	argA := constNode(3, i64)
	argB := constNode(4, i64)
	call := callNode(ir.OpCall, &ir.Symbol{Name: "add", Class: ir.ClassFunc}, argA, argB)
	call.Type = i64
	ret := &ir.Node{Op: ir.OpReturn, Aux: []*ir.Node{call}}

	sig := &ir.Signature{Results: []ir.Field{{Name: "", Type: i64, Offset: 0}}, ArgSize: 8}
	sym := &ir.Symbol{Name: "caller", Class: ir.ClassFunc, Sig: sig, External: true}
	proc := &ir.Procedure{Sym: sym, Body: ret, Sig: sig, ArgSize: sig.ArgSize, External: true, File: "t.vsl"}

	cg := New(target.AMD64, proc)
	require.NoError(t, cg.Compile())
	assert.Contains(t, cg.Buf.String(), "CALL")
}
