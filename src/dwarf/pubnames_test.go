package dwarf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hramberg-labs/ngen/src/asm"
	"github.com/hramberg-labs/ngen/src/ir"
	"github.com/hramberg-labs/ngen/src/objfile"
)

// buildUnit runs the full WriteLines -> WriteInfo pipeline for one
// external procedure, the precondition pubnames/pubtypes/aranges all
// depend on: every DIE's Offset must already be assigned.
func buildUnit(t *testing.T) (*Arena, Handle) {
	t.Helper()
	a, root, types, _ := NewArena()
	synth := NewSynthesizer(a, types, nil)

	buf := &asm.Buffer{}
	buf.Emit("MOV", asm.NewConstAddr(1, 8), asm.Addr{Mode: asm.ModeReg}, 1)
	buf.Emit("RET", asm.Addr{}, asm.Addr{}, 1)

	proc := &ir.Procedure{
		Sym:      &ir.Symbol{Name: "main.f", Class: ir.ClassFunc},
		External: true,
		Files:    []string{"a.vsl"},
		History:  []ir.HistEvent{{Kind: ir.HistPushFile, File: 1}},
	}
	compiled := &Compiled{Proc: proc, Buf: buf}

	infoSink := objfile.NewBuffer()
	require.NoError(t, WriteLines(infoSink, a, root, []*Compiled{compiled}, synth))
	require.NoError(t, WriteInfo(infoSink, a, root, 8, 0))
	return a, root
}

// TestWritePubNamesListsExternalFunctions covers spec.md §8 property #9
// (pubnames/pubtypes soundness): an external function's compile unit
// offset and name show up in .debug_pubnames, exactly once.
func TestWritePubNamesListsExternalFunctions(t *testing.T) {
	a, root := buildUnit(t)
	sink := objfile.NewBuffer()
	require.NoError(t, WritePubNames(sink, a, root))

	out := sink.Raw()
	require.NotEmpty(t, out)
	assert.Contains(t, string(out), "main.f")
	assert.Equal(t, 1, strings.Count(string(out), "main.f"))
}

// TestWritePubNamesExcludesNonExternal asserts a non-external procedure
// never shows up in .debug_pubnames (isPubName's External gate).
func TestWritePubNamesExcludesNonExternal(t *testing.T) {
	a, root, types, _ := NewArena()
	synth := NewSynthesizer(a, types, nil)

	buf := &asm.Buffer{}
	buf.Emit("RET", asm.Addr{}, asm.Addr{}, 1)
	proc := &ir.Procedure{
		Sym:     &ir.Symbol{Name: "main.internal", Class: ir.ClassFunc},
		Files:   []string{"a.vsl"},
		History: []ir.HistEvent{{Kind: ir.HistPushFile, File: 1}},
	}
	infoSink := objfile.NewBuffer()
	require.NoError(t, WriteLines(infoSink, a, root, []*Compiled{{Proc: proc, Buf: buf}}, synth))
	require.NoError(t, WriteInfo(infoSink, a, root, 8, 0))

	sink := objfile.NewBuffer()
	require.NoError(t, WritePubNames(sink, a, root))
	assert.NotContains(t, string(sink.Raw()), "main.internal")
}

// TestWritePubTypesListsNamedTypes covers the same property for
// .debug_pubtypes: a named synthesized type (here, an int64 synthesized
// before WriteLines runs) shows up by name.
func TestWritePubTypesListsNamedTypes(t *testing.T) {
	a, root, types, _ := NewArena()
	synth := NewSynthesizer(a, types, nil)
	synth.TypeDieFromIR(&ir.Type{Kind: ir.KindInt64, Name: "int64", Width: 8})

	buf := &asm.Buffer{}
	buf.Emit("RET", asm.Addr{}, asm.Addr{}, 1)
	proc := &ir.Procedure{
		Sym:     &ir.Symbol{Name: "main.f", Class: ir.ClassFunc},
		Files:   []string{"a.vsl"},
		History: []ir.HistEvent{{Kind: ir.HistPushFile, File: 1}},
	}
	infoSink := objfile.NewBuffer()
	require.NoError(t, WriteLines(infoSink, a, root, []*Compiled{{Proc: proc, Buf: buf}}, synth))
	require.NoError(t, WriteInfo(infoSink, a, root, 8, 0))

	sink := objfile.NewBuffer()
	require.NoError(t, WritePubTypes(sink, a, root))
	assert.Contains(t, string(sink.Raw()), "int64")
}

// TestWriteArangesOneRangePerUnit covers property #10's address-range
// half: one (address, length) pair per compile unit, keyed off the
// DW_AT_low_pc/high_pc WriteLines recorded.
func TestWriteArangesOneRangePerUnit(t *testing.T) {
	a, root := buildUnit(t)
	sink := objfile.NewBuffer()
	require.NoError(t, WriteAranges(sink, a, root, 8))
	assert.NotEmpty(t, sink.Raw())
}
