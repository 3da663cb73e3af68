package main

import (
	"fmt"
	"strings"

	"github.com/hramberg-labs/ngen/src/cgen"
	"github.com/hramberg-labs/ngen/src/dwarf"
	"github.com/hramberg-labs/ngen/src/objfile"
	"github.com/hramberg-labs/ngen/src/target"
)

// dumpSamples compiles every built-in sample procedure, feeds the results
// through the full DWARF pipeline (line program, frame section, type
// synthesis, pubnames/pubtypes/aranges), and renders a human-readable
// summary of each section's byte size -- cmd/ngen has no disassembler or
// real object-file reader to pretty-print the bytes themselves, so a size
// summary is what "dump" means here (spec.md §1, the object-file writer
// stays external).
func dumpSamples(t *target.Target) (string, error) {
	arena, root, types, _ := dwarf.NewArena()
	synth := dwarf.NewSynthesizer(arena, types, nil)

	var compiled []*dwarf.Compiled
	for _, proc := range sampleProcedures() {
		cg := cgen.New(t, proc)
		if err := cg.Compile(); err != nil {
			return "", err
		}
		compiled = append(compiled, &dwarf.Compiled{Proc: proc, Buf: &cg.Buf})
	}

	sink := objfile.NewBuffer()
	if err := dwarf.WriteLines(sink, arena, root, compiled, synth); err != nil {
		return "", err
	}
	lineSize := sink.Pos()

	abbrevSink := objfile.NewBuffer()
	abbrevSink.Bytes(dwarf.Encode(nil))
	abbrevSize := abbrevSink.Pos()

	infoSink := objfile.NewBuffer()
	if err := dwarf.WriteInfo(infoSink, arena, root, t.PointerWidth, abbrevSize); err != nil {
		return "", err
	}
	infoSize := infoSink.Pos()

	frameSink := objfile.NewBuffer()
	if err := dwarf.WriteFrames(frameSink, t.PointerWidth, compiled); err != nil {
		return "", err
	}
	frameSize := frameSink.Pos()

	pubnamesSink := objfile.NewBuffer()
	if err := dwarf.WritePubNames(pubnamesSink, arena, root); err != nil {
		return "", err
	}
	pubtypesSink := objfile.NewBuffer()
	if err := dwarf.WritePubTypes(pubtypesSink, arena, root); err != nil {
		return "", err
	}
	arangesSink := objfile.NewBuffer()
	if err := dwarf.WriteAranges(arangesSink, arena, root, t.PointerWidth); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "target: %s\n", t.Name)
	fmt.Fprintf(&b, "host page size: %d\n", objfile.HostPageSize())
	fmt.Fprintf(&b, ".debug_abbrev: %d bytes\n", abbrevSize)
	fmt.Fprintf(&b, ".debug_line:   %d bytes\n", lineSize)
	fmt.Fprintf(&b, ".debug_info:   %d bytes\n", infoSize)
	fmt.Fprintf(&b, ".debug_frame:  %d bytes\n", frameSize)
	fmt.Fprintf(&b, ".debug_pubnames: %d bytes\n", pubnamesSink.Pos())
	fmt.Fprintf(&b, ".debug_pubtypes: %d bytes\n", pubtypesSink.Pos())
	fmt.Fprintf(&b, ".debug_aranges:  %d bytes\n", arangesSink.Pos())
	return b.String(), nil
}
