package dwarf

import (
	"sort"

	"github.com/hramberg-labs/ngen/src/ir"
)

// ---------------------
// ----- Line-number history reconstruction (spec.md §3, §4.11) -----
// ---------------------
//
// Ported from original_source/cmd/ld/dwarf.c's inithist/searchhist pair:
// on entering a procedure whose z-chain starts with a push of file index
// 1, the line state resets and the file stack is rebuilt by walking the
// chain; every distinct absolute-line landmark is appended to a sorted,
// binary-searchable history list the per-instruction emitter consults to
// translate a Prog's absolute line back into (file, logical line).

// Landmark is one entry of the sorted "absolute-line -> (file, logical
// line)" history list dwarf.c calls linehist.
type Landmark struct {
	AbsLine int64
	File    int
	Line    int
}

// LineHistory is the rebuilt file stack plus landmark list for one
// procedure's z/Z chain.
type LineHistory struct {
	Files     []string
	landmarks []Landmark
}

// fileFrame is one entry of the push/pop file stack walked while
// replaying a procedure's History chain.
type fileFrame struct {
	file int
	line int
}

// BuildLineHistory replays proc.History (the z/Z chain spec.md §3
// describes) and returns the reconstructed file table and a landmark
// list sorted by ascending absolute line, ready for Search.
func BuildLineHistory(proc *ir.Procedure) *LineHistory {
	lh := &LineHistory{Files: proc.Files}

	var stack []fileFrame
	absLine := int64(0)

	push := func(file int) {
		line := 1
		if len(stack) > 0 {
			line = stack[len(stack)-1].line
		}
		stack = append(stack, fileFrame{file: file, line: line})
	}

	for _, ev := range proc.History {
		absLine++
		switch ev.Kind {
		case ir.HistPushFile:
			push(ev.File)
		case ir.HistPopFile:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case ir.HistSetLine:
			if len(stack) > 0 {
				stack[len(stack)-1].line = ev.Line
			}
		}
		if len(stack) > 0 {
			top := stack[len(stack)-1]
			lh.landmarks = append(lh.landmarks, Landmark{AbsLine: absLine, File: top.file, Line: top.line})
		}
	}

	sort.Slice(lh.landmarks, func(i, j int) bool { return lh.landmarks[i].AbsLine < lh.landmarks[j].AbsLine })
	return lh
}

// Search finds the landmark whose AbsLine is the greatest value <=
// absLine (dwarf.c's searchhist: "descending-absline binary-or-linear
// search"), returning ok=false if absLine precedes every landmark.
func (lh *LineHistory) Search(absLine int64) (Landmark, bool) {
	ms := lh.landmarks
	i := sort.Search(len(ms), func(i int) bool { return ms[i].AbsLine > absLine })
	if i == 0 {
		return Landmark{}, false
	}
	return ms[i-1], true
}
