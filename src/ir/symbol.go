package ir

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Symbol names a procedure, automatic, parameter or global the back end
// must reference by name in emitted assembly or DWARF attributes.
type Symbol struct {
	Name     string
	Type     *Type
	Class    Class
	Offset   int64 // Stack offset for automatics/parameters; link address for globals/funcs.
	Width    int64
	External bool
	Used     bool // Set by markautoused; consumed by compactframe.

	// Sig is non-nil for ClassFunc symbols.
	Sig *Signature
}

// Procedure describes the procedure currently being compiled: its entry
// symbol, its automatics, and its signature. Exactly one exists per call
// to Compile (spec.md §6, "current-procedure descriptor").
type Procedure struct {
	Sym        *Symbol
	Body       *Node
	Auto       []*Symbol // Stack automatics declared in this procedure.
	Sig        *Signature
	ArgSize    int64 // Width of the incoming argument area.
	FrameSize  int64 // Width of the locals area; finalised by compactframe.
	External   bool
	File       string
	Line       int

	// Files is the zentry-decompressed file-path table this procedure's
	// History chain indexes into (spec.md §3, "Line-number history").
	Files []string

	// History is the z/Z-entry chain attached to this procedure by the
	// front end: a push-file or pop-file (HistPushFile/HistPopFile) event
	// records a #line-style file change, and a HistSetLine event updates
	// the line number at the top of the file stack. When the chain's
	// first entry is a HistPushFile at file index 1, the DWARF line
	// builder resets its state and rebuilds the file stack from scratch
	// (spec.md §4.11).
	History []HistEvent
}

// HistKind distinguishes the two z/Z event shapes spec.md §4.11
// describes.
type HistKind int

const (
	HistPushFile HistKind = iota // z: push File onto the file stack.
	HistPopFile
	HistSetLine // Z: update the line number at the top of the file stack.
)

// HistEvent is one entry of a procedure's line-number history chain.
type HistEvent struct {
	Kind HistKind
	File int // File-table index, for HistPushFile.
	Line int // New top-of-stack line number, for HistSetLine.
}
