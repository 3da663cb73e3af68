// Package objfile defines the narrow byte-sink interface src/dwarf writes
// its sections through, plus the per-container section-registration hooks
// a real object-file writer needs to know where to place them. The
// byte-level encoder for a complete ELF/Mach-O/PE file is out of scope
// (spec.md §1, "Out of scope: the object-file writer") — this package
// only owns the callback surface src/dwarf's cflush/cput/cwrite-family
// calls go through (original_source/cmd/ld/dwarf.c).
package objfile

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Sink is the byte-level write surface src/dwarf emits a section through:
// an append-only cursor with the fixed-width and ULEB/SLEB-adjacent
// helpers dwarf.c's cput/cwrite family provides, generalized to an
// interface so tests can substitute an in-memory sink for a real object
// writer (DESIGN.md).
type Sink interface {
	Byte(b byte)
	Bytes(p []byte)
	Word(v uint16)   // 2-byte little-endian, dwarf.c's WPUT.
	Long(v uint32)   // 4-byte little-endian, dwarf.c's LPUT.
	Vlong(v uint64, width int) // width-byte little-endian, dwarf.c's VPUT/addrput.
	String(s string, fixedLen int) // NUL-padded or truncated to fixedLen bytes.
	Pos() int64
	Seek(pos int64)
	Flush() error
}

// Buffer is the in-memory Sink implementation used by tests and by
// cmd/ngen's dwarfdump subcommand, which has no real container to write
// into.
type Buffer struct {
	data []byte
	pos  int64
}

// NewBuffer returns an empty in-memory Sink.
func NewBuffer() *Buffer { return &Buffer{} }

// Raw returns the sink's backing storage.
func (b *Buffer) Raw() []byte { return b.data }

func (b *Buffer) ensure(n int) {
	end := int(b.pos) + n
	if end > len(b.data) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
}

func (b *Buffer) Byte(v byte) {
	b.ensure(1)
	b.data[b.pos] = v
	b.pos++
}

func (b *Buffer) Bytes(p []byte) {
	b.ensure(len(p))
	copy(b.data[b.pos:], p)
	b.pos += int64(len(p))
}

func (b *Buffer) Word(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	b.Bytes(buf[:])
}

func (b *Buffer) Long(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	b.Bytes(buf[:])
}

func (b *Buffer) Vlong(v uint64, width int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	b.Bytes(buf[:width])
}

func (b *Buffer) String(s string, fixedLen int) {
	buf := make([]byte, fixedLen)
	copy(buf, s)
	b.Bytes(buf)
}

func (b *Buffer) Pos() int64 { return b.pos }

func (b *Buffer) Seek(pos int64) {
	b.ensure(0)
	b.pos = pos
}

func (b *Buffer) Flush() error { return nil }

// ----------------------------
// ----- Section registration -----
// ----------------------------

// Container identifies which object-file family the final sections are
// destined for; src/dwarf itself writes container-agnostic bytes, but a
// few fields (address size, alignment) are container-sensitive.
type Container int

const (
	ContainerELF Container = iota
	ContainerMachO
	ContainerPE
)

// Section describes one named DWARF section a writer must register
// before (or while) src/dwarf streams bytes into its Sink, mirroring the
// handful of container-specific registration calls dwarf.c's caller
// (deferred to lib.c/ldelf.c/ldpe.c in the original linker) performs
// around writeabbrev/writelines/writeframes/writeinfo/writepub.
type Section struct {
	Name  string // e.g. ".debug_info", "__debug_info" on Mach-O.
	Align int64
}

// StandardSections is the fixed list of DWARF sections this back end
// emits, spec.md §1's "ELF, Mach-O and PE container" requirement.
var StandardSections = []string{
	"abbrev", "line", "info", "frame", "pubnames", "pubtypes", "aranges", "gdb_scripts",
}

// SectionName renders the generic section key ("info", "line", ...) as
// the container's native section name.
func SectionName(c Container, key string) (string, error) {
	switch c {
	case ContainerELF:
		return ".debug_" + key, nil
	case ContainerMachO:
		return "__debug_" + key, nil
	case ContainerPE:
		return ".debug_" + key, nil
	}
	return "", errors.Errorf("objfile: unknown container %d", c)
}

// HostPageSize reports the running host's page size via a direct
// getpagesize(2) call. cmd/ngen logs it at debug level on start-up and
// prints it in the dwarfdump summary; nothing compares it with a
// Target's UnmappedPage.
func HostPageSize() int64 {
	return int64(unix.Getpagesize())
}
