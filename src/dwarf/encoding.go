package dwarf

// ---------------------
// ----- LEB128 encoding (spec.md §4.9) -----
// ---------------------
//
// Ported directly from original_source/cmd/ld/dwarf.c's uleb128enc and
// sleb128enc: these two routines have no meaningful "idiomatic Go"
// rewrite, they're a fixed bit-twiddling algorithm from the DWARF spec
// itself (§7.6).

// AppendUleb128 appends v's unsigned LEB128 encoding to dst and returns
// the grown slice.
func AppendUleb128(dst []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		dst = append(dst, c)
		if v == 0 {
			break
		}
	}
	return dst
}

// AppendSleb128 appends v's signed LEB128 encoding to dst and returns the
// grown slice.
func AppendSleb128(dst []byte, v int64) []byte {
	for {
		c := byte(v & 0x7f)
		s := byte(v & 0x40)
		v >>= 7
		more := (v != -1 || s == 0) && (v != 0 || s != 0)
		if more {
			c |= 0x80
		}
		dst = append(dst, c)
		if !more {
			break
		}
	}
	return dst
}
