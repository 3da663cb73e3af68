package asm

import (
	"testing"

	"github.com/hramberg-labs/ngen/src/target"
)

func TestAddrStringModes(t *testing.T) {
	reg := NewRegAddr(target.AMD64, target.AMD64.Accumulator, false, 8)
	if got := reg.String(); got != "AX" {
		t.Errorf("register Addr.String() = %q, want AX", got)
	}

	c := NewConstAddr(42, 8)
	if got := c.String(); got != "$42" {
		t.Errorf("constant Addr.String() = %q, want $42", got)
	}

	indir := Addr{Mode: ModeIndir, Base: target.AMD64.FP, Offset: -8}
	if got := indir.String(); got == "" {
		t.Error("indirect Addr.String() returned empty string")
	}

	if got := (Addr{}).String(); got != "<none>" {
		t.Errorf("zero-value Addr.String() = %q, want <none>", got)
	}
}

func TestNewAutoAddr(t *testing.T) {
	a := NewAutoAddr(nil, 16, 8)
	if a.Mode != ModeAuto || a.Offset != 16 || a.Width != 8 {
		t.Errorf("NewAutoAddr produced unexpected Addr: %+v", a)
	}
}
