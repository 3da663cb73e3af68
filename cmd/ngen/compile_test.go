package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hramberg-labs/ngen/src/target"
)

func TestCompileSamplesAMD64(t *testing.T) {
	listings, err := compileSamples(target.AMD64)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	require.Equal(t, "add", listings[0].Name)
	require.Equal(t, "quotient", listings[1].Name)
	require.Contains(t, listings[0].Asm, "RET")
	require.Contains(t, listings[1].Asm, "IDIV")
}

func TestCompileSamplesX86(t *testing.T) {
	listings, err := compileSamples(target.X86)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	require.Contains(t, listings[0].Asm, "RET")
}

// TestCompileSamplesDeterministic asserts that compiling the same sample
// procedures twice on the same target produces byte-for-byte identical
// listings: CodeGen carries no package-level state (Design Notes' "no
// global emitter state"), so two independent runs must not diverge.
func TestCompileSamplesDeterministic(t *testing.T) {
	first, err := compileSamples(target.AMD64)
	require.NoError(t, err)
	second, err := compileSamples(target.AMD64)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("repeated compilation diverged (-first +second):\n%s", diff)
	}
}

func TestResolveTarget(t *testing.T) {
	archFlag = "amd64"
	got, err := resolveTarget()
	require.NoError(t, err)
	require.Same(t, target.AMD64, got)

	archFlag = "386"
	got, err = resolveTarget()
	require.NoError(t, err)
	require.Same(t, target.X86, got)

	archFlag = "arm64"
	_, err = resolveTarget()
	require.Error(t, err)
}
