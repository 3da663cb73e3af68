package asm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hramberg-labs/ngen/src/target"
)

func TestRegAllocFreeRoundTrip(t *testing.T) {
	rf := NewRegFile(target.AMD64)
	entryInts, entryFloats := rf.Snapshot()

	a, err := rf.RegAlloc(false, 8, nil)
	require.NoError(t, err)
	assert.True(t, rf.Busy(a.Reg, false))

	require.NoError(t, rf.RegFree(a))
	assert.False(t, rf.Busy(a.Reg, false))

	exitInts, exitFloats := rf.Snapshot()
	assert.Equal(t, entryInts, exitInts)
	assert.Equal(t, entryFloats, exitFloats)
}

func TestRegAllocHintPreferred(t *testing.T) {
	rf := NewRegFile(target.AMD64)
	hint := NewRegAddr(target.AMD64, target.AMD64.Accumulator, false, 8)

	a, err := rf.RegAlloc(false, 8, &hint)
	require.NoError(t, err)
	assert.Equal(t, target.AMD64.Accumulator, a.Reg)
	require.NoError(t, rf.RegFree(a))
}

func TestRegAllocExhaustion(t *testing.T) {
	rf := NewRegFile(target.X86)
	var held []Addr
	for i := 0; i < target.X86.NumIntReg; i++ {
		a, err := rf.RegAlloc(false, 4, nil)
		require.NoError(t, err)
		held = append(held, a)
	}
	_, err := rf.RegAlloc(false, 4, nil)
	assert.Error(t, err, "regalloc should fail once every integer register is busy")

	for _, a := range held {
		require.NoError(t, rf.RegFree(a))
	}
}

func TestRegFreeUnallocatedIsError(t *testing.T) {
	rf := NewRegFile(target.AMD64)
	bad := NewRegAddr(target.AMD64, target.AMD64.Accumulator, false, 8)
	assert.Error(t, rf.RegFree(bad))
}

func TestSaveXRestXSkipsWhenResultIsReg(t *testing.T) {
	rf := NewRegFile(target.AMD64)
	result := NewRegAddr(target.AMD64, target.AMD64.Accumulator, false, 8)

	saved, err := rf.SaveX(target.AMD64.Accumulator, false, &result)
	require.NoError(t, err)
	require.NoError(t, rf.RestX(saved))
	assert.False(t, rf.Busy(target.AMD64.Accumulator, false))
}

func TestSaveXSpillsWhenBusy(t *testing.T) {
	rf := NewRegFile(target.AMD64)
	a, err := rf.RegAlloc(false, 8, &Addr{Mode: ModeReg, Reg: target.AMD64.Accumulator})
	require.NoError(t, err)
	require.Equal(t, target.AMD64.Accumulator, a.Reg)

	saved, err := rf.SaveX(target.AMD64.Accumulator, false, nil)
	require.NoError(t, err)
	require.True(t, saved.haveMoved)

	require.NoError(t, rf.RestX(saved))
	require.NoError(t, rf.RegFree(a))
}
