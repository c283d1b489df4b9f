package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlagsAddOverflow(t *testing.T) {
	r := &Registers{}
	result := flagsAdd(r, 0x7FFFFFFF, 1, 4)
	require.Equal(t, uint32(0x80000000), result)
	require.Equal(t, uint32(1), r.FlagGet(FlagOF))
	require.Equal(t, uint32(0), r.FlagGet(FlagCF))
	require.Equal(t, uint32(1), r.FlagGet(FlagSF))
}

func TestFlagsSubCmpEquivalence(t *testing.T) {
	r1, r2 := &Registers{}, &Registers{}
	a, b := uint32(5), uint32(5)
	flagsSub(r1, a, b, 4)
	flagsSub(r2, a, b, 4) // cmp discards the result but computes the same flags
	require.Equal(t, r1.EFLAGS(), r2.EFLAGS())
	require.Equal(t, uint32(1), r1.FlagGet(FlagZF))
	require.Equal(t, uint32(0), r1.FlagGet(FlagCF))
}

func TestFlagsSubUnsignedBorrow(t *testing.T) {
	r := &Registers{}
	flagsSub(r, 1, 2, 4)
	require.Equal(t, uint32(1), r.FlagGet(FlagCF))
	require.Equal(t, uint32(0), r.FlagGet(FlagZF))
}

func TestFlagsLogicalClearsCFOF(t *testing.T) {
	r := &Registers{}
	r.FlagSet(FlagCF, true)
	r.FlagSet(FlagOF, true)
	flagsLogical(r, 0, 4)
	require.Equal(t, uint32(0), r.FlagGet(FlagCF))
	require.Equal(t, uint32(0), r.FlagGet(FlagOF))
	require.Equal(t, uint32(1), r.FlagGet(FlagZF))
}

func TestFlagsIncDecDoNotTouchCF(t *testing.T) {
	r := &Registers{}
	r.FlagSet(FlagCF, true)
	flagsInc(r, 0xFFFFFFFF, 4)
	require.Equal(t, uint32(1), r.FlagGet(FlagCF))
	flagsDec(r, 0, 4)
	require.Equal(t, uint32(1), r.FlagGet(FlagCF))
}

func TestFlagsShiftLeftOverflowOnlyAtCountOne(t *testing.T) {
	r := &Registers{}
	r.FlagSet(FlagOF, true)
	flagsShift(r, shiftLeft, 0x1, 2, 4)
	require.Equal(t, uint32(1), r.FlagGet(FlagOF)) // unchanged, count != 1
}

func TestFlagsShiftRightArithSignExtends(t *testing.T) {
	r := &Registers{}
	result := flagsShift(r, shiftRightArith, 0x80, 1, 1)
	require.Equal(t, uint32(0xC0), result)
}

func TestParityEven(t *testing.T) {
	require.True(t, parityEven(0x03))  // two bits set
	require.False(t, parityEven(0x01)) // one bit set
}
