package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAliasingAL(t *testing.T) {
	r := &Registers{}
	r.Write(RegEAX, 4, 0xAABBCCDD, false)
	r.Write(RegEAX, 1, 0xFF, false)
	require.Equal(t, uint32(0xAABBCCFF), r.Read(RegEAX, 4, false))
}

func TestRegisterAliasingAX(t *testing.T) {
	r := &Registers{}
	r.Write(RegEAX, 4, 0xAABBCCDD, false)
	r.Write(RegEAX, 2, 0x1122, false)
	require.Equal(t, uint32(0xAABB1122), r.Read(RegEAX, 4, false))
}

func TestRegisterAliasingAH(t *testing.T) {
	r := &Registers{}
	r.Write(RegEAX, 4, 0x000000FF, false)
	r.Write(RegEAX, 1, 0x42, true)
	require.Equal(t, uint32(0x000042FF), r.Read(RegEAX, 4, false))
}

func TestReg8IndexMapping(t *testing.T) {
	slot, high := Reg8Index(5) // field 5 -> CH
	require.Equal(t, RegECX, slot)
	require.True(t, high)

	slot, high = Reg8Index(1) // field 1 -> CL
	require.Equal(t, RegECX, slot)
	require.False(t, high)
}

func TestFlagSetGet(t *testing.T) {
	r := &Registers{}
	r.FlagSet(FlagZF, true)
	require.Equal(t, uint32(1), r.FlagGet(FlagZF))
	r.FlagSet(FlagZF, false)
	require.Equal(t, uint32(0), r.FlagGet(FlagZF))
}
