package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPropertyCallRetRoundTrip covers spec.md §8's P5: call target; ret
// returns EIP to the instruction following the call, ESP restored.
func TestPropertyCallRetRoundTrip(t *testing.T) {
	c := NewVM(128)
	// At 0: call +5 (lands on the nop at 10); at 5: nop (skipped over by
	// the call, landed on by ret); at 10: nop; at 11: ret (the stub).
	code := []byte{
		0xE8, 0x05, 0x00, 0x00, 0x00, // 0: call rel32 -> target 10
		0x90,                   // 5: nop (the instruction after the call)
		0x90, 0x90, 0x90, 0x90, // 6-9: filler
		0x90, // 10: nop (the call target, "stub")
		0xC3, // 11: ret
	}
	require.NoError(t, c.Mem.Set(0, 0, code))
	c.EIP = 0
	c.Regs.Write(RegESP, 4, 128, false)

	espBefore := c.Regs.Read(RegESP, 4, false)
	require.NoError(t, c.Step()) // call rel32
	require.Equal(t, uint32(10), c.EIP)
	require.Equal(t, espBefore-4, c.Regs.Read(RegESP, 4, false))

	require.NoError(t, c.Step()) // nop, the stub body
	require.NoError(t, c.Step()) // ret

	require.Equal(t, uint32(5), c.EIP, "ret must return to the instruction following the call")
	require.Equal(t, espBefore, c.Regs.Read(RegESP, 4, false), "ret must restore ESP exactly")
}

// TestPropertyMovsDirectionForward covers spec.md §8's P6 forward half:
// movsb with DF=0 increments ESI/EDI.
func TestPropertyMovsDirectionForward(t *testing.T) {
	c := NewVM(64)
	require.NoError(t, c.Mem.Set(0, 0, []byte{0xA4})) // movsb
	require.NoError(t, c.Mem.Set(0, 32, []byte{0xAB}))
	c.EIP = 0
	c.Regs.Write(RegESI, 4, 32, false)
	c.Regs.Write(RegEDI, 4, 40, false)
	c.Regs.FlagSet(FlagDF, false)

	require.NoError(t, c.Step())

	require.Equal(t, uint32(33), c.Regs.Read(RegESI, 4, false))
	require.Equal(t, uint32(41), c.Regs.Read(RegEDI, 4, false))
	b, err := c.Mem.Get(0, 40, 1)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), b[0])
}

// TestPropertyMovsDirectionBackward covers spec.md §8's P6 backward half:
// movsb with DF=1 decrements ESI/EDI.
func TestPropertyMovsDirectionBackward(t *testing.T) {
	c := NewVM(64)
	require.NoError(t, c.Mem.Set(0, 0, []byte{0xA4})) // movsb
	require.NoError(t, c.Mem.Set(0, 32, []byte{0xCD}))
	c.EIP = 0
	c.Regs.Write(RegESI, 4, 32, false)
	c.Regs.Write(RegEDI, 4, 40, false)
	c.Regs.FlagSet(FlagDF, true)

	require.NoError(t, c.Step())

	require.Equal(t, uint32(31), c.Regs.Read(RegESI, 4, false))
	require.Equal(t, uint32(39), c.Regs.Read(RegEDI, 4, false))
}

// TestPropertyMovsRepCountsExactlyECXTimes covers spec.md §8's P6 REP
// half: with a REP prefix and ECX=n, movsb executes exactly n times and
// leaves ECX=0.
func TestPropertyMovsRepCountsExactlyECXTimes(t *testing.T) {
	c := NewVM(64)
	require.NoError(t, c.Mem.Set(0, 0, []byte{0xF3, 0xA4})) // rep movsb
	src := []byte{1, 2, 3, 4, 5}
	require.NoError(t, c.Mem.Set(0, 16, src))
	c.EIP = 0
	c.Regs.Write(RegESI, 4, 16, false)
	c.Regs.Write(RegEDI, 4, 32, false)
	c.Regs.Write(RegECX, 4, uint32(len(src)), false)
	c.Regs.FlagSet(FlagDF, false)

	require.NoError(t, c.Step())

	require.Equal(t, uint32(0), c.Regs.Read(RegECX, 4, false))
	require.Equal(t, uint32(16+len(src)), c.Regs.Read(RegESI, 4, false))
	require.Equal(t, uint32(32+len(src)), c.Regs.Read(RegEDI, 4, false))
	got, err := c.Mem.Get(0, 32, uint32(len(src)))
	require.NoError(t, err)
	require.Equal(t, src, got)
}
