package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newDecodeCPU(t *testing.T, code []byte) *CPU {
	c := NewVM(256)
	require.NoError(t, c.Mem.Set(0, 0, code))
	c.EIP = 0
	return c
}

func TestDecodeModRMPlainRegisterIndirect(t *testing.T) {
	// mod=00, reg=0, rm=0 -> [eax], no SIB, no displacement.
	c := newDecodeCPU(t, []byte{0x00})
	c.Regs.Write(RegEAX, 4, 0x10, false)
	reg, rm, err := c.decodeModRM(4)
	require.NoError(t, err)
	require.Equal(t, 0, reg)
	require.Equal(t, OperandMem, rm.Kind)
	require.Equal(t, uint32(0x10), rm.Addr)
	require.Equal(t, uint32(1), c.EIP) // only the ModR/M byte consumed
}

func TestDecodeModRMDisp8(t *testing.T) {
	// mod=01, reg=0, rm=3 (ebx) -> [ebx+disp8]
	c := newDecodeCPU(t, []byte{0x43, 0x05})
	c.Regs.Write(RegEBX, 4, 0x100, false)
	_, rm, err := c.decodeModRM(4)
	require.NoError(t, err)
	require.Equal(t, uint32(0x105), rm.Addr)
	require.Equal(t, uint32(2), c.EIP)
}

func TestDecodeModRMDisp8Negative(t *testing.T) {
	// mod=01, reg=0, rm=3 (ebx), disp8 = -1 -> [ebx-1]
	c := newDecodeCPU(t, []byte{0x43, 0xFF})
	c.Regs.Write(RegEBX, 4, 0x100, false)
	_, rm, err := c.decodeModRM(4)
	require.NoError(t, err)
	require.Equal(t, uint32(0xFF), rm.Addr)
}

func TestDecodeModRMDisp32(t *testing.T) {
	// mod=10, reg=0, rm=3 (ebx) -> [ebx+disp32]
	c := newDecodeCPU(t, []byte{0x83, 0x10, 0x00, 0x00, 0x00})
	c.Regs.Write(RegEBX, 4, 0x100, false)
	_, rm, err := c.decodeModRM(4)
	require.NoError(t, err)
	require.Equal(t, uint32(0x110), rm.Addr)
	require.Equal(t, uint32(5), c.EIP)
}

func TestDecodeModRMAbsoluteDisp32NoBase(t *testing.T) {
	// mod=00, reg=0, rm=5 -> [disp32], no base register at all.
	c := newDecodeCPU(t, []byte{0x05, 0x00, 0x20, 0x00, 0x00})
	// Poison EBP (the register rm=5 would otherwise mean) to prove it's unused.
	c.Regs.Write(RegEBP, 4, 0xDEADBEEF, false)
	_, rm, err := c.decodeModRM(4)
	require.NoError(t, err)
	require.Equal(t, uint32(0x2000), rm.Addr)
	require.Equal(t, uint32(5), c.EIP)
}

func TestDecodeModRMSIBNoBaseDisp32(t *testing.T) {
	// mod=00, rm=4 (SIB follows). SIB: scale=0, index=2 (edx), base=5 ->
	// no base register, a disp32 follows instead; result is
	// edx*1 + disp32.
	c := newDecodeCPU(t, []byte{0x04, 0x15, 0x00, 0x01, 0x00, 0x00})
	c.Regs.Write(RegEDX, 4, 0x4, false)
	_, rm, err := c.decodeModRM(4)
	require.NoError(t, err)
	require.Equal(t, uint32(0x104), rm.Addr)
	require.Equal(t, uint32(6), c.EIP)
}

func TestDecodeModRMSIBBaseOnlyNoBaseDisp32(t *testing.T) {
	// Same SIB base=5/mod=00 special case, but with index=4 ("no index")
	// so the result is the disp32 alone.
	c := newDecodeCPU(t, []byte{0x04, 0x25, 0x00, 0x01, 0x00, 0x00})
	_, rm, err := c.decodeModRM(4)
	require.NoError(t, err)
	require.Equal(t, uint32(0x100), rm.Addr)
}

func TestDecodeModRMSIBEspNeverIndex(t *testing.T) {
	// mod=00, rm=4 (SIB). SIB: scale=0, index=4 (meaning "no index", NOT
	// esp itself), base=0 (eax). Result must be eax alone, even though
	// esp holds an unrelated, very different value.
	c := newDecodeCPU(t, []byte{0x04, 0x20})
	c.Regs.Write(RegEAX, 4, 0x40, false)
	c.Regs.Write(RegESP, 4, 0xFFFFFFFF, false)
	_, rm, err := c.decodeModRM(4)
	require.NoError(t, err)
	require.Equal(t, uint32(0x40), rm.Addr)
	require.Equal(t, uint32(2), c.EIP)
}

func TestDecodeModRMSIBWithScaleAndBase(t *testing.T) {
	// mod=01, rm=4 (SIB). SIB: scale=2 (x4), index=1 (ecx), base=3 (ebx),
	// plus a disp8. Result is ebx + ecx*4 + disp8.
	c := newDecodeCPU(t, []byte{0x44, 0x8B, 0x02})
	c.Regs.Write(RegEBX, 4, 0x1000, false)
	c.Regs.Write(RegECX, 4, 0x10, false)
	_, rm, err := c.decodeModRM(4)
	require.NoError(t, err)
	require.Equal(t, uint32(0x1000+0x10*4+2), rm.Addr)
}

func TestDecodeModRMRegisterDirectEightBitAliasing(t *testing.T) {
	// mod=11, reg=0, rm=5 -> register-direct, 8-bit width selects CH (the
	// high byte of ecx) via the reg/rm field 4..7 aliasing.
	c := newDecodeCPU(t, []byte{0xC5})
	_, rm, err := c.decodeModRM(1)
	require.NoError(t, err)
	require.Equal(t, OperandReg, rm.Kind)
	require.Equal(t, RegECX, rm.RegIndex)
	require.True(t, rm.HighByte)
}
