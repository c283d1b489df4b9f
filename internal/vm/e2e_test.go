package vm

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func hexBytes(t *testing.T, parts ...string) []byte {
	var out []byte
	for _, p := range parts {
		b, err := hex.DecodeString(p)
		require.NoError(t, err)
		out = append(out, b...)
	}
	return out
}

func TestE2EHelloWorld(t *testing.T) {
	code := hexBytes(t,
		"B804000000", "BB01000000", "B929000000", "BA0E000000", "CD80",
		"E902000000", "89C8", "B801000000", "BB00000000", "CD80",
		"48656C6C6F2C20776F726C64210A",
	)
	var stdout bytes.Buffer
	c := NewVM(128, WithStreams(bytes.NewReader(nil), &stdout, &stdout))
	require.NoError(t, c.ExecuteBytes(code, 0))
	require.Equal(t, "Hello, world!\n", stdout.String())
	require.Equal(t, uint8(0), c.ExitCode)
}

func TestE2EArithmeticFlags(t *testing.T) {
	code := hexBytes(t, "B805000000", "83E805", "7401", "90")
	c := NewVM(128)
	require.NoError(t, c.Mem.Set(0, 0, code))
	c.EIP = 0
	c.Regs.Write(RegESP, 4, 128, false)
	require.NoError(t, c.Step()) // mov eax,5
	require.NoError(t, c.Step()) // sub eax,5
	require.Equal(t, uint32(0), c.Regs.Read(RegEAX, 4, false))
	require.Equal(t, uint32(1), c.Regs.FlagGet(FlagZF))
	require.Equal(t, uint32(0), c.Regs.FlagGet(FlagCF))
	eipBeforeJz := c.EIP
	require.NoError(t, c.Step()) // jz +1, taken, skips the nop
	require.Equal(t, eipBeforeJz+2+1, c.EIP)
}

func TestE2EUnsignedCompare(t *testing.T) {
	code := hexBytes(t, "B801000000", "3D02000000")
	c := NewVM(128)
	require.NoError(t, c.Mem.Set(0, 0, code))
	c.EIP = 0
	require.NoError(t, c.Step())
	require.NoError(t, c.Step())
	require.Equal(t, uint32(0), c.Regs.FlagGet(FlagZF))
	require.Equal(t, uint32(1), c.Regs.FlagGet(FlagCF))
	require.Equal(t, uint32(1), c.Regs.FlagGet(FlagSF))
	require.Equal(t, uint32(0), c.Regs.FlagGet(FlagOF))
}

func TestE2EStackOrdering(t *testing.T) {
	code := hexBytes(t, "6A01", "6A02", "58", "5B")
	c := NewVM(128)
	require.NoError(t, c.Mem.Set(0, 0, code))
	c.EIP = 0
	c.Regs.Write(RegESP, 4, 128, false)
	for i := 0; i < 4; i++ {
		require.NoError(t, c.Step())
	}
	require.Equal(t, uint32(2), c.Regs.Read(RegEAX, 4, false))
	require.Equal(t, uint32(1), c.Regs.Read(RegEBX, 4, false))
	require.Equal(t, uint32(128), c.Regs.Read(RegESP, 4, false))
}

func TestE2EUnknownOpcode(t *testing.T) {
	c := NewVM(128)
	require.NoError(t, c.Mem.Set(0, 0, []byte{0xD6}))
	c.EIP = 0
	err := c.Step()
	require.Error(t, err)
	var uo *UnknownOpcode
	require.ErrorAs(t, err, &uo)
	require.Equal(t, uint32(0), uo.EIP())
}

func TestE2EBoundsAtLoad(t *testing.T) {
	c := NewVM(16)
	data := make([]byte, 20)
	err := c.ExecuteBytes(data, 0)
	require.Error(t, err)
	var be *BoundsError
	require.ErrorAs(t, err, &be)
}
