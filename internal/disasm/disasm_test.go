package disasm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisassembleMovAndRet(t *testing.T) {
	code := []byte{0xB8, 0x05, 0x00, 0x00, 0x00, 0xC3}
	insts := Disassemble(code, 0)
	require.Len(t, insts, 2)
	require.Equal(t, "mov eax, 0x5", insts[0].Text)
	require.Equal(t, uint32(5), insts[0].Length)
	require.Equal(t, "ret", insts[1].Text)
}

func TestDisassembleUnknownFallsBackToDb(t *testing.T) {
	insts := Disassemble([]byte{0xD6}, 0)
	require.Len(t, insts, 1)
	require.Equal(t, "db 0xd6", insts[0].Text)
}
