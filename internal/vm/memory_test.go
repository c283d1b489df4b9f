package vm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory(64)
	require.NoError(t, m.Set(0, 10, []byte{1, 2, 3, 4}))
	got, err := m.Get(0, 10, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)
}

func TestMemoryBounds(t *testing.T) {
	m := NewMemory(16)
	_, err := m.Get(0, 10, 10)
	require.Error(t, err)
	var be *BoundsError
	require.ErrorAs(t, err, &be)
}

func TestMemoryLittleEndian(t *testing.T) {
	m := NewMemory(16)
	require.NoError(t, m.write(0, 0, 4, 0x11223344))
	b, err := m.Get(0, 0, 4)
	require.NoError(t, err)
	require.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, b)
	v, err := m.read(0, 0, 4)
	require.NoError(t, err)
	require.Equal(t, uint32(0x11223344), v)
}

func TestMemoryFill(t *testing.T) {
	m := NewMemory(8)
	require.NoError(t, m.Fill(0, 2, 0xAB))
	b, _ := m.Get(0, 0, 8)
	require.Equal(t, []byte{0, 0, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB, 0xAB}, b)
}
