package avrcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegbitGetSetRoundTrip(t *testing.T) {
	rb := NewRegbit(0x20, 0x18) // bits 3:4
	require.Equal(t, uint8(3), rb.Shift)

	var reg byte = 0xFF
	reg = rb.Set(reg, 0x02)
	require.Equal(t, byte(2), rb.Get(reg), "Set then Get must round-trip the field")
	require.Equal(t, byte(0xF7), reg, "Set must not disturb bits outside the field")
}

func TestRegbitSetOnlyTouchesOwnBits(t *testing.T) {
	rb := NewRegbit(0x20, 0x03)
	reg := rb.Set(0xFC, 0x03)
	require.Equal(t, byte(0xFF), reg)
}

func TestRegbitBoolRequiresEveryBitSet(t *testing.T) {
	rb := NewRegbit(0x20, 0x06) // two-bit field
	require.False(t, rb.Bool(0x02), "only one of the two bits set is not \"true\"")
	require.True(t, rb.Bool(0x06))
}

func TestRegbitSetBool(t *testing.T) {
	rb := NewRegbit(0x20, 0x06)
	reg := rb.SetBool(0x00, true)
	require.Equal(t, byte(0x06), reg)
	reg = rb.SetBool(0xFF, false)
	require.Equal(t, byte(0xF9), reg)
}

func TestRegbitSingleBitFieldShiftZero(t *testing.T) {
	rb := NewRegbit(0x20, 0x01)
	require.Equal(t, uint8(0), rb.Shift)
	require.Equal(t, byte(0x01), rb.Mask)
}
