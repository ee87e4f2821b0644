package avrcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewATtiny85MemoryLayout(t *testing.T) {
	asm := NewATtiny85()
	c := asm.Core
	require.Equal(t, "attiny85", c.Device.Name)
	require.Len(t, c.Mem, 0x25F+1)
	require.Len(t, c.Flash, 4096)
	require.Len(t, c.EEPROM, 512)
	require.Equal(t, 2, c.Device.PCBytes)
	require.NotNil(t, c.Device.Watchdog, "the watchdog field must be wired by device assembly")
}

func TestNewATmega2560UsesThreeBytePCAndExtendedAddressing(t *testing.T) {
	asm := NewATmega2560()
	c := asm.Core
	require.Equal(t, 3, c.Device.PCBytes)
	require.NotZero(t, c.Device.EINDAddr)
	require.NotZero(t, c.Device.RAMPZAddr)
	require.Len(t, c.Flash, 128*1024)
}

func TestDeviceVectorTableRegisteredAfterReset(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	require.True(t, c.Intr.byNum[6] != nil, "WDT vector must be registered from the device descriptor")
	require.True(t, c.Intr.byNum[1] != nil, "INT0 vector must be registered from the device descriptor")
}

func TestDeviceResetClearsStackPointerToRAMEnd(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	require.Equal(t, uint16(c.Device.RAMEnd), c.SP())
}

func TestIoctlTagsResolvePeripheralInstances(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core

	sigs, ok := c.Ioctl(IoctlTag('i', 'o', 'g', 'B'), nil)
	require.True(t, ok)
	require.IsType(t, &IOPortSignals{}, sigs)

	outs, ok := c.Ioctl(IoctlTag('t', 'm', 'r', '0'), nil)
	require.True(t, ok)
	require.Len(t, outs.([]*Signal), 2)

	u, ok := c.Ioctl(IoctlTag('u', 'a', 'r', '0'), nil)
	require.True(t, ok)
	require.Same(t, asm.UART("0"), u)

	a, ok := c.Ioctl(IoctlTag('a', 'd', 'c', '0'), nil)
	require.True(t, ok)
	require.Same(t, asm.ADC(), a)

	s, ok := c.Ioctl(IoctlTag('s', 'p', 'i', '0'), nil)
	require.True(t, ok)
	require.Same(t, asm.SPI(), s)

	_, ok = c.Ioctl(IoctlTag('t', 'w', 'i', '0'), nil)
	require.False(t, ok, "a tag no peripheral claims reports not-found")
}

// TestTwoCoresWiredThroughSignals runs two independent cores in one
// process and wires one chip's output pin into the other's input, the
// lock-step multi-core arrangement the signal bus exists to support.
func TestTwoCoresWiredThroughSignals(t *testing.T) {
	a1 := NewATmega48()
	a2 := NewATmega48()
	a1.Port("b").Signals().Pin[0].Connect(func(_ *Signal, v uint32, _ interface{}) {
		a2.Port("d").DriveExternalMasked(byte(v), 0x01)
	}, nil)

	c1 := a1.Core
	c1.Mem[0x24] = 0x01      // DDRB: bit 0 output
	c1.WriteData(0x25, 0x01) // PORTB: drive it high
	require.Equal(t, byte(0x01), a2.Core.ReadData(0x29)&0x01, "the second core's PIND follows the first core's pin")
}

func TestEachAssembledDeviceStartsInAConsistentState(t *testing.T) {
	for _, f := range []func() *assembly{
		NewATtiny85, NewATtiny2313A, NewATmega48, NewATmega88, NewATmega168, NewATmega2560,
	} {
		asm := f()
		c := asm.Core
		require.Zero(t, c.PC)
		require.Zero(t, c.Cycles())
		require.False(t, c.Sleeping())
		require.Nil(t, c.Crashed())
		require.NotZero(t, c.ResetCause()&ResetPowerOn)
	}
}
