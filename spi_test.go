package avrcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSPIMasterTransferCompletesAfterPrescaledPeriod(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.Intr.RegisterVector(210, "spi")
	spi := NewSPI(c, "x", 0x150, 0x151, 0x152, 210)

	var out byte
	spi.Transfer = func(b byte) byte {
		out = b
		return 0x42
	}

	c.WriteData(0x150, 0x80|0x40|0x10) // SPIE + SPE + MSTR, prescaler index 0 -> div 4
	c.WriteData(0x152, 0x99)           // SPDR write starts the transfer

	period := uint64(4 * 8)
	c.Sched.Advance(period - 1)
	require.Zero(t, c.ReadData(0x151)&0x80, "SPIF must not set before the shift period elapses")
	c.Sched.Advance(1)
	require.NotZero(t, c.ReadData(0x151)&0x80, "SPIF sets on completion")
	require.Equal(t, byte(0x99), out, "the byte shifted out on MOSI is whatever was written to SPDR")
	require.Equal(t, byte(0x42), c.ReadData(0x152), "SPDR now holds the byte sampled on MISO")
	require.True(t, c.Intr.IsRaised(210), "SPIE set means completion also raises SPI_STC")
}

func TestSPIDoubleSpeedHalvesTheTransferPeriod(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	spi := NewSPI(c, "x", 0x150, 0x151, 0x152, 210)
	spi.Transfer = func(byte) byte { return 0 }

	c.WriteData(0x151, 0x01)      // SPI2X
	c.WriteData(0x150, 0x40|0x10) // SPE + MSTR
	c.WriteData(0x152, 0x01)

	c.Sched.Advance(4*8/2 - 1)
	require.Zero(t, c.ReadData(0x151)&0x80)
	c.Sched.Advance(1)
	require.NotZero(t, c.ReadData(0x151)&0x80)
}

func TestSPIDisabledControllerIgnoresWrites(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	NewSPI(c, "x", 0x150, 0x151, 0x152, 210)

	c.WriteData(0x152, 0x99) // SPE not set yet
	c.Sched.Advance(1000)
	require.Zero(t, c.ReadData(0x151)&0x80, "a disabled SPI controller must never complete a transfer")
}

func TestSPISlaveModeAcceptsWriteWithoutStartingTransfer(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	NewSPI(c, "x", 0x150, 0x151, 0x152, 210)

	c.WriteData(0x150, 0x40) // SPE set, MSTR clear (slave mode)
	c.WriteData(0x152, 0x7A)
	require.Equal(t, byte(0x7A), c.ReadData(0x152), "the write still lands in SPDR")
	c.Sched.Advance(1000)
	require.Zero(t, c.ReadData(0x151)&0x80, "slave mode is not driven by a local clock")
}

func TestSPISlaveReceiveShiftsAndRaisesSPIF(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.Intr.RegisterVector(210, "spi")
	spi := NewSPI(c, "x", 0x150, 0x151, 0x152, 210)

	c.WriteData(0x150, 0x80|0x40) // SPIE + SPE, MSTR clear
	c.WriteData(0x152, 0x11)      // slave preloads the byte it will shift out

	out := spi.SlaveReceive(0x55)
	require.Equal(t, byte(0x11), out, "master reads back whatever the slave had preloaded into SPDR")
	require.Equal(t, byte(0x55), c.ReadData(0x152), "the newly received byte latches into SPDR")
	require.NotZero(t, c.ReadData(0x151)&0x80, "SPIF sets on a completed slave transaction")
	require.True(t, c.Intr.IsRaised(210))
}

func TestSPISlaveReceiveIgnoredWhenDisabledOrInMasterMode(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	spi := NewSPI(c, "x", 0x150, 0x151, 0x152, 210)

	require.Equal(t, byte(0xFF), spi.SlaveReceive(0x42), "SPE clear: not an addressed slave")

	c.WriteData(0x150, 0x40|0x10) // SPE + MSTR
	require.Equal(t, byte(0xFF), spi.SlaveReceive(0x42), "MSTR set: this controller is the master, not a slave")
}
