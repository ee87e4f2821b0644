package avrcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUSIShiftOnExternalClockEdge(t *testing.T) {
	asm := NewATtiny85()
	c := asm.Core
	u := NewUSI(c, "x", 0x160, 0x161, 0x162, 0x163, 210, 211, 0, 0, 0)
	c.Intr.RegisterVector(210, "usi.ovf")

	c.WriteData(0x162, 0x81) // USIDR = 1000_0001
	c.WriteData(0x160, 0x08) // USICS1:0 = 10 (external clock source)

	u.SetDI(1)
	u.ExternalClock(true)
	require.Equal(t, byte(0x03), c.ReadData(0x162), "shifting left latches the sampled DI level into bit 0")
	require.Equal(t, byte(1), c.ReadData(0x161)&0x0F, "the 4-bit counter increments on each clock edge")

	u.SetDI(0)
	u.ExternalClock(true)
	require.Equal(t, byte(0x06), c.ReadData(0x162), "a low DI shifts a 0 in")
}

func TestUSIDOFollowsShiftRegisterBit7(t *testing.T) {
	asm := NewATtiny85()
	c := asm.Core
	u := NewUSI(c, "x", 0x160, 0x161, 0x162, 0x163, 210, 211, 0, 0, 0)

	var do []uint32
	u.DO.Connect(func(_ *Signal, v uint32, _ interface{}) { do = append(do, v) }, nil)

	c.WriteData(0x162, 0x40) // bit 7 clear, bit 6 set
	c.WriteData(0x160, 0x08)
	u.ExternalClock(true) // 0x40 -> 0x80: bit 7 now set
	require.Equal(t, []uint32{0, 1}, do, "DO mirrors USIDR bit 7 on the write and on each shift")
}

func TestUSICounterOverflowRaisesVectorAndLatchesUSIBR(t *testing.T) {
	asm := NewATtiny85()
	c := asm.Core
	u := NewUSI(c, "x", 0x160, 0x161, 0x162, 0x163, 210, 211, 0, 0, 0)
	c.Intr.RegisterVector(210, "usi.ovf")

	c.WriteData(0x160, 0x48) // USIOIE + external clock source
	c.WriteData(0x162, 0xA5)
	u.SetDI(1) // the peer holds DI high, so ones shift in
	for i := 0; i < 15; i++ {
		u.ExternalClock(true)
	}
	require.False(t, c.Intr.IsRaised(210), "the overflow vector must not fire before the 16th edge")
	u.ExternalClock(true)
	require.True(t, c.Intr.IsRaised(210), "the counter wraps from 15 to 0 on the 16th edge and raises USI_OVF")
	require.Equal(t, byte(0xFF), c.ReadData(0x163), "overflow latches USIDR into USIBR")
}

func TestUSISoftwareClockStrobeShiftsOneBit(t *testing.T) {
	asm := NewATtiny85()
	c := asm.Core
	NewUSI(c, "x", 0x160, 0x161, 0x162, 0x163, 210, 211, 0, 0, 0)

	c.WriteData(0x162, 0x01)
	c.WriteData(0x160, 0x02) // USICLK strobe (with software clock source, USICS=00)
	require.Equal(t, byte(0x02), c.ReadData(0x162), "USICLK pulses the shift register once")
}

func TestUSITCTogglesClockLine(t *testing.T) {
	asm := NewATtiny85()
	c := asm.Core
	u := NewUSI(c, "x", 0x160, 0x161, 0x162, 0x163, 210, 211, 0, 0, 0)

	var clk []uint32
	u.Clock.Connect(func(_ *Signal, v uint32, _ interface{}) { clk = append(clk, v) }, nil)

	c.WriteData(0x160, 0x01) // USITC
	c.WriteData(0x160, 0x01) // USITC again
	require.Equal(t, []uint32{1, 0}, clk, "each USITC strobe toggles the clock pin")
	require.Zero(t, c.ReadData(0x160)&0x01, "USITC reads back as 0, it is a strobe not a latch")
}

func TestUSIDoesNotShiftOnInternalClockSelectDuringExternalClock(t *testing.T) {
	asm := NewATtiny85()
	c := asm.Core
	u := NewUSI(c, "x", 0x160, 0x161, 0x162, 0x163, 210, 211, 0, 0, 0)

	c.WriteData(0x162, 0x01)
	c.WriteData(0x160, 0x00) // USICS = software, not external
	u.ExternalClock(true)
	require.Equal(t, byte(0x01), c.ReadData(0x162), "ExternalClock must be a no-op when USICS selects a software source")
}

// TestUSITimerClockSourceShiftsOnCompareMatch drives the assembled
// ATtiny85's own USI, whose clock input devices.go wires to timer 0's
// compare-match A, through one CTC period.
func TestUSITimerClockSourceShiftsOnCompareMatch(t *testing.T) {
	asm := NewATtiny85()
	c := asm.Core
	require.NotNil(t, asm.USI())

	c.WriteData(0x2F, 0x01) // USIDR
	c.WriteData(0x2D, 0x04) // USICS1:0 = 01: Timer0 compare match clocks the shift

	// One CTC period of timer 0: OCR0A=4, CTC, CS=1.
	c.WriteData(0x49, 4)
	c.WriteData(0x4A, 0x02)
	c.WriteData(0x53, 0x01)
	c.Sched.Advance(5)
	require.Equal(t, byte(0x02), c.ReadData(0x2F), "a Timer0 compare match clocks the USI when USICS selects it")
}

func findPeripheral(c *Core, name string) Peripheral {
	for _, p := range c.peripherals {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// TestUSITwoWireStartStopConditions exercises the actually-assembled
// ATtiny85's USI (DI=PB0/SDA, USCK=PB2/SCL per devices.go) the way a real
// two-wire master would: raise SCL, then drop SDA for a start condition,
// then raise SDA again for a stop condition.
func TestUSITwoWireStartStopConditions(t *testing.T) {
	asm := NewATtiny85()
	c := asm.Core
	portB := findPeripheral(c, "ioport.b").(*IOPort)
	require.NotNil(t, portB)

	c.WriteData(0x2D, 0xA0) // USICR: USISIE=1, USIWM1:0=10 (two-wire)

	portB.DriveExternal(0x05) // SCL (bit2) and SDA (bit0) both idle high
	require.False(t, c.Intr.IsRaised(13), "no condition yet")

	portB.DriveExternal(0x04) // SDA low while SCL stays high: START
	require.True(t, c.Intr.IsRaised(13), "falling SDA with SCL high must raise USI_START")
	require.Equal(t, byte(0x80), c.ReadData(0x2E)&0x80, "USISIF must be set")

	portB.DriveExternal(0x05) // SDA high again while SCL stays high: STOP
	require.Equal(t, byte(0x20), c.ReadData(0x2E)&0x20, "USIPF must be set")
}
