package avrcore

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDeviceByNameAndAlias(t *testing.T) {
	for _, name := range []string{"attiny85", "ATtiny85", "mega2560", "atmega168"} {
		asm, err := NewDevice(name)
		require.NoError(t, err, name)
		require.NotNil(t, asm.Core)
	}
}

func TestNewDeviceUnknownChipIsConfigurationError(t *testing.T) {
	_, err := NewDevice("z80")
	require.Error(t, err)
	var cfg *ConfigurationError
	require.ErrorAs(t, err, &cfg)
}

func TestLoadFirmwarePopulatesFlashAndFrequency(t *testing.T) {
	asm, err := NewFromFirmware(&Firmware{
		ChipName:  "atmega48",
		Frequency: 8_000_000,
		Flash:     []byte{0x02, 0xE0, 0x00, 0x00}, // LDI r16,0x02 ; NOP
	})
	require.NoError(t, err)
	c := asm.Core
	require.Equal(t, uint64(8_000_000), c.Frequency)
	require.Equal(t, uint16(0xE002), c.Flash[0])
	require.NoError(t, c.Step())
	require.Equal(t, byte(0x02), c.R(16))
}

func TestLoadFirmwareRespectsLoadBase(t *testing.T) {
	asm, _ := NewDevice("atmega48")
	require.NoError(t, asm.Core.LoadFirmware(&Firmware{Flash: []byte{0xAD, 0xDE}, LoadBase: 0x100}))
	require.Equal(t, uint16(0xDEAD), asm.Core.Flash[0x80])
}

func TestLoadFirmwareOverflowFails(t *testing.T) {
	asm, _ := NewDevice("attiny2313")
	err := asm.Core.LoadFirmware(&Firmware{Flash: make([]byte, 64*1024)})
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
}

func TestConsoleRegisterBuffersUntilCarriageReturn(t *testing.T) {
	asm, _ := NewDevice("atmega48")
	c := asm.Core
	var out bytes.Buffer
	c.ConfigureConsoleRegister(0x1F0)
	c.SetConsoleOutput(&out)

	for _, b := range []byte("hello") {
		c.WriteData(0x1F0, b)
	}
	require.Zero(t, out.Len(), "nothing flushes before the line terminator")
	c.WriteData(0x1F0, '\r')
	require.Equal(t, "hello\n", out.String())
}

func TestCommandRegisterUARTLoopback(t *testing.T) {
	asm, _ := NewDevice("atmega48")
	c := asm.Core
	c.ConfigureCommandRegister(0x1F1)

	c.WriteData(0x1F1, CmdUARTLoopback)
	require.True(t, asm.UART("0").Loopback, "command 0x03 must wire the UART back onto itself")
}

func TestCommandRegisterVCDStartStopSignal(t *testing.T) {
	asm, _ := NewDevice("atmega48")
	c := asm.Core
	c.ConfigureCommandRegister(0x1F1)

	var states []uint32
	c.VCDControl().Connect(func(_ *Signal, v uint32, _ interface{}) { states = append(states, v) }, nil)
	c.WriteData(0x1F1, CmdVCDStart)
	c.WriteData(0x1F1, CmdVCDStop)
	require.Equal(t, []uint32{1, 0}, states)
}

func TestCommandRegisterCycleCounters(t *testing.T) {
	asm, _ := NewDevice("atmega48")
	c := asm.Core
	c.ConfigureCommandRegister(0x1F1)

	c.WriteData(0x1F1, CmdCycleCountStart)
	c.Sched.Advance(123)
	c.cycles += 123
	c.WriteData(0x1F1, CmdCycleCountStop)
	require.Equal(t, []uint64{123}, c.CycleCounts())
}

func TestCommandRegisterHostSlots(t *testing.T) {
	asm, _ := NewDevice("atmega48")
	c := asm.Core
	c.ConfigureCommandRegister(0x1F1)

	called := false
	c.RegisterCommand(0x10, func(*Core) { called = true })
	c.WriteData(0x1F1, 0x10)
	require.True(t, called, "hosts may claim the free command slots")
}

func TestUARTLoopbackEchoesTransmitIntoReceive(t *testing.T) {
	asm, _ := NewDevice("atmega48")
	c := asm.Core
	u := asm.UART("0")
	u.Loopback = true

	c.Mem[0xC1] = 0x18 // UCSRB: RXEN+TXEN
	c.WriteData(0xC6, 'A')
	c.Sched.Advance(u.baudCycles())
	require.NotZero(t, c.Mem[0xC0]&0x80, "RXC must set once the looped byte lands")
	require.Equal(t, byte('A'), c.ReadData(0xC6))
}

func TestLoadFirmwareWarnsOnUnmatchedTraceTarget(t *testing.T) {
	asm, _ := NewDevice("atmega48")
	c := asm.Core
	var log bytes.Buffer
	c.log.Out = &log
	require.NoError(t, c.LoadFirmware(&Firmware{Traces: []string{"port.b.pin0", "no.such.signal"}}))
	require.Contains(t, log.String(), "no.such.signal", "an unmatched trace target logs a warning")
	require.NotContains(t, log.String(), "port.b.pin0", "a matched trace target is silent")
}
