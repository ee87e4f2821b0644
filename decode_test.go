package avrcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The 0x94xx/0x95xx neighborhood packs BSET/BCLR, the implied-operand
// program-memory loads and the zero-operand control instructions into
// nearly-overlapping encodings; these pin the decode of each exact word.

func TestDecodeSEIDoesNotAliasIntoControlOpcodes(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.Flash[0] = 0x9478 // SEI (BSET 7)
	c.PC = 0
	require.NoError(t, c.Step())
	require.True(t, c.flag(SREG_I))
	require.EqualValues(t, 1, c.PC)
}

func TestDecodeRETIsNotSwallowedByBSET(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.SetSP(uint16(c.Device.RAMEnd))
	c.PC = 5
	c.pushPC() // fake a call frame returning to word 5
	c.Flash[0] = 0x9508
	c.PC = 0
	require.NoError(t, c.Step())
	require.EqualValues(t, 5, c.PC, "RET must pop the return address, not decode as a flag op")
}

func TestDecodeSLEEPEntersSleepState(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.Flash[0] = 0x9588
	c.PC = 0
	require.NoError(t, c.Step())
	require.True(t, c.Sleeping(), "0x9588 is SLEEP")
}

func TestDecodeWDRKicksWatchdog(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.WriteData(0x60, 0x08) // WDE, shortest timeout
	c.Sched.Advance(2000)

	c.Flash[0] = 0x95A8 // WDR
	c.PC = 0
	require.NoError(t, c.Step())
	c.Sched.Advance(2000)
	require.Zero(t, c.ResetCause()&ResetWatchdog, "the WDR instruction must restart the watchdog window")
}

func TestDecodeBREAKIsANoOpHere(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.Flash[0] = 0x9598
	c.PC = 0
	require.NoError(t, c.Step())
	require.EqualValues(t, 1, c.PC)
}

func TestDecodeImpliedLPMLoadsR0(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.Flash[0x20] = 0xBBAA
	c.setZ(0x40) // byte address of the low byte of word 0x20
	c.Flash[0] = 0x95C8
	c.PC = 0
	require.NoError(t, c.Step())
	require.Equal(t, byte(0xAA), c.R(0), "implied LPM targets r0")
	require.Equal(t, uint16(0x40), c.Z(), "implied LPM must not post-increment Z")
}

func TestDecodeLPMRdWithPostIncrement(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.Flash[0x20] = 0xBBAA
	c.setZ(0x41) // high byte of word 0x20
	c.Flash[0] = 0x9005 | (7 << 4) // LPM r7, Z+
	c.PC = 0
	require.NoError(t, c.Step())
	require.Equal(t, byte(0xBB), c.R(7))
	require.Equal(t, uint16(0x42), c.Z())
}

func TestDecodeBCLRClearsSelectedFlag(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.setFlag(SREG_C, true)
	c.Flash[0] = 0x9488 // CLC (BCLR 0)
	c.PC = 0
	require.NoError(t, c.Step())
	require.False(t, c.flag(SREG_C))
}

func TestDecodeMULWritesR1R0(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core
	c.SetR(20, 250)
	c.SetR(21, 4)
	c.Flash[0] = 0x9C00 | 0x0200 | (20 << 4) | 0x05 // MUL r20,r21 (r4 in bit 9)
	c.PC = 0
	require.NoError(t, c.Step())
	require.Equal(t, uint16(1000), c.regPair(0))
}
