package avrcore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestController(n int) *InterruptController {
	ic := NewInterruptController()
	for i := 1; i <= n; i++ {
		ic.RegisterVector(i, "v")
	}
	return ic
}

func TestInterruptPriorityLowestVectorWins(t *testing.T) {
	ic := newTestController(8)
	ic.SetGlobalEnable(true)
	ic.Raise(5)
	ic.Raise(2)
	ic.Raise(7)
	got := ic.Accept()
	require.Equal(t, 2, got, "the lowest-numbered pending vector must be serviced first")
}

func TestInterruptRaiseIsIdempotentWhilePending(t *testing.T) {
	ic := newTestController(4)
	ic.Raise(1)
	ic.Raise(1)
	ic.Raise(1)
	ic.SetGlobalEnable(true)
	got := ic.Accept()
	require.Equal(t, 1, got)
	require.Equal(t, 0, ic.Accept(), "only one pending entry should have been queued")
}

func TestInterruptRaisedBitSetEvenWhenMasked(t *testing.T) {
	ic := newTestController(2)
	ic.Raise(1) // global disabled
	require.True(t, ic.IsRaised(1), "the raised regbit must be pollable even without global enable")
	require.False(t, ic.Ready())
}

func TestInterruptAcceptPushesRunningStack(t *testing.T) {
	ic := newTestController(3)
	ic.SetGlobalEnable(true)
	ic.Raise(1)
	ic.Accept()
	require.Equal(t, 1, ic.Depth())
	require.False(t, ic.GlobalEnable(), "vector entry clears the global enable bit, mirroring real SREG[I]")
}

func TestInterruptRETIUnwindsAndRestoresNextRunning(t *testing.T) {
	ic := newTestController(3)
	ic.SetGlobalEnable(true)
	ic.Raise(1)
	ic.Accept()
	ic.SetGlobalEnable(true) // nested handler re-enables I
	ic.Raise(2)
	ic.Accept()
	require.Equal(t, 2, ic.Depth())

	var runningVals []uint32
	ic.Running.Connect(func(_ *Signal, v uint32, _ interface{}) { runningVals = append(runningVals, v) }, nil)

	ic.RETI()
	require.Equal(t, 1, ic.Depth())
	require.Equal(t, []uint32{1}, runningVals, "unwinding the inner ISR re-raises RUNNING with the outer vector")

	ic.RETI()
	require.Equal(t, 0, ic.Depth())
	require.Equal(t, []uint32{1, 0}, runningVals, "unwinding the last ISR re-raises RUNNING with 0")
}

func TestInterruptAcceptClearsRaisedBitUnlessSticky(t *testing.T) {
	ic := newTestController(2)
	ic.SetGlobalEnable(true)
	ic.Raise(1)
	require.True(t, ic.IsRaised(1))
	ic.Accept()
	require.False(t, ic.IsRaised(1), "most AVR interrupt flags auto-clear on vector entry")

	ic.MarkSticky(2)
	ic.SetGlobalEnable(true)
	ic.Raise(2)
	ic.Accept()
	require.True(t, ic.IsRaised(2), "a sticky vector keeps its flag up for firmware to clear")
}

func TestInterruptClearRemovesFromPendingFIFO(t *testing.T) {
	ic := newTestController(3)
	ic.Raise(1)
	ic.Raise(2)
	ic.Clear(1)
	require.False(t, ic.IsRaised(1))
	ic.SetGlobalEnable(true)
	require.Equal(t, 2, ic.Accept(), "a cleared vector must not be serviced")
}

// TestCoreSEILatencyAndRETI exercises the full core-level property: SEI
// takes two cycles to actually unmask a pending interrupt, and once
// serviced, RETI restores the PC immediately following the interrupted
// instruction with SREG[I] set again.
func TestCoreSEILatencyAndRETI(t *testing.T) {
	asm := NewATmega48()
	c := asm.Core

	// 0x9478 = SEI, 0x0000 = NOP, 0x9518 = RETI (placed at the INT0 vector).
	c.Flash[0] = 0x9478 // SEI
	c.Flash[1] = 0x0000 // NOP
	c.Flash[2] = 0x0000 // NOP
	c.Flash[3] = 0x0000 // NOP (landing pad, never reached before vectoring)
	c.PC = 0

	c.Intr.Raise(1) // INT0, pending before interrupts are globally enabled

	require.NoError(t, c.Step()) // SEI: PC -> 1
	require.EqualValues(t, 1, c.PC)
	require.True(t, c.flag(SREG_I))

	require.NoError(t, c.Step()) // latency cycle 1 (NOP at PC1): PC -> 2
	require.EqualValues(t, 2, c.PC)

	require.NoError(t, c.Step()) // latency cycle 2 (NOP at PC2): PC -> 3
	require.EqualValues(t, 3, c.PC)

	require.NoError(t, c.Step()) // vector now accepted: PC jumps to INT0's vector
	vectorWords := uint32(c.Device.VectorSize) / 2
	require.Equal(t, vectorWords*1, c.PC, "PC must land on vector 1's table slot")
	require.False(t, c.flag(SREG_I), "vector entry clears I")

	// Place a RETI at the vector and single-step into it.
	c.Flash[c.PC] = 0x9518
	require.NoError(t, c.Step())
	require.EqualValues(t, 3, c.PC, "RETI returns to the instruction immediately after the interrupted one")
	require.True(t, c.flag(SREG_I), "RETI restores the global interrupt enable bit")
}
