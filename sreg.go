// sreg.go - Status register flag bits shared by every arithmetic/logic op

package avrcore

// SREG bit positions, identical across every classic AVR part.
const (
	SREG_C = 1 << 0 // Carry
	SREG_Z = 1 << 1 // Zero
	SREG_N = 1 << 2 // Negative
	SREG_V = 1 << 3 // Two's complement overflow
	SREG_S = 1 << 4 // Sign, N^V
	SREG_H = 1 << 5 // Half carry
	SREG_T = 1 << 6 // Transfer bit used by BLD/BST
	SREG_I = 1 << 7 // Global interrupt enable
)

func (c *Core) sreg() byte        { return c.Mem[c.Device.SREGAddr] }
func (c *Core) setSREG(v byte)    { c.Mem[c.Device.SREGAddr] = v }

func (c *Core) flag(bit byte) bool { return c.sreg()&bit != 0 }

func (c *Core) setFlag(bit byte, on bool) {
	v := c.sreg()
	if on {
		v |= bit
	} else {
		v &^= bit
	}
	c.setSREG(v)
}

// updateSZN sets the Sign/Zero/Negative flags from an 8-bit result, the
// trio nearly every ALU instruction touches.
func (c *Core) updateSZN(result byte) {
	v := c.sreg()
	if result == 0 {
		v |= SREG_Z
	} else {
		v &^= SREG_Z
	}
	if result&0x80 != 0 {
		v |= SREG_N
	} else {
		v &^= SREG_N
	}
	if (v&SREG_N != 0) != (v&SREG_V != 0) {
		v |= SREG_S
	} else {
		v &^= SREG_S
	}
	c.setSREG(v)
}

func (c *Core) setV(on bool) { c.setFlag(SREG_V, on); c.refreshS() }
func (c *Core) setC(on bool) { c.setFlag(SREG_C, on) }
func (c *Core) setH(on bool) { c.setFlag(SREG_H, on) }
func (c *Core) setT(on bool) { c.setFlag(SREG_T, on) }
// setI writes SREG's I-bit and keeps the interrupt controller's global
// enable in step, arming the two-cycle SEI acceptance latency on a
// genuine 0->1 transition. SEI/CLI (BSET/BCLR) route through here; a
// direct SREG write goes through the core's writeSREG, which arms the
// same latency itself.
// RETI restores I through restoreI instead: the latency belongs to
// SEI/SREG writes, not to vector return.
func (c *Core) setI(on bool) {
	was := c.flag(SREG_I)
	c.restoreI(on)
	if on && !was {
		c.Intr.ArmLatency()
	}
}

// restoreI sets SREG's I-bit and the controller's global-enable mirror
// without touching the latency countdown.
func (c *Core) restoreI(on bool) {
	c.setFlag(SREG_I, on)
	c.Intr.SetGlobalEnable(on)
}

func (c *Core) refreshS() {
	v := c.sreg()
	if (v&SREG_N != 0) != (v&SREG_V != 0) {
		v |= SREG_S
	} else {
		v &^= SREG_S
	}
	c.setSREG(v)
}
