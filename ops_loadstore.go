// ops_loadstore.go - Load/store, program-memory and single-bit-I/O transfer family

package avrcore

// execLDSTDisplacement handles the LDD/STD Y+q and LDD/STD Z+q forms,
// the one instruction class that shares a single bit layout between both
// directions (bit 9 selects LD vs ST) and both base registers (bit 3
// selects Y vs Z).
func (c *Core) execLDSTDisplacement(op uint16) (int, error) {
	isStore := op&0x0200 != 0
	useY := op&0x0008 != 0
	d := rd5(op)
	q := uint16(op&0x0007) | uint16((op>>7)&0x0018) | uint16((op>>8)&0x0020)
	var base uint16
	if useY {
		base = c.Y()
	} else {
		base = c.Z()
	}
	addr := base + q
	if isStore {
		c.WriteData(addr, c.R(d))
	} else {
		c.SetR(d, c.ReadData(addr))
	}
	c.PC++
	return 2, nil
}

func (c *Core) execLDS(op uint16) (int, error) {
	addr := c.Flash[c.PC+1]
	c.SetR(rd5(op), c.ReadData(addr))
	c.PC += 2
	return 2, nil
}

func (c *Core) execSTS(op uint16) (int, error) {
	addr := c.Flash[c.PC+1]
	c.WriteData(addr, c.R(rd5(op)))
	c.PC += 2
	return 2, nil
}

// pointerMode is shared by the X/Y/Z post-increment/pre-decrement
// addressing modes: mode selects none/increment/decrement.
type pointerMode int

const (
	ptrPlain pointerMode = iota
	ptrPostInc
	ptrPreDec
)

func (c *Core) execLDX(op uint16) (int, error) { return c.loadIndirect(op, c.X, c.setX, modeFromLow(op)) }
func (c *Core) execSTX(op uint16) (int, error) {
	return c.storeIndirect(op, c.X, c.setX, modeFromLow(op))
}
func (c *Core) execLDY(op uint16) (int, error) { return c.loadIndirect(op, c.Y, c.setY, modeFromLow(op)) }
func (c *Core) execSTY(op uint16) (int, error) {
	return c.storeIndirect(op, c.Y, c.setY, modeFromLow(op))
}
func (c *Core) execLDZ(op uint16) (int, error) { return c.loadIndirect(op, c.Z, c.setZ, modeFromLow(op)) }
func (c *Core) execSTZ(op uint16) (int, error) {
	return c.storeIndirect(op, c.Z, c.setZ, modeFromLow(op))
}

// modeFromLow decodes the addressing-mode bits shared by the X/Y/Z
// indirect load/store opcodes: the low two bits of the mode nibble are
// 00 for the plain (no increment/decrement) form, 01 for post-increment,
// 10 for pre-decrement.
func modeFromLow(op uint16) pointerMode {
	switch op & 0x03 {
	case 1:
		return ptrPostInc
	case 2:
		return ptrPreDec
	default:
		return ptrPlain
	}
}

func (c *Core) loadIndirect(op uint16, get func() uint16, set func(uint16), mode pointerMode) (int, error) {
	ptr := get()
	if mode == ptrPreDec {
		ptr--
		set(ptr)
	}
	c.SetR(rd5(op), c.ReadData(ptr))
	if mode == ptrPostInc {
		set(ptr + 1)
	}
	c.PC++
	return 2, nil
}

func (c *Core) storeIndirect(op uint16, get func() uint16, set func(uint16), mode pointerMode) (int, error) {
	ptr := get()
	if mode == ptrPreDec {
		ptr--
		set(ptr)
	}
	c.WriteData(ptr, c.R(rd5(op)))
	if mode == ptrPostInc {
		set(ptr + 1)
	}
	c.PC++
	return 2, nil
}

func (c *Core) execLPM(op uint16) (int, error) {
	z := c.Z()
	word := c.Flash[z/2]
	var b byte
	if z%2 == 0 {
		b = byte(word)
	} else {
		b = byte(word >> 8)
	}
	if op&0x0F == 0x04 { // plain LPM Rd,Z
		c.SetR(rd5(op), b)
		c.PC++
		return 3, nil
	}
	// LPM Rd,Z+
	c.SetR(rd5(op), b)
	c.setZ(z + 1)
	c.PC++
	return 3, nil
}

// execELPM reads via RAMPZ:Z extended addressing for devices with more
// than 64K of flash; on smaller parts Device.RAMPZAddr is 0 and behaves
// identically to LPM.
func (c *Core) execELPM(op uint16) (int, error) {
	z := uint32(c.Z())
	if c.Device.RAMPZAddr != 0 {
		z |= uint32(c.Mem[c.Device.RAMPZAddr]) << 16
	}
	word := c.Flash[z/2]
	var b byte
	if z%2 == 0 {
		b = byte(word)
	} else {
		b = byte(word >> 8)
	}
	c.SetR(rd5(op), b)
	if op&0x0F == 0x07 { // ELPM Rd,Z+
		z++
		c.setZ(uint16(z))
		if c.Device.RAMPZAddr != 0 {
			c.Mem[c.Device.RAMPZAddr] = byte(z >> 16)
		}
	}
	c.PC++
	return 3, nil
}

func (c *Core) execIN(op uint16) (int, error) {
	a := uint16((op&0x0600)>>5) | uint16((op&0x000F))
	c.SetR(rd5(op), c.ReadData(a+ioRegisterBase))
	c.PC++
	return 1, nil
}

func (c *Core) execOUT(op uint16) (int, error) {
	a := uint16((op&0x0600)>>5) | uint16((op & 0x000F))
	c.WriteData(a+ioRegisterBase, c.R(rd5(op)))
	c.PC++
	return 1, nil
}

// execSPM implements the self-programming store: it commits
// R1:R0 into the flash page buffer addressed by Z, subject to whatever
// the SPM control register's current command bits say to do (page
// erase, page write, or buffer fill). The heavy lifting lives in
// flash.go's SelfProgrammer, wired in at device assembly.
func (c *Core) execSPM() (int, error) {
	if c.Device.Flash != nil {
		c.Device.Flash.Execute(c, false)
	}
	c.PC++
	return 1, nil
}

func (c *Core) execSPMIncrement() (int, error) {
	if c.Device.Flash != nil {
		c.Device.Flash.Execute(c, true)
	}
	c.PC++
	return 1, nil
}
