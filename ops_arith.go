// ops_arith.go - Arithmetic instruction family (ADD/SUB/INC/DEC/MUL/...)

package avrcore

// execADD implements ADD Rd,Rr and, when withCarry is true, ADC Rd,Rr
// (ADD Rd,Rd doubles as LSL, ADC Rd,Rd as ROL - the assembler aliases
// both onto this encoding).
func (c *Core) execADD(d, r byte, withCarry bool) (int, error) {
	rd, rr := c.R(d), c.R(r)
	carry := byte(0)
	if withCarry && c.flag(SREG_C) {
		carry = 1
	}
	res := rd + rr + carry
	h := (rd&0x08 != 0 && rr&0x08 != 0) || (rr&0x08 != 0 && res&0x08 == 0) || (res&0x08 == 0 && rd&0x08 != 0)
	v := (rd&0x80 != 0 && rr&0x80 != 0 && res&0x80 == 0) || (rd&0x80 == 0 && rr&0x80 == 0 && res&0x80 != 0)
	carryOut := (rd&0x80 != 0 && rr&0x80 != 0) || (rr&0x80 != 0 && res&0x80 == 0) || (res&0x80 == 0 && rd&0x80 != 0)
	c.SetR(d, res)
	c.setH(h)
	c.setV(v)
	c.setC(carryOut)
	c.updateSZN(res)
	c.PC++
	return 1, nil
}

// execSUBGeneric runs SUB/SBC/CP/CPC and sets their flags. withCarry
// subtracts C as well and gives Z the "stays set only if the previous
// byte's subtraction was also zero" chaining behaviour multi-byte
// subtraction relies on; storeResult is false for the compare forms,
// which leave Rd unchanged.
func (c *Core) execSUBGeneric(d, r byte, withCarry, storeResult bool) (int, error) {
	rd, rr := c.R(d), c.R(r)
	carry := byte(0)
	if withCarry && c.flag(SREG_C) {
		carry = 1
	}
	res := rd - rr - carry
	h := (rd&0x08 == 0 && rr&0x08 != 0) || (rr&0x08 != 0 && res&0x08 != 0) || (res&0x08 != 0 && rd&0x08 == 0)
	v := (rd&0x80 != 0 && rr&0x80 == 0 && res&0x80 == 0) || (rd&0x80 == 0 && rr&0x80 != 0 && res&0x80 != 0)
	carryOut := (rd&0x80 == 0 && rr&0x80 != 0) || (rr&0x80 != 0 && res&0x80 != 0) || (res&0x80 != 0 && rd&0x80 == 0)
	if storeResult {
		c.SetR(d, res)
	}
	c.setH(h)
	c.setV(v)
	c.setC(carryOut)
	if withCarry {
		z := res == 0 && c.flag(SREG_Z)
		c.setFlag(SREG_Z, z)
		n := res&0x80 != 0
		c.setFlag(SREG_N, n)
		c.refreshS()
	} else {
		c.updateSZN(res)
	}
	c.PC++
	return 1, nil
}

func (c *Core) execSUB(d, r byte) (int, error) { return c.execSUBGeneric(d, r, false, true) }
func (c *Core) execSBC(d, r byte) (int, error) { return c.execSUBGeneric(d, r, true, true) }
func (c *Core) execCP(d, r byte) (int, error)  { return c.execSUBGeneric(d, r, false, false) }
func (c *Core) execCPC(d, r byte) (int, error) { return c.execSUBGeneric(d, r, true, false) }

func (c *Core) execSUBI(d, k byte) (int, error) {
	return c.execImmSubGeneric(d, k, false)
}
func (c *Core) execSBCI(d, k byte) (int, error) {
	return c.execImmSubGeneric(d, k, true)
}
func (c *Core) execCPI(d, k byte) (int, error) {
	rd := c.R(d)
	res := rd - k
	h := (rd&0x08 == 0 && k&0x08 != 0) || (k&0x08 != 0 && res&0x08 != 0) || (res&0x08 != 0 && rd&0x08 == 0)
	v := (rd&0x80 != 0 && k&0x80 == 0 && res&0x80 == 0) || (rd&0x80 == 0 && k&0x80 != 0 && res&0x80 != 0)
	carryOut := (rd&0x80 == 0 && k&0x80 != 0) || (k&0x80 != 0 && res&0x80 != 0) || (res&0x80 != 0 && rd&0x80 == 0)
	c.setH(h)
	c.setV(v)
	c.setC(carryOut)
	c.updateSZN(res)
	c.PC++
	return 1, nil
}

func (c *Core) execImmSubGeneric(d, k byte, withCarry bool) (int, error) {
	rd := c.R(d)
	carry := byte(0)
	if withCarry && c.flag(SREG_C) {
		carry = 1
	}
	res := rd - k - carry
	h := (rd&0x08 == 0 && k&0x08 != 0) || (k&0x08 != 0 && res&0x08 != 0) || (res&0x08 != 0 && rd&0x08 == 0)
	v := (rd&0x80 != 0 && k&0x80 == 0 && res&0x80 == 0) || (rd&0x80 == 0 && k&0x80 != 0 && res&0x80 != 0)
	carryOut := (rd&0x80 == 0 && k&0x80 != 0) || (k&0x80 != 0 && res&0x80 != 0) || (res&0x80 != 0 && rd&0x80 == 0)
	c.SetR(d, res)
	c.setH(h)
	c.setV(v)
	c.setC(carryOut)
	if withCarry {
		z := res == 0 && c.flag(SREG_Z)
		c.setFlag(SREG_Z, z)
		c.setFlag(SREG_N, res&0x80 != 0)
		c.refreshS()
	} else {
		c.updateSZN(res)
	}
	c.PC++
	return 1, nil
}

func (c *Core) execINC(d byte) (int, error) {
	rd := c.R(d)
	res := rd + 1
	c.SetR(d, res)
	c.setV(rd == 0x7F)
	c.updateSZN(res)
	c.PC++
	return 1, nil
}

func (c *Core) execDEC(d byte) (int, error) {
	rd := c.R(d)
	res := rd - 1
	c.SetR(d, res)
	c.setV(rd == 0x80)
	c.updateSZN(res)
	c.PC++
	return 1, nil
}

func (c *Core) execCOM(d byte) (int, error) {
	res := 0xFF - c.R(d)
	c.SetR(d, res)
	c.setC(true)
	c.setV(false)
	c.updateSZN(res)
	c.PC++
	return 1, nil
}

func (c *Core) execNEG(d byte) (int, error) {
	rd := c.R(d)
	res := byte(0) - rd
	c.SetR(d, res)
	c.setH(res&0x08 != 0 || rd&0x08 != 0)
	c.setV(res == 0x80)
	c.setC(res != 0)
	c.updateSZN(res)
	c.PC++
	return 1, nil
}

func (c *Core) execSWAP(d byte) (int, error) {
	rd := c.R(d)
	c.SetR(d, rd<<4|rd>>4)
	c.PC++
	return 1, nil
}

func (c *Core) execASR(d byte) (int, error) {
	rd := c.R(d)
	res := (rd >> 1) | (rd & 0x80)
	c.SetR(d, res)
	c.setC(rd&0x01 != 0)
	c.updateSZN(res)
	c.setV((res&0x80 != 0) != c.flag(SREG_C))
	c.refreshS()
	c.PC++
	return 1, nil
}

func (c *Core) execLSR(d byte) (int, error) {
	rd := c.R(d)
	res := rd >> 1
	c.SetR(d, res)
	c.setC(rd&0x01 != 0)
	c.setFlag(SREG_N, false)
	c.setFlag(SREG_Z, res == 0)
	c.setV(c.flag(SREG_C))
	c.refreshS()
	c.PC++
	return 1, nil
}

func (c *Core) execROR(d byte) (int, error) {
	rd := c.R(d)
	oldC := byte(0)
	if c.flag(SREG_C) {
		oldC = 0x80
	}
	res := (rd >> 1) | oldC
	c.SetR(d, res)
	c.setC(rd&0x01 != 0)
	c.updateSZN(res)
	c.setV((res&0x80 != 0) != c.flag(SREG_C))
	c.refreshS()
	c.PC++
	return 1, nil
}

func (c *Core) execADIW(op uint16) (int, error) {
	pairSel := (op >> 4) & 0x03
	d := byte(24 + pairSel*2)
	k := byte((op&0x00C0)>>2) | byte(op&0x0F)
	rd := c.regPair(d)
	res := rd + uint16(k)
	oldHigh7 := byte(rd>>8) & 0x80
	newHigh7 := byte(res>>8) & 0x80
	c.setV(oldHigh7 == 0 && newHigh7 != 0)
	c.setC(newHigh7 == 0 && oldHigh7 != 0)
	c.setFlag(SREG_N, newHigh7 != 0)
	c.setFlag(SREG_Z, res == 0)
	c.refreshS()
	c.setRegPair(d, res)
	c.PC++
	return 2, nil
}

func (c *Core) execSBIW(op uint16) (int, error) {
	pairSel := (op >> 4) & 0x03
	d := byte(24 + pairSel*2)
	k := byte((op&0x00C0)>>2) | byte(op&0x0F)
	rd := c.regPair(d)
	res := rd - uint16(k)
	oldHigh7 := byte(rd>>8) & 0x80
	newHigh7 := byte(res>>8) & 0x80
	c.setV(oldHigh7 != 0 && newHigh7 == 0)
	c.setC(newHigh7 != 0 && oldHigh7 == 0)
	c.setFlag(SREG_N, newHigh7 != 0)
	c.setFlag(SREG_Z, res == 0)
	c.refreshS()
	c.setRegPair(d, res)
	c.PC++
	return 2, nil
}

func (c *Core) execMUL(d, r byte) (int, error) {
	res := uint16(c.R(d)) * uint16(c.R(r))
	c.setRegPair(0, res)
	c.setC(res&0x8000 != 0)
	c.setFlag(SREG_Z, res == 0)
	c.PC++
	return 2, nil
}

func (c *Core) execMULS(d, r byte) (int, error) {
	res := int16(int8(c.R(d))) * int16(int8(c.R(r)))
	c.setRegPair(0, uint16(res))
	c.setC(uint16(res)&0x8000 != 0)
	c.setFlag(SREG_Z, res == 0)
	c.PC++
	return 2, nil
}

func (c *Core) execMULSU(d, r byte) (int, error) {
	res := int16(int8(c.R(d))) * int16(uint16(c.R(r)))
	c.setRegPair(0, uint16(res))
	c.setC(uint16(res)&0x8000 != 0)
	c.setFlag(SREG_Z, res == 0)
	c.PC++
	return 2, nil
}

func (c *Core) execFMUL(d, r byte, signedD, signedR bool) (int, error) {
	var res int32
	rd, rr := c.R(d), c.R(r)
	switch {
	case signedD && signedR:
		res = int32(int8(rd)) * int32(int8(rr))
	case signedD && !signedR:
		res = int32(int8(rd)) * int32(rr)
	default:
		res = int32(rd) * int32(rr)
	}
	carry := res&0x8000 != 0
	res <<= 1
	c.setRegPair(0, uint16(res))
	c.setC(carry)
	c.setFlag(SREG_Z, uint16(res) == 0)
	c.PC++
	return 2, nil
}
