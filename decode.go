// decode.go - Instruction decoder and dispatcher

/*
AVR opcodes don't divide into a flat byte-wide dispatch table - they're
16-bit words whose instruction class is picked out by irregular bit
fields, the same shape simavr's core decoder works over. This follows
that approach: a cascade of field tests on the fixed bits of each opcode
class, from most to least specific, delegating the actual register math
to the ops_*.go files grouped by instruction family.
*/

package avrcore

// Bit-field accessors shared by every instruction group below.

func rd5(op uint16) byte { return byte((op >> 4) & 0x1F) }
func rr5(op uint16) byte { return byte((op & 0x0F) | ((op >> 5) & 0x10)) }

// rd4hi extracts a 4-bit Rd field biased into the upper register bank
// (r16-r31), used by the immediate-operand instructions.
func rd4hi(op uint16) byte { return byte(((op>>4)&0x0F) + 16) }

// k8 extracts the 8-bit immediate split across bits 11:8 and 3:0, used by
// the CPI/SBCI/SUBI/ORI/ANDI/LDI family.
func k8(op uint16) byte { return byte((op & 0x0F) | ((op >> 4) & 0xF0)) }

func bit3(op uint16) byte { return byte(op & 0x07) }

// signExtend7 sign-extends a 7-bit two's complement field (BRBS/BRBC
// displacement) to a Go int.
func signExtend7(k byte) int {
	v := int(k)
	if v >= 64 {
		v -= 128
	}
	return v
}

// signExtend12 sign-extends a 12-bit field (RJMP/RCALL displacement).
func signExtend12(k uint16) int {
	v := int(k)
	if v >= 2048 {
		v -= 4096
	}
	return v
}

// execute decodes and runs one instruction at c.PC, returning the number
// of clock cycles it consumed and advancing c.PC to the next instruction
// (every case sets c.PC itself: one word on, two for two-word
// instructions, or to the branch, jump or skip target).
func (c *Core) execute(op uint16) (int, error) {
	pcBefore := c.PC

	switch {
	case op == 0x0000: // NOP
		c.PC++
		return 1, nil

	case op&0xFF00 == 0x0100: // MOVW Rd,Rr (register pairs, 4-bit each *2)
		d := byte((op>>4)&0x0F) * 2
		r := byte(op&0x0F) * 2
		c.setRegPair(d, c.regPair(r))
		c.PC++
		return 1, nil

	case op&0xFF00 == 0x0200: // MULS Rd,Rr (16<=d,r<=31)
		d := byte((op>>4)&0x0F) + 16
		r := byte(op&0x0F) + 16
		return c.execMULS(d, r)

	case op&0xFF88 == 0x0300: // MULSU Rd,Rr (16<=d,r<=23)
		d := byte((op>>4)&0x07) + 16
		r := byte(op&0x07) + 16
		return c.execMULSU(d, r)

	case op&0xFF88 == 0x0308: // FMUL Rd,Rr
		d := byte((op>>4)&0x07) + 16
		r := byte(op&0x07) + 16
		return c.execFMUL(d, r, false, false)

	case op&0xFF88 == 0x0380: // FMULS Rd,Rr
		d := byte((op>>4)&0x07) + 16
		r := byte(op&0x07) + 16
		return c.execFMUL(d, r, true, true)

	case op&0xFF88 == 0x0388: // FMULSU Rd,Rr
		d := byte((op>>4)&0x07) + 16
		r := byte(op&0x07) + 16
		return c.execFMUL(d, r, true, false)

	case op&0xFC00 == 0x0400: // CPC Rd,Rr
		return c.execCPC(rd5(op), rr5(op))
	case op&0xFC00 == 0x0800: // SBC Rd,Rr
		return c.execSBC(rd5(op), rr5(op))
	case op&0xFC00 == 0x0C00: // ADD Rd,Rr (LSL is ADD Rd,Rd)
		return c.execADD(rd5(op), rr5(op), false)

	case op&0xFC00 == 0x1000: // CPSE Rd,Rr
		return c.execCPSE(rd5(op), rr5(op))
	case op&0xFC00 == 0x1400: // CP Rd,Rr
		return c.execCP(rd5(op), rr5(op))
	case op&0xFC00 == 0x1800: // SUB Rd,Rr
		return c.execSUB(rd5(op), rr5(op))
	case op&0xFC00 == 0x1C00: // ADC Rd,Rr (ROL is ADC Rd,Rd)
		return c.execADD(rd5(op), rr5(op), true)

	case op&0xFC00 == 0x2000: // AND Rd,Rr
		return c.execAND(rd5(op), rr5(op))
	case op&0xFC00 == 0x2400: // EOR Rd,Rr
		return c.execEOR(rd5(op), rr5(op))
	case op&0xFC00 == 0x2800: // OR Rd,Rr
		return c.execOR(rd5(op), rr5(op))
	case op&0xFC00 == 0x2C00: // MOV Rd,Rr
		c.SetR(rd5(op), c.R(rr5(op)))
		c.PC++
		return 1, nil

	case op&0xF000 == 0x3000: // CPI Rd,K
		return c.execCPI(rd4hi(op), k8(op))
	case op&0xF000 == 0x4000: // SBCI Rd,K
		return c.execSBCI(rd4hi(op), k8(op))
	case op&0xF000 == 0x5000: // SUBI Rd,K
		return c.execSUBI(rd4hi(op), k8(op))
	case op&0xF000 == 0x6000: // ORI/SBR Rd,K
		return c.execORI(rd4hi(op), k8(op))
	case op&0xF000 == 0x7000: // ANDI/CBR Rd,K
		return c.execANDI(rd4hi(op), k8(op))

	case op&0xFF00 == 0x9600: // ADIW
		return c.execADIW(op)
	case op&0xFF00 == 0x9700: // SBIW
		return c.execSBIW(op)

	case op&0xFF00 == 0x9800: // CBI
		return c.execCBI(op)
	case op&0xFF00 == 0x9900: // SBIC
		return c.execSBIC(op)
	case op&0xFF00 == 0x9A00: // SBI
		return c.execSBI(op)
	case op&0xFF00 == 0x9B00: // SBIS
		return c.execSBIS(op)

	case op&0xFC00 == 0x9C00: // MUL Rd,Rr
		return c.execMUL(rd5(op), rr5(op))

	case op&0xF800 == 0xB000: // IN Rd,A
		return c.execIN(op)
	case op&0xF800 == 0xB800: // OUT A,Rd
		return c.execOUT(op)

	case op&0xF000 == 0xC000: // RJMP
		c.PC = uint32(int(pcBefore) + 1 + signExtend12(op&0x0FFF))
		return 2, nil
	case op&0xF000 == 0xD000: // RCALL
		c.PC++
		c.pushPC()
		c.PC = uint32(int(pcBefore) + 1 + signExtend12(op&0x0FFF))
		return 3, nil

	case op&0xF000 == 0xE000: // LDI Rd,K
		c.SetR(rd4hi(op), k8(op))
		c.PC++
		return 1, nil

	case op&0xFC00 == 0xF000: // BRBS s,k
		return c.execBranch(op, true)
	case op&0xFC00 == 0xF400: // BRBC s,k
		return c.execBranch(op, false)

	case op&0xFE08 == 0xF800: // BLD Rd,b
		c.execBLD(rd5(op), bit3(op))
		c.PC++
		return 1, nil
	case op&0xFE08 == 0xFA00: // BST Rd,b
		c.execBST(rd5(op), bit3(op))
		c.PC++
		return 1, nil
	case op&0xFE08 == 0xFC00: // SBRC Rd,b
		return c.execSBRC(rd5(op), bit3(op))
	case op&0xFE08 == 0xFE00: // SBRS Rd,b
		return c.execSBRS(rd5(op), bit3(op))

	case op&0xFF8F == 0x9408, op&0xFF8F == 0x9488: // BSET/BCLR (s in bits 6:4)
		return c.execBSETBCLR(op)

	case op&0xD000 == 0x8000: // LDD/STD Y+q / Z+q (q may be zero, spanning both the 0x8xxx and 0xAxxx ranges since q5 is bit 13)
		return c.execLDSTDisplacement(op)

	case op&0xFE0F == 0x9000: // LDS Rd,k16 (two-word)
		return c.execLDS(op)
	case op&0xFE0F == 0x9200: // STS k16,Rd (two-word)
		return c.execSTS(op)

	case op&0xFE0F == 0x900C, op&0xFE0F == 0x900D, op&0xFE0F == 0x900E: // LD Rd,X / X+ / -X
		return c.execLDX(op)
	case op&0xFE0F == 0x920C, op&0xFE0F == 0x920D, op&0xFE0F == 0x920E: // ST X/X+/-X,Rd
		return c.execSTX(op)
	case op&0xFE0F == 0x9009, op&0xFE0F == 0x900A: // LD Rd,Y+ / -Y
		return c.execLDY(op)
	case op&0xFE0F == 0x9209, op&0xFE0F == 0x920A: // ST Y+/-Y,Rd
		return c.execSTY(op)
	case op&0xFE0F == 0x9001, op&0xFE0F == 0x9002: // LD Rd,Z+ / -Z
		return c.execLDZ(op)
	case op&0xFE0F == 0x9201, op&0xFE0F == 0x9202: // ST Z+/-Z,Rd
		return c.execSTZ(op)

	case op == 0x95C8: // LPM (implied r0,Z)
		return c.execLPM(0x9004) // same path as LPM r0,Z
	case op == 0x95D8: // ELPM (implied r0,Z)
		return c.execELPM(0x9006)
	case op&0xFE0F == 0x9004, op&0xFE0F == 0x9005: // LPM Rd,Z / Z+
		return c.execLPM(op)
	case op&0xFE0F == 0x9006, op&0xFE0F == 0x9007: // ELPM Rd,Z / Z+
		return c.execELPM(op)

	case op&0xFE0F == 0x900F: // POP Rd
		c.SetR(rd5(op), c.popByte())
		c.PC++
		return 2, nil
	case op&0xFE0F == 0x920F: // PUSH Rd
		c.pushByte(c.R(rd5(op)))
		c.PC++
		return 2, nil

	case op&0xFE0F == 0x9400: // COM
		return c.execCOM(rd5(op))
	case op&0xFE0F == 0x9401: // NEG
		return c.execNEG(rd5(op))
	case op&0xFE0F == 0x9402: // SWAP
		return c.execSWAP(rd5(op))
	case op&0xFE0F == 0x9403: // INC
		return c.execINC(rd5(op))
	case op&0xFE0F == 0x9405: // ASR
		return c.execASR(rd5(op))
	case op&0xFE0F == 0x9406: // LSR
		return c.execLSR(rd5(op))
	case op&0xFE0F == 0x9407: // ROR
		return c.execROR(rd5(op))
	case op&0xFE0F == 0x940A: // DEC
		return c.execDEC(rd5(op))

	case op&0xFE0E == 0x940C: // JMP (two-word absolute, devices with >8K flash)
		return c.execJMP(op)
	case op&0xFE0E == 0x940E: // CALL (two-word absolute)
		return c.execCALL(op)

	case op == 0x9409: // IJMP
		c.PC = uint32(c.Z())
		return 2, nil
	case op == 0x9419: // EIJMP
		c.PC = uint32(c.Z()) | uint32(c.R(c.Device.EINDAddr))<<16
		return 2, nil
	case op == 0x9509: // ICALL
		c.PC++
		c.pushPC()
		c.PC = uint32(c.Z())
		return 3, nil
	case op == 0x9519: // EICALL
		c.PC++
		c.pushPC()
		c.PC = uint32(c.Z()) | uint32(c.R(c.Device.EINDAddr))<<16
		return 4, nil

	case op == 0x9508: // RET
		c.PC = c.popPC()
		return 4, nil
	case op == 0x9518: // RETI
		c.PC = c.popPC()
		c.Intr.RETI()
		c.restoreI(true)
		return 4, nil

	case op == 0x9588: // SLEEP
		c.Sleep()
		c.PC++
		return 1, nil
	case op == 0x95A8: // WDR
		c.watchdogReset()
		c.PC++
		return 1, nil
	case op == 0x9598: // BREAK
		c.PC++
		return 1, nil
	case op == 0x95E8: // SPM
		return c.execSPM()
	case op == 0x95F8: // SPM Z+
		return c.execSPMIncrement()

	default:
		return 0, &BadOpcode{PC: pcBefore, Opcode: op}
	}
}
