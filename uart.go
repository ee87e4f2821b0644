// uart.go - USART peripheral

/*
Classic single-buffered AVR USART: UDR is both the transmit and receive
data register, UCSRA carries UDRE/TXC/RXC status, UCSRB carries the
RXEN/TXEN/interrupt-enable bits, and UBRR sets the baud-rate divisor.
Built in the same scheduler-driven shape as timer.go (register a
cycle-timer for "one character period from now" rather than ticking per
instruction); the register layout and flag semantics follow the
ATmega328-style USART0 datasheet description, which every UART that
devices.go assembles is instantiated against (not every assembly has
one; the ATtiny85's has none).
*/

package avrcore

// UART implements one USART with host-visible TX/RX byte streams so
// tests (and an eventual terminal front-end) can push/pull bytes
// without reaching into Core.Mem directly.
type UART struct {
	name string
	c    *Core

	udrAddr, ucsrAAddr, ucsrBAddr, ucsrCAddr, ubrrLAddr, ubrrHAddr uint16
	rxVector, udreVector, txVector                                 int

	rxFIFO []byte
	txBusy bool

	// Loopback, when set, feeds every completed transmission straight
	// back into the receiver, the wiring the command-register opcode
	// CmdUARTLoopback establishes for echo-style test firmware.
	Loopback bool

	// TxOut receives transmitted bytes as they complete; RxIn is fed by
	// the host to simulate incoming serial data.
	TxOut func(b byte)
}

func NewUART(c *Core, name string, udrAddr, ucsrAAddr, ucsrBAddr, ucsrCAddr, ubrrLAddr, ubrrHAddr uint16,
	rxVector, udreVector, txVector int) *UART {
	u := &UART{
		name: name, c: c,
		udrAddr: udrAddr, ucsrAAddr: ucsrAAddr, ucsrBAddr: ucsrBAddr, ucsrCAddr: ucsrCAddr,
		ubrrLAddr: ubrrLAddr, ubrrHAddr: ubrrHAddr,
		rxVector: rxVector, udreVector: udreVector, txVector: txVector,
	}
	c.IO.RegisterWrite(udrAddr, u.writeUDR)
	c.IO.RegisterRead(udrAddr, u.readUDR)
	c.IO.RegisterWrite(ucsrAAddr, u.writeUCSRA)
	c.AddPeripheral(u)
	return u
}

func (u *UART) Name() string { return "uart." + u.name }

// Ioctl answers the "uarN" tag with the UART instance itself, the
// handle a host bridge uses to attach TxOut/RxIn without knowing the
// part's register map.
func (u *UART) Ioctl(code uint32, arg any) (any, bool) {
	if len(u.name) != 1 || code != IoctlTag('u', 'a', 'r', u.name[0]) {
		return nil, false
	}
	return u, true
}

func (u *UART) Reset() {
	u.rxFIFO = nil
	u.txBusy = false
	u.c.Mem[u.ucsrAAddr] = 0x20 // UDRE set: transmitter idle
}

func (u *UART) baudCycles() uint64 {
	ubrr := uint32(u.c.Mem[u.ubrrLAddr]) | uint32(u.c.Mem[u.ubrrHAddr])<<8
	// 16x oversampling, 8 bits/char plus start/stop framing ~ 10 bit times.
	return uint64(ubrr+1) * 16 * 10
}

func (u *UART) writeUCSRA(addr uint16, v byte) {
	// TXC is cleared by writing 1 to it; UDRE/RXC are read-only status.
	cur := u.c.Mem[addr]
	if v&0x40 != 0 {
		cur &^= 0x40
	}
	u.c.Mem[addr] = cur
}

func (u *UART) writeUDR(addr uint16, v byte) {
	if u.c.Mem[u.ucsrBAddr]&0x08 == 0 { // TXEN
		return
	}
	u.c.Mem[u.udrAddr] = v
	u.c.Mem[u.ucsrAAddr] &^= 0x20 // clear UDRE while busy
	if u.txBusy {
		return
	}
	u.txBusy = true
	u.c.Sched.Register(u.baudCycles(), u.completeTx)
}

func (u *UART) completeTx(cycle uint64) uint64 {
	u.txBusy = false
	byteOut := u.c.Mem[u.udrAddr]
	if u.TxOut != nil {
		u.TxOut(byteOut)
	}
	if u.Loopback {
		u.RxIn(byteOut)
	}
	u.c.Mem[u.ucsrAAddr] |= 0x60 // UDRE + TXC
	if u.c.Mem[u.ucsrBAddr]&0x20 != 0 {
		u.c.Intr.Raise(u.udreVector)
	}
	if u.c.Mem[u.ucsrBAddr]&0x40 != 0 {
		u.c.Intr.Raise(u.txVector)
	}
	return 0
}

func (u *UART) readUDR(addr uint16) byte {
	if len(u.rxFIFO) == 0 {
		return 0
	}
	b := u.rxFIFO[0]
	u.rxFIFO = u.rxFIFO[1:]
	if len(u.rxFIFO) == 0 {
		u.c.Mem[u.ucsrAAddr] &^= 0x80 // clear RXC
	}
	return b
}

// RxIn delivers one incoming byte to the receiver, as if it had just
// arrived on the wire at the configured baud rate.
func (u *UART) RxIn(b byte) {
	if u.c.Mem[u.ucsrBAddr]&0x10 == 0 { // RXEN
		return
	}
	u.rxFIFO = append(u.rxFIFO, b)
	u.c.Mem[u.ucsrAAddr] |= 0x80 // RXC
	if u.c.Mem[u.ucsrBAddr]&0x80 != 0 {
		u.c.Intr.Raise(u.rxVector)
	}
}
