// spi.go - Serial Peripheral Interface

/*
Modelled from the SPCR/SPSR/SPDR datasheet description, in the
same shape as uart.go: writing SPDR while master-mode and enabled
starts a scheduler-timed transfer (clocked from the SPR1:0/SPI2X
divisor) that calls out to a Transfer hook standing in for whatever is
wired to MISO/MOSI, then raises SPIF and the SPI vector on completion.
Slave mode has no clock to generate - SCK is driven externally - so it
is addressed the other way round from SlaveReceive, which a wired
master (or a test harness standing in for one) calls per byte; this
mirrors usi.go's ExternalClock entry point for the same "a peer drives
our shift register" shape.
*/

package avrcore

var spiPrescale = []uint32{4, 16, 64, 128}

// SPI implements one SPI controller: scheduler-timed master transfers
// plus the per-byte SlaveReceive path.
type SPI struct {
	name string
	c    *Core

	spcrAddr, spsrAddr, spdrAddr uint16
	vector                       int

	busy bool

	// Transfer is invoked with the byte being shifted out on MOSI and
	// must return the byte sampled on MISO during the same transfer;
	// device assembly wires this to whatever peripheral or test harness
	// stands in for the attached slave. A nil Transfer reads back 0xFF.
	Transfer func(out byte) byte
}

func NewSPI(c *Core, name string, spcrAddr, spsrAddr, spdrAddr uint16, vector int) *SPI {
	s := &SPI{name: name, c: c, spcrAddr: spcrAddr, spsrAddr: spsrAddr, spdrAddr: spdrAddr, vector: vector}
	c.IO.RegisterWrite(spdrAddr, s.writeSPDR)
	c.AddPeripheral(s)
	return s
}

func (s *SPI) Name() string { return "spi." + s.name }
func (s *SPI) Reset()       { s.busy = false }

// Ioctl answers the "spiN" tag with the controller itself so a wired
// slave model can reach Transfer/SlaveReceive.
func (s *SPI) Ioctl(code uint32, arg any) (any, bool) {
	if len(s.name) != 1 || code != IoctlTag('s', 'p', 'i', s.name[0]) {
		return nil, false
	}
	return s, true
}

func (s *SPI) writeSPDR(addr uint16, v byte) {
	spcr := s.c.Mem[s.spcrAddr]
	if spcr&0x40 == 0 { // SPE: SPI not enabled
		return
	}
	s.c.Mem[addr] = v
	if spcr&0x10 == 0 { // MSTR clear: slave mode shifts on the external SCK, not here
		return
	}
	if s.busy {
		return
	}
	s.busy = true

	idx := spcr & 0x03
	div := spiPrescale[idx]
	if s.c.Mem[s.spsrAddr]&0x01 != 0 { // SPI2X
		div /= 2
	}
	s.c.Sched.Register(uint64(div)*8, s.complete)
}

// SlaveReceive delivers one byte of a SPI transaction driven by an
// external master while this controller is configured as a slave (MSTR
// clear). It returns the byte this slave was shifting out on MISO during
// the same transaction - the previous SPDR contents - then latches the
// newly received byte into SPDR, matching real hardware's double-buffered
// shift register, and raises SPIF/the SPI vector exactly as the master
// path's complete() does.
func (s *SPI) SlaveReceive(in byte) byte {
	spcr := s.c.Mem[s.spcrAddr]
	if spcr&0x40 == 0 || spcr&0x10 != 0 { // SPE clear, or MSTR set: not an addressed slave
		return 0xFF
	}
	out := s.c.Mem[s.spdrAddr]
	s.c.Mem[s.spdrAddr] = in
	s.c.Mem[s.spsrAddr] |= 0x80 // SPIF
	if spcr&0x80 != 0 { // SPIE
		s.c.Intr.Raise(s.vector)
	}
	return out
}

func (s *SPI) complete(cycle uint64) uint64 {
	s.busy = false
	out := s.c.Mem[s.spdrAddr]
	in := byte(0xFF)
	if s.Transfer != nil {
		in = s.Transfer(out)
	}
	s.c.Mem[s.spdrAddr] = in
	s.c.Mem[s.spsrAddr] |= 0x80 // SPIF
	if s.c.Mem[s.spcrAddr]&0x80 != 0 { // SPIE
		s.c.Intr.Raise(s.vector)
	}
	return 0
}
