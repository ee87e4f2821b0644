// ports.go - General-purpose I/O port peripheral

/*
Grounded directly on simavr's avr_ioport.c and its
avr_ioport.h enum: three registers per port (DDR direction, PORT output
latch/pull-up enable, PIN the read-only pin state mirrored from PORT
unless externally driven), a write to PORT raising a pin-change
interrupt when the XOR of old and new values has any bit set in the
port's mask register, and the port's PIN register being externally
drivable (an external signal raising the port's "pin" Signal overrides
what a PIN read reports, modelling a button or sensor driving the
physical pin independently of the MCU's own output latch). The upstream
IOPORT_IRQ_* enum (exercised by simavr's tests/test_atmega168_ioport.c
and test_atmega88_pullups_test.c) is eight per-bit pin lines plus an
aggregate, a REG_PORT/REG_PIN/DIRECTION_ALL trio for observing raw
register traffic, and eight PIN*_SRC_IMP lines advertising each bit's
source impedance (1 while that bit is configured as an input, whatever
pull the PORT latch is presenting; 0 while the MCU itself drives it) -
all fetched together via AVR_IOCTL_IOPORT_GETIRQ(name), reproduced here
as IOPortSignals and Core.Ioctl.
*/

package avrcore

// IOPortSignals is the signal bundle AVR_IOCTL_IOPORT_GETIRQ hands back:
// one array per per-bit family plus the register-traffic aggregates.
type IOPortSignals struct {
	Pin       [8]*Signal // per-bit effective pin value, raised on change
	PinAll    *Signal    // aggregate pin value (IOPORT_IRQ_PIN_ALL)
	RegPort   *Signal    // raised with the byte written to PORTx
	RegPin    *Signal    // raised with the byte returned by a PINx read
	Direction *Signal    // raised with the byte written to DDRx
	SrcImp    [8]*Signal // per-bit source-impedance advertisement
}

// IOPort is one 8-bit GPIO port (PORTx/DDRx/PINx).
type IOPort struct {
	name string
	c    *Core

	ddrAddr, portAddr, pinAddr uint16
	pcintMaskAddr              uint16 // 0 if this device has no per-pin mask register
	pcintVector                int

	external byte // externally driven levels, meaningful where extMask is set
	extMask  byte // which bits an external circuit is actively driving

	// Pin is raised whenever the externally-visible pin state changes,
	// letting other peripherals (extint.go, usi.go) observe it without
	// polling.
	Pin *Signal

	bits IOPortSignals
}

// NewIOPort constructs and wires a port's registers and optional
// pin-change vector into core. pcintMaskAddr may be 0 for parts whose
// ioport has no per-pin interrupt mask (it always raises on any change).
func NewIOPort(c *Core, name string, ddrAddr, portAddr, pinAddr, pcintMaskAddr uint16, pcintVector int) *IOPort {
	p := &IOPort{
		name: name, c: c,
		ddrAddr: ddrAddr, portAddr: portAddr, pinAddr: pinAddr,
		pcintMaskAddr: pcintMaskAddr, pcintVector: pcintVector,
	}
	p.Pin = NewSignal("port."+name+".pin", 0)
	p.bits.PinAll = p.Pin
	p.bits.RegPort = NewSignal("port."+name+".reg_port", 0)
	p.bits.RegPin = NewSignal("port."+name+".reg_pin", 0)
	p.bits.Direction = NewSignal("port."+name+".direction", 0)
	for i := 0; i < 8; i++ {
		p.bits.Pin[i] = NewSignal(bitSignalName(name, "pin", i), 0)
		p.bits.SrcImp[i] = NewSignal(bitSignalName(name, "src_imp", i), 0)
		c.Signals.Register(p.bits.Pin[i])
		c.Signals.Register(p.bits.SrcImp[i])
	}
	c.Signals.Register(p.Pin)
	c.Signals.Register(p.bits.RegPort)
	c.Signals.Register(p.bits.RegPin)
	c.Signals.Register(p.bits.Direction)
	c.IO.RegisterWrite(portAddr, p.writePort)
	c.IO.RegisterWrite(ddrAddr, p.writeDDR)
	c.IO.RegisterRead(pinAddr, p.readPin)
	c.AddPeripheral(p)
	return p
}

func bitSignalName(port, kind string, bit int) string {
	return "port." + port + "." + kind + string(rune('0'+bit))
}

// Signals exposes the port's signal bundle directly, the same bundle
// the "iogX" ioctl hands back, for wiring done at assembly time.
func (p *IOPort) Signals() *IOPortSignals { return &p.bits }

func (p *IOPort) Name() string { return "ioport." + p.name }
func (p *IOPort) Reset()       { p.external, p.extMask = 0, 0 }

// Ioctl answers AVR_IOCTL_IOPORT_GETIRQ(name): arg is ignored, and the
// result is this port's *IOPortSignals bundle, the Go analogue of
// avr_io_getirq's returned avr_irq_t* array.
func (p *IOPort) Ioctl(code uint32, arg any) (any, bool) {
	if code != IoctlTag('i', 'o', 'g', portTagByte(p.name)) {
		return nil, false
	}
	return &p.bits, true
}

// portTagByte upper-cases the port's single-letter name into the byte
// AVR_IOCTL_IOPORT_GETIRQ expects (e.g. "b" -> 'B').
func portTagByte(name string) byte {
	if len(name) == 0 {
		return 0
	}
	b := name[0]
	if b >= 'a' && b <= 'z' {
		b -= 'a' - 'A'
	}
	return b
}

// writeDDR stores the new direction byte and, for every bit that changed
// direction, re-raises that bit's source-impedance line (1 on transition
// to input - the pin is now high-impedance, floating unless something
// external or the PORT pull-up drives it - 0 on transition to output,
// where the MCU itself now drives the line) before re-syncing the
// externally-visible pin value, since the effective driven value depends
// on DDR even when neither PORT nor the external drivers changed.
func (p *IOPort) writeDDR(addr uint16, v byte) {
	old := p.c.Mem[addr]
	p.c.Mem[addr] = v
	p.bits.Direction.Raise(uint32(v))
	if old == v {
		return
	}
	changed := old ^ v
	for i := 0; i < 8; i++ {
		if changed&(1<<uint(i)) == 0 {
			continue
		}
		if v&(1<<uint(i)) == 0 {
			p.bits.SrcImp[i].Raise(1) // now an input: high impedance
		} else {
			p.bits.SrcImp[i].Raise(0) // now an output: MCU-driven
		}
	}
	p.syncPin()
}

func (p *IOPort) writePort(addr uint16, v byte) {
	old := p.c.Mem[addr]
	p.c.Mem[addr] = v
	p.bits.RegPort.Raise(uint32(v))
	if old == v {
		return
	}
	p.syncPin()
}

// driven computes and stores the byte a PINx read should return without
// raising RegPin - used internally by syncPin's recompute, which isn't a
// real bus access. readPin (the registered bus-read handler) wraps this
// and additionally raises RegPin for an actual host read.
func (p *IOPort) driven() byte {
	ddr := p.c.Mem[p.ddrAddr]
	port := p.c.Mem[p.portAddr]
	// Outputs present PORT; driven inputs present the external level;
	// undriven inputs float to whatever pull the PORT latch selects.
	v := (port & ddr) | (p.external & p.extMask &^ ddr) | (port &^ ddr &^ p.extMask)
	p.c.Mem[p.pinAddr] = v
	return v
}

func (p *IOPort) readPin(addr uint16) byte {
	v := p.driven()
	p.bits.RegPin.Raise(uint32(v))
	return v
}

// syncPin recomputes the effective pin byte and publishes every bit
// that changed, whatever caused the change (a PORT/DDR write or an
// external driver). Pin-change interrupt detection lives here for the
// same reason: the PCINT unit watches the physical pin, not the
// register bus.
func (p *IOPort) syncPin() {
	old := p.Pin.Value()
	v := p.driven()
	changed := byte(old) ^ v
	for i := 0; i < 8; i++ {
		if changed&(1<<uint(i)) != 0 {
			p.bits.Pin[i].Raise(uint32(v>>uint(i)) & 1)
		}
	}
	p.Pin.Raise(uint32(v))
	if changed != 0 && p.pcintVector != 0 {
		mask := byte(0xFF)
		if p.pcintMaskAddr != 0 {
			mask = p.c.Mem[p.pcintMaskAddr]
		}
		if changed&mask != 0 {
			p.c.Intr.Raise(p.pcintVector)
		}
	}
}

// DriveExternal sets the value an external circuit is presenting to all
// eight of the port's input pins (bits configured as outputs ignore
// it), the hook a host-side button/sensor model uses to inject input.
func (p *IOPort) DriveExternal(value byte) {
	p.DriveExternalMasked(value, 0xFF)
}

// DriveExternalMasked drives only the bits in mask, releasing the rest
// to the PORT latch's pull state - the tri-state half of the contract
// the per-bit source-impedance lines advertise.
func (p *IOPort) DriveExternalMasked(value, mask byte) {
	p.external = (p.external &^ mask) | (value & mask)
	p.extMask |= mask
	p.syncPin()
}

// ReleaseExternal stops driving the bits in mask; they float back to
// the internal pull.
func (p *IOPort) ReleaseExternal(mask byte) {
	p.extMask &^= mask
	p.syncPin()
}
