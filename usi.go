// usi.go - Universal Serial Interface

/*
Grounded on simavr's avr_usi.c: USI is a bare shift
register plus a 4-bit counter rather than a protocol engine - USIDR
shifts one bit per clock source (an external USCK edge, a Timer0 compare
match, or firmware manually strobing USICLK/USITC in "software SPI"
mode), USISR's counter increments on the same edge and overflows at 16
(8-bit transfers take two edges per bit), and overflow both raises the
USI_OVF vector and copies USIDR into USIBR for firmware to read without
racing the next shift. avr_usi.c itself leaves two-wire mode's IRQ
wiring unfinished in _avr_usi_connect_irqs/_avr_usi_disconnect_irqs, but
the datasheet-level condition it would detect is simple enough to model
directly from the owning port's per-bit pin signals: a falling SDA
edge while SCL reads high is a START condition (raises USI_START, sets
USISIF), a rising SDA edge while SCL reads high is a STOP condition
(sets USIPF, which real USI parts don't wire to a vector either).
*/

package avrcore

// USIWireMode mirrors USIWM1:0.
type USIWireMode int

const (
	USIDisabled USIWireMode = iota
	USIThreeWire
	USITwoWire
)

const (
	usisrStart = 0x80 // USISIF
	usisrOvf   = 0x40 // USIOIF
	usisrStop  = 0x20 // USIPF
)

// USICR bit masks.
const (
	usicrSIE  = 0x80 // start condition interrupt enable
	usicrOIE  = 0x40 // counter overflow interrupt enable
	usicrWM   = 0x30 // wire mode
	usicrCS   = 0x0C // clock source select
	usicrCLK  = 0x02 // software clock strobe
	usicrTC   = 0x01 // toggle clock pin
)

type USI struct {
	c    *Core
	name string

	usicrAddr, usisrAddr, usidrAddr uint16
	usibrAddr                       uint16 // 0 on parts without a buffer register
	ovfVector, startVector          int

	// DO mirrors USIDR bit 7 onto the data-out pin; Clock mirrors the
	// USITC-toggled clock line so a wired peer (a bit-banged slave, a
	// test harness) sees the same edges firmware generates.
	DO    *Signal
	Clock *Signal

	di uint32 // last sampled data-in level

	sda, scl *Signal
}

// NewUSI wires USICR/USISR/USIDR (and USIBR when the part has one; pass
// usibrAddr == 0 otherwise) and, when sdaPortTag names a registered
// IOPort (via the same AVR_IOCTL_IOPORT_GETIRQ(name) mechanism
// simavr uses), connects the shift register's DI input and
// two-wire mode's start/stop detection to that port's pin bits. Pass
// sdaPortTag == 0 for a USI with no port wiring at all.
func NewUSI(c *Core, name string, usicrAddr, usisrAddr, usidrAddr, usibrAddr uint16,
	ovfVector, startVector int, sdaPortTag byte, sdaBit, sclBit int) *USI {
	u := &USI{c: c, name: name,
		usicrAddr: usicrAddr, usisrAddr: usisrAddr, usidrAddr: usidrAddr, usibrAddr: usibrAddr,
		ovfVector: ovfVector, startVector: startVector,
		DO:    NewSignal("usi."+name+".do", SignalFiltered),
		Clock: NewSignal("usi."+name+".clock", 0),
	}
	c.Signals.Register(u.DO)
	c.Signals.Register(u.Clock)
	c.IO.RegisterWrite(usicrAddr, u.writeUSICR)
	c.IO.RegisterWrite(usisrAddr, u.writeUSISR)
	c.IO.RegisterWrite(usidrAddr, u.writeUSIDR)
	c.AddPeripheral(u)
	if sdaPortTag != 0 {
		if result, ok := c.Ioctl(IoctlTag('i', 'o', 'g', sdaPortTag), nil); ok {
			sigs := result.(*IOPortSignals)
			u.sda = sigs.Pin[sdaBit]
			u.scl = sigs.Pin[sclBit]
			u.sda.Connect(u.onSDAChange, nil)
		}
	}
	return u
}

func (u *USI) Name() string { return "usi." + u.name }

// Ioctl answers the "usiN" tag with the peripheral itself so wired
// peers reach ExternalClock/SetDI.
func (u *USI) Ioctl(code uint32, arg any) (any, bool) {
	if len(u.name) != 1 || code != IoctlTag('u', 's', 'i', u.name[0]) {
		return nil, false
	}
	return u, true
}

func (u *USI) Reset() {
	u.di = 0
	if u.usibrAddr != 0 {
		u.c.Mem[u.usibrAddr] = 0
	}
}

// onSDAChange implements two-wire mode's start/stop detection: only the
// SDA transition matters, and only while SCL reads high (a transition
// while SCL is low is an ordinary data bit, not a condition change) and
// the peripheral is actually configured for two-wire mode. In every
// mode the pin doubles as the shift register's DI input, so the level
// is latched here regardless.
func (u *USI) onSDAChange(_ *Signal, value uint32, _ interface{}) {
	u.di = value & 1
	if u.scl == nil || u.scl.Value() == 0 {
		return
	}
	if USIWireMode((u.c.Mem[u.usicrAddr]&usicrWM)>>4) != USITwoWire {
		return
	}
	sr := u.c.Mem[u.usisrAddr]
	if value == 0 {
		sr |= usisrStart
		u.c.Mem[u.usisrAddr] = sr
		if u.c.Mem[u.usicrAddr]&usicrSIE != 0 {
			u.c.Intr.Raise(u.startVector)
		}
		return
	}
	sr |= usisrStop
	u.c.Mem[u.usisrAddr] = sr
}

func (u *USI) writeUSICR(addr uint16, v byte) {
	old := u.c.Mem[addr]
	u.c.Mem[addr] = v
	cs := (v & usicrCS) >> 2
	// USICLK with the software clock source selected strobes one shift,
	// giving firmware a way to single-step the register bit by bit.
	if v&usicrCLK != 0 && old&usicrCLK == 0 && cs == 0 {
		u.shift()
	}
	// USITC toggles the external clock line (bit-banged master mode). With
	// USICS1:0 = 1x and USICLK set, the counter is clocked off that same
	// toggle, so the shift rides along with the pin edge.
	if v&usicrTC != 0 {
		u.c.Mem[addr] = v &^ usicrTC // strobe bit, reads back as 0
		newClock := u.Clock.Value() ^ 1
		u.Clock.Raise(newClock)
		if cs >= 2 && v&usicrCLK != 0 {
			u.shift()
		}
	}
}

func (u *USI) writeUSISR(addr uint16, v byte) {
	// Writing 1 to USISIF/USIOIF/USIPF clears them (the usual AVR
	// write-1-to-clear flag convention); USIDC (bit4) isn't modelled and
	// is left untouched by software writes; the counter bits (3:0) are
	// directly loadable by software to preload a transfer length.
	cur := u.c.Mem[addr]
	cleared := cur &^ (v & (usisrStart | usisrOvf | usisrStop))
	u.c.Mem[addr] = (cleared & 0xF0) | (v & 0x0F)
}

func (u *USI) writeUSIDR(addr uint16, v byte) {
	u.c.Mem[addr] = v
	u.DO.Raise(uint32(v >> 7))
}

// ExternalClock is called by whatever drives USCK externally (a wired
// SPI/TWI master, or a test harness standing in for one) on every clock
// edge. Data shifts on the leading edge only; the counter counts both.
func (u *USI) ExternalClock(rising bool) {
	cr := u.c.Mem[u.usicrAddr]
	if (cr&usicrCS)>>2 < 2 {
		return // clock source is software or Timer0, not the pin
	}
	if rising {
		u.shift()
	} else {
		u.count()
	}
}

// TimerClock is connected to Timer0's compare-match signal when USICS
// selects the timer as the clock source.
func (u *USI) TimerClock(_ *Signal, value uint32, _ interface{}) {
	if value == 0 {
		return
	}
	cr := u.c.Mem[u.usicrAddr]
	if (cr&usicrCS)>>2 != 1 {
		return
	}
	u.shift()
}

// shift moves USIDR one bit left, latching the sampled DI level into bit
// 0 and presenting the outgoing bit 7 on DO, then advances the counter.
func (u *USI) shift() {
	dr := u.c.Mem[u.usidrAddr]
	dr = dr<<1 | byte(u.di&1)
	u.c.Mem[u.usidrAddr] = dr
	u.DO.Raise(uint32(dr >> 7))
	u.count()
}

// count increments USISR's 4-bit counter; the 15->0 wrap latches USIDR
// into USIBR and raises the overflow vector.
func (u *USI) count() {
	sr := u.c.Mem[u.usisrAddr]
	count := (sr & 0x0F) + 1
	if count >= 0x10 {
		count = 0
		sr |= usisrOvf
		if u.usibrAddr != 0 {
			u.c.Mem[u.usibrAddr] = u.c.Mem[u.usidrAddr]
		}
		if u.c.Mem[u.usicrAddr]&usicrOIE != 0 {
			u.c.Intr.Raise(u.ovfVector)
		}
	}
	sr = (sr &^ 0x0F) | count
	u.c.Mem[u.usisrAddr] = sr
}

// SetDI lets a wired peer present a data-in level directly when the USI
// isn't bound to an IOPort pin (three-wire test benches drive DI and
// USCK as plain values rather than through a port model).
func (u *USI) SetDI(level uint32) { u.di = level & 1 }
