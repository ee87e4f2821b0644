// devices.go - Device assembly

/*
Grounded on simavr's sim_avr.c avr_make_mcu_by_name
plus the per-part ioport/timer/vector wiring scattered across simavr's
board support files: a DeviceDescriptor is the fixed, per-part data
(memory sizes, core addressing quirks, interrupt vector table) and each
New* constructor is the per-part assembly that allocates a Core and
wires up exactly the peripherals that part actually has, at that part's
real data-space register addresses. Addresses and vector numbers follow
the Atmel/Microchip datasheets for each named part; note AVR documents
most registers by I/O-space number, which sits 0x20 below the data-space
address everything in this file uses.
*/

package avrcore

import "strings"

// VectorDescriptor names one entry in a device's interrupt vector
// table, in priority order (vector 0 is the reset vector and is never
// raised through InterruptController - it's just PC=0 after Core.Reset).
type VectorDescriptor struct {
	Number int
	Name   string
}

// DeviceDescriptor is the immutable per-part configuration a Core
// consults for anything that differs between AVR parts: memory
// layout, SP/SREG addresses, 2 vs 3-byte program counters, and the
// vector table RegisterVector populates Reset with.
type DeviceDescriptor struct {
	Name string

	RAMEnd     int
	FlashWords int
	EEPROMSize int

	SREGAddr   uint16
	SPLAddr    uint16
	SPHAddr    uint16 // 0 on parts addressing all RAM with one SP byte
	PCBytes    int    // 2 or 3
	VectorSize int    // bytes per vector table slot (2 for an RJMP table, 4 for a JMP table)
	EINDAddr   byte   // data-space address; 0 on parts without >128K flash
	RAMPZAddr  uint16 // data-space address; 0 on parts with <=64K flash

	Vectors []VectorDescriptor

	Flash    *SelfProgrammer
	Watchdog *Watchdog
}

// assembly bundles the Core plus whichever peripherals a part exposes,
// so callers (tests, a front-end) can reach UART/timers/ports directly
// instead of walking the generic Peripheral list.
type assembly struct {
	Core *Core
}

// Port returns an assembled IOPort by its single-letter name, nil when
// the part has no such port.
func (a *assembly) Port(name string) *IOPort {
	for _, p := range a.Core.peripherals {
		if ip, ok := p.(*IOPort); ok && ip.name == name {
			return ip
		}
	}
	return nil
}

// UART returns an assembled UART by instance name ("0", "3", ...).
func (a *assembly) UART(name string) *UART {
	for _, p := range a.Core.peripherals {
		if u, ok := p.(*UART); ok && u.name == name {
			return u
		}
	}
	return nil
}

// Timer returns an assembled timer by instance name.
func (a *assembly) Timer(name string) *Timer {
	for _, p := range a.Core.peripherals {
		if t, ok := p.(*Timer); ok && t.name == name {
			return t
		}
	}
	return nil
}

// ADC returns the assembled ADC, nil when the part has none.
func (a *assembly) ADC() *ADC {
	for _, p := range a.Core.peripherals {
		if ad, ok := p.(*ADC); ok {
			return ad
		}
	}
	return nil
}

// SPI returns the assembled SPI controller, nil when the part has none.
func (a *assembly) SPI() *SPI {
	for _, p := range a.Core.peripherals {
		if s, ok := p.(*SPI); ok {
			return s
		}
	}
	return nil
}

// USI returns the assembled USI, nil when the part has none.
func (a *assembly) USI() *USI {
	for _, p := range a.Core.peripherals {
		if u, ok := p.(*USI); ok {
			return u
		}
	}
	return nil
}

// Waveform tables shared by every part in this file: the classic 8-bit
// timer layout (WGM01:00 in TCCRA bits 1:0, WGM02 in TCCRB bit 3) and
// the 16-bit layout (WGM11:10 in TCCRA bits 1:0, WGM13:12 in TCCRB bits
// 4:3). Combinations absent from a map fall back to Normal mode.
var waveforms8 = map[byte]Waveform{
	0x01: {TimerPhaseCorrectPWM, TopMax},
	0x02: {TimerCTC, TopOCRA},
	0x03: {TimerFastPWM, TopMax},
	0x09: {TimerPhaseCorrectPWM, TopOCRA},
	0x0B: {TimerFastPWM, TopOCRA},
}

var waveforms16 = map[byte]Waveform{
	0x08: {TimerCTC, TopOCRA},
	0x12: {TimerPhaseCorrectPWM, TopICR},
	0x13: {TimerPhaseCorrectPWM, TopOCRA},
	0x18: {TimerCTC, TopICR},
	0x1A: {TimerFastPWM, TopICR},
	0x1B: {TimerFastPWM, TopOCRA},
}

var prescale5 = []uint32{0, 1, 8, 64, 256, 1024}
var prescale7Async = []uint32{0, 1, 8, 32, 64, 128, 256, 1024}

// NewATtiny85 assembles an ATtiny85: 14 vectors, two 8-bit timers (only
// timer 0's classic layout is modelled), USI instead of SPI/TWI, no UART.
func NewATtiny85() *assembly {
	d := &DeviceDescriptor{
		Name: "attiny85", RAMEnd: 0x25F, FlashWords: 4096, EEPROMSize: 512,
		SREGAddr: 0x5F, SPLAddr: 0x5D, SPHAddr: 0x5E, PCBytes: 2, VectorSize: 2,
		Vectors: []VectorDescriptor{
			{1, "INT0"}, {2, "PCINT0"}, {3, "TIMER1_COMPA"}, {4, "TIMER1_OVF"},
			{5, "TIMER0_OVF"}, {6, "EE_RDY"}, {7, "ANA_COMP"}, {8, "ADC"},
			{9, "TIMER1_COMPB"}, {10, "TIMER0_COMPA"}, {11, "TIMER0_COMPB"},
			{12, "WDT"}, {13, "USI_START"}, {14, "USI_OVF"},
		},
	}
	d.Flash = NewSelfProgrammer(0x57, 32, 0)
	c := newCore(d)

	portB := NewIOPort(c, "b", 0x37, 0x38, 0x36, 0x35, 2)
	t0 := NewTimer(c, TimerConfig{
		Name: "0", Bits: 8, TCCRA: 0x4A, TCCRB: 0x53, TCNTL: 0x52,
		TIMSK: 0x59, TIFR: 0x58, ToieMask: 0x02, TovFlag: 0x02,
		CSMask: 0x07, Prescalers: prescale5, ExtFalling: 6, ExtRising: 7,
		OvfVector: 5,
		Comparators: []TimerComparatorConfig{
			{Label: "A", OCRL: 0x49, EnableMask: 0x10, FlagMask: 0x10, Vector: 10},
			{Label: "B", OCRL: 0x48, EnableMask: 0x08, FlagMask: 0x08, Vector: 11},
		},
		WGMA: 0x03, WGMB: 0x08, Waveforms: waveforms8,
	})
	// T0 external clock input is PB2.
	portB.Signals().Pin[2].Connect(t0.ClockHook, nil)
	NewExternalInterrupt(c, "int0", 1, portB, 2,
		NewRegbit(0x55, 0x03), NewRegbit(0x5B, 0x40), NewRegbit(0x5A, 0x40))
	usi := NewUSI(c, "0", 0x2D, 0x2E, 0x2F, 0x30, 14, 13, 'B', 0, 2) // DI=PB0 (SDA), USCK=PB2 (SCL)
	t0.CompareMatch(0).Connect(usi.TimerClock, nil)
	d.Watchdog = NewWatchdog(c, "0", 0x41, 12)
	NewADC(c, "0", 0x27, 0x26, 0x25, 0x24, 8)

	c.Reset(ResetPowerOn)
	return &assembly{Core: c}
}

// NewATtiny2313A assembles an ATtiny2313A: one 8-bit and one 16-bit
// timer, one UART, USI, INT0/INT1.
func NewATtiny2313A() *assembly {
	d := &DeviceDescriptor{
		Name: "attiny2313a", RAMEnd: 0xDF, FlashWords: 1024, EEPROMSize: 128,
		SREGAddr: 0x5F, SPLAddr: 0x5D, SPHAddr: 0, PCBytes: 2, VectorSize: 2,
		Vectors: []VectorDescriptor{
			{1, "INT0"}, {2, "INT1"}, {3, "TIMER1_CAPT"}, {4, "TIMER1_COMPA"},
			{5, "TIMER1_OVF"}, {6, "TIMER0_OVF"}, {7, "USART_RX"}, {8, "USART_UDRE"},
			{9, "USART_TX"}, {10, "ANA_COMP"}, {11, "PCINT"}, {12, "TIMER1_COMPB"},
			{13, "TIMER0_COMPA"}, {14, "TIMER0_COMPB"}, {15, "USI_START"},
			{16, "USI_OVF"}, {17, "EE_RDY"}, {18, "WDT"},
		},
	}
	c := newCore(d)

	NewIOPort(c, "b", 0x37, 0x38, 0x36, 0x40, 11)
	portD := NewIOPort(c, "d", 0x31, 0x32, 0x30, 0, 0)
	t0 := NewTimer(c, TimerConfig{
		Name: "0", Bits: 8, TCCRA: 0x50, TCCRB: 0x53, TCNTL: 0x52,
		TIMSK: 0x59, TIFR: 0x58, ToieMask: 0x02, TovFlag: 0x02,
		CSMask: 0x07, Prescalers: prescale5, ExtFalling: 6, ExtRising: 7,
		OvfVector: 6,
		Comparators: []TimerComparatorConfig{
			{Label: "A", OCRL: 0x56, EnableMask: 0x01, FlagMask: 0x01, Vector: 13},
			{Label: "B", OCRL: 0x5C, EnableMask: 0x04, FlagMask: 0x04, Vector: 14},
		},
		WGMA: 0x03, WGMB: 0x08, Waveforms: waveforms8,
	})
	t1 := NewTimer(c, TimerConfig{
		Name: "1", Bits: 16, TCCRA: 0x4F, TCCRB: 0x4E, TCNTL: 0x4C, TCNTH: 0x4D,
		TIMSK: 0x59, TIFR: 0x58, ToieMask: 0x80, TovFlag: 0x80,
		CSMask: 0x07, Prescalers: prescale5, ExtFalling: 6, ExtRising: 7,
		OvfVector: 5,
		Comparators: []TimerComparatorConfig{
			{Label: "A", OCRL: 0x4A, OCRH: 0x4B, EnableMask: 0x40, FlagMask: 0x40, Vector: 4},
			{Label: "B", OCRL: 0x48, OCRH: 0x49, EnableMask: 0x20, FlagMask: 0x20, Vector: 12},
		},
		ICRL: 0x44, ICRH: 0x45, IcfMask: 0x08, IcieMask: 0x08, CaptureVector: 3,
		WGMA: 0x03, WGMB: 0x18, Waveforms: waveforms16,
	})
	// T0 = PD4, T1 = PD5, ICP1 = PD6.
	portD.Signals().Pin[4].Connect(t0.ClockHook, nil)
	portD.Signals().Pin[5].Connect(t1.ClockHook, nil)
	portD.Signals().Pin[6].Connect(t1.CaptureHook, nil)
	NewExternalInterrupt(c, "int0", 1, portD, 2,
		NewRegbit(0x55, 0x03), NewRegbit(0x5B, 0x40), NewRegbit(0x5A, 0x40))
	NewExternalInterrupt(c, "int1", 2, portD, 3,
		NewRegbit(0x55, 0x0C), NewRegbit(0x5B, 0x80), NewRegbit(0x5A, 0x80))
	NewUSI(c, "0", 0x2D, 0x2E, 0x2F, 0, 16, 15, 'B', 5, 7) // DI=PB5 (SDA), USCK=PB7 (SCL)
	NewUART(c, "0", 0x2C, 0x2B, 0x2A, 0x23, 0x29, 0x22, 7, 8, 9)
	d.Watchdog = NewWatchdog(c, "0", 0x41, 18)

	c.Reset(ResetPowerOn)
	return &assembly{Core: c}
}

// NewATmega48 assembles an ATmega48: the small member of the
// 48/88/168/328 family - three timers (timer 2 async-capable), one
// UART, SPI, ADC, three PCINT banks.
func NewATmega48() *assembly {
	return newATmega48Family("atmega48", 0x2FF, 2048, 256, 32)
}

// NewATmega88 assembles an ATmega88 (same peripheral set as 48/168,
// larger flash/RAM).
func NewATmega88() *assembly {
	return newATmega48Family("atmega88", 0x4FF, 4096, 512, 32)
}

// NewATmega168 assembles an ATmega168.
func NewATmega168() *assembly {
	return newATmega48Family("atmega168", 0x4FF, 8192, 512, 64)
}

func newATmega48Family(name string, ramEnd, flashWords, eepromSize int, pageWords uint32) *assembly {
	d := &DeviceDescriptor{
		Name: name, RAMEnd: ramEnd, FlashWords: flashWords, EEPROMSize: eepromSize,
		SREGAddr: 0x5F, SPLAddr: 0x5D, SPHAddr: 0x5E, PCBytes: 2, VectorSize: 4,
		Vectors: []VectorDescriptor{
			{1, "INT0"}, {2, "INT1"}, {3, "PCINT0"}, {4, "PCINT1"}, {5, "PCINT2"},
			{6, "WDT"}, {7, "TIMER2_COMPA"}, {8, "TIMER2_COMPB"}, {9, "TIMER2_OVF"},
			{10, "TIMER1_CAPT"}, {11, "TIMER1_COMPA"}, {12, "TIMER1_COMPB"}, {13, "TIMER1_OVF"},
			{14, "TIMER0_COMPA"}, {15, "TIMER0_COMPB"}, {16, "TIMER0_OVF"},
			{17, "SPI_STC"}, {18, "USART_RX"}, {19, "USART_UDRE"}, {20, "USART_TX"},
			{21, "ADC"}, {22, "EE_READY"}, {23, "ANA_COMP"}, {24, "TWI"}, {25, "SPM_READY"},
		},
	}
	d.Flash = NewSelfProgrammer(0x57, pageWords, 25)
	c := newCore(d)

	portB := NewIOPort(c, "b", 0x24, 0x25, 0x23, 0x6B, 3)
	NewIOPort(c, "c", 0x27, 0x28, 0x26, 0x6C, 4)
	portD := NewIOPort(c, "d", 0x2A, 0x2B, 0x29, 0x6D, 5)

	t0 := NewTimer(c, TimerConfig{
		Name: "0", Bits: 8, TCCRA: 0x44, TCCRB: 0x45, TCNTL: 0x46,
		TIMSK: 0x6E, TIFR: 0x35, ToieMask: 0x01, TovFlag: 0x01,
		CSMask: 0x07, Prescalers: prescale5, ExtFalling: 6, ExtRising: 7,
		OvfVector: 16,
		Comparators: []TimerComparatorConfig{
			{Label: "A", OCRL: 0x47, EnableMask: 0x02, FlagMask: 0x02, Vector: 14},
			{Label: "B", OCRL: 0x48, EnableMask: 0x04, FlagMask: 0x04, Vector: 15},
		},
		WGMA: 0x03, WGMB: 0x08, Waveforms: waveforms8,
	})
	t1 := NewTimer(c, TimerConfig{
		Name: "1", Bits: 16, TCCRA: 0x80, TCCRB: 0x81, TCNTL: 0x84, TCNTH: 0x85,
		TIMSK: 0x6F, TIFR: 0x36, ToieMask: 0x01, TovFlag: 0x01,
		CSMask: 0x07, Prescalers: prescale5, ExtFalling: 6, ExtRising: 7,
		OvfVector: 13,
		Comparators: []TimerComparatorConfig{
			{Label: "A", OCRL: 0x88, OCRH: 0x89, EnableMask: 0x02, FlagMask: 0x02, Vector: 11},
			{Label: "B", OCRL: 0x8A, OCRH: 0x8B, EnableMask: 0x04, FlagMask: 0x04, Vector: 12},
		},
		ICRL: 0x86, ICRH: 0x87, IcfMask: 0x20, IcieMask: 0x20, CaptureVector: 10,
		WGMA: 0x03, WGMB: 0x18, Waveforms: waveforms16,
	})
	NewTimer(c, TimerConfig{
		Name: "2", Bits: 8, TCCRA: 0xB0, TCCRB: 0xB1, TCNTL: 0xB2,
		TIMSK: 0x70, TIFR: 0x37, ToieMask: 0x01, TovFlag: 0x01,
		CSMask: 0x07, Prescalers: prescale7Async,
		OvfVector: 9,
		Comparators: []TimerComparatorConfig{
			{Label: "A", OCRL: 0xB3, EnableMask: 0x02, FlagMask: 0x02, Vector: 7},
			{Label: "B", OCRL: 0xB4, EnableMask: 0x04, FlagMask: 0x04, Vector: 8},
		},
		ASSR: 0xB6, AS2Mask: 0x20,
		WGMA: 0x03, WGMB: 0x08, Waveforms: waveforms8,
	})
	// T0 = PD4, T1 = PD5, ICP1 = PB0.
	portD.Signals().Pin[4].Connect(t0.ClockHook, nil)
	portD.Signals().Pin[5].Connect(t1.ClockHook, nil)
	portB.Signals().Pin[0].Connect(t1.CaptureHook, nil)

	NewExternalInterrupt(c, "int0", 1, portD, 2,
		NewRegbit(0x69, 0x03), NewRegbit(0x3D, 0x01), NewRegbit(0x3C, 0x01))
	NewExternalInterrupt(c, "int1", 2, portD, 3,
		NewRegbit(0x69, 0x0C), NewRegbit(0x3D, 0x02), NewRegbit(0x3C, 0x02))
	NewUART(c, "0", 0xC6, 0xC0, 0xC1, 0xC2, 0xC4, 0xC5, 18, 19, 20)
	NewSPI(c, "0", 0x4C, 0x4D, 0x4E, 17)
	NewADC(c, "0", 0x7C, 0x7A, 0x79, 0x78, 21)
	d.Watchdog = NewWatchdog(c, "0", 0x60, 6)

	c.Reset(ResetPowerOn)
	return &assembly{Core: c}
}

// NewATmega2560 assembles an ATmega2560: 3-byte PC/22-bit addressing,
// EIND/RAMPZ for the 256K flash, the largest vector table in this
// coverage set, and two of its four USARTs (0 and 3). The remaining
// USARTs, timers 3-5 and ports A, C and F-L are left unwired; only
// ports B, D and E are assembled.
func NewATmega2560() *assembly {
	d := &DeviceDescriptor{
		Name: "atmega2560", RAMEnd: 0x21FF, FlashWords: 128 * 1024, EEPROMSize: 4096,
		SREGAddr: 0x5F, SPLAddr: 0x5D, SPHAddr: 0x5E, PCBytes: 3, VectorSize: 4,
		EINDAddr: 0x5C, RAMPZAddr: 0x5B,
		Vectors: []VectorDescriptor{
			{1, "INT0"}, {2, "INT1"}, {3, "INT2"}, {4, "INT3"}, {5, "INT4"},
			{6, "INT5"}, {7, "INT6"}, {8, "INT7"}, {9, "PCINT0"}, {10, "PCINT1"},
			{11, "PCINT2"}, {12, "WDT"}, {13, "TIMER2_COMPA"}, {14, "TIMER2_COMPB"},
			{15, "TIMER2_OVF"}, {16, "TIMER1_CAPT"}, {17, "TIMER1_COMPA"},
			{18, "TIMER1_COMPB"}, {19, "TIMER1_COMPC"}, {20, "TIMER1_OVF"},
			{21, "TIMER0_COMPA"}, {22, "TIMER0_COMPB"}, {23, "TIMER0_OVF"},
			{24, "SPI_STC"}, {25, "USART0_RX"}, {26, "USART0_UDRE"}, {27, "USART0_TX"},
			{28, "ANALOG_COMP"}, {29, "ADC"}, {30, "EE_READY"},
			{36, "USART1_RX"}, {37, "USART1_UDRE"}, {38, "USART1_TX"},
			{39, "TWI"}, {40, "SPM_READY"},
			{55, "USART3_RX"}, {56, "USART3_UDRE"}, {57, "USART3_TX"},
		},
	}
	d.Flash = NewSelfProgrammer(0x57, 128, 40)
	c := newCore(d)

	NewIOPort(c, "b", 0x24, 0x25, 0x23, 0x6B, 9)
	portD := NewIOPort(c, "d", 0x2A, 0x2B, 0x29, 0, 0)
	portE := NewIOPort(c, "e", 0x2D, 0x2E, 0x2C, 0, 0)

	t0 := NewTimer(c, TimerConfig{
		Name: "0", Bits: 8, TCCRA: 0x44, TCCRB: 0x45, TCNTL: 0x46,
		TIMSK: 0x6E, TIFR: 0x35, ToieMask: 0x01, TovFlag: 0x01,
		CSMask: 0x07, Prescalers: prescale5, ExtFalling: 6, ExtRising: 7,
		OvfVector: 23,
		Comparators: []TimerComparatorConfig{
			{Label: "A", OCRL: 0x47, EnableMask: 0x02, FlagMask: 0x02, Vector: 21},
			{Label: "B", OCRL: 0x48, EnableMask: 0x04, FlagMask: 0x04, Vector: 22},
		},
		WGMA: 0x03, WGMB: 0x08, Waveforms: waveforms8,
	})
	t1 := NewTimer(c, TimerConfig{
		Name: "1", Bits: 16, TCCRA: 0x80, TCCRB: 0x81, TCNTL: 0x84, TCNTH: 0x85,
		TIMSK: 0x6F, TIFR: 0x36, ToieMask: 0x01, TovFlag: 0x01,
		CSMask: 0x07, Prescalers: prescale5, ExtFalling: 6, ExtRising: 7,
		OvfVector: 20,
		Comparators: []TimerComparatorConfig{
			{Label: "A", OCRL: 0x88, OCRH: 0x89, EnableMask: 0x02, FlagMask: 0x02, Vector: 17},
			{Label: "B", OCRL: 0x8A, OCRH: 0x8B, EnableMask: 0x04, FlagMask: 0x04, Vector: 18},
			{Label: "C", OCRL: 0x8C, OCRH: 0x8D, EnableMask: 0x08, FlagMask: 0x08, Vector: 19},
		},
		ICRL: 0x86, ICRH: 0x87, IcfMask: 0x20, IcieMask: 0x20, CaptureVector: 16,
		WGMA: 0x03, WGMB: 0x18, Waveforms: waveforms16,
	})
	NewTimer(c, TimerConfig{
		Name: "2", Bits: 8, TCCRA: 0xB0, TCCRB: 0xB1, TCNTL: 0xB2,
		TIMSK: 0x70, TIFR: 0x37, ToieMask: 0x01, TovFlag: 0x01,
		CSMask: 0x07, Prescalers: prescale7Async,
		OvfVector: 15,
		Comparators: []TimerComparatorConfig{
			{Label: "A", OCRL: 0xB3, EnableMask: 0x02, FlagMask: 0x02, Vector: 13},
			{Label: "B", OCRL: 0xB4, EnableMask: 0x04, FlagMask: 0x04, Vector: 14},
		},
		ASSR: 0xB6, AS2Mask: 0x20,
		WGMA: 0x03, WGMB: 0x08, Waveforms: waveforms8,
	})
	// T0 = PD7, T1 = PD6, ICP1 = PD4.
	portD.Signals().Pin[7].Connect(t0.ClockHook, nil)
	portD.Signals().Pin[6].Connect(t1.ClockHook, nil)
	portD.Signals().Pin[4].Connect(t1.CaptureHook, nil)

	NewExternalInterrupt(c, "int0", 1, portD, 0,
		NewRegbit(0x69, 0x03), NewRegbit(0x3D, 0x01), NewRegbit(0x3C, 0x01))
	NewExternalInterrupt(c, "int1", 2, portD, 1,
		NewRegbit(0x69, 0x0C), NewRegbit(0x3D, 0x02), NewRegbit(0x3C, 0x02))
	NewExternalInterrupt(c, "int4", 5, portE, 4,
		NewRegbit(0x6A, 0x03), NewRegbit(0x3D, 0x10), NewRegbit(0x3C, 0x10))
	NewUART(c, "0", 0xC6, 0xC0, 0xC1, 0xC2, 0xC4, 0xC5, 25, 26, 27)
	NewUART(c, "3", 0x136, 0x130, 0x131, 0x132, 0x134, 0x135, 55, 56, 57)
	NewSPI(c, "0", 0x4C, 0x4D, 0x4E, 24)
	NewADC(c, "0", 0x7C, 0x7A, 0x79, 0x78, 29)
	d.Watchdog = NewWatchdog(c, "0", 0x60, 12)

	c.Reset(ResetPowerOn)
	return &assembly{Core: c}
}

// deviceFactories maps every chip name (and datasheet-style aliases) to
// its assembly constructor.
var deviceFactories = map[string]func() *assembly{
	"attiny85":    NewATtiny85,
	"tiny85":      NewATtiny85,
	"attiny2313a": NewATtiny2313A,
	"attiny2313":  NewATtiny2313A,
	"tiny2313":    NewATtiny2313A,
	"atmega48":    NewATmega48,
	"mega48":      NewATmega48,
	"atmega88":    NewATmega88,
	"mega88":      NewATmega88,
	"atmega168":   NewATmega168,
	"mega168":     NewATmega168,
	"atmega2560":  NewATmega2560,
	"mega2560":    NewATmega2560,
}

// NewDevice assembles a core by chip name (case-insensitive, with the
// common short aliases). Unknown names are a ConfigurationError: fatal
// at init per the error-handling contract.
func NewDevice(name string) (*assembly, error) {
	f := deviceFactories[strings.ToLower(name)]
	if f == nil {
		return nil, &ConfigurationError{Device: name, Detail: "unknown chip name"}
	}
	return f(), nil
}

// NewFromFirmware assembles the chip a firmware record names and loads
// the record into it in one step.
func NewFromFirmware(f *Firmware) (*assembly, error) {
	asm, err := NewDevice(f.ChipName)
	if err != nil {
		return nil, err
	}
	if err := asm.Core.LoadFirmware(f); err != nil {
		return nil, err
	}
	return asm, nil
}
