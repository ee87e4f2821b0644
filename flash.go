// flash.go - Self-programming flash

/*
Grounded on simavr's avr_flash.c: SPM writes R1:R0 into
a small page buffer addressed by Z rather than the flash array directly;
a separate command (written to SPMCSR/SPMCR before SPM executes) decides
whether that word goes into the buffer (page fill), the buffer gets
committed to the real flash page (page write), or the page is erased
first (page erase). The instruction itself only ever touches the page
currently selected by Z's high bits; addressing a different page implies
a different SPMCSR command sequence from firmware, not anything this
peripheral needs to infer.
*/

package avrcore

// Command bits within SPMCSR, in the canonical mega/tiny bit order.
const (
	SPMEN  = 1 << 0
	PGERS  = 1 << 1
	PGWRT  = 1 << 2
	BLBSET = 1 << 3
	RWWSRE = 1 << 4
	SPMIE  = 1 << 7
)

// SelfProgrammer implements the SPM instruction's effect on flash: a
// page-sized write buffer and the page-erase/page-write/fill state
// machine driven by SPMCSR.
type SelfProgrammer struct {
	spmcsrAddr uint16
	pageWords  uint32
	buffer     []uint16
	bufferPage uint32
	hasPage    bool
	vector     int // 0 on parts with no SPM_READY vector (e.g. attiny85)
}

// NewSelfProgrammer builds the SPM state machine for a device with the
// given flash page size (in words) and SPM_READY vector (0 if the part
// has none - ATtiny85-class parts expose no self-programming-complete
// interrupt and firmware polls SPMEN instead). devices.go sets the
// returned value on DeviceDescriptor.Flash before newCore runs, which is
// what actually wires the SPMCSR write handler (see wire) once a *Core
// exists to register it against.
func NewSelfProgrammer(spmcsrAddr uint16, pageWords uint32, vector int) *SelfProgrammer {
	return &SelfProgrammer{spmcsrAddr: spmcsrAddr, pageWords: pageWords, buffer: make([]uint16, pageWords), vector: vector}
}

// wire registers the SPMCSR write handler: a write that sets SPMEN (aka
// SELFPRGEN on boot-loader-capable parts) arms a 4-cycle scheduler
// callback that auto-clears the bit if the SPM instruction that was
// supposed to follow never shows up in time, matching real hardware's
// self-timed programming-enable window. Execute's own
// synchronous clear on a successful SPM just makes this callback a
// harmless no-op when it eventually fires.
func (s *SelfProgrammer) wire(c *Core) {
	c.IO.RegisterWrite(s.spmcsrAddr, func(addr uint16, v byte) {
		c.Mem[addr] = v
		if v&SPMEN != 0 {
			c.Sched.Register(4, func(uint64) uint64 {
				c.Mem[s.spmcsrAddr] &^= SPMEN
				return 0
			})
		}
	})
}

func (s *SelfProgrammer) Name() string { return "flash.spm" }
func (s *SelfProgrammer) Reset() {
	s.hasPage = false
	for i := range s.buffer {
		s.buffer[i] = 0xFFFF
	}
}

// Execute runs the SPM instruction's current command against Z, then
// clears SPMEN the way real hardware does once the command completes
// (this simulator treats every SPM as completing synchronously rather
// than modelling the multi-cycle hardware busy-wait, since nothing
// observes the in-progress state except the SPMEN bit itself).
func (s *SelfProgrammer) Execute(c *Core, postIncrementZ bool) {
	cmd := c.Mem[s.spmcsrAddr]
	if cmd&SPMEN == 0 {
		return
	}
	z := uint32(c.Z())
	page := z / (s.pageWords * 2) * s.pageWords
	offset := (z / 2) % s.pageWords

	switch {
	case cmd&PGERS != 0:
		for i := range s.buffer {
			s.buffer[i] = 0xFFFF
		}
		for i := uint32(0); i < s.pageWords && page+i < uint32(len(c.Flash)); i++ {
			c.Flash[page+i] = 0xFFFF
		}
		s.bufferPage = page
		s.hasPage = true
	case cmd&PGWRT != 0:
		if s.hasPage {
			for i := uint32(0); i < s.pageWords && s.bufferPage+i < uint32(len(c.Flash)); i++ {
				c.Flash[s.bufferPage+i] = s.buffer[i]
			}
		}
	case cmd&BLBSET != 0:
		// Lock-bit programming is out of scope; accepted as a no-op so
		// firmware that sets BLBSET defensively doesn't crash the core.
	default:
		word := c.regPair(0)
		s.buffer[offset] = word
		s.bufferPage = page
		s.hasPage = true
	}

	c.Mem[s.spmcsrAddr] = cmd &^ SPMEN
	if s.vector != 0 && cmd&SPMIE != 0 {
		c.Intr.Raise(s.vector)
	}
	if postIncrementZ {
		c.setZ(uint16(z + 2))
	}
}
