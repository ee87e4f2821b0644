// timer.go - 8/16-bit timer/counter peripheral

/*
Grounded on simavr's avr_timer.c: an internally-clocked
timer's period is driven entirely off the cycle scheduler rather than
being ticked per executed instruction - tov_cycles = prescaler*(top+1)
cycles between overflows, one scheduler entry per comparator at offset
prescaler*(ocr+1) within the period - and the timer only recomputes
those entries (cancelling and re-registering) when software actually
changes the prescaler, waveform mode or TOP, not on every register
write. TCNT is reconstructed on demand from the cycles elapsed since the
last recompute rather than being incremented cycle by cycle, the same
interpolation avr_timer.c uses. Externally-clocked (Tn pin) timers flip
to the literal model: a counter variable incremented per asserted edge,
with comparators and overflow checked at each increment. Asynchronous
(AS2 crystal) clocking keeps the scheduler model but carries a
fractional-cycle accumulator, since one 32.768kHz timer tick is rarely a
whole number of CPU cycles.
*/

package avrcore

// TimerWGM is the waveform-generation kind, one axis of the mode; the
// other is where TOP comes from (TimerTopSource).
type TimerWGM int

const (
	TimerNormal TimerWGM = iota
	TimerCTC
	TimerFastPWM
	TimerPhaseCorrectPWM
)

// TimerTopSource selects what bounds the count.
type TimerTopSource int

const (
	TopMax TimerTopSource = iota // fixed 0xFF / 0xFFFF
	TopOCRA
	TopICR
)

// Waveform pairs the two axes; a device's TimerConfig maps each raw WGM
// bit combination to one of these.
type Waveform struct {
	Kind TimerWGM
	Top  TimerTopSource
}

// CompareOutputMode mirrors the COMnx bits: how a compare match affects
// the timer's associated output-compare pin.
type CompareOutputMode int

const (
	ComDisconnected CompareOutputMode = iota
	ComToggle
	ComClear // non-inverting PWM: clear on match, set at BOTTOM
	ComSet   // inverting PWM: set on match, clear at BOTTOM
)

// comparator is one output-compare unit (OCRnA/B/C).
type comparator struct {
	t          *Timer
	label      string
	ocrL, ocrH uint16 // ocrH == 0 on 8-bit timers
	enableMask byte   // OCIEnx in TIMSK
	flagMask   byte   // OCFnx in TIFR
	vector     int
	com        CompareOutputMode

	// Out is the compare-match output pin signal, wired to an IOPort bit
	// by device assembly when the part breaks the pin out. Match pulses
	// on every compare match regardless of the COM mode, for peripherals
	// (the USI's timer clock source) that count matches rather than
	// watch the pin.
	Out   *Signal
	Match *Signal
	pin   bool

	handle CycleTimerHandle
	armed  bool
	frac   float64 // this entry's own fractional-cycle phase under AS2
}

func (cp *comparator) ocr() uint32 {
	lo := cp.t.c.Mem[cp.ocrL]
	if cp.ocrH == 0 {
		return uint32(lo)
	}
	return uint32(cp.t.c.Mem[cp.ocrH])<<8 | uint32(lo)
}

// Timer implements one 8-bit or 16-bit timer/counter unit.
type Timer struct {
	name string
	c    *Core
	bits int // 8 or 16

	tccraAddr, tccrbAddr uint16
	tcntLAddr, tcntHAddr uint16 // tcntHAddr is 0 for 8-bit timers
	timskAddr, tifrAddr  uint16
	toieMask, tovFlag    byte

	icrLAddr, icrHAddr uint16 // input capture register, 0 when absent
	icfMask, icieMask  byte
	captureVector      int
	icpLast            uint32

	assrAddr uint16 // ASSR, timer2 only; 0 when the part has none
	as2Mask  byte

	csMask     byte
	wgmA, wgmB byte // raw (unshifted) WGM bit masks within TCCRA/TCCRB
	waveforms  map[byte]Waveform

	ovfVector int

	prescalers []uint32 // indexed by CS value; 0 = stopped
	extFalling byte     // CS value selecting external clock, falling edge (0 = unsupported)
	extRising  byte

	comps []*comparator

	// Internal-clock interpolation state.
	baseCycle uint64
	baseValue uint32
	period    uint64  // CPU cycles per full count period; 0 while stopped/external
	tickF     float64 // CPU cycles per count tick (fractional under AS2)
	frac      float64 // fractional-cycle accumulator for async reschedules
	mode      Waveform
	cs        byte
	top       uint32

	// External-clock literal state.
	extCount uint32
	down     bool // phase-correct direction bit

	ovfTimer  CycleTimerHandle
	haveTimer bool

	// lastTimsk is this timer's own view of the last TIMSK write, kept
	// separately from Mem because tinyAVR parts share one TIMSK byte
	// between timers and the multiplexed write handlers run in sequence.
	lastTimsk byte
}

// TimerComparatorConfig describes one output-compare unit of a timer.
type TimerComparatorConfig struct {
	Label      string
	OCRL, OCRH uint16
	EnableMask byte
	FlagMask   byte
	Vector     int
}

// TimerConfig collects the register addresses and bit layout a concrete
// device's timer instance uses; every classic AVR timer shares this
// shape but disagrees on exact addresses, bit masks and vector numbers.
type TimerConfig struct {
	Name         string
	Bits         int
	TCCRA, TCCRB uint16
	TCNTL, TCNTH uint16
	TIMSK, TIFR  uint16
	ToieMask     byte
	TovFlag      byte
	CSMask       byte
	Prescalers   []uint32
	ExtFalling   byte // CS value for external falling-edge clock, 0 if none
	ExtRising    byte
	OvfVector    int
	Comparators  []TimerComparatorConfig

	// Input capture (16-bit timers). Zero ICRL disables the unit.
	ICRL, ICRH    uint16
	IcfMask       byte
	IcieMask      byte
	CaptureVector int

	// Asynchronous operation (timer2). Zero ASSR disables it.
	ASSR    uint16
	AS2Mask byte

	// WGM{A,B} are the raw (unshifted) WGM bit masks within TCCRA/TCCRB;
	// Waveforms maps each (TCCRA&WGMA)|(TCCRB&WGMB) combination to its
	// waveform. Combinations absent from the map count as Normal mode.
	WGMA, WGMB byte
	Waveforms  map[byte]Waveform
}

// asyncCrystalHz is the watch crystal frequency timer2 counts from when
// ASSR's AS2 bit is set.
const asyncCrystalHz = 32768.0

func NewTimer(c *Core, cfg TimerConfig) *Timer {
	t := &Timer{
		name: cfg.Name, c: c, bits: cfg.Bits,
		tccraAddr: cfg.TCCRA, tccrbAddr: cfg.TCCRB,
		tcntLAddr: cfg.TCNTL, tcntHAddr: cfg.TCNTH,
		timskAddr: cfg.TIMSK, tifrAddr: cfg.TIFR,
		toieMask: cfg.ToieMask, tovFlag: cfg.TovFlag,
		icrLAddr: cfg.ICRL, icrHAddr: cfg.ICRH,
		icfMask: cfg.IcfMask, icieMask: cfg.IcieMask, captureVector: cfg.CaptureVector,
		assrAddr: cfg.ASSR, as2Mask: cfg.AS2Mask,
		csMask: cfg.CSMask, prescalers: cfg.Prescalers,
		extFalling: cfg.ExtFalling, extRising: cfg.ExtRising,
		ovfVector: cfg.OvfVector,
		wgmA:      cfg.WGMA, wgmB: cfg.WGMB, waveforms: cfg.Waveforms,
		top: 0xFF,
	}
	if cfg.Bits == 16 {
		t.top = 0xFFFF
	}
	for _, cc := range cfg.Comparators {
		cp := &comparator{
			t: t, label: cc.Label, ocrL: cc.OCRL, ocrH: cc.OCRH,
			enableMask: cc.EnableMask, flagMask: cc.FlagMask, vector: cc.Vector,
			Out:   NewSignal(cfg.Name+".oc"+cc.Label, SignalFiltered),
			Match: NewSignal(cfg.Name+".oc"+cc.Label+".match", 0),
		}
		t.comps = append(t.comps, cp)
		c.Signals.Register(cp.Out)
		c.Signals.Register(cp.Match)
		c.IO.RegisterWrite(cc.OCRL, t.makeOCRWriter(cp))
		if cc.OCRH != 0 {
			c.IO.RegisterWrite(cc.OCRH, t.makeOCRWriter(cp))
		}
	}
	c.IO.RegisterWrite(cfg.TCCRA, t.writeTCCRA)
	c.IO.RegisterWrite(cfg.TCCRB, t.writeTCCRB)
	c.IO.RegisterRead(cfg.TCNTL, t.readTCNTL)
	c.IO.RegisterWrite(cfg.TCNTL, t.writeTCNTL)
	if cfg.TCNTH != 0 {
		c.IO.RegisterRead(cfg.TCNTH, t.readTCNTH)
		c.IO.RegisterWrite(cfg.TCNTH, t.writeTCNTH)
	}
	c.IO.RegisterWrite(cfg.TIFR, t.writeTIFR)
	c.IO.RegisterWrite(cfg.TIMSK, t.writeTIMSK)
	if cfg.ASSR != 0 {
		c.IO.RegisterWrite(cfg.ASSR, t.writeASSR)
	}
	c.AddPeripheral(t)
	return t
}

func (t *Timer) Name() string { return "timer." + t.name }

func (t *Timer) Reset() {
	t.cs = 0
	t.mode = Waveform{}
	t.baseCycle = t.c.Sched.Cycle()
	t.baseValue = 0
	t.extCount = 0
	t.down = false
	t.frac = 0
	t.lastTimsk = 0
	t.cancelAll()
	for _, cp := range t.comps {
		cp.com = ComDisconnected
		cp.pin = false
	}
}

// Ioctl answers the "tmrN" tag with the timer's compare-output signals,
// one per comparator, so test benches can watch PWM without knowing
// which port pin the part routes OCnx to.
func (t *Timer) Ioctl(code uint32, arg any) (any, bool) {
	if len(t.name) != 1 || code != IoctlTag('t', 'm', 'r', t.name[0]) {
		return nil, false
	}
	outs := make([]*Signal, len(t.comps))
	for i, cp := range t.comps {
		outs[i] = cp.Out
	}
	return outs, true
}

func (t *Timer) cancelAll() {
	if t.haveTimer {
		t.c.Sched.Cancel(t.ovfTimer)
		t.haveTimer = false
	}
	for _, cp := range t.comps {
		if cp.armed {
			t.c.Sched.Cancel(cp.handle)
			cp.armed = false
		}
	}
	t.period = 0
}

func (t *Timer) writeTCCRA(addr uint16, v byte) {
	old := t.c.Mem[addr]
	t.c.Mem[addr] = v
	for i, cp := range t.comps {
		shift := 6 - 2*uint(i) // COMnA at 7:6, COMnB at 5:4, COMnC at 3:2
		cp.com = CompareOutputMode((v >> shift) & 0x03)
	}
	if (old^v)&t.wgmA != 0 {
		t.snapshot()
		t.reconfigure()
	}
}

func (t *Timer) writeTCCRB(addr uint16, v byte) {
	old := t.c.Mem[addr]
	t.c.Mem[addr] = v
	changed := (old^v)&t.csMask != 0 || (old^v)&t.wgmB != 0
	if (old^v)&t.csMask != 0 {
		t.snapshot()
		t.cs = v & t.csMask
	}
	// Same-value writes (e.g. firmware poking ICES or FOC bits) leave the
	// running period undisturbed.
	if changed {
		t.reconfigure()
	}
}

func (t *Timer) writeASSR(addr uint16, v byte) {
	old := t.c.Mem[addr]
	t.c.Mem[addr] = v
	if (old^v)&t.as2Mask != 0 {
		t.snapshot()
		t.reconfigure()
	}
}

// writeTIFR implements the write-1-to-clear convention for the overflow,
// compare and capture flags.
func (t *Timer) writeTIFR(addr uint16, v byte) {
	mask := t.tovFlag | t.icfMask
	for _, cp := range t.comps {
		mask |= cp.flagMask
	}
	t.c.Mem[addr] &^= v & mask
}

// writeTIMSK stores the mask and, for any interrupt whose flag is
// already pending, raises its vector immediately - enabling an interrupt
// whose condition has already happened fires it on real silicon too.
func (t *Timer) writeTIMSK(addr uint16, v byte) {
	old := t.lastTimsk
	t.lastTimsk = v
	t.c.Mem[addr] = v
	newly := v &^ old
	flags := t.c.Mem[t.tifrAddr]
	if newly&t.toieMask != 0 && flags&t.tovFlag != 0 {
		t.c.Intr.Raise(t.ovfVector)
	}
	if newly&t.icieMask != 0 && flags&t.icfMask != 0 && t.captureVector != 0 {
		t.c.Intr.Raise(t.captureVector)
	}
	for _, cp := range t.comps {
		if newly&cp.enableMask != 0 && flags&cp.flagMask != 0 {
			t.c.Intr.Raise(cp.vector)
		}
	}
}

func (t *Timer) makeOCRWriter(cp *comparator) IOWriteFunc {
	return func(addr uint16, v byte) {
		if t.c.Mem[addr] == v {
			return
		}
		t.c.Mem[addr] = v
		// OCR writes apply immediately (no double buffering; documented
		// deviation from the hardware's buffered PWM modes). A new OCRA
		// moves TOP when it is the TOP source, which is a full rebuild;
		// otherwise only this comparator's match entry moves.
		if t.mode.Top == TopOCRA && cp == t.comps[0] {
			t.snapshot()
			t.reconfigure()
		} else if t.period != 0 {
			t.armComparator(cp)
		}
	}
}

func (t *Timer) writeTCNTL(addr uint16, v byte) {
	t.snapshot()
	t.baseValue = (t.baseValue &^ 0xFF) | uint32(v)
	t.extCount = t.baseValue
	t.c.Mem[addr] = v
	t.reconfigure()
}

func (t *Timer) writeTCNTH(addr uint16, v byte) {
	t.snapshot()
	t.baseValue = (t.baseValue &^ 0xFF00) | uint32(v)<<8
	t.extCount = t.baseValue
	t.c.Mem[addr] = v
	t.reconfigure()
}

func (t *Timer) externalMode() bool {
	return t.cs != 0 && (t.cs == t.extFalling || t.cs == t.extRising)
}

func (t *Timer) asyncMode() bool {
	return t.assrAddr != 0 && t.c.Mem[t.assrAddr]&t.as2Mask != 0
}

// currentValue interpolates TCNT from the cycles elapsed since the last
// snapshot/reconfigure for internally-clocked timers, or returns the
// literal edge counter for external clocking.
func (t *Timer) currentValue() uint32 {
	if t.externalMode() {
		return t.extCount
	}
	if t.period == 0 || t.tickF == 0 {
		return t.baseValue
	}
	elapsed := float64(t.c.Sched.Cycle() - t.baseCycle)
	ticks := uint64(elapsed / t.tickF)
	if t.mode.Kind == TimerPhaseCorrectPWM && t.top > 0 {
		span := uint64(2 * t.top)
		x := (uint64(t.baseValue) + ticks) % span
		if x > uint64(t.top) {
			return uint32(span - x)
		}
		return uint32(x)
	}
	return uint32((uint64(t.baseValue) + ticks) % uint64(t.top+1))
}

func (t *Timer) snapshot() {
	t.baseValue = t.currentValue()
	t.baseCycle = t.c.Sched.Cycle()
}

func (t *Timer) readTCNTL(addr uint16) byte { return byte(t.currentValue()) }
func (t *Timer) readTCNTH(addr uint16) byte { return byte(t.currentValue() >> 8) }

func (t *Timer) prescaleDivisor() uint32 {
	if t.externalMode() {
		return 0
	}
	idx := int(t.cs)
	if idx < 0 || idx >= len(t.prescalers) {
		return 0
	}
	return t.prescalers[idx]
}

func (t *Timer) currentWaveform() Waveform {
	combined := (t.c.Mem[t.tccraAddr] & t.wgmA) | (t.c.Mem[t.tccrbAddr] & t.wgmB)
	if w, ok := t.waveforms[combined]; ok {
		return w
	}
	return Waveform{Kind: TimerNormal, Top: TopMax}
}

func (t *Timer) effectiveTop() uint32 {
	switch t.mode.Top {
	case TopOCRA:
		if len(t.comps) > 0 {
			return t.comps[0].ocr()
		}
	case TopICR:
		if t.icrLAddr != 0 {
			v := uint32(t.c.Mem[t.icrLAddr])
			if t.icrHAddr != 0 {
				v |= uint32(t.c.Mem[t.icrHAddr]) << 8
			}
			return v
		}
	}
	if t.bits == 16 {
		return 0xFFFF
	}
	return 0xFF
}

// reconfigure tears down and rebuilds the scheduler entries from the
// current WGM/CS/ASSR state; it is the single path every mode-affecting
// register write funnels through.
func (t *Timer) reconfigure() {
	t.cancelAll()
	t.mode = t.currentWaveform()
	t.top = t.effectiveTop()
	if t.externalMode() {
		t.extCount = t.baseValue
		return
	}
	div := t.prescaleDivisor()
	if div == 0 || t.top == 0 {
		return
	}
	t.tickF = float64(div)
	if t.asyncMode() {
		t.tickF = float64(div) * float64(t.c.Frequency) / asyncCrystalHz
	}
	counts := uint64(t.top + 1)
	if t.mode.Kind == TimerPhaseCorrectPWM {
		counts = uint64(2 * t.top)
	}
	periodF := t.tickF * float64(counts)
	t.period = uint64(periodF)
	if t.period == 0 {
		t.period = 1
	}
	t.frac = 0
	t.snapshot()
	t.armOverflow()
	for _, cp := range t.comps {
		t.armComparator(cp)
	}
}

// armOverflow schedules the period-boundary event: counts remaining to
// the next wrap, times the per-count cycle cost.
func (t *Timer) armOverflow() {
	remaining := uint64(t.top+1) - uint64(t.baseValue)
	if t.mode.Kind == TimerPhaseCorrectPWM {
		remaining = uint64(2*t.top) - uint64(t.baseValue)
	}
	delay := uint64(float64(remaining) * t.tickF)
	if delay == 0 {
		delay = t.period
	}
	t.ovfTimer, _ = t.c.Sched.Register(delay, t.onOverflow)
	t.haveTimer = true
}

// armComparator schedules cp's next match event at offset
// prescaler*(ocr+1) within the running period, skipping comparators
// whose OCR sits above TOP (they can never match).
func (t *Timer) armComparator(cp *comparator) {
	if cp.armed {
		t.c.Sched.Cancel(cp.handle)
		cp.armed = false
	}
	if t.period == 0 {
		return
	}
	// In CTC the OCRA match is the period boundary itself; onOverflow
	// raises it there, so no mid-period entry for comparator A.
	if t.mode.Kind == TimerCTC && len(t.comps) > 0 && cp == t.comps[0] {
		return
	}
	ocr := cp.ocr()
	if ocr > t.top {
		return
	}
	// Offset of the match from the most recent period boundary, then
	// distance from the current mid-period position.
	matchOffset := uint64(float64(ocr+1) * t.tickF)
	sinceBase := uint64(float64(t.baseValue) * t.tickF)
	elapsed := (t.c.Sched.Cycle() - t.baseCycle + sinceBase) % t.period
	var delay uint64
	if matchOffset > elapsed {
		delay = matchOffset - elapsed
	} else {
		delay = t.period - elapsed + matchOffset
	}
	if delay == 0 {
		delay = t.period
	}
	cp.frac = 0
	cp.handle, _ = t.c.Sched.Register(delay, func(cycle uint64) uint64 {
		t.onCompareMatch(cp)
		return t.periodStep(cycle, &cp.frac)
	})
	cp.armed = true
}

// periodStep computes the next absolute fire cycle one period out,
// accumulating the fractional remainder (per event stream, so overflow
// and compare entries each keep their own phase) under asynchronous
// clocking so long simulations don't drift.
func (t *Timer) periodStep(cycle uint64, frac *float64) uint64 {
	if !t.asyncMode() {
		return cycle + t.period
	}
	counts := uint64(t.top + 1)
	if t.mode.Kind == TimerPhaseCorrectPWM {
		counts = uint64(2 * t.top)
	}
	exact := t.tickF*float64(counts) + *frac
	whole := uint64(exact)
	*frac = exact - float64(whole)
	if whole == 0 {
		whole = 1
	}
	return cycle + whole
}

// onCompareMatch fires when the count passes OCRnx: flag, vector, and
// the COM-mode pin action for the current waveform.
func (t *Timer) onCompareMatch(cp *comparator) {
	t.c.Mem[t.tifrAddr] |= cp.flagMask
	cp.Match.Raise(1)
	if t.c.Mem[t.timskAddr]&cp.enableMask != 0 {
		t.c.Intr.Raise(cp.vector)
	}
	switch cp.com {
	case ComToggle:
		cp.pin = !cp.pin
		cp.Out.Raise(b2u(cp.pin))
	case ComClear:
		cp.pin = false
		cp.Out.Raise(0)
	case ComSet:
		cp.pin = true
		cp.Out.Raise(1)
	}
}

// onOverflow fires once per full count period (at TOP in CTC, at
// BOTTOM/MAX wrap otherwise).
func (t *Timer) onOverflow(cycle uint64) uint64 {
	switch t.mode.Kind {
	case TimerCTC:
		// CTC's period boundary is the OCRA match, not a MAX overflow.
		if len(t.comps) > 0 {
			cp := t.comps[0]
			t.c.Mem[t.tifrAddr] |= cp.flagMask
			cp.Match.Raise(1)
			if t.c.Mem[t.timskAddr]&cp.enableMask != 0 {
				t.c.Intr.Raise(cp.vector)
			}
			if cp.com == ComToggle {
				cp.pin = !cp.pin
				cp.Out.Raise(b2u(cp.pin))
			}
		}
	default:
		t.c.Mem[t.tifrAddr] |= t.tovFlag
		if t.c.Mem[t.timskAddr]&t.toieMask != 0 {
			t.c.Intr.Raise(t.ovfVector)
		}
		// BOTTOM pin action for the PWM modes: non-inverting sets the
		// pin at BOTTOM (it cleared on match), inverting clears it.
		if t.mode.Kind == TimerFastPWM || t.mode.Kind == TimerPhaseCorrectPWM {
			for _, cp := range t.comps {
				switch cp.com {
				case ComClear:
					cp.pin = true
					cp.Out.Raise(1)
				case ComSet:
					cp.pin = false
					cp.Out.Raise(0)
				}
			}
		}
	}
	t.baseCycle = cycle
	t.baseValue = 0
	return t.periodStep(cycle, &t.frac)
}

// ExternalClockEdge drives the counter literally from Tn pin
// transitions when the CS bits select external clocking; rising selects
// which electrical edge this call represents. Device assembly connects
// this to a port pin's per-bit signal.
func (t *Timer) ExternalClockEdge(rising bool) {
	if !t.externalMode() {
		return
	}
	if rising != (t.cs == t.extRising) {
		return
	}
	t.tick()
}

// ClockHook adapts ExternalClockEdge to a Signal hook so assembly can
// wire `port.Pin[n].Connect(timer.ClockHook, nil)` directly.
func (t *Timer) ClockHook(_ *Signal, value uint32, _ interface{}) {
	t.ExternalClockEdge(value != 0)
}

// tick advances the literal counter by one count, running the compare
// and overflow checks the scheduler entries perform for internal
// clocking.
func (t *Timer) tick() {
	t.top = t.effectiveTop()
	if t.mode.Kind == TimerPhaseCorrectPWM && t.top > 0 {
		if t.down {
			t.extCount--
			if t.extCount == 0 {
				t.down = false
				t.c.Mem[t.tifrAddr] |= t.tovFlag
				if t.c.Mem[t.timskAddr]&t.toieMask != 0 {
					t.c.Intr.Raise(t.ovfVector)
				}
			}
		} else {
			t.extCount++
			if t.extCount >= t.top {
				t.down = true
			}
		}
	} else {
		t.extCount++
		if t.extCount > t.top {
			t.extCount = 0
			if t.mode.Kind != TimerCTC {
				t.c.Mem[t.tifrAddr] |= t.tovFlag
				if t.c.Mem[t.timskAddr]&t.toieMask != 0 {
					t.c.Intr.Raise(t.ovfVector)
				}
			}
		}
	}
	for _, cp := range t.comps {
		if t.extCount == cp.ocr() {
			t.onCompareMatch(cp)
		}
	}
	if t.mode.Kind == TimerCTC && len(t.comps) > 0 && t.extCount == t.comps[0].ocr() {
		t.extCount = 0
	}
	t.mirrorCount()
}

func (t *Timer) mirrorCount() {
	t.c.Mem[t.tcntLAddr] = byte(t.extCount)
	if t.tcntHAddr != 0 {
		t.c.Mem[t.tcntHAddr] = byte(t.extCount >> 8)
	}
}

// CaptureHook watches the ICP pin for the ICES-selected edge and
// latches TCNT into ICR on a match - unless ICR is currently serving as
// TOP, in which case the capture unit is disabled (the ICR write path
// belongs to the waveform generator then).
func (t *Timer) CaptureHook(_ *Signal, value uint32, _ interface{}) {
	if t.icrLAddr == 0 || t.captureVector == 0 {
		return
	}
	old := t.icpLast
	t.icpLast = value
	if old == value {
		return
	}
	rising := old == 0 && value != 0
	ices := t.c.Mem[t.tccrbAddr]&0x40 != 0
	if rising != ices {
		return
	}
	if t.mode.Top == TopICR {
		return
	}
	v := t.currentValue()
	t.c.Mem[t.icrLAddr] = byte(v)
	if t.icrHAddr != 0 {
		t.c.Mem[t.icrHAddr] = byte(v >> 8)
	}
	t.c.Mem[t.tifrAddr] |= t.icfMask
	if t.c.Mem[t.timskAddr]&t.icieMask != 0 {
		t.c.Intr.Raise(t.captureVector)
	}
}

// Comparator exposes one compare unit's output-pin signal by index
// (0 = A), for assembly wiring and tests.
func (t *Timer) Comparator(i int) *Signal {
	if i < 0 || i >= len(t.comps) {
		return nil
	}
	return t.comps[i].Out
}

// CompareMatch exposes one compare unit's match-event signal by index.
func (t *Timer) CompareMatch(i int) *Signal {
	if i < 0 || i >= len(t.comps) {
		return nil
	}
	return t.comps[i].Match
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// ReadTIFR lets tests and cross-peripheral wiring observe flag bits
// without going through the register file directly.
func (t *Timer) ReadTIFR() byte { return t.c.Mem[t.tifrAddr] }
