// interrupt.go - Interrupt controller

/*
Grounded on simavr's sim_interrupts.c: each vector has a
"raised" bit that can be set even while globally masked (so a pending
flag is still readable/pollable by firmware), a pending FIFO ordered by
arrival, priority-by-lowest-vector-number selection that swaps the
winning entry to the front of that FIFO in place rather than fully
re-sorting it, a two-cycle acceptance latency modelled as a negative
countdown, and a running stack that RETI unwinds - re-raising the
aggregate "interrupt running" signal for whatever vector is now on top,
or 0 if the stack is empty.
*/

package avrcore

// Vector identifies one interrupt source by its vector table index (the
// same small integer AVR datasheets number vectors with, RESET being 0
// and not handled by this controller - reset is Core.Reset).
type Vector struct {
	Number int
	Name   string
	raised bool
	// raiseSticky keeps the raised bit set across Accept: the handful of
	// sources whose flag hardware does not auto-clear on vector entry
	// (firmware clears it by writing a 1, or it tracks a level).
	raiseSticky bool
}

// InterruptController arbitrates between every peripheral's interrupt
// vector and the single PC the core can be vectoring to at once.
type InterruptController struct {
	vectors []*Vector
	byNum   map[int]*Vector
	pending []*Vector // FIFO, arrival order
	running []*Vector // stack of vectors currently being serviced
	global  bool       // I-bit in SREG
	state   int        // 0 = no countdown (vectoring allowed), negative = latency countdown
	armed   bool       // one-shot: next Tick starts the SEI latency countdown

	// Running is raised with the vector number of the topmost running ISR
	// (or 0 when none is running), for peripherals that need to know
	// whether an ISR is in progress - e.g. to implement nested-priority
	// hardware some AVR parts have.
	Running *Signal
}

// NewInterruptController creates a controller with no vectors registered.
// Register vectors via RegisterVector during device assembly.
func NewInterruptController() *InterruptController {
	return &InterruptController{
		byNum:   make(map[int]*Vector),
		Running: NewSignal("interrupt.running", 0),
	}
}

// RegisterVector adds a named interrupt vector. number must be unique and
// nonzero (0 is RESET, which this controller never services directly).
func (ic *InterruptController) RegisterVector(number int, name string) *Vector {
	v := &Vector{Number: number, Name: name}
	ic.vectors = append(ic.vectors, v)
	ic.byNum[number] = v
	return v
}

// MarkSticky flags a vector whose raised bit must survive Accept, for
// sources whose hardware flag doesn't auto-clear on vector entry.
func (ic *InterruptController) MarkSticky(number int) {
	if v := ic.byNum[number]; v != nil {
		v.raiseSticky = true
	}
}

// SetGlobalEnable mirrors writes to SREG's I-bit.
func (ic *InterruptController) SetGlobalEnable(enabled bool) {
	ic.global = enabled
}

func (ic *InterruptController) GlobalEnable() bool { return ic.global }

// Raise marks a vector as pending. The "raised" regbit is set
// unconditionally (pollable even when globally masked); the vector only
// joins the pending FIFO - and therefore becomes eligible for service -
// once, i.e. raising an already-pending vector again is a no-op so a
// level-triggered peripheral that calls Raise every cycle doesn't flood
// the FIFO with duplicates.
func (ic *InterruptController) Raise(number int) {
	v := ic.byNum[number]
	if v == nil {
		return
	}
	v.raised = true
	for _, p := range ic.pending {
		if p == v {
			return
		}
	}
	ic.pending = append(ic.pending, v)
}

// Clear drops a vector's raised bit and removes it from the pending FIFO
// if it's there (used by edge-triggered sources whose condition has gone
// away before being serviced, and by peripherals that self-clear their
// flag on service rather than waiting for software to write a 1 to clear).
func (ic *InterruptController) Clear(number int) {
	v := ic.byNum[number]
	if v == nil {
		return
	}
	v.raised = false
	for i, p := range ic.pending {
		if p == v {
			ic.pending = append(ic.pending[:i], ic.pending[i+1:]...)
			return
		}
	}
}

// IsRaised reports a vector's raised bit regardless of masking, for
// registers that expose "interrupt flag" bits readable by firmware even
// with interrupts globally disabled.
func (ic *InterruptController) IsRaised(number int) bool {
	v := ic.byNum[number]
	return v != nil && v.raised
}

// selectNext picks the lowest-numbered pending vector and swaps it to the
// front of the FIFO in place; the entry it displaces takes the winner's
// old slot, so the other entries do not all keep their arrival order.
// Vector numbers are unique, so the choice never depends on that order.
func (ic *InterruptController) selectNext() *Vector {
	if len(ic.pending) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(ic.pending); i++ {
		if ic.pending[i].Number < ic.pending[best].Number {
			best = i
		}
	}
	if best != 0 {
		ic.pending[0], ic.pending[best] = ic.pending[best], ic.pending[0]
	}
	return ic.pending[0]
}

// Accept is called once the latency countdown has elapsed (ic.state==0
// and a vector is pending): it removes the vector from the pending FIFO,
// pushes it onto the running stack, clears the global enable bit (real
// hardware clears the I-bit on vector entry; firmware's RETI or an
// explicit SEI re-enables it), clears the raised bit the way hardware
// auto-clears most interrupt flags on vector entry (sticky vectors keep
// theirs for firmware to write-1-clear), and returns the vector number
// to jump to.
func (ic *InterruptController) Accept() int {
	v := ic.selectNext()
	if v == nil {
		return 0
	}
	ic.pending = ic.pending[1:]
	ic.running = append(ic.running, v)
	ic.global = false
	ic.state = 0
	if !v.raiseSticky {
		v.raised = false
	}
	ic.Running.Raise(uint32(v.Number))
	return v.Number
}

// Ready reports whether Accept would succeed this instruction: the
// latency countdown has finished, interrupts are globally enabled, and a
// vector is pending.
func (ic *InterruptController) Ready() bool {
	return ic.state == 0 && ic.global && len(ic.pending) > 0
}

// Latent reports whether the controller is mid-way through the two-cycle
// acceptance latency.
func (ic *InterruptController) Latent() bool { return ic.state < 0 }

// Tick advances the controller by one instruction boundary: called once
// per instruction, after execute(), regardless of whether anything is
// pending. If ArmLatency was called during the instruction just executed,
// this is where the countdown actually starts (so the arming instruction
// itself consumes none of its own latency - matching the one-call-per-
// instruction semantics of the historical sim_interrupts.c state machine);
// otherwise an in-progress countdown decrements toward zero. An ordinary
// interrupt raised while I is already set and idle needs no Tick
// involvement at all: Ready() only checks ic.state == 0, already true
// outside of a latency countdown, so such a vector services on the very
// next instruction boundary with no extra wait.
func (ic *InterruptController) Tick() {
	if ic.armed {
		ic.armed = false
		ic.state = -2
		return
	}
	if ic.state < 0 {
		ic.state++
	}
}

// ArmLatency requests the two-cycle acceptance latency that follows I's
// 0->1 transition (SEI, or an SREG write that sets the bit) - sreg.go's
// setI calls this, and only on that specific transition. The countdown
// itself starts on the next Tick, not immediately, so the SEI/SREG-write
// instruction's own Tick call is what begins it.
func (ic *InterruptController) ArmLatency() {
	ic.armed = true
}

// RETI pops the topmost running vector and re-raises Running for
// whichever vector is now on top of the stack, or 0 if the stack is now
// empty. The raised bit was already cleared at Accept (unless sticky,
// in which case firmware owns it), and RETI does not by itself set the
// I-bit back; the core loop does that to mirror RETI's real side effect
// of restoring SREG's I-bit unconditionally.
func (ic *InterruptController) RETI() {
	if len(ic.running) == 0 {
		return
	}
	ic.running = ic.running[:len(ic.running)-1]
	if len(ic.running) > 0 {
		ic.Running.Raise(uint32(ic.running[len(ic.running)-1].Number))
	} else {
		ic.Running.Raise(0)
	}
}

// Depth reports how many ISRs are currently nested (0 = not inside any).
func (ic *InterruptController) Depth() int { return len(ic.running) }
