// signal.go - Signal/IRQ bus

/*
This is the same publish-subscribe backbone simavr builds its entire
peripheral model on (sim_irq.c's avr_irq_t): every peripheral exposes its
externally-observable state changes as named Signals instead of calling
into each other directly, so a timer's compare-match output, a port's pin
change, and an interrupt controller's "IRQ raised" bit are all the same
kind of object and can be wired together at device-assembly time without
the timer knowing what, if anything, is listening.
*/

package avrcore

// SignalFlags mirrors simavr's per-irq flag bits (IRQ_FLAG_* in sim_irq.h).
type SignalFlags uint8

const (
	// SignalFiltered suppresses Raise calls that don't change the value.
	SignalFiltered SignalFlags = 1 << iota
	// SignalFloating marks a signal with no intrinsic driven value (an
	// open-drain style line); Raise(0) on a floating signal still notifies.
	SignalFloating
	// SignalInverted flips the logical sense of Raise() for active-low lines.
	SignalInverted
	// SignalAlloc marks a signal that owns dynamically-sized bookkeeping
	// (reserved for forward compatibility with vector-width signals).
	SignalAlloc
	// SignalInit marks a signal that has been raised at least once.
	SignalInit
)

// SignalHookFunc receives the signal itself (so Value() reads the
// *previous* value during the callback), the newly raised value, and the
// opaque parameter the hook was registered with.
type SignalHookFunc func(s *Signal, value uint32, param interface{})

type signalHook struct {
	fn    SignalHookFunc
	param interface{}
	busy  bool // reentry guard, see Raise
}

// Signal is one named wire on the bus: a current value plus an ordered
// list of hooks notified whenever that value changes (or, unless
// SignalFiltered is set, whenever Raise is called at all).
type Signal struct {
	Name  string
	value uint32
	flags SignalFlags
	hooks []signalHook
}

// NewSignal creates a named, initially-zero signal.
func NewSignal(name string, flags SignalFlags) *Signal {
	return &Signal{Name: name, flags: flags}
}

// Value returns the signal's current value. Called from inside a hook
// during Raise, this is the value from *before* the raise in progress,
// matching simavr's irq->value semantics.
func (s *Signal) Value() uint32 {
	if s == nil {
		return 0
	}
	return s.value
}

// Connect registers fn to be called whenever the signal is raised, in
// registration order. param is passed back unchanged and is typically the
// peripheral instance that owns the response to this particular wire.
func (s *Signal) Connect(fn SignalHookFunc, param interface{}) {
	s.hooks = append(s.hooks, signalHook{fn: fn, param: param})
}

// Raise updates the signal's value and notifies every connected hook.
// Hooks observe the OLD value via s.Value() and the new value via the
// argument passed to them; s.value itself is only updated once every hook
// has run. The reentry guard is per hook, the same per-hook busy flag
// simavr's avr_raise_irq keeps: a hook that is already mid-notification
// is skipped on a nested raise, while the signal's other hooks still
// hear it, so feedback loops between cross-wired peripherals break
// without silencing unrelated listeners.
func (s *Signal) Raise(value uint32) {
	if s.flags&SignalInverted != 0 {
		if value == 0 {
			value = 1
		} else {
			value = 0
		}
	}
	if s.flags&SignalFiltered != 0 && s.flags&SignalInit != 0 && s.value == value {
		return
	}
	s.notify(value)
	s.value = value
	s.flags |= SignalInit
}

// notify walks the hook list, skipping any hook already executing. The
// busy flag is cleared by re-indexing rather than through a held
// pointer, in case a callback grew the hook slice out from under us.
func (s *Signal) notify(value uint32) {
	for i := 0; i < len(s.hooks); i++ {
		if s.hooks[i].busy {
			continue
		}
		s.hooks[i].busy = true
		s.hooks[i].fn(s, value, s.hooks[i].param)
		s.hooks[i].busy = false
	}
}

// RaiseFloat is the open-drain variant used by floating signals (such as a
// shared reset line with more than one driver): it still notifies hooks
// even when the value hasn't changed, since on a floating line "the same
// value again" can mean a different driver releasing and another holding.
func (s *Signal) RaiseFloat(value uint32) {
	if s.flags&SignalFloating == 0 {
		s.Raise(value)
		return
	}
	s.notify(value)
	s.value = value
	s.flags |= SignalInit
}

// SignalBus is a small registry peripherals use to look up each other's
// named signals at device-assembly time, mirroring the way simavr's
// avr_io_t list lets one part find another by name rather than holding a
// direct pointer wired in by hand.
type SignalBus struct {
	signals map[string]*Signal
}

func NewSignalBus() *SignalBus {
	return &SignalBus{signals: make(map[string]*Signal)}
}

// Register adds a signal under a unique name. It panics on a duplicate
// name, the same class of programmer error a duplicate map key would be.
func (b *SignalBus) Register(s *Signal) {
	if _, exists := b.signals[s.Name]; exists {
		panic("avrcore: duplicate signal name " + s.Name)
	}
	b.signals[s.Name] = s
}

// Find looks up a previously-registered signal by name, returning nil if
// none exists.
func (b *SignalBus) Find(name string) *Signal {
	return b.signals[name]
}

// Link connects srcName's Raise calls straight through to dstName,
// transforming the value with fn (pass an identity function for a
// straight wire). This is the Go analogue of simavr's
// avr_connect_irq, used to wire e.g. a port pin to an external
// interrupt's sense input.
func (b *SignalBus) Link(srcName, dstName string, fn func(uint32) uint32) {
	src := b.Find(srcName)
	dst := b.Find(dstName)
	if src == nil || dst == nil {
		return
	}
	src.Connect(func(_ *Signal, value uint32, _ interface{}) {
		if fn != nil {
			value = fn(value)
		}
		dst.Raise(value)
	}, nil)
}
