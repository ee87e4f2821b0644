// core.go - Core data model and run loop

/*
One struct holds all CPU state, with a running atomic.Bool so a host
goroutine (a GDB stub, a debugger UI) can poll execution status without
a data race, an RWMutex guarding state snapshots, and a Step/Run pair
where Run just calls Step in a loop until told to stop. The
decode/execute split follows simavr's sim_avr.c avr_run callbacks:
fetch one instruction, run it, advance the cycle scheduler by however
many cycles it took, then let the interrupt controller decide whether
to vector before the next fetch.
*/

package avrcore

import (
	"sync"
	"sync/atomic"
)

// Core is one simulated AVR chip: its register file, data and program
// memories, and the peripheral subsystems (scheduler, interrupt
// controller, I/O dispatch, signal bus) that a DeviceDescriptor wires
// together in Assemble.
type Core struct {
	mu      sync.RWMutex
	running atomic.Bool

	Mem    []byte   // data space: R0-R31, I/O registers, SRAM
	Flash  []uint16 // program memory, word-addressed
	EEPROM []byte

	PC     uint32
	cycles uint64

	// Frequency is the simulated clock in Hz, used to convert between
	// cycles and wall-clock microseconds. Device assembly defaults it;
	// LoadFirmware overrides it from the firmware record.
	Frequency uint64

	IO      *IODispatch
	Sched   *Scheduler
	Intr    *InterruptController
	Signals *SignalBus
	Device  *DeviceDescriptor
	log     *Logger

	// BadOp is raised with the offending 16-bit word when the decoder
	// cannot classify the instruction at PC. A host hook may service it
	// as a request-to-host call by advancing PC past the word itself; if
	// no hook moves PC the core stops with state Crashed.
	BadOp *Signal

	// SleepFunc, when set, is called with the number of cycles the core
	// is about to fast-forward through while asleep, so a real-time host
	// driver can pace the simulation against the wall clock. The default
	// is no pacing.
	SleepFunc func(howLong uint64)

	peripherals []Peripheral
	host        *hostBridge
	watches     map[uint16]WatchFunc

	state      CoreState
	crashed    error
	resetCause uint8
}

// CoreState is the lifecycle of one Core, observable by hosts and
// debuggers. Limbo is the freshly-allocated state before the first
// Reset; Done is a graceful termination (a SLEEP no event can ever end);
// Crashed records a stop the firmware did not ask for.
type CoreState int

const (
	StateLimbo CoreState = iota
	StateStopped
	StateRunning
	StateSleeping
	StateDone
	StateCrashed
)

func (s CoreState) String() string {
	switch s {
	case StateLimbo:
		return "limbo"
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateDone:
		return "done"
	case StateCrashed:
		return "crashed"
	default:
		return "invalid"
	}
}

// ResetCause bits, accumulated across successive resets until software
// reads and clears MCUSR - the real mechanism firmware uses to tell a
// power-on reset from a watchdog-triggered one.
const (
	ResetPowerOn uint8 = 1 << iota
	ResetExternal
	ResetWatchdog
	ResetBrownOut
)

// newCore allocates the memory/subsystems common to every device; device
// assembly (devices.go) fills in the peripherals afterward.
func newCore(d *DeviceDescriptor) *Core {
	c := &Core{
		Mem:       make([]byte, d.RAMEnd+1),
		Flash:     make([]uint16, d.FlashWords),
		EEPROM:    make([]byte, d.EEPROMSize),
		Frequency: 16_000_000,
		IO:        NewIODispatch(),
		Sched:     NewScheduler(0),
		Intr:      NewInterruptController(),
		Signals:   NewSignalBus(),
		Device:    d,
		log:       NewLogger(d.Name),
		BadOp:     NewSignal("core.bad_opcode", 0),
		state:     StateLimbo,
	}
	c.IO.RegisterWrite(d.SREGAddr, c.writeSREG)
	if d.Flash != nil {
		d.Flash.wire(c)
	}
	return c
}

// writeSREG handles a direct OUT/STS to SREG: the byte commits as
// written, but a 0->1 transition of the I-bit needs the same two-cycle
// acceptance latency SEI gets, so this keeps the interrupt controller
// in step the same way setI does for the BSET/BCLR path.
func (c *Core) writeSREG(addr uint16, v byte) {
	was := c.flag(SREG_I)
	c.Mem[addr] = v
	now := v&SREG_I != 0
	c.Intr.SetGlobalEnable(now)
	if now && !was {
		c.Intr.ArmLatency()
	}
}

// AddPeripheral registers a peripheral for Reset() to reach during
// Core.Reset, after it has already wired its own I/O and vectors.
func (c *Core) AddPeripheral(p Peripheral) {
	c.peripherals = append(c.peripherals, p)
}

// Ioctl dispatches a packed four-char code (IoctlTag) to every registered
// peripheral that implements Ioctler, in registration order, stopping at
// the first one that claims it - the Go shape of simavr/simavr/
// sim/sim_io.c's avr_ioctl() walk over avr->io_port.
func (c *Core) Ioctl(code uint32, arg any) (any, bool) {
	for _, p := range c.peripherals {
		if ioc, ok := p.(Ioctler); ok {
			if result, claimed := ioc.Ioctl(code, arg); claimed {
				return result, true
			}
		}
	}
	return nil, false
}

// Logger exposes the core's diagnostic logger so peripherals constructed
// outside this file can report warnings through the same sink.
func (c *Core) Logger() *Logger { return c.log }

// Cycles reports the master cycle counter.
func (c *Core) Cycles() uint64 { return c.cycles }

// Crashed reports the error that stopped the core, if any.
func (c *Core) Crashed() error { return c.crashed }

// Running reports whether Run is (or was last left) actively executing,
// safe to call from another goroutine while Run is in progress.
func (c *Core) Running() bool { return c.running.Load() }

// WatchFunc observes one data-space access for a debugger: the address,
// the byte read or written, and the direction.
type WatchFunc func(addr uint16, value byte, isWrite bool)

// Watch installs a debugger watch on one data-space address, fired on
// every ReadData/WriteData that touches it (after any peripheral
// handler has run, so the observed byte is what the access settled on).
func (c *Core) Watch(addr uint16, fn WatchFunc) {
	if c.watches == nil {
		c.watches = make(map[uint16]WatchFunc)
	}
	c.watches[addr] = fn
}

// Unwatch removes a previously-installed watch.
func (c *Core) Unwatch(addr uint16) { delete(c.watches, addr) }

// ReadData reads one byte of data space, consulting any peripheral read
// hook registered for that address before falling back to plain storage.
func (c *Core) ReadData(addr uint16) byte {
	v, ok := c.IO.Read(addr)
	if !ok {
		v = c.Mem[addr]
	}
	if w := c.watches[addr]; w != nil {
		w(addr, v, false)
	}
	return v
}

// WriteData writes one byte of data space the same way.
func (c *Core) WriteData(addr uint16, v byte) {
	if !c.IO.Write(addr, v) {
		c.Mem[addr] = v
	}
	if w := c.watches[addr]; w != nil {
		w(addr, c.Mem[addr], true)
	}
}

// R reads general-purpose register n (0-31).
func (c *Core) R(n byte) byte { return c.Mem[n] }

// SetR writes general-purpose register n.
func (c *Core) SetR(n, v byte) { c.Mem[n] = v }

// regPair reads a 16-bit little-endian register pair starting at n
// (n, n+1), used for X/Y/Z and the movw-addressable pairs.
func (c *Core) regPair(n byte) uint16 {
	return uint16(c.Mem[n]) | uint16(c.Mem[n+1])<<8
}

func (c *Core) setRegPair(n byte, v uint16) {
	c.Mem[n] = byte(v)
	c.Mem[n+1] = byte(v >> 8)
}

const (
	regX = 26
	regY = 28
	regZ = 30
)

func (c *Core) X() uint16     { return c.regPair(regX) }
func (c *Core) setX(v uint16) { c.setRegPair(regX, v) }
func (c *Core) Y() uint16     { return c.regPair(regY) }
func (c *Core) setY(v uint16) { c.setRegPair(regY, v) }
func (c *Core) Z() uint16     { return c.regPair(regZ) }
func (c *Core) setZ(v uint16) { c.setRegPair(regZ, v) }

// SP reads the stack pointer out of SPL/SPH (SPH may not exist on the
// smallest tinyAVR parts, which address all of RAM with one byte).
func (c *Core) SP() uint16 {
	lo := uint16(c.Mem[c.Device.SPLAddr])
	hi := uint16(0)
	if c.Device.SPHAddr != 0 {
		hi = uint16(c.Mem[c.Device.SPHAddr])
	}
	return hi<<8 | lo
}

func (c *Core) SetSP(v uint16) {
	c.Mem[c.Device.SPLAddr] = byte(v)
	if c.Device.SPHAddr != 0 {
		c.Mem[c.Device.SPHAddr] = byte(v >> 8)
	}
}

func (c *Core) pushByte(v byte) {
	sp := c.SP()
	c.Mem[sp] = v
	c.SetSP(sp - 1)
}

func (c *Core) popByte() byte {
	sp := c.SP() + 1
	c.SetSP(sp)
	return c.Mem[sp]
}

func (c *Core) pushPC() {
	pc := c.PC
	if c.Device.PCBytes == 3 {
		c.pushByte(byte(pc >> 16))
	}
	c.pushByte(byte(pc >> 8))
	c.pushByte(byte(pc))
}

func (c *Core) popPC() uint32 {
	lo := c.popByte()
	hi := c.popByte()
	pc := uint32(hi)<<8 | uint32(lo)
	if c.Device.PCBytes == 3 {
		top := c.popByte()
		pc |= uint32(top) << 16
	}
	return pc
}

// vectorAddr converts a vector number to the word index into c.Flash the
// core jumps to on acceptance. Device.VectorSize is bytes per vector table
// slot (2 for an RJMP table, 4 for a JMP table); PC in this core counts
// flash words, not bytes, so the byte offset is halved.
func (c *Core) vectorAddr(vectorNumber int) uint32 {
	return uint32(vectorNumber) * uint32(c.Device.VectorSize) / 2
}

// LoadProgram copies a flat little-endian byte image (as produced by
// avr-objcopy -O binary) into flash, word by word.
func (c *Core) LoadProgram(data []byte) error {
	if len(data) > len(c.Flash)*2 {
		return &LoadError{Detail: "image larger than flash", Err: &ConfigurationError{Device: c.Device.Name, Detail: "flash overflow"}}
	}
	for i := 0; i+1 < len(data); i += 2 {
		c.Flash[i/2] = uint16(data[i]) | uint16(data[i+1])<<8
	}
	if len(data)%2 == 1 {
		c.Flash[len(data)/2] = uint16(data[len(data)-1])
	}
	return nil
}

// Reset restores the core to its post-reset state: registers and SREG
// cleared, SP at the top of RAM, PC at 0, the interrupt controller and
// cycle scheduler cleared, and every attached peripheral's Reset called,
// matching avr_reset's sweep across every avr_io_t in simavr.
func (c *Core) Reset(cause uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.Mem {
		c.Mem[i] = 0
	}
	c.PC = 0
	c.cycles = 0
	c.state = StateStopped
	c.crashed = nil
	c.resetCause |= cause
	c.SetSP(uint16(c.Device.RAMEnd))

	// Drop every pending cycle timer along with the counter itself; a
	// peripheral whose timing should survive reset re-arms from its own
	// Reset hook.
	c.Sched = NewScheduler(0)
	c.Intr = NewInterruptController()
	for _, v := range c.Device.Vectors {
		c.Intr.RegisterVector(v.Number, v.Name)
	}

	for _, p := range c.peripherals {
		p.Reset()
	}
}

// ResetCause reports the accumulated reset-cause bits (MCUSR-equivalent)
// since the last time software cleared them.
func (c *Core) ResetCause() uint8 { return c.resetCause }

// ClearResetCause zeroes the accumulated reset-cause bits, the
// read-then-clear dance firmware does with MCUSR early in startup.
func (c *Core) ClearResetCause() { c.resetCause = 0 }

// Sleep puts the core into SLEEP: instruction fetch/execute pauses and
// Step instead fast-forwards the cycle counter to the next scheduled
// timer, until an interrupt becomes ready to service.
func (c *Core) Sleep() { c.state = StateSleeping }

func (c *Core) Sleeping() bool { return c.state == StateSleeping }

// State reports the core's lifecycle state.
func (c *Core) State() CoreState { return c.state }

// CyclesToUsec converts a cycle count to simulated microseconds at the
// configured clock frequency.
func (c *Core) CyclesToUsec(cycles uint64) uint64 {
	return cycles * 1_000_000 / c.Frequency
}

// UsecToCycles converts simulated microseconds to cycles.
func (c *Core) UsecToCycles(usec uint64) uint64 {
	return usec * c.Frequency / 1_000_000
}

// RegisterUsec schedules fn on the cycle scheduler a given number of
// simulated microseconds from now.
func (c *Core) RegisterUsec(usec uint64, fn CycleTimerFunc) (CycleTimerHandle, error) {
	return c.Sched.Register(c.UsecToCycles(usec), fn)
}

// Step executes exactly one unit of simulated time: if asleep, it
// fast-forwards to the next pending cycle timer or wakes on a ready
// interrupt; otherwise it services a ready interrupt or else fetches,
// decodes and executes one instruction, then advances the scheduler by
// the cycles it consumed.
func (c *Core) Step() error {
	if c.crashed != nil {
		return c.crashed
	}

	for _, p := range c.peripherals {
		if poller, ok := p.(Poller); ok {
			poller.Poll()
		}
	}

	if c.state == StateSleeping {
		if c.Intr.Ready() {
			c.state = StateRunning
		} else {
			when, ok := c.Sched.NextDue()
			if !ok {
				// Nothing scheduled and no interrupt can fire: no event
				// will ever end this sleep. A graceful end, not a crash.
				err := &SleepDeadlock{Cycle: c.cycles}
				c.state = StateDone
				c.crashed = err
				c.log.Warningf("sleep with no wake source at cycle %d, terminating", c.cycles)
				return err
			}
			delta := when - c.cycles
			if delta == 0 {
				delta = 1
			}
			if c.SleepFunc != nil {
				c.SleepFunc(delta)
			}
			c.cycles += delta
			c.Sched.Advance(delta)
			return nil
		}
	}

	if c.Intr.Ready() {
		vec := c.Intr.Accept()
		c.setFlag(SREG_I, false) // vector entry clears I; RETI or a later SEI restores it
		c.pushPC()
		c.PC = c.vectorAddr(vec)
		c.cycles += 4
		c.Sched.Advance(4)
		return nil
	}

	if c.PC >= uint32(len(c.Flash)) {
		err := &BadOpcode{PC: c.PC, Opcode: 0}
		c.state = StateCrashed
		c.crashed = err
		return err
	}

	op := c.Flash[c.PC]
	used, err := c.execute(op)
	if err != nil {
		if bad, ok := err.(*BadOpcode); ok {
			// Give the host's hook a chance to service the word as a
			// simulator escape. A hook that handled it advances PC past
			// the word; the core then continues as if it were a NOP.
			pcBefore := c.PC
			c.BadOp.Raise(uint32(bad.Opcode))
			if c.PC != pcBefore {
				c.cycles++
				c.Sched.Advance(1)
				c.Intr.Tick()
				return nil
			}
		}
		c.state = StateCrashed
		c.crashed = err
		return err
	}
	c.cycles += uint64(used)
	c.Sched.Advance(uint64(used))
	c.Intr.Tick()
	return nil
}

// Run steps the core until it has consumed at least maxCycles cycles (0
// means run until crashed/stopped) or Stop is called from another
// goroutine.
func (c *Core) Run(maxCycles uint64) error {
	c.running.Store(true)
	if c.state == StateStopped || c.state == StateLimbo {
		c.state = StateRunning
	}
	defer func() {
		c.running.Store(false)
		if c.state == StateRunning {
			c.state = StateStopped
		}
	}()

	start := c.cycles
	for {
		if !c.running.Load() {
			return nil
		}
		if maxCycles != 0 && c.cycles-start >= maxCycles {
			return nil
		}
		if err := c.Step(); err != nil {
			return err
		}
	}
}

// Stop requests that a concurrently-running Run return as soon as its
// current Step completes.
func (c *Core) Stop() { c.running.Store(false) }

// Snapshot is a read-only copy of the registers most debuggers care
// about, taken under the core's mutex so it can be read safely from a
// goroutine other than the one driving Run.
type Snapshot struct {
	PC     uint32
	SP     uint16
	SREG   byte
	Cycles uint64
	R      [32]byte
}

func (c *Core) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var s Snapshot
	s.PC = c.PC
	s.SP = c.SP()
	s.SREG = c.sreg()
	s.Cycles = c.cycles
	copy(s.R[:], c.Mem[0:32])
	return s
}
