// firmware.go - Firmware record intake, command and console registers

/*
The loaders themselves (ELF, Intel HEX) are external collaborators; what
this file owns is the record they produce - grounded on
simavr's sim_firmware.c elf_firmware_t and the
avr_load_firmware call that copies it into a live core - plus the two
magic I/O addresses simavr test firmware uses to talk to the host:
SIMAVR_COMMAND (one-byte opcodes from firmware to host) and
SIMAVR_CONSOLE (a byte-at-a-time line buffer flushed on carriage
return), per sim_avr.c's avr_command_register/avr_console handling.
*/

package avrcore

import (
	"io"
	"os"
)

// Firmware is the parsed representation a loader hands the core: the
// program image plus the optional chip metadata embedded alongside it.
type Firmware struct {
	ChipName  string
	Frequency uint64 // Hz; 0 keeps the device default

	Flash    []byte // little-endian program image
	LoadBase uint32 // byte address the image loads at, normally 0

	EEPROM   []byte
	Fuses    []byte
	Lockbits []byte

	// Rail voltages in millivolts; zero means unspecified.
	VccMillivolts, AVccMillivolts, ARefMillivolts uint32

	// CommandRegister/ConsoleRegister are data-space addresses the
	// firmware was built to signal the host through; zero disables each.
	CommandRegister uint16
	ConsoleRegister uint16

	// Traces names signals the host wants captured by an external VCD
	// tracer. Unmatched names are a soft warning, not an error.
	Traces []string
}

// Command opcodes firmware writes to the command register.
const (
	CmdVCDStart         = 0x01
	CmdVCDStop          = 0x02
	CmdUARTLoopback     = 0x03
	CmdCycleCountStart  = 0x04
	CmdCycleCountStop   = 0x05
	maxCommandSlots     = 32
)

// CommandFunc handles one command-register opcode.
type CommandFunc func(c *Core)

// hostBridge carries the command/console plumbing for one core.
type hostBridge struct {
	c *Core

	commands [maxCommandSlots]CommandFunc

	consoleBuf []byte
	// ConsoleOut receives flushed console lines; defaults to stdout.
	ConsoleOut io.Writer

	// VCD is raised 1/0 by the start/stop trace commands for an external
	// tracer to subscribe to.
	VCD *Signal

	cycleCountStart uint64
	// CycleCounts accumulates the start/stop command pairs' measured
	// spans, readable by the host after the run.
	CycleCounts []uint64
}

func (h *hostBridge) Name() string { return "hostbridge" }
func (h *hostBridge) Reset() {
	h.consoleBuf = h.consoleBuf[:0]
	h.cycleCountStart = 0
}

// bridge lazily attaches the host bridge to a core.
func (c *Core) bridge() *hostBridge {
	if c.host == nil {
		c.host = &hostBridge{
			c:          c,
			ConsoleOut: os.Stdout,
			VCD:        NewSignal("core.vcd", 0),
		}
		c.AddPeripheral(c.host)
	}
	return c.host
}

// RegisterCommand installs a host handler for one command-register
// opcode; slots above the built-in five are free for harness use.
func (c *Core) RegisterCommand(opcode byte, fn CommandFunc) {
	if int(opcode) >= maxCommandSlots {
		c.log.Warningf("command opcode 0x%02x beyond the %d available slots, ignored", opcode, maxCommandSlots)
		return
	}
	c.bridge().commands[opcode] = fn
}

// ConfigureCommandRegister wires addr as the firmware-to-host command
// register, installing the built-in opcode handlers.
func (c *Core) ConfigureCommandRegister(addr uint16) {
	if addr == 0 {
		return
	}
	h := c.bridge()
	h.commands[CmdVCDStart] = func(c *Core) { h.VCD.Raise(1) }
	h.commands[CmdVCDStop] = func(c *Core) { h.VCD.Raise(0) }
	h.commands[CmdUARTLoopback] = func(c *Core) {
		for _, p := range c.peripherals {
			if u, ok := p.(*UART); ok {
				u.Loopback = true
				break
			}
		}
	}
	h.commands[CmdCycleCountStart] = func(c *Core) { h.cycleCountStart = c.cycles }
	h.commands[CmdCycleCountStop] = func(c *Core) {
		h.CycleCounts = append(h.CycleCounts, c.cycles-h.cycleCountStart)
	}
	c.IO.RegisterWrite(addr, func(_ uint16, v byte) {
		if int(v) < maxCommandSlots && h.commands[v] != nil {
			h.commands[v](c)
			return
		}
		c.log.Warningf("unhandled command 0x%02x", v)
	})
}

// ConfigureConsoleRegister wires addr as a byte-at-a-time console:
// writes accumulate into a line buffer that a carriage return flushes
// to the host's standard output (or wherever SetConsoleOutput points).
func (c *Core) ConfigureConsoleRegister(addr uint16) {
	if addr == 0 {
		return
	}
	h := c.bridge()
	c.IO.RegisterWrite(addr, func(_ uint16, v byte) {
		if v == '\r' || v == '\n' {
			if len(h.consoleBuf) > 0 {
				h.consoleBuf = append(h.consoleBuf, '\n')
				h.ConsoleOut.Write(h.consoleBuf)
				h.consoleBuf = h.consoleBuf[:0]
			}
			return
		}
		h.consoleBuf = append(h.consoleBuf, v)
	})
}

// SetConsoleOutput redirects flushed console lines, mainly for tests.
func (c *Core) SetConsoleOutput(w io.Writer) { c.bridge().ConsoleOut = w }

// VCDControl exposes the trace start/stop signal the command register
// drives, for an external tracer to hook.
func (c *Core) VCDControl() *Signal { return c.bridge().VCD }

// CycleCounts reports the spans measured by the cycle-count command
// pairs so far.
func (c *Core) CycleCounts() []uint64 { return c.bridge().CycleCounts }

// LoadFirmware populates the core from a parsed firmware record: flash
// image, EEPROM preload, frequency, and the host-bridge registers. The
// chip itself must already have been assembled to match f.ChipName;
// NewFromFirmware does both in one step.
func (c *Core) LoadFirmware(f *Firmware) error {
	if len(f.Flash) > 0 {
		if f.LoadBase%2 != 0 {
			return &LoadError{Detail: "firmware load base must be word-aligned"}
		}
		if int(f.LoadBase)+len(f.Flash) > len(c.Flash)*2 {
			return &LoadError{Detail: "image larger than flash", Err: &ConfigurationError{Device: c.Device.Name, Detail: "flash overflow"}}
		}
		base := f.LoadBase / 2
		for i := 0; i+1 < len(f.Flash); i += 2 {
			c.Flash[base+uint32(i)/2] = uint16(f.Flash[i]) | uint16(f.Flash[i+1])<<8
		}
		if len(f.Flash)%2 == 1 {
			c.Flash[base+uint32(len(f.Flash))/2] = uint16(f.Flash[len(f.Flash)-1])
		}
	}
	if len(f.EEPROM) > 0 {
		copy(c.EEPROM, f.EEPROM)
	}
	if f.Frequency != 0 {
		c.Frequency = f.Frequency
	}
	c.ConfigureCommandRegister(f.CommandRegister)
	c.ConfigureConsoleRegister(f.ConsoleRegister)
	for _, name := range f.Traces {
		if c.Signals.Find(name) == nil {
			c.log.Warningf("trace target %q matches no signal on %s", name, c.Device.Name)
		}
	}
	return nil
}
