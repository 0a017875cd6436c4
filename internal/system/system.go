// Package system wires the CPU, PPU, APU, input, and cartridge together and
// drives them in lockstep.
package system

import (
	"log"

	"gones/internal/apu"
	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/input"
	"gones/internal/memory"
	"gones/internal/ppu"
)

// WatchKind identifies the kind of memory access a watchpoint observed.
type WatchKind int

const (
	WatchRead WatchKind = iota
	WatchWrite
)

type watchpoint struct {
	previous uint8
	onAccess func(kind WatchKind, addr uint16, value uint8)
}

// System connects all NES components together and owns the master clock.
type System struct {
	CPU       *cpu.CPU
	PPU       *ppu.PPU
	APU       *apu.APU
	Memory    *memory.Memory
	Input     *input.InputState
	Cartridge *cartridge.Cartridge

	ppuMem *memory.PPUMemory

	cpuCycles  uint64
	frameCount uint64

	dmaSuspendCycles uint64
	dmaInProgress    bool
	nmiPending       bool

	watchpoints map[uint16]*watchpoint

	trace *log.Logger
}

// New creates a new system with all components wired together but no
// cartridge loaded.
func New() *System {
	s := &System{
		PPU:         ppu.New(),
		APU:         apu.New(),
		Input:       input.NewInputState(),
		watchpoints: make(map[uint16]*watchpoint),
	}

	s.Memory = memory.New(s.PPU, s.APU, nil)
	s.Memory.SetInputSystem(s.Input)
	s.CPU = cpu.New(s.Memory)

	s.PPU.SetNMICallback(s.triggerNMI)
	s.PPU.SetFrameCompleteCallback(s.handleFrameComplete)
	s.Memory.SetDMACallback(s.TriggerOAMDMA)

	s.Reset()
	return s
}

// SetTraceLogger installs a logger forwarded to the CPU, PPU, and input
// subsystems for combined instruction/PPU-event/controller tracing. The
// CPU's trace lines get their PPU:scanline,dot column from s.PPU directly,
// so a single instruction's trace line reflects PPU state at the same
// instant rather than requiring the caller to interleave two logs.
func (s *System) SetTraceLogger(logger *log.Logger) {
	s.trace = logger
	s.CPU.SetTraceLogger(logger)
	s.CPU.SetPPUStateFunc(s.PPU.ScanlineAndDot)
	s.PPU.SetTraceLogger(logger)
	s.Input.SetTraceLogger(logger)
}

// Reset resets all components to their power-up state.
func (s *System) Reset() {
	s.CPU.Reset()
	s.PPU.Reset()
	s.APU.Reset()
	s.Input.Reset()

	s.cpuCycles = 0
	s.frameCount = 0
	s.dmaSuspendCycles = 0
	s.dmaInProgress = false
	s.nmiPending = false
}

func (s *System) triggerNMI() {
	s.nmiPending = true
}

func (s *System) handleFrameComplete() {
	s.frameCount = s.PPU.GetFrameCount()
}

// Step executes one CPU instruction (or one DMA-stall cycle) and advances
// the PPU 3x and the APU 1x per CPU cycle consumed, matching real NES
// clock ratios.
func (s *System) Step() {
	var cpuCycles uint64

	if s.dmaSuspendCycles > 0 {
		cpuCycles = 1
		s.dmaSuspendCycles--
		if s.dmaSuspendCycles == 0 {
			s.dmaInProgress = false
		}
	} else {
		if s.nmiPending {
			// A true->false pulse latches the edge-triggered NMI line; the
			// CPU services it at the end of the Step that follows.
			s.CPU.SetNMI(true)
			s.CPU.SetNMI(false)
			s.nmiPending = false
		}
		if s.Cartridge != nil {
			s.Cartridge.SetCPUCycle(s.CPU.Cycles())
		}
		cpuCycles = s.CPU.Step()
	}

	for i := uint64(0); i < cpuCycles*3; i++ {
		s.PPU.Step()
	}
	for i := uint64(0); i < cpuCycles; i++ {
		s.APU.Step()
	}

	// The APU frame counter and DMC channel drive the CPU's level-triggered
	// IRQ line; either flag being set holds the line low until the CPU
	// services the interrupt or $4015/$4010 clears the flag that set it.
	s.CPU.SetIRQ(s.APU.GetFrameIRQ() || s.APU.GetDMCIRQ())

	s.cpuCycles += cpuCycles
}

// TriggerOAMDMA performs a 256-byte OAM DMA transfer from the given CPU
// page, stalling the CPU for 513 or 514 cycles depending on alignment.
func (s *System) TriggerOAMDMA(sourcePage uint8) {
	if s.dmaInProgress {
		return
	}

	dmaCycles := uint64(513)
	if s.cpuCycles%2 == 1 {
		dmaCycles = 514
	}
	s.dmaInProgress = true
	s.dmaSuspendCycles = dmaCycles

	sourceAddress := uint16(sourcePage) << 8
	for i := 0; i < 256; i++ {
		data := s.Memory.Read(sourceAddress + uint16(i))
		s.PPU.WriteOAM(uint8(i), data)
	}
}

// LoadCartridge loads a cartridge into the system, rebuilding the memory
// map and resetting the CPU to start execution at the reset vector.
func (s *System) LoadCartridge(cart *cartridge.Cartridge) {
	s.Cartridge = cart
	s.Memory = memory.New(s.PPU, s.APU, cart)
	s.Memory.SetInputSystem(s.Input)
	s.CPU = cpu.New(s.Memory)
	if s.trace != nil {
		s.CPU.SetTraceLogger(s.trace)
		s.CPU.SetPPUStateFunc(s.PPU.ScanlineAndDot)
	}

	var mirrorMode memory.MirrorMode
	switch cart.GetMirrorMode() {
	case cartridge.MirrorHorizontal:
		mirrorMode = memory.MirrorHorizontal
	case cartridge.MirrorVertical:
		mirrorMode = memory.MirrorVertical
	case cartridge.MirrorSingleScreen0:
		mirrorMode = memory.MirrorSingleScreen0
	case cartridge.MirrorSingleScreen1:
		mirrorMode = memory.MirrorSingleScreen1
	case cartridge.MirrorFourScreen:
		mirrorMode = memory.MirrorFourScreen
	default:
		mirrorMode = memory.MirrorHorizontal
	}

	s.ppuMem = memory.NewPPUMemory(cart, mirrorMode)
	s.PPU.SetMemory(s.ppuMem)
	s.PPU.SetNMICallback(s.triggerNMI)
	s.Memory.SetDMACallback(s.TriggerOAMDMA)

	s.CPU.Reset()
}

// Run runs the emulator for a specified number of frames.
func (s *System) Run(frames int) {
	target := s.frameCount + uint64(frames)
	for s.frameCount < target {
		s.Step()
	}
}

// RunCycles runs the emulator for a specified number of CPU cycles.
func (s *System) RunCycles(cycles uint64) {
	target := s.cpuCycles + cycles
	for s.cpuCycles < target {
		s.Step()
	}
}

// Frame runs one NTSC frame's worth of CPU cycles (29,781, one third of
// the PPU's 89,342 cycles/frame).
func (s *System) Frame() {
	target := s.cpuCycles + 29781
	for s.cpuCycles < target {
		s.Step()
	}
}

// GetFrameRate returns the NTSC frame rate in frames per second.
func (s *System) GetFrameRate() float64 {
	const cpuFrequency = 1789773.0
	const cpuCyclesPerFrame = 29780.67
	return cpuFrequency / cpuCyclesPerFrame
}

// GetFrameBuffer returns the current frame, one NES palette index
// (0-63) per pixel, row-major 256x240. Use ppu.Palette to convert to RGB.
func (s *System) GetFrameBuffer() []uint8 {
	buf := s.PPU.GetFrameBuffer()
	return buf[:]
}

// GetAudioSamples returns and clears the buffered audio samples.
func (s *System) GetAudioSamples() []float32 {
	return s.APU.GetSamples()
}

// SetAudioSampleRate sets the target audio sample rate for the APU.
func (s *System) SetAudioSampleRate(rate int) {
	s.APU.SetSampleRate(rate)
}

// GetCycleCount returns the total elapsed CPU cycle count.
func (s *System) GetCycleCount() uint64 {
	return s.cpuCycles
}

// GetFrameCount returns the current frame count.
func (s *System) GetFrameCount() uint64 {
	return s.frameCount
}

// IsDMAInProgress returns whether an OAM DMA transfer is currently stalling
// the CPU.
func (s *System) IsDMAInProgress() bool {
	return s.dmaInProgress
}

// SetControllerButton sets the state of a single controller button.
// Controller indices 0 and 1 both address port 1, matching the teacher's
// tolerance for either 0- or 1-based caller indexing; 2 addresses port 2.
func (s *System) SetControllerButton(controller int, button input.Button, pressed bool) {
	switch controller {
	case 0, 1:
		s.Input.Controller1.SetButton(button, pressed)
	case 2:
		s.Input.Controller2.SetButton(button, pressed)
	}
}

// SetControllerButtons sets all eight button states for a controller port.
func (s *System) SetControllerButtons(controller int, buttons [8]bool) {
	switch controller {
	case 0, 1:
		s.Input.SetButtons1(buttons)
	case 2:
		s.Input.SetButtons2(buttons)
	}
}

// GetInputState returns the input state for direct access.
func (s *System) GetInputState() *input.InputState {
	return s.Input
}

// AddWatchpoint registers addr for change monitoring: onAccess fires from
// CheckWatchpoints whenever addr's value has changed since the last check.
// Unlike the teacher's hardcoded Super-Mario-Bros-specific address table
// (Mario's position, coin counter, score digits), this carries no
// ROM-specific addresses; callers supply their own.
func (s *System) AddWatchpoint(addr uint16, onAccess func(kind WatchKind, addr uint16, value uint8)) {
	s.watchpoints[addr] = &watchpoint{previous: s.Memory.Read(addr), onAccess: onAccess}
}

// RemoveWatchpoint unregisters a previously added watchpoint.
func (s *System) RemoveWatchpoint(addr uint16) {
	delete(s.watchpoints, addr)
}

// CheckWatchpoints polls every registered watchpoint and fires onAccess for
// any address whose value changed since the last call. Intended to be
// polled by the caller once per frame or so, not every CPU step.
func (s *System) CheckWatchpoints() {
	for addr, wp := range s.watchpoints {
		current := s.Memory.Read(addr)
		if current != wp.previous {
			wp.onAccess(WatchWrite, addr, current)
			wp.previous = current
		}
	}
}
