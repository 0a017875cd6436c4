package system

import (
	"bytes"
	"log"
	"regexp"
	"strings"
	"testing"

	"gones/internal/cartridge"
)

func mustCartridge(t *testing.T, config cartridge.TestROMConfig) *cartridge.Cartridge {
	t.Helper()
	data, err := cartridge.GenerateTestROM(config)
	if err != nil {
		t.Fatalf("GenerateTestROM: %v", err)
	}
	cart, err := cartridge.LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cart
}

func TestStepAdvancesPPUThreeTimesPerCPUCycle(t *testing.T) {
	sys := New()
	cart := mustCartridge(t, cartridge.TestROMConfig{PRGSize: 2, CHRSize: 1, MapperID: 0, ResetVector: 0x8000})
	cart.WritePRG(0x8000, 0xEA) // ignored by NROM: $8000 stays $00 (BRK)
	sys.LoadCartridge(cart)

	startCPU := sys.GetCycleCount()
	startPPU := sys.PPU.GetCycleCount()

	sys.Step()

	cpuDelta := sys.GetCycleCount() - startCPU
	ppuDelta := sys.PPU.GetCycleCount() - startPPU

	if cpuDelta == 0 {
		t.Fatal("expected CPU cycles to advance")
	}
	if ppuDelta != cpuDelta*3 {
		t.Errorf("PPU cycles = %d, want %d (3x CPU delta %d)", ppuDelta, cpuDelta*3, cpuDelta)
	}
}

func TestOAMDMAStallsCPUFor513Or514Cycles(t *testing.T) {
	sys := New()
	cart := mustCartridge(t, cartridge.TestROMConfig{PRGSize: 2, CHRSize: 1, MapperID: 0, ResetVector: 0x8000})
	sys.LoadCartridge(cart)

	startCycles := sys.cpuCycles
	sys.TriggerOAMDMA(0x02)

	if !sys.IsDMAInProgress() {
		t.Fatal("expected DMA to be in progress immediately after trigger")
	}

	steps := 0
	for sys.IsDMAInProgress() {
		sys.Step()
		steps++
		if steps > 1000 {
			t.Fatal("DMA never completed")
		}
	}

	elapsed := sys.cpuCycles - startCycles
	if elapsed != 513 && elapsed != 514 {
		t.Errorf("DMA stall took %d cycles, want 513 or 514", elapsed)
	}
}

func TestNMIServicedOneInstructionAfterPulse(t *testing.T) {
	sys := New()
	cart := mustCartridge(t, cartridge.TestROMConfig{PRGSize: 2, CHRSize: 1, MapperID: 0, ResetVector: 0x8000})
	sys.LoadCartridge(cart)
	// PRG ROM ignores writes, so the NOPs run from RAM at $0000
	sys.Memory.Write(0x0000, 0xEA)
	sys.Memory.Write(0x0001, 0xEA)
	sys.Memory.Write(0x0002, 0xEA)
	sys.CPU.PC = 0x0000

	sys.triggerNMI()
	if !sys.nmiPending {
		t.Fatal("expected nmiPending to be set")
	}

	spBefore := sys.CPU.SP
	sys.Step()

	if sys.nmiPending {
		t.Error("expected nmiPending to be cleared after the step that services it")
	}
	// Servicing an NMI pushes PC (2 bytes) and status (1 byte), so SP must
	// drop by 3 regardless of where the handler vector redirects PC to.
	if sys.CPU.SP != spBefore-3 {
		t.Errorf("SP after NMI servicing = %02X, want %02X", sys.CPU.SP, spBefore-3)
	}
}

func TestLoadCartridgeConvertsMirrorMode(t *testing.T) {
	sys := New()
	cart := mustCartridge(t, cartridge.TestROMConfig{
		PRGSize: 2, CHRSize: 1, MapperID: 0,
		Mirroring:   cartridge.MirrorVertical,
		ResetVector: 0x8000,
	})
	sys.LoadCartridge(cart)

	if sys.ppuMem == nil {
		t.Fatal("expected PPU memory to be set after LoadCartridge")
	}
}

func TestWatchpointFiresOnChange(t *testing.T) {
	sys := New()
	cart := mustCartridge(t, cartridge.TestROMConfig{PRGSize: 2, CHRSize: 1, MapperID: 0, ResetVector: 0x8000})
	sys.LoadCartridge(cart)

	var fired bool
	var lastValue uint8
	sys.AddWatchpoint(0x0010, func(kind WatchKind, addr uint16, value uint8) {
		fired = true
		lastValue = value
	})

	sys.Memory.Write(0x0010, 0x42)
	sys.CheckWatchpoints()

	if !fired {
		t.Fatal("expected watchpoint callback to fire after value changed")
	}
	if lastValue != 0x42 {
		t.Errorf("watchpoint value = %02X, want 42", lastValue)
	}

	fired = false
	sys.CheckWatchpoints()
	if fired {
		t.Error("watchpoint should not fire again without a further change")
	}

	sys.RemoveWatchpoint(0x0010)
	sys.Memory.Write(0x0010, 0x99)
	sys.CheckWatchpoints()
	if fired {
		t.Error("removed watchpoint should not fire")
	}
}

func TestSaveStateRoundTrip(t *testing.T) {
	sys := New()
	cart := mustCartridge(t, cartridge.TestROMConfig{PRGSize: 2, CHRSize: 1, MapperID: 1, HasBattery: true, ResetVector: 0x8000})
	cart.WritePRG(0x8000, 0xEA)
	sys.LoadCartridge(cart)

	for i := 0; i < 50; i++ {
		sys.Step()
	}
	sys.Memory.Write(0x0020, 0xAB)

	blob, err := sys.SaveState()
	if err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	sys2 := New()
	sys2.LoadCartridge(mustCartridge(t, cartridge.TestROMConfig{PRGSize: 2, CHRSize: 1, MapperID: 1, HasBattery: true, ResetVector: 0x8000}))
	if err := sys2.LoadState(blob); err != nil {
		t.Fatalf("LoadState: %v", err)
	}

	if sys2.CPU.PC != sys.CPU.PC {
		t.Errorf("restored PC = %04X, want %04X", sys2.CPU.PC, sys.CPU.PC)
	}
	if sys2.GetCycleCount() != sys.GetCycleCount() {
		t.Errorf("restored cycle count = %d, want %d", sys2.GetCycleCount(), sys.GetCycleCount())
	}
	if got := sys2.Memory.Read(0x0020); got != 0xAB {
		t.Errorf("restored RAM byte = %02X, want AB", got)
	}
}

func TestTraceLineIncludesPPUColumnBetweenSPAndCYC(t *testing.T) {
	sys := New()
	cart := mustCartridge(t, cartridge.TestROMConfig{PRGSize: 2, CHRSize: 1, MapperID: 0, ResetVector: 0x8000})
	cart.WritePRG(0x8000, 0xEA) // ignored by NROM: $8000 stays $00 (BRK)
	cart.WritePRG(0x8001, 0xEA) // ignored by NROM
	sys.LoadCartridge(cart)

	var buf bytes.Buffer
	sys.SetTraceLogger(log.New(&buf, "", 0))

	sys.Step()
	sys.Step()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatal("expected at least one trace line")
	}

	lineRE := regexp.MustCompile(
		`^[0-9A-F]{4}  .+ A:[0-9A-F]{2} X:[0-9A-F]{2} Y:[0-9A-F]{2} P:[0-9A-F]{2} SP:[0-9A-F]{2} PPU:\s*\d+,\s*\d+ CYC:\d+$`)
	for _, line := range lines {
		if !lineRE.MatchString(line) {
			t.Fatalf("trace line %q does not match expected column layout", line)
		}
	}

	spIdx := strings.Index(lines[0], "SP:")
	ppuIdx := strings.Index(lines[0], "PPU:")
	cycIdx := strings.Index(lines[0], "CYC:")
	if !(spIdx < ppuIdx && ppuIdx < cycIdx) {
		t.Fatalf("expected column order SP < PPU < CYC, got SP@%d PPU@%d CYC@%d", spIdx, ppuIdx, cycIdx)
	}
}

func TestLoadStateRejectsBadMagic(t *testing.T) {
	sys := New()
	sys.LoadCartridge(mustCartridge(t, cartridge.TestROMConfig{PRGSize: 1, CHRSize: 1, MapperID: 0, ResetVector: 0x8000}))
	if err := sys.LoadState([]byte("not a save state")); err == nil {
		t.Fatal("expected error for malformed save-state data")
	}
}
