package ppu

import (
	"testing"

	"gones/internal/memory"
)

// mockCartridge is a minimal CHR-RAM-backed cartridge for PPU tests.
type mockCartridge struct {
	chr [0x2000]uint8
	prg [0x8000]uint8
}

func (c *mockCartridge) ReadPRG(address uint16) uint8 {
	return c.prg[address%uint16(len(c.prg))]
}
func (c *mockCartridge) WritePRG(address uint16, value uint8) {}
func (c *mockCartridge) ReadCHR(address uint16) uint8 {
	return c.chr[address%0x2000]
}
func (c *mockCartridge) WriteCHR(address uint16, value uint8) {
	c.chr[address%0x2000] = value
}

func newTestPPU() *PPU {
	p := New()
	mem := memory.NewPPUMemory(&mockCartridge{}, memory.MirrorVertical)
	p.SetMemory(mem)
	return p
}

func TestReset(t *testing.T) {
	p := newTestPPU()
	p.Reset()

	if p.ppuStatus != 0xA0 {
		t.Errorf("ppuStatus after reset = %02X, want A0", p.ppuStatus)
	}
	if p.scanline != -1 || p.cycle != 0 {
		t.Errorf("scanline/cycle after reset = %d/%d, want -1/0", p.scanline, p.cycle)
	}
}

func TestPPUSTATUSClearsVBLAndLatch(t *testing.T) {
	p := newTestPPU()
	p.Reset()
	p.ppuStatus |= 0x80
	p.w = true

	status := p.ReadRegister(0x2002)
	if status&0x80 == 0 {
		t.Fatal("expected VBL flag set in returned status")
	}
	if p.ppuStatus&0x80 != 0 {
		t.Error("VBL flag should be cleared after PPUSTATUS read")
	}
	if p.w {
		t.Error("write latch should be cleared after PPUSTATUS read")
	}
}

func TestVBlankSetAtScanline241Cycle1(t *testing.T) {
	p := newTestPPU()
	p.Reset()
	p.scanline = 241
	p.cycle = 0

	p.Step()

	if !p.IsVBlank() {
		t.Error("expected VBL flag set at (241,1)")
	}
}

// S3-equivalent: VBL and sprite flags clear together at the pre-render line,
// not at VBlank start (spec.md invariant #3; the teacher cleared these at
// (241,1), which this repository fixes).
func TestFlagsClearAtPreRenderLine(t *testing.T) {
	p := newTestPPU()
	p.Reset()
	p.ppuStatus = 0xE0 // VBL + sprite0hit + overflow all set
	p.sprite0Hit = true
	p.spriteOverflow = true
	p.scanline = -1
	p.cycle = 0

	p.Step()

	if p.ppuStatus&0xE0 != 0 {
		t.Errorf("expected VBL/sprite0/overflow cleared at pre-render (-1,1), got %02X", p.ppuStatus)
	}
	if p.sprite0Hit || p.spriteOverflow {
		t.Error("expected internal sprite flags cleared at pre-render line")
	}
}

func TestOddFrameSkipsDot339OnPreRenderLineWhenRenderingEnabled(t *testing.T) {
	p := newTestPPU()
	p.Reset()
	p.renderingEnabled = true
	p.oddFrame = true
	p.scanline = -1
	p.cycle = 338

	p.Step()
	if p.cycle != 340 {
		t.Errorf("cycle after stepping from 338 = %d, want 340 (339 skipped)", p.cycle)
	}
}

func TestEvenFrameDoesNotSkipDot339OnPreRenderLine(t *testing.T) {
	p := newTestPPU()
	p.Reset()
	p.renderingEnabled = true
	p.oddFrame = false
	p.scanline = -1
	p.cycle = 338

	p.Step()
	if p.cycle != 339 {
		t.Errorf("cycle after stepping from 338 = %d, want 339 (no skip on even frame)", p.cycle)
	}
}

func TestOddFrameSkipDoesNotApplyWhenRenderingDisabled(t *testing.T) {
	p := newTestPPU()
	p.Reset()
	p.renderingEnabled = false
	p.oddFrame = true
	p.scanline = -1
	p.cycle = 338

	p.Step()
	if p.cycle != 339 {
		t.Errorf("cycle after stepping from 338 = %d, want 339 (no skip when rendering disabled)", p.cycle)
	}
}

func TestNMIFiresOnVBlankWhenEnabled(t *testing.T) {
	p := newTestPPU()
	p.Reset()
	fired := false
	p.SetNMICallback(func() { fired = true })
	p.ppuCtrl = 0x80 // NMI enable
	p.scanline = 241
	p.cycle = 0

	p.Step()

	if !fired {
		t.Error("expected NMI callback to fire at VBlank start with NMI enabled")
	}
}

func TestScrollRegisterWrites(t *testing.T) {
	p := newTestPPU()
	p.Reset()

	p.WriteRegister(0x2005, 0x7D) // X scroll
	p.WriteRegister(0x2005, 0x5E) // Y scroll

	if p.x != 0x05 {
		t.Errorf("fine X = %d, want 5", p.x)
	}
	// $2005 writes load t; v only picks them up at copyX or a $2006 write
	if int(p.t&0x001F) != 0x7D>>3 {
		t.Errorf("coarse X in t = %d, want %d", p.t&0x001F, 0x7D>>3)
	}
}

func TestPPUADDRLatchesVRAMAddress(t *testing.T) {
	p := newTestPPU()
	p.Reset()

	p.WriteRegister(0x2006, 0x23)
	p.WriteRegister(0x2006, 0x45)

	if p.v != 0x2345 {
		t.Errorf("v = %04X, want 2345", p.v)
	}
}

func TestPPUDATAReadIsBuffered(t *testing.T) {
	p := newTestPPU()
	p.Reset()
	p.memory.Write(0x2345, 0xAB)

	p.WriteRegister(0x2006, 0x23)
	p.WriteRegister(0x2006, 0x45)

	first := p.ReadRegister(0x2007)
	if first == 0xAB {
		t.Error("first $2007 read should return the stale buffer, not the fresh byte")
	}
	second := p.ReadRegister(0x2007)
	// Address auto-increments by 1 between reads, so the second read returns
	// whatever was buffered from 0x2345 — still 0xAB since we wrote there.
	if second != 0xAB {
		t.Errorf("second $2007 read = %02X, want AB", second)
	}
}

func TestPPUDATAPaletteReadIsNotBuffered(t *testing.T) {
	p := newTestPPU()
	p.Reset()
	p.memory.Write(0x3F00, 0x30)

	p.WriteRegister(0x2006, 0x3F)
	p.WriteRegister(0x2006, 0x00)

	data := p.ReadRegister(0x2007)
	if data != 0x30 {
		t.Errorf("palette $2007 read = %02X, want 30 (unbuffered)", data)
	}
}

func TestSpriteEvaluationRespects8SpriteLimit(t *testing.T) {
	p := newTestPPU()
	p.Reset()
	p.ppuMask = 0x10 // sprites enabled

	for i := 0; i < 9; i++ {
		base := i * 4
		p.oam[base] = 10 // Y, visible on scanline 11
		p.oam[base+1] = uint8(i)
		p.oam[base+2] = 0
		p.oam[base+3] = uint8(i * 8)
	}

	p.scanline = 11
	p.evaluateSprites()

	if p.spriteCount != 8 {
		t.Errorf("spriteCount = %d, want 8", p.spriteCount)
	}
	if !p.spriteOverflow {
		t.Error("expected sprite overflow flag set for a 9th sprite on one scanline")
	}
}

func TestIncrementXWrapsNametable(t *testing.T) {
	p := newTestPPU()
	p.v = 0x001F // coarse X = 31

	p.incrementX()

	if p.v&0x001F != 0 {
		t.Errorf("coarse X after wrap = %d, want 0", p.v&0x001F)
	}
	if p.v&0x0400 == 0 {
		t.Error("expected horizontal nametable bit toggled on coarse X wrap")
	}
}

func TestPaletteConversionBounds(t *testing.T) {
	if Palette(64) != 0 {
		t.Error("Palette should return 0 for out-of-range indices")
	}
	if Palette(0x20) != 0xFFFEFF {
		t.Errorf("Palette(0x20) = %06X, want FFFEFF", Palette(0x20))
	}
}
