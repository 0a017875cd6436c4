// Package ppu implements the Picture Processing Unit for the NES.
package ppu

import (
	"log"

	"gones/internal/memory"
)

// PPU represents the NES Picture Processing Unit (2C02)
type PPU struct {
	// PPU Registers (CPU-visible)
	ppuCtrl   uint8 // $2000 - PPUCTRL
	ppuMask   uint8 // $2001 - PPUMASK
	ppuStatus uint8 // $2002 - PPUSTATUS
	oamAddr   uint8 // $2003 - OAMADDR
	oamData   uint8 // $2004 - OAMDATA (read/write buffer)
	ppuScroll uint8 // $2005 - PPUSCROLL (write buffer)
	ppuAddr   uint8 // $2006 - PPUADDR (write buffer)
	ppuData   uint8 // $2007 - PPUDATA (read/write buffer)

	// Internal PPU State (loopy registers)
	v uint16 // Current VRAM address (15 bits)
	t uint16 // Temporary VRAM address (15 bits) - address latch
	x uint8  // Fine X scroll (3 bits)
	w bool   // Write latch (toggles between first/second write)

	// PPU Memory
	memory *memory.PPUMemory

	// Rendering State
	scanline   int // Current scanline (-1 to 260, -1 is pre-render)
	cycle      int // Current cycle (0 to 340)
	frameCount uint64
	oddFrame   bool
	readBuffer uint8 // PPU read buffer for $2007

	// Background shift-register pipeline (SPEC_FULL.md sec 3)
	bgPatternShiftLow  uint16
	bgPatternShiftHigh uint16
	bgAttribShiftLow   uint16
	bgAttribShiftHigh  uint16

	nextTileID      uint8
	nextAttribute   uint8
	nextPatternLow  uint8
	nextPatternHigh uint8

	// Sprite Data
	oam            [256]uint8 // Object Attribute Memory
	secondaryOAM   [32]uint8  // Secondary OAM for current scanline
	spriteIndexes  [8]uint8   // Original sprite indices for secondary OAM entries
	spriteCount    uint8      // Number of sprites on current scanline
	sprite0Hit     bool       // Sprite 0 hit flag
	spriteOverflow bool       // Sprite overflow flag
	sprite0OnLine  bool       // True if sprite 0 is present on current scanline

	// Frame Buffer: one 6-bit NES palette index per pixel (SPEC_FULL.md sec 3).
	// RGB conversion is a host-side concern; see Palette().
	frameBuffer [256 * 240]uint8

	// Callbacks
	nmiCallback           func()
	frameCompleteCallback func()

	// Rendering Control
	backgroundEnabled bool
	spritesEnabled    bool
	renderingEnabled  bool

	// Timing
	cycleCount uint64

	// trace receives one line per PPUSTATUS read and VBlank/sprite-0-hit edge
	// when non-nil.
	trace *log.Logger
}

// New creates a new PPU instance
func New() *PPU {
	return &PPU{
		scanline:   -1, // Start at pre-render scanline
		cycle:      0,
		frameCount: 0,
		oddFrame:   false,
	}
}

// Reset resets the PPU to initial state
func (p *PPU) Reset() {
	p.ppuCtrl = 0
	p.ppuMask = 0
	p.ppuStatus = 0xA0 // VBL flag set, sprite overflow and sprite 0 hit clear
	p.oamAddr = 0
	p.oamData = 0
	p.ppuScroll = 0
	p.ppuAddr = 0
	p.ppuData = 0

	p.v = 0
	p.t = 0
	p.x = 0
	p.w = false

	p.scanline = -1
	p.cycle = 0
	p.frameCount = 0
	p.oddFrame = false
	p.readBuffer = 0

	p.bgPatternShiftLow = 0
	p.bgPatternShiftHigh = 0
	p.bgAttribShiftLow = 0
	p.bgAttribShiftHigh = 0

	p.spriteCount = 0
	p.sprite0Hit = false
	p.spriteOverflow = false

	p.backgroundEnabled = false
	p.spritesEnabled = false
	p.renderingEnabled = false

	p.cycleCount = 0

	for i := range p.oam {
		p.oam[i] = 0
	}
	for i := range p.frameBuffer {
		p.frameBuffer[i] = 0
	}
}

// SetMemory sets the PPU memory interface
func (p *PPU) SetMemory(memory *memory.PPUMemory) {
	p.memory = memory
}

// SetNMICallback sets the NMI callback function
func (p *PPU) SetNMICallback(callback func()) {
	p.nmiCallback = callback
}

// SetFrameCompleteCallback sets the frame complete callback
func (p *PPU) SetFrameCompleteCallback(callback func()) {
	p.frameCompleteCallback = callback
}

// SetTraceLogger installs a logger that receives one line per PPUSTATUS read
// and per VBlank/sprite-0-hit edge. Pass nil to disable.
func (p *PPU) SetTraceLogger(logger *log.Logger) {
	p.trace = logger
}

// ReadRegister reads from a PPU register (CPU $2000-$2007)
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case 0x2000, 0x2001, 0x2003, 0x2005, 0x2006: // write-only registers
		return p.ppuStatus & 0x1F // open bus: lower 5 bits
	case 0x2002: // PPUSTATUS
		status := p.ppuStatus
		if p.trace != nil {
			p.trace.Printf("PPUSTATUS read: %02X (scanline=%d cycle=%d)", status, p.scanline, p.cycle)
		}
		p.ppuStatus &= 0x7F // Clear VBL flag (bit 7) on read
		p.w = false         // Clear write latch
		return status
	case 0x2004: // OAMDATA
		return p.oam[p.oamAddr]
	case 0x2007: // PPUDATA
		return p.readPPUData()
	default:
		return 0
	}
}

// WriteRegister writes to a PPU register (CPU $2000-$2007)
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address {
	case 0x2000: // PPUCTRL
		p.ppuCtrl = value
		p.t = (p.t & 0xF3FF) | ((uint16(value) & 0x03) << 10) // Nametable select
		p.updateRenderingFlags()
		p.checkNMI()
	case 0x2001: // PPUMASK
		p.ppuMask = value
		p.updateRenderingFlags()
	case 0x2002: // PPUSTATUS - read only, writes ignored
	case 0x2003: // OAMADDR
		p.oamAddr = value
	case 0x2004: // OAMDATA
		p.oam[p.oamAddr] = value
		p.oamAddr++
	case 0x2005: // PPUSCROLL
		p.writePPUScroll(value)
	case 0x2006: // PPUADDR
		p.writePPUAddr(value)
	case 0x2007: // PPUDATA
		p.writePPUData(value)
	}
}

// WriteOAM writes to OAM at the specified address (for DMA)
func (p *PPU) WriteOAM(address uint8, value uint8) {
	p.oam[address] = value
}

// Step advances the PPU by one cycle
func (p *PPU) Step() {
	p.cycleCount++

	p.cycle++
	// On odd frames, rendering enabled shortens the pre-render scanline by
	// one dot: 339 never occurs, falling straight through to 340.
	if p.scanline == -1 && p.cycle == 339 && p.renderingEnabled && p.oddFrame {
		p.cycle++
	}
	if p.cycle > 340 {
		p.cycle = 0
		p.scanline++

		if p.scanline > 260 {
			p.scanline = -1
			p.frameCount++
			p.oddFrame = !p.oddFrame

			if p.frameCompleteCallback != nil {
				p.frameCompleteCallback()
			}
		}
	}

	if p.scanline >= -1 && p.scanline < 240 {
		p.renderCycle()
	}

	// VBlank starts at (241,1): set the flag and fire NMI if enabled.
	if p.scanline == 241 && p.cycle == 1 {
		p.ppuStatus |= 0x80
		if p.trace != nil {
			p.trace.Printf("vblank start (frame=%d)", p.frameCount)
		}
		p.checkNMI()
	}

	// Pre-render line (-1) clears VBL, sprite-0-hit and sprite-overflow at
	// (-1,1) — not at VBlank start, matching real hardware timing.
	if p.scanline == -1 && p.cycle == 1 {
		p.ppuStatus &= 0x1F
		p.sprite0Hit = false
		p.spriteOverflow = false
	}
}

// renderCycle drives both the background shift-register pipeline and sprite
// evaluation/compositing for a single PPU dot. Grounded on the overall shape
// of RNG999-gones/internal/ppu/ppu.go's renderCycle, but the background path
// itself is a rewrite: the teacher computes each pixel by direct nametable
// and pattern-table lookups, while this follows the real PPU's
// shift-register fetch pipeline, since the two diverge on mid-scanline
// scroll changes and fine-X timing.
func (p *PPU) renderCycle() {
	if p.renderingEnabled {
		p.runBackgroundPipeline()
	}

	if p.scanline < 0 || p.scanline >= 240 || p.cycle < 1 || p.cycle > 256 {
		return
	}

	if p.spritesEnabled && p.cycle == 1 {
		p.evaluateSprites()
	}

	p.renderPixel(p.cycle-1, p.scanline)
}

// runBackgroundPipeline implements the standard NES background fetch
// sequence: nametable byte, attribute byte, pattern low, pattern high, each
// taking 2 PPU cycles, reloading the shift registers every 8th cycle and
// shifting them every cycle rendering is active.
func (p *PPU) runBackgroundPipeline() {
	if p.memory == nil {
		return
	}

	fetchCycle := (p.cycle >= 1 && p.cycle <= 256) || (p.cycle >= 321 && p.cycle <= 336)

	if fetchCycle {
		p.shiftBackgroundRegisters()

		switch p.cycle % 8 {
		case 1:
			p.reloadShiftRegisters()
			p.nextTileID = p.fetchNametableByte()
		case 3:
			p.nextAttribute = p.fetchAttributeByte()
		case 5:
			p.nextPatternLow = p.fetchPatternByte(false)
		case 7:
			p.nextPatternHigh = p.fetchPatternByte(true)
		case 0:
			p.incrementX()
		}
	}

	if p.cycle == 256 {
		p.incrementY()
	}
	if p.cycle == 257 {
		p.shiftBackgroundRegisters()
		p.reloadShiftRegisters()
		p.copyX()
	}
	if p.scanline == -1 && p.cycle >= 280 && p.cycle <= 304 {
		p.copyY()
	}
}

// shiftBackgroundRegisters shifts the pattern and attribute shift registers
// left by one bit, as real PPU hardware does every rendering cycle.
func (p *PPU) shiftBackgroundRegisters() {
	p.bgPatternShiftLow <<= 1
	p.bgPatternShiftHigh <<= 1
	p.bgAttribShiftLow <<= 1
	p.bgAttribShiftHigh <<= 1
}

// reloadShiftRegisters loads the latched tile data into the low byte of each
// shift register; the fetch pipeline fills the latches 8 cycles ahead of use.
func (p *PPU) reloadShiftRegisters() {
	p.bgPatternShiftLow = (p.bgPatternShiftLow & 0xFF00) | uint16(p.nextPatternLow)
	p.bgPatternShiftHigh = (p.bgPatternShiftHigh & 0xFF00) | uint16(p.nextPatternHigh)

	var attribLow, attribHigh uint8
	if p.nextAttribute&0x01 != 0 {
		attribLow = 0xFF
	}
	if p.nextAttribute&0x02 != 0 {
		attribHigh = 0xFF
	}
	p.bgAttribShiftLow = (p.bgAttribShiftLow & 0xFF00) | uint16(attribLow)
	p.bgAttribShiftHigh = (p.bgAttribShiftHigh & 0xFF00) | uint16(attribHigh)
}

func (p *PPU) fetchNametableByte() uint8 {
	addr := 0x2000 | (p.v & 0x0FFF)
	return p.memory.Read(addr)
}

func (p *PPU) fetchAttributeByte() uint8 {
	addr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
	attributeByte := p.memory.Read(addr)

	blockID := ((p.getCoarseX() & 2) >> 1) + (p.getCoarseY() & 2)
	return (attributeByte >> (uint(blockID) * 2)) & 0x03
}

func (p *PPU) fetchPatternByte(highPlane bool) uint8 {
	var patternTableBase uint16
	if p.ppuCtrl&0x10 != 0 {
		patternTableBase = 0x1000
	}
	fineY := uint16(p.getFineY())
	addr := patternTableBase + uint16(p.nextTileID)*16 + fineY
	if highPlane {
		addr += 8
	}
	return p.memory.Read(addr)
}

// renderPixel composites the background and sprite pixel at (pixelX,
// pixelY) and writes the resulting NES palette index into the frame buffer.
func (p *PPU) renderPixel(pixelX, pixelY int) {
	if p.memory == nil {
		return
	}

	bgColorIndex, bgPaletteIndex := uint8(0), uint8(0)
	if p.backgroundEnabled && !(pixelX < 8 && p.ppuMask&0x02 == 0) {
		bgColorIndex, bgPaletteIndex = p.backgroundPixel()
	}

	spritePixel := SpritePixel{spriteIndex: -1, transparent: true}
	if p.spritesEnabled && !(pixelX < 8 && p.ppuMask&0x04 == 0) {
		spritePixel = p.renderSpritePixel(pixelX, pixelY)
	}

	if spritePixel.spriteIndex == 0 && bgColorIndex != 0 && !spritePixel.transparent && pixelX != 255 {
		if !p.sprite0Hit {
			p.sprite0Hit = true
			p.ppuStatus |= 0x40
			if p.trace != nil {
				p.trace.Printf("sprite 0 hit at (%d,%d)", pixelX, pixelY)
			}
		}
	}

	var paletteAddr uint16
	switch {
	case spritePixel.transparent && bgColorIndex == 0:
		paletteAddr = 0x3F00
	case spritePixel.transparent:
		paletteAddr = 0x3F00 + uint16(bgPaletteIndex)*4 + uint16(bgColorIndex)
	case bgColorIndex == 0:
		paletteAddr = 0x3F10 + uint16(spritePixel.paletteIndex)*4 + uint16(spritePixel.colorIndex)
	case spritePixel.priority:
		paletteAddr = 0x3F00 + uint16(bgPaletteIndex)*4 + uint16(bgColorIndex)
	default:
		paletteAddr = 0x3F10 + uint16(spritePixel.paletteIndex)*4 + uint16(spritePixel.colorIndex)
	}

	p.frameBuffer[pixelY*256+pixelX] = p.memory.Read(paletteAddr) & 0x3F
}

// backgroundPixel reads the current background color/palette index out of
// the shift registers, selected by fine X scroll.
func (p *PPU) backgroundPixel() (colorIndex, paletteIndex uint8) {
	bit := uint(15 - p.x)
	lo := uint8((p.bgPatternShiftLow >> bit) & 1)
	hi := uint8((p.bgPatternShiftHigh >> bit) & 1)
	colorIndex = (hi << 1) | lo

	aLo := uint8((p.bgAttribShiftLow >> bit) & 1)
	aHi := uint8((p.bgAttribShiftHigh >> bit) & 1)
	paletteIndex = (aHi << 1) | aLo
	return
}

// SpritePixel represents a rendered pixel from a sprite.
type SpritePixel struct {
	colorIndex   uint8 // 0-3, where 0 is transparent
	paletteIndex uint8 // which sprite palette (0-3)
	spriteIndex  int8  // which sprite (0-63), or -1 for none
	priority     bool  // true = behind background
	transparent  bool
}

// evaluateSprites finds sprites visible on the current scanline using the
// simple 9th-sprite-found overflow rule (spec.md Open Question: simple rule
// chosen over the buggy diagonal-increment hardware quirk).
func (p *PPU) evaluateSprites() {
	p.spriteCount = 0
	p.spriteOverflow = false
	p.sprite0OnLine = false

	for i := range p.secondaryOAM {
		p.secondaryOAM[i] = 0xFF
	}
	for i := range p.spriteIndexes {
		p.spriteIndexes[i] = 0xFF
	}

	spriteHeight := 8
	if p.ppuCtrl&0x20 != 0 {
		spriteHeight = 16
	}

	spritesFound := 0
	for spriteIndex := 0; spriteIndex < 64; spriteIndex++ {
		oamIndex := spriteIndex * 4
		sY := int(p.oam[oamIndex])
		tileIndex := p.oam[oamIndex+1]
		attributes := p.oam[oamIndex+2]
		sX := int(p.oam[oamIndex+3])

		if p.scanline >= sY+1 && p.scanline < sY+1+spriteHeight {
			if spritesFound < 8 {
				secondaryIndex := spritesFound * 4
				p.secondaryOAM[secondaryIndex] = uint8(sY)
				p.secondaryOAM[secondaryIndex+1] = tileIndex
				p.secondaryOAM[secondaryIndex+2] = attributes
				p.secondaryOAM[secondaryIndex+3] = uint8(sX)
				p.spriteIndexes[spritesFound] = uint8(spriteIndex)

				if spriteIndex == 0 {
					p.sprite0OnLine = true
				}
				spritesFound++
			} else {
				p.spriteOverflow = true
				p.ppuStatus |= 0x20
				break
			}
		}
	}

	p.spriteCount = uint8(spritesFound)
}

// renderSpritePixel renders a single sprite pixel, in OAM priority order
// (lowest secondary-OAM index wins).
func (p *PPU) renderSpritePixel(pixelX, pixelY int) SpritePixel {
	spriteHeight := 8
	if p.ppuCtrl&0x20 != 0 {
		spriteHeight = 16
	}

	for i := 0; i < int(p.spriteCount); i++ {
		secondaryIndex := i * 4
		sY := int(p.secondaryOAM[secondaryIndex])
		tileIndex := p.secondaryOAM[secondaryIndex+1]
		attributes := p.secondaryOAM[secondaryIndex+2]
		sX := int(p.secondaryOAM[secondaryIndex+3])

		if pixelX < sX || pixelX >= sX+8 {
			continue
		}
		if pixelY < sY+1 || pixelY >= sY+1+spriteHeight {
			continue
		}

		spritePixelX := pixelX - sX
		spritePixelY := pixelY - (sY + 1)

		if attributes&0x40 != 0 { // horizontal flip
			spritePixelX = 7 - spritePixelX
		}
		if attributes&0x80 != 0 { // vertical flip
			spritePixelY = spriteHeight - 1 - spritePixelY
		}

		colorIndex := p.getSpritePixelColor(tileIndex, spritePixelX, spritePixelY)
		if colorIndex == 0 {
			continue
		}

		return SpritePixel{
			colorIndex:   colorIndex,
			paletteIndex: attributes & 0x03,
			spriteIndex:  int8(p.spriteIndexes[i]),
			priority:     attributes&0x20 != 0,
			transparent:  false,
		}
	}

	return SpritePixel{spriteIndex: -1, transparent: true}
}

// getSpritePixelColor reads the pattern-table color index for one sprite
// pixel, handling the 8x16 tile-pair addressing rule.
func (p *PPU) getSpritePixelColor(tileIndex uint8, pixelX, pixelY int) uint8 {
	var patternTableBase uint16

	if p.ppuCtrl&0x20 == 0 { // 8x8 sprites
		if p.ppuCtrl&0x08 != 0 {
			patternTableBase = 0x1000
		}
	} else { // 8x16 sprites
		if tileIndex&0x01 != 0 {
			patternTableBase = 0x1000
		}
		tileIndex &= 0xFE
		if pixelY >= 8 {
			tileIndex++
			pixelY -= 8
		}
	}

	patternAddr := patternTableBase + uint16(tileIndex)*16 + uint16(pixelY)
	patternLow := p.memory.Read(patternAddr)
	patternHigh := p.memory.Read(patternAddr + 0x08)

	bitShift := 7 - pixelX
	bit0 := (patternLow >> bitShift) & 1
	bit1 := (patternHigh >> bitShift) & 1
	return (bit1 << 1) | bit0
}

// updateRenderingFlags updates internal rendering state based on PPUMASK
func (p *PPU) updateRenderingFlags() {
	p.backgroundEnabled = (p.ppuMask & 0x08) != 0
	p.spritesEnabled = (p.ppuMask & 0x10) != 0
	p.renderingEnabled = p.backgroundEnabled || p.spritesEnabled
}

// checkNMI fires the NMI callback if both PPUCTRL's NMI-enable bit and the
// VBL status flag are set.
func (p *PPU) checkNMI() {
	if (p.ppuCtrl&0x80 != 0) && (p.ppuStatus&0x80 != 0) && p.nmiCallback != nil {
		p.nmiCallback()
	}
}

// writePPUScroll handles writes to PPUSCROLL ($2005)
func (p *PPU) writePPUScroll(value uint8) {
	if !p.w {
		p.t = (p.t & 0xFFE0) | (uint16(value) >> 3)
		p.x = value & 0x07
		p.w = true
	} else {
		p.t = (p.t & 0x8FFF) | ((uint16(value) & 0x07) << 12)
		p.t = (p.t & 0xFC1F) | ((uint16(value) & 0xF8) << 2)
		p.w = false
	}
}

// writePPUAddr handles writes to PPUADDR ($2006)
func (p *PPU) writePPUAddr(value uint8) {
	if !p.w {
		p.t = (p.t & 0x80FF) | ((uint16(value) & 0x3F) << 8)
		p.w = true
	} else {
		p.t = (p.t & 0xFF00) | uint16(value)
		p.v = p.t
		p.w = false
	}
}

// readPPUData handles reads from PPUDATA ($2007)
func (p *PPU) readPPUData() uint8 {
	var data uint8

	if p.memory == nil {
		data = 0
	} else if p.v >= 0x3F00 {
		data = p.memory.Read(p.v)
		p.readBuffer = p.memory.Read(p.v & 0x2FFF)
	} else {
		data = p.readBuffer
		p.readBuffer = p.memory.Read(p.v)
	}

	p.advanceVRAMAddress()
	return data
}

// writePPUData handles writes to PPUDATA ($2007)
func (p *PPU) writePPUData(value uint8) {
	if p.memory != nil {
		p.memory.Write(p.v, value)
	}
	p.advanceVRAMAddress()
}

func (p *PPU) advanceVRAMAddress() {
	if p.ppuCtrl&0x04 != 0 {
		p.v += 32
	} else {
		p.v += 1
	}
	p.v &= 0x3FFF
}

// GetFrameBuffer returns the current frame, one NES palette index (0-63) per
// pixel, row-major 256x240.
func (p *PPU) GetFrameBuffer() [256 * 240]uint8 {
	return p.frameBuffer
}

// GetFrameCount returns the current frame count
func (p *PPU) GetFrameCount() uint64 {
	return p.frameCount
}

// GetScanline returns the current scanline
func (p *PPU) GetScanline() int {
	return p.scanline
}

// GetCycle returns the current cycle
func (p *PPU) GetCycle() int {
	return p.cycle
}

// ScanlineAndDot returns the current scanline and cycle together, for
// installing as a CPU trace-line callback via SetPPUStateFunc.
func (p *PPU) ScanlineAndDot() (scanline, dot int) {
	return p.scanline, p.cycle
}

// IsRenderingEnabled returns true if background or sprite rendering is on
func (p *PPU) IsRenderingEnabled() bool {
	return p.renderingEnabled
}

// IsVBlank returns true if currently in vertical blank
func (p *PPU) IsVBlank() bool {
	return (p.ppuStatus & 0x80) != 0
}

// GetCycleCount returns the total PPU cycle count
func (p *PPU) GetCycleCount() uint64 {
	return p.cycleCount
}

// State is the PPU's CPU-visible and loopy-register state, for save-state
// export. Mid-fetch shift-register contents are intentionally excluded —
// sub-instruction/sub-dot timing isn't part of this repository's save-state
// scope (SPEC_FULL.md's Non-goals).
type State struct {
	PPUCtrl, PPUMask, PPUStatus, OAMAddr uint8
	V, T                                 uint16
	X                                    uint8
	W                                    bool
	Scanline, Cycle                      int
	FrameCount                           uint64
	OddFrame                             bool
	ReadBuffer                           uint8
	OAM                                  [256]uint8
}

// Snapshot captures the PPU's register and OAM state.
func (p *PPU) Snapshot() State {
	return State{
		PPUCtrl: p.ppuCtrl, PPUMask: p.ppuMask, PPUStatus: p.ppuStatus, OAMAddr: p.oamAddr,
		V: p.v, T: p.t, X: p.x, W: p.w,
		Scanline: p.scanline, Cycle: p.cycle,
		FrameCount: p.frameCount, OddFrame: p.oddFrame,
		ReadBuffer: p.readBuffer, OAM: p.oam,
	}
}

// Restore applies a previously captured State.
func (p *PPU) Restore(s State) {
	p.ppuCtrl, p.ppuMask, p.ppuStatus, p.oamAddr = s.PPUCtrl, s.PPUMask, s.PPUStatus, s.OAMAddr
	p.v, p.t, p.x, p.w = s.V, s.T, s.X, s.W
	p.scanline, p.cycle = s.Scanline, s.Cycle
	p.frameCount, p.oddFrame = s.FrameCount, s.OddFrame
	p.readBuffer = s.ReadBuffer
	p.oam = s.OAM
	p.updateRenderingFlags()
}

// nesColorPalette is the 2C02 NTSC palette, 64 entries, 0xAARRGGBB.
var nesColorPalette = [64]uint32{
	// Row 0 (0x00-0x0F)
	0xFF666666, 0xFF002A88, 0xFF1412A7, 0xFF3B00A4, 0xFF5C007E, 0xFF6E0040, 0xFF6C0600, 0xFF561D00,
	0xFF333500, 0xFF0B4800, 0xFF005200, 0xFF004F08, 0xFF00404D, 0xFF000000, 0xFF000000, 0xFF000000,
	// Row 1 (0x10-0x1F)
	0xFFADADAD, 0xFF155FD9, 0xFF4240FF, 0xFF7527FE, 0xFFA01ACC, 0xFFB71E7B, 0xFFB53120, 0xFF994E00,
	0xFF6B6D00, 0xFF388700, 0xFF0C9300, 0xFF008F32, 0xFF007C8D, 0xFF000000, 0xFF000000, 0xFF000000,
	// Row 2 (0x20-0x2F)
	0xFFFFFEFF, 0xFF64B0FF, 0xFF9290FF, 0xFFC676FF, 0xFFF36AFF, 0xFFFE6ECC, 0xFFFE8170, 0xFFEA9E22,
	0xFFBCBE00, 0xFF88D800, 0xFF5CE430, 0xFF45E082, 0xFF48CDDE, 0xFF4F4F4F, 0xFF000000, 0xFF000000,
	// Row 3 (0x30-0x3F)
	0xFFFFFEFF, 0xFFC0DFFF, 0xFFD3D2FF, 0xFFE8C8FF, 0xFFFBC2FF, 0xFFFEC4EA, 0xFFFECCC5, 0xFFF7D8A5,
	0xFFE4E594, 0xFFCFF29B, 0xFFBEFBB3, 0xFFB8F8D8, 0xFFB8F8F8, 0xFF000000, 0xFF000000, 0xFF000000,
}

// Palette converts a NES palette index (0-63) to an 0x00RRGGBB color. Host
// front ends use this to turn the index framebuffer into pixels; the core
// never performs this conversion itself.
func Palette(colorIndex uint8) uint32 {
	if colorIndex >= 64 {
		return 0
	}
	return nesColorPalette[colorIndex] & 0x00FFFFFF
}

// Scroll helper methods for VRAM address manipulation (loopy registers).

func (p *PPU) getCoarseX() int {
	return int(p.v & 0x001F)
}

func (p *PPU) getCoarseY() int {
	return int((p.v >> 5) & 0x001F)
}

func (p *PPU) getFineY() int {
	return int((p.v >> 12) & 0x0007)
}

// incrementX increments the coarse X and wraps to next nametable if needed
func (p *PPU) incrementX() {
	if (p.v & 0x001F) == 31 {
		p.v &= ^uint16(0x001F)
		p.v ^= 0x0400
	} else {
		p.v++
	}
}

// incrementY increments fine Y, and if it overflows, increments coarse Y
func (p *PPU) incrementY() {
	if (p.v & 0x7000) != 0x7000 {
		p.v += 0x1000
	} else {
		p.v &= ^uint16(0x7000)
		y := (p.v & 0x03E0) >> 5
		if y == 29 {
			y = 0
			p.v ^= 0x0800
		} else if y == 31 {
			y = 0
		} else {
			y++
		}
		p.v = (p.v & ^uint16(0x03E0)) | (y << 5)
	}
}

// copyX copies all X-related bits from t to v (bits 10, 4-0)
func (p *PPU) copyX() {
	p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
}

// copyY copies all Y-related bits from t to v (bits 11, 14-5)
func (p *PPU) copyY() {
	p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
}
