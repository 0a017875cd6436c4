package cartridge

import (
	"bytes"
	"errors"
	"testing"
)

func mustLoad(t *testing.T, config TestROMConfig) *Cartridge {
	t.Helper()
	data, err := GenerateTestROM(config)
	if err != nil {
		t.Fatalf("GenerateTestROM: %v", err)
	}
	cart, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cart
}

func TestLoadFromReaderRejectsBadMagic(t *testing.T) {
	data := []byte("BAD\x1A\x01\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")
	if _, err := LoadFromReader(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for invalid magic number")
	}
}

func TestLoadFromReaderRejectsZeroPRG(t *testing.T) {
	data, _ := GenerateTestROM(TestROMConfig{PRGSize: 1, MapperID: 0, ResetVector: 0x8000})
	data[4] = 0 // corrupt the PRG size field after generation
	if _, err := LoadFromReader(bytes.NewReader(data)); err == nil {
		t.Fatal("expected error for zero PRG ROM size")
	}
}

func TestUnsupportedMapperIsAnError(t *testing.T) {
	data, _ := GenerateTestROM(TestROMConfig{PRGSize: 1, MapperID: 5, ResetVector: 0x8000})
	_, err := LoadFromReader(bytes.NewReader(data))
	if err == nil {
		t.Fatal("expected error for unsupported mapper")
	}
	if !errors.Is(err, ErrUnsupportedMapper) {
		t.Errorf("expected error to wrap ErrUnsupportedMapper, got %v", err)
	}
}

func TestCHRRAMDetectionFollowsHeaderOnly(t *testing.T) {
	cart := mustLoad(t, TestROMConfig{PRGSize: 1, CHRSize: 0, MapperID: 0, ResetVector: 0x8000})
	if !cart.hasCHRRAM {
		t.Error("CHRROMSize=0 should mean CHR-RAM regardless of content")
	}
	if len(cart.chrROM) != 8192 {
		t.Errorf("CHR-RAM size = %d, want 8192", len(cart.chrROM))
	}

	cart2 := mustLoad(t, TestROMConfig{PRGSize: 1, CHRSize: 1, MapperID: 0, ResetVector: 0x8000})
	if cart2.hasCHRRAM {
		t.Error("a declared CHR-ROM bank of all-zero bytes must still be CHR-ROM")
	}
}

func TestMirroringFromHeaderFlags(t *testing.T) {
	cart := mustLoad(t, TestROMConfig{PRGSize: 1, CHRSize: 1, MapperID: 0, Mirroring: MirrorVertical, ResetVector: 0x8000})
	if cart.GetMirrorMode() != MirrorVertical {
		t.Errorf("mirroring = %v, want vertical", cart.GetMirrorMode())
	}
}

func TestNROMBankMirroring16KB(t *testing.T) {
	cart := mustLoad(t, TestROMConfig{PRGSize: 1, CHRSize: 1, MapperID: 0, ResetVector: 0x8000})
	cart.prgROM[0] = 0x42
	if got := cart.ReadPRG(0x8000); got != 0x42 {
		t.Errorf("ReadPRG(0x8000) = %02X, want 42", got)
	}
	if got := cart.ReadPRG(0xC000); got != 0x42 {
		t.Errorf("ReadPRG(0xC000) = %02X, want 42 (mirrored 16KB bank)", got)
	}
}

func TestUxROMBankSwitching(t *testing.T) {
	cart := mustLoad(t, TestROMConfig{PRGSize: 4, CHRSize: 0, MapperID: 2, ResetVector: 0x8000})
	cart.prgROM[0] = 0xAA                  // bank 0, offset 0
	cart.prgROM[0x4000] = 0xBB             // bank 1, offset 0
	cart.prgROM[3*0x4000+0x3FFF] = 0xCC    // last bank (3), last byte

	if got := cart.ReadPRG(0x8000); got != 0xAA {
		t.Errorf("bank 0 read = %02X, want AA", got)
	}
	if got := cart.ReadPRG(0xFFFF); got != 0xCC {
		t.Errorf("fixed last-bank read = %02X, want CC", got)
	}

	cart.WritePRG(0x8000, 1)
	if got := cart.ReadPRG(0x8000); got != 0xBB {
		t.Errorf("after bank switch, read = %02X, want BB", got)
	}
	// The fixed $C000 bank must not move when $8000 is switched.
	if got := cart.ReadPRG(0xFFFF); got != 0xCC {
		t.Errorf("fixed bank changed after switch: %02X, want CC", got)
	}
}

// writeMMC1 performs the standard MMC1 5-write serial protocol, each write
// tagged with a distinct CPU cycle so none are treated as same-cycle writes.
func writeMMC1(cart *Cartridge, baseCycle uint64, address uint16, value uint8) {
	for i := 0; i < 5; i++ {
		cart.SetCPUCycle(baseCycle + uint64(i))
		bit := (value >> i) & 1
		cart.WritePRG(address, bit)
	}
}

func TestMMC1ShiftRegisterCommitsOnFifthWrite(t *testing.T) {
	cart := mustLoad(t, TestROMConfig{PRGSize: 4, CHRSize: 0, MapperID: 1, ResetVector: 0x8000})
	m := cart.mapper.(*Mapper001)

	// Select PRG mode 3 (fix last bank, switch $8000) and 8KB CHR banking
	// by writing the control register: value 0x0C = prgMode 3, chrMode 0.
	writeMMC1(cart, 0, 0x8000, 0x0C)
	if m.prgMode != 3 {
		t.Errorf("prgMode = %d, want 3", m.prgMode)
	}

	// Select PRG bank 1 via the $E000-$FFFF register.
	writeMMC1(cart, 10, 0xE000, 0x01)
	if m.prgBank != 1 {
		t.Errorf("prgBank = %d, want 1", m.prgBank)
	}

	cart.prgROM[0x4000] = 0x99
	if got := cart.ReadPRG(0x8000); got != 0x99 {
		t.Errorf("ReadPRG(0x8000) after bank select = %02X, want 99", got)
	}
}

func TestMMC1IgnoresSecondWriteOnSameCycle(t *testing.T) {
	cart := mustLoad(t, TestROMConfig{PRGSize: 4, CHRSize: 0, MapperID: 1, ResetVector: 0x8000})
	m := cart.mapper.(*Mapper001)

	cart.SetCPUCycle(100)
	cart.WritePRG(0x8000, 1)
	if m.shiftCount != 1 {
		t.Fatalf("shiftCount after first write = %d, want 1", m.shiftCount)
	}

	// Second write lands on the same CPU cycle (RMW instruction quirk) and
	// must be ignored, not counted as a second shift-in.
	cart.WritePRG(0x8000, 1)
	if m.shiftCount != 1 {
		t.Errorf("shiftCount after same-cycle second write = %d, want still 1", m.shiftCount)
	}
}

func TestMMC1DynamicMirroring(t *testing.T) {
	cart := mustLoad(t, TestROMConfig{PRGSize: 2, CHRSize: 0, MapperID: 1, ResetVector: 0x8000})

	writeMMC1(cart, 0, 0x8000, 0x02) // mirroring=2 (vertical), prgMode=0, chrMode=0
	if cart.GetMirrorMode() != MirrorVertical {
		t.Errorf("mirroring = %v, want vertical", cart.GetMirrorMode())
	}

	writeMMC1(cart, 20, 0x8000, 0x03) // mirroring=3 (horizontal)
	if cart.GetMirrorMode() != MirrorHorizontal {
		t.Errorf("mirroring = %v, want horizontal", cart.GetMirrorMode())
	}
}

func TestMMC1BatteryStateRoundTrip(t *testing.T) {
	cart := mustLoad(t, TestROMConfig{PRGSize: 2, CHRSize: 0, MapperID: 1, HasBattery: true, ResetVector: 0x8000})
	cart.WritePRG(0x6000, 0x55)

	saved := cart.BatteryState()
	if saved == nil {
		t.Fatal("expected non-nil battery state for battery-backed cartridge")
	}

	cart2 := mustLoad(t, TestROMConfig{PRGSize: 2, CHRSize: 0, MapperID: 1, HasBattery: true, ResetVector: 0x8000})
	cart2.LoadBatteryState(saved)
	if got := cart2.ReadPRG(0x6000); got != 0x55 {
		t.Errorf("restored PRG-RAM byte = %02X, want 55", got)
	}
}

func TestNoBatteryMeansNilBatteryState(t *testing.T) {
	cart := mustLoad(t, TestROMConfig{PRGSize: 1, CHRSize: 1, MapperID: 0, ResetVector: 0x8000})
	if cart.BatteryState() != nil {
		t.Error("expected nil battery state for a cartridge with no battery")
	}
}
