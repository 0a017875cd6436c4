package cartridge

import "fmt"

// TestROMConfig describes a minimal iNES image to synthesize for tests.
type TestROMConfig struct {
	PRGSize     uint8 // PRG ROM size in 16KB units
	CHRSize     uint8 // CHR ROM size in 8KB units (0 = CHR RAM)
	MapperID    uint8
	Mirroring   MirrorMode
	HasBattery  bool
	HasTrainer  bool
	ResetVector uint16
}

// GenerateTestROM builds an iNES-format byte image from config. PRG/CHR
// contents are left zeroed apart from the three vectors, which all point at
// ResetVector. Cartridge.WritePRG goes through the mapper, so it cannot
// change PRG ROM bytes after loading.
func GenerateTestROM(config TestROMConfig) ([]byte, error) {
	if config.PRGSize == 0 {
		return nil, fmt.Errorf("PRG ROM size cannot be zero")
	}

	header := make([]byte, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = config.PRGSize
	header[5] = config.CHRSize

	flags6 := uint8(0)
	if config.Mirroring == MirrorVertical {
		flags6 |= 0x01
	}
	if config.HasBattery {
		flags6 |= 0x02
	}
	if config.HasTrainer {
		flags6 |= 0x04
	}
	if config.Mirroring == MirrorFourScreen {
		flags6 |= 0x08
	}
	flags6 |= (config.MapperID & 0x0F) << 4
	header[6] = flags6
	header[7] = config.MapperID & 0xF0

	result := append([]byte{}, header...)

	if config.HasTrainer {
		result = append(result, make([]byte, 512)...)
	}

	prgROM := make([]byte, int(config.PRGSize)*16384)
	vectorOffset := len(prgROM) - 6
	prgROM[vectorOffset] = uint8(config.ResetVector & 0xFF)   // NMI
	prgROM[vectorOffset+1] = uint8(config.ResetVector >> 8)   // NMI
	prgROM[vectorOffset+2] = uint8(config.ResetVector & 0xFF) // Reset
	prgROM[vectorOffset+3] = uint8(config.ResetVector >> 8)   // Reset
	prgROM[vectorOffset+4] = uint8(config.ResetVector & 0xFF) // IRQ
	prgROM[vectorOffset+5] = uint8(config.ResetVector >> 8)   // IRQ
	result = append(result, prgROM...)

	if config.CHRSize > 0 {
		result = append(result, make([]byte, int(config.CHRSize)*8192)...)
	}

	return result, nil
}
