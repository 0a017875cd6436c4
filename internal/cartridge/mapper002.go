package cartridge

// Mapper002 implements UxROM (mapper 2): a switchable 16KB PRG-ROM bank at
// $8000-$BFFF, a fixed last bank at $C000-$FFFF, and fixed 8KB CHR-RAM.
// Grounded on andrewthecodertx-go-nes-emulator/pkg/cartridge/mapper2.go,
// adapted onto this repository's *Cartridge-held-fields convention.
type Mapper002 struct {
	cart     *Cartridge
	prgBanks uint8
	prgBank  uint8
}

// NewMapper002 creates a new UxROM mapper.
func NewMapper002(cart *Cartridge) *Mapper002 {
	return &Mapper002{
		cart:     cart,
		prgBanks: uint8(len(cart.prgROM) / 0x4000),
	}
}

// ReadPRG reads from PRG ROM ($8000-$BFFF switchable, $C000-$FFFF fixed).
func (m *Mapper002) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x8000 && address < 0xC000:
		offset := uint32(m.prgBank)*0x4000 + uint32(address-0x8000)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
	case address >= 0xC000:
		lastBank := m.prgBanks - 1
		offset := uint32(lastBank)*0x4000 + uint32(address-0xC000)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
	case address >= 0x6000 && address < 0x8000:
		return m.cart.sram[address-0x6000]
	}
	return 0
}

// WritePRG selects the switchable PRG bank; any address $8000-$FFFF works.
func (m *Mapper002) WritePRG(address uint16, value uint8) {
	switch {
	case address >= 0x8000:
		if m.prgBanks > 0 {
			m.prgBank = value & (m.prgBanks - 1)
		}
	case address >= 0x6000 && address < 0x8000:
		m.cart.sram[address-0x6000] = value
	}
}

// MapperState returns the selected PRG bank for save-state export.
func (m *Mapper002) MapperState() []uint8 {
	return []uint8{m.prgBank}
}

// LoadMapperState restores the selected PRG bank.
func (m *Mapper002) LoadMapperState(data []uint8) {
	if len(data) < 1 {
		return
	}
	m.prgBank = data[0]
}

// ReadCHR reads from CHR-RAM.
func (m *Mapper002) ReadCHR(address uint16) uint8 {
	if address < 0x2000 && int(address) < len(m.cart.chrROM) {
		return m.cart.chrROM[address]
	}
	return 0
}

// WriteCHR writes to CHR-RAM.
func (m *Mapper002) WriteCHR(address uint16, value uint8) {
	if address < 0x2000 && int(address) < len(m.cart.chrROM) {
		m.cart.chrROM[address] = value
	}
}
