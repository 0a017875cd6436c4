package cartridge

// Mapper001 implements MMC1 (mapper 1): a 5-bit serial shift register that
// commits to the control/CHR-bank/PRG-bank registers every 5th consecutive
// write, switchable PRG-ROM banking in three modes, switchable 4KB or 8KB
// CHR banking, and mapper-controlled nametable mirroring.
//
// Grounded on andrewthecodertx-go-nes-emulator/pkg/cartridge/mapper1.go,
// adapted onto this repository's *Cartridge-held-fields convention. Real
// MMC1 silicon also ignores the second write of a same-cycle write pair —
// relevant for read-modify-write instructions like INC that write their
// operand twice one CPU cycle apart. No pack source models this quirk (see
// DESIGN.md); it's approximated here by ignoring a write that arrives on
// the same CPU cycle SetCPUCycle last reported.
type Mapper001 struct {
	cart *Cartridge

	prgBanks uint8
	chrBanks uint8
	chrIsRAM bool

	shiftRegister uint8
	shiftCount    uint8

	mirroring uint8 // 0=single-lower 1=single-upper 2=vertical 3=horizontal
	prgMode   uint8 // 0/1=32KB 2=fix first bank 3=fix last bank
	chrMode   uint8 // 0=8KB 1=4KB

	chrBank0 uint8
	chrBank1 uint8
	prgBank  uint8

	prgRAMEnabled bool

	pendingCycle       uint64
	haveLastWriteCycle bool
	lastWriteCycle     uint64
}

// NewMapper001 creates a new MMC1 mapper.
func NewMapper001(cart *Cartridge) *Mapper001 {
	return &Mapper001{
		cart:          cart,
		prgBanks:      uint8(len(cart.prgROM) / 0x4000),
		chrBanks:      uint8(len(cart.chrROM) / 0x1000),
		chrIsRAM:      cart.hasCHRRAM,
		shiftRegister: 0x10,
		prgMode:       3,
		prgRAMEnabled: true,
	}
}

// SetCPUCycle records the CPU cycle the next WritePRG call arrives on, so
// consecutive-cycle writes can be detected.
func (m *Mapper001) SetCPUCycle(cycle uint64) {
	m.pendingCycle = cycle
}

// ReadPRG reads from PRG-RAM ($6000-$7FFF) or banked PRG-ROM ($8000-$FFFF).
func (m *Mapper001) ReadPRG(address uint16) uint8 {
	switch {
	case address >= 0x6000 && address < 0x8000:
		if m.prgRAMEnabled {
			return m.cart.sram[address-0x6000]
		}
		return 0

	case address >= 0x8000 && address < 0xC000:
		var bank uint8
		switch m.prgMode {
		case 0, 1:
			bank = m.prgBank & 0xFE
		case 2:
			bank = 0
		case 3:
			bank = m.prgBank
		}
		offset := uint32(bank)*0x4000 + uint32(address-0x8000)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}

	case address >= 0xC000:
		var bank uint8
		switch m.prgMode {
		case 0, 1:
			bank = (m.prgBank & 0xFE) | 1
		case 2:
			bank = m.prgBank
		case 3:
			if m.prgBanks > 0 {
				bank = m.prgBanks - 1
			}
		}
		offset := uint32(bank)*0x4000 + uint32(address-0xC000)
		if int(offset) < len(m.cart.prgROM) {
			return m.cart.prgROM[offset]
		}
	}
	return 0
}

// WritePRG feeds the 5-bit serial shift register, or writes PRG-RAM.
func (m *Mapper001) WritePRG(address uint16, value uint8) {
	if address >= 0x6000 && address < 0x8000 {
		if m.prgRAMEnabled {
			m.cart.sram[address-0x6000] = value
		}
		return
	}
	if address < 0x8000 {
		return
	}

	if m.haveLastWriteCycle && m.pendingCycle == m.lastWriteCycle {
		// Same CPU cycle as the previous write: real MMC1 ignores this one.
		return
	}
	m.haveLastWriteCycle = true
	m.lastWriteCycle = m.pendingCycle

	if value&0x80 != 0 {
		m.shiftRegister = 0x10
		m.shiftCount = 0
		m.prgMode = 3
		return
	}

	m.shiftRegister = (m.shiftRegister >> 1) | ((value & 1) << 4)
	m.shiftCount++

	if m.shiftCount == 5 {
		m.commitRegister(address, m.shiftRegister)
		m.shiftRegister = 0x10
		m.shiftCount = 0
	}
}

// commitRegister writes the filled shift register into the target internal
// register, selected by which $8000-$FFFF range the 5th write landed in.
func (m *Mapper001) commitRegister(address uint16, value uint8) {
	switch {
	case address < 0xA000:
		m.mirroring = value & 0x03
		m.prgMode = (value >> 2) & 0x03
		m.chrMode = (value >> 4) & 0x01
	case address < 0xC000:
		m.chrBank0 = value & 0x1F
	case address < 0xE000:
		m.chrBank1 = value & 0x1F
	default:
		m.prgBank = value & 0x0F
		m.prgRAMEnabled = (value & 0x10) == 0
	}
}

// ReadCHR reads from CHR-ROM/RAM, honoring 4KB vs 8KB bank mode.
func (m *Mapper001) ReadCHR(address uint16) uint8 {
	offset := m.chrOffset(address)
	if int(offset) < len(m.cart.chrROM) {
		return m.cart.chrROM[offset]
	}
	return 0
}

// WriteCHR writes to CHR-RAM only; CHR-ROM cartridges ignore writes.
func (m *Mapper001) WriteCHR(address uint16, value uint8) {
	if !m.chrIsRAM {
		return
	}
	offset := m.chrOffset(address)
	if int(offset) < len(m.cart.chrROM) {
		m.cart.chrROM[offset] = value
	}
}

func (m *Mapper001) chrOffset(address uint16) uint32 {
	if m.chrMode == 0 {
		bank := m.chrBank0 & 0xFE
		if address >= 0x1000 {
			bank |= 1
		}
		return uint32(bank)*0x1000 + uint32(address&0x0FFF)
	}
	if address < 0x1000 {
		return uint32(m.chrBank0)*0x1000 + uint32(address)
	}
	return uint32(m.chrBank1)*0x1000 + uint32(address-0x1000)
}

// Mirroring returns MMC1's current nametable mirroring mode, which can
// change at runtime (unlike NROM/UxROM's fixed header-declared mirroring).
func (m *Mapper001) Mirroring() MirrorMode {
	switch m.mirroring {
	case 0:
		return MirrorSingleScreen0
	case 1:
		return MirrorSingleScreen1
	case 2:
		return MirrorVertical
	default:
		return MirrorHorizontal
	}
}

// MapperState returns the shift register and committed bank/control
// registers for save-state export.
func (m *Mapper001) MapperState() []uint8 {
	return []uint8{
		m.shiftRegister, m.shiftCount,
		m.mirroring, m.prgMode, m.chrMode,
		m.chrBank0, m.chrBank1, m.prgBank,
		boolToByte(m.prgRAMEnabled),
	}
}

// LoadMapperState restores a previously saved shift register and bank
// state.
func (m *Mapper001) LoadMapperState(data []uint8) {
	if len(data) < 9 {
		return
	}
	m.shiftRegister, m.shiftCount = data[0], data[1]
	m.mirroring, m.prgMode, m.chrMode = data[2], data[3], data[4]
	m.chrBank0, m.chrBank1, m.prgBank = data[5], data[6], data[7]
	m.prgRAMEnabled = data[8] != 0
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// BatteryState returns the 8KB PRG-RAM contents for save-state export.
func (m *Mapper001) BatteryState() []uint8 {
	return append([]uint8(nil), m.cart.sram[:]...)
}

// LoadBatteryState restores previously-saved PRG-RAM contents.
func (m *Mapper001) LoadBatteryState(data []uint8) {
	copy(m.cart.sram[:], data)
}
