package system

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"gones/internal/apu"
	"gones/internal/input"
	"gones/internal/ppu"
)

// Save-state format: a 4-byte magic, a 1-byte version, then a sequence of
// length-prefixed sections. Each section carries a 1-byte ID and a 4-byte
// little-endian length, so a newer version can skip sections it doesn't
// recognize when loading an older snapshot. PRG/CHR ROM bytes are excluded
// — they're immutable and re-supplied by the caller's already-loaded
// cartridge at load time.
var saveStateMagic = [4]byte{'G', 'N', 'E', 'S'}

const saveStateVersion = 1

const (
	sectionCPU = iota + 1
	sectionPPU
	sectionPPUMemory
	sectionAPU
	sectionRAM
	sectionMapper
	sectionInput
)

var ErrBadSaveState = errors.New("invalid save-state data")

// SaveState serializes the system's volatile state to a versioned binary
// blob. Requires a cartridge to already be loaded.
func (s *System) SaveState() ([]byte, error) {
	if s.Cartridge == nil {
		return nil, errors.New("no cartridge loaded")
	}

	var buf bytes.Buffer
	buf.Write(saveStateMagic[:])
	buf.WriteByte(saveStateVersion)

	writeSection(&buf, sectionCPU, s.encodeCPU())
	writeSection(&buf, sectionPPU, s.encodePPU())
	writeSection(&buf, sectionPPUMemory, s.encodePPUMemory())
	writeSection(&buf, sectionAPU, s.encodeAPU())
	writeSection(&buf, sectionRAM, s.encodeRAM())
	writeSection(&buf, sectionMapper, s.encodeMapper())
	writeSection(&buf, sectionInput, s.encodeInput())

	return buf.Bytes(), nil
}

// LoadState restores previously-saved system state. The caller must already
// have loaded the same cartridge (or one with an identical mapper/PRG/CHR
// layout) via LoadCartridge before calling this.
func (s *System) LoadState(data []byte) error {
	if len(data) < 5 || !bytes.Equal(data[:4], saveStateMagic[:]) {
		return ErrBadSaveState
	}
	if s.Cartridge == nil {
		return errors.New("no cartridge loaded")
	}

	r := bytes.NewReader(data[5:])
	for r.Len() > 0 {
		id, payload, err := readSection(r)
		if err != nil {
			return err
		}
		switch id {
		case sectionCPU:
			s.decodeCPU(payload)
		case sectionPPU:
			s.decodePPU(payload)
		case sectionPPUMemory:
			s.decodePPUMemory(payload)
		case sectionAPU:
			s.decodeAPU(payload)
		case sectionRAM:
			s.decodeRAM(payload)
		case sectionMapper:
			s.decodeMapper(payload)
		case sectionInput:
			s.decodeInput(payload)
		}
		// Unrecognized section IDs are silently skipped: readSection already
		// consumed exactly its length-prefixed payload above.
	}
	return nil
}

func writeSection(buf *bytes.Buffer, id uint8, payload []byte) {
	buf.WriteByte(id)
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(payload)))
	buf.Write(lenBytes[:])
	buf.Write(payload)
}

func readSection(r *bytes.Reader) (uint8, []byte, error) {
	id, err := r.ReadByte()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: truncated section header", ErrBadSaveState)
	}
	var lenBytes [4]byte
	if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
		return 0, nil, fmt.Errorf("%w: truncated section length", ErrBadSaveState)
	}
	length := binary.LittleEndian.Uint32(lenBytes[:])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("%w: truncated section payload", ErrBadSaveState)
	}
	return id, payload, nil
}

func boolToByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

func packFlags(c, z, i, d, b, v, n bool) uint8 {
	var f uint8
	for bit, flag := range []bool{c, z, i, d, b, v, n} {
		if flag {
			f |= 1 << uint(bit)
		}
	}
	return f
}

func unpackFlags(f uint8) (c, z, i, d, b, v, n bool) {
	c = f&0x01 != 0
	z = f&0x02 != 0
	i = f&0x04 != 0
	d = f&0x08 != 0
	b = f&0x10 != 0
	v = f&0x20 != 0
	n = f&0x40 != 0
	return
}

func (s *System) encodeCPU() []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, s.CPU.PC)
	buf.WriteByte(s.CPU.A)
	buf.WriteByte(s.CPU.X)
	buf.WriteByte(s.CPU.Y)
	buf.WriteByte(s.CPU.SP)
	buf.WriteByte(packFlags(s.CPU.C, s.CPU.Z, s.CPU.I, s.CPU.D, s.CPU.B, s.CPU.V, s.CPU.N))
	binary.Write(&buf, binary.LittleEndian, s.CPU.Cycles())
	binary.Write(&buf, binary.LittleEndian, s.cpuCycles)
	return buf.Bytes()
}

func (s *System) decodeCPU(data []byte) {
	if len(data) < 15 {
		return
	}
	s.CPU.PC = binary.LittleEndian.Uint16(data[0:2])
	s.CPU.A, s.CPU.X, s.CPU.Y, s.CPU.SP = data[2], data[3], data[4], data[5]
	s.CPU.C, s.CPU.Z, s.CPU.I, s.CPU.D, s.CPU.B, s.CPU.V, s.CPU.N = unpackFlags(data[6])
	s.CPU.SetCycles(binary.LittleEndian.Uint64(data[7:15]))
	s.cpuCycles = s.CPU.Cycles()
	if len(data) >= 23 {
		s.cpuCycles = binary.LittleEndian.Uint64(data[15:23])
	}
}

func (s *System) encodePPU() []byte {
	st := s.PPU.Snapshot()
	var buf bytes.Buffer
	buf.WriteByte(st.PPUCtrl)
	buf.WriteByte(st.PPUMask)
	buf.WriteByte(st.PPUStatus)
	buf.WriteByte(st.OAMAddr)
	binary.Write(&buf, binary.LittleEndian, st.V)
	binary.Write(&buf, binary.LittleEndian, st.T)
	buf.WriteByte(st.X)
	buf.WriteByte(boolToByte(st.W))
	binary.Write(&buf, binary.LittleEndian, int32(st.Scanline))
	binary.Write(&buf, binary.LittleEndian, int32(st.Cycle))
	binary.Write(&buf, binary.LittleEndian, st.FrameCount)
	buf.WriteByte(boolToByte(st.OddFrame))
	buf.WriteByte(st.ReadBuffer)
	buf.Write(st.OAM[:])
	return buf.Bytes()
}

func (s *System) decodePPU(data []byte) {
	const fixedLen = 4 + 2 + 2 + 1 + 1 + 4 + 4 + 8 + 1 + 1
	if len(data) < fixedLen+256 {
		return
	}
	var st ppu.State
	st.PPUCtrl, st.PPUMask, st.PPUStatus, st.OAMAddr = data[0], data[1], data[2], data[3]
	st.V = binary.LittleEndian.Uint16(data[4:6])
	st.T = binary.LittleEndian.Uint16(data[6:8])
	st.X = data[8]
	st.W = data[9] != 0
	st.Scanline = int(int32(binary.LittleEndian.Uint32(data[10:14])))
	st.Cycle = int(int32(binary.LittleEndian.Uint32(data[14:18])))
	st.FrameCount = binary.LittleEndian.Uint64(data[18:26])
	st.OddFrame = data[26] != 0
	st.ReadBuffer = data[27]
	copy(st.OAM[:], data[28:28+256])
	s.PPU.Restore(st)
	s.frameCount = st.FrameCount
}

func (s *System) encodePPUMemory() []byte {
	var buf bytes.Buffer
	if s.ppuMem != nil {
		vram := s.ppuMem.VRAM()
		palette := s.ppuMem.Palette()
		buf.Write(vram[:])
		buf.Write(palette[:])
	}
	return buf.Bytes()
}

func (s *System) decodePPUMemory(data []byte) {
	if s.ppuMem == nil || len(data) < 0x1000+32 {
		return
	}
	var vram [0x1000]uint8
	var palette [32]uint8
	copy(vram[:], data[:0x1000])
	copy(palette[:], data[0x1000:0x1000+32])
	s.ppuMem.SetVRAM(vram)
	s.ppuMem.SetPalette(palette)
}

func (s *System) encodeAPU() []byte {
	st := s.APU.Snapshot()
	var buf bytes.Buffer
	buf.Write(st.Registers[:])
	binary.Write(&buf, binary.LittleEndian, st.FrameCounter)
	buf.WriteByte(boolToByte(st.FrameMode))
	binary.Write(&buf, binary.LittleEndian, st.Cycles)
	return buf.Bytes()
}

func (s *System) decodeAPU(data []byte) {
	const regLen = 0x18
	if len(data) < regLen+11 {
		return
	}
	var st apu.State
	copy(st.Registers[:], data[:regLen])
	st.FrameCounter = binary.LittleEndian.Uint16(data[regLen : regLen+2])
	st.FrameMode = data[regLen+2] != 0
	st.Cycles = binary.LittleEndian.Uint64(data[regLen+3 : regLen+11])
	s.APU.Restore(st)
}

func (s *System) encodeRAM() []byte {
	ram := s.Memory.RAM()
	return ram[:]
}

func (s *System) decodeRAM(data []byte) {
	if len(data) < 0x800 {
		return
	}
	var ram [0x800]uint8
	copy(ram[:], data[:0x800])
	s.Memory.SetRAM(ram)
}

func (s *System) encodeMapper() []byte {
	var buf bytes.Buffer
	writeBlob(&buf, s.Cartridge.BatteryState())
	writeBlob(&buf, s.Cartridge.MapperState())
	return buf.Bytes()
}

func (s *System) decodeMapper(data []byte) {
	r := bytes.NewReader(data)
	battery := readBlob(r)
	mapperState := readBlob(r)
	if battery != nil {
		s.Cartridge.LoadBatteryState(battery)
	}
	if mapperState != nil {
		s.Cartridge.LoadMapperState(mapperState)
	}
}

func (s *System) encodeInput() []byte {
	var buf bytes.Buffer
	encodeControllerState(&buf, s.Input.Controller1.Snapshot())
	encodeControllerState(&buf, s.Input.Controller2.Snapshot())
	return buf.Bytes()
}

func (s *System) decodeInput(data []byte) {
	if len(data) < 10 {
		return
	}
	s.Input.Controller1.Restore(decodeControllerState(data[0:5]))
	s.Input.Controller2.Restore(decodeControllerState(data[5:10]))
}

func encodeControllerState(buf *bytes.Buffer, st input.State) {
	buf.WriteByte(st.Buttons)
	buf.WriteByte(st.ShiftRegister)
	buf.WriteByte(boolToByte(st.Strobe))
	buf.WriteByte(st.ButtonSnapshot)
	buf.WriteByte(st.BitPosition)
}

func decodeControllerState(data []byte) input.State {
	return input.State{
		Buttons:        data[0],
		ShiftRegister:  data[1],
		Strobe:         data[2] != 0,
		ButtonSnapshot: data[3],
		BitPosition:    data[4],
	}
}

func writeBlob(buf *bytes.Buffer, data []byte) {
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(data)))
	buf.Write(lenBytes[:])
	buf.Write(data)
}

func readBlob(r *bytes.Reader) []byte {
	var lenBytes [4]byte
	if _, err := io.ReadFull(r, lenBytes[:]); err != nil {
		return nil
	}
	length := binary.LittleEndian.Uint32(lenBytes[:])
	if length == 0 {
		return nil
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil
	}
	return data
}
