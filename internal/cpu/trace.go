package cpu

import (
	"fmt"
	"strings"
)

// operandBytes returns the raw bytes following the opcode for disassembly,
// without advancing the CPU's program counter.
func (cpu *CPU) operandBytes(pc uint16, instruction *Instruction) []uint8 {
	bytes := make([]uint8, instruction.Bytes-1)
	for i := range bytes {
		bytes[i] = cpu.memory.Read(pc + 1 + uint16(i))
	}
	return bytes
}

// disassemble renders the mnemonic and operand for a single instruction in
// the column layout nestest golden logs use, e.g. "LDA #$10" or
// "STA $0200,X".
func disassemble(cpu *CPU, pc uint16, instruction *Instruction, operands []uint8) string {
	name := instruction.Name
	switch instruction.Mode {
	case Implied:
		return name
	case Accumulator:
		return name + " A"
	case Immediate:
		return fmt.Sprintf("%s #$%02X", name, operands[0])
	case ZeroPage:
		return fmt.Sprintf("%s $%02X", name, operands[0])
	case ZeroPageX:
		return fmt.Sprintf("%s $%02X,X", name, operands[0])
	case ZeroPageY:
		return fmt.Sprintf("%s $%02X,Y", name, operands[0])
	case Relative:
		offset := int8(operands[0])
		target := uint16(int32(pc+2) + int32(offset))
		return fmt.Sprintf("%s $%04X", name, target)
	case Absolute:
		addr := uint16(operands[0]) | uint16(operands[1])<<8
		return fmt.Sprintf("%s $%04X", name, addr)
	case AbsoluteX:
		addr := uint16(operands[0]) | uint16(operands[1])<<8
		return fmt.Sprintf("%s $%04X,X", name, addr)
	case AbsoluteY:
		addr := uint16(operands[0]) | uint16(operands[1])<<8
		return fmt.Sprintf("%s $%04X,Y", name, addr)
	case Indirect:
		addr := uint16(operands[0]) | uint16(operands[1])<<8
		return fmt.Sprintf("%s ($%04X)", name, addr)
	case IndexedIndirect:
		return fmt.Sprintf("%s ($%02X,X)", name, operands[0])
	case IndirectIndexed:
		return fmt.Sprintf("%s ($%02X),Y", name, operands[0])
	default:
		return name
	}
}

// formatTraceLine renders one nestest-compatible trace line for the
// instruction about to be executed at pc. Column layout:
//
//	PC    raw bytes      disassembly            A  X  Y  P  SP   PPU:line,col CYC:n
//
// scanline/dot come from the PPU callback installed via SetPPUStateFunc;
// the pre-render scanline (-1 internally) is reported as 261, matching
// nestest golden logs' 0-261 scanline numbering.
func formatTraceLine(cpu *CPU, pc uint16, opcode uint8, instruction *Instruction, scanline, dot int) string {
	operands := cpu.operandBytes(pc, instruction)

	rawBytes := make([]string, 0, 3)
	rawBytes = append(rawBytes, fmt.Sprintf("%02X", opcode))
	for _, b := range operands {
		rawBytes = append(rawBytes, fmt.Sprintf("%02X", b))
	}
	bytesCol := strings.Join(rawBytes, " ")

	disasm := disassemble(cpu, pc, instruction, operands)

	if scanline < 0 {
		scanline = 261
	}

	return fmt.Sprintf("%04X  %-9s %-32s A:%02X X:%02X Y:%02X P:%02X SP:%02X PPU:%3d,%3d CYC:%d",
		pc, bytesCol, disasm, cpu.A, cpu.X, cpu.Y, cpu.GetStatusByte(), cpu.SP, scanline, dot, cpu.cycles)
}
