package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable representation of the bytecode
func Disassemble(code *CodeObject) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s (arity %d, locals %v) ==\n", code.Name, code.Arity, code.Varnames))

	offset := 0
	for offset < len(code.Bytecode) {
		offset = disassembleInstruction(&sb, code, offset)
	}

	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, code *CodeObject, offset int) int {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	// Print line number
	if offset > 0 && code.Lines[offset] == code.Lines[offset-1] {
		sb.WriteString("   | ")
	} else {
		sb.WriteString(fmt.Sprintf("%4d ", code.Lines[offset]))
	}

	op := Opcode(code.Bytecode[offset])

	switch op {
	case OP_CONST, OP_GET_GLOBAL, OP_SET_GLOBAL:
		return constantInstruction(sb, OpcodeNames[op], code, offset)

	case OP_GET_LOCAL, OP_SET_LOCAL:
		slot := int(code.Bytecode[offset+1])
		name := "?"
		if slot < len(code.Varnames) {
			name = code.Varnames[slot]
		}
		sb.WriteString(fmt.Sprintf("%-16s %4d  ; %s\n", OpcodeNames[op], slot, name))
		return offset + 2

	case OP_CALL:
		sb.WriteString(fmt.Sprintf("%-16s %4d\n", "CALL", code.Bytecode[offset+1]))
		return offset + 2

	case OP_JUMP, OP_JUMP_IF_FALSE:
		target := code.ReadU16(offset + 1)
		sb.WriteString(fmt.Sprintf("%-16s -> %04d\n", OpcodeNames[op], target))
		return offset + 3

	default:
		name, ok := OpcodeNames[op]
		if !ok {
			sb.WriteString(fmt.Sprintf("UNKNOWN %d\n", op))
			return offset + 1
		}
		sb.WriteString(name + "\n")
		return offset + 1
	}
}

func constantInstruction(sb *strings.Builder, name string, code *CodeObject, offset int) int {
	idx := code.ReadU16(offset + 1)
	val := "?"
	if idx < len(code.Constants) {
		val = code.Constants[idx].Inspect()
	}
	sb.WriteString(fmt.Sprintf("%-16s %4d  ; %s\n", name, idx, val))
	return offset + 3
}
