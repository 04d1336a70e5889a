// Package vm implements the Kiln host runtime: code, function and frame
// objects, the bytecode evaluator, and the extension points the
// type-checking hook consumes (swappable frame evaluation, the object
// heap with its referrers query, and per-code extra slots).
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	// Stack manipulation
	OP_CONST Opcode = iota // Push constant from pool (u16 operand)
	OP_POP                 // Discard top of stack
	OP_DUP                 // Duplicate top of stack

	// Arithmetic
	OP_ADD // +
	OP_SUB // -
	OP_MUL // *
	OP_DIV // /
	OP_NEG // Unary minus

	// Comparison
	OP_EQ // ==
	OP_NE // !=
	OP_LT // <
	OP_GT // >

	// Variables
	OP_GET_LOCAL  // Get local variable by slot index (u8 operand)
	OP_SET_LOCAL  // Set local variable by slot index (u8 operand)
	OP_GET_GLOBAL // Get global variable by name constant (u16 operand)
	OP_SET_GLOBAL // Set global variable by name constant (u16 operand)

	// Control flow
	OP_JUMP          // Unconditional forward jump (u16 operand)
	OP_JUMP_IF_FALSE // Jump if top of stack is false (u16 operand)

	// Functions
	OP_CALL   // Call function with N args (u8 operand)
	OP_RETURN // Return top of stack from current frame

	// Special
	OP_NIL   // Push nil
	OP_TRUE  // Push true
	OP_FALSE // Push false
	OP_PRINT // Pop and print top of stack
)

// OpcodeNames maps opcodes to their string names (for debugging)
var OpcodeNames = map[Opcode]string{
	OP_CONST: "CONST",
	OP_POP:   "POP",
	OP_DUP:   "DUP",

	OP_ADD: "ADD",
	OP_SUB: "SUB",
	OP_MUL: "MUL",
	OP_DIV: "DIV",
	OP_NEG: "NEG",

	OP_EQ: "EQ",
	OP_NE: "NE",
	OP_LT: "LT",
	OP_GT: "GT",

	OP_GET_LOCAL:  "GET_LOCAL",
	OP_SET_LOCAL:  "SET_LOCAL",
	OP_GET_GLOBAL: "GET_GLOBAL",
	OP_SET_GLOBAL: "SET_GLOBAL",

	OP_JUMP:          "JUMP",
	OP_JUMP_IF_FALSE: "JUMP_IF_FALSE",

	OP_CALL:   "CALL",
	OP_RETURN: "RETURN",

	OP_NIL:   "NIL",
	OP_TRUE:  "TRUE",
	OP_FALSE: "FALSE",
	OP_PRINT: "PRINT",
}
