package vm

// Opcode is a single dispatched instruction. Numbering is part of the wire
// contract: it must match the order below exactly for an image compiled
// against one numbering to run unchanged against another implementation.
type Opcode uint8

const (
	OpHalt Opcode = iota
	OpNoop
	OpBreakpoint
	OpErrorSet
	OpErrorGet
	OpJump
	OpJumpIndirect
	OpJumpIfFalse
	OpJumpIfTrue
	OpCall
	OpCallIndirect
	OpReturn
	OpModuleOpen
	OpModuleClose
	OpNativeLoad
	OpNativeCall
	OpIsNullPointer
	OpIsNotNullPointer
	OpIsString
	OpEnter
	OpLeave
	OpPush8
	OpPush16
	OpPush32
	OpPush64
	OpPop
	OpExchange
	OpSetAtSP
	OpGetAtSP
	OpSetAtFP
	OpGetAtFP
	OpStore8
	OpStore16
	OpStore32
	OpStore64
	OpLoad8
	OpLoad16
	OpLoad32
	OpLoad64
	OpNegate
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpIntMul
	OpIntDiv
	OpIntMod
	OpIsEqual
	OpIsNotEqual
	OpIsLess
	OpIsLessOrEqual
	OpIsGreater
	OpIsGreaterOrEqual
	OpBitNot
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitShiftLeft
	OpBitShiftRight
	OpBitIntShiftRight
	OpPrint

	opcodeCount
)

var opcodeNames = [opcodeCount]string{
	"HALT", "NOOP", "BREAKPOINT", "ERROR_SET", "ERROR_GET",
	"JUMP", "JUMP_INDIRECT", "JUMP_IF_FALSE", "JUMP_IF_TRUE",
	"CALL", "CALL_INDIRECT", "RETURN",
	"MODULE_OPEN", "MODULE_CLOSE", "NATIVE_LOAD", "NATIVE_CALL",
	"IS_NULL_POINTER", "IS_NOT_NULL_POINTER", "IS_STRING",
	"ENTER", "LEAVE",
	"PUSH_8", "PUSH_16", "PUSH_32", "PUSH_64",
	"POP", "EXCHANGE", "SET_AT_SP", "GET_AT_SP", "SET_AT_FP", "GET_AT_FP",
	"STORE_8", "STORE_16", "STORE_32", "STORE_64",
	"LOAD_8", "LOAD_16", "LOAD_32", "LOAD_64",
	"NEGATE", "ADD", "SUBTRACT", "MULTIPLY", "DIVIDE", "MODULO",
	"INT_MULTIPLY", "INT_DIVIDE", "INT_MODULO",
	"IS_EQUAL", "IS_NOT_EQUAL", "IS_LESS", "IS_LESS_OR_EQUAL",
	"IS_GREATER", "IS_GREATER_OR_EQUAL",
	"BIT_NOT", "BIT_AND", "BIT_OR", "BIT_XOR",
	"BIT_SHIFT_LEFT", "BIT_SHIFT_RIGHT", "BIT_INT_SHIFT_RIGHT",
	"PRINT",
}

// String renders the mnemonic used in trace output and disassembly.
func (o Opcode) String() string {
	if o >= opcodeCount {
		return "UNKNOWN"
	}
	return opcodeNames[o]
}

// pushWidth returns the immediate width in bytes for a PUSH_n opcode family
// member, computed the same way the source does: 1 << (opcode - PUSH_8).
func pushWidth(op Opcode) uint64 {
	return 1 << (op - OpPush8)
}

// storeWidth returns the byte width for a STORE_n opcode family member:
// 1 << (opcode - STORE_8).
func storeWidth(op Opcode) uint64 {
	return 1 << (op - OpStore8)
}

// loadWidth is the LOAD_n equivalent, based on its own family's start.
func loadWidth(op Opcode) uint64 {
	return 1 << (op - OpLoad8)
}
