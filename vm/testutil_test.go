package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

// asm is a tiny program builder so tests encode bytecode with named opcode
// constants instead of magic numbers.
type asm struct {
	buf bytes.Buffer
}

func (a *asm) op(o Opcode) *asm {
	a.buf.WriteByte(byte(o))
	return a
}

func (a *asm) u8(v uint8) *asm {
	a.buf.WriteByte(v)
	return a
}

func (a *asm) u16(v uint16) *asm {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	a.buf.Write(b[:])
	return a
}

func (a *asm) i32(v int32) *asm {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	a.buf.Write(b[:])
	return a
}

func (a *asm) i16(v int16) *asm {
	return a.u16(uint16(v))
}

func (a *asm) bytes() []byte {
	return a.buf.Bytes()
}

// buildImage assembles a single-section binary image: one section named
// "code" at address 0 holding code, with the given memory size, initial ip
// (0) and initial sp/fp.
func buildImage(memSize, sp uint64, code []byte) []byte {
	var buf bytes.Buffer
	buf.Write(imageMagic[:])
	buf.Write(imageVersion[:])

	writeU64 := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])
	}

	writeU64(memSize)
	writeU64(0) // ip
	writeU64(sp)

	var secCount [2]byte
	binary.LittleEndian.PutUint16(secCount[:], 1)
	buf.Write(secCount[:])

	buf.WriteString("code")
	buf.WriteByte(0)
	writeU64(0) // addr
	writeU64(uint64(len(code)))
	buf.Write(code)

	return buf.Bytes()
}
