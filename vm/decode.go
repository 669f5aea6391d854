package vm

import "fmt"

// step fetches one opcode byte at ip, traces it if verbose is set, then
// executes it. Every instruction reports through the error register
// (vm.err), never through a Go error return — a faulting instruction
// leaves state unchanged and simply stops doing further work this step,
// mirroring husky_clock's "if not success, break" pattern throughout.
func (vm *VM) step() error {
	opByte, code := vm.fetchByte()
	if code != Success {
		return nil
	}
	op := Opcode(opByte)

	if vm.verbose {
		fmt.Fprintf(vm.trace, "%012X | %02X\n", vm.ip-1, opByte)
	}

	switch op {
	case OpHalt:
		vm.SetState(Halted)

	case OpNoop:
		// nothing

	case OpBreakpoint:
		vm.SetState(Breaked)

	case OpErrorSet:
		var a Object
		if vm.Pop(&a) != Success {
			break
		}
		vm.SetError(ErrCode(a.Unsigned()))

	case OpErrorGet:
		vm.Push(ObjectFromUnsigned(uint64(vm.ErrCodeRaw())))

	case OpJump:
		imm, code := vm.fetchImm32()
		if code != Success {
			break
		}
		vm.ip = uint64(int64(vm.ip) + int64(imm))

	case OpJumpIndirect:
		var a Object
		if vm.Pop(&a) != Success {
			break
		}
		vm.ip = uint64(int64(vm.ip) + a.Signed())

	case OpJumpIfFalse:
		imm, code := vm.fetchImm32()
		if code != Success {
			break
		}
		var a Object
		if vm.Pop(&a) != Success {
			break
		}
		if a.Unsigned() == 0 {
			vm.ip = uint64(int64(vm.ip) + int64(imm))
		}

	case OpJumpIfTrue:
		imm, code := vm.fetchImm32()
		if code != Success {
			break
		}
		var a Object
		if vm.Pop(&a) != Success {
			break
		}
		if a.Unsigned() != 0 {
			vm.ip = uint64(int64(vm.ip) + int64(imm))
		}

	case OpCall:
		imm, code := vm.fetchImm32()
		if code != Success {
			break
		}
		if vm.Push(ObjectFromUnsigned(vm.ip)) != Success {
			break
		}
		vm.ip = uint64(int64(vm.ip) + int64(imm))

	case OpCallIndirect:
		var tgt Object
		if vm.Pop(&tgt) != Success {
			break
		}
		if vm.Push(ObjectFromUnsigned(vm.ip)) != Success {
			break
		}
		vm.ip = uint64(int64(vm.ip) + tgt.Signed())

	case OpReturn:
		var ret Object
		if vm.Pop(&ret) != Success {
			break
		}
		vm.ip = ret.Unsigned()

	case OpModuleOpen:
		vm.execModuleOpen()

	case OpModuleClose:
		vm.execModuleClose()

	case OpNativeLoad:
		vm.execNativeLoad()

	case OpNativeCall:
		vm.execNativeCall()

	case OpIsNullPointer:
		var a Object
		if vm.Pop(&a) != Success {
			break
		}
		vm.Push(boolObject(a.Handle() == 0))

	case OpIsNotNullPointer:
		var a Object
		if vm.Pop(&a) != Success {
			break
		}
		vm.Push(boolObject(a.Handle() != 0))

	case OpIsString:
		var a Object
		if vm.Pop(&a) != Success {
			break
		}
		if vm.mem.stringVerify(a.Unsigned()) != Success {
			vm.SetError(Success)
			vm.Push(boolObject(false))
		} else {
			vm.Push(boolObject(true))
		}

	case OpEnter:
		imm, code := vm.fetchImm16()
		if code != Success {
			break
		}
		vm.frameEnter(int64(imm))

	case OpLeave:
		vm.frameLeave()

	case OpPush8, OpPush16, OpPush32, OpPush64:
		imm, code := vm.fetchUintN(pushWidth(op))
		if code != Success {
			break
		}
		vm.Push(ObjectFromUnsigned(imm))

	case OpPop:
		vm.Pop(nil)

	case OpExchange:
		vm.execExchange()

	case OpSetAtSP:
		vm.execSetAtSP()

	case OpGetAtSP:
		vm.execGetAtSP()

	case OpSetAtFP:
		vm.execSetAtFP()

	case OpGetAtFP:
		vm.execGetAtFP()

	case OpStore8, OpStore16, OpStore32, OpStore64:
		vm.execStore(op)

	case OpLoad8, OpLoad16, OpLoad32, OpLoad64:
		vm.execLoad(op)

	case OpNegate:
		var a Object
		if vm.Pop(&a) != Success {
			break
		}
		vm.Push(ObjectFromUnsigned(-a.Unsigned()))

	case OpAdd:
		vm.binOpU(func(a, b uint64) uint64 { return a + b })
	case OpSub:
		vm.binOpU(func(a, b uint64) uint64 { return a - b })
	case OpMul:
		vm.binOpU(func(a, b uint64) uint64 { return a * b })
	case OpDiv:
		vm.binOpUDivGuard(func(a, b uint64) uint64 { return a / b })
	case OpMod:
		vm.binOpUDivGuard(func(a, b uint64) uint64 { return a % b })

	case OpIntMul:
		vm.binOpI(func(a, b int64) int64 { return a * b })
	case OpIntDiv:
		vm.binOpIDivGuard(func(a, b int64) int64 { return a / b })
	case OpIntMod:
		vm.binOpIDivGuard(func(a, b int64) int64 { return a % b })

	case OpIsEqual:
		vm.binOpUBool(func(a, b uint64) bool { return a == b })
	case OpIsNotEqual:
		vm.binOpUBool(func(a, b uint64) bool { return a != b })
	case OpIsLess:
		vm.binOpUBool(func(a, b uint64) bool { return a < b })
	case OpIsLessOrEqual:
		vm.binOpUBool(func(a, b uint64) bool { return a <= b })
	case OpIsGreater:
		vm.binOpUBool(func(a, b uint64) bool { return a > b })
	case OpIsGreaterOrEqual:
		vm.binOpUBool(func(a, b uint64) bool { return a >= b })

	case OpBitNot:
		var a Object
		if vm.Pop(&a) != Success {
			break
		}
		vm.Push(ObjectFromUnsigned(^a.Unsigned()))

	case OpBitAnd:
		vm.binOpU(func(a, b uint64) uint64 { return a & b })
	case OpBitOr:
		vm.binOpU(func(a, b uint64) uint64 { return a | b })
	case OpBitXor:
		vm.binOpU(func(a, b uint64) uint64 { return a ^ b })

	case OpBitShiftLeft:
		vm.binOpU(func(a, b uint64) uint64 { return a << (b % 64) })
	case OpBitShiftRight:
		vm.binOpU(func(a, b uint64) uint64 { return a >> (b % 64) })

	case OpBitIntShiftRight:
		vm.execBitIntShiftRight()

	case OpPrint:
		vm.execPrint()

	default:
		vm.SetError(UndefinedInst)
	}

	return nil
}

func boolObject(b bool) Object {
	if b {
		return ObjectFromUnsigned(1)
	}
	return ObjectFromUnsigned(0)
}

// fetchByte reads the opcode byte at ip and advances ip, the one-byte
// special case of read_ip used by every step.
func (vm *VM) fetchByte() (byte, ErrCode) {
	var buf [1]byte
	if code := vm.mem.Read(vm.ip, buf[:]); code != Success {
		return 0, vm.SetError(code)
	}
	vm.ip++
	return buf[0], Success
}

func (vm *VM) fetchImm32() (int32, ErrCode) {
	u, code := vm.fetchUintN(4)
	return int32(u), code
}

func (vm *VM) fetchImm16() (uint16, ErrCode) {
	u, code := vm.fetchUintN(2)
	return uint16(u), code
}

// fetchUintN reads n little-endian bytes at ip, zero-extends to 64 bits,
// and advances ip by n. n is always 1, 2, 4, or 8 here.
func (vm *VM) fetchUintN(n uint64) (uint64, ErrCode) {
	var buf [8]byte
	if code := vm.mem.Read(vm.ip, buf[:n]); code != Success {
		return 0, vm.SetError(code)
	}
	vm.ip += n

	var v uint64
	for i := n; i > 0; i-- {
		v = (v << 8) | uint64(buf[i-1])
	}
	return v, Success
}

func (vm *VM) binOpU(f func(a, b uint64) uint64) {
	var a, b Object
	if vm.Pop(&a) != Success {
		return
	}
	if vm.Pop(&b) != Success {
		return
	}
	vm.Push(ObjectFromUnsigned(f(a.Unsigned(), b.Unsigned())))
}

func (vm *VM) binOpUDivGuard(f func(a, b uint64) uint64) {
	var a, b Object
	if vm.Pop(&a) != Success {
		return
	}
	if vm.Pop(&b) != Success {
		return
	}
	if b.Unsigned() == 0 {
		vm.SetError(DivisionByZero)
		return
	}
	vm.Push(ObjectFromUnsigned(f(a.Unsigned(), b.Unsigned())))
}

func (vm *VM) binOpI(f func(a, b int64) int64) {
	var a, b Object
	if vm.Pop(&a) != Success {
		return
	}
	if vm.Pop(&b) != Success {
		return
	}
	vm.Push(ObjectFromSigned(f(a.Signed(), b.Signed())))
}

func (vm *VM) binOpIDivGuard(f func(a, b int64) int64) {
	var a, b Object
	if vm.Pop(&a) != Success {
		return
	}
	if vm.Pop(&b) != Success {
		return
	}
	if b.Signed() == 0 {
		vm.SetError(DivisionByZero)
		return
	}
	vm.Push(ObjectFromSigned(f(a.Signed(), b.Signed())))
}

func (vm *VM) binOpUBool(f func(a, b uint64) bool) {
	var a, b Object
	if vm.Pop(&a) != Success {
		return
	}
	if vm.Pop(&b) != Success {
		return
	}
	vm.Push(boolObject(f(a.Unsigned(), b.Unsigned())))
}

// execBitIntShiftRight is BIT_INT_SHIFT_RIGHT: a (signed) >> b (unsigned,
// mod 64), arithmetic shift, no division-by-zero style guard (shifting by
// zero is always well-defined).
func (vm *VM) execBitIntShiftRight() {
	var a, b Object
	if vm.Pop(&a) != Success {
		return
	}
	if vm.Pop(&b) != Success {
		return
	}
	vm.Push(ObjectFromSigned(a.Signed() >> (b.Unsigned() % 64)))
}

// execExchange swaps the popped value with the Object at stack-relative
// imm, leaving the old slot value on top of the stack.
func (vm *VM) execExchange() {
	imm, code := vm.fetchImm16()
	if code != Success {
		return
	}
	var a Object
	if vm.Pop(&a) != Success {
		return
	}
	addr, code := vm.peek(int64(int16(imm)))
	if code != Success {
		return
	}

	old, code := vm.readObjectAt(addr)
	if code != Success {
		return
	}
	if vm.Push(old) != Success {
		return
	}

	vm.writeObjectAt(addr, a)
}

func (vm *VM) execSetAtSP() {
	imm, code := vm.fetchImm16()
	if code != Success {
		return
	}
	var a Object
	if vm.Pop(&a) != Success {
		return
	}
	addr, code := vm.peek(int64(int16(imm)))
	if code != Success {
		return
	}
	vm.writeObjectAt(addr, a)
}

func (vm *VM) execGetAtSP() {
	imm, code := vm.fetchImm16()
	if code != Success {
		return
	}
	addr, code := vm.peek(int64(int16(imm)))
	if code != Success {
		return
	}
	obj, code := vm.readObjectAt(addr)
	if code != Success {
		return
	}
	vm.Push(obj)
}

func (vm *VM) execSetAtFP() {
	imm, code := vm.fetchImm16()
	if code != Success {
		return
	}
	var a Object
	if vm.Pop(&a) != Success {
		return
	}
	addr, code := vm.peekAtFP(int64(int16(imm)))
	if code != Success {
		return
	}
	vm.writeObjectAt(addr, a)
}

func (vm *VM) execGetAtFP() {
	imm, code := vm.fetchImm16()
	if code != Success {
		return
	}
	addr, code := vm.peekAtFP(int64(int16(imm)))
	if code != Success {
		return
	}
	obj, code := vm.readObjectAt(addr)
	if code != Success {
		return
	}
	vm.Push(obj)
}

// execStore pops addr then val (addr first, matching the convention that
// the first-popped operand is the one listed first) and writes the low
// width(op) bytes of val to memory at addr.
func (vm *VM) execStore(op Opcode) {
	var addr, val Object
	if vm.Pop(&addr) != Success {
		return
	}
	if vm.Pop(&val) != Success {
		return
	}

	width := storeWidth(op)
	var buf [8]byte
	leputUint64(buf[:], val.bits)
	if code := vm.mem.Write(addr.Unsigned(), buf[:width]); code != Success {
		vm.SetError(code)
	}
}

// execLoad pops addr, reads width(op) bytes, zero-extends, and pushes the
// result.
func (vm *VM) execLoad(op Opcode) {
	var addr Object
	if vm.Pop(&addr) != Success {
		return
	}

	width := loadWidth(op)
	var buf [8]byte
	if code := vm.mem.Read(addr.Unsigned(), buf[:width]); code != Success {
		vm.SetError(code)
		return
	}
	vm.Push(ObjectFromUnsigned(leUint64(buf[:])))
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = (v << 8) | uint64(b[i])
	}
	return v
}

func leputUint64(b []byte, v uint64) {
	for i := 0; i < len(b); i++ {
		b[i] = byte(v)
		v >>= 8
	}
}

// execPrint pops fmt (first pop) then val (second pop) and writes val to
// stdout formatted per fmt: 0 unsigned decimal, 1 signed decimal, 2 lower
// hex, 3 upper hex, 4 char, 5 a NUL-terminated string at val. An
// unrecognized fmt code prints nothing, matching the source's switch with
// no default case.
func (vm *VM) execPrint() {
	var format, val Object
	if vm.Pop(&format) != Success {
		return
	}
	if vm.Pop(&val) != Success {
		return
	}

	switch format.Unsigned() {
	case 0:
		fmt.Fprintf(vm.stdout, "%d", val.Unsigned())
	case 1:
		fmt.Fprintf(vm.stdout, "%d", val.Signed())
	case 2:
		fmt.Fprintf(vm.stdout, "%x", val.Unsigned())
	case 3:
		fmt.Fprintf(vm.stdout, "%X", val.Unsigned())
	case 4:
		fmt.Fprintf(vm.stdout, "%c", rune(val.Unsigned()))
	case 5:
		if vm.mem.stringVerify(val.Unsigned()) != Success {
			return
		}
		fmt.Fprint(vm.stdout, vm.mem.cString(val.Unsigned()))
	}
}
