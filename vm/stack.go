package vm

import "encoding/binary"

// peek returns the address of the Object at sp + rel*8. A negative rel
// addresses items already on the stack (rel = -1 is top); a non-negative
// rel addresses headroom above sp. The second return is Success, or the
// underflow/overflow error that applies.
func (vm *VM) peek(rel int64) (uint64, ErrCode) {
	offset := rel * objectSize

	if offset < 0 {
		off := uint64(-offset)
		if vm.sp < off {
			return 0, vm.SetError(StackUnderflow)
		}
		return vm.sp - off, Success
	}

	off := uint64(offset)
	if vm.mem.Size() < vm.sp+off+objectSize {
		return 0, vm.SetError(StackOverflow)
	}
	return vm.sp + off, Success
}

// Push writes obj at the current top-of-headroom slot and advances sp by
// one Object. Fails with StackOverflow when there's no room.
func (vm *VM) Push(obj Object) ErrCode {
	addr, code := vm.peek(0)
	if code != Success {
		return code
	}

	if code := vm.writeObjectAt(addr, obj); code != Success {
		return code
	}

	vm.sp += objectSize
	return vm.GetError()
}

// Pop reads the top Object into out (out may be nil to discard) and
// retreats sp by one Object. Fails with StackUnderflow when sp is 0.
func (vm *VM) Pop(out *Object) ErrCode {
	addr, code := vm.peek(-1)
	if code != Success {
		return code
	}

	if out != nil {
		obj, code := vm.readObjectAt(addr)
		if code != Success {
			return code
		}
		*out = obj
	}

	vm.sp -= objectSize
	return vm.GetError()
}

// readObjectAt and writeObjectAt are the Object-sized specialization of
// Memory.Read/Write, used by every primitive that touches a stack slot
// directly by address (Push/Pop, EXCHANGE, SET/GET_AT_SP, SET/GET_AT_FP).
func (vm *VM) readObjectAt(addr uint64) (Object, ErrCode) {
	var buf [objectSize]byte
	if code := vm.mem.Read(addr, buf[:]); code != Success {
		return Object{}, vm.SetError(code)
	}
	return Object{bits: binary.LittleEndian.Uint64(buf[:])}, Success
}

func (vm *VM) writeObjectAt(addr uint64, obj Object) ErrCode {
	var buf [objectSize]byte
	binary.LittleEndian.PutUint64(buf[:], obj.bits)
	if code := vm.mem.Write(addr, buf[:]); code != Success {
		return vm.SetError(code)
	}
	return Success
}

// frameEnter pushes the current fp, sets fp to the new frame base, and
// reserves n Object slots of local storage by advancing sp. Fails with
// InvalidFrame when n is negative or the reservation would overflow.
func (vm *VM) frameEnter(n int64) ErrCode {
	if n < 0 {
		return vm.SetError(InvalidFrame)
	}

	saved := ObjectFromUnsigned(vm.fp)
	if code := vm.Push(saved); code != Success {
		return code
	}

	vm.fp = vm.sp

	// Reserving n slots only needs the reservation's end to fit in memory —
	// unlike peek, there's no Object read/written at sp+n*8 itself, so this
	// doesn't go through peek's "room for a full Object at that address"
	// check.
	need := uint64(n) * objectSize
	if need > vm.mem.Size()-vm.sp {
		return vm.SetError(InvalidFrame)
	}
	vm.sp += need

	return vm.GetError()
}

// frameLeave restores sp to fp, then pops the saved fp from the slot frame
// enter pushed below it.
func (vm *VM) frameLeave() ErrCode {
	vm.sp = vm.fp

	var saved Object
	if code := vm.Pop(&saved); code != Success {
		return code
	}

	vm.fp = saved.Unsigned()
	return vm.GetError()
}

// peekAtFP mirrors the source's SET_AT_FP/GET_AT_FP trick of temporarily
// pivoting sp to fp to reuse peek, without actually mutating sp: it computes
// the fp-relative address directly, with the same bounds rules as peek.
func (vm *VM) peekAtFP(rel int64) (uint64, ErrCode) {
	offset := rel * objectSize

	if offset < 0 {
		off := uint64(-offset)
		if vm.fp < off {
			return 0, vm.SetError(StackUnderflow)
		}
		return vm.fp - off, Success
	}

	off := uint64(offset)
	if vm.mem.Size() < vm.fp+off+objectSize {
		return 0, vm.SetError(StackOverflow)
	}
	return vm.fp + off, Success
}
