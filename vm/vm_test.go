package vm

import (
	"bytes"
	"testing"
)

// runProgram writes code at address 0, sets sp to stackBase, marks the VM
// Ready, and drives it to Halted via Run.
func runProgram(machine *VM, code []byte, stackBase uint64) {
	machine.Memory().Write(0, code)
	machine.ip = 0
	machine.sp = stackBase
	machine.fp = stackBase
	machine.SetState(Ready)
	machine.Run()
}

func TestArithmeticAndPrint(t *testing.T) {
	var out bytes.Buffer
	machine := New(256, WithStdout(&out))

	code := new(asm).
		op(OpPush8).u8(7).
		op(OpPush8).u8(35).
		op(OpAdd).
		op(OpPush8).u8(0). // fmt: unsigned decimal
		op(OpPrint).
		op(OpHalt).
		bytes()

	runProgram(machine, code, 128)

	assert(t, out.String() == "42", "got %q", out.String())
	assert(t, machine.StateValue() == Halted, "got state %s", machine.StateValue())
	assert(t, machine.GetError() == Success, "got error %s", machine.GetError())
}

func TestDivisionByZeroReportsButContinues(t *testing.T) {
	var trace bytes.Buffer
	machine := New(256, WithTrace(&trace))
	// Without a hook GetError collapses every non-success code to Failure,
	// matching husky_error_get; install a pass-through hook so the trace
	// carries the underlying code for this assertion.
	machine.SetErrHook(func(vm *VM) ErrCode { return vm.ErrCodeRaw() })

	// DIV pops a (top) then b (second) and computes a/b, so b — the divisor —
	// is the first-pushed value: push 0 first, then 9, to divide 9 by 0.
	code := new(asm).
		op(OpPush8).u8(0).
		op(OpPush8).u8(9).
		op(OpDiv).
		op(OpHalt).
		bytes()

	runProgram(machine, code, 128)

	assert(t, bytes.Contains(trace.Bytes(), []byte("Division by zero")),
		"expected trace to mention division by zero, got %q", trace.String())
	assert(t, machine.StateValue() == Halted, "expected run to still reach Halted")
}

func TestCallReturn(t *testing.T) {
	var out bytes.Buffer
	machine := New(256, WithStdout(&out))

	// layout:
	// 0: CALL imm        (5 bytes, ip becomes 5 after fetch, jumps to 5+imm)
	// 5: PUSH_8 0        (fmt, runs after RETURN brings us back here)
	// 7: PRINT
	// 8: HALT
	// 9: PUSH_8 77       (subroutine body)
	// 11: EXCHANGE -1    (swap 77 under the return address)
	// 14: RETURN
	b := new(asm)
	b.op(OpCall).i32(4) // target = 5 + 4 = 9
	b.op(OpPush8).u8(0)
	b.op(OpPrint)
	b.op(OpHalt)
	b.op(OpPush8).u8(77)
	b.op(OpExchange).i16(-1)
	b.op(OpReturn)

	runProgram(machine, b.bytes(), 128)

	assert(t, out.String() == "77", "got %q", out.String())
}

func TestEnterLeaveFrameLocals(t *testing.T) {
	var out bytes.Buffer
	machine := New(256, WithStdout(&out))

	// ENTER 1 local slot, store 55 at fp+0, load it back, print, LEAVE, HALT.
	b := new(asm)
	b.op(OpEnter).u16(1)
	b.op(OpPush8).u8(55)
	b.op(OpSetAtFP).i16(0)
	b.op(OpGetAtFP).i16(0)
	b.op(OpPush8).u8(0)
	b.op(OpPrint)
	b.op(OpLeave)
	b.op(OpHalt)

	runProgram(machine, b.bytes(), 128)

	assert(t, out.String() == "55", "got %q", out.String())
	assert(t, machine.FP() == 128, "fp not restored, got %d", machine.FP())
	assert(t, machine.SP() == 128, "sp not restored, got %d", machine.SP())
}

func TestSeedArgsLayout(t *testing.T) {
	machine := New(64)
	machine.sp = 0
	machine.fp = 0

	err := machine.SeedArgs([]string{"prog", "x"})
	assert(t, err == nil, "seed failed: %v", err)

	// Push order is: sentinel, then each address in reverse, then argc — so
	// the stack bottom-to-top reads: sentinel, addr("x"), addr("prog"), argc.
	var sentinel, addrX, addrProg, argc Object
	assert(t, machine.readObjAtSPRel(0, &sentinel) == Success, "read sentinel failed")
	assert(t, sentinel.Handle() == 0, "expected NUL sentinel, got %d", sentinel.Handle())

	assert(t, machine.readObjAtSPRel(1, &addrX) == Success, "read addrX failed")
	assert(t, machine.readObjAtSPRel(2, &addrProg) == Success, "read addrProg failed")
	assert(t, machine.readObjAtSPRel(3, &argc) == Success, "read argc failed")
	assert(t, argc.Unsigned() == 2, "got argc %d", argc.Unsigned())

	assert(t, machine.mem.cString(addrProg.Unsigned()) == "prog", "got %q", machine.mem.cString(addrProg.Unsigned()))
	assert(t, machine.mem.cString(addrX.Unsigned()) == "x", "got %q", machine.mem.cString(addrX.Unsigned()))
}

// readObjAtSPRel reads the nth Object from the bottom of the stack (0 is the
// first pushed), a small test-only helper since SeedArgs leaves nothing on
// the trace for inspection otherwise.
func (vm *VM) readObjAtSPRel(n uint64, out *Object) ErrCode {
	addr := n * objectSize
	obj, code := vm.readObjectAt(addr)
	if code != Success {
		return code
	}
	*out = obj
	return Success
}
