package vm

import "testing"

func TestErrCodeString(t *testing.T) {
	assert(t, Success.String() == "Success", "got %s", Success.String())
	assert(t, DivisionByZero.String() == "Division by zero", "got %s", DivisionByZero.String())
	assert(t, ErrCode(999).String() == "Unknown error", "got %s", ErrCode(999).String())
}

func TestSetErrorCoercesOutOfRange(t *testing.T) {
	machine := New(64)
	machine.SetError(ErrCode(999))
	assert(t, machine.ErrCodeRaw() == UndefinedError, "got %s", machine.ErrCodeRaw())
}

func TestGetErrorWithoutHookReturnsFailure(t *testing.T) {
	machine := New(64)
	machine.SetError(StackOverflow)
	assert(t, machine.GetError() == Failure, "got %s", machine.GetError())
}

func TestGetErrorSuccessBypassesHook(t *testing.T) {
	machine := New(64)
	called := false
	machine.SetErrHook(func(vm *VM) ErrCode {
		called = true
		return Failure
	})
	assert(t, machine.GetError() == Success, "got %s", machine.GetError())
	assert(t, !called, "hook should not run when err_code is Success")
}

func TestErrHookCanClearError(t *testing.T) {
	machine := New(64)
	machine.SetErrHook(func(vm *VM) ErrCode {
		vm.err.code = Success
		return Success
	})
	result := machine.SetError(StackUnderflow)
	assert(t, result == Success, "got %s", result)
}

func TestErrHookReentrancyGuard(t *testing.T) {
	machine := New(64)
	var nested ErrCode
	machine.SetErrHook(func(vm *VM) ErrCode {
		nested = vm.GetError()
		return Failure
	})
	got := machine.SetError(InvalidFrame)
	assert(t, nested == Failure, "nested call should short-circuit to Failure, got %s", nested)
	assert(t, got == Failure, "got %s", got)
}

func TestStateSetIgnoresOutOfRange(t *testing.T) {
	machine := New(64)
	machine.SetState(Breaked)
	machine.SetState(State(999))
	assert(t, machine.StateValue() == Breaked, "got %s", machine.StateValue())
}
