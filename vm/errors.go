package vm

import "fmt"

// ErrCode is the VM's internal error register value. It is distinct from
// Go's error type: it lives inside the running program's state and can be
// read and cleared by bytecode itself (ERROR_GET/ERROR_SET).
type ErrCode uint32

const (
	Success ErrCode = iota
	Failure
	DivisionByZero
	OutOfMemory
	StackOverflow
	StackUnderflow
	UndefinedInst
	UndefinedError
	UndefinedState
	InvalidFrame
	InvalidModule
	InvalidNative
	InvalidAddress
	InvalidString

	errCodeCount
)

var errCodeNames = [errCodeCount]string{
	"Success",
	"Failure",
	"Division by zero",
	"Out of memory",
	"Stack overflow",
	"Stack underflow",
	"Undefined instruction",
	"Undefined error",
	"Undefined state",
	"Invalid frame",
	"Invalid module",
	"Invalid native",
	"Invalid address",
	"Invalid string",
}

// String renders the error code the way the diagnostic stream and CLI print
// it. Out-of-range codes can't occur once they've passed through SetError,
// but String is defensive anyway since it may be called on a raw ErrCode.
func (e ErrCode) String() string {
	if e >= errCodeCount {
		return "Unknown error"
	}
	return errCodeNames[e]
}

// Error lets ErrCode satisfy the error interface so loader and CLI code can
// return it next to ordinary Go errors without a wrapper type.
func (e ErrCode) Error() string {
	return e.String()
}

// State is the machine's run state register.
type State uint32

const (
	Halted State = iota
	Breaked
	Ready

	stateCount
)

func (s State) String() string {
	switch s {
	case Halted:
		return "halted"
	case Breaked:
		return "breaked"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", uint32(s))
	}
}

// ErrHook lets a host decide what a non-success error register read should
// surface. It may clear the error (by calling vm.SetError(Success)) and
// return Success to let the program keep running, or leave it set.
//
// The hook must not call VM.GetError itself: GetError guards against
// reentrancy by returning Failure immediately to any call made while a hook
// is already running, rather than invoking the hook a second time.
type ErrHook func(vm *VM) ErrCode

type errorState struct {
	code   ErrCode
	hook   ErrHook
	inHook bool
}

// SetError validates and stores code, coercing anything out of range to
// UndefinedError, then returns the result of GetError (mirroring the
// source's husky_error_set, which always re-reads through the hook).
func (vm *VM) SetError(code ErrCode) ErrCode {
	if code >= errCodeCount {
		code = UndefinedError
	}
	vm.err.code = code
	return vm.GetError()
}

// GetError returns Success immediately if the register holds Success;
// otherwise it defers to the registered hook, or returns Failure if none is
// registered. See ErrHook for the reentrancy rule.
func (vm *VM) GetError() ErrCode {
	if vm.err.code == Success {
		return Success
	}
	if vm.err.hook == nil {
		return Failure
	}
	if vm.err.inHook {
		return Failure
	}
	vm.err.inHook = true
	defer func() { vm.err.inHook = false }()
	return vm.err.hook(vm)
}

// ErrCodeRaw returns the error register's raw value without consulting the
// hook. ERROR_GET reads the raw register, not the hooked view (see husky.c:
// HUSKY_INST_ERROR_GET pushes husky->err_code directly).
func (vm *VM) ErrCodeRaw() ErrCode {
	return vm.err.code
}

// SetErrHook installs (or clears, with nil) the error hook.
func (vm *VM) SetErrHook(hook ErrHook) {
	vm.err.hook = hook
}

// SetState validates and stores the state register. An out-of-range state is
// ignored (husky_state_set silently no-ops past HUSKY_N_STATES).
func (vm *VM) SetState(state State) {
	if state >= stateCount {
		return
	}
	vm.state = state
}

// StateValue returns the current run-state register.
func (vm *VM) StateValue() State {
	return vm.state
}
