package vm

import (
	"fmt"
	"io"
	"os"
)

// VM is the execution engine façade: Memory plus the register file plus
// everything the Decoder needs (the error/state registers, trace flag and
// stream, and the NativeBridge). Constructing one does not load a program;
// call LoadImage (or LoadELFImage) before Run.
type VM struct {
	mem *Memory

	ip uint64
	sp uint64
	fp uint64

	err   errorState
	state State

	verbose bool
	trace   io.Writer
	stdout  io.Writer

	bridge NativeBridge
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithVerbose enables the decoder's per-instruction trace line.
func WithVerbose(v bool) Option {
	return func(vm *VM) { vm.verbose = v }
}

// WithTrace overrides the trace stream (default os.Stderr).
func WithTrace(w io.Writer) Option {
	return func(vm *VM) { vm.trace = w }
}

// WithStdout overrides PRINT's output stream (default os.Stdout).
func WithStdout(w io.Writer) Option {
	return func(vm *VM) { vm.stdout = w }
}

// WithNativeBridge overrides the default plugin-backed NativeBridge.
func WithNativeBridge(b NativeBridge) Option {
	return func(vm *VM) { vm.bridge = b }
}

// New constructs a VM with a zeroed Memory of memSize bytes, state Halted,
// err_code Success. memSize must be nonzero; callers (the CLI) are
// responsible for rejecting a zero configured size before calling New.
func New(memSize uint64, opts ...Option) *VM {
	vm := &VM{
		mem:    NewMemory(memSize),
		state:  Halted,
		trace:  os.Stderr,
		stdout: os.Stdout,
		bridge: NewPluginBridge(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Memory exposes the VM's backing store, mainly for tests and for a native
// function that wants direct access without going through the stack.
func (vm *VM) Memory() *Memory { return vm.mem }

// IP, SP, FP return the current register values.
func (vm *VM) IP() uint64 { return vm.ip }
func (vm *VM) SP() uint64 { return vm.sp }
func (vm *VM) FP() uint64 { return vm.fp }

// SeedArgs implements the façade's argument-seeding step (spec §4.6): it
// grows Memory past the image's configured size, writes each argument as a
// NUL-terminated string from the end of memory downward, then pushes argv
// in the layout native code expects: NUL sentinel, then each argument
// address in reverse, then argc.
func (vm *VM) SeedArgs(args []string) error {
	var argvSize uint64
	for _, a := range args {
		argvSize += uint64(len(a)) + 1
	}

	base := vm.mem.Grow(argvSize)
	memEnd := vm.mem.Size()

	addrs := make([]uint64, len(args))
	cursor := memEnd
	for i := len(args) - 1; i >= 0; i-- {
		size := uint64(len(args[i])) + 1
		cursor -= size
		if cursor < base {
			return fmt.Errorf("vm: not enough memory to store arguments")
		}
		copy(vm.mem.buf[cursor:cursor+size-1], args[i])
		vm.mem.buf[cursor+size-1] = 0
		addrs[i] = cursor
	}

	if code := vm.Push(ObjectFromHandle(0)); code != Success {
		return fmt.Errorf("vm: %s", code)
	}
	for i := len(args) - 1; i >= 0; i-- {
		if code := vm.Push(ObjectFromUnsigned(addrs[i])); code != Success {
			return fmt.Errorf("vm: %s", code)
		}
	}
	if code := vm.Push(ObjectFromUnsigned(uint64(len(args)))); code != Success {
		return fmt.Errorf("vm: %s", code)
	}

	return nil
}

// Step fetches, optionally traces, and executes exactly one instruction.
// See decode.go for the dispatch switch.
func (vm *VM) Step() error {
	return vm.step()
}

// Run drives the VM until state becomes Halted. Per the run-loop policy
// (spec §7), a non-success error on a given step is reported to the trace
// stream but does not stop the loop — only HALT, or the program setting
// state to Halted directly, does.
func (vm *VM) Run() {
	for vm.state != Halted {
		vm.step()

		if code := vm.GetError(); code != Success {
			fmt.Fprintf(vm.trace, "Error: %s.\n", code)
		}
	}
}
