package vm

import (
	"fmt"
	"plugin"
	"sync"
)

// Handle is the VM's opaque host-pointer view: the bit pattern an Object
// carries for a native module or a resolved native function. Zero is the
// null handle, matching the source's use of a NULL void* for "no module" /
// "no function" (checked by MODULE_CLOSE, NATIVE_CALL, IS_NULL_POINTER).
//
// Go gives no safe, portable way to bit-cast a *plugin.Plugin or a resolved
// symbol into a uint64 the way the source casts a void* — Handle is instead
// a registry key into the bridge's own tables. This is an adaptation, not a
// literal port of the design note's "on 64-bit targets direct bit-casting
// is acceptable" remark, which assumes a pointer-sized host word.
type Handle uint64

// FnPtr is the handle-shaped value NATIVE_LOAD resolves and NATIVE_CALL
// invokes. It shares Handle's representation (the source's ptr_t is
// untyped) so both live in the same Object.p slot.
type FnPtr = Handle

// NativeFunc is the native ABI: a function invoked with the running VM,
// free to read and write Memory, the stack, and the error register. Its
// return value is accepted for symmetry with the C ABI but unused by the
// dispatcher (spec: "the return value is currently unused").
type NativeFunc func(vm *VM) uint32

// NativeBridge is the abstract capability MODULE_OPEN, MODULE_CLOSE,
// NATIVE_LOAD and NATIVE_CALL are built on. Swappable so a host can supply
// a test double, or link against a different native-loading mechanism than
// the stdlib plugin package.
type NativeBridge interface {
	Open(name string, flags int64) Handle
	Close(h Handle) error
	Resolve(h Handle, sym string) FnPtr
	Invoke(fn FnPtr, vm *VM) uint32
}

// pluginBridge implements NativeBridge over the standard library's plugin
// package. No example in the retrieved pack binds dlopen/dlsym directly
// (the corpus's VMs are either not extensible or use an in-process device
// table instead), so this is grounded on the standard library rather than a
// third-party cgo wrapper — see the grounding ledger.
//
// plugin.Plugin has no Close; Go cannot unload a loaded plugin. Close here
// only forgets the handle, matching the observable contract (a later
// Resolve/Invoke on a closed handle fails) without pretending to unload
// native code the runtime keeps mapped regardless.
type pluginBridge struct {
	mu         sync.Mutex
	modules    map[Handle]*plugin.Plugin
	nextModule Handle
	funcs      map[FnPtr]NativeFunc
	nextFunc   FnPtr
}

// NewPluginBridge constructs the default, plugin-backed NativeBridge.
func NewPluginBridge() NativeBridge {
	return &pluginBridge{
		modules:    make(map[Handle]*plugin.Plugin),
		funcs:      make(map[FnPtr]NativeFunc),
		nextModule: 1,
		nextFunc:   1,
	}
}

// Open loads name as a Go plugin. flags is accepted for ABI parity with
// dlopen but ignored; the plugin package has no equivalent knob. A load
// failure yields the null handle rather than an error, matching dlopen's
// NULL-on-failure contract that MODULE_OPEN relies on (the program checks
// the result with IS_NULL_POINTER, not an error register read).
func (b *pluginBridge) Open(name string, flags int64) Handle {
	p, err := plugin.Open(name)
	if err != nil {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	h := b.nextModule
	b.nextModule++
	b.modules[h] = p
	return h
}

// Close forgets a module handle. Returns an error if h is unknown, which
// the decoder treats as InvalidModule.
func (b *pluginBridge) Close(h Handle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.modules[h]; !ok {
		return fmt.Errorf("native bridge: unknown module handle %d", h)
	}
	delete(b.modules, h)
	return nil
}

// Resolve looks up sym in the module named by h and registers it as a
// NativeFunc. Returns the null FnPtr if h is unknown, the symbol doesn't
// exist, or it isn't shaped like a NativeFunc.
func (b *pluginBridge) Resolve(h Handle, sym string) FnPtr {
	b.mu.Lock()
	p, ok := b.modules[h]
	b.mu.Unlock()
	if !ok {
		return 0
	}

	raw, err := p.Lookup(sym)
	if err != nil {
		return 0
	}

	fn, ok := raw.(func(*VM) uint32)
	if !ok {
		if fnTyped, ok2 := raw.(NativeFunc); ok2 {
			fn = fnTyped
		} else {
			return 0
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	fp := b.nextFunc
	b.nextFunc++
	b.funcs[fp] = fn
	return fp
}

// Invoke calls the native function registered under fn. Callers must have
// already rejected the null FnPtr (InvalidNative); an unknown, non-null
// FnPtr simply returns 0, which the dispatcher ignores per the ABI.
func (b *pluginBridge) Invoke(fn FnPtr, vm *VM) uint32 {
	b.mu.Lock()
	f, ok := b.funcs[fn]
	b.mu.Unlock()
	if !ok {
		return 0
	}
	return f(vm)
}
