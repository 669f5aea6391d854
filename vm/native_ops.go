package vm

// execModuleOpen implements MODULE_OPEN: pop the name address (first pop,
// top of stack), then the flags (second pop), verify the name string, and
// ask the bridge to open it. A failed open yields the null handle — the
// bridge doesn't fail the instruction, the program is expected to check the
// result with IS_NULL_POINTER, matching dlopen's NULL-on-failure contract.
func (vm *VM) execModuleOpen() {
	var nameAddr, flags Object
	if vm.Pop(&nameAddr) != Success {
		return
	}
	if vm.Pop(&flags) != Success {
		return
	}
	if vm.mem.stringVerify(nameAddr.Unsigned()) != Success {
		return
	}

	name := vm.mem.cString(nameAddr.Unsigned())
	h := vm.bridge.Open(name, flags.Signed())
	vm.Push(ObjectFromHandle(h))
}

// execModuleClose implements MODULE_CLOSE: pop a handle, fail InvalidModule
// if it's null or unknown to the bridge.
func (vm *VM) execModuleClose() {
	var h Object
	if vm.Pop(&h) != Success {
		return
	}
	if h.Handle() == 0 {
		vm.SetError(InvalidModule)
		return
	}
	if err := vm.bridge.Close(h.Handle()); err != nil {
		vm.SetError(InvalidModule)
	}
}

// execNativeLoad implements NATIVE_LOAD: pop the module handle (first pop),
// then the symbol-name address (second pop), resolve, and push the
// resulting FnPtr (null when the bridge cannot resolve the symbol). A name
// that fails string verification pushes nothing, and a null handle fails
// InvalidModule without pushing.
func (vm *VM) execNativeLoad() {
	var h, nameAddr Object
	if vm.Pop(&h) != Success {
		return
	}
	if vm.Pop(&nameAddr) != Success {
		return
	}
	if vm.mem.stringVerify(nameAddr.Unsigned()) != Success {
		return
	}
	if h.Handle() == 0 {
		vm.SetError(InvalidModule)
		return
	}

	sym := vm.mem.cString(nameAddr.Unsigned())
	fn := vm.bridge.Resolve(h.Handle(), sym)
	vm.Push(ObjectFromHandle(fn))
}

// execNativeCall implements NATIVE_CALL: pop a FnPtr and invoke it,
// failing InvalidNative if null. The native's return value is accepted but
// discarded, per the ABI.
func (vm *VM) execNativeCall() {
	var fn Object
	if vm.Pop(&fn) != Success {
		return
	}
	if fn.Handle() == 0 {
		vm.SetError(InvalidNative)
		return
	}
	vm.bridge.Invoke(fn.Handle(), vm)
}
