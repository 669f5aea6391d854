package vm

// Object is a single 64-bit stack word with three interchangeable views. No
// tag is stored alongside the bits — the instruction executing decides which
// view applies, exactly as the source's husky_object_u union does.
type Object struct {
	bits uint64
}

// ObjectFromUnsigned wraps a uint64 as an Object.
func ObjectFromUnsigned(u uint64) Object { return Object{bits: u} }

// ObjectFromSigned wraps an int64 as an Object, reinterpreting its bits.
func ObjectFromSigned(i int64) Object { return Object{bits: uint64(i)} }

// ObjectFromHandle wraps an opaque native handle as an Object. On 64-bit
// hosts this is a direct bit-cast of the handle's numeric identity; the VM
// is not supported on 32-bit hosts (see design notes on native handles).
func ObjectFromHandle(h Handle) Object { return Object{bits: uint64(h)} }

// Unsigned is the u view.
func (o Object) Unsigned() uint64 { return o.bits }

// Signed is the i view: the same 64 bits read as two's-complement.
func (o Object) Signed() int64 { return int64(o.bits) }

// Handle is the p view: the same 64 bits read as an opaque native handle.
func (o Object) Handle() Handle { return Handle(o.bits) }

// objectSize is sizeof(Object) in bytes: the unit the stack grows and
// shrinks by, and the scale factor for stack-relative indexing.
const objectSize = 8
