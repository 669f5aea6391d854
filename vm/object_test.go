package vm

import "testing"

func TestObjectUnsignedRoundtrip(t *testing.T) {
	o := ObjectFromUnsigned(0xDEADBEEF)
	assert(t, o.Unsigned() == 0xDEADBEEF, "got %x", o.Unsigned())
}

func TestObjectSignedRoundtrip(t *testing.T) {
	o := ObjectFromSigned(-1)
	assert(t, o.Signed() == -1, "got %d", o.Signed())
	assert(t, o.Unsigned() == 0xFFFFFFFFFFFFFFFF, "got %x", o.Unsigned())
}

func TestObjectHandleRoundtrip(t *testing.T) {
	o := ObjectFromHandle(Handle(42))
	assert(t, o.Handle() == Handle(42), "got %d", o.Handle())
}

func TestObjectSize(t *testing.T) {
	assert(t, objectSize == 8, "got %d", objectSize)
}
