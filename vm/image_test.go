package vm

import (
	"bytes"
	"testing"
)

func TestLoadImageRoundtrip(t *testing.T) {
	code := []byte{byte(OpHalt)}
	img := buildImage(64, 32, code)

	machine := New(64)
	err := machine.LoadImage(bytes.NewReader(img))
	assert(t, err == nil, "load failed: %v", err)

	assert(t, machine.IP() == 0, "got ip %d", machine.IP())
	assert(t, machine.SP() == 32, "got sp %d", machine.SP())
	assert(t, machine.FP() == 32, "got fp %d", machine.FP())
	assert(t, machine.StateValue() == Ready, "got state %s", machine.StateValue())
	assert(t, machine.GetError() == Success, "got error %s", machine.GetError())

	var b [1]byte
	assert(t, machine.Memory().Read(0, b[:]) == Success, "read failed")
	assert(t, b[0] == byte(OpHalt), "got %x", b[0])
}

func TestLoadImageSectionOutOfMemory(t *testing.T) {
	// section at mem_size-1 with size 2 overruns by one byte.
	code := []byte{0, 0}
	buf := buildImage(8, 4, code)

	// header layout: 4 magic + 4 version + 8 mem + 8 ip + 8 sp + 2 count = 34
	// then name "code\0" (5) + addr(8) + size(8)
	nameEnd := 34 + 5
	buf[nameEnd] = 7 // addr low byte, pushes [7,9) past mem_size 8

	machine := New(8)
	err := machine.LoadImage(bytes.NewReader(buf))
	assert(t, err != nil, "expected out-of-memory section load to fail")
}

func TestLoadImageBadMagic(t *testing.T) {
	img := buildImage(64, 0, nil)
	img[0] = 0

	machine := New(64)
	err := machine.LoadImage(bytes.NewReader(img))
	assert(t, err != nil, "expected bad magic to fail")
}

func TestLoadImageRequiredSizeExceedsConfigured(t *testing.T) {
	img := buildImage(128, 0, nil)

	machine := New(64)
	err := machine.LoadImage(bytes.NewReader(img))
	assert(t, err != nil, "expected undersized memory to fail")
}
