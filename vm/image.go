package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

var imageMagic = [4]byte{0x45, 0x70, 0xFA, 0xDE}
var imageVersion = [4]byte{0x00, 0x00, 0x00, 0x01}

const maxSectionName = 32

// LoadImage parses a binary image from r: a 34-byte little-endian header
// (magic, version, required memory size, ip, sp, section count) followed by
// the sections, each a NUL-terminated name, a u64 address, a u64 size and
// size payload bytes. It validates the image against the VM's configured
// memory size and on success populates Memory and the ip/sp/fp registers,
// setting state to Ready and the error register to Success.
//
// A load failure leaves the registers, state and error register untouched,
// so the VM stays Halted; sections read before the failing point have
// already been written into Memory.
func (vm *VM) LoadImage(r io.Reader) error {
	var header [34]byte
	if _, err := io.ReadFull(r, header[:4]); err != nil {
		return fmt.Errorf("cannot read magic number: %w", err)
	}
	if !bytes.Equal(header[:4], imageMagic[:]) {
		return fmt.Errorf("invalid magic number")
	}

	if _, err := io.ReadFull(r, header[4:8]); err != nil {
		return fmt.Errorf("cannot read version number: %w", err)
	}
	if !bytes.Equal(header[4:8], imageVersion[:]) {
		return fmt.Errorf("invalid version number")
	}

	requiredSize, err := readU64(r)
	if err != nil {
		return fmt.Errorf("cannot read required memory size: %w", err)
	}
	if vm.mem.Size() < requiredSize {
		return fmt.Errorf("the memory is not enough to run the program")
	}

	ip, err := readU64(r)
	if err != nil {
		return fmt.Errorf("cannot read the instruction pointer: %w", err)
	}
	if vm.mem.Size() <= ip {
		return fmt.Errorf("the instruction pointer is out of memory")
	}

	sp, err := readU64(r)
	if err != nil {
		return fmt.Errorf("cannot read the stack pointer: %w", err)
	}
	if vm.mem.Size() <= sp {
		return fmt.Errorf("the stack pointer is out of memory")
	}

	var secCountBuf [2]byte
	if _, err := io.ReadFull(r, secCountBuf[:]); err != nil {
		return fmt.Errorf("cannot read the number of sections: %w", err)
	}
	sectionCount := binary.LittleEndian.Uint16(secCountBuf[:])

	if vm.verbose {
		fmt.Fprintf(vm.trace, "--- `ip` at 0x%012X\n", ip)
		fmt.Fprintf(vm.trace, "--- `fp` at 0x%012X\n", sp)
		fmt.Fprintf(vm.trace, "--- `sp` at 0x%012X\n", sp)
		fmt.Fprintf(vm.trace, "--- %d sections\n", sectionCount)
	}

	for i := uint16(0); i < sectionCount; i++ {
		name, err := readSectionName(r)
		if err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		if vm.verbose {
			fmt.Fprintf(vm.trace, "--- Reading section `%s`...\n", name)
		}

		addr, err := readU64(r)
		if err != nil {
			return fmt.Errorf("section `%s` (%d): cannot read the address: %w", name, i, err)
		}
		size, err := readU64(r)
		if err != nil {
			return fmt.Errorf("section `%s` (%d): cannot read the size: %w", name, i, err)
		}
		if size > vm.mem.Size() || addr > vm.mem.Size()-size {
			return fmt.Errorf("section `%s` (%d): is out of memory", name, i)
		}

		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return fmt.Errorf("section `%s` (%d): cannot read the data: %w", name, i, err)
		}
		if code := vm.mem.Write(addr, payload); code != Success {
			return fmt.Errorf("section `%s` (%d): %s", name, i, code)
		}
	}

	vm.ip = ip
	vm.sp = sp
	vm.fp = sp
	vm.SetState(Ready)
	vm.SetError(Success)

	return nil
}

// LoadImageFile opens filename and loads it via LoadImage. Always binary —
// there is no text/binary file-mode distinction to get wrong in Go.
func (vm *VM) LoadImageFile(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("cannot open `%s`: %w", filename, err)
	}
	defer f.Close()

	return vm.LoadImage(f)
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// readSectionName reads up to maxSectionName bytes from r looking for a NUL
// terminator. If one is found within those bytes, the name is everything
// before it. If not — the name is at least maxSectionName bytes long, a
// format violation the loader doesn't reject — the loader silently forces
// a terminator after the maxSectionName bytes it already consumed rather
// than reading further, matching the source's fixed-size name buffer.
func readSectionName(r io.Reader) (string, error) {
	var buf [maxSectionName]byte
	n := 0
	for ; n < maxSectionName; n++ {
		var b [1]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return "", fmt.Errorf("is out of binary: %w", err)
		}
		buf[n] = b[0]
		if b[0] == 0 {
			return string(buf[:n]), nil
		}
	}
	return string(buf[:maxSectionName]), nil
}
