package vm

import (
	"bytes"
	"fmt"

	"github.com/yalue/elf_reader"
)

// LoadELFImage loads a binary image packaged as a named section of an ELF
// object file — the output of a cross-compiling toolchain that emits the
// VM's native image format as a section payload instead of a standalone
// file. It scans every section by name, the same way a loader for
// a different bytecode format scans an object file for its target section,
// and feeds the first match's bytes through LoadImage unchanged.
func (vm *VM) LoadELFImage(raw []byte, sectionName string) error {
	elf, err := elf_reader.ParseELFFile(raw)
	if err != nil {
		return fmt.Errorf("parsing ELF file: %w", err)
	}

	for i := uint16(0); i < elf.GetSectionCount(); i++ {
		name, err := elf.GetSectionName(i)
		if err != nil {
			continue
		}
		if name != sectionName {
			continue
		}

		content, err := elf.GetSectionContent(i)
		if err != nil {
			return fmt.Errorf("reading section %q: %w", sectionName, err)
		}

		return vm.LoadImage(bytes.NewReader(content))
	}

	return fmt.Errorf("no section named %q in ELF file", sectionName)
}
