// Package macho detects Mach-O executables and strips their embedded code
// signatures so that two builds signed with different identities (or not
// signed at all) compare byte-for-byte equal when everything else matches.
package macho

import (
	"bytes"
	"encoding/binary"
	"fmt"

	macho "github.com/blacktop/go-macho"
)

// Mach-O and fat (universal) magic numbers.
const (
	MagicMachO32 = 0xfeedface
	MagicMachO64 = 0xfeedfacf
	MagicFat32   = 0xcafebabe
	MagicFat64   = 0xcafebabf
)

// Mach-O header sizes and the LC_CODE_SIGNATURE load command.
const (
	headerSize32    = 28
	headerSize64    = 32
	lcCodeSignature = 0x1d
)

// IsMachO reports whether payload starts with a Mach-O or universal-binary
// magic number, in either byte order.
func IsMachO(payload []byte) bool {
	if len(payload) < 4 {
		return false
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		switch order.Uint32(payload[:4]) {
		case MagicMachO32, MagicMachO64, MagicFat32, MagicFat64:
			return true
		}
	}
	return false
}

// Strip returns a copy of payload with any embedded code-signature data
// zeroed out. Non-Mach-O payloads are returned as-is without copying.
// The input slice is never modified.
//
// For universal binaries every architecture slice is normalized in place
// within the copy. A Mach-O without an LC_CODE_SIGNATURE load command is
// returned as an unchanged copy.
func Strip(payload []byte) ([]byte, error) {
	if !IsMachO(payload) {
		return payload, nil
	}

	out := make([]byte, len(payload))
	copy(out, payload)

	if isFat(out) {
		if err := stripFat(out); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := stripThin(out); err != nil {
		return nil, err
	}
	return out, nil
}

func isFat(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	magic := binary.BigEndian.Uint32(data[:4])
	return magic == MagicFat32 || magic == MagicFat64
}

// stripFat walks the fat header (always big-endian) and normalizes each
// architecture slice in place.
func stripFat(data []byte) error {
	magic := binary.BigEndian.Uint32(data[:4])
	narch := binary.BigEndian.Uint32(data[4:8])
	if narch > 64 {
		return fmt.Errorf("implausible universal binary: %d architectures", narch)
	}

	// fat_arch is 5 uint32s; fat_arch_64 carries 64-bit offset/size plus reserved
	archSize := 20
	if magic == MagicFat64 {
		archSize = 32
	}

	offset := 8
	for i := uint32(0); i < narch; i++ {
		if offset+archSize > len(data) {
			return fmt.Errorf("truncated universal binary header at arch %d", i)
		}
		var sliceOff, sliceSize uint64
		if magic == MagicFat64 {
			sliceOff = binary.BigEndian.Uint64(data[offset+8:])
			sliceSize = binary.BigEndian.Uint64(data[offset+16:])
		} else {
			sliceOff = uint64(binary.BigEndian.Uint32(data[offset+8:]))
			sliceSize = uint64(binary.BigEndian.Uint32(data[offset+12:]))
		}
		if sliceOff+sliceSize > uint64(len(data)) {
			return fmt.Errorf("universal binary slice %d exceeds file bounds", i)
		}
		if err := stripThin(data[sliceOff : sliceOff+sliceSize]); err != nil {
			return fmt.Errorf("slice %d: %w", i, err)
		}
		offset += archSize
	}
	return nil
}

// stripThin zeroes the code-signature superblob of a single-architecture
// Mach-O, along with the dataoff/datasize fields of its LC_CODE_SIGNATURE
// load command, so differently sized signatures normalize identically.
func stripThin(data []byte) error {
	m, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to parse Mach-O: %w", err)
	}
	defer m.Close()

	var sigOffset, sigSize uint32
	found := false
	for _, load := range m.Loads {
		if cs, ok := load.(*macho.CodeSignature); ok {
			sigOffset = cs.Offset
			sigSize = cs.Size
			found = true
			break
		}
	}
	if !found {
		return nil // unsigned binary, nothing to normalize
	}
	if uint64(sigOffset)+uint64(sigSize) > uint64(len(data)) {
		return fmt.Errorf("code signature (offset %d, size %d) exceeds binary size %d", sigOffset, sigSize, len(data))
	}

	zero(data[sigOffset : sigOffset+sigSize])

	cmdOffset, ok := findSignatureCommand(data)
	if !ok {
		return fmt.Errorf("LC_CODE_SIGNATURE load command not found in header walk")
	}
	order := headerByteOrder(data)
	order.PutUint32(data[cmdOffset+8:], 0)  // dataoff
	order.PutUint32(data[cmdOffset+12:], 0) // datasize
	return nil
}

// findSignatureCommand locates the LC_CODE_SIGNATURE load command by walking
// the raw header, returning its file offset.
func findSignatureCommand(data []byte) (int, bool) {
	if len(data) < headerSize64 {
		return 0, false
	}
	order := headerByteOrder(data)
	magic := order.Uint32(data[:4])

	headerSize := headerSize32
	if magic == MagicMachO64 {
		headerSize = headerSize64
	}
	// ncmds and sizeofcmds sit at 16 and 20 in both header layouts; the
	// 64-bit header only appends a reserved field after flags.
	ncmds := order.Uint32(data[16:20])
	sizeofcmds := order.Uint32(data[20:24])

	end := headerSize + int(sizeofcmds)
	if end > len(data) {
		end = len(data)
	}
	offset := headerSize
	for i := uint32(0); i < ncmds && offset+8 <= end; i++ {
		cmd := order.Uint32(data[offset:])
		cmdSize := order.Uint32(data[offset+4:])
		if cmdSize < 8 {
			return 0, false
		}
		if cmd == lcCodeSignature && cmdSize >= 16 && offset+16 <= len(data) {
			return offset, true
		}
		offset += int(cmdSize)
	}
	return 0, false
}

// headerByteOrder determines the file's byte order from its magic number.
func headerByteOrder(data []byte) binary.ByteOrder {
	switch binary.LittleEndian.Uint32(data[:4]) {
	case MagicMachO32, MagicMachO64:
		return binary.LittleEndian
	}
	return binary.BigEndian
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
