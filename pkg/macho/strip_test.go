package macho

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestIsMachO(t *testing.T) {
	magics := []uint32{MagicMachO32, MagicMachO64, MagicFat32, MagicFat64}
	for _, magic := range magics {
		le := make([]byte, 8)
		binary.LittleEndian.PutUint32(le, magic)
		if !IsMachO(le) {
			t.Errorf("little-endian magic %#x not detected", magic)
		}

		be := make([]byte, 8)
		binary.BigEndian.PutUint32(be, magic)
		if !IsMachO(be) {
			t.Errorf("big-endian magic %#x not detected", magic)
		}
	}

	if IsMachO([]byte("#!/bin/sh\n")) {
		t.Error("script payload misdetected as Mach-O")
	}
	if IsMachO([]byte{0xfe, 0xed}) {
		t.Error("short payload misdetected as Mach-O")
	}
	if IsMachO(nil) {
		t.Error("nil payload misdetected as Mach-O")
	}
}

func TestStripPassesThroughNonMachO(t *testing.T) {
	payload := []byte("plain resource bytes, not an executable")
	out, err := Strip(payload)
	if err != nil {
		t.Fatalf("Strip: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("non-Mach-O payload must be returned unchanged")
	}
}

func TestStripRejectsTruncatedMachO(t *testing.T) {
	// a bare magic with no header is not parseable
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload, MagicMachO64)
	if _, err := Strip(payload); err == nil {
		t.Error("expected parse error for truncated Mach-O")
	}
}

func TestStripRejectsImplausibleFatHeader(t *testing.T) {
	payload := make([]byte, 16)
	binary.BigEndian.PutUint32(payload, MagicFat32)
	binary.BigEndian.PutUint32(payload[4:], 1000) // absurd arch count
	if _, err := Strip(payload); err == nil {
		t.Error("expected error for implausible architecture count")
	}
}

func TestStripRejectsFatSliceOutOfBounds(t *testing.T) {
	// one fat_arch record pointing past the end of the file
	payload := make([]byte, 8+20)
	binary.BigEndian.PutUint32(payload, MagicFat32)
	binary.BigEndian.PutUint32(payload[4:], 1)
	binary.BigEndian.PutUint32(payload[8+8:], 1<<20)  // offset
	binary.BigEndian.PutUint32(payload[8+12:], 1<<10) // size
	if _, err := Strip(payload); err == nil {
		t.Error("expected bounds error for out-of-range slice")
	}
}

// buildSigned assembles a minimal signed Mach-O image in the given byte
// order: the header, one LC_CODE_SIGNATURE load command, a text payload,
// and an embedded-signature superblob carrying the given signature bytes.
func buildSigned(magic uint32, order binary.ByteOrder, text, signature []byte) []byte {
	headerSize := headerSize32
	if magic == MagicMachO64 {
		headerSize = headerSize64
	}
	dataOff := headerSize + 16 + len(text)

	// superblob header is always big-endian: magic, length, blob count
	blob := make([]byte, 12+len(signature))
	binary.BigEndian.PutUint32(blob, 0xfade0cc0)
	binary.BigEndian.PutUint32(blob[4:], uint32(len(blob)))
	binary.BigEndian.PutUint32(blob[8:], 0)
	copy(blob[12:], signature)

	buf := make([]byte, headerSize)
	order.PutUint32(buf[0:], magic)
	order.PutUint32(buf[4:], 7)   // cputype
	order.PutUint32(buf[8:], 3)   // cpusubtype
	order.PutUint32(buf[12:], 2)  // filetype MH_EXECUTE
	order.PutUint32(buf[16:], 1)  // ncmds
	order.PutUint32(buf[20:], 16) // sizeofcmds

	cmd := make([]byte, 16)
	order.PutUint32(cmd[0:], lcCodeSignature)
	order.PutUint32(cmd[4:], 16)
	order.PutUint32(cmd[8:], uint32(dataOff))
	order.PutUint32(cmd[12:], uint32(len(blob)))

	buf = append(buf, cmd...)
	buf = append(buf, text...)
	buf = append(buf, blob...)
	return buf
}

func TestStripZeroesSignature(t *testing.T) {
	text := bytes.Repeat([]byte{0xCC}, 64)
	signature := []byte("identity-A signature bytes")

	cases := []struct {
		name       string
		magic      uint32
		headerSize int
	}{
		{"32bit", MagicMachO32, headerSize32},
		{"64bit", MagicMachO64, headerSize64},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := buildSigned(tc.magic, binary.LittleEndian, text, signature)
			dataOff := tc.headerSize + 16 + len(text)

			out, err := Strip(payload)
			if err != nil {
				t.Fatalf("Strip: %v", err)
			}
			if len(out) != len(payload) {
				t.Fatalf("output length %d, want %d", len(out), len(payload))
			}
			for i := dataOff; i < len(out); i++ {
				if out[i] != 0 {
					t.Fatalf("signature byte at %d not zeroed: %#x", i, out[i])
				}
			}
			cmdOff := tc.headerSize
			if got := binary.LittleEndian.Uint32(out[cmdOff+8:]); got != 0 {
				t.Errorf("dataoff = %d, want 0", got)
			}
			if got := binary.LittleEndian.Uint32(out[cmdOff+12:]); got != 0 {
				t.Errorf("datasize = %d, want 0", got)
			}
			if !bytes.Equal(out[cmdOff+16:dataOff], text) {
				t.Error("text payload was modified")
			}
			if !bytes.Equal(out[:cmdOff+8], payload[:cmdOff+8]) {
				t.Error("header bytes before dataoff were modified")
			}
		})
	}
}

func TestStripNormalizesDifferentSignatures(t *testing.T) {
	text := []byte("the same compiled code in both builds")
	a := buildSigned(MagicMachO64, binary.LittleEndian, text, []byte("signed by identity A....."))
	b := buildSigned(MagicMachO64, binary.LittleEndian, text, []byte("signed by identity B!!!!!"))
	if bytes.Equal(a, b) {
		t.Fatal("fixtures must differ before stripping")
	}

	strippedA, err := Strip(a)
	if err != nil {
		t.Fatalf("Strip(a): %v", err)
	}
	strippedB, err := Strip(b)
	if err != nil {
		t.Fatalf("Strip(b): %v", err)
	}
	if !bytes.Equal(strippedA, strippedB) {
		t.Error("differently signed copies did not strip to equal bytes")
	}
}

func TestFindSignatureCommand(t *testing.T) {
	text := []byte("payload")
	cases := []struct {
		name    string
		magic   uint32
		order   binary.ByteOrder
		wantOff int
	}{
		{"32bit little-endian", MagicMachO32, binary.LittleEndian, headerSize32},
		{"32bit big-endian", MagicMachO32, binary.BigEndian, headerSize32},
		{"64bit little-endian", MagicMachO64, binary.LittleEndian, headerSize64},
		{"64bit big-endian", MagicMachO64, binary.BigEndian, headerSize64},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := buildSigned(tc.magic, tc.order, text, []byte("sig"))
			off, ok := findSignatureCommand(payload)
			if !ok {
				t.Fatal("LC_CODE_SIGNATURE not found by header walk")
			}
			if off != tc.wantOff {
				t.Errorf("command offset = %d, want %d", off, tc.wantOff)
			}
		})
	}
}

func TestStripDoesNotMutateInput(t *testing.T) {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint32(payload, MagicFat32)
	original := append([]byte{}, payload...)
	_, _ = Strip(payload)
	if !bytes.Equal(payload, original) {
		t.Error("Strip mutated its input")
	}
}
