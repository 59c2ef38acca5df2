package obfuscate

import (
	"bytes"
	"encoding/base64"
	"testing"
)

// TestKeystreamDeterministic verifies the same name always yields the same
// keystream, and that distinct names diverge.
func TestKeystreamDeterministic(t *testing.T) {
	a1 := Keystream("table/CharacterExcelTable.bytes", 32)
	a2 := Keystream("table/CharacterExcelTable.bytes", 32)
	if !bytes.Equal(a1, a2) {
		t.Errorf("Keystream() not deterministic for same name")
	}

	b := Keystream("table/OtherExcelTable.bytes", 32)
	if bytes.Equal(a1, b) {
		t.Errorf("Keystream() produced identical output for different names")
	}
}

// TestKeystreamLength checks that nextBytes honors n exactly, including
// lengths that are not multiples of 4.
func TestKeystreamLength(t *testing.T) {
	testCases := []struct {
		name string
		n    int
	}{
		{"zero", 0},
		{"one_byte", 1},
		{"three_bytes", 3},
		{"four_bytes", 4},
		{"fifteen_bytes", 15},
		{"large", 1024},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := Keystream("whatever.bytes", tc.n)
			if len(out) != tc.n {
				t.Errorf("Keystream(%q, %d) returned %d bytes, want %d", "whatever.bytes", tc.n, len(out), tc.n)
			}
		})
	}
}

// TestArchivePasswordLength checks the archive password always decodes to
// exactly 15 keystream bytes.
func TestArchivePasswordLength(t *testing.T) {
	pw := ArchivePassword("table/CharacterExcelTable.bytes")
	want := Keystream("table/CharacterExcelTable.bytes", 15)

	decoded, err := base64.StdEncoding.DecodeString(string(pw))
	if err != nil {
		t.Fatalf("ArchivePassword() is not valid base64: %v", err)
	}
	if len(decoded) != len(want) {
		t.Errorf("ArchivePassword() decodes to %d bytes, want %d", len(decoded), len(want))
	}
}

// TestXORStreamRoundTrip checks that XORing twice with the same key
// recovers the original data, for keys shorter, equal, and longer than data.
func TestXORStreamRoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
		key  []byte
	}{
		{"key_shorter", []byte("hello, world"), []byte{0xAA, 0x55}},
		{"key_equal", []byte("exactlength!"), bytes.Repeat([]byte{0x01}, 12)},
		{"key_longer", []byte("short"), []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{"empty_data", []byte{}, []byte{1, 2, 3}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			enc := XORStream(tc.data, tc.key)
			dec := XORStream(enc, tc.key)
			if !bytes.Equal(dec, tc.data) {
				t.Errorf("XORStream round trip failed: got %v, want %v", dec, tc.data)
			}
		})
	}
}

// TestScalarConvertRoundTrip checks that every Convert* function recovers
// its input after two applications of the same key (XOR is self-inverse).
func TestScalarConvertRoundTrip(t *testing.T) {
	key := Keystream("numeric-field", 8)

	if got := ConvertI32(ConvertI32(12345, key), key); got != 12345 {
		t.Errorf("ConvertI32 round trip: got %d, want 12345", got)
	}
	if got := ConvertI64(ConvertI64(-987654321, key), key); got != -987654321 {
		t.Errorf("ConvertI64 round trip: got %d, want -987654321", got)
	}
	if got := ConvertU16(ConvertU16(4096, key), key); got != 4096 {
		t.Errorf("ConvertU16 round trip: got %d, want 4096", got)
	}
}

// TestConvertFloatScaling checks the 10^-5 rescale happens after decryption.
func TestConvertFloatScaling(t *testing.T) {
	key := Keystream("float-field", 4)
	encrypted := EncryptFloat(1.5, key)
	got := ConvertFloat(encrypted, key)

	const eps = 1e-9
	if diff := got - 1.5; diff > eps || diff < -eps {
		t.Errorf("ConvertFloat(EncryptFloat(1.5)) = %v, want ~1.5", got)
	}
}

// TestAESRoundTrip checks that AESDecrypt(AESEncrypt(x)) == x.
func TestAESRoundTrip(t *testing.T) {
	phrase := "table/CharacterExcelTable.bytes.json"
	plaintext := `{"Id":1,"Name":"Example"}`

	enc, err := AESEncrypt(plaintext, phrase)
	if err != nil {
		t.Fatalf("AESEncrypt() failed: %v", err)
	}

	dec, err := AESDecrypt(enc, phrase)
	if err != nil {
		t.Fatalf("AESDecrypt() failed: %v", err)
	}

	if dec != plaintext {
		t.Errorf("AES round trip: got %q, want %q", dec, plaintext)
	}
}

// TestAESDecryptMalformed checks that hard framing/padding errors propagate
// rather than being silently swallowed.
func TestAESDecryptMalformed(t *testing.T) {
	testCases := []struct {
		name string
		in   string
	}{
		{"not_base64", "not-valid-base64!!!"},
		{"too_short", "AAAA"},
		{"bad_block_alignment", base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0}, 49))},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := AESDecrypt(tc.in, "any phrase"); err == nil {
				t.Errorf("AESDecrypt(%q) succeeded, want error", tc.name)
			}
		})
	}
}
