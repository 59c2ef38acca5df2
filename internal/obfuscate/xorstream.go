package obfuscate

import (
	"encoding/base64"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// XORStream XORs data with key, tiling key when it is shorter than data and
// truncating it when it is longer.
func XORStream(data, key []byte) []byte {
	if len(key) == 0 {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	}

	out := make([]byte, len(data))
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// ConvertString base64-decodes enc, XOR-decrypts it with key, and decodes
// the result as UTF-16LE. If any step fails, the original input is
// returned as-is, treated as already being UTF-8.
func ConvertString(enc string, key []byte) string {
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return enc
	}

	decrypted := XORStream(raw, key)

	decoded, err := utf16LE.Bytes(decrypted)
	if err != nil || !utf8.Valid(decoded) {
		return enc
	}
	return string(decoded)
}
