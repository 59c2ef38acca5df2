package obfuscate

import (
	"encoding/base64"

	"github.com/pierrec/xxHash/xxHash32"
)

// Seed32 returns the xxHash32 digest (seed 0) of name's UTF-8 bytes,
// matching the reference clients' xxh32_intdigest(name.encode("utf8")).
//
// github.com/cespare/xxhash/v2 only implements the 64-bit variant, which
// is a different digest and cannot be truncated into the reference
// clients' 32-bit hash, so github.com/pierrec/xxHash/xxHash32 is used
// here instead.
func Seed32(name string) uint32 {
	h := xxHash32.New(0)
	_, _ = h.Write([]byte(name))
	return h.Sum32()
}

// Keystream seeds an MT19937 generator with Seed32(name) and draws n
// bytes.
func Keystream(name string, n int) []byte {
	gen := newMT19937(Seed32(name))
	return gen.nextBytes(n)
}

// ArchivePassword returns the base64 encoding of the first 15 keystream
// bytes for name — the password used for password-protected table/media
// archives.
func ArchivePassword(name string) []byte {
	key := Keystream(name, 15)
	encoded := make([]byte, base64.StdEncoding.EncodedLen(len(key)))
	base64.StdEncoding.Encode(encoded, key)
	return encoded
}
