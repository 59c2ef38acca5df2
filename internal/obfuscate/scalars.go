package obfuscate

import "encoding/binary"

// The Convert* family reverses the reference clients' scalar obfuscation:
// pack the stored integer little-endian, XOR with the per-field keystream,
// unpack as the target width. Float and double variants additionally scale
// by 10^-5 after conversion; Encrypt* variants are the inverse transform
// (scale by 10^5, then XOR-pack) used when re-obfuscating a value.

func ConvertI16(v int16, key []byte) int16 {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, uint16(v))
	b = XORStream(b, key)
	return int16(binary.LittleEndian.Uint16(b))
}

func ConvertU16(v uint16, key []byte) uint16 {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	b = XORStream(b, key)
	return binary.LittleEndian.Uint16(b)
}

func ConvertI32(v int32, key []byte) int32 {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	b = XORStream(b, key)
	return int32(binary.LittleEndian.Uint32(b))
}

func ConvertU32(v uint32, key []byte) uint32 {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	b = XORStream(b, key)
	return binary.LittleEndian.Uint32(b)
}

func ConvertI64(v int64, key []byte) int64 {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	b = XORStream(b, key)
	return int64(binary.LittleEndian.Uint64(b))
}

func ConvertU64(v uint64, key []byte) uint64 {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	b = XORStream(b, key)
	return binary.LittleEndian.Uint64(b)
}

// ConvertFloat decrypts a stored int32 and rescales it by 10^-5.
func ConvertFloat(v int32, key []byte) float64 {
	return float64(ConvertI32(v, key)) * 1e-5
}

// ConvertDouble decrypts a stored int64 and rescales it by 10^-5.
func ConvertDouble(v int64, key []byte) float64 {
	return float64(ConvertI64(v, key)) * 1e-5
}

// EncryptFloat is the inverse of ConvertFloat: scale by 10^5, then encrypt.
func EncryptFloat(v float64, key []byte) int32 {
	return ConvertI32(int32(v*1e5), key)
}

// EncryptDouble is the inverse of ConvertDouble: scale by 10^5, then encrypt.
func EncryptDouble(v float64, key []byte) int64 {
	return ConvertI64(int64(v*1e5), key)
}
