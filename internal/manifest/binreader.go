package manifest

import (
	"encoding/binary"
	"fmt"
)

// binReader is a little-endian cursor over a JP catalog's binary framing:
// fixed-width scalars and i32-length-prefixed UTF-8 strings.
type binReader struct {
	data []byte
	pos  int
}

func newBinReader(data []byte) *binReader {
	return &binReader{data: data}
}

func (r *binReader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, fmt.Errorf("manifest: binreader: short read, want %d bytes at offset %d, have %d", n, r.pos, len(r.data))
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *binReader) readI8() (int8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return int8(b[0]), nil
}

func (r *binReader) readBool() (bool, error) {
	b, err := r.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

func (r *binReader) readI32() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (r *binReader) readI64() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// readString reads an i32 length prefix followed by that many UTF-8 bytes.
func (r *binReader) readString() (string, error) {
	n, err := r.readI32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("manifest: binreader: negative string length %d at offset %d", n, r.pos)
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// readTableIncludes reads a table-includes list: an i32 size; -1 means
// empty; otherwise a sentinel i32, then size length-prefixed strings with a
// sentinel i32 between (not after) consecutive entries.
func (r *binReader) readTableIncludes() ([]string, error) {
	size, err := r.readI32()
	if err != nil {
		return nil, err
	}
	if size == -1 {
		return nil, nil
	}
	if size < 0 {
		return nil, fmt.Errorf("manifest: binreader: invalid table-includes size %d", size)
	}
	if _, err := r.readI32(); err != nil {
		return nil, err
	}

	includes := make([]string, 0, size)
	for i := int32(0); i < size; i++ {
		s, err := r.readString()
		if err != nil {
			return nil, err
		}
		includes = append(includes, s)
		if i != size-1 {
			if _, err := r.readI32(); err != nil {
				return nil, err
			}
		}
	}
	return includes, nil
}
