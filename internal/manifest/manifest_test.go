package manifest

import (
	"encoding/binary"
	"testing"

	"github.com/baassets/pipeline/internal/catalog"
)

func TestDecodeCNBundle(t *testing.T) {
	data := []byte(`{"BundleFiles":[{"Name":"main.bundle","Size":1024,"Crc":"abc123","IsPrologue":false,"IsSplitDownload":true}]}`)

	c, err := DecodeCNBundle(data, "https://cdn.example/AssetBundles/Android")
	if err != nil {
		t.Fatalf("DecodeCNBundle() failed: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("DecodeCNBundle() returned %d entries, want 1", c.Len())
	}

	e := c.At(0)
	if e.Path != "Bundle/main.bundle" {
		t.Errorf("Path = %q, want %q", e.Path, "Bundle/main.bundle")
	}
	if e.URL != "https://cdn.example/AssetBundles/Android/main.bundle" {
		t.Errorf("URL = %q", e.URL)
	}
	if e.CheckType != catalog.CheckMD5 {
		t.Errorf("CheckType = %q, want md5", e.CheckType)
	}
}

func TestDecodeCNMediaKnownAndUnknownType(t *testing.T) {
	data := []byte("voice/hello,0123456789abcdef0123456789abcdef,1,2048,0\nvoice/other,fedcba9876543210fedcba9876543210,99,4096,0\n")

	c, err := DecodeCNMedia(data, "https://cdn.example/pool/MediaResources")
	if err != nil {
		t.Fatalf("DecodeCNMedia() failed: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("DecodeCNMedia() returned %d entries, want 2", c.Len())
	}

	known := c.At(0)
	if known.Path != "Media/voice/hello.ogg" {
		t.Errorf("known entry path = %q, want extension appended", known.Path)
	}

	unknown := c.At(1)
	if unknown.Path != "Media/voice/other" {
		t.Errorf("unknown media type entry path = %q, want no extension appended", unknown.Path)
	}
}

func TestDecodeCNTable(t *testing.T) {
	data := []byte(`{"Table":{"CharacterExcelTable":{"Name":"CharacterExcelTable.bytes","Crc":"aabbccdd","Size":512,"Includes":["Sub1","Sub2"]}}}`)

	c, err := DecodeCNTable(data, "https://cdn.example/pool/TableBundles")
	if err != nil {
		t.Fatalf("DecodeCNTable() failed: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("DecodeCNTable() returned %d entries, want 1", c.Len())
	}

	e := c.At(0)
	if e.Path != "Table/CharacterExcelTable.bytes" {
		t.Errorf("Path = %q", e.Path)
	}
	includes, ok := e.Addition["includes"].([]string)
	if !ok || len(includes) != 2 {
		t.Errorf("Addition[includes] = %v, want 2 entries", e.Addition["includes"])
	}
}

// buildJPMediaCatalog hand-assembles one JP media record matching the
// binary framing DecodeJPMedia expects.
func buildJPMediaCatalog(t *testing.T, key, relPath, fileName string, size, crc int64, isPrologue, isSplit bool, mediaType int32) []byte {
	t.Helper()
	var buf []byte

	putI8 := func(v int8) { buf = append(buf, byte(v)) }
	putBool := func(v bool) {
		if v {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}
	putI32 := func(v int32) {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		buf = append(buf, b...)
	}
	putI64 := func(v int64) {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(v))
		buf = append(buf, b...)
	}
	putString := func(s string) {
		putI32(int32(len(s)))
		buf = append(buf, []byte(s)...)
	}

	putI8(0)  // leading i8
	putI32(1) // item count

	putI32(0) // discarded
	putString(key)
	putI8(0) // discarded
	putString(relPath)
	putString(fileName)
	putI64(size)
	putI64(crc)
	putBool(isPrologue)
	putBool(isSplit)
	putI32(mediaType)

	return buf
}

func TestDecodeJPMedia(t *testing.T) {
	data := buildJPMediaCatalog(t, "aa/bbcc", "voice\\hello.ogg", "hello.ogg", 2048, 987654321, false, true, 1)

	c, err := DecodeJPMedia(data, "https://cdn.example/MediaResources")
	if err != nil {
		t.Fatalf("DecodeJPMedia() failed: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("DecodeJPMedia() returned %d entries, want 1", c.Len())
	}

	e := c.At(0)
	if e.Path != "Media/voice/hello.ogg" {
		t.Errorf("Path = %q, want backslashes normalized to forward slashes", e.Path)
	}
	if e.CheckType != catalog.CheckCRC32 {
		t.Errorf("CheckType = %q, want crc32", e.CheckType)
	}
	if e.Checksum != "987654321" {
		t.Errorf("Checksum = %q, want the decimal CRC", e.Checksum)
	}
}

// TestDecodeJPMediaPinnedByteSequence encodes the exact byte sequence
// i32(0) i32(3)"abc" i8(0) i32(3)"d/e" i32(1)"f" i64(10) i64(99) bool(1)
// bool(0) i32(2) by hand (not via buildJPMediaCatalog) to prove the
// framing has exactly one discarded i32 and one discarded i8 ahead of
// the three consecutive strings, with no extra length-prefix discards
// between them.
func TestDecodeJPMediaPinnedByteSequence(t *testing.T) {
	var buf []byte
	putI32 := func(v int32) {
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(v))
		buf = append(buf, b...)
	}
	putI64 := func(v int64) {
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(v))
		buf = append(buf, b...)
	}
	putString := func(s string) {
		putI32(int32(len(s)))
		buf = append(buf, []byte(s)...)
	}

	buf = append(buf, 0) // leading i8
	putI32(1)            // item count 1

	putI32(0)            // discarded leading i32
	putString("abc")     // key
	buf = append(buf, 0) // discarded i8
	putString("d/e")     // path
	putString("f")       // file_name
	putI64(10)           // size
	putI64(99)           // crc
	buf = append(buf, 1, 0) // isPrologue=true, isSplitDownload=false
	putI32(2)               // media_type

	c, err := DecodeJPMedia(buf, "https://cdn.example/MediaResources")
	if err != nil {
		t.Fatalf("DecodeJPMedia() failed on the pinned byte sequence: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("DecodeJPMedia() returned %d entries, want 1", c.Len())
	}

	e := c.At(0)
	if e.Path != "Media/d/e" {
		t.Errorf("Path = %q, want %q", e.Path, "Media/d/e")
	}
	if e.Addition["file_name"] != "f" {
		t.Errorf("Addition[file_name] = %v, want %q", e.Addition["file_name"], "f")
	}
	if e.Size != 10 {
		t.Errorf("Size = %d, want 10", e.Size)
	}
	if e.Checksum != "99" {
		t.Errorf("Checksum = %q, want %q", e.Checksum, "99")
	}
	if e.Addition["is_prologue"] != true || e.Addition["is_split_download"] != false {
		t.Errorf("Addition flags = %+v, want is_prologue=true is_split_download=false", e.Addition)
	}
	if e.Addition["media_type"] != int32(2) {
		t.Errorf("Addition[media_type] = %v, want 2", e.Addition["media_type"])
	}
}

func TestDecodeGLRouting(t *testing.T) {
	data := []byte(`{"resources":[
		{"group":"table","resource_path":"TableBundles/CharacterExcelTable.bytes","resource_size":10,"resource_hash":"aaa"},
		{"group":"media","resource_path":"MediaResources/voice/hello.ogg","resource_size":20,"resource_hash":"bbb"},
		{"group":"bundle","resource_path":"AssetBundles/main.bundle","resource_size":30,"resource_hash":"ccc"},
		{"group":"unknown","resource_path":"Other/thing.dat","resource_size":40,"resource_hash":"ddd"}
	]}`)

	c, err := DecodeGL(data, "https://cdn.example/base/")
	if err != nil {
		t.Fatalf("DecodeGL() failed: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("DecodeGL() returned %d entries, want 3 (unrouted entry dropped)", c.Len())
	}

	byType := map[catalog.ResourceType]bool{}
	for _, e := range c.Entries() {
		byType[e.ResourceType] = true
	}
	for _, want := range []catalog.ResourceType{catalog.ResourceTable, catalog.ResourceMedia, catalog.ResourceBundle} {
		if !byType[want] {
			t.Errorf("DecodeGL() missing a %q entry", want)
		}
	}
}
