package extract

import (
	"encoding/json"
	"path"
	"strings"

	"github.com/baassets/pipeline/internal/obfuscate"
	"github.com/baassets/pipeline/internal/schema"
)

// dispatchFlatBytes decodes a flatbuffer-bytes payload whose schema name
// is derived from zipEntryName (the base name with its .bytes suffix
// stripped). Table-shaped schemas are additionally XOR-obfuscated before
// the flatbuffer root, matching the reference clients'
// xor_with_key(class_name, data) step; this is detected by the entry's
// base name ending in "table", case-insensitively, and the keystream is
// seeded with that base name.
//
// Returns the JSON-encoded decode, the sidecar file name to write it
// under, and whether a decoder was found at all (false means: the caller
// should fall back to writing the raw bytes).
func dispatchFlatBytes(zipEntryName string, data []byte, registry *schema.Registry) ([]byte, string, bool) {
	base := strings.TrimSuffix(path.Base(zipEntryName), ".bytes")

	decoder, ok := registry.Lookup(base)
	if !ok {
		return nil, "", false
	}

	payload := data
	if strings.HasSuffix(strings.ToLower(base), "table") {
		payload = obfuscate.XORStream(data, obfuscate.Keystream(base, len(data)))
	}

	decoded, err := decoder.Decode(payload)
	if err != nil {
		// Tables sometimes aren't XOR-wrapped after all; retry with the
		// untouched bytes before giving up, matching the reference
		// clients' try-Table-then-fall-through behavior.
		decoded, err = decoder.Decode(data)
		if err != nil {
			return nil, "", false
		}
	}

	out, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return nil, "", false
	}
	return out, base + ".json", true
}
