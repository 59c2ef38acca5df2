// Package schema is the external-collaborator boundary for flatbuffer
// schema decoding: this module never vendors a flatbuffers compiler or
// runtime, since the schema set (one Go type per game table/excel class)
// is generated, game-version-specific, and out of scope here — the same
// way region.UnityAssetReader stands in for Unity asset-bundle parsing.
// Callers inject a Registry built from generated decoders; extract only
// knows how to look one up by name and call it.
package schema

import "strings"

// Decoder turns one flatbuffer-encoded table/excel payload into a plain
// map, ready for JSON serialization. Implementations live outside this
// module, generated from the game's own flatbuffer schema set.
type Decoder interface {
	Decode(b []byte) (map[string]any, error)
}

// Registry resolves a schema name (a table or excel class name, e.g.
// "CharacterExcelTable") to the Decoder that understands it.
type Registry struct {
	byName map[string]Decoder
}

// NewRegistry builds an empty Registry; callers register decoders with
// Register.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]Decoder{}}
}

// Register adds d under name, matched case-insensitively by Lookup.
func (r *Registry) Register(name string, d Decoder) {
	r.byName[strings.ToLower(name)] = d
}

// Lookup returns the Decoder registered for name (case-insensitive) and
// whether one was found.
func (r *Registry) Lookup(name string) (Decoder, bool) {
	d, ok := r.byName[strings.ToLower(name)]
	return d, ok
}
