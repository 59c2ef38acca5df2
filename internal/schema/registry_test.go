package schema

import "testing"

type stubDecoder struct{}

func (stubDecoder) Decode(b []byte) (map[string]any, error) {
	return map[string]any{"len": len(b)}, nil
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register("CharacterExcelTable", stubDecoder{})

	if _, ok := r.Lookup("characterexceltable"); !ok {
		t.Error("Lookup() lowercase miss, want hit")
	}
	if _, ok := r.Lookup("CHARACTEREXCELTABLE"); !ok {
		t.Error("Lookup() uppercase miss, want hit")
	}
}

func TestRegistryLookupMiss(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("Unregistered"); ok {
		t.Error("Lookup() hit for an unregistered name, want miss")
	}
}
