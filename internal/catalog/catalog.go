package catalog

import (
	"sort"
	"strings"
)

// Catalog is an ordered sequence of entries. It is a value type: copying a
// Catalog copies the slice header, not the backing entries, so callers that
// need an independent collection should call Clone.
type Catalog struct {
	entries []Entry
}

// New returns an empty Catalog ready for Add.
func New() Catalog {
	return Catalog{}
}

// Add appends a new entry built from the given fields.
func (c *Catalog) Add(url, path string, size uint64, checksum string, checkType CheckType, resourceType ResourceType, addition map[string]any) {
	c.entries = append(c.entries, NewEntry(url, path, size, checksum, checkType, resourceType, addition))
}

// AddEntry appends an already-constructed entry.
func (c *Catalog) AddEntry(e Entry) {
	c.entries = append(c.entries, e)
}

// Len reports the number of entries.
func (c Catalog) Len() int {
	return len(c.entries)
}

// At returns the entry at index i.
func (c Catalog) At(i int) Entry {
	return c.entries[i]
}

// Entries returns the underlying slice for range iteration. Callers must
// not mutate it.
func (c Catalog) Entries() []Entry {
	return c.entries
}

// FilterByType returns a new Catalog containing only entries whose
// ResourceType is one of types.
func (c Catalog) FilterByType(types ...ResourceType) Catalog {
	want := make(map[ResourceType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}

	out := New()
	for _, e := range c.entries {
		if want[e.ResourceType] {
			out.AddEntry(e)
		}
	}
	return out
}

// SearchByPath returns a new Catalog containing only entries whose Path
// contains substr, case-insensitively.
func (c Catalog) SearchByPath(substr string) Catalog {
	needle := strings.ToLower(substr)

	out := New()
	for _, e := range c.entries {
		if strings.Contains(strings.ToLower(e.Path), needle) {
			out.AddEntry(e)
		}
	}
	return out
}

// SortedBySizeDesc sorts the catalog's entries by Size descending, in
// place, stably. The Download stage depends on this ordering for its
// dynamic worker-scaling heuristic, which assumes small files arrive last.
func (c *Catalog) SortedBySizeDesc() {
	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.entries[i].Size > c.entries[j].Size
	})
}

// Dedup collapses entries sharing the same Path, keeping the last one
// added — the on-disk key is Path, and the last writer wins.
func (c Catalog) Dedup() Catalog {
	byPath := make(map[string]int, len(c.entries))
	order := make([]string, 0, len(c.entries))

	for _, e := range c.entries {
		if _, ok := byPath[e.Path]; !ok {
			order = append(order, e.Path)
		}
		byPath[e.Path] = -1
	}

	resolved := make(map[string]Entry, len(c.entries))
	for _, e := range c.entries {
		resolved[e.Path] = e
	}

	out := New()
	for _, path := range order {
		out.AddEntry(resolved[path])
	}
	return out
}

// Merge appends other's entries after c's, without deduplicating.
func (c *Catalog) Merge(other Catalog) {
	c.entries = append(c.entries, other.entries...)
}

// Clone returns a Catalog with an independent backing slice.
func (c Catalog) Clone() Catalog {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return Catalog{entries: out}
}
